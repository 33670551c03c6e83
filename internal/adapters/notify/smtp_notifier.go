package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// SMTPNotifier emails the sales team when a lead becomes complete
type SMTPNotifier struct {
	addr     string
	username string
	password string
	from     string
	to       []string
	logger   *zap.Logger
}

// NewSMTPNotifier creates an email notifier. addr is host:port of the relay.
func NewSMTPNotifier(addr, username, password, from string, to []string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		addr:     addr,
		username: username,
		password: password,
		from:     from,
		to:       to,
		logger:   logger,
	}
}

// NotifyLeadCaptured sends the new-lead email
func (n *SMTPNotifier) NotifyLeadCaptured(ctx context.Context, lead *core.Lead, modelInterest string) error {
	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", n.from)
	fmt.Fprintf(&body, "To: %s\r\n", strings.Join(n.to, ", "))
	fmt.Fprintf(&body, "Subject: Nuevo lead del chatbot: %s\r\n", lead.Name)
	body.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&body, "Nombre: %s\r\n", lead.Name)
	if lead.Phone != "" {
		fmt.Fprintf(&body, "Telefono: %s\r\n", lead.Phone)
	}
	if lead.Email != "" {
		fmt.Fprintf(&body, "Email: %s\r\n", lead.Email)
	}
	if modelInterest != "" {
		fmt.Fprintf(&body, "Modelo de interes: %s\r\n", modelInterest)
	}
	fmt.Fprintf(&body, "Capturado: %s\r\n", time.Now().Format(time.RFC1123))
	body.WriteString("\r\nContactar lo antes posible.\r\n")

	var auth sasl.Client
	if n.username != "" {
		auth = sasl.NewPlainClient("", n.username, n.password)
	}

	if err := smtp.SendMail(n.addr, auth, n.from, n.to, strings.NewReader(body.String())); err != nil {
		return fmt.Errorf("failed to send lead email: %w", err)
	}

	n.logger.Info("Lead notification email sent",
		zap.String("lead_id", lead.ID),
		zap.Strings("to", n.to))
	return nil
}
