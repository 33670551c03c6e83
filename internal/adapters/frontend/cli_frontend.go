package frontend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// CLIFrontend drives the pipeline from stdin, one message per line. Used to
// try prompts and the deterministic layers without standing up the HTTP API.
type CLIFrontend struct {
	service *core.ChatService
	in      io.Reader
	out     io.Writer
	logger  *zap.Logger
	cancel  context.CancelFunc
}

// NewCLIFrontend creates an interactive stdin/stdout frontend
func NewCLIFrontend(service *core.ChatService, logger *zap.Logger) *CLIFrontend {
	return &CLIFrontend{
		service: service,
		in:      os.Stdin,
		out:     os.Stdout,
		logger:  logger,
	}
}

// Start reads messages until EOF or "salir"
func (f *CLIFrontend) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	fmt.Fprintln(f.out, "Salma AI - escribe tu mensaje (\"salir\" para terminar)")

	var conversationID string
	scanner := bufio.NewScanner(f.in)
	for scanner.Scan() {
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "salir" || message == "exit" {
			break
		}

		reply := f.service.ProcessMessage(ctx, core.ChatRequest{
			ConversationID: conversationID,
			Message:        message,
			Sender:         core.SenderMeta{Address: "cli", SessionID: "cli-session"},
		})
		conversationID = reply.ConversationID
		fmt.Fprintf(f.out, "\n[%s] %s\n\n", reply.Source, reply.Message)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	fmt.Fprintln(f.out, "¡Hasta luego!")
	return nil
}

// Stop cancels the in-flight conversation
func (f *CLIFrontend) Stop(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
	}
	return nil
}
