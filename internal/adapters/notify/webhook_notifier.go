package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// WebhookNotifier posts new leads to an external gateway, typically an SMS
// bridge that texts the sales floor
type WebhookNotifier struct {
	url    string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier creates a webhook notifier
func NewWebhookNotifier(url, apiKey string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type leadPayload struct {
	LeadID        string `json:"lead_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	ModelInterest string `json:"model_interest,omitempty"`
	Source        string `json:"source"`
	CapturedAt    string `json:"captured_at"`
}

// NotifyLeadCaptured posts the lead to the configured webhook
func (n *WebhookNotifier) NotifyLeadCaptured(ctx context.Context, lead *core.Lead, modelInterest string) error {
	payload, err := json.Marshal(leadPayload{
		LeadID:        lead.ID,
		Name:          lead.Name,
		Phone:         lead.Phone,
		Email:         lead.Email,
		ModelInterest: modelInterest,
		Source:        lead.Source,
		CapturedAt:    time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal lead payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("X-API-Key", n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post lead webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("lead webhook returned status %d", resp.StatusCode)
	}

	n.logger.Info("Lead webhook delivered",
		zap.String("lead_id", lead.ID),
		zap.Int("status", resp.StatusCode))
	return nil
}
