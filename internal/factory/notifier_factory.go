package factory

import (
	"fmt"

	"github.com/salmadev/dealer-chat/internal/adapters/notify"
	"github.com/salmadev/dealer-chat/internal/config"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// NotifierFactory creates lead notifiers
type NotifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, logger *zap.Logger) *NotifierFactory {
	return &NotifierFactory{cfg: cfg, logger: logger}
}

// CreateLeadNotifier creates the configured lead notifier
func (f *NotifierFactory) CreateLeadNotifier() (core.LeadNotifier, error) {
	notifierType := f.cfg.GetString("notifier.type")

	switch notifierType {
	case "webhook":
		timeout, err := f.cfg.GetDuration("notifier.webhook_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid webhook timeout: %w", err)
		}
		return notify.NewWebhookNotifier(
			f.cfg.GetString("notifier.webhook_url"),
			f.cfg.GetString("notifier.webhook_api_key"),
			timeout,
			f.logger,
		), nil
	case "smtp":
		return notify.NewSMTPNotifier(
			f.cfg.GetString("notifier.smtp_address"),
			f.cfg.GetString("notifier.smtp_username"),
			f.cfg.GetString("notifier.smtp_password"),
			f.cfg.GetString("notifier.smtp_from"),
			f.cfg.GetStringSlice("notifier.smtp_to"),
			f.logger,
		), nil
	case "none":
		return notify.NewNoopNotifier(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", notifierType)
	}
}
