package notify

import (
	"context"

	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// NoopNotifier logs captured leads without delivering them anywhere. The
// default when no notifier is configured.
type NoopNotifier struct {
	logger *zap.Logger
}

// NewNoopNotifier creates the log-only notifier
func NewNoopNotifier(logger *zap.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) NotifyLeadCaptured(ctx context.Context, lead *core.Lead, modelInterest string) error {
	n.logger.Info("Lead captured (no notifier configured)",
		zap.String("lead_id", lead.ID),
		zap.String("name", lead.Name),
		zap.String("model_interest", modelInterest))
	return nil
}
