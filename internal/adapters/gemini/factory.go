package gemini

import (
	"github.com/salmadev/dealer-chat/internal/config"
	"go.uber.org/zap"
)

// Factory creates Gemini clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Gemini factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateClient creates a new Gemini client from configuration
func (f *Factory) CreateClient() (*GeminiClient, error) {
	return NewGeminiClient(
		f.cfg.GetString("gemini.api_key"),
		f.cfg.GetString("gemini.model_name"),
		f.cfg.GetInt("gemini.max_tokens"),
		float32(f.cfg.GetFloat64("gemini.temperature")),
		float32(f.cfg.GetFloat64("gemini.top_p")),
		f.logger,
	)
}
