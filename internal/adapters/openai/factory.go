package openai

import (
	"github.com/salmadev/dealer-chat/internal/config"
	"go.uber.org/zap"
)

// Factory creates OpenAI clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new OpenAI factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateClient creates a new OpenAI client from configuration
func (f *Factory) CreateClient() (*OpenAIClient, error) {
	return NewOpenAIClient(
		f.cfg.GetString("openai.api_key"),
		f.cfg.GetString("openai.model_name"),
		f.cfg.GetInt("openai.max_tokens"),
		float32(f.cfg.GetFloat64("openai.temperature")),
		float32(f.cfg.GetFloat64("openai.top_p")),
		f.logger,
	), nil
}
