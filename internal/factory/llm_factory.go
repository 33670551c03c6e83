package factory

import (
	"fmt"

	"github.com/salmadev/dealer-chat/internal/adapters/bedrock"
	"github.com/salmadev/dealer-chat/internal/adapters/gemini"
	"github.com/salmadev/dealer-chat/internal/adapters/openai"
	"github.com/salmadev/dealer-chat/internal/adapters/testmode"
	"github.com/salmadev/dealer-chat/internal/config"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{cfg: cfg, logger: logger}
}

// CreateLLMClient creates the configured LLM client. Missing credentials for
// a keyed provider drop the pipeline into test mode instead of failing
// startup, so the deterministic layers stay usable.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	provider := f.cfg.GetString("llm.provider")

	switch provider {
	case "openai":
		if f.cfg.GetString("openai.api_key") == "" {
			return testmode.NewTestModeClient(f.logger), nil
		}
		return openai.NewFactory(f.cfg, f.logger).CreateClient()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateClient()
	case "gemini":
		if f.cfg.GetString("gemini.api_key") == "" {
			return testmode.NewTestModeClient(f.logger), nil
		}
		return gemini.NewFactory(f.cfg, f.logger).CreateClient()
	case "test":
		return testmode.NewTestModeClient(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
