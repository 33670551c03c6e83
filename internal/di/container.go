package di

import (
	"math/rand"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/salmadev/dealer-chat/internal/config"
	"github.com/salmadev/dealer-chat/internal/core"
	"github.com/salmadev/dealer-chat/internal/factory"
	"github.com/salmadev/dealer-chat/internal/logging"
	"github.com/salmadev/dealer-chat/internal/ports"
	"github.com/salmadev/dealer-chat/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text normalizer
	if err := container.Provide(utils.NewTextNormalizer); err != nil {
		return nil, err
	}

	// Register domain knowledge
	if err := container.Provide(core.NewCatalog); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *core.Promotions {
		return core.NewPromotions(time.Now)
	}); err != nil {
		return nil, err
	}

	// Register abuse guard
	if err := container.Provide(func(cfg *config.Config) (core.AbuseConfig, error) {
		return abuseConfig(cfg)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewAbuseGuard); err != nil {
		return nil, err
	}

	// Register pipeline components
	if err := container.Provide(core.NewTemplateMatcher); err != nil {
		return nil, err
	}
	if err := container.Provide(func(normalizer *utils.TextNormalizer, logger *zap.Logger) *core.ObjectionHandler {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		return core.NewObjectionHandler(normalizer, rng, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewIntentClassifier); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewEntityExtractor); err != nil {
		return nil, err
	}
	if err := container.Provide(func(catalog *core.Catalog, promotions *core.Promotions, cfg core.PipelineConfig) *core.PromptBuilder {
		return core.NewPromptBuilder(catalog, promotions, cfg.CaptureMessageThreshold)
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewNotifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register lead store
	if err := container.Provide(func(f *factory.StoreFactory) (core.LeadStore, error) {
		return f.CreateLeadStore()
	}); err != nil {
		return nil, err
	}

	// Register lead notifier
	if err := container.Provide(func(f *factory.NotifierFactory) (core.LeadNotifier, error) {
		return f.CreateLeadNotifier()
	}); err != nil {
		return nil, err
	}

	// Register pipeline configuration
	if err := container.Provide(func(cfg *config.Config) core.PipelineConfig {
		return core.PipelineConfig{
			HistoryLimit:            cfg.GetInt("pipeline.history_limit"),
			CaptureMessageThreshold: cfg.GetInt("pipeline.capture_message_threshold"),
			FollowUpMessageLimit:    cfg.GetInt("pipeline.followup_message_limit"),
			ModelSpecificSkip:       cfg.GetStringSlice("templates.model_specific_skip"),
		}
	}); err != nil {
		return nil, err
	}

	// Register chat service
	if err := container.Provide(core.NewChatService); err != nil {
		return nil, err
	}

	// Register chat frontend
	if err := container.Provide(func(f *factory.FrontendFactory, service *core.ChatService, guard *core.AbuseGuard) (ports.ChatFrontend, error) {
		return f.CreateFrontend(service, guard)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

func abuseConfig(cfg *config.Config) (core.AbuseConfig, error) {
	blockDuration, err := cfg.GetDuration("abuse.block_duration")
	if err != nil {
		return core.AbuseConfig{}, err
	}
	sweepInterval, err := cfg.GetDuration("abuse.sweep_interval")
	if err != nil {
		return core.AbuseConfig{}, err
	}
	senderRetention, err := cfg.GetDuration("abuse.sender_retention")
	if err != nil {
		return core.AbuseConfig{}, err
	}
	fingerprintTTL, err := cfg.GetDuration("abuse.fingerprint_ttl")
	if err != nil {
		return core.AbuseConfig{}, err
	}
	violationRetention, err := cfg.GetDuration("abuse.violation_retention")
	if err != nil {
		return core.AbuseConfig{}, err
	}

	return core.AbuseConfig{
		MaxMessagesPerMinute:  cfg.GetInt("abuse.max_messages_per_minute"),
		MaxRepeatedMessages:   cfg.GetInt("abuse.max_repeated_messages"),
		MinMessageLength:      cfg.GetInt("abuse.min_message_length"),
		BlockDuration:         blockDuration,
		ViolationsBeforeBlock: cfg.GetInt("abuse.violations_before_block"),
		SweepInterval:         sweepInterval,
		SenderRetention:       senderRetention,
		FingerprintTTL:        fingerprintTTL,
		ViolationRetention:    violationRetention,
	}, nil
}
