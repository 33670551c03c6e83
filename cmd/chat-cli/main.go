package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/salmadev/dealer-chat/internal/adapters/frontend"
	"github.com/salmadev/dealer-chat/internal/adapters/notify"
	"github.com/salmadev/dealer-chat/internal/adapters/store"
	"github.com/salmadev/dealer-chat/internal/config"
	"github.com/salmadev/dealer-chat/internal/core"
	"github.com/salmadev/dealer-chat/internal/factory"
	"github.com/salmadev/dealer-chat/internal/logging"
	"github.com/salmadev/dealer-chat/internal/utils"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "test", "LLM provider (openai, bedrock, gemini, test)")
	maxTokens   = flag.Int("max-tokens", 1000, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.7, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-3-5-haiku-20241022-v1:0", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-1.5-flash", "Gemini model name")

	// Logging flags
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := createConfigFromFlags()

	// Initialize LLM client
	llmFactory := factory.NewLLMFactory(cfg, logger)
	llmClient, err := llmFactory.CreateLLMClient()
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Assemble the pipeline with in-process dependencies; conversations and
	// leads live only for the lifetime of the session
	normalizer := utils.NewTextNormalizer(logger)
	catalog := core.NewCatalog()
	promotions := core.NewPromotions(time.Now)
	guard := core.NewAbuseGuard(core.DefaultAbuseConfig(), normalizer, logger)
	defer guard.Stop()

	pipelineCfg := core.PipelineConfig{
		HistoryLimit:            cfg.GetInt("pipeline.history_limit"),
		CaptureMessageThreshold: cfg.GetInt("pipeline.capture_message_threshold"),
		FollowUpMessageLimit:    cfg.GetInt("pipeline.followup_message_limit"),
		ModelSpecificSkip:       cfg.GetStringSlice("templates.model_specific_skip"),
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	service := core.NewChatService(
		pipelineCfg,
		guard,
		core.NewTemplateMatcher(normalizer, logger),
		core.NewObjectionHandler(normalizer, rng, logger),
		core.NewIntentClassifier(catalog, normalizer, logger),
		core.NewEntityExtractor(catalog, logger),
		core.NewPromptBuilder(catalog, promotions, pipelineCfg.CaptureMessageThreshold),
		promotions,
		llmClient,
		store.NewMemoryStore(logger),
		notify.NewNoopNotifier(logger),
		normalizer,
		logger,
	)

	cli := frontend.NewCLIFrontend(service, logger)
	if err := cli.Start(); err != nil {
		logger.Fatal("Session ended with error", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider
	v.Set("llm.provider", *provider)

	// Set provider-specific configuration
	switch *provider {
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
	}

	// Pipeline defaults for an interactive session
	v.Set("pipeline.history_limit", 10)
	v.Set("pipeline.capture_message_threshold", 2)
	v.Set("pipeline.followup_message_limit", 5)
	v.Set("templates.model_specific_skip", []string{"modelos", "precios_generales", "autonomia"})

	return config.NewFromViper(v)
}
