package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/salmadev/dealer-chat/internal/config"
	"go.uber.org/zap"
)

// Factory creates Bedrock clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateClient creates a new Bedrock client from configuration
func (f *Factory) CreateClient() (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(f.cfg.GetString("bedrock.region")))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg)

	return NewBedrockClient(
		client,
		f.cfg.GetString("bedrock.model_id"),
		f.cfg.GetInt("bedrock.max_tokens"),
		float32(f.cfg.GetFloat64("bedrock.temperature")),
		float32(f.cfg.GetFloat64("bedrock.top_p")),
		f.logger,
	)
}
