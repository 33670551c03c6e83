package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the LLMClient interface using Amazon
// Bedrock. Only Anthropic Claude models are supported; they are the only
// Bedrock family exposing the messages API this adapter speaks.
type BedrockClient struct {
	client      *bedrockruntime.Client
	modelID     string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*BedrockClient, error) {
	if !strings.Contains(modelID, "anthropic") {
		return nil, fmt.Errorf("unsupported bedrock model %q: only anthropic models are supported", modelID)
	}
	return &BedrockClient{
		client:      client,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
	Temperature      float32            `json:"temperature,omitempty"`
	TopP             float32            `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate produces the assistant reply for one chat turn
func (c *BedrockClient) Generate(ctx context.Context, systemPrompt string, history []core.ChatMessage, userMessage string) (*core.Generation, error) {
	messages := make([]anthropicMessage, 0, len(history)+1)
	for _, msg := range history {
		role := "user"
		if msg.Role == "assistant" {
			role = "assistant"
		}
		messages = append(messages, anthropicMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, anthropicMessage{Role: "user", Content: userMessage})

	payload, err := json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        c.maxTokens,
		System:           systemPrompt,
		Messages:         messages,
		Temperature:      c.temperature,
		TopP:             c.topP,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bedrock request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke bedrock model: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse bedrock response: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response from bedrock")
	}

	c.logger.Debug("Bedrock completion",
		zap.String("model", c.modelID),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens))

	return &core.Generation{
		Text:         resp.Content[0].Text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		ModelUsed:    c.modelID,
	}, nil
}
