package testmode

import (
	"context"

	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// TestModeClient is the LLMClient used when no provider credentials are
// configured. It returns a fixed reply so the widget, the deterministic
// layers and the lead capture flow can all be exercised without spending
// tokens.
type TestModeClient struct {
	logger *zap.Logger
}

// NewTestModeClient creates the no-credentials client
func NewTestModeClient(logger *zap.Logger) *TestModeClient {
	logger.Warn("LLM running in test mode: no provider credentials configured")
	return &TestModeClient{logger: logger}
}

const testModeReply = `Estoy funcionando en modo de prueba, sin conexion al modelo de lenguaje.

Puedo responder preguntas frecuentes sobre horarios, ubicacion, modelos y carga. Para atencion completa contacta al equipo:
WhatsApp: +52 81 2027 2752`

// Generate returns the canned test-mode reply
func (c *TestModeClient) Generate(ctx context.Context, systemPrompt string, history []core.ChatMessage, userMessage string) (*core.Generation, error) {
	c.logger.Debug("Test mode generation", zap.Int("history_len", len(history)))
	return &core.Generation{
		Text:      testModeReply,
		ModelUsed: "test_mode",
	}, nil
}
