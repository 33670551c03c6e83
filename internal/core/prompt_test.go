package core

import (
	"strings"
	"testing"
	"time"
)

func newTestPromptBuilder() *PromptBuilder {
	clock := fixedClock(time.Date(2025, time.May, 10, 9, 0, 0, 0, time.UTC))
	return NewPromptBuilder(NewCatalog(), NewPromotions(clock), 2)
}

func TestBuildIncludesPersonaAndCatalog(t *testing.T) {
	builder := newTestPromptBuilder()

	prompt := builder.Build(IntentResult{Intent: "informacion"}, nil, ConversationMeta{}, 0)
	if !strings.Contains(prompt, "Salma AI") {
		t.Error("prompt missing persona")
	}
	if !strings.Contains(prompt, "CATALOGO") {
		t.Error("prompt missing catalog")
	}
	if !strings.Contains(prompt, "[LEAD_DATA]") {
		t.Error("prompt for unknown lead missing capture instructions")
	}
}

func TestBuildPremiumIntentIncludesPricing(t *testing.T) {
	builder := newTestPromptBuilder()

	intent := IntentResult{Intent: "cotizacion", RequiresPremiumInfo: true}
	prompt := builder.Build(intent, nil, ConversationMeta{}, 0)
	if !strings.Contains(prompt, "PRECIOS Y FINANCIAMIENTO") {
		t.Error("premium intent must include pricing section")
	}

	plain := builder.Build(IntentResult{Intent: "informacion"}, nil, ConversationMeta{}, 0)
	if strings.Contains(plain, "PRECIOS Y FINANCIAMIENTO") {
		t.Error("plain intent must not include pricing section")
	}
}

func TestBuildKnownLeadSkipsCapture(t *testing.T) {
	builder := newTestPromptBuilder()
	lead := &Lead{Name: "Juan Pérez", Phone: "8112345678"}

	prompt := builder.Build(IntentResult{Intent: "informacion"}, lead, ConversationMeta{ModelInterest: "seal"}, 0)
	if !strings.Contains(prompt, "Juan Pérez") {
		t.Error("prompt must carry the known lead's name")
	}
	if !strings.Contains(prompt, "NO vuelvas a pedir contacto") {
		t.Error("prompt must forbid re-asking for contact data")
	}
	if strings.Contains(prompt, leadCapturePrompt) {
		t.Error("known lead must not get capture instructions")
	}
}

func TestBuildIncompleteLeadStillCaptures(t *testing.T) {
	builder := newTestPromptBuilder()

	// Name but no phone or email: still incomplete
	lead := &Lead{Name: "Juan"}
	prompt := builder.Build(IntentResult{Intent: "informacion"}, lead, ConversationMeta{}, 0)
	if !strings.Contains(prompt, "[LEAD_DATA]") {
		t.Error("incomplete lead must keep capture instructions")
	}
}

func TestBuildIncludesPromotionUrgency(t *testing.T) {
	builder := newTestPromptBuilder()

	prompt := builder.Build(IntentResult{Intent: "informacion"}, nil, ConversationMeta{}, 0)
	if !strings.Contains(prompt, "PROMOCIONES VIGENTES") {
		t.Error("prompt missing promotions section")
	}
}

func TestBuildEscalatesCaptureAtThreshold(t *testing.T) {
	builder := newTestPromptBuilder()

	early := builder.Build(IntentResult{Intent: "informacion"}, nil, ConversationMeta{}, 0)
	if strings.Contains(early, "CRITICO") {
		t.Error("first reply must not carry the insistent capture instructions")
	}

	// One assistant reply already sent and still no contact data: the next
	// reply is the last one allowed without capturing
	late := builder.Build(IntentResult{Intent: "informacion"}, nil, ConversationMeta{}, 1)
	if !strings.Contains(late, "CRITICO") {
		t.Error("expected insistent capture instructions at the threshold")
	}

	// A complete lead never sees capture instructions, insistent or not
	lead := &Lead{Name: "Juan Pérez", Phone: "8112345678"}
	known := builder.Build(IntentResult{Intent: "informacion"}, lead, ConversationMeta{}, 5)
	if strings.Contains(known, "CRITICO") {
		t.Error("known lead must not get the capture escalation")
	}
}
