package core

import (
	"testing"

	"github.com/salmadev/dealer-chat/internal/utils"
	"go.uber.org/zap"
)

func newTestMatcher() *TemplateMatcher {
	return NewTemplateMatcher(utils.NewTextNormalizer(zap.NewNop()), zap.NewNop())
}

func TestMatchGreeting(t *testing.T) {
	matcher := newTestMatcher()

	match := matcher.Match("hola")
	if match == nil {
		t.Fatal("expected greeting to match")
	}
	if match.Category != "saludos" {
		t.Errorf("expected category saludos, got %s", match.Category)
	}
	if match.Confidence < 0.8 {
		t.Errorf("expected confidence >= 0.8, got %.2f", match.Confidence)
	}
}

func TestMatchCategories(t *testing.T) {
	tests := []struct {
		message  string
		category string
	}{
		{"Buenos días", "saludos"},
		{"¿A qué hora abren?", "horarios"},
		{"¿Dónde están ubicados?", "ubicacion"},
		{"¿Qué modelos tienen disponibles?", "modelos"},
		{"¿Es mejor que un Tesla?", "comparacion"},
		{"Gracias por todo", "despedida"},
		{"¿Me das un teléfono de contacto?", "contacto"},
		{"¿Dónde puedo cargar el auto?", "carga"},
	}

	matcher := newTestMatcher()
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			match := matcher.Match(tt.message)
			if match == nil {
				t.Fatalf("expected %q to match a template", tt.message)
			}
			if match.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, match.Category)
			}
			if match.Response == "" {
				t.Error("expected a non-empty response")
			}
		})
	}
}

func TestMatchTooShort(t *testing.T) {
	matcher := newTestMatcher()
	if match := matcher.Match("a"); match != nil {
		t.Errorf("expected no match for single character, got %s", match.Category)
	}
	if match := matcher.Match("   "); match != nil {
		t.Errorf("expected no match for whitespace, got %s", match.Category)
	}
}

func TestMatchNoHit(t *testing.T) {
	matcher := newTestMatcher()
	if match := matcher.Match("mi vecino tiene un perro enorme"); match != nil {
		t.Errorf("expected no match, got %s", match.Category)
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	matcher := newTestMatcher()

	first := matcher.Match("¿dónde están ubicados?")
	second := matcher.Match("¿dónde están ubicados?")
	if first == nil || second == nil {
		t.Fatal("expected both calls to match")
	}
	if first.Category != second.Category || first.Confidence != second.Confidence {
		t.Errorf("expected identical results, got %+v vs %+v", first, second)
	}
}

func TestContactHasHighestBaseConfidence(t *testing.T) {
	matcher := newTestMatcher()

	match := matcher.Match("quiero hablar con un asesor")
	if match == nil {
		t.Fatal("expected contacto match")
	}
	if match.Category != "contacto" {
		t.Fatalf("expected contacto, got %s", match.Category)
	}
	if match.Confidence < 0.95 {
		t.Errorf("expected confidence >= 0.95, got %.2f", match.Confidence)
	}
}

func TestConfidenceNeverExceedsOne(t *testing.T) {
	matcher := newTestMatcher()

	// Full-coverage match on a high-base category
	match := matcher.Match("contacto")
	if match == nil {
		t.Fatal("expected match")
	}
	if match.Confidence > 1.0 {
		t.Errorf("confidence above 1.0: %.2f", match.Confidence)
	}
}

func TestFindSimilar(t *testing.T) {
	matcher := newTestMatcher()

	suggestions := matcher.FindSimilar("necesito informacion sobre horario y showroom")
	if len(suggestions) == 0 {
		t.Fatal("expected at least one suggestion")
	}
	for i := 1; i < len(suggestions); i++ {
		if suggestions[i].Similarity > suggestions[i-1].Similarity {
			t.Error("expected suggestions sorted by descending similarity")
		}
	}
}

func TestTemplateStats(t *testing.T) {
	matcher := newTestMatcher()

	stats := matcher.Stats()
	if stats.TotalCategories != 8 {
		t.Errorf("expected 8 categories, got %d", stats.TotalCategories)
	}
	if stats.TotalPatterns <= stats.TotalCategories {
		t.Errorf("expected multiple patterns per category, got %d", stats.TotalPatterns)
	}
}
