package core

import (
	"testing"

	"github.com/salmadev/dealer-chat/internal/utils"
	"go.uber.org/zap"
)

func newTestExtractor() (*EntityExtractor, *utils.TextNormalizer) {
	normalizer := utils.NewTextNormalizer(zap.NewNop())
	return NewEntityExtractor(NewCatalog(), zap.NewNop()), normalizer
}

func extract(t *testing.T, message string) ExtractedEntities {
	t.Helper()
	extractor, normalizer := newTestExtractor()
	return extractor.Extract(message, normalizer.Normalize(message))
}

func TestExtractPhoneShapes(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"bare digits", "mi numero es 8112345678"},
		{"2-4-4 spaces", "llamame al 81 1234 5678"},
		{"3-3-4 dashes", "tel 811-234-5678"},
		{"country code", "whatsapp +52 8112345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := extract(t, tt.message)
			if entities.Phone != "8112345678" {
				t.Errorf("expected 8112345678, got %q", entities.Phone)
			}
		})
	}
}

func TestExtractPhoneRejectsWrongLength(t *testing.T) {
	entities := extract(t, "marque 12345 para continuar")
	if entities.Phone != "" {
		t.Errorf("expected no phone from 5 digits, got %q", entities.Phone)
	}
}

func TestExtractEmail(t *testing.T) {
	entities := extract(t, "mi correo es juan.perez@gmail.com por si acaso")
	if entities.Email != "juan.perez@gmail.com" {
		t.Errorf("expected email, got %q", entities.Email)
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Hola, me llamo Juan Pérez", "Juan Pérez"},
		{"mi nombre es maría lópez", "María López"},
		{"soy Carlos", "Carlos"},
		{"nombre: Ana Gutiérrez", "Ana Gutiérrez"},
		// missing-space typo
		{"minombre es Roberto Garza", "Roberto Garza"},
		// the whole message is just the name
		{"Carlos Ramirez", "Carlos Ramirez"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			entities := extract(t, tt.message)
			if entities.Name != tt.want {
				t.Errorf("expected %q, got %q", tt.want, entities.Name)
			}
		})
	}
}

func TestExtractNameSkipsNonNames(t *testing.T) {
	tests := []string{
		"soy un cliente interesado",
		"soy de Monterrey",
		"soy el que pregunto ayer",
		// standalone capitalized words that are not a person
		"Dolphin Mini",
		"Buenos Dias",
	}
	for _, message := range tests {
		entities := extract(t, message)
		if entities.Name != "" {
			t.Errorf("expected no name from %q, got %q", message, entities.Name)
		}
	}
}

func TestExtractBudget(t *testing.T) {
	tests := []struct {
		message string
		want    int
	}{
		{"tengo 500 mil para el auto", 500000},
		{"mi presupuesto es 450,000 pesos", 450000},
		{"hasta 600000 mxn", 600000},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			entities := extract(t, tt.message)
			if entities.Budget != tt.want {
				t.Errorf("expected budget %d, got %d", tt.want, entities.Budget)
			}
		})
	}
}

func TestExtractDailyKM(t *testing.T) {
	entities := extract(t, "manejo como 60 km diarios al trabajo")
	if entities.DailyKM != 60 {
		t.Errorf("expected 60 daily km, got %d", entities.DailyKM)
	}

	// the daily marker is optional
	entities = extract(t, "manejo unos 50 km")
	if entities.DailyKM != 50 {
		t.Errorf("expected 50 daily km without marker, got %d", entities.DailyKM)
	}
}

func TestExtractModelInterest(t *testing.T) {
	entities := extract(t, "¿Qué precio tiene el Dolphin Mini?")
	if entities.ModelInterest != "dolphin mini" {
		t.Errorf("expected dolphin mini, got %q", entities.ModelInterest)
	}
}

func TestExtractCombined(t *testing.T) {
	entities := extract(t, "Soy Laura, mi cel es 81 1234 5678 y me interesa el Seal")
	if entities.Name != "Laura" {
		t.Errorf("expected name Laura, got %q", entities.Name)
	}
	if entities.Phone != "8112345678" {
		t.Errorf("expected phone, got %q", entities.Phone)
	}
	if entities.ModelInterest != "seal" {
		t.Errorf("expected seal, got %q", entities.ModelInterest)
	}
	if entities.Empty() {
		t.Error("expected non-empty entities")
	}
	if !entities.HasContact() {
		t.Error("expected contact data present")
	}
}

func TestExtractNothing(t *testing.T) {
	entities := extract(t, "¿cuanto tarda en cargar?")
	if !entities.Empty() {
		t.Errorf("expected empty entities, got %+v", entities)
	}
}

func TestMergePrefersNewValues(t *testing.T) {
	base := ExtractedEntities{Name: "Juan", Budget: 400000}
	merged := base.Merge(ExtractedEntities{Phone: "8112345678", Budget: 500000})

	if merged.Name != "Juan" {
		t.Errorf("expected name kept, got %q", merged.Name)
	}
	if merged.Phone != "8112345678" {
		t.Errorf("expected phone added, got %q", merged.Phone)
	}
	if merged.Budget != 500000 {
		t.Errorf("expected budget overridden, got %d", merged.Budget)
	}
}
