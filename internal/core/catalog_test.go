package core

import (
	"strings"
	"testing"
)

func TestMentionedModel(t *testing.T) {
	catalog := NewCatalog()

	tests := []struct {
		message string
		want    string
	}{
		{"me interesa el dolphin mini", "dolphin mini"},
		{"cuanto cuesta el seal", "seal"},
		{"la pickup shark esta disponible?", "shark"},
		{"quiero un auto electrico", ""},
	}
	for _, tt := range tests {
		if got := catalog.MentionedModel(tt.message); got != tt.want {
			t.Errorf("MentionedModel(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestCatalogSummaryMentionsEveryModel(t *testing.T) {
	catalog := NewCatalog()
	summary := catalog.Summary()

	for _, name := range []string{"Dolphin Mini", "Yuan Pro", "Seal", "Sealion 7", "King", "Song Plus", "Shark"} {
		if !strings.Contains(summary, name) {
			t.Errorf("summary missing %s", name)
		}
	}
	// The King/pickup confusion keeps coming back from the LLM
	if !strings.Contains(summary, "NO una pickup") {
		t.Error("summary must clarify the King is not a pickup")
	}
}

func TestSuggestModelByBudget(t *testing.T) {
	catalog := NewCatalog()

	rec := catalog.SuggestModel(CustomerNeeds{Budget: 450000, DailyKM: 30})
	if rec == nil {
		t.Fatal("expected a recommendation")
	}
	if rec.Name != "dolphin mini" {
		t.Errorf("expected dolphin mini for a tight budget, got %s", rec.Name)
	}
}

func TestSuggestModelLongCommute(t *testing.T) {
	catalog := NewCatalog()

	// 300 km a day needs 900 km of range: only the hybrids qualify
	rec := catalog.SuggestModel(CustomerNeeds{DailyKM: 300, UseCase: "carretera"})
	if rec == nil {
		t.Fatal("expected a recommendation")
	}
	if rec.Name != "king" {
		t.Errorf("expected king for long highway commutes, got %s", rec.Name)
	}
}

func TestSuggestModelNoSignal(t *testing.T) {
	catalog := NewCatalog()

	// Default 40 km/day means every model meets the range requirement, so
	// there is always at least a range-based suggestion
	rec := catalog.SuggestModel(CustomerNeeds{})
	if rec == nil {
		t.Fatal("expected a range-based recommendation")
	}
	if rec.Score == 0 {
		t.Error("expected a positive score")
	}
}
