package core

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPromotionsEndDate(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	promos := NewPromotions(fixedClock(now))

	end := promos.EndDate()
	if end.Day() != 31 || end.Month() != time.March {
		t.Errorf("expected March 31, got %s", end.Format("2006-01-02"))
	}
}

func TestDaysRemaining(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"start of month", time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), 29},
		{"last day", time.Date(2025, time.April, 30, 12, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promos := NewPromotions(fixedClock(tt.now))
			if got := promos.DaysRemaining(); got != tt.want {
				t.Errorf("expected %d days, got %d", tt.want, got)
			}
		})
	}
}

func TestUrgencyTiers(t *testing.T) {
	// 2025-05-29: 2 days left, maximum urgency
	promos := NewPromotions(fixedClock(time.Date(2025, time.May, 29, 9, 0, 0, 0, time.UTC)))
	if msg := promos.UrgencyMessage(); !strings.Contains(msg, "ULTIMOS") {
		t.Errorf("expected high-urgency copy, got %q", msg)
	}

	// 2025-05-25: 6 days left, medium urgency
	promos = NewPromotions(fixedClock(time.Date(2025, time.May, 25, 9, 0, 0, 0, time.UTC)))
	msg := promos.UrgencyMessage()
	if msg == "" || strings.Contains(msg, "ULTIMOS") {
		t.Errorf("expected medium-urgency copy, got %q", msg)
	}

	// 2025-05-02: most of the month left
	promos = NewPromotions(fixedClock(time.Date(2025, time.May, 2, 9, 0, 0, 0, time.UTC)))
	if msg := promos.UrgencyMessage(); msg == "" {
		t.Error("expected an urgency message whenever promotions run")
	}
}

func TestActiveFiltersByModel(t *testing.T) {
	promos := NewPromotions(fixedClock(time.Date(2025, time.May, 10, 9, 0, 0, 0, time.UTC)))

	sealOffers := promos.Active("seal")
	if len(sealOffers) < 2 {
		t.Errorf("expected seal to qualify for all-model and seal-specific offers, got %d", len(sealOffers))
	}

	sharkOffers := promos.Active("shark")
	for _, offer := range sharkOffers {
		for _, model := range offer.Models {
			if model != "all" && model != "shark" {
				t.Errorf("offer %q does not apply to shark", offer.Name)
			}
		}
	}
	if len(sharkOffers) == 0 {
		t.Error("expected shark to get at least the all-model offer")
	}
}
