package core

import (
	"fmt"
	"strings"
	"time"
)

// Promotion is one currently running offer
type Promotion struct {
	Name        string
	Description string
	Models      []string // "all" or specific catalog model names
	Value       string
}

// Promotions holds the running offers and their shared end date. The clock is
// injected so urgency copy is testable at fixed dates.
type Promotions struct {
	active bool
	offers []Promotion
	now    func() time.Time
}

// NewPromotions returns the current promotion set ending at end of month
func NewPromotions(now func() time.Time) *Promotions {
	if now == nil {
		now = time.Now
	}
	return &Promotions{
		active: true,
		now:    now,
		offers: []Promotion{
			{
				Name:        "Bono de Fin de Ano",
				Description: "Bonificacion especial en precio de lista",
				Models:      []string{"all"},
				Value:       "Hasta $50,000 MXN",
			},
			{
				Name:        "Tasa Preferencial",
				Description: "Financiamiento con tasa especial",
				Models:      []string{"dolphin mini", "seal", "king"},
				Value:       "Desde 9.9% anual",
			},
			{
				Name:        "Cargador de Regalo",
				Description: "Cargador L2 incluido con tu compra",
				Models:      []string{"seal", "sealion 7"},
				Value:       "Valor $25,000 MXN",
			},
		},
	}
}

// All returns every running offer regardless of model
func (p *Promotions) All() []Promotion {
	if !p.active {
		return nil
	}
	return p.offers
}

// EndDate is the last day of the current month
func (p *Promotions) EndDate() time.Time {
	now := p.now()
	return time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())
}

// DaysRemaining until the promotion end date, never negative
func (p *Promotions) DaysRemaining() int {
	remaining := p.EndDate().Sub(p.now())
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// Active returns the offers applicable to a model ("" means all offers)
func (p *Promotions) Active(model string) []Promotion {
	if !p.active {
		return nil
	}
	var out []Promotion
	for _, offer := range p.offers {
		if model == "" {
			out = append(out, offer)
			continue
		}
		for _, m := range offer.Models {
			if m == "all" || m == strings.ToLower(model) {
				out = append(out, offer)
				break
			}
		}
	}
	return out
}

// UrgencyMessage renders the scarcity line used in prompts and handoff offers
func (p *Promotions) UrgencyMessage() string {
	if !p.active {
		return ""
	}
	days := p.DaysRemaining()
	switch {
	case days <= 3:
		return fmt.Sprintf("¡ULTIMOS %d DIAS! Las promociones terminan muy pronto.", days)
	case days <= 7:
		return fmt.Sprintf("Las promociones actuales terminan en %d dias.", days)
	default:
		return "Aprovecha las promociones vigentes este mes."
	}
}
