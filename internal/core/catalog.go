package core

import (
	"strings"
)

// VehicleSpec describes one catalog model for matching and recommendations
type VehicleSpec struct {
	Name       string
	Kind       string // "electrico" or "hibrido"
	BasePrice  int
	RangeKM    int
	Passengers int
	Use        string
	Summary    string
}

// Catalog is the dealership's current vehicle line-up. Declaration order is
// the order models appear in prompts and in mention detection.
type Catalog struct {
	vehicles []VehicleSpec
}

// NewCatalog returns the current BYD line-up
func NewCatalog() *Catalog {
	return &Catalog{
		vehicles: []VehicleSpec{
			{Name: "dolphin mini", Kind: "electrico", BasePrice: 400000, RangeKM: 380, Passengers: 4, Use: "ciudad",
				Summary: "Dolphin Mini - hatchback compacto urbano, 100% electrico, 340-380 km de autonomia, 4 pasajeros"},
			{Name: "yuan pro", Kind: "electrico", BasePrice: 500000, RangeKM: 401, Passengers: 5, Use: "mixto",
				Summary: "Yuan Pro - SUV compacto, 100% electrico, 401 km de autonomia, 5 pasajeros"},
			{Name: "seal", Kind: "electrico", BasePrice: 900000, RangeKM: 520, Passengers: 5, Use: "premium",
				Summary: "Seal - sedan deportivo premium, 100% electrico, 460-520 km, 0-100 en 3.8 s (AWD)"},
			{Name: "sealion 7", Kind: "electrico", BasePrice: 800000, RangeKM: 542, Passengers: 5, Use: "familiar",
				Summary: "Sealion 7 - SUV grande premium, 100% electrico, 542 km de autonomia"},
			{Name: "king", Kind: "hibrido", BasePrice: 500000, RangeKM: 1175, Passengers: 5, Use: "carretera",
				Summary: "King DM-i - SEDAN ejecutivo hibrido enchufable (no es pickup), 1,175 km de autonomia total"},
			{Name: "song plus", Kind: "hibrido", BasePrice: 600000, RangeKM: 1001, Passengers: 5, Use: "familiar",
				Summary: "Song Plus DM-i - SUV familiar hibrido enchufable, 1,001 km de autonomia total"},
			{Name: "shark", Kind: "hibrido", BasePrice: 850000, RangeKM: 840, Passengers: 5, Use: "trabajo",
				Summary: "Shark - la unica PICKUP, hibrida 4x4, 840 km de autonomia total, 750 kg de carga"},
		},
	}
}

// MentionedModel returns the first catalog model named in the message, or ""
func (c *Catalog) MentionedModel(normalizedMessage string) string {
	for _, v := range c.vehicles {
		if strings.Contains(normalizedMessage, v.Name) {
			return v.Name
		}
	}
	return ""
}

// Summary renders the catalog block embedded in system prompts
func (c *Catalog) Summary() string {
	var b strings.Builder
	b.WriteString("CATALOGO DE VEHICULOS BYD (INFORMACION OFICIAL):\n")
	b.WriteString("\n100% ELECTRICOS:\n")
	for _, v := range c.vehicles {
		if v.Kind == "electrico" {
			b.WriteString("- " + v.Summary + "\n")
		}
	}
	b.WriteString("\nHIBRIDOS ENCHUFABLES:\n")
	for _, v := range c.vehicles {
		if v.Kind == "hibrido" {
			b.WriteString("- " + v.Summary + "\n")
		}
	}
	b.WriteString("\nIMPORTANTE: el King es un SEDAN de lujo, NO una pickup; el Shark es la unica pickup.\n")
	b.WriteString("Todos usan Blade Battery. Garantia: 6 anos vehiculo completo, 8 anos bateria.\n")
	return b.String()
}

// CustomerNeeds is the input to model recommendation
type CustomerNeeds struct {
	Budget     int
	DailyKM    int
	Passengers int
	UseCase    string
}

// ModelRecommendation is the best catalog match for a set of needs
type ModelRecommendation struct {
	Name  string
	Spec  VehicleSpec
	Score int
}

// SuggestModel scores every model against the customer's needs and returns
// the best match, or nil when nothing scores above zero
func (c *Catalog) SuggestModel(needs CustomerNeeds) *ModelRecommendation {
	dailyKM := needs.DailyKM
	if dailyKM == 0 {
		dailyKM = 40
	}
	// Want at least three days of driving between charges
	neededRange := dailyKM * 3

	var best *ModelRecommendation
	for _, v := range c.vehicles {
		score := 0
		if needs.Budget > 0 && v.BasePrice <= needs.Budget {
			score += 30
			if float64(v.BasePrice) <= float64(needs.Budget)*0.8 {
				score += 10
			}
		}
		if v.RangeKM >= neededRange {
			score += 25
		}
		if needs.Passengers > 0 && v.Passengers >= needs.Passengers {
			score += 20
		}
		if needs.UseCase != "" && v.Use == needs.UseCase {
			score += 25
		}
		if best == nil || score > best.Score {
			best = &ModelRecommendation{Name: v.Name, Spec: v, Score: score}
		}
	}
	if best == nil || best.Score == 0 {
		return nil
	}
	return best
}
