package core

import "fmt"

// Scoring weights. Contact data plus one buying-signal intent is enough to
// put a lead in the hot band, so a follow-up call happens while the
// prospect is still in the chat.
const (
	pointsName          = 15
	pointsPhone         = 20
	pointsEmail         = 15
	pointsEngaged       = 10 // 5+ messages
	pointsVeryEngaged   = 20 // 10+ messages, supersedes pointsEngaged
	pointsCotizacion    = 25
	pointsFinanciamento = 25
	pointsPruebaManejo  = 30
	pointsModelInterest = 15
	pointsBudget        = 20
)

// Score bands
const (
	hotThreshold  = 80
	warmThreshold = 50
	coolThreshold = 25

	readyToBuyThreshold = 70
	nurturingThreshold  = 50
)

// ScoreLead rates lead quality from the data captured so far. Pure function:
// same inputs always produce the same score, nothing is persisted.
func ScoreLead(lead *Lead, meta ConversationMeta, entities ExtractedEntities) LeadScore {
	score := 0
	var factors []string

	add := func(points int, factor string) {
		score += points
		factors = append(factors, fmt.Sprintf("%s (+%d)", factor, points))
	}

	if lead != nil {
		if lead.Name != "" {
			add(pointsName, "nombre capturado")
		}
		if lead.Phone != "" {
			add(pointsPhone, "telefono capturado")
		}
		if lead.Email != "" {
			add(pointsEmail, "email capturado")
		}
	}

	switch {
	case meta.MessageCount >= 10:
		add(pointsVeryEngaged, "conversacion extendida")
	case meta.MessageCount >= 5:
		add(pointsEngaged, "conversacion activa")
	}

	for _, intent := range dedupe(meta.Intents) {
		switch intent {
		case "cotizacion":
			add(pointsCotizacion, "pidio cotizacion")
		case "financiamiento":
			add(pointsFinanciamento, "pregunto financiamiento")
		case "prueba_manejo":
			add(pointsPruebaManejo, "quiere prueba de manejo")
		}
	}

	if meta.ModelInterest != "" {
		add(pointsModelInterest, "modelo especifico: "+meta.ModelInterest)
	}
	if entities.Budget > 0 {
		add(pointsBudget, "presupuesto definido")
	}

	if score > 100 {
		score = 100
	}

	return LeadScore{
		Score:          score,
		Category:       scoreCategory(score),
		Factors:        factors,
		ReadyToBuy:     score >= readyToBuyThreshold,
		NeedsNurturing: score < nurturingThreshold,
	}
}

func scoreCategory(score int) string {
	switch {
	case score >= hotThreshold:
		return "hot"
	case score >= warmThreshold:
		return "warm"
	case score >= coolThreshold:
		return "cool"
	default:
		return "cold"
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
