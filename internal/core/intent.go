package core

import (
	"strings"

	"github.com/salmadev/dealer-chat/internal/utils"
	"go.uber.org/zap"
)

// intentDef maps an intent to its trigger keywords. Longer keywords carry
// more weight because they are more specific.
type intentDef struct {
	name     string
	keywords []string
}

// IntentClassifier labels each message with the buyer's most likely intent.
// Purely lexical: keyword hits are summed by keyword length and the highest
// scoring intent wins.
type IntentClassifier struct {
	intents    []intentDef
	catalog    *Catalog
	normalizer *utils.TextNormalizer
	logger     *zap.Logger
}

// NewIntentClassifier creates the classifier with the dealership's intent set
func NewIntentClassifier(catalog *Catalog, normalizer *utils.TextNormalizer, logger *zap.Logger) *IntentClassifier {
	return &IntentClassifier{
		catalog:    catalog,
		normalizer: normalizer,
		logger:     logger,
		intents: []intentDef{
			{name: "cotizacion", keywords: []string{
				"cotizacion", "cotizar", "precio", "cuanto cuesta", "cuanto sale",
				"presupuesto", "costo", "vale",
			}},
			{name: "financiamiento", keywords: []string{
				"financiamiento", "credito", "mensualidad", "mensualidades",
				"enganche", "meses", "plazos", "arrendamiento",
			}},
			{name: "prueba_manejo", keywords: []string{
				"prueba de manejo", "test drive", "manejarlo", "probarlo",
				"conocerlo", "agendar cita", "visitar",
			}},
			{name: "comparacion", keywords: []string{
				"comparar", "diferencia", "versus", "mejor que", "tesla",
				"otras marcas", "cual conviene",
			}},
			{name: "disponibilidad", keywords: []string{
				"disponible", "disponibilidad", "en existencia", "entrega",
				"cuando llega", "inventario", "colores",
			}},
			{name: "promociones", keywords: []string{
				"promocion", "promociones", "descuento", "oferta", "ofertas",
				"bono", "rebaja",
			}},
			{name: "informacion", keywords: []string{
				"informacion", "caracteristicas", "especificaciones", "autonomia",
				"bateria", "garantia", "equipamiento", "motor",
			}},
		},
	}
}

// Classify scores every intent against the message. When no keyword matches
// the message defaults to "informacion" at low confidence.
func (c *IntentClassifier) Classify(message string) IntentResult {
	normalized := c.normalizer.Normalize(message)

	best := ""
	bestScore := 0
	for _, intent := range c.intents {
		score := 0
		for _, keyword := range intent.keywords {
			if strings.Contains(normalized, keyword) {
				score += len(keyword)
			}
		}
		if score > bestScore {
			best = intent.name
			bestScore = score
		}
	}

	result := IntentResult{Intent: "informacion", Confidence: 0.5}
	if best != "" {
		confidence := float64(bestScore) / 20
		if confidence > 0.8 {
			confidence = 0.8
		}
		result = IntentResult{Intent: best, Confidence: confidence}
	}
	result.ModelInterest = c.catalog.MentionedModel(normalized)
	result.RequiresPremiumInfo = RequiresPremiumInfo(result.Intent)

	c.logger.Debug("Intent classified",
		zap.String("intent", result.Intent),
		zap.Float64("confidence", result.Confidence),
		zap.String("model_interest", result.ModelInterest))
	return result
}

// RequiresPremiumInfo reports whether the intent needs pricing or financing
// detail that only the full prompt context carries
func RequiresPremiumInfo(intent string) bool {
	return intent == "cotizacion" || intent == "financiamiento"
}
