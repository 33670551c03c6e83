package core

import (
	"regexp"
	"sort"
	"strings"

	"github.com/salmadev/dealer-chat/internal/utils"
	"go.uber.org/zap"
)

// template is one canned-response category. Patterns match against the
// normalized (lowercased, diacritic-stripped) message.
type template struct {
	category       string
	patterns       []*regexp.Regexp
	response       string
	baseConfidence float64
}

// TemplateMatcher answers common questions instantly without spending any
// LLM tokens. Categories are evaluated in declaration order; the first
// category with a matching pattern wins, so order encodes priority among
// overlapping patterns.
type TemplateMatcher struct {
	templates  []template
	normalizer *utils.TextNormalizer
	logger     *zap.Logger
}

// NewTemplateMatcher creates a matcher with the dealership's canned responses
func NewTemplateMatcher(normalizer *utils.TextNormalizer, logger *zap.Logger) *TemplateMatcher {
	return &TemplateMatcher{
		normalizer: normalizer,
		logger:     logger,
		templates: []template{
			{
				category: "saludos",
				patterns: compile(
					`^[¡]?(hola|hi|hello|hey|buenas|buenos dias|buenas tardes|buenas noches)[!.]*$`,
					`^[¡]?(hola|hi|hello|hey)\s*(salma|byd|chatbot)?[\s!.]*$`,
					`^[¡]?(buenos dias|buenas tardes|buenas noches)[\s!.]*$`,
				),
				baseConfidence: 0.8,
				response: `¡Hola! Soy Salma AI, tu asesora virtual BYD.

¿En que puedo ayudarte hoy? Puedo informarte sobre:
- Nuestros vehiculos electricos e hibridos
- Ubicacion y horarios del showroom
- Agendar una prueba de manejo
- Calcular tus ahorros con BYD

¡Preguntame lo que necesites!`,
			},
			{
				category: "horarios",
				patterns: compile(
					`horario|hora[s]?|abierto|cierran|atienden|que horas`,
					`a que hora|cuando abren|cuando cierran`,
					`estan abiertos|horario de atencion`,
				),
				baseConfidence: 0.8,
				response: `**Horario de Atencion - BYD Lindavista CLEBER**

Lunes a Sabado: 9:00 AM - 7:00 PM

Avenida las Americas Norte & Malaga, 67130 Guadalupe, N.L.

¡Te esperamos para conocer toda la linea BYD! ¿Te gustaria agendar una cita?`,
			},
			{
				category: "ubicacion",
				patterns: compile(
					`ubicacion|direccion|donde estan|como llegar|ubicados`,
					`showroom|sucursal|oficina|local`,
					`mapa|gps|coordenadas`,
				),
				baseConfidence: 0.8,
				response: `**BYD Lindavista CLEBER**

Direccion: Avenida las Americas Norte & Malaga, 67130 Guadalupe, N.L.
Estacionamiento gratuito disponible.

Horarios: Lunes a Sabado, 9:00 AM - 7:00 PM

¿Te gustaria agendar una cita para conocer los vehiculos en persona?`,
			},
			{
				category: "modelos",
				patterns: compile(
					`^[¿¡]?(que|cuales)\s+(modelos|vehiculos|autos|carros)\s+(tienen|hay|manejan)`,
					`^[¿¡]?(muestrame|dime)\s+(los|todos los)\s+(modelos|vehiculos)`,
					`^[¿¡]?que\s+gama\s+tienen`,
					`^ver\s+(todos\s+los\s+)?modelos`,
					`^catalogo\s+(completo|de\s+vehiculos)`,
				),
				baseConfidence: 0.9,
				response: `**LINEA COMPLETA BYD DISPONIBLE**

100% ELECTRICOS:
- **Dolphin Mini** - Compacto urbano (340-380 km autonomia)
- **Seal** - Sedan premium (460-520 km autonomia)
- **Sealion 7** - SUV familiar (542 km autonomia)
- **Yuan Pro** - SUV compacto (401 km autonomia)

HIBRIDOS ENCHUFABLES:
- **King** - Sedan ejecutivo (1,175 km autonomia total)
- **Song Plus** - SUV mediano (1,001 km autonomia total)
- **Shark** - Pickup 4x4 (840 km autonomia total)

Tecnologia Blade Battery - la bateria mas segura del mundo.

¿Cual modelo te interesa conocer mas a detalle?`,
			},
			{
				category: "comparacion",
				patterns: compile(
					`comparar|diferencia|versus|vs|mejor que|cual es mejor`,
					`ventajas|beneficios|por que|que ventaja`,
					`tesla|nissan|bmw|audi|mercedes`,
				),
				baseConfidence: 0.8,
				response: `**¿Por que elegir BYD?**

TECNOLOGIA LIDER:
- Blade Battery, la bateria mas segura del mundo
- Carga rapida: 30-80% en 30 minutos

GARANTIA INCOMPARABLE:
- 6 anos vehiculo completo, 8 anos bateria
- Red de servicio en Mexico

RESPALDO GLOBAL:
- #1 mundial en vehiculos electricos
- Mas de 20 anos de experiencia en baterias

¿Te gustaria conocer los ahorros especificos comparado con tu vehiculo actual?`,
			},
			{
				category: "despedida",
				patterns: compile(
					`gracias|thank you|te agradezco`,
					`adios|bye|hasta luego|nos vemos`,
					`ya me voy|me tengo que ir`,
				),
				baseConfidence: 0.8,
				response: `¡Gracias por tu interes en BYD!

Recuerda que puedes:
- Calcular tus ahorros: salmabydriver.com/calculatusahorros
- Visitarnos en Guadalupe, N.L.
- Escribirme cuando gustes

¡Que tengas un excelente dia y pronto manejes electrico!`,
			},
			{
				category: "contacto",
				patterns: compile(
					`telefono|celular|whatsapp|llamar|contacto`,
					`numero|llamada|comunicar|hablar con alguien`,
					`asesor|vendedor|humano`,
				),
				baseConfidence: 0.95,
				response: `**Informacion de Contacto - BYD Lindavista CLEBER**

WhatsApp: +52 81 2027 2752
Telefono: (81) 2027-2752

Avenida las Americas Norte & Malaga, 67130 Guadalupe, N.L.
Horarios: Lunes a Sabado, 9:00 AM - 7:00 PM

**¿Prefieres que un asesor humano te contacte?**
Solo comparteme tu nombre y telefono, y te llamaremos en unos minutos.

¡Tambien puedes seguir preguntandome aqui!`,
			},
			{
				category: "carga",
				patterns: compile(
					`carga|cargar|cargador|electricidad|enchufar`,
					`donde cargar|estaciones|tiempo de carga`,
					`instalacion|casa`,
				),
				baseConfidence: 0.8,
				response: `**Carga de Vehiculos BYD**

EN CASA:
- Enchufe normal (110V): carga nocturna completa
- Cargador L2 (220V): 4-8 horas carga completa

CARGA PUBLICA:
- Electrify America, CFE, Voltra
- Carga rapida DC: 30-80% en 30 minutos

La mayoria de los usuarios carga solo en casa durante la noche.

¿Tienes alguna situacion especifica de carga?`,
			},
		},
	}
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Match returns the first category whose any pattern matches the normalized
// message, or nil when nothing matches or the message is too short
func (m *TemplateMatcher) Match(message string) *TemplateMatch {
	normalized := m.normalizer.Normalize(message)
	if len(normalized) < 2 {
		return nil
	}

	for _, tpl := range m.templates {
		for _, pattern := range tpl.patterns {
			if loc := pattern.FindStringIndex(normalized); loc != nil {
				confidence := m.confidence(normalized, loc, tpl.baseConfidence)
				m.logger.Debug("Template match",
					zap.String("category", tpl.category),
					zap.Float64("confidence", confidence))
				return &TemplateMatch{
					Category:   tpl.category,
					Response:   tpl.response,
					Confidence: confidence,
				}
			}
		}
	}

	return nil
}

// confidence blends the category's base weight with how much of the message
// the match consumed, capped at 1.0
func (m *TemplateMatcher) confidence(message string, matchLoc []int, base float64) float64 {
	coverage := float64(matchLoc[1]-matchLoc[0]) / float64(len(message))
	confidence := base + coverage*0.1
	if confidence > 1.0 {
		return 1.0
	}
	return confidence
}

// Categories lists the template categories in priority order
func (m *TemplateMatcher) Categories() []string {
	out := make([]string, len(m.templates))
	for i, tpl := range m.templates {
		out[i] = tpl.category
	}
	return out
}

// FindSimilar scores every category by significant words (length > 3) shared
// between the message and the category's response text. Diagnostic only; the
// results are never used to answer.
func (m *TemplateMatcher) FindSimilar(message string) []TemplateSuggestion {
	normalized := m.normalizer.Normalize(message)
	messageWords := strings.Fields(normalized)
	if len(messageWords) == 0 {
		return nil
	}

	var suggestions []TemplateSuggestion
	for _, tpl := range m.templates {
		responseText := m.normalizer.Normalize(tpl.response)
		var common []string
		for _, word := range messageWords {
			if len(word) > 3 && strings.Contains(responseText, word) {
				common = append(common, word)
			}
		}
		if len(common) > 0 {
			suggestions = append(suggestions, TemplateSuggestion{
				Category:    tpl.category,
				Similarity:  float64(len(common)) / float64(len(messageWords)),
				CommonWords: common,
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Similarity > suggestions[j].Similarity
	})
	return suggestions
}

// TemplateStats summarizes the configured templates
type TemplateStats struct {
	TotalCategories int `json:"total_categories"`
	TotalPatterns   int `json:"total_patterns"`
}

// Stats returns template counts
func (m *TemplateMatcher) Stats() TemplateStats {
	stats := TemplateStats{TotalCategories: len(m.templates)}
	for _, tpl := range m.templates {
		stats.TotalPatterns += len(tpl.patterns)
	}
	return stats
}
