package core

import (
	"math/rand"
	"regexp"
	"sync"

	"github.com/salmadev/dealer-chat/internal/utils"
	"go.uber.org/zap"
)

// rebuttal is one scripted answer to an objection, tagged with the sales
// technique it applies (reframe_value, social_proof, education, ...).
type rebuttal struct {
	kind string
	text string
}

// objection is one recognized sales concern. Patterns match the normalized
// message; when a category has several rebuttal variants one is picked at
// random so repeated objections do not sound scripted.
type objection struct {
	category  string
	patterns  []*regexp.Regexp
	responses []rebuttal
	followUp  string
}

// ObjectionHandler detects and answers the classic EV-purchase objections
// before the conversation ever reaches the LLM. Categories are checked in
// declaration order and the first match wins.
type ObjectionHandler struct {
	objections []objection
	normalizer *utils.TextNormalizer
	logger     *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewObjectionHandler creates a handler. The rng is injected so tests can
// make variant selection deterministic.
func NewObjectionHandler(normalizer *utils.TextNormalizer, rng *rand.Rand, logger *zap.Logger) *ObjectionHandler {
	return &ObjectionHandler{
		normalizer: normalizer,
		rng:        rng,
		logger:     logger,
		objections: []objection{
			{
				category: "precio_alto",
				patterns: compile(
					`muy caro|esta caro|demasiado caro|precio alto|muy costoso`,
					`no me alcanza|fuera de mi presupuesto|mucho dinero`,
					`caro para|caros los`,
				),
				responses: []rebuttal{
					{kind: "reframe_value", text: `Entiendo tu punto sobre el precio. Considera esto: un BYD se paga solo con los ahorros.

- Gasolina: ahorras $3,000-4,500 pesos al mes
- Mantenimiento: 60% mas barato que un auto de gasolina
- En 5 anos el ahorro total supera los $250,000 pesos

Ademas tenemos financiamiento desde 9.9% y planes a tu medida. ¿Cuanto gastas hoy en gasolina al mes?`},
					{kind: "social_proof", text: `El precio inicial puede parecer alto, pero el costo real de tener un BYD es mucho menor que un auto de gasolina.

Cada 100 km te cuestan unos $25 pesos de electricidad contra $180 de gasolina. Con 40 km diarios ahorras mas de $2,500 al mes.

¿Te gustaria que calculemos juntos tu ahorro con tus numeros reales?`},
				},
				followUp: `¿Cuantos kilometros manejas al dia aproximadamente? Con ese dato te calculo el ahorro exacto.`,
			},
			{
				category: "autonomia",
				patterns: compile(
					`autonomia|alcance|cuantos km|cuanto dura la bateria`,
					`me quedo (tirado|botado)|rango|distancia`,
					`viajes largos|carretera|no llega`,
				),
				responses: []rebuttal{
					{kind: "education", text: `La autonomia ya no es un problema con BYD:

- Dolphin Mini: 380 km (9 dias de uso urbano tipico)
- Seal: hasta 520 km por carga
- Hibridos King y Song Plus: mas de 1,000 km combinados

El mexicano promedio maneja 40 km al dia. Hasta el modelo mas compacto te da mas de una semana sin cargar. ¿Cuantos km manejas tu al dia?`},
				},
				followUp: `Si haces viajes largos con frecuencia, los hibridos enchufables como el King te dan mas de 1,000 km sin preocuparte por cargar. ¿Los conoces?`,
			},
			{
				category: "carga",
				patterns: compile(
					`donde cargo|no hay cargadores|infraestructura`,
					`tarda mucho en cargar|tiempo de carga|enchufes`,
					`no tengo donde cargar|vivo en departamento`,
				),
				responses: []rebuttal{
					{kind: "solution", text: `¡Buena pregunta! La realidad de cargar un BYD:

- 90% de los usuarios carga en casa mientras duerme, como un celular
- Enchufe normal de 110V es suficiente para el uso diario
- Carga rapida publica: 30-80% en solo 30 minutos
- Red creciente: CFE, Electrify America y Voltra en todo Nuevo Leon

¿Tienes enchufe donde estacionas tu auto?`},
				},
				followUp: `Si no puedes cargar en casa, un hibrido enchufable funciona tambien solo con gasolina. ¿Te muestro las opciones?`,
			},
			{
				category: "comparacion",
				patterns: compile(
					`tesla es mejor|prefiero tesla|comparado con tesla`,
					`otras marcas|nissan leaf|mejor opcion`,
					`por que byd y no`,
				),
				responses: []rebuttal{
					{kind: "differentiation", text: `Excelente que compares opciones. Datos duros sobre BYD:

- #1 mundial en ventas de vehiculos electricos, por encima de Tesla
- Blade Battery: la unica bateria que pasa la prueba de perforacion
- Garantia de 6 anos auto completo y 8 anos bateria
- Precio: hasta 40% menos que un Tesla equivalente
- Servicio y refacciones aqui en Monterrey

¿Que es lo mas importante para ti en un auto electrico?`},
				},
				followUp: `¿Te gustaria manejar un BYD para comparar por ti mismo? La prueba de manejo no cuesta nada.`,
			},
			{
				category: "tiempo",
				patterns: compile(
					`lo voy a pensar|dejame pensarlo|despues vemos|luego te digo`,
					`no tengo prisa|mas adelante|el proximo ano`,
					`todavia no|aun no estoy seguro`,
				),
				responses: []rebuttal{
					{kind: "urgency", text: `Claro, es una decision importante y esta bien tomarse el tiempo.

Solo toma en cuenta que las promociones de este mes terminan pronto y los precios de la gasolina no bajan: cada mes que esperas son $3,000-4,500 pesos que se van al tanque.

¿Que informacion te ayudaria a tomar la decision con mas confianza?`},
				},
				followUp: `¿Te parece si te agendo una prueba de manejo sin compromiso? Manejar un BYD responde mas dudas que cualquier folleto.`,
			},
			{
				category: "confianza_marca",
				patterns: compile(
					`marca china|no conozco byd|es confiable|sera buena`,
					`calidad china|desconfianza|durara`,
					`quien es byd|nunca he oido`,
				),
				responses: []rebuttal{
					{kind: "credibility", text: `Es normal la duda, te comparto quien es BYD:

- Mas de 20 anos fabricando baterias, proveedor de Toyota y Apple
- #1 mundial en vehiculos electricos desde 2023
- Warren Buffett es inversionista desde 2008
- Presente en Mexico con red oficial de distribuidores y refacciones
- Garantia de 6 anos que ninguna marca tradicional iguala

¿Te gustaria visitarnos y conocer la calidad de los vehiculos en persona?`},
				},
				followUp: `La mejor forma de confiar es subirte a uno. ¿Agendamos una prueba de manejo esta semana?`,
			},
			{
				category: "financiamiento",
				patterns: compile(
					`financiamiento|credito|mensualidades|enganche`,
					`a meses|plan de pagos|como lo pago`,
					`banco|tasa de interes|arrendamiento`,
				),
				responses: []rebuttal{
					{kind: "options", text: `¡Tenemos excelentes opciones de financiamiento!

- Tasas desde 9.9% anual
- Enganche desde 10%
- Plazos de 12 a 72 meses
- Arrendamiento para empresas con beneficios fiscales
- Aceptamos tu auto actual a cuenta

Para darte numeros exactos necesito saber que modelo te interesa y el enganche aproximado que tienes en mente. ¿Cual modelo te llama la atencion?`},
				},
				followUp: `¿Te gustaria que un asesor te prepare una corrida de financiamiento personalizada? Solo necesito tu nombre y telefono.`,
			},
		},
	}
}

// Handle returns the canned rebuttal for the first objection category the
// message matches, or nil when the message raises no known objection.
func (h *ObjectionHandler) Handle(message string) *ObjectionResult {
	normalized := h.normalizer.Normalize(message)

	for _, obj := range h.objections {
		for _, pattern := range obj.patterns {
			if pattern.MatchString(normalized) {
				h.logger.Debug("Objection detected", zap.String("category", obj.category))
				picked := h.pickResponse(obj.responses)
				return &ObjectionResult{
					Detected:      true,
					ObjectionType: obj.category,
					ResponseType:  picked.kind,
					Response:      picked.text,
					FollowUp:      obj.followUp,
				}
			}
		}
	}
	return nil
}

func (h *ObjectionHandler) pickResponse(responses []rebuttal) rebuttal {
	if len(responses) == 1 {
		return responses[0]
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return responses[h.rng.Intn(len(responses))]
}

// Categories lists the recognized objection categories in priority order
func (h *ObjectionHandler) Categories() []string {
	out := make([]string, len(h.objections))
	for i, obj := range h.objections {
		out[i] = obj.category
	}
	return out
}
