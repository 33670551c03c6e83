package core

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Mexican phone shapes seen in real conversations: bare 10 digits,
	// 2-4-4 and 3-3-4 groupings, and the +52 country prefix.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+52\s?\d{10}`),
		regexp.MustCompile(`\b\d{3}[\s.-]\d{3}[\s.-]\d{4}\b`),
		regexp.MustCompile(`\b\d{2}[\s.-]\d{4}[\s.-]\d{4}\b`),
		regexp.MustCompile(`\b\d{10}\b`),
	}

	// Name phrasings. Capture keeps the raw casing; accented letters are
	// part of Spanish names so the classes include them. The "minombre"
	// variant covers a common missing-space typo, and the anchored pattern
	// a message that is nothing but a capitalized name.
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)me\s*llamo\s+([A-Za-zÁÉÍÓÚÑáéíóúñ]+(?:\s+[A-Za-zÁÉÍÓÚÑáéíóúñ]+)?)`),
		regexp.MustCompile(`(?i)mi\s*nombre\s*es\s+([A-Za-zÁÉÍÓÚÑáéíóúñ]+(?:\s+[A-Za-zÁÉÍÓÚÑáéíóúñ]+)?)`),
		regexp.MustCompile(`(?i)minombre\s+(?:es\s+)?([A-Za-zÁÉÍÓÚÑáéíóúñ]+(?:\s+[A-Za-zÁÉÍÓÚÑáéíóúñ]+)?)`),
		regexp.MustCompile(`(?i)\bsoy\s+([A-Za-zÁÉÍÓÚÑáéíóúñ]+(?:\s+[A-Za-zÁÉÍÓÚÑáéíóúñ]+)?)`),
		regexp.MustCompile(`(?i)nombre:\s*([A-Za-zÁÉÍÓÚÑáéíóúñ]+(?:\s+[A-Za-zÁÉÍÓÚÑáéíóúñ]+)?)`),
		regexp.MustCompile(`^([A-ZÁÉÍÓÚÑ][a-záéíóúñ]+(?:\s+[A-ZÁÉÍÓÚÑ][a-záéíóúñ]+){1,3})$`),
	}

	budgetPattern  = regexp.MustCompile(`(?i)(\d{3,}(?:[,.]\d{3})*)\s*(mil|pesos|mxn)`)
	dailyKMPattern = regexp.MustCompile(`(?i)(\d{1,4})\s*(?:km|kilometros|kilómetros)(?:\s*(?:diarios|al dia|al día|por dia|por día|diario))?`)

	// Words that start a name capture without being one: "soy un cliente",
	// greetings, and catalog models typed as standalone messages
	notNames = map[string]bool{
		"yo": true, "el": true, "la": true, "un": true, "una": true,
		"cliente": true, "interesado": true, "interesada": true,
		"de": true, "nuevo": true, "nueva": true,
		"hola": true, "buenos": true, "buenas": true, "gracias": true,
		"dolphin": true, "seal": true, "sealion": true, "king": true,
		"song": true, "yuan": true, "shark": true, "byd": true,
	}

	nonDigits = regexp.MustCompile(`\D`)
)

// EntityExtractor pulls contact data and vehicle preferences out of free-form
// Spanish messages. It works on the raw message so extracted names keep
// their accents and capitalization.
type EntityExtractor struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewEntityExtractor creates an extractor backed by the vehicle catalog
func NewEntityExtractor(catalog *Catalog, logger *zap.Logger) *EntityExtractor {
	return &EntityExtractor{catalog: catalog, logger: logger}
}

// Extract scans a single message for entities. Fields the message does not
// mention are left empty; merging across a conversation is the caller's job.
func (e *EntityExtractor) Extract(message, normalizedMessage string) ExtractedEntities {
	entities := ExtractedEntities{
		Email:         e.extractEmail(message),
		Phone:         e.extractPhone(message),
		Name:          e.extractName(message),
		Budget:        e.extractBudget(message),
		DailyKM:       e.extractDailyKM(message),
		ModelInterest: e.catalog.MentionedModel(normalizedMessage),
	}

	if !entities.Empty() {
		e.logger.Debug("Entities extracted",
			zap.Bool("has_name", entities.Name != ""),
			zap.Bool("has_phone", entities.Phone != ""),
			zap.Bool("has_email", entities.Email != ""),
			zap.String("model_interest", entities.ModelInterest))
	}
	return entities
}

func (e *EntityExtractor) extractEmail(message string) string {
	return emailPattern.FindString(message)
}

// extractPhone normalizes whatever shape matched down to the 10 significant
// digits, dropping a leading 52 country code. Anything that does not reduce
// to exactly 10 digits is discarded.
func (e *EntityExtractor) extractPhone(message string) string {
	for _, pattern := range phonePatterns {
		match := pattern.FindString(message)
		if match == "" {
			continue
		}
		digits := nonDigits.ReplaceAllString(match, "")
		if len(digits) == 12 && strings.HasPrefix(digits, "52") {
			digits = digits[2:]
		}
		if len(digits) == 10 {
			return digits
		}
	}
	return ""
}

func (e *EntityExtractor) extractName(message string) string {
	trimmed := strings.TrimSpace(message)
	for _, pattern := range namePatterns {
		match := pattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		candidate := strings.TrimSpace(match[1])
		first := strings.ToLower(strings.Fields(candidate)[0])
		if notNames[first] {
			continue
		}
		return capitalizeWords(candidate)
	}
	return ""
}

// extractBudget returns the budget in pesos. "300 mil" means 300,000; a bare
// "450000 pesos" is already absolute.
func (e *EntityExtractor) extractBudget(message string) int {
	match := budgetPattern.FindStringSubmatch(message)
	if match == nil {
		return 0
	}
	raw := strings.NewReplacer(",", "", ".", "").Replace(match[1])
	amount, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	if strings.EqualFold(match[2], "mil") {
		amount *= 1000
	}
	return amount
}

func (e *EntityExtractor) extractDailyKM(message string) int {
	match := dailyKMPattern.FindStringSubmatch(message)
	if match == nil {
		return 0
	}
	km, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return km
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
