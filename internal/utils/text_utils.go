package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TextNormalizer provides utilities for normalizing user-supplied chat text
// before pattern matching. Matching is accent-insensitive: "cotización" and
// "cotizacion" normalize to the same form.
type TextNormalizer struct {
	logger *zap.Logger
}

// NewTextNormalizer creates a new TextNormalizer
func NewTextNormalizer(logger *zap.Logger) *TextNormalizer {
	return &TextNormalizer{
		logger: logger,
	}
}

// Normalize lowercases, trims, collapses internal whitespace and strips
// diacritics. This is the canonical form used by the matchers and for
// repeated-message fingerprinting.
func (tn *TextNormalizer) Normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	collapsed := strings.Join(strings.Fields(lowered), " ")
	return tn.StripDiacritics(collapsed)
}

// StripDiacritics removes combining marks so matching does not depend on the
// user typing accents. The transform chain is built per call; a chained
// Transformer carries state and is not safe for concurrent use.
func (tn *TextNormalizer) StripDiacritics(text string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(chain, text)
	if err != nil {
		tn.logger.Debug("Failed to strip diacritics, using raw text", zap.Error(err))
		return text
	}
	return stripped
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tn *TextNormalizer) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	// Drop invalid sequences rather than inserting replacement characters
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	return string(result)
}
