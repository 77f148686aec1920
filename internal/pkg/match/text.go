package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a string for identity comparison: unicode
// normalization, diacritics stripped, lowercased. Used for channel-name
// keys and the blacklist index, never for matcher search text; each
// matcher defines its own casing rules.
func Normalize(text string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	result, _, err := transform.String(t, text)
	if err != nil {
		result = text
	}
	return strings.ToLower(result)
}
