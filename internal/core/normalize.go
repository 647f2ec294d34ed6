package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// newAccentStripper returns a transformer that decomposes characters and
// drops nonspacing marks, so "Código" becomes "Codigo".
// Transformers carry state, so each call builds its own chain.
func newAccentStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeHeader reduces a raw column name to a comparison token: byte-order
// marks and surrounding whitespace are removed, accents are stripped, the
// result is lowercased and everything outside [a-z0-9] is dropped.
//
//	NormalizeHeader("Código De Barras") == "codigodebarras"
//	NormalizeHeader("Precio_Detal")     == "preciodetal"
//	NormalizeHeader("  ")               == ""
func NormalizeHeader(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\ufeff", ""))
	if s == "" {
		return ""
	}

	stripped, _, err := transform.String(newAccentStripper(), s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range strings.ToLower(stripped) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
