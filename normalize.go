package glottoguess

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, removes combining marks, and recomposes to
// NFC, so that "français" and "francais" normalize identically.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName canonicalizes a language name for comparison: diacritics are
// folded, case is lowered, punctuation is dropped, and whitespace is trimmed
// and collapsed. The function is deterministic and idempotent.
func normalizeName(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Invalid UTF-8 sequences pass through unfolded; lowercase and
		// whitespace handling below still apply.
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))

	space := false
	for _, r := range strings.TrimSpace(folded) {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// Punctuation separates tokens, so "Sino-Tibetan" and
			// "Sino Tibetan" normalize identically. Symbol runes such
			// as the "|" in click-language names get the same treatment.
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
