package fingerprint

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// decorations are deleted outright rather than turned into word breaks so
// that "Artist's" and "Artists" collapse together.
const decorations = "\"'`‘’“”«»‹›()[]{}<>"

var leadingArticles = map[string]struct{}{
	"the": {}, "a": {}, "an": {},
	"le": {}, "la": {}, "les": {},
	"el": {}, "los": {}, "las": {},
	"il": {}, "lo": {}, "gli": {},
	"der": {}, "die": {}, "das": {},
	"het": {},
}

// Normalize applies the package normalization rules to a single free-text
// value. It never fails; input that strips down to nothing yields "".
func Normalize(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	// transform.Chain is stateful, so each call builds its own.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, value)
	if err != nil {
		folded = value
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case strings.ContainsRune(decorations, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	if len(words) > 1 {
		if _, ok := leadingArticles[words[0]]; ok {
			words = words[1:]
		}
	}
	return strings.Join(words, " ")
}
