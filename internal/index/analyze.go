package index

import "strings"

// Analyze runs the shared analysis pipeline: lowercase, split on
// non-alphanumeric boundaries, discard empty tokens, then stem each token.
// Applied identically to title and body fields, at both index time and
// query time, so postings and query terms land on the same vocabulary.
func Analyze(text string) []string {
	lowered := strings.ToLower(text)

	tokens := strings.FieldsFunc(lowered, func(r rune) bool {
		return !isAlphanumeric(r)
	})

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		out = append(out, Stem(tok))
	}
	return out
}

func isAlphanumeric(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	default:
		return false
	}
}
