package query

import (
	"strings"

	"github.com/Trimbex/distributed-web-crawler/internal/index"
)

const snippetRadius = 60

// Snippet builds a highlighted excerpt of body around occurrences of the
// query's scoring terms, joining up to p.SnippetMaxFragments fragments with
// an ellipsis. If no term can be located in body, it falls back to the
// first p.SnippetFallbackLen characters.
func Snippet(body string, terms []scoringTerm, p Params) string {
	if body == "" {
		return ""
	}

	lowered := strings.ToLower(body)
	needles := make([]string, 0, len(terms))
	for _, t := range terms {
		if t.field == "" || t.field == "body" {
			needles = append(needles, t.term)
		}
	}

	var fragments []string
	used := make([]bool, len(body))

	for _, term := range needles {
		if len(fragments) >= p.SnippetMaxFragments {
			break
		}
		idx := locateStem(lowered, term)
		if idx < 0 {
			continue
		}
		if overlapsUsed(used, idx) {
			continue
		}
		start := idx - snippetRadius
		if start < 0 {
			start = 0
		}
		end := idx + snippetRadius
		if end > len(body) {
			end = len(body)
		}
		markUsed(used, start, end)
		fragments = append(fragments, strings.TrimSpace(body[start:end]))
	}

	if len(fragments) == 0 {
		end := p.SnippetFallbackLen
		if end > len(body) {
			end = len(body)
		}
		return strings.TrimSpace(body[:end])
	}

	return strings.Join(fragments, " … ")
}

func overlapsUsed(used []bool, idx int) bool {
	if idx < 0 || idx >= len(used) {
		return false
	}
	return used[idx]
}

func markUsed(used []bool, start, end int) {
	for i := start; i < end && i < len(used); i++ {
		used[i] = true
	}
}

// locateStem finds the first word in lowered whose stemmed form equals term,
// returning its byte offset, or -1 if none is found.
func locateStem(lowered, term string) int {
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !isWordRune(r)
	})
	for _, f := range fields {
		if index.Stem(f) != term {
			continue
		}
		if idx := strings.Index(lowered, f); idx >= 0 {
			return idx
		}
	}
	return -1
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
