package query

import "github.com/Trimbex/distributed-web-crawler/internal/index"

type docSet map[string]struct{}

func union(a, b docSet) docSet {
	out := make(docSet, len(a)+len(b))
	for u := range a {
		out[u] = struct{}{}
	}
	for u := range b {
		out[u] = struct{}{}
	}
	return out
}

func intersect(a, b docSet) docSet {
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	out := make(docSet, len(small))
	for u := range small {
		if _, ok := big[u]; ok {
			out[u] = struct{}{}
		}
	}
	return out
}

func subtract(a, b docSet) docSet {
	out := make(docSet, len(a))
	for u := range a {
		if _, ok := b[u]; !ok {
			out[u] = struct{}{}
		}
	}
	return out
}

// evaluate walks the AST and returns the set of URLs matching it.
func evaluate(node Node, snap *index.Snapshot) docSet {
	switch n := node.(type) {
	case Term:
		term := index.Stem(n.Text)
		return union(docsWithTerm(snap, "title", term), docsWithTerm(snap, "body", term))
	case FieldTerm:
		return docsWithTerm(snap, n.Field, index.Stem(n.Text))
	case And:
		return intersect(evaluate(n.Left, snap), evaluate(n.Right, snap))
	case Or:
		return union(evaluate(n.Left, snap), evaluate(n.Right, snap))
	case Not:
		return subtract(evaluate(n.Left, snap), evaluate(n.Right, snap))
	default:
		return docSet{}
	}
}

func docsWithTerm(snap *index.Snapshot, field, term string) docSet {
	docs := snap.TermDocs(field, term)
	out := make(docSet, len(docs))
	for url := range docs {
		out[url] = struct{}{}
	}
	return out
}

// scoringTerm is one (field, stemmed term) pair that should contribute to
// BM25F scoring. field is "" for a bare Term, meaning both title and body.
type scoringTerm struct {
	field string
	term  string
}

// collectScoringTerms gathers every positively-matched leaf term in node,
// skipping terms that only appear on the excluded side of a Not — they
// narrow the result set but should not inflate its score.
func collectScoringTerms(node Node) []scoringTerm {
	var terms []scoringTerm
	var walk func(n Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case Term:
			terms = append(terms, scoringTerm{term: index.Stem(v.Text)})
		case FieldTerm:
			terms = append(terms, scoringTerm{field: v.Field, term: index.Stem(v.Text)})
		case And:
			walk(v.Left)
			walk(v.Right)
		case Or:
			walk(v.Left)
			walk(v.Right)
		case Not:
			walk(v.Left)
		}
	}
	walk(node)
	return terms
}
