package query

import (
	"math"

	"github.com/Trimbex/distributed-web-crawler/internal/index"
)

// Params carries the scoring and snippet tunables an IndexerConfig exposes,
// so callers can move title/body weighting or BM25 saturation without a
// code change.
type Params struct {
	TitleWeight float64
	BodyWeight  float64
	BM25K1      float64
	BM25B       float64

	SnippetMaxFragments int
	SnippetFallbackLen  int
}

// DefaultParams mirrors config.WithDefaultIndexerConfig's scoring defaults,
// for callers (tests, ad-hoc tooling) that don't thread a full IndexerConfig.
func DefaultParams() Params {
	return Params{
		TitleWeight:         3.0,
		BodyWeight:          1.0,
		BM25K1:              1.2,
		BM25B:               0.75,
		SnippetMaxFragments: 2,
		SnippetFallbackLen:  200,
	}
}

// Scored pairs a matched URL with its BM25F score.
type Scored struct {
	URL   string
	Score float64
}

// score computes a BM25F score for each candidate URL against terms, using
// idf derived from snap's corpus-wide document frequencies.
func score(candidates docSet, terms []scoringTerm, snap *index.Snapshot, p Params) []Scored {
	docCount := snap.DocCount()
	out := make([]Scored, 0, len(candidates))

	for url := range candidates {
		var total float64
		for _, t := range terms {
			if t.field == "" {
				total += fieldScore(snap, "title", t.term, url, docCount, p) * p.TitleWeight
				total += fieldScore(snap, "body", t.term, url, docCount, p) * p.BodyWeight
			} else {
				total += fieldScore(snap, t.field, t.term, url, docCount, p) * fieldWeight(t.field, p)
			}
		}
		out = append(out, Scored{URL: url, Score: total})
	}
	return out
}

func fieldWeight(field string, p Params) float64 {
	if field == "title" {
		return p.TitleWeight
	}
	return p.BodyWeight
}

// fieldScore computes the unweighted BM25 contribution of term in field for
// a single document.
func fieldScore(snap *index.Snapshot, field, term, url string, docCount int, p Params) float64 {
	docs := snap.TermDocs(field, term)
	tf := docs[url]
	if tf == 0 {
		return 0
	}

	df := len(docs)
	idf := math.Log(1 + (float64(docCount)-float64(df)+0.5)/(float64(df)+0.5))

	docLen := float64(snap.DocLen(field, url))
	avgLen := snap.AvgDocLen(field)
	if avgLen == 0 {
		avgLen = 1
	}

	numerator := float64(tf) * (p.BM25K1 + 1)
	denominator := float64(tf) + p.BM25K1*(1-p.BM25B+p.BM25B*(docLen/avgLen))
	return idf * (numerator / denominator)
}
