package query

import (
	"sort"

	"github.com/Trimbex/distributed-web-crawler/internal/index"
)

// Result is one ranked hit returned by Search.
type Result struct {
	URL       string
	Title     string
	Snippet   string
	Score     float64
	Host      string
	CrawlDate string
}

// Search parses queryStr, evaluates it against snap, scores the matches with
// BM25F, and returns the top max results ordered highest score first.
func Search(queryStr string, snap *index.Snapshot, max int, p Params) ([]Result, error) {
	node, err := Parse(queryStr)
	if err != nil {
		return nil, err
	}

	candidates := evaluate(node, snap)
	if len(candidates) == 0 {
		return nil, nil
	}

	terms := collectScoringTerms(node)
	scored := score(candidates, terms, snap, p)

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].URL < scored[j].URL
	})

	if max > 0 && len(scored) > max {
		scored = scored[:max]
	}

	results := make([]Result, 0, len(scored))
	for _, s := range scored {
		doc, ok := snap.Document(s.URL)
		if !ok {
			continue
		}
		results = append(results, Result{
			URL:       doc.URL,
			Title:     doc.Title,
			Snippet:   Snippet(doc.Body, terms, p),
			Score:     s.Score,
			Host:      doc.Host,
			CrawlDate: doc.CrawlTimestamp.Format("2006-01-02"),
		})
	}
	return results, nil
}
