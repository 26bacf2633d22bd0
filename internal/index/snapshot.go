package index

// postings maps a stemmed term to the set of document URLs containing it,
// each with its in-field term frequency.
type postings map[string]map[string]int

// Snapshot is an immutable, point-in-time view of the index. Readers hold
// one for the duration of a query; it is never mutated after publish, so
// concurrent queries need no lock against the writer.
type Snapshot struct {
	documents map[string]Document
	title     postings
	body      postings
	titleLen  map[string]int
	bodyLen   map[string]int
	avgTitle  float64
	avgBody   float64
}

func newEmptySnapshot() *Snapshot {
	return &Snapshot{
		documents: make(map[string]Document),
		title:     make(postings),
		body:      make(postings),
		titleLen:  make(map[string]int),
		bodyLen:   make(map[string]int),
	}
}

// Document returns the stored document for url, if indexed.
func (s *Snapshot) Document(url string) (Document, bool) {
	d, ok := s.documents[url]
	return d, ok
}

// DocCount returns the number of indexed documents.
func (s *Snapshot) DocCount() int {
	return len(s.documents)
}

// TermDocs returns the URL -> term-frequency map for term in field ("title"
// or "body"). A nil/empty result means the term has no postings.
func (s *Snapshot) TermDocs(field, term string) map[string]int {
	switch field {
	case "title":
		return s.title[term]
	case "body":
		return s.body[term]
	default:
		return nil
	}
}

// DocLen returns the token count of field for url.
func (s *Snapshot) DocLen(field, url string) int {
	switch field {
	case "title":
		return s.titleLen[url]
	case "body":
		return s.bodyLen[url]
	default:
		return 0
	}
}

// AvgDocLen returns the corpus-wide average token count for field.
func (s *Snapshot) AvgDocLen(field string) float64 {
	switch field {
	case "title":
		return s.avgTitle
	case "body":
		return s.avgBody
	default:
		return 0
	}
}

// URLs returns every indexed URL, for persistence and test introspection.
func (s *Snapshot) URLs() []string {
	out := make([]string, 0, len(s.documents))
	for u := range s.documents {
		out = append(out, u)
	}
	return out
}
