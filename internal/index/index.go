// Package index implements the durable inverted-index query engine: schema,
// the shared analysis pipeline, posting lists, document storage, and
// MVCC-style snapshot publishing so queries never block on the writer.
package index

import (
	"sync"
	"sync/atomic"
	"time"
)

// Index owns one logical document collection. Writes are serialized by a
// single mutex; each committed upsert publishes a brand new *Snapshot via
// an atomic pointer, so readers never see a partially-written document and
// never block behind the writer.
type Index struct {
	writerMu sync.Mutex
	current  atomic.Pointer[Snapshot]

	documentsIndexed  atomic.Int64
	searchesPerformed atomic.Int64

	lastUpsertMu sync.Mutex
	lastUpsert   time.Time
}

// New creates an empty index.
func New() *Index {
	idx := &Index{}
	idx.current.Store(newEmptySnapshot())
	return idx
}

// Snapshot returns the current immutable snapshot for queries.
func (idx *Index) Snapshot() *Snapshot {
	return idx.current.Load()
}

// Upsert indexes doc, replacing any prior version of the same URL. The
// writer lock is held only while building and publishing the new snapshot;
// concurrent readers holding the previous snapshot are unaffected.
func (idx *Index) Upsert(doc Document) error {
	idx.writerMu.Lock()
	defer idx.writerMu.Unlock()

	prev := idx.current.Load()
	next := cloneSnapshot(prev)

	if old, ok := next.documents[doc.URL]; ok {
		removePostings(next.title, doc.URL, Analyze(old.Title))
		removePostings(next.body, doc.URL, Analyze(old.Body))
	}

	titleTerms := Analyze(doc.Title)
	bodyTerms := Analyze(doc.Body)

	addPostings(next.title, doc.URL, titleTerms)
	addPostings(next.body, doc.URL, bodyTerms)
	next.titleLen[doc.URL] = len(titleTerms)
	next.bodyLen[doc.URL] = len(bodyTerms)
	next.documents[doc.URL] = doc

	next.avgTitle = averageLen(next.titleLen)
	next.avgBody = averageLen(next.bodyLen)

	idx.current.Store(next)
	idx.documentsIndexed.Add(1)

	idx.lastUpsertMu.Lock()
	idx.lastUpsert = time.Now()
	idx.lastUpsertMu.Unlock()

	return nil
}

// RecordSearch increments the searches-performed counter. Called by the
// query layer once per evaluated query.
func (idx *Index) RecordSearch() {
	idx.searchesPerformed.Add(1)
}

// Stats is the lazily-computed point-in-time statistics block for /status.
type Stats struct {
	DocumentsIndexed  int64
	DocumentCount     int
	SearchesPerformed int64
	LastUpsert        time.Time
}

// Stats computes the current statistics block. DocumentCount reflects the
// snapshot's live document count, which can be lower than DocumentsIndexed
// if the same URL was upserted more than once.
func (idx *Index) Stats() Stats {
	idx.lastUpsertMu.Lock()
	last := idx.lastUpsert
	idx.lastUpsertMu.Unlock()

	return Stats{
		DocumentsIndexed:  idx.documentsIndexed.Load(),
		DocumentCount:     idx.Snapshot().DocCount(),
		SearchesPerformed: idx.searchesPerformed.Load(),
		LastUpsert:        last,
	}
}

func cloneSnapshot(s *Snapshot) *Snapshot {
	next := &Snapshot{
		documents: make(map[string]Document, len(s.documents)),
		title:     clonePostings(s.title),
		body:      clonePostings(s.body),
		titleLen:  make(map[string]int, len(s.titleLen)),
		bodyLen:   make(map[string]int, len(s.bodyLen)),
		avgTitle:  s.avgTitle,
		avgBody:   s.avgBody,
	}
	for k, v := range s.documents {
		next.documents[k] = v
	}
	for k, v := range s.titleLen {
		next.titleLen[k] = v
	}
	for k, v := range s.bodyLen {
		next.bodyLen[k] = v
	}
	return next
}

func clonePostings(p postings) postings {
	out := make(postings, len(p))
	for term, docs := range p {
		inner := make(map[string]int, len(docs))
		for url, freq := range docs {
			inner[url] = freq
		}
		out[term] = inner
	}
	return out
}

func removePostings(p postings, url string, terms []string) {
	for _, term := range terms {
		docs, ok := p[term]
		if !ok {
			continue
		}
		delete(docs, url)
		if len(docs) == 0 {
			delete(p, term)
		}
	}
}

func addPostings(p postings, url string, terms []string) {
	for _, term := range terms {
		docs, ok := p[term]
		if !ok {
			docs = make(map[string]int)
			p[term] = docs
		}
		docs[url]++
	}
}

func averageLen(lens map[string]int) float64 {
	if len(lens) == 0 {
		return 0
	}
	total := 0
	for _, l := range lens {
		total += l
	}
	return float64(total) / float64(len(lens))
}
