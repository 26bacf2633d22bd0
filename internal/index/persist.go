package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Trimbex/distributed-web-crawler/pkg/fileutil"
	"github.com/Trimbex/distributed-web-crawler/pkg/hashutil"
)

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// analyzerVersion is bumped whenever the analysis pipeline (tokenizer or
// stemmer) changes in a way that would make an old segment's postings
// inconsistent with a freshly-analyzed document. A manifest from a newer
// version than this binary understands is rejected rather than silently
// misread.
const analyzerVersion = 1

type manifestDTO struct {
	Version         int      `json:"version"`
	AnalyzerVersion int      `json:"analyzerVersion"`
	Fields          []string `json:"fields"`
	Segment         string   `json:"segment"`
	SegmentHash     string   `json:"segmentHash"`
}

type segmentDTO struct {
	Documents []documentDTO `json:"documents"`
}

type documentDTO struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Host           string `json:"host"`
	CrawlTimestamp int64  `json:"crawlTimestamp"`
}

// Persist writes every document currently in the index to dir as a single
// content-hashed segment file plus a manifest, using a temp-file-then-
// rename write so a crash mid-persist never leaves a corrupt data
// directory. The directory is self-describing: Load needs nothing but dir.
func (idx *Index) Persist(dir string) error {
	snap := idx.Snapshot()

	docs := make([]documentDTO, 0, snap.DocCount())
	for _, url := range snap.URLs() {
		doc, _ := snap.Document(url)
		docs = append(docs, documentDTO{
			URL:            doc.URL,
			Title:          doc.Title,
			Body:           doc.Body,
			Host:           doc.Host,
			CrawlTimestamp: doc.CrawlTimestamp.Unix(),
		})
	}

	segmentData, err := json.Marshal(segmentDTO{Documents: docs})
	if err != nil {
		return err
	}

	hash, err := hashutil.HashBytes(segmentData, hashutil.HashAlgoBLAKE3)
	if err != nil {
		return err
	}
	segmentName := "segment-" + hash[:16] + ".json"

	if classified := fileutil.WriteAtomic(filepath.Join(dir, segmentName), segmentData); classified != nil {
		return classified
	}

	manifest := manifestDTO{
		Version:         1,
		AnalyzerVersion: analyzerVersion,
		Fields:          []string{"url", "title", "body", "host", "crawl_timestamp"},
		Segment:         segmentName,
		SegmentHash:     hash,
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if classified := fileutil.WriteAtomic(filepath.Join(dir, "manifest.json"), manifestData); classified != nil {
		return classified
	}
	return nil
}

// Load rebuilds an Index from a data directory written by Persist. Every
// document is replayed through Upsert, so postings, field lengths, and
// averages are rebuilt exactly as a live index would compute them rather
// than trusting stored derived state.
func Load(dir string) (*Index, error) {
	manifestData, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, err
	}

	var manifest manifestDTO
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, err
	}
	if manifest.AnalyzerVersion > analyzerVersion {
		return nil, fmt.Errorf("index: manifest analyzer version %d is newer than supported version %d", manifest.AnalyzerVersion, analyzerVersion)
	}

	segmentData, err := os.ReadFile(filepath.Join(dir, manifest.Segment))
	if err != nil {
		return nil, err
	}

	hash, err := hashutil.HashBytes(segmentData, hashutil.HashAlgoBLAKE3)
	if err != nil {
		return nil, err
	}
	if hash != manifest.SegmentHash {
		return nil, &CorruptSegmentError{Path: manifest.Segment}
	}

	var segment segmentDTO
	if err := json.Unmarshal(segmentData, &segment); err != nil {
		return nil, err
	}

	idx := New()
	for _, d := range segment.Documents {
		doc := Document{
			URL:   d.URL,
			Title: d.Title,
			Body:  d.Body,
			Host:  d.Host,
		}
		if d.CrawlTimestamp != 0 {
			doc.CrawlTimestamp = unixTime(d.CrawlTimestamp)
		}
		if err := idx.Upsert(doc); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// DirSize sums the byte size of every regular file directly inside dir
// (manifest plus segments), for reporting approximate on-disk index size.
// A missing directory reports zero rather than an error, matching Load's
// treatment of a not-yet-persisted index.
func DirSize(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// CorruptSegmentError reports a segment file whose content hash no longer
// matches the manifest — the data directory was modified or truncated
// outside of Persist.
type CorruptSegmentError struct {
	Path string
}

func (e *CorruptSegmentError) Error() string {
	return "index: corrupt segment " + e.Path + ": hash mismatch"
}
