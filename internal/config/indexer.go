package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// IndexerConfig holds everything the indexer binary needs: where its
// on-disk segments live and the scoring parameters for search.
type IndexerConfig struct {
	bindAddr string
	dataDir  string

	titleWeight float64
	bodyWeight  float64
	bm25K1      float64
	bm25B       float64

	defaultMaxResults   int
	snippetMaxFragments int
	snippetFallbackLen  int

	persistInterval time.Duration
}

type indexerConfigDTO struct {
	BindAddr            string        `json:"bindAddr,omitempty"`
	DataDir             string        `json:"dataDir,omitempty"`
	TitleWeight         float64       `json:"titleWeight,omitempty"`
	BodyWeight          float64       `json:"bodyWeight,omitempty"`
	BM25K1              float64       `json:"bm25k1,omitempty"`
	BM25B               float64       `json:"bm25b,omitempty"`
	DefaultMaxResults   int           `json:"defaultMaxResults,omitempty"`
	SnippetMaxFragments int           `json:"snippetMaxFragments,omitempty"`
	SnippetFallbackLen  int           `json:"snippetFallbackLen,omitempty"`
	PersistInterval     time.Duration `json:"persistInterval,omitempty"`
}

// WithDefaultIndexerConfig creates an IndexerConfig with sensible defaults.
// Title is weighted above body per the field-weighted BM25F design.
func WithDefaultIndexerConfig(dataDir string) *IndexerConfig {
	return &IndexerConfig{
		bindAddr:            ":8082",
		dataDir:             dataDir,
		titleWeight:         3.0,
		bodyWeight:          1.0,
		bm25K1:              1.2,
		bm25B:               0.75,
		defaultMaxResults:   10,
		snippetMaxFragments: 2,
		snippetFallbackLen:  200,
		persistInterval:     30 * time.Second,
	}
}

func (c *IndexerConfig) WithBindAddr(addr string) *IndexerConfig {
	c.bindAddr = addr
	return c
}

func (c *IndexerConfig) WithDataDir(dir string) *IndexerConfig {
	c.dataDir = dir
	return c
}

func (c *IndexerConfig) WithTitleWeight(w float64) *IndexerConfig {
	c.titleWeight = w
	return c
}

func (c *IndexerConfig) WithBodyWeight(w float64) *IndexerConfig {
	c.bodyWeight = w
	return c
}

func (c *IndexerConfig) WithBM25Params(k1, b float64) *IndexerConfig {
	c.bm25K1 = k1
	c.bm25B = b
	return c
}

func (c *IndexerConfig) WithDefaultMaxResults(n int) *IndexerConfig {
	c.defaultMaxResults = n
	return c
}

func (c *IndexerConfig) WithSnippetMaxFragments(n int) *IndexerConfig {
	c.snippetMaxFragments = n
	return c
}

func (c *IndexerConfig) WithSnippetFallbackLen(n int) *IndexerConfig {
	c.snippetFallbackLen = n
	return c
}

func (c *IndexerConfig) WithPersistInterval(d time.Duration) *IndexerConfig {
	c.persistInterval = d
	return c
}

// Build validates the config and returns an immutable copy.
func (c *IndexerConfig) Build() (IndexerConfig, error) {
	if c.dataDir == "" {
		return IndexerConfig{}, fmt.Errorf("%w: dataDir cannot be empty", ErrInvalidConfig)
	}
	if c.titleWeight < c.bodyWeight {
		return IndexerConfig{}, fmt.Errorf("%w: titleWeight must be >= bodyWeight", ErrInvalidConfig)
	}
	return *c, nil
}

func (c IndexerConfig) BindAddr() string               { return c.bindAddr }
func (c IndexerConfig) DataDir() string                { return c.dataDir }
func (c IndexerConfig) TitleWeight() float64           { return c.titleWeight }
func (c IndexerConfig) BodyWeight() float64            { return c.bodyWeight }
func (c IndexerConfig) BM25K1() float64                { return c.bm25K1 }
func (c IndexerConfig) BM25B() float64                 { return c.bm25B }
func (c IndexerConfig) DefaultMaxResults() int         { return c.defaultMaxResults }
func (c IndexerConfig) SnippetMaxFragments() int       { return c.snippetMaxFragments }
func (c IndexerConfig) SnippetFallbackLen() int        { return c.snippetFallbackLen }
func (c IndexerConfig) PersistInterval() time.Duration { return c.persistInterval }

// WithIndexerConfigFile loads an IndexerConfig from a JSON file, layering it
// over the defaults.
func WithIndexerConfigFile(path string) (IndexerConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return IndexerConfig{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return IndexerConfig{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto indexerConfigDTO
	if err := json.Unmarshal(content, &dto); err != nil {
		return IndexerConfig{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	if dto.DataDir == "" {
		return IndexerConfig{}, fmt.Errorf("%w: dataDir cannot be empty", ErrInvalidConfig)
	}

	cfg := WithDefaultIndexerConfig(dto.DataDir)
	if dto.BindAddr != "" {
		cfg.bindAddr = dto.BindAddr
	}
	if dto.TitleWeight != 0 {
		cfg.titleWeight = dto.TitleWeight
	}
	if dto.BodyWeight != 0 {
		cfg.bodyWeight = dto.BodyWeight
	}
	if dto.BM25K1 != 0 {
		cfg.bm25K1 = dto.BM25K1
	}
	if dto.BM25B != 0 {
		cfg.bm25B = dto.BM25B
	}
	if dto.DefaultMaxResults != 0 {
		cfg.defaultMaxResults = dto.DefaultMaxResults
	}
	if dto.SnippetMaxFragments != 0 {
		cfg.snippetMaxFragments = dto.SnippetMaxFragments
	}
	if dto.SnippetFallbackLen != 0 {
		cfg.snippetFallbackLen = dto.SnippetFallbackLen
	}
	if dto.PersistInterval != 0 {
		cfg.persistInterval = dto.PersistInterval
	}

	return cfg.Build()
}
