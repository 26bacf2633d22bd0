// Package indexserver implements the HTTP surface for the durable
// inverted-index query engine: document ingestion, boolean/BM25F search,
// and status reporting. It wraps internal/index and internal/query the way
// internal/coordinator wraps internal/frontier.
package indexserver

import (
	"time"

	"github.com/Trimbex/distributed-web-crawler/internal/config"
	"github.com/Trimbex/distributed-web-crawler/internal/index"
	"github.com/Trimbex/distributed-web-crawler/internal/logging"
	"github.com/Trimbex/distributed-web-crawler/internal/metrics"
	"github.com/Trimbex/distributed-web-crawler/internal/query"
)

// Server owns the index and everything needed to serve the three
// query-engine endpoints.
type Server struct {
	cfg     config.IndexerConfig
	idx     *index.Index
	log     logging.Logger
	metrics *metrics.Index

	startedAt time.Time
}

// New constructs a Server, loading any persisted index data from
// cfg.DataDir. A missing or empty data directory yields a fresh, empty
// index rather than an error.
func New(cfg config.IndexerConfig, log logging.Logger, m *metrics.Index) (*Server, error) {
	idx, err := index.Load(cfg.DataDir())
	if err != nil {
		log.Warn("discarding unreadable index data, starting empty", logging.Err(err))
		idx = index.New()
	} else {
		log.Info("loaded index data", logging.String("dir", cfg.DataDir()), logging.Int("documents", idx.Snapshot().DocCount()))
	}

	return &Server{
		cfg:       cfg,
		idx:       idx,
		log:       log,
		metrics:   m,
		startedAt: time.Now(),
	}, nil
}

// scoringParams builds the query.Params this server scores and snippets
// with, sourced from its IndexerConfig.
func (s *Server) scoringParams() query.Params {
	return query.Params{
		TitleWeight:         s.cfg.TitleWeight(),
		BodyWeight:          s.cfg.BodyWeight(),
		BM25K1:              s.cfg.BM25K1(),
		BM25B:               s.cfg.BM25B(),
		SnippetMaxFragments: s.cfg.SnippetMaxFragments(),
		SnippetFallbackLen:  s.cfg.SnippetFallbackLen(),
	}
}

// PersistNow writes the current index to cfg.DataDir immediately, outside
// the periodic persist loop. Exported for callers (including tests) that
// need a synchronous persist without running Run.
func (s *Server) PersistNow() error {
	return s.idx.Persist(s.cfg.DataDir())
}
