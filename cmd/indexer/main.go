// Command indexer runs the durable inverted-index query engine: document
// ingestion, boolean+BM25F search, and snapshot persistence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Trimbex/distributed-web-crawler/internal/build"
	"github.com/Trimbex/distributed-web-crawler/internal/config"
	"github.com/Trimbex/distributed-web-crawler/internal/httpserver"
	"github.com/Trimbex/distributed-web-crawler/internal/indexserver"
	"github.com/Trimbex/distributed-web-crawler/internal/logging"
	"github.com/Trimbex/distributed-web-crawler/internal/metrics"
)

var (
	cfgFile             string
	dataDir             string
	bindAddr            string
	titleWeight         float64
	bodyWeight          float64
	bm25K1              float64
	bm25B               float64
	defaultMaxResults   int
	snippetMaxFragments int
	snippetFallbackLen  int
	persistInterval     time.Duration
	logLevel            string
)

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Durable inverted-index query engine.",
	Long: `indexer ingests extracted pages from fetchers and serves boolean
and free-text search over them, scored with field-weighted BM25F. The index
is held in memory and periodically persisted as content-hashed segments, so
a restart replays the last durable snapshot rather than starting empty.`,
	RunE: runIndexer,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (JSON)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for persisted index segments")
	rootCmd.PersistentFlags().StringVar(&bindAddr, "bind-addr", "", "address to listen on, e.g. :8082")
	rootCmd.PersistentFlags().Float64Var(&titleWeight, "title-weight", 0, "BM25F field weight for the title")
	rootCmd.PersistentFlags().Float64Var(&bodyWeight, "body-weight", 0, "BM25F field weight for the body")
	rootCmd.PersistentFlags().Float64Var(&bm25K1, "bm25-k1", 0, "BM25 term-frequency saturation parameter")
	rootCmd.PersistentFlags().Float64Var(&bm25B, "bm25-b", 0, "BM25 length-normalization parameter")
	rootCmd.PersistentFlags().IntVar(&defaultMaxResults, "default-max-results", 0, "default result count when a search omits max")
	rootCmd.PersistentFlags().IntVar(&snippetMaxFragments, "snippet-max-fragments", 0, "maximum highlighted snippet fragments per result")
	rootCmd.PersistentFlags().IntVar(&snippetFallbackLen, "snippet-fallback-len", 0, "snippet length when no term can be located")
	rootCmd.PersistentFlags().DurationVar(&persistInterval, "persist-interval", 0, "periodic index persist interval")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func buildConfig() (config.IndexerConfig, error) {
	if cfgFile != "" {
		return config.WithIndexerConfigFile(cfgFile)
	}
	if dataDir == "" {
		dataDir = "index-data"
	}

	builder := config.WithDefaultIndexerConfig(dataDir)
	if bindAddr != "" {
		builder = builder.WithBindAddr(bindAddr)
	}
	if titleWeight > 0 {
		builder = builder.WithTitleWeight(titleWeight)
	}
	if bodyWeight > 0 {
		builder = builder.WithBodyWeight(bodyWeight)
	}
	if bm25K1 > 0 || bm25B > 0 {
		k1, b := bm25K1, bm25B
		if k1 == 0 {
			k1 = 1.2
		}
		if b == 0 {
			b = 0.75
		}
		builder = builder.WithBM25Params(k1, b)
	}
	if defaultMaxResults > 0 {
		builder = builder.WithDefaultMaxResults(defaultMaxResults)
	}
	if snippetMaxFragments > 0 {
		builder = builder.WithSnippetMaxFragments(snippetMaxFragments)
	}
	if snippetFallbackLen > 0 {
		builder = builder.WithSnippetFallbackLen(snippetFallbackLen)
	}
	if persistInterval > 0 {
		builder = builder.WithPersistInterval(persistInterval)
	}
	return builder.Build()
}

func runIndexer(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("building config: %w", err)
	}

	log, err := logging.New(logging.Config{Level: logLevel})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	m := metrics.NewIndex(prometheus.DefaultRegisterer)
	s, err := indexserver.New(cfg, log, m)
	if err != nil {
		return fmt.Errorf("building index server: %w", err)
	}

	httpCfg := &httpserver.Config{
		Addr:           cfg.BindAddr(),
		ServiceName:    "indexer",
		ServiceVersion: build.FullVersion(),
	}
	server := httpserver.NewServer(httpCfg, log, s.RegisterRoutes)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })

	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
