// Command fetcher runs a fetch worker: it polls the coordinator for leases,
// fetches pages under robots.txt and per-host pacing, extracts their text
// and links, pushes extracted content to the indexer, and reports results
// back to the coordinator.
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
	"github.com/Trimbex/distributed-web-crawler/internal/fetcher"
	"github.com/Trimbex/distributed-web-crawler/internal/httpserver"
	"github.com/Trimbex/distributed-web-crawler/internal/logging"
	"github.com/Trimbex/distributed-web-crawler/internal/metrics"
)

var (
	cfgFile           string
	coordinatorURL    string
	indexerURL        string
	bindAddr          string
	workerID          string
	userAgent         string
	concurrency       int
	baseDelay         time.Duration
	jitter            time.Duration
	timeout           time.Duration
	maxAttempt        int
	heartbeatInterval time.Duration
	pollEmptyDelay    time.Duration
	pollMaxBackoff    time.Duration
	logLevel          string
)

var rootCmd = &cobra.Command{
	Use:   "fetcher",
	Short: "Fetch worker: polls the coordinator and pushes pages to the indexer.",
	Long: `fetcher is one replica of the fetch pipeline. It never stores any
state of its own: every URL it works on comes from the coordinator's
assign_task endpoint, and every outcome is reported back via
submit_result. Many fetcher processes can run against the same
coordinator at once, each with its own worker id.`,
	RunE: runFetcher,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (JSON)")
	rootCmd.PersistentFlags().StringVar(&coordinatorURL, "coordinator-url", "", "coordinator base URL, e.g. http://localhost:8081")
	rootCmd.PersistentFlags().StringVar(&indexerURL, "indexer-url", "", "indexer base URL, e.g. http://localhost:8082")
	rootCmd.PersistentFlags().StringVar(&bindAddr, "bind-addr", "", "address to serve /healthz and /metrics on")
	rootCmd.PersistentFlags().StringVar(&workerID, "worker-id", "", "worker identity sent with every heartbeat and lease (defaults to hostname-pid)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "number of concurrent fetch goroutines")
	rootCmd.PersistentFlags().DurationVar(&baseDelay, "base-delay", 0, "base per-host delay between fetches")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to the per-host delay")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "HTTP request timeout")
	rootCmd.PersistentFlags().IntVar(&maxAttempt, "max-attempt", 0, "max attempts to deliver a fetched page to the indexer")
	rootCmd.PersistentFlags().DurationVar(&heartbeatInterval, "heartbeat-interval", 0, "heartbeat send interval")
	rootCmd.PersistentFlags().DurationVar(&pollEmptyDelay, "poll-empty-delay", 0, "delay before re-polling after a no-task response")
	rootCmd.PersistentFlags().DurationVar(&pollMaxBackoff, "poll-max-backoff", 0, "cap on the empty-poll backoff")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func buildConfig() (config.FetcherConfig, error) {
	if cfgFile != "" {
		return config.WithFetcherConfigFile(cfgFile)
	}
	if coordinatorURL == "" {
		coordinatorURL = "http://localhost:8081"
	}

	builder := config.WithDefaultFetcherConfig(coordinatorURL)
	if indexerURL != "" {
		builder = builder.WithIndexerURL(indexerURL)
	}
	if bindAddr != "" {
		builder = builder.WithBindAddr(bindAddr)
	}
	if workerID == "" {
		host, _ := os.Hostname()
		workerID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	builder = builder.WithWorkerID(workerID)
	if userAgent != "" {
		builder = builder.WithUserAgent(userAgent)
	}
	if concurrency > 0 {
		builder = builder.WithConcurrency(concurrency)
	}
	if baseDelay > 0 {
		builder = builder.WithBaseDelay(baseDelay)
	}
	if jitter > 0 {
		builder = builder.WithJitter(jitter)
	}
	if timeout > 0 {
		builder = builder.WithTimeout(timeout)
	}
	if maxAttempt > 0 {
		builder = builder.WithMaxAttempt(maxAttempt)
	}
	if heartbeatInterval > 0 {
		builder = builder.WithHeartbeatInterval(heartbeatInterval)
	}
	if pollEmptyDelay > 0 {
		builder = builder.WithPollEmptyDelay(pollEmptyDelay)
	}
	if pollMaxBackoff > 0 {
		builder = builder.WithPollMaxBackoff(pollMaxBackoff)
	}
	return builder.Build()
}

func runFetcher(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("building config: %w", err)
	}

	log, err := logging.New(logging.Config{Level: logLevel})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	m := metrics.NewFetcher(prometheus.DefaultRegisterer)
	w := fetcher.NewWorker(cfg, log, m)

	httpCfg := &httpserver.Config{
		Addr:           cfg.BindAddr(),
		ServiceName:    "fetcher",
		ServiceVersion: build.FullVersion(),
	}
	server := httpserver.NewServer(httpCfg, log, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting fetcher", logging.String("worker_id", cfg.WorkerID()), logging.String("coordinator_url", cfg.CoordinatorURL()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })

	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
