// Command coordinator runs the crawl control plane: URL admission, the
// in-flight lease table, worker liveness, and the seed-submission API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Trimbex/distributed-web-crawler/internal/build"
	"github.com/Trimbex/distributed-web-crawler/internal/config"
	"github.com/Trimbex/distributed-web-crawler/internal/coordinator"
	"github.com/Trimbex/distributed-web-crawler/internal/httpserver"
	"github.com/Trimbex/distributed-web-crawler/internal/logging"
	"github.com/Trimbex/distributed-web-crawler/internal/metrics"
)

var (
	cfgFile             string
	seedURLs            []string
	bindAddr            string
	maxDepth            int
	maxPages            int
	heartbeatTimeout    time.Duration
	sweepInterval       time.Duration
	leaseTimeout        time.Duration
	maxAttempts         int
	snapshotPath        string
	snapshotInterval    time.Duration
	shutdownGracePeriod time.Duration
	transportKind       string
	redisAddr           string
	logLevel            string
)

var rootCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Crawl control plane: frontier, lease dispatch, and worker liveness.",
	Long: `coordinator serves the six control-plane endpoints a fetcher fleet
polls against: seed submission, task assignment, result reporting, and
heartbeats. It owns the one piece of shared mutable state in the system,
the frontier, and persists it periodically so a restart only loses
in-flight leases, not crawl progress.`,
	RunE: runCoordinator,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (JSON)")
	rootCmd.PersistentFlags().StringArrayVar(&seedURLs, "seed-url", []string{}, "one or more starting URLs (can be repeated)")
	rootCmd.PersistentFlags().StringVar(&bindAddr, "bind-addr", "", "address to listen on, e.g. :8080")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "maximum URL depth admitted to the frontier (seeds and extracted links are both admitted at depth 0)")
	rootCmd.PersistentFlags().IntVar(&maxPages, "max-pages", 0, "maximum number of pages to admit (0 for unlimited)")
	rootCmd.PersistentFlags().DurationVar(&heartbeatTimeout, "heartbeat-timeout", 0, "worker liveness timeout")
	rootCmd.PersistentFlags().DurationVar(&sweepInterval, "sweep-interval", 0, "lease-expiry sweep interval")
	rootCmd.PersistentFlags().DurationVar(&leaseTimeout, "lease-timeout", 0, "dispatched-lease deadline")
	rootCmd.PersistentFlags().IntVar(&maxAttempts, "max-attempts", 0, "max dispatch attempts before a URL is permanently failed")
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot-path", "", "durable frontier snapshot file path")
	rootCmd.PersistentFlags().DurationVar(&snapshotInterval, "snapshot-interval", 0, "frontier snapshot interval")
	rootCmd.PersistentFlags().DurationVar(&shutdownGracePeriod, "shutdown-grace-period", 0, "shutdown grace period (stored in the config; shutdown does not wait for in-flight leases)")
	rootCmd.PersistentFlags().StringVar(&transportKind, "transport-kind", "", "pending-seed buffer backend: inprocess (default) or redis")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "redis address, required when transport-kind=redis")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func buildConfig() (config.CoordinatorConfig, error) {
	if cfgFile != "" {
		return config.WithCoordinatorConfigFile(cfgFile)
	}

	builder := config.WithDefaultCoordinatorConfig(seedURLs)
	if bindAddr != "" {
		builder = builder.WithBindAddr(bindAddr)
	}
	if maxDepth > 0 {
		builder = builder.WithMaxDepth(maxDepth)
	}
	if maxPages > 0 {
		builder = builder.WithMaxPages(maxPages)
	}
	if heartbeatTimeout > 0 {
		builder = builder.WithHeartbeatTimeout(heartbeatTimeout)
	}
	if sweepInterval > 0 {
		builder = builder.WithSweepInterval(sweepInterval)
	}
	if leaseTimeout > 0 {
		builder = builder.WithLeaseTimeout(leaseTimeout)
	}
	if maxAttempts > 0 {
		builder = builder.WithMaxAttempts(maxAttempts)
	}
	if snapshotPath != "" {
		builder = builder.WithSnapshotPath(snapshotPath)
	}
	if snapshotInterval > 0 {
		builder = builder.WithSnapshotInterval(snapshotInterval)
	}
	if shutdownGracePeriod > 0 {
		builder = builder.WithShutdownGracePeriod(shutdownGracePeriod)
	}
	if transportKind != "" {
		builder = builder.WithTransportKind(transportKind)
	}
	if redisAddr != "" {
		builder = builder.WithRedisAddr(redisAddr)
	}
	return builder.Build()
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("building config: %w", err)
	}

	log, err := logging.New(logging.Config{Level: logLevel})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	m := metrics.NewCoordinator(prometheus.DefaultRegisterer)
	c := coordinator.New(cfg, log, m)

	httpCfg := &httpserver.Config{
		Addr:           cfg.BindAddr(),
		ServiceName:    "coordinator",
		ServiceVersion: build.FullVersion(),
	}
	server := httpserver.NewServer(httpCfg, log, c.RegisterRoutes)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("coordinator stopped", logging.String("seeds", strings.Join(cfg.SeedURLs(), ",")))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
