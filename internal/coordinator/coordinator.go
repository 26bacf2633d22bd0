// Package coordinator implements the distributed crawl control plane: URL
// admission, lease-based dispatch to fetcher workers, lease expiry, and
// state persistence. It wraps internal/frontier with the HTTP wire contract
// and the supervised background loops (sweeper, snapshot, pending-seed
// drain) the control plane runs for the lifetime of the process.
package coordinator

import (
	"bufio"
	"context"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Trimbex/distributed-web-crawler/internal/config"
	"github.com/Trimbex/distributed-web-crawler/internal/frontier"
	"github.com/Trimbex/distributed-web-crawler/internal/logging"
	"github.com/Trimbex/distributed-web-crawler/internal/metrics"
	"github.com/Trimbex/distributed-web-crawler/internal/transport"
)

// pendingSeedKey names the Redis list the pending-seed transport uses when
// cfg.TransportKind() selects "redis".
const pendingSeedKey = "crawler:pending-seeds"

// Coordinator owns the frontier and everything needed to serve the six
// control-plane endpoints.
type Coordinator struct {
	cfg      config.CoordinatorConfig
	frontier *frontier.CrawlFrontier
	log      logging.Logger
	metrics  *metrics.Coordinator

	startedAt time.Time

	// IndexerReachable reports whether the downstream ingestion target is
	// currently reachable. Seeds submitted while it returns false are
	// buffered to the pending-seed log instead of rejected. Defaults to
	// always-reachable; set by callers that wire a real health check.
	IndexerReachable func() bool

	pendingMu   sync.Mutex
	pendingPath string

	// pendingTransport, when non-nil, backs the pending-seed buffer with an
	// external queue (selected by cfg.TransportKind()) instead of the local
	// pending-seed log file, so buffered seeds survive a lost Coordinator
	// container rather than just a process restart on the same disk.
	pendingTransport transport.TaskTransport
}

// New constructs a Coordinator, restoring frontier state from cfg's
// snapshot path if present, and admitting cfg's configured seed URLs.
func New(cfg config.CoordinatorConfig, log logging.Logger, m *metrics.Coordinator) *Coordinator {
	f := frontier.NewCrawlFrontier()
	f.Init(frontier.FrontierOptions{
		MaxDepth:    cfg.MaxDepth(),
		MaxPages:    cfg.MaxPages(),
		MaxAttempts: cfg.MaxAttempts(),
	})

	if data, err := os.ReadFile(cfg.SnapshotPath()); err == nil {
		if loadErr := f.LoadSnapshot(data); loadErr != nil {
			log.Warn("discarding corrupt snapshot", logging.String("path", cfg.SnapshotPath()), logging.Err(loadErr))
		} else {
			log.Info("restored frontier from snapshot", logging.String("path", cfg.SnapshotPath()))
		}
	}

	c := &Coordinator{
		cfg:              cfg,
		frontier:         f,
		log:              log,
		metrics:          m,
		startedAt:        time.Now(),
		IndexerReachable: func() bool { return true },
		pendingPath:      cfg.PendingSeedLogPath(),
	}

	if cfg.TransportKind() == "redis" && cfg.RedisAddr() != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
		c.pendingTransport = transport.NewRedis(client, pendingSeedKey)
		log.Info("pending-seed buffer backed by redis", logging.String("addr", cfg.RedisAddr()))
	}

	for _, raw := range cfg.SeedURLs() {
		c.admitSeed(raw)
	}

	return c
}

// admitSeed parses and admits a single seed URL, returning false if the URL
// is malformed. Only http/https schemes are accepted.
func (c *Coordinator) admitSeed(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	candidate := frontier.NewCrawlAdmissionCandidate(*u, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil))
	c.frontier.Submit(candidate)
	return true
}

// submitSeedOrBuffer admits the seed immediately if the downstream ingestion
// target is reachable, otherwise appends it to the pending-seed log for the
// drain loop to retry. Either path reports "accepted" to the caller.
func (c *Coordinator) submitSeedOrBuffer(raw string) bool {
	if !c.admitSeedValid(raw) {
		return false
	}

	if c.IndexerReachable() {
		c.admitSeed(raw)
		return true
	}

	c.appendPending(raw)
	return true
}

func (c *Coordinator) admitSeedValid(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (c *Coordinator) appendPending(raw string) {
	if c.pendingTransport != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.pendingTransport.Push(ctx, transport.Item{URL: raw}); err != nil {
			c.log.Error("failed to push pending seed to transport", logging.Err(err))
		}
		return
	}

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	f, err := os.OpenFile(c.pendingPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		c.log.Error("failed to append pending seed", logging.Err(err))
		return
	}
	defer f.Close()
	if _, err := f.WriteString(raw + "\n"); err != nil {
		c.log.Error("failed to write pending seed", logging.Err(err))
	}
}

// drainPending re-submits every URL in the pending-seed log and truncates
// it. Called by the pending-seed retry loop once the downstream ingestion
// target becomes reachable again.
func (c *Coordinator) drainPending() {
	if c.pendingTransport != nil {
		c.drainPendingTransport()
		return
	}

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	data, err := os.ReadFile(c.pendingPath)
	if err != nil {
		return
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.admitSeed(line)
		count++
	}
	if count > 0 {
		c.log.Info("drained pending seed log", logging.Int("count", count))
	}
	os.Remove(c.pendingPath)
}

// drainPendingTransport pops every seed buffered in the Redis-backed
// pending transport and admits it. Pop uses a short timeout per call and
// stops once the queue reports empty, so a quiet queue never blocks the
// retry loop that calls drainPending on a ticker.
func (c *Coordinator) drainPendingTransport() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count := 0
	for {
		item, ok, err := c.pendingTransport.Pop(ctx, 100*time.Millisecond)
		if err != nil {
			c.log.Warn("failed to pop pending seed from transport", logging.Err(err))
			return
		}
		if !ok {
			break
		}
		c.admitSeed(item.URL)
		count++
	}
	if count > 0 {
		c.log.Info("drained pending seed transport", logging.Int("count", count))
	}
}

// Status returns the current frontier counters plus process uptime.
func (c *Coordinator) Status() (frontier.Counters, time.Duration) {
	counters := c.frontier.Status(time.Now(), c.cfg.HeartbeatTimeout())
	return counters, time.Since(c.startedAt)
}

// WriteSnapshotNow persists the frontier to cfg.SnapshotPath immediately,
// outside the periodic snapshot loop. Exported for callers (including
// tests) that need a synchronous snapshot without running Run.
func (c *Coordinator) WriteSnapshotNow() error {
	return c.frontier.WriteSnapshot(c.cfg.SnapshotPath())
}

// DrainPendingNow drains the pending-seed log immediately, outside the
// periodic retry loop. Exported for callers (including tests) that need a
// synchronous drain without running Run.
func (c *Coordinator) DrainPendingNow() {
	c.drainPending()
}
