package coordinator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Trimbex/distributed-web-crawler/internal/logging"
)

// Run starts the sweeper, snapshot, and pending-seed drain loops and blocks
// until ctx is cancelled, at which point it writes a final snapshot and
// returns nil. A periodic snapshot write failure is logged and the snapshot
// loop keeps running; it does not stop the other loops.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { c.runSweepLoop(ctx); return nil })
	g.Go(func() error { return c.runSnapshotLoop(ctx) })
	g.Go(func() error { c.runPendingSeedLoop(ctx); return nil })

	if err := g.Wait(); err != nil {
		return err
	}

	if err := c.frontier.WriteSnapshot(c.cfg.SnapshotPath()); err != nil {
		c.log.Error("final snapshot write failed", logging.Err(err))
	}
	return nil
}

func (c *Coordinator) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed := c.frontier.Sweep(time.Now(), c.cfg.HeartbeatTimeout())
			if reclaimed > 0 {
				c.log.Info("swept expired leases", logging.Int("count", reclaimed))
				if c.metrics != nil {
					c.metrics.LeasesExpired.Add(float64(reclaimed))
				}
			}
		}
	}
}

func (c *Coordinator) runSnapshotLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.SnapshotInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.frontier.WriteSnapshot(c.cfg.SnapshotPath()); err != nil {
				c.log.Error("snapshot write failed", logging.Err(err))
			}
		}
	}
}

func (c *Coordinator) runPendingSeedLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PendingSeedRetryInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.IndexerReachable() {
				c.drainPending()
			}
		}
	}
}
