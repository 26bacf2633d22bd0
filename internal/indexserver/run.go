package indexserver

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Trimbex/distributed-web-crawler/internal/logging"
)

// Run starts the periodic persist loop and blocks until ctx is cancelled, at
// which point it persists the index one final time and returns nil.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runPersistLoop(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.idx.Persist(s.cfg.DataDir()); err != nil {
		s.log.Error("final persist failed", logging.Err(err))
	}
	return nil
}

func (s *Server) runPersistLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PersistInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.idx.Persist(s.cfg.DataDir()); err != nil {
				s.log.Error("periodic persist failed", logging.Err(err))
			}
		}
	}
}
