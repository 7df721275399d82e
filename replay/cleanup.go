package replay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunCleanup removes expired records every interval until ctx is done. It
// returns ctx.Err(). Cleanup failures are logged and retried on the next tick.
func (g *Guard) RunCleanup(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("replay: cleanup interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := g.CleanupExpired(ctx, g.timeProvider.Now().Unix()); err != nil {
				g.logger.WithError(err).Warn("Periodic nonce cleanup failed")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// CleanupAll runs CleanupExpired(before) on every guard concurrently and
// returns the total number of removed records. The first error cancels the
// remaining sweeps and is returned with the namespace that failed.
func CleanupAll(ctx context.Context, before int64, guards ...*Guard) (int, error) {
	var total atomic.Int64
	group, ctx := errgroup.WithContext(ctx)
	for _, g := range guards {
		g := g
		group.Go(func() error {
			removed, err := g.CleanupExpired(ctx, before)
			if err != nil {
				return fmt.Errorf("namespace %s: %w", g.Namespace(), err)
			}
			total.Add(int64(removed))
			return nil
		})
	}
	err := group.Wait()
	return int(total.Load()), err
}
