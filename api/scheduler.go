/*
scheduler.go - Periodic store maintenance

PURPOSE:
  The sqlite store keeps every superseded value in kv_history. Left alone
  that table grows with every write, so the scheduler trims it to the
  newest Keep revisions per key.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Errors are logged; the next tick tries again

USAGE:
  scheduler := NewPruneScheduler(store, 50, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - store/sqlite/sqlite.go: Prune
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pruner trims stored history down to keep revisions per key.
type Pruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// PruneScheduler calls Pruner.Prune every CheckInterval.
type PruneScheduler struct {
	Pruner        Pruner
	Keep          int
	CheckInterval time.Duration
	Timeout       time.Duration

	log    *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPruneScheduler creates a scheduler with an hourly interval.
func NewPruneScheduler(p Pruner, keep int, log *zap.Logger) *PruneScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PruneScheduler{
		Pruner:        p,
		Keep:          keep,
		CheckInterval: time.Hour,
		Timeout:       30 * time.Second,
		log:           log.Named("scheduler"),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (ps *PruneScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		return
	}
	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.stop = make(chan struct{})
	ps.wg.Add(1)

	go ps.run(ps.ticker, ps.stop)

	ps.log.Info("started", zap.Duration("interval", ps.CheckInterval), zap.Int("keep", ps.Keep))
}

// Stop stops the scheduler and waits for a running prune to finish.
func (ps *PruneScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker == nil {
		return
	}
	ps.ticker.Stop()
	close(ps.stop)
	ps.wg.Wait()
	ps.ticker = nil
	ps.log.Info("stopped")
}

func (ps *PruneScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ps.wg.Done()

	ps.prune()

	for {
		select {
		case <-ticker.C:
			ps.prune()
		case <-stop:
			return
		}
	}
}

func (ps *PruneScheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), ps.Timeout)
	defer cancel()

	n, err := ps.Pruner.Prune(ctx, ps.Keep)
	if err != nil {
		ps.log.Warn("prune history", zap.Error(err))
		return
	}
	if n > 0 {
		ps.log.Info("pruned history", zap.Int64("removed", n))
	}
}
