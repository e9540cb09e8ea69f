package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakePruner) Prune(_ context.Context, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, keep)
	return 3, f.err
}

func (f *fakePruner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestPruneScheduler_RunsOnStartAndOnTick(t *testing.T) {
	p := &fakePruner{}
	ps := NewPruneScheduler(p, 7, nil)
	ps.CheckInterval = 10 * time.Millisecond

	ps.Start()
	ps.Start() // no-op
	require.Eventually(t, func() bool { return p.count() >= 3 }, time.Second, 5*time.Millisecond)
	ps.Stop()

	n := p.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, p.count(), "no prune after Stop")

	p.mu.Lock()
	assert.Equal(t, 7, p.calls[0])
	p.mu.Unlock()

	ps.Stop() // no-op
}

func TestPruneScheduler_ErrorsDoNotStopIt(t *testing.T) {
	p := &fakePruner{err: errors.New("disk full")}
	ps := NewPruneScheduler(p, 1, nil)
	ps.CheckInterval = 10 * time.Millisecond

	ps.Start()
	defer ps.Stop()
	require.Eventually(t, func() bool { return p.count() >= 2 }, time.Second, 5*time.Millisecond)
}
