package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/carepoints/generic"
)

// writer persists values in the background. Pending writes are coalesced
// per key so only the latest value for a key is written. Failures are
// logged and dropped; the in-memory state stays authoritative.
type writer struct {
	store   generic.Store
	log     *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	pending  map[string][]byte
	order    []string
	idle     chan struct{}
	inflight bool
	closed   bool

	kick     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newWriter(store generic.Store, log *zap.Logger, timeout time.Duration) *writer {
	w := &writer{
		store:   store,
		log:     log,
		timeout: timeout,
		pending: make(map[string][]byte),
		idle:    make(chan struct{}),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// enqueue schedules value to be written under key.
func (w *writer) enqueue(key string, value []byte) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn("write after close dropped", zap.String("key", key))
		return
	}
	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = value
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// flush blocks until every write enqueued so far has been attempted.
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.pending) == 0 && !w.inflight {
		w.mu.Unlock()
		return nil
	}
	idle := w.idle
	w.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains pending writes and stops the worker.
func (w *writer) close() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.stop)
	})
	w.wg.Wait()
}

func (w *writer) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.kick:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			w.inflight = false
			close(w.idle)
			w.idle = make(chan struct{})
			w.mu.Unlock()
			return
		}
		batch, order := w.pending, w.order
		w.pending = make(map[string][]byte, len(batch))
		w.order = nil
		w.inflight = true
		w.mu.Unlock()

		for _, key := range order {
			w.put(key, batch[key])
		}
	}
}

func (w *writer) put(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.Put(ctx, key, value); err != nil {
		perr := &generic.PersistenceError{Key: key, Op: "put", Err: err}
		w.log.Warn("persist failed", zap.String("key", key), zap.Error(perr))
		return
	}
	w.log.Debug("persisted", zap.String("key", key), zap.Int("bytes", len(value)))
}
