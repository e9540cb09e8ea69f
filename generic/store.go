/*
store.go - Key-value persistence interface for session state

PURPOSE:
  Defines the boundary between the in-memory core and whatever holds its
  state between runs. The core never reads from the store after load; it
  only writes. The store is a best-effort cache, not a durable ledger.

CONTRACT:
  - Each key holds one independently JSON-serialized value.
  - Get reports (nil, false, nil) for an absent key.
  - Put overwrites the whole value for a key.
  - Failures are returned to the caller, which decides whether to swallow
    them (the session always does).

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory, for tests and the "memory" driver
  - store/file:   One JSON file per key under a directory
  - store/bolt:   One bbolt bucket
  - store/sqlite: A kv table managed by goose migrations
*/
package generic

import "context"

// Store persists opaque values by key.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Keys lists every stored key in lexical order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases resources. Further calls fail with ErrStoreClosed.
	Close() error
}
