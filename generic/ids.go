package generic

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IDFunc mints opaque identifiers. It may fail (entropy exhaustion), and
// callers must treat a failure as "nothing happened".
type IDFunc func() (string, error)

// Clock returns the current time.
type Clock func() time.Time

// NewID returns a random UUID string.
func NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

// SequentialIDs returns an IDFunc producing prefix-1, prefix-2, ...
// Deterministic; used for replay and tests.
func SequentialIDs(prefix string) IDFunc {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("%s-%d", prefix, n), nil
	}
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
