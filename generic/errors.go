/*
errors.go - Centralized error types for the carepoints core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap or return these so callers can use errors.Is/As
  without importing every package.

ERROR CATEGORIES:
  1. Validation errors   - Bad input, rejected before any mutation
  2. Economy errors      - Insufficient funds (an expected outcome, not a fault)
  3. Format errors       - Malformed date keys or clock strings
  4. Persistence errors  - Store failures, swallowed at the session boundary

NOT FOUND:
  Operations on ids that no longer exist are silent no-ops, so there is no
  ErrNotFound returned by the stores. ErrNotFound exists for lookups that
  genuinely need to report absence (e.g. a reward key in the catalog).

SEE ALSO:
  - points/ledger.go: InsufficientFundsError
  - session/writer.go: PersistenceError handling
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotFound is returned by lookups that must report absence.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFormat is wrapped by every FormatError.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrPersistence is wrapped by every PersistenceError.
	ErrPersistence = errors.New("persistence failure")

	// ErrStoreClosed is returned by stores used after Close.
	ErrStoreClosed = errors.New("store closed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports input rejected before mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for constructing a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// FormatError reports a date key or clock string that cannot be parsed.
type FormatError struct {
	Kind  string // "date" or "time"
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %s %q", e.Kind, e.Value)
}

func (e *FormatError) Unwrap() error { return ErrInvalidFormat }

// PersistenceError wraps a store failure for a single key.
type PersistenceError struct {
	Key string
	Op  string // "get" or "put"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or an expected business outcome.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrInsufficientFunds)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
