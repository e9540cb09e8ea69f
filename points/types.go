/*
Package points provides the append-only points ledger.

PURPOSE:
  Tracks the running balance and the full history of earn and spend
  transactions. The balance is always the sum of the history; there is no
  separate counter that could drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: history entries are never modified or removed
  2. balance == sum(earn) - sum(spend)
  3. balance >= 0; a debit that would break this is rejected before mutation

CORRECTIONS:
  A mistake is never edited out. Reverse appends an opposite transaction
  that references the original; both stay in the history.

SEE ALSO:
  - rewards/economy.go: Debits for redemptions
  - session/: Credits for completed activities
*/
package points

import (
	"fmt"
	"time"

	"github.com/warp/carepoints/generic"
)

// =============================================================================
// TRANSACTION
// =============================================================================

type Kind string

const (
	KindEarn  Kind = "earn"
	KindSpend Kind = "spend"
)

// MinimumCredit is the floor applied to credits.
const MinimumCredit = 1

// Metadata keys shared with other packages.
const (
	MetaReverses = "reverses"
)

type Transaction struct {
	ID       string            `json:"id"`
	Kind     Kind              `json:"kind"`
	Amount   int               `json:"amount"`
	Reason   string            `json:"reason"`
	Ref      string            `json:"ref,omitempty"`
	At       time.Time         `json:"at"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Delta returns the signed effect of the transaction on the balance.
func (t Transaction) Delta() int {
	if t.Kind == KindSpend {
		return -t.Amount
	}
	return t.Amount
}

// =============================================================================
// ERRORS
// =============================================================================

// InsufficientFundsError details a rejected debit.
type InsufficientFundsError struct {
	Available int
	Requested int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Shortfall())
}

// Shortfall is how many more points the debit needed.
func (e *InsufficientFundsError) Shortfall() int { return e.Requested - e.Available }

func (e *InsufficientFundsError) Unwrap() error { return generic.ErrInsufficientFunds }

// CorruptHistoryError reports a history that breaks the ledger invariant.
type CorruptHistoryError struct {
	Index  int
	Reason string
}

func (e *CorruptHistoryError) Error() string {
	return fmt.Sprintf("corrupt ledger history at entry %d: %s", e.Index, e.Reason)
}

// =============================================================================
// TOTALS
// =============================================================================

type Totals struct {
	Earned  int `json:"earned"`
	Spent   int `json:"spent"`
	Balance int `json:"balance"`
}
