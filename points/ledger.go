package points

import (
	"fmt"
	"maps"
	"time"

	"github.com/warp/carepoints/generic"
)

// Ledger is the points balance plus its history.
//
// Not safe for concurrent use; the session serialises access.
type Ledger struct {
	now     generic.Clock
	history []Transaction
	balance int
}

// NewLedger creates an empty ledger. A nil clock uses time.Now.
func NewLedger(now generic.Clock) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Balance returns the current balance.
func (l *Ledger) Balance() int { return l.balance }

// History returns a copy of every transaction, oldest first.
func (l *Ledger) History() []Transaction {
	out := make([]Transaction, len(l.history))
	for i, tx := range l.history {
		tx.Metadata = maps.Clone(tx.Metadata)
		out[i] = tx
	}
	return out
}

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.history) }

// Credit appends an earn transaction. Amounts below MinimumCredit are
// raised to it, so Credit never fails.
func (l *Ledger) Credit(amount int, reason, ref string, meta map[string]string) Transaction {
	if amount < MinimumCredit {
		amount = MinimumCredit
	}
	return l.append(KindEarn, amount, reason, ref, meta)
}

// Debit appends a spend transaction if the balance covers it.
func (l *Ledger) Debit(amount int, reason, ref string, meta map[string]string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, generic.Invalid("amount", "must be positive")
	}
	if amount > l.balance {
		return Transaction{}, &InsufficientFundsError{Available: l.balance, Requested: amount}
	}
	return l.append(KindSpend, amount, reason, ref, meta), nil
}

// CanAfford reports whether a debit of amount would succeed.
func (l *Ledger) CanAfford(amount int) bool {
	return amount > 0 && amount <= l.balance
}

// Reverse appends the compensating transaction for original. Reversing an
// earn is a debit and can fail with InsufficientFundsError.
func (l *Ledger) Reverse(original Transaction, reason string) (Transaction, error) {
	meta := map[string]string{MetaReverses: original.ID}
	if original.Kind == KindSpend {
		return l.append(KindEarn, original.Amount, reason, original.Ref, meta), nil
	}
	return l.Debit(original.Amount, reason, original.Ref, meta)
}

// Opening credits a starting balance. Used when migrating state that only
// kept a bare balance number.
func (l *Ledger) Opening(amount int) {
	if amount > 0 {
		l.append(KindEarn, amount, "opening balance", "", nil)
	}
}

// Totals sums the history.
func (l *Ledger) Totals() Totals {
	var t Totals
	for _, tx := range l.history {
		switch tx.Kind {
		case KindEarn:
			t.Earned += tx.Amount
		case KindSpend:
			t.Spent += tx.Amount
		}
	}
	t.Balance = t.Earned - t.Spent
	return t
}

// Verify recomputes the balance from the history and checks both invariants.
func (l *Ledger) Verify() error {
	if _, err := replay(l.history); err != nil {
		return err
	}
	if t := l.Totals(); t.Balance != l.balance {
		return fmt.Errorf("balance %d does not match history total %d", l.balance, t.Balance)
	}
	return nil
}

// Restore replaces the ledger with a persisted history. A history that
// breaks the invariants is rejected and the ledger is left unchanged.
func (l *Ledger) Restore(history []Transaction) error {
	balance, err := replay(history)
	if err != nil {
		return err
	}
	l.history = make([]Transaction, len(history))
	copy(l.history, history)
	l.balance = balance
	return nil
}

func (l *Ledger) append(kind Kind, amount int, reason, ref string, meta map[string]string) Transaction {
	tx := Transaction{
		ID:       fmt.Sprintf("tx-%06d", len(l.history)+1),
		Kind:     kind,
		Amount:   amount,
		Reason:   reason,
		Ref:      ref,
		At:       l.now(),
		Metadata: maps.Clone(meta),
	}
	l.history = append(l.history, tx)
	l.balance += tx.Delta()
	return tx
}

func replay(history []Transaction) (int, error) {
	balance := 0
	for i, tx := range history {
		if tx.Amount <= 0 {
			return 0, &CorruptHistoryError{Index: i, Reason: "non-positive amount"}
		}
		if tx.Kind != KindEarn && tx.Kind != KindSpend {
			return 0, &CorruptHistoryError{Index: i, Reason: fmt.Sprintf("unknown kind %q", tx.Kind)}
		}
		balance += tx.Delta()
		if balance < 0 {
			return 0, &CorruptHistoryError{Index: i, Reason: "balance goes negative"}
		}
	}
	return balance, nil
}
