package rewards

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/points"
)

// ErrUnknownReward is returned by Redeem for a key not in the catalog.
var ErrUnknownReward = fmt.Errorf("unknown reward: %w", generic.ErrNotFound)

// =============================================================================
// ECONOMY
// =============================================================================

// Economy ties the ledger to the coupon inventory.
//
// Not safe for concurrent use; the session serialises access.
type Economy struct {
	ledger    *points.Ledger
	inventory *Inventory
	now       generic.Clock
	newID     generic.IDFunc
}

// NewEconomy wires a ledger and inventory. Nil now and newID default to
// time.Now and generic.NewID.
func NewEconomy(ledger *points.Ledger, inventory *Inventory, now generic.Clock, newID generic.IDFunc) *Economy {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = generic.NewID
	}
	return &Economy{ledger: ledger, inventory: inventory, now: now, newID: newID}
}

func (e *Economy) Ledger() *points.Ledger { return e.ledger }

func (e *Economy) Inventory() *Inventory { return e.inventory }

// Redeem buys the reward with key and returns the minted coupon.
//
// On any error nothing has changed from the caller's point of view: either
// no transaction was appended, or the spend was compensated.
func (e *Economy) Redeem(key string) (Coupon, error) {
	def, ok := Lookup(key)
	if !ok {
		return Coupon{}, fmt.Errorf("redeem %q: %w", key, ErrUnknownReward)
	}
	if !e.ledger.CanAfford(def.Cost) {
		return Coupon{}, &points.InsufficientFundsError{Available: e.ledger.Balance(), Requested: def.Cost}
	}

	id, err := e.newID()
	if err != nil {
		return Coupon{}, fmt.Errorf("redeem %q: %w", key, err)
	}
	coupon := mint(id, def, e.now())

	spend, err := e.ledger.Debit(def.Cost, def.Label, coupon.ID, couponMeta(coupon))
	if err != nil {
		return Coupon{}, err
	}

	if err := e.inventory.Issue(coupon); err != nil {
		if _, revErr := e.ledger.Reverse(spend, "rollback: "+def.Label); revErr != nil {
			return Coupon{}, errors.Join(err, revErr)
		}
		return Coupon{}, fmt.Errorf("redeem %q: %w", key, err)
	}
	return coupon, nil
}

// UseCoupon consumes a coupon. Points are not returned. Returns false if the
// coupon was not held.
func (e *Economy) UseCoupon(id string) bool {
	return e.inventory.Use(id)
}

// Redemptions derives the redemption history from spend transactions,
// oldest first. Spends that were rolled back are skipped.
func (e *Economy) Redemptions() []Redemption {
	history := e.ledger.History()

	reversed := make(map[string]bool)
	for _, tx := range history {
		if ref := tx.Metadata[points.MetaReverses]; ref != "" {
			reversed[ref] = true
		}
	}

	var out []Redemption
	for _, tx := range history {
		if tx.Kind != points.KindSpend || reversed[tx.ID] {
			continue
		}
		if tx.Metadata[MetaReward] == "" {
			continue
		}
		out = append(out, Redemption{
			ID:        tx.Metadata[MetaCoupon],
			RewardKey: tx.Metadata[MetaReward],
			Label:     tx.Metadata[MetaLabel],
			Cost:      tx.Amount,
			Tier:      Tier(tx.Metadata[MetaTier]),
			Icon:      tx.Metadata[MetaIcon],
			At:        tx.At,
		})
	}
	return out
}

// =============================================================================
// LEGACY HISTORY
// =============================================================================

// RebuildLedger reconstructs a history for state that only kept a balance
// and a redemption list. The result has one opening earn of
// balance + sum(costs) followed by one spend per redemption, so the final
// balance equals the stored one.
func RebuildLedger(ledger *points.Ledger, balance int, reds []Redemption, openedAt time.Time) error {
	if balance < 0 {
		return generic.Invalid("points", "must not be negative")
	}
	opening := balance
	for _, r := range reds {
		if r.Cost <= 0 {
			return generic.Invalid("redemptions", "cost must be positive")
		}
		opening += r.Cost
	}
	if opening == 0 {
		return ledger.Restore(nil)
	}

	history := make([]points.Transaction, 0, len(reds)+1)
	history = append(history, points.Transaction{
		ID:     txID(1),
		Kind:   points.KindEarn,
		Amount: opening,
		Reason: "opening balance",
		At:     openedAt,
	})
	for _, r := range reds {
		c := Coupon{
			ID:        r.ID,
			RewardKey: r.RewardKey,
			Label:     r.Label,
			Cost:      r.Cost,
			Tier:      r.Tier,
			Icon:      r.Icon,
			IssuedAt:  r.At,
		}
		history = append(history, points.Transaction{
			ID:       txID(len(history) + 1),
			Kind:     points.KindSpend,
			Amount:   r.Cost,
			Reason:   r.Label,
			Ref:      r.ID,
			At:       r.At,
			Metadata: couponMeta(c),
		})
	}
	if err := ledger.Restore(history); err != nil {
		return fmt.Errorf("rebuild ledger: %w", err)
	}
	return nil
}

func txID(n int) string { return fmt.Sprintf("tx-%06d", n) }

func mint(id string, def Definition, at time.Time) Coupon {
	c := Coupon{
		ID:        id,
		RewardKey: def.Key,
		Label:     def.Label,
		Cost:      def.Cost,
		Tier:      def.Tier,
		Icon:      def.Icon,
		IssuedAt:  at,
	}
	if c.Icon == "" {
		c.Icon = DefaultCouponIcon
	}
	if c.Tier == "" {
		c.Tier = DefaultCouponTier
	}
	return c
}

func couponMeta(c Coupon) map[string]string {
	return map[string]string{
		MetaReward: c.RewardKey,
		MetaCoupon: c.ID,
		MetaLabel:  c.Label,
		MetaTier:   string(c.Tier),
		MetaIcon:   c.Icon,
	}
}
