package rewards

import (
	"errors"
	"fmt"
)

// ErrDuplicateCoupon is returned by Issue when the id is already held.
var ErrDuplicateCoupon = errors.New("duplicate coupon id")

// Inventory holds issued, unused coupons. It is the only owner of coupon
// values; callers get copies.
type Inventory struct {
	coupons []Coupon
}

func NewInventory() *Inventory {
	return &Inventory{}
}

// Restore replaces the contents with persisted coupons, dropping entries
// without an id and repeated ids.
func (inv *Inventory) Restore(coupons []Coupon) {
	inv.coupons = make([]Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.ID == "" || inv.indexOf(c.ID) >= 0 {
			continue
		}
		inv.coupons = append(inv.coupons, c)
	}
}

// Issue stores a newly minted coupon.
func (inv *Inventory) Issue(c Coupon) error {
	if c.ID == "" {
		return fmt.Errorf("issue coupon: empty id")
	}
	if inv.indexOf(c.ID) >= 0 {
		return fmt.Errorf("issue coupon %s: %w", c.ID, ErrDuplicateCoupon)
	}
	inv.coupons = append(inv.coupons, c)
	return nil
}

// Use removes the coupon. Returns false if it was not held.
func (inv *Inventory) Use(id string) bool {
	i := inv.indexOf(id)
	if i < 0 {
		return false
	}
	inv.coupons = append(inv.coupons[:i], inv.coupons[i+1:]...)
	return true
}

// Get returns the coupon with id.
func (inv *Inventory) Get(id string) (Coupon, bool) {
	i := inv.indexOf(id)
	if i < 0 {
		return Coupon{}, false
	}
	return inv.coupons[i], true
}

// List returns the coupons most recently issued first.
func (inv *Inventory) List() []Coupon {
	out := make([]Coupon, len(inv.coupons))
	for i, c := range inv.coupons {
		out[len(out)-1-i] = c
	}
	return out
}

// All returns the coupons in issue order.
func (inv *Inventory) All() []Coupon {
	out := make([]Coupon, len(inv.coupons))
	copy(out, inv.coupons)
	return out
}

func (inv *Inventory) Len() int { return len(inv.coupons) }

func (inv *Inventory) indexOf(id string) int {
	for i := range inv.coupons {
		if inv.coupons[i].ID == id {
			return i
		}
	}
	return -1
}
