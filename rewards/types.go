/*
Package rewards provides the reward catalog, the coupon inventory and the
economy that turns points into coupons.

PURPOSE:
  Points earned by caregiving are spent on rewards. A redeemed reward
  becomes a coupon that sits in the inventory until it is used in real
  life. Using a coupon never gives points back.

EXAMPLE FLOW:
  1. Balance is 20 points
  2. Redeem "foot" (cost 10): ledger -10, coupon minted
  3. Balance is 10, inventory holds one Foot massage coupon
  4. UseCoupon: coupon removed, balance stays 10

ATOMICITY:
  Redeem is one logical state transition. The coupon id is minted before
  anything is debited, and if the coupon cannot be stored after the
  debit, a compensating earn is appended to the ledger. Points are never
  left debited without a coupon.

SEE ALSO:
  - catalog.go: The fixed reward list
  - economy.go: Redeem / UseCoupon
  - points/: The ledger being debited
*/
package rewards

import (
	"time"
)

// =============================================================================
// TIERS
// =============================================================================

type Tier string

const (
	TierSmall   Tier = "Small"
	TierMedium  Tier = "Medium"
	TierLarge   Tier = "Large"
	TierSpecial Tier = "Special"
)

// Tiers lists the tiers in display order.
var Tiers = []Tier{TierSmall, TierMedium, TierLarge, TierSpecial}

// =============================================================================
// DEFINITIONS, COUPONS, REDEMPTIONS
// =============================================================================

// Definition is one purchasable reward.
type Definition struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Cost  int    `json:"cost"`
	Tier  Tier   `json:"tier"`
	Icon  string `json:"icon,omitempty"`
}

const (
	// DefaultCouponIcon is used when a definition has no icon.
	DefaultCouponIcon = "🎟️"

	// DefaultCouponTier is used when a definition has no tier.
	DefaultCouponTier = TierSmall
)

// Coupon is a redeemed reward that has not been used yet.
type Coupon struct {
	ID        string    `json:"id"`
	RewardKey string    `json:"reward"`
	Label     string    `json:"label"`
	Cost      int       `json:"cost"`
	Tier      Tier      `json:"tier"`
	Icon      string    `json:"icon"`
	IssuedAt  time.Time `json:"date"`
}

// Redemption is the history record of one redeem. It has the same shape as
// the coupon that was minted and is derived from the ledger.
type Redemption struct {
	ID        string    `json:"id"`
	RewardKey string    `json:"reward"`
	Label     string    `json:"label"`
	Cost      int       `json:"cost"`
	Tier      Tier      `json:"tier"`
	Icon      string    `json:"icon"`
	At        time.Time `json:"date"`
}

// Metadata keys written on spend transactions.
const (
	MetaReward = "reward"
	MetaCoupon = "coupon"
	MetaLabel  = "label"
	MetaTier   = "tier"
	MetaIcon   = "icon"
)
