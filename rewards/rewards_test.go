package rewards_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/points"
	"github.com/warp/carepoints/rewards"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var t0 = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestEconomy(t *testing.T, balance int) *rewards.Economy {
	t.Helper()
	ledger := points.NewLedger(generic.FixedClock(t0))
	ledger.Opening(balance)
	return rewards.NewEconomy(ledger, rewards.NewInventory(), generic.FixedClock(t0), generic.SequentialIDs("c"))
}

// =============================================================================
// CATALOG
// =============================================================================

func TestCatalog_KeysUniqueAndCostsPositive(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range rewards.Catalog() {
		assert.False(t, seen[d.Key], "duplicate key %s", d.Key)
		seen[d.Key] = true
		assert.Positive(t, d.Cost, d.Key)
	}
	assert.Len(t, seen, 16)
}

func TestCatalog_ByTierOrder(t *testing.T) {
	groups := rewards.ByTier()
	require.Len(t, groups, 4)
	for i, g := range groups {
		assert.Equal(t, rewards.Tiers[i], g.Tier)
	}
	assert.Equal(t, "foot", groups[0].Rewards[0].Key)
	assert.Equal(t, "dreamday", groups[3].Rewards[1].Key)
}

func TestLookup(t *testing.T) {
	d, ok := rewards.Lookup("foot")
	require.True(t, ok)
	assert.Equal(t, 10, d.Cost)
	assert.Equal(t, rewards.TierSmall, d.Tier)

	_, ok = rewards.Lookup("pony")
	assert.False(t, ok)
}

// =============================================================================
// REDEEM
// =============================================================================

func TestRedeem_Success(t *testing.T) {
	// GIVEN: Balance 20
	// WHEN: Redeeming "foot" (cost 10)
	// THEN: Balance 10, one coupon, one redemption record

	e := newTestEconomy(t, 20)

	coupon, err := e.Redeem("foot")
	require.NoError(t, err)

	assert.Equal(t, 10, e.Ledger().Balance())
	assert.Equal(t, "c-1", coupon.ID)
	assert.Equal(t, "foot", coupon.RewardKey)
	assert.Equal(t, "🦶", coupon.Icon)
	assert.Equal(t, t0, coupon.IssuedAt)

	require.Equal(t, 1, e.Inventory().Len())
	reds := e.Redemptions()
	require.Len(t, reds, 1)
	assert.Equal(t, coupon.ID, reds[0].ID)
	assert.Equal(t, 10, reds[0].Cost)
	assert.Equal(t, rewards.TierSmall, reds[0].Tier)
}

func TestRedeem_InsufficientFunds(t *testing.T) {
	// GIVEN: Balance 5
	// WHEN: Redeeming "foot" (cost 10)
	// THEN: Rejected, balance 5, no coupon, no ledger entry

	e := newTestEconomy(t, 5)
	before := e.Ledger().Len()

	_, err := e.Redeem("foot")

	var insuf *points.InsufficientFundsError
	require.ErrorAs(t, err, &insuf)
	assert.Equal(t, 5, insuf.Shortfall())
	assert.Equal(t, 5, e.Ledger().Balance())
	assert.Equal(t, before, e.Ledger().Len())
	assert.Zero(t, e.Inventory().Len())
	assert.Empty(t, e.Redemptions())
}

func TestRedeem_UnknownReward(t *testing.T) {
	e := newTestEconomy(t, 1000)
	_, err := e.Redeem("pony")
	assert.ErrorIs(t, err, rewards.ErrUnknownReward)
	assert.Equal(t, 1000, e.Ledger().Balance())
}

func TestRedeem_IDFailureLeavesStateUntouched(t *testing.T) {
	ledger := points.NewLedger(generic.FixedClock(t0))
	ledger.Opening(50)
	boom := errors.New("entropy exhausted")
	e := rewards.NewEconomy(ledger, rewards.NewInventory(), nil, func() (string, error) {
		return "", boom
	})

	_, err := e.Redeem("foot")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 50, ledger.Balance())
	assert.Equal(t, 1, ledger.Len())
	assert.Zero(t, e.Inventory().Len())
}

func TestRedeem_DuplicateCouponIsCompensated(t *testing.T) {
	// GIVEN: An id source that repeats itself
	// WHEN: The second redeem cannot store its coupon
	// THEN: The spend is reversed, balance is as if it never happened

	ledger := points.NewLedger(generic.FixedClock(t0))
	ledger.Opening(100)
	e := rewards.NewEconomy(ledger, rewards.NewInventory(), nil, func() (string, error) {
		return "same", nil
	})

	_, err := e.Redeem("foot")
	require.NoError(t, err)

	_, err = e.Redeem("back")
	assert.ErrorIs(t, err, rewards.ErrDuplicateCoupon)

	assert.Equal(t, 90, ledger.Balance())
	assert.Equal(t, 1, e.Inventory().Len())
	assert.Len(t, e.Redemptions(), 1, "rolled back spend is not a redemption")
	assert.NoError(t, ledger.Verify())
}

func TestRedeem_NeverDebitsWithoutCoupon(t *testing.T) {
	// Property: after any sequence of redeems, every live spend has a
	// coupon, and balance == opening - sum(coupon costs).
	r := rand.New(rand.NewSource(7))
	catalog := rewards.Catalog()
	e := newTestEconomy(t, 2000)

	for i := 0; i < 200; i++ {
		_, _ = e.Redeem(catalog[r.Intn(len(catalog))].Key)
	}

	spent := 0
	for _, c := range e.Inventory().All() {
		spent += c.Cost
	}
	assert.Equal(t, 2000-spent, e.Ledger().Balance())
	assert.Len(t, e.Redemptions(), e.Inventory().Len())
	assert.GreaterOrEqual(t, e.Ledger().Balance(), 0)
}

// =============================================================================
// COUPONS
// =============================================================================

func TestUseCoupon_DoesNotRefund(t *testing.T) {
	e := newTestEconomy(t, 20)
	c, err := e.Redeem("foot")
	require.NoError(t, err)

	assert.True(t, e.UseCoupon(c.ID))
	assert.Zero(t, e.Inventory().Len())
	assert.Equal(t, 10, e.Ledger().Balance())
	assert.Len(t, e.Redemptions(), 1, "history keeps the redemption")
}

func TestUseCoupon_UnknownIsNoop(t *testing.T) {
	e := newTestEconomy(t, 20)
	_, err := e.Redeem("foot")
	require.NoError(t, err)

	assert.False(t, e.UseCoupon("nope"))
	assert.Equal(t, 1, e.Inventory().Len())
	assert.Equal(t, 10, e.Ledger().Balance())
}

func TestInventory_ListNewestFirst(t *testing.T) {
	inv := rewards.NewInventory()
	require.NoError(t, inv.Issue(rewards.Coupon{ID: "a"}))
	require.NoError(t, inv.Issue(rewards.Coupon{ID: "b"}))
	require.NoError(t, inv.Issue(rewards.Coupon{ID: "c"}))

	var ids []string
	for _, c := range inv.List() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
	assert.Equal(t, "a", inv.All()[0].ID)
}

func TestInventory_RestoreDropsBadEntries(t *testing.T) {
	inv := rewards.NewInventory()
	inv.Restore([]rewards.Coupon{{ID: "a"}, {ID: ""}, {ID: "a"}, {ID: "b"}})
	assert.Equal(t, 2, inv.Len())
}

// =============================================================================
// LEGACY HISTORY
// =============================================================================

func TestRebuildLedger_PreservesBalance(t *testing.T) {
	// GIVEN: Stored points 25 and two redemptions (10 + 15)
	// WHEN: Rebuilding the history
	// THEN: Opening 50, two spends, balance 25, redemptions derive back

	at := time.Date(2024, time.February, 2, 8, 0, 0, 0, time.UTC)
	reds := []rewards.Redemption{
		{ID: "r1", RewardKey: "foot", Label: "Foot massage", Cost: 10, Tier: rewards.TierSmall, Icon: "🦶", At: at},
		{ID: "r2", RewardKey: "back", Label: "Back rub", Cost: 15, Tier: rewards.TierSmall, Icon: "💆‍♀️", At: at},
	}

	ledger := points.NewLedger(generic.FixedClock(t0))
	require.NoError(t, rewards.RebuildLedger(ledger, 25, reds, t0))

	assert.Equal(t, 25, ledger.Balance())
	assert.Equal(t, 50, ledger.Totals().Earned)
	assert.Equal(t, 3, ledger.Len())

	e := rewards.NewEconomy(ledger, rewards.NewInventory(), nil, nil)
	assert.Equal(t, reds, e.Redemptions())
}

func TestRebuildLedger_Empty(t *testing.T) {
	ledger := points.NewLedger(nil)
	require.NoError(t, rewards.RebuildLedger(ledger, 0, nil, t0))
	assert.Zero(t, ledger.Len())
}

func TestRebuildLedger_RejectsNegative(t *testing.T) {
	ledger := points.NewLedger(nil)
	err := rewards.RebuildLedger(ledger, -3, nil, t0)
	assert.ErrorIs(t, err, generic.ErrValidation)
}
