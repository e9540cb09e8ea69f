package rewards

// =============================================================================
// CATALOG - Process-wide constant
// =============================================================================

var catalog = []Definition{
	// Small (10-50)
	{Key: "foot", Label: "Foot massage", Cost: 10, Tier: TierSmall, Icon: "🦶"},
	{Key: "back", Label: "Back rub", Cost: 15, Tier: TierSmall, Icon: "💆‍♀️"},
	{Key: "diapers3", Label: "I change the next 3 diapers", Cost: 20, Tier: TierSmall, Icon: "🍼"},
	{Key: "shower", Label: "Uninterrupted shower time", Cost: 25, Tier: TierSmall, Icon: "🫧"},
	{Key: "bedtime", Label: "I do the bedtime routine", Cost: 30, Tier: TierSmall, Icon: "🌙"},
	{Key: "snack", Label: "Favorite snack/dessert run", Cost: 50, Tier: TierSmall, Icon: "🍰"},

	// Medium (75-150)
	{Key: "morning", Label: "I handle all baby duties (morning)", Cost: 75, Tier: TierMedium, Icon: "☀️"},
	{Key: "spa", Label: "Full at-home spa setup", Cost: 100, Tier: TierMedium, Icon: "🕯️"},
	{Key: "breakfast", Label: "Breakfast in bed", Cost: 100, Tier: TierMedium, Icon: "🥞"},
	{Key: "housework", Label: "I handle ALL housework for a day", Cost: 150, Tier: TierMedium, Icon: "🧹"},

	// Large (200-400)
	{Key: "date", Label: "Planned at-home date night", Cost: 200, Tier: TierLarge, Icon: "💖"},
	{Key: "movie", Label: "Her choice: movie & snacks night", Cost: 200, Tier: TierLarge, Icon: "🎬"},
	{Key: "daytrip", Label: "Day trip to a favorite place", Cost: 300, Tier: TierLarge, Icon: "🧺"},
	{Key: "nochores", Label: "No chores, no baby duty day", Cost: 400, Tier: TierLarge, Icon: "🏖️"},

	// Special (500+)
	{Key: "weekend", Label: "Weekend getaway", Cost: 500, Tier: TierSpecial, Icon: "✈️"},
	{Key: "dreamday", Label: "Her dream day (you plan everything)", Cost: 600, Tier: TierSpecial, Icon: "🌟"},
}

// Catalog returns every reward definition in display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a reward by key.
func Lookup(key string) (Definition, bool) {
	for _, d := range catalog {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// TierGroup is one tier's rewards.
type TierGroup struct {
	Tier    Tier         `json:"tier"`
	Rewards []Definition `json:"rewards"`
}

// ByTier groups the catalog by tier in Tiers order. Empty tiers are omitted.
func ByTier() []TierGroup {
	var groups []TierGroup
	for _, tier := range Tiers {
		var defs []Definition
		for _, d := range catalog {
			if d.Tier == tier {
				defs = append(defs, d)
			}
		}
		if len(defs) > 0 {
			groups = append(groups, TierGroup{Tier: tier, Rewards: defs})
		}
	}
	return groups
}
