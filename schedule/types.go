/*
Package schedule owns the collection of scheduled caregiving activities.

PURPOSE:
  Stores activities keyed by instant and answers date-bucketed queries.
  Everything the calendar views show is derived from this store.

KEY CONCEPTS:
  - Activity: one time-stamped task (feeding, nap, doctor visit, ...)
  - Category: fixed enumerated set, each worth a fixed number of points
  - Completion: the signal emitted when an activity flips to done

ONE-WAY CREDIT:
  ToggleDone only signals on false→true. Flipping back to false signals
  nothing, so points are never reclaimed. Toggling again earns again.

SEE ALSO:
  - calendar/: Day, month and year projections over this store
  - session/: Turns Completions into ledger credits
*/
package schedule

import (
	"time"
)

// =============================================================================
// CATEGORIES
// =============================================================================

type Category string

const (
	CategoryFeeding Category = "feeding"
	CategoryNap     Category = "nap"
	CategoryTummy   Category = "tummy"
	CategoryBath    Category = "bath"
	CategoryPlay    Category = "play"
	CategoryClass   Category = "class"
	CategoryDoctor  Category = "doctor"
	CategoryOther   Category = "other"
)

// FloorPoints is what an unknown category earns.
const FloorPoints = 1

// CategoryInfo describes one entry of the category table.
type CategoryInfo struct {
	Key    Category `json:"key"`
	Label  string   `json:"label"`
	Points int      `json:"points"`
}

var categories = []CategoryInfo{
	{CategoryFeeding, "Feeding", 8},
	{CategoryNap, "Nap", 6},
	{CategoryTummy, "Tummy Time", 8},
	{CategoryBath, "Bath", 6},
	{CategoryPlay, "Play", 4},
	{CategoryClass, "Class", 12},
	{CategoryDoctor, "Doctor", 20},
	{CategoryOther, "Other", 3},
}

// Categories returns the category table in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

// Lookup returns the table entry for c.
func (c Category) Lookup() (CategoryInfo, bool) {
	for _, info := range categories {
		if info.Key == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// Points returns the points c is worth, or FloorPoints if c is unknown.
func (c Category) Points() int {
	if info, ok := c.Lookup(); ok {
		return info.Points
	}
	return FloorPoints
}

// Label returns the display label, falling back to the raw key.
func (c Category) Label() string {
	if info, ok := c.Lookup(); ok {
		return info.Label
	}
	return string(c)
}

// =============================================================================
// ACTIVITY
// =============================================================================

// UntitledLabel is shown for activities without a title.
const UntitledLabel = "(untitled)"

type Activity struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	When     time.Time `json:"whenISO"`
	Category Category  `json:"category"`
	Done     bool      `json:"done"`
}

// DisplayTitle returns the title, or UntitledLabel when it is empty.
func (a Activity) DisplayTitle() string {
	if a.Title == "" {
		return UntitledLabel
	}
	return a.Title
}

// Completion is emitted when an activity transitions from not done to done.
type Completion struct {
	ActivityID string   `json:"activityId"`
	Title      string   `json:"title"`
	Category   Category `json:"category"`
	Points     int      `json:"points"`
}
