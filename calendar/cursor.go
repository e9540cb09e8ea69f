package calendar

import "time"

// Largest single cursor move in each unit.
const (
	MaxShiftYears  = 10000
	MaxShiftMonths = 12 * MaxShiftYears
	MaxShiftDays   = 366 * MaxShiftYears
)

// MonthCursor points at a month. M is 0-indexed (0 = January) to match the
// persisted {y, m} shape.
type MonthCursor struct {
	Y int `json:"y"`
	M int `json:"m"`
}

// CursorFor returns the cursor of the month containing t.
func CursorFor(t time.Time) MonthCursor {
	return MonthCursor{Y: t.Year(), M: int(t.Month()) - 1}
}

// Month returns the cursor's month as a time.Month.
func (c MonthCursor) Month() time.Month { return time.Month(c.normalize().M + 1) }

// Year returns the cursor's year after normalisation.
func (c MonthCursor) Year() int { return c.normalize().Y }

// Next moves one month forward; December wraps to January of the next year.
func (c MonthCursor) Next() MonthCursor { return c.shift(1) }

// Prev moves one month back; January wraps to December of the previous year.
func (c MonthCursor) Prev() MonthCursor { return c.shift(-1) }

// Add moves n months in one step. n is clamped to ±MaxShiftMonths.
func (c MonthCursor) Add(n int) MonthCursor {
	return c.shift(clamp(n, MaxShiftMonths))
}

// Valid reports whether M is in 0..11.
func (c MonthCursor) Valid() bool { return c.M >= 0 && c.M <= 11 }

func (c MonthCursor) shift(n int) MonthCursor {
	return CursorFor(time.Date(c.Y, time.Month(c.M+1+n), 1, 0, 0, 0, 0, time.UTC))
}

func (c MonthCursor) normalize() MonthCursor {
	if c.Valid() {
		return c
	}
	return c.shift(0)
}

// YearCursor points at a year.
type YearCursor int

func (y YearCursor) Next() YearCursor { return y + 1 }

func (y YearCursor) Prev() YearCursor { return y - 1 }

// Add moves n years. n is clamped to ±MaxShiftYears.
func (y YearCursor) Add(n int) YearCursor { return y + YearCursor(clamp(n, MaxShiftYears)) }

// ClampDays bounds a day shift to ±MaxShiftDays.
func ClampDays(n int) int { return clamp(n, MaxShiftDays) }

func clamp(n, limit int) int {
	return max(-limit, min(n, limit))
}
