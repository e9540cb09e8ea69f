/*
Package calendar derives day, month and year views from the event store.

PURPOSE:
  Read-only projections. Nothing here is cached or incrementally
  maintained: every call recomputes from the source, so a view can never
  drift from the store it was built from.

MONTH GRID:
  Always 6 rows x 7 columns, Sunday first. The first cell is day
  (1 - weekday of the 1st) of the queried month, which may land in the
  previous month; time.Date normalises it. Each following cell is the next
  calendar day. The grid is a pure function of (year, month).

SEE ALSO:
  - schedule/events.go: The source of truth
  - cursor.go: Month/year navigation
*/
package calendar

import (
	"time"

	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/schedule"
)

const (
	// GridCells is the number of cells in every month grid.
	GridCells = 42

	// MaxCellItems is how many activities a month cell lists.
	MaxCellItems = 3
)

// Source is what the projector reads. *schedule.EventStore satisfies it.
type Source interface {
	ByDay(dateKey string) []schedule.Activity
	CountByMonth(year int) [12]int
	Location() *time.Location
}

// Projector computes calendar views over a Source.
type Projector struct {
	src Source
}

func NewProjector(src Source) *Projector {
	return &Projector{src: src}
}

// =============================================================================
// DAY VIEW
// =============================================================================

type HourBucket struct {
	Hour  int                 `json:"hour"`
	Items []schedule.Activity `json:"items"`
}

type DayView struct {
	Date  string       `json:"date"`
	Hours []HourBucket `json:"hours"`
}

// Day partitions the activities of dateKey into 24 hour buckets. Each
// bucket keeps the ByDay ordering.
func (p *Projector) Day(dateKey string) DayView {
	loc := p.src.Location()
	view := DayView{Date: dateKey, Hours: make([]HourBucket, 24)}
	for h := range view.Hours {
		view.Hours[h] = HourBucket{Hour: h, Items: []schedule.Activity{}}
	}
	for _, a := range p.src.ByDay(dateKey) {
		h := generic.HourOf(a.When, loc)
		view.Hours[h].Items = append(view.Hours[h].Items, a)
	}
	return view
}

// =============================================================================
// MONTH GRID
// =============================================================================

type Cell struct {
	Date           string              `json:"date"`
	Day            int                 `json:"day"`
	InCurrentMonth bool                `json:"inCurrentMonth"`
	Items          []schedule.Activity `json:"items"`
	More           int                 `json:"more"`
	Total          int                 `json:"total"`
}

type MonthGrid struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Cells []Cell     `json:"cells"`
}

// MonthGrid builds the 42-cell grid for year/month. month is a 1-indexed
// time.Month; a 0-indexed MonthCursor converts with c.Year() and c.Month().
func (p *Projector) MonthGrid(year int, month time.Month) MonthGrid {
	loc := p.src.Location()
	grid := MonthGrid{Year: year, Month: month, Cells: make([]Cell, 0, GridCells)}

	for _, day := range GridDates(year, month, loc) {
		key := generic.DateKey(day)
		items := p.src.ByDay(key)

		cell := Cell{
			Date:           key,
			Day:            day.Day(),
			InCurrentMonth: day.Month() == month,
			Total:          len(items),
			Items:          []schedule.Activity{},
		}
		if len(items) > MaxCellItems {
			cell.Items = append(cell.Items, items[:MaxCellItems]...)
			cell.More = len(items) - MaxCellItems
		} else {
			cell.Items = append(cell.Items, items...)
		}
		grid.Cells = append(grid.Cells, cell)
	}
	return grid
}

// GridDates returns the 42 consecutive days shown for year/month.
func GridDates(year int, month time.Month, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	start := 1 - int(first.Weekday())

	dates := make([]time.Time, GridCells)
	for i := range dates {
		dates[i] = time.Date(year, month, start+i, 0, 0, 0, 0, loc)
	}
	return dates
}

// =============================================================================
// YEAR VIEW
// =============================================================================

type MonthSummary struct {
	Month time.Month `json:"month"`
	Count int        `json:"count"`
}

type YearView struct {
	Year   int            `json:"year"`
	Months []MonthSummary `json:"months"`
	Total  int            `json:"total"`
}

// Year counts activities per month of year.
func (p *Projector) Year(year int) YearView {
	counts := p.src.CountByMonth(year)
	view := YearView{Year: year, Months: make([]MonthSummary, 12)}
	for i, n := range counts {
		view.Months[i] = MonthSummary{Month: time.Month(i + 1), Count: n}
		view.Total += n
	}
	return view
}
