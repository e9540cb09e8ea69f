/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types that
  already carry stable json tags (DayView, MonthGrid, Coupon, List) are
  returned as is; DTOs exist where the client needs derived fields.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done by the session commands, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/carepoints/calendar"
	"github.com/warp/carepoints/checklist"
	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/rewards"
	"github.com/warp/carepoints/schedule"
	"github.com/warp/carepoints/session"
)

// =============================================================================
// ACTIVITIES
// =============================================================================

// ActivityDTO adds the local date, clock and point value to an activity.
type ActivityDTO struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	DisplayTitle  string            `json:"displayTitle"`
	When          time.Time         `json:"whenISO"`
	Date          string            `json:"date"`
	Time          string            `json:"time"`
	Category      schedule.Category `json:"category"`
	CategoryLabel string            `json:"categoryLabel"`
	Points        int               `json:"points"`
	Done          bool              `json:"done"`
}

func toActivityDTO(a schedule.Activity, loc *time.Location) ActivityDTO {
	return ActivityDTO{
		ID:            a.ID,
		Title:         a.Title,
		DisplayTitle:  a.DisplayTitle(),
		When:          a.When,
		Date:          generic.DateKeyOf(a.When, loc),
		Time:          generic.ClockOf(a.When, loc),
		Category:      a.Category,
		CategoryLabel: a.Category.Label(),
		Points:        a.Category.Points(),
		Done:          a.Done,
	}
}

func toActivityDTOs(acts []schedule.Activity, loc *time.Location) []ActivityDTO {
	dtos := make([]ActivityDTO, len(acts))
	for i, a := range acts {
		dtos[i] = toActivityDTO(a, loc)
	}
	return dtos
}

// AddActivityRequest is the body of POST /api/activities.
type AddActivityRequest struct {
	Title    string            `json:"title"`
	Date     string            `json:"date"`
	Time     string            `json:"time"`
	Category schedule.Category `json:"category"`
}

// UpdateActivityRequest is the body of PATCH /api/activities/{id}.
// Absent fields are left alone.
type UpdateActivityRequest struct {
	Title *string `json:"title"`
	Time  *string `json:"time"`
}

// DayDTO is the selected day's schedule, one bucket per hour.
type DayDTO struct {
	Date  string    `json:"date"`
	Hours []HourDTO `json:"hours"`
	Total int       `json:"total"`
}

type HourDTO struct {
	Hour  int           `json:"hour"`
	Items []ActivityDTO `json:"items"`
}

func toDayDTO(d calendar.DayView, loc *time.Location) DayDTO {
	dto := DayDTO{Date: d.Date, Hours: make([]HourDTO, len(d.Hours))}
	for i, b := range d.Hours {
		dto.Hours[i] = HourDTO{Hour: b.Hour, Items: toActivityDTOs(b.Items, loc)}
		dto.Total += len(b.Items)
	}
	return dto
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// CommandResponse is returned by every mutating endpoint.
type CommandResponse struct {
	Changed    bool                 `json:"changed"`
	Points     int                  `json:"points"`
	Activity   *ActivityDTO         `json:"activity,omitempty"`
	Completion *schedule.Completion `json:"completion,omitempty"`
	Coupon     *rewards.Coupon      `json:"coupon,omitempty"`
	List       *checklist.List      `json:"list,omitempty"`
	Item       *checklist.Item      `json:"item,omitempty"`
	Removed    int                  `json:"removed,omitempty"`
}

func toCommandResponse(res session.Result, loc *time.Location) CommandResponse {
	resp := CommandResponse{
		Changed:    res.Changed,
		Points:     res.Balance,
		Completion: res.Completion,
		Coupon:     res.Coupon,
		List:       res.List,
		Item:       res.Item,
		Removed:    res.Removed,
	}
	if res.Activity != nil {
		dto := toActivityDTO(*res.Activity, loc)
		resp.Activity = &dto
	}
	return resp
}

// =============================================================================
// REWARDS
// =============================================================================

type RewardDTO struct {
	Key        string       `json:"key"`
	Label      string       `json:"label"`
	Cost       int          `json:"cost"`
	Tier       rewards.Tier `json:"tier"`
	Icon       string       `json:"icon"`
	Affordable bool         `json:"affordable"`
}

type TierDTO struct {
	Tier    rewards.Tier `json:"tier"`
	Rewards []RewardDTO  `json:"rewards"`
}

// CatalogResponse is the catalog grouped by tier, with affordability
// computed against the current balance.
type CatalogResponse struct {
	Points int       `json:"points"`
	Tiers  []TierDTO `json:"tiers"`
}

func toCatalogResponse(groups []rewards.TierGroup, balance int) CatalogResponse {
	resp := CatalogResponse{Points: balance, Tiers: make([]TierDTO, len(groups))}
	for i, g := range groups {
		tier := TierDTO{Tier: g.Tier, Rewards: make([]RewardDTO, len(g.Rewards))}
		for j, d := range g.Rewards {
			tier.Rewards[j] = RewardDTO{
				Key:        d.Key,
				Label:      d.Label,
				Cost:       d.Cost,
				Tier:       d.Tier,
				Icon:       d.Icon,
				Affordable: d.Cost <= balance,
			}
		}
		resp.Tiers[i] = tier
	}
	return resp
}

// =============================================================================
// CHECKLISTS
// =============================================================================

type ChecklistsResponse struct {
	Lists    []checklist.List `json:"lists"`
	ActiveID string           `json:"activeListId"`
}

type CreateListRequest struct {
	Name string `json:"name"`
}

type SelectListRequest struct {
	ID string `json:"id"`
}

type AddItemRequest struct {
	Text string `json:"text"`
}

// =============================================================================
// NAVIGATION
// =============================================================================

type SetDayRequest struct {
	Date string `json:"date"`
}

// ShiftRequest moves a cursor by N steps. N of zero means "today" for the
// month and year cursors.
type ShiftRequest struct {
	By int `json:"by"`
}

func (r ShiftRequest) within(limit int) bool { return r.By >= -limit && r.By <= limit }

type SetTabRequest struct {
	Tab session.Tab `json:"tab"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ShortfallDTO is the Details of an insufficient funds error.
type ShortfallDTO struct {
	Available int `json:"available"`
	Requested int `json:"requested"`
	Shortfall int `json:"shortfall"`
}
