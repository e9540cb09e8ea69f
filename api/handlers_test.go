/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Activity CRUD and point earning
- Calendar projections and navigation
- Redemption and error status mapping
- Checklist endpoints
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/generic/store"
	"github.com/warp/carepoints/schedule"
	"github.com/warp/carepoints/session"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var t0 = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	s, err := session.Open(context.Background(), session.Options{
		Store:    store.NewMemory(),
		Location: time.UTC,
		Now:      generic.FixedClock(t0),
		NewID:    generic.SequentialIDs("id"),
	})
	require.NoError(t, err)

	h := NewHandler(s, NewHub(nil), nil)
	t.Cleanup(func() {
		h.Close()
		s.Close()
	})
	return h, NewRouter(h, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func addActivity(t *testing.T, router http.Handler, title string, cat schedule.Category, hhmm string) ActivityDTO {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/activities", AddActivityRequest{
		Title: title, Date: "2024-03-01", Time: hhmm, Category: cat,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeAs[CommandResponse](t, rec)
	require.NotNil(t, resp.Activity)
	return *resp.Activity
}

// earn completes enough Doctor activities to reach at least n points.
func earn(t *testing.T, router http.Handler, n int) {
	t.Helper()
	for got := 0; got < n; got += schedule.CategoryDoctor.Points() {
		a := addActivity(t, router, "Visit", schedule.CategoryDoctor, "08:00")
		rec := do(t, router, http.MethodPost, "/api/activities/"+a.ID+"/toggle", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

// =============================================================================
// ACTIVITIES
// =============================================================================

func TestCreateActivity(t *testing.T) {
	_, router := newTestRouter(t)

	a := addActivity(t, router, "  Checkup ", schedule.CategoryDoctor, "10:30")

	assert.Equal(t, "2024-03-01", a.Date)
	assert.Equal(t, "10:30", a.Time)
	assert.Equal(t, "Checkup", a.Title)
	assert.Equal(t, "Checkup", a.DisplayTitle)
	assert.Equal(t, "Doctor", a.CategoryLabel)
	assert.Equal(t, 20, a.Points)
	assert.False(t, a.Done)
}

func TestCreateActivity_Rejected(t *testing.T) {
	_, router := newTestRouter(t)

	tests := []struct {
		name string
		body any
	}{
		{"bad date", AddActivityRequest{Title: "Nap", Date: "2024-13-01", Time: "10:00", Category: schedule.CategoryNap}},
		{"bad time", AddActivityRequest{Title: "Nap", Date: "2024-03-01", Time: "25:00", Category: schedule.CategoryNap}},
		{"no title", AddActivityRequest{Date: "2024-03-01", Time: "10:00", Category: schedule.CategoryNap}},
		{"not json", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/activities", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestToggleActivity_EarnsPoints(t *testing.T) {
	// GIVEN: A Feeding activity
	// WHEN: Toggling it done through the API
	// THEN: The response carries the completion and the new balance

	_, router := newTestRouter(t)
	a := addActivity(t, router, "Bottle", schedule.CategoryFeeding, "07:00")

	rec := do(t, router, http.MethodPost, "/api/activities/"+a.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeAs[CommandResponse](t, rec)
	assert.Equal(t, 8, resp.Points)
	require.NotNil(t, resp.Completion)
	assert.Equal(t, a.ID, resp.Completion.ActivityID)
	require.NotNil(t, resp.Activity)
	assert.True(t, resp.Activity.Done)

	// Undo keeps the points
	rec = do(t, router, http.MethodPost, "/api/activities/"+a.ID+"/toggle", nil)
	resp = decodeAs[CommandResponse](t, rec)
	assert.Equal(t, 8, resp.Points)
	assert.Nil(t, resp.Completion)
}

func TestToggleActivity_UnknownIs404(t *testing.T) {
	_, router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/activities/missing/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateActivity(t *testing.T) {
	h, router := newTestRouter(t)
	a := addActivity(t, router, "Nap", schedule.CategoryNap, "13:00")

	title, clock := "Long nap", "14:15"
	rec := do(t, router, http.MethodPatch, "/api/activities/"+a.ID, UpdateActivityRequest{Title: &title, Time: &clock})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeAs[CommandResponse](t, rec)
	require.NotNil(t, resp.Activity)
	assert.Equal(t, "Long nap", resp.Activity.Title)
	assert.Equal(t, "14:15", resp.Activity.Time)
	assert.Equal(t, "2024-03-01", resp.Activity.Date)

	// A bad clock rejects the whole request
	bad := "9pm"
	other := "Ignored"
	rec = do(t, router, http.MethodPatch, "/api/activities/"+a.ID, UpdateActivityRequest{Title: &other, Time: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	got, ok := h.Session.Activity(a.ID)
	require.True(t, ok)
	assert.Equal(t, "Long nap", got.Title)

	// Clearing the title is allowed and renders as untitled
	empty := ""
	rec = do(t, router, http.MethodPatch, "/api/activities/"+a.ID, UpdateActivityRequest{Title: &empty})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, schedule.UntitledLabel, decodeAs[CommandResponse](t, rec).Activity.DisplayTitle)

	rec = do(t, router, http.MethodPatch, "/api/activities/"+a.ID, UpdateActivityRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPatch, "/api/activities/missing", UpdateActivityRequest{Title: &title})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteActivityAndClearDay(t *testing.T) {
	h, router := newTestRouter(t)
	a := addActivity(t, router, "Bath", schedule.CategoryBath, "18:00")
	addActivity(t, router, "Play", schedule.CategoryPlay, "16:00")
	addActivity(t, router, "Class", schedule.CategoryClass, "11:00")

	rec := do(t, router, http.MethodDelete, "/api/activities/"+a.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodDelete, "/api/activities/"+a.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/days/2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeAs[CommandResponse](t, rec).Removed)
	assert.Empty(t, h.Session.Snapshot().Events)

	// Clearing an empty day is fine
	rec = do(t, router, http.MethodDelete, "/api/days/2024-03-01", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeAs[CommandResponse](t, rec).Changed)

	rec = do(t, router, http.MethodDelete, "/api/days/March-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestGetDay(t *testing.T) {
	_, router := newTestRouter(t)
	addActivity(t, router, "Late", schedule.CategoryFeeding, "10:45")
	addActivity(t, router, "Early", schedule.CategoryFeeding, "10:05")

	rec := do(t, router, http.MethodGet, "/api/day", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	day := decodeAs[DayDTO](t, rec)
	assert.Equal(t, "2024-03-01", day.Date)
	require.Len(t, day.Hours, 24)
	assert.Equal(t, 2, day.Total)
	require.Len(t, day.Hours[10].Items, 2)
	assert.Equal(t, "Early", day.Hours[10].Items[0].Title)

	rec = do(t, router, http.MethodGet, "/api/day?date=2024-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decodeAs[DayDTO](t, rec).Total)

	rec = do(t, router, http.MethodGet, "/api/day?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMonthAndYear(t *testing.T) {
	_, router := newTestRouter(t)
	addActivity(t, router, "Play", schedule.CategoryPlay, "09:00")

	rec := do(t, router, http.MethodGet, "/api/month", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var grid struct {
		Year  int               `json:"year"`
		Month int               `json:"month"`
		Cells []json.RawMessage `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, 2024, grid.Year)
	assert.Equal(t, 3, grid.Month)
	assert.Len(t, grid.Cells, 42)

	rec = do(t, router, http.MethodGet, "/api/month?year=2024&month=12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, 12, grid.Month)

	for _, q := range []string{"year=2024&month=13", "year=2024&month=0", "year=x&month=1", "month=4"} {
		rec = do(t, router, http.MethodGet, "/api/month?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec = do(t, router, http.MethodGet, "/api/year", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var year struct {
		Year   int `json:"year"`
		Total  int `json:"total"`
		Months []struct {
			Count int `json:"count"`
		} `json:"months"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &year))
	assert.Equal(t, 2024, year.Year)
	assert.Equal(t, 1, year.Total)
	require.Len(t, year.Months, 12)
	assert.Equal(t, 1, year.Months[2].Count)

	rec = do(t, router, http.MethodGet, "/api/year?year=2023", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &year))
	assert.Zero(t, year.Total)
}

// =============================================================================
// NAVIGATION
// =============================================================================

func TestNavigation(t *testing.T) {
	_, router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/view/day/shift", ShiftRequest{By: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-02", decodeAs[session.View](t, rec).DayDate)

	// Empty body selects today
	rec = do(t, router, http.MethodPut, "/api/view/day", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-01", decodeAs[session.View](t, rec).DayDate)

	rec = do(t, router, http.MethodPost, "/api/view/month/shift", ShiftRequest{By: -3})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeAs[session.View](t, rec)
	assert.Equal(t, 2023, v.Month.Year())
	assert.Equal(t, time.December, v.Month.Month())

	rec = do(t, router, http.MethodPost, "/api/view/month/shift", ShiftRequest{By: 0})
	assert.Equal(t, time.March, decodeAs[session.View](t, rec).Month.Month())

	rec = do(t, router, http.MethodPost, "/api/view/year/shift", ShiftRequest{By: 2})
	assert.EqualValues(t, 2026, decodeAs[session.View](t, rec).Year)

	for _, path := range []string{"/api/view/day/shift", "/api/view/month/shift", "/api/view/year/shift"} {
		rec = do(t, router, http.MethodPost, path, ShiftRequest{By: 1 << 40})
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec = do(t, router, http.MethodPut, "/api/view/tab", SetTabRequest{Tab: session.TabRewards})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.TabRewards, decodeAs[session.View](t, rec).Tab)

	rec = do(t, router, http.MethodPut, "/api/view/tab", SetTabRequest{Tab: "settings"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/view/day", SetDayRequest{Date: "02/03/2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/view", nil)
	assert.Equal(t, session.TabRewards, decodeAs[session.View](t, rec).Tab)
}

// =============================================================================
// REWARDS
// =============================================================================

func TestGetCatalog(t *testing.T) {
	_, router := newTestRouter(t)
	earn(t, router, 20)

	rec := do(t, router, http.MethodGet, "/api/rewards", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cat := decodeAs[CatalogResponse](t, rec)
	assert.Equal(t, 20, cat.Points)
	require.Len(t, cat.Tiers, 4)

	total, affordable := 0, 0
	for _, tier := range cat.Tiers {
		for _, r := range tier.Rewards {
			total++
			if r.Affordable {
				affordable++
			}
		}
	}
	assert.Equal(t, 16, total)
	assert.Equal(t, 3, affordable, "foot, back, diapers3")
}

func TestRedeem_InsufficientFundsIs409(t *testing.T) {
	// GIVEN: Balance 0
	// WHEN: Redeeming a 10 point reward
	// THEN: 409 with the shortfall, and the wallet is unchanged

	h, router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/rewards/foot/redeem", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Code    string       `json:"code"`
		Details ShortfallDTO `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_funds", resp.Code)
	assert.Equal(t, ShortfallDTO{Available: 0, Requested: 10, Shortfall: 10}, resp.Details)

	assert.Empty(t, h.Session.Wallet().Coupons)
}

func TestRedeem_UnknownRewardIs404(t *testing.T) {
	_, router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/rewards/pony/redeem", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedeemAndUseCoupon(t *testing.T) {
	_, router := newTestRouter(t)
	earn(t, router, 40)

	rec := do(t, router, http.MethodPost, "/api/rewards/back/redeem", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeAs[CommandResponse](t, rec)
	assert.Equal(t, 25, resp.Points)
	require.NotNil(t, resp.Coupon)
	assert.Equal(t, "back", resp.Coupon.RewardKey)

	rec = do(t, router, http.MethodGet, "/api/wallet", nil)
	wallet := decodeAs[session.Wallet](t, rec)
	assert.Equal(t, 25, wallet.Balance)
	require.Len(t, wallet.Coupons, 1)
	require.Len(t, wallet.Redemptions, 1)

	couponPath := "/api/coupons/" + resp.Coupon.ID + "/use"
	rec = do(t, router, http.MethodPost, couponPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, decodeAs[CommandResponse](t, rec).Points, "using a coupon never refunds")

	rec = do(t, router, http.MethodPost, couponPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/wallet", nil)
	wallet = decodeAs[session.Wallet](t, rec)
	assert.Empty(t, wallet.Coupons)
	assert.Len(t, wallet.Redemptions, 1)
}

func TestGetLedger(t *testing.T) {
	_, router := newTestRouter(t)
	earn(t, router, 20)
	do(t, router, http.MethodPost, "/api/rewards/foot/redeem", nil)

	rec := do(t, router, http.MethodGet, "/api/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transactions []json.RawMessage `json:"transactions"`
		Totals       struct {
			Earned  int `json:"earned"`
			Spent   int `json:"spent"`
			Balance int `json:"balance"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Transactions, 2)
	assert.Equal(t, 20, resp.Totals.Earned)
	assert.Equal(t, 10, resp.Totals.Spent)
	assert.Equal(t, 10, resp.Totals.Balance)
}

// =============================================================================
// CHECKLISTS
// =============================================================================

func TestChecklists(t *testing.T) {
	_, router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/checklists", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lists := decodeAs[ChecklistsResponse](t, rec)
	require.Len(t, lists.Lists, 2)
	assert.Equal(t, lists.Lists[0].ID, lists.ActiveID)

	rec = do(t, router, http.MethodPost, "/api/checklists", CreateListRequest{Name: "  Pharmacy "})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeAs[CommandResponse](t, rec).List
	require.NotNil(t, created)
	assert.Equal(t, "Pharmacy", created.Name)

	rec = do(t, router, http.MethodPost, "/api/checklists", CreateListRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	itemsPath := "/api/checklists/" + created.ID + "/items"
	rec = do(t, router, http.MethodPost, itemsPath, AddItemRequest{Text: "Vitamin D"})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decodeAs[CommandResponse](t, rec).Item
	require.NotNil(t, item)

	rec = do(t, router, http.MethodPost, itemsPath, AddItemRequest{Text: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, itemsPath+"/"+item.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/checklists", nil)
	lists = decodeAs[ChecklistsResponse](t, rec)
	assert.Equal(t, created.ID, lists.ActiveID)
	require.Len(t, lists.Lists, 3)
	require.Len(t, lists.Lists[2].Items, 1)
	assert.True(t, lists.Lists[2].Items[0].Done)

	rec = do(t, router, http.MethodDelete, itemsPath+"/"+item.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodDelete, itemsPath+"/"+item.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/checklists/active", SelectListRequest{ID: lists.Lists[1].ID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPut, "/api/checklists/active", SelectListRequest{ID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/checklists/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/checklists", nil)
	assert.Len(t, decodeAs[ChecklistsResponse](t, rec).Lists, 2)
}

// =============================================================================
// STATE
// =============================================================================

func TestGetSnapshotAndCategories(t *testing.T) {
	_, router := newTestRouter(t)
	earn(t, router, 20)

	rec := do(t, router, http.MethodGet, "/api/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeAs[session.Snapshot](t, rec)
	assert.Equal(t, 20, snap.Balance)
	assert.Len(t, snap.Events, 1)
	assert.Len(t, snap.Ledger, 1)

	rec = do(t, router, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decodeAs[[]schedule.CategoryInfo](t, rec)
	assert.Len(t, cats, 8)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t)
	router := NewRouter(h, []string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/api/activities", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
