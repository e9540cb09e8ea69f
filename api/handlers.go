/*
handlers.go - HTTP API handlers for the carepoints session

PURPOSE:
  Exposes the session via REST API. Handles HTTP request/response, JSON
  serialization, and delegates every mutation to session.Dispatch.

ENDPOINTS:
  State:
    GET    /api/snapshot                         Full state
    GET    /api/categories                       Category table

  Activities:
    POST   /api/activities                       Add activity
    PATCH  /api/activities/{id}                  Update title and/or time
    POST   /api/activities/{id}/toggle           Toggle done (earns points)
    DELETE /api/activities/{id}                  Delete activity
    DELETE /api/days/{date}                      Delete every activity on date

  Calendar:
    GET    /api/day?date=YYYY-MM-DD              Hour buckets (selected day if omitted)
    GET    /api/month?year=&month=               42-cell grid (cursor if omitted)
    GET    /api/year?year=                       Counts per month (cursor if omitted)

  Navigation:
    GET    /api/view                             Current view state
    PUT    /api/view/day                         Select a day (empty = today)
    POST   /api/view/day/shift                   Move selected day
    POST   /api/view/month/shift                 Move month cursor (0 = this month)
    POST   /api/view/year/shift                  Move year cursor (0 = this year)
    PUT    /api/view/tab                         Select tab

  Rewards:
    GET    /api/rewards                          Catalog by tier
    POST   /api/rewards/{key}/redeem             Spend points for a coupon
    GET    /api/wallet                           Balance, coupons, redemptions
    POST   /api/coupons/{id}/use                 Consume a coupon
    GET    /api/ledger                           Point transactions

  Checklists:
    GET    /api/checklists                       Lists and active id
    POST   /api/checklists                       Create list
    PUT    /api/checklists/active                Select list
    DELETE /api/checklists/{id}                  Delete list
    POST   /api/checklists/{id}/items            Add item
    POST   /api/checklists/{id}/items/{item}/toggle
    DELETE /api/checklists/{id}/items/{item}

  Live:
    GET    /api/ws                               Change feed (websocket)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed dates or clocks
  - 404: Unknown id or reward key (the command left state untouched)
  - 409: Insufficient points
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The server is meant for one household on a trusted
  network.

SEE ALSO:
  - dto.go: Request/response data structures
  - hub.go: Websocket change feed
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/carepoints/calendar"
	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/points"
	"github.com/warp/carepoints/rewards"
	"github.com/warp/carepoints/schedule"
	"github.com/warp/carepoints/session"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Session *session.Session
	Hub     *Hub

	log         *zap.Logger
	unsubscribe func()
}

// NewHandler wires the session's change feed into hub.
func NewHandler(s *session.Session, hub *Hub, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(log)
	}
	h := &Handler{
		Session: s,
		Hub:     hub,
		log:     log.Named("api"),
	}
	h.unsubscribe = s.Subscribe(func(c session.Change) {
		hub.Broadcast(NewMessage(c))
	})
	return h
}

// Close detaches the handler from the session's change feed.
func (h *Handler) Close() {
	h.unsubscribe()
}

// =============================================================================
// STATE
// =============================================================================

// GetSnapshot returns the whole state.
// GET /api/snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

// ListCategories returns the category table with point values.
// GET /api/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schedule.Categories())
}

// =============================================================================
// ACTIVITY HANDLERS
// =============================================================================

// CreateActivity adds an activity.
// POST /api/activities
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req AddActivityRequest
	if !decode(w, r, &req) {
		return
	}
	h.dispatch(w, http.StatusCreated, "", session.AddActivity{
		Title:    req.Title,
		Date:     req.Date,
		Time:     req.Time,
		Category: req.Category,
	})
}

// UpdateActivity applies the title and time present in the body as one
// command. A bad clock rejects the whole request.
// PATCH /api/activities/{id}
func (h *Handler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateActivityRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Title == nil && req.Time == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update", nil)
		return
	}
	h.dispatch(w, http.StatusOK, "Activity not found", session.UpdateActivity{
		ID:    id,
		Title: req.Title,
		Time:  req.Time,
	})
}

// ToggleActivity flips done. Marking done earns the category's points.
// POST /api/activities/{id}/toggle
func (h *Handler) ToggleActivity(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, http.StatusOK, "Activity not found", session.ToggleDone{ID: chi.URLParam(r, "id")})
}

// DeleteActivity removes an activity. Points already earned stay.
// DELETE /api/activities/{id}
func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, http.StatusOK, "Activity not found", session.DeleteActivity{ID: chi.URLParam(r, "id")})
}

// ClearDay removes every activity on a date. An empty day is not an error.
// DELETE /api/days/{date}
func (h *Handler) ClearDay(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, http.StatusOK, "", session.ClearDay{Date: chi.URLParam(r, "date")})
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// GetDay returns the hour buckets of a day.
// GET /api/day?date=YYYY-MM-DD
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.Session.Day(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	writeJSON(w, http.StatusOK, toDayDTO(day, h.Session.Location()))
}

// GetMonth returns the month grid. Month is 1-12.
// GET /api/month?year=2024&month=3
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("year") == "" && q.Get("month") == "" {
		writeJSON(w, http.StatusOK, h.Session.Month(0, 0))
		return
	}

	year, err := queryInt(r, "year")
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month (use 1-12)", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Month(year, time.Month(month)))
}

// GetYear returns activity counts per month.
// GET /api/year?year=2024
func (h *Handler) GetYear(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("year") == "" {
		writeJSON(w, http.StatusOK, h.Session.Year(0))
		return
	}
	year, err := queryInt(r, "year")
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Session.Year(year))
}

// =============================================================================
// NAVIGATION HANDLERS
// =============================================================================

// GetView returns the persisted navigation state.
// GET /api/view
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.View())
}

// SetDay selects the schedule's day.
// PUT /api/view/day
func (h *Handler) SetDay(w http.ResponseWriter, r *http.Request) {
	var req SetDayRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	h.navigate(w, session.SetDay{Date: req.Date})
}

// ShiftDay moves the selected day.
// POST /api/view/day/shift
func (h *Handler) ShiftDay(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if !req.within(calendar.MaxShiftDays) {
		writeError(w, http.StatusBadRequest, "Shift out of range", nil)
		return
	}
	h.navigate(w, session.ShiftDay{Days: req.By})
}

// ShiftMonth moves the month cursor.
// POST /api/view/month/shift
func (h *Handler) ShiftMonth(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if !req.within(calendar.MaxShiftMonths) {
		writeError(w, http.StatusBadRequest, "Shift out of range", nil)
		return
	}
	h.navigate(w, session.ShiftMonth{Months: req.By})
}

// ShiftYear moves the year cursor.
// POST /api/view/year/shift
func (h *Handler) ShiftYear(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if !req.within(calendar.MaxShiftYears) {
		writeError(w, http.StatusBadRequest, "Shift out of range", nil)
		return
	}
	h.navigate(w, session.ShiftYear{Years: req.By})
}

// SetTab selects the visible tab.
// PUT /api/view/tab
func (h *Handler) SetTab(w http.ResponseWriter, r *http.Request) {
	var req SetTabRequest
	if !decode(w, r, &req) {
		return
	}
	h.navigate(w, session.SetTab{Tab: req.Tab})
}

func (h *Handler) navigate(w http.ResponseWriter, cmd session.Command) {
	if _, err := h.Session.Dispatch(cmd); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Session.View())
}

// =============================================================================
// REWARD HANDLERS
// =============================================================================

// GetCatalog returns the rewards grouped by tier.
// GET /api/rewards
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toCatalogResponse(rewards.ByTier(), h.Session.Balance()))
}

// Redeem spends points on a reward and returns the new coupon.
// POST /api/rewards/{key}/redeem
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, http.StatusCreated, "", session.Redeem{Reward: chi.URLParam(r, "key")})
}

// GetWallet returns balance, unused coupons and redemption history.
// GET /api/wallet
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.Wallet())
}

// UseCoupon consumes a coupon. No points are refunded.
// POST /api/coupons/{id}/use
func (h *Handler) UseCoupon(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, http.StatusOK, "Coupon not found", session.UseCoupon{ID: chi.URLParam(r, "id")})
}

// GetLedger returns every point transaction, oldest first, with totals.
// GET /api/ledger
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": h.Session.Ledger(),
		"totals":       h.Session.Totals(),
	})
}

// =============================================================================
// CHECKLIST HANDLERS
// =============================================================================

// ListChecklists returns every list and the active one.
// GET /api/checklists
func (h *Handler) ListChecklists(w http.ResponseWriter, r *http.Request) {
	lists, active := h.Session.Checklists()
	writeJSON(w, http.StatusOK, ChecklistsResponse{Lists: lists, ActiveID: active})
}

// CreateList adds a list and makes it active.
// POST /api/checklists
func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req CreateListRequest
	if !decode(w, r, &req) {
		return
	}
	h.dispatch(w, http.StatusCreated, "", session.AddList{Name: req.Name})
}

// SelectList makes a list active.
// PUT /api/checklists/active
func (h *Handler) SelectList(w http.ResponseWriter, r *http.Request) {
	var req SelectListRequest
	if !decode(w, r, &req) {
		return
	}
	h.dispatch(w, http.StatusOK, "List not found", session.SelectList{ID: req.ID})
}

// DeleteList removes a list.
// DELETE /api/checklists/{id}
func (h *Handler) DeleteList(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, http.StatusOK, "List not found", session.DeleteList{ID: chi.URLParam(r, "id")})
}

// AddItem appends an item to a list.
// POST /api/checklists/{id}/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	h.dispatch(w, http.StatusCreated, "", session.AddItem{ListID: chi.URLParam(r, "id"), Text: req.Text})
}

// ToggleItem flips an item's done flag.
// POST /api/checklists/{id}/items/{item}/toggle
func (h *Handler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, http.StatusOK, "Item not found", session.ToggleItem{
		ListID: chi.URLParam(r, "id"),
		ItemID: chi.URLParam(r, "item"),
	})
}

// DeleteItem removes an item.
// DELETE /api/checklists/{id}/items/{item}
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, http.StatusOK, "Item not found", session.DeleteItem{
		ListID: chi.URLParam(r, "id"),
		ItemID: chi.URLParam(r, "item"),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// dispatch runs cmd and writes its result. A command that changed nothing
// is reported as 404 with notFound, unless notFound is empty.
func (h *Handler) dispatch(w http.ResponseWriter, status int, notFound string, cmd session.Command) {
	res, err := h.Session.Dispatch(cmd)
	if err != nil {
		if !generic.IsClientError(err) && !generic.IsNotFound(err) {
			h.log.Error("command failed", zap.String("op", cmd.Op()), zap.Error(err))
		}
		writeCommandError(w, err)
		return
	}
	if !res.Changed && notFound != "" {
		writeError(w, http.StatusNotFound, notFound, nil)
		return
	}
	writeJSON(w, status, toCommandResponse(res, h.Session.Location()))
}

// writeCommandError maps a command error to its HTTP status.
func writeCommandError(w http.ResponseWriter, err error) {
	var funds *points.InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		details := ShortfallDTO{
			Available: funds.Available,
			Requested: funds.Requested,
			Shortfall: funds.Shortfall(),
		}
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "Not enough points",
			Code:    "insufficient_funds",
			Details: details,
		})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// decodeOptional is decode that accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func queryInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.URL.Query().Get(name))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
