package session

import (
	"github.com/warp/carepoints/calendar"
	"github.com/warp/carepoints/checklist"
	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/rewards"
	"github.com/warp/carepoints/schedule"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command is one named state transition. Commands are applied one at a
// time by Session.Dispatch.
type Command interface {
	// Op identifies the command in logs.
	Op() string

	apply(s *Session) (outcome, error)
}

// Result is what a command reports back.
type Result struct {
	// Changed is false when the command targeted an id that does not exist.
	Changed    bool                 `json:"changed"`
	Activity   *schedule.Activity   `json:"activity,omitempty"`
	Completion *schedule.Completion `json:"completion,omitempty"`
	Coupon     *rewards.Coupon      `json:"coupon,omitempty"`
	List       *checklist.List      `json:"list,omitempty"`
	Item       *checklist.Item      `json:"item,omitempty"`
	Removed    int                  `json:"removed,omitempty"`
	Balance    int                  `json:"balance"`
}

type outcome struct {
	result Result
	keys   []string
	change Change
}

func unchanged() (outcome, error) { return outcome{}, nil }

// =============================================================================
// ACTIVITIES
// =============================================================================

type AddActivity struct {
	Title    string
	Date     string
	Time     string
	Category schedule.Category
}

func (AddActivity) Op() string { return "add_activity" }

func (c AddActivity) apply(s *Session) (outcome, error) {
	a, err := s.events.Add(c.Title, c.Date, c.Time, c.Category)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		result: Result{Changed: true, Activity: &a},
		keys:   []string{KeyEvents},
		change: Change{Entity: EntityActivity, Action: ActionCreated, ID: a.ID},
	}, nil
}

// ToggleDone flips an activity's done flag. Marking it done earns the
// category's points; unmarking never takes them back.
type ToggleDone struct{ ID string }

func (ToggleDone) Op() string { return "toggle_done" }

func (c ToggleDone) apply(s *Session) (outcome, error) {
	if _, ok := s.events.Get(c.ID); !ok {
		return unchanged()
	}
	out := outcome{
		keys:   []string{KeyEvents},
		change: Change{Entity: EntityActivity, Action: ActionUpdated, ID: c.ID},
	}
	if done, ok := s.events.ToggleDone(c.ID); ok {
		s.ledger.Credit(done.Points, "Completed: "+done.Title, done.ActivityID,
			map[string]string{"category": string(done.Category)})
		out.result.Completion = &done
		out.keys = append(out.keys, KeyPoints, KeyLedger)
	}
	a, _ := s.events.Get(c.ID)
	out.result.Changed = true
	out.result.Activity = &a
	return out, nil
}

// UpdateActivity changes the title and/or time of an activity in one step.
// Nil fields are left alone. A bad clock rejects the whole update.
type UpdateActivity struct {
	ID    string
	Title *string
	Time  *string
}

func (UpdateActivity) Op() string { return "update_activity" }

func (c UpdateActivity) apply(s *Session) (outcome, error) {
	if c.Time != nil && !generic.ValidClock(*c.Time) {
		return outcome{}, generic.Invalid("time", "must be HH:MM")
	}
	if _, ok := s.events.Get(c.ID); !ok {
		return unchanged()
	}
	if c.Time != nil {
		if _, err := s.events.UpdateTime(c.ID, *c.Time); err != nil {
			return outcome{}, err
		}
	}
	if c.Title != nil {
		s.events.UpdateTitle(c.ID, *c.Title)
	}
	return s.activityUpdated(c.ID), nil
}

type UpdateTitle struct {
	ID    string
	Title string
}

func (UpdateTitle) Op() string { return "update_title" }

func (c UpdateTitle) apply(s *Session) (outcome, error) {
	return UpdateActivity{ID: c.ID, Title: &c.Title}.apply(s)
}

type UpdateTime struct {
	ID   string
	Time string
}

func (UpdateTime) Op() string { return "update_time" }

func (c UpdateTime) apply(s *Session) (outcome, error) {
	return UpdateActivity{ID: c.ID, Time: &c.Time}.apply(s)
}

type DeleteActivity struct{ ID string }

func (DeleteActivity) Op() string { return "delete_activity" }

func (c DeleteActivity) apply(s *Session) (outcome, error) {
	if !s.events.Delete(c.ID) {
		return unchanged()
	}
	return outcome{
		result: Result{Changed: true},
		keys:   []string{KeyEvents},
		change: Change{Entity: EntityActivity, Action: ActionDeleted, ID: c.ID},
	}, nil
}

// ClearDay deletes every activity on Date.
type ClearDay struct{ Date string }

func (ClearDay) Op() string { return "clear_day" }

func (c ClearDay) apply(s *Session) (outcome, error) {
	if _, err := generic.ParseDateKey(c.Date, s.loc); err != nil {
		return outcome{}, generic.Invalid("date", "must be YYYY-MM-DD")
	}
	n := s.events.ClearDay(c.Date)
	if n == 0 {
		return unchanged()
	}
	return outcome{
		result: Result{Changed: true, Removed: n},
		keys:   []string{KeyEvents},
		change: Change{Entity: EntityActivity, Action: ActionDeleted, ID: c.Date},
	}, nil
}

func (s *Session) activityUpdated(id string) outcome {
	a, _ := s.events.Get(id)
	return outcome{
		result: Result{Changed: true, Activity: &a},
		keys:   []string{KeyEvents},
		change: Change{Entity: EntityActivity, Action: ActionUpdated, ID: id},
	}
}

// =============================================================================
// REWARDS
// =============================================================================

type Redeem struct{ Reward string }

func (Redeem) Op() string { return "redeem" }

func (c Redeem) apply(s *Session) (outcome, error) {
	coupon, err := s.economy.Redeem(c.Reward)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		result: Result{Changed: true, Coupon: &coupon},
		keys:   economyKeys,
		change: Change{Entity: EntityCoupon, Action: ActionCreated, ID: coupon.ID},
	}, nil
}

type UseCoupon struct{ ID string }

func (UseCoupon) Op() string { return "use_coupon" }

func (c UseCoupon) apply(s *Session) (outcome, error) {
	if !s.economy.UseCoupon(c.ID) {
		return unchanged()
	}
	return outcome{
		result: Result{Changed: true},
		keys:   []string{KeyCoupons},
		change: Change{Entity: EntityCoupon, Action: ActionDeleted, ID: c.ID},
	}, nil
}

// =============================================================================
// CHECKLISTS
// =============================================================================

type AddList struct{ Name string }

func (AddList) Op() string { return "add_list" }

func (c AddList) apply(s *Session) (outcome, error) {
	l, err := s.board.AddList(c.Name)
	if err != nil {
		return outcome{}, err
	}
	return s.listChanged(ActionCreated, l.ID, Result{List: &l}), nil
}

type DeleteList struct{ ID string }

func (DeleteList) Op() string { return "delete_list" }

func (c DeleteList) apply(s *Session) (outcome, error) {
	if !s.board.DeleteList(c.ID) {
		return unchanged()
	}
	return s.listChanged(ActionDeleted, c.ID, Result{}), nil
}

type SelectList struct{ ID string }

func (SelectList) Op() string { return "select_list" }

func (c SelectList) apply(s *Session) (outcome, error) {
	if !s.board.Select(c.ID) {
		return unchanged()
	}
	return outcome{
		result: Result{Changed: true},
		keys:   []string{KeyActiveListID},
		change: Change{Entity: EntityView, Action: ActionUpdated, ID: KeyActiveListID},
	}, nil
}

// AddItem appends to ListID, or to the active list when ListID is empty.
type AddItem struct {
	ListID string
	Text   string
}

func (AddItem) Op() string { return "add_item" }

func (c AddItem) apply(s *Session) (outcome, error) {
	listID := s.listOrActive(c.ListID)
	it, err := s.board.AddItem(listID, c.Text)
	if err != nil {
		return outcome{}, err
	}
	return s.listChanged(ActionUpdated, listID, Result{Item: &it}), nil
}

type ToggleItem struct {
	ListID string
	ItemID string
}

func (ToggleItem) Op() string { return "toggle_item" }

func (c ToggleItem) apply(s *Session) (outcome, error) {
	listID := s.listOrActive(c.ListID)
	if !s.board.ToggleItem(listID, c.ItemID) {
		return unchanged()
	}
	return s.listChanged(ActionUpdated, listID, Result{}), nil
}

type DeleteItem struct {
	ListID string
	ItemID string
}

func (DeleteItem) Op() string { return "delete_item" }

func (c DeleteItem) apply(s *Session) (outcome, error) {
	listID := s.listOrActive(c.ListID)
	if !s.board.DeleteItem(listID, c.ItemID) {
		return unchanged()
	}
	return s.listChanged(ActionUpdated, listID, Result{}), nil
}

func (s *Session) listOrActive(id string) string {
	if id != "" {
		return id
	}
	return s.board.ActiveID()
}

func (s *Session) listChanged(action, id string, r Result) outcome {
	r.Changed = true
	return outcome{
		result: r,
		keys:   listKeys,
		change: Change{Entity: EntityChecklist, Action: action, ID: id},
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

// SetDay selects the day shown by the schedule. An empty Date means today.
type SetDay struct{ Date string }

func (SetDay) Op() string { return "set_day" }

func (c SetDay) apply(s *Session) (outcome, error) {
	day := c.Date
	if day == "" {
		day = generic.Today(s.now(), s.loc)
	}
	if _, err := generic.ParseDateKey(day, s.loc); err != nil {
		return outcome{}, generic.Invalid("date", "must be YYYY-MM-DD")
	}
	s.view.DayDate = day
	return s.viewChanged(KeyDayDate), nil
}

// ShiftDay moves the selected day by Days, clamped to
// ±calendar.MaxShiftDays.
type ShiftDay struct{ Days int }

func (ShiftDay) Op() string { return "shift_day" }

func (c ShiftDay) apply(s *Session) (outcome, error) {
	day, err := generic.ShiftDateKey(s.view.DayDate, calendar.ClampDays(c.Days), s.loc)
	if err != nil {
		return outcome{}, err
	}
	if _, err := generic.ParseDateKey(day, s.loc); err != nil {
		return outcome{}, generic.Invalid("days", "shift leaves the calendar")
	}
	s.view.DayDate = day
	return s.viewChanged(KeyDayDate), nil
}

// ShiftMonth moves the month cursor by Months in a single step. Zero
// resets it to the current month.
type ShiftMonth struct{ Months int }

func (ShiftMonth) Op() string { return "shift_month" }

func (c ShiftMonth) apply(s *Session) (outcome, error) {
	if c.Months == 0 {
		s.view.Month = s.thisMonth()
	} else {
		s.view.Month = s.view.Month.Add(c.Months)
	}
	return s.viewChanged(KeyMonthCursor), nil
}

// ShiftYear moves the year cursor by Years. Zero resets it to the current
// year.
type ShiftYear struct{ Years int }

func (ShiftYear) Op() string { return "shift_year" }

func (c ShiftYear) apply(s *Session) (outcome, error) {
	if c.Years == 0 {
		s.view.Year = s.thisYear()
	} else {
		s.view.Year = s.view.Year.Add(c.Years)
	}
	return s.viewChanged(KeyYearCursor), nil
}

type SetTab struct{ Tab Tab }

func (SetTab) Op() string { return "set_tab" }

func (c SetTab) apply(s *Session) (outcome, error) {
	if !c.Tab.Valid() {
		return outcome{}, generic.Invalid("tab", "unknown tab")
	}
	s.view.Tab = c.Tab
	return s.viewChanged(KeyTab), nil
}

func (s *Session) viewChanged(key string) outcome {
	return outcome{
		result: Result{Changed: true},
		keys:   []string{key},
		change: Change{Entity: EntityView, Action: ActionUpdated, ID: key},
	}
}
