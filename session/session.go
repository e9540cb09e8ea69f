/*
Package session owns the whole in-memory state of one user and applies
commands to it.

PURPOSE:
  One place where every mutation happens. The HTTP layer may call in from
  many goroutines; the session serialises them so each command sees and
  leaves a consistent state (ledger, events, coupons, lists, view).

FLOW:
  1. Open loads every key from the store (defaults on any failure)
  2. Dispatch applies one Command under the session lock
  3. The keys the command touched are encoded and queued for the writer
  4. Subscribers are told what changed
  5. Reads (Snapshot, Day, Month, ...) recompute from current state

PERSISTENCE:
  The writer runs in the background and never blocks a command. A failed
  write is logged and forgotten; the next write of the same key carries
  the full value again.

SEE ALSO:
  - commands.go: Every state transition
  - state.go:    Storage keys, load and encode
  - writer.go:   Coalescing background writer
*/
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/carepoints/calendar"
	"github.com/warp/carepoints/checklist"
	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/points"
	"github.com/warp/carepoints/rewards"
	"github.com/warp/carepoints/schedule"
)

// =============================================================================
// VIEW STATE
// =============================================================================

type Tab string

const (
	TabSchedule   Tab = "schedule"
	TabMonth      Tab = "month"
	TabYear       Tab = "year"
	TabRewards    Tab = "rewards"
	TabChecklists Tab = "checklists"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabSchedule, TabMonth, TabYear, TabRewards, TabChecklists}

func (t Tab) Valid() bool {
	for _, v := range Tabs {
		if v == t {
			return true
		}
	}
	return false
}

// View is the navigation state that survives restarts.
type View struct {
	DayDate      string               `json:"dayDate"`
	Month        calendar.MonthCursor `json:"monthCursor"`
	Year         calendar.YearCursor  `json:"yearCursor"`
	Tab          Tab                  `json:"tab"`
	ActiveListID string               `json:"activeListId"`
}

// =============================================================================
// CHANGE FEED
// =============================================================================

const (
	EntityActivity  = "activity"
	EntityCoupon    = "coupon"
	EntityChecklist = "checklist"
	EntityView      = "view"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Change describes the effect of one successful command.
type Change struct {
	Op     string `json:"op"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
}

// =============================================================================
// SESSION
// =============================================================================

type Options struct {
	Store    generic.Store
	Location *time.Location
	Now      generic.Clock
	NewID    generic.IDFunc
	Logger   *zap.Logger

	// WriteTimeout bounds each background store write. Default 5s.
	WriteTimeout time.Duration
}

type Session struct {
	mu sync.Mutex

	store generic.Store
	loc   *time.Location
	now   generic.Clock
	log   *zap.Logger

	events    *schedule.EventStore
	ledger    *points.Ledger
	inventory *rewards.Inventory
	economy   *rewards.Economy
	board     *checklist.Board
	projector *calendar.Projector
	view      View

	writer *writer

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// Open builds a session from whatever the store holds. Missing or corrupt
// values fall back to defaults; the normalised state is written back.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = generic.NewID
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	s := &Session{
		store:     opts.Store,
		loc:       opts.Location,
		now:       opts.Now,
		log:       opts.Logger.Named("session"),
		events:    schedule.NewEventStore(opts.Location, opts.NewID),
		ledger:    points.NewLedger(opts.Now),
		inventory: rewards.NewInventory(),
		board:     checklist.NewBoard(opts.NewID),
		subs:      make(map[int]func(Change)),
	}
	s.economy = rewards.NewEconomy(s.ledger, s.inventory, opts.Now, opts.NewID)
	s.projector = calendar.NewProjector(s.events)

	if err := s.load(ctx); err != nil {
		return nil, err
	}

	s.writer = newWriter(opts.Store, s.log, opts.WriteTimeout)
	s.persist(Keys...)

	s.log.Info("session opened",
		zap.Int("events", s.events.Len()),
		zap.Int("balance", s.ledger.Balance()),
		zap.Int("coupons", s.inventory.Len()))
	return s, nil
}

// Dispatch applies cmd. Validation failures and insufficient funds are
// returned as errors and leave the state untouched.
func (s *Session) Dispatch(cmd Command) (Result, error) {
	s.mu.Lock()
	out, err := cmd.apply(s)
	if err != nil {
		s.mu.Unlock()
		s.log.Debug("command rejected", zap.String("op", cmd.Op()), zap.Error(err))
		return Result{}, err
	}
	if out.result.Changed {
		s.persist(out.keys...)
	}
	out.result.Balance = s.ledger.Balance()
	s.mu.Unlock()

	if out.result.Changed {
		out.change.Op = cmd.Op()
		s.publish(out.change)
	}
	return out.result, nil
}

// Subscribe registers fn for every change. The returned func removes it.
// fn runs on the dispatching goroutine and must not call Dispatch.
func (s *Session) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) publish(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Flush waits until queued writes have been attempted.
func (s *Session) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

// Close drains the writer. The store itself is left open.
func (s *Session) Close() error {
	s.writer.close()
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Snapshot is a deep copy of the full state.
type Snapshot struct {
	Events      []schedule.Activity  `json:"events"`
	Balance     int                  `json:"points"`
	Ledger      []points.Transaction `json:"ledger"`
	Redemptions []rewards.Redemption `json:"redemptions"`
	Coupons     []rewards.Coupon     `json:"coupons"`
	Checklists  []checklist.List     `json:"checklists"`
	View        View                 `json:"view"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Events:      s.events.All(),
		Balance:     s.ledger.Balance(),
		Ledger:      s.ledger.History(),
		Redemptions: nonNil(s.economy.Redemptions()),
		Coupons:     s.inventory.All(),
		Checklists:  s.board.Lists(),
		View:        s.currentView(),
	}
}

// Location is the zone date keys and hours are computed in.
func (s *Session) Location() *time.Location { return s.loc }

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentView()
}

func (s *Session) currentView() View {
	v := s.view
	v.ActiveListID = s.board.ActiveID()
	return v
}

func (s *Session) Balance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance()
}

func (s *Session) Totals() points.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Totals()
}

func (s *Session) Activity(id string) (schedule.Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Get(id)
}

// Day returns the day view for dateKey, or for the selected day when
// dateKey is empty.
func (s *Session) Day(dateKey string) (calendar.DayView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dateKey == "" {
		dateKey = s.view.DayDate
	}
	if _, err := generic.ParseDateKey(dateKey, s.loc); err != nil {
		return calendar.DayView{}, err
	}
	return s.projector.Day(dateKey), nil
}

// Month returns the grid for year/month, or for the month cursor when
// year is zero.
func (s *Session) Month(year int, month time.Month) calendar.MonthGrid {
	s.mu.Lock()
	defer s.mu.Unlock()

	if year == 0 {
		year, month = s.view.Month.Year(), s.view.Month.Month()
	}
	return s.projector.MonthGrid(year, month)
}

// Year returns the year summary, or the year cursor's when year is zero.
func (s *Session) Year(year int) calendar.YearView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if year == 0 {
		year = int(s.view.Year)
	}
	return s.projector.Year(year)
}

// Wallet is everything the rewards screen shows.
type Wallet struct {
	Balance     int                  `json:"points"`
	Coupons     []rewards.Coupon     `json:"coupons"`
	Redemptions []rewards.Redemption `json:"redemptions"`
}

func (s *Session) Wallet() Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Wallet{
		Balance:     s.ledger.Balance(),
		Coupons:     s.inventory.List(),
		Redemptions: nonNil(s.economy.Redemptions()),
	}
}

func (s *Session) Ledger() []points.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.History()
}

// Checklists returns every list and the active list id.
func (s *Session) Checklists() ([]checklist.List, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Lists(), s.board.ActiveID()
}

func (s *Session) thisMonth() calendar.MonthCursor {
	return calendar.CursorFor(s.now().In(s.loc))
}

func (s *Session) thisYear() calendar.YearCursor {
	return calendar.YearCursor(s.now().In(s.loc).Year())
}
