package session

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/carepoints/calendar"
	"github.com/warp/carepoints/checklist"
	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/points"
	"github.com/warp/carepoints/rewards"
	"github.com/warp/carepoints/schedule"
)

// =============================================================================
// STORAGE KEYS
// =============================================================================

const (
	KeyEvents       = "events"
	KeyPoints       = "points"
	KeyLedger       = "ledger"
	KeyRedemptions  = "redemptions"
	KeyCoupons      = "coupons"
	KeyChecklists   = "checklists"
	KeyDayDate      = "dayDate"
	KeyMonthCursor  = "monthCursor"
	KeyYearCursor   = "yearCursor"
	KeyActiveListID = "activeListId"
	KeyTab          = "tab"
)

// Keys lists every key the session reads and writes.
var Keys = []string{
	KeyEvents, KeyPoints, KeyLedger, KeyRedemptions, KeyCoupons, KeyChecklists,
	KeyDayDate, KeyMonthCursor, KeyYearCursor, KeyActiveListID, KeyTab,
}

// Key groups touched by the common commands.
var (
	economyKeys = []string{KeyPoints, KeyLedger, KeyRedemptions, KeyCoupons}
	listKeys    = []string{KeyChecklists, KeyActiveListID}
)

// =============================================================================
// LOAD
// =============================================================================

// load reads every key, falling back to its default when the value is absent
// or cannot be decoded. Only a failure to mint seed ids is returned.
func (s *Session) load(ctx context.Context) error {
	var acts []schedule.Activity
	if s.read(ctx, KeyEvents, &acts) {
		s.events.Restore(acts)
	}

	s.loadLedger(ctx)

	var coupons []rewards.Coupon
	if s.read(ctx, KeyCoupons, &coupons) {
		s.inventory.Restore(coupons)
	}

	var lists []checklist.List
	var active string
	s.read(ctx, KeyActiveListID, &active)
	if s.read(ctx, KeyChecklists, &lists) {
		s.board.Restore(lists, active)
	} else if err := s.board.Seed(); err != nil {
		return fmt.Errorf("seed checklists: %w", err)
	}

	s.loadView(ctx)
	return nil
}

func (s *Session) loadLedger(ctx context.Context) {
	var history []points.Transaction
	if s.read(ctx, KeyLedger, &history) {
		err := s.ledger.Restore(history)
		if err == nil {
			return
		}
		s.log.Warn("discarding stored ledger", zap.Error(err))
	}

	var balance int
	var reds []rewards.Redemption
	s.read(ctx, KeyPoints, &balance)
	s.read(ctx, KeyRedemptions, &reds)

	if err := rewards.RebuildLedger(s.ledger, balance, reds, s.now()); err != nil {
		s.log.Warn("cannot rebuild ledger from stored points",
			zap.Int("points", balance), zap.Int("redemptions", len(reds)), zap.Error(err))
		_ = s.ledger.Restore(nil)
	}
}

func (s *Session) loadView(ctx context.Context) {
	now := s.now()

	s.view.DayDate = generic.Today(now, s.loc)
	var day string
	if s.read(ctx, KeyDayDate, &day) {
		if _, err := generic.ParseDateKey(day, s.loc); err == nil {
			s.view.DayDate = day
		} else {
			s.log.Warn("ignoring stored day", zap.String("value", day))
		}
	}

	s.view.Month = calendar.CursorFor(now.In(s.loc))
	var cur calendar.MonthCursor
	if s.read(ctx, KeyMonthCursor, &cur) {
		if cur.Valid() {
			s.view.Month = cur
		} else {
			s.log.Warn("ignoring stored month cursor", zap.Int("y", cur.Y), zap.Int("m", cur.M))
		}
	}

	s.view.Year = calendar.YearCursor(now.In(s.loc).Year())
	var year int
	if s.read(ctx, KeyYearCursor, &year) {
		s.view.Year = calendar.YearCursor(year)
	}

	s.view.Tab = TabSchedule
	var tab Tab
	if s.read(ctx, KeyTab, &tab) {
		if tab.Valid() {
			s.view.Tab = tab
		} else {
			s.log.Warn("ignoring stored tab", zap.String("value", string(tab)))
		}
	}
}

// read decodes key into dst and reports success. Every failure is logged
// and treated as absent.
func (s *Session) read(ctx context.Context, key string, dst any) bool {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.Warn("load failed, using default",
			zap.String("key", key), zap.Error(&generic.PersistenceError{Key: key, Op: "get", Err: err}))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("unparsable value, using default", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// =============================================================================
// PERSIST
// =============================================================================

// persist encodes the current value of each key and hands it to the writer.
func (s *Session) persist(keys ...string) {
	for _, key := range keys {
		raw, err := json.Marshal(s.value(key))
		if err != nil {
			s.log.Error("encode failed", zap.String("key", key), zap.Error(err))
			continue
		}
		s.writer.enqueue(key, raw)
	}
}

func (s *Session) value(key string) any {
	switch key {
	case KeyEvents:
		return s.events.All()
	case KeyPoints:
		return s.ledger.Balance()
	case KeyLedger:
		return s.ledger.History()
	case KeyRedemptions:
		return nonNil(s.economy.Redemptions())
	case KeyCoupons:
		return s.inventory.All()
	case KeyChecklists:
		return s.board.Lists()
	case KeyDayDate:
		return s.view.DayDate
	case KeyMonthCursor:
		return s.view.Month
	case KeyYearCursor:
		return int(s.view.Year)
	case KeyActiveListID:
		return s.board.ActiveID()
	case KeyTab:
		return s.view.Tab
	}
	panic("session: unknown key " + key)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
