package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/warp/carepoints/generic"
)

// EventStore holds activities in insertion order. Date buckets are computed
// on every query rather than maintained as an index.
//
// Not safe for concurrent use; the session serialises access.
type EventStore struct {
	loc    *time.Location
	newID  generic.IDFunc
	events []Activity
}

// NewEventStore creates an empty store. Instants are composed and bucketed
// in loc; nil means time.Local. A nil newID uses generic.NewID.
func NewEventStore(loc *time.Location, newID generic.IDFunc) *EventStore {
	if loc == nil {
		loc = time.Local
	}
	if newID == nil {
		newID = generic.NewID
	}
	return &EventStore{loc: loc, newID: newID}
}

// Location returns the location used for date keys and hours.
func (s *EventStore) Location() *time.Location { return s.loc }

// Restore replaces the contents with previously persisted activities.
// Entries without an id are dropped.
func (s *EventStore) Restore(acts []Activity) {
	s.events = make([]Activity, 0, len(acts))
	seen := make(map[string]bool, len(acts))
	for _, a := range acts {
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		s.events = append(s.events, a)
	}
}

// Add creates a new activity on dateKey at hhmm.
func (s *EventStore) Add(title, dateKey, hhmm string, category Category) (Activity, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Activity{}, generic.Invalid("title", "must not be empty")
	}
	if hhmm == "" {
		return Activity{}, generic.Invalid("time", "is required")
	}
	if !generic.ValidClock(hhmm) {
		return Activity{}, generic.Invalid("time", "must be HH:MM")
	}
	when, err := generic.ComposeInstant(dateKey, hhmm, s.loc)
	if err != nil {
		return Activity{}, generic.Invalid("date", "must be YYYY-MM-DD")
	}
	if category == "" {
		category = CategoryOther
	}

	id, err := s.newID()
	if err != nil {
		return Activity{}, err
	}

	a := Activity{ID: id, Title: title, When: when, Category: category}
	s.events = append(s.events, a)
	return a, nil
}

// ToggleDone flips the done flag. The Completion is returned only when the
// activity went from not done to done.
func (s *EventStore) ToggleDone(id string) (Completion, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Completion{}, false
	}

	a := &s.events[i]
	a.Done = !a.Done
	if !a.Done {
		return Completion{}, false
	}
	return Completion{
		ActivityID: a.ID,
		Title:      a.Title,
		Category:   a.Category,
		Points:     a.Category.Points(),
	}, true
}

// UpdateTitle replaces the title as given. An empty title is allowed and
// renders as UntitledLabel. Returns false if id is unknown.
func (s *EventStore) UpdateTitle(id, title string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.events[i].Title = title
	return true
}

// UpdateTime moves the activity to hhmm on the same calendar day.
func (s *EventStore) UpdateTime(id, hhmm string) (bool, error) {
	if !generic.ValidClock(hhmm) {
		return false, generic.Invalid("time", "must be HH:MM")
	}
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	a := &s.events[i]
	when, err := generic.ComposeInstant(generic.DateKeyOf(a.When, s.loc), hhmm, s.loc)
	if err != nil {
		return false, err
	}
	a.When = when
	return true, nil
}

// Delete removes the activity. Returns false if it was already gone.
func (s *EventStore) Delete(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	return true
}

// ClearDay removes every activity on dateKey and reports how many went.
func (s *EventStore) ClearDay(dateKey string) int {
	kept := s.events[:0]
	removed := 0
	for _, a := range s.events {
		if generic.DateKeyOf(a.When, s.loc) == dateKey {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.events = kept
	return removed
}

// Get returns a copy of the activity with id.
func (s *EventStore) Get(id string) (Activity, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Activity{}, false
	}
	return s.events[i], true
}

// All returns every activity in insertion order.
func (s *EventStore) All() []Activity {
	out := make([]Activity, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of activities.
func (s *EventStore) Len() int { return len(s.events) }

// ByDay returns the activities on dateKey by ascending instant. Equal
// instants keep insertion order.
func (s *EventStore) ByDay(dateKey string) []Activity {
	var out []Activity
	for _, a := range s.events {
		if generic.DateKeyOf(a.When, s.loc) == dateKey {
			out = append(out, a)
		}
	}
	SortByInstant(out)
	return out
}

// ByMonth returns the activities in year/month, ordered as ByDay.
func (s *EventStore) ByMonth(year int, month time.Month) []Activity {
	var out []Activity
	for _, a := range s.events {
		t := a.When.In(s.loc)
		if t.Year() == year && t.Month() == month {
			out = append(out, a)
		}
	}
	SortByInstant(out)
	return out
}

// CountByMonth counts activities per month of year. Index 0 is January.
func (s *EventStore) CountByMonth(year int) [12]int {
	var counts [12]int
	for _, a := range s.events {
		t := a.When.In(s.loc)
		if t.Year() == year {
			counts[t.Month()-1]++
		}
	}
	return counts
}

// SortByInstant orders activities by ascending instant, stably.
func SortByInstant(acts []Activity) {
	sort.SliceStable(acts, func(i, j int) bool {
		return acts[i].When.Before(acts[j].When)
	})
}

func (s *EventStore) indexOf(id string) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}
