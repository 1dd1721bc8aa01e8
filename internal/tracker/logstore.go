package tracker

import (
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
)

// Change is an entry that was created or modified by a Log Store operation.
type Change struct {
	Date    datekey.Key
	HabitID string
	Entry   habit.Entry
}

// LogStore owns the Log. Only "today", as reported by its clock, is ever
// written; other days are read-only history.
type LogStore struct {
	log   habit.Log
	clock datekey.Clock
}

func NewLogStore(clock datekey.Clock, log habit.Log) *LogStore {
	if log == nil {
		log = habit.Log{}
	}
	return &LogStore{log: log, clock: clock}
}

func (s *LogStore) Today() datekey.Key {
	return datekey.Today(s.clock)
}

// MaterializeToday gives every habit in habits a default entry for today,
// leaving existing entries alone. It returns only the entries it created.
func (s *LogStore) MaterializeToday(habits []habit.Habit) []Change {
	today := s.Today()
	day := s.log[today]
	var created []Change
	for _, h := range habits {
		if _, ok := day[h.ID]; ok {
			continue
		}
		if day == nil {
			day = habit.DayLog{}
			s.log[today] = day
		}
		e := habit.NewEntry(h)
		day[h.ID] = e
		created = append(created, Change{Date: today, HabitID: h.ID, Entry: e})
	}
	return created
}

// EntriesFor returns a copy of the entries recorded on date. Days without
// activity yield an empty map; nothing is materialized.
func (s *LogStore) EntriesFor(date datekey.Key) habit.DayLog {
	return s.log[date].Clone()
}

// Toggle advances today's checkbox entry for habitID one step through the
// cycle. Missing and counter entries are left alone.
func (s *LogStore) Toggle(habitID string) (Change, bool) {
	today := s.Today()
	switch e := s.log[today][habitID].(type) {
	case habit.CheckboxEntry:
		e.State = e.State.Next()
		return s.put(today, habitID, e), true
	case habit.CounterEntry, nil:
	}
	return Change{}, false
}

// SetCount stores n, clamped into [0, target], on today's counter entry.
// Missing and checkbox entries are left alone.
func (s *LogStore) SetCount(habitID string, n int) (Change, bool) {
	return s.setCount(s.Today(), habitID, func(int) int { return n })
}

// IncrementCount is SetCount with the current count plus one.
func (s *LogStore) IncrementCount(habitID string) (Change, bool) {
	return s.setCount(s.Today(), habitID, func(c int) int { return c + 1 })
}

func (s *LogStore) setCount(today datekey.Key, habitID string, next func(int) int) (Change, bool) {
	switch e := s.log[today][habitID].(type) {
	case habit.CounterEntry:
		return s.put(today, habitID, e.WithCount(next(e.Count))), true
	case habit.CheckboxEntry, nil:
	}
	return Change{}, false
}

// Snapshot returns a deep copy of the whole log.
func (s *LogStore) Snapshot() habit.Log {
	return s.log.Clone()
}

func (s *LogStore) put(date datekey.Key, habitID string, e habit.Entry) Change {
	s.log[date][habitID] = e
	return Change{Date: date, HabitID: habitID, Entry: e}
}
