package syncer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/brk3/habitlog/internal/logger"
	"github.com/brk3/habitlog/internal/storage"
	"github.com/brk3/habitlog/internal/tracker"
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
)

const backendLocal = "local"

// Keys names the two documents a LocalSession keeps per owner.
type Keys struct {
	Habits string
	Log    string
}

// LocalSession rewrites both documents in full after every change, before
// the mutating call returns.
type LocalSession struct {
	mu      sync.Mutex
	owner   string
	tracker *tracker.Tracker
	docs    storage.Documents
	keys    Keys
}

// LoadLocal reads both documents. Content that does not parse is replaced
// by an empty default; only store I/O errors are returned.
func LoadLocal(docs storage.Documents, owner string, keys Keys, clock datekey.Clock, opts ...tracker.Option) (*LocalSession, error) {
	habits, err := readDocument[[]habit.Habit](docs, owner, keys.Habits)
	if err != nil {
		return nil, err
	}
	raw, err := readDocument[habit.StoredLog](docs, owner, keys.Log)
	if err != nil {
		return nil, err
	}

	s := &LocalSession{
		owner:   owner,
		tracker: tracker.New(clock, habits, tracker.LoadLog(raw), opts...),
		docs:    docs,
		keys:    keys,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.MaterializeToday()
	// always rewrite so migrated entries are persisted in the current shape
	s.save()
	logger.Debug("Loaded local session", "owner_id", owner, "habits", len(habits), "days", len(raw))
	return s, nil
}

func readDocument[T any](docs storage.Documents, owner, key string) (T, error) {
	var v T
	data, err := docs.Get(owner, key)
	if err != nil {
		return v, fmt.Errorf("read %s: %w", key, err)
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		malformedDocumentsTotal.Inc()
		logger.Warn("Replacing malformed document with empty default", "owner_id", owner, "key", key,
			"error", fmt.Errorf("%w: %w", storage.ErrMalformed, err))
		var empty T
		return empty, nil
	}
	return v, nil
}

func (s *LocalSession) Owner() string { return s.owner }
func (s *LocalSession) Today() datekey.Key { return s.tracker.Today() }
func (s *LocalSession) Habits() []habit.Habit { return s.tracker.Habits() }
func (s *LocalSession) Wait() {}

func (s *LocalSession) Add(d habit.Draft) (habit.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, _, err := s.tracker.Add(d)
	if err != nil {
		return habit.Habit{}, err
	}
	logger.Debug("Added habit", "owner_id", s.owner, "habit_id", h.ID)
	s.save()
	return h, nil
}

func (s *LocalSession) Update(id string, d habit.Draft) (habit.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, _, err := s.tracker.Update(id, d)
	if err != nil {
		return habit.Habit{}, err
	}
	logger.Debug("Updated habit", "owner_id", s.owner, "habit_id", h.ID)
	s.save()
	return h, nil
}

func (s *LocalSession) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker.Remove(id) {
		logger.Debug("Removed habit", "owner_id", s.owner, "habit_id", id)
		s.save()
	}
}

func (s *LocalSession) Toggle(habitID string) (habit.Entry, bool) {
	return s.mutate(func() ([]tracker.Change, bool) { return s.tracker.Toggle(habitID) })
}

func (s *LocalSession) SetCount(habitID string, n int) (habit.Entry, bool) {
	return s.mutate(func() ([]tracker.Change, bool) { return s.tracker.SetCount(habitID, n) })
}

func (s *LocalSession) IncrementCount(habitID string) (habit.Entry, bool) {
	return s.mutate(func() ([]tracker.Change, bool) { return s.tracker.IncrementCount(habitID) })
}

func (s *LocalSession) EntriesFor(date datekey.Key) habit.DayLog {
	if date == s.tracker.Today() {
		s.mu.Lock()
		if len(s.tracker.MaterializeToday()) > 0 {
			s.save()
		}
		s.mu.Unlock()
	}
	return s.tracker.EntriesFor(date)
}

func (s *LocalSession) mutate(op func() ([]tracker.Change, bool)) (habit.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changes, ok := op()
	if len(changes) > 0 {
		s.save()
	}
	return lastEntry(changes, ok)
}

// save must be called with s.mu held.
func (s *LocalSession) save() {
	habits, log := s.tracker.Snapshot()
	if habits == nil {
		habits = []habit.Habit{}
	}
	s.put(s.keys.Habits, habits)
	s.put(s.keys.Log, habit.StoreLog(log))
}

func (s *LocalSession) put(key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = s.docs.Put(s.owner, key, data)
	}
	recordPersist(backendLocal, "put", err)
	if err != nil {
		logger.Warn("Local write failed", "owner_id", s.owner, "key", key, "error", err)
	}
}

var _ Session = (*LocalSession)(nil)
