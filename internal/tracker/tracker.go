// Package tracker holds one owner's habits and log in memory and implements
// every mutation on them. Persistence lives in internal/syncer.
package tracker

import (
	"sync"

	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
)

type Option func(*Tracker)

// WithIDGenerator replaces the uuid generator used for new habits.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		t.reg.newID = gen
	}
}

// Tracker serializes access to a Registry and a LogStore. Every method
// is a single atomic step; readers get copies.
type Tracker struct {
	mu    sync.Mutex
	reg   *Registry
	store *LogStore
}

func New(clock datekey.Clock, habits []habit.Habit, log habit.Log, opts ...Option) *Tracker {
	t := &Tracker{
		reg:   NewRegistry(clock, habits),
		store: NewLogStore(clock, log),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Today() datekey.Key {
	return t.store.Today()
}

func (t *Tracker) Habits() []habit.Habit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reg.List()
}

func (t *Tracker) Habit(id string) (habit.Habit, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reg.Get(id)
}

// Add registers a new habit and materializes today's entry for it.
func (t *Tracker) Add(d habit.Draft) (habit.Habit, []Change, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, err := t.reg.Add(d)
	if err != nil {
		return habit.Habit{}, nil, err
	}
	return h, t.store.MaterializeToday(t.reg.habits), nil
}

// Update edits a habit. An entry that already exists for today keeps its
// kind and target; only days materialized later see the edit.
func (t *Tracker) Update(id string, d habit.Draft) (habit.Habit, []Change, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, err := t.reg.Update(id, d)
	if err != nil {
		return habit.Habit{}, nil, err
	}
	return h, t.store.MaterializeToday(t.reg.habits), nil
}

func (t *Tracker) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reg.Remove(id)
}

func (t *Tracker) MaterializeToday() []Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.MaterializeToday(t.reg.habits)
}

func (t *Tracker) EntriesFor(date datekey.Key) habit.DayLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.EntriesFor(date)
}

// Toggle, SetCount and IncrementCount first materialize today (a new day
// may have started since the last call) and then apply the mutation. The
// returned changes end with the mutated entry when ok is true.
func (t *Tracker) Toggle(habitID string) (changes []Change, ok bool) {
	return t.mutate(func() (Change, bool) { return t.store.Toggle(habitID) })
}

func (t *Tracker) SetCount(habitID string, n int) (changes []Change, ok bool) {
	return t.mutate(func() (Change, bool) { return t.store.SetCount(habitID, n) })
}

func (t *Tracker) IncrementCount(habitID string) (changes []Change, ok bool) {
	return t.mutate(func() (Change, bool) { return t.store.IncrementCount(habitID) })
}

// Snapshot copies the full state, for writers that persist whole documents.
func (t *Tracker) Snapshot() ([]habit.Habit, habit.Log) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reg.List(), t.store.Snapshot()
}

func (t *Tracker) mutate(op func() (Change, bool)) ([]Change, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	changes := t.store.MaterializeToday(t.reg.habits)
	c, ok := op()
	if ok {
		changes = append(changes, c)
	}
	return changes, ok
}
