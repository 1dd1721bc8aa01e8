package tracker

import (
	"fmt"
	"slices"

	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
	"github.com/google/uuid"
)

// Registry owns one owner's ordered habit definitions.
type Registry struct {
	habits []habit.Habit
	clock  datekey.Clock
	newID  func() string
}

// NewRegistry orders habits by creation time; ties keep their input order.
func NewRegistry(clock datekey.Clock, habits []habit.Habit) *Registry {
	hs := slices.Clone(habits)
	slices.SortStableFunc(hs, func(a, b habit.Habit) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return &Registry{habits: hs, clock: clock, newID: uuid.NewString}
}

func (r *Registry) List() []habit.Habit {
	return slices.Clone(r.habits)
}

func (r *Registry) Len() int {
	return len(r.habits)
}

func (r *Registry) Get(id string) (habit.Habit, bool) {
	i := r.index(id)
	if i < 0 {
		return habit.Habit{}, false
	}
	return r.habits[i], true
}

// Add validates d, then enforces the habit limit. Nothing changes on error.
func (r *Registry) Add(d habit.Draft) (habit.Habit, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return habit.Habit{}, err
	}
	if len(r.habits) >= habit.MaxHabits {
		return habit.Habit{}, fmt.Errorf("%w: at most %d habits", habit.ErrLimitExceeded, habit.MaxHabits)
	}
	h := d.Apply(habit.Habit{
		ID:        r.newID(),
		CreatedAt: r.clock.Now(),
	})
	r.habits = append(r.habits, h)
	return h, nil
}

// Update replaces the editable fields of an existing habit in place. Edits
// never count against the habit limit.
func (r *Registry) Update(id string, d habit.Draft) (habit.Habit, error) {
	i := r.index(id)
	if i < 0 {
		return habit.Habit{}, fmt.Errorf("%w: %s", habit.ErrNotFound, id)
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return habit.Habit{}, err
	}
	r.habits[i] = d.Apply(r.habits[i])
	return r.habits[i], nil
}

// Remove reports whether id was registered. Log history is not touched.
func (r *Registry) Remove(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.habits = slices.Delete(r.habits, i, i+1)
	return true
}

func (r *Registry) index(id string) int {
	return slices.IndexFunc(r.habits, func(h habit.Habit) bool { return h.ID == id })
}
