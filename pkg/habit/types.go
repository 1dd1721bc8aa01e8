package habit

import (
	"time"

	"github.com/brk3/habitlog/pkg/datekey"
)

const (
	MaxHabits     = 10
	MaxNameLength = 50
	MaxIconLength = 8
	MaxUnitLength = 20
	MinTarget     = 2
)

type Kind string

const (
	KindCheckbox Kind = "checkbox"
	KindCounter  Kind = "counter"
)

func (k Kind) Valid() bool {
	return k == KindCheckbox || k == KindCounter
}

type Habit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"type"`
	Target    *int      `json:"target"`
	Icon      string    `json:"icon"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is the user-editable part of a Habit, as submitted by a form.
type Draft struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"type"`
	Target int    `json:"target,omitempty"`
	Icon   string `json:"icon,omitempty"`
	Unit   string `json:"unit,omitempty"`
}

type CheckboxState string

const (
	StatePending CheckboxState = "pending"
	StateDone    CheckboxState = "done"
	StateMissed  CheckboxState = "missed"
)

// Next advances the checkbox cycle pending -> done -> missed -> pending.
// Unknown states advance as if they were pending.
func (s CheckboxState) Next() CheckboxState {
	switch s {
	case StateDone:
		return StateMissed
	case StateMissed:
		return StatePending
	default:
		return StateDone
	}
}

// Entry is one habit's record for one day. It is either a CheckboxEntry or
// a CounterEntry; the set is closed.
type Entry interface {
	Kind() Kind
	isEntry()
}

type CheckboxEntry struct {
	State CheckboxState
}

func (CheckboxEntry) Kind() Kind { return KindCheckbox }
func (CheckboxEntry) isEntry()   {}

// CounterEntry keeps the target it was created with, so editing a habit's
// target only affects days materialized afterwards.
type CounterEntry struct {
	Count  int
	Target int
}

func (CounterEntry) Kind() Kind { return KindCounter }
func (CounterEntry) isEntry()   {}

func (e CounterEntry) IsComplete() bool {
	return e.Count >= e.Target
}

// WithCount returns a copy with Count clamped into [0, Target].
func (e CounterEntry) WithCount(n int) CounterEntry {
	e.Count = max(0, min(n, e.Target))
	return e
}

// NewEntry returns the default entry materialized for h.
func NewEntry(h Habit) Entry {
	if h.Kind == KindCounter && h.Target != nil {
		return CounterEntry{Count: 0, Target: *h.Target}
	}
	return CheckboxEntry{State: StatePending}
}

// DayLog maps habit id to that habit's entry for one day.
type DayLog map[string]Entry

func (d DayLog) Clone() DayLog {
	out := make(DayLog, len(d))
	for id, e := range d {
		out[id] = e
	}
	return out
}

type Log map[datekey.Key]DayLog

func (l Log) Clone() Log {
	out := make(Log, len(l))
	for k, d := range l {
		out[k] = d.Clone()
	}
	return out
}
