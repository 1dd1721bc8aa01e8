package habit

import (
	"fmt"

	"github.com/brk3/habitlog/pkg/datekey"
)

// StoredEntry is the persisted JSON shape of an Entry. Older checkbox
// entries carry only Done; see tracker.MigrateLog.
type StoredEntry struct {
	Type   Kind           `json:"type"`
	State  *CheckboxState `json:"state,omitempty"`
	Count  *int           `json:"count,omitempty"`
	Target *int           `json:"target,omitempty"`
	Done   *bool          `json:"done,omitempty"`
}

type StoredDay map[string]StoredEntry

// StoredLog is the persisted form of a Log.
type StoredLog map[datekey.Key]StoredDay

// Store converts e to its persisted shape. Counter entries also record
// done, recomputed from count every time.
func Store(e Entry) StoredEntry {
	switch e := e.(type) {
	case CheckboxEntry:
		st := e.State
		return StoredEntry{Type: KindCheckbox, State: &st}
	case CounterEntry:
		count, target, done := e.Count, e.Target, e.IsComplete()
		return StoredEntry{Type: KindCounter, Count: &count, Target: &target, Done: &done}
	default:
		panic(fmt.Sprintf("habit: unknown entry type %T", e))
	}
}

// Load converts a persisted entry back into an Entry. A stored done flag on
// a counter is ignored; completion is always derived from count and target.
func (s StoredEntry) Load() (Entry, error) {
	switch s.Type {
	case KindCheckbox:
		state := StatePending
		if s.State != nil {
			switch *s.State {
			case StatePending, StateDone, StateMissed:
				state = *s.State
			}
		}
		return CheckboxEntry{State: state}, nil
	case KindCounter:
		if s.Target == nil {
			return nil, fmt.Errorf("counter entry without target")
		}
		e := CounterEntry{Target: *s.Target}
		if s.Count != nil {
			e = e.WithCount(*s.Count)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown entry type %q", s.Type)
	}
}

func StoreLog(l Log) StoredLog {
	out := make(StoredLog, len(l))
	for date, day := range l {
		sd := make(StoredDay, len(day))
		for id, e := range day {
			sd[id] = Store(e)
		}
		out[date] = sd
	}
	return out
}
