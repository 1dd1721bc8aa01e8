package storage

import (
	"time"

	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
)

// HabitRow is one row of the habits table.
type HabitRow struct {
	ID        string
	OwnerID   string
	Name      string
	Kind      habit.Kind
	Target    *int
	Icon      string
	Unit      string
	CreatedAt time.Time
}

func HabitRowFrom(ownerID string, h habit.Habit) HabitRow {
	return HabitRow{
		ID:        h.ID,
		OwnerID:   ownerID,
		Name:      h.Name,
		Kind:      h.Kind,
		Target:    h.Target,
		Icon:      h.Icon,
		Unit:      h.Unit,
		CreatedAt: h.CreatedAt,
	}
}

func (r HabitRow) Habit() habit.Habit {
	return habit.Habit{
		ID:        r.ID,
		Name:      r.Name,
		Kind:      r.Kind,
		Target:    r.Target,
		Icon:      r.Icon,
		Unit:      r.Unit,
		CreatedAt: r.CreatedAt,
	}
}

// LogRow is one row of the habit_log table. State is set for checkbox
// rows; Count and Target for counter rows.
type LogRow struct {
	OwnerID string
	HabitID string
	Date    datekey.Key
	Kind    habit.Kind
	State   *habit.CheckboxState
	Count   *int
	Target  *int
}

func LogRowFrom(ownerID string, date datekey.Key, habitID string, e habit.Entry) LogRow {
	se := habit.Store(e)
	return LogRow{
		OwnerID: ownerID,
		HabitID: habitID,
		Date:    date,
		Kind:    se.Type,
		State:   se.State,
		Count:   se.Count,
		Target:  se.Target,
	}
}

func (r LogRow) StoredEntry() habit.StoredEntry {
	return habit.StoredEntry{
		Type:   r.Kind,
		State:  r.State,
		Count:  r.Count,
		Target: r.Target,
	}
}

// FoldLog groups rows into the stored log shape, ready for migration.
func FoldLog(rows []LogRow) habit.StoredLog {
	out := habit.StoredLog{}
	for _, r := range rows {
		day, ok := out[r.Date]
		if !ok {
			day = habit.StoredDay{}
			out[r.Date] = day
		}
		day[r.HabitID] = r.StoredEntry()
	}
	return out
}
