package tracker

import (
	"github.com/brk3/habitlog/internal/logger"
	"github.com/brk3/habitlog/pkg/habit"
)

// MigrateLog rewrites checkbox entries saved before the three-state cycle
// existed ({done: bool}, no state) as {state: done ? "done" : "pending"}.
// Everything else is returned as is, so running it twice is harmless.
func MigrateLog(raw habit.StoredLog) habit.StoredLog {
	out := make(habit.StoredLog, len(raw))
	for date, day := range raw {
		migrated := make(habit.StoredDay, len(day))
		for id, e := range day {
			if isLegacyCheckbox(e) {
				st := habit.StatePending
				if *e.Done {
					st = habit.StateDone
				}
				e = habit.StoredEntry{Type: habit.KindCheckbox, State: &st}
			}
			migrated[id] = e
		}
		out[date] = migrated
	}
	return out
}

func isLegacyCheckbox(e habit.StoredEntry) bool {
	return e.Type == habit.KindCheckbox && e.Done != nil && e.State == nil
}

// LoadLog migrates raw and converts it to a Log. Entries that cannot be
// decoded are dropped and logged.
func LoadLog(raw habit.StoredLog) habit.Log {
	out := habit.Log{}
	for date, day := range MigrateLog(raw) {
		dl := make(habit.DayLog, len(day))
		for id, se := range day {
			e, err := se.Load()
			if err != nil {
				logger.Warn("Dropping unreadable log entry", "date", date, "habit_id", id, "error", err)
				continue
			}
			dl[id] = e
		}
		out[date] = dl
	}
	return out
}
