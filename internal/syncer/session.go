// Package syncer mirrors tracker mutations to persistent storage. Every
// mutation is applied in memory first and the caller sees the result
// immediately; persistence follows and its failures are logged, never
// returned or rolled back.
package syncer

import (
	"github.com/brk3/habitlog/internal/tracker"
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session is one owner's loaded habits and log plus the backend that
// persists them.
type Session interface {
	Owner() string
	Today() datekey.Key
	Habits() []habit.Habit

	Add(d habit.Draft) (habit.Habit, error)
	Update(id string, d habit.Draft) (habit.Habit, error)
	Remove(id string)

	// Toggle, SetCount and IncrementCount return the updated entry, or
	// false when the operation did not apply.
	Toggle(habitID string) (habit.Entry, bool)
	SetCount(habitID string, n int) (habit.Entry, bool)
	IncrementCount(habitID string) (habit.Entry, bool)

	// EntriesFor returns the day's entries, materializing first when date
	// is today.
	EntriesFor(date datekey.Key) habit.DayLog

	// Wait blocks until writes issued so far have finished.
	Wait()
}

var (
	persistOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_persist_operations_total",
			Help: "Persistence operations by backend, operation and result",
		},
		[]string{"backend", "op", "result"},
	)

	malformedDocumentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habits_malformed_documents_total",
			Help: "Local documents that failed to parse and were replaced by an empty default",
		},
	)
)

func recordPersist(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	persistOpsTotal.WithLabelValues(backend, op, result).Inc()
}

func lastEntry(changes []tracker.Change, ok bool) (habit.Entry, bool) {
	if !ok || len(changes) == 0 {
		return nil, false
	}
	return changes[len(changes)-1].Entry, true
}
