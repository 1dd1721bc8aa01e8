package syncer

import (
	"context"
	"sync"

	"github.com/brk3/habitlog/internal/logger"
	"github.com/brk3/habitlog/internal/storage"
	"github.com/brk3/habitlog/internal/tracker"
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
)

const backendRemote = "remote"

// RemoteSession pushes each change to a storage.Remote in its own
// goroutine. Log upserts are unordered and the remote's last-write-wins
// decides between them. Writes to one habit row (insert, update, delete)
// run one at a time in the order they were made.
type RemoteSession struct {
	owner   string
	tracker *tracker.Tracker
	remote  storage.Remote
	wg      sync.WaitGroup

	// habitMu orders registry changes with their queued row writes; tails
	// holds the last queued write per habit id.
	habitMu sync.Mutex
	tails   map[string]chan struct{}
}

// LoadRemote reads the owner's habits and full log history, migrates old
// entries and materializes today. A failed read is logged and the session
// starts from whatever was read.
func LoadRemote(ctx context.Context, remote storage.Remote, owner string, clock datekey.Clock, opts ...tracker.Option) *RemoteSession {
	var habits []habit.Habit
	habitRows, err := remote.ListHabits(ctx, owner)
	recordPersist(backendRemote, "list_habits", err)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load habits", "owner_id", owner, "error", err)
	}
	for _, r := range habitRows {
		habits = append(habits, r.Habit())
	}

	logRows, logErr := remote.ListLog(ctx, owner)
	recordPersist(backendRemote, "list_log", logErr)
	if logErr != nil {
		logger.WarnContext(ctx, "Failed to load log", "owner_id", owner, "error", logErr)
	}

	s := &RemoteSession{
		owner:   owner,
		tracker: tracker.New(clock, habits, tracker.LoadLog(storage.FoldLog(logRows)), opts...),
		remote:  remote,
		tails:   make(map[string]chan struct{}),
	}

	created := s.tracker.MaterializeToday()
	if logErr == nil {
		s.pushEntries(created)
	} else {
		// today's real entries may exist remotely; don't overwrite them with defaults
		logger.WarnContext(ctx, "Not persisting materialized entries after failed log load", "owner_id", owner, "count", len(created))
	}
	logger.Debug("Loaded remote session", "owner_id", owner, "habits", len(habits), "log_rows", len(logRows))
	return s
}

func (s *RemoteSession) Owner() string { return s.owner }
func (s *RemoteSession) Today() datekey.Key { return s.tracker.Today() }
func (s *RemoteSession) Habits() []habit.Habit { return s.tracker.Habits() }
func (s *RemoteSession) Wait() { s.wg.Wait() }

func (s *RemoteSession) Add(d habit.Draft) (habit.Habit, error) {
	s.habitMu.Lock()
	defer s.habitMu.Unlock()
	h, changes, err := s.tracker.Add(d)
	if err != nil {
		return habit.Habit{}, err
	}
	logger.Debug("Added habit", "owner_id", s.owner, "habit_id", h.ID)

	row := storage.HabitRowFrom(s.owner, h)
	s.asyncHabit(h.ID, "insert_habit", func(ctx context.Context) error {
		id, err := s.remote.InsertHabit(ctx, row)
		if err == nil && id != row.ID {
			logger.Warn("Remote assigned a different habit id", "owner_id", s.owner, "habit_id", row.ID, "remote_id", id)
		}
		return err
	})
	s.pushEntries(changes)
	return h, nil
}

func (s *RemoteSession) Update(id string, d habit.Draft) (habit.Habit, error) {
	s.habitMu.Lock()
	defer s.habitMu.Unlock()
	h, changes, err := s.tracker.Update(id, d)
	if err != nil {
		return habit.Habit{}, err
	}
	logger.Debug("Updated habit", "owner_id", s.owner, "habit_id", h.ID)

	row := storage.HabitRowFrom(s.owner, h)
	s.asyncHabit(h.ID, "update_habit", func(ctx context.Context) error {
		return s.remote.UpdateHabit(ctx, row)
	})
	s.pushEntries(changes)
	return h, nil
}

func (s *RemoteSession) Remove(id string) {
	s.habitMu.Lock()
	defer s.habitMu.Unlock()
	if !s.tracker.Remove(id) {
		return
	}
	logger.Debug("Removed habit", "owner_id", s.owner, "habit_id", id)
	s.asyncHabit(id, "delete_habit", func(ctx context.Context) error {
		return s.remote.DeleteHabit(ctx, s.owner, id)
	})
}

func (s *RemoteSession) Toggle(habitID string) (habit.Entry, bool) {
	changes, ok := s.tracker.Toggle(habitID)
	s.pushEntries(changes)
	return lastEntry(changes, ok)
}

func (s *RemoteSession) SetCount(habitID string, n int) (habit.Entry, bool) {
	changes, ok := s.tracker.SetCount(habitID, n)
	s.pushEntries(changes)
	return lastEntry(changes, ok)
}

func (s *RemoteSession) IncrementCount(habitID string) (habit.Entry, bool) {
	changes, ok := s.tracker.IncrementCount(habitID)
	s.pushEntries(changes)
	return lastEntry(changes, ok)
}

func (s *RemoteSession) EntriesFor(date datekey.Key) habit.DayLog {
	if date == s.tracker.Today() {
		s.pushEntries(s.tracker.MaterializeToday())
	}
	return s.tracker.EntriesFor(date)
}

// pushEntries upserts each change. The row is built now, from the entry the
// tracker just produced, not when the goroutine runs.
func (s *RemoteSession) pushEntries(changes []tracker.Change) {
	for _, c := range changes {
		row := storage.LogRowFrom(s.owner, c.Date, c.HabitID, c.Entry)
		s.async("upsert_log", []any{"habit_id", c.HabitID, "date", c.Date}, func(ctx context.Context) error {
			return s.remote.UpsertLog(ctx, row)
		})
	}
}

// asyncHabit queues fn behind every earlier write to the same habit row.
// Callers hold habitMu.
func (s *RemoteSession) asyncHabit(habitID, op string, fn func(context.Context) error) {
	prev := s.tails[habitID]
	done := make(chan struct{})
	s.tails[habitID] = done
	s.async(op, []any{"habit_id", habitID}, func(ctx context.Context) error {
		defer func() {
			close(done)
			s.habitMu.Lock()
			if s.tails[habitID] == done {
				delete(s.tails, habitID)
			}
			s.habitMu.Unlock()
		}()
		if prev != nil {
			<-prev
		}
		return fn(ctx)
	})
}

func (s *RemoteSession) async(op string, attrs []any, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := fn(context.Background())
		recordPersist(backendRemote, op, err)
		if err != nil {
			logger.Warn("Remote write failed", append([]any{"op", op, "owner_id", s.owner, "error", err}, attrs...)...)
		}
	}()
}

var _ Session = (*RemoteSession)(nil)
