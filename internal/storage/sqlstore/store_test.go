package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brk3/habitlog/internal/storage"
	"github.com/brk3/habitlog/pkg/habit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTables = Tables{Habits: "habits", Log: "habit_log"}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "remote.sqlite")
	s, err := Open(context.Background(), NewSQLiteDialect(), dsn, testTables)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHabitCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	target := 8

	idB, err := s.InsertHabit(ctx, storage.HabitRow{
		ID: "b", OwnerID: "alice", Name: "Water", Kind: habit.KindCounter, Target: &target,
		Unit: "glasses", CreatedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, "b", idB)

	idA, err := s.InsertHabit(ctx, storage.HabitRow{
		OwnerID: "alice", Name: "Floss", Kind: habit.KindCheckbox, Icon: "🦷", CreatedAt: base,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, idA, "store assigns an id when none is given")

	_, err = s.InsertHabit(ctx, storage.HabitRow{ID: "c", OwnerID: "bob", Name: "Run", Kind: habit.KindCheckbox, CreatedAt: base})
	require.NoError(t, err)

	rows, err := s.ListHabits(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, idA, rows[0].ID, "ordered by created_at")
	assert.Nil(t, rows[0].Target)
	assert.Equal(t, "🦷", rows[0].Icon)
	require.NotNil(t, rows[1].Target)
	assert.Equal(t, 8, *rows[1].Target)
	assert.True(t, rows[1].CreatedAt.Equal(base.Add(time.Minute)))

	rows[1].Name = "Drink water"
	rows[1].Kind = habit.KindCheckbox
	rows[1].Target = nil
	require.NoError(t, s.UpdateHabit(ctx, rows[1]))
	require.NoError(t, s.UpdateHabit(ctx, rows[1]), "unchanged row still matches")

	require.NoError(t, s.DeleteHabit(ctx, "alice", idA))
	assert.ErrorIs(t, s.DeleteHabit(ctx, "bob", "b"), storage.ErrHabitNotFound, "wrong owner deletes nothing")
	assert.ErrorIs(t, s.DeleteHabit(ctx, "alice", idA), storage.ErrHabitNotFound)

	ghost := rows[1]
	ghost.ID = "never-inserted"
	assert.ErrorIs(t, s.UpdateHabit(ctx, ghost), storage.ErrHabitNotFound)
	ghost.ID, ghost.OwnerID = rows[1].ID, "bob"
	assert.ErrorIs(t, s.UpdateHabit(ctx, ghost), storage.ErrHabitNotFound)

	rows, err = s.ListHabits(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Drink water", rows[0].Name)
	assert.Equal(t, habit.KindCheckbox, rows[0].Kind)
	assert.Nil(t, rows[0].Target)
}

func TestUpsertLog_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertLog(ctx, storage.LogRowFrom("alice", "2024-05-01", "a", habit.CheckboxEntry{State: habit.StatePending})))
	require.NoError(t, s.UpsertLog(ctx, storage.LogRowFrom("alice", "2024-05-01", "a", habit.CheckboxEntry{State: habit.StateDone})))
	require.NoError(t, s.UpsertLog(ctx, storage.LogRowFrom("alice", "2024-05-01", "b", habit.CounterEntry{Count: 3, Target: 5})))
	require.NoError(t, s.UpsertLog(ctx, storage.LogRowFrom("alice", "2024-05-02", "a", habit.CheckboxEntry{State: habit.StatePending})))
	require.NoError(t, s.UpsertLog(ctx, storage.LogRowFrom("bob", "2024-05-01", "a", habit.CheckboxEntry{State: habit.StateMissed})))

	rows, err := s.ListLog(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	log := storage.FoldLog(rows)
	a, err := log["2024-05-01"]["a"].Load()
	require.NoError(t, err)
	assert.Equal(t, habit.CheckboxEntry{State: habit.StateDone}, a)
	b, err := log["2024-05-01"]["b"].Load()
	require.NoError(t, err)
	assert.Equal(t, habit.CounterEntry{Count: 3, Target: 5}, b)
}

func TestDeleteHabitKeepsLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.InsertHabit(ctx, storage.HabitRow{ID: "a", OwnerID: "alice", Name: "A", Kind: habit.KindCheckbox, CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, s.UpsertLog(ctx, storage.LogRowFrom("alice", "2024-05-01", "a", habit.CheckboxEntry{State: habit.StateDone})))
	require.NoError(t, s.DeleteHabit(ctx, "alice", "a"))

	rows, err := s.ListLog(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestOpen_RejectsBadTableNames(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "bad.sqlite")
	_, err := Open(context.Background(), NewSQLiteDialect(), dsn, Tables{Habits: "habits; DROP TABLE x", Log: "habit_log"})
	assert.Error(t, err)
	_, err = Open(context.Background(), NewSQLiteDialect(), dsn, Tables{Habits: "same", Log: "same"})
	assert.Error(t, err)
}

func TestCustomTableNamesIsolate(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "shared.sqlite")
	one, err := Open(ctx, NewSQLiteDialect(), dsn, Tables{Habits: "h1", Log: "l1"})
	require.NoError(t, err)
	defer one.Close()
	two, err := Open(ctx, NewSQLiteDialect(), dsn, Tables{Habits: "h2", Log: "l2"})
	require.NoError(t, err)
	defer two.Close()

	_, err = one.InsertHabit(ctx, storage.HabitRow{ID: "a", OwnerID: "alice", Name: "A", Kind: habit.KindCheckbox, CreatedAt: time.Now()})
	require.NoError(t, err)

	rows, err := two.ListHabits(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDialects(t *testing.T) {
	for _, name := range []string{"sqlite", "postgres", "mysql"} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Len(t, d.Schema(testTables), 2)
		assert.Contains(t, d.UpsertLog(testTables), "habit_log")
	}
	_, err := DialectFor("oracle")
	assert.Error(t, err)

	pg := NewPostgresDialect()
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.RewriteQuery("SELECT * FROM t WHERE a = ? AND b = ?"))
}
