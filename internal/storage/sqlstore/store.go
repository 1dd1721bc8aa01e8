// Package sqlstore implements storage.Remote on top of database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/brk3/habitlog/internal/logger"
	"github.com/brk3/habitlog/internal/storage"
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
	"github.com/google/uuid"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  Tables
}

// Open connects with the given dialect and creates the tables if needed.
func Open(ctx context.Context, dialect Dialect, dsn string, tables Tables) (*Store, error) {
	if err := tables.validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := dialect.ConfigureConnection(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}

	s := &Store{db: db, dialect: dialect, tables: tables}
	for _, stmt := range dialect.Schema(tables) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	logger.Debug("Remote store ready", "driver", dialect.DriverName(), "habits_table", tables.Habits, "log_table", tables.Log)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.RewriteQuery(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.RewriteQuery(query), args...)
}

func (s *Store) ListHabits(ctx context.Context, ownerID string) ([]storage.HabitRow, error) {
	rows, err := s.query(ctx, fmt.Sprintf(`
		SELECT id, owner_id, name, kind, target, icon, unit, created_at
		FROM %s WHERE owner_id = ? ORDER BY created_at, id`, s.tables.Habits), ownerID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var out []storage.HabitRow
	for rows.Next() {
		var (
			r      storage.HabitRow
			kind   string
			target sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Name, &kind, &target, &r.Icon, &r.Unit, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		r.Kind = habit.Kind(kind)
		if target.Valid {
			t := int(target.Int64)
			r.Target = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertHabit(ctx context.Context, row storage.HabitRow) (string, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := s.exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, name, kind, target, icon, unit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.tables.Habits),
		row.ID, row.OwnerID, row.Name, string(row.Kind), nullInt(row.Target), row.Icon, row.Unit, row.CreatedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("insert habit: %w", err)
	}
	return row.ID, nil
}

func (s *Store) UpdateHabit(ctx context.Context, row storage.HabitRow) error {
	res, err := s.exec(ctx, fmt.Sprintf(`
		UPDATE %s SET name = ?, kind = ?, target = ?, icon = ?, unit = ?
		WHERE id = ? AND owner_id = ?`, s.tables.Habits),
		row.Name, string(row.Kind), nullInt(row.Target), row.Icon, row.Unit, row.ID, row.OwnerID)
	if err != nil {
		return fmt.Errorf("update habit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	// MySQL counts changed rows, not matched ones, so an unchanged row reads 0
	exists, err := s.habitExists(ctx, row.OwnerID, row.ID)
	if err != nil {
		return fmt.Errorf("update habit: %w", err)
	}
	if !exists {
		return fmt.Errorf("update habit %s: %w", row.ID, storage.ErrHabitNotFound)
	}
	return nil
}

func (s *Store) habitExists(ctx context.Context, ownerID, habitID string) (bool, error) {
	rows, err := s.query(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ? AND owner_id = ?`, s.tables.Habits), habitID, ownerID)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

// DeleteHabit removes the habit row only; its log rows are history and stay.
func (s *Store) DeleteHabit(ctx context.Context, ownerID, habitID string) error {
	res, err := s.exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND owner_id = ?`, s.tables.Habits), habitID, ownerID)
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete habit %s: %w", habitID, storage.ErrHabitNotFound)
	}
	return nil
}

func (s *Store) UpsertLog(ctx context.Context, row storage.LogRow) error {
	var state any
	if row.State != nil {
		state = string(*row.State)
	}
	_, err := s.exec(ctx, s.dialect.UpsertLog(s.tables),
		row.OwnerID, row.HabitID, string(row.Date), string(row.Kind), state, nullInt(row.Count), nullInt(row.Target))
	if err != nil {
		return fmt.Errorf("upsert log: %w", err)
	}
	return nil
}

func (s *Store) ListLog(ctx context.Context, ownerID string) ([]storage.LogRow, error) {
	rows, err := s.query(ctx, fmt.Sprintf(`
		SELECT owner_id, habit_id, date, kind, state, count, target
		FROM %s WHERE owner_id = ?`, s.tables.Log), ownerID)
	if err != nil {
		return nil, fmt.Errorf("list log: %w", err)
	}
	defer rows.Close()

	var out []storage.LogRow
	for rows.Next() {
		var (
			r             storage.LogRow
			date, kind    string
			state         sql.NullString
			count, target sql.NullInt64
		)
		if err := rows.Scan(&r.OwnerID, &r.HabitID, &date, &kind, &state, &count, &target); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		r.Date = datekey.Key(date)
		r.Kind = habit.Kind(kind)
		if state.Valid {
			st := habit.CheckboxState(state.String)
			r.State = &st
		}
		r.Count = intPtr(count)
		r.Target = intPtr(target)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

var _ storage.Remote = (*Store)(nil)
