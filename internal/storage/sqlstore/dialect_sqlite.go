package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	return query
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		return err
	}
	return nil
}

func (d *SQLiteDialect) Schema(t Tables) []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			target INTEGER,
			icon TEXT NOT NULL DEFAULT '',
			unit TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (owner_id, id)
		);`, t.Habits),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			owner_id TEXT NOT NULL,
			habit_id TEXT NOT NULL,
			date TEXT NOT NULL,
			kind TEXT NOT NULL,
			state TEXT,
			count INTEGER,
			target INTEGER,
			PRIMARY KEY (owner_id, habit_id, date)
		);`, t.Log),
	}
}

func (d *SQLiteDialect) UpsertLog(t Tables) string {
	return fmt.Sprintf(`INSERT INTO %s %s
		ON CONFLICT (owner_id, habit_id, date) DO UPDATE SET
			kind = excluded.kind, state = excluded.state, count = excluded.count, target = excluded.target`,
		t.Log, upsertColumns)
}
