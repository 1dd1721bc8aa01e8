package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	// PostgreSQL uses $1, $2, etc. instead of ?
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (d *PostgresDialect) Schema(t Tables) []string {
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
			created_at TIMESTAMPTZ NOT NULL,
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

func (d *PostgresDialect) UpsertLog(t Tables) string {
	return fmt.Sprintf(`INSERT INTO %s %s
		ON CONFLICT (owner_id, habit_id, date) DO UPDATE SET
			kind = EXCLUDED.kind, state = EXCLUDED.state, count = EXCLUDED.count, target = EXCLUDED.target`,
		t.Log, upsertColumns)
}
