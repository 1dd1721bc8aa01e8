package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL. The DSN must set
// parseTime=true so created_at scans into time.Time.
type MySQLDialect struct{}

func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	// MySQL uses ? placeholders like SQLite, no rewrite needed
	return query
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (d *MySQLDialect) Schema(t Tables) []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(64) NOT NULL,
			owner_id VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			target INT NULL,
			icon VARCHAR(64) NOT NULL DEFAULT '',
			unit VARCHAR(64) NOT NULL DEFAULT '',
			created_at DATETIME(6) NOT NULL,
			PRIMARY KEY (owner_id, id)
		);`, t.Habits),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			owner_id VARCHAR(255) NOT NULL,
			habit_id VARCHAR(64) NOT NULL,
			date CHAR(10) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			state VARCHAR(16) NULL,
			count INT NULL,
			target INT NULL,
			PRIMARY KEY (owner_id, habit_id, date)
		);`, t.Log),
	}
}

func (d *MySQLDialect) UpsertLog(t Tables) string {
	return fmt.Sprintf(`INSERT INTO %s %s
		ON DUPLICATE KEY UPDATE
			kind = VALUES(kind), state = VALUES(state), count = VALUES(count), target = VALUES(target)`,
		t.Log, upsertColumns)
}
