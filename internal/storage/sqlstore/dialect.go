package sqlstore

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect covers the SQL differences between the supported databases.
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// Schema returns the statements creating both tables if they are absent
	Schema(t Tables) []string

	// UpsertLog returns an insert into the log table that overwrites the
	// row with the same (owner_id, habit_id, date)
	UpsertLog(t Tables) string
}

// Tables names the two tables. Names are validated identifiers since they
// are interpolated into statements.
type Tables struct {
	Habits string
	Log    string
}

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (t Tables) validate() error {
	for _, name := range []string{t.Habits, t.Log} {
		if !identRegexp.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	if t.Habits == t.Log {
		return fmt.Errorf("habits and log tables must differ")
	}
	return nil
}

// DialectFor maps a configured driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3", "":
		return NewSQLiteDialect(), nil
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

const upsertColumns = `(owner_id, habit_id, date, kind, state, count, target) VALUES (?, ?, ?, ?, ?, ?, ?)`
