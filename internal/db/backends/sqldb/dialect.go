package sqldb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour and driver
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect accepts the dialect names used in configuration
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported sql dialect: %q", s)
}

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseDialect() goose.Dialect {
	if d == Postgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

// migrationsDir names the embedded migrations directory
func (d Dialect) migrationsDir() string {
	return string(d)
}

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// contains renders a substring test on column against the bound needle
func (d Dialect) contains(column, needle string, caseSensitive bool) string {
	if !caseSensitive {
		column = "LOWER(" + column + ")"
		needle = "LOWER(" + needle + ")"
	}
	if d == Postgres {
		return fmt.Sprintf("strpos(%s, %s) > 0", column, needle)
	}
	return fmt.Sprintf("instr(%s, %s) > 0", column, needle)
}

// noLimit is the LIMIT value that precedes a bare OFFSET
func (d Dialect) noLimit() string {
	if d == Postgres {
		return "ALL"
	}
	return "-1"
}

func (d Dialect) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
