package sqlbind

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// InsertStyle selects how INSERT assignments are written.
type InsertStyle int

const (
	// InsertValues writes `INSERT INTO t (a, b) VALUES (?, ?)`.
	InsertValues InsertStyle = iota
	// InsertSet writes `INSERT INTO t SET a = ?, b = ?` (MySQL only).
	InsertSet
)

// Dialect describes the SQL flavor a statement is rendered for.
type Dialect struct {
	// Name is the database/sql driver family, e.g. "mysql" or "sqlite".
	Name string
	// Quote wraps identifiers. Embedded quote characters are doubled.
	Quote byte
	// Numbered selects $1, $2 placeholders instead of ?.
	Numbered bool
	// InsertStyle selects the INSERT assignment form.
	InsertStyle InsertStyle
	// EmptyInsert is appended after `INSERT INTO t` when no fields remain.
	EmptyInsert string
	// RowID names the pseudo column used to bound a DELETE through a subquery.
	// Empty means the dialect accepts `DELETE ... LIMIT n` directly.
	RowID string
}

var (
	MySQL = Dialect{
		Name:        "mysql",
		Quote:       '`',
		InsertStyle: InsertSet,
		EmptyInsert: "() VALUES ()",
	}
	SQLite = Dialect{
		Name:        "sqlite",
		Quote:       '`',
		EmptyInsert: "DEFAULT VALUES",
		RowID:       "rowid",
	}
	Postgres = Dialect{
		Name:        "postgres",
		Quote:       '"',
		Numbered:    true,
		EmptyInsert: "DEFAULT VALUES",
		RowID:       "ctid",
	}
	DuckDB = Dialect{
		Name:        "duckdb",
		Quote:       '"',
		EmptyInsert: "DEFAULT VALUES",
		RowID:       "rowid",
	}
)

// DialectByName resolves a driver name to its dialect.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "duckdb":
		return DuckDB, nil
	}
	return Dialect{}, fmt.Errorf("unsupported dialect %q", name)
}

// Placeholder returns the value placeholder for the 1-based index.
func (d Dialect) Placeholder(index int) string {
	if d.Numbered {
		return "$" + strconv.Itoa(index)
	}
	return "?"
}

// QuoteIdent quotes a possibly dotted identifier. Each dot-separated part is
// quoted on its own, so "main.users" becomes `main`.`users`.
func (d Dialect) QuoteIdent(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidIdentifier, name)
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidIdentifier, name)
	}

	quote := string(d.Quote)
	var b strings.Builder
	for i, part := range strings.Split(name, ".") {
		if part == "" {
			return "", fmt.Errorf("%w: %q has an empty part", ErrInvalidIdentifier, name)
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(quote)
		b.WriteString(strings.ReplaceAll(part, quote, quote+quote))
		b.WriteString(quote)
	}
	return b.String(), nil
}
