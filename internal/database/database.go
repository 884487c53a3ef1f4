package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/saltyorg/dataroute/internal/sqlbind"
)

// sqlDrivers maps a dialect name to the database/sql driver registered for it
var sqlDrivers = map[string]string{
	sqlbind.SQLite.Name:   "sqlite",
	sqlbind.MySQL.Name:    "mysql",
	sqlbind.Postgres.Name: "pgx",
	sqlbind.DuckDB.Name:   "duckdb",
}

// DB wraps a database/sql pool together with the dialect its statements
// are rendered for
type DB struct {
	conn    *sql.DB
	dialect sqlbind.Dialect
	source  string
	mu      sync.Mutex
}

// New opens and pings a database. driver is one of sqlite, mysql, postgres
// or duckdb; for sqlite, dsn may be a plain file path.
func New(driver, dsn string) (*DB, error) {
	dialect, err := sqlbind.DialectByName(driver)
	if err != nil {
		return nil, err
	}

	source := dsn
	if dialect.Name == sqlbind.SQLite.Name {
		dsn = sqliteDSN(dsn)
	}

	conn, err := sql.Open(sqlDrivers[dialect.Name], dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect.Name == sqlbind.SQLite.Name {
		// SQLite with WAL mode supports concurrent reads but serializes writes
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}

	log.Debug().Str("driver", dialect.Name).Msg("Database connection established")

	return &DB{
		conn:    conn,
		dialect: dialect,
		source:  source,
	}, nil
}

// sqliteDSN adds the pragmas used for every SQLite file unless the caller
// already passed query options
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Dialect returns the SQL dialect of the connection
func (db *DB) Dialect() sqlbind.Dialect {
	return db.dialect
}

// Source returns the DSN or file path the database was opened with
func (db *DB) Source() string {
	return db.source
}

// Close closes the pool
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Exec runs a statement and returns the affected row count. Drivers that
// cannot report it yield 0.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

// Query runs a statement and returns every row keyed by column name
func (db *DB) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// Transaction wraps a function in a database transaction
func (db *DB) Transaction(fn func(*sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
