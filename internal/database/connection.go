package database

import (
	"database/sql"

	"github.com/saltyorg/dataroute/internal/sqlbind"
)

// render renders a bound statement for this connection's dialect
func (db *DB) render(stmt sqlbind.Statement) (string, []any, error) {
	return stmt.Render(db.dialect)
}

func (db *DB) exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

func (db *DB) query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

func (db *DB) queryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

func (db *DB) begin() (*sql.Tx, error) {
	return db.conn.Begin()
}
