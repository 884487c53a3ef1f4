package database

import (
	"fmt"

	"github.com/saltyorg/dataroute/internal/sqlbind"
)

// Optimize runs SQLite's PRAGMA optimize to refresh planner stats.
// Other drivers are left alone.
func (db *DB) Optimize() error {
	if db == nil || db.conn == nil {
		return fmt.Errorf("database not initialized")
	}
	if db.dialect.Name != sqlbind.SQLite.Name {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.exec("PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}

	return nil
}

// Vacuum rebuilds the database file to reclaim unused space.
func (db *DB) Vacuum() error {
	if db == nil || db.conn == nil {
		return fmt.Errorf("database not initialized")
	}
	if db.dialect.Name == sqlbind.MySQL.Name {
		return fmt.Errorf("vacuum is not supported for %s", db.dialect.Name)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}
