package database

import (
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/saltyorg/dataroute/internal/logging"
	"github.com/saltyorg/dataroute/internal/sqlbind"
)

const settingsTable = sqlbind.Ident("settings")

var (
	colKey       = sqlbind.Ident("key")
	colValue     = sqlbind.Ident("value")
	colUpdatedAt = sqlbind.Ident("updated_at")
)

// GetSetting retrieves a setting value by key. A missing key yields "".
func (db *DB) GetSetting(key string) (string, error) {
	query, args, err := db.render(sqlbind.New(
		"SELECT ?? FROM ?? WHERE ?? = ?", colValue, settingsTable, colKey, key,
	))
	if err != nil {
		return "", err
	}

	var value string
	err = db.queryRow(query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a setting value, replacing any existing one
func (db *DB) SetSetting(key, value string) error {
	stmt := sqlbind.New(
		"INSERT INTO ?? (??, ??, ??) VALUES (?, ?, ?)",
		settingsTable, colKey, colValue, colUpdatedAt, key, value, time.Now().UTC(),
	)
	if db.dialect.Name == sqlbind.MySQL.Name {
		stmt.Append(" ON DUPLICATE KEY UPDATE ?? = VALUES(??), ?? = VALUES(??)",
			colValue, colValue, colUpdatedAt, colUpdatedAt)
	} else {
		stmt.Append(" ON CONFLICT(??) DO UPDATE SET ?? = excluded.??, ?? = excluded.??",
			colKey, colValue, colValue, colUpdatedAt, colUpdatedAt)
	}

	query, args, err := db.render(stmt)
	if err != nil {
		return err
	}
	if _, err := db.exec(query, args...); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a setting
func (db *DB) DeleteSetting(key string) error {
	query, args, err := db.render(sqlbind.New("DELETE FROM ?? WHERE ?? = ?", settingsTable, colKey, key))
	if err != nil {
		return err
	}
	if _, err := db.exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// GetAllSettings retrieves all settings
func (db *DB) GetAllSettings() (map[string]string, error) {
	query, args, err := db.render(sqlbind.New("SELECT ??, ?? FROM ??", colKey, colValue, settingsTable))
	if err != nil {
		return nil, err
	}

	rows, err := db.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}

	return settings, rows.Err()
}

// DefaultSettings are written by InitializeDefaults when missing. data.*
// keys are left unset so command line flags apply until overridden.
var DefaultSettings = map[string]string{
	"log.level":        "info",
	"log.max_size_mb":  fmt.Sprint(logging.DefaultMaxSizeMB),
	"log.max_backups":  fmt.Sprint(logging.DefaultMaxBackups),
	"log.max_age_days": fmt.Sprint(logging.DefaultMaxAgeDays),
	"log.compress":     fmt.Sprint(logging.DefaultCompress),
}

// InitializeDefaults sets default values for settings that don't exist
func (db *DB) InitializeDefaults() error {
	for _, key := range slices.Sorted(maps.Keys(DefaultSettings)) {
		existing, err := db.GetSetting(key)
		if err != nil {
			return err
		}
		if existing == "" {
			if err := db.SetSetting(key, DefaultSettings[key]); err != nil {
				return err
			}
		}
	}
	return nil
}
