package config

import (
	"strconv"
	"strings"
	"time"
)

// SettingsGetter is an interface for retrieving settings from storage
type SettingsGetter interface {
	GetSetting(key string) (string, error)
}

// Loader provides typed access to settings with default values.
// A nil getter, a lookup error or an unparsable value all yield the default.
type Loader struct {
	db SettingsGetter
}

// NewLoader creates a new settings loader
func NewLoader(db SettingsGetter) *Loader {
	return &Loader{db: db}
}

func (l *Loader) lookup(key string) string {
	if l == nil || l.db == nil {
		return ""
	}
	val, _ := l.db.GetSetting(key)
	return strings.TrimSpace(val)
}

// Int retrieves an integer setting, returning defaultVal if not found or invalid
func (l *Loader) Int(key string, defaultVal int) int {
	if val := l.lookup(key); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			return v
		}
	}
	return defaultVal
}

// Bool retrieves a boolean setting, returning defaultVal if not found or invalid
func (l *Loader) Bool(key string, defaultVal bool) bool {
	if val := l.lookup(key); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			return v
		}
	}
	return defaultVal
}

// String retrieves a string setting, returning defaultVal if not found or empty
func (l *Loader) String(key, defaultVal string) string {
	if val := l.lookup(key); val != "" {
		return val
	}
	return defaultVal
}

// List retrieves a comma-separated setting with blank entries removed
func (l *Loader) List(key string) []string {
	var out []string
	for item := range strings.SplitSeq(l.lookup(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Duration retrieves a duration setting, returning defaultVal if not found or invalid
// Expects the value to be in Go duration format (e.g., "1h30m", "5s")
func (l *Loader) Duration(key string, defaultVal time.Duration) time.Duration {
	if val := l.lookup(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
