package config

import "time"

// TimeoutConfig holds timeout settings for the HTTP surface.
// Statement execution has no timeout of its own; it inherits the request's.
type TimeoutConfig struct {
	// Request bounds a single method call, including its statement. Default: 60s
	Request time.Duration

	// ReadHeader bounds reading request headers. Default: 15s
	ReadHeader time.Duration

	// Shutdown bounds graceful server shutdown. Default: 30s
	Shutdown time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Request:    60 * time.Second,
		ReadHeader: 15 * time.Second,
		Shutdown:   30 * time.Second,
	}
}

// global instance that can be set at startup
var globalTimeouts = DefaultTimeoutConfig()

// SetGlobalTimeouts sets the global timeout configuration
func SetGlobalTimeouts(cfg *TimeoutConfig) {
	globalTimeouts = cfg
}

// GetTimeouts returns the global timeout configuration
func GetTimeouts() *TimeoutConfig {
	return globalTimeouts
}
