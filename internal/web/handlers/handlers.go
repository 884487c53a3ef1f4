package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dataroute/internal/dataroute"
	"github.com/saltyorg/dataroute/internal/web/sse"
)

// Pinger reports database reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// SettingsStore reads and writes runtime settings
type SettingsStore interface {
	GetAllSettings() (map[string]string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// VersionInfo holds application version information
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Handlers contains all HTTP handlers
type Handlers struct {
	route       *dataroute.Route
	db          Pinger
	settings    SettingsStore
	feed        *sse.Feed
	methods     map[string]*Method
	order       []string
	versionInfo VersionInfo
}

// New creates a new Handlers instance. settings and feed may be nil.
func New(route *dataroute.Route, db Pinger, settings SettingsStore, feed *sse.Feed, version VersionInfo) *Handlers {
	h := &Handlers{
		route:       route,
		db:          db,
		settings:    settings,
		feed:        feed,
		methods:     make(map[string]*Method),
		versionInfo: version,
	}
	h.registerMethods()
	return h
}

// jsonResponse writes v as JSON with the given status
func (h *Handlers) jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// jsonError sends a JSON error response
func (h *Handlers) jsonError(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// jsonSuccess sends a JSON success response
func (h *Handlers) jsonSuccess(w http.ResponseWriter, message string) {
	h.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "message": message})
}

// StatusFor maps a data route error to an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, dataroute.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dataroute.ErrBuild):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports a failed method call. Execution errors carry the
// driver's message; anything unclassified is hidden.
func (h *Handlers) writeError(w http.ResponseWriter, method string, err error) {
	status := StatusFor(err)
	message := err.Error()

	switch {
	case errors.Is(err, dataroute.ErrValidation), errors.Is(err, dataroute.ErrBuild):
		log.Debug().Err(err).Str("method", method).Int("status", status).Msg("Method call rejected")
	case errors.Is(err, dataroute.ErrExecution):
		log.Error().Err(err).Str("method", method).Msg("Method call failed")
	default:
		log.Error().Err(err).Str("method", method).Msg("Method call failed unexpectedly")
		message = "Internal server error"
	}

	h.jsonError(w, message, status)
}
