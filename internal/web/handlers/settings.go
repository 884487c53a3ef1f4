package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dataroute/internal/dataroute"
	"github.com/saltyorg/dataroute/internal/hooks"
)

// settingKind describes how a setting value is validated
type settingKind int

const (
	kindInt settingKind = iota
	kindBool
	kindList
	kindLevel
)

// KnownSettings lists the settings that may be changed over HTTP
var KnownSettings = map[string]settingKind{
	"log.level":                               kindLevel,
	"log.max_size_mb":                         kindInt,
	"log.max_backups":                         kindInt,
	"log.max_age_days":                        kindInt,
	"log.compress":                            kindBool,
	dataroute.SettingDefaultLimit:             kindInt,
	dataroute.SettingMaxLimit:                 kindInt,
	dataroute.SettingZeroOffset:               kindBool,
	dataroute.SettingAllowUnconditionalUpdate: kindBool,
	dataroute.SettingAllowUnconditionalDelete: kindBool,
	dataroute.SettingBoundedDelete:            kindBool,
	dataroute.SettingRedactFields:             kindList,
	hooks.SettingHashPasswordFields:           kindList,
	hooks.SettingTrimStrings:                  kindBool,
	hooks.SettingContainsFields:               kindList,
}

// ValidateSetting normalizes value for key
func ValidateSetting(key, value string) (string, error) {
	kind, ok := KnownSettings[key]
	if !ok {
		return "", fmt.Errorf("unknown setting %s", key)
	}
	value = strings.TrimSpace(value)

	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return "", fmt.Errorf("%s must be a non-negative integer", key)
		}
		return strconv.Itoa(n), nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%s must be true or false", key)
		}
		return strconv.FormatBool(b), nil
	case kindLevel:
		switch value {
		case "trace", "debug", "info", "warn", "error":
			return value, nil
		}
		return "", fmt.Errorf("%s must be one of trace, debug, info, warn, error", key)
	}

	var names []string
	for name := range strings.SplitSeq(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ","), nil
}

// SettingsList returns the stored settings
func (h *Handlers) SettingsList(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetAllSettings()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get settings")
		h.jsonError(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"settings": settings,
		"known":    slices.Sorted(maps.Keys(KnownSettings)),
	})
}

// SettingsUpdate stores one setting from a {"value": "..."} body. Changes
// apply on the next start.
func (h *Handlers) SettingsUpdate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var body struct {
		Value json.RawMessage `json:"value"`
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || json.Unmarshal(data, &body) != nil || body.Value == nil {
		h.jsonError(w, `Body must be {"value": ...}`, http.StatusBadRequest)
		return
	}

	// Accept strings, numbers and booleans alike
	raw := string(body.Value)
	var s string
	if json.Unmarshal(body.Value, &s) == nil {
		raw = s
	}

	value, err := ValidateSetting(key, raw)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.settings.SetSetting(key, value); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to save setting")
		h.jsonError(w, "Failed to save setting", http.StatusInternalServerError)
		return
	}

	log.Info().Str("key", key).Str("value", value).Msg("Setting updated")
	h.jsonSuccess(w, "Saved; restart to apply")
}

// SettingsDelete removes a stored setting so its default applies again
func (h *Handlers) SettingsDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := KnownSettings[key]; !ok {
		h.jsonError(w, "unknown setting "+key, http.StatusNotFound)
		return
	}
	if err := h.settings.DeleteSetting(key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to delete setting")
		h.jsonError(w, "Failed to delete setting", http.StatusInternalServerError)
		return
	}
	h.jsonSuccess(w, "Deleted; restart to apply")
}
