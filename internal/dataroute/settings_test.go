package dataroute

import (
	"testing"

	"github.com/saltyorg/dataroute/internal/config"
)

type mapSettings map[string]string

func (m mapSettings) GetSetting(key string) (string, error) {
	return m[key], nil
}

func TestLoadOptions(t *testing.T) {
	base := Options{DefaultLimit: 10, BoundedDelete: true}

	opts := LoadOptions(config.NewLoader(mapSettings{}), base)
	if opts.DefaultLimit != 10 || !opts.BoundedDelete || opts.Redactor != nil {
		t.Errorf("empty settings changed options: %+v", opts)
	}

	opts = LoadOptions(config.NewLoader(mapSettings{
		SettingDefaultLimit:             "50",
		SettingMaxLimit:                 "500",
		SettingZeroOffset:               "true",
		SettingAllowUnconditionalDelete: "true",
		SettingBoundedDelete:            "false",
		SettingRedactFields:             "token, session_id",
	}), base)

	if opts.DefaultLimit != 50 || opts.MaxLimit != 500 {
		t.Errorf("limits = %d/%d", opts.DefaultLimit, opts.MaxLimit)
	}
	if !opts.ZeroOffset || !opts.AllowUnconditionalDelete || opts.AllowUnconditionalUpdate {
		t.Errorf("flags = %+v", opts)
	}
	if opts.BoundedDelete {
		t.Error("stored false did not override base")
	}
	for _, key := range []string{"token", "SESSION_ID", "password"} {
		if !opts.Redactor.Sensitive(key) {
			t.Errorf("%s not redacted", key)
		}
	}
}
