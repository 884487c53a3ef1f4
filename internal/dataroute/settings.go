package dataroute

import (
	"github.com/saltyorg/dataroute/internal/config"
)

// Setting keys read by LoadOptions.
const (
	SettingDefaultLimit             = "data.default_limit"
	SettingMaxLimit                 = "data.max_limit"
	SettingZeroOffset               = "data.zero_offset"
	SettingAllowUnconditionalUpdate = "data.allow_unconditional_update"
	SettingAllowUnconditionalDelete = "data.allow_unconditional_delete"
	SettingBoundedDelete            = "data.bounded_delete"
	SettingRedactFields             = "data.redact_fields"
)

// LoadOptions overlays stored settings on base. Hooks and OnRegister are
// kept from base. Extra redact fields extend base's Redactor.
func LoadOptions(l *config.Loader, base Options) Options {
	opts := base
	opts.DefaultLimit = l.Int(SettingDefaultLimit, base.DefaultLimit)
	opts.MaxLimit = l.Int(SettingMaxLimit, base.MaxLimit)
	opts.ZeroOffset = l.Bool(SettingZeroOffset, base.ZeroOffset)
	opts.AllowUnconditionalUpdate = l.Bool(SettingAllowUnconditionalUpdate, base.AllowUnconditionalUpdate)
	opts.AllowUnconditionalDelete = l.Bool(SettingAllowUnconditionalDelete, base.AllowUnconditionalDelete)
	opts.BoundedDelete = l.Bool(SettingBoundedDelete, base.BoundedDelete)

	if extra := l.List(SettingRedactFields); len(extra) > 0 {
		redactor := base.Redactor
		if redactor == nil {
			redactor = DefaultRedactor()
		}
		opts.Redactor = redactor.With(extra...)
	}
	return opts
}
