// Package hooks provides stock field hooks for data routes.
package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/saltyorg/dataroute/internal/auth"
	"github.com/saltyorg/dataroute/internal/config"
	"github.com/saltyorg/dataroute/internal/dataroute"
	"github.com/saltyorg/dataroute/internal/sqlbind"
)

// Setting keys read by FromSettings
const (
	SettingHashPasswordFields = "data.hash_password_fields"
	SettingTrimStrings        = "data.trim_strings"
	SettingContainsFields     = "data.contains_fields"
)

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[strings.ToLower(name)] = struct{}{}
	}
	return set
}

// HashPasswords bcrypt-hashes string values of the named fields. Values
// that already hold a bcrypt hash are left alone, as are non-strings.
func HashPasswords(cost int, names ...string) dataroute.Hook {
	set := nameSet(names)
	return func(_ context.Context, _, key string, v dataroute.Value) (dataroute.Value, error) {
		if _, ok := set[strings.ToLower(key)]; !ok {
			return v, nil
		}
		raw, ok := v.(dataroute.Raw)
		if !ok {
			return v, nil
		}
		s, ok := raw.Value.(string)
		if !ok || s == "" || auth.IsHashed(s) {
			return v, nil
		}
		hash, err := auth.HashPassword(s, cost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", key, err)
		}
		return dataroute.RawValue(hash), nil
	}
}

// TrimStrings trims surrounding whitespace from string values
func TrimStrings() dataroute.Hook {
	return func(_ context.Context, _, _ string, v dataroute.Value) (dataroute.Value, error) {
		switch v := v.(type) {
		case dataroute.Raw:
			if s, ok := v.Value.(string); ok {
				return dataroute.RawValue(strings.TrimSpace(s)), nil
			}
		case dataroute.Wrapped:
			if s, ok := v.Value.(string); ok {
				v.Value = strings.TrimSpace(s)
				return v, nil
			}
		}
		return v, nil
	}
}

// Contains turns equality on the named fields into a substring match. It is
// meant for ListWhereField.
func Contains(d sqlbind.Dialect, names ...string) dataroute.Hook {
	set := nameSet(names)
	before, after := "'%' || ", " || '%'"
	if d.Name == sqlbind.MySQL.Name {
		before, after = "CONCAT('%', ", ", '%')"
	}
	return func(_ context.Context, _, key string, v dataroute.Value) (dataroute.Value, error) {
		if _, ok := set[strings.ToLower(key)]; !ok {
			return v, nil
		}
		raw, ok := v.(dataroute.Raw)
		if !ok || raw.Value == nil {
			return v, nil
		}
		return dataroute.Wrapped{Value: raw.Value, Before: before, After: after, Op: "LIKE"}, nil
	}
}

// Drop removes the named fields from every statement
func Drop(names ...string) dataroute.Hook {
	set := nameSet(names)
	return func(_ context.Context, _, key string, v dataroute.Value) (dataroute.Value, error) {
		if _, ok := set[strings.ToLower(key)]; ok {
			return dataroute.Drop, nil
		}
		return v, nil
	}
}

// Chain runs hooks in order, stopping at the first drop or error. Nil hooks
// are skipped.
func Chain(hooks ...dataroute.Hook) dataroute.Hook {
	var live []dataroute.Hook
	for _, h := range hooks {
		if h != nil {
			live = append(live, h)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(ctx context.Context, schema, key string, v dataroute.Value) (dataroute.Value, error) {
		for _, h := range live {
			out, err := h(ctx, schema, key, v)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = dataroute.Raw{}
			}
			if out == dataroute.Drop {
				return out, nil
			}
			v = out
		}
		return v, nil
	}
}

// FromSettings builds hooks from stored settings:
//
//	data.hash_password_fields  comma-separated fields hashed on insert and update
//	data.trim_strings          trim string values on insert and update
//	data.contains_fields       comma-separated fields matched by substring in list
func FromSettings(l *config.Loader, d sqlbind.Dialect) dataroute.Hooks {
	var write []dataroute.Hook
	if l.Bool(SettingTrimStrings, false) {
		write = append(write, TrimStrings())
	}
	if names := l.List(SettingHashPasswordFields); len(names) > 0 {
		write = append(write, HashPasswords(auth.BcryptCost, names...))
	}

	var hooks dataroute.Hooks
	hooks.InsertField = Chain(write...)
	hooks.UpdateField = Chain(write...)
	if names := l.List(SettingContainsFields); len(names) > 0 {
		hooks.ListWhereField = Contains(d, names...)
	}
	return hooks
}
