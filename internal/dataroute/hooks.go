package dataroute

import (
	"context"
	"errors"
)

// Hook intercepts one field before it is placed into a statement. It returns
// the value to bind (possibly Wrapped), Drop to omit the field, or nil to
// bind NULL. A nil Hook passes every value through unchanged.
type Hook func(ctx context.Context, schema, key string, value Value) (Value, error)

// Hooks holds the per-operation field hooks of a route.
type Hooks struct {
	InsertField      Hook
	UpdateField      Hook
	UpdateWhereField Hook
	RemoveWhereField Hook
	ListWhereField   Hook
}

func (h Hook) apply(ctx context.Context, op, schema, key string, v Value) (Value, error) {
	if h == nil {
		return v, nil
	}
	out, err := h(ctx, schema, key, v)
	if err != nil {
		var verr *ValidationError
		var berr *BuildError
		if errors.As(err, &verr) || errors.As(err, &berr) {
			return nil, err
		}
		return nil, &BuildError{Op: op, Message: "hook rejected field " + key, Err: err}
	}
	if out == nil {
		return Raw{}, nil
	}
	return out, nil
}
