package dataroute

import (
	"fmt"
	"strings"
)

// Value is a field value as it moves through the hook pipeline. It is one of
// Raw, Wrapped or Drop.
type Value interface {
	fieldValue()
}

// Raw binds its value as-is. A nil Value binds NULL.
type Raw struct {
	Value any
}

// Wrapped binds Value between two literal SQL fragments and, in predicates,
// compares with Op instead of "=". Fragments are trusted SQL and must only
// come from hooks, never from request data.
type Wrapped struct {
	Value  any
	Before string
	After  string
	Op     string
}

type dropValue struct{}

// Drop, returned by a hook, omits the field from the statement.
var Drop Value = dropValue{}

func (Raw) fieldValue()       {}
func (Wrapped) fieldValue()   {}
func (dropValue) fieldValue() {}

// RawValue returns v as a Raw value.
func RawValue(v any) Raw {
	return Raw{Value: v}
}

// WrappedValue returns v wrapped in before and after.
func WrappedValue(v any, before, after string) Wrapped {
	return Wrapped{Value: v, Before: before, After: after}
}

// Compare returns a predicate value compared with op, e.g. Compare(">=", 18).
func Compare(op string, v any) Wrapped {
	return Wrapped{Value: v, Op: op}
}

// Unwrap returns the bound value of v, or nil for Drop.
func Unwrap(v Value) any {
	switch v := v.(type) {
	case Raw:
		return v.Value
	case Wrapped:
		return v.Value
	}
	return nil
}

// toValue lifts a plain Go value into a Value.
func toValue(v any) Value {
	if val, ok := v.(Value); ok && val != nil {
		return val
	}
	return Raw{Value: v}
}

var operators = map[string]string{
	"=":        "=",
	"!=":       "!=",
	"<>":       "<>",
	"<":        "<",
	"<=":       "<=",
	">":        ">",
	">=":       ">=",
	"like":     "LIKE",
	"not like": "NOT LIKE",
}

// normalizeOp validates op against the comparison operators a predicate may
// use. An empty op means equality.
func normalizeOp(op string) (string, error) {
	if op == "" {
		return "=", nil
	}
	norm, ok := operators[strings.ToLower(strings.Join(strings.Fields(op), " "))]
	if !ok {
		return "", fmt.Errorf("unsupported operator %q", op)
	}
	return norm, nil
}

// checkFragment rejects fragments that could add markers or statements.
func checkFragment(fragment string) error {
	if strings.ContainsAny(fragment, "?;") {
		return fmt.Errorf("fragment %q must not contain '?' or ';'", fragment)
	}
	if strings.Contains(fragment, "--") || strings.Contains(fragment, "/*") {
		return fmt.Errorf("fragment %q must not contain comments", fragment)
	}
	return nil
}
