package dataroute

import (
	"errors"
	"testing"
)

func TestParams(t *testing.T) {
	p, err := ParamsFrom(map[string]any{
		"schema":      "users",
		"whereFields": map[string]any{"id": 1},
		"limit":       "5",
		"offset":      10,
		"bad":         1.5,
		"nothing":     nil,
	})
	if err != nil {
		t.Fatalf("ParamsFrom: %v", err)
	}

	if s, err := p.String("schema"); err != nil || s != "users" {
		t.Errorf("String(schema) = %q, %v", s, err)
	}
	if _, err := p.String("offset"); !errors.Is(err, ErrValidation) {
		t.Errorf("String(offset) err = %v, want ErrValidation", err)
	}
	if _, err := p.String("missing"); !errors.Is(err, ErrValidation) {
		t.Errorf("String(missing) err = %v, want ErrValidation", err)
	}

	if n, err := p.Int("limit"); err != nil || n == nil || *n != 5 {
		t.Errorf("Int(limit) = %v, %v", n, err)
	}
	if n, err := p.Int("offset"); err != nil || n == nil || *n != 10 {
		t.Errorf("Int(offset) = %v, %v", n, err)
	}
	if n, err := p.Int("nothing"); err != nil || n != nil {
		t.Errorf("Int(nothing) = %v, %v, want absent", n, err)
	}
	if _, err := p.Int("bad"); !errors.Is(err, ErrValidation) {
		t.Errorf("Int(bad) err = %v, want ErrValidation", err)
	}

	f, err := p.Fields("whereFields", true)
	if err != nil || f.Len() != 1 {
		t.Fatalf("Fields(whereFields) = %v, %v", f, err)
	}
	if f, err := p.Fields("missing", false); err != nil || f.Len() != 0 {
		t.Errorf("optional missing Fields = %v, %v", f, err)
	}
	_, err = p.Fields("missing", true)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Param != "missing" {
		t.Errorf("required missing Fields err = %v", err)
	}
	if _, err := p.Fields("schema", true); !errors.Is(err, ErrValidation) {
		t.Errorf("Fields(schema) err = %v, want ErrValidation", err)
	}
}
