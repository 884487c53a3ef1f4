package dataroute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Params is a request's parameter bag, keyed by parameter name.
type Params map[string]json.RawMessage

// ParamsFrom encodes a Go map into Params.
func ParamsFrom(m map[string]any) (Params, error) {
	p := make(Params, len(m))
	for k, v := range m {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode parameter %s: %w", k, err)
		}
		p[k] = raw
	}
	return p, nil
}

// Has reports whether name is present and not null.
func (p Params) Has(name string) bool {
	raw, ok := p[name]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// String returns the required string parameter name.
func (p Params) String(name string) (string, error) {
	if !p.Has(name) {
		return "", missingParam(name)
	}
	var s string
	if err := json.Unmarshal(p[name], &s); err != nil {
		return "", &ValidationError{Param: name, Message: "must be a string"}
	}
	return s, nil
}

// Fields decodes the field map parameter name. An absent optional parameter
// yields an empty map.
func (p Params) Fields(name string, required bool) (*Fields, error) {
	if !p.Has(name) {
		if required {
			return nil, missingParam(name)
		}
		return NewFields(), nil
	}
	f := NewFields()
	if err := f.UnmarshalJSON(p[name]); err != nil {
		return nil, &ValidationError{Param: name, Message: err.Error()}
	}
	return f, nil
}

// Int returns the optional integer parameter name, or nil when absent.
// Numeric strings are accepted.
func (p Params) Int(name string) (*int, error) {
	if !p.Has(name) {
		return nil, nil
	}
	raw := bytes.TrimSpace(p[name])
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &ValidationError{Param: name, Message: "must be an integer"}
		}
		raw = []byte(s)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return nil, &ValidationError{Param: name, Message: "must be an integer"}
	}
	return &n, nil
}
