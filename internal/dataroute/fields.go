package dataroute

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Fields is an ordered map of field names to values. Iteration follows
// insertion order; setting an existing key keeps its position.
type Fields struct {
	keys   []string
	values map[string]Value
}

// NewFields returns an empty field map.
func NewFields() *Fields {
	return &Fields{values: make(map[string]Value)}
}

// FieldsOf builds a field map from m with keys in sorted order.
func FieldsOf(m map[string]any) *Fields {
	f := NewFields()
	for _, k := range slices.Sorted(maps.Keys(m)) {
		f.Set(k, m[k])
	}
	return f
}

// Set stores v under key. Plain values are stored as Raw.
func (f *Fields) Set(key string, v any) *Fields {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = toValue(v)
	return f
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (Value, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns the field names in order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return slices.Clone(f.keys)
}

// All iterates over the fields in order.
func (f *Fields) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if f == nil {
			return
		}
		for _, k := range f.keys {
			if !yield(k, f.values[k]) {
				return
			}
		}
	}
}

// MarshalJSON writes the fields as an object in order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(Unwrap(f.values[k]))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping key order. A JSON string holding an
// object is accepted as well. Values may be scalars, null, or an object of
// the form {"value": v, "op": ">="}.
func (f *Fields) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		return f.UnmarshalJSON([]byte(inner))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("expected an object: %w", err)
	}
	*f = Fields{values: make(map[string]Value)}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("expected an object of field names to values")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		v, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		f.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func decodeValue(raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty value")
	}

	switch raw[0] {
	case '[':
		return nil, errors.New("arrays are not supported")
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		inner, ok := obj["value"]
		if !ok {
			return nil, errors.New(`object values must carry a "value" key`)
		}
		var op string
		for k, v := range obj {
			switch k {
			case "value":
			case "op":
				if err := json.Unmarshal(v, &op); err != nil {
					return nil, fmt.Errorf("op: %w", err)
				}
			case "beginStr", "endStr":
				return nil, fmt.Errorf("%s is not accepted in requests", k)
			default:
				return nil, fmt.Errorf("unknown key %q", k)
			}
		}
		scalar, err := decodeScalar(inner)
		if err != nil {
			return nil, err
		}
		if op == "" {
			return Raw{Value: scalar}, nil
		}
		norm, err := normalizeOp(op)
		if err != nil {
			return nil, err
		}
		return Wrapped{Value: scalar, Op: norm}, nil
	}

	scalar, err := decodeScalar(raw)
	if err != nil {
		return nil, err
	}
	return Raw{Value: scalar}, nil
}

func decodeScalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	switch v := v.(type) {
	case nil, string, bool:
		return v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		return v.Float64()
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}
