package dataroute

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFieldsKeepOrder(t *testing.T) {
	f := NewFields().Set("b", 1).Set("a", 2).Set("b", 3)

	if got := f.Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("keys = %v", got)
	}
	v, ok := f.Get("b")
	if !ok || Unwrap(v) != 3 {
		t.Errorf("b = %#v, want 3", v)
	}

	var nilFields *Fields
	if nilFields.Len() != 0 || nilFields.Keys() != nil {
		t.Error("nil Fields should be empty")
	}
	for range nilFields.All() {
		t.Error("nil Fields should not iterate")
	}
}

func TestFieldsOfSortsKeys(t *testing.T) {
	f := FieldsOf(map[string]any{"z": 1, "a": 2, "m": 3})
	if got := f.Keys(); !reflect.DeepEqual(got, []string{"a", "m", "z"}) {
		t.Errorf("keys = %v", got)
	}
}

func TestFieldsUnmarshal(t *testing.T) {
	var f Fields
	data := `{"name":"Ada","age":36,"score":1.5,"email":null,"since":{"value":18,"op":">="},"plain":{"value":true}}`
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := f.Keys(); !reflect.DeepEqual(got, []string{"name", "age", "score", "email", "since", "plain"}) {
		t.Fatalf("keys = %v", got)
	}

	want := map[string]Value{
		"name":  Raw{Value: "Ada"},
		"age":   Raw{Value: int64(36)},
		"score": Raw{Value: 1.5},
		"email": Raw{Value: nil},
		"since": Wrapped{Value: int64(18), Op: ">="},
		"plain": Raw{Value: true},
	}
	for key, w := range want {
		got, _ := f.Get(key)
		if !reflect.DeepEqual(got, w) {
			t.Errorf("%s = %#v, want %#v", key, got, w)
		}
	}
}

func TestFieldsUnmarshalStringified(t *testing.T) {
	var f Fields
	if err := json.Unmarshal([]byte(`"{\"name\":\"Ada\"}"`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, _ := f.Get("name"); Unwrap(v) != "Ada" {
		t.Errorf("name = %#v", v)
	}
}

func TestFieldsUnmarshalRejects(t *testing.T) {
	tests := map[string]string{
		"array":          `[1, 2]`,
		"scalar":         `42`,
		"array value":    `{"a":[1]}`,
		"wrap fragments": `{"a":{"value":1,"beginStr":"LOWER("}}`,
		"missing value":  `{"a":{"op":"="}}`,
		"unknown key":    `{"a":{"value":1,"extra":2}}`,
		"bad operator":   `{"a":{"value":1,"op":"IN"}}`,
		"nested object":  `{"a":{"value":{"b":1}}}`,
		"bad string":     `"not json"`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var f Fields
			if err := f.UnmarshalJSON([]byte(data)); err == nil {
				t.Fatalf("expected error for %s", data)
			}
		})
	}
}

func TestFieldsMarshal(t *testing.T) {
	f := NewFields().Set("b", 1).Set("a", Compare(">", 2))
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"b":1,"a":2}` {
		t.Errorf("json = %s", data)
	}
}
