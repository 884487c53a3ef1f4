package dataroute

import (
	"reflect"
	"testing"
)

func TestRedactorFilter(t *testing.T) {
	rows := []Row{
		{"id": 1, "name": "Ada", "password": "x", "API_KEY": "k"},
		{"id": 2, "name": "Bob", "passwordHash": "h"},
	}
	want := []Row{
		{"id": 1, "name": "Ada"},
		{"id": 2, "name": "Bob"},
	}

	r := DefaultRedactor()
	got := r.Filter(rows)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Filter = %v, want %v", got, want)
	}
	if again := r.Filter(got); !reflect.DeepEqual(again, want) {
		t.Errorf("second Filter = %v, want %v", again, want)
	}
}

func TestRedactorWith(t *testing.T) {
	base := NewRedactor("password")
	extended := base.With(" SSN ", "")

	if base.Sensitive("ssn") {
		t.Error("With must not modify the original redactor")
	}
	if !extended.Sensitive("ssn") || !extended.Sensitive("PASSWORD") {
		t.Errorf("extended names = %v", extended.Names())
	}
	if got := extended.Names(); !reflect.DeepEqual(got, []string{"password", "ssn"}) {
		t.Errorf("Names = %v", got)
	}
}

func TestNilAndEmptyRedactor(t *testing.T) {
	rows := []Row{{"password": "x"}}

	var r *Redactor
	if got := r.Filter(rows); len(got[0]) != 1 {
		t.Error("nil redactor should keep rows unchanged")
	}
	if got := NewRedactor().Filter(rows); len(got[0]) != 1 {
		t.Error("empty redactor should keep rows unchanged")
	}
	if got := DefaultRedactor().Filter(nil); got != nil {
		t.Errorf("Filter(nil) = %v", got)
	}
}
