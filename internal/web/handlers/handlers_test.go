package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/saltyorg/dataroute/internal/dataroute"
)

func TestValidateSetting(t *testing.T) {
	tests := []struct {
		key, value string
		want       string
		wantErr    bool
	}{
		{"data.default_limit", " 50 ", "50", false},
		{"data.default_limit", "-1", "", true},
		{"data.default_limit", "lots", "", true},
		{"data.zero_offset", "1", "true", false},
		{"data.zero_offset", "sometimes", "", true},
		{"log.level", "debug", "debug", false},
		{"log.level", "verbose", "", true},
		{"data.redact_fields", " token, ,session_id ", "token,session_id", false},
		{"data.unknown", "x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := ValidateSetting(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&dataroute.ValidationError{Param: "schema", Message: "missing required parameter"}, http.StatusBadRequest},
		{&dataroute.BuildError{Op: "update", Message: "no fields"}, http.StatusUnprocessableEntity},
		{&dataroute.ExecutionError{Op: "list", Err: errors.New("no such table")}, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
