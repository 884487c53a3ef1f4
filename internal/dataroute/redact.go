package dataroute

import (
	"maps"
	"slices"
	"strings"
)

// DefaultSensitiveFields never leave a List call unless the route is given
// another Redactor.
var DefaultSensitiveFields = []string{
	"password",
	"password_salt",
	"passwordsalt",
	"password_hash",
	"passwordhash",
	"api_key",
	"apikey",
	"private_key",
	"privatekey",
	"secret_key",
	"secretkey",
}

// Redactor removes denylisted fields from result rows. Names match
// case-insensitively. A Redactor is immutable and safe for concurrent use.
type Redactor struct {
	names map[string]struct{}
}

// NewRedactor returns a Redactor for exactly the given names.
func NewRedactor(names ...string) *Redactor {
	r := &Redactor{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			r.names[name] = struct{}{}
		}
	}
	return r
}

// DefaultRedactor returns a Redactor for DefaultSensitiveFields.
func DefaultRedactor() *Redactor {
	return NewRedactor(DefaultSensitiveFields...)
}

// With returns a new Redactor covering r's names plus names.
func (r *Redactor) With(names ...string) *Redactor {
	return NewRedactor(append(r.Names(), names...)...)
}

// Names returns the denylisted names, sorted.
func (r *Redactor) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.names))
}

// Sensitive reports whether key is denylisted.
func (r *Redactor) Sensitive(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.names[strings.ToLower(key)]
	return ok
}

// Filter deletes sensitive keys from every row in place and returns rows.
func (r *Redactor) Filter(rows []Row) []Row {
	if r == nil || len(r.names) == 0 {
		return rows
	}
	for _, row := range rows {
		for key := range row {
			if r.Sensitive(key) {
				delete(row, key)
			}
		}
	}
	return rows
}
