package dataroute

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dataroute/internal/sqlbind"
)

const (
	// DefaultListLimit bounds List when the caller gives no limit.
	DefaultListLimit = 20
	// DefaultDeleteLimit bounds Delete when BoundedDelete is set and the
	// caller gives no limit.
	DefaultDeleteLimit = 1
)

// DefaultReservedSchemas hold the service's own bookkeeping and the
// databases' catalogs.
var DefaultReservedSchemas = []string{
	"settings",
	"schema_migrations",
	"sqlite_*",
	"information_schema",
	"pg_catalog",
}

// Options configures a Builder and the Route around it. Options are read
// once at construction; changing them afterwards has no effect.
type Options struct {
	Hooks Hooks

	// Redactor strips sensitive fields from listed rows. Nil means
	// DefaultRedactor.
	Redactor *Redactor

	// DefaultLimit replaces DefaultListLimit when positive.
	DefaultLimit int
	// MaxLimit rejects larger list limits when positive.
	MaxLimit int
	// ZeroOffset emits OFFSET 0 when no offset is given instead of leaving
	// the clause out.
	ZeroOffset bool

	// AllowUnconditionalUpdate lets an update with no where fields touch
	// every row. Without it such an update is a BuildError.
	AllowUnconditionalUpdate bool
	// AllowUnconditionalDelete lets a delete with no where fields remove
	// every row. Without it such a delete is a BuildError.
	AllowUnconditionalDelete bool
	// BoundedDelete applies DefaultDeleteLimit when no limit is given.
	BoundedDelete bool

	// ReservedSchemas are table name patterns (path.Match syntax, matched
	// case-insensitively against the name and each dotted part) that no
	// operation may touch. Nil means DefaultReservedSchemas; an empty
	// non-nil slice reserves nothing.
	ReservedSchemas []string

	// OnRegister runs once from Route.Register, e.g. to create tables.
	OnRegister func(ctx context.Context, db Handle) error
}

// Page bounds a Select. Nil fields fall back to the configured defaults.
type Page struct {
	Offset *int
	Limit  *int
}

// Builder composes statements for one dialect.
type Builder struct {
	dialect sqlbind.Dialect
	opts    Options
}

// NewBuilder creates a builder for the dialect.
func NewBuilder(dialect sqlbind.Dialect, opts Options) *Builder {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultListLimit
	}
	if opts.MaxLimit > 0 && opts.DefaultLimit > opts.MaxLimit {
		log.Warn().
			Int("default_limit", opts.DefaultLimit).
			Int("max_limit", opts.MaxLimit).
			Msg("Default list limit exceeds the maximum; using the maximum")
		opts.DefaultLimit = opts.MaxLimit
	}

	reserved := opts.ReservedSchemas
	if reserved == nil {
		reserved = DefaultReservedSchemas
	}
	opts.ReservedSchemas = make([]string, 0, len(reserved))
	for _, pattern := range reserved {
		if pattern = strings.ToLower(strings.TrimSpace(pattern)); pattern != "" {
			opts.ReservedSchemas = append(opts.ReservedSchemas, pattern)
		}
	}

	return &Builder{dialect: dialect, opts: opts}
}

// term is one field that survived its hook.
type term struct {
	key    string
	value  any
	before string
	after  string
	op     string
}

// collect runs every field through hook, dropping those it drops.
func (b *Builder) collect(ctx context.Context, op string, hook Hook, schema string, fields *Fields, predicate bool) ([]term, error) {
	terms := make([]term, 0, fields.Len())
	for key, v := range fields.All() {
		if key == "" {
			return nil, &ValidationError{Param: "fields", Message: "field names must not be empty"}
		}
		out, err := hook.apply(ctx, op, schema, key, v)
		if err != nil {
			return nil, err
		}
		if out == Drop {
			continue
		}

		t := term{key: key, op: "="}
		switch out := out.(type) {
		case Raw:
			t.value = out.Value
		case Wrapped:
			t.value = out.Value
			t.before, t.after = out.Before, out.After
			for _, fragment := range []string{t.before, t.after} {
				if err := checkFragment(fragment); err != nil {
					return nil, &BuildError{Op: op, Message: "invalid wrapping for field " + key, Err: err}
				}
			}
			if t.op, err = normalizeOp(out.Op); err != nil {
				return nil, &BuildError{Op: op, Message: "invalid operator for field " + key, Err: err}
			}
			if !predicate && t.op != "=" {
				return nil, &BuildError{Op: op, Message: fmt.Sprintf("field %s cannot be assigned with %s", key, t.op)}
			}
		default:
			return nil, &BuildError{Op: op, Message: fmt.Sprintf("hook returned unsupported value %T for field %s", out, key)}
		}
		terms = append(terms, t)
	}
	return terms, nil
}

func (t term) marker() string {
	return t.before + "?" + t.after
}

func appendAssignments(stmt *sqlbind.Statement, terms []term) {
	for i, t := range terms {
		if i > 0 {
			stmt.Append(", ")
		}
		stmt.Append("?? = "+t.marker(), sqlbind.Ident(t.key), t.value)
	}
}

func appendWhere(stmt *sqlbind.Statement, terms []term) {
	if len(terms) == 0 {
		return
	}
	stmt.Append(" WHERE ")
	for i, t := range terms {
		if i > 0 {
			stmt.Append(" AND ")
		}
		stmt.Append("?? "+t.op+" "+t.marker(), sqlbind.Ident(t.key), t.value)
	}
}

func (b *Builder) checkSchema(op, schema string) error {
	if strings.TrimSpace(schema) == "" {
		return &ValidationError{Param: "schema", Message: "must not be empty"}
	}
	if b.Reserved(schema) {
		return &BuildError{Op: op, Message: fmt.Sprintf("schema %s is reserved", schema)}
	}
	return nil
}

// Reserved reports whether schema, or any dotted part of it, matches a
// reserved pattern.
func (b *Builder) Reserved(schema string) bool {
	name := strings.ToLower(schema)
	candidates := append([]string{name}, strings.Split(name, ".")...)
	for _, pattern := range b.opts.ReservedSchemas {
		for _, c := range candidates {
			if ok, _ := path.Match(pattern, c); ok {
				return true
			}
		}
	}
	return false
}

// Insert builds an INSERT of the fields that survive the insert hook.
func (b *Builder) Insert(ctx context.Context, schema string, fields *Fields) (sqlbind.Statement, error) {
	if err := b.checkSchema("insert", schema); err != nil {
		return sqlbind.Statement{}, err
	}
	terms, err := b.collect(ctx, "insert", b.opts.Hooks.InsertField, schema, fields, false)
	if err != nil {
		return sqlbind.Statement{}, err
	}

	stmt := sqlbind.New("INSERT INTO ??", sqlbind.Ident(schema))
	if len(terms) == 0 {
		stmt.Append(" " + b.dialect.EmptyInsert)
		return stmt, nil
	}

	if b.dialect.InsertStyle == sqlbind.InsertSet {
		stmt.Append(" SET ")
		appendAssignments(&stmt, terms)
		return stmt, nil
	}

	stmt.Append(" (")
	for i, t := range terms {
		if i > 0 {
			stmt.Append(", ")
		}
		stmt.Append("??", sqlbind.Ident(t.key))
	}
	stmt.Append(") VALUES (")
	for i, t := range terms {
		if i > 0 {
			stmt.Append(", ")
		}
		stmt.Append(t.marker(), t.value)
	}
	stmt.Append(")")
	return stmt, nil
}

// Update builds an UPDATE of fields restricted by where.
func (b *Builder) Update(ctx context.Context, schema string, fields, where *Fields) (sqlbind.Statement, error) {
	if err := b.checkSchema("update", schema); err != nil {
		return sqlbind.Statement{}, err
	}
	sets, err := b.collect(ctx, "update", b.opts.Hooks.UpdateField, schema, fields, false)
	if err != nil {
		return sqlbind.Statement{}, err
	}
	if len(sets) == 0 {
		return sqlbind.Statement{}, &BuildError{Op: "update", Message: "no fields left to update"}
	}
	conds, err := b.collect(ctx, "update", b.opts.Hooks.UpdateWhereField, schema, where, true)
	if err != nil {
		return sqlbind.Statement{}, err
	}
	if len(conds) == 0 && !b.opts.AllowUnconditionalUpdate {
		return sqlbind.Statement{}, &BuildError{Op: "update", Message: "refusing to update every row without where fields"}
	}

	stmt := sqlbind.New("UPDATE ?? SET ", sqlbind.Ident(schema))
	appendAssignments(&stmt, sets)
	appendWhere(&stmt, conds)
	return stmt, nil
}

// Delete builds a DELETE restricted by where, bounded by limit when given.
func (b *Builder) Delete(ctx context.Context, schema string, where *Fields, limit *int) (sqlbind.Statement, error) {
	if err := b.checkSchema("remove", schema); err != nil {
		return sqlbind.Statement{}, err
	}
	if limit == nil && b.opts.BoundedDelete {
		n := DefaultDeleteLimit
		limit = &n
	}
	if limit != nil && *limit <= 0 {
		return sqlbind.Statement{}, &ValidationError{Param: "limit", Message: "must be positive"}
	}

	conds, err := b.collect(ctx, "remove", b.opts.Hooks.RemoveWhereField, schema, where, true)
	if err != nil {
		return sqlbind.Statement{}, err
	}
	if len(conds) == 0 && !b.opts.AllowUnconditionalDelete {
		return sqlbind.Statement{}, &BuildError{Op: "remove", Message: "refusing to delete every row without where fields"}
	}

	stmt := sqlbind.New("DELETE FROM ??", sqlbind.Ident(schema))
	switch {
	case limit == nil:
		appendWhere(&stmt, conds)
	case b.dialect.RowID == "":
		appendWhere(&stmt, conds)
		stmt.Append(" LIMIT ?", *limit)
	default:
		rowID := b.dialect.RowID
		stmt.Append(" WHERE "+rowID+" IN (SELECT "+rowID+" FROM ??", sqlbind.Ident(schema))
		appendWhere(&stmt, conds)
		stmt.Append(" LIMIT ?)", *limit)
	}
	return stmt, nil
}

// Select builds a SELECT * restricted by where and bounded by page.
func (b *Builder) Select(ctx context.Context, schema string, where *Fields, page Page) (sqlbind.Statement, error) {
	if err := b.checkSchema("list", schema); err != nil {
		return sqlbind.Statement{}, err
	}

	limit := b.opts.DefaultLimit
	if page.Limit != nil {
		limit = *page.Limit
	}
	if limit <= 0 {
		return sqlbind.Statement{}, &ValidationError{Param: "limit", Message: "must be positive"}
	}
	if b.opts.MaxLimit > 0 && limit > b.opts.MaxLimit {
		return sqlbind.Statement{}, &ValidationError{Param: "limit", Message: fmt.Sprintf("must not exceed %d", b.opts.MaxLimit)}
	}
	if page.Offset != nil && *page.Offset < 0 {
		return sqlbind.Statement{}, &ValidationError{Param: "offset", Message: "must not be negative"}
	}

	conds, err := b.collect(ctx, "list", b.opts.Hooks.ListWhereField, schema, where, true)
	if err != nil {
		return sqlbind.Statement{}, err
	}

	stmt := sqlbind.New("SELECT * FROM ??", sqlbind.Ident(schema))
	appendWhere(&stmt, conds)
	stmt.Append(" LIMIT ?", limit)
	switch {
	case page.Offset != nil:
		stmt.Append(" OFFSET ?", *page.Offset)
	case b.opts.ZeroOffset:
		stmt.Append(" OFFSET ?", 0)
	}
	return stmt, nil
}
