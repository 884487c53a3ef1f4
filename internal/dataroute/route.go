// Package dataroute implements add, edit, remove and list over arbitrary
// tables. Field maps from callers go through per-operation hooks, become
// parameterized statements, and listed rows are redacted before they are
// returned.
package dataroute

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dataroute/internal/sqlbind"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Handle is a connected database able to run rendered statements.
type Handle interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	Dialect() sqlbind.Dialect
}

// Route runs data operations against one database. It holds no per-call
// state and is safe for concurrent use.
type Route struct {
	db         Handle
	builder    *Builder
	redactor   *Redactor
	onRegister func(ctx context.Context, db Handle) error
}

// New creates a route over db.
func New(db Handle, opts Options) *Route {
	redactor := opts.Redactor
	if redactor == nil {
		redactor = DefaultRedactor()
	}
	return &Route{
		db:         db,
		builder:    NewBuilder(db.Dialect(), opts),
		redactor:   redactor,
		onRegister: opts.OnRegister,
	}
}

// Register runs the OnRegister callback, if any.
func (r *Route) Register(ctx context.Context) error {
	if r.onRegister == nil {
		return nil
	}
	log.Debug().Str("dialect", r.db.Dialect().Name).Msg("Running route registration")
	return r.onRegister(ctx, r.db)
}

// Builder returns the route's statement builder.
func (r *Route) Builder() *Builder {
	return r.builder
}

func (r *Route) render(op string, stmt sqlbind.Statement) (string, []any, error) {
	query, args, err := stmt.Render(r.db.Dialect())
	if err != nil {
		return "", nil, &BuildError{Op: op, Message: "failed to render statement", Err: err}
	}
	log.Trace().Str("op", op).Str("sql", query).Int("args", len(args)).Msg("Rendered statement")
	return query, args, nil
}

func (r *Route) exec(ctx context.Context, op, schema string, stmt sqlbind.Statement) (int64, error) {
	query, args, err := r.render(op, stmt)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	affected, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		log.Debug().Err(err).Str("op", op).Str("schema", schema).Msg("Statement failed")
		return 0, &ExecutionError{Op: op, Err: err}
	}
	log.Debug().
		Str("op", op).
		Str("schema", schema).
		Int64("affected", affected).
		Dur("duration", time.Since(start)).
		Msg("Statement executed")
	return affected, nil
}

// Insert adds one row built from fields.
func (r *Route) Insert(ctx context.Context, schema string, fields *Fields) error {
	stmt, err := r.builder.Insert(ctx, schema, fields)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, "insert", schema, stmt)
	return err
}

// Update sets fields on the rows matching where and returns how many rows
// the driver reports as affected.
func (r *Route) Update(ctx context.Context, schema string, fields, where *Fields) (int64, error) {
	stmt, err := r.builder.Update(ctx, schema, fields, where)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, "update", schema, stmt)
}

// Delete removes the rows matching where, at most limit when limit is set.
func (r *Route) Delete(ctx context.Context, schema string, where *Fields, limit *int) (int64, error) {
	stmt, err := r.builder.Delete(ctx, schema, where, limit)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, "remove", schema, stmt)
}

// Select returns the redacted rows matching where within page.
func (r *Route) Select(ctx context.Context, schema string, where *Fields, page Page) ([]Row, error) {
	stmt, err := r.builder.Select(ctx, schema, where, page)
	if err != nil {
		return nil, err
	}
	query, args, err := r.render("list", stmt)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		log.Debug().Err(err).Str("op", "list").Str("schema", schema).Msg("Statement failed")
		return nil, &ExecutionError{Op: "list", Err: err}
	}
	log.Debug().
		Str("op", "list").
		Str("schema", schema).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Statement executed")

	if rows == nil {
		rows = []Row{}
	}
	return r.redactor.Filter(rows), nil
}

// Add handles the "add" method: schema and fields are required.
func (r *Route) Add(ctx context.Context, p Params) (bool, error) {
	schema, err := p.String("schema")
	if err != nil {
		return false, err
	}
	fields, err := p.Fields("fields", true)
	if err != nil {
		return false, err
	}
	if err := r.Insert(ctx, schema, fields); err != nil {
		return false, err
	}
	return true, nil
}

// Edit handles the "edit" method: schema, whereFields and fields are
// required.
func (r *Route) Edit(ctx context.Context, p Params) (bool, error) {
	if _, err := r.EditCount(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

// EditCount is Edit returning the affected row count.
func (r *Route) EditCount(ctx context.Context, p Params) (int64, error) {
	schema, err := p.String("schema")
	if err != nil {
		return 0, err
	}
	where, err := p.Fields("whereFields", true)
	if err != nil {
		return 0, err
	}
	fields, err := p.Fields("fields", true)
	if err != nil {
		return 0, err
	}
	return r.Update(ctx, schema, fields, where)
}

// Remove handles the "remove" method: schema and whereFields are required,
// limit is optional.
func (r *Route) Remove(ctx context.Context, p Params) (bool, error) {
	if _, err := r.RemoveCount(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveCount is Remove returning the affected row count.
func (r *Route) RemoveCount(ctx context.Context, p Params) (int64, error) {
	schema, err := p.String("schema")
	if err != nil {
		return 0, err
	}
	where, err := p.Fields("whereFields", true)
	if err != nil {
		return 0, err
	}
	limit, err := p.Int("limit")
	if err != nil {
		return 0, err
	}
	return r.Delete(ctx, schema, where, limit)
}

// List handles the "list" method: schema is required; whereFields, offset
// and limit are optional.
func (r *Route) List(ctx context.Context, p Params) ([]Row, error) {
	schema, err := p.String("schema")
	if err != nil {
		return nil, err
	}
	where, err := p.Fields("whereFields", false)
	if err != nil {
		return nil, err
	}
	var page Page
	if page.Offset, err = p.Int("offset"); err != nil {
		return nil, err
	}
	if page.Limit, err = p.Int("limit"); err != nil {
		return nil, err
	}
	return r.Select(ctx, schema, where, page)
}
