package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dataroute/internal/dataroute"
	"github.com/saltyorg/dataroute/internal/web/middleware"
	"github.com/saltyorg/dataroute/internal/web/sse"
)

// maxBodyBytes bounds a method call's request body
const maxBodyBytes = 1 << 20

// Param describes one method parameter
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Method is a callable data method
type Method struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`

	// event is broadcast after a successful call
	event sse.EventType
	// call returns the result and the number of rows it changed
	call func(ctx context.Context, p dataroute.Params) (any, int64, error)
}

var (
	paramSchema = Param{Name: "schema", Type: "string", Required: true, Description: "Table name"}
	paramOffset = Param{Name: "offset", Type: "int", Description: "Rows to skip"}
	paramLimit  = Param{Name: "limit", Type: "int", Description: "Maximum rows"}

	// whereDescription documents the predicate wire form. beginStr/endStr
	// wrapping is only added by server-side hooks.
	whereDescription = `Predicates, AND-joined. A plain value matches with =; {"value": v, "op": ">="} compares with one of =, !=, <>, <, <=, >, >=, LIKE, NOT LIKE. {value, beginStr, endStr} wrapping is not accepted from callers; use op, or a server hook such as data.contains_fields`
)

func (h *Handlers) register(m *Method) {
	h.methods[m.Name] = m
	h.order = append(h.order, m.Name)
}

func (h *Handlers) registerMethods() {
	h.register(&Method{
		Name:        "add",
		Description: "Insert one row",
		Params: []Param{
			paramSchema,
			{Name: "fields", Type: "object", Required: true, Description: "Column values"},
		},
		event: sse.EventRowsAdded,
		call: func(ctx context.Context, p dataroute.Params) (any, int64, error) {
			ok, err := h.route.Add(ctx, p)
			return ok, 1, err
		},
	})
	h.register(&Method{
		Name:        "edit",
		Description: "Update the rows matching whereFields",
		Params: []Param{
			paramSchema,
			{Name: "whereFields", Type: "object", Required: true, Description: whereDescription},
			{Name: "fields", Type: "object", Required: true, Description: "Column values to set"},
		},
		event: sse.EventRowsEdited,
		call: func(ctx context.Context, p dataroute.Params) (any, int64, error) {
			n, err := h.route.EditCount(ctx, p)
			return err == nil, n, err
		},
	})
	h.register(&Method{
		Name:        "remove",
		Description: "Delete the rows matching whereFields",
		Params: []Param{
			paramSchema,
			{Name: "whereFields", Type: "object", Required: true, Description: whereDescription},
			paramLimit,
		},
		event: sse.EventRowsRemoved,
		call: func(ctx context.Context, p dataroute.Params) (any, int64, error) {
			n, err := h.route.RemoveCount(ctx, p)
			return err == nil, n, err
		},
	})
	h.register(&Method{
		Name:        "list",
		Description: "Select rows matching whereFields with sensitive fields removed",
		Params: []Param{
			paramSchema,
			{Name: "whereFields", Type: "object", Description: whereDescription},
			paramOffset,
			paramLimit,
		},
		call: func(ctx context.Context, p dataroute.Params) (any, int64, error) {
			rows, err := h.route.List(ctx, p)
			return rows, 0, err
		},
	})
}

// Methods returns the registered methods in registration order
func (h *Handlers) Methods() []*Method {
	out := make([]*Method, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.methods[name])
	}
	return out
}

// Catalogue describes the callable methods
func (h *Handlers) Catalogue(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"methods": h.Methods(),
		"version": h.versionInfo.Version,
	})
}

// Call runs the method named in the URL with the JSON object body as its
// parameters
func (h *Handlers) Call(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "method")
	m, ok := h.methods[name]
	if !ok {
		h.jsonError(w, "Unknown method: "+name, http.StatusNotFound)
		return
	}

	params, err := decodeParams(w, r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, p := range m.Params {
		if p.Required && !params.Has(p.Name) {
			h.writeError(w, name, &dataroute.ValidationError{Param: p.Name, Message: "missing required parameter"})
			return
		}
	}

	result, affected, err := m.call(r.Context(), params)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if m.event != "" && h.feed != nil {
		change := sse.Change{Method: name, Affected: affected}
		change.Schema, _ = params.String("schema")
		if identity := middleware.GetIdentity(r.Context()); identity != nil {
			change.Subject = identity.Subject
		}
		h.feed.Publish(m.event, change)
	}

	log.Debug().Str("method", name).Int64("affected", affected).Msg("Method call completed")
	h.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

// decodeParams reads the request body as a parameter object. An empty body
// yields no parameters.
func decodeParams(w http.ResponseWriter, r *http.Request) (dataroute.Params, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.New("request body too large")
		}
		return nil, errors.New("failed to read request body")
	}

	params := dataroute.Params{}
	if len(body) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if params == nil {
		params = dataroute.Params{}
	}
	return params, nil
}
