// Package scalarfuncs implements the engine's scalar-function dispatch
// table: each named BigQuery function maps to a handler fn([]Value) -> Value
// (spec §4.G: "Scalar-function dispatch is table-driven"). Grounded in
// shape on the teacher's condition.go operator-string switch
// (tryParseNumber / opStr -> sqlOp dispatch), generalized here from a
// fixed set of comparison operators to an open, string-keyed map of typed
// handlers.
package scalarfuncs

import (
	"strings"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// Handler implements one scalar function's body over already-evaluated
// arguments.
type Handler func(args []yachtsql.Value) (yachtsql.Value, error)

// Registry is a name -> Handler table. Lookups are case-insensitive, since
// BigQuery function names are.
type Registry struct {
	handlers map[string]Handler
}

// New builds a Registry pre-populated with the engine's built-in functions.
func New() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	registerStringFuncs(r)
	registerMathFuncs(r)
	registerDateTimeFuncs(r)
	registerArrayFuncs(r)
	registerConversionFuncs(r)
	registerNullFuncs(r)
	registerJSONFuncs(r)
	registerGeoFuncs(r, DefaultGeoAdapter)
	registerNetFuncs(r, DefaultNetAdapter)
	return r
}

// Register adds or replaces the handler for name (used to install UDFs
// defined natively rather than as a SQL expression body).
func (r *Registry) Register(name string, h Handler) {
	r.handlers[strings.ToUpper(name)] = h
}

// Lookup resolves name to its Handler, unwrapping a leading "SAFE." prefix
// by wrapping the underlying call so any error becomes NULL instead of
// propagating (spec §4.E "SAFE."/§7 "SAFE_* paths convert a would-be error
// into NULL at the expression level").
func (r *Registry) Lookup(name string) (Handler, bool) {
	upper := strings.ToUpper(name)
	if strings.HasPrefix(upper, "SAFE.") {
		inner, ok := r.handlers[strings.TrimPrefix(upper, "SAFE.")]
		if !ok {
			return nil, false
		}
		return func(args []yachtsql.Value) (yachtsql.Value, error) {
			v, err := inner(args)
			if err != nil {
				return yachtsql.Null, nil
			}
			return v, nil
		}, true
	}
	h, ok := r.handlers[upper]
	return h, ok
}

// Call dispatches name(args...), returning an Unsupported error if no
// handler is registered.
func (r *Registry) Call(name string, args []yachtsql.Value) (yachtsql.Value, error) {
	h, ok := r.Lookup(name)
	if !ok {
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported, "unknown function %q", name)
	}
	return h(args)
}

// anyNull reports whether any argument is NULL, the near-universal
// null-propagation rule for scalar functions (spec §4.A "NULL propagation:
// any operator/function with a NULL input and no explicit NULL-handling
// rule returns NULL").
func anyNull(args []yachtsql.Value) bool {
	for _, a := range args {
		if a.IsNull() {
			return true
		}
	}
	return false
}

func arityError(name string, want int, got int) error {
	return yachtsql.NewError(yachtsql.ErrInvalidQuery, "%s: expected %d argument(s), got %d", name, want, got)
}
