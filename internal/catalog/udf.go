package catalog

import (
	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// Function is a registered scalar or aggregate user-defined function (spec
// §3.4/§4.G "CREATE FUNCTION"). Body is nil for a function implemented
// natively in internal/eval/scalarfuncs rather than as a SQL expression.
type Function struct {
	Name        string
	Params      []plan.FunctionParam
	ReturnType  string
	Body        plan.Expr
	IsAggregate bool
}

// CreateFunction registers name, replacing any existing definition only when
// orReplace is set.
func (c *Catalog) CreateFunction(name string, params []plan.FunctionParam, returnType string, body plan.Expr, isAggregate, orReplace bool) error {
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.functions[key]; exists && !orReplace {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "function %q already exists", name)
	}
	c.functions[key] = &Function{
		Name: name, Params: params, ReturnType: returnType, Body: body, IsAggregate: isAggregate,
	}
	c.plans.InvalidateObject(key)
	return nil
}

// DropFunction removes a function definition. It is an error if name does
// not exist.
func (c *Catalog) DropFunction(name string) error {
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.functions[key]; !exists {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "function %q does not exist", name)
	}
	delete(c.functions, key)
	c.plans.InvalidateObject(key)
	return nil
}

// LookupFunction returns name's definition, or ok=false if no such function
// is registered.
func (c *Catalog) LookupFunction(name string) (*Function, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.functions[canonical(name)]
	return f, ok
}
