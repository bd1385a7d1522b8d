package catalog

import (
	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// Procedure is a registered stored procedure whose body is a sequence of
// already-planned statements (spec §3.4/§4.G "CREATE PROCEDURE").
type Procedure struct {
	Name   string
	Params []plan.FunctionParam
	Body   []plan.Logical
}

// CreateProcedure registers name, replacing any existing definition only
// when orReplace is set.
func (c *Catalog) CreateProcedure(name string, params []plan.FunctionParam, body []plan.Logical, orReplace bool) error {
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.procedures[key]; exists && !orReplace {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "procedure %q already exists", name)
	}
	c.procedures[key] = &Procedure{Name: name, Params: params, Body: body}
	c.plans.InvalidateObject(key)
	return nil
}

// DropProcedure removes a procedure definition. It is an error if name does
// not exist.
func (c *Catalog) DropProcedure(name string) error {
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.procedures[key]; !exists {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "procedure %q does not exist", name)
	}
	delete(c.procedures, key)
	c.plans.InvalidateObject(key)
	return nil
}

// LookupProcedure returns name's definition, or ok=false if no such
// procedure is registered.
func (c *Catalog) LookupProcedure(name string) (*Procedure, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.procedures[canonical(name)]
	return p, ok
}
