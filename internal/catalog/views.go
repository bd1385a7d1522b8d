package catalog

import (
	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// View is a named, stored query definition (spec §3.4 "CREATE VIEW"). The
// catalog keeps only the planned query; re-binding and re-optimizing happen
// at reference time so a view always reflects the current state of the
// tables it selects from.
type View struct {
	Name          string
	ColumnAliases []string
	Query         plan.Logical
}

// CreateView registers name, replacing any existing definition only when
// orReplace is set.
func (c *Catalog) CreateView(name string, columnAliases []string, query plan.Logical, orReplace bool) error {
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.views[key]; exists && !orReplace {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "view %q already exists", name)
	}
	c.views[key] = &View{Name: name, ColumnAliases: columnAliases, Query: query}
	c.plans.InvalidateObject(key)
	return nil
}

// DropView removes a view definition. It is an error if name does not exist.
func (c *Catalog) DropView(name string) error {
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.views[key]; !exists {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "view %q does not exist", name)
	}
	delete(c.views, key)
	c.plans.InvalidateObject(key)
	return nil
}

// LookupView returns name's definition, or ok=false if no such view exists.
func (c *Catalog) LookupView(name string) (*View, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.views[canonical(name)]
	return v, ok
}
