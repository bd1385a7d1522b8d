package catalog

import (
	"sync"

	"github.com/lychee-technology/yachtsql/internal/constraint"
)

// constraintStore holds each table's declared constraints (spec §4.I),
// separate from the tables map since CreateTable's Table argument carries
// no constraint metadata of its own (that lives on the DDL's ColumnDef
// list, which the executor translates into a TableConstraints at CREATE
// TABLE time).
type constraintStore struct {
	mu sync.RWMutex
	m  map[string]constraint.TableConstraints
}

func newConstraintStore() *constraintStore {
	return &constraintStore{m: make(map[string]constraint.TableConstraints)}
}

// SetConstraints records name's declared constraints, replacing any prior
// value (used by CREATE TABLE and CREATE OR REPLACE TABLE).
func (c *Catalog) SetConstraints(name string, tc constraint.TableConstraints) {
	c.constraints.mu.Lock()
	defer c.constraints.mu.Unlock()
	c.constraints.m[canonical(name)] = tc
}

// Constraints returns name's declared constraints, or the zero value if
// none were ever set (a table with no PK/UNIQUE/NOT NULL declarations).
func (c *Catalog) Constraints(name string) constraint.TableConstraints {
	c.constraints.mu.RLock()
	defer c.constraints.mu.RUnlock()
	return c.constraints.m[canonical(name)]
}

// ForgetConstraints removes name's constraints (used by DROP TABLE).
func (c *Catalog) ForgetConstraints(name string) {
	c.constraints.mu.Lock()
	defer c.constraints.mu.Unlock()
	delete(c.constraints.m, canonical(name))
}
