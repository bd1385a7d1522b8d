package catalog

import (
	"strings"
	"time"

	"go.uber.org/zap"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// Namespace is a registered namespace (spec §3.4 "schemas (namespaces)").
// Table names inside a schema are dotted, "schema.table", following
// BigQuery's dataset.table addressing; the catalog's table map itself stays
// flat (tables.go), so schema membership is recovered by canonical-name
// prefix rather than a separate parent pointer.
type Namespace struct {
	Name      string
	CreatedAt time.Time
}

// droppedSchema retains a dropped namespace's identity, and the canonical
// names of the tables a CASCADE drop took down with it, long enough for
// UndropSchema to restore both (spec §3.4 "a snapshot registry retains
// dropped schemas briefly for UNDROP SCHEMA").
type droppedSchema struct {
	Name      string
	Tables    []string
	DroppedAt time.Time
}

// CreateSchema registers namespace name. It is an error for it to already
// exist unless ifNotExists is set.
func (c *Catalog) CreateSchema(name string, ifNotExists bool) error {
	key := canonical(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.schemas[key]; exists {
		if ifNotExists {
			return nil
		}
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "schema %q already exists", name)
	}
	c.schemas[key] = &Namespace{Name: name, CreatedAt: time.Now()}
	delete(c.droppedSchemas, key)
	return nil
}

// schemaTables returns the canonical names of every table registered under
// schema name ("name.*"), the membership a DROP SCHEMA CASCADE removes.
// Called with c.mu held.
func (c *Catalog) schemaTables(name string) []string {
	prefix := canonical(name) + "."
	var out []string
	for k := range c.tables {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// DropSchema removes namespace name. Without cascade it is an error for the
// schema to still contain tables; with cascade the namespace is removed and
// then every table under it is dropped, each retained for UndropTable
// exactly as a standalone DROP TABLE would retain it. The namespace itself is retained for UndropSchema
// within the catalog's retention window.
func (c *Catalog) DropSchema(name string, ifExists, cascade bool) error {
	key := canonical(name)
	c.mu.Lock()
	if _, exists := c.schemas[key]; !exists {
		c.mu.Unlock()
		if ifExists {
			return nil
		}
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "schema %q does not exist", name)
	}
	members := c.schemaTables(name)
	if len(members) > 0 && !cascade {
		c.mu.Unlock()
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "schema %q is not empty", name)
	}
	delete(c.schemas, key)
	c.droppedSchemas[key] = &droppedSchema{Name: name, Tables: members, DroppedAt: time.Now()}
	c.mu.Unlock()

	for _, table := range members {
		if err := c.DropTable(table); err != nil {
			return err
		}
	}
	return nil
}

// UndropSchema restores a schema dropped within the catalog's retention
// window, along with every table a cascading drop took down with it (best
// effort: a table re-created under the same name in the meantime is logged
// and skipped rather than failing the whole restore).
func (c *Catalog) UndropSchema(name string) error {
	key := canonical(name)
	c.mu.Lock()
	dropped, ok := c.droppedSchemas[key]
	if !ok {
		c.mu.Unlock()
		return yachtsql.NewError(yachtsql.ErrTableNotFound, "no dropped schema %q to restore", name)
	}
	if c.schemaRetention > 0 && time.Since(dropped.DroppedAt) > c.schemaRetention {
		delete(c.droppedSchemas, key)
		c.mu.Unlock()
		return yachtsql.NewError(yachtsql.ErrTableNotFound, "dropped schema %q has expired", name)
	}
	if _, exists := c.schemas[key]; exists {
		c.mu.Unlock()
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "schema %q already exists", name)
	}
	delete(c.droppedSchemas, key)
	c.schemas[key] = &Namespace{Name: name, CreatedAt: time.Now()}
	members := dropped.Tables
	c.mu.Unlock()

	for _, table := range members {
		if err := c.UndropTable(table); err != nil {
			c.log.Warn("failed to restore cascade-dropped table during UNDROP SCHEMA",
				zap.String("schema", name), zap.String("table", table), zap.Error(err))
		}
	}
	return nil
}

// LookupSchema returns name's registration, or ok=false if no such namespace
// is currently live.
func (c *Catalog) LookupSchema(name string) (*Namespace, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[canonical(name)]
	return s, ok
}
