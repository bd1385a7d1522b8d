package executor

import (
	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// execScan reads the named base table, applies Projection (a column
// subset, already resolved by the binder) and re-qualifies the resulting
// Schema under Alias so downstream Column exprs can resolve "alias.col".
func (e *Executor) execScan(s *plan.Scan) (*yachtsql.Table, error) {
	table, err := e.readTable(s.TableName)
	if err != nil {
		return nil, err
	}
	if len(s.Projection) > 0 {
		indices := make([]int, len(s.Projection))
		for i, name := range s.Projection {
			idx := table.Schema.IndexOf(name)
			if idx < 0 {
				return nil, yachtsql.NewError(yachtsql.ErrColumnNotFound, "column %q not found on table %q", name, s.TableName)
			}
			indices[i] = idx
		}
		table = table.WithReorderedSchema(indices)
	}
	qualifier := s.Alias
	if qualifier == "" {
		qualifier = s.TableName
	}
	table.Schema = table.Schema.Qualified(qualifier)
	return table, nil
}
