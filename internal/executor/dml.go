package executor

import (
	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/constraint"
	"github.com/lychee-technology/yachtsql/internal/eval"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// execInsert appends Source's rows onto Table, validating them against the
// table's declared constraints first (spec §4.I: NOT NULL, then PRIMARY
// KEY, then UNIQUE).
func (e *Executor) execInsert(n *plan.Insert) error {
	source, err := e.ExecuteLogical(n.Source)
	if err != nil {
		return err
	}
	return e.writeTable(n.Table, func(existing *yachtsql.Table) (*yachtsql.Table, error) {
		rows := reorderForInsert(existing.Schema, n.Columns, source)
		validator := constraint.New(e.Catalog.Constraints(n.Table), existing.Schema)
		if err := validator.ValidateInsert(n.Table, rows, existing); err != nil {
			return nil, err
		}
		next := existing.Clone()
		for _, r := range rows {
			next.PushRow(r.Values)
		}
		return next, nil
	})
}

// reorderForInsert maps source's columns onto target's schema order. An
// explicit Columns list means source supplies only those columns, in that
// order, with every other target column NULL; nil Columns means source's
// columns already match the target 1:1.
func reorderForInsert(target *yachtsql.Schema, columns []string, source *yachtsql.Table) []yachtsql.Record {
	n := source.NumRows()
	out := make([]yachtsql.Record, n)
	if len(columns) == 0 {
		for i := 0; i < n; i++ {
			out[i] = yachtsql.Record{Schema: target, Values: source.Row(i).Values}
		}
		return out
	}
	targetIdx := make([]int, len(columns))
	for i, col := range columns {
		targetIdx[i] = target.IndexOf(col)
	}
	for i := 0; i < n; i++ {
		values := make([]yachtsql.Value, len(target.Fields))
		for i := range values {
			values[i] = yachtsql.Null
		}
		srcRow := source.Row(i)
		for c, idx := range targetIdx {
			if idx >= 0 {
				values[idx] = srcRow.Values[c]
			}
		}
		out[i] = yachtsql.Record{Schema: target, Values: values}
	}
	return out
}

// execUpdate rewrites matching rows of Table, evaluating Predicate and
// Assignments against each row of Table alone; n.From is neither executed
// nor joined.
func (e *Executor) execUpdate(n *plan.Update) error {
	return e.writeTable(n.Table, func(existing *yachtsql.Table) (*yachtsql.Table, error) {
		ve := eval.NewValueEvaluator(e.ctx)
		next := existing.Clone()
		assignIdx := make([]int, len(n.Assignments))
		for i, a := range n.Assignments {
			assignIdx[i] = existing.Schema.IndexOf(a.Column)
		}
		for i := 0; i < next.NumRows(); i++ {
			row := next.Row(i)
			if n.Predicate != nil {
				v, err := ve.Eval(n.Predicate, row)
				if err != nil {
					return nil, err
				}
				if v.IsNull() || !v.Bool() {
					continue
				}
			}
			for a, assignment := range n.Assignments {
				v, err := ve.Eval(assignment.Value, row)
				if err != nil {
					return nil, err
				}
				if assignIdx[a] >= 0 {
					next.Columns[assignIdx[a]].Set(i, v)
				}
			}
		}
		return next, nil
	})
}

// execDelete removes matching rows of Table.
func (e *Executor) execDelete(n *plan.Delete) error {
	return e.writeTable(n.Table, func(existing *yachtsql.Table) (*yachtsql.Table, error) {
		if n.Predicate == nil {
			return yachtsql.NewTable(existing.Schema), nil
		}
		ve := eval.NewValueEvaluator(e.ctx)
		mask := make([]bool, existing.NumRows())
		for i := 0; i < existing.NumRows(); i++ {
			v, err := ve.Eval(n.Predicate, existing.Row(i))
			if err != nil {
				return nil, err
			}
			mask[i] = v.IsNull() || !v.Bool()
		}
		return existing.FilterByMask(mask), nil
	})
}

// execCreateTable creates Name with an empty table of the declared schema
// (or the AsSelect result), registering its NOT NULL/PRIMARY KEY/UNIQUE
// constraints (spec §4.I) alongside.
func (e *Executor) execCreateTable(n *plan.CreateTable) error {
	var table *yachtsql.Table
	if n.AsSelect != nil {
		result, err := e.ExecuteLogical(n.AsSelect)
		if err != nil {
			return err
		}
		table = result
	} else {
		fields := make([]yachtsql.Field, len(n.Columns))
		for i, c := range n.Columns {
			fields[i] = yachtsql.Field{Name: c.Name, Type: resolveDataType(c.DataType), Mode: modeFor(c.Nullable)}
		}
		table = yachtsql.NewTable(yachtsql.NewSchema(fields...))
	}

	if n.IfNotExists {
		if _, err := e.Catalog.ReadTable(n.Name); err == nil {
			return nil
		}
	}
	if err := e.Catalog.CreateTable(n.Name, table); err != nil {
		return err
	}
	e.Catalog.SetConstraints(n.Name, columnDefsToConstraints(n.Columns))
	return nil
}

// execAlterTable applies n's actions to its table in declaration order,
// under the catalog's per-table write lock (spec §6 "ALTER TABLE").
func (e *Executor) execAlterTable(n *plan.AlterTable) error {
	for _, action := range n.Actions {
		if action.Kind == plan.AlterRenameTo {
			if err := e.Catalog.RenameTable(n.Name, action.NewName); err != nil {
				return err
			}
			continue
		}
		err := e.Catalog.WriteTable(n.Name, func(tbl *yachtsql.Table) (*yachtsql.Table, error) {
			switch action.Kind {
			case plan.AlterAddColumn:
				return alterAddColumn(tbl, action)
			case plan.AlterDropColumn:
				return alterDropColumn(tbl, action)
			case plan.AlterRenameColumn:
				return alterRenameColumn(tbl, action)
			default:
				return nil, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported ALTER TABLE action")
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// alterAddColumn appends a NULL-filled column of action.Column's declared
// type to tbl, unless it already exists and action.IfNotExists is set.
func alterAddColumn(tbl *yachtsql.Table, action plan.AlterTableAction) (*yachtsql.Table, error) {
	if tbl.Schema.IndexOf(action.Column.Name) >= 0 {
		if action.IfNotExists {
			return tbl, nil
		}
		return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "column %q already exists", action.Column.Name)
	}
	field := yachtsql.Field{Name: action.Column.Name, Type: resolveDataType(action.Column.DataType), Mode: modeFor(action.Column.Nullable)}
	col := yachtsql.NewColumn(field)
	for i := 0; i < tbl.NumRows(); i++ {
		col.Append(yachtsql.Null)
	}
	return &yachtsql.Table{
		Schema:  tbl.Schema.Concat(yachtsql.NewSchema(field)),
		Columns: append(append([]*yachtsql.Column(nil), tbl.Columns...), col),
	}, nil
}

// alterDropColumn removes action.ColumnName from tbl, unless it is absent
// and action.IfExists is set.
func alterDropColumn(tbl *yachtsql.Table, action plan.AlterTableAction) (*yachtsql.Table, error) {
	idx := tbl.Schema.IndexOf(action.ColumnName)
	if idx < 0 {
		if action.IfExists {
			return tbl, nil
		}
		return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "column %q does not exist", action.ColumnName)
	}
	indices := make([]int, 0, len(tbl.Schema.Fields)-1)
	for i := range tbl.Schema.Fields {
		if i != idx {
			indices = append(indices, i)
		}
	}
	return tbl.WithReorderedSchema(indices), nil
}

// alterRenameColumn relabels action.ColumnName to action.NewName in place.
func alterRenameColumn(tbl *yachtsql.Table, action plan.AlterTableAction) (*yachtsql.Table, error) {
	idx := tbl.Schema.IndexOf(action.ColumnName)
	if idx < 0 {
		return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "column %q does not exist", action.ColumnName)
	}
	fields := append([]yachtsql.Field(nil), tbl.Schema.Fields...)
	fields[idx].Name = action.NewName
	tbl.Schema = &yachtsql.Schema{Fields: fields, Qualifier: tbl.Schema.Qualifier}
	tbl.Columns[idx].Field.Name = action.NewName
	return tbl, nil
}

func columnDefsToConstraints(cols []plan.ColumnDef) constraint.TableConstraints {
	var tc constraint.TableConstraints
	var pkCols []string
	for _, c := range cols {
		if !c.Nullable {
			tc.NotNullColumns = append(tc.NotNullColumns, c.Name)
		}
		if c.PrimaryKey {
			pkCols = append(pkCols, c.Name)
		}
		if c.Unique {
			tc.UniqueConstraints = append(tc.UniqueConstraints, constraint.UniqueConstraint{
				Name:    c.Name + "_unique",
				Columns: []string{c.Name},
			})
		}
	}
	if len(pkCols) > 0 {
		tc.PrimaryKey = &constraint.PrimaryKeyConstraint{Name: "pk", Columns: pkCols}
	}
	return tc
}
