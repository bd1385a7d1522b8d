package executor

import (
	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/eval"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

func (e *Executor) execFilter(f *plan.Filter) (*yachtsql.Table, error) {
	input, err := e.ExecuteLogical(f.Input)
	if err != nil {
		return nil, err
	}
	if hasSubquery(f.Predicate) {
		mask := make([]bool, input.NumRows())
		ve := eval.NewValueEvaluator(e.ctx)
		for i := 0; i < input.NumRows(); i++ {
			v, err := ve.Eval(f.Predicate, input.Row(i))
			if err != nil {
				return nil, err
			}
			mask[i] = !v.IsNull() && v.Bool()
		}
		return input.FilterByMask(mask), nil
	}
	col, err := eval.NewColumnarEvaluator(e.ctx).Eval(f.Predicate, input, "")
	if err != nil {
		return nil, err
	}
	mask := make([]bool, input.NumRows())
	for i := range mask {
		v := col.Get(i)
		mask[i] = !v.IsNull() && v.Bool()
	}
	return input.FilterByMask(mask), nil
}

func (e *Executor) execProject(p *plan.Project) (*yachtsql.Table, error) {
	input, err := e.ExecuteLogical(p.Input)
	if err != nil {
		return nil, err
	}
	fields := make([]yachtsql.Field, len(p.Items))
	cols := make([]*yachtsql.Column, len(p.Items))
	ce := eval.NewColumnarEvaluator(e.ctx)
	for i, item := range p.Items {
		var col *yachtsql.Column
		if hasSubquery(item.Expr) {
			col, err = rowwiseColumn(e.ctx, item.Expr, input, item.Name)
		} else {
			col, err = ce.Eval(item.Expr, input, item.Name)
		}
		if err != nil {
			return nil, err
		}
		fields[i] = yachtsql.Field{Name: item.Name, Type: col.Field.Type}
		col.Field = fields[i]
		cols[i] = col
	}
	return &yachtsql.Table{Schema: yachtsql.NewSchema(fields...), Columns: cols}, nil
}

func rowwiseColumn(ctx *eval.Context, expr plan.Expr, input *yachtsql.Table, name string) (*yachtsql.Column, error) {
	ve := eval.NewValueEvaluator(ctx)
	n := input.NumRows()
	values := make([]yachtsql.Value, n)
	elemType := yachtsql.Unknown
	for i := 0; i < n; i++ {
		v, err := ve.Eval(expr, input.Row(i))
		if err != nil {
			return nil, err
		}
		values[i] = v
		if !v.IsNull() {
			elemType = v.Type()
		}
	}
	return yachtsql.NewColumnFromValues(yachtsql.Field{Name: name, Type: elemType}, values), nil
}

// hasSubquery reports whether expr's tree contains a subquery-bearing node,
// which must route through ValueEvaluator (the only evaluator with a
// SubqueryRunner) rather than ColumnarEvaluator (spec §4.G: "Used only when
// no subquery appears in the expression").
func hasSubquery(expr plan.Expr) bool {
	found := false
	walkExpr(expr, func(e plan.Expr) {
		switch e.(type) {
		case plan.ScalarSubquery, plan.ArraySubquery, plan.Exists, plan.InSubquery:
			found = true
		}
	})
	return found
}

// walkExpr visits expr and every descendant expression reachable through its
// concrete fields, used only to detect subquery occurrences; it does not
// need to be exhaustive over every leaf (literals, columns) since those
// never contain a subquery.
func walkExpr(expr plan.Expr, visit func(plan.Expr)) {
	if expr == nil {
		return
	}
	visit(expr)
	switch x := expr.(type) {
	case plan.BinaryOp:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case plan.UnaryOp:
		walkExpr(x.Operand, visit)
	case plan.ScalarFunction:
		for _, a := range x.Args {
			walkExpr(a, visit)
		}
	case plan.Case:
		walkExpr(x.Operand, visit)
		for _, w := range x.Whens {
			walkExpr(w.When, visit)
			walkExpr(w.Then, visit)
		}
		walkExpr(x.Else, visit)
	case plan.Cast:
		walkExpr(x.Operand, visit)
	case plan.InList:
		walkExpr(x.Operand, visit)
		for _, item := range x.List {
			walkExpr(item, visit)
		}
	case plan.InUnnest:
		walkExpr(x.Operand, visit)
		walkExpr(x.Array, visit)
	case plan.Between:
		walkExpr(x.Operand, visit)
		walkExpr(x.Low, visit)
		walkExpr(x.High, visit)
	case plan.Array:
		for _, el := range x.Elements {
			walkExpr(el, visit)
		}
	case plan.Struct:
		for _, f := range x.Fields {
			walkExpr(f, visit)
		}
	case plan.ArrayAccess:
		walkExpr(x.Array, visit)
		walkExpr(x.Index, visit)
	case plan.StructAccess:
		walkExpr(x.Struct, visit)
	case plan.Like:
		walkExpr(x.Operand, visit)
		walkExpr(x.Pattern, visit)
		walkExpr(x.Escape, visit)
	case plan.IsNull:
		walkExpr(x.Operand, visit)
	case plan.IsDistinctFrom:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case plan.Alias:
		walkExpr(x.Expr, visit)
	case plan.Extract:
		walkExpr(x.Operand, visit)
	case plan.Substring:
		walkExpr(x.Operand, visit)
		walkExpr(x.Pos, visit)
		walkExpr(x.Length, visit)
	case plan.Trim:
		walkExpr(x.Operand, visit)
		walkExpr(x.Chars, visit)
	case plan.Position:
		walkExpr(x.Haystack, visit)
		walkExpr(x.Needle, visit)
	case plan.Overlay:
		walkExpr(x.Operand, visit)
		walkExpr(x.Replacement, visit)
		walkExpr(x.Pos, visit)
		walkExpr(x.Length, visit)
	case plan.Interval:
		walkExpr(x.Value, visit)
	case plan.AtTimeZone:
		walkExpr(x.Operand, visit)
		walkExpr(x.Zone, visit)
	case plan.JsonAccess:
		walkExpr(x.Operand, visit)
	}
}

func (e *Executor) execDistinct(d *plan.Distinct) (*yachtsql.Table, error) {
	input, err := e.ExecuteLogical(d.Input)
	if err != nil {
		return nil, err
	}
	seen := make(map[yachtsql.HashKey]bool)
	mask := make([]bool, input.NumRows())
	for i := 0; i < input.NumRows(); i++ {
		key := yachtsql.HashRow(input.Row(i).Values)
		if seen[key] {
			continue
		}
		seen[key] = true
		mask[i] = true
	}
	return input.FilterByMask(mask), nil
}

func (e *Executor) execValues(v *plan.Values) (*yachtsql.Table, error) {
	schema := schemaFromPlan(v.Schema())
	table := yachtsql.NewTable(schema)
	ve := eval.NewValueEvaluator(e.ctx)
	for _, row := range v.Rows {
		values := make([]yachtsql.Value, len(row))
		for i, expr := range row {
			val, err := ve.Eval(expr, yachtsql.Record{})
			if err != nil {
				return nil, err
			}
			values[i] = val
		}
		table.PushRow(values)
	}
	return table, nil
}

func (e *Executor) execSetOperation(s *plan.SetOperation) (*yachtsql.Table, error) {
	left, err := e.ExecuteLogical(s.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.ExecuteLogical(s.Right)
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case plan.SetOpUnion:
		return setUnion(left, right, s.All)
	case plan.SetOpIntersect:
		return setIntersect(left, right, s.All)
	case plan.SetOpExcept:
		return setExcept(left, right, s.All)
	default:
		return nil, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported set operation %q", s.Kind)
	}
}

func setUnion(left, right *yachtsql.Table, all bool) (*yachtsql.Table, error) {
	out := left.Clone()
	if err := out.AppendTable(right); err != nil {
		return nil, err
	}
	if all {
		return out, nil
	}
	return dedupeTable(out), nil
}

func setIntersect(left, right *yachtsql.Table, all bool) (*yachtsql.Table, error) {
	rightKeys := make(map[yachtsql.HashKey]int)
	for i := 0; i < right.NumRows(); i++ {
		rightKeys[yachtsql.HashRow(right.Row(i).Values)]++
	}
	mask := make([]bool, left.NumRows())
	for i := 0; i < left.NumRows(); i++ {
		key := yachtsql.HashRow(left.Row(i).Values)
		if rightKeys[key] > 0 {
			mask[i] = true
			if !all {
				rightKeys[key] = 0
			} else {
				rightKeys[key]--
			}
		}
	}
	return left.FilterByMask(mask), nil
}

func setExcept(left, right *yachtsql.Table, all bool) (*yachtsql.Table, error) {
	rightKeys := make(map[yachtsql.HashKey]int)
	for i := 0; i < right.NumRows(); i++ {
		rightKeys[yachtsql.HashRow(right.Row(i).Values)]++
	}
	mask := make([]bool, left.NumRows())
	for i := 0; i < left.NumRows(); i++ {
		key := yachtsql.HashRow(left.Row(i).Values)
		if rightKeys[key] > 0 {
			if all {
				rightKeys[key]--
			}
			continue
		}
		mask[i] = true
	}
	return left.FilterByMask(mask), nil
}

func dedupeTable(t *yachtsql.Table) *yachtsql.Table {
	seen := make(map[yachtsql.HashKey]bool)
	mask := make([]bool, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		key := yachtsql.HashRow(t.Row(i).Values)
		if seen[key] {
			continue
		}
		seen[key] = true
		mask[i] = true
	}
	return t.FilterByMask(mask)
}

func (e *Executor) execUnnest(u *plan.Unnest) (*yachtsql.Table, error) {
	var base *yachtsql.Table
	var err error
	if u.Input != nil {
		base, err = e.ExecuteLogical(u.Input)
		if err != nil {
			return nil, err
		}
	}
	schema := schemaFromPlan(u.Schema())
	out := yachtsql.NewTable(schema)
	ve := eval.NewValueEvaluator(e.ctx)

	emitRow := func(baseValues []yachtsql.Value) error {
		arr, err := ve.Eval(u.Array, yachtsql.Record{Schema: schemaOrNil(base), Values: baseValues})
		if err != nil {
			return err
		}
		elems := arr.Array()
		for i, elem := range elems {
			row := append(append([]yachtsql.Value(nil), baseValues...), elem)
			if u.WithOffset {
				row = append(row, yachtsql.NewInt64(int64(i)))
			}
			out.PushRow(row)
		}
		return nil
	}

	if base == nil {
		if err := emitRow(nil); err != nil {
			return nil, err
		}
		return out, nil
	}
	for i := 0; i < base.NumRows(); i++ {
		if err := emitRow(base.Row(i).Values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func schemaOrNil(t *yachtsql.Table) *yachtsql.Schema {
	if t == nil {
		return yachtsql.NewSchema()
	}
	return t.Schema
}

func (e *Executor) execQualify(q *plan.Qualify) (*yachtsql.Table, error) {
	input, err := e.ExecuteLogical(q.Input)
	if err != nil {
		return nil, err
	}
	ve := eval.NewValueEvaluator(e.ctx)
	mask := make([]bool, input.NumRows())
	for i := 0; i < input.NumRows(); i++ {
		v, err := ve.Eval(q.Predicate, input.Row(i))
		if err != nil {
			return nil, err
		}
		mask[i] = !v.IsNull() && v.Bool()
	}
	return input.FilterByMask(mask), nil
}

func (e *Executor) execSample(s *plan.Sample) (*yachtsql.Table, error) {
	input, err := e.ExecuteLogical(s.Input)
	if err != nil {
		return nil, err
	}
	n := input.NumRows()
	keep := int(float64(n) * s.Percent / 100.0)
	if keep > n {
		keep = n
	}
	if keep < 0 {
		keep = 0
	}
	stride := 1
	if keep > 0 {
		stride = n / keep
		if stride < 1 {
			stride = 1
		}
	}
	var indices []int
	for i := 0; i < n && len(indices) < keep; i += stride {
		indices = append(indices, i)
	}
	return input.GatherRows(indices), nil
}

func (e *Executor) execExplain(x *plan.Explain) (*yachtsql.Table, error) {
	field := yachtsql.Field{Name: "plan", Type: yachtsql.String}
	out := yachtsql.NewTable(yachtsql.NewSchema(field))
	out.PushRow([]yachtsql.Value{yachtsql.NewString(x.Plan.String())})
	return out, nil
}
