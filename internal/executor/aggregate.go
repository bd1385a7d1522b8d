package executor

import (
	"sort"
	"strings"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/eval"
	"github.com/lychee-technology/yachtsql/internal/physical"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// execAggregateLogical handles a bare plan.Aggregate reached without a
// dedicated physical.HashAggregate (a subquery body).
func (e *Executor) execAggregateLogical(a *plan.Aggregate) (*yachtsql.Table, error) {
	input, err := e.ExecuteLogical(a.Input)
	if err != nil {
		return nil, err
	}
	return e.hashAggregate(input, a.GroupBy, a.Items, a.GroupingSets, a.Schema(), nil)
}

// execHashAggregate is the physical counterpart.
func (e *Executor) execHashAggregate(h *physical.HashAggregate) (*yachtsql.Table, error) {
	input, err := e.Execute(h.Input)
	if err != nil {
		return nil, err
	}
	return e.hashAggregate(input, h.GroupBy, h.Items, h.GroupingSets, h.Schema(), h.Hints())
}

// hashAggregate groups input by groupBy (or, when groupingSets is non-nil,
// once per ROLLUP/CUBE/GROUPING SETS member - spec §4.F HashAggregate:
// "ROLLUP/CUBE expand to a union of grouping sets"), computing Items per
// group. The per-row key evaluation fans out across a worker pool when
// hints allows it (spec §5's HashAggregate parallel operator): each
// partition only writes its own disjoint slice indices, so the bucketing
// merge afterward stays single-threaded and deterministic.
func (e *Executor) hashAggregate(input *yachtsql.Table, groupBy []plan.Expr, items []plan.AggregateItem, groupingSets []plan.GroupingSet, outSchema *plan.Schema, hints *physical.ExecutionHints) (*yachtsql.Table, error) {
	sets := groupingSets
	if sets == nil {
		full := make(plan.GroupingSet, len(groupBy))
		for i := range full {
			full[i] = i
		}
		sets = []plan.GroupingSet{full}
	}

	fields := make([]yachtsql.Field, len(outSchema.Fields))
	for i, f := range outSchema.Fields {
		fields[i] = yachtsql.Field{Name: f.Name, Type: resolveDataType(f.DataType), Mode: modeFor(f.Nullable)}
	}
	out := yachtsql.NewTable(yachtsql.NewSchema(fields...))

	ve := eval.NewValueEvaluator(e.ctx)
	n := input.NumRows()

	for _, set := range sets {
		active := make(map[int]bool, len(set))
		for _, idx := range set {
			active[idx] = true
		}

		rowKeys := make([]yachtsql.HashKey, n)
		rowValues := make([][]yachtsql.Value, n)
		parts := 1
		if e.parallelEnabled(hints) {
			parts = defaultPartitions
		}
		evalErr := runPartitioned(n, parts, func(start, end int) error {
			partVE := ve
			if parts > 1 {
				partVE = eval.NewValueEvaluator(e.ctx)
			}
			for i := start; i < end; i++ {
				row := input.Row(i)
				values := make([]yachtsql.Value, len(groupBy))
				for idx, expr := range groupBy {
					if !active[idx] {
						values[idx] = yachtsql.Null
						continue
					}
					v, err := partVE.Eval(expr, row)
					if err != nil {
						return err
					}
					values[idx] = v
				}
				rowValues[i] = values
				rowKeys[i] = yachtsql.HashRow(values)
			}
			return nil
		})
		if evalErr != nil {
			return nil, evalErr
		}

		groups := make(map[yachtsql.HashKey][]int)
		var order []yachtsql.HashKey
		keyValues := make(map[yachtsql.HashKey][]yachtsql.Value)
		for i := 0; i < n; i++ {
			key := rowKeys[i]
			if _, ok := groups[key]; !ok {
				order = append(order, key)
				keyValues[key] = rowValues[i]
			}
			groups[key] = append(groups[key], i)
		}
		if len(groupBy) == 0 && len(groups) == 0 {
			order = append(order, 0)
			groups[0] = nil
			keyValues[0] = nil
		}

		for _, key := range order {
			rowIndices := groups[key]
			groupValues := keyValues[key]
			outRow := make([]yachtsql.Value, len(items))
			for i, item := range items {
				if groupCol, ok := groupColumnValue(item, groupBy, groupValues); ok {
					outRow[i] = groupCol
					continue
				}
				v, err := e.computeAggregate(item.Agg, input, rowIndices, ve)
				if err != nil {
					return nil, err
				}
				outRow[i] = v
			}
			out.PushRow(outRow)
		}
	}
	return out, nil
}

// groupColumnValue recognizes an AggregateItem that is really a bare GROUP
// BY key passthrough (the binder lowers `SELECT a, COUNT(*) ... GROUP BY a`
// by re-emitting `a` as a zero-arg Aggregate whose Arg matches a GroupBy
// entry verbatim); such items are not re-aggregated, just copied from the
// bucket's key values.
func groupColumnValue(item plan.AggregateItem, groupBy []plan.Expr, groupValues []yachtsql.Value) (yachtsql.Value, bool) {
	if item.Agg.Arg == nil {
		return yachtsql.Value{}, false
	}
	for i, expr := range groupBy {
		if exprEqual(expr, item.Agg.Arg) {
			return groupValues[i], true
		}
	}
	return yachtsql.Value{}, false
}

// exprEqual performs a shallow structural comparison sufficient to match a
// GROUP BY key expression against an AggregateItem's passthrough Arg; both
// sides originate from the same binder pass, so simple Column identity
// (same Index) covers the common case.
func exprEqual(a, b plan.Expr) bool {
	ac, aok := a.(plan.Column)
	bc, bok := b.(plan.Column)
	if aok && bok {
		return ac.Index == bc.Index && strings.EqualFold(ac.Name, bc.Name)
	}
	return a.String() == b.String()
}

// computeAggregate evaluates one AggregateItem's aggregate over the rows at
// rowIndices (spec §4.F HashAggregate's per-group reduction).
func (e *Executor) computeAggregate(agg plan.Aggregate, input *yachtsql.Table, rowIndices []int, ve *eval.ValueEvaluator) (yachtsql.Value, error) {
	if agg.Func == plan.AggCountStar {
		return yachtsql.NewInt64(int64(len(rowIndices))), nil
	}

	values := make([]yachtsql.Value, 0, len(rowIndices))
	orderRows := make([]int, 0, len(rowIndices))
	for _, i := range rowIndices {
		row := input.Row(i)
		v, err := ve.Eval(agg.Arg, row)
		if err != nil {
			return yachtsql.Null, err
		}
		if v.IsNull() && agg.IgnoreNulls {
			continue
		}
		if v.IsNull() && (agg.Func == plan.AggSum || agg.Func == plan.AggAvg || agg.Func == plan.AggMin || agg.Func == plan.AggMax || agg.Func == plan.AggCount) {
			continue
		}
		values = append(values, v)
		orderRows = append(orderRows, i)
	}

	if agg.OrderBy != nil {
		sortAggregateRows(input, ve, orderRows, values, agg.OrderBy)
	}
	if agg.Distinct {
		values = distinctValues(values)
	}
	if agg.Limit > 0 && len(values) > agg.Limit {
		values = values[:agg.Limit]
	}

	switch agg.Func {
	case plan.AggCount:
		return yachtsql.NewInt64(int64(len(values))), nil
	case plan.AggSum:
		return sumValues(values)
	case plan.AggAvg:
		return avgValues(values)
	case plan.AggMin:
		return extremeValue(values, true)
	case plan.AggMax:
		return extremeValue(values, false)
	case plan.AggArrayAgg:
		elemType := yachtsql.Unknown
		if len(values) > 0 {
			elemType = values[0].Type()
		}
		return yachtsql.NewArray(elemType, values), nil
	case plan.AggStringAgg:
		return stringAggValues(values, agg.Separator, ve)
	default:
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported aggregate %q", agg.Func)
	}
}

func sortAggregateRows(input *yachtsql.Table, ve *eval.ValueEvaluator, rowIndices []int, values []yachtsql.Value, keys []plan.OrderKey) {
	type pair struct {
		idx int
		val yachtsql.Value
	}
	pairs := make([]pair, len(rowIndices))
	for i, idx := range rowIndices {
		pairs[i] = pair{idx: idx, val: values[i]}
	}
	keyCols := make([][]yachtsql.Value, len(keys))
	for k, key := range keys {
		col := make([]yachtsql.Value, len(rowIndices))
		for i, idx := range rowIndices {
			v, err := ve.Eval(key.Expr, input.Row(idx))
			if err == nil {
				col[i] = v
			}
		}
		keyCols[k] = col
	}
	order := make([]int, len(pairs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		for k, key := range keys {
			cmp := compareSortKeys(keyCols[k][order[a]], keyCols[k][order[b]], key.NullsFirst)
			if cmp != 0 {
				if key.Descending {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
	for i, o := range order {
		values[i] = pairs[o].val
	}
}

func distinctValues(values []yachtsql.Value) []yachtsql.Value {
	seen := make(map[yachtsql.HashKey]bool)
	out := make([]yachtsql.Value, 0, len(values))
	for _, v := range values {
		key := yachtsql.HashRow([]yachtsql.Value{v})
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func sumValues(values []yachtsql.Value) (yachtsql.Value, error) {
	if len(values) == 0 {
		return yachtsql.Null, nil
	}
	acc := values[0]
	var err error
	for _, v := range values[1:] {
		acc, err = yachtsql.Add(acc, v)
		if err != nil {
			return yachtsql.Null, err
		}
	}
	return acc, nil
}

func avgValues(values []yachtsql.Value) (yachtsql.Value, error) {
	if len(values) == 0 {
		return yachtsql.Null, nil
	}
	sum, err := sumValues(values)
	if err != nil {
		return yachtsql.Null, err
	}
	return yachtsql.Div(sum, yachtsql.NewInt64(int64(len(values))))
}

func extremeValue(values []yachtsql.Value, min bool) (yachtsql.Value, error) {
	if len(values) == 0 {
		return yachtsql.Null, nil
	}
	best := values[0]
	for _, v := range values[1:] {
		cmp := yachtsql.Compare(v, best)
		if (min && cmp < 0) || (!min && cmp > 0) {
			best = v
		}
	}
	return best, nil
}

func stringAggValues(values []yachtsql.Value, separator plan.Expr, ve *eval.ValueEvaluator) (yachtsql.Value, error) {
	if len(values) == 0 {
		return yachtsql.Null, nil
	}
	sep := ","
	if separator != nil {
		v, err := ve.Eval(separator, yachtsql.Record{})
		if err != nil {
			return yachtsql.Null, err
		}
		sep = v.String_()
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String_()
	}
	return yachtsql.NewString(strings.Join(parts, sep)), nil
}
