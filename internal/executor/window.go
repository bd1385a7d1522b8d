package executor

import (
	"sort"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/eval"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// execWindow appends one output column per WindowItem to Input's existing
// columns, each computed over its own PartitionBy/OrderBy grouping (spec
// §4.F Window).
func (e *Executor) execWindow(w *plan.Window) (*yachtsql.Table, error) {
	input, err := e.ExecuteLogical(w.Input)
	if err != nil {
		return nil, err
	}
	n := input.NumRows()
	ve := eval.NewValueEvaluator(e.ctx)

	newCols := make([][]yachtsql.Value, len(w.Items))
	for i := range newCols {
		newCols[i] = make([]yachtsql.Value, n)
	}

	for itemIdx, item := range w.Items {
		spec := windowSpecOf(item.Window)
		partitions, err := partitionRows(input, ve, spec.PartitionBy)
		if err != nil {
			return nil, err
		}
		for _, members := range partitions {
			ordered, err := orderPartition(input, ve, members, spec.OrderBy)
			if err != nil {
				return nil, err
			}
			values, err := e.evalWindowItem(item.Window, input, ve, ordered, spec)
			if err != nil {
				return nil, err
			}
			for pos, rowIdx := range ordered {
				newCols[itemIdx][rowIdx] = values[pos]
			}
		}
	}

	schema := schemaFromPlan(w.Schema())
	out := &yachtsql.Table{Schema: schema}
	out.Columns = append(out.Columns, input.Columns...)
	for i, item := range w.Items {
		elemType := yachtsql.Unknown
		for _, v := range newCols[i] {
			if !v.IsNull() {
				elemType = v.Type()
				break
			}
		}
		out.Columns = append(out.Columns, yachtsql.NewColumnFromValues(yachtsql.Field{Name: item.Name, Type: elemType}, newCols[i]))
	}
	return out, nil
}

func windowSpecOf(expr plan.Expr) plan.WindowSpec {
	switch w := expr.(type) {
	case plan.Window:
		return w.Spec
	case plan.AggregateWindow:
		return w.Spec
	default:
		return plan.WindowSpec{}
	}
}

func partitionRows(input *yachtsql.Table, ve *eval.ValueEvaluator, partitionBy []plan.Expr) (map[yachtsql.HashKey][]int, error) {
	out := make(map[yachtsql.HashKey][]int)
	if len(partitionBy) == 0 {
		all := make([]int, input.NumRows())
		for i := range all {
			all[i] = i
		}
		out[0] = all
		return out, nil
	}
	for i := 0; i < input.NumRows(); i++ {
		row := input.Row(i)
		values := make([]yachtsql.Value, len(partitionBy))
		for k, expr := range partitionBy {
			v, err := ve.Eval(expr, row)
			if err != nil {
				return nil, err
			}
			values[k] = v
		}
		key := yachtsql.HashRow(values)
		out[key] = append(out[key], i)
	}
	return out, nil
}

func orderPartition(input *yachtsql.Table, ve *eval.ValueEvaluator, members []int, keys []plan.OrderKey) ([]int, error) {
	ordered := append([]int(nil), members...)
	if len(keys) == 0 {
		return ordered, nil
	}
	keyCols := make([][]yachtsql.Value, len(keys))
	for k, key := range keys {
		col := make([]yachtsql.Value, len(ordered))
		for i, idx := range ordered {
			v, err := ve.Eval(key.Expr, input.Row(idx))
			if err != nil {
				return nil, err
			}
			col[i] = v
		}
		keyCols[k] = col
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		for k, key := range keys {
			cmp := compareSortKeys(keyCols[k][a], keyCols[k][b], key.NullsFirst)
			if cmp != 0 {
				if key.Descending {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
	return ordered, nil
}

// evalWindowItem computes one window expression's value for every row in
// ordered (a single partition, already sorted by its OrderBy), returning
// results aligned with ordered's own index order (not the original row
// order - the caller scatters them back).
func (e *Executor) evalWindowItem(expr plan.Expr, input *yachtsql.Table, ve *eval.ValueEvaluator, ordered []int, spec plan.WindowSpec) ([]yachtsql.Value, error) {
	n := len(ordered)
	out := make([]yachtsql.Value, n)

	argAt := func(argExpr plan.Expr, pos int) (yachtsql.Value, error) {
		return ve.Eval(argExpr, input.Row(ordered[pos]))
	}

	// frame resolves spec's frame per row; for the implicit default frame it
	// then widens each row's upper bound to its last ORDER BY peer (every row
	// of the partition when there is no ORDER BY), which is RANGE semantics.
	frame := func() (lo, hi []int) {
		lo, hi = resolveFrame(n, spec)
		if spec.Start.Kind == "" && spec.End.Kind == "" {
			for i := n - 2; i >= 0; i-- {
				if rowsTie(input, ve, ordered[i], ordered[i+1], spec.OrderBy) {
					hi[i] = hi[i+1]
				}
			}
		}
		return lo, hi
	}

	switch w := expr.(type) {
	case plan.Window:
		switch w.Func {
		case plan.WinRowNumber:
			for i := range out {
				out[i] = yachtsql.NewInt64(int64(i + 1))
			}
			return out, nil

		case plan.WinRank, plan.WinDenseRank:
			rank, dense := 1, 1
			for i := 0; i < n; i++ {
				if i > 0 && !rowsTie(input, ve, ordered[i-1], ordered[i], spec.OrderBy) {
					rank = i + 1
					dense++
				}
				if w.Func == plan.WinRank {
					out[i] = yachtsql.NewInt64(int64(rank))
				} else {
					out[i] = yachtsql.NewInt64(int64(dense))
				}
			}
			return out, nil

		case plan.WinPercentRank:
			ranks := make([]int, n)
			rank := 1
			for i := 0; i < n; i++ {
				if i > 0 && !rowsTie(input, ve, ordered[i-1], ordered[i], spec.OrderBy) {
					rank = i + 1
				}
				ranks[i] = rank
			}
			for i := 0; i < n; i++ {
				if n <= 1 {
					out[i] = yachtsql.NewFloat64(0)
					continue
				}
				out[i] = yachtsql.NewFloat64(float64(ranks[i]-1) / float64(n-1))
			}
			return out, nil

		case plan.WinCumeDist:
			for i := 0; i < n; i++ {
				lastTie := i
				for lastTie+1 < n && rowsTie(input, ve, ordered[i], ordered[lastTie+1], spec.OrderBy) {
					lastTie++
				}
				out[i] = yachtsql.NewFloat64(float64(lastTie+1) / float64(n))
			}
			return out, nil

		case plan.WinNtile:
			buckets := int64(1)
			if len(w.Args) > 0 {
				v, err := argAt(w.Args[0], 0)
				if err != nil {
					return nil, err
				}
				if !v.IsNull() {
					buckets = v.Int64()
				}
			}
			if buckets < 1 {
				buckets = 1
			}
			base := int64(n) / buckets
			rem := int64(n) % buckets
			bucket := int64(1)
			count := int64(0)
			size := base
			if rem > 0 {
				size++
			}
			for i := 0; i < n; i++ {
				out[i] = yachtsql.NewInt64(bucket)
				count++
				if count >= size {
					bucket++
					count = 0
					size = base
					if int64(bucket) <= rem {
						size++
					}
				}
			}
			return out, nil

		case plan.WinLag, plan.WinLead:
			offset := int64(1)
			if len(w.Args) > 1 {
				v, err := argAt(w.Args[1], 0)
				if err != nil {
					return nil, err
				}
				if !v.IsNull() {
					offset = v.Int64()
				}
			}
			var def yachtsql.Value = yachtsql.Null
			if len(w.Args) > 2 {
				v, err := argAt(w.Args[2], 0)
				if err != nil {
					return nil, err
				}
				def = v
			}
			if w.Func == plan.WinLag {
				offset = -offset
			}
			for i := 0; i < n; i++ {
				src := i + int(offset)
				if src < 0 || src >= n {
					out[i] = def
					continue
				}
				v, err := argAt(w.Args[0], src)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil

		case plan.WinFirstValue, plan.WinLastValue, plan.WinNthValue:
			lo, hi := frame()
			nth := 1
			if w.Func == plan.WinNthValue && len(w.Args) > 1 {
				v, err := argAt(w.Args[1], 0)
				if err != nil {
					return nil, err
				}
				if !v.IsNull() {
					nth = int(v.Int64())
				}
			}
			for i := 0; i < n; i++ {
				frameLo, frameHi := lo[i], hi[i]
				var pos int
				switch w.Func {
				case plan.WinFirstValue:
					pos = frameLo
				case plan.WinLastValue:
					pos = frameHi
				case plan.WinNthValue:
					pos = frameLo + nth - 1
				}
				if pos < frameLo || pos > frameHi || pos < 0 || pos >= n {
					out[i] = yachtsql.Null
					continue
				}
				v, err := argAt(w.Args[0], pos)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}

	case plan.AggregateWindow:
		lo, hi := frame()
		for i := 0; i < n; i++ {
			rowIndices := make([]int, 0, hi[i]-lo[i]+1)
			for p := lo[i]; p <= hi[i] && p < n; p++ {
				if p < 0 {
					continue
				}
				rowIndices = append(rowIndices, ordered[p])
			}
			v, err := e.computeAggregate(w.Agg, input, rowIndices, ve)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return out, nil
}

func rowsTie(input *yachtsql.Table, ve *eval.ValueEvaluator, a, b int, keys []plan.OrderKey) bool {
	for _, key := range keys {
		va, errA := ve.Eval(key.Expr, input.Row(a))
		vb, errB := ve.Eval(key.Expr, input.Row(b))
		if errA != nil || errB != nil {
			return false
		}
		if yachtsql.Compare(va, vb) != 0 {
			return false
		}
	}
	return true
}

// resolveFrame computes, for every position in a partition of size n, the
// inclusive [lo,hi] row-offset range its window frame covers. When Spec
// carries no explicit bounds (both Kinds empty) it returns UNBOUNDED PRECEDING
// through the current row; evalWindowItem then widens that upper bound to the
// current row's ORDER BY peers, giving BigQuery's implicit RANGE BETWEEN
// UNBOUNDED PRECEDING AND CURRENT ROW.
func resolveFrame(n int, spec plan.WindowSpec) (lo, hi []int) {
	lo = make([]int, n)
	hi = make([]int, n)
	start, end := spec.Start, spec.End
	if start.Kind == "" && end.Kind == "" {
		start = plan.FrameBound{Kind: "unboundedPreceding"}
		end = plan.FrameBound{Kind: "currentRow"}
	}
	for i := 0; i < n; i++ {
		lo[i] = frameOffset(i, n, start, true)
		hi[i] = frameOffset(i, n, end, false)
	}
	return lo, hi
}

func frameOffset(pos, n int, bound plan.FrameBound, isStart bool) int {
	switch bound.Kind {
	case "unboundedPreceding":
		return 0
	case "unboundedFollowing":
		return n - 1
	case "currentRow":
		return pos
	case "preceding":
		return pos - staticOffset(bound)
	case "following":
		return pos + staticOffset(bound)
	default:
		if isStart {
			return 0
		}
		return pos
	}
}

// staticOffset reads a frame bound's literal row count; non-literal offsets
// (a correlated expression) are not supported and default to 1.
func staticOffset(bound plan.FrameBound) int {
	lit, ok := bound.Offset.(plan.Literal)
	if !ok {
		return 1
	}
	n := 0
	for i := 0; i < len(lit.Text); i++ {
		ch := lit.Text[i]
		if ch < '0' || ch > '9' {
			return 1
		}
		n = n*10 + int(ch-'0')
	}
	if n == 0 {
		return 1
	}
	return n
}
