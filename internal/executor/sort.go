package executor

import (
	"sort"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/eval"
	"github.com/lychee-technology/yachtsql/internal/physical"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// execSortLogical handles a bare plan.Sort reached directly (a subquery
// body run through ExecuteLogical, never assigned a physical Sort/TopN
// node of its own).
func (e *Executor) execSortLogical(s *plan.Sort) (*yachtsql.Table, error) {
	input, err := e.ExecuteLogical(s.Input)
	if err != nil {
		return nil, err
	}
	return e.sortTable(input, s.Keys)
}

// execSort is the physical counterpart, reading its input through the
// physical.Node tree instead of plan.Logical.
func (e *Executor) execSort(s *physical.Sort) (*yachtsql.Table, error) {
	input, err := e.Execute(s.Input)
	if err != nil {
		return nil, err
	}
	return e.sortTable(input, s.Keys)
}

func (e *Executor) sortTable(input *yachtsql.Table, keys []plan.OrderKey) (*yachtsql.Table, error) {
	indices, err := e.orderIndices(input, keys)
	if err != nil {
		return nil, err
	}
	return input.GatherRows(indices), nil
}

// orderIndices evaluates every OrderKey column once up front (spec §4.F
// Sort: "evaluate sort keys once, then permute"), then sorts row indices by
// comparing the precomputed key columns, BigQuery's default NULLS LAST
// unless NullsFirst overrides it.
func (e *Executor) orderIndices(input *yachtsql.Table, keys []plan.OrderKey) ([]int, error) {
	n := input.NumRows()
	ve := eval.NewValueEvaluator(e.ctx)
	keyCols := make([][]yachtsql.Value, len(keys))
	for k, key := range keys {
		col := make([]yachtsql.Value, n)
		for i := 0; i < n; i++ {
			v, err := ve.Eval(key.Expr, input.Row(i))
			if err != nil {
				return nil, err
			}
			col[i] = v
		}
		keyCols[k] = col
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ia, ib := indices[a], indices[b]
		for k, key := range keys {
			va, vb := keyCols[k][ia], keyCols[k][ib]
			if cmp := compareSortKeys(va, vb, key.NullsFirst); cmp != 0 {
				if key.Descending && !va.IsNull() && !vb.IsNull() {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
	return indices, nil
}

func compareSortKeys(a, b yachtsql.Value, nullsFirst bool) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		if nullsFirst {
			return -1
		}
		return 1
	}
	if b.IsNull() {
		if nullsFirst {
			return 1
		}
		return -1
	}
	return yachtsql.Compare(a, b)
}

// execLimitLogical handles a bare plan.Limit (subquery body path).
func (e *Executor) execLimitLogical(l *plan.Limit) (*yachtsql.Table, error) {
	input, err := e.ExecuteLogical(l.Input)
	if err != nil {
		return nil, err
	}
	return sliceLimit(input, l.Offset, l.Count), nil
}

// execLimit is the physical counterpart.
func (e *Executor) execLimit(l *physical.Limit) (*yachtsql.Table, error) {
	input, err := e.Execute(l.Input)
	if err != nil {
		return nil, err
	}
	return sliceLimit(input, l.Offset, l.Count), nil
}

func sliceLimit(input *yachtsql.Table, offset, count int64) *yachtsql.Table {
	n := int64(input.NumRows())
	start := offset
	if start > n {
		start = n
	}
	if start < 0 {
		start = 0
	}
	end := n
	if count >= 0 && start+count < end {
		end = start + count
	}
	return input.Slice(int(start), int(end))
}

// execTopN fuses a Sort immediately followed by a Limit, keeping only the
// Count+Offset rows that survive the order (spec §4.D rule 9).
func (e *Executor) execTopN(t *physical.TopN) (*yachtsql.Table, error) {
	input, err := e.Execute(t.Input)
	if err != nil {
		return nil, err
	}
	indices, err := e.orderIndices(input, t.Keys)
	if err != nil {
		return nil, err
	}
	n := int64(len(indices))
	start := t.Offset
	if start > n {
		start = n
	}
	if start < 0 {
		start = 0
	}
	end := n
	if t.Count >= 0 && start+t.Count < end {
		end = start + t.Count
	}
	return input.GatherRows(indices[start:end]), nil
}
