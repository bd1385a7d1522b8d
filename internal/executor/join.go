package executor

import (
	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/eval"
	"github.com/lychee-technology/yachtsql/internal/physical"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// execJoinLogical handles a bare plan.Join (a subquery body never given a
// dedicated physical form) via nested-loop evaluation of Condition - the
// optimizer/physical-selection pass chooses HashJoin for top-level queries,
// so this path only needs to be correct, not fast.
func (e *Executor) execJoinLogical(j *plan.Join) (*yachtsql.Table, error) {
	left, err := e.ExecuteLogical(j.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.ExecuteLogical(j.Right)
	if err != nil {
		return nil, err
	}
	return e.nestedLoopJoin(left, right, j.Type, j.Condition)
}

// execJoin is the physical counterpart, dispatching on Algorithm (spec §4.F
// HashJoin/NestedLoopJoin).
func (e *Executor) execJoin(j *physical.Join) (*yachtsql.Table, error) {
	left, err := e.Execute(j.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.Execute(j.Right)
	if err != nil {
		return nil, err
	}
	switch j.Algorithm {
	case physical.AlgoHashJoin:
		return e.hashJoin(left, right, j.Type, j.EqualityKeys, j.Residual, j.Hints())
	case physical.AlgoCrossJoin:
		return e.nestedLoopJoinHinted(left, right, plan.JoinCross, nil, j.Hints())
	default:
		return e.nestedLoopJoinHinted(left, right, j.Type, j.Residual, j.Hints())
	}
}

// joinedRow concatenates a left row (nil for an unmatched left row in an
// outer join) and a right row (nil likewise), null-filling the missing
// side's columns.
func joinedRow(left *yachtsql.Table, leftRow []yachtsql.Value, right *yachtsql.Table, rightRow []yachtsql.Value) []yachtsql.Value {
	out := make([]yachtsql.Value, 0, left.NumCols()+right.NumCols())
	if leftRow != nil {
		out = append(out, leftRow...)
	} else {
		for i := 0; i < left.NumCols(); i++ {
			out = append(out, yachtsql.Null)
		}
	}
	if rightRow != nil {
		out = append(out, rightRow...)
	} else {
		for i := 0; i < right.NumCols(); i++ {
			out = append(out, yachtsql.Null)
		}
	}
	return out
}

func joinedSchema(left, right *yachtsql.Table) *yachtsql.Schema {
	return left.Schema.Concat(right.Schema)
}

// nestedLoopJoin implements every JoinType via an O(n*m) probe, evaluating
// condition (nil for CROSS) row-pair by row-pair through ValueEvaluator.
func (e *Executor) nestedLoopJoin(left, right *yachtsql.Table, joinType plan.JoinType, condition plan.Expr) (*yachtsql.Table, error) {
	return e.nestedLoopJoinHinted(left, right, joinType, condition, nil)
}

// nestedLoopJoinHinted is nestedLoopJoin with execution hints, fanning the
// outer (left) loop out across a worker pool when hints allows it (spec §5:
// NestedLoopJoin/CrossJoin are both parallel-eligible operators). Each
// partition owns a disjoint range of left rows, so it writes only its own
// local output table; partitions are
// appended to out in range order afterward, preserving the same row order
// the serial loop would have produced.
func (e *Executor) nestedLoopJoinHinted(left, right *yachtsql.Table, joinType plan.JoinType, condition plan.Expr, hints *physical.ExecutionHints) (*yachtsql.Table, error) {
	schema := joinedSchema(left, right)

	parts := 1
	if e.parallelEnabled(hints) {
		parts = defaultPartitions
	}
	ranges := partitionRanges(left.NumRows(), parts)
	partialOut := make([]*yachtsql.Table, len(ranges))

	err := runPartitionedRanges(ranges, func(p int, start, end int) error {
		partVE := eval.NewValueEvaluator(e.ctx)
		local := yachtsql.NewTable(schema)
		for i := start; i < end; i++ {
			leftRow := left.Row(i)
			matchedThisRow := false
			for k := 0; k < right.NumRows(); k++ {
				rightRow := right.Row(k)
				ok := true
				if condition != nil {
					combined := leftRow.Concat(rightRow)
					v, err := partVE.Eval(condition, combined)
					if err != nil {
						return err
					}
					ok = !v.IsNull() && v.Bool()
				}
				if !ok {
					continue
				}
				matchedThisRow = true
				local.PushRow(joinedRow(left, leftRow.Values, right, rightRow.Values))
			}
			if !matchedThisRow && (joinType == plan.JoinLeft || joinType == plan.JoinFull) {
				local.PushRow(joinedRow(left, leftRow.Values, right, nil))
			}
		}
		partialOut[p] = local
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := yachtsql.NewTable(schema)
	for _, p := range partialOut {
		if p == nil {
			continue
		}
		if err := out.AppendTable(p); err != nil {
			return nil, err
		}
	}

	ve := eval.NewValueEvaluator(e.ctx)
	if joinType == plan.JoinRight || joinType == plan.JoinFull {
		rightMatched := make([]bool, right.NumRows())
		if condition != nil {
			for k := 0; k < right.NumRows(); k++ {
				rightRow := right.Row(k)
				for i := 0; i < left.NumRows(); i++ {
					combined := left.Row(i).Concat(rightRow)
					v, err := ve.Eval(condition, combined)
					if err != nil {
						return nil, err
					}
					if !v.IsNull() && v.Bool() {
						rightMatched[k] = true
						break
					}
				}
			}
		}
		for k := 0; k < right.NumRows(); k++ {
			if !rightMatched[k] {
				out.PushRow(joinedRow(left, nil, right, right.Row(k).Values))
			}
		}
	}
	return out, nil
}

// hashJoin builds a hash table over right's equality keys, then probes with
// each left row, applying Residual (if any) to surviving candidate pairs
// (spec §4.F HashJoin). The probe loop fans out across a worker pool when
// hints allows it (spec §5); the build side (buckets) is computed once,
// read-only, and shared across partitions.
func (e *Executor) hashJoin(left, right *yachtsql.Table, joinType plan.JoinType, keys []physical.EqualityKey, residual plan.Expr, hints *physical.ExecutionHints) (*yachtsql.Table, error) {
	schema := joinedSchema(left, right)
	ve := eval.NewValueEvaluator(e.ctx)

	buildKey := func(valueEval *eval.ValueEvaluator, row yachtsql.Record, exprs []plan.Expr) (yachtsql.HashKey, bool, error) {
		values := make([]yachtsql.Value, len(exprs))
		for i, expr := range exprs {
			v, err := valueEval.Eval(expr, row)
			if err != nil {
				return 0, false, err
			}
			if v.IsNull() {
				return 0, false, nil
			}
			values[i] = v
		}
		return yachtsql.HashRow(values), true, nil
	}

	rightExprs := make([]plan.Expr, len(keys))
	leftExprs := make([]plan.Expr, len(keys))
	for i, k := range keys {
		leftExprs[i] = k.Left
		rightExprs[i] = k.Right
	}

	buckets := make(map[yachtsql.HashKey][]int)
	for k := 0; k < right.NumRows(); k++ {
		key, ok, err := buildKey(ve, right.Row(k), rightExprs)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		buckets[key] = append(buckets[key], k)
	}

	parts := 1
	if e.parallelEnabled(hints) {
		parts = defaultPartitions
	}
	ranges := partitionRanges(left.NumRows(), parts)
	partialOut := make([]*yachtsql.Table, len(ranges))
	partialRightMatched := make([][]int, len(ranges))

	err := runPartitionedRanges(ranges, func(p int, start, end int) error {
		partVE := eval.NewValueEvaluator(e.ctx)
		local := yachtsql.NewTable(schema)
		var matched []int
		for i := start; i < end; i++ {
			leftRow := left.Row(i)
			key, ok, err := buildKey(partVE, leftRow, leftExprs)
			if err != nil {
				return err
			}
			matchedThisRow := false
			if ok {
				for _, k := range buckets[key] {
					rightRow := right.Row(k)
					if residual != nil {
						combined := leftRow.Concat(rightRow)
						v, err := partVE.Eval(residual, combined)
						if err != nil {
							return err
						}
						if v.IsNull() || !v.Bool() {
							continue
						}
					}
					matchedThisRow = true
					matched = append(matched, k)
					local.PushRow(joinedRow(left, leftRow.Values, right, rightRow.Values))
				}
			}
			if !matchedThisRow && (joinType == plan.JoinLeft || joinType == plan.JoinFull) {
				local.PushRow(joinedRow(left, leftRow.Values, right, nil))
			}
		}
		partialOut[p] = local
		partialRightMatched[p] = matched
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := yachtsql.NewTable(schema)
	for _, p := range partialOut {
		if p == nil {
			continue
		}
		if err := out.AppendTable(p); err != nil {
			return nil, err
		}
	}

	if joinType == plan.JoinRight || joinType == plan.JoinFull {
		rightMatched := make([]bool, right.NumRows())
		for _, matched := range partialRightMatched {
			for _, k := range matched {
				rightMatched[k] = true
			}
		}
		for k := 0; k < right.NumRows(); k++ {
			if !rightMatched[k] {
				out.PushRow(joinedRow(left, nil, right, right.Row(k).Values))
			}
		}
	}
	return out, nil
}
