package executor

import (
	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/eval"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// execMerge implements MERGE (spec §4.F Merge): every Source row is probed
// against Target by On, and the first WHEN clause matching both the row's
// match class and its optional extra Condition fires.
func (e *Executor) execMerge(n *plan.Merge) error {
	source, err := e.ExecuteLogical(n.Source)
	if err != nil {
		return err
	}
	return e.writeTable(n.Target, func(target *yachtsql.Table) (*yachtsql.Table, error) {
		ve := eval.NewValueEvaluator(e.ctx)
		next := target.Clone()
		targetMatched := make([]bool, next.NumRows())
		deleted := make(map[int]bool)

		for s := 0; s < source.NumRows(); s++ {
			srcRow := source.Row(s)
			matchedAny := false
			for t := 0; t < len(targetMatched); t++ {
				tgtRow := next.Row(t)
				combined := tgtRow.Concat(srcRow)
				v, err := ve.Eval(n.On, combined)
				if err != nil {
					return nil, err
				}
				if v.IsNull() || !v.Bool() {
					continue
				}
				matchedAny = true
				targetMatched[t] = true
				if err := applyMergeWhen(n.Whens, plan.MergeMatched, ve, next, t, combined, deleted); err != nil {
					return nil, err
				}
			}
			if !matchedAny {
				if err := applyMergeInsert(n.Whens, ve, next, srcRow); err != nil {
					return nil, err
				}
			}
		}

		for t := 0; t < len(targetMatched); t++ {
			if targetMatched[t] {
				continue
			}
			tgtRow := next.Row(t)
			if err := applyMergeWhen(n.Whens, plan.MergeNotMatchedSource, ve, next, t, tgtRow, deleted); err != nil {
				return nil, err
			}
		}

		if len(deleted) == 0 {
			return next, nil
		}
		mask := make([]bool, next.NumRows())
		for i := range mask {
			mask[i] = !deleted[i]
		}
		return next.FilterByMask(mask), nil
	})
}

// applyMergeWhen runs the first WHEN clause of class matching evalRow's
// optional extra Condition, applying an UPDATE in place or marking rowIdx
// in deleted for a DELETE (rows are filtered out after the whole MERGE
// finishes, so row indices stay stable while every WHEN clause runs).
func applyMergeWhen(whens []plan.MergeWhen, class plan.MergeClassKind, ve *eval.ValueEvaluator, table *yachtsql.Table, rowIdx int, evalRow yachtsql.Record, deleted map[int]bool) error {
	for _, when := range whens {
		if when.Class != class {
			continue
		}
		if when.Condition != nil {
			v, err := ve.Eval(when.Condition, evalRow)
			if err != nil {
				return err
			}
			if v.IsNull() || !v.Bool() {
				continue
			}
		}
		switch when.Action {
		case plan.MergeUpdate:
			for _, a := range when.Assignments {
				idx := table.Schema.IndexOf(a.Column)
				if idx < 0 {
					continue
				}
				v, err := ve.Eval(a.Value, evalRow)
				if err != nil {
					return err
				}
				table.Columns[idx].Set(rowIdx, v)
			}
		case plan.MergeDelete:
			deleted[rowIdx] = true
		}
		return nil
	}
	return nil
}

func applyMergeInsert(whens []plan.MergeWhen, ve *eval.ValueEvaluator, table *yachtsql.Table, srcRow yachtsql.Record) error {
	for _, when := range whens {
		if when.Class != plan.MergeNotMatchedTarget || when.Action != plan.MergeInsert {
			continue
		}
		if when.Condition != nil {
			v, err := ve.Eval(when.Condition, srcRow)
			if err != nil {
				return err
			}
			if v.IsNull() || !v.Bool() {
				continue
			}
		}
		if when.InsertRow {
			table.PushRow(srcRow.Values)
			return nil
		}
		values := make([]yachtsql.Value, len(table.Schema.Fields))
		for i := range values {
			values[i] = yachtsql.Null
		}
		for i, col := range when.InsertCols {
			idx := table.Schema.IndexOf(col)
			if idx < 0 {
				continue
			}
			v, err := ve.Eval(when.InsertVals[i], srcRow)
			if err != nil {
				return err
			}
			values[idx] = v
		}
		table.PushRow(values)
		return nil
	}
	return nil
}
