package optimizer

import "github.com/lychee-technology/yachtsql/internal/plan"

// reorderJoins implements spec §4.D rule 7: a greedy reorderer over a join
// graph built from equijoin predicates. Only chains of INNER joins are
// reordered (reordering a Left/Right/Full/Cross join changes semantics);
// at each step the relation whose join with the current result has the
// lowest expected cardinality (via the optimizer's cost model) is picked
// next.
func (o *Optimizer) reorderJoins(n plan.Logical) plan.Logical {
	return mapLogicalBottomUp(n, func(n plan.Logical) plan.Logical {
		j, ok := n.(*plan.Join)
		if !ok || j.Type != plan.JoinInner {
			return n
		}
		relations, conditions := flattenInnerJoinChain(j)
		if len(relations) < 3 {
			return n // nothing to reorder in a 2-way join
		}
		return o.greedyJoinOrder(relations, conditions)
	})
}

// flattenInnerJoinChain collects the leaf relations and all join conditions
// of a left-deep (or right-deep) chain of INNER joins rooted at root.
func flattenInnerJoinChain(root *plan.Join) ([]plan.Logical, []plan.Expr) {
	var relations []plan.Logical
	var conditions []plan.Expr
	var walk func(n plan.Logical)
	walk = func(n plan.Logical) {
		if j, ok := n.(*plan.Join); ok && j.Type == plan.JoinInner {
			if j.Condition != nil {
				conditions = append(conditions, j.Condition)
			}
			walk(j.Left)
			walk(j.Right)
			return
		}
		relations = append(relations, n)
	}
	walk(root)
	return relations, conditions
}

// greedyJoinOrder picks, at each step, the unused relation whose join with
// the accumulated result has the lowest estimated cardinality, applying
// every condition that is now fully satisfiable (touches only relations in
// the accumulated set and the newly added one) as that join's condition;
// anything left over becomes a residual Filter.
func (o *Optimizer) greedyJoinOrder(relations []plan.Logical, conditions []plan.Expr) plan.Logical {
	used := make([]bool, len(relations))
	result := relations[0]
	used[0] = true
	usedConds := make([]bool, len(conditions))

	for count := 1; count < len(relations); count++ {
		best := -1
		var bestRows uint64
		for i, r := range relations {
			if used[i] {
				continue
			}
			rows := o.estimateRows(&plan.Join{Left: result, Right: r, Type: plan.JoinInner})
			if best == -1 || rows < bestRows {
				best, bestRows = i, rows
			}
		}
		used[best] = true

		var joinCond plan.Expr
		for ci, c := range conditions {
			if usedConds[ci] {
				continue
			}
			var cols []plan.Column
			collectColumns(c, &cols)
			if refsOnly(cols, result, relations[best]) {
				usedConds[ci] = true
				joinCond = andExpr(joinCond, c)
			}
		}
		result = plan.NewJoin(result, relations[best], plan.JoinInner, joinCond, result.Schema().Concat(relations[best].Schema()))
	}

	// any condition that never became a join condition (it references no
	// column, or a name no relation's schema carries) is applied as a
	// residual filter.
	var residual plan.Expr
	for ci, used := range usedConds {
		if !used {
			residual = andExpr(residual, conditions[ci])
		}
	}
	if residual != nil {
		return &plan.Filter{Input: result, Predicate: residual}
	}
	return result
}

func andExpr(a, b plan.Expr) plan.Expr {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return plan.BinaryOp{Op: plan.OpAnd, Left: a, Right: b}
}

// refsOnly reports whether every column in cols names a field of left's or
// right's schema (matched by name alone, as singleSide does), so a condition
// is applied as soon as every relation it references has been joined. A
// condition with no column reference never qualifies.
func refsOnly(cols []plan.Column, left, right plan.Logical) bool {
	if len(cols) == 0 {
		return false
	}
	leftNames, rightNames := fieldNameSet(left.Schema()), fieldNameSet(right.Schema())
	for _, c := range cols {
		if !leftNames[c.Name] && !rightNames[c.Name] {
			return false
		}
	}
	return true
}

// pushdownAggregates implements spec §4.D rule 8: for aggregates that are
// decomposable (SUM, COUNT, MIN, MAX) and whose inputs come from only one
// join side, push a partial aggregate below an inner join and rewrite the
// outer aggregate to combine partials (COUNT becomes SUM of partial
// counts).
func (o *Optimizer) pushdownAggregates(n plan.Logical) plan.Logical {
	return mapLogicalBottomUp(n, func(n plan.Logical) plan.Logical {
		agg, ok := n.(*plan.Aggregate)
		if !ok {
			return n
		}
		join, ok := agg.Input.(*plan.Join)
		if !ok || join.Type != plan.JoinInner {
			return n
		}
		if !allDecomposable(agg.Items) {
			return n
		}
		side, ok := singleSide(agg, join)
		if !ok {
			return n
		}
		return rewriteWithPartialAggregate(agg, join, side)
	})
}

func allDecomposable(items []plan.AggregateItem) bool {
	for _, it := range items {
		switch it.Agg.Func {
		case plan.AggSum, plan.AggCount, plan.AggCountStar, plan.AggMin, plan.AggMax:
		default:
			return false
		}
	}
	return true
}

// singleSide reports whether every GROUP BY key and aggregate argument of
// agg resolves to columns from just one side of join, returning "left" or
// "right".
func singleSide(agg *plan.Aggregate, join *plan.Join) (string, bool) {
	var cols []plan.Column
	for _, g := range agg.GroupBy {
		collectColumns(g, &cols)
	}
	for _, it := range agg.Items {
		if it.Agg.Arg != nil {
			collectColumns(it.Agg.Arg, &cols)
		}
	}
	leftNames := fieldNameSet(join.Left.Schema())
	rightNames := fieldNameSet(join.Right.Schema())
	onLeft, onRight := false, false
	for _, c := range cols {
		if leftNames[c.Name] {
			onLeft = true
		}
		if rightNames[c.Name] {
			onRight = true
		}
	}
	switch {
	case onLeft && !onRight:
		return "left", true
	case onRight && !onLeft:
		return "right", true
	default:
		return "", false
	}
}

func fieldNameSet(s *plan.Schema) map[string]bool {
	out := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = true
	}
	return out
}

// rewriteWithPartialAggregate pushes agg below the join side it touches
// (producing a partial aggregate over pre-join group keys plus SUM/COUNT
// partials) and rewrites the outer aggregate to combine those partials:
// SUM(SUM_partial), COUNT stays SUM(COUNT_partial), MIN/MAX pass through
// unchanged since they are already fully decomposable with no rewrite.
func rewriteWithPartialAggregate(agg *plan.Aggregate, join *plan.Join, side string) plan.Logical {
	var pushedInput, otherSide plan.Logical
	if side == "left" {
		pushedInput, otherSide = join.Left, join.Right
	} else {
		pushedInput, otherSide = join.Right, join.Left
	}

	// agg.Schema() is ordered GroupBy fields followed by Items fields,
	// matching the binder's construction order; reuse those field types for
	// the synthesized partial/outer schemas rather than re-inferring them.
	origFields := agg.Schema().Fields
	groupFieldCount := len(agg.GroupBy)

	partialItems := make([]plan.AggregateItem, len(agg.Items))
	outerItems := make([]plan.AggregateItem, len(agg.Items))
	partialItemFields := make([]plan.Field, len(agg.Items))
	for i, it := range agg.Items {
		partialName := it.Name + "__partial"
		partialItems[i] = plan.AggregateItem{Agg: it.Agg, Name: partialName}
		if groupFieldCount+i < len(origFields) {
			f := origFields[groupFieldCount+i]
			f.Name = partialName
			partialItemFields[i] = f
		} else {
			partialItemFields[i] = plan.Field{Name: partialName}
		}
		switch it.Agg.Func {
		case plan.AggCount, plan.AggCountStar:
			outerItems[i] = plan.AggregateItem{
				Agg:  plan.Aggregate{Func: plan.AggSum, Arg: plan.Column{Name: partialName}},
				Name: it.Name,
			}
		default: // SUM, MIN, MAX combine the same way over partials
			outerItems[i] = plan.AggregateItem{
				Agg:  plan.Aggregate{Func: it.Agg.Func, Arg: plan.Column{Name: partialName}},
				Name: it.Name,
			}
		}
	}

	groupFields := append([]plan.Field(nil), origFields[:min(groupFieldCount, len(origFields))]...)
	partialSchema := &plan.Schema{Fields: append(groupFields, partialItemFields...)}
	partial := plan.NewAggregate(pushedInput, agg.GroupBy, partialItems, nil, partialSchema)

	var newJoin *plan.Join
	if side == "left" {
		newJoin = plan.NewJoin(partial, otherSide, join.Type, join.Condition, partial.Schema().Concat(otherSide.Schema()))
	} else {
		newJoin = plan.NewJoin(otherSide, partial, join.Type, join.Condition, otherSide.Schema().Concat(partial.Schema()))
	}
	return plan.NewAggregate(newJoin, agg.GroupBy, outerItems, nil, agg.Schema())
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
