package optimizer

import (
	"github.com/lychee-technology/yachtsql/internal/physical"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// selectPhysical implements spec §4.D rule 9: choose HashJoin for an INNER
// join whose condition yields equijoin keys, CrossJoin for a CROSS JOIN, and
// NestedLoopJoin for everything else (including every LEFT/RIGHT/FULL join);
// fuse a Sort immediately followed by a Limit into TopN.
func (o *Optimizer) selectPhysical(n plan.Logical) physical.Node {
	switch p := n.(type) {
	case *plan.Join:
		left := o.selectPhysical(p.Left)
		right := o.selectPhysical(p.Right)
		var keys []physical.EqualityKey
		residual := p.Condition
		algo := physical.AlgoNestedLoopJoin
		if p.Type == plan.JoinCross {
			algo = physical.AlgoCrossJoin
		} else if p.Type == plan.JoinInner {
			if k, r := extractEquiJoinKeys(p.Condition); len(k) > 0 {
				keys, residual, algo = k, r, physical.AlgoHashJoin
			}
		}
		return &physical.Join{
			Left: left, Right: right, Type: p.Type, Algorithm: algo,
			EqualityKeys: keys, Residual: residual,
		}
	case *plan.Aggregate:
		input := o.selectPhysical(p.Input)
		return &physical.HashAggregate{
			Input: input, GroupBy: p.GroupBy, Items: p.Items, GroupingSets: p.GroupingSets,
		}
	case *plan.Sort:
		input := o.selectPhysical(p.Input)
		return &physical.Sort{Input: input, Keys: p.Keys}
	case *plan.Limit:
		if sort, ok := p.Input.(*plan.Sort); ok {
			input := o.selectPhysical(sort.Input)
			return &physical.TopN{Input: input, Keys: sort.Keys, Count: p.Count, Offset: p.Offset}
		}
		input := o.selectPhysical(p.Input)
		return &physical.Limit{Input: input, Count: p.Count, Offset: p.Offset}
	default:
		return o.passthroughPhysical(n)
	}
}

// passthroughPhysical wraps any node whose physical form is identical to
// its logical form, recursively converting its children.
func (o *Optimizer) passthroughPhysical(n plan.Logical) physical.Node {
	children := n.Children()
	physChildren := make([]physical.Node, len(children))
	for i, c := range children {
		physChildren[i] = o.selectPhysical(c)
	}
	return &physical.Passthrough{Logical: n, Children_: physChildren}
}

// extractEquiJoinKeys decomposes an AND-chain of equality predicates into
// HashJoin equality keys plus a residual non-equality condition (spec
// §4.E: "preserves equality-key lists for HashJoin so the executor need
// not re-extract them").
func extractEquiJoinKeys(cond plan.Expr) ([]physical.EqualityKey, plan.Expr) {
	if cond == nil {
		return nil, nil
	}
	var keys []physical.EqualityKey
	var residual plan.Expr
	var walk func(e plan.Expr)
	walk = func(e plan.Expr) {
		if b, ok := e.(plan.BinaryOp); ok {
			if b.Op == plan.OpAnd {
				walk(b.Left)
				walk(b.Right)
				return
			}
			if b.Op == plan.OpEq {
				if isColumnLike(b.Left) && isColumnLike(b.Right) {
					keys = append(keys, physical.EqualityKey{Left: b.Left, Right: b.Right})
					return
				}
			}
		}
		residual = andExpr(residual, e)
	}
	walk(cond)
	return keys, residual
}

func isColumnLike(e plan.Expr) bool {
	switch e.(type) {
	case plan.Column, plan.StructAccess:
		return true
	default:
		return false
	}
}

// pushdownSort implements spec §4.D rule 10: Sort pushes through a simple
// (column-only) Project.
func pushdownSort(n physical.Node) physical.Node {
	if s, ok := n.(*physical.Sort); ok {
		if pt, ok := s.Input.(*physical.Passthrough); ok {
			if proj, ok := pt.Logical.(*plan.Project); ok && projectIsSimple(proj) {
				inner := pt.Children_[0]
				return &physical.Passthrough{
					Logical:   proj,
					Children_: []physical.Node{&physical.Sort{Input: inner, Keys: s.Keys}},
				}
			}
		}
	}
	return n
}

func projectIsSimple(p *plan.Project) bool {
	_, ok := simpleProjectMapping(p)
	return ok
}

// attachHints implements spec §4.D rule 11: every node estimates rows and
// flags parallel when both sides of a binary operator exceed
// o.parallelRowThreshold; Filter/Project inherit a Memory bound when their
// input is memory-bound and they lack expensive expressions.
func (o *Optimizer) attachHints(n physical.Node) {
	for _, c := range n.Children() {
		o.attachHints(c)
	}
	hints := n.Hints()
	switch p := n.(type) {
	case *physical.Join:
		lr := rowsOf(p.Left)
		rr := rowsOf(p.Right)
		hints.EstimatedRows = combinedJoinRows(p.Type, lr, rr)
		hints.Parallel = lr > o.parallelRowThreshold && rr > o.parallelRowThreshold
		hints.Bound = physical.BoundCompute
	case *physical.HashAggregate:
		in := rowsOf(p.Input)
		hints.EstimatedRows = in
		if len(p.GroupBy) > 0 {
			hints.EstimatedRows = in / 10
		} else {
			hints.EstimatedRows = 1
		}
		hints.Parallel = in > o.parallelRowThreshold
		hints.Bound = physical.BoundCompute
	case *physical.TopN:
		hints.EstimatedRows = uint64(p.Count)
		hints.Bound = physical.BoundMemory
	case *physical.Sort:
		hints.EstimatedRows = rowsOf(p.Input)
		hints.Bound = physical.BoundMemory
	case *physical.Limit:
		hints.EstimatedRows = uint64(p.Count)
		hints.Bound = physical.BoundMemory
	case *physical.Passthrough:
		hints.EstimatedRows = passthroughRows(p)
		hints.Bound = passthroughBound(p)
	}
}

func rowsOf(n physical.Node) uint64 { return n.Hints().EstimatedRows }

func combinedJoinRows(t plan.JoinType, l, r uint64) uint64 {
	if t == plan.JoinCross {
		return l * r
	}
	m := l
	if r > m {
		m = r
	}
	if m == 0 {
		return 0
	}
	return (l * r) / m
}

func passthroughRows(p *physical.Passthrough) uint64 {
	switch p.Logical.(type) {
	case *plan.Filter:
		in := rowsOfChildren(p)
		est := uint64(float64(in) * 0.33)
		if est < 1 {
			est = 1
		}
		return est
	case *plan.Distinct:
		in := rowsOfChildren(p)
		est := in / 2
		if est < 1 {
			est = 1
		}
		return est
	case *plan.Unnest:
		return rowsOfChildren(p) * 10
	default:
		return rowsOfChildren(p)
	}
}

func rowsOfChildren(p *physical.Passthrough) uint64 {
	if len(p.Children_) == 0 {
		return 1000
	}
	var total uint64
	for _, c := range p.Children_ {
		total += rowsOf(c)
	}
	return total
}

// passthroughBound implements the Memory-bound inheritance rule: Filter and
// Project inherit Memory when their input is Memory-bound and they contain
// no expensive expression (regex, JSON extraction, transcendental math,
// hashing, subqueries); everything else defaults to Compute.
// hasExpensiveExpr looks only through scalar-function arguments and
// binary/unary operands, so an expensive call nested inside CASE, CAST, an
// alias, IN or BETWEEN is not detected.
func passthroughBound(p *physical.Passthrough) physical.BoundType {
	switch l := p.Logical.(type) {
	case *plan.Filter:
		if hasExpensiveExpr(l.Predicate) {
			return physical.BoundCompute
		}
		return inputBound(p)
	case *plan.Project:
		for _, item := range l.Items {
			if hasExpensiveExpr(item.Expr) {
				return physical.BoundCompute
			}
		}
		return inputBound(p)
	default:
		return physical.BoundCompute
	}
}

func inputBound(p *physical.Passthrough) physical.BoundType {
	if len(p.Children_) == 0 {
		return physical.BoundCompute
	}
	bound := p.Children_[0].Hints().Bound
	for _, c := range p.Children_[1:] {
		if c.Hints().Bound != bound {
			return physical.BoundCompute
		}
	}
	return bound
}

var expensiveFunctions = map[string]bool{
	"REGEXP_CONTAINS": true, "REGEXP_EXTRACT": true, "REGEXP_REPLACE": true,
	"JSON_EXTRACT": true, "JSON_EXTRACT_SCALAR": true, "JSON_QUERY": true, "JSON_VALUE": true,
	"SIN": true, "COS": true, "TAN": true, "EXP": true, "LN": true, "LOG": true, "LOG10": true, "POW": true, "POWER": true, "SQRT": true,
	"FARM_FINGERPRINT": true, "MD5": true, "SHA1": true, "SHA256": true, "SHA512": true,
}

func hasExpensiveExpr(e plan.Expr) bool {
	switch x := e.(type) {
	case plan.ScalarFunction:
		if expensiveFunctions[x.Name] {
			return true
		}
		for _, a := range x.Args {
			if hasExpensiveExpr(a) {
				return true
			}
		}
		return false
	case plan.BinaryOp:
		return hasExpensiveExpr(x.Left) || hasExpensiveExpr(x.Right)
	case plan.UnaryOp:
		return hasExpensiveExpr(x.Operand)
	case plan.Like:
		return true // regex-backed
	case plan.Subquery, plan.ScalarSubquery, plan.ArraySubquery, plan.Exists, plan.InSubquery:
		return true
	default:
		return false
	}
}
