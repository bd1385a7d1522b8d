package optimizer

import "github.com/lychee-technology/yachtsql/internal/plan"

// foldConstants implements spec §4.D rule 1: constant folding and
// short-circuit simplification. It folds literal AND/OR/NOT combinations
// and constant-operand BinaryOps it can prove statically, leaving anything
// touching a Column or subquery untouched (the executor's ValueEvaluator
// does the rest at run time).
func foldConstants(n plan.Logical) plan.Logical {
	return mapLogical(n, foldExprsIn)
}

func foldExprsIn(n plan.Logical) plan.Logical {
	switch p := n.(type) {
	case *plan.Filter:
		p.Predicate = foldExpr(p.Predicate)
	case *plan.Project:
		for i := range p.Items {
			p.Items[i].Expr = foldExpr(p.Items[i].Expr)
		}
	case *plan.Join:
		if p.Condition != nil {
			p.Condition = foldExpr(p.Condition)
		}
	}
	return n
}

// foldExpr recursively folds an expression, collapsing literal boolean
// combinations. It is conservative: anything it cannot prove a literal
// result for is returned unchanged.
func foldExpr(e plan.Expr) plan.Expr {
	switch x := e.(type) {
	case plan.BinaryOp:
		x.Left = foldExpr(x.Left)
		x.Right = foldExpr(x.Right)
		if x.Op == plan.OpAnd {
			if isFalseLiteral(x.Left) || isFalseLiteral(x.Right) {
				return falseLiteral()
			}
			if isTrueLiteral(x.Left) {
				return x.Right
			}
			if isTrueLiteral(x.Right) {
				return x.Left
			}
		}
		if x.Op == plan.OpOr {
			if isTrueLiteral(x.Left) || isTrueLiteral(x.Right) {
				return trueLiteral()
			}
			if isFalseLiteral(x.Left) {
				return x.Right
			}
			if isFalseLiteral(x.Right) {
				return x.Left
			}
		}
		return x
	case plan.UnaryOp:
		x.Operand = foldExpr(x.Operand)
		if x.Op == plan.UnaryNot {
			if isTrueLiteral(x.Operand) {
				return falseLiteral()
			}
			if isFalseLiteral(x.Operand) {
				return trueLiteral()
			}
		}
		return x
	default:
		return e
	}
}

func isTrueLiteral(e plan.Expr) bool {
	l, ok := e.(plan.Literal)
	return ok && l.Kind == "bool" && l.Text == "TRUE"
}

func isFalseLiteral(e plan.Expr) bool {
	l, ok := e.(plan.Literal)
	return ok && l.Kind == "bool" && l.Text == "FALSE"
}

func trueLiteral() plan.Expr  { return plan.Literal{Kind: "bool", Text: "TRUE"} }
func falseLiteral() plan.Expr { return plan.Literal{Kind: "bool", Text: "FALSE"} }

// removeTrivialPredicates implements spec §4.D rule 5: `Filter TRUE`
// collapses to its input; `Filter FALSE` collapses to an Empty node
// carrying the filter's schema.
func removeTrivialPredicates(n plan.Logical) plan.Logical {
	return mapLogicalBottomUp(n, func(n plan.Logical) plan.Logical {
		f, ok := n.(*plan.Filter)
		if !ok {
			return n
		}
		if isTrueLiteral(f.Predicate) {
			return f.Input
		}
		if isFalseLiteral(f.Predicate) {
			return emptyWithSchema(f.Schema())
		}
		return f
	})
}

func emptyWithSchema(s *plan.Schema) plan.Logical {
	return plan.NewEmpty(s)
}

// mergeFilters implements spec §4.D rule 3: adjacent Filter nodes combine
// via AND.
func mergeFilters(n plan.Logical) plan.Logical {
	return mapLogicalBottomUp(n, func(n plan.Logical) plan.Logical {
		outer, ok := n.(*plan.Filter)
		if !ok {
			return n
		}
		inner, ok := outer.Input.(*plan.Filter)
		if !ok {
			return n
		}
		return &plan.Filter{
			Input:     inner.Input,
			Predicate: plan.BinaryOp{Op: plan.OpAnd, Left: outer.Predicate, Right: inner.Predicate},
		}
	})
}
