package eval

import (
	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// ColumnarEvaluator evaluates one Expr against an entire Table at once. The
// executor uses it only for expressions without a subquery; field collation
// is not considered. Column refs, literals, and the common
// binary/unary arithmetic and comparison shapes run a dedicated vectorized
// path; everything else (CASE, scalar functions, array/struct construction,
// ...) falls back to evaluating ValueEvaluator row by row, which keeps this
// evaluator's surface a strict superset of ValueEvaluator's without
// duplicating its dispatch logic.
type ColumnarEvaluator struct {
	ctx    *Context
	scalar *ValueEvaluator
}

// NewColumnarEvaluator builds a ColumnarEvaluator bound to ctx. ctx must not
// carry a SubqueryRunner that any bound expression actually needs: callers
// are responsible for routing subquery-bearing expressions to ValueEvaluator
// instead, per spec §4.G.
func NewColumnarEvaluator(ctx *Context) *ColumnarEvaluator {
	return &ColumnarEvaluator{ctx: ctx, scalar: NewValueEvaluator(ctx)}
}

// Eval evaluates expr against every row of table, returning the result as a
// single Column named by resultName.
func (e *ColumnarEvaluator) Eval(expr plan.Expr, table *yachtsql.Table, resultName string) (*yachtsql.Column, error) {
	switch x := expr.(type) {
	case plan.Column:
		return e.evalColumn(x, table)
	case plan.Literal:
		v, err := evalLiteral(x)
		if err != nil {
			return nil, err
		}
		return e.broadcast(v, resultName, table.NumRows()), nil
	case plan.BinaryOp:
		if out, ok, err := e.tryVectorBinary(x, table, resultName); ok || err != nil {
			return out, err
		}
	case plan.UnaryOp:
		if out, ok, err := e.tryVectorUnary(x, table, resultName); ok || err != nil {
			return out, err
		}
	case plan.IsNull:
		return e.evalIsNullVector(x, table, resultName)
	}
	return e.fallbackRowwise(expr, table, resultName)
}

func (e *ColumnarEvaluator) evalColumn(c plan.Column, table *yachtsql.Table) (*yachtsql.Column, error) {
	if c.Index >= 0 && c.Index < table.NumCols() {
		return table.Columns[c.Index], nil
	}
	idx := table.Schema.IndexOf(qualifiedName(c.Qualifier, c.Name))
	if idx < 0 {
		return nil, yachtsql.NewError(yachtsql.ErrColumnNotFound, "column %q not found", c.Name)
	}
	return table.Columns[idx], nil
}

func (e *ColumnarEvaluator) broadcast(v yachtsql.Value, name string, n int) *yachtsql.Column {
	field := yachtsql.Field{Name: name, Type: v.Type()}
	values := make([]yachtsql.Value, n)
	for i := range values {
		values[i] = v
	}
	return yachtsql.NewColumnFromValues(field, values)
}

// tryVectorBinary handles the arithmetic/comparison/concat binary operators
// over a pair of same-length columns; returns ok=false for AND/OR (left to
// the row-wise fallback, since their short-circuit semantics only pay off
// per row) so the caller can fall through.
func (e *ColumnarEvaluator) tryVectorBinary(b plan.BinaryOp, table *yachtsql.Table, resultName string) (*yachtsql.Column, bool, error) {
	switch b.Op {
	case plan.OpAnd, plan.OpOr:
		return nil, false, nil
	}
	left, err := e.Eval(b.Left, table, "")
	if err != nil {
		return nil, true, err
	}
	right, err := e.Eval(b.Right, table, "")
	if err != nil {
		return nil, true, err
	}
	n := table.NumRows()
	out := make([]yachtsql.Value, n)
	for i := 0; i < n; i++ {
		v, err := applyVectorBinary(b.Op, left.Get(i), right.Get(i))
		if err != nil {
			return nil, true, err
		}
		out[i] = v
	}
	elemType := yachtsql.Unknown
	if n > 0 {
		elemType = out[0].Type()
	}
	return yachtsql.NewColumnFromValues(yachtsql.Field{Name: resultName, Type: elemType}, out), true, nil
}

func applyVectorBinary(op plan.BinaryOperator, l, r yachtsql.Value) (yachtsql.Value, error) {
	switch op {
	case plan.OpAdd:
		return nullOr(l, r, yachtsql.Add)
	case plan.OpSub:
		return nullOr(l, r, yachtsql.Sub)
	case plan.OpMul:
		return nullOr(l, r, yachtsql.Mul)
	case plan.OpDiv:
		return nullOr(l, r, yachtsql.Div)
	case plan.OpMod:
		return nullOr(l, r, yachtsql.Mod)
	case plan.OpConcat:
		return nullOr(l, r, yachtsql.Concat)
	case plan.OpBitAnd:
		return nullOr(l, r, yachtsql.BitAnd)
	case plan.OpBitOr:
		return nullOr(l, r, yachtsql.BitOr)
	case plan.OpBitXor:
		return nullOr(l, r, yachtsql.BitXor)
	case plan.OpShl:
		return nullOr(l, r, yachtsql.BitShl)
	case plan.OpShr:
		return nullOr(l, r, yachtsql.BitShr)
	case plan.OpEq, plan.OpNeq, plan.OpLt, plan.OpLte, plan.OpGt, plan.OpGte:
		return evalComparison(op, l, r)
	default:
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported binary operator %q", op)
	}
}

func nullOr(l, r yachtsql.Value, f func(a, b yachtsql.Value) (yachtsql.Value, error)) (yachtsql.Value, error) {
	if l.IsNull() || r.IsNull() {
		return yachtsql.Null, nil
	}
	return f(l, r)
}

func (e *ColumnarEvaluator) tryVectorUnary(u plan.UnaryOp, table *yachtsql.Table, resultName string) (*yachtsql.Column, bool, error) {
	operand, err := e.Eval(u.Operand, table, "")
	if err != nil {
		return nil, true, err
	}
	n := table.NumRows()
	out := make([]yachtsql.Value, n)
	for i := 0; i < n; i++ {
		v := operand.Get(i)
		if v.IsNull() {
			out[i] = yachtsql.Null
			continue
		}
		switch u.Op {
		case plan.UnaryNeg:
			nv, err := yachtsql.Negate(v)
			if err != nil {
				return nil, true, err
			}
			out[i] = nv
		case plan.UnaryNot:
			out[i] = yachtsql.NewBool(!v.Bool())
		case plan.UnaryBitNot:
			nv, err := yachtsql.BitNot(v)
			if err != nil {
				return nil, true, err
			}
			out[i] = nv
		default:
			return nil, true, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported unary operator %q", u.Op)
		}
	}
	elemType := yachtsql.Unknown
	if n > 0 {
		elemType = out[0].Type()
	}
	return yachtsql.NewColumnFromValues(yachtsql.Field{Name: resultName, Type: elemType}, out), true, nil
}

func (e *ColumnarEvaluator) evalIsNullVector(i plan.IsNull, table *yachtsql.Table, resultName string) (*yachtsql.Column, error) {
	operand, err := e.Eval(i.Operand, table, "")
	if err != nil {
		return nil, err
	}
	n := table.NumRows()
	out := make([]yachtsql.Value, n)
	for r := 0; r < n; r++ {
		out[r] = yachtsql.NewBool(operand.Get(r).IsNull() != i.Negate)
	}
	return yachtsql.NewColumnFromValues(yachtsql.Field{Name: resultName, Type: yachtsql.DataType{Kind: yachtsql.KindBool}}, out), nil
}

// fallbackRowwise evaluates expr once per row via ValueEvaluator, the
// correct (if unvectorized) result for any expression shape without a
// dedicated columnar path above: CASE, scalar functions, LIKE, BETWEEN,
// IN-list, array/struct construction and access, and the rest of
// internal/plan/expr.go's surface.
func (e *ColumnarEvaluator) fallbackRowwise(expr plan.Expr, table *yachtsql.Table, resultName string) (*yachtsql.Column, error) {
	n := table.NumRows()
	out := make([]yachtsql.Value, n)
	elemType := yachtsql.Unknown
	for i := 0; i < n; i++ {
		v, err := e.scalar.Eval(expr, table.Row(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
		if !v.IsNull() {
			elemType = v.Type()
		}
	}
	return yachtsql.NewColumnFromValues(yachtsql.Field{Name: resultName, Type: elemType}, out), nil
}
