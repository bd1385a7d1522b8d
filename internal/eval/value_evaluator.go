// Package eval implements two coordinated expression evaluators: a row-wise
// ValueEvaluator, which the executor uses whenever an expression contains a
// subquery, and a vectorized ColumnarEvaluator used otherwise. Fields carry
// no collation, so collation plays no part in that choice. Both share scalarfuncs' function
// registry and a UDF resolver.
package eval

import (
	"regexp"
	"strings"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/eval/scalarfuncs"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// SubqueryRunner evaluates a planned subquery and returns its result as a
// Table, letting ValueEvaluator call back into the executor without
// internal/eval importing internal/executor (which imports internal/eval).
type SubqueryRunner interface {
	Run(p plan.Logical) (*yachtsql.Table, error)
}

// UDFResolver looks up a user-defined scalar function body by name.
type UDFResolver interface {
	ResolveFunction(name string) (params []plan.FunctionParam, body plan.Expr, returnType string, ok bool)
}

// Context carries everything an evaluation needs beyond the expression
// tree and current row: session/system variables, bind parameters, the UDF
// resolver, and (for ValueEvaluator only) a subquery runner.
type Context struct {
	Variables       map[string]yachtsql.Value
	SystemVariables map[string]yachtsql.Value
	Parameters      []yachtsql.Value
	NamedParameters map[string]yachtsql.Value
	UDFs            UDFResolver
	Subqueries      SubqueryRunner
	Registry        *scalarfuncs.Registry
}

// NewContext builds a Context with a fresh built-in scalarfuncs.Registry.
func NewContext() *Context {
	return &Context{
		Variables:       make(map[string]yachtsql.Value),
		SystemVariables: make(map[string]yachtsql.Value),
		NamedParameters: make(map[string]yachtsql.Value),
		Registry:        scalarfuncs.New(),
	}
}

// ValueEvaluator evaluates one Expr against one Record at a time (spec §4.G:
// "Row-wise; supports the same surface plus subquery evaluation via a
// callback into the executor").
type ValueEvaluator struct {
	ctx *Context
}

// NewValueEvaluator builds a ValueEvaluator bound to ctx.
func NewValueEvaluator(ctx *Context) *ValueEvaluator {
	return &ValueEvaluator{ctx: ctx}
}

// Eval evaluates expr against row, returning its Value.
func (e *ValueEvaluator) Eval(expr plan.Expr, row yachtsql.Record) (yachtsql.Value, error) {
	switch x := expr.(type) {
	case plan.Column:
		return e.evalColumn(x, row)
	case plan.Literal:
		return evalLiteral(x)
	case plan.TypedString:
		return yachtsql.Cast(yachtsql.NewString(x.Text), x.TargetType)
	case plan.BinaryOp:
		return e.evalBinary(x, row)
	case plan.UnaryOp:
		return e.evalUnary(x, row)
	case plan.ScalarFunction:
		return e.evalScalarFunction(x, row)
	case plan.Case:
		return e.evalCase(x, row)
	case plan.Cast:
		return e.evalCast(x, row)
	case plan.InList:
		return e.evalInList(x, row)
	case plan.InSubquery:
		return e.evalInSubquery(x, row)
	case plan.InUnnest:
		return e.evalInUnnest(x, row)
	case plan.Between:
		return e.evalBetween(x, row)
	case plan.ScalarSubquery:
		return e.evalScalarSubquery(x)
	case plan.ArraySubquery:
		return e.evalArraySubquery(x)
	case plan.Exists:
		return e.evalExists(x)
	case plan.Array:
		return e.evalArray(x, row)
	case plan.Struct:
		return e.evalStruct(x, row)
	case plan.ArrayAccess:
		return e.evalArrayAccess(x, row)
	case plan.StructAccess:
		return e.evalStructAccess(x, row)
	case plan.Like:
		return e.evalLike(x, row)
	case plan.IsNull:
		return e.evalIsNull(x, row)
	case plan.IsDistinctFrom:
		return e.evalIsDistinctFrom(x, row)
	case plan.Alias:
		return e.Eval(x.Expr, row)
	case plan.Extract:
		return e.evalExtract(x, row)
	case plan.Substring:
		return e.evalSubstring(x, row)
	case plan.Trim:
		return e.evalTrim(x, row)
	case plan.Position:
		return e.evalPosition(x, row)
	case plan.Overlay:
		return e.evalOverlay(x, row)
	case plan.Interval:
		return e.evalInterval(x, row)
	case plan.AtTimeZone:
		return e.evalAtTimeZone(x, row)
	case plan.JsonAccess:
		return e.evalJSONAccess(x, row)
	case plan.Parameter:
		return e.evalParameter(x)
	case plan.Variable:
		return e.evalVariable(x)
	case plan.UserDefinedAggregate, plan.Aggregate, plan.Window, plan.AggregateWindow:
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrInternal,
			"aggregate/window expressions must be pre-computed by the aggregate/window executor before reaching the value evaluator")
	default:
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported expression %T", expr)
	}
}

func (e *ValueEvaluator) evalColumn(c plan.Column, row yachtsql.Record) (yachtsql.Value, error) {
	if c.Index >= 0 && c.Index < len(row.Values) {
		return row.Values[c.Index], nil
	}
	idx := row.Schema.IndexOf(qualifiedName(c.Qualifier, c.Name))
	if idx < 0 {
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrColumnNotFound, "column %q not found", c.Name)
	}
	return row.Values[idx], nil
}

func qualifiedName(qualifier, name string) string {
	if qualifier == "" {
		return name
	}
	return qualifier + "." + name
}

func evalLiteral(l plan.Literal) (yachtsql.Value, error) {
	switch l.Kind {
	case "null":
		return yachtsql.Null, nil
	case "bool":
		return yachtsql.NewBool(l.Text == "true" || l.Text == "TRUE"), nil
	default:
		return yachtsql.Cast(yachtsql.NewString(l.Text), strings.ToUpper(l.Kind))
	}
}

func (e *ValueEvaluator) evalBinary(b plan.BinaryOp, row yachtsql.Record) (yachtsql.Value, error) {
	if b.Op == plan.OpAnd || b.Op == plan.OpOr {
		return e.evalLogical(b, row)
	}
	l, err := e.Eval(b.Left, row)
	if err != nil {
		return yachtsql.Null, err
	}
	r, err := e.Eval(b.Right, row)
	if err != nil {
		return yachtsql.Null, err
	}
	switch b.Op {
	case plan.OpAdd:
		return yachtsql.Add(l, r)
	case plan.OpSub:
		return yachtsql.Sub(l, r)
	case plan.OpMul:
		return yachtsql.Mul(l, r)
	case plan.OpDiv:
		return yachtsql.Div(l, r)
	case plan.OpMod:
		return yachtsql.Mod(l, r)
	case plan.OpConcat:
		return yachtsql.Concat(l, r)
	case plan.OpBitAnd:
		return yachtsql.BitAnd(l, r)
	case plan.OpBitOr:
		return yachtsql.BitOr(l, r)
	case plan.OpBitXor:
		return yachtsql.BitXor(l, r)
	case plan.OpShl:
		return yachtsql.BitShl(l, r)
	case plan.OpShr:
		return yachtsql.BitShr(l, r)
	case plan.OpEq, plan.OpNeq, plan.OpLt, plan.OpLte, plan.OpGt, plan.OpGte:
		return evalComparison(b.Op, l, r)
	default:
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported binary operator %q", b.Op)
	}
}

// evalLogical implements BigQuery's three-valued AND/OR with short-circuit
// on a determining operand (spec §3.1: "AND/OR: three-valued... FALSE AND
// NULL = FALSE", etc.).
func (e *ValueEvaluator) evalLogical(b plan.BinaryOp, row yachtsql.Record) (yachtsql.Value, error) {
	l, err := e.Eval(b.Left, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if b.Op == plan.OpAnd && !l.IsNull() && !l.Bool() {
		return yachtsql.NewBool(false), nil
	}
	if b.Op == plan.OpOr && !l.IsNull() && l.Bool() {
		return yachtsql.NewBool(true), nil
	}
	r, err := e.Eval(b.Right, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if b.Op == plan.OpAnd {
		if !r.IsNull() && !r.Bool() {
			return yachtsql.NewBool(false), nil
		}
		if l.IsNull() || r.IsNull() {
			return yachtsql.Null, nil
		}
		return yachtsql.NewBool(true), nil
	}
	// OR
	if !r.IsNull() && r.Bool() {
		return yachtsql.NewBool(true), nil
	}
	if l.IsNull() || r.IsNull() {
		return yachtsql.Null, nil
	}
	return yachtsql.NewBool(false), nil
}

func evalComparison(op plan.BinaryOperator, l, r yachtsql.Value) (yachtsql.Value, error) {
	if l.IsNull() || r.IsNull() {
		return yachtsql.Null, nil
	}
	c := yachtsql.Compare(l, r)
	switch op {
	case plan.OpEq:
		return yachtsql.NewBool(c == 0), nil
	case plan.OpNeq:
		return yachtsql.NewBool(c != 0), nil
	case plan.OpLt:
		return yachtsql.NewBool(c < 0), nil
	case plan.OpLte:
		return yachtsql.NewBool(c <= 0), nil
	case plan.OpGt:
		return yachtsql.NewBool(c > 0), nil
	case plan.OpGte:
		return yachtsql.NewBool(c >= 0), nil
	default:
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported comparison operator %q", op)
	}
}

func (e *ValueEvaluator) evalUnary(u plan.UnaryOp, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(u.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	switch u.Op {
	case plan.UnaryNeg:
		if v.IsNull() {
			return yachtsql.Null, nil
		}
		return yachtsql.Negate(v)
	case plan.UnaryNot:
		if v.IsNull() {
			return yachtsql.Null, nil
		}
		return yachtsql.NewBool(!v.Bool()), nil
	case plan.UnaryBitNot:
		if v.IsNull() {
			return yachtsql.Null, nil
		}
		return yachtsql.BitNot(v)
	default:
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported unary operator %q", u.Op)
	}
}

func (e *ValueEvaluator) evalScalarFunction(s plan.ScalarFunction, row yachtsql.Record) (yachtsql.Value, error) {
	args := make([]yachtsql.Value, len(s.Args))
	for i, a := range s.Args {
		v, err := e.Eval(a, row)
		if err != nil {
			return yachtsql.Null, err
		}
		args[i] = v
	}
	if e.ctx.UDFs != nil {
		if params, body, returnType, ok := e.ctx.UDFs.ResolveFunction(s.Name); ok && body != nil {
			return e.evalUDFBody(params, body, returnType, args)
		}
	}
	return e.ctx.Registry.Call(s.Name, args)
}

// evalUDFBody evaluates a SQL-expression-bodied UDF by binding its
// parameters as a synthetic one-row record and recursing. A struct-valued
// result is re-tagged with returnType's declared field names (spec §4.C/§9:
// the body's own struct literal may pick different names than the function's
// declared return type), since the body sees only its parameters, not what
// the caller declared the result should be called.
func (e *ValueEvaluator) evalUDFBody(params []plan.FunctionParam, body plan.Expr, returnType string, args []yachtsql.Value) (yachtsql.Value, error) {
	fields := make([]yachtsql.Field, len(params))
	for i, p := range params {
		fields[i] = yachtsql.Field{Name: p.Name}
	}
	schema := yachtsql.NewSchema(fields...)
	inner := NewValueEvaluator(e.ctx)
	result, err := inner.Eval(body, yachtsql.Record{Schema: schema, Values: args})
	if err != nil {
		return yachtsql.Null, err
	}
	if result.Kind() == yachtsql.VKStruct {
		if names, ok := structFieldNames(returnType); ok && len(names) == len(result.Struct().Values) {
			return yachtsql.NewStruct(names, result.Struct().Values), nil
		}
	}
	return result, nil
}

// structFieldNames extracts the ordered field names from a declared
// "STRUCT<name TYPE, ...>" return type string, or ok=false if returnType
// isn't a top-level STRUCT. Field parts are split on commas at bracket depth
// zero, so a nested "STRUCT<a STRUCT<x INT64, y INT64>>" field still counts
// as one part.
func structFieldNames(returnType string) ([]string, bool) {
	trimmed := strings.TrimSpace(returnType)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "STRUCT<") || !strings.HasSuffix(trimmed, ">") {
		return nil, false
	}
	inner := trimmed[len("STRUCT<") : len(trimmed)-1]
	var parts []string
	depth, start := 0, 0
	for i, ch := range inner {
		switch ch {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, inner[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, inner[start:])

	names := make([]string, len(parts))
	for i, p := range parts {
		fields := strings.Fields(strings.TrimSpace(p))
		if len(fields) == 0 {
			return nil, false
		}
		names[i] = fields[0]
	}
	return names, true
}

func (e *ValueEvaluator) evalCase(c plan.Case, row yachtsql.Record) (yachtsql.Value, error) {
	var operand yachtsql.Value
	hasOperand := c.Operand != nil
	if hasOperand {
		v, err := e.Eval(c.Operand, row)
		if err != nil {
			return yachtsql.Null, err
		}
		operand = v
	}
	for _, w := range c.Whens {
		if hasOperand {
			whenVal, err := e.Eval(w.When, row)
			if err != nil {
				return yachtsql.Null, err
			}
			if ok, valid := yachtsql.EqualSQL(operand, whenVal); valid && ok {
				return e.Eval(w.Then, row)
			}
			continue
		}
		cond, err := e.Eval(w.When, row)
		if err != nil {
			return yachtsql.Null, err
		}
		if !cond.IsNull() && cond.Bool() {
			return e.Eval(w.Then, row)
		}
	}
	if c.Else != nil {
		return e.Eval(c.Else, row)
	}
	return yachtsql.Null, nil
}

func (e *ValueEvaluator) evalCast(c plan.Cast, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(c.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	out, err := yachtsql.Cast(v, c.TargetType)
	if err != nil {
		if c.Safe {
			return yachtsql.Null, nil
		}
		return yachtsql.Null, err
	}
	return out, nil
}

func (e *ValueEvaluator) evalInList(i plan.InList, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(i.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() {
		return yachtsql.Null, nil
	}
	sawNull := false
	for _, item := range i.List {
		iv, err := e.Eval(item, row)
		if err != nil {
			return yachtsql.Null, err
		}
		if iv.IsNull() {
			sawNull = true
			continue
		}
		if yachtsql.Compare(v, iv) == 0 {
			return yachtsql.NewBool(!i.Negate), nil
		}
	}
	if sawNull {
		return yachtsql.Null, nil
	}
	return yachtsql.NewBool(i.Negate), nil
}

func (e *ValueEvaluator) evalInSubquery(i plan.InSubquery, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(i.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() {
		return yachtsql.Null, nil
	}
	table, err := e.runSubquery(i.Subquery)
	if err != nil {
		return yachtsql.Null, err
	}
	sawNull := false
	for r := 0; r < table.NumRows(); r++ {
		cand := table.Columns[0].Get(r)
		if cand.IsNull() {
			sawNull = true
			continue
		}
		if yachtsql.Compare(v, cand) == 0 {
			return yachtsql.NewBool(!i.Negate), nil
		}
	}
	if sawNull {
		return yachtsql.Null, nil
	}
	return yachtsql.NewBool(i.Negate), nil
}

func (e *ValueEvaluator) evalInUnnest(i plan.InUnnest, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(i.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	arr, err := e.Eval(i.Array, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() || arr.IsNull() {
		return yachtsql.Null, nil
	}
	sawNull := false
	for _, elem := range arr.Array() {
		if elem.IsNull() {
			sawNull = true
			continue
		}
		if yachtsql.Compare(v, elem) == 0 {
			return yachtsql.NewBool(!i.Negate), nil
		}
	}
	if sawNull {
		return yachtsql.Null, nil
	}
	return yachtsql.NewBool(i.Negate), nil
}

func (e *ValueEvaluator) evalBetween(b plan.Between, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(b.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	lo, err := e.Eval(b.Low, row)
	if err != nil {
		return yachtsql.Null, err
	}
	hi, err := e.Eval(b.High, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() || lo.IsNull() || hi.IsNull() {
		return yachtsql.Null, nil
	}
	in := yachtsql.Compare(v, lo) >= 0 && yachtsql.Compare(v, hi) <= 0
	return yachtsql.NewBool(in != b.Negate), nil
}

func (e *ValueEvaluator) runSubquery(p plan.Logical) (*yachtsql.Table, error) {
	if e.ctx.Subqueries == nil {
		return nil, yachtsql.NewError(yachtsql.ErrInternal, "no subquery runner installed in evaluation context")
	}
	return e.ctx.Subqueries.Run(p)
}

func (e *ValueEvaluator) evalScalarSubquery(s plan.ScalarSubquery) (yachtsql.Value, error) {
	table, err := e.runSubquery(s.Plan)
	if err != nil {
		return yachtsql.Null, err
	}
	if table.NumRows() == 0 {
		return yachtsql.Null, nil
	}
	if table.NumRows() > 1 {
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrInvalidQuery, "scalar subquery produced more than one row")
	}
	return table.Columns[0].Get(0), nil
}

func (e *ValueEvaluator) evalArraySubquery(s plan.ArraySubquery) (yachtsql.Value, error) {
	table, err := e.runSubquery(s.Plan)
	if err != nil {
		return yachtsql.Null, err
	}
	elemType := yachtsql.Unknown
	if table.NumCols() > 0 {
		elemType = table.Schema.Fields[0].Type
	}
	values := make([]yachtsql.Value, table.NumRows())
	for r := range values {
		values[r] = table.Columns[0].Get(r)
	}
	return yachtsql.NewArray(elemType, values), nil
}

func (e *ValueEvaluator) evalExists(x plan.Exists) (yachtsql.Value, error) {
	table, err := e.runSubquery(x.Plan)
	if err != nil {
		return yachtsql.Null, err
	}
	exists := table.NumRows() > 0
	if x.Negate {
		exists = !exists
	}
	return yachtsql.NewBool(exists), nil
}

func (e *ValueEvaluator) evalArray(a plan.Array, row yachtsql.Record) (yachtsql.Value, error) {
	values := make([]yachtsql.Value, len(a.Elements))
	elemType := yachtsql.Unknown
	for i, el := range a.Elements {
		v, err := e.Eval(el, row)
		if err != nil {
			return yachtsql.Null, err
		}
		values[i] = v
		if !v.IsNull() {
			elemType = v.Type()
		}
	}
	if a.ElementType != "" {
		elemType = yachtsql.DataType{Kind: yachtsql.TypeKind(strings.ToUpper(a.ElementType))}
	}
	return yachtsql.NewArray(elemType, values), nil
}

func (e *ValueEvaluator) evalStruct(s plan.Struct, row yachtsql.Record) (yachtsql.Value, error) {
	values := make([]yachtsql.Value, len(s.Fields))
	for i, f := range s.Fields {
		v, err := e.Eval(f, row)
		if err != nil {
			return yachtsql.Null, err
		}
		values[i] = v
	}
	return yachtsql.NewStruct(s.Names, values), nil
}

func (e *ValueEvaluator) evalArrayAccess(a plan.ArrayAccess, row yachtsql.Record) (yachtsql.Value, error) {
	arr, err := e.Eval(a.Array, row)
	if err != nil {
		return yachtsql.Null, err
	}
	idxVal, err := e.Eval(a.Index, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if arr.IsNull() || idxVal.IsNull() {
		return yachtsql.Null, nil
	}
	elems := arr.Array()
	idx := int(idxVal.Int64())
	if a.Ordinal {
		idx--
	}
	if idx < 0 || idx >= len(elems) {
		if a.Safe {
			return yachtsql.Null, nil
		}
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrInvalidQuery, "array index out of bounds")
	}
	return elems[idx], nil
}

func (e *ValueEvaluator) evalStructAccess(s plan.StructAccess, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(s.Struct, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() {
		return yachtsql.Null, nil
	}
	strct := v.Struct()
	for i, name := range strct.Names {
		if strings.EqualFold(name, s.Field) {
			return strct.Values[i], nil
		}
	}
	return yachtsql.Null, yachtsql.NewError(yachtsql.ErrColumnNotFound, "struct has no field %q", s.Field)
}

func (e *ValueEvaluator) evalLike(l plan.Like, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(l.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	pat, err := e.Eval(l.Pattern, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() || pat.IsNull() {
		return yachtsql.Null, nil
	}
	esc := byte('\\')
	if l.Escape != nil {
		ev, err := e.Eval(l.Escape, row)
		if err != nil {
			return yachtsql.Null, err
		}
		if !ev.IsNull() && len(ev.String_()) > 0 {
			esc = ev.String_()[0]
		}
	}
	re, err := likeToRegexp(pat.String_(), esc)
	if err != nil {
		return yachtsql.Null, err
	}
	matched := re.MatchString(v.String_())
	return yachtsql.NewBool(matched != l.Negate), nil
}

// likeToRegexp compiles a SQL LIKE pattern ('%' any run, '_' any char) into
// an anchored regexp, honoring esc as the escape character for literal '%'
// and '_'.
func likeToRegexp(pattern string, esc byte) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	runes := []byte(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == esc && i+1 < len(runes) {
			b.WriteString(regexp.QuoteMeta(string(runes[i+1])))
			i++
			continue
		}
		switch c {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile("(?s)" + b.String())
}

func (e *ValueEvaluator) evalIsNull(i plan.IsNull, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(i.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	return yachtsql.NewBool(v.IsNull() != i.Negate), nil
}

func (e *ValueEvaluator) evalIsDistinctFrom(i plan.IsDistinctFrom, row yachtsql.Record) (yachtsql.Value, error) {
	l, err := e.Eval(i.Left, row)
	if err != nil {
		return yachtsql.Null, err
	}
	r, err := e.Eval(i.Right, row)
	if err != nil {
		return yachtsql.Null, err
	}
	equal := yachtsql.Equal(l, r)
	return yachtsql.NewBool(equal == i.Negate), nil
}

func (e *ValueEvaluator) evalExtract(x plan.Extract, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(x.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() {
		return yachtsql.Null, nil
	}
	return e.ctx.Registry.Call("EXTRACT", []yachtsql.Value{v, yachtsql.NewString(string(x.Field))})
}

func (e *ValueEvaluator) evalSubstring(s plan.Substring, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(s.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	pos, err := e.Eval(s.Pos, row)
	if err != nil {
		return yachtsql.Null, err
	}
	args := []yachtsql.Value{v, pos}
	if s.Length != nil {
		length, err := e.Eval(s.Length, row)
		if err != nil {
			return yachtsql.Null, err
		}
		args = append(args, length)
	}
	return e.ctx.Registry.Call("SUBSTR", args)
}

func (e *ValueEvaluator) evalTrim(t plan.Trim, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(t.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	args := []yachtsql.Value{v}
	if t.Chars != nil {
		chars, err := e.Eval(t.Chars, row)
		if err != nil {
			return yachtsql.Null, err
		}
		args = append(args, chars)
	}
	switch t.Side {
	case "leading":
		return e.ctx.Registry.Call("LTRIM", args)
	case "trailing":
		return e.ctx.Registry.Call("RTRIM", args)
	default:
		return e.ctx.Registry.Call("TRIM", args)
	}
}

func (e *ValueEvaluator) evalPosition(p plan.Position, row yachtsql.Record) (yachtsql.Value, error) {
	h, err := e.Eval(p.Haystack, row)
	if err != nil {
		return yachtsql.Null, err
	}
	n, err := e.Eval(p.Needle, row)
	if err != nil {
		return yachtsql.Null, err
	}
	return e.ctx.Registry.Call("STRPOS", []yachtsql.Value{h, n})
}

func (e *ValueEvaluator) evalOverlay(o plan.Overlay, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(o.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	rep, err := e.Eval(o.Replacement, row)
	if err != nil {
		return yachtsql.Null, err
	}
	posVal, err := e.Eval(o.Pos, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() || rep.IsNull() || posVal.IsNull() {
		return yachtsql.Null, nil
	}
	runes := []rune(v.String_())
	pos := int(posVal.Int64()) - 1
	length := len([]rune(rep.String_()))
	if o.Length != nil {
		lv, err := e.Eval(o.Length, row)
		if err != nil {
			return yachtsql.Null, err
		}
		if !lv.IsNull() {
			length = int(lv.Int64())
		}
	}
	if pos < 0 {
		pos = 0
	}
	end := pos + length
	if end > len(runes) {
		end = len(runes)
	}
	if pos > len(runes) {
		pos = len(runes)
	}
	out := string(runes[:pos]) + rep.String_() + string(runes[end:])
	return yachtsql.NewString(out), nil
}

func (e *ValueEvaluator) evalInterval(i plan.Interval, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(i.Value, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() {
		return yachtsql.Null, nil
	}
	n := v.Int64()
	switch strings.ToUpper(i.Unit) {
	case "YEAR":
		return yachtsql.NewInterval(yachtsql.Interval{Months: int32(n * 12)}), nil
	case "MONTH":
		return yachtsql.NewInterval(yachtsql.Interval{Months: int32(n)}), nil
	case "DAY":
		return yachtsql.NewInterval(yachtsql.Interval{Days: int32(n)}), nil
	case "HOUR":
		return yachtsql.NewInterval(yachtsql.Interval{Nanos: n * int64(3600e9)}), nil
	case "MINUTE":
		return yachtsql.NewInterval(yachtsql.Interval{Nanos: n * int64(60e9)}), nil
	case "SECOND":
		return yachtsql.NewInterval(yachtsql.Interval{Nanos: n * int64(1e9)}), nil
	default:
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported INTERVAL unit %q", i.Unit)
	}
}

func (e *ValueEvaluator) evalAtTimeZone(a plan.AtTimeZone, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(a.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	zone, err := e.Eval(a.Zone, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() || zone.IsNull() {
		return yachtsql.Null, nil
	}
	loc, err := loadLocation(zone.String_())
	if err != nil {
		return yachtsql.Null, err
	}
	return yachtsql.NewTimestamp(v.Time().In(loc)), nil
}

func (e *ValueEvaluator) evalJSONAccess(j plan.JsonAccess, row yachtsql.Record) (yachtsql.Value, error) {
	v, err := e.Eval(j.Operand, row)
	if err != nil {
		return yachtsql.Null, err
	}
	if v.IsNull() {
		return yachtsql.Null, nil
	}
	fn := "JSON_QUERY"
	if j.AsText {
		fn = "JSON_VALUE"
	}
	return e.ctx.Registry.Call(fn, []yachtsql.Value{v, yachtsql.NewString(j.Path)})
}

func (e *ValueEvaluator) evalParameter(p plan.Parameter) (yachtsql.Value, error) {
	if v, ok := e.ctx.NamedParameters[p.Name]; ok {
		return v, nil
	}
	return yachtsql.Null, yachtsql.NewError(yachtsql.ErrInvalidQuery, "unbound parameter @%s", p.Name)
}

func (e *ValueEvaluator) evalVariable(v plan.Variable) (yachtsql.Value, error) {
	table := e.ctx.Variables
	if v.System {
		table = e.ctx.SystemVariables
	}
	if val, ok := table[v.Name]; ok {
		return val, nil
	}
	return yachtsql.Null, nil
}
