package yachtsql

import (
	"math"
	"strconv"
	"time"
)

// null-propagation: every arithmetic/comparison/function below returns Null
// for a Null operand except where spec §3.1 carves out an explicit
// exception (IS NULL, IS DISTINCT FROM, null-aware aggregates), which live
// outside this file.

func bothNonNull(a, b Value) bool { return !a.IsNull() && !b.IsNull() }

// coerceNumeric converts a String operand that parses as a number into an
// Int64 or Float64 Value; other kinds pass through unchanged. Returns an
// error if a String does not parse (spec §4.A: "String–numeric operators
// auto-coerce when the string parses; otherwise error").
func coerceNumeric(v Value) (Value, error) {
	if v.kind != VKString {
		return v, nil
	}
	if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
		return NewInt64(i), nil
	}
	if f, err := strconv.ParseFloat(v.s, 64); err == nil {
		return NewFloat64(f), nil
	}
	return Value{}, NewError(ErrTypeMismatch, "string %q does not parse as a number", v.s)
}

// promoteNumericPair decides the common numeric kind two coerced operands
// should be evaluated in, per spec §4.A's promotion order: BIGNUMERIC >
// NUMERIC > FLOAT64 > INT64.
func promoteNumericPair(a, b Value) ValueKind {
	rank := func(v Value) int {
		switch v.kind {
		case VKBigNumeric:
			return 4
		case VKNumeric:
			return 3
		case VKFloat64:
			return 2
		default:
			return 1
		}
	}
	if rank(a) >= rank(b) {
		return a.kind
	}
	return b.kind
}

func asDecimal(v Value) Decimal {
	switch v.kind {
	case VKNumeric, VKBigNumeric:
		return v.dec
	case VKInt64:
		return DecimalFromInt64(v.i)
	case VKFloat64:
		return DecimalFromFloat64(v.f)
	default:
		return Decimal{}
	}
}

func asFloat64(v Value) float64 {
	switch v.kind {
	case VKInt64:
		return float64(v.i)
	case VKFloat64:
		return v.f
	case VKNumeric, VKBigNumeric:
		return v.dec.Float64()
	default:
		return 0
	}
}

// arithBinOp is implemented once per operator and dispatches on the
// promoted numeric kind.
type arithBinOp struct {
	int64Op   func(a, b int64) (int64, error)
	float64Op func(a, b float64) float64
	decimalOp func(a, b Decimal) (Decimal, error)
}

func (op arithBinOp) apply(a, b Value) (Value, error) {
	if !bothNonNull(a, b) {
		return Null, nil
	}
	ca, err := coerceNumeric(a)
	if err != nil {
		return Value{}, err
	}
	cb, err := coerceNumeric(b)
	if err != nil {
		return Value{}, err
	}
	if !ca.Type().IsNumeric() || !cb.Type().IsNumeric() {
		return Value{}, NewError(ErrTypeMismatch, "non-numeric operand to arithmetic operator")
	}
	switch promoteNumericPair(ca, cb) {
	case VKInt64:
		r, err := op.int64Op(ca.i, cb.i)
		if err != nil {
			return Value{}, err
		}
		return NewInt64(r), nil
	case VKFloat64:
		return NewFloat64(op.float64Op(asFloat64(ca), asFloat64(cb))), nil
	case VKNumeric:
		r, err := op.decimalOp(asDecimal(ca), asDecimal(cb))
		if err != nil {
			return Value{}, err
		}
		return NewNumeric(r), nil
	case VKBigNumeric:
		r, err := op.decimalOp(asDecimal(ca), asDecimal(cb))
		if err != nil {
			return Value{}, err
		}
		return NewBigNumeric(r), nil
	default:
		return Value{}, NewError(ErrTypeMismatch, "unsupported numeric promotion")
	}
}

func overflowingAdd(a, b int64) (int64, error) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, NewError(ErrOverflow, "int64 addition overflow: %d + %d", a, b)
	}
	return r, nil
}

func overflowingSub(a, b int64) (int64, error) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, NewError(ErrOverflow, "int64 subtraction overflow: %d - %d", a, b)
	}
	return r, nil
}

func overflowingMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	r := a * b
	if r/b != a {
		return 0, NewError(ErrOverflow, "int64 multiplication overflow: %d * %d", a, b)
	}
	return r, nil
}

var addOp = arithBinOp{
	int64Op:   overflowingAdd,
	float64Op: func(a, b float64) float64 { return a + b },
	decimalOp: func(a, b Decimal) (Decimal, error) { return a.Add(b), nil },
}
var subOp = arithBinOp{
	int64Op:   overflowingSub,
	float64Op: func(a, b float64) float64 { return a - b },
	decimalOp: func(a, b Decimal) (Decimal, error) { return a.Sub(b), nil },
}
var mulOp = arithBinOp{
	int64Op:   overflowingMul,
	float64Op: func(a, b float64) float64 { return a * b },
	decimalOp: func(a, b Decimal) (Decimal, error) { return a.Mul(b), nil },
}

// Add implements +.
func Add(a, b Value) (Value, error) { return addOp.apply(a, b) }

// Sub implements -.
func Sub(a, b Value) (Value, error) { return subOp.apply(a, b) }

// Mul implements *.
func Mul(a, b Value) (Value, error) { return mulOp.apply(a, b) }

// Div implements / . Per spec §4.A: division of two Int64 is always
// Float64 unless both operands are Numeric (which stays Numeric).
func Div(a, b Value) (Value, error) {
	if !bothNonNull(a, b) {
		return Null, nil
	}
	ca, err := coerceNumeric(a)
	if err != nil {
		return Value{}, err
	}
	cb, err := coerceNumeric(b)
	if err != nil {
		return Value{}, err
	}
	if !ca.Type().IsNumeric() || !cb.Type().IsNumeric() {
		return Value{}, NewError(ErrTypeMismatch, "non-numeric operand to /")
	}
	switch promoteNumericPair(ca, cb) {
	case VKInt64, VKFloat64:
		bf := asFloat64(cb)
		if bf == 0 {
			return Value{}, NewError(ErrDivisionByZero, "division by zero")
		}
		return NewFloat64(asFloat64(ca) / bf), nil
	case VKNumeric:
		r, err := asDecimal(ca).Div(asDecimal(cb))
		if err != nil {
			return Value{}, err
		}
		return NewNumeric(r), nil
	case VKBigNumeric:
		r, err := asDecimal(ca).Div(asDecimal(cb))
		if err != nil {
			return Value{}, err
		}
		return NewBigNumeric(r), nil
	default:
		return Value{}, NewError(ErrTypeMismatch, "unsupported numeric promotion")
	}
}

// Mod implements %, integer/decimal only (no FLOAT64 MOD in BigQuery).
func Mod(a, b Value) (Value, error) {
	if !bothNonNull(a, b) {
		return Null, nil
	}
	ca, err := coerceNumeric(a)
	if err != nil {
		return Value{}, err
	}
	cb, err := coerceNumeric(b)
	if err != nil {
		return Value{}, err
	}
	switch promoteNumericPair(ca, cb) {
	case VKInt64:
		if cb.i == 0 {
			return Value{}, NewError(ErrDivisionByZero, "division by zero")
		}
		return NewInt64(ca.i % cb.i), nil
	case VKNumeric:
		r, err := asDecimal(ca).Mod(asDecimal(cb))
		if err != nil {
			return Value{}, err
		}
		return NewNumeric(r), nil
	case VKBigNumeric:
		r, err := asDecimal(ca).Mod(asDecimal(cb))
		if err != nil {
			return Value{}, err
		}
		return NewBigNumeric(r), nil
	default:
		return Value{}, NewError(ErrTypeMismatch, "MOD requires integer or decimal operands")
	}
}

// Negate implements unary -.
func Negate(a Value) (Value, error) {
	if a.IsNull() {
		return Null, nil
	}
	ca, err := coerceNumeric(a)
	if err != nil {
		return Value{}, err
	}
	switch ca.kind {
	case VKInt64:
		if ca.i == math.MinInt64 {
			return Value{}, NewError(ErrOverflow, "int64 negation overflow")
		}
		return NewInt64(-ca.i), nil
	case VKFloat64:
		return NewFloat64(-ca.f), nil
	case VKNumeric:
		return NewNumeric(ca.dec.Neg()), nil
	case VKBigNumeric:
		return NewBigNumeric(ca.dec.Neg()), nil
	default:
		return Value{}, NewError(ErrTypeMismatch, "non-numeric operand to unary -")
	}
}

// safe wraps an arithmetic op so it returns Null instead of propagating an
// error (spec §4.A / §6 SAFE_* functions).
func safe(v Value, err error) Value {
	if err != nil {
		return Null
	}
	return v
}

func SafeAdd(a, b Value) Value      { return safe(Add(a, b)) }
func SafeSub(a, b Value) Value      { return safe(Sub(a, b)) }
func SafeMultiply(a, b Value) Value { return safe(Mul(a, b)) }
func SafeDivide(a, b Value) Value   { return safe(Div(a, b)) }
func SafeNegate(a Value) Value      { return safe(Negate(a)) }

// Bitwise operators: defined only over INT64 (BigQuery semantics).
func bitwiseOp(a, b Value, f func(a, b int64) int64) (Value, error) {
	if !bothNonNull(a, b) {
		return Null, nil
	}
	if a.kind != VKInt64 || b.kind != VKInt64 {
		return Value{}, NewError(ErrTypeMismatch, "bitwise operators require INT64 operands")
	}
	return NewInt64(f(a.i, b.i)), nil
}

func BitAnd(a, b Value) (Value, error) { return bitwiseOp(a, b, func(a, b int64) int64 { return a & b }) }
func BitOr(a, b Value) (Value, error)  { return bitwiseOp(a, b, func(a, b int64) int64 { return a | b }) }
func BitXor(a, b Value) (Value, error) { return bitwiseOp(a, b, func(a, b int64) int64 { return a ^ b }) }
func BitShl(a, b Value) (Value, error) {
	return bitwiseOp(a, b, func(a, b int64) int64 { return a << uint(b) })
}
func BitShr(a, b Value) (Value, error) {
	return bitwiseOp(a, b, func(a, b int64) int64 { return a >> uint(b) })
}
func BitNot(a Value) (Value, error) {
	if a.IsNull() {
		return Null, nil
	}
	if a.kind != VKInt64 {
		return Value{}, NewError(ErrTypeMismatch, "bitwise NOT requires an INT64 operand")
	}
	return NewInt64(^a.i), nil
}

// Concat implements || : string concat on strings, element concat on
// arrays, byte concat on bytes (spec §4.A).
func Concat(a, b Value) (Value, error) {
	if !bothNonNull(a, b) {
		return Null, nil
	}
	if a.kind != b.kind {
		return Value{}, NewError(ErrTypeMismatch, "CONCAT operands of differing kind: %s vs %s", a.kind, b.kind)
	}
	switch a.kind {
	case VKString:
		return NewString(a.s + b.s), nil
	case VKBytes:
		return NewBytes(append(append([]byte{}, a.Bytes()...), b.Bytes()...)), nil
	case VKArray:
		elem := a.arrElem
		out := make([]Value, 0, len(a.arr)+len(b.arr))
		out = append(out, a.arr...)
		out = append(out, b.arr...)
		return NewArray(elem, out), nil
	default:
		return Value{}, NewError(ErrTypeMismatch, "CONCAT requires STRING, BYTES, or ARRAY operands")
	}
}

// AddDateInterval implements DATE/DATETIME/TIMESTAMP ± INTERVAL, promoting
// through months → days → nanos in that order (spec §4.A).
func AddDateInterval(d Value, iv Interval, negate bool) (Value, error) {
	if d.IsNull() {
		return Null, nil
	}
	if negate {
		iv = Interval{Months: -iv.Months, Days: -iv.Days, Nanos: -iv.Nanos}
	}
	t := d.t
	t = t.AddDate(0, int(iv.Months), int(iv.Days))
	t = t.Add(time.Duration(iv.Nanos))
	switch d.kind {
	case VKDate:
		return NewDate(t), nil
	case VKDateTime:
		return NewDateTime(t), nil
	case VKTimestamp:
		return NewTimestamp(t), nil
	default:
		return Value{}, NewError(ErrTypeMismatch, "%s does not support interval arithmetic", d.kind)
	}
}
