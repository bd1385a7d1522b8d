package yachtsql

import (
	"math/big"
	"strconv"
	"strings"
)

// Decimal is a fixed-precision decimal backed by an arbitrary-precision
// integer mantissa and a scale (value == unscaled / 10^scale). It backs both
// NUMERIC and BIGNUMERIC; BIGNUMERIC differs only in the precision the DDL
// layer permits, not in the arithmetic performed here.
//
// No arbitrary-precision decimal library appears anywhere in the reference
// corpus (see DESIGN.md), so this is deliberately built on math/big rather
// than a third-party package.
type Decimal struct {
	unscaled *big.Int
	scale    int32
}

// defaultDecimalScale is the scale DIV and ROUND-free results normalize to,
// matching BigQuery NUMERIC's 9-digit fractional precision.
const defaultDecimalScale = 9

var bigTen = big.NewInt(10)

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

// DecimalFromInt64 builds an exact integer Decimal.
func DecimalFromInt64(i int64) Decimal {
	return Decimal{unscaled: big.NewInt(i), scale: 0}
}

// DecimalFromFloat64 builds a Decimal from a float64 via its shortest
// round-trip decimal text form, avoiding binary-fraction artifacts.
func DecimalFromFloat64(f float64) Decimal {
	d, _ := DecimalFromString(strconv.FormatFloat(f, 'f', -1, 64))
	return d
}

// DecimalFromString parses a base-10 decimal literal such as "123.456" or
// "-0.5".
func DecimalFromString(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	digits := intPart + fracPart
	if digits == "" {
		return Decimal{}, NewError(ErrInvalidQuery, "invalid decimal literal: %q", s)
	}
	u, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, NewError(ErrInvalidQuery, "invalid decimal literal: %q", s)
	}
	if neg {
		u.Neg(u)
	}
	return Decimal{unscaled: u, scale: int32(len(fracPart))}, nil
}

func (d Decimal) rescale(scale int32) Decimal {
	if d.unscaled == nil {
		d.unscaled = big.NewInt(0)
	}
	if scale == d.scale {
		return d
	}
	if scale > d.scale {
		u := new(big.Int).Mul(d.unscaled, pow10(scale-d.scale))
		return Decimal{unscaled: u, scale: scale}
	}
	u := new(big.Int).Quo(d.unscaled, pow10(d.scale-scale))
	return Decimal{unscaled: u, scale: scale}
}

func commonScale(a, b Decimal) int32 {
	if a.scale > b.scale {
		return a.scale
	}
	return b.scale
}

// Add returns a + b, exact (scale = max of the two input scales).
func (a Decimal) Add(b Decimal) Decimal {
	s := commonScale(a, b)
	ar, br := a.rescale(s), b.rescale(s)
	return Decimal{unscaled: new(big.Int).Add(ar.unscaled, br.unscaled), scale: s}
}

// Sub returns a - b.
func (a Decimal) Sub(b Decimal) Decimal {
	return a.Add(b.Neg())
}

// Neg returns -a.
func (a Decimal) Neg() Decimal {
	return Decimal{unscaled: new(big.Int).Neg(a.unscaled), scale: a.scale}
}

// Mul returns a * b, exact (scale = sum of input scales).
func (a Decimal) Mul(b Decimal) Decimal {
	return Decimal{unscaled: new(big.Int).Mul(a.unscaled, b.unscaled), scale: a.scale + b.scale}
}

// Div returns a / b truncated toward zero to defaultDecimalScale fractional
// digits.
// Returns an error (DivisionByZero) when b is zero; callers implementing
// SAFE_DIVIDE convert that into Null.
func (a Decimal) Div(b Decimal) (Decimal, error) {
	if b.unscaled.Sign() == 0 {
		return Decimal{}, NewError(ErrDivisionByZero, "division by zero")
	}
	targetScale := commonScale(a, b) + defaultDecimalScale
	numerator := new(big.Int).Mul(a.unscaled, pow10(targetScale-a.scale+b.scale))
	q := new(big.Int).Quo(numerator, b.unscaled)
	return Decimal{unscaled: q, scale: targetScale}.rescale(defaultDecimalScale), nil
}

// Mod returns a % b (truncated, sign of the dividend), error on zero divisor.
func (a Decimal) Mod(b Decimal) (Decimal, error) {
	if b.unscaled.Sign() == 0 {
		return Decimal{}, NewError(ErrDivisionByZero, "division by zero")
	}
	s := commonScale(a, b)
	ar, br := a.rescale(s), b.rescale(s)
	return Decimal{unscaled: new(big.Int).Rem(ar.unscaled, br.unscaled), scale: s}, nil
}

// Cmp returns -1, 0, 1 comparing a and b numerically regardless of scale.
func (a Decimal) Cmp(b Decimal) int {
	s := commonScale(a, b)
	return a.rescale(s).unscaled.Cmp(b.rescale(s).unscaled)
}

// IsZero reports whether the decimal is exactly zero.
func (a Decimal) IsZero() bool {
	return a.unscaled == nil || a.unscaled.Sign() == 0
}

// Sign returns -1, 0, or 1.
func (a Decimal) Sign() int {
	if a.unscaled == nil {
		return 0
	}
	return a.unscaled.Sign()
}

// Float64 converts to a float64 (lossy for high precision values).
func (a Decimal) Float64() float64 {
	f := new(big.Float).SetInt(a.unscaled)
	f.Quo(f, new(big.Float).SetInt(pow10(a.scale)))
	out, _ := f.Float64()
	return out
}

// String renders the canonical decimal text form, trimming trailing zeros
// (but keeping at least "0" for the integer part).
func (a Decimal) String() string {
	if a.unscaled == nil {
		return "0"
	}
	neg := a.unscaled.Sign() < 0
	digits := new(big.Int).Abs(a.unscaled).String()
	if a.scale <= 0 {
		if neg {
			return "-" + digits + strings.Repeat("0", int(-a.scale))
		}
		return digits + strings.Repeat("0", int(-a.scale))
	}
	for int32(len(digits)) <= a.scale {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-int(a.scale)]
	fracPart := digits[len(digits)-int(a.scale):]
	fracPart = strings.TrimRight(fracPart, "0")
	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// CanonicalString renders a string suitable as a hash-key payload: fixed
// scale, no trimming, so that two Decimals comparing equal hash equal
// (spec §4.F HashKey: "for Numeric, use the decimal's canonical string").
func (a Decimal) CanonicalString() string {
	return a.rescale(defaultDecimalScale).unscaled.String()
}
