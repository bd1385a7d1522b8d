package scalarfuncs

import (
	"math"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func registerMathFuncs(r *Registry) {
	r.Register("ABS", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 1 {
			return yachtsql.Null, arityError("ABS", 1, len(args))
		}
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		switch args[0].Kind() {
		case yachtsql.VKInt64:
			v := args[0].Int64()
			if v < 0 {
				v = -v
			}
			return yachtsql.NewInt64(v), nil
		case yachtsql.VKFloat64:
			return yachtsql.NewFloat64(math.Abs(args[0].Float64())), nil
		case yachtsql.VKNumeric:
			return yachtsql.NewNumeric(absDecimal(args[0].Numeric())), nil
		case yachtsql.VKBigNumeric:
			return yachtsql.NewBigNumeric(absDecimal(args[0].Numeric())), nil
		default:
			return yachtsql.Null, yachtsql.NewError(yachtsql.ErrTypeMismatch, "ABS: unsupported type %s", args[0].Kind())
		}
	})
	r.Register("SIGN", unaryFloat("SIGN", func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return 0
		}
	}))
	r.Register("SQRT", unaryFloat("SQRT", math.Sqrt))
	r.Register("POW", binaryFloat("POW", math.Pow))
	r.Register("POWER", binaryFloat("POWER", math.Pow))
	r.Register("EXP", unaryFloat("EXP", math.Exp))
	r.Register("LN", unaryFloat("LN", math.Log))
	r.Register("LOG10", unaryFloat("LOG10", math.Log10))
	r.Register("LOG", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		x := toF64(args[0])
		if len(args) == 1 {
			return yachtsql.NewFloat64(math.Log(x)), nil
		}
		base := toF64(args[1])
		return yachtsql.NewFloat64(math.Log(x) / math.Log(base)), nil
	})
	r.Register("SIN", unaryFloat("SIN", math.Sin))
	r.Register("COS", unaryFloat("COS", math.Cos))
	r.Register("TAN", unaryFloat("TAN", math.Tan))
	r.Register("CEIL", unaryFloat("CEIL", math.Ceil))
	r.Register("CEILING", unaryFloat("CEILING", math.Ceil))
	r.Register("FLOOR", unaryFloat("FLOOR", math.Floor))
	r.Register("ROUND", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		x := toF64(args[0])
		if len(args) == 1 {
			return yachtsql.NewFloat64(math.Round(x)), nil
		}
		digits := int(args[1].Int64())
		mult := math.Pow(10, float64(digits))
		return yachtsql.NewFloat64(math.Round(x*mult) / mult), nil
	})
	r.Register("TRUNC", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		x := toF64(args[0])
		if len(args) == 1 {
			return yachtsql.NewFloat64(math.Trunc(x)), nil
		}
		digits := int(args[1].Int64())
		mult := math.Pow(10, float64(digits))
		return yachtsql.NewFloat64(math.Trunc(x*mult) / mult), nil
	})
	r.Register("GREATEST", extremeFunc(func(a, b yachtsql.Value) bool { return yachtsql.Compare(a, b) > 0 }))
	r.Register("LEAST", extremeFunc(func(a, b yachtsql.Value) bool { return yachtsql.Compare(a, b) < 0 }))
	r.Register("MOD", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("MOD", 2, len(args))
		}
		return yachtsql.Mod(args[0], args[1])
	})
	r.Register("DIV", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("DIV", 2, len(args))
		}
		return yachtsql.Div(args[0], args[1])
	})
}

func unaryFloat(name string, f func(float64) float64) Handler {
	return func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 1 {
			return yachtsql.Null, arityError(name, 1, len(args))
		}
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		return yachtsql.NewFloat64(f(toF64(args[0]))), nil
	}
}

func binaryFloat(name string, f func(a, b float64) float64) Handler {
	return func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError(name, 2, len(args))
		}
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		return yachtsql.NewFloat64(f(toF64(args[0]), toF64(args[1]))), nil
	}
}

func toF64(v yachtsql.Value) float64 {
	switch v.Kind() {
	case yachtsql.VKInt64:
		return float64(v.Int64())
	case yachtsql.VKFloat64:
		return v.Float64()
	case yachtsql.VKNumeric, yachtsql.VKBigNumeric:
		return v.Numeric().Float64()
	default:
		return 0
	}
}

func absDecimal(d yachtsql.Decimal) yachtsql.Decimal {
	if d.Sign() < 0 {
		return d.Neg()
	}
	return d
}

func extremeFunc(better func(a, b yachtsql.Value) bool) Handler {
	return func(args []yachtsql.Value) (yachtsql.Value, error) {
		var best yachtsql.Value
		found := false
		for _, a := range args {
			if a.IsNull() {
				return yachtsql.Null, nil
			}
			if !found || better(a, best) {
				best = a
				found = true
			}
		}
		if !found {
			return yachtsql.Null, nil
		}
		return best, nil
	}
}
