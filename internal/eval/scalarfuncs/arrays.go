package scalarfuncs

import (
	yachtsql "github.com/lychee-technology/yachtsql"
)

func registerArrayFuncs(r *Registry) {
	r.Register("ARRAY_LENGTH", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 1 {
			return yachtsql.Null, arityError("ARRAY_LENGTH", 1, len(args))
		}
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		return yachtsql.NewInt64(int64(len(args[0].Array()))), nil
	})
	r.Register("ARRAY_REVERSE", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		src := args[0].Array()
		out := make([]yachtsql.Value, len(src))
		for i, v := range src {
			out[len(src)-1-i] = v
		}
		return yachtsql.NewArray(args[0].ArrayElemType(), out), nil
	})
	r.Register("ARRAY_CONCAT", func(args []yachtsql.Value) (yachtsql.Value, error) {
		var out []yachtsql.Value
		var elem yachtsql.DataType
		for _, a := range args {
			if a.IsNull() {
				continue
			}
			elem = a.ArrayElemType()
			out = append(out, a.Array()...)
		}
		return yachtsql.NewArray(elem, out), nil
	})
	r.Register("OFFSET", func(args []yachtsql.Value) (yachtsql.Value, error) {
		return arrayIndex(args, false)
	})
	r.Register("SAFE_OFFSET", func(args []yachtsql.Value) (yachtsql.Value, error) {
		return arrayIndex(args, true)
	})
	r.Register("ORDINAL", func(args []yachtsql.Value) (yachtsql.Value, error) {
		return arrayOrdinal(args, false)
	})
	r.Register("SAFE_ORDINAL", func(args []yachtsql.Value) (yachtsql.Value, error) {
		return arrayOrdinal(args, true)
	})
	r.Register("GENERATE_ARRAY", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) < 2 {
			return yachtsql.Null, arityError("GENERATE_ARRAY", 2, len(args))
		}
		if anyNull(args) {
			return yachtsql.NewArray(yachtsql.Int64, nil), nil
		}
		start, end := args[0].Int64(), args[1].Int64()
		step := int64(1)
		if len(args) == 3 {
			step = args[2].Int64()
		}
		var out []yachtsql.Value
		if step > 0 {
			for v := start; v <= end; v += step {
				out = append(out, yachtsql.NewInt64(v))
			}
		} else if step < 0 {
			for v := start; v >= end; v += step {
				out = append(out, yachtsql.NewInt64(v))
			}
		}
		return yachtsql.NewArray(yachtsql.Int64, out), nil
	})
}

func arrayIndex(args []yachtsql.Value, safe bool) (yachtsql.Value, error) {
	if anyNull(args) {
		return yachtsql.Null, nil
	}
	arr := args[0].Array()
	idx := int(args[1].Int64())
	if idx < 0 || idx >= len(arr) {
		if safe {
			return yachtsql.Null, nil
		}
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrInvalidQuery, "OFFSET(%d) out of bounds for array of length %d", idx, len(arr))
	}
	return arr[idx], nil
}

func arrayOrdinal(args []yachtsql.Value, safe bool) (yachtsql.Value, error) {
	if anyNull(args) {
		return yachtsql.Null, nil
	}
	arr := args[0].Array()
	idx := int(args[1].Int64()) - 1
	if idx < 0 || idx >= len(arr) {
		if safe {
			return yachtsql.Null, nil
		}
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrInvalidQuery, "ORDINAL(%d) out of bounds for array of length %d", idx+1, len(arr))
	}
	return arr[idx], nil
}
