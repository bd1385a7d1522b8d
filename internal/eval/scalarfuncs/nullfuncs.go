package scalarfuncs

import (
	"math"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func registerNullFuncs(r *Registry) {
	r.Register("IFNULL", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("IFNULL", 2, len(args))
		}
		if !args[0].IsNull() {
			return args[0], nil
		}
		return args[1], nil
	})
	r.Register("COALESCE", func(args []yachtsql.Value) (yachtsql.Value, error) {
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return yachtsql.Null, nil
	})
	r.Register("NULLIF", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("NULLIF", 2, len(args))
		}
		if ok, valid := yachtsql.EqualSQL(args[0], args[1]); valid && ok {
			return yachtsql.Null, nil
		}
		return args[0], nil
	})
	r.Register("IF", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 3 {
			return yachtsql.Null, arityError("IF", 3, len(args))
		}
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		if args[0].Bool() {
			return args[1], nil
		}
		return args[2], nil
	})
	r.Register("IS_NAN", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		f := args[0].Float64()
		return yachtsql.NewBool(f != f), nil
	})
	r.Register("IS_INF", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		return yachtsql.NewBool(math.IsInf(args[0].Float64(), 0)), nil
	})
}
