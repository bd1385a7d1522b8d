package scalarfuncs

import (
	"strconv"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func registerConversionFuncs(r *Registry) {
	r.Register("CAST", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("CAST", 2, len(args))
		}
		return yachtsql.Cast(args[0], args[1].String_())
	})
	r.Register("SAFE_CAST", func(args []yachtsql.Value) (yachtsql.Value, error) {
		v, err := yachtsql.Cast(args[0], args[1].String_())
		if err != nil {
			return yachtsql.Null, nil
		}
		return v, nil
	})
	r.Register("TO_JSON_STRING", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.NewJSON("null"), nil
		}
		return yachtsql.NewJSON(yachtsql.ToJSONText(args[0])), nil
	})
	r.Register("PARSE_NUMERIC", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		d, err := yachtsql.DecimalFromString(args[0].String_())
		if err != nil {
			return yachtsql.Null, yachtsql.Wrap(yachtsql.ErrTypeMismatch, err, "PARSE_NUMERIC: invalid literal %q", args[0].String_())
		}
		return yachtsql.NewNumeric(d), nil
	})
	r.Register("SAFE_CONVERT_BYTES_TO_STRING", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		b := args[0].Bytes()
		for _, c := range b {
			if c == 0 {
				return yachtsql.Null, nil
			}
		}
		return yachtsql.NewString(string(b)), nil
	})
	r.Register("CAST_BOOL_AS_STRING", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		return yachtsql.NewString(strconv.FormatBool(args[0].Bool())), nil
	})
}
