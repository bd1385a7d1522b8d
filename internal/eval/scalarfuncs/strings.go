package scalarfuncs

import (
	"strings"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func registerStringFuncs(r *Registry) {
	r.Register("CONCAT", func(args []yachtsql.Value) (yachtsql.Value, error) {
		var b strings.Builder
		for _, a := range args {
			if a.IsNull() {
				return yachtsql.Null, nil
			}
			b.WriteString(a.String_())
		}
		return yachtsql.NewString(b.String()), nil
	})
	r.Register("LENGTH", unaryString("LENGTH", func(s string) (yachtsql.Value, error) {
		return yachtsql.NewInt64(int64(len([]rune(s)))), nil
	}))
	r.Register("UPPER", unaryString("UPPER", func(s string) (yachtsql.Value, error) {
		return yachtsql.NewString(strings.ToUpper(s)), nil
	}))
	r.Register("LOWER", unaryString("LOWER", func(s string) (yachtsql.Value, error) {
		return yachtsql.NewString(strings.ToLower(s)), nil
	}))
	r.Register("TRIM", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		if len(args) == 1 {
			return yachtsql.NewString(strings.TrimSpace(args[0].String_())), nil
		}
		if len(args) == 2 {
			return yachtsql.NewString(strings.Trim(args[0].String_(), args[1].String_())), nil
		}
		return yachtsql.Null, arityError("TRIM", 1, len(args))
	})
	r.Register("LTRIM", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		if len(args) == 1 {
			return yachtsql.NewString(strings.TrimLeft(args[0].String_(), " \t\n\r")), nil
		}
		return yachtsql.NewString(strings.TrimLeft(args[0].String_(), args[1].String_())), nil
	})
	r.Register("RTRIM", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		if len(args) == 1 {
			return yachtsql.NewString(strings.TrimRight(args[0].String_(), " \t\n\r")), nil
		}
		return yachtsql.NewString(strings.TrimRight(args[0].String_(), args[1].String_())), nil
	})
	r.Register("SUBSTR", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		runes := []rune(args[0].String_())
		pos := int(args[1].Int64())
		start := substrStart(pos, len(runes))
		length := len(runes) - start
		if len(args) == 3 {
			length = int(args[2].Int64())
			if length < 0 {
				length = 0
			}
		}
		end := start + length
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			return yachtsql.NewString(""), nil
		}
		return yachtsql.NewString(string(runes[start:end])), nil
	})
	r.Register("SPLIT", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.NewArray(yachtsql.String, nil), nil
		}
		sep := ","
		if len(args) == 2 {
			sep = args[1].String_()
		}
		var parts []string
		if sep == "" {
			parts = []string{args[0].String_()}
		} else {
			parts = strings.Split(args[0].String_(), sep)
		}
		out := make([]yachtsql.Value, len(parts))
		for i, p := range parts {
			out[i] = yachtsql.NewString(p)
		}
		return yachtsql.NewArray(yachtsql.String, out), nil
	})
	r.Register("REPLACE", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 3 {
			return yachtsql.Null, arityError("REPLACE", 3, len(args))
		}
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		return yachtsql.NewString(strings.ReplaceAll(args[0].String_(), args[1].String_(), args[2].String_())), nil
	})
	r.Register("STRPOS", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		idx := strings.Index(args[0].String_(), args[1].String_())
		if idx < 0 {
			return yachtsql.NewInt64(0), nil
		}
		return yachtsql.NewInt64(int64(len([]rune(args[0].String_()[:idx])) + 1)), nil
	})
	r.Register("STARTS_WITH", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		return yachtsql.NewBool(strings.HasPrefix(args[0].String_(), args[1].String_())), nil
	})
	r.Register("ENDS_WITH", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		return yachtsql.NewBool(strings.HasSuffix(args[0].String_(), args[1].String_())), nil
	})
	r.Register("REPEAT", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		n := int(args[1].Int64())
		if n < 0 {
			n = 0
		}
		return yachtsql.NewString(strings.Repeat(args[0].String_(), n)), nil
	})
	r.Register("REVERSE", unaryString("REVERSE", func(s string) (yachtsql.Value, error) {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return yachtsql.NewString(string(runes)), nil
	}))
	r.Register("LPAD", padFunc(true))
	r.Register("RPAD", padFunc(false))
	r.Register("ARRAY_TO_STRING", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() || args[1].IsNull() {
			return yachtsql.Null, nil
		}
		var parts []string
		for _, v := range args[0].Array() {
			if v.IsNull() {
				if len(args) == 3 {
					parts = append(parts, args[2].String_())
				}
				continue
			}
			parts = append(parts, v.String_())
		}
		return yachtsql.NewString(strings.Join(parts, args[1].String_())), nil
	})
}

func unaryString(name string, f func(string) (yachtsql.Value, error)) Handler {
	return func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 1 {
			return yachtsql.Null, arityError(name, 1, len(args))
		}
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		return f(args[0].String_())
	}
}

func substrStart(pos, length int) int {
	if pos > 0 {
		if pos-1 > length {
			return length
		}
		return pos - 1
	}
	if pos == 0 {
		return 0
	}
	start := length + pos
	if start < 0 {
		return 0
	}
	return start
}

func padFunc(left bool) Handler {
	return func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		s := []rune(args[0].String_())
		targetLen := int(args[1].Int64())
		pad := " "
		if len(args) == 3 {
			pad = args[2].String_()
		}
		if targetLen <= len(s) {
			if left {
				return yachtsql.NewString(string(s[len(s)-targetLen:])), nil
			}
			return yachtsql.NewString(string(s[:targetLen])), nil
		}
		if pad == "" {
			return yachtsql.NewString(string(s)), nil
		}
		padRunes := []rune(pad)
		need := targetLen - len(s)
		var b strings.Builder
		for b.Len() < need*4 && len([]rune(b.String())) < need {
			b.WriteString(string(padRunes))
		}
		padding := []rune(b.String())[:need]
		if left {
			return yachtsql.NewString(string(padding) + string(s)), nil
		}
		return yachtsql.NewString(string(s) + string(padding)), nil
	}
}
