package yachtsql

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// typeKindFromName resolves a BigQuery type name (as it appears in a CAST
// target) to a TypeKind, ignoring any ARRAY<...>/STRUCT<...> parametrization
// (those forms are resolved by the planner into a full DataType; CAST's
// scalar dispatch only needs the outer kind).
func typeKindFromName(name string) TypeKind {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(upper, '<'); i >= 0 {
		upper = upper[:i]
	}
	return TypeKind(upper)
}

// Cast converts v to the scalar type named typeName (spec §4.A CAST/SAFE_CAST
// semantics): NULL casts to NULL; numeric<->string follow BigQuery's textual
// conventions; FLOAT64 and NUMERIC values cast to INT64 truncate toward zero.
// An unsupported conversion or a string that does not parse returns an error
// (TypeMismatch, or Unsupported for the ARRAY/STRUCT/RANGE/JSON/GEOGRAPHY
// targets); SAFE_CAST in scalarfuncs.Registry converts it to NULL instead of
// propagating.
func Cast(v Value, typeName string) (Value, error) {
	kind := typeKindFromName(typeName)
	if v.IsNull() {
		return Null, nil
	}
	switch kind {
	case KindBool:
		return castToBool(v)
	case KindInt64:
		return castToInt64(v)
	case KindFloat64:
		switch v.Kind() {
		case VKString:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.String_()), 64)
			if err != nil {
				return Null, Wrap(ErrTypeMismatch, err, "cannot CAST %q to FLOAT64", v.String_())
			}
			return NewFloat64(f), nil
		case VKInt64, VKFloat64, VKNumeric, VKBigNumeric:
			return NewFloat64(toF64ForCast(v)), nil
		}
		return Null, NewError(ErrTypeMismatch, "cannot CAST %s to FLOAT64", v.Kind())
	case KindNumeric:
		d, err := toDecimalForCast(v)
		if err != nil {
			return Null, err
		}
		return NewNumeric(d), nil
	case KindBigNumeric:
		d, err := toDecimalForCast(v)
		if err != nil {
			return Null, err
		}
		return NewBigNumeric(d), nil
	case KindString:
		return NewString(renderValueAsString(v)), nil
	case KindBytes:
		if v.Kind() == VKString {
			return NewBytes([]byte(v.String_())), nil
		}
		if v.Kind() == VKBytes {
			return v, nil
		}
		return Null, NewError(ErrTypeMismatch, "cannot CAST %s to BYTES", v.Kind())
	case KindDate:
		t, err := parseOrPassTime(v, "2006-01-02")
		if err != nil {
			return Null, err
		}
		return NewDate(t), nil
	case KindTime:
		t, err := parseOrPassTime(v, "15:04:05")
		if err != nil {
			return Null, err
		}
		return NewTime(t), nil
	case KindDateTime:
		t, err := parseOrPassTime(v, "2006-01-02T15:04:05")
		if err != nil {
			return Null, err
		}
		return NewDateTime(t), nil
	case KindTimestamp:
		t, err := parseOrPassTime(v, time.RFC3339)
		if err != nil {
			return Null, err
		}
		return NewTimestamp(t), nil
	case KindArray, KindStruct, KindRange, KindJSON, KindGeography:
		if v.Kind() == ValueKind(kind) {
			return v, nil
		}
		return Null, NewError(ErrUnsupported, "CAST to %s requires a matching source value", kind)
	default:
		return Null, NewError(ErrTypeMismatch, "unknown CAST target type %q", typeName)
	}
}

func castToBool(v Value) (Value, error) {
	switch v.Kind() {
	case VKBool:
		return v, nil
	case VKString:
		b, err := strconv.ParseBool(strings.ToLower(v.String_()))
		if err != nil {
			return Null, Wrap(ErrTypeMismatch, err, "cannot CAST %q to BOOL", v.String_())
		}
		return NewBool(b), nil
	case VKInt64:
		return NewBool(v.Int64() != 0), nil
	default:
		return Null, NewError(ErrTypeMismatch, "cannot CAST %s to BOOL", v.Kind())
	}
}

func castToInt64(v Value) (Value, error) {
	switch v.Kind() {
	case VKInt64:
		return v, nil
	case VKFloat64:
		return NewInt64(int64(v.Float64())), nil
	case VKNumeric, VKBigNumeric:
		return NewInt64(int64(v.Numeric().Float64())), nil
	case VKBool:
		if v.Bool() {
			return NewInt64(1), nil
		}
		return NewInt64(0), nil
	case VKString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.String_()), 10, 64)
		if err != nil {
			return Null, Wrap(ErrTypeMismatch, err, "cannot CAST %q to INT64", v.String_())
		}
		return NewInt64(i), nil
	default:
		return Null, NewError(ErrTypeMismatch, "cannot CAST %s to INT64", v.Kind())
	}
}

func toF64ForCast(v Value) float64 {
	switch v.Kind() {
	case VKInt64:
		return float64(v.Int64())
	case VKFloat64:
		return v.Float64()
	case VKNumeric, VKBigNumeric:
		return v.Numeric().Float64()
	case VKString:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v.String_()), 64)
		return f
	default:
		return 0
	}
}

func toDecimalForCast(v Value) (Decimal, error) {
	switch v.Kind() {
	case VKNumeric, VKBigNumeric:
		return v.Numeric(), nil
	case VKInt64:
		return DecimalFromInt64(v.Int64()), nil
	case VKFloat64:
		return DecimalFromFloat64(v.Float64()), nil
	case VKString:
		d, err := DecimalFromString(strings.TrimSpace(v.String_()))
		if err != nil {
			return Decimal{}, Wrap(ErrTypeMismatch, err, "cannot CAST %q to NUMERIC", v.String_())
		}
		return d, nil
	default:
		return Decimal{}, NewError(ErrTypeMismatch, "cannot CAST %s to NUMERIC", v.Kind())
	}
}

func parseOrPassTime(v Value, layout string) (time.Time, error) {
	switch v.Kind() {
	case VKDate, VKTime, VKDateTime, VKTimestamp:
		return v.Time(), nil
	case VKString:
		t, err := time.Parse(layout, strings.TrimSpace(v.String_()))
		if err != nil {
			if t2, err2 := time.Parse(time.RFC3339, strings.TrimSpace(v.String_())); err2 == nil {
				return t2, nil
			}
			return time.Time{}, Wrap(ErrTypeMismatch, err, "cannot CAST %q using layout %q", v.String_(), layout)
		}
		return t, nil
	default:
		return time.Time{}, NewError(ErrTypeMismatch, "cannot CAST %s to a temporal type", v.Kind())
	}
}

// renderValueAsString implements CAST(... AS STRING) for the scalar kinds
// (spec §4.A textual conventions): booleans render as "true"/"false",
// floats use Go's shortest round-trip form, NUMERIC/BIGNUMERIC use their
// canonical decimal text, and temporal kinds use BigQuery's standard
// separators.
func renderValueAsString(v Value) string {
	switch v.Kind() {
	case VKBool:
		return strconv.FormatBool(v.Bool())
	case VKInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case VKFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case VKNumeric, VKBigNumeric:
		return v.Numeric().String()
	case VKString:
		return v.String_()
	case VKBytes:
		return v.String_()
	case VKDate:
		return v.Time().Format("2006-01-02")
	case VKTime:
		return v.Time().Format("15:04:05")
	case VKDateTime:
		return v.Time().Format("2006-01-02T15:04:05")
	case VKTimestamp:
		return v.Time().UTC().Format("2006-01-02 15:04:05 MST")
	case VKJSON, VKGeography:
		return v.String_()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToJSONText renders v as JSON text (spec §4.G TO_JSON_STRING), used by
// scalarfuncs' TO_JSON_STRING.
func ToJSONText(v Value) string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

func writeJSON(b *strings.Builder, v Value) {
	switch v.Kind() {
	case VKNull, VKDefault:
		b.WriteString("null")
	case VKBool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case VKInt64:
		b.WriteString(strconv.FormatInt(v.Int64(), 10))
	case VKFloat64:
		b.WriteString(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case VKNumeric, VKBigNumeric:
		b.WriteString(v.Numeric().String())
	case VKString, VKBytes, VKDate, VKTime, VKDateTime, VKTimestamp, VKGeography:
		b.WriteByte('"')
		b.WriteString(jsonEscape(renderValueAsString(v)))
		b.WriteByte('"')
	case VKJSON:
		b.WriteString(v.String_())
	case VKArray:
		b.WriteByte('[')
		for i, e := range v.Array() {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, e)
		}
		b.WriteByte(']')
	case VKStruct:
		s := v.Struct()
		b.WriteByte('{')
		for i, name := range s.Names {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(jsonEscape(name))
			b.WriteString(`":`)
			writeJSON(b, s.Values[i])
		}
		b.WriteByte('}')
	default:
		b.WriteString("null")
	}
}

func jsonEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
