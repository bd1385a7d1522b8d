package yachtsql

import (
	"fmt"
	"math"
	"time"
)

// ValueKind is the tag of the Value union (spec §3.1).
type ValueKind string

const (
	VKNull       ValueKind = "NULL"
	VKBool       ValueKind = "BOOL"
	VKInt64      ValueKind = "INT64"
	VKFloat64    ValueKind = "FLOAT64"
	VKNumeric    ValueKind = "NUMERIC"
	VKBigNumeric ValueKind = "BIGNUMERIC"
	VKString     ValueKind = "STRING"
	VKBytes      ValueKind = "BYTES"
	VKDate       ValueKind = "DATE"
	VKTime       ValueKind = "TIME"
	VKDateTime   ValueKind = "DATETIME"
	VKTimestamp  ValueKind = "TIMESTAMP"
	VKInterval   ValueKind = "INTERVAL"
	VKArray      ValueKind = "ARRAY"
	VKStruct     ValueKind = "STRUCT"
	VKJSON       ValueKind = "JSON"
	VKGeography  ValueKind = "GEOGRAPHY"
	VKRange      ValueKind = "RANGE"
	// VKDefault is the sentinel used for DEFAULT in INSERT/UPDATE expressions.
	VKDefault ValueKind = "DEFAULT"
)

// Interval represents a BigQuery INTERVAL value as three independent
// components, added to a DATE/DATETIME/TIMESTAMP in months→days→nanos order
// (spec §4.A).
type Interval struct {
	Months int32
	Days   int32
	Nanos  int64
}

// RangeBounds holds the bounds of a RANGE<T> value; either bound may be nil
// to represent UNBOUNDED.
type RangeBounds struct {
	Start *Value
	End   *Value
}

// StructValue is an ordered set of named fields (spec §3.1: "Struct (ordered
// named fields)").
type StructValue struct {
	Names  []string
	Values []Value
}

// Value is the tagged union described in spec §3.1.
type Value struct {
	kind ValueKind

	b   bool
	i   int64
	f   float64
	dec Decimal
	s   string // String, Bytes (raw), Json text, Geography WKT
	t   time.Time
	iv  Interval

	arr      []Value
	arrElem  DataType
	strct    *StructValue
	rng      *RangeBounds
	rngBound DataType
}

// Null is the canonical NULL value.
var Null = Value{kind: VKNull}

// Default is the sentinel DEFAULT value (INSERT/UPDATE "use column default").
var Default = Value{kind: VKDefault}

func NewBool(v bool) Value    { return Value{kind: VKBool, b: v} }
func NewInt64(v int64) Value  { return Value{kind: VKInt64, i: v} }

// NewFloat64 folds NaN to a single canonical representation (spec §3.1:
// "Float64 (total-ordered, NaN folded to canonical)").
func NewFloat64(v float64) Value {
	if math.IsNaN(v) {
		v = math.NaN() // canonical quiet NaN bit pattern
	}
	return Value{kind: VKFloat64, f: v}
}
func NewNumeric(d Decimal) Value    { return Value{kind: VKNumeric, dec: d} }
func NewBigNumeric(d Decimal) Value { return Value{kind: VKBigNumeric, dec: d} }
func NewString(v string) Value      { return Value{kind: VKString, s: v} }
func NewBytes(v []byte) Value       { return Value{kind: VKBytes, s: string(v)} }
func NewDate(t time.Time) Value     { return Value{kind: VKDate, t: t.Truncate(24 * time.Hour)} }
func NewTime(t time.Time) Value     { return Value{kind: VKTime, t: t} }
func NewDateTime(t time.Time) Value { return Value{kind: VKDateTime, t: t} }
func NewTimestamp(t time.Time) Value {
	return Value{kind: VKTimestamp, t: t.UTC()}
}
func NewInterval(iv Interval) Value { return Value{kind: VKInterval, iv: iv} }
func NewJSON(text string) Value     { return Value{kind: VKJSON, s: text} }
func NewGeography(wkt string) Value { return Value{kind: VKGeography, s: wkt} }

// NewArray builds an ARRAY value. elem is the declared element type (used
// when the array is empty, so its type is still known).
func NewArray(elem DataType, values []Value) Value {
	return Value{kind: VKArray, arr: values, arrElem: elem}
}

// NewStruct builds a STRUCT value from ordered field names/values.
func NewStruct(names []string, values []Value) Value {
	return Value{kind: VKStruct, strct: &StructValue{Names: names, Values: values}}
}

// NewRange builds a RANGE<bound> value.
func NewRange(bound DataType, start, end *Value) Value {
	return Value{kind: VKRange, rngBound: bound, rng: &RangeBounds{Start: start, End: end}}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == VKNull }
func (v Value) IsDefault() bool { return v.kind == VKDefault }

func (v Value) Bool() bool         { return v.b }
func (v Value) Int64() int64       { return v.i }
func (v Value) Float64() float64   { return v.f }
func (v Value) Numeric() Decimal   { return v.dec }
func (v Value) String_() string    { return v.s }
func (v Value) Bytes() []byte      { return []byte(v.s) }
func (v Value) Time() time.Time    { return v.t }
func (v Value) Interval() Interval { return v.iv }
func (v Value) Array() []Value     { return v.arr }
func (v Value) ArrayElemType() DataType { return v.arrElem }
func (v Value) Struct() *StructValue    { return v.strct }
func (v Value) Range() *RangeBounds     { return v.rng }
func (v Value) RangeBoundType() DataType { return v.rngBound }

// Type infers the DataType of v. For NULL, returns Unknown (callers that
// need a concrete type carry it alongside, e.g. via Field/Column).
func (v Value) Type() DataType {
	switch v.kind {
	case VKNull, VKDefault:
		return Unknown
	case VKBool:
		return Bool
	case VKInt64:
		return Int64
	case VKFloat64:
		return Float64
	case VKNumeric:
		return Numeric
	case VKBigNumeric:
		return BigNumeric
	case VKString:
		return String
	case VKBytes:
		return Bytes
	case VKDate:
		return Date
	case VKTime:
		return Time
	case VKDateTime:
		return DateTime
	case VKTimestamp:
		return Timestamp
	case VKInterval:
		return IntervalType
	case VKJSON:
		return JSON
	case VKGeography:
		return Geography
	case VKArray:
		return ArrayOf(v.arrElem)
	case VKStruct:
		fields := make([]StructField, len(v.strct.Names))
		for i, n := range v.strct.Names {
			t := Unknown
			if i < len(v.strct.Values) {
				t = v.strct.Values[i].Type()
			}
			fields[i] = StructField{Name: n, Type: t}
		}
		return StructOf(fields...)
	case VKRange:
		return RangeOf(v.rngBound)
	default:
		return Unknown
	}
}

func (v Value) GoString() string {
	if v.IsNull() {
		return "NULL"
	}
	switch v.kind {
	case VKBool:
		return fmt.Sprintf("%v", v.b)
	case VKInt64:
		return fmt.Sprintf("%d", v.i)
	case VKFloat64:
		return fmt.Sprintf("%v", v.f)
	case VKNumeric, VKBigNumeric:
		return v.dec.String()
	case VKString:
		return v.s
	case VKBytes:
		return fmt.Sprintf("%x", []byte(v.s))
	case VKDate:
		return v.t.Format("2006-01-02")
	case VKTime:
		return v.t.Format("15:04:05.999999")
	case VKDateTime:
		return v.t.Format("2006-01-02T15:04:05.999999")
	case VKTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case VKInterval:
		return fmt.Sprintf("%d-%d %d %d", v.iv.Months/12, v.iv.Months%12, v.iv.Days, v.iv.Nanos)
	case VKJSON:
		return v.s
	case VKGeography:
		return v.s
	case VKArray:
		out := "["
		for i, e := range v.arr {
			if i > 0 {
				out += ", "
			}
			out += e.GoString()
		}
		return out + "]"
	case VKStruct:
		out := "{"
		for i, n := range v.strct.Names {
			if i > 0 {
				out += ", "
			}
			out += n + ": " + v.strct.Values[i].GoString()
		}
		return out + "}"
	case VKRange:
		lo, hi := "UNBOUNDED", "UNBOUNDED"
		if v.rng.Start != nil {
			lo = v.rng.Start.GoString()
		}
		if v.rng.End != nil {
			hi = v.rng.End.GoString()
		}
		return fmt.Sprintf("[%s, %s)", lo, hi)
	default:
		return "DEFAULT"
	}
}
