package yachtsql

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// arrowAllocator is the shared pool every Table<->Arrow conversion builds
// against; the engine never pins memory across calls, so one package-level
// Go allocator is enough (no pool sizing/configuration to expose).
var arrowAllocator = memory.NewGoAllocator()

// arrowDataType maps a DataType to its Arrow counterpart (spec §6: "a second
// facade returns result batches in a common columnar interchange format
// compatible with the ambient query ecosystem"). NUMERIC/BIGNUMERIC/JSON/
// GEOGRAPHY travel as their canonical text form - no decimal/geometry Arrow
// extension type appears anywhere in the reference corpus to ground a richer
// mapping on (DESIGN.md records this).
func arrowDataType(t DataType) arrow.DataType {
	switch t.Kind {
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindNumeric, KindBigNumeric, KindJSON, KindGeography, KindUnknown:
		return arrow.BinaryTypes.String
	case KindString:
		return arrow.BinaryTypes.String
	case KindBytes:
		return arrow.BinaryTypes.Binary
	case KindDate:
		return arrow.FixedWidthTypes.Date32
	case KindTime:
		return arrow.FixedWidthTypes.Time64us
	case KindDateTime:
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case KindTimestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	case KindInterval:
		return arrow.FixedWidthTypes.MonthDayNanoInterval
	case KindArray:
		elem := Unknown
		if t.Element != nil {
			elem = *t.Element
		}
		return arrow.ListOf(arrowDataType(elem))
	case KindStruct:
		fields := make([]arrow.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = arrow.Field{Name: f.Name, Type: arrowDataType(f.Type), Nullable: true}
		}
		return arrow.StructOf(fields...)
	case KindRange:
		bound := Unknown
		if t.Element != nil {
			bound = *t.Element
		}
		return arrow.StructOf(
			arrow.Field{Name: "start", Type: arrowDataType(bound), Nullable: true},
			arrow.Field{Name: "end", Type: arrowDataType(bound), Nullable: true},
		)
	default:
		return arrow.BinaryTypes.String
	}
}

// arrowDataTypeToYacht is arrowDataType's inverse, used by FromArrowRecord
// to recover a Schema for a Record built outside this engine.
func arrowDataTypeToYacht(t arrow.DataType) DataType {
	switch dt := t.(type) {
	case *arrow.BooleanType:
		return Bool
	case *arrow.Int64Type:
		return Int64
	case *arrow.Float64Type:
		return Float64
	case *arrow.StringType:
		return String
	case *arrow.BinaryType:
		return Bytes
	case *arrow.Date32Type:
		return Date
	case *arrow.Time64Type:
		return Time
	case *arrow.TimestampType:
		if dt.TimeZone != "" {
			return Timestamp
		}
		return DateTime
	case *arrow.MonthDayNanoIntervalType:
		return IntervalType
	case *arrow.ListType:
		elem := arrowDataTypeToYacht(dt.Elem())
		return ArrayOf(elem)
	case *arrow.StructType:
		fields := make([]StructField, dt.NumFields())
		for i := 0; i < dt.NumFields(); i++ {
			f := dt.Field(i)
			fields[i] = StructField{Name: f.Name, Type: arrowDataTypeToYacht(f.Type)}
		}
		return StructOf(fields...)
	default:
		return Unknown
	}
}

// ToArrowRecord renders t as an arrow.Record sharing t's field names, for a
// caller that wants to hand query results to the ambient Arrow/DataFusion
// ecosystem (spec §6/§9) instead of walking Table/Column directly. The
// caller owns the returned Record and must call Release() on it.
func (t *Table) ToArrowRecord() arrow.Record {
	fields := make([]arrow.Field, len(t.Schema.Fields))
	for i, f := range t.Schema.Fields {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowDataType(f.Type), Nullable: f.Mode != ModeRequired}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(arrowAllocator, schema)
	defer builder.Release()

	for i, col := range t.Columns {
		fieldBuilder := builder.Field(i)
		for row := 0; row < col.Len(); row++ {
			appendValueToBuilder(fieldBuilder, col.Get(row), col.Field.Type)
		}
	}
	return builder.NewRecord()
}

// appendValueToBuilder appends v (NULL-aware) to builder, dispatching on
// declared DataType rather than builder's dynamic type so ARRAY/STRUCT
// recurse through the same helper for their element/field builders.
func appendValueToBuilder(builder array.Builder, v Value, declared DataType) {
	if v.IsNull() {
		builder.AppendNull()
		return
	}
	switch declared.Kind {
	case KindBool:
		builder.(*array.BooleanBuilder).Append(v.Bool())
	case KindInt64:
		builder.(*array.Int64Builder).Append(v.Int64())
	case KindFloat64:
		builder.(*array.Float64Builder).Append(v.Float64())
	case KindNumeric, KindBigNumeric:
		builder.(*array.StringBuilder).Append(v.Numeric().String())
	case KindString, KindJSON, KindGeography, KindUnknown:
		builder.(*array.StringBuilder).Append(v.String_())
	case KindBytes:
		builder.(*array.BinaryBuilder).Append(v.Bytes())
	case KindDate:
		builder.(*array.Date32Builder).Append(arrow.Date32FromTime(v.Time()))
	case KindTime:
		t := v.Time()
		nanosSinceMidnight := t.Sub(t.Truncate(24 * time.Hour))
		builder.(*array.Time64Builder).Append(arrow.Time64(nanosSinceMidnight.Microseconds()))
	case KindDateTime, KindTimestamp:
		ts, _ := arrow.TimestampFromTime(v.Time(), arrow.Microsecond)
		builder.(*array.TimestampBuilder).Append(ts)
	case KindInterval:
		iv := v.Interval()
		builder.(*array.MonthDayNanoIntervalBuilder).Append(arrow.MonthDayNanoInterval{
			Months: iv.Months, Days: iv.Days, Nanoseconds: iv.Nanos,
		})
	case KindArray:
		lb := builder.(*array.ListBuilder)
		lb.Append(true)
		elemBuilder := lb.ValueBuilder()
		elemType := Unknown
		if declared.Element != nil {
			elemType = *declared.Element
		}
		for _, elem := range v.Array() {
			appendValueToBuilder(elemBuilder, elem, elemType)
		}
	case KindStruct:
		sb := builder.(*array.StructBuilder)
		sb.Append(true)
		sv := v.Struct()
		for i, fv := range sv.Values {
			fieldType := Unknown
			if i < len(declared.Fields) {
				fieldType = declared.Fields[i].Type
			}
			appendValueToBuilder(sb.FieldBuilder(i), fv, fieldType)
		}
	case KindRange:
		sb := builder.(*array.StructBuilder)
		sb.Append(true)
		bound := Unknown
		if declared.Element != nil {
			bound = *declared.Element
		}
		rng := v.Range()
		appendRangeBound(sb.FieldBuilder(0), rng.Start, bound)
		appendRangeBound(sb.FieldBuilder(1), rng.End, bound)
	default:
		builder.(*array.StringBuilder).Append(v.GoString())
	}
}

// appendRangeBound appends one UNBOUNDED-or-not RANGE endpoint.
func appendRangeBound(builder array.Builder, bound *Value, boundType DataType) {
	if bound == nil {
		builder.AppendNull()
		return
	}
	appendValueToBuilder(builder, *bound, boundType)
}

// FromArrowRecord rebuilds a Table from rec, recovering each field's
// DataType from its Arrow type (spec §6's columnar-interchange facade is
// two-way: a host can hand the engine Arrow batches it produced itself via
// ToArrowRecord, e.g. after a round trip through the optional DuckDB back
// end of internal/duckdbbackend).
func FromArrowRecord(rec arrow.Record) *Table {
	schema := rec.Schema()
	fields := make([]Field, schema.NumFields())
	for i, f := range schema.Fields() {
		fields[i] = Field{Name: f.Name, Type: arrowDataTypeToYacht(f.Type), Mode: modeFromNullable(f.Nullable)}
	}
	out := NewTable(NewSchema(fields...))
	for i := 0; i < int(rec.NumCols()); i++ {
		col := rec.Column(i)
		for row := 0; row < col.Len(); row++ {
			out.Columns[i].Append(valueFromArrowArray(col, row, fields[i].Type))
		}
	}
	return out
}

func modeFromNullable(nullable bool) Mode {
	if nullable {
		return ModeNullable
	}
	return ModeRequired
}

// valueFromArrowArray reads row i out of arr as a Value typed declared.
func valueFromArrowArray(arr arrow.Array, i int, declared DataType) Value {
	if arr.IsNull(i) {
		return Null
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return NewBool(a.Value(i))
	case *array.Int64:
		return NewInt64(a.Value(i))
	case *array.Float64:
		return NewFloat64(a.Value(i))
	case *array.String:
		switch declared.Kind {
		case KindNumeric:
			d, _ := DecimalFromString(a.Value(i))
			return NewNumeric(d)
		case KindBigNumeric:
			d, _ := DecimalFromString(a.Value(i))
			return NewBigNumeric(d)
		case KindJSON:
			return NewJSON(a.Value(i))
		case KindGeography:
			return NewGeography(a.Value(i))
		default:
			return NewString(a.Value(i))
		}
	case *array.Binary:
		return NewBytes(a.Value(i))
	case *array.Date32:
		return NewDate(a.Value(i).ToTime())
	case *array.Time64:
		return NewTime(a.Value(i).ToTime(arrow.Microsecond))
	case *array.Timestamp:
		t := a.Value(i).ToTime(arrow.Microsecond)
		if declared.Kind == KindTimestamp {
			return NewTimestamp(t)
		}
		return NewDateTime(t)
	case *array.MonthDayNanoInterval:
		iv := a.Value(i)
		return NewInterval(Interval{Months: iv.Months, Days: iv.Days, Nanos: iv.Nanoseconds})
	case *array.List:
		elemType := Unknown
		if declared.Element != nil {
			elemType = *declared.Element
		}
		values := a.ListValues()
		start, end := a.ValueOffsets(i)
		elems := make([]Value, 0, int(end-start))
		for j := start; j < end; j++ {
			elems = append(elems, valueFromArrowArray(values, int(j), elemType))
		}
		return NewArray(elemType, elems)
	case *array.Struct:
		if declared.Kind == KindRange {
			bound := Unknown
			if declared.Element != nil {
				bound = *declared.Element
			}
			var start, end *Value
			if !a.Field(0).IsNull(i) {
				v := valueFromArrowArray(a.Field(0), i, bound)
				start = &v
			}
			if !a.Field(1).IsNull(i) {
				v := valueFromArrowArray(a.Field(1), i, bound)
				end = &v
			}
			return NewRange(bound, start, end)
		}
		names := make([]string, len(declared.Fields))
		values := make([]Value, len(declared.Fields))
		for j, f := range declared.Fields {
			names[j] = f.Name
			values[j] = valueFromArrowArray(a.Field(j), i, f.Type)
		}
		return NewStruct(names, values)
	default:
		return Null
	}
}
