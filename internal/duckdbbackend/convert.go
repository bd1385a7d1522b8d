package duckdbbackend

import (
	"fmt"
	"strings"
	"time"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// yachtTypeToDuckDB maps a YachtSQL DataType to the DuckDB SQL type string
// used in CREATE TABLE DDL, the same switch shape as the teacher's
// MapValueTypeToDuckDBType (internal/duckdb_type_mapper.go) generalized from
// forma.ValueType to yachtsql.DataType.
func yachtTypeToDuckDB(t yachtsql.DataType) string {
	switch t.Kind {
	case yachtsql.KindBool:
		return "BOOLEAN"
	case yachtsql.KindInt64:
		return "BIGINT"
	case yachtsql.KindFloat64:
		return "DOUBLE"
	case yachtsql.KindNumeric:
		return "DECIMAL(38,9)"
	case yachtsql.KindBigNumeric:
		return "DECIMAL(38,9)"
	case yachtsql.KindString, yachtsql.KindJSON, yachtsql.KindGeography:
		return "VARCHAR"
	case yachtsql.KindBytes:
		return "BLOB"
	case yachtsql.KindDate:
		return "DATE"
	case yachtsql.KindTime:
		return "TIME"
	case yachtsql.KindDateTime:
		return "TIMESTAMP"
	case yachtsql.KindTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "VARCHAR"
	}
}

// duckDBTypeToYacht is the reverse mapping, applied to the
// *sql.ColumnType.DatabaseTypeName() string the duckdb-go/v2 driver reports
// for a result column (spec-original: the teacher's type mapper never reads
// types back out of DuckDB, since forma only ever writes to it).
func duckDBTypeToYacht(dbType string) yachtsql.DataType {
	switch strings.ToUpper(dbType) {
	case "BOOLEAN":
		return yachtsql.Bool
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT", "UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT":
		return yachtsql.Int64
	case "FLOAT", "DOUBLE":
		return yachtsql.Float64
	case "DECIMAL":
		return yachtsql.Numeric
	case "DATE":
		return yachtsql.Date
	case "TIME":
		return yachtsql.Time
	case "TIMESTAMP":
		return yachtsql.DateTime
	case "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return yachtsql.Timestamp
	case "BLOB":
		return yachtsql.Bytes
	default:
		return yachtsql.String
	}
}

// createTableDDL renders a CREATE TABLE statement for schema.
func createTableDDL(name string, schema *yachtsql.Schema) (string, error) {
	if len(schema.Fields) == 0 {
		return "", fmt.Errorf("duckdbbackend: cannot create table %s with no columns", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (", quoteIdentifier(name))
	for i, f := range schema.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", quoteIdentifier(f.Name), yachtTypeToDuckDB(f.Type))
	}
	b.WriteString(")")
	return b.String(), nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// valueToDuckDBParam converts a Value to the Go type the duckdb-go/v2 driver
// expects as a bind parameter, the same per-kind switch federated.valueToSQL
// uses for lib/pq (Numeric/BigNumeric round-trip through their decimal
// string rather than a lossy float64, for the same reason: no third-party
// big-decimal wire type exists in the corpus for either driver).
func valueToDuckDBParam(v yachtsql.Value) any {
	if v.IsNull() || v.IsDefault() {
		return nil
	}
	switch v.Type().Kind {
	case yachtsql.KindBool:
		return v.Bool()
	case yachtsql.KindInt64:
		return v.Int64()
	case yachtsql.KindFloat64:
		return v.Float64()
	case yachtsql.KindNumeric, yachtsql.KindBigNumeric:
		return v.Numeric().String()
	case yachtsql.KindBytes:
		return v.Bytes()
	case yachtsql.KindDate, yachtsql.KindTime, yachtsql.KindDateTime, yachtsql.KindTimestamp:
		return v.Time()
	default:
		return v.String_()
	}
}

// duckDBValueToYacht converts a value scanned back out of a *sql.Rows into a
// Value of the given declared type.
func duckDBValueToYacht(raw any, t yachtsql.DataType) yachtsql.Value {
	if raw == nil {
		return yachtsql.Null
	}
	switch t.Kind {
	case yachtsql.KindBool:
		if b, ok := raw.(bool); ok {
			return yachtsql.NewBool(b)
		}
	case yachtsql.KindInt64:
		switch n := raw.(type) {
		case int64:
			return yachtsql.NewInt64(n)
		case int32:
			return yachtsql.NewInt64(int64(n))
		}
	case yachtsql.KindFloat64:
		switch n := raw.(type) {
		case float64:
			return yachtsql.NewFloat64(n)
		case float32:
			return yachtsql.NewFloat64(float64(n))
		}
	case yachtsql.KindNumeric, yachtsql.KindBigNumeric:
		switch n := raw.(type) {
		case string:
			if d, err := yachtsql.DecimalFromString(n); err == nil {
				return yachtsql.NewNumeric(d)
			}
		case float64:
			return yachtsql.NewNumeric(yachtsql.DecimalFromFloat64(n))
		}
	case yachtsql.KindDate:
		if tm, ok := raw.(time.Time); ok {
			return yachtsql.NewDate(tm)
		}
	case yachtsql.KindTime:
		if tm, ok := raw.(time.Time); ok {
			return yachtsql.NewTime(tm)
		}
	case yachtsql.KindDateTime:
		if tm, ok := raw.(time.Time); ok {
			return yachtsql.NewDateTime(tm)
		}
	case yachtsql.KindTimestamp:
		if tm, ok := raw.(time.Time); ok {
			return yachtsql.NewTimestamp(tm)
		}
	case yachtsql.KindBytes:
		switch b := raw.(type) {
		case []byte:
			return yachtsql.NewBytes(b)
		case string:
			return yachtsql.NewBytes([]byte(b))
		}
	}
	return yachtsql.NewString(fmt.Sprint(raw))
}
