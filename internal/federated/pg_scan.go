// Package federated implements the adapters behind YachtSQL's federated
// query surface: EXTERNAL_QUERY(...) scans a live Postgres connection into a
// Table (pg_scan.go), and EXPORT DATA can sink a Table's rows back into one
// (pg_sink.go). Both are optional collaborators reached only when a query
// explicitly names them; the core engine never dials out on its own.
package federated

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// Querier is the subset of *pgxpool.Pool a federated scan needs, so unit
// tests can swap in pgxmock.Pool without pulling in a live connection.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source is a connection to an external Postgres database that EXTERNAL_QUERY
// reads from.
type Source struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Connect dials dsn and verifies it is reachable. The caller must Close the
// returned Source when done.
func Connect(ctx context.Context, dsn string, log *zap.Logger) (*Source, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("federated: connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("federated: ping postgres: %w", err)
	}
	return &Source{pool: pool, log: log}, nil
}

// Close releases the underlying connection pool.
func (s *Source) Close() { s.pool.Close() }

// Scan runs query against the federated connection, materializing the
// complete result as a Table (EXTERNAL_QUERY's row-at-a-time remote cursor is
// not exposed: like every other TableScan in this engine, the federated scan
// is fully materialized before the plan sees it).
func (s *Source) Scan(ctx context.Context, query string, args ...any) (*yachtsql.Table, error) {
	return scanWith(ctx, s.pool, query, args...)
}

func scanWith(ctx context.Context, q Querier, query string, args ...any) (*yachtsql.Table, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("federated: query: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	fields := make([]yachtsql.Field, len(descs))
	for i, d := range descs {
		fields[i] = yachtsql.Field{Name: d.Name, Type: pgOIDToDataType(d.DataTypeOID), Mode: yachtsql.ModeNullable}
	}
	table := yachtsql.NewTable(yachtsql.NewSchema(fields...))

	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("federated: scan row: %w", err)
		}
		values := make([]yachtsql.Value, len(raw))
		for i, v := range raw {
			values[i] = pgValueToYacht(v)
		}
		table.PushRow(values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("federated: iterate rows: %w", err)
	}
	return table, nil
}

// pgOIDToDataType maps the common scalar Postgres OIDs to a DataType. An
// unrecognized OID (arrays, enums, domains, composite types) falls back to
// String, matching how the query result would print via psql.
func pgOIDToDataType(oid uint32) yachtsql.DataType {
	switch oid {
	case pgtype.BoolOID:
		return yachtsql.Bool
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return yachtsql.Int64
	case pgtype.Float4OID, pgtype.Float8OID:
		return yachtsql.Float64
	case pgtype.NumericOID:
		return yachtsql.Numeric
	case pgtype.DateOID:
		return yachtsql.Date
	case pgtype.TimeOID:
		return yachtsql.Time
	case pgtype.TimestampOID:
		return yachtsql.DateTime
	case pgtype.TimestamptzOID:
		return yachtsql.Timestamp
	case pgtype.ByteaOID:
		return yachtsql.Bytes
	case pgtype.JSONOID, pgtype.JSONBOID:
		return yachtsql.JSON
	case pgtype.UUIDOID:
		return yachtsql.String
	default:
		return yachtsql.String
	}
}

// pgValueToYacht converts a value pgx has already decoded to a Go type (via
// Rows.Values) into a Value. Booleans, integers, floats, strings, byte
// slices, time.Time and pgtype.Numeric have their own case; every time.Time
// becomes a TIMESTAMP, including DATE values. Any other Go type (such as
// pgtype.Time, a UUID's [16]byte or decoded JSON) becomes its fmt %v text.
func pgValueToYacht(v any) yachtsql.Value {
	switch x := v.(type) {
	case nil:
		return yachtsql.Null
	case bool:
		return yachtsql.NewBool(x)
	case int16:
		return yachtsql.NewInt64(int64(x))
	case int32:
		return yachtsql.NewInt64(int64(x))
	case int64:
		return yachtsql.NewInt64(x)
	case float32:
		return yachtsql.NewFloat64(float64(x))
	case float64:
		return yachtsql.NewFloat64(x)
	case string:
		return yachtsql.NewString(x)
	case []byte:
		return yachtsql.NewBytes(x)
	case time.Time:
		return yachtsql.NewTimestamp(x)
	case pgtype.Numeric:
		f, _ := x.Float64Value()
		if !f.Valid {
			return yachtsql.Null
		}
		return yachtsql.NewNumeric(yachtsql.DecimalFromFloat64(f.Float64))
	default:
		return yachtsql.NewString(fmt.Sprintf("%v", x))
	}
}
