package federated

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// sinkBatchSize caps how many rows one INSERT statement carries, mirroring
// the teacher's batched EAV attribute insert (postgres_persistent_repository.go).
const sinkBatchSize = 500

// Sink is an EXPORT DATA destination: an existing table in an external
// Postgres database. Unlike Source, it uses database/sql + lib/pq directly
// (unpooled), matching how the teacher's e2e harness opens Postgres for
// bulk, short-lived operations rather than a steady-state connection pool.
type Sink struct {
	db *sql.DB
}

// OpenSink dials dsn via database/sql's "postgres" driver.
func OpenSink(dsn string) (*Sink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("federated: open sink: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("federated: ping sink: %w", err)
	}
	return &Sink{db: db}, nil
}

// Close releases the underlying connection.
func (s *Sink) Close() error { return s.db.Close() }

// Export writes table's rows into targetTable (which must already exist with
// a matching column set), in batches of sinkBatchSize rows per statement.
func (s *Sink) Export(ctx context.Context, table *yachtsql.Table, targetTable string) (int64, error) {
	if table.NumRows() == 0 {
		return 0, nil
	}
	columns := table.Schema.Names()
	var written int64
	for start := 0; start < table.NumRows(); start += sinkBatchSize {
		end := start + sinkBatchSize
		if end > table.NumRows() {
			end = table.NumRows()
		}
		n, err := s.exportBatch(ctx, targetTable, columns, table, start, end)
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

func (s *Sink) exportBatch(ctx context.Context, targetTable string, columns []string, table *yachtsql.Table, start, end int) (int64, error) {
	var args []any
	var rowsClause []string
	for r := start; r < end; r++ {
		row := table.Row(r)
		placeholders := make([]string, len(columns))
		for c, v := range row.Values {
			args = append(args, valueToSQL(v))
			placeholders[c] = fmt.Sprintf("$%d", len(args))
		}
		rowsClause = append(rowsClause, "("+strings.Join(placeholders, ", ")+")")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		quoteIdentifier(targetTable),
		strings.Join(quoteIdentifiers(columns), ", "),
		strings.Join(rowsClause, ", "),
	)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("federated: export batch: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return int64(end - start), nil
	}
	return n, nil
}

// valueToSQL converts a Value to a type database/sql's postgres driver
// accepts directly; NULL becomes a plain nil, which lib/pq sends as SQL NULL
// whatever the target column's type.
func valueToSQL(v yachtsql.Value) any {
	if v.IsNull() {
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

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdentifiers(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdentifier(n)
	}
	return out
}
