// Package duckdbbackend implements the optional alternate execution backend
// named in spec §9's "Optional Arrow back end" design note: a back end that
// forwards execution to an external columnar engine instead of YachtSQL's
// own executor. Its presence changes nothing about the core specification;
// it is selected at Session construction via yachtsql.BackendConfig and may
// be omitted entirely without changing semantics.
//
// Grounded on the teacher's internal/duckdb_conn.go, which opens DuckDB the
// same way (database/sql over the duckdb-go/v2 driver, single connection).
// Open installs or loads no DuckDB extensions.
package duckdbbackend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// Backend wraps a database/sql connection to an embedded DuckDB instance.
type Backend struct {
	db  *sql.DB
	log *zap.Logger
}

// Open starts a DuckDB backend per cfg. An empty cfg.DuckDBPath opens an
// in-memory database, mirroring the teacher's dsn-defaults-to-":memory:"
// behavior in NewDuckDBClient.
func Open(cfg yachtsql.BackendConfig, log *zap.Logger) (*Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dsn := cfg.DuckDBPath
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdbbackend: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdbbackend: ping: %w", err)
	}
	return &Backend{db: db, log: log}, nil
}

// Close shuts down the DuckDB connection.
func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// LoadTable materializes table into a DuckDB table named name, replacing any
// existing table of that name. Rows are inserted in batches, the same shape
// as federated.Sink.Export's multi-row INSERT batching.
func (b *Backend) LoadTable(ctx context.Context, name string, table *yachtsql.Table) error {
	ddl, err := createTableDDL(name, table.Schema)
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(name))); err != nil {
		return fmt.Errorf("duckdbbackend: drop %s: %w", name, err)
	}
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("duckdbbackend: create %s: %w", name, err)
	}

	const batchSize = 500
	n := table.NumRows()
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		if err := b.insertBatch(ctx, name, table, start, end); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) insertBatch(ctx context.Context, name string, table *yachtsql.Table, start, end int) error {
	cols := table.Schema.Fields
	var query string
	args := make([]any, 0, (end-start)*len(cols))
	for r := start; r < end; r++ {
		if r > start {
			query += ","
		}
		query += "("
		row := table.Row(r)
		for c := range cols {
			if c > 0 {
				query += ","
			}
			query += "?"
			args = append(args, valueToDuckDBParam(row.Values[c]))
		}
		query += ")"
	}
	stmt := fmt.Sprintf("INSERT INTO %s VALUES %s", quoteIdentifier(name), query)
	if _, err := b.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("duckdbbackend: insert into %s: %w", name, err)
	}
	return nil
}

// Query forwards sqlText to DuckDB verbatim and materializes the result as a
// Table, column types inferred from the driver's reported column types
// (duckdbbackend's only route back into YachtSQL's Value model, since the
// engine's own planner never sees this SQL text).
func (b *Backend) Query(ctx context.Context, sqlText string, args ...any) (*yachtsql.Table, error) {
	rows, err := b.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("duckdbbackend: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("duckdbbackend: column types: %w", err)
	}
	fields := make([]yachtsql.Field, len(cols))
	for i, c := range cols {
		fields[i] = yachtsql.Field{Name: c.Name(), Type: duckDBTypeToYacht(c.DatabaseTypeName()), Mode: yachtsql.ModeNullable}
	}
	out := yachtsql.NewTable(yachtsql.NewSchema(fields...))

	scanTargets := make([]any, len(cols))
	scanValues := make([]any, len(cols))
	for i := range scanTargets {
		scanTargets[i] = &scanValues[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("duckdbbackend: scan row: %w", err)
		}
		values := make([]yachtsql.Value, len(cols))
		for i, raw := range scanValues {
			values[i] = duckDBValueToYacht(raw, fields[i].Type)
		}
		out.PushRow(values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdbbackend: iterate rows: %w", err)
	}
	return out, nil
}
