// Package blobstore implements the adapters behind YachtSQL's
// LOAD DATA FROM FILES / EXPORT DATA boundary (spec §6): the core engine
// accepts and produces Tables, and delegates file-format parsing/writing to
// an Adapter keyed by FORMAT. Only CSV-over-S3 has a concrete adapter;
// Avro/Parquet/JSON remain documented interface points, matching the
// spec's explicit scope boundary.
package blobstore

import (
	"context"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// Adapter loads a URI's contents into a Table (LOAD DATA) or writes a
// Table's rows to a URI (EXPORT DATA), for one FORMAT.
type Adapter interface {
	Load(ctx context.Context, uri string) (*yachtsql.Table, error)
	Export(ctx context.Context, table *yachtsql.Table, uri string) error
}
