package blobstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// S3CSVAdapter implements Adapter for FORMAT='CSV' over an s3://bucket/key
// URI, the one concrete file-format adapter this module ships (spec §6 names
// CSV/JSON/Avro/Parquet as loader formats; only CSV gets a real
// implementation here, grounded on the teacher's S3 upload path in
// internal/e2e_harness/fixtures.go's UploadFileToS3).
type S3CSVAdapter struct {
	client *s3.Client
}

// S3CSVOption configures NewS3CSVAdapter.
type S3CSVOption func(*s3.Options)

// WithEndpoint points the client at a non-AWS S3-compatible endpoint (e.g.
// MinIO), using path-style addressing the way the teacher's harness does for
// local test containers.
func WithEndpoint(endpoint string) S3CSVOption {
	return func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}
}

// NewS3CSVAdapter builds a client from the AWS default config chain, with an
// optional static-credentials/custom-endpoint override for local testing.
func NewS3CSVAdapter(ctx context.Context, accessKey, secretKey string, opts ...S3CSVOption) (*S3CSVAdapter, error) {
	var loadOpts []func(*config.LoadOptions) error
	if accessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		for _, opt := range opts {
			opt(o)
		}
	})
	return &S3CSVAdapter{client: client}, nil
}

// parseS3URI splits "s3://bucket/key/with/slashes.csv" into its bucket and key.
func parseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("blobstore: invalid URI %q: %w", uri, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("blobstore: unsupported URI scheme %q, want s3://", u.Scheme)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// Load downloads uri and parses it as CSV (header row + typed columns,
// inferring each column's DataType from its values the way BigQuery's
// autodetect does for LOAD DATA without an explicit schema).
func (a *S3CSVAdapter) Load(ctx context.Context, uri string) (*yachtsql.Table, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}
	buf := manager.NewWriteAtBuffer(nil)
	downloader := manager.NewDownloader(a.client)
	if _, err := downloader.Download(ctx, buf, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		return nil, fmt.Errorf("blobstore: download %s: %w", uri, err)
	}
	return parseCSV(bytes.NewReader(buf.Bytes()))
}

// Export renders table as CSV (header row + one line per row) and uploads it
// to uri.
func (a *S3CSVAdapter) Export(ctx context.Context, table *yachtsql.Table, uri string) error {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := writeCSV(&buf, table); err != nil {
		return fmt.Errorf("blobstore: render csv: %w", err)
	}
	uploader := manager.NewUploader(a.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   &buf,
	})
	if err != nil {
		return fmt.Errorf("blobstore: upload %s: %w", uri, err)
	}
	return nil
}

func parseCSV(r io.Reader) (*yachtsql.Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("blobstore: parse csv: %w", err)
	}
	if len(records) == 0 {
		return yachtsql.NewTable(yachtsql.NewSchema()), nil
	}
	header := records[0]
	body := records[1:]
	types := inferColumnTypes(header, body)

	fields := make([]yachtsql.Field, len(header))
	for i, name := range header {
		fields[i] = yachtsql.Field{Name: name, Type: types[i], Mode: yachtsql.ModeNullable}
	}
	table := yachtsql.NewTable(yachtsql.NewSchema(fields...))
	for _, rec := range body {
		values := make([]yachtsql.Value, len(header))
		for i := range header {
			var cell string
			if i < len(rec) {
				cell = rec[i]
			}
			values[i] = csvCellToValue(cell, types[i])
		}
		table.PushRow(values)
	}
	return table, nil
}

// inferColumnTypes samples every row of a column to pick the narrowest type
// every value parses as, falling back to String on any mismatch (or if the
// column is entirely empty).
func inferColumnTypes(header []string, body [][]string) []yachtsql.DataType {
	types := make([]yachtsql.DataType, len(header))
	seen := make([]bool, len(header))
	for i := range header {
		types[i] = yachtsql.Int64
	}
	for _, rec := range body {
		for i := range header {
			if i >= len(rec) || types[i].Kind == yachtsql.KindString {
				continue
			}
			cell := rec[i]
			if cell == "" {
				continue
			}
			seen[i] = true
			switch types[i].Kind {
			case yachtsql.KindInt64:
				if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
					if _, err := strconv.ParseFloat(cell, 64); err == nil {
						types[i] = yachtsql.Float64
					} else {
						types[i] = yachtsql.String
					}
				}
			case yachtsql.KindFloat64:
				if _, err := strconv.ParseFloat(cell, 64); err != nil {
					types[i] = yachtsql.String
				}
			}
		}
	}
	for i := range types {
		if !seen[i] {
			types[i] = yachtsql.String
		}
	}
	return types
}

func csvCellToValue(cell string, t yachtsql.DataType) yachtsql.Value {
	if cell == "" {
		return yachtsql.Null
	}
	switch t.Kind {
	case yachtsql.KindInt64:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return yachtsql.NewString(cell)
		}
		return yachtsql.NewInt64(n)
	case yachtsql.KindFloat64:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return yachtsql.NewString(cell)
		}
		return yachtsql.NewFloat64(f)
	default:
		return yachtsql.NewString(cell)
	}
}

func writeCSV(w io.Writer, table *yachtsql.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Schema.Names()); err != nil {
		return err
	}
	for i := 0; i < table.NumRows(); i++ {
		row := table.Row(i)
		record := make([]string, len(row.Values))
		for c, v := range row.Values {
			if v.IsNull() {
				record[c] = ""
				continue
			}
			record[c] = valueToCSVCell(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func valueToCSVCell(v yachtsql.Value) string {
	switch v.Type().Kind {
	case yachtsql.KindBool:
		return strconv.FormatBool(v.Bool())
	case yachtsql.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case yachtsql.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case yachtsql.KindNumeric, yachtsql.KindBigNumeric:
		return v.Numeric().String()
	default:
		return v.String_()
	}
}
