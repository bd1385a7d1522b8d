package blobstore

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func TestParseS3URI(t *testing.T) {
	bucket, key, err := parseS3URI("s3://my-bucket/path/to/file.csv")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "path/to/file.csv", key)

	_, _, err = parseS3URI("gs://my-bucket/file.csv")
	require.Error(t, err)
}

func TestParseCSVInfersColumnTypes(t *testing.T) {
	csv := "id,name,score\n1,alice,9.5\n2,bob,\n3,carol,7\n"
	table, err := parseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 3, table.NumRows())
	require.Equal(t, []string{"id", "name", "score"}, table.Schema.Names())

	assert.Equal(t, yachtsql.Int64, table.Schema.Fields[0].Type)
	assert.Equal(t, yachtsql.String, table.Schema.Fields[1].Type)
	assert.Equal(t, yachtsql.Float64, table.Schema.Fields[2].Type)

	row0 := table.Row(0)
	assert.Equal(t, int64(1), row0.Values[0].Int64())
	assert.Equal(t, "alice", row0.Values[1].String_())
	assert.Equal(t, 9.5, row0.Values[2].Float64())

	row1 := table.Row(1)
	assert.True(t, row1.Values[2].IsNull())
}

func TestWriteCSVRoundTrip(t *testing.T) {
	schema := yachtsql.NewSchema(
		yachtsql.Field{Name: "id", Type: yachtsql.Int64, Mode: yachtsql.ModeNullable},
		yachtsql.Field{Name: "name", Type: yachtsql.String, Mode: yachtsql.ModeNullable},
	)
	table := yachtsql.NewTable(schema)
	table.PushRow([]yachtsql.Value{yachtsql.NewInt64(1), yachtsql.NewString("alice")})
	table.PushRow([]yachtsql.Value{yachtsql.Null, yachtsql.NewString("bob")})

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, table))

	out, err := parseCSV(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows())
	assert.True(t, out.Row(1).Values[0].IsNull())
	assert.Equal(t, "bob", out.Row(1).Values[1].String_())
}
