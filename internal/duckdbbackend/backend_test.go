package duckdbbackend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func TestOpenAndLoadAndQueryRoundTrip(t *testing.T) {
	b, err := Open(yachtsql.BackendConfig{}, nil)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	schema := yachtsql.NewSchema(
		yachtsql.Field{Name: "id", Type: yachtsql.Int64, Mode: yachtsql.ModeNullable},
		yachtsql.Field{Name: "name", Type: yachtsql.String, Mode: yachtsql.ModeNullable},
		yachtsql.Field{Name: "score", Type: yachtsql.Float64, Mode: yachtsql.ModeNullable},
	)
	table := yachtsql.NewTable(schema)
	table.PushRow([]yachtsql.Value{yachtsql.NewInt64(1), yachtsql.NewString("alice"), yachtsql.NewFloat64(9.5)})
	table.PushRow([]yachtsql.Value{yachtsql.NewInt64(2), yachtsql.Null, yachtsql.NewFloat64(4.25)})

	require.NoError(t, b.LoadTable(ctx, "scores", table))

	result, err := b.Query(ctx, "SELECT id, name, score FROM scores ORDER BY id")
	require.NoError(t, err)
	require.Equal(t, 2, result.NumRows())

	row0 := result.Row(0)
	assert.Equal(t, int64(1), row0.Values[0].Int64())
	assert.Equal(t, "alice", row0.Values[1].String_())
	assert.Equal(t, 9.5, row0.Values[2].Float64())

	row1 := result.Row(1)
	assert.True(t, row1.Values[1].IsNull())
}

func TestLoadTableReplacesExisting(t *testing.T) {
	b, err := Open(yachtsql.BackendConfig{}, nil)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	schema := yachtsql.NewSchema(yachtsql.Field{Name: "v", Type: yachtsql.Int64, Mode: yachtsql.ModeNullable})

	first := yachtsql.NewTable(schema)
	first.PushRow([]yachtsql.Value{yachtsql.NewInt64(1)})
	require.NoError(t, b.LoadTable(ctx, "t", first))

	second := yachtsql.NewTable(schema)
	second.PushRow([]yachtsql.Value{yachtsql.NewInt64(2)})
	second.PushRow([]yachtsql.Value{yachtsql.NewInt64(3)})
	require.NoError(t, b.LoadTable(ctx, "t", second))

	result, err := b.Query(ctx, "SELECT v FROM t ORDER BY v")
	require.NoError(t, err)
	require.Equal(t, 2, result.NumRows())
	assert.Equal(t, int64(2), result.Row(0).Values[0].Int64())
	assert.Equal(t, int64(3), result.Row(1).Values[0].Int64())
}

func TestYachtTypeToDuckDB(t *testing.T) {
	assert.Equal(t, "BOOLEAN", yachtTypeToDuckDB(yachtsql.Bool))
	assert.Equal(t, "BIGINT", yachtTypeToDuckDB(yachtsql.Int64))
	assert.Equal(t, "DOUBLE", yachtTypeToDuckDB(yachtsql.Float64))
	assert.Equal(t, "VARCHAR", yachtTypeToDuckDB(yachtsql.String))
	assert.Equal(t, "TIMESTAMPTZ", yachtTypeToDuckDB(yachtsql.Timestamp))
}

func TestDuckDBTypeToYacht(t *testing.T) {
	assert.Equal(t, yachtsql.Int64, duckDBTypeToYacht("BIGINT"))
	assert.Equal(t, yachtsql.Float64, duckDBTypeToYacht("DOUBLE"))
	assert.Equal(t, yachtsql.Bool, duckDBTypeToYacht("BOOLEAN"))
	assert.Equal(t, yachtsql.String, duckDBTypeToYacht("UNKNOWN_TYPE"))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"plain"`, quoteIdentifier("plain"))
	assert.Equal(t, `"with ""quote"""`, quoteIdentifier(`with "quote"`))
}
