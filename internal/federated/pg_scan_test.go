package federated

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func TestScanWithBuildsTableFromRows(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "name", "score"}).
		AddRow(int64(1), "alice", 9.5).
		AddRow(int64(2), "bob", nil)

	mock.ExpectQuery(`SELECT id, name, score FROM remote_users`).WillReturnRows(rows)

	table, err := scanWith(ctx, mock, "SELECT id, name, score FROM remote_users")
	require.NoError(t, err)
	require.Equal(t, 2, table.NumRows())
	require.Equal(t, []string{"id", "name", "score"}, table.Schema.Names())

	row0 := table.Row(0)
	assert.Equal(t, int64(1), row0.Values[0].Int64())
	assert.Equal(t, "alice", row0.Values[1].String_())
	assert.Equal(t, 9.5, row0.Values[2].Float64())

	row1 := table.Row(1)
	assert.True(t, row1.Values[2].IsNull())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgOIDToDataType(t *testing.T) {
	assert.Equal(t, yachtsql.Bool, pgOIDToDataType(pgtype.BoolOID))
	assert.Equal(t, yachtsql.Int64, pgOIDToDataType(pgtype.Int4OID))
	assert.Equal(t, yachtsql.Float64, pgOIDToDataType(pgtype.Float8OID))
	assert.Equal(t, yachtsql.String, pgOIDToDataType(pgtype.UUIDOID))
}
