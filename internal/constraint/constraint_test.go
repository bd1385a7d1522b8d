package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func makeSchema() *yachtsql.Schema {
	return yachtsql.NewSchema(
		yachtsql.Field{Name: "id", Type: yachtsql.Int64},
		yachtsql.Field{Name: "name", Type: yachtsql.String},
		yachtsql.Field{Name: "email", Type: yachtsql.String},
	)
}

func record(schema *yachtsql.Schema, values ...yachtsql.Value) yachtsql.Record {
	return yachtsql.Record{Schema: schema, Values: values}
}

func TestValidateNotNullPass(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{NotNullColumns: []string{"id"}}, schema)
	rows := []yachtsql.Record{record(schema, yachtsql.NewInt64(1), yachtsql.NewString("test"), yachtsql.Null)}
	assert.NoError(t, v.ValidateInsert("test_table", rows, nil))
}

func TestValidateNotNullFail(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{NotNullColumns: []string{"id"}}, schema)
	rows := []yachtsql.Record{record(schema, yachtsql.Null, yachtsql.NewString("test"), yachtsql.Null)}
	err := v.ValidateInsert("test_table", rows, nil)
	require.Error(t, err)
	assert.Equal(t, yachtsql.ErrNotNullViolation, yachtsql.KindOf(err))
}

func TestValidatePrimaryKeyPass(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{PrimaryKey: &PrimaryKeyConstraint{Name: "pk_id", Columns: []string{"id"}}}, schema)
	rows := []yachtsql.Record{
		record(schema, yachtsql.NewInt64(1), yachtsql.NewString("a"), yachtsql.Null),
		record(schema, yachtsql.NewInt64(2), yachtsql.NewString("b"), yachtsql.Null),
	}
	assert.NoError(t, v.ValidateInsert("test_table", rows, nil))
}

func TestValidatePrimaryKeyNullFail(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{PrimaryKey: &PrimaryKeyConstraint{Name: "pk_id", Columns: []string{"id"}}}, schema)
	rows := []yachtsql.Record{record(schema, yachtsql.Null, yachtsql.NewString("a"), yachtsql.Null)}
	err := v.ValidateInsert("test_table", rows, nil)
	require.Error(t, err)
	assert.Equal(t, yachtsql.ErrPrimaryKeyNullViolation, yachtsql.KindOf(err))
}

func TestValidatePrimaryKeyDuplicateFail(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{PrimaryKey: &PrimaryKeyConstraint{Name: "pk_id", Columns: []string{"id"}}}, schema)
	rows := []yachtsql.Record{
		record(schema, yachtsql.NewInt64(1), yachtsql.NewString("a"), yachtsql.Null),
		record(schema, yachtsql.NewInt64(1), yachtsql.NewString("b"), yachtsql.Null),
	}
	err := v.ValidateInsert("test_table", rows, nil)
	require.Error(t, err)
	assert.Equal(t, yachtsql.ErrPrimaryKeyViolation, yachtsql.KindOf(err))
}

func TestValidatePrimaryKeyAgainstExisting(t *testing.T) {
	schema := makeSchema()
	existing := yachtsql.NewTable(schema)
	existing.PushRow([]yachtsql.Value{yachtsql.NewInt64(1), yachtsql.NewString("a"), yachtsql.Null})

	v := New(TableConstraints{PrimaryKey: &PrimaryKeyConstraint{Name: "pk_id", Columns: []string{"id"}}}, schema)
	rows := []yachtsql.Record{record(schema, yachtsql.NewInt64(1), yachtsql.NewString("b"), yachtsql.Null)}
	err := v.ValidateInsert("test_table", rows, existing)
	require.Error(t, err)
	assert.Equal(t, yachtsql.ErrPrimaryKeyViolation, yachtsql.KindOf(err))
}

func TestValidateUniquePass(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{UniqueConstraints: []UniqueConstraint{{Name: "uq_email", Columns: []string{"email"}}}}, schema)
	rows := []yachtsql.Record{
		record(schema, yachtsql.NewInt64(1), yachtsql.NewString("a"), yachtsql.NewString("a@test.com")),
		record(schema, yachtsql.NewInt64(2), yachtsql.NewString("b"), yachtsql.NewString("b@test.com")),
	}
	assert.NoError(t, v.ValidateInsert("test_table", rows, nil))
}

func TestValidateUniqueNullAllowed(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{UniqueConstraints: []UniqueConstraint{{Name: "uq_email", Columns: []string{"email"}}}}, schema)
	rows := []yachtsql.Record{
		record(schema, yachtsql.NewInt64(1), yachtsql.NewString("a"), yachtsql.Null),
		record(schema, yachtsql.NewInt64(2), yachtsql.NewString("b"), yachtsql.Null),
	}
	assert.NoError(t, v.ValidateInsert("test_table", rows, nil))
}

func TestValidateUniqueFail(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{UniqueConstraints: []UniqueConstraint{{Name: "uq_email", Columns: []string{"email"}}}}, schema)
	rows := []yachtsql.Record{
		record(schema, yachtsql.NewInt64(1), yachtsql.NewString("a"), yachtsql.NewString("same@test.com")),
		record(schema, yachtsql.NewInt64(2), yachtsql.NewString("b"), yachtsql.NewString("same@test.com")),
	}
	err := v.ValidateInsert("test_table", rows, nil)
	require.Error(t, err)
	assert.Equal(t, yachtsql.ErrUniqueViolation, yachtsql.KindOf(err))
}

func TestValidateCompositePrimaryKey(t *testing.T) {
	schema := yachtsql.NewSchema(
		yachtsql.Field{Name: "a", Type: yachtsql.Int64},
		yachtsql.Field{Name: "b", Type: yachtsql.Int64},
		yachtsql.Field{Name: "c", Type: yachtsql.String},
	)
	v := New(TableConstraints{PrimaryKey: &PrimaryKeyConstraint{Name: "pk_ab", Columns: []string{"a", "b"}}}, schema)
	ok := []yachtsql.Record{
		record(schema, yachtsql.NewInt64(1), yachtsql.NewInt64(1), yachtsql.NewString("x")),
		record(schema, yachtsql.NewInt64(1), yachtsql.NewInt64(2), yachtsql.NewString("x")),
	}
	assert.NoError(t, v.ValidateInsert("test_table", ok, nil))

	dup := []yachtsql.Record{
		record(schema, yachtsql.NewInt64(1), yachtsql.NewInt64(1), yachtsql.NewString("x")),
		record(schema, yachtsql.NewInt64(1), yachtsql.NewInt64(1), yachtsql.NewString("y")),
	}
	assert.Error(t, v.ValidateInsert("test_table", dup, nil))
}

func TestValidateNoConstraints(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{}, schema)
	rows := []yachtsql.Record{record(schema, yachtsql.Null, yachtsql.Null, yachtsql.Null)}
	assert.NoError(t, v.ValidateInsert("test_table", rows, nil))
}

func TestValidateEmptyRows(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{
		NotNullColumns:    []string{"id"},
		PrimaryKey:        &PrimaryKeyConstraint{Name: "pk_id", Columns: []string{"id"}},
		UniqueConstraints: []UniqueConstraint{{Name: "uq_email", Columns: []string{"email"}}},
	}, schema)
	assert.NoError(t, v.ValidateInsert("test_table", nil, nil))
}

func TestValidateUnknownColumnInConstraint(t *testing.T) {
	schema := makeSchema()
	v := New(TableConstraints{NotNullColumns: []string{"nonexistent"}}, schema)
	rows := []yachtsql.Record{record(schema, yachtsql.NewInt64(1), yachtsql.NewString("test"), yachtsql.Null)}
	assert.NoError(t, v.ValidateInsert("test_table", rows, nil))
}
