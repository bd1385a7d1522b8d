package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/plan"
	"github.com/lychee-technology/yachtsql/session"
)

// stubParser maps one fixed SQL string to a pre-built logical plan, playing
// the role of the external grammar front end spec §1 scopes out of this
// library.
type stubParser struct {
	sql  string
	plan plan.Logical
	hits int
}

func (p *stubParser) Parse(sql string) (plan.Logical, error) {
	p.hits++
	if sql != p.sql {
		return nil, yachtsql.NewError(yachtsql.ErrParseError, "unexpected statement %q", sql)
	}
	return p.plan, nil
}

func numbersTable() *yachtsql.Table {
	schema := yachtsql.NewSchema(yachtsql.Field{Name: "n", Type: yachtsql.Int64, Mode: yachtsql.ModeRequired})
	t := yachtsql.NewTable(schema)
	t.PushRow([]yachtsql.Value{yachtsql.NewInt64(1)})
	t.PushRow([]yachtsql.Value{yachtsql.NewInt64(2)})
	return t
}

func scanNumbersPlan() plan.Logical {
	schema := &plan.Schema{Fields: []plan.Field{{Name: "n", DataType: "INT64", Table: "numbers"}}}
	return plan.NewScan("numbers", "", nil, schema)
}

func TestSessionExecuteSQLRunsScan(t *testing.T) {
	s, err := session.New(nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Catalog.CreateTable("numbers", numbersTable()))

	parser := &stubParser{sql: "SELECT * FROM numbers", plan: scanNumbersPlan()}
	s.SetParser(parser)

	result, err := s.ExecuteSQL("SELECT * FROM numbers")
	require.NoError(t, err)
	assert.Equal(t, 2, result.NumRows())
}

func TestSessionExecuteSQLUsesPlanCacheOnRepeat(t *testing.T) {
	s, err := session.New(nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Catalog.CreateTable("numbers", numbersTable()))

	parser := &stubParser{sql: "SELECT * FROM numbers", plan: scanNumbersPlan()}
	s.SetParser(parser)

	_, err = s.ExecuteSQL("SELECT * FROM numbers")
	require.NoError(t, err)
	_, err = s.ExecuteSQL("  SELECT   *   FROM   numbers  ")
	require.NoError(t, err)

	assert.Equal(t, 1, parser.hits, "second call should have reused the cached plan instead of re-parsing")
}

func TestSessionExecuteSQLWithoutParserFails(t *testing.T) {
	s, err := session.New(nil, nil, nil)
	require.NoError(t, err)

	_, err = s.ExecuteSQL("SELECT 1")
	require.Error(t, err)
	var engineErr *yachtsql.Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, yachtsql.ErrUnsupported, engineErr.Kind)
}

func TestSessionExecuteBindsDirectly(t *testing.T) {
	s, err := session.New(nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Catalog.CreateTable("numbers", numbersTable()))

	result, err := s.Execute(scanNumbersPlan())
	require.NoError(t, err)
	assert.Equal(t, 2, result.NumRows())
}
