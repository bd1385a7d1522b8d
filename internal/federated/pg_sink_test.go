package federated

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func TestValueToSQL(t *testing.T) {
	assert.Nil(t, valueToSQL(yachtsql.Null))
	assert.Equal(t, true, valueToSQL(yachtsql.NewBool(true)))
	assert.Equal(t, int64(7), valueToSQL(yachtsql.NewInt64(7)))
	assert.Equal(t, 1.5, valueToSQL(yachtsql.NewFloat64(1.5)))
	assert.Equal(t, "hello", valueToSQL(yachtsql.NewString("hello")))

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, ts, valueToSQL(yachtsql.NewTimestamp(ts)))

	assert.Equal(t, "42.5", valueToSQL(yachtsql.NewNumeric(yachtsql.DecimalFromFloat64(42.5))))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"orders"`, quoteIdentifier("orders"))
	assert.Equal(t, `"wei""rd"`, quoteIdentifier(`wei"rd`))
	assert.Equal(t, []string{`"a"`, `"b"`}, quoteIdentifiers([]string{"a", "b"}))
}
