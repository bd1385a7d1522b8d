// Package constraint validates INSERT and MERGE-insert row batches against
// a table's declared constraints (spec §4.I), invoked by the executor
// before appending rows under the catalog's write lock.
package constraint

import (
	"fmt"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// PrimaryKeyConstraint names the columns forming a table's composite
// primary key.
type PrimaryKeyConstraint struct {
	Name    string
	Columns []string
}

// UniqueConstraint names the columns of one UNIQUE constraint.
type UniqueConstraint struct {
	Name    string
	Columns []string
}

// TableConstraints is the full set of constraints declared on a table's
// CREATE TABLE statement, derived from its ColumnDef list at DDL bind time.
type TableConstraints struct {
	NotNullColumns    []string
	PrimaryKey        *PrimaryKeyConstraint
	UniqueConstraints []UniqueConstraint
}

// Validator checks an insert batch against one table's constraints and
// schema.
type Validator struct {
	constraints TableConstraints
	schema      *yachtsql.Schema
}

// New builds a Validator bound to constraints and schema.
func New(constraints TableConstraints, schema *yachtsql.Schema) *Validator {
	return &Validator{constraints: constraints, schema: schema}
}

// ValidateInsert checks rows (new rows being appended to tableName) in the
// order spec §4.I requires: NOT NULL, then Primary Key, then Unique.
// existing carries the already-committed rows of the target table so a
// fresh batch's PRIMARY KEY/UNIQUE values are checked against them too, not
// just against each other.
func (v *Validator) ValidateInsert(tableName string, rows []yachtsql.Record, existing *yachtsql.Table) error {
	if err := v.validateNotNull(tableName, rows); err != nil {
		return err
	}
	if err := v.validatePrimaryKey(tableName, rows, existing); err != nil {
		return err
	}
	if err := v.validateUnique(tableName, rows, existing); err != nil {
		return err
	}
	return nil
}

func (v *Validator) validateNotNull(tableName string, rows []yachtsql.Record) error {
	for _, col := range v.constraints.NotNullColumns {
		idx := v.schema.IndexOf(col)
		if idx < 0 {
			continue
		}
		for _, row := range rows {
			if row.Values[idx].IsNull() {
				return yachtsql.ColumnError(yachtsql.ErrNotNullViolation, tableName, col,
					"column %q must not be null", col)
			}
		}
	}
	return nil
}

func (v *Validator) validatePrimaryKey(tableName string, rows []yachtsql.Record, existing *yachtsql.Table) error {
	pk := v.constraints.PrimaryKey
	if pk == nil {
		return nil
	}
	idxs := v.resolveIndices(pk.Columns)
	seen := make(map[string]bool)
	if existing != nil {
		for r := 0; r < existing.NumRows(); r++ {
			row := existing.Row(r)
			key, hasNull := keyOf(row.Values, idxs)
			if !hasNull {
				seen[key] = true
			}
		}
	}
	for _, row := range rows {
		key, hasNull := keyOf(row.Values, idxs)
		if hasNull {
			return yachtsql.ColumnError(yachtsql.ErrPrimaryKeyNullViolation, tableName, firstNullColumn(row.Values, idxs, pk.Columns),
				"primary key column must not be null")
		}
		if seen[key] {
			return yachtsql.TableError(yachtsql.ErrPrimaryKeyViolation, tableName,
				"duplicate primary key value %s", key)
		}
		seen[key] = true
	}
	return nil
}

func (v *Validator) validateUnique(tableName string, rows []yachtsql.Record, existing *yachtsql.Table) error {
	for _, uc := range v.constraints.UniqueConstraints {
		idxs := v.resolveIndices(uc.Columns)
		seen := make(map[string]bool)
		if existing != nil {
			for r := 0; r < existing.NumRows(); r++ {
				row := existing.Row(r)
				key, hasNull := keyOf(row.Values, idxs)
				if !hasNull {
					seen[key] = true
				}
			}
		}
		for _, row := range rows {
			key, hasNull := keyOf(row.Values, idxs)
			if hasNull {
				continue // a null in any unique-constraint column disables the check for that row
			}
			if seen[key] {
				return yachtsql.TableError(yachtsql.ErrUniqueViolation, tableName,
					"constraint %q: duplicate value %s", uc.Name, key)
			}
			seen[key] = true
		}
	}
	return nil
}

func (v *Validator) resolveIndices(columns []string) []int {
	idxs := make([]int, len(columns))
	for i, c := range columns {
		idxs[i] = v.schema.IndexOf(c)
	}
	return idxs
}

// keyOf builds a comparable string key from the values at idxs (skipping
// columns the schema doesn't have, matching the Rust validator's silent
// skip of unresolved names) and reports whether any resolved value is null.
func keyOf(values []yachtsql.Value, idxs []int) (string, bool) {
	key := ""
	for _, idx := range idxs {
		if idx < 0 || idx >= len(values) {
			continue
		}
		if values[idx].IsNull() {
			return "", true
		}
		key += fmt.Sprintf("|%v", yachtsql.Hash(values[idx]))
	}
	return key, false
}

func firstNullColumn(values []yachtsql.Value, idxs []int, names []string) string {
	for i, idx := range idxs {
		if idx >= 0 && idx < len(values) && values[idx].IsNull() {
			return names[i]
		}
	}
	return names[0]
}
