package yachtsql

// Table is an in-memory columnar batch: a Schema plus one Column per field,
// all the same length (spec §3.2/§4.B). It is the unit operators pass to
// one another through the executor pipeline.
type Table struct {
	Schema  *Schema
	Columns []*Column
}

// NewTable builds an empty Table with one Column per schema field.
func NewTable(schema *Schema) *Table {
	cols := make([]*Column, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = NewColumn(f)
	}
	return &Table{Schema: schema, Columns: cols}
}

// NumRows returns the row count (0 for a Table with no columns).
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.Columns) }

// PushRow appends one row of values, one per column, in schema order (spec
// §4.B: "push_row").
func (t *Table) PushRow(values []Value) {
	for i, v := range values {
		t.Columns[i].Append(v)
	}
}

// Row materializes row i as a Record (a boxed, row-oriented view), used by
// the row-at-a-time paths: expression evaluation fallback, DML, and
// scripting variable assignment.
func (t *Table) Row(i int) Record {
	values := make([]Value, len(t.Columns))
	for c, col := range t.Columns {
		values[c] = col.Get(i)
	}
	return Record{Schema: t.Schema, Values: values}
}

// GatherRows builds a new Table containing the rows at the given indices, in
// order, possibly repeating or skipping rows (spec §4.B: "gather_rows";
// backs ORDER BY, TopN, and TABLESAMPLE).
func (t *Table) GatherRows(indices []int) *Table {
	cols := make([]*Column, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = col.Gather(indices)
	}
	return &Table{Schema: t.Schema, Columns: cols}
}

// FilterByMask builds a new Table containing only the rows where mask[i] is
// true (spec §4.B: "filter_by_mask").
func (t *Table) FilterByMask(mask []bool) *Table {
	cols := make([]*Column, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = col.FilterByMask(mask)
	}
	return &Table{Schema: t.Schema, Columns: cols}
}

// WithReorderedSchema builds a new Table whose columns are reordered (and
// possibly subset) to match indices into the current schema, used by
// Project and by join output assembly (spec §4.B: "with_reordered_schema").
func (t *Table) WithReorderedSchema(indices []int) *Table {
	cols := make([]*Column, len(indices))
	for i, idx := range indices {
		cols[i] = t.Columns[idx]
	}
	return &Table{Schema: t.Schema.Project(indices), Columns: cols}
}

// AppendTable appends all rows of other to t in place; the two tables must
// share a column-compatible schema (used by UNION ALL and batch streaming).
func (t *Table) AppendTable(other *Table) error {
	if len(t.Columns) != len(other.Columns) {
		return NewError(ErrSchemaMismatch, "cannot append table with %d columns onto table with %d columns", len(other.Columns), len(t.Columns))
	}
	for i, col := range t.Columns {
		col.AppendColumn(other.Columns[i])
	}
	return nil
}

// Slice returns the half-open row range [start, end) as a new Table.
func (t *Table) Slice(start, end int) *Table {
	cols := make([]*Column, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = col.Slice(start, end)
	}
	return &Table{Schema: t.Schema, Columns: cols}
}

// Clone makes a deep-enough copy of t that appending rows to the clone does
// not affect t (used when a snapshot must outlive further mutation of the
// base table, e.g. transaction isolation).
func (t *Table) Clone() *Table {
	return t.Slice(0, t.NumRows())
}
