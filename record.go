package yachtsql

// Record is a single row, boxed as a Schema-aligned slice of Values. Most of
// the engine operates columnarly on Table batches; Record exists for the
// row-at-a-time paths where that's the natural shape: DML row construction,
// scripting variable bindings, and expression evaluation against a single
// input row (spec §3.2).
type Record struct {
	Schema *Schema
	Values []Value
}

// Get resolves name against r.Schema and returns the corresponding value, or
// Null with ok=false if the name does not resolve.
func (r Record) Get(name string) (Value, bool) {
	idx := r.Schema.IndexOf(name)
	if idx < 0 {
		return Null, false
	}
	return r.Values[idx], true
}

// At returns the value at column index idx.
func (r Record) At(idx int) Value { return r.Values[idx] }

// With returns a copy of r with column idx set to v.
func (r Record) With(idx int, v Value) Record {
	values := append([]Value(nil), r.Values...)
	values[idx] = v
	return Record{Schema: r.Schema, Values: values}
}

// Concat returns a new Record whose values are r's followed by o's, with a
// combined schema (used to build the working row during a join probe).
func (r Record) Concat(o Record) Record {
	values := make([]Value, 0, len(r.Values)+len(o.Values))
	values = append(values, r.Values...)
	values = append(values, o.Values...)
	return Record{Schema: r.Schema.Concat(o.Schema), Values: values}
}
