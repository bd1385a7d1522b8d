// Package plan defines the logical intermediate representation the SQL
// front end builds and the optimizer rewrites (spec §3.3/§4.C).
package plan

// Field is the planner's view of a column: name, type, nullability, and
// the table it originated from (for qualified-name resolution during
// planning, before a PlanSchema is handed to the executor's Schema type).
type Field struct {
	Name     string
	DataType string // BigQuery type name; resolved to yachtsql.DataType at execution bind time
	Nullable bool
	Table    string
}

// Schema is an ordered sequence of Fields (spec §3.3 PlanSchema).
type Schema struct {
	Fields []Field
}

// emptySchema is the shared singleton returned by nodes with no output
// columns (Empty, and every DML/DDL/scripting node), avoiding an allocation
// per call to Schema() as the teacher's zero-value-sharing style favors.
var emptySchema = &Schema{}

// EmptySchema returns the shared empty PlanSchema singleton.
func EmptySchema() *Schema { return emptySchema }

// IndexOf resolves a possibly-qualified name against s, preferring an exact
// "table.name" match, then an unqualified match against Table by exact or
// dotted-suffix comparison, case-insensitively (spec §3.2
// field_index_qualified, reused here at the plan layer for binding).
func (s *Schema) IndexOf(qualifier, name string) int {
	for i, f := range s.Fields {
		if qualifier != "" {
			if eqFold(f.Table, qualifier) && eqFold(f.Name, name) {
				return i
			}
			continue
		}
		if eqFold(f.Name, name) {
			return i
		}
	}
	if qualifier != "" {
		for i, f := range s.Fields {
			t := f.Table
			if len(t) > len(qualifier) && t[len(t)-len(qualifier)-1] == '.' &&
				eqFold(t[len(t)-len(qualifier):], qualifier) && eqFold(f.Name, name) {
				return i
			}
		}
	}
	return -1
}

// Concat returns a new Schema whose fields are s's followed by o's, used to
// compute a Join node's output schema.
func (s *Schema) Concat(o *Schema) *Schema {
	fields := make([]Field, 0, len(s.Fields)+len(o.Fields))
	fields = append(fields, s.Fields...)
	fields = append(fields, o.Fields...)
	return &Schema{Fields: fields}
}

func eqFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
