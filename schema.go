package yachtsql

import "strings"

// Field describes one column of a Schema: its name, declared type, and
// nullability mode (spec §3.2).
type Field struct {
	Name string
	Type DataType
	Mode Mode
}

// Schema is an ordered list of Fields, optionally qualified by the table
// alias a query introduced it under (spec §3.2: "qualified-name
// resolution").
type Schema struct {
	Fields []Field

	// Qualifier is the table name or alias columns resolve under, e.g. "t"
	// in "t.x"; empty for an unqualified top-level schema.
	Qualifier string
}

// NewSchema builds a Schema from fields, defaulting Qualifier to "".
func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// Qualified returns a copy of s with every field's resolution qualifier set
// to qualifier (used when a FROM clause introduces a table alias).
func (s *Schema) Qualified(qualifier string) *Schema {
	return &Schema{Fields: s.Fields, Qualifier: qualifier}
}

// IndexOf resolves name (optionally "qualifier.name") to a field position,
// or -1 if not found. An unqualified name matches any field regardless of
// the schema's Qualifier; a qualified name must match Qualifier exactly.
func (s *Schema) IndexOf(name string) int {
	qualifier := ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		qualifier, name = name[:i], name[i+1:]
	}
	for idx, f := range s.Fields {
		if !strings.EqualFold(f.Name, name) {
			continue
		}
		if qualifier != "" && !strings.EqualFold(s.Qualifier, qualifier) {
			continue
		}
		return idx
	}
	return -1
}

// Field returns the field at idx, or (Field{}, false) if out of range.
func (s *Schema) Field(idx int) (Field, bool) {
	if idx < 0 || idx >= len(s.Fields) {
		return Field{}, false
	}
	return s.Fields[idx], true
}

// Concat returns a new Schema whose fields are s's followed by o's, used by
// Join's combined output schema.
func (s *Schema) Concat(o *Schema) *Schema {
	fields := make([]Field, 0, len(s.Fields)+len(o.Fields))
	fields = append(fields, s.Fields...)
	fields = append(fields, o.Fields...)
	return &Schema{Fields: fields}
}

// Project returns a new Schema containing only the fields at the given
// positions, in that order (used by Table.WithReorderedSchema and Project).
func (s *Schema) Project(indices []int) *Schema {
	fields := make([]Field, len(indices))
	for i, idx := range indices {
		fields[i] = s.Fields[idx]
	}
	return &Schema{Fields: fields, Qualifier: s.Qualifier}
}

// Equal reports whether two schemas have the same field names, types, and
// modes in the same order (spec §4.B: "schema compatibility check").
func (s *Schema) Equal(o *Schema) bool {
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		a, b := s.Fields[i], o.Fields[i]
		if !strings.EqualFold(a.Name, b.Name) || !a.Type.Equal(b.Type) || a.Mode != b.Mode {
			return false
		}
	}
	return true
}

// Names returns the field names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}
