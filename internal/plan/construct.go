package plan

// Constructors for the Logical nodes whose output Schema is computed at
// construction time (held in an unexported field so callers can't
// desynchronize it from the node's actual shape after the fact).

func NewScan(tableName, alias string, projection []string, schema *Schema) *Scan {
	return &Scan{TableName: tableName, Alias: alias, Projection: projection, out: schema}
}

func NewProject(input Logical, items []ProjectItem, schema *Schema) *Project {
	return &Project{Input: input, Items: items, out: schema}
}

func NewAggregate(input Logical, groupBy []Expr, items []AggregateItem, sets []GroupingSet, schema *Schema) *Aggregate {
	return &Aggregate{Input: input, GroupBy: groupBy, Items: items, GroupingSets: sets, out: schema}
}

func NewJoin(left, right Logical, joinType JoinType, condition Expr, schema *Schema) *Join {
	return &Join{Left: left, Right: right, Type: joinType, Condition: condition, out: schema}
}

func NewValues(rows []ValuesRow, schema *Schema) *Values {
	return &Values{Rows: rows, out: schema}
}

func NewEmpty(schema *Schema) *Empty {
	if schema == nil {
		schema = emptySchema
	}
	return &Empty{out: schema}
}

func NewWindow(input Logical, items []WindowItem, schema *Schema) *Window {
	return &Window{Input: input, Items: items, out: schema}
}

func NewUnnest(input Logical, array Expr, alias string, withOffset bool, offsetName string, schema *Schema) *Unnest {
	return &Unnest{Input: input, Array: array, Alias: alias, WithOffset: withOffset, OffsetName: offsetName, out: schema}
}
