package optimizer

import "github.com/lychee-technology/yachtsql/internal/plan"

// pushdownPredicates implements spec §4.D rule 2: Filter pushes through a
// Project only when every project expression is a simple column/alias
// reference - computed expressions block pushdown because they would
// duplicate work or change semantics.
func pushdownPredicates(n plan.Logical) plan.Logical {
	return mapLogicalBottomUp(n, func(n plan.Logical) plan.Logical {
		f, ok := n.(*plan.Filter)
		if !ok {
			return n
		}
		proj, ok := f.Input.(*plan.Project)
		if !ok {
			return n
		}
		mapping, ok := simpleProjectMapping(proj)
		if !ok {
			return n
		}
		pushed := rewriteColumns(f.Predicate, mapping)
		return plan.NewProject(
			&plan.Filter{Input: proj.Input, Predicate: pushed},
			proj.Items,
			proj.Schema(),
		)
	})
}

// simpleProjectMapping returns, for a Project whose every item is a bare
// Column (optionally aliased), a map from the item's output name to the
// underlying Column expression - and false if any item is a computed
// expression, which blocks pushdown per spec §4.D rule 2.
func simpleProjectMapping(p *plan.Project) (map[string]plan.Expr, bool) {
	mapping := make(map[string]plan.Expr, len(p.Items))
	for _, item := range p.Items {
		e := item.Expr
		if alias, ok := e.(plan.Alias); ok {
			e = alias.Expr
		}
		col, ok := e.(plan.Column)
		if !ok {
			return nil, false
		}
		mapping[item.Name] = col
	}
	return mapping, true
}

// rewriteColumns substitutes every Column reference in e whose name appears
// in mapping with the mapped expression, recursing through the expression
// tree's compound cases.
func rewriteColumns(e plan.Expr, mapping map[string]plan.Expr) plan.Expr {
	switch x := e.(type) {
	case plan.Column:
		if repl, ok := mapping[x.Name]; ok {
			return repl
		}
		return x
	case plan.BinaryOp:
		x.Left = rewriteColumns(x.Left, mapping)
		x.Right = rewriteColumns(x.Right, mapping)
		return x
	case plan.UnaryOp:
		x.Operand = rewriteColumns(x.Operand, mapping)
		return x
	case plan.ScalarFunction:
		args := make([]plan.Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = rewriteColumns(a, mapping)
		}
		x.Args = args
		return x
	case plan.Between:
		x.Operand = rewriteColumns(x.Operand, mapping)
		x.Low = rewriteColumns(x.Low, mapping)
		x.High = rewriteColumns(x.High, mapping)
		return x
	case plan.IsNull:
		x.Operand = rewriteColumns(x.Operand, mapping)
		return x
	case plan.Like:
		x.Operand = rewriteColumns(x.Operand, mapping)
		x.Pattern = rewriteColumns(x.Pattern, mapping)
		return x
	case plan.InList:
		x.Operand = rewriteColumns(x.Operand, mapping)
		list := make([]plan.Expr, len(x.List))
		for i, e := range x.List {
			list[i] = rewriteColumns(e, mapping)
		}
		x.List = list
		return x
	default:
		return e
	}
}

// collectColumns walks e and appends every Column it finds to out.
func collectColumns(e plan.Expr, out *[]plan.Column) {
	switch x := e.(type) {
	case plan.Column:
		*out = append(*out, x)
	case plan.BinaryOp:
		collectColumns(x.Left, out)
		collectColumns(x.Right, out)
	case plan.UnaryOp:
		collectColumns(x.Operand, out)
	case plan.ScalarFunction:
		for _, a := range x.Args {
			collectColumns(a, out)
		}
	case plan.Between:
		collectColumns(x.Operand, out)
		collectColumns(x.Low, out)
		collectColumns(x.High, out)
	case plan.IsNull:
		collectColumns(x.Operand, out)
	case plan.Like:
		collectColumns(x.Operand, out)
		collectColumns(x.Pattern, out)
	case plan.InList:
		collectColumns(x.Operand, out)
		for _, e := range x.List {
			collectColumns(e, out)
		}
	case plan.Alias:
		collectColumns(x.Expr, out)
	case plan.Case:
		if x.Operand != nil {
			collectColumns(x.Operand, out)
		}
		for _, w := range x.Whens {
			collectColumns(w.When, out)
			collectColumns(w.Then, out)
		}
		if x.Else != nil {
			collectColumns(x.Else, out)
		}
	case plan.Cast:
		collectColumns(x.Operand, out)
	}
}

// requiredColumnsOf returns the set of (qualifier-free) column names
// referenced anywhere in n's expressions, unioned with parentNeeds (spec
// §4.D rule 6: "walks top-down with a RequiredColumns set"). This drives
// pushdownProjection below; it is intentionally conservative (a superset
// is always safe, it just narrows scans less).
func requiredColumnsOf(n plan.Logical, parentNeeds map[string]bool) map[string]bool {
	needs := map[string]bool{}
	for k := range parentNeeds {
		needs[k] = true
	}
	var cols []plan.Column
	switch p := n.(type) {
	case *plan.Filter:
		collectColumns(p.Predicate, &cols)
	case *plan.Project:
		for _, item := range p.Items {
			collectColumns(item.Expr, &cols)
		}
	case *plan.Join:
		if p.Condition != nil {
			collectColumns(p.Condition, &cols)
		}
	case *plan.Aggregate:
		for _, g := range p.GroupBy {
			collectColumns(g, &cols)
		}
		for _, item := range p.Items {
			if item.Agg.Arg != nil {
				collectColumns(item.Agg.Arg, &cols)
			}
		}
	case *plan.Sort:
		for _, k := range p.Keys {
			collectColumns(k.Expr, &cols)
		}
	}
	for _, c := range cols {
		needs[c.Name] = true
	}
	for _, child := range n.Children() {
		for k := range requiredColumnsOf(child, needs) {
			needs[k] = true
		}
	}
	return needs
}

// pushdownProjection implements spec §4.D rule 6: narrow every Scan's
// projection to the columns actually required anywhere above it.
func pushdownProjection(n plan.Logical, required map[string]bool) plan.Logical {
	return mapLogicalBottomUp(n, func(n plan.Logical) plan.Logical {
		s, ok := n.(*plan.Scan)
		if !ok {
			return n
		}
		if s.Projection != nil {
			return n // already explicit, e.g. from an earlier planning stage
		}
		var cols []string
		for _, f := range s.Schema().Fields {
			if required[f.Name] {
				cols = append(cols, f.Name)
			}
		}
		if len(cols) == 0 {
			return n // couldn't prove anything needed - leave wide-open scan alone
		}
		return plan.NewScan(s.TableName, s.Alias, cols, s.Schema())
	})
}
