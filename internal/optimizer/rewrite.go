package optimizer

import "github.com/lychee-technology/yachtsql/internal/plan"

// mapLogical visits every node in the tree (any order; each node type's
// own mutable fields are rewritten in place through its pointer receiver)
// and applies visit to it. Used by passes that only need to reach inside a
// node's expressions (e.g. constant folding), never replace the node
// itself.
func mapLogical(n plan.Logical, visit func(plan.Logical) plan.Logical) plan.Logical {
	return mapLogicalBottomUp(n, func(n plan.Logical) plan.Logical {
		return visit(n)
	})
}

// mapLogicalBottomUp recurses into n's children first (rewriting them in
// place via each node's own pointer fields), then applies rule to n and
// returns rule's result - which may be n unchanged, or a different node
// entirely (e.g. a Filter replaced by its Input, or by an Empty node).
func mapLogicalBottomUp(n plan.Logical, rule func(plan.Logical) plan.Logical) plan.Logical {
	if n == nil {
		return nil
	}
	switch p := n.(type) {
	case *plan.Filter:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.Project:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.Aggregate:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.Join:
		p.Left = mapLogicalBottomUp(p.Left, rule)
		p.Right = mapLogicalBottomUp(p.Right, rule)
	case *plan.Sort:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.Limit:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.Distinct:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.SetOperation:
		p.Left = mapLogicalBottomUp(p.Left, rule)
		p.Right = mapLogicalBottomUp(p.Right, rule)
	case *plan.Window:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.WithCte:
		for i := range p.Ctes {
			p.Ctes[i].Plan = mapLogicalBottomUp(p.Ctes[i].Plan, rule)
		}
		p.Body = mapLogicalBottomUp(p.Body, rule)
	case *plan.Unnest:
		if p.Input != nil {
			p.Input = mapLogicalBottomUp(p.Input, rule)
		}
	case *plan.Qualify:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.Sample:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.GapFill:
		p.Input = mapLogicalBottomUp(p.Input, rule)
	case *plan.Explain:
		p.Plan = mapLogicalBottomUp(p.Plan, rule)
	case *plan.Insert:
		p.Source = mapLogicalBottomUp(p.Source, rule)
	case *plan.Update:
		if p.From != nil {
			p.From = mapLogicalBottomUp(p.From, rule)
		}
	case *plan.Delete:
		if p.From != nil {
			p.From = mapLogicalBottomUp(p.From, rule)
		}
	case *plan.Merge:
		p.Source = mapLogicalBottomUp(p.Source, rule)
	case *plan.CreateTable:
		if p.AsSelect != nil {
			p.AsSelect = mapLogicalBottomUp(p.AsSelect, rule)
		}
	case *plan.CreateView:
		p.Query = mapLogicalBottomUp(p.Query, rule)
		// Scan, Values, Empty, and every remaining scripting/DDL node are leaves
		// as far as these query-shape rewrites are concerned.
	}
	return rule(n)
}
