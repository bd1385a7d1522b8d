package optimizer

import "github.com/lychee-technology/yachtsql/internal/plan"

// propagateEmpty implements spec §4.D rule 4: Filter/Project/Sort/Limit/Join
// over an Empty source collapse to Empty per join-type rules (Inner/Cross
// empty-either ⇒ empty; Left/Right empty-outer ⇒ empty; Full never
// collapses; Union drops empty arms; Except right-empty ⇒ left; `LIMIT 0`
// ⇒ Empty).
func propagateEmpty(n plan.Logical) plan.Logical {
	return mapLogicalBottomUp(n, func(n plan.Logical) plan.Logical {
		switch p := n.(type) {
		case *plan.Filter:
			if isEmpty(p.Input) {
				return plan.NewEmpty(p.Schema())
			}
		case *plan.Project:
			if isEmpty(p.Input) {
				return plan.NewEmpty(p.Schema())
			}
		case *plan.Sort:
			if isEmpty(p.Input) {
				return plan.NewEmpty(p.Schema())
			}
		case *plan.Limit:
			if p.Count == 0 {
				return plan.NewEmpty(p.Schema())
			}
			if isEmpty(p.Input) {
				return plan.NewEmpty(p.Schema())
			}
		case *plan.Join:
			le, re := isEmpty(p.Left), isEmpty(p.Right)
			switch p.Type {
			case plan.JoinInner, plan.JoinCross:
				if le || re {
					return plan.NewEmpty(p.Schema())
				}
			case plan.JoinLeft:
				if le {
					return plan.NewEmpty(p.Schema())
				}
			case plan.JoinRight:
				if re {
					return plan.NewEmpty(p.Schema())
				}
			case plan.JoinFull:
				// never collapses
			}
		case *plan.SetOperation:
			le, re := isEmpty(p.Left), isEmpty(p.Right)
			switch p.Kind {
			case plan.SetOpUnion:
				if le && re {
					return plan.NewEmpty(p.Schema())
				}
				if le {
					return p.Right
				}
				if re {
					return p.Left
				}
			case plan.SetOpExcept:
				if re {
					return p.Left
				}
				if le {
					return plan.NewEmpty(p.Schema())
				}
			case plan.SetOpIntersect:
				if le || re {
					return plan.NewEmpty(p.Schema())
				}
			}
		}
		return n
	})
}

func isEmpty(n plan.Logical) bool {
	_, ok := n.(*plan.Empty)
	return ok
}
