// Package optimizer rewrites a logical plan through a fixed sequence of
// rule passes, then selects physical operators and attaches execution
// hints (spec §4.D). The rule-pass pipeline has no corpus dependency to
// ground on - rule-based query optimizers are not something any reference
// repo ships as a library, and the rules operate purely on the in-memory
// plan.Logical tree, so importing a third-party dependency here would be
// artificial (DESIGN.md records this stdlib justification).
package optimizer

import (
	"go.uber.org/zap"

	"github.com/lychee-technology/yachtsql/internal/physical"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// TableStats is what the optimizer needs to know about a base table to cost
// join order and row estimates; internal/catalog supplies these.
type TableStats struct {
	RowCount uint64
}

// Catalog is the minimal surface the optimizer needs from internal/catalog,
// kept as an interface so the two packages don't import each other.
type Catalog interface {
	TableStats(name string) (TableStats, bool)
}

// Optimizer runs the full rule-pass pipeline of spec §4.D.
type Optimizer struct {
	catalog              Catalog
	log                  *zap.Logger
	parallelRowThreshold uint64
}

// New builds an Optimizer. threshold is the row count above which binary
// operators become eligible for parallel execution (spec §4.D rule 11);
// pass yachtsql.ParallelRowThreshold in production.
func New(catalog Catalog, log *zap.Logger, threshold int) *Optimizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Optimizer{catalog: catalog, log: log, parallelRowThreshold: uint64(threshold)}
}

// Optimize applies the logical rule passes, converts to a physical plan,
// and applies the physical-plan passes (spec §4.D: "a fixed sequence of
// rule passes ... followed by conversion to the physical plan and a second
// pass of physical-plan rules").
func (o *Optimizer) Optimize(root plan.Logical) physical.Node {
	root = foldConstants(root)
	root = mergeFilters(root)
	root = propagateEmpty(root)
	root = removeTrivialPredicates(root)
	root = pushdownPredicates(root)
	required := requiredColumnsOf(root, nil)
	root = pushdownProjection(root, required)
	root = o.reorderJoins(root)
	root = o.pushdownAggregates(root)

	phys := o.selectPhysical(root)
	phys = pushdownSort(phys)
	o.attachHints(phys)
	return phys
}

// estimateRows implements spec §4.D's row estimation heuristics.
func (o *Optimizer) estimateRows(n plan.Logical) uint64 {
	switch p := n.(type) {
	case *plan.Scan:
		if o.catalog != nil {
			if st, ok := o.catalog.TableStats(p.TableName); ok {
				return st.RowCount
			}
		}
		return 1000
	case *plan.Filter:
		in := o.estimateRows(p.Input)
		est := uint64(float64(in) * 0.33)
		if est < 1 {
			est = 1
		}
		return est
	case *plan.Project:
		return o.estimateRows(p.Input)
	case *plan.Aggregate:
		in := o.estimateRows(p.Input)
		if len(p.GroupBy) > 0 {
			est := in / 10
			if est < 1 {
				est = 1
			}
			return est
		}
		return 1
	case *plan.Join:
		l, r := o.estimateRows(p.Left), o.estimateRows(p.Right)
		if p.Type == plan.JoinCross {
			return l * r
		}
		m := l
		if r > m {
			m = r
		}
		if m == 0 {
			return 0
		}
		return (l * r) / m
	case *plan.SetOperation:
		return o.estimateRows(p.Left) + o.estimateRows(p.Right)
	case *plan.Distinct:
		est := o.estimateRows(p.Input) / 2
		if est < 1 {
			est = 1
		}
		return est
	case *plan.Unnest:
		if p.Input == nil {
			return 1000
		}
		return o.estimateRows(p.Input) * 10
	case *plan.Sort:
		return o.estimateRows(p.Input)
	case *plan.Limit:
		in := o.estimateRows(p.Input)
		if p.Count >= 0 && uint64(p.Count) < in {
			return uint64(p.Count)
		}
		return in
	case *plan.Values:
		return uint64(len(p.Rows))
	case *plan.Empty:
		return 0
	default:
		return 1000
	}
}
