// Package physical mirrors internal/plan's LogicalPlan with physically
// selected operators and per-node execution hints (spec §3.3/§4.E).
package physical

import "github.com/lychee-technology/yachtsql/internal/plan"

// BoundType classifies whether a node's dominant cost is CPU or memory
// bound, used by the executor's parallel scheduler (spec §4.D rule 11).
type BoundType string

const (
	BoundCompute BoundType = "COMPUTE"
	BoundMemory  BoundType = "MEMORY"
)

// ExecutionHints annotates every physical node (spec §3.3).
type ExecutionHints struct {
	Parallel      bool
	Bound         BoundType
	EstimatedRows uint64
}

// Node is the PhysicalPlan sum type. Besides the hints every node carries,
// nodes that replace a generic LogicalPlan case (Join, Aggregate, Sort+Limit)
// are concrete types below; every other case reuses its plan.Logical
// counterpart verbatim via Passthrough, since physical selection has
// nothing more specific to add for them.
type Node interface {
	isPhysical()
	Hints() *ExecutionHints
	Children() []Node
	Schema() *plan.Schema
	String() string
}

type baseNode struct {
	hints ExecutionHints
}

func (baseNode) isPhysical()             {}
func (n *baseNode) Hints() *ExecutionHints { return &n.hints }

// Passthrough wraps a plan.Logical node whose physical form is identical to
// its logical form (Scan, Filter, Project, Distinct, Values, Empty,
// SetOperation, Window, WithCte, Unnest, Qualify, Sample, GapFill, Explain,
// and every DML/DDL/scripting node) plus its execution hints.
type Passthrough struct {
	baseNode
	Logical  plan.Logical
	Children_ []Node
}

func (p *Passthrough) Schema() *plan.Schema { return p.Logical.Schema() }
func (p *Passthrough) Children() []Node     { return p.Children_ }
func (p *Passthrough) String() string       { return p.Logical.String() }

// JoinAlgorithm selects how a Join is physically executed.
type JoinAlgorithm string

const (
	AlgoHashJoin       JoinAlgorithm = "HASH_JOIN"
	AlgoNestedLoopJoin JoinAlgorithm = "NESTED_LOOP_JOIN"
	AlgoCrossJoin      JoinAlgorithm = "CROSS_JOIN"
)

// EqualityKey is one (left, right) equijoin key column pair, pre-extracted
// so HashJoin need not re-derive them from Condition at execution time
// (spec §4.E: "preserves equality-key lists for HashJoin").
type EqualityKey struct {
	Left, Right plan.Expr
}

// Join replaces plan.Join with a physically selected algorithm (spec §4.D
// rule 9, §4.F HashJoin/NestedLoopJoin).
type Join struct {
	baseNode
	Left, Right Node
	Type        plan.JoinType
	Algorithm   JoinAlgorithm
	EqualityKeys []EqualityKey // populated only for AlgoHashJoin
	Residual    plan.Expr     // non-equality leftover condition, evaluated row-wise after the hash probe
	out         *plan.Schema
}

func (j *Join) Schema() *plan.Schema { return j.out }
func (j *Join) Children() []Node     { return []Node{j.Left, j.Right} }
func (j *Join) String() string       { return "Join(" + string(j.Algorithm) + ")" }

// HashAggregate replaces plan.Aggregate (spec §4.D rule 9, §4.F
// HashAggregate).
type HashAggregate struct {
	baseNode
	Input        Node
	GroupBy      []plan.Expr
	Items        []plan.AggregateItem
	GroupingSets []plan.GroupingSet
	out          *plan.Schema
}

func (h *HashAggregate) Schema() *plan.Schema { return h.out }
func (h *HashAggregate) Children() []Node     { return []Node{h.Input} }
func (h *HashAggregate) String() string       { return "HashAggregate(...)" }

// TopN fuses a Sort immediately followed by a Limit (spec §4.D rule 9:
// "Sort+Limit fuses to TopN"). The executor sorts every input row and then
// keeps the Offset/Count window; it does no partial sort.
type TopN struct {
	baseNode
	Input  Node
	Keys   []plan.OrderKey
	Count  int64
	Offset int64
}

func (t *TopN) Schema() *plan.Schema { return t.Input.Schema() }
func (t *TopN) Children() []Node     { return []Node{t.Input} }
func (t *TopN) String() string       { return "TopN(...)" }

// Sort is carried forward unchanged when it is not immediately followed by
// a Limit (so it cannot fuse into TopN).
type Sort struct {
	baseNode
	Input Node
	Keys  []plan.OrderKey
}

func (s *Sort) Schema() *plan.Schema { return s.Input.Schema() }
func (s *Sort) Children() []Node     { return []Node{s.Input} }
func (s *Sort) String() string       { return "Sort(...)" }

// Limit is carried forward unchanged when it has no preceding Sort to fuse
// with.
type Limit struct {
	baseNode
	Input  Node
	Count  int64
	Offset int64
}

func (l *Limit) Schema() *plan.Schema { return l.Input.Schema() }
func (l *Limit) Children() []Node     { return []Node{l.Input} }
func (l *Limit) String() string       { return "Limit(...)" }

// ParallelCTEs names, by position in a WithCte's Ctes slice, which CTEs
// this physical tree may materialize concurrently (spec §4.E).
type ParallelCTEs []int
