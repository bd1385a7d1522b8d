// Package executor walks a PhysicalPlan and produces its result Table,
// implementing every operator physical.Node names (spec §4.F). It builds on
// internal/eval, internal/catalog, internal/constraint and internal/physical,
// and implements eval.SubqueryRunner/eval.UDFResolver so expression evaluation
// can call back into a running query without an import cycle.
package executor

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/catalog"
	"github.com/lychee-technology/yachtsql/internal/eval"
	"github.com/lychee-technology/yachtsql/internal/physical"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// Executor runs PhysicalPlans against the shared Catalog. A Session keeps one
// long-lived Executor across all its statements, and the Executor threads an
// optional *catalog.Transaction through nested executions so statements
// inside BEGIN/COMMIT share one consistent view (spec §4.H).
type Executor struct {
	Catalog *catalog.Catalog
	Log     *zap.Logger

	tx  *catalog.Transaction // non-nil while inside an explicit transaction
	ctx *eval.Context

	recursionDepth int32
	recursionLimit int32

	// returnValue holds the last value a RETURN statement evaluated,
	// mirroring the teacher's error-as-signal plumbing (errors.go's
	// NewBreakSignal/NewContinueSignal/NewReturnSignal + IsBreak/IsContinue/IsReturn);
	// a caller running a procedure body reads this after ExecuteLogical
	// reports an IsReturn control-flow signal.
	returnValue yachtsql.Value
}

// ReturnValue returns the value a RETURN statement last evaluated (Null if
// none ran yet or the RETURN carried no value).
func (e *Executor) ReturnValue() yachtsql.Value { return e.returnValue }

// SetRecursionLimit overrides the nested subquery depth cap checked in Run,
// which a fresh Executor otherwise sets to 10000. Recursive CTE rounds are
// bounded separately by recursiveFixedPointLimit, and SQL UDF calls are not
// counted against either cap.
func (e *Executor) SetRecursionLimit(limit int) { e.recursionLimit = int32(limit) }

// New builds an Executor bound to cat, with a fresh evaluation Context
// (session/system variables empty, no bound parameters).
func New(cat *catalog.Catalog, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	ctx := eval.NewContext()
	e := &Executor{Catalog: cat, Log: log, ctx: ctx, recursionLimit: 10000}
	ctx.Subqueries = e
	ctx.UDFs = e
	return e
}

// WithTransaction returns a copy of e bound to tx, so statements inside an
// explicit BEGIN...COMMIT/ROLLBACK block read/write through the
// transaction's snapshot instead of the catalog directly.
func (e *Executor) WithTransaction(tx *catalog.Transaction) *Executor {
	clone := *e
	clone.tx = tx
	ctx := *e.ctx
	clone.ctx = &ctx
	clone.ctx.Subqueries = &clone
	clone.ctx.UDFs = &clone
	return &clone
}

// Context exposes the bound evaluation context (session/system variables,
// bind parameters) so callers (e.g. Session) can set them before executing.
func (e *Executor) Context() *eval.Context { return e.ctx }

// ResolveFunction implements eval.UDFResolver by looking up a SQL-bodied UDF
// in the catalog.
func (e *Executor) ResolveFunction(name string) ([]plan.FunctionParam, plan.Expr, string, bool) {
	fn, ok := e.Catalog.LookupFunction(name)
	if !ok || fn.Body == nil {
		return nil, nil, "", false
	}
	return fn.Params, fn.Body, fn.ReturnType, true
}

// Run implements eval.SubqueryRunner by planning nothing further (p is
// already a bound Logical plan) and executing it to completion as a
// Passthrough physical node.
func (e *Executor) Run(p plan.Logical) (*yachtsql.Table, error) {
	if atomic.AddInt32(&e.recursionDepth, 1) > e.recursionLimit {
		atomic.AddInt32(&e.recursionDepth, -1)
		return nil, yachtsql.NewError(yachtsql.ErrInternal, "subquery/recursion depth limit exceeded")
	}
	defer atomic.AddInt32(&e.recursionDepth, -1)
	return e.ExecuteLogical(p)
}

// Execute runs node to completion, returning its output Table.
func (e *Executor) Execute(node physical.Node) (*yachtsql.Table, error) {
	switch n := node.(type) {
	case *physical.Passthrough:
		return e.ExecuteLogical(n.Logical)
	case *physical.Join:
		return e.execJoin(n)
	case *physical.HashAggregate:
		return e.execHashAggregate(n)
	case *physical.TopN:
		return e.execTopN(n)
	case *physical.Sort:
		return e.execSort(n)
	case *physical.Limit:
		return e.execLimit(n)
	default:
		return nil, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported physical node %T", node)
	}
}

// ExecuteLogical executes a bare Logical node directly, used both for
// Passthrough physical nodes and for nested plans (CTE bodies, subqueries)
// that were never given a dedicated physical form.
func (e *Executor) ExecuteLogical(l plan.Logical) (*yachtsql.Table, error) {
	switch n := l.(type) {
	case *plan.Scan:
		return e.execScan(n)
	case *plan.Filter:
		return e.execFilter(n)
	case *plan.Project:
		return e.execProject(n)
	case *plan.Aggregate:
		return e.execAggregateLogical(n)
	case *plan.Join:
		return e.execJoinLogical(n)
	case *plan.Sort:
		return e.execSortLogical(n)
	case *plan.Limit:
		return e.execLimitLogical(n)
	case *plan.Distinct:
		return e.execDistinct(n)
	case *plan.Values:
		return e.execValues(n)
	case *plan.Empty:
		return yachtsql.NewTable(schemaFromPlan(n.Schema())), nil
	case *plan.SetOperation:
		return e.execSetOperation(n)
	case *plan.Window:
		return e.execWindow(n)
	case *plan.WithCte:
		return e.execWithCte(n)
	case *plan.Unnest:
		return e.execUnnest(n)
	case *plan.Qualify:
		return e.execQualify(n)
	case *plan.Sample:
		return e.execSample(n)
	case *plan.GapFill:
		return e.execGapFill(n)
	case *plan.Explain:
		return e.execExplain(n)
	case *plan.Insert:
		return nil, e.execInsert(n)
	case *plan.Update:
		return nil, e.execUpdate(n)
	case *plan.Delete:
		return nil, e.execDelete(n)
	case *plan.Merge:
		return nil, e.execMerge(n)
	case *plan.CreateTable:
		return nil, e.execCreateTable(n)
	case *plan.DropTable:
		if n.IfExists {
			if _, err := e.Catalog.ReadTable(n.Name); err != nil {
				return nil, nil
			}
		}
		return nil, e.Catalog.DropTable(n.Name)
	case *plan.Truncate:
		return nil, e.Catalog.Truncate(n.Name)
	case *plan.AlterTable:
		return nil, e.execAlterTable(n)
	case *plan.CreateSchema:
		return nil, e.Catalog.CreateSchema(n.Name, n.IfNotExists)
	case *plan.DropSchema:
		return nil, e.Catalog.DropSchema(n.Name, n.IfExists, n.Cascade)
	case *plan.UndropSchema:
		return nil, e.Catalog.UndropSchema(n.Name)
	case *plan.CreateSnapshotTable:
		return nil, e.Catalog.CreateSnapshotTable(n.Name, n.Source, n.IfNotExists)
	case *plan.CreateView:
		return nil, e.Catalog.CreateView(n.Name, n.ColumnAliases, n.Query, n.OrReplace)
	case *plan.CreateFunction:
		return nil, e.Catalog.CreateFunction(n.Name, n.Params, n.ReturnType, n.Body, n.IsAggregate, n.OrReplace)
	case *plan.CreateProcedure:
		return nil, e.Catalog.CreateProcedure(n.Name, n.Params, n.Body, n.OrReplace)
	case *plan.If:
		return nil, e.execIf(n)
	case *plan.While:
		return nil, e.execWhile(n)
	case *plan.Loop:
		return nil, e.execLoop(n)
	case *plan.Block:
		return nil, e.execBlock(n)
	case *plan.Repeat:
		return nil, e.execRepeat(n)
	case *plan.For:
		return nil, e.execFor(n)
	case *plan.Return:
		return nil, e.execReturn(n)
	case *plan.Raise:
		return nil, e.execRaise(n)
	case *plan.Break:
		return nil, yachtsql.NewBreakSignal(n.Label)
	case *plan.Continue:
		return nil, yachtsql.NewContinueSignal(n.Label)
	case *plan.BeginTransaction:
		return nil, e.execBeginTransaction()
	case *plan.Commit:
		return nil, e.execCommit()
	case *plan.Rollback:
		return nil, e.execRollback()
	case *plan.TryCatch:
		return nil, e.execTryCatch(n)
	case *plan.ExecuteImmediate:
		return nil, e.execExecuteImmediate(n)
	case *plan.Declare:
		return nil, e.execDeclare(n)
	case *plan.SetVariable:
		return nil, e.execSetVariable(n)
	default:
		return nil, yachtsql.NewError(yachtsql.ErrUnsupported, "unsupported logical node %T", l)
	}
}

// schemaFromPlan resolves a plan.Schema (BigQuery type names as text) to a
// bound yachtsql.Schema, used whenever an executor stage must materialize a
// Table whose shape only the plan layer described.
func schemaFromPlan(s *plan.Schema) *yachtsql.Schema {
	fields := make([]yachtsql.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = yachtsql.Field{Name: f.Name, Type: resolveDataType(f.DataType), Mode: modeFor(f.Nullable)}
	}
	return yachtsql.NewSchema(fields...)
}

func modeFor(nullable bool) yachtsql.Mode {
	if nullable {
		return yachtsql.ModeNullable
	}
	return yachtsql.ModeRequired
}

// resolveDataType maps a BigQuery type name, as carried by plan.Field, to a
// DataType. Nested ARRAY<...>/STRUCT<...> parameterizations are resolved
// shallow (outer kind only): the executor itself never needs a Field's full
// nested shape to move Values around, since every Value already carries its
// own runtime type (spec §3.1 Value.Type()).
func resolveDataType(name string) yachtsql.DataType {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(upper, '<'); i >= 0 {
		upper = upper[:i]
	}
	return yachtsql.DataType{Kind: yachtsql.TypeKind(upper)}
}

func (e *Executor) readTable(name string) (*yachtsql.Table, error) {
	if e.tx != nil {
		return e.tx.ReadTable(name)
	}
	return e.Catalog.ReadTable(name)
}

func (e *Executor) writeTable(name string, mutate func(*yachtsql.Table) (*yachtsql.Table, error)) error {
	if e.tx != nil {
		return e.tx.WriteTable(name, mutate)
	}
	return e.Catalog.WriteTable(name, mutate)
}
