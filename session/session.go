// Package session implements the engine's programmatic API (spec §6: "The
// system exposes a Session with execute_sql(text) -> Result<Table>").
//
// It lives in its own package rather than at the module root: the root
// yachtsql package defines the engine's core data types (Table, Value,
// Schema, Config, Error) and is imported by internal/catalog and
// internal/executor for them, so a root-level Session wiring those two
// packages together would close an import cycle (root -> internal/executor
// -> root). Splitting the orchestration layer out the way a host
// application would consume it - as a separate client of both the core
// types and the internal engine packages - is the only way to keep both
// edges of that graph acyclic; DESIGN.md's Open Questions record the
// decision.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/catalog"
	"github.com/lychee-technology/yachtsql/internal/executor"
	"github.com/lychee-technology/yachtsql/internal/optimizer"
	"github.com/lychee-technology/yachtsql/internal/physical"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// Parser turns SQL text into a bound logical plan. The grammar front end is
// an explicit external collaborator (spec §1: "the SQL grammar front-end
// ... delivers an AST" is deliberately out of scope for this library), so a
// Session never builds one itself - the caller supplies a Parser
// implementation backed by whatever grammar/binder it chooses.
type Parser interface {
	Parse(sql string) (plan.Logical, error)
}

// Session is the engine's programmatic API. It owns one shared Catalog, one
// Optimizer bound to it, and one long-lived *executor.Executor so
// BEGIN/COMMIT/ROLLBACK and session/system variables (DECLARE/SET,
// PARALLEL_EXECUTION) persist across a whole statement sequence, not just
// one call.
type Session struct {
	ID uuid.UUID

	Catalog   *catalog.Catalog
	Optimizer *optimizer.Optimizer
	Parser    Parser

	log    *zap.Logger
	config *yachtsql.Config

	mu  sync.Mutex // serializes statements through the one long-lived Executor
	exe *executor.Executor
}

// New builds a Session from cfg (yachtsql.DefaultConfig() if nil), wiring
// the catalog's plan cache capacity and the optimizer's parallel-row
// threshold from cfg, and the session's long-lived Executor's recursion
// limit from cfg.Query.RecursionLimit. parser may be nil; ExecuteSQL then
// returns an Unsupported error until one is set via SetParser.
func New(cfg *yachtsql.Config, log *zap.Logger, parser Parser) (*Session, error) {
	if cfg == nil {
		cfg = yachtsql.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	cat := catalog.New(log, cfg.Catalog.PlanCacheCapacity, cfg.Catalog.SnapshotRetention)
	opt := optimizer.New(cat, log, cfg.Execution.ParallelRowThreshold)
	exe := executor.New(cat, log)
	exe.SetRecursionLimit(cfg.Query.RecursionLimit)
	exe.Context().SystemVariables["PARALLEL_EXECUTION"] = yachtsql.NewBool(cfg.Execution.ParallelExecution)

	return &Session{
		ID:        uuid.New(),
		Catalog:   cat,
		Optimizer: opt,
		Parser:    parser,
		log:       log,
		config:    cfg,
		exe:       exe,
	}, nil
}

// SetParser installs (or replaces) the Parser collaborator ExecuteSQL uses.
func (s *Session) SetParser(p Parser) { s.Parser = p }

// Executor exposes the session's long-lived *executor.Executor, for callers
// that already hold a bound plan.Logical (e.g. a Parser-less caller driving
// Execute directly, or a test harness).
func (s *Session) Executor() *executor.Executor { return s.exe }

// ExecuteSQL parses sql via the injected Parser, plans and executes it,
// returning the resulting Table (nil for statements with no result set,
// e.g. DDL/DML/scripting). Query-shaped statements are cached in the
// catalog's plan cache, keyed by the statement's normalized text (spec
// §4.H "Plan cache"); DDL/DML statements are never cached, since caching a
// write's plan has no reuse value and would only grow the cache for
// nothing.
func (s *Session) ExecuteSQL(sql string) (*yachtsql.Table, error) {
	if s.Parser == nil {
		return nil, yachtsql.NewError(yachtsql.ErrUnsupported, "session has no Parser configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeForCache(sql)
	cacheable := s.config.Query.CacheQueryPlans
	var hash catalog.PlanHash
	if cacheable {
		hash = catalog.HashSQL(normalized)
		if node, ok := s.Catalog.LookupPlan(hash); ok {
			s.log.Debug("plan cache hit", zap.String("sql", normalized))
			return s.exe.Execute(node)
		}
	}

	logical, err := s.Parser.Parse(sql)
	if err != nil {
		return nil, yachtsql.Wrap(yachtsql.ErrParseError, err, "failed to parse statement")
	}

	if !isCacheableStatement(logical) {
		cacheable = false
	}

	var node physical.Node
	if s.config.Query.EnableOptimization {
		node = s.Optimizer.Optimize(logical)
	} else {
		node = &physical.Passthrough{Logical: logical}
	}

	table, err := s.exe.Execute(node)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.Catalog.CachePlan(hash, node, referencedTables(logical))
		s.log.Debug("plan cached", zap.String("sql", normalized), zap.Int("objects", len(referencedTables(logical))))
	}
	return table, nil
}

// Execute runs an already-bound logical plan directly, bypassing the
// Parser/plan-cache path - the entry point for callers (tests, a REPL atop
// an external parser) that construct plan.Logical themselves.
func (s *Session) Execute(logical plan.Logical) (*yachtsql.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node := s.Optimizer.Optimize(logical)
	return s.exe.Execute(node)
}

// normalizeForCache folds whitespace so statements differing only in
// formatting share one cache entry.
func normalizeForCache(sql string) string {
	fields := strings.Fields(sql)
	return strings.Join(fields, " ")
}

// isCacheableStatement reports whether logical is a read-only query shape
// worth caching; DDL/DML/scripting nodes mutate catalog state as a side
// effect of planning in some cases (CREATE VIEW/FUNCTION resolve at
// execution time) and have no benefit from being replayed as a physical
// plan.
func isCacheableStatement(l plan.Logical) bool {
	switch l.(type) {
	case *plan.Insert, *plan.Update, *plan.Delete, *plan.Merge,
		*plan.CreateTable, *plan.CreateView, *plan.CreateFunction, *plan.CreateProcedure,
		*plan.DropTable, *plan.Truncate, *plan.AlterTable,
		*plan.CreateSchema, *plan.DropSchema, *plan.UndropSchema, *plan.CreateSnapshotTable,
		*plan.If, *plan.While, *plan.Loop, *plan.Block, *plan.Repeat, *plan.For,
		*plan.Return, *plan.Raise, *plan.Break, *plan.Continue,
		*plan.BeginTransaction, *plan.Commit, *plan.Rollback, *plan.TryCatch,
		*plan.ExecuteImmediate, *plan.Declare, *plan.SetVariable:
		return false
	default:
		return true
	}
}

// referencedTables walks logical's tree collecting every base table name a
// Scan reads, so CachePlan can tag the entry for invalidation when any of
// those tables' schemas change via DDL (spec §4.H).
func referencedTables(l plan.Logical) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(plan.Logical)
	walk = func(n plan.Logical) {
		if n == nil {
			return
		}
		if scan, ok := n.(*plan.Scan); ok {
			if !seen[scan.TableName] {
				seen[scan.TableName] = true
				names = append(names, scan.TableName)
			}
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(l)
	return names
}
