package executor

import (
	"golang.org/x/sync/errgroup"

	yachtsql "github.com/lychee-technology/yachtsql"
	"github.com/lychee-technology/yachtsql/internal/plan"
)

// recursiveFixedPointLimit bounds a recursive CTE's round count, guarding
// against a query whose recursive term never stops growing.
const recursiveFixedPointLimit = 10000

// execWithCte materializes every CteDef into the catalog under its own name
// (so a Scan referencing it resolves normally), runs Body, then removes the
// temporary tables - spec §4.F CTE materialization. ParallelCTE names CTEs
// safe to materialize concurrently via an errgroup.
func (e *Executor) execWithCte(w *plan.WithCte) (*yachtsql.Table, error) {
	parallel := make(map[int]bool, len(w.ParallelCTE))
	for _, idx := range w.ParallelCTE {
		parallel[idx] = true
	}

	registered := make([]string, 0, len(w.Ctes))
	defer func() {
		for _, name := range registered {
			_ = e.Catalog.DropTable(name)
		}
	}()

	var group errgroup.Group
	for i, def := range w.Ctes {
		if def.Recursive || !parallel[i] {
			continue
		}
		def := def
		group.Go(func() error {
			return e.materializeCte(def)
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	for i, def := range w.Ctes {
		if parallel[i] && !def.Recursive {
			registered = append(registered, canonicalCteName(def.Name))
			continue
		}
		if err := e.materializeCte(def); err != nil {
			return nil, err
		}
		registered = append(registered, canonicalCteName(def.Name))
	}

	return e.ExecuteLogical(w.Body)
}

func canonicalCteName(name string) string { return name }

// materializeCte evaluates def.Plan once (registering the result under
// def.Name) for a non-recursive CTE, or runs def.Plan to a fixed point for a
// recursive one (spec §4.F: "recursive CTE evaluates to a fixed point").
func (e *Executor) materializeCte(def plan.CteDef) error {
	if !def.Recursive {
		result, err := e.ExecuteLogical(def.Plan)
		if err != nil {
			return err
		}
		return e.createOrReplaceCteTable(def.Name, result)
	}

	schema := schemaFromPlan(def.Plan.Schema())
	if err := e.createOrReplaceCteTable(def.Name, yachtsql.NewTable(schema)); err != nil {
		return err
	}

	var accumulated *yachtsql.Table
	for round := 0; round < recursiveFixedPointLimit; round++ {
		result, err := e.ExecuteLogical(def.Plan)
		if err != nil {
			return err
		}
		if accumulated != nil && tablesEqualAsSets(accumulated, result) {
			accumulated = result
			break
		}
		accumulated = result
		if err := e.createOrReplaceCteTable(def.Name, accumulated); err != nil {
			return err
		}
	}
	return e.createOrReplaceCteTable(def.Name, accumulated)
}

func (e *Executor) createOrReplaceCteTable(name string, table *yachtsql.Table) error {
	_ = e.Catalog.DropTable(name)
	return e.Catalog.CreateTable(name, table)
}

func tablesEqualAsSets(a, b *yachtsql.Table) bool {
	if a.NumRows() != b.NumRows() {
		return false
	}
	countA := make(map[yachtsql.HashKey]int)
	for i := 0; i < a.NumRows(); i++ {
		countA[yachtsql.HashRow(a.Row(i).Values)]++
	}
	for i := 0; i < b.NumRows(); i++ {
		key := yachtsql.HashRow(b.Row(i).Values)
		if countA[key] == 0 {
			return false
		}
		countA[key]--
	}
	return true
}
