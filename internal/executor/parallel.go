package executor

import (
	"golang.org/x/sync/errgroup"

	"github.com/lychee-technology/yachtsql/internal/physical"
)

// defaultPartitions bounds how many goroutines a parallel operator fans a
// partition out across; spec §5 leaves the worker pool size unspecified
// beyond "bounded", so this mirrors Config.ExecutionConfig.MaxWorkers'
// default (4) without threading Config through the executor.
const defaultPartitions = 4

// parallelEnabled reports whether hints and the session's PARALLEL_EXECUTION
// system variable both allow a binary operator to fan out across a worker
// pool (spec §5: "when (a) the hints flag is set by the planner and (b)
// PARALLEL_EXECUTION is truthy in the session"). An unset system variable
// defaults to enabled, since the planner hint alone already gates on the
// row-count threshold.
func (e *Executor) parallelEnabled(hints *physical.ExecutionHints) bool {
	if hints == nil || !hints.Parallel {
		return false
	}
	if v, ok := e.ctx.SystemVariables["PARALLEL_EXECUTION"]; ok && !v.IsNull() {
		return v.Bool()
	}
	return true
}

// partitionRanges splits [0,n) into at most parts contiguous, roughly
// equal-sized ranges (spec §5: "partition work across a bounded worker
// pool... each partition computes locally; results merge without shared
// mutable state").
func partitionRanges(n, parts int) [][2]int {
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	if parts == 0 {
		return nil
	}
	ranges := make([][2]int, 0, parts)
	base, rem := n/parts, n%parts
	start := 0
	for i := 0; i < parts; i++ {
		size := base
		if i < rem {
			size++
		}
		end := start + size
		if end > start {
			ranges = append(ranges, [2]int{start, end})
		}
		start = end
	}
	return ranges
}

// runPartitioned runs work once per partition of [0,n) concurrently via
// errgroup, returning the first error encountered (if any). Each partition
// only ever touches its own disjoint row range and its own local
// accumulator, so callers never need to synchronize within work itself.
func runPartitioned(n, parts int, work func(start, end int) error) error {
	ranges := partitionRanges(n, parts)
	if len(ranges) <= 1 {
		if len(ranges) == 1 {
			return work(ranges[0][0], ranges[0][1])
		}
		return nil
	}
	var g errgroup.Group
	for _, r := range ranges {
		r := r
		g.Go(func() error { return work(r[0], r[1]) })
	}
	return g.Wait()
}

// runPartitionedRanges is runPartitioned for a caller that already holds its
// partition boundaries (e.g. to size a per-partition output slice before
// fanning out): work receives the partition's index alongside its row range,
// so results can be written into partialOut[idx] and merged back in order
// once every partition has finished.
func runPartitionedRanges(ranges [][2]int, work func(idx, start, end int) error) error {
	if len(ranges) <= 1 {
		if len(ranges) == 1 {
			return work(0, ranges[0][0], ranges[0][1])
		}
		return nil
	}
	var g errgroup.Group
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error { return work(i, r[0], r[1]) })
	}
	return g.Wait()
}
