package yachtsql

import "time"

// ParallelRowThreshold is the minimum estimated cardinality at which binary
// operators (HashJoin, HashAggregate, Union, NestedLoopJoin, CrossJoin) are
// eligible for parallel execution (spec §4.D/§5, GLOSSARY "Parallel
// threshold").
const ParallelRowThreshold = 1000

// Config consolidates every tunable of the engine, mirroring the teacher's
// struct-of-structs shape (DatabaseConfig/QueryConfig/... in forma.Config).
type Config struct {
	Query     QueryConfig     `json:"query"`
	Execution ExecutionConfig `json:"execution"`
	Catalog   CatalogConfig   `json:"catalog"`
	Logging   LoggingConfig   `json:"logging"`
	Backend   BackendConfig   `json:"backend"`
}

// QueryConfig controls statement planning and execution limits.
type QueryConfig struct {
	DefaultTimeout     time.Duration `json:"defaultTimeout"`
	MaxRows            int           `json:"maxRows"`
	EnableOptimization bool          `json:"enableOptimization"`
	CacheQueryPlans    bool          `json:"cacheQueryPlans"`
	QueryPlanCacheTTL  time.Duration `json:"queryPlanCacheTTL"`
	RecursionLimit     int           `json:"recursionLimit"` // nested subquery depth limit; recursive CTE rounds and SQL UDF calls are not bound by it
}

// ExecutionConfig controls the parallel operator fan-out described in spec §5.
type ExecutionConfig struct {
	ParallelExecution  bool `json:"parallelExecution"` // session system variable PARALLEL_EXECUTION
	ParallelRowThreshold int `json:"parallelRowThreshold"`
	MaxWorkers         int  `json:"maxWorkers"`
}

// CatalogConfig controls the shared catalog (spec §3.4/§4.H).
type CatalogConfig struct {
	PlanCacheCapacity  int           `json:"planCacheCapacity"`
	SnapshotRetention  time.Duration `json:"snapshotRetention"` // how long a dropped table/schema stays restorable via UndropTable/UNDROP SCHEMA
	LockAcquireTimeout time.Duration `json:"lockAcquireTimeout"`
}

// LoggingConfig controls the zap.Logger the session/catalog/executor emit to.
type LoggingConfig struct {
	Level          string `json:"level"`
	Development    bool   `json:"development"`
	LogPlanCache   bool   `json:"logPlanCache"`
	LogLockWaits   bool   `json:"logLockWaits"`
	LogParallelism bool   `json:"logParallelism"`
}

// BackendConfig selects the optional alternate execution backend (spec §9
// design note: "source ships an optional back end that forwards execution
// to an external columnar engine").
type BackendConfig struct {
	UseDuckDB    bool   `json:"useDuckDB"`
	DuckDBPath   string `json:"duckDBPath"` // "" means in-memory
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() *Config {
	return &Config{
		Query: QueryConfig{
			DefaultTimeout:     30 * time.Second,
			MaxRows:            0, // unbounded
			EnableOptimization: true,
			CacheQueryPlans:    true,
			QueryPlanCacheTTL:  1 * time.Hour,
			RecursionLimit:     10000,
		},
		Execution: ExecutionConfig{
			ParallelExecution:    true,
			ParallelRowThreshold: ParallelRowThreshold,
			MaxWorkers:           4,
		},
		Catalog: CatalogConfig{
			PlanCacheCapacity:  256,
			SnapshotRetention:  24 * time.Hour,
			LockAcquireTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Backend: BackendConfig{
			UseDuckDB: false,
		},
	}
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.Execution.ParallelRowThreshold < 0 {
		return &ConfigError{Field: "execution.parallelRowThreshold", Message: "must be >= 0"}
	}
	if c.Execution.MaxWorkers <= 0 {
		return &ConfigError{Field: "execution.maxWorkers", Message: "must be > 0"}
	}
	if c.Catalog.PlanCacheCapacity < 0 {
		return &ConfigError{Field: "catalog.planCacheCapacity", Message: "must be >= 0"}
	}
	if c.Query.RecursionLimit <= 0 {
		return &ConfigError{Field: "query.recursionLimit", Message: "must be > 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
