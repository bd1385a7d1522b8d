package catalog

import (
	"container/list"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/lychee-technology/yachtsql/internal/physical"
)

// PlanHash is the xxh3 digest of a statement's normalized SQL text, used as
// the plan cache's lookup key (spec §4.H "Plan cache").
type PlanHash uint64

// HashSQL computes the plan-cache key for sql.
func HashSQL(sql string) PlanHash {
	return PlanHash(xxh3.HashString(sql))
}

type planCacheEntry struct {
	hash    PlanHash
	node    physical.Node
	objects []string // objects this plan's bind referenced, for invalidation
}

// PlanCache is a fixed-capacity LRU cache from normalized-SQL hash to
// compiled PhysicalPlan, plus a reverse index from referenced object name to
// the set of cached hashes that must be evicted when that object's schema
// changes (spec §4.H: "a plan referencing a table is evicted whenever that
// table's schema changes via DDL"). Grounded on the teacher's in-process
// cache style (internal/relation_index.go builds a similar forward/reverse
// index pair over record-to-attribute references), generalized from
// relation bookkeeping to plan bookkeeping and given real LRU eviction via
// container/list, since the teacher's cache never evicted.
type PlanCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[PlanHash]*list.Element
	byObject map[string]map[PlanHash]bool
}

// NewPlanCache builds a PlanCache holding at most capacity entries. A
// non-positive capacity disables caching: Get always misses and Put is a
// no-op.
func NewPlanCache(capacity int) *PlanCache {
	return &PlanCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[PlanHash]*list.Element),
		byObject: make(map[string]map[PlanHash]bool),
	}
}

// Get returns the cached plan for hash, promoting it to most-recently-used.
func (pc *PlanCache) Get(hash PlanHash) (physical.Node, bool) {
	if pc.capacity <= 0 {
		return nil, false
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	el, ok := pc.items[hash]
	if !ok {
		return nil, false
	}
	pc.ll.MoveToFront(el)
	return el.Value.(*planCacheEntry).node, true
}

// Put inserts node under hash, recording objects as the set of table/view
// names the bind touched so a later InvalidateObject call can evict it.
// Evicts the least-recently-used entry if the cache is at capacity.
func (pc *PlanCache) Put(hash PlanHash, node physical.Node, objects []string) {
	if pc.capacity <= 0 {
		return
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if el, ok := pc.items[hash]; ok {
		pc.ll.MoveToFront(el)
		el.Value.(*planCacheEntry).node = node
		return
	}
	entry := &planCacheEntry{hash: hash, node: node, objects: objects}
	el := pc.ll.PushFront(entry)
	pc.items[hash] = el
	for _, obj := range objects {
		key := canonical(obj)
		if pc.byObject[key] == nil {
			pc.byObject[key] = make(map[PlanHash]bool)
		}
		pc.byObject[key][hash] = true
	}
	if pc.ll.Len() > pc.capacity {
		pc.evictOldest()
	}
}

func (pc *PlanCache) evictOldest() {
	oldest := pc.ll.Back()
	if oldest == nil {
		return
	}
	pc.removeElement(oldest)
}

// removeElement must be called with pc.mu held.
func (pc *PlanCache) removeElement(el *list.Element) {
	entry := el.Value.(*planCacheEntry)
	pc.ll.Remove(el)
	delete(pc.items, entry.hash)
	for _, obj := range entry.objects {
		key := canonical(obj)
		if set, ok := pc.byObject[key]; ok {
			delete(set, entry.hash)
			if len(set) == 0 {
				delete(pc.byObject, key)
			}
		}
	}
}

// InvalidateObject evicts every cached plan that referenced object name
// (canonicalized the same way table names are), used by CreateTable,
// DropTable, CreateView, and CreateFunction/CreateProcedure to keep the
// cache coherent with DDL.
func (pc *PlanCache) InvalidateObject(name string) {
	if pc.capacity <= 0 {
		return
	}
	key := canonical(name)
	pc.mu.Lock()
	defer pc.mu.Unlock()
	set, ok := pc.byObject[key]
	if !ok {
		return
	}
	for hash := range set {
		if el, ok := pc.items[hash]; ok {
			pc.removeElement(el)
		}
	}
}

// Len reports the number of entries currently cached.
func (pc *PlanCache) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.ll.Len()
}

// LookupPlan returns the cached physical plan for hash, if any, so a Session
// can skip planning/optimization on a repeat statement (spec §4.H).
func (c *Catalog) LookupPlan(hash PlanHash) (physical.Node, bool) {
	return c.plans.Get(hash)
}

// CachePlan records node under hash, tagged with the catalog objects it
// references so later DDL on any of them evicts it.
func (c *Catalog) CachePlan(hash PlanHash, node physical.Node, objects []string) {
	c.plans.Put(hash, node, objects)
}
