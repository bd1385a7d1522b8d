package catalog

import (
	"sync"

	"github.com/google/uuid"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// Transaction tracks one open session transaction's write locks and
// pre-write snapshots (spec §4.H "Transactions"). The first write to table
// T takes T's write lock and copies T into the snapshot map; subsequent
// writes reuse the held lock; reads of T inside the transaction see the
// in-progress (write-locked) state.
type Transaction struct {
	ID        uuid.UUID
	mu        sync.Mutex
	snapshots map[string]*yachtsql.Table // canonical name -> pre-write clone
	held      map[string]bool            // canonical name -> write lock currently held by this txn
	catalog   *Catalog
}

// BeginTransaction starts a new Transaction against c.
func (c *Catalog) BeginTransaction() *Transaction {
	return &Transaction{
		ID:        uuid.New(),
		snapshots: make(map[string]*yachtsql.Table),
		held:      make(map[string]bool),
		catalog:   c,
	}
}

// WriteTable performs mutate against table name inside the transaction,
// taking the write lock and snapshotting the table on the first write to
// it, and reusing the held lock on subsequent writes (spec §4.H).
func (tx *Transaction) WriteTable(name string, mutate func(*yachtsql.Table) (*yachtsql.Table, error)) error {
	key := canonical(name)
	lt, err := tx.catalog.lockedTableFor(name)
	if err != nil {
		return err
	}

	tx.mu.Lock()
	firstWrite := !tx.held[key]
	tx.mu.Unlock()

	if firstWrite {
		lt.mu.Lock() // held until Commit/Rollback releases it
		tx.mu.Lock()
		tx.held[key] = true
		tx.snapshots[key] = lt.table.Clone()
		tx.mu.Unlock()
	}

	next, err := mutate(lt.table)
	if err != nil {
		return err
	}
	lt.table = next
	return nil
}

// ReadTable reads table name; if the transaction already holds its write
// lock, it reads the in-progress state directly (no further locking
// needed, since this goroutine is the lock holder) - otherwise it falls
// back to the catalog's normal read-locked snapshot.
func (tx *Transaction) ReadTable(name string) (*yachtsql.Table, error) {
	key := canonical(name)
	tx.mu.Lock()
	held := tx.held[key]
	tx.mu.Unlock()
	if !held {
		return tx.catalog.ReadTable(name)
	}
	lt, err := tx.catalog.lockedTableFor(name)
	if err != nil {
		return nil, err
	}
	return lt.table.Clone(), nil
}

// Commit drops the snapshot map and releases every held write lock (spec
// §4.H: "COMMIT drops the snapshot map and releases all held locks").
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for key := range tx.held {
		lt, err := tx.catalog.lockedTableFor(key)
		if err != nil {
			continue // table was dropped mid-transaction; nothing left to unlock
		}
		lt.mu.Unlock()
	}
	tx.snapshots = map[string]*yachtsql.Table{}
	tx.held = map[string]bool{}
	return nil
}

// Rollback restores each snapshotted table into the catalog before
// releasing its write lock (spec §4.H: "ROLLBACK restores each snapshot
// into the catalog before releasing").
func (tx *Transaction) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for key, snap := range tx.snapshots {
		lt, err := tx.catalog.lockedTableFor(key)
		if err != nil {
			continue
		}
		lt.table = snap
		lt.mu.Unlock()
	}
	tx.snapshots = map[string]*yachtsql.Table{}
	tx.held = map[string]bool{}
	return nil
}

// LockTablesInOrder acquires each of tx's eventual write targets in
// canonical-name order to avoid deadlock on multi-table statements (spec
// §4.H "Ordering"). Callers of a multi-table statement (Merge, Update with
// FROM writing to more than one table) should resolve their write target
// set up front and call this before issuing any WriteTable call.
func (tx *Transaction) LockTablesInOrder(names []string) {
	for _, name := range SortedForLocking(names) {
		key := canonical(name)
		tx.mu.Lock()
		already := tx.held[key]
		tx.mu.Unlock()
		if already {
			continue
		}
		lt, err := tx.catalog.lockedTableFor(name)
		if err != nil {
			continue
		}
		lt.mu.Lock()
		tx.mu.Lock()
		tx.held[key] = true
		tx.snapshots[key] = lt.table.Clone()
		tx.mu.Unlock()
	}
}

var _ = yachtsql.ErrTransactionConflict // referenced by executor callers constructing transaction-conflict errors
