package executor

import yachtsql "github.com/lychee-technology/yachtsql"

// execBeginTransaction opens a transaction and binds it to e, so every
// subsequent statement this Executor runs (until COMMIT/ROLLBACK) reads and
// writes through the transaction's snapshot (spec §4.H).
func (e *Executor) execBeginTransaction() error {
	if e.tx != nil {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "a transaction is already open")
	}
	e.tx = e.Catalog.BeginTransaction()
	return nil
}

// execCommit persists the open transaction's writes and releases its locks.
func (e *Executor) execCommit() error {
	if e.tx == nil {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "COMMIT with no open transaction")
	}
	err := e.tx.Commit()
	e.tx = nil
	return err
}

// execRollback discards the open transaction's writes and releases its
// locks.
func (e *Executor) execRollback() error {
	if e.tx == nil {
		return yachtsql.NewError(yachtsql.ErrInvalidQuery, "ROLLBACK with no open transaction")
	}
	err := e.tx.Rollback()
	e.tx = nil
	return err
}
