// Package arkdb is the public facade over the embedded object
// database core: a DB opens a data file and hands out View (read)
// and Update (write) transactions over its internal/group.Group, per
// SPEC_FULL §8's "idiomatic Go shape for one read txn helper, one
// write txn helper" on top of internal/txn.Manager.
package arkdb

import (
	"fmt"

	"arkdb/internal/group"
	"arkdb/internal/txn"
)

// OpenOptions configures Open.
type OpenOptions struct {
	// Durability selects the write-commit durability mode, per
	// spec.md §4.7's "Durability modes". Zero value is DurabilityFull.
	Durability txn.DurabilityMode
}

// DB is a handle on one open database file.
type DB struct {
	mgr *txn.Manager
}

// Open attaches to the data file at path, creating it if it doesn't
// exist, per spec.md §4.7's attach/create behavior.
func Open(path string, opts OpenOptions) (*DB, error) {
	mgr, err := txn.Open(path, opts.Durability)
	if err != nil {
		return nil, fmt.Errorf("arkdb: open %q: %w", path, err)
	}
	return &DB{mgr: mgr}, nil
}

// Close releases the database file and its lock file.
func (db *DB) Close() error {
	return db.mgr.Close()
}

// Tx is the handle a View/Update callback receives; Group exposes the
// table/schema API of internal/group for the duration of the
// callback.
type Tx struct {
	group *group.Group
}

// Group returns the transaction's Group.
func (tx *Tx) Group() *group.Group { return tx.group }

// View runs fn against a read snapshot of the database as of the
// moment View is called, per spec.md §4.7's "Reader snapshot
// acquisition". The snapshot is released when fn returns, regardless
// of whether fn returned an error.
func (db *DB) View(fn func(*Tx) error) error {
	snap, err := db.mgr.BeginRead()
	if err != nil {
		return fmt.Errorf("arkdb: view: %w", err)
	}
	defer func() { _ = snap.Release() }()

	return fn(&Tx{group: snap.Group()})
}

// Update runs fn against a fresh write transaction. If fn returns nil,
// the transaction is committed; any error from fn or from Commit
// itself rolls the transaction back and is returned, per spec.md
// §4.7's "Writer commit"/"Cancellation and timeouts" semantics.
func (db *DB) Update(fn func(*Tx) error) (err error) {
	wtx, err := db.mgr.BeginWrite()
	if err != nil {
		return fmt.Errorf("arkdb: update: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = wtx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&Tx{group: wtx.Group()}); err != nil {
		if rbErr := wtx.Rollback(); rbErr != nil {
			return fmt.Errorf("arkdb: update: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if _, err := wtx.Commit(wtx.Group()); err != nil {
		return fmt.Errorf("arkdb: update: commit: %w", err)
	}
	return nil
}
