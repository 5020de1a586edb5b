// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

// Tx represents a database transaction.  It observes a consistent snapshot of
// the store taken when it began and buffers all writes until Commit, which
// applies them atomically.  Reads within a transaction do not observe its own
// pending writes.
//
// A transaction must not be used after Commit or Rollback has been called.
type Tx interface {
	// Get returns the value for the given key.  It returns a nil value and
	// a nil error when the key does not exist.  The returned slice must
	// not be modified by the caller.
	Get(key []byte) ([]byte, error)

	// Has returns whether the given key exists.
	Has(key []byte) (bool, error)

	// Put buffers a write of the value for the given key.
	Put(key, value []byte) error

	// Delete buffers removal of the given key.  Deleting a key that does
	// not exist is not an error.
	Delete(key []byte) error

	// ForEachPrefix invokes fn with every key/value pair whose key starts
	// with the given prefix, in ascending key order.  Iteration stops early
	// when fn returns an error, which is propagated to the caller.  The key
	// and value slices are only valid for the duration of the call.
	ForEachPrefix(prefix []byte, fn func(key, value []byte) error) error

	// Commit atomically applies all buffered writes to the store.
	Commit() error

	// Rollback discards all buffered writes.
	Rollback() error
}

// DB represents the persistence layer for the chainstate.
type DB interface {
	// Begin starts a transaction.
	Begin() (Tx, error)

	// View invokes fn with a transaction and rolls it back when fn
	// returns, regardless of outcome.
	View(fn func(tx Tx) error) error

	// Update invokes fn with a transaction and commits it when fn returns
	// nil, or rolls it back when fn returns an error.
	Update(fn func(tx Tx) error) error

	// Close releases all database resources.  Transactions must not be
	// used after the database is closed.
	Close() error
}
