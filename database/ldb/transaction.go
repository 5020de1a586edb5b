// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/meridianchain/mrdd/database"
)

// transaction is a goleveldb-backed implementation of database.Tx.  Reads go
// through a snapshot taken when the transaction began, while writes
// accumulate in a batch that is written out atomically on Commit.
type transaction struct {
	ldb      *leveldb.DB
	snapshot *leveldb.Snapshot
	batch    *leveldb.Batch
	isClosed bool
}

// Compile-time assertion that transaction implements the database.Tx
// interface.
var _ database.Tx = (*transaction)(nil)

// Get returns the value for the given key as of the transaction's snapshot.
// It returns a nil value and a nil error when the key does not exist.
//
// This is part of the database.Tx interface implementation.
func (tx *transaction) Get(key []byte) ([]byte, error) {
	if tx.isClosed {
		return nil, database.MakeError(database.ErrTxClosed,
			"cannot get from a closed transaction")
	}

	value, err := tx.snapshot.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return value, nil
}

// Has returns whether the given key exists as of the transaction's snapshot.
//
// This is part of the database.Tx interface implementation.
func (tx *transaction) Has(key []byte) (bool, error) {
	if tx.isClosed {
		return false, database.MakeError(database.ErrTxClosed,
			"cannot inspect a closed transaction")
	}

	exists, err := tx.snapshot.Has(key, nil)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return exists, nil
}

// Put buffers a write of the value for the given key.
//
// This is part of the database.Tx interface implementation.
func (tx *transaction) Put(key, value []byte) error {
	if tx.isClosed {
		return database.MakeError(database.ErrTxClosed,
			"cannot put into a closed transaction")
	}

	tx.batch.Put(key, value)
	return nil
}

// Delete buffers removal of the given key.
//
// This is part of the database.Tx interface implementation.
func (tx *transaction) Delete(key []byte) error {
	if tx.isClosed {
		return database.MakeError(database.ErrTxClosed,
			"cannot delete from a closed transaction")
	}

	tx.batch.Delete(key)
	return nil
}

// ForEachPrefix invokes fn with every key/value pair whose key starts with
// the given prefix, in ascending key order, as of the transaction's snapshot.
//
// This is part of the database.Tx interface implementation.
func (tx *transaction) ForEachPrefix(prefix []byte, fn func(key, value []byte) error) error {
	if tx.isClosed {
		return database.MakeError(database.ErrTxClosed,
			"cannot iterate a closed transaction")
	}

	iter := tx.snapshot.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return errors.WithStack(iter.Error())
}

// Commit atomically applies all buffered writes to the store.
//
// This is part of the database.Tx interface implementation.
func (tx *transaction) Commit() error {
	if tx.isClosed {
		return database.MakeError(database.ErrTxClosed,
			"cannot commit a closed transaction")
	}

	tx.isClosed = true
	tx.snapshot.Release()
	return errors.WithStack(tx.ldb.Write(tx.batch, nil))
}

// Rollback discards all buffered writes.
//
// This is part of the database.Tx interface implementation.
func (tx *transaction) Rollback() error {
	if tx.isClosed {
		return database.MakeError(database.ErrTxClosed,
			"cannot rollback a closed transaction")
	}

	tx.isClosed = true
	tx.snapshot.Release()
	tx.batch.Reset()
	return nil
}
