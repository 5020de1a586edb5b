// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/meridianchain/mrdd/database"
)

// LevelDB is a goleveldb-backed implementation of database.DB.
type LevelDB struct {
	ldb      *leveldb.DB
	isClosed bool
}

// Compile-time assertion that LevelDB implements the database.DB interface.
var _ database.DB = (*LevelDB)(nil)

// NewDB opens the leveldb database at the given path, creating it if it does
// not exist.  If the database is corrupted, an attempt is made to recover as
// much of it as possible.
func NewDB(path string) (*LevelDB, error) {
	ldb, err := leveldb.OpenFile(path, nil)

	// If the database is corrupted, attempt to recover.
	if _, corrupted := err.(*ldberrors.ErrCorrupted); corrupted {
		log.Warnf("LevelDB corruption detected for path %s: %s", path, err)
		ldb, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, database.MakeError(database.ErrCorruption,
				err.Error())
		}
		log.Warnf("LevelDB recovered from corruption for path %s", path)
	}

	// If the database cannot be opened for any other reason, return the
	// error as-is.
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &LevelDB{ldb: ldb}, nil
}

// NewMemDB returns a LevelDB instance backed entirely by memory.  It is
// intended for use in tests.
func NewMemDB() (*LevelDB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &LevelDB{ldb: ldb}, nil
}

// Close closes the database.  All transactions must be closed before closing
// the database.
//
// This is part of the database.DB interface implementation.
func (db *LevelDB) Close() error {
	if db.isClosed {
		return database.MakeError(database.ErrClosed,
			"database is already closed")
	}
	db.isClosed = true
	return errors.WithStack(db.ldb.Close())
}

// Begin starts a transaction against the database.
//
// This is part of the database.DB interface implementation.
func (db *LevelDB) Begin() (database.Tx, error) {
	if db.isClosed {
		return nil, database.MakeError(database.ErrClosed,
			"cannot begin a transaction on a closed database")
	}

	snapshot, err := db.ldb.GetSnapshot()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &transaction{
		ldb:      db.ldb,
		snapshot: snapshot,
		batch:    new(leveldb.Batch),
	}, nil
}

// View invokes fn with a transaction and rolls it back when fn returns,
// regardless of outcome.
//
// This is part of the database.DB interface implementation.
func (db *LevelDB) View(fn func(tx database.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	return fn(tx)
}

// Update invokes fn with a transaction and commits it when fn returns nil,
// or rolls it back when fn returns an error.
//
// This is part of the database.DB interface implementation.
func (db *LevelDB) Update(fn func(tx database.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
