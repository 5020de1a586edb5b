// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"

	"github.com/meridianchain/mrdd/database"
	"github.com/meridianchain/mrdd/database/ldb"
)

// blockDbName is the name of the directory within the data directory that
// houses the block database.
const blockDbName = "blocks_leveldb"

// blockDbPath returns the path to the block database.
func blockDbPath() string {
	return filepath.Join(cfg.DataDir, blockDbName)
}

// loadBlockDB loads (or creates when needed) the block database and returns a
// handle to it.
func loadBlockDB() (database.DB, error) {
	// Create the data dir if it does not exist.
	err := os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		return nil, err
	}

	dbPath := blockDbPath()
	mrddLog.Infof("Loading block database from '%s'", dbPath)
	db, err := ldb.NewDB(dbPath)
	if err != nil {
		return nil, err
	}

	mrddLog.Info("Block database loaded")
	return db, nil
}
