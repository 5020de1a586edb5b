// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package database defines the persistence contract used by the chainstate.

The interface is deliberately small: a key/value store with atomic
transactions.  A transaction observes a consistent snapshot of the store
taken when it begins, accumulates writes in memory, and applies all of them
atomically on Commit or none of them on Rollback.  Reads within a transaction
do not observe its own pending writes.

The ldb subpackage provides the goleveldb-backed implementation.
*/
package database
