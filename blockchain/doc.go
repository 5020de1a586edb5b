// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package blockchain implements Meridian block handling and chain selection
rules.

The Meridian block handling and chain selection rules are an integral, and
beyond critical, part of the network which includes enforcing all of the
consensus rules.  At its core, this package provides support for inserting
new blocks into the block chain according to the aforementioned rules.  It
includes functionality such as rejecting duplicate blocks, ensuring blocks
and transactions follow all rules, and best chain selection along with
reorganization.

Since this package does not deal with other Meridian specifics such as
network communication, it provides a notification system which gives the
caller a high level of flexibility in how they want to react to certain
events such as newly connected blocks which might result in wallet updates.

# Block Processing Overview

Before a block is allowed into the block chain, it must go through an
intensive series of validation rules.  The following list serves as a general
outline of those rules to provide some intuition into what is going on under
the hood, but is by no means exhaustive:

  - Reject duplicate blocks
  - Perform a series of sanity checks on the block and its transactions such
    as verifying proof of work, timestamps, number and character of
    transactions, transaction amounts, script complexity, and merkle root
    calculations
  - Save the most recent orphan blocks for a limited time in case their
    parent blocks become available
  - Stop processing if the block is an orphan as the rest of the processing
    depends on the block's position within the block chain
  - Perform a series of validation rules that depend on the block's position
    within the block chain such as verifying block difficulties adhere to
    difficulty retarget rules, timestamps are after the median of the last
    several blocks, and block versions are in line with the activated
    consensus upgrades
  - When a block is being connected to the main chain (either through
    extending the main chain or via a reorganization), perform further checks
    on the block's transactions such as verifying transaction duplicates,
    script complexity for the combination of connected scripts, coinbase
    maturity, double spends, and connected transaction values
  - Run the transaction scripts to verify the spender is allowed to spend the
    coins
  - Insert the block into the block database

# Errors

Errors returned by this package are either the raw errors provided by
underlying calls or of type blockchain.RuleError.  Since there are two
classes of rules (one for block acceptance and one for block connection),
the caller needs to check the error via errors.As and react accordingly.
*/
package blockchain
