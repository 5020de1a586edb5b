// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/meridianchain/mrdd/wire"
)

// genesisCoinbaseTx is the coinbase transaction for the genesis blocks of all
// networks.  Its sole output is unspendable since the provably empty pk
// script carries no value.
var genesisCoinbaseTx = wire.MsgTx{
	Version: 1,
	TxIn: []*wire.TxIn{{
		// Fully null.
		PreviousOutPoint: wire.OutPoint{
			Hash:  chainhash.Hash{},
			Index: 0xffffffff,
		},
		SignatureScript: []byte{
			0x4d, 0x65, 0x72, 0x69, 0x64, 0x69, 0x61, 0x6e, // "Meridian"
			0x20, 0x67, 0x65, 0x6e, 0x65, 0x73, 0x69, 0x73, // " genesis"
		},
		Sequence: 0xffffffff,
	}},
	TxOut: []*wire.TxOut{{
		Value:    0,
		Version:  0,
		PkScript: []byte{},
	}},
	LockTime: 0,
}

// genesisMerkleRoot is the hash of the first transaction in the genesis block
// for all networks.  A block with a single transaction has that transaction's
// hash as its merkle root.
var genesisMerkleRoot = genesisCoinbaseTx.TxHash()

// MainNet ---------------------------------------------------------------------

// mainNetGenesisBlock defines the genesis block of the block chain which
// serves as the public transaction ledger for the main network.
//
// The genesis block is not evaluated for proof of work.  The only values from
// it that are ever used elsewhere in the chain are:
// (1) The genesis block hash is used as the PrevBlock of height 1.
// (2) The difficulty starts off at the value given by Bits.
// (3) The timestamp, which guides when blocks can be built on top of it and
//     what the initial difficulty calculations come out to be.
var mainNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{}, // All zero.
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1693526400, 0), // 2023-09-01 00:00:00 +0000 UTC
		Bits:       0x1d00ffff,
		Nonce:      0,
		Height:     0,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// mainNetGenesisHash is the hash of the first block in the block chain for
// the main network.
var mainNetGenesisHash = mainNetGenesisBlock.BlockHash()

// TestNet ---------------------------------------------------------------------

// testNetGenesisBlock defines the genesis block of the block chain which
// serves as the public transaction ledger for the test network.
var testNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{}, // All zero.
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1693526401, 0), // 2023-09-01 00:00:01 +0000 UTC
		Bits:       0x1e00ffff,
		Nonce:      0,
		Height:     0,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// testNetGenesisHash is the hash of the first block in the block chain for
// the test network.
var testNetGenesisHash = testNetGenesisBlock.BlockHash()

// SimNet ----------------------------------------------------------------------

// simNetGenesisBlock defines the genesis block of the block chain which
// serves as the public transaction ledger for the simulation test network.
var simNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{}, // All zero.
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1693526402, 0), // 2023-09-01 00:00:02 +0000 UTC
		Bits:       0x207fffff,
		Nonce:      0,
		Height:     0,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// simNetGenesisHash is the hash of the first block in the block chain for the
// simulation test network.
var simNetGenesisHash = simNetGenesisBlock.BlockHash()
