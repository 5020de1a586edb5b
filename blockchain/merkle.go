// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/mrdutil"
)

// hashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation.  This is a helper
// function used to aid in the generation of a merkle tree.
func hashMerkleBranches(left, right *chainhash.Hash) chainhash.Hash {
	// Concatenate the left and right nodes.
	var w [chainhash.HashSize * 2]byte
	copy(w[:chainhash.HashSize], left[:])
	copy(w[chainhash.HashSize:], right[:])
	return chainhash.HashH(w[:])
}

// calcMerkleRootFromLeaves calculates the merkle root from a slice of leaf
// hashes by building the merkle tree in place, replacing each row with the
// parent row as it goes.
//
// A merkle tree is a tree in which every non-leaf node is the hash of its
// children nodes.  When there is no right child for a parent, the left child
// is hashed with itself.  A diagram depicting how this works for transactions
// where h(x) is a blake256 hash follows:
//
//	         root = h1234 = h(h12 + h34)
//	        /                           \
//	  h12 = h(h1 + h2)            h34 = h(h3 + h4)
//	   /            \              /            \
//	h1 = h(tx1)  h2 = h(tx2)  h3 = h(tx3)  h4 = h(tx4)
//
// The leaves slice is reused as scratch space, so the caller must not rely on
// its contents after the call.
func calcMerkleRootFromLeaves(leaves []chainhash.Hash) chainhash.Hash {
	if len(leaves) == 0 {
		return chainhash.Hash{}
	}

	for len(leaves) > 1 {
		offset := 0
		for i := 0; i < len(leaves); i += 2 {
			if i+1 == len(leaves) {
				leaves[offset] = hashMerkleBranches(&leaves[i], &leaves[i])
			} else {
				leaves[offset] = hashMerkleBranches(&leaves[i],
					&leaves[i+1])
			}
			offset++
		}
		leaves = leaves[:offset]
	}
	return leaves[0]
}

// calcTxMerkleRoot calculates and returns the merkle root of the transaction
// hashes for all transactions in the provided block.
func calcTxMerkleRoot(block *mrdutil.Block) chainhash.Hash {
	transactions := block.Transactions()
	leaves := make([]chainhash.Hash, 0, len(transactions))
	for _, tx := range transactions {
		leaves = append(leaves, *tx.Hash())
	}
	return calcMerkleRootFromLeaves(leaves)
}
