// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sort"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/mrdutil"
	"github.com/meridianchain/mrdd/wire"
)

// ChainTipInfo models information about a chain tip.
type ChainTipInfo struct {
	// Height specifies the block height of the chain tip.
	Height int64

	// Hash specifies the block hash of the chain tip.
	Hash chainhash.Hash

	// BranchLen specifies the length of the branch that connects the chain
	// tip to the main chain.  It will be zero for the main chain tip.
	BranchLen int64

	// Status specifies the validation status of chain formed by the chain
	// tip.
	//
	// active:
	//   The current best chain tip.
	//
	// invalid:
	//   The block or one of its ancestors is invalid.
	//
	// valid-fork:
	//   The block is fully validated which implies it was probably part of
	//   the main chain at one point and was reorganized.
	//
	// valid-headers:
	//   The full block data is available and the block was never part of
	//   the main chain, so full validation of the branch has not taken
	//   place.
	Status string
}

// HaveBlock returns whether or not the chain instance has the block
// represented by the passed hash.  This includes checking the various places
// a block can be such as part of the main chain, on a side chain, or in the
// orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(hash *chainhash.Hash) bool {
	return b.index.HaveBlock(hash) || b.IsKnownOrphan(hash)
}

// MainChainHasBlock returns whether or not the block with the given hash is
// in the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainChainHasBlock(hash *chainhash.Hash) bool {
	node := b.index.LookupNode(hash)
	return node != nil && b.bestChain.Contains(node)
}

// BlockHeightByHash returns the height of the block with the given hash in
// the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHeightByHash(hash *chainhash.Hash) (int64, error) {
	node := b.index.LookupNode(hash)
	if node == nil || !b.bestChain.Contains(node) {
		str := fmt.Sprintf("block %s is not in the main chain", hash)
		return 0, contextError(ErrUnknownBlock, str)
	}

	return node.height, nil
}

// BlockHashByHeight returns the hash of the block at the given height in the
// main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHashByHeight(height int64) (*chainhash.Hash, error) {
	node := b.bestChain.NodeByHeight(height)
	if node == nil {
		str := fmt.Sprintf("no block at height %d exists", height)
		return nil, contextError(ErrUnknownBlock, str)
	}

	return &node.hash, nil
}

// HeaderByHash returns the block header identified by the given hash or an
// error if it doesn't exist.  Note that this will return headers from both
// the main chain and any side chains.
//
// This function is safe for concurrent access.
func (b *BlockChain) HeaderByHash(hash *chainhash.Hash) (wire.BlockHeader, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		str := fmt.Sprintf("block %s is not known", hash)
		return wire.BlockHeader{}, contextError(ErrUnknownBlock, str)
	}

	return node.Header(), nil
}

// HeaderByHeight returns the block header at the given height in the main
// chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) HeaderByHeight(height int64) (wire.BlockHeader, error) {
	node := b.bestChain.NodeByHeight(height)
	if node == nil {
		str := fmt.Sprintf("no block at height %d exists", height)
		return wire.BlockHeader{}, contextError(ErrUnknownBlock, str)
	}

	return node.Header(), nil
}

// BlockByHash returns the block from the main chain or side chain with the
// given hash.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockByHash(hash *chainhash.Hash) (*mrdutil.Block, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		str := fmt.Sprintf("block %s is not known", hash)
		return nil, contextError(ErrUnknownBlock, str)
	}

	// Return the block from the appropriate source depending on the
	// available caches and database.
	return b.fetchBlockByNode(node)
}

// BlockByHeight returns the block at the given height in the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockByHeight(height int64) (*mrdutil.Block, error) {
	node := b.bestChain.NodeByHeight(height)
	if node == nil {
		str := fmt.Sprintf("no block at height %d exists", height)
		return nil, contextError(ErrUnknownBlock, str)
	}

	return b.fetchBlockByNode(node)
}

// AncestorHashByHeight returns the hash of the ancestor of the block with the
// given hash at the given height.
//
// This function is safe for concurrent access.
func (b *BlockChain) AncestorHashByHeight(hash *chainhash.Hash, height int64) (*chainhash.Hash, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		str := fmt.Sprintf("block %s is not known", hash)
		return nil, contextError(ErrUnknownBlock, str)
	}

	ancestor := b.index.Ancestor(node, height)
	if ancestor == nil {
		str := fmt.Sprintf("block %s has no ancestor at height %d", hash,
			height)
		return nil, contextError(ErrUnknownBlock, str)
	}

	return &ancestor.hash, nil
}

// FindForkHash returns the hash of the final common ancestor between the
// blocks with the two given hashes.
//
// This function is safe for concurrent access.
func (b *BlockChain) FindForkHash(hashA, hashB *chainhash.Hash) (*chainhash.Hash, error) {
	nodeA := b.index.LookupNode(hashA)
	if nodeA == nil {
		str := fmt.Sprintf("block %s is not known", hashA)
		return nil, contextError(ErrUnknownBlock, str)
	}
	nodeB := b.index.LookupNode(hashB)
	if nodeB == nil {
		str := fmt.Sprintf("block %s is not known", hashB)
		return nil, contextError(ErrUnknownBlock, str)
	}

	fork := b.index.FindFork(nodeA, nodeB)
	if fork == nil {
		return nil, AssertError(fmt.Sprintf("FindForkHash: no common "+
			"ancestor between %s and %s", hashA, hashB))
	}
	return &fork.hash, nil
}

// MedianTimeByHash returns the median time of a block by the given hash or an
// error if it doesn't exist.
//
// This function is safe for concurrent access.
func (b *BlockChain) MedianTimeByHash(hash *chainhash.Hash) (time.Time, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		str := fmt.Sprintf("block %s is not known", hash)
		return time.Time{}, contextError(ErrUnknownBlock, str)
	}

	return b.index.PastMedianTime(node), nil
}

// ChainTips returns information, in JSON-RPC getchaintips style, about all of
// the currently known chain tips in the block index.
//
// This function is safe for concurrent access.
func (b *BlockChain) ChainTips() []ChainTipInfo {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	tips := b.index.ChainTips()
	result := make([]ChainTipInfo, 0, len(tips))
	bestTip := b.bestChain.Tip()
	for _, tip := range tips {
		result = append(result, ChainTipInfo{
			Height:    tip.height,
			Hash:      tip.hash,
			BranchLen: tip.height - b.bestChain.FindFork(tip).height,
			Status:    b.tipStatusString(tip, bestTip),
		})
	}

	// Generate the status for each tip in a stable order.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Height == result[j].Height {
			return result[i].BranchLen < result[j].BranchLen
		}
		return result[i].Height > result[j].Height
	})
	return result
}

// tipStatusString returns the status of the provided chain tip as a
// human-readable string.
func (b *BlockChain) tipStatusString(tip, bestTip *blockNode) string {
	switch {
	case tip == bestTip:
		return "active"
	case b.index.NodeStatus(tip).KnownInvalid():
		return "invalid"
	case b.index.NodeStatus(tip).KnownValid():
		return "valid-fork"
	default:
		return "valid-headers"
	}
}
