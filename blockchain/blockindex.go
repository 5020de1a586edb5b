// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"

	"github.com/meridianchain/mrdd/chaincfg"
	"github.com/meridianchain/mrdd/database"
	"github.com/meridianchain/mrdd/wire"
)

// medianTimeBlocks is the number of previous blocks which should be used to
// calculate the median time used to validate block timestamps.
const medianTimeBlocks = 11

// blockStatus is a bit field representing the validation state of the block.
type blockStatus byte

const (
	// statusNone indicates that the block has no validation state at all.
	statusNone blockStatus = 0

	// statusDataStored indicates that the block's payload is stored in the
	// database.
	statusDataStored blockStatus = 1 << 0

	// statusValidated indicates that the block has been fully validated.
	statusValidated blockStatus = 1 << 1

	// statusValidateFailed indicates that the block has failed validation.
	statusValidateFailed blockStatus = 1 << 2

	// statusInvalidAncestor indicates that one of the ancestors of the
	// block has failed validation, thus the block is also invalid.
	statusInvalidAncestor blockStatus = 1 << 3
)

// HaveData returns whether the full block data is stored in the database.
// This will return false for a block node where only the header is known.
func (status blockStatus) HaveData() bool {
	return status&statusDataStored != 0
}

// KnownValid returns whether the block is known to be valid.  This will
// return false for a valid block that has not been fully validated yet.
func (status blockStatus) KnownValid() bool {
	return status&statusValidated != 0
}

// KnownInvalid returns whether the block is known to be invalid.  This may be
// because the block itself failed validation or any of its ancestors is
// invalid.  This will return false for invalid blocks that have not been
// proven invalid yet.
func (status blockStatus) KnownInvalid() bool {
	return status&(statusValidateFailed|statusInvalidAncestor) != 0
}

// KnownValidateFailed returns whether the block is known to have failed
// validation.  A return value of false in no way implies the block is valid.
// Thus, this will return false for blocks that have not been proven to fail
// validation yet.
func (status blockStatus) KnownValidateFailed() bool {
	return status&statusValidateFailed != 0
}

// blockNode represents a block within the block index and is primarily used
// to aid in selecting the best chain to be the main chain.
//
// Nodes do not embed a pointer to their parent.  Instead the parent hash from
// the header is stored and resolved through the owning blockIndex, so every
// relationship between entries goes through the hash-keyed index.
type blockNode struct {
	// parentHash is the hash of the parent block.  It is all zeros for the
	// genesis block.
	parentHash chainhash.Hash

	// hash is the hash of the block this node represents.
	hash chainhash.Hash

	// workSum is the total amount of work in the chain up to and including
	// this node.
	workSum *big.Int

	// Some fields from block headers to aid in best chain selection and
	// reconstructing headers from memory.  These must be treated as
	// immutable.
	height       int64
	blockVersion int32
	bits         uint32
	nonce        uint64
	timestamp    int64
	merkleRoot   chainhash.Hash

	// status is a bitfield representing the validation state of the block.
	// This field, unlike most other fields, may be changed after the block
	// node is created, so it must only be accessed or updated using the
	// concurrent-safe NodeStatus, SetStatusFlags, and UnsetStatusFlags
	// methods on blockIndex once the node has been added to the index.
	status blockStatus
}

// newBlockNode returns a new block node for the given block header.  The
// workSum is calculated based on the parent, or, in the case no parent is
// provided, it will just be the work for the passed block.
func newBlockNode(blockHeader *wire.BlockHeader, parent *blockNode) *blockNode {
	node := blockNode{
		parentHash: blockHeader.PrevBlock,
		hash:       blockHeader.BlockHash(),
		workSum:    CalcWork(blockHeader.Bits),
		height:     int64(blockHeader.Height),

		blockVersion: blockHeader.Version,
		bits:         blockHeader.Bits,
		nonce:        blockHeader.Nonce,
		timestamp:    blockHeader.Timestamp.Unix(),
		merkleRoot:   blockHeader.MerkleRoot,
		status:       statusNone,
	}
	if parent != nil {
		node.workSum = node.workSum.Add(parent.workSum, node.workSum)
	}
	return &node
}

// Header constructs a block header from the node and returns it.
//
// This function is safe for concurrent access.
func (node *blockNode) Header() wire.BlockHeader {
	// No lock is needed because all accessed fields are immutable.
	return wire.BlockHeader{
		Version:    node.blockVersion,
		PrevBlock:  node.parentHash,
		MerkleRoot: node.merkleRoot,
		Timestamp:  time.Unix(node.timestamp, 0),
		Bits:       node.bits,
		Nonce:      node.nonce,
		Height:     uint32(node.height),
	}
}

// compareHashesAsUint256LE compares two raw hashes treated as if they were
// little-endian uint256s.  It returns 1 when a > b, -1 when a < b, and 0 when
// a == b.
func compareHashesAsUint256LE(a, b *chainhash.Hash) int {
	var ua, ub uint256.Uint256
	ua.SetBytesLE((*[32]byte)(a))
	ub.SetBytesLE((*[32]byte)(b))
	return ua.Cmp(&ub)
}

// workSorterLess returns whether node 'a' is a worse candidate than 'b' for
// the purposes of best chain selection.
//
// The criteria for determining what constitutes a worse candidate, in order
// of priority, is as follows:
//
// 1. Less total cumulative work
// 2. Hash that represents less work (larger value as a little-endian uint256)
//
// The ordering is total and depends only on the contents of the competing
// chains, never on arrival order, so the same set of blocks always resolves
// to the same best chain regardless of submission interleaving.
func workSorterLess(a, b *blockNode) bool {
	// First, sort by the total cumulative work.
	//
	// Blocks with less cumulative work are worse candidates for best chain
	// selection.
	if workCmp := a.workSum.Cmp(b.workSum); workCmp != 0 {
		return workCmp < 0
	}

	// Fall back to sorting based on the hash in the case the work is the
	// same.
	//
	// Note that it is more difficult to find hashes with more leading
	// zeros when treated as a little-endian uint256, so larger values
	// represent less work and are therefore worse candidates.
	return compareHashesAsUint256LE(&a.hash, &b.hash) > 0
}

// blockIndex provides facilities for keeping track of an in-memory index of
// the block chain.  Although the name block chain suggests a single chain of
// blocks, it is actually a tree-shaped structure where any node can have
// multiple children.  However, there can only be one active branch which does
// indeed form a chain from the tip all the way back to the genesis block.
//
// Every node is keyed by its block hash, and all ancestry traversal happens
// through hash lookups into that map.
type blockIndex struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	db          database.DB
	chainParams *chaincfg.Params

	sync.RWMutex
	index     map[chainhash.Hash]*blockNode
	chainTips map[chainhash.Hash]*blockNode
	modified  map[*blockNode]struct{}
}

// newBlockIndex returns a new empty instance of a block index.  The index
// will be dynamically populated as block nodes are loaded from the database
// and manually added.
func newBlockIndex(db database.DB, chainParams *chaincfg.Params) *blockIndex {
	return &blockIndex{
		db:          db,
		chainParams: chainParams,
		index:       make(map[chainhash.Hash]*blockNode),
		chainTips:   make(map[chainhash.Hash]*blockNode),
		modified:    make(map[*blockNode]struct{}),
	}
}

// HaveBlock returns whether or not the block index contains the provided
// hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) HaveBlock(hash *chainhash.Hash) bool {
	bi.RLock()
	_, hasBlock := bi.index[*hash]
	bi.RUnlock()
	return hasBlock
}

// lookupNode returns the block node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *blockIndex) lookupNode(hash *chainhash.Hash) *blockNode {
	return bi.index[*hash]
}

// LookupNode returns the block node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blockNode {
	bi.RLock()
	node := bi.lookupNode(hash)
	bi.RUnlock()
	return node
}

// parent returns the parent of the provided node resolved through the index.
// It returns nil for the genesis block, whose parent hash is all zeros.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *blockIndex) parent(node *blockNode) *blockNode {
	if node == nil {
		return nil
	}
	return bi.index[node.parentHash]
}

// Parent returns the parent of the provided node resolved through the index.
// It returns nil for the genesis block, whose parent hash is all zeros.
//
// This function is safe for concurrent access.
func (bi *blockIndex) Parent(node *blockNode) *blockNode {
	bi.RLock()
	parent := bi.parent(node)
	bi.RUnlock()
	return parent
}

// addNode adds the provided node to the block index and marks it as modified
// so that it is written to the database on the next flush.  Duplicate entries
// are not checked so it is up to the caller to avoid adding them.
//
// This function MUST be called with the block index lock held (for writes).
func (bi *blockIndex) addNode(node *blockNode) {
	bi.index[node.hash] = node
	bi.modified[node] = struct{}{}

	// The new node is a chain tip and its parent no longer is one.
	delete(bi.chainTips, node.parentHash)
	bi.chainTips[node.hash] = node
}

// AddNode adds the provided node to the block index and marks it as modified
// so that it is written to the database on the next flush.  Duplicate entries
// are not checked so it is up to the caller to avoid adding them.
//
// This function is safe for concurrent access.
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.Lock()
	bi.addNode(node)
	bi.Unlock()
}

// NodeStatus returns the status associated with the provided node.
//
// This function is safe for concurrent access.
func (bi *blockIndex) NodeStatus(node *blockNode) blockStatus {
	bi.RLock()
	status := node.status
	bi.RUnlock()
	return status
}

// SetStatusFlags sets the provided status flags for the given block node
// regardless of their previous state.  It does not unset any flags.
//
// This function is safe for concurrent access.
func (bi *blockIndex) SetStatusFlags(node *blockNode, flags blockStatus) {
	bi.Lock()
	node.status |= flags
	bi.modified[node] = struct{}{}
	bi.Unlock()
}

// UnsetStatusFlags unsets the provided status flags for the given block node
// regardless of their previous state.
//
// This function is safe for concurrent access.
func (bi *blockIndex) UnsetStatusFlags(node *blockNode, flags blockStatus) {
	bi.Lock()
	node.status &^= flags
	bi.modified[node] = struct{}{}
	bi.Unlock()
}

// ancestor returns the ancestor block node at the provided height by
// following the chain backwards from the given node through hash lookups.
// The returned block will be nil when a height is requested that is after the
// height of the passed node or is less than zero.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *blockIndex) ancestor(node *blockNode, height int64) *blockNode {
	if node == nil || height < 0 || height > node.height {
		return nil
	}

	n := node
	for n != nil && n.height != height {
		n = bi.index[n.parentHash]
	}
	return n
}

// Ancestor returns the ancestor block node at the provided height by
// following the chain backwards from the given node.  The returned block will
// be nil when a height is requested that is after the height of the passed
// node or is less than zero.
//
// This function is safe for concurrent access.
func (bi *blockIndex) Ancestor(node *blockNode, height int64) *blockNode {
	bi.RLock()
	ancestor := bi.ancestor(node, height)
	bi.RUnlock()
	return ancestor
}

// findFork returns the final common block between the provided nodes or nil
// when there is no common ancestor.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *blockIndex) findFork(node1, node2 *blockNode) *blockNode {
	if node1 == nil || node2 == nil {
		return nil
	}

	// Walk the deeper node back to the height of the shallower one.
	if node1.height > node2.height {
		node1 = bi.ancestor(node1, node2.height)
	} else if node2.height > node1.height {
		node2 = bi.ancestor(node2, node1.height)
	}

	// Walk both back in lockstep until they match.
	for node1 != nil && node1 != node2 {
		node1 = bi.index[node1.parentHash]
		node2 = bi.index[node2.parentHash]
	}
	return node1
}

// FindFork returns the final common block between the provided nodes or nil
// when there is no common ancestor.
//
// This function is safe for concurrent access.
func (bi *blockIndex) FindFork(node1, node2 *blockNode) *blockNode {
	bi.RLock()
	fork := bi.findFork(node1, node2)
	bi.RUnlock()
	return fork
}

// pastMedianTime calculates the median time of the previous few blocks prior
// to, and including, the provided block node.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *blockIndex) pastMedianTime(node *blockNode) time.Time {
	// Create a slice of the previous few block timestamps used to calculate
	// the median per the number defined by the constant medianTimeBlocks.
	timestamps := make([]int64, 0, medianTimeBlocks)
	for i := 0; i < medianTimeBlocks && node != nil; i++ {
		timestamps = append(timestamps, node.timestamp)
		node = bi.index[node.parentHash]
	}
	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i] < timestamps[j]
	})

	// NOTE: The consensus rules incorporate the median of an even number of
	// timestamps when there are not yet medianTimeBlocks in the chain, in
	// which case the median is the timestamp just after the midpoint.
	return time.Unix(timestamps[len(timestamps)/2], 0)
}

// PastMedianTime calculates the median time of the previous few blocks prior
// to, and including, the provided block node.
//
// This function is safe for concurrent access.
func (bi *blockIndex) PastMedianTime(node *blockNode) time.Time {
	bi.RLock()
	medianTime := bi.pastMedianTime(node)
	bi.RUnlock()
	return medianTime
}

// MarkBlockFailedValidation marks the passed block as having failed
// validation and then marks all of its descendants (if any) as having an
// invalid ancestor.
//
// This function is safe for concurrent access.
func (bi *blockIndex) MarkBlockFailedValidation(node *blockNode) {
	bi.Lock()
	node.status |= statusValidateFailed
	node.status &^= statusValidated
	bi.modified[node] = struct{}{}

	// Mark all descendants of the failed block as having an invalid
	// ancestor.  Since children are not tracked directly, walk from every
	// chain tip that descends from the failed node and mark the portion of
	// the branch below it.
	for _, tip := range bi.chainTips {
		if tip.height <= node.height {
			continue
		}
		// Collect the path from the tip down to (but not including) the
		// failed node, abandoning the walk when the branch turns out not
		// to descend from it.
		path := make([]*blockNode, 0, tip.height-node.height)
		n := tip
		for n != nil && n.height > node.height {
			path = append(path, n)
			n = bi.index[n.parentHash]
		}
		if n != node {
			continue
		}
		for _, descendant := range path {
			if descendant.status&statusInvalidAncestor == 0 {
				descendant.status |= statusInvalidAncestor
				bi.modified[descendant] = struct{}{}
			}
		}
	}
	bi.Unlock()
}

// ChainTips returns all of the chain tips, which are the blocks in the index
// that do not have any other known blocks building on top of them.
//
// This function is safe for concurrent access.
func (bi *blockIndex) ChainTips() []*blockNode {
	bi.RLock()
	tips := make([]*blockNode, 0, len(bi.chainTips))
	for _, tip := range bi.chainTips {
		tips = append(tips, tip)
	}
	bi.RUnlock()
	return tips
}

// bestTipCandidate returns the best candidate for the current main chain tip
// among all chain tips per the work sorting rules, ignoring tips that are
// known to be invalid or descend from an invalid block.
//
// This function is safe for concurrent access.
func (bi *blockIndex) bestTipCandidate() *blockNode {
	bi.RLock()
	var best *blockNode
	for _, tip := range bi.chainTips {
		if tip.status.KnownInvalid() {
			continue
		}
		if best == nil || workSorterLess(best, tip) {
			best = tip
		}
	}
	bi.RUnlock()
	return best
}

// clearModified empties the set of nodes pending a database flush.  It is
// used after loading the index from the database since those nodes are
// already stored.
func (bi *blockIndex) clearModified() {
	bi.Lock()
	bi.modified = make(map[*blockNode]struct{})
	bi.Unlock()
}

// flush writes all of the modified block nodes to the provided database
// transaction and clears the set of modified nodes when it succeeds.
//
// This function is safe for concurrent access.
func (bi *blockIndex) flush(dbTx database.Tx) error {
	bi.Lock()
	defer bi.Unlock()

	if len(bi.modified) == 0 {
		return nil
	}

	for node := range bi.modified {
		if err := dbPutBlockNode(dbTx, node); err != nil {
			return err
		}
	}
	bi.modified = make(map[*blockNode]struct{})
	return nil
}
