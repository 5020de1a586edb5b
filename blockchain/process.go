// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/meridianchain/mrdd/database"
	"github.com/meridianchain/mrdd/mrdutil"
)

// BlockSource identifies where a block submitted for processing originated
// from.  Blocks relayed by peers are subject to slightly different acceptance
// semantics than blocks generated or imported locally, most notably that only
// a locally sourced genesis block may initialize the chain and that blocks
// with an unknown parent are held as orphans instead of being rejected.
type BlockSource int

const (
	// BlockSourceLocal indicates the block was generated or imported by the
	// local node.
	BlockSourceLocal BlockSource = iota

	// BlockSourcePeer indicates the block was relayed by a remote peer.
	BlockSourcePeer
)

// String returns the BlockSource in human-readable form.
func (s BlockSource) String() string {
	switch s {
	case BlockSourceLocal:
		return "local"
	case BlockSourcePeer:
		return "peer"
	}
	return fmt.Sprintf("unknown source (%d)", int(s))
}

// ProcessStatus describes the outcome of submitting a block for processing.
type ProcessStatus int

const (
	// StatusNewTip indicates the block was accepted and became the new tip
	// of the best chain, either by extending it or by causing a
	// reorganization to the branch it resides on.
	StatusNewTip ProcessStatus = iota

	// StatusSideChain indicates the block was fully validated and accepted
	// into the block index, but resides on a side chain that does not have
	// enough cumulative work to become the best chain.
	StatusSideChain

	// StatusOrphan indicates the parent of the block is not yet known, so
	// it has been held in the orphan pool pending the arrival of its
	// parent.  This is a deferred outcome rather than a rejection.
	StatusOrphan
)

// String returns the ProcessStatus in human-readable form.
func (s ProcessStatus) String() string {
	switch s {
	case StatusNewTip:
		return "accepted, new tip"
	case StatusSideChain:
		return "accepted, side chain"
	case StatusOrphan:
		return "pending parent"
	}
	return fmt.Sprintf("unknown status (%d)", int(s))
}

// maybeAcceptBlock potentially accepts a block into the block chain and, if
// accepted, returns the length of the fork the block extended.  It performs
// several validation checks which depend on its position within the block
// chain before adding it.  The block is expected to have already gone through
// ProcessBlock before calling this function with it.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) maybeAcceptBlock(block *mrdutil.Block, source BlockSource) (int64, error) {
	// The block must build on a known node and the branch it is building on
	// must not contain a block that is known to be invalid.
	prevHash := &block.MsgBlock().Header.PrevBlock
	prevNode := b.index.LookupNode(prevHash)
	if prevNode == nil {
		str := fmt.Sprintf("previous block %s is not known", prevHash)
		return 0, ruleError(ErrMissingParent, str)
	}
	if b.index.NodeStatus(prevNode).KnownInvalid() {
		str := fmt.Sprintf("previous block %s is known to be invalid",
			prevHash)
		return 0, ruleError(ErrInvalidAncestorBlock, str)
	}

	// The block must pass all of the validation rules which depend on
	// having the headers of all ancestors available.  Skip the checks when
	// they have already been performed successfully on this block recently.
	blockHash := block.Hash()
	if !b.recentContextChecks.Contains(*blockHash) {
		err := b.checkBlockContext(block, prevNode)
		if err != nil {
			return 0, err
		}
		b.recentContextChecks.Add(*blockHash)
	}

	// Create a new block node for the block and add it to the block index.
	// The block could either be on a side chain or the main chain, but it
	// starts off as a side chain regardless.
	header := &block.MsgBlock().Header
	newNode := newBlockNode(header, prevNode)
	newNode.status = statusDataStored
	b.index.AddNode(newNode)

	// Insert the block into the database and write any modified block index
	// entries along with it so the accepted block survives a restart even
	// when it does not end up on the best chain.
	err := b.db.Update(func(dbTx database.Tx) error {
		if err := dbPutBlock(dbTx, block); err != nil {
			return err
		}
		return b.index.flush(dbTx)
	})
	if err != nil {
		return 0, err
	}
	b.addRecentBlock(block)

	// Connect the passed block to the chain while respecting proper chain
	// selection according to the chain with the most proof of work.  This
	// also handles validation of the transaction scripts.
	forkLen, err := b.connectBestChain(newNode, block)
	if err != nil {
		return 0, err
	}

	// Notify the caller that the new block was accepted into the block
	// chain.  The caller would typically want to react by relaying the
	// inventory to other peers.
	bestHeight := b.bestChain.Tip().height
	b.sendNotification(NTBlockAccepted, &BlockAcceptedNtfnsData{
		BestHeight: bestHeight,
		ForkLen:    forkLen,
		Block:      block,
	})

	return forkLen, nil
}

// ProcessBlock is the main workhorse for handling insertion of new blocks
// into the block chain.  It includes functionality such as rejecting
// duplicate blocks, ensuring blocks follow all rules, orphan handling, and
// insertion into the block chain along with best chain selection and
// reorganization.
//
// The returned status indicates whether the block ended up as the new best
// chain tip, on a side chain, or held as an orphan pending the arrival of
// its parent.  When an error is returned, the status carries no meaning.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *mrdutil.Block, source BlockSource) (ProcessStatus, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	// The block must not already exist in the main chain or side chains.
	blockHash := block.Hash()
	if b.index.HaveBlock(blockHash) {
		str := fmt.Sprintf("already have block %v", blockHash)
		return 0, ruleError(ErrDuplicateBlock, str)
	}

	// The block must not already exist as an orphan.
	if b.IsKnownOrphan(blockHash) {
		str := fmt.Sprintf("already have block (orphan) %v", blockHash)
		return 0, ruleError(ErrDuplicateBlock, str)
	}

	log.Tracef("Processing block %v from %v", blockHash, source)

	// Perform preliminary sanity checks on the block and its transactions.
	err := checkBlockSanity(block, b.timeSource, b.chainParams)
	if err != nil {
		return 0, err
	}

	// The chain is bootstrapped with the genesis block of the network the
	// chain is associated with when it is created, so any block claiming to
	// be a new genesis block is rejected outright.  Note that a resubmission
	// of the actual genesis block is caught by the duplicate check above.
	header := &block.MsgBlock().Header
	if header.PrevBlock == *zeroHash {
		str := fmt.Sprintf("block %v claims to be a genesis block, but the "+
			"genesis block may only be installed locally when the chain is "+
			"created", blockHash)
		return 0, ruleError(ErrGenesisLocalOnly, str)
	}

	// Handle blocks that build on an unknown parent.  Blocks relayed by
	// peers are held as orphans pending the arrival of their parent since
	// the parent is likely still in flight, whereas locally sourced blocks
	// must always build on known history.
	prevHash := &header.PrevBlock
	if !b.index.HaveBlock(prevHash) {
		if source != BlockSourcePeer {
			str := fmt.Sprintf("previous block %s is not known", prevHash)
			return 0, ruleError(ErrMissingParent, str)
		}

		log.Infof("Adding orphan block %v with parent %v", blockHash,
			prevHash)
		b.addOrphanBlock(block)
		return StatusOrphan, nil
	}

	// The block has a known parent, so it is ready for full validation and
	// potential acceptance into the block index and chain.
	_, err = b.maybeAcceptBlock(block, source)
	if err != nil {
		return 0, err
	}

	// Determine the submission outcome before processing any dependent
	// orphans since those might extend the chain further.
	status := StatusSideChain
	if b.bestChain.Tip().hash == *blockHash {
		status = StatusNewTip
	}

	// Accept any orphan blocks that depend on this block (they are no
	// longer orphans) and repeat for those accepted blocks until there are
	// no more.
	err = b.processOrphans(blockHash)
	if err != nil {
		return 0, err
	}

	log.Debugf("Accepted block %v (%v)", blockHash, status)
	return status, nil
}
