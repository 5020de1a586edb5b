// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"

	"github.com/meridianchain/mrdd/chaincfg"
	"github.com/meridianchain/mrdd/database"
	"github.com/meridianchain/mrdd/mrdutil"
	"github.com/meridianchain/mrdd/txscript"
)

const (
	// recentBlockCacheSize is the number of recent blocks to keep in memory.
	// This value is set based on the target block time such that there is
	// typically around one hour of blocks cached.  It is also large enough
	// to serve the vast majority of reorgs without hitting the database.
	recentBlockCacheSize = 12

	// contextCheckCacheSize is the number of recent successful contextual
	// block check results to keep in memory.
	contextCheckCacheSize = 25
)

// zeroHash is the zero value for a chainhash.Hash and is defined as a package
// level variable to avoid the need to create a new instance every time a
// check is needed.
var zeroHash = &chainhash.Hash{}

// panicf is a convenience function that formats according to the given format
// specifier and arguments and then panics with it.
func panicf(format string, args ...interface{}) {
	str := fmt.Sprintf(format, args...)
	log.Critical(str)
	panic(str)
}

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view
// of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur as the function name implies.
// However, the returned snapshot must be treated as immutable since it is
// shared by all callers.
type BestState struct {
	Hash       chainhash.Hash // The hash of the block.
	PrevHash   chainhash.Hash // The previous block hash.
	Height     int64          // The height of the block.
	Bits       uint32         // The difficulty bits of the block.
	BlockSize  uint64         // The size of the block.
	NumTxns    uint64         // The number of txns in the block.
	TotalTxns  uint64         // The total number of txns in the chain.
	MedianTime time.Time      // Median time as per PastMedianTime.
}

// newBestState returns a new best stats instance for the given parameters.
func newBestState(node *blockNode, blockSize, numTxns, totalTxns uint64, medianTime time.Time) *BestState {
	return &BestState{
		Hash:       node.hash,
		PrevHash:   node.parentHash,
		Height:     node.height,
		Bits:       node.bits,
		BlockSize:  blockSize,
		NumTxns:    numTxns,
		TotalTxns:  totalTxns,
		MedianTime: medianTime,
	}
}

// BlockChain provides functions for working with the Meridian block chain.
// It includes functionality such as rejecting duplicate blocks, ensuring
// blocks follow all rules, and best chain selection with reorganization.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	db            database.DB
	chainParams   *chaincfg.Params
	timeSource    MedianTimeSource
	notifications NotificationCallback
	sigCache      *txscript.SigCache

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// These fields are related to the memory block index.  They both have
	// their own locks, however they are often also protected by the chain
	// lock to help prevent logic races when blocks are being processed.
	//
	// index houses the entire block index in memory.  The block index is
	// a tree-shaped structure.
	//
	// bestChain tracks the current active chain by making use of an
	// efficient chain view into the block index.
	index     *blockIndex
	bestChain *chainView

	// These fields house caches for blocks to facilitate faster chain
	// reorgs, block connection, and more efficient recent block serving.
	//
	// recentBlocks houses a block cache of block data that has been seen
	// recently.
	//
	// recentContextChecks tracks recent blocks that have successfully
	// passed all contextual checks and is primarily used as an
	// optimization to avoid running the checks again when possible.
	recentBlocks        lru.KVCache
	recentContextChecks lru.Cache

	// These fields are related to handling of orphan blocks.  They are
	// protected by a combination of the chain lock and the orphan lock.
	orphanLock   sync.RWMutex
	orphans      map[chainhash.Hash]*orphanBlock
	prevOrphans  map[chainhash.Hash][]*orphanBlock
	oldestOrphan *orphanBlock

	// The state is used as a fairly efficient way to cache information
	// about the current best chain state that is returned to callers when
	// requested.  It operates on the principle of MVCC such that any time
	// a new block becomes the best block, the state pointer is replaced
	// with a new struct and the old state is left untouched.  In this way,
	// multiple callers can be pointing to different best chain states.
	// This is acceptable for most callers because the state is only being
	// queried at a specific point in time.
	//
	// In addition, some of the fields are stored in the database so the
	// chain state can be quickly reconstructed on load.
	stateLock     sync.RWMutex
	stateSnapshot *BestState
}

// addRecentBlock adds the passed block to the lru cache of recent blocks.
func (b *BlockChain) addRecentBlock(block *mrdutil.Block) {
	b.recentBlocks.Add(*block.Hash(), block)
}

// lookupRecentBlock attempts to return the requested block from the lru cache
// of recent blocks along with a flag that indicates whether or not it was
// found.
func (b *BlockChain) lookupRecentBlock(hash *chainhash.Hash) (*mrdutil.Block, bool) {
	block, ok := b.recentBlocks.Lookup(*hash)
	if ok {
		return block.(*mrdutil.Block), true
	}
	return nil, false
}

// fetchBlockByNode returns the block associated with the given node all known
// sources such as the internal caches and the database.
//
// This function is safe for concurrent access.
func (b *BlockChain) fetchBlockByNode(node *blockNode) (*mrdutil.Block, error) {
	// Ensure the block data for the node has actually been stored before
	// attempting to load it.
	if !b.index.NodeStatus(node).HaveData() {
		str := fmt.Sprintf("block %s is not known to have data stored",
			node.hash)
		return nil, contextError(ErrUnknownBlock, str)
	}

	// Check recent blocks first.
	if block, ok := b.lookupRecentBlock(&node.hash); ok {
		return block, nil
	}

	// Load the block from the database.
	var block *mrdutil.Block
	err := b.db.View(func(dbTx database.Tx) error {
		var err error
		block, err = dbFetchBlockByHash(dbTx, &node.hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, AssertError(fmt.Sprintf("fetchBlockByNode: missing "+
			"block data for %s which is marked as stored", node.hash))
	}
	return block, nil
}

// flushBlockIndex writes any block index entries that have been modified to
// the database.
func (b *BlockChain) flushBlockIndex() error {
	return b.db.Update(func(dbTx database.Tx) error {
		return b.index.flush(dbTx)
	})
}

// flushBlockIndexWarnOnly attempts to flush any modified block index entries
// to the database and will log a warning if it fails.
//
// NOTE: This MUST only be used in the specific circumstances where failure to
// flush only results in a worst case scenario of requiring the block to be
// validated again on a future restart.
func (b *BlockChain) flushBlockIndexWarnOnly() {
	if err := b.flushBlockIndex(); err != nil {
		log.Warnf("Unable to flush block index changes: %v", err)
	}
}

// connectBlock handles connecting the passed node/block to the end of the
// main (best) chain.
//
// This passed utxo view must have all referenced txos the block spends marked
// as spent and all of the new txos the block creates added to it.  In
// addition, the passed stxos slice must be populated with all of the
// information for the spent txos.
//
// All of the resulting state changes are atomically persisted to the database
// in a single transaction.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectBlock(node *blockNode, block *mrdutil.Block, view *UtxoViewpoint, stxos []spentTxOut) error {
	// Make sure it's extending the end of the best chain.
	prevHash := block.MsgBlock().Header.PrevBlock
	tip := b.bestChain.Tip()
	if prevHash != tip.hash {
		panicf("block %v (height %v) connects to block %v instead of "+
			"extending the best chain (hash %v, height %v)", node.hash,
			node.height, prevHash, tip.hash, tip.height)
	}

	// Sanity check the correct number of stxos are provided.
	if len(stxos) != countSpentOutputs(block) {
		panicf("provided %v stxos for block %v (height %v) which spends %v "+
			"outputs", len(stxos), node.hash, node.height,
			countSpentOutputs(block))
	}

	// Generate a new best state snapshot that will be used to update the
	// database and later memory if all database updates are successful.
	b.stateLock.RLock()
	curTotalTxns := b.stateSnapshot.TotalTxns
	b.stateLock.RUnlock()
	numTxns := uint64(len(block.MsgBlock().Transactions))
	blockSize := uint64(block.MsgBlock().SerializeSize())
	state := newBestState(node, blockSize, numTxns, curTotalTxns+numTxns,
		b.index.PastMedianTime(node))

	// Atomically insert info into the database.
	err := b.db.Update(func(dbTx database.Tx) error {
		// Update best block state.
		err := dbPutBestState(dbTx, state, node.workSum)
		if err != nil {
			return err
		}

		// Update the utxo set using the state of the utxo view.  This
		// entails removing all of the utxos spent and adding the new ones
		// created by the block.
		err = dbPutUtxoView(dbTx, view)
		if err != nil {
			return err
		}

		// Update the transaction spend journal by adding a record for the
		// block that contains all txos spent by it.
		err = dbPutSpendJournalEntry(dbTx, block.Hash(), stxos)
		if err != nil {
			return err
		}

		// Write any modified block index entries to the database.
		return b.index.flush(dbTx)
	})
	if err != nil {
		return err
	}

	// Prune fully spent entries and mark all entries in the view unmodified
	// now that the modifications have been committed to the database.
	view.commit()

	// This node is now the end of the best chain.
	b.bestChain.SetTip(node)

	// Update the state for the best block.  Notice how this replaces the
	// entire struct instead of updating the existing one.  This effectively
	// allows the old version to act as a snapshot which callers can use
	// freely without needing to hold a lock for the duration.  See the
	// comments on the state variable for more details.
	b.stateLock.Lock()
	b.stateSnapshot = state
	b.stateLock.Unlock()

	b.addRecentBlock(block)

	// Notify the caller that the block was connected to the main chain.
	// The caller would typically want to react with actions such as
	// updating wallets.
	b.sendNotification(NTBlockConnected, &BlockConnectedNtfnsData{
		Block: block,
	})

	return nil
}

// reorganizeChainInternal attempts to reorganize the block chain to the
// provided target without attempting to undo failed reorgs.
//
// The block chain is reorganized by disconnecting the blocks that form the
// chain between the current best chain tip and the fork point between it and
// the provided target and connecting the blocks that form the chain between
// the fork point and the target.
//
// All of the undo data and utxo set mutations for the entire reorganization
// accumulate in memory and are atomically persisted to the database in a
// single transaction, so a crash at any point leaves the stored chain state
// at either the old tip or the new one, never in between.
//
// This function may modify the validation state of nodes in the block index
// without flushing in the case the chain is not able to reorganize due to a
// block failing to connect.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) reorganizeChainInternal(target *blockNode) error {
	// Find the fork point between the current tip and target block.
	tip := b.bestChain.Tip()
	fork := b.index.FindFork(tip, target)

	// Disconnect all of the blocks back to the point of the fork.  This
	// entails creating a new utxo view that mirrors the current state of
	// the chain, loading the blocks being disconnected along with their
	// associated spend journals, and spending all of the txos created by
	// the blocks while unspending all of the txos they spent.
	view := NewUtxoViewpoint()
	view.SetBestHash(&tip.hash)
	var detachBlocks []*mrdutil.Block
	var disconnectTotalTxns uint64
	for n := tip; n != nil && n != fork; n = b.index.Parent(n) {
		// Grab the block to detach based on the node.
		block, err := b.fetchBlockByNode(n)
		if err != nil {
			return err
		}

		// Load all of the utxos referenced by the block that aren't
		// already in the view.
		err = view.fetchBlockUtxos(b.db, block)
		if err != nil {
			return err
		}

		// Load all of the spent txos for the block from the spend journal.
		var stxos []spentTxOut
		err = b.db.View(func(dbTx database.Tx) error {
			stxos, err = dbFetchSpendJournalEntry(dbTx, block.Hash())
			return err
		})
		if err != nil {
			return err
		}
		if len(stxos) != countSpentOutputs(block) {
			return AssertError(fmt.Sprintf("reorganizeChainInternal: "+
				"spend journal for block %s contains %d entries while the "+
				"block spends %d outputs", n.hash, len(stxos),
				countSpentOutputs(block)))
		}

		// Update the view to unspend all of the spent txos and remove the
		// utxos created by the block.
		err = view.disconnectTransactions(block, &n.parentHash, stxos)
		if err != nil {
			return err
		}

		detachBlocks = append(detachBlocks, block)
		disconnectTotalTxns += uint64(len(block.MsgBlock().Transactions))
	}

	// Determine the blocks to attach after the fork point.  Each block is
	// added to the slice from back to front so they are attached in the
	// appropriate order when iterating the slice below.
	attachNodes := make([]*blockNode, target.height-fork.height)
	for n := target; n != nil && n != fork; n = b.index.Parent(n) {
		attachNodes[n.height-fork.height-1] = n
	}

	// Validate and connect each of the blocks that form the new chain to
	// the view.  Note that all of the connections still happen purely in
	// memory against the view so a validation failure at any point aborts
	// the reorganization with no changes to the stored chain state.
	attachBlocks := make([]*mrdutil.Block, 0, len(attachNodes))
	attachStxos := make([][]spentTxOut, 0, len(attachNodes))
	var connectTotalTxns uint64
	for _, n := range attachNodes {
		block, err := b.fetchBlockByNode(n)
		if err != nil {
			return err
		}

		// Validate the block against the view and connect all of its
		// transactions to it.  In the case the block fails validation, mark
		// it and all of its descendants as invalid and abort the reorg.
		stxos := make([]spentTxOut, 0, countSpentOutputs(block))
		err = b.checkConnectBlock(n, block, view, &stxos)
		if err != nil {
			var rerr RuleError
			if errors.As(err, &rerr) {
				b.index.MarkBlockFailedValidation(n)
				b.flushBlockIndexWarnOnly()
				b.sendNotification(NTBlockRejected, &BlockRejectedNtfnsData{
					Hash: n.hash,
					Err:  err,
				})
			}
			return err
		}
		b.index.SetStatusFlags(n, statusValidated)

		attachBlocks = append(attachBlocks, block)
		attachStxos = append(attachStxos, stxos)
		connectTotalTxns += uint64(len(block.MsgBlock().Transactions))
	}

	// Generate a new best state snapshot for the new tip.
	b.stateLock.RLock()
	curTotalTxns := b.stateSnapshot.TotalTxns
	b.stateLock.RUnlock()
	newTotalTxns := curTotalTxns - disconnectTotalTxns + connectTotalTxns
	var numTxns, blockSize uint64
	if len(attachBlocks) > 0 {
		tipBlock := attachBlocks[len(attachBlocks)-1]
		numTxns = uint64(len(tipBlock.MsgBlock().Transactions))
		blockSize = uint64(tipBlock.MsgBlock().SerializeSize())
	}
	state := newBestState(target, blockSize, numTxns, newTotalTxns,
		b.index.PastMedianTime(target))

	// Atomically persist the entire reorganization in a single database
	// transaction.  This removes the spend journal entries of all of the
	// disconnected blocks, adds entries for all of the connected blocks,
	// applies the accumulated utxo set mutations, and updates the best
	// chain state.
	err := b.db.Update(func(dbTx database.Tx) error {
		for _, block := range detachBlocks {
			err := dbRemoveSpendJournalEntry(dbTx, block.Hash())
			if err != nil {
				return err
			}
		}

		for i, block := range attachBlocks {
			err := dbPutSpendJournalEntry(dbTx, block.Hash(),
				attachStxos[i])
			if err != nil {
				return err
			}
		}

		// Update the utxo set using the state of the utxo view.
		if err := dbPutUtxoView(dbTx, view); err != nil {
			return err
		}

		// Update best block state.
		if err := dbPutBestState(dbTx, state, target.workSum); err != nil {
			return err
		}

		// Write any modified block index entries to the database.
		return b.index.flush(dbTx)
	})
	if err != nil {
		return err
	}

	// Prune fully spent entries and mark all entries in the view unmodified
	// now that the modifications have been committed to the database.
	view.commit()

	// This node is now the end of the best chain.
	b.bestChain.SetTip(target)

	// Update the state for the best block.
	b.stateLock.Lock()
	b.stateSnapshot = state
	b.stateLock.Unlock()

	// Notify the caller about the blocks that were disconnected and
	// connected.  The disconnect notifications are sent from the old tip
	// down to the fork point and the connect notifications from the fork
	// point up to the new tip so the caller observes the same order the
	// tip actually moved.
	for _, block := range detachBlocks {
		b.sendNotification(NTBlockDisconnected, &BlockDisconnectedNtfnsData{
			Block: block,
		})
	}
	for _, block := range attachBlocks {
		b.addRecentBlock(block)
		b.sendNotification(NTBlockConnected, &BlockConnectedNtfnsData{
			Block: block,
		})
	}

	return nil
}

// reorganizeChain reorganizes the block chain to the provided target.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) reorganizeChain(target *blockNode) error {
	// Nothing to do if there is no target or the target is already the
	// current best chain tip.
	tip := b.bestChain.Tip()
	if target == nil || target == tip {
		return nil
	}

	// Send a notification announcing the start of the chain reorganization.
	b.sendNotification(NTChainReorgStarted, nil)
	defer b.sendNotification(NTChainReorgDone, nil)

	err := b.reorganizeChainInternal(target)
	if err != nil {
		return err
	}

	// Send a notification with a summary of the reorganization.
	newTip := b.bestChain.Tip()
	b.sendNotification(NTReorganization, &ReorganizationNtfnsData{
		OldHash:   tip.hash,
		OldHeight: tip.height,
		NewHash:   newTip.hash,
		NewHeight: newTip.height,
	})

	log.Infof("REORGANIZE: Old best chain tip was %v (height %v), new best "+
		"chain tip is %v (height %v)", tip.hash, tip.height, newTip.hash,
		newTip.height)
	return nil
}

// connectBestChain handles connecting the passed block to the chain while
// respecting proper chain selection according to the chain with the most
// proof of work.  In the typical case, the new block simply extends the main
// chain.  However, it may also be extending (or creating) a side chain which
// might end up becoming the main chain depending on which fork cumulatively
// has the most proof of work.  It returns the resulting fork length, that is
// to say the number of blocks to the fork point from the main chain, which
// will be zero if the block ends up on the main chain (either due to
// extending the main chain or causing a reorganization to become the main
// chain).
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectBestChain(node *blockNode, block *mrdutil.Block) (int64, error) {
	// We are extending the main (best) chain with a new block.  This is the
	// most common case.
	parentHash := &block.MsgBlock().Header.PrevBlock
	tip := b.bestChain.Tip()
	if *parentHash == tip.hash {
		// Perform several checks to verify the block can be connected to the
		// main chain without violating any rules before actually connecting
		// the block.
		view := NewUtxoViewpoint()
		view.SetBestHash(parentHash)
		stxos := make([]spentTxOut, 0, countSpentOutputs(block))
		err := b.checkConnectBlock(node, block, view, &stxos)
		if err != nil {
			var rerr RuleError
			if errors.As(err, &rerr) {
				b.index.MarkBlockFailedValidation(node)
				b.flushBlockIndexWarnOnly()
				b.sendNotification(NTBlockRejected, &BlockRejectedNtfnsData{
					Hash: node.hash,
					Err:  err,
				})
			}
			return 0, err
		}
		b.index.SetStatusFlags(node, statusValidated)

		// Connect the block to the main chain.
		err = b.connectBlock(node, block, view, stxos)
		if err != nil {
			return 0, err
		}

		return 0, nil
	}

	// We're extending (or creating) a side chain.
	fork := b.index.FindFork(node, tip)
	forkLen := node.height - fork.height

	// The block is on a side chain that does not have more cumulative work
	// than the current best chain.  Log the information and return the fork
	// length without attempting any reorganization.
	if !workSorterLess(tip, node) {
		log.Infof("FORK: Block %v (height %v) forks the chain at height %d"+
			"/block %v, but does not cause a reorganize", node.hash,
			node.height, fork.height, fork.hash)
		return forkLen, nil
	}

	// The block is on a side chain that has more cumulative work than the
	// current best chain, so reorganize the chain to it.
	log.Infof("REORGANIZE: Block %v is causing a reorganize", node.hash)
	if err := b.reorganizeChain(node); err != nil {
		return 0, err
	}
	return 0, nil
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must
// be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.stateLock.RLock()
	snapshot := b.stateSnapshot
	b.stateLock.RUnlock()
	return snapshot
}

// Config is a descriptor which specifies the blockchain instance
// configuration.
type Config struct {
	// DB defines the database which houses the blocks and will be used to
	// store all metadata created by this package such as the utxo set.
	//
	// This field is required.
	DB database.DB

	// ChainParams identifies which chain parameters the chain is associated
	// with.
	//
	// This field is required.
	ChainParams *chaincfg.Params

	// TimeSource defines the median time source to use for things such as
	// block processing and determining whether or not the chain is current.
	//
	// The caller is expected to keep a reference to the time source as well
	// and add time samples from other peers on the network so the local
	// time is adjusted to be in agreement with other peers.
	TimeSource MedianTimeSource

	// Notifications defines a callback to which notifications will be sent
	// when various events take place.  See the documentation for
	// Notification and NotificationType for details on the types and
	// contents of notifications.
	//
	// This field can be nil if the caller is not interested in receiving
	// notifications.
	Notifications NotificationCallback

	// SigCache defines a signature cache to use when validating signatures.
	// This is typically most useful when individual transactions are
	// already being validated prior to their inclusion in a block such as
	// what is usually done via a transaction memory pool.
	//
	// This field can be nil if the caller is not interested in using a
	// signature cache.
	SigCache *txscript.SigCache
}

// New returns a BlockChain instance using the provided configuration details.
func New(config *Config) (*BlockChain, error) {
	// Enforce required config fields.
	if config.DB == nil {
		return nil, AssertError("blockchain.New database is nil")
	}
	if config.ChainParams == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}
	if config.TimeSource == nil {
		return nil, AssertError("blockchain.New timesource is nil")
	}

	params := config.ChainParams
	index := newBlockIndex(config.DB, params)
	b := BlockChain{
		db:                  config.DB,
		chainParams:         params,
		timeSource:          config.TimeSource,
		notifications:       config.Notifications,
		sigCache:            config.SigCache,
		index:               index,
		bestChain:           newChainView(index, nil),
		recentBlocks:        lru.NewKVCache(recentBlockCacheSize),
		recentContextChecks: lru.NewCache(contextCheckCacheSize),
		orphans:             make(map[chainhash.Hash]*orphanBlock),
		prevOrphans:         make(map[chainhash.Hash][]*orphanBlock),
	}

	// Initialize the chain state from the passed database.  When the db
	// does not yet contain any chain state, both it and the chain state
	// will be initialized to contain only the genesis block.
	if err := b.initChainState(); err != nil {
		return nil, err
	}

	bestSnap := b.BestSnapshot()
	log.Infof("Chain state: height %d, hash %v, total transactions %d, "+
		"work %v", bestSnap.Height, bestSnap.Hash, bestSnap.TotalTxns,
		b.bestChain.Tip().workSum)

	return &b, nil
}
