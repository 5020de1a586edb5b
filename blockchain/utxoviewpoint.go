// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/database"
	"github.com/meridianchain/mrdd/mrdutil"
	"github.com/meridianchain/mrdd/wire"
)

// UtxoViewpoint represents a view into the set of unspent transaction outputs
// from a specific point of view in the chain.  For example, it could be for
// the end of the main chain, some point in the history of the main chain, or
// down a side chain.
//
// The unspent outputs are needed by other transactions for things such as
// script validation and double spend prevention.
type UtxoViewpoint struct {
	entries  map[wire.OutPoint]*UtxoEntry
	bestHash chainhash.Hash
}

// BestHash returns the hash of the best block in the chain the view currently
// represents.
func (view *UtxoViewpoint) BestHash() *chainhash.Hash {
	return &view.bestHash
}

// SetBestHash sets the hash of the best block in the chain the view currently
// represents.
func (view *UtxoViewpoint) SetBestHash(hash *chainhash.Hash) {
	view.bestHash = *hash
}

// LookupEntry returns information about a given transaction output according
// to the current state of the view.  It will return nil if the passed output
// does not exist in the view or is otherwise not available such as when it
// has been disconnected during a reorg.
func (view *UtxoViewpoint) LookupEntry(outpoint wire.OutPoint) *UtxoEntry {
	return view.entries[outpoint]
}

// PrevScript returns the script and script version associated with the
// provided previous outpoint along with a bool that indicates whether or not
// the requested entry exists.  This ensures the caller is able to distinguish
// between missing entries and empty scripts.
func (view *UtxoViewpoint) PrevScript(prevOut *wire.OutPoint) (uint16, []byte, bool) {
	entry := view.LookupEntry(*prevOut)
	if entry == nil {
		return 0, nil, false
	}

	version := entry.ScriptVersion()
	pkScript := entry.PkScript()
	return version, pkScript, true
}

// RemoveEntry removes the given transaction output from the current state of
// the view.  It will have no effect if the passed output does not exist in
// the view.
func (view *UtxoViewpoint) RemoveEntry(outpoint wire.OutPoint) {
	delete(view.entries, outpoint)
}

// Entries returns the underlying map that stores of all the utxo entries.
func (view *UtxoViewpoint) Entries() map[wire.OutPoint]*UtxoEntry {
	return view.entries
}

// addTxOut adds the specified output to the view if it is not provably
// unspendable.  When the view already has an entry for the output, it will be
// marked unspent.  All fields will be updated for existing entries since it's
// possible it has changed during a reorg.
func (view *UtxoViewpoint) addTxOut(outpoint wire.OutPoint, txOut *wire.TxOut, isCoinBase bool, blockHeight int64) {
	// Update existing entries.  All fields are updated because it's
	// possible (although extremely unlikely) that the existing entry is
	// being replaced by a different transaction with the same hash.  This
	// is allowed so long as the previous transaction is fully spent.
	entry := view.LookupEntry(outpoint)
	if entry == nil {
		entry = new(UtxoEntry)
		view.entries[outpoint] = entry
		entry.packedFlags |= utxoFlagFresh
	}

	entry.amount = txOut.Value
	entry.pkScript = txOut.PkScript
	entry.blockHeight = uint32(blockHeight)
	entry.scriptVersion = txOut.Version
	entry.packedFlags |= utxoFlagModified
	entry.packedFlags &^= utxoFlagSpent | utxoFlagCoinBase
	if isCoinBase {
		entry.packedFlags |= utxoFlagCoinBase
	}
}

// AddTxOuts adds all outputs in the passed transaction to the view.  When the
// view already has entries for any of the outputs, they are simply marked
// unspent.
func (view *UtxoViewpoint) AddTxOuts(tx *mrdutil.Tx, blockHeight int64) {
	isCoinBase := wire.IsCoinBaseTx(tx.MsgTx())
	prevOut := wire.OutPoint{Hash: *tx.Hash()}
	for txOutIdx, txOut := range tx.MsgTx().TxOut {
		prevOut.Index = uint32(txOutIdx)
		view.addTxOut(prevOut, txOut, isCoinBase, blockHeight)
	}
}

// connectTransaction updates the view by adding all new utxos created by the
// passed transaction and marking all utxos that the transaction spends as
// spent.  In addition, when the 'stxos' argument is not nil, it will be
// updated to append an entry for each spent txout.  An error will be returned
// if the view does not contain the required utxos.
func (view *UtxoViewpoint) connectTransaction(tx *mrdutil.Tx, blockHeight int64, stxos *[]spentTxOut) error {
	// Coinbase transactions don't have any inputs to spend.
	if wire.IsCoinBaseTx(tx.MsgTx()) {
		view.AddTxOuts(tx, blockHeight)
		return nil
	}

	// Spend the referenced utxos by marking them spent in the view and, if
	// a slice was provided for the spent txout details, append an entry to
	// it.
	for _, txIn := range tx.MsgTx().TxIn {
		// Ensure the referenced utxo exists in the view.  This should
		// never happen unless there is a bug is introduced in the code.
		entry := view.entries[txIn.PreviousOutPoint]
		if entry == nil {
			return AssertError(fmt.Sprintf("view missing input %v",
				txIn.PreviousOutPoint))
		}

		// Only create the stxo details if requested.
		if stxos != nil {
			// Populate the stxo details using the utxo entry.
			*stxos = append(*stxos, spentTxOut{
				amount:        entry.Amount(),
				pkScript:      entry.PkScript(),
				height:        uint32(entry.BlockHeight()),
				scriptVersion: entry.ScriptVersion(),
				isCoinBase:    entry.IsCoinBase(),
			})
		}

		// Mark the entry as spent.  This is not done until after the
		// relevant details have been accessed since spending it might
		// clear the fields from memory in the future.
		entry.Spend()
	}

	// Add the transaction's outputs as available utxos.
	view.AddTxOuts(tx, blockHeight)
	return nil
}

// connectBlock updates the view by connecting all transactions in the passed
// block in order.  In addition, when the 'stxos' argument is not nil, it will
// be updated to append an entry for each spent txout.
func (view *UtxoViewpoint) connectBlock(block *mrdutil.Block, stxos *[]spentTxOut) error {
	for _, tx := range block.Transactions() {
		err := view.connectTransaction(tx, block.Height(), stxos)
		if err != nil {
			return err
		}
	}
	view.SetBestHash(block.Hash())
	return nil
}

// disconnectTransactions updates the view by removing all of the transactions
// created by the passed block, restoring all utxos the transactions spent by
// using the provided spent txo information, and setting the best hash for the
// view to the block before the passed block.
//
// This is the exact inverse of connectBlock: applying a block and then
// disconnecting it with the stxos it produced yields the original view.
func (view *UtxoViewpoint) disconnectTransactions(block *mrdutil.Block, prevHash *chainhash.Hash, stxos []spentTxOut) error {
	// Sanity check the correct number of stxos are provided.
	if len(stxos) != countSpentOutputs(block) {
		return AssertError("disconnectTransactions called with bad " +
			"spent transaction out information")
	}

	// Loop backwards through all transactions so everything is unspent in
	// reverse order.  This is necessary since transactions later in a
	// block can spend from previous ones.
	stxoIdx := len(stxos) - 1
	transactions := block.Transactions()
	for txIdx := len(transactions) - 1; txIdx > -1; txIdx-- {
		tx := transactions[txIdx]
		isCoinBase := txIdx == 0

		// Mark all of the spendable outputs originally created by the
		// transaction as spent.  It is instructive to note that while
		// the outputs aren't actually being spent here, rather they no
		// longer exist, since a pruned utxo set is used, there is no
		// practical difference between a utxo that does not exist and
		// one that has been spent.
		//
		// When the utxo entry is fresh it was never committed to the
		// database, so the entry is removed from the view entirely.
		prevOut := wire.OutPoint{Hash: *tx.Hash()}
		for txOutIdx := range tx.MsgTx().TxOut {
			prevOut.Index = uint32(txOutIdx)
			entry := view.entries[prevOut]
			if entry == nil {
				continue
			}
			if entry.isFresh() {
				view.RemoveEntry(prevOut)
				continue
			}
			entry.Spend()
		}

		// Loop backwards through all of the transaction inputs (except
		// for the coinbase which has no inputs) and unspend the
		// referenced txos.
		if isCoinBase {
			continue
		}
		for txInIdx := len(tx.MsgTx().TxIn) - 1; txInIdx > -1; txInIdx-- {
			// Ensure the spent txout index is decremented to stay in
			// sync with the transaction input.
			stxo := &stxos[stxoIdx]
			stxoIdx--

			// Restore the utxo using the stxo data from the spend
			// journal.
			originOut := tx.MsgTx().TxIn[txInIdx].PreviousOutPoint
			entry := view.entries[originOut]
			if entry == nil {
				entry = new(UtxoEntry)
				view.entries[originOut] = entry
			}
			entry.amount = stxo.amount
			entry.pkScript = stxo.pkScript
			entry.blockHeight = stxo.height
			entry.scriptVersion = stxo.scriptVersion
			entry.packedFlags = utxoFlagModified
			if stxo.isCoinBase {
				entry.packedFlags |= utxoFlagCoinBase
			}
		}
	}

	// Update the best hash for view to the previous block since all of the
	// transactions for the current block have been disconnected.
	view.SetBestHash(prevHash)
	return nil
}

// countSpentOutputs returns the number of utxos the passed block spends.
func countSpentOutputs(block *mrdutil.Block) int {
	// Exclude the coinbase transaction since it can't spend anything.
	var numSpent int
	for _, tx := range block.Transactions()[1:] {
		numSpent += len(tx.MsgTx().TxIn)
	}
	return numSpent
}

// commit prunes all entries marked modified that are now fully spent and
// marks all entries as unmodified.
func (view *UtxoViewpoint) commit() {
	for outpoint, entry := range view.entries {
		if entry == nil || (entry.isModified() && entry.IsSpent()) {
			delete(view.entries, outpoint)
			continue
		}

		entry.packedFlags &^= utxoFlagModified | utxoFlagFresh
	}
}

// viewFilteredSet represents a set of utxos to fetch from the database that
// are not already in a view.
type viewFilteredSet map[wire.OutPoint]struct{}

// add conditionally adds the provided outpoint to the set if it does not
// already exist in the provided view.
func (set viewFilteredSet) add(view *UtxoViewpoint, outpoint wire.OutPoint) {
	if _, ok := view.entries[outpoint]; !ok {
		set[outpoint] = struct{}{}
	}
}

// fetchUtxosMain fetches unspent transaction output data about the provided
// set of outpoints from the point of view of the end of the main chain at the
// time of the call.
//
// Upon completion of this function, the view will contain an entry for each
// requested outpoint.  Spent outputs, or those which otherwise don't exist,
// will result in a nil entry in the view.
func (view *UtxoViewpoint) fetchUtxosMain(db database.DB, filteredSet viewFilteredSet) error {
	// Nothing to do if there are no requested outputs.
	if len(filteredSet) == 0 {
		return nil
	}

	// Load the requested set of unspent transaction outputs from the point
	// of view of the end of the main chain.
	//
	// NOTE: Missing entries are not considered an error here and instead
	// will result in nil entries in the view.  This is intentionally done
	// so other code can use the presence of an entry in the store as a way
	// to unnecessarily avoid attempting to reload it from the database.
	return db.View(func(dbTx database.Tx) error {
		for outpoint := range filteredSet {
			entry, err := dbFetchUtxoEntry(dbTx, outpoint)
			if err != nil {
				return err
			}
			view.entries[outpoint] = entry
		}
		return nil
	})
}

// addInputUtxos adds any outputs of transactions in the block that are
// referenced by other transactions in the block to the view and returns a set
// of the referenced outputs that are not already in the view and thus need to
// be fetched from the database.
func (view *UtxoViewpoint) addInputUtxos(block *mrdutil.Block) viewFilteredSet {
	// Build a map of in-flight transactions because some of the inputs in
	// the block could be referencing other transactions earlier in the
	// block which are not yet in the chain.
	txInFlight := map[chainhash.Hash]int{}
	transactions := block.Transactions()
	for i, tx := range transactions {
		txInFlight[*tx.Hash()] = i
	}

	// Loop through all of the transaction inputs (except for the coinbase
	// which has no inputs).
	filteredSet := make(viewFilteredSet)
	for i, tx := range transactions[1:] {
		for _, txIn := range tx.MsgTx().TxIn {
			// It is acceptable for a transaction input to reference the
			// output of another transaction in this block only if the
			// referenced transaction comes before the current one in
			// this block.
			originHash := &txIn.PreviousOutPoint.Hash
			if inFlightIndex, ok := txInFlight[*originHash]; ok &&
				i >= inFlightIndex {

				originTx := transactions[inFlightIndex]
				view.AddTxOuts(originTx, block.Height())
				continue
			}

			// Only request entries that are not already in the view from
			// the database.
			filteredSet.add(view, txIn.PreviousOutPoint)
		}
	}
	return filteredSet
}

// fetchInputUtxos loads the unspent transaction outputs for the inputs
// referenced by the transactions in the given block into the view from the
// database as needed.  In particular, referenced entries that are earlier in
// the block are added to the view and entries that are already in the view
// are not modified.
func (view *UtxoViewpoint) fetchInputUtxos(db database.DB, block *mrdutil.Block) error {
	// Add any outputs of transactions in the block that are referenced by
	// other transactions in the block and determine which database fetches
	// are needed.
	filteredSet := view.addInputUtxos(block)

	// Request the input utxos from the database.
	return view.fetchUtxosMain(db, filteredSet)
}

// fetchBlockUtxos loads the unspent transaction outputs for the outputs
// created by the passed block and the outputs it spends into the view from
// the database as needed, for use when disconnecting the block.  Entries that
// are already in the view are not modified.
func (view *UtxoViewpoint) fetchBlockUtxos(db database.DB, block *mrdutil.Block) error {
	filteredSet := make(viewFilteredSet)
	for _, tx := range block.Transactions() {
		prevOut := wire.OutPoint{Hash: *tx.Hash()}
		for txOutIdx := range tx.MsgTx().TxOut {
			prevOut.Index = uint32(txOutIdx)
			filteredSet.add(view, prevOut)
		}
		if !wire.IsCoinBaseTx(tx.MsgTx()) {
			for _, txIn := range tx.MsgTx().TxIn {
				filteredSet.add(view, txIn.PreviousOutPoint)
			}
		}
	}
	return view.fetchUtxosMain(db, filteredSet)
}

// clone returns a deep copy of the view.
func (view *UtxoViewpoint) clone() *UtxoViewpoint {
	clonedView := &UtxoViewpoint{
		entries:  make(map[wire.OutPoint]*UtxoEntry, len(view.entries)),
		bestHash: view.bestHash,
	}
	for outpoint, entry := range view.entries {
		clonedView.entries[outpoint] = entry.Clone()
	}
	return clonedView
}

// NewUtxoViewpoint returns a new empty unspent transaction output view.
func NewUtxoViewpoint() *UtxoViewpoint {
	return &UtxoViewpoint{
		entries: make(map[wire.OutPoint]*UtxoEntry),
	}
}

// FetchUtxoView loads unspent transaction outputs for the inputs referenced
// by the passed transaction from the point of view of the end of the main
// chain.  It also attempts to fetch the utxos for the outputs of the
// transaction itself so the returned view can be examined for duplicate
// transactions.
//
// This function is safe for concurrent access however the returned view is
// NOT.
func (b *BlockChain) FetchUtxoView(tx *mrdutil.Tx) (*UtxoViewpoint, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	// Request the utxos from the point of view of the end of the main
	// chain.
	view := NewUtxoViewpoint()
	view.SetBestHash(&b.bestChain.Tip().hash)

	filteredSet := make(viewFilteredSet)
	prevOut := wire.OutPoint{Hash: *tx.Hash()}
	for txOutIdx := range tx.MsgTx().TxOut {
		prevOut.Index = uint32(txOutIdx)
		filteredSet.add(view, prevOut)
	}
	if !wire.IsCoinBaseTx(tx.MsgTx()) {
		for _, txIn := range tx.MsgTx().TxIn {
			filteredSet.add(view, txIn.PreviousOutPoint)
		}
	}

	err := view.fetchUtxosMain(b.db, filteredSet)
	return view, err
}

// FetchUtxoEntry loads and returns the requested unspent transaction output
// from the point of view of the end of the main chain.
//
// NOTE: Requesting an output for which there is no data will NOT return an
// error.  Instead both the entry and the error will be nil.  This is done to
// allow pruning of spent transaction outputs.  In practice this means the
// caller must check if the returned entry is nil before invoking methods on
// it.
//
// This function is safe for concurrent access however the returned entry (if
// any) is NOT.
func (b *BlockChain) FetchUtxoEntry(outpoint wire.OutPoint) (*UtxoEntry, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	var entry *UtxoEntry
	err := b.db.View(func(dbTx database.Tx) error {
		var err error
		entry, err = dbFetchUtxoEntry(dbTx, outpoint)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
