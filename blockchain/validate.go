// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/chaincfg"
	"github.com/meridianchain/mrdd/mrdutil"
	"github.com/meridianchain/mrdd/wire"
)

// maxCoinbaseScriptLen is the maximum length a coinbase signature script is
// allowed to be.  The script carries arbitrary data used to ensure the
// coinbase has a unique hash.
const maxCoinbaseScriptLen = 100

// isNullOutpoint determines whether or not a previous transaction output
// point is set.
func isNullOutpoint(outpoint *wire.OutPoint) bool {
	if outpoint.Index == math.MaxUint32 &&
		outpoint.Hash == (chainhash.Hash{}) {
		return true
	}
	return false
}

// checkTransactionSanity performs some preliminary checks on a transaction to
// ensure it is sane.  These checks are context free.
func checkTransactionSanity(tx *wire.MsgTx, params *chaincfg.Params) error {
	// A transaction must have at least one input.
	if len(tx.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "transaction has no inputs")
	}

	// A transaction must have at least one output.
	if len(tx.TxOut) == 0 {
		return ruleError(ErrNoTxOutputs, "transaction has no outputs")
	}

	// Ensure the transaction amounts are in range.  Each transaction output
	// must not be negative or more than the max allowed per transaction.
	// Also, the total of all outputs must abide by the same restrictions.
	// All amounts in a transaction are in a unit value known as an atom.
	var totalAtoms int64
	for _, txOut := range tx.TxOut {
		atoms := txOut.Value
		if atoms < 0 {
			str := fmt.Sprintf("transaction output has negative value of "+
				"%v", atoms)
			return ruleError(ErrBadTxOutValue, str)
		}
		if atoms > wire.MaxAtoms {
			str := fmt.Sprintf("transaction output value of %v is higher "+
				"than max allowed value of %v", atoms, wire.MaxAtoms)
			return ruleError(ErrBadTxOutValue, str)
		}

		// Binary arithmetic guarantees that any overflow is detected and
		// reported.  This is impossible for Meridian, but perhaps possible
		// if an alt increases the total money supply.
		totalAtoms += atoms
		if totalAtoms < 0 {
			str := fmt.Sprintf("total value of all transaction outputs "+
				"exceeds max allowed value of %v", wire.MaxAtoms)
			return ruleError(ErrBadTxOutValue, str)
		}
		if totalAtoms > wire.MaxAtoms {
			str := fmt.Sprintf("total value of all transaction outputs is "+
				"%v which is higher than max allowed value of %v",
				totalAtoms, wire.MaxAtoms)
			return ruleError(ErrBadTxOutValue, str)
		}
	}

	// Check for duplicate transaction inputs.
	existingTxOut := make(map[wire.OutPoint]struct{})
	for _, txIn := range tx.TxIn {
		if _, exists := existingTxOut[txIn.PreviousOutPoint]; exists {
			return ruleError(ErrDuplicateTxInputs, "transaction contains "+
				"duplicate inputs")
		}
		existingTxOut[txIn.PreviousOutPoint] = struct{}{}
	}

	if wire.IsCoinBaseTx(tx) {
		// The coinbase signature script must be within the allowed length.
		slen := len(tx.TxIn[0].SignatureScript)
		if slen > maxCoinbaseScriptLen {
			str := fmt.Sprintf("coinbase transaction script length of %d "+
				"is out of range (max: %d)", slen, maxCoinbaseScriptLen)
			return ruleError(ErrBadTxInput, str)
		}
	} else {
		// Previous transaction outputs referenced by the inputs to this
		// transaction must not be null.
		for _, txIn := range tx.TxIn {
			if isNullOutpoint(&txIn.PreviousOutPoint) {
				return ruleError(ErrBadTxInput, "transaction input refers "+
					"to previous output that is null")
			}
		}
	}

	return nil
}

// checkBlockHeaderSanity performs some preliminary checks on a block header
// to ensure it is sane before continuing with processing.  These checks are
// context free.
func checkBlockHeaderSanity(header *wire.BlockHeader, timeSource MedianTimeSource, chainParams *chaincfg.Params) error {
	// Ensure the proof of work bits in the block header is in min/max
	// range and the block hash is less than the target value described by
	// the bits.
	blockHash := header.BlockHash()
	err := checkProofOfWork(&blockHash, header.Bits, chainParams.PowLimit)
	if err != nil {
		return err
	}

	// Ensure the block time is not too far in the future.
	maxTimestamp := timeSource.AdjustedTime().Add(chainParams.MaxTimeOffset)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	return nil
}

// checkBlockSanity performs some preliminary checks on a block to ensure it
// is sane before continuing with block processing.  These checks are context
// free.
func checkBlockSanity(block *mrdutil.Block, timeSource MedianTimeSource, chainParams *chaincfg.Params) error {
	msgBlock := block.MsgBlock()
	header := &msgBlock.Header
	err := checkBlockHeaderSanity(header, timeSource, chainParams)
	if err != nil {
		return err
	}

	// A block must have at least one transaction.
	numTx := len(msgBlock.Transactions)
	if numTx == 0 {
		return ruleError(ErrNoTransactions, "block does not contain any "+
			"transactions")
	}

	// A block must not exceed the maximum allowed block size.
	serializedSize := msgBlock.SerializeSize()
	if serializedSize > chainParams.MaxBlockSize {
		str := fmt.Sprintf("serialized block is too big - got %d, max %d",
			serializedSize, chainParams.MaxBlockSize)
		return ruleError(ErrBlockTooBig, str)
	}

	// The first transaction in a block must be a coinbase.
	transactions := block.Transactions()
	if !wire.IsCoinBaseTx(transactions[0].MsgTx()) {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in "+
			"block is not a coinbase")
	}

	// A block must not have more than one coinbase.
	for i, tx := range transactions[1:] {
		if wire.IsCoinBaseTx(tx.MsgTx()) {
			str := fmt.Sprintf("block contains second coinbase at index %d",
				i+1)
			return ruleError(ErrMultipleCoinbases, str)
		}
	}

	// Do some preliminary checks on each transaction to ensure they are
	// sane before continuing.
	for _, tx := range transactions {
		err := checkTransactionSanity(tx.MsgTx(), chainParams)
		if err != nil {
			return err
		}
	}

	// Build merkle tree and ensure the calculated merkle root matches the
	// entry in the block header.  This also has the effect of caching all
	// of the transaction hashes in the block to speed up future hash
	// checks.
	calculatedMerkleRoot := calcTxMerkleRoot(block)
	if header.MerkleRoot != calculatedMerkleRoot {
		str := fmt.Sprintf("block merkle root is invalid - block header "+
			"indicates %v, but calculated value is %v", header.MerkleRoot,
			calculatedMerkleRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	// Check for duplicate transactions.  This check will be fairly quick
	// since the transaction hashes are already cached due to building the
	// merkle tree above.
	existingTxHashes := make(map[chainhash.Hash]struct{}, numTx)
	for _, tx := range transactions {
		hash := tx.Hash()
		if _, exists := existingTxHashes[*hash]; exists {
			str := fmt.Sprintf("block contains duplicate transaction %v",
				hash)
			return ruleError(ErrDuplicateTx, str)
		}
		existingTxHashes[*hash] = struct{}{}
	}

	return nil
}

// checkBlockHeaderContext performs several validation checks on the block
// header which depend on its position within the block chain.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) checkBlockHeaderContext(header *wire.BlockHeader, prevNode *blockNode) error {
	// The height of this block must be one more than the referenced
	// previous block.
	blockHeight := int64(header.Height)
	if blockHeight != prevNode.height+1 {
		str := fmt.Sprintf("block height of %d is not the expected %d",
			blockHeight, prevNode.height+1)
		return ruleError(ErrBadBlockHeight, str)
	}

	// Ensure the difficulty specified in the block header matches the
	// calculated difficulty based on the previous block and difficulty
	// retarget rules.
	expectedDifficulty, err := b.calcNextRequiredDifficulty(prevNode)
	if err != nil {
		return err
	}
	if header.Bits != expectedDifficulty {
		str := fmt.Sprintf("block difficulty of %08x is not the expected "+
			"value of %08x", header.Bits, expectedDifficulty)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// Ensure the timestamp for the block header is after the median time
	// of the last several blocks (medianTimeBlocks).
	medianTime := b.index.PastMedianTime(prevNode)
	if !header.Timestamp.After(medianTime) {
		str := fmt.Sprintf("block timestamp of %v is not after expected "+
			"%v", header.Timestamp, medianTime)
		return ruleError(ErrTimeTooOld, str)
	}

	// Reject blocks whose version is below the minimum required by the
	// consensus upgrades that have activated as of this height.
	requiredVersion := b.chainParams.RequiredBlockVersion(header.Height)
	if header.Version < requiredVersion {
		str := fmt.Sprintf("block version %d is less than the required "+
			"version %d at height %d", header.Version, requiredVersion,
			blockHeight)
		return ruleError(ErrBlockVersionTooOld, str)
	}

	return nil
}

// checkBlockContext performs several validation checks on the block which
// depend on its position within the block chain.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) checkBlockContext(block *mrdutil.Block, prevNode *blockNode) error {
	// The genesis block is valid by definition.
	if prevNode == nil {
		return nil
	}

	// Perform all block header related validation checks.
	header := &block.MsgBlock().Header
	return b.checkBlockHeaderContext(header, prevNode)
}

// CheckTransactionInputs performs a series of checks on the inputs to a
// transaction to ensure they are valid.  An example of some of the checks
// include verifying all inputs exist, ensuring the coinbase seasoning
// requirements are met, detecting double spends, and validating all values
// fall within allowed ranges.  It also calculates the total fees for the
// transaction and returns that value.
//
// NOTE: The transaction MUST have already been sanity checked with the
// checkTransactionSanity function prior to calling this function.
func CheckTransactionInputs(tx *mrdutil.Tx, txHeight int64, view *UtxoViewpoint, chainParams *chaincfg.Params) (int64, error) {
	// Coinbase transactions have no inputs to validate.
	msgTx := tx.MsgTx()
	if wire.IsCoinBaseTx(msgTx) {
		return 0, nil
	}

	txHash := tx.Hash()
	var totalAtomsIn int64
	for txInIdx, txIn := range msgTx.TxIn {
		// Ensure the referenced input transaction output is available.
		txInHash := &txIn.PreviousOutPoint.Hash
		originTxIndex := txIn.PreviousOutPoint.Index
		utxoEntry := view.LookupEntry(txIn.PreviousOutPoint)
		if utxoEntry == nil || utxoEntry.IsSpent() {
			str := fmt.Sprintf("output %v referenced from transaction %s:%d "+
				"either does not exist or has already been spent",
				txIn.PreviousOutPoint, txHash, txInIdx)
			return 0, ruleError(ErrMissingTxOut, str)
		}

		// Ensure the transaction is not spending coins which have not yet
		// reached the required coinbase maturity.
		if utxoEntry.IsCoinBase() {
			originHeight := utxoEntry.BlockHeight()
			blocksSincePrev := txHeight - originHeight
			coinbaseMaturity := int64(chainParams.CoinbaseMaturity)
			if blocksSincePrev < coinbaseMaturity {
				str := fmt.Sprintf("tx %s tried to spend coinbase "+
					"transaction output %s:%d from height %d at height %d "+
					"before required maturity of %d blocks", txHash,
					txInHash, originTxIndex, originHeight, txHeight,
					coinbaseMaturity)
				return 0, ruleError(ErrImmatureSpend, str)
			}
		}

		// Ensure the transaction amounts are in range.  Each of the output
		// values of the input transactions must not be negative or more
		// than the max allowed per transaction.  All amounts in a
		// transaction are in a unit value known as an atom.
		originTxAtoms := utxoEntry.Amount()
		if originTxAtoms < 0 {
			str := fmt.Sprintf("transaction output has negative value of "+
				"%v", originTxAtoms)
			return 0, ruleError(ErrBadTxOutValue, str)
		}
		if originTxAtoms > wire.MaxAtoms {
			str := fmt.Sprintf("transaction output value of %v is higher "+
				"than max allowed value of %v", originTxAtoms,
				wire.MaxAtoms)
			return 0, ruleError(ErrBadTxOutValue, str)
		}

		// The total of all outputs must not be more than the max allowed
		// per transaction.  Also, we could potentially overflow the
		// accumulator so check for overflow.
		lastAtomsIn := totalAtomsIn
		totalAtomsIn += originTxAtoms
		if totalAtomsIn < lastAtomsIn || totalAtomsIn > wire.MaxAtoms {
			str := fmt.Sprintf("total value of all transaction inputs is "+
				"%v which is higher than max allowed value of %v",
				totalAtomsIn, wire.MaxAtoms)
			return 0, ruleError(ErrBadTxOutValue, str)
		}
	}

	// Calculate the total output amount for this transaction.  It is safe
	// to ignore overflow and out of range errors here because those error
	// conditions would have already been caught by checkTransactionSanity.
	var totalAtomsOut int64
	for _, txOut := range msgTx.TxOut {
		totalAtomsOut += txOut.Value
	}

	// Ensure the transaction does not spend more than its inputs.
	if totalAtomsIn < totalAtomsOut {
		str := fmt.Sprintf("total value of all transaction inputs for "+
			"transaction %v is %v which is less than the amount spent of "+
			"%v", txHash, totalAtomsIn, totalAtomsOut)
		return 0, ruleError(ErrSpendTooHigh, str)
	}

	txFeeInAtoms := totalAtomsIn - totalAtomsOut
	return txFeeInAtoms, nil
}

// checkConnectBlock performs several checks to confirm connecting the passed
// block to the chain represented by the passed view does not violate any
// rules.  In addition, the passed view is updated to spend all of the
// referenced outputs and add all of the new utxos created by block.  Thus,
// the view will represent the state of the chain as if the block were
// actually connected and consequently the best hash for the view is also
// updated to the passed block.
//
// The stxos slice will be appended with an entry for each spent txout,
// forming the undo record that enables exact reversal of the block.
//
// An example of some of the checks performed are ensuring the inputs for all
// transactions exist and are unspent, the coinbase pays no more than the
// expected subsidy plus the collected fees, and the scripts of all input
// spends verify.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) checkConnectBlock(node *blockNode, block *mrdutil.Block, view *UtxoViewpoint, stxos *[]spentTxOut) error {
	// Sanity check the correct number of stxos are provided.
	if stxos != nil && cap(*stxos)-len(*stxos) < countSpentOutputs(block) {
		*stxos = append(make([]spentTxOut, 0,
			len(*stxos)+countSpentOutputs(block)), *stxos...)
	}

	// Load all of the utxos referenced by the inputs for the transactions
	// in the block that are not already in the view from the database.
	err := view.fetchInputUtxos(b.db, block)
	if err != nil {
		return err
	}

	// Validate and connect each transaction against the view, accumulating
	// the total fees.
	var totalFees int64
	transactions := block.Transactions()
	for _, tx := range transactions {
		txFee, err := CheckTransactionInputs(tx, node.height, view,
			b.chainParams)
		if err != nil {
			return err
		}

		// Sum the total fees and ensure we don't overflow the
		// accumulator.
		lastTotalFees := totalFees
		totalFees += txFee
		if totalFees < lastTotalFees {
			return ruleError(ErrBadFees, "total fees for block overflows "+
				"accumulator")
		}

		// Connect the transaction to the view so the following
		// transactions in the block may spend its outputs, and append an
		// undo entry for each spent output.
		err = view.connectTransaction(tx, node.height, stxos)
		if err != nil {
			return err
		}
	}

	// The total output values of the coinbase transaction must not exceed
	// the expected subsidy value plus total transaction fees gained from
	// mining the block.  It is safe to ignore overflow and out of range
	// errors here because those error conditions would have already been
	// caught by checkTransactionSanity.
	var totalAtomsOut int64
	for _, txOut := range transactions[0].MsgTx().TxOut {
		totalAtomsOut += txOut.Value
	}
	expectedAtomsOut := CalcBlockSubsidy(node.height, b.chainParams) +
		totalFees
	if totalAtomsOut > expectedAtomsOut {
		str := fmt.Sprintf("coinbase transaction for block pays %v which "+
			"is more than expected value of %v", totalAtomsOut,
			expectedAtomsOut)
		return ruleError(ErrBadCoinbaseValue, str)
	}

	// Don't run scripts when the node is an ancestor of the best chain
	// tip that has already been fully validated.
	runScripts := !b.index.NodeStatus(node).KnownValid()
	if runScripts {
		err := checkBlockScripts(block, view, b.sigCache)
		if err != nil {
			return err
		}
	}

	// Update the best hash for the view to include this block since all of
	// its transactions have been connected.
	view.SetBestHash(block.Hash())
	return nil
}

// CheckConnectBlockTemplate fully validates that connecting the passed block
// to the main chain does not violate any consensus rules, aside from the
// proof of work requirement.  The block must connect to the current tip of
// the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) CheckConnectBlockTemplate(block *mrdutil.Block) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	// The block template must build off the current tip of the main chain.
	tip := b.bestChain.Tip()
	header := &block.MsgBlock().Header
	if tip.hash != header.PrevBlock {
		str := fmt.Sprintf("previous block must be the current chain tip "+
			"%v, instead got %v", tip.hash, header.PrevBlock)
		return ruleError(ErrMissingParent, str)
	}

	err := checkBlockSanity(block, b.timeSource, b.chainParams)
	if err != nil {
		return err
	}

	node := newBlockNode(header, tip)
	err = b.checkBlockContext(block, tip)
	if err != nil {
		return err
	}

	view := NewUtxoViewpoint()
	view.SetBestHash(&tip.hash)
	return b.checkConnectBlock(node, block, view, nil)
}
