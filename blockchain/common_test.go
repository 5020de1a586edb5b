// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/chaincfg"
	"github.com/meridianchain/mrdd/database/ldb"
	"github.com/meridianchain/mrdd/mrdutil"
	"github.com/meridianchain/mrdd/txscript"
	"github.com/meridianchain/mrdd/wire"
)

// newTestChain returns a chain instance backed by an in-memory database and
// associated with the simulation network parameters along with the parameters
// themselves.  The provided notification callback may be nil.
func newTestChain(t *testing.T, ntfn NotificationCallback) (*BlockChain, *chaincfg.Params) {
	t.Helper()

	params := chaincfg.SimNetParams()
	db, err := ldb.NewMemDB()
	if err != nil {
		t.Fatalf("unable to create test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	chain, err := New(&Config{
		DB:            db,
		ChainParams:   params,
		TimeSource:    NewMedianTime(),
		Notifications: ntfn,
		SigCache:      txscript.NewSigCache(1000),
	})
	if err != nil {
		t.Fatalf("unable to create test chain: %v", err)
	}
	return chain, params
}

// spendableOut represents a transaction output that is available to be spent
// in a later test block.
type spendableOut struct {
	prevOut wire.OutPoint
	amount  int64
}

// makeSpendableOut returns a spendable output for the transaction at the
// provided index in the passed block and the provided output index within
// that transaction.
func makeSpendableOut(block *wire.MsgBlock, txIndex, txOutIndex uint32) spendableOut {
	tx := block.Transactions[txIndex]
	return spendableOut{
		prevOut: wire.OutPoint{
			Hash:  tx.TxHash(),
			Index: txOutIndex,
		},
		amount: tx.TxOut[txOutIndex].Value,
	}
}

// testGenerator houses state used to ease the process of generating test
// blocks that build from one another.  Blocks use anyone-can-spend outputs so
// no key management is needed, and the proof of work for each block is solved
// against the simulation network proof limit, so generation is fast.
//
// The generator maintains its own copy of the block tree so the difficulty
// and height context for new blocks is computed without consulting the chain
// instance under test.  That allows tests to generate entire competing
// branches up front and submit them in arbitrary orders.
type testGenerator struct {
	t            *testing.T
	params       *chaincfg.Params
	tip          *wire.MsgBlock
	tipName      string
	tipHeight    uint32
	blocks       map[chainhash.Hash]*wire.MsgBlock
	blockHeights map[chainhash.Hash]uint32
	blocksByName map[string]*wire.MsgBlock

	// extraNonce distinguishes coinbases of blocks that would otherwise be
	// identical, such as blocks at the same height on competing branches.
	extraNonce uint64
}

// newTestGenerator returns a test generator instance seeded with the genesis
// block of the provided parameters as the current tip.
func newTestGenerator(t *testing.T, params *chaincfg.Params) *testGenerator {
	t.Helper()

	genesis := params.GenesisBlock
	genesisHash := params.GenesisHash
	g := &testGenerator{
		t:            t,
		params:       params,
		tip:          genesis,
		tipName:      "genesis",
		tipHeight:    0,
		blocks:       map[chainhash.Hash]*wire.MsgBlock{genesisHash: genesis},
		blockHeights: map[chainhash.Hash]uint32{genesisHash: 0},
		blocksByName: map[string]*wire.MsgBlock{"genesis": genesis},
	}
	return g
}

// block returns the block associated with the provided name wrapped in a
// mrdutil.Block.  It fails the test when the name is not known.
func (g *testGenerator) block(name string) *mrdutil.Block {
	g.t.Helper()

	msgBlock, ok := g.blocksByName[name]
	if !ok {
		g.t.Fatalf("no block named %q has been generated", name)
	}
	return mrdutil.NewBlock(msgBlock)
}

// setTip changes the tip of the generated chain to the block with the
// provided name so subsequent calls to nextBlock extend that branch.
func (g *testGenerator) setTip(name string) {
	g.t.Helper()

	msgBlock, ok := g.blocksByName[name]
	if !ok {
		g.t.Fatalf("no block named %q has been generated", name)
	}
	g.tip = msgBlock
	g.tipName = name
	g.tipHeight = g.blockHeights[msgBlock.BlockHash()]
}

// createCoinbaseTx returns a coinbase transaction paying the full subsidy for
// the provided height to an anyone-can-spend output.  The signature script
// encodes the height and a unique extra nonce so coinbases on competing
// branches never hash identically.
func (g *testGenerator) createCoinbaseTx(blockHeight uint32) *wire.MsgTx {
	g.extraNonce++
	sigScript := make([]byte, 12)
	binary.LittleEndian.PutUint32(sigScript[0:4], blockHeight)
	binary.LittleEndian.PutUint64(sigScript[4:12], g.extraNonce)

	return &wire.MsgTx{
		Version: wire.TxVersion,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{
				Hash:  chainhash.Hash{},
				Index: wire.MaxPrevOutIndex,
			},
			Sequence:        wire.MaxTxInSequenceNum,
			SignatureScript: sigScript,
		}},
		TxOut: []*wire.TxOut{{
			Value:    CalcBlockSubsidy(int64(blockHeight), g.params),
			PkScript: nil,
		}},
	}
}

// createSpendTx returns a transaction that spends the provided spendable
// output to a new anyone-can-spend output with the provided fee deducted.
func createSpendTx(spend spendableOut, fee int64) *wire.MsgTx {
	return &wire.MsgTx{
		Version: wire.TxVersion,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: spend.prevOut,
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{
			Value:    spend.amount - fee,
			PkScript: nil,
		}},
	}
}

// calcNextRequiredDifficulty returns the required proof of work bits for a
// block building on the current generator tip using the same retarget rules
// the chain enforces, computed over the generator's private block tree.
func (g *testGenerator) calcNextRequiredDifficulty() uint32 {
	windowSize := g.params.WorkDiffWindowSize
	if (int64(g.tipHeight)+1)%windowSize != 0 {
		return g.tip.Header.Bits
	}

	// Walk back to the first block of the window via the generator's own
	// block map.
	firstBlock := g.tip
	for i := int64(0); i < windowSize-1; i++ {
		firstBlock = g.blocks[firstBlock.Header.PrevBlock]
	}

	targetTimespan := int64(g.params.TargetTimePerBlock/time.Second) *
		windowSize
	actualTimespan := g.tip.Header.Timestamp.Unix() -
		firstBlock.Header.Timestamp.Unix()
	if actualTimespan < targetTimespan/g.params.RetargetAdjustmentFactor {
		actualTimespan = targetTimespan / g.params.RetargetAdjustmentFactor
	} else if actualTimespan > targetTimespan*g.params.RetargetAdjustmentFactor {
		actualTimespan = targetTimespan * g.params.RetargetAdjustmentFactor
	}

	oldTarget := CompactToBig(g.tip.Header.Bits)
	newTarget := oldTarget.Mul(oldTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))
	if newTarget.Cmp(g.params.PowLimit) > 0 {
		newTarget.Set(g.params.PowLimit)
	}
	return BigToCompact(newTarget)
}

// solveBlock attempts to find a nonce which makes the passed block header
// hash to a value less than the target difficulty and fails the test when a
// solution cannot be found.  Since the simulation network proof limit passes
// roughly half of all hashes, solutions are found almost immediately.
func (g *testGenerator) solveBlock(header *wire.BlockHeader) {
	g.t.Helper()

	target := CompactToBig(header.Bits)
	for nonce := uint64(0); nonce <= math.MaxUint32; nonce++ {
		header.Nonce = nonce
		hash := header.BlockHash()
		if HashToBig(&hash).Cmp(target) <= 0 {
			return
		}
	}
	g.t.Fatalf("unable to solve block with target %064x", target)
}

// nextBlock builds a new block that extends the current tip associated with
// the generator, registers it under the provided name, and updates the
// generator tip to the new block.
//
// When a spendable output is provided, the block contains a transaction that
// spends it with no fee to a new anyone-can-spend output.
//
// The mungers are applied after the merkle root is calculated but before the
// proof of work is solved, so they can intentionally corrupt any aspect of
// the block while still producing a solvable header.
func (g *testGenerator) nextBlock(name string, spend *spendableOut, mungers ...func(*wire.MsgBlock)) *wire.MsgBlock {
	g.t.Helper()

	nextHeight := g.tipHeight + 1
	txns := []*wire.MsgTx{g.createCoinbaseTx(nextHeight)}
	if spend != nil {
		txns = append(txns, createSpendTx(*spend, 0))
	}

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: g.tip.BlockHash(),
			Timestamp: g.tip.Header.Timestamp.Add(time.Second),
			Bits:      g.calcNextRequiredDifficulty(),
			Height:    nextHeight,
		},
		Transactions: txns,
	}

	// Commit to the transactions, apply any block mungers, and solve the
	// proof of work.
	leaves := make([]chainhash.Hash, 0, len(txns))
	for _, tx := range txns {
		leaves = append(leaves, tx.TxHash())
	}
	block.Header.MerkleRoot = calcMerkleRootFromLeaves(leaves)
	for _, munger := range mungers {
		munger(block)
	}
	g.solveBlock(&block.Header)

	blockHash := block.BlockHash()
	if _, exists := g.blocksByName[name]; exists {
		g.t.Fatalf("block name %q is already in use", name)
	}
	g.blocks[blockHash] = block
	g.blockHeights[blockHash] = nextHeight
	g.blocksByName[name] = block
	g.tip = block
	g.tipName = name
	g.tipHeight = nextHeight
	return block
}

// acceptBlock processes the block with the provided name through the passed
// chain from a peer source and ensures it is accepted with the expected
// status.
func (g *testGenerator) acceptBlock(chain *BlockChain, name string, want ProcessStatus) {
	g.t.Helper()

	status, err := chain.ProcessBlock(g.block(name), BlockSourcePeer)
	if err != nil {
		g.t.Fatalf("block %q was not accepted: %v", name, err)
	}
	if status != want {
		g.t.Fatalf("block %q was processed with status %v, want %v", name,
			status, want)
	}
}

// rejectBlock processes the block with the provided name through the passed
// chain from a peer source and ensures it is rejected with a rule error of
// the given kind.
func (g *testGenerator) rejectBlock(chain *BlockChain, name string, kind ErrorKind) {
	g.t.Helper()

	_, err := chain.ProcessBlock(g.block(name), BlockSourcePeer)
	if err == nil {
		g.t.Fatalf("block %q was accepted when it should have been "+
			"rejected with %v", name, kind)
	}
	if !errors.Is(err, kind) {
		g.t.Fatalf("block %q was rejected with error %v, want kind %v",
			name, err, kind)
	}
}

// expectTip ensures the current best chain tip of the passed chain is the
// block with the provided name.
func (g *testGenerator) expectTip(chain *BlockChain, name string) {
	g.t.Helper()

	wantHash := g.blocksByName[name].BlockHash()
	best := chain.BestSnapshot()
	if best.Hash != wantHash {
		g.t.Fatalf("best chain tip is %v, want %q (%v)", best.Hash, name,
			wantHash)
	}
}
