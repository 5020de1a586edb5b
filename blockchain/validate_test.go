// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/chaincfg"
	"github.com/meridianchain/mrdd/mrdutil"
	"github.com/meridianchain/mrdd/wire"
)

// TestCheckTransactionSanity ensures the context free transaction sanity
// checks work as intended.
func TestCheckTransactionSanity(t *testing.T) {
	t.Parallel()

	// Create a base transaction that is further manipulated in the tests
	// below to test error conditions.
	baseTx := &wire.MsgTx{
		Version: wire.TxVersion,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{
				Hash:  chainhash.Hash{0x01},
				Index: 0,
			},
			Sequence: wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{
			Value: 100000000,
		}},
	}

	params := chaincfg.MainNetParams()
	tests := []struct {
		name   string
		munger func(*wire.MsgTx)
		err    error
	}{{
		name: "ok",
	}, {
		name: "transaction has no inputs",
		munger: func(tx *wire.MsgTx) {
			tx.TxIn = nil
		},
		err: ErrNoTxInputs,
	}, {
		name: "transaction has no outputs",
		munger: func(tx *wire.MsgTx) {
			tx.TxOut = nil
		},
		err: ErrNoTxOutputs,
	}, {
		name: "transaction output is negative",
		munger: func(tx *wire.MsgTx) {
			tx.TxOut[0].Value = -1
		},
		err: ErrBadTxOutValue,
	}, {
		name: "transaction output exceeds max atoms",
		munger: func(tx *wire.MsgTx) {
			tx.TxOut[0].Value = wire.MaxAtoms + 1
		},
		err: ErrBadTxOutValue,
	}, {
		name: "total output value exceeds max atoms",
		munger: func(tx *wire.MsgTx) {
			tx.TxOut[0].Value = wire.MaxAtoms
			tx.TxOut = append(tx.TxOut, &wire.TxOut{Value: 1})
		},
		err: ErrBadTxOutValue,
	}, {
		name: "duplicate transaction inputs",
		munger: func(tx *wire.MsgTx) {
			tx.TxIn = append(tx.TxIn, &wire.TxIn{
				PreviousOutPoint: tx.TxIn[0].PreviousOutPoint,
				Sequence:         wire.MaxTxInSequenceNum,
			})
		},
		err: ErrDuplicateTxInputs,
	}, {
		name: "non-coinbase with null previous outpoint",
		munger: func(tx *wire.MsgTx) {
			tx.TxIn = append(tx.TxIn, &wire.TxIn{
				PreviousOutPoint: wire.OutPoint{
					Hash:  chainhash.Hash{},
					Index: wire.MaxPrevOutIndex,
				},
				Sequence: wire.MaxTxInSequenceNum,
			})
		},
		err: ErrBadTxInput,
	}, {
		name: "coinbase script too long",
		munger: func(tx *wire.MsgTx) {
			tx.TxIn[0].PreviousOutPoint = wire.OutPoint{
				Hash:  chainhash.Hash{},
				Index: wire.MaxPrevOutIndex,
			}
			tx.TxIn[0].SignatureScript = make([]byte,
				maxCoinbaseScriptLen+1)
		},
		err: ErrBadTxInput,
	}}

	for _, test := range tests {
		tx := baseTx.Copy()
		if test.munger != nil {
			test.munger(tx)
		}

		err := checkTransactionSanity(tx, params)
		if !errors.Is(err, test.err) {
			t.Fatalf("%s: unexpected error -- got %v, want %v", test.name,
				err, test.err)
		}
	}
}

// TestCheckBlockSanity ensures the context free block sanity checks work as
// intended.
func TestCheckBlockSanity(t *testing.T) {
	t.Parallel()

	params := chaincfg.SimNetParams()
	g := newTestGenerator(t, params)
	timeSource := NewMedianTime()

	// A well formed block must pass.
	g.nextBlock("ok", nil)
	err := checkBlockSanity(g.block("ok"), timeSource, params)
	if err != nil {
		t.Fatalf("unexpected error on sane block: %v", err)
	}

	tests := []struct {
		name   string
		munger func(*wire.MsgBlock)
		err    error
	}{{
		name: "no transactions",
		munger: func(b *wire.MsgBlock) {
			b.Transactions = nil
		},
		err: ErrNoTransactions,
	}, {
		name: "first transaction is not a coinbase",
		munger: func(b *wire.MsgBlock) {
			b.Transactions[0].TxIn[0].PreviousOutPoint = wire.OutPoint{
				Hash:  chainhash.Hash{0x01},
				Index: 0,
			}
			leaves := []chainhash.Hash{b.Transactions[0].TxHash()}
			b.Header.MerkleRoot = calcMerkleRootFromLeaves(leaves)
		},
		err: ErrFirstTxNotCoinbase,
	}, {
		name: "multiple coinbases",
		munger: func(b *wire.MsgBlock) {
			coinbase2 := b.Transactions[0].Copy()
			coinbase2.TxIn[0].SignatureScript = []byte{0x01, 0x02}
			b.Transactions = append(b.Transactions, coinbase2)
			leaves := []chainhash.Hash{
				b.Transactions[0].TxHash(), coinbase2.TxHash(),
			}
			b.Header.MerkleRoot = calcMerkleRootFromLeaves(leaves)
		},
		err: ErrMultipleCoinbases,
	}, {
		name: "bad merkle root",
		munger: func(b *wire.MsgBlock) {
			b.Header.MerkleRoot[0] ^= 0x55
		},
		err: ErrBadMerkleRoot,
	}, {
		name: "duplicate transactions",
		munger: func(b *wire.MsgBlock) {
			spend := createSpendTx(spendableOut{
				prevOut: wire.OutPoint{Hash: chainhash.Hash{0x01}},
				amount:  1,
			}, 0)
			b.Transactions = append(b.Transactions, spend, spend)
			leaves := []chainhash.Hash{
				b.Transactions[0].TxHash(), spend.TxHash(), spend.TxHash(),
			}
			b.Header.MerkleRoot = calcMerkleRootFromLeaves(leaves)
		},
		err: ErrDuplicateTx,
	}, {
		name: "timestamp too far in the future",
		munger: func(b *wire.MsgBlock) {
			b.Header.Timestamp = timeSource.AdjustedTime().
				Add(params.MaxTimeOffset + time.Hour)
		},
		err: ErrTimeTooNew,
	}}

	for _, test := range tests {
		g.setTip("genesis")
		block := g.nextBlock("sanity-"+test.name, nil, test.munger)
		err := checkBlockSanity(mrdutil.NewBlock(block), timeSource, params)
		if !errors.Is(err, test.err) {
			t.Fatalf("%s: unexpected error -- got %v, want %v", test.name,
				err, test.err)
		}
	}
}

// TestCheckTransactionInputs ensures the transaction input checks properly
// validate spends against a utxo view and compute fees.
func TestCheckTransactionInputs(t *testing.T) {
	t.Parallel()

	params := chaincfg.SimNetParams()

	// Populate a view with a regular output and a coinbase output.
	view := NewUtxoViewpoint()
	regularOut := wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 0}
	view.entries[regularOut] = &UtxoEntry{
		amount:      100000000,
		blockHeight: 5,
	}
	coinbaseOut := wire.OutPoint{Hash: chainhash.Hash{0x02}, Index: 0}
	view.entries[coinbaseOut] = &UtxoEntry{
		amount:      5000000000,
		blockHeight: 10,
		packedFlags: utxoFlagCoinBase,
	}

	newSpend := func(out wire.OutPoint, value int64) *mrdutil.Tx {
		return mrdutil.NewTx(&wire.MsgTx{
			Version: wire.TxVersion,
			TxIn: []*wire.TxIn{{
				PreviousOutPoint: out,
				Sequence:         wire.MaxTxInSequenceNum,
			}},
			TxOut: []*wire.TxOut{{Value: value}},
		})
	}

	// Spending the regular output with a fee must succeed and report the
	// fee.
	fee, err := CheckTransactionInputs(newSpend(regularOut, 99000000), 20,
		view, params)
	if err != nil {
		t.Fatalf("unexpected error on valid spend: %v", err)
	}
	if fee != 1000000 {
		t.Fatalf("fee is %d, want 1000000", fee)
	}

	// Spending an output that does not exist must fail.
	missingOut := wire.OutPoint{Hash: chainhash.Hash{0x03}, Index: 0}
	_, err = CheckTransactionInputs(newSpend(missingOut, 1), 20, view,
		params)
	if !errors.Is(err, ErrMissingTxOut) {
		t.Fatalf("missing output spend returned %v, want %v", err,
			ErrMissingTxOut)
	}

	// Spending more than the input value must fail.
	_, err = CheckTransactionInputs(newSpend(regularOut, 100000001), 20,
		view, params)
	if !errors.Is(err, ErrSpendTooHigh) {
		t.Fatalf("overspend returned %v, want %v", err, ErrSpendTooHigh)
	}

	// Spending an immature coinbase output must fail while a mature spend
	// of the same output must succeed.
	_, err = CheckTransactionInputs(newSpend(coinbaseOut, 1), 11, view,
		params)
	if !errors.Is(err, ErrImmatureSpend) {
		t.Fatalf("immature coinbase spend returned %v, want %v", err,
			ErrImmatureSpend)
	}
	_, err = CheckTransactionInputs(newSpend(coinbaseOut, 1), 12, view,
		params)
	if err != nil {
		t.Fatalf("unexpected error on mature coinbase spend: %v", err)
	}
}
