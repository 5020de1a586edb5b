// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/meridianchain/mrdd/wire"
)

// spendingTx returns a transaction with a single input spending the provided
// outpoint and a single anyone-can-spend output.
func spendingTx(prevHash *chainhash.Hash, prevIdx uint32) *wire.MsgTx {
	tx := wire.NewMsgTx()
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(prevHash, prevIdx), nil))
	tx.AddTxOut(wire.NewTxOut(100000000, nil))
	return tx
}

// TestVerifyInputPayToPubKey exercises the pay-to-pubkey path, including the
// signature cache, a wrong-key failure, and malformed signature data.
func TestVerifyInputPayToPubKey(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	pkScript := PayToPubKeyScript(key.PubKey())

	prevHash := chainhash.Hash{0x01}
	tx := spendingTx(&prevHash, 0)
	sigScript, err := SignatureScript(tx, 0, pkScript, key)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	tx.TxIn[0].SignatureScript = sigScript

	sigCache := NewSigCache(10)
	if err := VerifyInput(tx, 0, pkScript, 0, sigCache); err != nil {
		t.Fatalf("VerifyInput: %v", err)
	}

	// The second verification is served from the cache and must agree.
	if err := VerifyInput(tx, 0, pkScript, 0, sigCache); err != nil {
		t.Fatalf("VerifyInput (cached): %v", err)
	}

	// A signature from a different key must fail.
	otherKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	otherScript := PayToPubKeyScript(otherKey.PubKey())
	if err := VerifyInput(tx, 0, otherScript, 0, nil); !IsErrorKind(err, ErrSigVerify) {
		t.Fatalf("VerifyInput with wrong key: got %v, want ErrSigVerify", err)
	}

	// Garbage signature data must fail to parse.
	tx.TxIn[0].SignatureScript = []byte{0x01, 0x02, 0x03}
	err = VerifyInput(tx, 0, pkScript, 0, nil)
	if !IsErrorKind(err, ErrSignatureFormat) {
		t.Fatalf("VerifyInput with garbage sig: got %v, want "+
			"ErrSignatureFormat", err)
	}
}

// TestVerifyInputAnyoneCanSpend ensures an empty public key script places no
// condition on the spend.
func TestVerifyInputAnyoneCanSpend(t *testing.T) {
	prevHash := chainhash.Hash{0x02}
	tx := spendingTx(&prevHash, 0)
	if err := VerifyInput(tx, 0, nil, 0, nil); err != nil {
		t.Fatalf("VerifyInput: %v", err)
	}
}

// TestVerifyInputRejections ensures unsupported script versions and
// unrecognized script forms are rejected with the proper error kinds.
func TestVerifyInputRejections(t *testing.T) {
	prevHash := chainhash.Hash{0x03}
	tx := spendingTx(&prevHash, 0)

	err := VerifyInput(tx, 0, nil, 1, nil)
	if !IsErrorKind(err, ErrUnsupportedScriptVersion) {
		t.Fatalf("version 1: got %v, want ErrUnsupportedScriptVersion", err)
	}

	err = VerifyInput(tx, 0, []byte{0x01, 0x02}, 0, nil)
	if !IsErrorKind(err, ErrUnsupportedScript) {
		t.Fatalf("unknown form: got %v, want ErrUnsupportedScript", err)
	}

	// A 33-byte script with an invalid point must fail public key parsing.
	badKey := make([]byte, 33)
	badKey[0] = 0x02
	err = VerifyInput(tx, 0, badKey, 0, nil)
	if !IsErrorKind(err, ErrPubKeyFormat) {
		t.Fatalf("bad pubkey: got %v, want ErrPubKeyFormat", err)
	}
}

// TestSignatureHashCommitsToIndex ensures a signature made for one input
// cannot be migrated to a different input spending an output with the same
// spending condition.
func TestSignatureHashCommitsToIndex(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	pkScript := PayToPubKeyScript(key.PubKey())

	prevHash := chainhash.Hash{0x04}
	tx := wire.NewMsgTx()
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 1), nil))
	tx.AddTxOut(wire.NewTxOut(100000000, nil))

	sig0, err := SignatureScript(tx, 0, pkScript, key)
	if err != nil {
		t.Fatalf("SignatureScript: %v", err)
	}
	tx.TxIn[0].SignatureScript = sig0
	if err := VerifyInput(tx, 0, pkScript, 0, nil); err != nil {
		t.Fatalf("VerifyInput(0): %v", err)
	}

	// Reusing input 0's signature on input 1 must fail.
	tx.TxIn[1].SignatureScript = sig0
	if err := VerifyInput(tx, 1, pkScript, 0, nil); !IsErrorKind(err, ErrSigVerify) {
		t.Fatalf("VerifyInput(1) with migrated sig: got %v, want "+
			"ErrSigVerify", err)
	}
}
