// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// TestTxSerialize tests that serializing a transaction and deserializing it
// back produces the original transaction.
func TestTxSerialize(t *testing.T) {
	prevHash := chainhash.Hash{0x01}
	tx := NewMsgTx()
	tx.AddTxIn(NewTxIn(NewOutPoint(&prevHash, 2), []byte{0x04, 0x31}))
	tx.AddTxOut(NewTxOut(5000000000, []byte{0x41, 0x04, 0xd6}))
	tx.LockTime = 19

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != tx.SerializeSize() {
		t.Fatalf("SerializeSize: got %d, want %d", tx.SerializeSize(),
			buf.Len())
	}

	var decoded MsgTx
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(&decoded, tx) {
		t.Fatalf("Deserialize: mismatch - got %v, want %v",
			spew.Sdump(decoded), spew.Sdump(tx))
	}
	if decoded.TxHash() != tx.TxHash() {
		t.Fatal("TxHash: mismatch after round trip")
	}
}

// TestTxCopy tests that copying a transaction performs a deep copy.
func TestTxCopy(t *testing.T) {
	prevHash := chainhash.Hash{0x20}
	tx := NewMsgTx()
	tx.AddTxIn(NewTxIn(NewOutPoint(&prevHash, 0), []byte{0x01, 0x02}))
	tx.AddTxOut(NewTxOut(100, []byte{0x03}))

	newTx := tx.Copy()
	if newTx.TxHash() != tx.TxHash() {
		t.Fatal("copied transaction hash differs")
	}

	// Mutating the copy must not affect the original.
	newTx.TxIn[0].SignatureScript[0] = 0xff
	if tx.TxIn[0].SignatureScript[0] == 0xff {
		t.Fatal("copy shares signature script storage with original")
	}
	newTx.TxOut[0].PkScript[0] = 0xff
	if tx.TxOut[0].PkScript[0] == 0xff {
		t.Fatal("copy shares pk script storage with original")
	}
}

// TestIsCoinBaseTx verifies coinbase identification.
func TestIsCoinBaseTx(t *testing.T) {
	coinbase := NewMsgTx()
	coinbase.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{Index: math.MaxUint32},
		Sequence:         MaxTxInSequenceNum,
		SignatureScript:  []byte{0x00},
	})
	coinbase.AddTxOut(NewTxOut(50e8, nil))
	if !IsCoinBaseTx(coinbase) {
		t.Fatal("expected coinbase")
	}

	regular := NewMsgTx()
	regular.AddTxIn(NewTxIn(NewOutPoint(&chainhash.Hash{0x01}, 0), nil))
	regular.AddTxOut(NewTxOut(50e8, nil))
	if IsCoinBaseTx(regular) {
		t.Fatal("expected non-coinbase")
	}
}

// TestVarIntRoundTrip exercises canonical varint encoding across the
// discriminant boundaries.
func TestVarIntRoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff,
		0x100000000, 0xffffffffffffffff}
	for _, val := range tests {
		var buf bytes.Buffer
		if err := WriteVarInt(&buf, val); err != nil {
			t.Fatalf("WriteVarInt(%d): %v", val, err)
		}
		if buf.Len() != VarIntSerializeSize(val) {
			t.Fatalf("VarIntSerializeSize(%d): got %d, want %d", val,
				VarIntSerializeSize(val), buf.Len())
		}
		got, err := ReadVarInt(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("ReadVarInt(%d): %v", val, err)
		}
		if got != val {
			t.Fatalf("ReadVarInt(%d): got %d", val, got)
		}
	}

	// Non-canonical encodings must be rejected.
	nonCanonical := []byte{0xfd, 0x01, 0x00} // 1 encoded with 3 bytes
	_, err := ReadVarInt(bytes.NewReader(nonCanonical))
	var merr MessageError
	if !errors.As(err, &merr) || !errors.Is(err, ErrNonCanonicalVarInt) {
		t.Fatalf("expected ErrNonCanonicalVarInt, got %v", err)
	}
}
