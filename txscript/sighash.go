// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/meridianchain/mrdd/wire"
)

// CalcSignatureHash computes the hash that a signature for the given input
// must commit to.  The hash covers the entire transaction with every
// signature script replaced by nothing, except the input being signed, whose
// signature script is replaced by the public key script of the output it
// spends, followed by the index of the input.  Committing to the index
// prevents a signature from being migrated to a different input of the same
// transaction that spends an output with the same spending condition.
func CalcSignatureHash(tx *wire.MsgTx, idx int, pkScript []byte) (chainhash.Hash, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return chainhash.Hash{}, scriptError(ErrSignatureFormat,
			"signature hash input index %d out of range", idx)
	}

	txCopy := tx.Copy()
	for i := range txCopy.TxIn {
		if i == idx {
			txCopy.TxIn[i].SignatureScript = pkScript
		} else {
			txCopy.TxIn[i].SignatureScript = nil
		}
	}

	var buf bytes.Buffer
	buf.Grow(txCopy.SerializeSize() + 4)
	if err := txCopy.Serialize(&buf); err != nil {
		return chainhash.Hash{}, err
	}
	var idxBytes [4]byte
	binary.LittleEndian.PutUint32(idxBytes[:], uint32(idx))
	buf.Write(idxBytes[:])

	return chainhash.HashH(buf.Bytes()), nil
}
