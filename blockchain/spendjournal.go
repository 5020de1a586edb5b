// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/database"
	"github.com/meridianchain/mrdd/wire"
)

// spentTxOut contains a spent transaction output and potentially additional
// contextual information such as whether or not it was contained in a
// coinbase transaction, and the height of the block that contains the
// transaction.  Together, the slice of these for a block forms the block's
// undo record: applying a block produces one spentTxOut per spent input, and
// reverting the block consumes them in reverse order to restore the utxo set
// to its exact prior state.
type spentTxOut struct {
	amount        int64
	pkScript      []byte
	height        uint32
	scriptVersion uint16
	isCoinBase    bool
}

// spentFlagCoinBase is the bit in the serialized stxo flags byte indicating
// the output was created by a coinbase transaction.
const spentFlagCoinBase = 1 << 0

// serializeSpendJournalEntry serializes all of the passed spent txouts into a
// single byte slice suitable for database storage.  The serialization is a
// varint entry count followed by each stxo as:
//
//	flags byte || block height (4 bytes) || script version (2 bytes) ||
//	amount (varint) || pk script (varbytes)
func serializeSpendJournalEntry(stxos []spentTxOut) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, uint64(len(stxos))); err != nil {
		return nil, err
	}
	for i := range stxos {
		stxo := &stxos[i]
		var flags byte
		if stxo.isCoinBase {
			flags |= spentFlagCoinBase
		}
		buf.WriteByte(flags)
		var scratch [4]byte
		scratch[0] = byte(stxo.height)
		scratch[1] = byte(stxo.height >> 8)
		scratch[2] = byte(stxo.height >> 16)
		scratch[3] = byte(stxo.height >> 24)
		buf.Write(scratch[:])
		buf.WriteByte(byte(stxo.scriptVersion))
		buf.WriteByte(byte(stxo.scriptVersion >> 8))
		if err := wire.WriteVarInt(&buf, uint64(stxo.amount)); err != nil {
			return nil, err
		}
		if err := wire.WriteVarBytes(&buf, stxo.pkScript); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// deserializeSpendJournalEntry decodes the passed serialized byte slice into
// a slice of spent txouts per the format described by
// serializeSpendJournalEntry.
func deserializeSpendJournalEntry(serialized []byte) ([]spentTxOut, error) {
	r := bytes.NewReader(serialized)
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	stxos := make([]spentTxOut, count)
	for i := uint64(0); i < count; i++ {
		stxo := &stxos[i]
		flags, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		stxo.isCoinBase = flags&spentFlagCoinBase != 0

		var scratch [6]byte
		if _, err := io.ReadFull(r, scratch[:]); err != nil {
			return nil, err
		}
		stxo.height = uint32(scratch[0]) | uint32(scratch[1])<<8 |
			uint32(scratch[2])<<16 | uint32(scratch[3])<<24
		stxo.scriptVersion = uint16(scratch[4]) | uint16(scratch[5])<<8

		amount, err := wire.ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		stxo.amount = int64(amount)

		pkScript, err := wire.ReadVarBytes(r, wire.MaxBlockPayload, "stxo pkscript")
		if err != nil {
			return nil, err
		}
		stxo.pkScript = pkScript
	}
	return stxos, nil
}

// dbFetchSpendJournalEntry fetches the spend journal entry for the passed
// block and deserializes it into a slice of spent txout entries.
//
// NOTE: Legitimate cases, such as nodes that have never had their block
// connected, can result in there being no entry, in which case both return
// values are nil.
func dbFetchSpendJournalEntry(dbTx database.Tx, blockHash *chainhash.Hash) ([]spentTxOut, error) {
	serialized, err := dbTx.Get(spendJournalKey(blockHash))
	if err != nil {
		return nil, err
	}
	if serialized == nil {
		return nil, nil
	}

	stxos, err := deserializeSpendJournalEntry(serialized)
	if err != nil {
		return nil, AssertError(fmt.Sprintf("corrupt spend journal entry "+
			"for %s: %v", blockHash, err))
	}
	return stxos, nil
}

// dbPutSpendJournalEntry uses an existing database transaction to update the
// spend journal entry for the given block hash using the provided slice of
// spent txouts.  The spent txouts slice must contain an entry for every txout
// the transactions in the block spend in the order they are spent.
func dbPutSpendJournalEntry(dbTx database.Tx, blockHash *chainhash.Hash, stxos []spentTxOut) error {
	serialized, err := serializeSpendJournalEntry(stxos)
	if err != nil {
		return err
	}
	return dbTx.Put(spendJournalKey(blockHash), serialized)
}

// dbRemoveSpendJournalEntry uses an existing database transaction to remove
// the spend journal entry for the passed block hash.
func dbRemoveSpendJournalEntry(dbTx database.Tx, blockHash *chainhash.Hash) error {
	return dbTx.Delete(spendJournalKey(blockHash))
}
