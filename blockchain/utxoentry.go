// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

// utxoFlags is a bitmask defining additional information and state for a
// transaction output in a utxo view.
type utxoFlags uint8

const (
	// utxoFlagCoinBase indicates that a txout was contained in a coinbase
	// transaction.
	utxoFlagCoinBase utxoFlags = 1 << 0

	// utxoFlagSpent indicates that a txout is spent.
	utxoFlagSpent utxoFlags = 1 << 1

	// utxoFlagModified indicates that a txout has been modified since it
	// was loaded.
	utxoFlagModified utxoFlags = 1 << 2

	// utxoFlagFresh indicates that a txout was added since the view was
	// last committed to the database and therefore does not exist in the
	// backing store.  Spending a fresh entry removes it from the view
	// entirely rather than requiring a database delete.
	utxoFlagFresh utxoFlags = 1 << 3
)

// UtxoEntry houses details about an individual transaction output in a utxo
// view such as whether or not it was contained in a coinbase tx, the height
// of the block that contains the tx, whether or not it is spent, its public
// key script, and how much it pays.
type UtxoEntry struct {
	// NOTE: Additions, deletions, or modifications to the order of the
	// definitions in this struct should not be changed without considering
	// how it affects alignment on 64-bit platforms.  The current order is
	// specifically crafted to result in minimal padding.  There will be a
	// lot of these in memory, so a few extra bytes of padding adds up.
	amount        int64
	pkScript      []byte
	blockHeight   uint32
	scriptVersion uint16

	// packedFlags contains additional info about the output as defined by
	// utxoFlags.  This approach is used in order to reduce memory usage
	// since there will be a lot of these in memory.
	packedFlags utxoFlags
}

// isModified returns whether or not the output has been modified since it was
// loaded.
func (entry *UtxoEntry) isModified() bool {
	return entry.packedFlags&utxoFlagModified != 0
}

// isFresh returns whether or not the output was added since the view was last
// committed to the database.
func (entry *UtxoEntry) isFresh() bool {
	return entry.packedFlags&utxoFlagFresh != 0
}

// IsCoinBase returns whether or not the output was contained in a coinbase
// transaction.
func (entry *UtxoEntry) IsCoinBase() bool {
	return entry.packedFlags&utxoFlagCoinBase != 0
}

// IsSpent returns whether or not the output has been spent based on the
// current state of the unspent transaction output view it was obtained from.
func (entry *UtxoEntry) IsSpent() bool {
	return entry.packedFlags&utxoFlagSpent != 0
}

// BlockHeight returns the height of the block containing the output.
func (entry *UtxoEntry) BlockHeight() int64 {
	return int64(entry.blockHeight)
}

// Spend marks the output as spent.  Spending an output that is already spent
// has no effect.
func (entry *UtxoEntry) Spend() {
	// Nothing to do if the output is already spent.
	if entry.IsSpent() {
		return
	}

	// Mark the output as spent and modified.
	entry.packedFlags |= utxoFlagSpent | utxoFlagModified
}

// Amount returns the amount of the output.
func (entry *UtxoEntry) Amount() int64 {
	return entry.amount
}

// PkScript returns the public key script for the output.
func (entry *UtxoEntry) PkScript() []byte {
	return entry.pkScript
}

// ScriptVersion returns the public key script version for the output.
func (entry *UtxoEntry) ScriptVersion() uint16 {
	return entry.scriptVersion
}

// Clone returns a deep copy of the utxo entry.
func (entry *UtxoEntry) Clone() *UtxoEntry {
	if entry == nil {
		return nil
	}

	return &UtxoEntry{
		amount:        entry.amount,
		pkScript:      entry.pkScript,
		blockHeight:   entry.blockHeight,
		scriptVersion: entry.scriptVersion,
		packedFlags:   entry.packedFlags,
	}
}
