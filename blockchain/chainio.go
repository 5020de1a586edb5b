// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/database"
	"github.com/meridianchain/mrdd/mrdutil"
	"github.com/meridianchain/mrdd/wire"
)

// Database key prefixes.  Every piece of chain state lives under a distinct
// single-byte prefix so that related entries can be iterated with a prefix
// scan.
var (
	// bestChainStateKey houses the serialized best chain state.
	bestChainStateKey = []byte("chainstate")

	// blockIndexKeyPrefix is the prefix for keys that house serialized
	// block index entries.  The remainder of the key is the big-endian
	// block height followed by the block hash, which makes a prefix scan
	// yield entries in ascending height order so parents always load
	// before their children.
	blockIndexKeyPrefix = []byte("i")

	// blockKeyPrefix is the prefix for keys that house serialized blocks.
	// The remainder of the key is the block hash.
	blockKeyPrefix = []byte("b")

	// utxoKeyPrefix is the prefix for keys that house serialized unspent
	// transaction outputs.  The remainder of the key is the serialized
	// outpoint.
	utxoKeyPrefix = []byte("u")

	// spendJournalKeyPrefix is the prefix for keys that house the spend
	// journal entry (undo record) for a block.  The remainder of the key is
	// the block hash.
	spendJournalKeyPrefix = []byte("s")
)

// blockIndexKey generates the binary key for an entry in the block index.
// The key is composed of the block index prefix, the height encoded as a
// big-endian 32-bit unsigned int, and the block hash.
func blockIndexKey(blockHash *chainhash.Hash, blockHeight uint32) []byte {
	indexKey := make([]byte, len(blockIndexKeyPrefix)+chainhash.HashSize+4)
	copy(indexKey, blockIndexKeyPrefix)
	indexKey[1] = byte(blockHeight >> 24)
	indexKey[2] = byte(blockHeight >> 16)
	indexKey[3] = byte(blockHeight >> 8)
	indexKey[4] = byte(blockHeight)
	copy(indexKey[5:], blockHash[:])
	return indexKey
}

// blockKey generates the binary key for a stored block.
func blockKey(blockHash *chainhash.Hash) []byte {
	key := make([]byte, len(blockKeyPrefix)+chainhash.HashSize)
	copy(key, blockKeyPrefix)
	copy(key[1:], blockHash[:])
	return key
}

// spendJournalKey generates the binary key for a block's spend journal entry.
func spendJournalKey(blockHash *chainhash.Hash) []byte {
	key := make([]byte, len(spendJournalKeyPrefix)+chainhash.HashSize)
	copy(key, spendJournalKeyPrefix)
	copy(key[1:], blockHash[:])
	return key
}

// utxoKey generates the binary key for an unspent transaction output.
func utxoKey(outpoint wire.OutPoint) []byte {
	key := make([]byte, len(utxoKeyPrefix)+chainhash.HashSize+4)
	copy(key, utxoKeyPrefix)
	copy(key[1:], outpoint.Hash[:])
	key[1+chainhash.HashSize] = byte(outpoint.Index >> 24)
	key[2+chainhash.HashSize] = byte(outpoint.Index >> 16)
	key[3+chainhash.HashSize] = byte(outpoint.Index >> 8)
	key[4+chainhash.HashSize] = byte(outpoint.Index)
	return key
}

// -----------------------------------------------------------------------------
// The serialized format of a utxo entry is:
//
//	flags byte || block height (4 bytes) || script version (2 bytes) ||
//	amount (varint) || pk script (varbytes)
//
// The flags byte reuses the in-memory utxoFlags definitions, however only the
// coinbase flag is serialized since the remaining flags describe in-memory
// view state.
// -----------------------------------------------------------------------------

// serializeUtxoEntry returns the entry serialized to a format suitable for
// database storage.
func serializeUtxoEntry(entry *UtxoEntry) ([]byte, error) {
	var buf bytes.Buffer
	var flags byte
	if entry.IsCoinBase() {
		flags |= byte(utxoFlagCoinBase)
	}
	buf.WriteByte(flags)
	buf.Write([]byte{
		byte(entry.blockHeight),
		byte(entry.blockHeight >> 8),
		byte(entry.blockHeight >> 16),
		byte(entry.blockHeight >> 24),
		byte(entry.scriptVersion),
		byte(entry.scriptVersion >> 8),
	})
	if err := wire.WriteVarInt(&buf, uint64(entry.amount)); err != nil {
		return nil, err
	}
	if err := wire.WriteVarBytes(&buf, entry.pkScript); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeUtxoEntry decodes a utxo entry from the passed serialized byte
// slice into a new UtxoEntry per the format described by serializeUtxoEntry.
func deserializeUtxoEntry(serialized []byte) (*UtxoEntry, error) {
	r := bytes.NewReader(serialized)
	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	var scratch [6]byte
	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return nil, err
	}
	amount, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	pkScript, err := wire.ReadVarBytes(r, wire.MaxBlockPayload, "utxo pkscript")
	if err != nil {
		return nil, err
	}

	entry := &UtxoEntry{
		amount: int64(amount),
		blockHeight: uint32(scratch[0]) | uint32(scratch[1])<<8 |
			uint32(scratch[2])<<16 | uint32(scratch[3])<<24,
		scriptVersion: uint16(scratch[4]) | uint16(scratch[5])<<8,
		pkScript:      pkScript,
	}
	if flags&byte(utxoFlagCoinBase) != 0 {
		entry.packedFlags |= utxoFlagCoinBase
	}
	return entry, nil
}

// dbFetchUtxoEntry uses an existing database transaction to fetch the
// specified transaction output from the utxo set.  When there is no entry for
// the provided output, nil will be returned for both the entry and the error.
func dbFetchUtxoEntry(dbTx database.Tx, outpoint wire.OutPoint) (*UtxoEntry, error) {
	serialized, err := dbTx.Get(utxoKey(outpoint))
	if err != nil {
		return nil, err
	}
	if serialized == nil {
		return nil, nil
	}

	entry, err := deserializeUtxoEntry(serialized)
	if err != nil {
		return nil, AssertError(fmt.Sprintf("corrupt utxo entry for %v: %v",
			outpoint, err))
	}
	return entry, nil
}

// dbPutUtxoView uses an existing database transaction to update the utxo set
// in the database based on the provided utxo view contents and state.  In
// particular, only the entries that have been marked as modified are written
// to the database.
func dbPutUtxoView(dbTx database.Tx, view *UtxoViewpoint) error {
	for outpoint, entry := range view.entries {
		// No need to update the database if the entry was not modified.
		if entry == nil || !entry.isModified() {
			continue
		}

		// Remove the utxo entry if it is spent.
		if entry.IsSpent() {
			if err := dbTx.Delete(utxoKey(outpoint)); err != nil {
				return err
			}
			continue
		}

		// Serialize and store the utxo entry.
		serialized, err := serializeUtxoEntry(entry)
		if err != nil {
			return err
		}
		if err := dbTx.Put(utxoKey(outpoint), serialized); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// The serialized format of a block index entry is:
//
//	block header || status byte
// -----------------------------------------------------------------------------

// dbPutBlockNode stores the information needed to reconstruct the provided
// block node in the block index according to the format described above.
func dbPutBlockNode(dbTx database.Tx, node *blockNode) error {
	var buf bytes.Buffer
	buf.Grow(wire.MaxBlockHeaderPayload + 1)
	header := node.Header()
	if err := header.Serialize(&buf); err != nil {
		return err
	}
	buf.WriteByte(byte(node.status))

	key := blockIndexKey(&node.hash, uint32(node.height))
	return dbTx.Put(key, buf.Bytes())
}

// deserializeBlockNode decodes a block index entry into a block node.  The
// parent, which may be nil for the genesis block, is used to derive the
// cumulative work.
func deserializeBlockNode(serialized []byte, parent *blockNode) (*blockNode, error) {
	var header wire.BlockHeader
	r := bytes.NewReader(serialized)
	if err := header.Deserialize(r); err != nil {
		return nil, err
	}
	statusByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	node := newBlockNode(&header, parent)
	node.status = blockStatus(statusByte)
	return node, nil
}

// dbPutBlock stores the provided block in the database.
func dbPutBlock(dbTx database.Tx, block *mrdutil.Block) error {
	blockBytes, err := block.Bytes()
	if err != nil {
		return err
	}
	return dbTx.Put(blockKey(block.Hash()), blockBytes)
}

// dbFetchBlockByHash uses an existing database transaction to retrieve the
// block for the provided hash.  When there is no entry for the provided hash,
// nil will be returned for both the block and the error.
func dbFetchBlockByHash(dbTx database.Tx, hash *chainhash.Hash) (*mrdutil.Block, error) {
	blockBytes, err := dbTx.Get(blockKey(hash))
	if err != nil {
		return nil, err
	}
	if blockBytes == nil {
		return nil, nil
	}
	return mrdutil.NewBlockFromBytes(blockBytes)
}

// -----------------------------------------------------------------------------
// The best chain state consists of the best block hash and height, the total
// number of transactions up to and including those in the best block, and the
// accumulated work sum up to and including the best block.
//
// The serialized format is:
//
//	block hash || block height (4 bytes) || total txns (8 bytes) ||
//	work sum length (4 bytes) || work sum
// -----------------------------------------------------------------------------

// bestChainState represents the data to be stored the database for the
// current best chain state.
type bestChainState struct {
	hash      chainhash.Hash
	height    uint32
	totalTxns uint64
	workSum   *big.Int
}

// serializeBestChainState returns the serialization of the passed block best
// chain state.  This is data to be stored in the chain state key.
func serializeBestChainState(state bestChainState) []byte {
	// Calculate the full size needed to serialize the chain state.
	workSumBytes := state.workSum.Bytes()
	workSumBytesLen := uint32(len(workSumBytes))
	serializedLen := chainhash.HashSize + 4 + 8 + 4 + workSumBytesLen

	// Serialize the chain state.
	serializedData := make([]byte, serializedLen)
	copy(serializedData[0:chainhash.HashSize], state.hash[:])
	offset := uint32(chainhash.HashSize)
	byteOrderPutUint32(serializedData[offset:], state.height)
	offset += 4
	byteOrderPutUint64(serializedData[offset:], state.totalTxns)
	offset += 8
	byteOrderPutUint32(serializedData[offset:], workSumBytesLen)
	offset += 4
	copy(serializedData[offset:], workSumBytes)
	return serializedData
}

// deserializeBestChainState deserializes the passed serialized best chain
// state.  This is data stored in the chain state key and is updated after
// every block is connected or disconnected from the main chain.
func deserializeBestChainState(serializedData []byte) (bestChainState, error) {
	// Ensure the serialized data has enough bytes to properly deserialize
	// the hash, height, total transactions, and work sum length.
	expectedMinLen := chainhash.HashSize + 4 + 8 + 4
	if len(serializedData) < expectedMinLen {
		return bestChainState{}, database.MakeError(database.ErrCorruption,
			"corrupt best chain state")
	}

	state := bestChainState{}
	copy(state.hash[:], serializedData[0:chainhash.HashSize])
	offset := uint32(chainhash.HashSize)
	state.height = byteOrderUint32(serializedData[offset : offset+4])
	offset += 4
	state.totalTxns = byteOrderUint64(serializedData[offset : offset+8])
	offset += 8
	workSumBytesLen := byteOrderUint32(serializedData[offset : offset+4])
	offset += 4

	// Ensure the serialized data has enough bytes to deserialize the work
	// sum.
	if uint32(len(serializedData[offset:])) < workSumBytesLen {
		return bestChainState{}, database.MakeError(database.ErrCorruption,
			"corrupt best chain state work sum")
	}
	workSumBytes := serializedData[offset : offset+workSumBytesLen]
	state.workSum = new(big.Int).SetBytes(workSumBytes)

	return state, nil
}

// byteOrderPutUint32 writes a little-endian uint32 into the passed slice.
func byteOrderPutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// byteOrderUint32 reads a little-endian uint32 from the passed slice.
func byteOrderUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// byteOrderPutUint64 writes a little-endian uint64 into the passed slice.
func byteOrderPutUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// byteOrderUint64 reads a little-endian uint64 from the passed slice.
func byteOrderUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// dbPutBestState uses an existing database transaction to update the best
// chain state with the given parameters.
func dbPutBestState(dbTx database.Tx, snapshot *BestState, workSum *big.Int) error {
	serializedData := serializeBestChainState(bestChainState{
		hash:      snapshot.Hash,
		height:    uint32(snapshot.Height),
		totalTxns: snapshot.TotalTxns,
		workSum:   workSum,
	})
	return dbTx.Put(bestChainStateKey, serializedData)
}

// createChainState initializes both the database and the chain state to the
// genesis block.  This includes creating the necessary index entries, the
// utxo set bookkeeping, and the best chain state, all within a single
// database transaction so the store is either fully bootstrapped or untouched.
func (b *BlockChain) createChainState() error {
	// Create a new node from the genesis block and set it as the best node.
	genesisBlock := mrdutil.NewBlock(b.chainParams.GenesisBlock)
	header := &genesisBlock.MsgBlock().Header
	node := newBlockNode(header, nil)
	node.status = statusDataStored | statusValidated

	// Initialize the state related to the best block.  Since it is the
	// genesis block, use its timestamp for the median time.
	numTxns := uint64(len(genesisBlock.MsgBlock().Transactions))
	blockSize := uint64(genesisBlock.MsgBlock().SerializeSize())
	stateSnapshot := newBestState(node, blockSize, numTxns, numTxns,
		time.Unix(node.timestamp, 0))

	err := b.db.Update(func(dbTx database.Tx) error {
		// Store the genesis block.
		if err := dbPutBlock(dbTx, genesisBlock); err != nil {
			return err
		}

		// Add the genesis block to the block index.
		if err := dbPutBlockNode(dbTx, node); err != nil {
			return err
		}

		// Store the current best chain state into the database.
		return dbPutBestState(dbTx, stateSnapshot, node.workSum)
	})
	if err != nil {
		return err
	}

	b.index.AddNode(node)
	b.bestChain.SetTip(node)
	b.stateSnapshot = stateSnapshot
	log.Infof("Created new chain state from genesis block %s",
		b.chainParams.GenesisHash)
	return nil
}

// initChainState attempts to load and initialize the chain state from the
// database.  When the database has not yet been initialized for the given
// network, it is bootstrapped from the genesis block.
func (b *BlockChain) initChainState() error {
	var initialized bool
	err := b.db.View(func(dbTx database.Tx) error {
		// Fetch the stored best chain state from the database.
		serializedData, err := dbTx.Get(bestChainStateKey)
		if err != nil {
			return err
		}
		if serializedData == nil {
			return nil
		}
		initialized = true

		state, err := deserializeBestChainState(serializedData)
		if err != nil {
			return err
		}

		// Load all of the block index entries from the database.  The keys
		// are iterated in ascending height order, so parent nodes are
		// guaranteed to load before their children.
		err = dbTx.ForEachPrefix(blockIndexKeyPrefix, func(key, value []byte) error {
			var parentHash chainhash.Hash
			// The parent hash lives in the serialized header right after
			// the 4 byte version.
			copy(parentHash[:], value[4:4+chainhash.HashSize])
			parent := b.index.LookupNode(&parentHash)

			node, err := deserializeBlockNode(value, parent)
			if err != nil {
				return err
			}
			if parent == nil && node.height != 0 {
				return AssertError(fmt.Sprintf("initChainState: block "+
					"index entry %s at height %d has no parent",
					node.hash, node.height))
			}
			b.index.AddNode(node)
			return nil
		})
		if err != nil {
			return err
		}

		// Set the best chain to the stored best state.
		tip := b.index.LookupNode(&state.hash)
		if tip == nil {
			return AssertError(fmt.Sprintf("initChainState: cannot find "+
				"chain tip %s in block index", state.hash))
		}
		b.bestChain.SetTip(tip)

		// Load the best block and initialize the memory state snapshot.
		block, err := dbFetchBlockByHash(dbTx, &state.hash)
		if err != nil {
			return err
		}
		if block == nil {
			return AssertError(fmt.Sprintf("initChainState: cannot find "+
				"best chain block %s", state.hash))
		}

		numTxns := uint64(len(block.MsgBlock().Transactions))
		blockSize := uint64(block.MsgBlock().SerializeSize())
		b.stateSnapshot = newBestState(tip, blockSize, numTxns,
			state.totalTxns, b.index.PastMedianTime(tip))
		return nil
	})
	if err != nil {
		return err
	}

	// Nothing stored for this network yet, bootstrap from genesis.
	if !initialized {
		return b.createChainState()
	}

	// The loaded nodes are already stored, so they do not need to be
	// flushed back out.
	b.index.clearModified()
	log.Infof("Loaded block index with %d entries, best chain height %d",
		len(b.index.index), b.bestChain.Height())
	return nil
}
