// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// MaxBlockHeaderPayload is the number of bytes a block header can be.
// Version 4 bytes + PrevBlock 32 bytes + MerkleRoot 32 bytes + Timestamp 8
// bytes + Bits 4 bytes + Nonce 8 bytes + Height 4 bytes.
const MaxBlockHeaderPayload = 4 + (chainhash.HashSize * 2) + 8 + 4 + 8 + 4

// BlockHeader defines information about a block and is used in the block
// (MsgBlock) message.
type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	Version int32

	// Hash of the previous block in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.  Encoded as int64 unix time on the wire,
	// so the precision is limited to one second.
	Timestamp time.Time

	// Difficulty target for the block in compact representation.
	Bits uint32

	// Nonce used to generate the block so its hash satisfies the proof of
	// work requirement.
	Nonce uint64

	// Height is the block height in the block chain.
	Height uint32
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	// Encode the header and hash everything.  Ignore the error returns since
	// there is no way the encode could fail except being out of memory which
	// would cause a run-time panic.
	buf := bytes.NewBuffer(make([]byte, 0, MaxBlockHeaderPayload))
	_ = writeBlockHeader(buf, h)

	return chainhash.HashH(buf.Bytes())
}

// Deserialize decodes a block header from r using the canonical encoding.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// Serialize encodes a block header from r using the canonical encoding.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Bytes returns the serialized form of the block header in bytes.
func (h *BlockHeader) Bytes() ([]byte, error) {
	var w bytes.Buffer
	w.Grow(MaxBlockHeaderPayload)
	if err := h.Serialize(&w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// NewBlockHeader returns a new BlockHeader using the provided parameters.
func NewBlockHeader(version int32, prevHash, merkleRoot *chainhash.Hash,
	bits uint32, height uint32) *BlockHeader {

	// Limit the timestamp to one second precision since the protocol
	// doesn't support better.
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRoot,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Height:     height,
	}
}

// readBlockHeader reads a block header from r.
func readBlockHeader(r io.Reader, bh *BlockHeader) error {
	version, err := readUint32(r)
	if err != nil {
		return err
	}
	bh.Version = int32(version)

	if err := readHash(r, &bh.PrevBlock); err != nil {
		return err
	}
	if err := readHash(r, &bh.MerkleRoot); err != nil {
		return err
	}

	timestamp, err := readUint64(r)
	if err != nil {
		return err
	}
	bh.Timestamp = time.Unix(int64(timestamp), 0)

	if bh.Bits, err = readUint32(r); err != nil {
		return err
	}
	if bh.Nonce, err = readUint64(r); err != nil {
		return err
	}
	if bh.Height, err = readUint32(r); err != nil {
		return err
	}
	return nil
}

// writeBlockHeader writes a block header to w.
func writeBlockHeader(w io.Writer, bh *BlockHeader) error {
	if err := writeUint32(w, uint32(bh.Version)); err != nil {
		return err
	}
	if err := writeHash(w, &bh.PrevBlock); err != nil {
		return err
	}
	if err := writeHash(w, &bh.MerkleRoot); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(bh.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeUint32(w, bh.Bits); err != nil {
		return err
	}
	if err := writeUint64(w, bh.Nonce); err != nil {
		return err
	}
	return writeUint32(w, bh.Height)
}
