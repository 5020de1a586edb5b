// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// TestBlockHeaderSerialize tests that serializing a block header and
// deserializing it back produces the original header and that the encoded
// size matches MaxBlockHeaderPayload.
func TestBlockHeaderSerialize(t *testing.T) {
	prevHash, err := chainhash.NewHashFromStr("000000000000000000000000000" +
		"00000000000000000000000000000000000a6")
	if err != nil {
		t.Fatalf("NewHashFromStr: %v", err)
	}
	merkleHash, err := chainhash.NewHashFromStr("4a5e1e4baab89f3a32518a88c3" +
		"1bc87f618f76673e2cc77ab2127b7afdeda33b")
	if err != nil {
		t.Fatalf("NewHashFromStr: %v", err)
	}

	hdr := BlockHeader{
		Version:    1,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleHash,
		Timestamp:  time.Unix(0x5f8f9e40, 0),
		Bits:       0x1d00ffff,
		Nonce:      0x9962e301,
		Height:     123456,
	}

	var buf bytes.Buffer
	if err := hdr.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != MaxBlockHeaderPayload {
		t.Fatalf("Serialize: unexpected size - got %d, want %d", buf.Len(),
			MaxBlockHeaderPayload)
	}

	var decoded BlockHeader
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(decoded, hdr) {
		t.Fatalf("Deserialize: mismatch - got %v, want %v",
			spew.Sdump(decoded), spew.Sdump(hdr))
	}

	// The block hash must be stable across serialization round trips.
	if decoded.BlockHash() != hdr.BlockHash() {
		t.Fatalf("BlockHash: mismatch after round trip")
	}
}

// TestBlockHeaderHashUniqueness ensures changing any header field changes the
// block hash.
func TestBlockHeaderHashUniqueness(t *testing.T) {
	base := BlockHeader{
		Version:   1,
		Timestamp: time.Unix(0x5f8f9e40, 0),
		Bits:      0x1d00ffff,
	}
	baseHash := base.BlockHash()

	mutated := base
	mutated.Nonce++
	if mutated.BlockHash() == baseHash {
		t.Fatal("hash did not change with nonce")
	}

	mutated = base
	mutated.Height++
	if mutated.BlockHash() == baseHash {
		t.Fatal("hash did not change with height")
	}

	mutated = base
	mutated.Timestamp = mutated.Timestamp.Add(time.Second)
	if mutated.BlockHash() == baseHash {
		t.Fatal("hash did not change with timestamp")
	}
}
