// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// TestGenesisHashesDiffer ensures the genesis blocks of all defined networks
// hash to distinct values so blocks from one network can never be mistaken
// for another.
func TestGenesisHashesDiffer(t *testing.T) {
	hashes := map[chainhash.Hash]string{}
	for _, params := range []*Params{MainNetParams(), TestNetParams(),
		SimNetParams()} {

		if other, ok := hashes[params.GenesisHash]; ok {
			t.Fatalf("%s and %s share a genesis hash", params.Name, other)
		}
		hashes[params.GenesisHash] = params.Name

		// The stored hash must match the block it claims to identify.
		if got := params.GenesisBlock.BlockHash(); got != params.GenesisHash {
			t.Fatalf("%s: genesis hash mismatch: got %v, want %v",
				params.Name, got, params.GenesisHash)
		}
	}
}

// TestGenesisMerkleRoot ensures the genesis merkle root is the hash of the
// single coinbase transaction.
func TestGenesisMerkleRoot(t *testing.T) {
	params := MainNetParams()
	wantRoot := params.GenesisBlock.Transactions[0].TxHash()
	if params.GenesisBlock.Header.MerkleRoot != wantRoot {
		t.Fatalf("genesis merkle root mismatch: got %v, want %v",
			params.GenesisBlock.Header.MerkleRoot, wantRoot)
	}
}

// TestRequiredBlockVersion exercises the upgrade schedule lookup across
// activation boundaries.
func TestRequiredBlockVersion(t *testing.T) {
	params := &Params{Upgrades: []ConsensusUpgrade{
		{ActivationHeight: 100, RequiredBlockVersion: 2},
		{ActivationHeight: 200, RequiredBlockVersion: 3},
	}}

	tests := []struct {
		height uint32
		want   int32
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{200, 3},
		{100000, 3},
	}
	for _, test := range tests {
		if got := params.RequiredBlockVersion(test.height); got != test.want {
			t.Errorf("height %d: got version %d, want %d", test.height,
				got, test.want)
		}
	}
}
