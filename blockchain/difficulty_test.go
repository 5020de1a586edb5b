// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// TestBigToCompact ensures big integers are converted to the compact
// representation as expected.
func TestBigToCompact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in  *big.Int
		out uint32
	}{
		{big.NewInt(0), 0},
		{big.NewInt(1), 0x01010000},
		{big.NewInt(128), 0x02008000},
		{big.NewInt(0x123456), 0x03123456},
		{big.NewInt(0x12345600), 0x04123456},
		{new(big.Int).Lsh(big.NewInt(0x7fffff), 232), 0x207fffff},
	}

	for i, test := range tests {
		got := BigToCompact(test.in)
		if got != test.out {
			t.Errorf("test #%d: got 0x%08x, want 0x%08x", i, got, test.out)
		}
	}
}

// TestCompactToBig ensures compact representations are converted to big
// integers as expected.
func TestCompactToBig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in  uint32
		out *big.Int
	}{
		{0, big.NewInt(0)},
		{0x01010000, big.NewInt(1)},
		{0x01810000, big.NewInt(-1)},
		{0x02008000, big.NewInt(128)},
		{0x03123456, big.NewInt(0x123456)},
		{0x04123456, big.NewInt(0x12345600)},
		{0x207fffff, new(big.Int).Lsh(big.NewInt(0x7fffff), 232)},
	}

	for i, test := range tests {
		got := CompactToBig(test.in)
		if got.Cmp(test.out) != 0 {
			t.Errorf("test #%d: got %x, want %x", i, got, test.out)
		}
	}
}

// TestCalcWork ensures the work values associated with difficulty bits are
// calculated as expected.
func TestCalcWork(t *testing.T) {
	t.Parallel()

	// A target of one results in half of all possible hash values passing,
	// which is 2^255 work.
	if got := CalcWork(0x01010000); got.Cmp(new(big.Int).Lsh(bigOne, 255)) != 0 {
		t.Errorf("work for target of one is %x, want 1<<255", got)
	}

	// Zero and negative targets can never be valid and thus represent zero
	// work.
	if got := CalcWork(0); got.Sign() != 0 {
		t.Errorf("work for zero target is %x, want 0", got)
	}
	if got := CalcWork(0x01810000); got.Sign() != 0 {
		t.Errorf("work for negative target is %x, want 0", got)
	}
}

// TestCheckProofOfWork ensures hashes and claimed difficulties that are
// outside of the valid ranges are detected as expected.
func TestCheckProofOfWork(t *testing.T) {
	t.Parallel()

	// The proof of work limit used throughout accepts targets up to
	// 2^255 - 1.
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
	lowHash := chainhash.Hash{0: 0x01}
	highHash := chainhash.Hash{31: 0xff}
	tests := []struct {
		name string
		hash *chainhash.Hash
		bits uint32
		err  error
	}{{
		name: "hash below target",
		hash: &lowHash,
		bits: 0x207fffff,
	}, {
		name: "zero target difficulty",
		hash: &lowHash,
		bits: 0,
		err:  ErrUnexpectedDifficulty,
	}, {
		name: "negative target difficulty",
		hash: &lowHash,
		bits: 0x01810000,
		err:  ErrUnexpectedDifficulty,
	}, {
		name: "target above proof of work limit",
		hash: &lowHash,
		bits: 0x22000100,
		err:  ErrUnexpectedDifficulty,
	}, {
		name: "hash above target",
		hash: &highHash,
		bits: 0x01010000,
		err:  ErrHighHash,
	}}

	for _, test := range tests {
		err := checkProofOfWork(test.hash, test.bits, powLimit)
		if !errors.Is(err, test.err) {
			t.Errorf("%s: unexpected error -- got %v, want %v", test.name,
				err, test.err)
		}
	}
}

// TestCalcNextRequiredDifficulty ensures the difficulty retarget calculation
// over a live chain matches the retarget rules and rejects unknown blocks.
func TestCalcNextRequiredDifficulty(t *testing.T) {
	t.Parallel()

	chain, params := newTestChain(t, nil)
	g := newTestGenerator(t, params)

	// Build a chain up to one block before the first retarget interval.
	// Interior blocks must reuse the difficulty of their predecessor.
	windowSize := params.WorkDiffWindowSize
	for height := int64(1); height < windowSize; height++ {
		name := blockNameForHeight(height)
		g.nextBlock(name, nil)
		g.acceptBlock(chain, name, StatusNewTip)
	}
	best := chain.BestSnapshot()
	if (best.Height+1)%windowSize != 0 {
		t.Fatalf("tip height %d is not one before a retarget interval",
			best.Height)
	}

	// The next block is the retarget block, so the required bits must match
	// the generator's independent calculation and, since the test blocks
	// arrive faster than the target time per block, the difficulty must
	// increase by lowering the target.
	retargetBits, err := chain.CalcNextRequiredDifficulty(&best.Hash)
	if err != nil {
		t.Fatalf("unexpected error calculating difficulty: %v", err)
	}
	if wantBits := g.calcNextRequiredDifficulty(); retargetBits != wantBits {
		t.Fatalf("retarget bits are 0x%08x, want 0x%08x", retargetBits,
			wantBits)
	}
	oldTarget := CompactToBig(best.Bits)
	newTarget := CompactToBig(retargetBits)
	if newTarget.Cmp(oldTarget) >= 0 {
		t.Fatalf("retarget did not lower the target: 0x%08x -> 0x%08x",
			best.Bits, retargetBits)
	}

	// A block in the interior of the next window must reuse the retarget
	// difficulty.
	retargetName := blockNameForHeight(windowSize)
	g.nextBlock(retargetName, nil)
	g.acceptBlock(chain, retargetName, StatusNewTip)
	best = chain.BestSnapshot()
	bits, err := chain.CalcNextRequiredDifficulty(&best.Hash)
	if err != nil {
		t.Fatalf("unexpected error calculating difficulty: %v", err)
	}
	if bits != best.Bits {
		t.Fatalf("interior block bits are 0x%08x, want 0x%08x", bits,
			best.Bits)
	}

	// An unknown block hash must be rejected.
	unknownHash := chainhash.Hash{0x0b, 0xad}
	_, err = chain.CalcNextRequiredDifficulty(&unknownHash)
	if !errors.Is(err, ErrUnknownBlock) {
		t.Fatalf("unknown block returned %v, want %v", err, ErrUnknownBlock)
	}
}

// blockNameForHeight returns a deterministic test block name for the provided
// height.
func blockNameForHeight(height int64) string {
	return fmt.Sprintf("h%d", height)
}
