// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/meridianchain/mrdd/chaincfg"
	"github.com/meridianchain/mrdd/wire"
)

// testIndexHarness provides a block index populated through the same node
// creation path the chain uses along with helpers for building branches of
// header-only nodes.
type testIndexHarness struct {
	t     *testing.T
	index *blockIndex
	nonce uint64
}

// newTestIndexHarness returns an index harness seeded with the genesis block
// of the simulation network.
func newTestIndexHarness(t *testing.T) (*testIndexHarness, *blockNode) {
	t.Helper()

	params := chaincfg.SimNetParams()
	harness := &testIndexHarness{
		t:     t,
		index: newBlockIndex(nil, params),
	}
	genesisHeader := params.GenesisBlock.Header
	genesisNode := newBlockNode(&genesisHeader, nil)
	harness.index.AddNode(genesisNode)
	return harness, genesisNode
}

// newNode creates a node that extends the provided parent, adds it to the
// index, and returns it.  Each node receives a unique nonce so competing
// branches never produce identical hashes.
func (h *testIndexHarness) newNode(parent *blockNode) *blockNode {
	h.t.Helper()

	h.nonce++
	header := &wire.BlockHeader{
		Version:   1,
		PrevBlock: parent.hash,
		Timestamp: time.Unix(parent.timestamp+1, 0),
		Bits:      parent.bits,
		Nonce:     h.nonce,
		Height:    uint32(parent.height + 1),
	}
	node := newBlockNode(header, parent)
	h.index.AddNode(node)
	return node
}

// chain creates the provided number of nodes where each extends the previous
// one starting from the passed parent and returns them.
func (h *testIndexHarness) chain(parent *blockNode, numNodes int) []*blockNode {
	h.t.Helper()

	nodes := make([]*blockNode, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		parent = h.newNode(parent)
		nodes = append(nodes, parent)
	}
	return nodes
}

// TestWorkSorterLess ensures the chain selection ordering prefers more
// cumulative work and falls back to the hash interpreted as a little-endian
// uint256 where larger values lose.
func TestWorkSorterLess(t *testing.T) {
	t.Parallel()

	// The hash with a set most significant byte represents far less work
	// than the hash with only the least significant byte set when both are
	// interpreted as little-endian uint256 values.
	lowHash := chainhash.Hash{0: 0x01}
	highHash := chainhash.Hash{31: 0x01}
	tests := []struct {
		name string
		a    *blockNode
		b    *blockNode
		want bool
	}{{
		name: "less work loses",
		a:    &blockNode{workSum: big.NewInt(2), hash: lowHash},
		b:    &blockNode{workSum: big.NewInt(4), hash: highHash},
		want: true,
	}, {
		name: "more work wins",
		a:    &blockNode{workSum: big.NewInt(4), hash: highHash},
		b:    &blockNode{workSum: big.NewInt(2), hash: lowHash},
		want: false,
	}, {
		name: "equal work breaks tie on larger hash",
		a:    &blockNode{workSum: big.NewInt(2), hash: highHash},
		b:    &blockNode{workSum: big.NewInt(2), hash: lowHash},
		want: true,
	}, {
		name: "equal work breaks tie on smaller hash",
		a:    &blockNode{workSum: big.NewInt(2), hash: lowHash},
		b:    &blockNode{workSum: big.NewInt(2), hash: highHash},
		want: false,
	}, {
		name: "identical nodes are not less",
		a:    &blockNode{workSum: big.NewInt(2), hash: lowHash},
		b:    &blockNode{workSum: big.NewInt(2), hash: lowHash},
		want: false,
	}}

	for _, test := range tests {
		if got := workSorterLess(test.a, test.b); got != test.want {
			t.Fatalf("%s: workSorterLess returned %v, want %v", test.name,
				got, test.want)
		}
	}
}

// TestBlockIndexAncestry ensures parent resolution, ancestor traversal, and
// fork point discovery all operate through the hash-keyed index as intended.
func TestBlockIndexAncestry(t *testing.T) {
	t.Parallel()

	harness, genesis := newTestIndexHarness(t)
	branchA := harness.chain(genesis, 4)
	branchB := harness.chain(branchA[0], 2)

	// The genesis block has no parent while every other node resolves its
	// parent through the index.
	if parent := harness.index.Parent(genesis); parent != nil {
		t.Fatalf("genesis parent is %v, want nil", parent.hash)
	}
	if parent := harness.index.Parent(branchA[2]); parent != branchA[1] {
		t.Fatalf("unexpected parent for branch node: %v", parent)
	}
	if parent := harness.index.Parent(branchB[0]); parent != branchA[0] {
		t.Fatalf("side branch does not resolve to its fork parent")
	}

	// Ancestor must walk arbitrary distances and reject heights outside of
	// the chain the node belongs to.
	if got := harness.index.Ancestor(branchA[3], 0); got != genesis {
		t.Fatalf("ancestor at height 0 is %v, want genesis", got)
	}
	if got := harness.index.Ancestor(branchA[3], 2); got != branchA[1] {
		t.Fatalf("unexpected ancestor at height 2: %v", got)
	}
	if got := harness.index.Ancestor(branchA[3], branchA[3].height); got != branchA[3] {
		t.Fatal("ancestor at own height must return the node itself")
	}
	if got := harness.index.Ancestor(branchA[1], 5); got != nil {
		t.Fatalf("ancestor above node height is %v, want nil", got)
	}
	if got := harness.index.Ancestor(branchA[1], -1); got != nil {
		t.Fatalf("ancestor at negative height is %v, want nil", got)
	}

	// The fork point between the two branches is the block both extend.
	if fork := harness.index.FindFork(branchA[3], branchB[1]); fork != branchA[0] {
		t.Fatalf("unexpected fork point: %v", fork)
	}
	if fork := harness.index.FindFork(branchA[3], branchA[1]); fork != branchA[1] {
		t.Fatal("fork of a node with its own ancestor must be the ancestor")
	}
	if fork := harness.index.FindFork(branchA[3], nil); fork != nil {
		t.Fatal("fork with a nil node must be nil")
	}

	// Only the ends of the two branches remain chain tips.
	tips := harness.index.ChainTips()
	if len(tips) != 2 {
		t.Fatalf("index tracks %d chain tips, want 2", len(tips))
	}
	for _, tip := range tips {
		if tip != branchA[3] && tip != branchB[1] {
			t.Fatalf("unexpected chain tip %v", tip.hash)
		}
	}
}

// TestMarkBlockFailedValidation ensures marking a block as having failed
// validation poisons only its descendants and that invalid branches are no
// longer considered candidates for the best chain.
func TestMarkBlockFailedValidation(t *testing.T) {
	t.Parallel()

	harness, genesis := newTestIndexHarness(t)
	branchA := harness.chain(genesis, 4)
	branchB := harness.chain(branchA[0], 2)

	harness.index.MarkBlockFailedValidation(branchA[1])

	// The failed block itself is marked as a validation failure while its
	// descendants carry the invalid ancestor status instead.
	status := harness.index.NodeStatus(branchA[1])
	if !status.KnownValidateFailed() || !status.KnownInvalid() {
		t.Fatal("failed block is not marked as a validation failure")
	}
	for _, descendant := range branchA[2:] {
		status := harness.index.NodeStatus(descendant)
		if status.KnownValidateFailed() {
			t.Fatal("descendant is marked as having failed validation itself")
		}
		if !status.KnownInvalid() {
			t.Fatal("descendant of failed block is not known invalid")
		}
	}

	// Blocks on the competing branch and the ancestors of the failed block
	// are unaffected.
	for _, node := range []*blockNode{genesis, branchA[0], branchB[0], branchB[1]} {
		if harness.index.NodeStatus(node).KnownInvalid() {
			t.Fatalf("block %v on valid branch is marked invalid", node.hash)
		}
	}

	// The best tip candidate must come from the surviving branch even
	// though the invalid branch is longer and has more cumulative work.
	best := harness.index.bestTipCandidate()
	if best != branchB[1] {
		t.Fatalf("best tip candidate is %v, want %v", best.hash,
			branchB[1].hash)
	}
}
