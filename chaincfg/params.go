// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/meridianchain/mrdd/wire"
)

// bigOne is 1 represented as a big.Int.  It is defined here to avoid the
// overhead of creating it multiple times.
var bigOne = big.NewInt(1)

// ConsensusUpgrade describes a scheduled hard fork.  Once the activation
// height is reached, blocks with a version lower than the required version
// are rejected by the contextual header checks.
type ConsensusUpgrade struct {
	// ActivationHeight is the height at which the upgrade takes effect.
	ActivationHeight uint32

	// RequiredBlockVersion is the minimum block version accepted from the
	// activation height onward.
	RequiredBlockVersion int32
}

// Params defines a Meridian network by its parameters.  These parameters may
// be used by applications to differentiate networks as well as addresses and
// keys for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.CurrencyNet

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the hash of the genesis block.
	GenesisHash chainhash.Hash

	// PowLimit defines the highest allowed proof of work value for a block
	// as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// WorkDiffWindowSize is the number of blocks used for each interval in
	// exponentially weighted average calculations when retargeting the
	// required proof of work.
	WorkDiffWindowSize int64

	// RetargetAdjustmentFactor is the adjustment factor used to limit the
	// minimum and maximum amount of adjustment that can occur between
	// difficulty retargets.
	RetargetAdjustmentFactor int64

	// MaxTimeOffset is the maximum amount a block timestamp is allowed to
	// be ahead of the current time.
	MaxTimeOffset time.Duration

	// MaxBlockSize is the maximum serialized size of a block in bytes.
	MaxBlockSize int

	// SubsidyHalvingInterval is the interval of blocks at which the base
	// subsidy is halved.
	SubsidyHalvingInterval int64

	// BaseSubsidy is the starting subsidy amount, in atoms, for mined
	// blocks.
	BaseSubsidy int64

	// CoinbaseMaturity is the number of blocks required before newly mined
	// coins can be spent.
	CoinbaseMaturity uint16

	// Upgrades is the set of scheduled consensus upgrades for the network,
	// ordered by ascending activation height.
	Upgrades []ConsensusUpgrade

	// OrphanExpiration is the amount of time a block whose parent is not
	// yet known is retained before it is evicted from the orphan pool.
	OrphanExpiration time.Duration
}

// RequiredBlockVersion returns the minimum block version the given height
// must carry per the network's scheduled consensus upgrades.
func (p *Params) RequiredBlockVersion(height uint32) int32 {
	required := int32(1)
	for i := range p.Upgrades {
		if height < p.Upgrades[i].ActivationHeight {
			break
		}
		required = p.Upgrades[i].RequiredBlockVersion
	}
	return required
}
