// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/meridianchain/mrdd/wire"
)

// SimNetParams returns the network parameters for the simulation test
// network.  This network is similar to the normal test network except it is
// intended for private use within a group of individuals doing simulation
// testing.  The functionality is intended to differ in that the only nodes
// which are specifically specified are used to create the network rather than
// following normal discovery rules.  This is important as otherwise it would
// just turn into another public testnet.
func SimNetParams() *Params {
	// simNetPowLimit is the highest proof of work value a Meridian block
	// can have for the simulation test network.  It is the value 2^255 - 1.
	simNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	// simNetPowLimitBits is the simulation test network proof of work limit
	// in its compact representation.
	const simNetPowLimitBits = 0x207fffff // 545259519

	return &Params{
		Name: "simnet",
		Net:  wire.SimNet,

		// Chain parameters.
		GenesisBlock:             &simNetGenesisBlock,
		GenesisHash:              simNetGenesisHash,
		PowLimit:                 simNetPowLimit,
		PowLimitBits:             simNetPowLimitBits,
		TargetTimePerBlock:       time.Second,
		WorkDiffWindowSize:       8,
		RetargetAdjustmentFactor: 4,
		MaxTimeOffset:            time.Minute * 10,
		MaxBlockSize:             1048576,

		// Subsidy parameters.
		SubsidyHalvingInterval: 128,
		BaseSubsidy:            5000000000, // 50 Coin

		CoinbaseMaturity: 2,

		// Consensus rule change deployments.
		Upgrades: nil,

		OrphanExpiration: time.Minute * 10,
	}
}
