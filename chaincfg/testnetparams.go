// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/meridianchain/mrdd/wire"
)

// TestNetParams returns the network parameters for the test currency network.
// This network is sometimes simply called "testnet".
func TestNetParams() *Params {
	// testNetPowLimit is the highest proof of work value a Meridian block
	// can have for the test network.  It is the value 2^232 - 1.
	testNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 232), bigOne)

	// testNetPowLimitBits is the test network proof of work limit in its
	// compact representation.
	const testNetPowLimitBits = 0x1e00ffff

	return &Params{
		Name: "testnet",
		Net:  wire.TestNet,

		// Chain parameters.
		GenesisBlock:             &testNetGenesisBlock,
		GenesisHash:              testNetGenesisHash,
		PowLimit:                 testNetPowLimit,
		PowLimitBits:             testNetPowLimitBits,
		TargetTimePerBlock:       time.Minute * 2,
		WorkDiffWindowSize:       144,
		RetargetAdjustmentFactor: 4,
		MaxTimeOffset:            time.Minute * 10,
		MaxBlockSize:             1048576,

		// Subsidy parameters.
		SubsidyHalvingInterval: 210000,
		BaseSubsidy:            5000000000, // 50 Coin

		CoinbaseMaturity: 16,

		// Consensus rule change deployments.
		Upgrades: []ConsensusUpgrade{{
			ActivationHeight:     2000,
			RequiredBlockVersion: 2,
		}},

		OrphanExpiration: time.Minute * 10,
	}
}
