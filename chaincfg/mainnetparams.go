// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/meridianchain/mrdd/wire"
)

// MainNetParams returns the network parameters for the main Meridian network.
func MainNetParams() *Params {
	// mainPowLimit is the highest proof of work value a Meridian block can
	// have for the main network.  It is the value 2^224 - 1.
	mainPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// mainPowLimitBits is the main network proof of work limit in its
	// compact representation.
	//
	// Note that due to the limited precision of the compact representation,
	// this is not exactly equal to the pow limit.  It is the value:
	//
	// 0x00000000ffff0000000000000000000000000000000000000000000000000000
	const mainPowLimitBits = 0x1d00ffff // 486604799

	return &Params{
		Name: "mainnet",
		Net:  wire.MainNet,

		// Chain parameters.
		GenesisBlock:             &mainNetGenesisBlock,
		GenesisHash:              mainNetGenesisHash,
		PowLimit:                 mainPowLimit,
		PowLimitBits:             mainPowLimitBits,
		TargetTimePerBlock:       time.Minute * 2,
		WorkDiffWindowSize:       144,
		RetargetAdjustmentFactor: 4,
		MaxTimeOffset:            time.Minute * 10,
		MaxBlockSize:             1048576,

		// Subsidy parameters.
		SubsidyHalvingInterval: 210000,
		BaseSubsidy:            5000000000, // 50 Coin

		CoinbaseMaturity: 500,

		// Consensus rule change deployments.
		Upgrades: []ConsensusUpgrade{{
			ActivationHeight:     120000,
			RequiredBlockVersion: 2,
		}},

		OrphanExpiration: time.Minute * 10,
	}
}
