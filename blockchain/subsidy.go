// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/meridianchain/mrdd/chaincfg"
)

// CalcBlockSubsidy returns the subsidy amount a block at the provided height
// should have.  This is mainly used for determining how much the coinbase for
// newly generated blocks awards as well as validating the coinbase for blocks
// has the expected value.
//
// The subsidy is halved every SubsidyHalvingInterval blocks.  Mathematically
// this is: BaseSubsidy / 2^(height/SubsidyHalvingInterval)
//
// The genesis block carries no subsidy since its sole output is unspendable
// by construction.
func CalcBlockSubsidy(height int64, params *chaincfg.Params) int64 {
	if height == 0 {
		return 0
	}

	// Equivalent to: BaseSubsidy / 2^(height/SubsidyHalvingInterval)
	halvings := uint(height / params.SubsidyHalvingInterval)
	if halvings >= 64 {
		return 0
	}
	return params.BaseSubsidy >> halvings
}
