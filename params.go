// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/meridianchain/mrdd/chaincfg"
)

// activeNetParams is a pointer to the parameters specific to the currently
// active Meridian network.
var activeNetParams = mainNetParams

// params is used to group parameters for various networks such as the main
// network and test networks.
type params struct {
	*chaincfg.Params

	// logSubdir is the name of the directory to place log files in relative
	// to the configured log directory.
	logSubdir string
}

// mainNetParams contains parameters specific to the main network.
var mainNetParams = params{
	Params:    chaincfg.MainNetParams(),
	logSubdir: "mainnet",
}

// testNetParams contains parameters specific to the test network.
var testNetParams = params{
	Params:    chaincfg.TestNetParams(),
	logSubdir: "testnet",
}

// simNetParams contains parameters specific to the simulation test network.
var simNetParams = params{
	Params:    chaincfg.SimNetParams(),
	logSubdir: "simnet",
}
