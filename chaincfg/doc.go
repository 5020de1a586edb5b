// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package chaincfg defines chain configuration parameters.

In addition to the main Meridian network, which is intended for the transfer
of monetary value, there also exists the following standard networks:
  - testnet
  - simnet

These networks are incompatible with each other (each sharing a different
genesis block) and software should handle errors where input intended for one
network is used on an application instance running on a different network.

For library packages, chaincfg provides the ability to lookup chain
parameters and encoding magics when passed a *Params.

For main packages, a (typically global) var may be assigned the address of
one of the standard Param vars for use as the application's "active" network.
When a network parameter is needed, it may then be looked up through this
variable (either directly, or hidden in a library call).
*/
package chaincfg
