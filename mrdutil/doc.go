// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mrdutil provides Meridian-specific convenience functions and types.

Block and Tx wrap the raw wire types and memoize expensive derived values
such as hashes so that code which handles the same block or transaction in
several places does not repeatedly pay the hashing cost.  Amount provides
arithmetic and formatting helpers for quantities of atoms, the base monetary
unit.
*/
package mrdutil
