// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the Meridian wire protocol primitives.

It provides the block header, block, and transaction types along with their
canonical serialized encodings.  The encodings use a fixed little-endian
layout for integers and a variable length integer for all collection counts,
so every type serializes to exactly one canonical byte sequence and the block
and transaction hashes are well defined.
*/
package wire
