// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the Meridian spending condition language.

Version 0 scripts support two forms:

  - An empty public key script places no condition on the spend (anyone can
    spend).
  - A 33-byte compressed secp256k1 public key requires the signature script
    to carry a DER-encoded ECDSA signature over the spending transaction's
    signature hash, valid for that key.

Any other public key script is unspendable under version 0 rules, and any
script version other than 0 is rejected outright.  VerifyInput is the single
entry point the chain validation code calls per transaction input; it is safe
for concurrent use.
*/
package txscript
