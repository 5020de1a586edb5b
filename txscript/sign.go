// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/meridianchain/mrdd/wire"
)

// SignatureScript returns a signature script that satisfies a pay-to-pubkey
// public key script when signed with the given private key.  The result is a
// DER-encoded ECDSA signature over the input's signature hash.
func SignatureScript(tx *wire.MsgTx, idx int, pkScript []byte, key *secp256k1.PrivateKey) ([]byte, error) {
	sigHash, err := CalcSignatureHash(tx, idx, pkScript)
	if err != nil {
		return nil, err
	}
	sig := ecdsa.Sign(key, sigHash[:])
	return sig.Serialize(), nil
}

// PayToPubKeyScript returns the public key script that requires a signature
// from the private key corresponding to the given public key in order to
// spend.  Under version 0 rules that script is simply the serialized
// compressed public key.
func PayToPubKeyScript(pubKey *secp256k1.PublicKey) []byte {
	return pubKey.SerializeCompressed()
}
