// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/meridianchain/mrdd/wire"
)

const (
	// compressedPubKeyLen is the length in bytes of a compressed secp256k1
	// public key.
	compressedPubKeyLen = 33
)

// isCompressedPubKey returns whether the script is exactly a serialized
// compressed secp256k1 public key.
func isCompressedPubKey(script []byte) bool {
	return len(script) == compressedPubKeyLen &&
		(script[0] == 0x02 || script[0] == 0x03)
}

// VerifyInput verifies that the signature script of the given transaction
// input satisfies the spending condition imposed by the public key script of
// the output it spends.
//
// A nil sigCache may be provided to disable caching of valid signature
// verifications.
//
// VerifyInput is safe for concurrent use by multiple goroutines.
func VerifyInput(tx *wire.MsgTx, idx int, pkScript []byte, scriptVersion uint16, sigCache *SigCache) error {
	if scriptVersion != 0 {
		return scriptError(ErrUnsupportedScriptVersion,
			"script version %d is not supported", scriptVersion)
	}

	// An empty public key script places no condition on the spend.
	if len(pkScript) == 0 {
		return nil
	}

	if !isCompressedPubKey(pkScript) {
		return scriptError(ErrUnsupportedScript,
			"public key script of length %d does not match any "+
				"recognized form", len(pkScript))
	}

	pubKey, err := secp256k1.ParsePubKey(pkScript)
	if err != nil {
		return scriptError(ErrPubKeyFormat,
			"unparseable public key: %v", err)
	}

	sigScript := tx.TxIn[idx].SignatureScript
	sig, err := ecdsa.ParseDERSignature(sigScript)
	if err != nil {
		return scriptError(ErrSignatureFormat,
			"unparseable signature for input %d: %v", idx, err)
	}

	sigHash, err := CalcSignatureHash(tx, idx, pkScript)
	if err != nil {
		return err
	}

	if sigCache != nil && sigCache.Exists(sigHash, sig, pubKey) {
		return nil
	}

	if !sig.Verify(sigHash[:], pubKey) {
		return scriptError(ErrSigVerify,
			"signature for input %d failed to verify", idx)
	}

	if sigCache != nil {
		sigCache.Add(sigHash, sig, pubKey)
	}
	return nil
}
