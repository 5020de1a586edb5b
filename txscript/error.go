// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"
	"fmt"
)

// ErrorKind identifies a kind of script error.  It has full support for
// errors.Is and errors.As, so the caller can directly check against an error
// kind when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrUnsupportedScriptVersion is returned when a script with a version
	// other than 0 is encountered.
	ErrUnsupportedScriptVersion = ErrorKind("ErrUnsupportedScriptVersion")

	// ErrUnsupportedScript is returned when a public key script does not
	// match any recognized version 0 form.
	ErrUnsupportedScript = ErrorKind("ErrUnsupportedScript")

	// ErrPubKeyFormat is returned when a public key script carries bytes
	// that cannot be parsed as a compressed secp256k1 public key.
	ErrPubKeyFormat = ErrorKind("ErrPubKeyFormat")

	// ErrSignatureFormat is returned when a signature script carries bytes
	// that cannot be parsed as a DER-encoded ECDSA signature.
	ErrSignatureFormat = ErrorKind("ErrSignatureFormat")

	// ErrSigVerify is returned when an ECDSA signature fails to verify
	// against the public key the referenced output requires.
	ErrSigVerify = ErrorKind("ErrSigVerify")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a script-related error.  It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the
// error by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// scriptError creates an Error given a set of arguments.
func scriptError(kind ErrorKind, format string, args ...interface{}) Error {
	return Error{Err: kind, Description: fmt.Sprintf(format, args...)}
}

// IsErrorKind returns whether or not the provided error is a script error
// with the provided error kind.
func IsErrorKind(err error, kind ErrorKind) bool {
	var e Error
	return errors.As(err, &e) && errors.Is(e.Err, kind)
}
