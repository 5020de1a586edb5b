// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrNonCanonicalVarInt is returned when a variable length integer is
	// not canonically encoded.
	ErrNonCanonicalVarInt = ErrorKind("ErrNonCanonicalVarInt")

	// ErrVarBytesTooLong is returned when a variable-length byte slice
	// exceeds the maximum message size allowed.
	ErrVarBytesTooLong = ErrorKind("ErrVarBytesTooLong")

	// ErrTooManyTxs is returned when the number of transactions exceeds the
	// maximum allowed.
	ErrTooManyTxs = ErrorKind("ErrTooManyTxs")

	// ErrTooManyTxInputs is returned when the number of inputs in a
	// transaction exceeds the maximum allowed.
	ErrTooManyTxInputs = ErrorKind("ErrTooManyTxInputs")

	// ErrTooManyTxOutputs is returned when the number of outputs in a
	// transaction exceeds the maximum allowed.
	ErrTooManyTxOutputs = ErrorKind("ErrTooManyTxOutputs")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// MessageError describes an issue with a message such as a malformed encoding
// or a collection count that exceeds the maximum allowed.  It has full support
// for errors.Is and errors.As, so the caller can ascertain the specific reason
// for the error by checking the underlying error.
type MessageError struct {
	Func        string // Function name
	Err         error  // The actual error
	Description string // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (m MessageError) Error() string {
	if m.Func != "" {
		return m.Func + ": " + m.Description
	}
	return m.Description
}

// Unwrap returns the underlying wrapped error.
func (m MessageError) Unwrap() error {
	return m.Err
}

// messageError creates a MessageError given a set of arguments.
func messageError(fn string, kind ErrorKind, desc string) MessageError {
	return MessageError{Func: fn, Err: kind, Description: desc}
}
