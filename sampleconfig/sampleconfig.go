// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sampleconfig provides a single constant that contains the contents
// of the sample configuration file for mrdd.
package sampleconfig

import (
	_ "embed"
)

// sampleMrddConf is a string containing the commented example config for
// mrdd.
//
//go:embed sample-mrdd.conf
var sampleMrddConf string

// Mrdd returns a string containing the commented example config for mrdd.
func Mrdd() string {
	return sampleMrddConf
}
