// Copyright (c) 2023-2024 The Meridian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

import (
	"strings"
	"testing"
)

// TestSampleConfig ensures the sample config only references options the
// daemon actually supports and that every option is commented out so copying
// the file verbatim produces default behavior.
func TestSampleConfig(t *testing.T) {
	knownOptions := map[string]struct{}{
		"appdata":       {},
		"configfile":    {},
		"datadir":       {},
		"logdir":        {},
		"nofilelogging": {},
		"debuglevel":    {},
		"testnet":       {},
		"simnet":        {},
	}

	sample := Mrdd()
	if sample == "" {
		t.Fatal("sample config is empty")
	}
	for i, line := range strings.Split(sample, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}

		// Options in the sample must be commented out.
		if !strings.HasPrefix(line, ";") {
			t.Fatalf("line %d is not commented out: %q", i+1, line)
		}

		// Commented lines of the form "; option=value" document concrete
		// options and must name a supported one.
		trimmed := strings.TrimSpace(strings.TrimPrefix(line, ";"))
		eqIdx := strings.Index(trimmed, "=")
		if eqIdx < 1 || strings.ContainsAny(trimmed[:eqIdx], " \t") {
			continue
		}
		option := trimmed[:eqIdx]
		if _, ok := knownOptions[option]; !ok {
			t.Fatalf("line %d references unsupported option %q", i+1,
				option)
		}
	}
}
