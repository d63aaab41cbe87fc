// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]OutputLevel{
		"rich":    LevelRich,
		"FULL":    LevelRich,
		"plain":   LevelPlain,
		"machine": LevelMachine,
		" json ":  LevelMachine,
		"q":       LevelMachine,
		"bogus":   LevelPlain,
		"":        LevelPlain,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestInitLevel_EnvOverride(t *testing.T) {
	prev := GetLevel()
	defer SetLevel(prev)

	t.Setenv(OutputEnvVar, "plain")
	assert.Equal(t, LevelPlain, InitLevel())
	assert.Equal(t, LevelPlain, GetLevel())
}

func TestInitLevel_NonTerminalIsMachine(t *testing.T) {
	prev := GetLevel()
	defer SetLevel(prev)
	t.Setenv(OutputEnvVar, "")

	// go test runs with stdout redirected to a pipe.
	if IsTerminal(os.Stdout) {
		t.Skip("stdout is a terminal")
	}
	assert.Equal(t, LevelMachine, InitLevel())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(nil))

	f, err := os.CreateTemp(t.TempDir(), "out")
	assert.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
}
