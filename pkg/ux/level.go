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
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// OutputLevel defines how richly results are rendered.
type OutputLevel string

const (
	// LevelRich enables colors, boxes and bars.
	LevelRich OutputLevel = "rich"

	// LevelPlain uses icons and aligned text without color boxes.
	LevelPlain OutputLevel = "plain"

	// LevelMachine emits key=value lines suitable for scripting.
	LevelMachine OutputLevel = "machine"
)

// OutputEnvVar overrides terminal detection.
const OutputEnvVar = "MEDIATION_OUTPUT"

var (
	currentLevel = LevelRich
	levelMu      sync.RWMutex
)

// GetLevel returns the current output level.
func GetLevel() OutputLevel {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// SetLevel updates the current output level.
func SetLevel(level OutputLevel) {
	levelMu.Lock()
	defer levelMu.Unlock()
	currentLevel = level
}

// ParseLevel converts a string to an OutputLevel. Unknown names map to
// LevelPlain.
func ParseLevel(s string) OutputLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rich", "full", "r":
		return LevelRich
	case "plain", "minimal", "p":
		return LevelPlain
	case "machine", "quiet", "q", "json":
		return LevelMachine
	default:
		return LevelPlain
	}
}

// InitLevel sets the output level from MEDIATION_OUTPUT, falling back to
// LevelRich on a terminal and LevelMachine otherwise.
func InitLevel() OutputLevel {
	level := LevelMachine
	if env := os.Getenv(OutputEnvVar); env != "" {
		level = ParseLevel(env)
	} else if IsTerminal(os.Stdout) {
		level = LevelRich
	}
	SetLevel(level)
	return level
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
