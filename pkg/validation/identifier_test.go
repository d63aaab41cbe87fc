// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "ceasefire", false},
		{"single char", "a", false},
		{"underscore", "buffer_km", false},
		{"hyphen", "north-south", false},
		{"mixed case", "UpstreamState", false},
		{"uuid", "3f2b8c1e-9d4a-4b7e-8f61-2a9c0d5e7b13", false},
		{"max length", strings.Repeat("a", MaxIdentifierLength), false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxIdentifierLength+1), true},
		{"dot", "security.buffer_km", true},
		{"slash", "session/abc", true},
		{"spaces", "buffer km", true},
		{"newline", "a\nb", true},
		{"unicode", "équipe", true},
		{"starts with underscore", "_hidden", true},
		{"starts with hyphen", "-x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateIdentifiers(t *testing.T) {
	assert.NoError(t, ValidateIdentifiers(nil))
	assert.NoError(t, ValidateIdentifiers([]string{"government", "coalition"}))

	err := ValidateIdentifiers([]string{"ok", "bad.id", "also bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.id")
	assert.Contains(t, err.Error(), "also bad")
	assert.NotContains(t, err.Error(), `"ok"`)
}

func TestSanitizeIdentifier(t *testing.T) {
	got, err := SanitizeIdentifier("  ceasefire\n")
	require.NoError(t, err)
	assert.Equal(t, "ceasefire", got)

	_, err = SanitizeIdentifier("   ")
	assert.Error(t, err)
}
