// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scenario

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario/defaults"
)

func readBundled(t *testing.T, name string) string {
	t.Helper()
	data, err := defaults.FS.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

func TestRegistry_DefaultsAndLookup(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.LoadDefaults())

	s, err := r.Get("ceasefire")
	require.NoError(t, err)
	assert.True(t, s.Validated())
	assert.Equal(t, []string{"government", "coalition"}, s.PartyIDs())
	assert.Contains(t, s.ActionIDs(), "public_commitment")

	_, err = r.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestRegistry_LoadDirOverridesBundled(t *testing.T) {
	dir := t.TempDir()
	doc := strings.Replace(readBundled(t, "symmetric.yaml"), "name: Symmetric Resource Split", "name: Local Override", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sym.yaml"), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	r := NewRegistry(nil)
	require.NoError(t, r.LoadDefaults())
	require.NoError(t, r.LoadDir(dir))

	s, err := r.Get("symmetric")
	require.NoError(t, err)
	assert.Equal(t, "Local Override", s.Name)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_LoadDirFailsOnInvalidFile(t *testing.T) {
	dir := t.TempDir()
	doc := strings.Replace(readBundled(t, "symmetric.yaml"), "water: 0.5, territory: 0.5", "water: 0.5, territory: 0.4", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(doc), 0o644))

	r := NewRegistry(nil)
	err := r.LoadDir(dir)
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestRegistry_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sym.yaml")
	original := readBundled(t, "symmetric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	r := NewRegistry(nil)
	r.debounce = 20 * time.Millisecond
	require.NoError(t, r.LoadDir(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	// An invalid edit keeps the previous version.
	broken := strings.Replace(original, "batna: 0.3", "batna: 3", 1)
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))
	time.Sleep(200 * time.Millisecond)
	s, err := r.Get("symmetric")
	require.NoError(t, err)
	assert.Equal(t, 0.3, s.Parties[0].BATNA)

	renamed := strings.Replace(original, "name: Symmetric Resource Split", "name: Edited", 1)
	require.NoError(t, os.WriteFile(path, []byte(renamed), 0o644))
	assert.Eventually(t, func() bool {
		s, err := r.Get("symmetric")
		return err == nil && s.Name == "Edited"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, err := r.Get("symmetric")
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRegistry_ReloadRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	original := readBundled(t, "symmetric.yaml")
	first := filepath.Join(dir, "a.yaml")
	require.NoError(t, os.WriteFile(first, []byte(original), 0o644))

	r := NewRegistry(nil)
	require.NoError(t, r.LoadDir(dir))

	second := filepath.Join(dir, "b.yaml")
	copied := strings.Replace(original, "name: Symmetric Resource Split", "name: Copy", 1)
	require.NoError(t, os.WriteFile(second, []byte(copied), 0o644))
	r.reloadFile(second)

	s, err := r.Get("symmetric")
	require.NoError(t, err)
	assert.Equal(t, "Symmetric Resource Split", s.Name)

	require.NoError(t, os.Remove(second))
	r.reloadFile(second)
	s, err = r.Get("symmetric")
	require.NoError(t, err, "removing the rejected file keeps the owner's scenario")
	assert.Equal(t, "Symmetric Resource Split", s.Name)

	// The owning file can still change its own scenario.
	edited := strings.Replace(original, "name: Symmetric Resource Split", "name: Edited", 1)
	require.NoError(t, os.WriteFile(first, []byte(edited), 0o644))
	r.reloadFile(first)
	s, err = r.Get("symmetric")
	require.NoError(t, err)
	assert.Equal(t, "Edited", s.Name)
}

func TestRegistry_WatchWithoutDir(t *testing.T) {
	r := NewRegistry(nil)
	assert.Error(t, r.Watch(context.Background()))
}

func TestRegistry_AddRequiresValidation(t *testing.T) {
	r := NewRegistry(nil)
	s := newTestScenario()
	assert.ErrorIs(t, r.Add(s), ErrInvalidScenario)
	require.NoError(t, s.Validate())
	require.NoError(t, r.Add(s))
	got, err := r.Get("test")
	require.NoError(t, err)
	assert.Same(t, s, got)
}
