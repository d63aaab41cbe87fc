// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestOpenInMemory_RoundTrip(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.InMemory())
	assert.Empty(t, db.Path())
	assert.NoError(t, db.Sync())

	ctx := context.Background()
	require.NoError(t, db.Update(ctx, func(txn *badger.Txn) error {
		if err := PutJSON(txn, []byte("r/a"), record{Name: "a", Value: 1}); err != nil {
			return err
		}
		if err := PutJSON(txn, []byte("r/b"), record{Name: "b", Value: 2}); err != nil {
			return err
		}
		return PutJSON(txn, []byte("other"), record{Name: "x"})
	}))

	var got record
	require.NoError(t, db.View(ctx, func(txn *badger.Txn) error {
		return GetJSON(txn, []byte("r/b"), &got)
	}))
	assert.Equal(t, record{Name: "b", Value: 2}, got)

	var names []string
	require.NoError(t, db.View(ctx, func(txn *badger.Txn) error {
		return ScanPrefix(txn, []byte("r/"), func(key, val []byte) error {
			var r record
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			names = append(names, string(key)+"="+r.Name)
			return nil
		})
	}))
	assert.Equal(t, []string{"r/a=a", "r/b=b"}, names)

	err = db.View(ctx, func(txn *badger.Txn) error {
		return GetJSON(txn, []byte("r/missing"), &got)
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = 50 * time.Millisecond

	db, err := Open(cfg)
	require.NoError(t, err)
	assert.False(t, db.InMemory())
	assert.Equal(t, dir, db.Path())
	require.NoError(t, db.Update(context.Background(), func(txn *badger.Txn) error {
		return PutJSON(txn, []byte("k"), record{Name: "kept"})
	}))
	require.NoError(t, db.Sync())
	require.NoError(t, db.Close())

	db, err = Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	var got record
	require.NoError(t, db.View(context.Background(), func(txn *badger.Txn) error {
		return GetJSON(txn, []byte("k"), &got)
	}))
	assert.Equal(t, "kept", got.Name)
}

func TestOpen_RejectsBadGCRatio(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.GCDiscardRatio = 1.5
	_, err := Open(cfg)
	assert.Error(t, err)
}

func TestTxn_CancelledContext(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = db.Update(ctx, func(*badger.Txn) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	err = db.View(ctx, func(*badger.Txn) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
