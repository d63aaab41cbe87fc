// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package strategic

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Reader exposes read access to per-party state.
//
// The durability simulator depends on this interface rather than on Store so
// callers can pass a Store, a Snapshot, or a test double.
type Reader interface {
	// State returns the party's record and whether the party is known.
	State(party string) (State, bool)
}

// Snapshot is an immutable-by-convention copy of per-party state.
type Snapshot map[string]State

// State implements Reader.
func (s Snapshot) State(party string) (State, bool) {
	st, ok := s[party]
	return st, ok
}

// record pairs a party's state with the lock that serializes its writers.
type record struct {
	mu    sync.Mutex
	state State
}

// Store holds the mutable strategic state for every party in a negotiation.
//
// # Description
//
// Records are created at construction (all metrics at 50) and live for the
// lifetime of the store. ApplyEffect is the only mutation path besides
// Restore, which reloads persisted snapshots.
//
// # Thread Safety
//
// Concurrent ApplyEffect calls for the same party are serialized by that
// party's mutex; calls for different parties proceed in parallel. The record
// map itself is guarded by an RWMutex that is only write-locked by Restore.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string
}

// NewStore creates a store with a default record for each party.
//
// Duplicate party IDs are collapsed.
func NewStore(parties ...string) *Store {
	s := &Store{records: make(map[string]*record, len(parties))}
	for _, p := range parties {
		if _, ok := s.records[p]; ok {
			continue
		}
		s.records[p] = &record{state: DefaultState()}
		s.order = append(s.order, p)
	}
	return s
}

// Parties returns the party IDs in creation order.
func (s *Store) Parties() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ApplyEffect adds signed deltas to a party's metrics.
//
// # Description
//
// Each metric named in deltas is updated to clamp(current + delta, 0, 100).
// All metric names are validated before anything is written, so an unknown
// metric leaves the record untouched. NaN deltas are ignored.
//
// # Inputs
//
//   - party: Party ID. Must exist in the store.
//   - deltas: Metric name to signed delta.
//
// # Outputs
//
//   - State: The party's record after the update.
//   - error: ErrUnknownParty or ErrUnknownMetric (wrapped).
//
// # Thread Safety
//
// Safe for concurrent use.
func (s *Store) ApplyEffect(party string, deltas map[string]float64) (State, error) {
	if err := ValidateDeltas(deltas); err != nil {
		return State{}, err
	}

	rec, err := s.lookup(party)
	if err != nil {
		return State{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := rec.state
	for name, delta := range deltas {
		if math.IsNaN(delta) {
			continue
		}
		m := Metric(name)
		next = next.with(m, next.Value(m)+delta)
	}
	rec.state = next
	return next, nil
}

// Get returns a copy of a party's record.
func (s *Store) Get(party string) (State, error) {
	rec, err := s.lookup(party)
	if err != nil {
		return State{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state, nil
}

// State implements Reader.
func (s *Store) State(party string) (State, bool) {
	st, err := s.Get(party)
	return st, err == nil
}

// Snapshot copies every record.
//
// Each record is read under its own lock; the snapshot is consistent per
// party, not across parties.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Snapshot, len(s.records))
	for p, rec := range s.records {
		rec.mu.Lock()
		out[p] = rec.state
		rec.mu.Unlock()
	}
	return out
}

// Restore overwrites records from a snapshot.
//
// Parties in the snapshot that the store does not know are rejected so a
// stale snapshot cannot introduce parties outside the scenario. Values are
// clamped into range.
func (s *Store) Restore(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parties := make([]string, 0, len(snap))
	for p := range snap {
		parties = append(parties, p)
	}
	sort.Strings(parties)
	for _, p := range parties {
		if _, ok := s.records[p]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParty, p)
		}
	}
	for _, p := range parties {
		rec := s.records[p]
		rec.mu.Lock()
		rec.state = snap[p].Clamped()
		rec.mu.Unlock()
	}
	return nil
}

func (s *Store) lookup(party string) (*record, error) {
	s.mu.RLock()
	rec, ok := s.records[party]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParty, party)
	}
	return rec, nil
}
