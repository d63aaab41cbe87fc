// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mediation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	badgerstore "github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/storage/badger"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

// Key layout:
//
//	session/<id>            -> sessionRecord
//	effect/<id>/<seq:%010d> -> EffectRecord
const (
	sessionPrefix = "session/"
	effectPrefix  = "effect/"
)

func sessionKey(id string) []byte { return []byte(sessionPrefix + id) }

func effectKey(id string, seq int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d", effectPrefix, id, seq))
}

func effectScanPrefix(id string) []byte { return []byte(effectPrefix + id + "/") }

// sessionRecord is the persisted head of a session.
type sessionRecord struct {
	ID         string             `json:"id"`
	ScenarioID string             `json:"scenario_id"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	States     strategic.Snapshot `json:"states"`
}

// Session is one negotiation's strategic state plus its audit log.
//
// Thread Safety: Safe for concurrent use. Effects applied to one session are
// serialized so the audit log order matches the order state changed.
type Session struct {
	ID         string
	ScenarioID string
	CreatedAt  time.Time

	scenario *scenario.Scenario
	store    *strategic.Store

	mu        sync.Mutex
	updatedAt time.Time
	history   []EffectRecord
	deleted   bool
}

func newSession(id string, s *scenario.Scenario, now time.Time) *Session {
	return &Session{
		ID:         id,
		ScenarioID: s.ID,
		CreatedAt:  now,
		scenario:   s,
		store:      strategic.NewStore(s.PartyIDs()...),
		updatedAt:  now,
	}
}

// Scenario returns the scenario the session was opened against.
func (s *Session) Scenario() *scenario.Scenario { return s.scenario }

// States returns a snapshot of every party's strategic state.
func (s *Session) States() strategic.Snapshot { return s.store.Snapshot() }

// View returns the session with a copy of its audit log.
func (s *Session) View() SessionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]EffectRecord, len(s.history))
	copy(history, s.history)
	return SessionResponse{
		ID:         s.ID,
		ScenarioID: s.ScenarioID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.updatedAt,
		States:     s.store.Snapshot(),
		History:    history,
	}
}

// record returns the persisted head. Caller holds s.mu.
func (s *Session) record() sessionRecord {
	return sessionRecord{
		ID:         s.ID,
		ScenarioID: s.ScenarioID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.updatedAt,
		States:     s.store.Snapshot(),
	}
}

// SessionManager owns live sessions and their Badger persistence.
//
// Description:
//
//	Every session is created with neutral strategic state for the
//	scenario's parties. Each applied effect appends an EffectRecord and
//	rewrites the session snapshot in the same Badger transaction. A nil DB
//	keeps sessions in memory only.
//
//	The in-memory store is authoritative. A failed write is logged and the
//	effect still stands; the next successful write stores the full snapshot.
//
// Thread Safety: Safe for concurrent use.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	db       *badgerstore.DB
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionManager creates a manager. db may be nil.
func NewSessionManager(db *badgerstore.DB, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		db:       db,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a session for a validated scenario.
func (m *SessionManager) Create(ctx context.Context, s *scenario.Scenario) (*Session, error) {
	if !s.Validated() {
		return nil, fmt.Errorf("%w: scenario %q has not been validated", scenario.ErrInvalidScenario, s.ID)
	}
	sess := newSession(uuid.NewString(), s, m.now())

	sess.mu.Lock()
	rec := sess.record()
	sess.mu.Unlock()
	if err := m.persist(ctx, rec, nil); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", sess.ID, "scenario_id", s.ID)
	return sess, nil
}

// Get returns a live session.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	return sess, nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete removes a session and its persisted records.
//
// The session is marked deleted under its own lock, so an effect racing
// with Delete either lands before the records are removed or fails with
// ErrUnknownSession. Nothing is written for the session afterwards.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.deleted = true

	if m.db == nil {
		return nil
	}
	return m.db.Update(ctx, func(txn *badger.Txn) error {
		var keys [][]byte
		err := badgerstore.ScanPrefix(txn, effectScanPrefix(id), func(key, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			return err
		}
		keys = append(keys, sessionKey(id))
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyEffect applies metric deltas to one party in a session.
//
// Outputs:
//
//	EffectRecord - The audit entry, including the party's resulting state.
//	error - strategic.ErrUnknownParty, strategic.ErrUnknownMetric, or
//	  ErrUnknownSession once the session has been deleted (wrapped).
func (m *SessionManager) ApplyEffect(ctx context.Context, sess *Session, party string, deltas map[string]float64) (EffectRecord, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.deleted {
		return EffectRecord{}, fmt.Errorf("%w: %q", ErrUnknownSession, sess.ID)
	}

	rec, err := m.apply(sess, party, deltas, SourceDelta, "")
	if err != nil {
		return EffectRecord{}, err
	}
	m.persistLocked(ctx, sess, []EffectRecord{rec})
	return rec, nil
}

// ApplyAction applies a catalogued strategic action.
//
// Description:
//
//	The action's self deltas go to the acting party, then its counterpart
//	deltas go to every other party in scenario order. The whole action is
//	one step in the audit log order and one Badger transaction.
//
// Outputs:
//
//	[]EffectRecord - One entry per party touched.
//	error - ErrUnknownAction, strategic.ErrUnknownParty, or ErrUnknownSession
//	  once the session has been deleted (wrapped).
func (m *SessionManager) ApplyAction(ctx context.Context, sess *Session, party, actionID string) ([]EffectRecord, error) {
	if _, err := sess.scenario.Party(party); err != nil {
		return nil, err
	}
	action, ok := sess.scenario.Action(actionID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.deleted {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, sess.ID)
	}

	var applied []EffectRecord
	if len(action.Self) > 0 {
		rec, err := m.apply(sess, party, action.Self, SourceAction, actionID)
		if err != nil {
			return nil, err
		}
		applied = append(applied, rec)
	}
	if len(action.Counterparts) > 0 {
		for _, other := range sess.scenario.PartyIDs() {
			if other == party {
				continue
			}
			rec, err := m.apply(sess, other, action.Counterparts, SourceAction, actionID)
			if err != nil {
				return applied, err
			}
			applied = append(applied, rec)
		}
	}
	m.persistLocked(ctx, sess, applied)
	return applied, nil
}

// apply mutates the store and appends to the audit log. Caller holds sess.mu.
func (m *SessionManager) apply(sess *Session, party string, deltas map[string]float64, source, action string) (EffectRecord, error) {
	st, err := sess.store.ApplyEffect(party, deltas)
	if err != nil {
		return EffectRecord{}, err
	}
	now := m.now()
	rec := EffectRecord{
		Seq:       len(sess.history) + 1,
		Party:     party,
		Source:    source,
		Action:    action,
		Deltas:    copyDeltas(deltas),
		Result:    st,
		AppliedAt: now,
	}
	sess.history = append(sess.history, rec)
	sess.updatedAt = now
	return rec, nil
}

func (m *SessionManager) persistLocked(ctx context.Context, sess *Session, effects []EffectRecord) {
	if err := m.persist(ctx, sess.record(), effects); err != nil {
		m.logger.Error("persist session effects failed",
			"session_id", sess.ID,
			"effects", len(effects),
			"error", err.Error(),
		)
	}
}

func (m *SessionManager) persist(ctx context.Context, head sessionRecord, effects []EffectRecord) error {
	if m.db == nil {
		return nil
	}
	return m.db.Update(ctx, func(txn *badger.Txn) error {
		if err := badgerstore.PutJSON(txn, sessionKey(head.ID), head); err != nil {
			return err
		}
		for _, e := range effects {
			if err := badgerstore.PutJSON(txn, effectKey(head.ID, e.Seq), e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Restore reloads persisted sessions.
//
// Description:
//
//	Sessions whose scenario is no longer registered, or whose snapshot names
//	parties the scenario no longer has, are skipped with a warning and left
//	in the database.
//
// Inputs:
//
//	ctx - Context for the read transaction.
//	lookup - Resolves a scenario ID, normally Registry.Get.
//
// Outputs:
//
//	int - Number of sessions restored.
//	error - Non-nil if the database cannot be read.
func (m *SessionManager) Restore(ctx context.Context, lookup func(id string) (*scenario.Scenario, error)) (int, error) {
	if m.db == nil {
		return 0, nil
	}

	var heads []sessionRecord
	histories := make(map[string][]EffectRecord)
	err := m.db.View(ctx, func(txn *badger.Txn) error {
		err := badgerstore.ScanPrefix(txn, []byte(sessionPrefix), func(key, val []byte) error {
			var head sessionRecord
			if err := json.Unmarshal(val, &head); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			heads = append(heads, head)
			return nil
		})
		if err != nil {
			return err
		}
		for _, head := range heads {
			err := badgerstore.ScanPrefix(txn, effectScanPrefix(head.ID), func(key, val []byte) error {
				var rec EffectRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("decode %s: %w", key, err)
				}
				histories[head.ID] = append(histories[head.ID], rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read sessions: %w", err)
	}

	restored := 0
	for _, head := range heads {
		s, err := lookup(head.ScenarioID)
		if err != nil {
			m.logger.Warn("skipping session with unknown scenario",
				"session_id", head.ID, "scenario_id", head.ScenarioID)
			continue
		}
		sess := newSession(head.ID, s, head.CreatedAt)
		if err := sess.store.Restore(head.States); err != nil {
			m.logger.Warn("skipping session with stale parties",
				"session_id", head.ID, "scenario_id", head.ScenarioID, "error", err.Error())
			continue
		}
		history := histories[head.ID]
		sort.Slice(history, func(i, j int) bool { return history[i].Seq < history[j].Seq })
		sess.history = history
		sess.updatedAt = head.UpdatedAt

		m.mu.Lock()
		m.sessions[sess.ID] = sess
		m.mu.Unlock()
		restored++
	}
	if restored > 0 {
		m.logger.Info("sessions restored", "count", restored)
	}
	return restored, nil
}

func copyDeltas(d map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
