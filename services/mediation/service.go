// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mediation exposes negotiated-agreement evaluation over HTTP.
//
// The service provides:
//   - Scenario listing from the bundled defaults and an optional directory
//   - Agreement evaluation: utilities, acceptance, Nash product, equity
//   - Durability simulation, single or multi-run, with websocket streaming
//   - Sessions that track strategic state per negotiation, persisted in Badger
//
// The computation lives in the scenario, utility, acceptance, evaluation,
// strategic and durability subpackages; this package validates requests,
// resolves strategic state and records telemetry.
package mediation

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/durability"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/evaluation"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/telemetry"
)

// ServiceConfig bounds the work a single request may ask for.
type ServiceConfig struct {
	// MaxSteps caps simulate steps. Default: 10000
	MaxSteps int

	// MaxRuns caps simulate runs. Default: 200
	MaxRuns int

	// MaxBatch caps agreements per batch evaluation. Default: 500
	MaxBatch int

	// Parallelism bounds concurrent runs and evaluations.
	// Default: 0 (GOMAXPROCS)
	Parallelism int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSteps: 10000,
		MaxRuns:  200,
		MaxBatch: 500,
	}
}

// Service derives the service limits from the process configuration.
func (c Config) Service() ServiceConfig {
	return ServiceConfig{
		MaxSteps:    c.MaxSteps,
		MaxRuns:     c.MaxRuns,
		MaxBatch:    c.MaxBatch,
		Parallelism: c.Parallelism,
	}
}

// Service implements the mediation operations behind the HTTP handlers and
// the CLI.
//
// Thread Safety:
//
//	Safe for concurrent use. Evaluation and simulation hold no shared
//	mutable state; sessions synchronize internally.
type Service struct {
	config   ServiceConfig
	registry *scenario.Registry
	sessions *SessionManager
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewService creates a service over a scenario registry and session manager.
//
// Inputs:
//
//	config - Request limits
//	registry - Loaded scenarios
//	sessions - Session manager. Nil creates an in-memory manager.
func NewService(config ServiceConfig, registry *scenario.Registry, sessions *SessionManager) *Service {
	if sessions == nil {
		sessions = NewSessionManager(nil, nil)
	}
	return &Service{
		config:   config,
		registry: registry,
		sessions: sessions,
		logger:   slog.Default(),
	}
}

// WithMetrics attaches metric instruments. Nil disables metrics.
func (s *Service) WithMetrics(m *telemetry.Metrics) *Service {
	s.metrics = m
	return s
}

// WithLogger replaces the default logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// Config returns the service limits.
func (s *Service) Config() ServiceConfig { return s.config }

// ScenarioCount returns the number of loaded scenarios.
func (s *Service) ScenarioCount() int { return s.registry.Len() }

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int { return s.sessions.Len() }

// ListScenarios summarizes every loaded scenario, sorted by ID.
func (s *Service) ListScenarios() []ScenarioSummary {
	list := s.registry.List()
	out := make([]ScenarioSummary, 0, len(list))
	for _, sc := range list {
		out = append(out, summarize(sc))
	}
	return out
}

// Scenario returns a scenario with a midpoint agreement.
func (s *Service) Scenario(id string) (*ScenarioDetailResponse, error) {
	sc, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return &ScenarioDetailResponse{Scenario: sc, Midpoint: sc.MidpointAgreement()}, nil
}

func summarize(sc *scenario.Scenario) ScenarioSummary {
	issues := make([]string, 0, len(sc.Issues))
	for _, iss := range sc.Issues {
		issues = append(issues, iss.ID)
	}
	return ScenarioSummary{
		ID:          sc.ID,
		Name:        sc.Name,
		Description: sc.Description,
		Parties:     sc.PartyIDs(),
		Issues:      issues,
		Actions:     sc.ActionIDs(),
	}
}

// Evaluate computes the metrics record for one agreement.
//
// Description:
//
//	Validates the agreement against the scenario and evaluates it.
//	Parameters absent from the agreement contribute zero utility; they are
//	listed in Metrics.Missing and logged as a warning.
//
// Outputs:
//
//	*evaluation.Metrics - The evaluation record.
//	error - scenario.ErrUnknownScenario, agreement validation errors, or
//	acceptance.ErrInvalidInput.
func (s *Service) Evaluate(ctx context.Context, scenarioID string, a scenario.Agreement) (*evaluation.Metrics, error) {
	ctx, span := telemetry.StartSpan(ctx, "Service.Evaluate",
		trace.WithAttributes(attribute.String("scenario.id", scenarioID)))
	defer span.End()

	start := time.Now()
	m, err := s.evaluate(scenarioID, a)
	s.metrics.RecordEvaluation(ctx, scenarioID, time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if len(m.Missing) > 0 {
		telemetry.LoggerWithTrace(ctx, s.logger).Warn("agreement omits parameters; they contribute zero utility",
			"scenario_id", scenarioID,
			"missing", m.Missing,
		)
	}
	telemetry.SetSpanAttributes(span,
		attribute.Float64("overall_probability", m.OverallProbability),
		attribute.Bool("zopa_exists", m.ZOPAExists),
	)
	telemetry.SetSpanOK(span)
	return m, nil
}

func (s *Service) evaluate(scenarioID string, a scenario.Agreement) (*evaluation.Metrics, error) {
	sc, err := s.registry.Get(scenarioID)
	if err != nil {
		return nil, err
	}
	return evaluation.Evaluate(sc, a)
}

// EvaluateBatch evaluates several agreements against one scenario.
//
// Results are in request order. The first failing agreement aborts the
// batch; its index is in the error message.
func (s *Service) EvaluateBatch(ctx context.Context, scenarioID string, agreements []scenario.Agreement) ([]*evaluation.Metrics, error) {
	ctx, span := telemetry.StartSpan(ctx, "Service.EvaluateBatch",
		trace.WithAttributes(
			attribute.String("scenario.id", scenarioID),
			attribute.Int("batch.size", len(agreements)),
		))
	defer span.End()

	if len(agreements) == 0 || len(agreements) > s.config.MaxBatch {
		err := fmt.Errorf("%w: batch size %d outside [1, %d]", ErrInvalidRequest, len(agreements), s.config.MaxBatch)
		telemetry.RecordError(span, err)
		return nil, err
	}

	sc, err := s.registry.Get(scenarioID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	start := time.Now()
	results, err := evaluation.EvaluateBatch(ctx, sc, agreements, s.config.Parallelism)
	s.metrics.RecordEvaluation(ctx, scenarioID, time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetSpanOK(span)
	return results, nil
}

// Simulate runs the durability simulation for an agreement.
//
// Description:
//
//	Resolves the strategic state source, draws a seed when none is given,
//	and runs the simulation. With Runs > 1 the first run is returned in
//	Result and all runs are aggregated; Result always replays from Seed.
//	The strategic state is snapshotted once so every run sees the same
//	state even if the session changes meanwhile.
//
// Inputs:
//
//	ctx - Cancels multi-run simulations between runs.
//	req - The simulate request.
//	hook - Optional callback for each incident of the first run.
//
// Outputs:
//
//	*SimulateResponse - The simulation record.
//	error - durability.ErrInvalidStepCount, ErrInvalidRequest,
//	ErrUnknownSession, scenario errors, or ctx.Err().
func (s *Service) Simulate(ctx context.Context, req SimulateRequest, hook func(durability.Incident)) (*SimulateResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "Service.Simulate",
		trace.WithAttributes(
			attribute.String("scenario.id", req.ScenarioID),
			attribute.Int("steps", req.Steps),
			attribute.Int("runs", req.Runs),
		))
	defer span.End()

	start := time.Now()
	resp, err := s.simulate(ctx, req, hook)
	if err != nil {
		s.metrics.RecordSimulation(ctx, req.ScenarioID, "", req.Steps, req.Runs, 0, 0, time.Since(start), err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	incidents, high := resp.Result.IncidentCount, resp.Result.HighSeverityCount
	if resp.Aggregate != nil {
		incidents, high = 0, 0
		for _, r := range resp.Aggregate.PerRun {
			incidents += r.IncidentCount
			high += r.HighSeverityCount
		}
	}
	s.metrics.RecordSimulation(ctx, req.ScenarioID, string(resp.Label), resp.Steps, resp.Runs, incidents, high, time.Since(start), nil)

	telemetry.SetSpanAttributes(span,
		attribute.Int64("seed", int64(resp.Seed)),
		attribute.String("label", string(resp.Label)),
		attribute.String("state_source", resp.StateSource),
	)
	telemetry.SetSpanOK(span)
	return resp, nil
}

func (s *Service) simulate(ctx context.Context, req SimulateRequest, hook func(durability.Incident)) (*SimulateResponse, error) {
	runs := req.Runs
	if runs == 0 {
		runs = 1
	}
	if runs < 0 {
		return nil, fmt.Errorf("%w: got %d", durability.ErrInvalidRunCount, runs)
	}
	if req.Steps <= 0 {
		return nil, fmt.Errorf("%w: got %d", durability.ErrInvalidStepCount, req.Steps)
	}
	if req.Steps > s.config.MaxSteps {
		return nil, fmt.Errorf("%w: steps %d exceeds limit %d", ErrInvalidRequest, req.Steps, s.config.MaxSteps)
	}
	if runs > s.config.MaxRuns {
		return nil, fmt.Errorf("%w: runs %d exceeds limit %d", ErrInvalidRequest, runs, s.config.MaxRuns)
	}

	sc, err := s.registry.Get(req.ScenarioID)
	if err != nil {
		return nil, err
	}
	states, source, err := s.resolveStates(sc, req)
	if err != nil {
		return nil, err
	}

	seed := NewSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	sim, err := durability.NewSimulator(sc)
	if err != nil {
		return nil, err
	}

	var opts []durability.Option
	if hook != nil {
		opts = append(opts, durability.WithIncidentHook(hook))
	}
	result, err := sim.Simulate(req.Agreement, states, req.Steps, seed, opts...)
	if err != nil {
		return nil, err
	}

	resp := &SimulateResponse{
		ScenarioID:  sc.ID,
		Seed:        seed,
		Steps:       req.Steps,
		Runs:        runs,
		StateSource: source,
		Label:       result.Label,
		Result:      result,
	}
	if runs > 1 {
		agg, err := sim.ExtendRuns(ctx, result, req.Agreement, runs, s.config.Parallelism)
		if err != nil {
			return nil, err
		}
		resp.Aggregate = agg
		resp.Label = agg.Label
	}
	return resp, nil
}

// resolveStates picks the strategic state for a simulation. The result is
// always a snapshot.
func (s *Service) resolveStates(sc *scenario.Scenario, req SimulateRequest) (strategic.Snapshot, string, error) {
	sources := 0
	if req.SessionID != "" {
		sources++
	}
	if req.StrategicStates != nil {
		sources++
	}
	if req.UseDefaults {
		sources++
	}
	if sources > 1 {
		return nil, "", fmt.Errorf("%w: session_id, strategic_states and use_defaults are mutually exclusive", ErrInvalidRequest)
	}

	switch {
	case req.SessionID != "":
		sess, err := s.sessions.Get(req.SessionID)
		if err != nil {
			return nil, "", err
		}
		if sess.ScenarioID != sc.ID {
			return nil, "", fmt.Errorf("%w: session %q is for scenario %q", ErrSessionScenario, sess.ID, sess.ScenarioID)
		}
		return sess.States(), StateSourceSession, nil

	case req.StrategicStates != nil:
		snap := make(strategic.Snapshot, len(req.StrategicStates))
		for party, st := range req.StrategicStates {
			if _, err := sc.Party(party); err != nil {
				return nil, "", err
			}
			snap[party] = st.Clamped()
		}
		return snap, StateSourceRequest, nil

	default:
		return strategic.Snapshot{}, StateSourceDefaults, nil
	}
}

// CreateSession opens a session for a scenario.
func (s *Service) CreateSession(ctx context.Context, scenarioID string) (SessionResponse, error) {
	sc, err := s.registry.Get(scenarioID)
	if err != nil {
		return SessionResponse{}, err
	}
	sess, err := s.sessions.Create(ctx, sc)
	if err != nil {
		return SessionResponse{}, err
	}
	s.metrics.SessionOpened(ctx)
	return sess.View(), nil
}

// Session returns a session and its audit log.
func (s *Service) Session(id string) (SessionResponse, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return SessionResponse{}, err
	}
	return sess.View(), nil
}

// DeleteSession removes a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.SessionClosed(ctx)
	return nil
}

// ApplyEffect applies metric deltas to one party in a session.
func (s *Service) ApplyEffect(ctx context.Context, sessionID string, req EffectRequest) (*EffectResponse, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := s.sessions.ApplyEffect(ctx, sess, req.Party, req.Deltas)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordEffect(ctx, sess.ScenarioID, SourceDelta)
	return &EffectResponse{SessionID: sess.ID, Applied: []EffectRecord{rec}, States: sess.States()}, nil
}

// ApplyAction applies a catalogued strategic action in a session.
func (s *Service) ApplyAction(ctx context.Context, sessionID string, req ActionRequest) (*EffectResponse, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	applied, err := s.sessions.ApplyAction(ctx, sess, req.Party, req.Action)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordEffect(ctx, sess.ScenarioID, SourceAction)
	return &EffectResponse{SessionID: sess.ID, Applied: applied, States: sess.States()}, nil
}

// NewSeed draws a random simulation seed from crypto/rand.
func NewSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
