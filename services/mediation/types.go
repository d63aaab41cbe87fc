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
	"time"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/durability"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/evaluation"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

// ServiceVersion is reported by the health endpoint and telemetry resource.
const ServiceVersion = "0.3.0"

// Strategic state sources reported in SimulateResponse.StateSource.
const (
	StateSourceSession  = "session"
	StateSourceRequest  = "request"
	StateSourceDefaults = "defaults"
)

// EvaluateRequest is the request body for POST /v1/mediation/evaluate.
type EvaluateRequest struct {
	// ScenarioID selects the scenario. Required.
	ScenarioID string `json:"scenario_id" binding:"required"`

	// Agreement maps issue ID to parameter ID to value. Required.
	Agreement scenario.Agreement `json:"agreement" binding:"required"`
}

// BatchEvaluateRequest is the request body for POST /v1/mediation/evaluate/batch.
type BatchEvaluateRequest struct {
	// ScenarioID selects the scenario. Required.
	ScenarioID string `json:"scenario_id" binding:"required"`

	// Agreements are evaluated independently. At least one is required.
	Agreements []scenario.Agreement `json:"agreements" binding:"required,min=1"`
}

// BatchEvaluateResponse is the response for POST /v1/mediation/evaluate/batch.
type BatchEvaluateResponse struct {
	ScenarioID string                `json:"scenario_id"`
	Results    []*evaluation.Metrics `json:"results"`
}

// SimulateRequest is the request body for POST /v1/mediation/simulate and the
// first frame of the simulate stream.
//
// At most one strategic state source may be given: SessionID,
// StrategicStates, or UseDefaults. With none, every party is neutral.
type SimulateRequest struct {
	// ScenarioID selects the scenario. Required.
	ScenarioID string `json:"scenario_id" binding:"required"`

	// Agreement is the agreement to stress. Required.
	Agreement scenario.Agreement `json:"agreement" binding:"required"`

	// SessionID reads strategic state from a live session.
	SessionID string `json:"session_id,omitempty"`

	// StrategicStates supplies per-party state directly. Parties left out
	// are neutral; values are clamped to [0,100].
	StrategicStates map[string]strategic.State `json:"strategic_states,omitempty"`

	// UseDefaults forces neutral state for every party.
	UseDefaults bool `json:"use_defaults,omitempty"`

	// Steps is the number of time steps. Must be positive.
	Steps int `json:"steps"`

	// Runs is the number of independent runs. Default: 1.
	Runs int `json:"runs,omitempty"`

	// Seed makes the simulation reproducible. A random seed is drawn and
	// echoed back when omitted.
	Seed *uint64 `json:"seed,omitempty"`
}

// SimulateResponse is the response for POST /v1/mediation/simulate.
//
// Result is always the first run (seed Seed). Aggregate is set when Runs > 1
// and its Label supersedes Result.Label as the verdict.
type SimulateResponse struct {
	ScenarioID  string                `json:"scenario_id"`
	Seed        uint64                `json:"seed"`
	Steps       int                   `json:"steps"`
	Runs        int                   `json:"runs"`
	StateSource string                `json:"state_source"`
	Label       durability.Label      `json:"label"`
	Result      *durability.Result    `json:"result"`
	Aggregate   *durability.Aggregate `json:"aggregate,omitempty"`
}

// StreamFrame is one websocket message on /v1/mediation/simulate/stream.
type StreamFrame struct {
	// Type is "incident", "summary" or "error".
	Type     string               `json:"type"`
	Incident *durability.Incident `json:"incident,omitempty"`
	Summary  *SimulateResponse    `json:"summary,omitempty"`
	Error    *ErrorResponse       `json:"error,omitempty"`
}

// Stream frame types.
const (
	FrameIncident = "incident"
	FrameSummary  = "summary"
	FrameError    = "error"
)

// ScenarioSummary describes a scenario in listings.
type ScenarioSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Parties     []string `json:"parties"`
	Issues      []string `json:"issues"`
	Actions     []string `json:"actions,omitempty"`
}

// ScenarioListResponse is the response for GET /v1/mediation/scenarios.
type ScenarioListResponse struct {
	Scenarios []ScenarioSummary `json:"scenarios"`
}

// ScenarioDetailResponse is the response for GET /v1/mediation/scenarios/:id.
type ScenarioDetailResponse struct {
	Scenario *scenario.Scenario `json:"scenario"`

	// Midpoint is a ready-made agreement at the centre of every domain.
	Midpoint scenario.Agreement `json:"midpoint"`
}

// CreateSessionRequest is the request body for POST /v1/mediation/sessions.
type CreateSessionRequest struct {
	// ScenarioID fixes the parties tracked by the session. Required.
	ScenarioID string `json:"scenario_id" binding:"required"`
}

// EffectRequest is the request body for POST /v1/mediation/sessions/:id/effects.
type EffectRequest struct {
	// Party receives the deltas. Required.
	Party string `json:"party" binding:"required"`

	// Deltas maps metric name to signed change. Required.
	Deltas map[string]float64 `json:"deltas" binding:"required"`
}

// ActionRequest is the request body for POST /v1/mediation/sessions/:id/actions.
type ActionRequest struct {
	// Party takes the action. Required.
	Party string `json:"party" binding:"required"`

	// Action is an ID from the scenario's action catalog. Required.
	Action string `json:"action" binding:"required"`
}

// EffectRecord is one entry in a session's audit log.
type EffectRecord struct {
	Seq       int                `json:"seq"`
	Party     string             `json:"party"`
	Source    string             `json:"source"`
	Action    string             `json:"action,omitempty"`
	Deltas    map[string]float64 `json:"deltas"`
	Result    strategic.State    `json:"result"`
	AppliedAt time.Time          `json:"applied_at"`
}

// Effect sources.
const (
	SourceDelta  = "delta"
	SourceAction = "action"
)

// SessionResponse describes a session and its audit log.
type SessionResponse struct {
	ID         string             `json:"id"`
	ScenarioID string             `json:"scenario_id"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	States     strategic.Snapshot `json:"states"`
	History    []EffectRecord     `json:"history"`
}

// EffectResponse is the response for the effects and actions endpoints.
type EffectResponse struct {
	SessionID string             `json:"session_id"`
	Applied   []EffectRecord     `json:"applied"`
	States    strategic.Snapshot `json:"states"`
}

// HealthResponse is the response for GET /v1/mediation/health.
type HealthResponse struct {
	// Status is "healthy".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/mediation/ready.
type ReadyResponse struct {
	// Ready is true once at least one scenario is loaded.
	Ready bool `json:"ready"`

	// ScenarioCount is the number of loaded scenarios.
	ScenarioCount int `json:"scenario_count"`

	// SessionCount is the number of live sessions.
	SessionCount int `json:"session_count"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
