// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the mediation service's instruments. All names use the
// "mediation_" prefix.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// EvaluationsTotal counts agreement evaluations by scenario and outcome.
	EvaluationsTotal metric.Int64Counter

	// EvaluationDuration records evaluation latency in seconds.
	EvaluationDuration metric.Float64Histogram

	// SimulationsTotal counts simulation requests by scenario and outcome.
	SimulationsTotal metric.Int64Counter

	// SimulationDuration records simulation latency in seconds.
	SimulationDuration metric.Float64Histogram

	// SimulatedSteps counts steps executed across all runs.
	SimulatedSteps metric.Int64Counter

	// IncidentsTotal counts generated incidents by severity class.
	IncidentsTotal metric.Int64Counter

	// DurabilityLabels counts simulation verdicts by label.
	DurabilityLabels metric.Int64Counter

	// StrategicEffectsTotal counts strategic effects applied to sessions.
	StrategicEffectsTotal metric.Int64Counter

	// ActiveSessions tracks live negotiation sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ErrorsTotal counts failed requests by error code.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics registers every instrument on meter.
//
// Description:
//
//	Returns an error naming the first instrument that fails to register.
//
// Example:
//
//	m, err := telemetry.NewMetrics(otel.Meter(telemetry.TracerName))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.EvaluationsTotal, err = meter.Int64Counter(
		"mediation_evaluations_total",
		metric.WithDescription("Total agreement evaluations"),
		metric.WithUnit("{evaluation}"),
	); err != nil {
		return nil, fmt.Errorf("create evaluations_total: %w", err)
	}

	if m.EvaluationDuration, err = meter.Float64Histogram(
		"mediation_evaluation_duration_seconds",
		metric.WithDescription("Agreement evaluation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1),
	); err != nil {
		return nil, fmt.Errorf("create evaluation_duration: %w", err)
	}

	if m.SimulationsTotal, err = meter.Int64Counter(
		"mediation_simulations_total",
		metric.WithDescription("Total durability simulation requests"),
		metric.WithUnit("{simulation}"),
	); err != nil {
		return nil, fmt.Errorf("create simulations_total: %w", err)
	}

	if m.SimulationDuration, err = meter.Float64Histogram(
		"mediation_simulation_duration_seconds",
		metric.WithDescription("Durability simulation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		return nil, fmt.Errorf("create simulation_duration: %w", err)
	}

	if m.SimulatedSteps, err = meter.Int64Counter(
		"mediation_simulated_steps_total",
		metric.WithDescription("Total simulated steps across all runs"),
		metric.WithUnit("{step}"),
	); err != nil {
		return nil, fmt.Errorf("create simulated_steps_total: %w", err)
	}

	if m.IncidentsTotal, err = meter.Int64Counter(
		"mediation_incidents_total",
		metric.WithDescription("Total simulated incidents"),
		metric.WithUnit("{incident}"),
	); err != nil {
		return nil, fmt.Errorf("create incidents_total: %w", err)
	}

	if m.DurabilityLabels, err = meter.Int64Counter(
		"mediation_durability_labels_total",
		metric.WithDescription("Durability verdicts by label"),
		metric.WithUnit("{verdict}"),
	); err != nil {
		return nil, fmt.Errorf("create durability_labels_total: %w", err)
	}

	if m.StrategicEffectsTotal, err = meter.Int64Counter(
		"mediation_strategic_effects_total",
		metric.WithDescription("Strategic effects applied to sessions"),
		metric.WithUnit("{effect}"),
	); err != nil {
		return nil, fmt.Errorf("create strategic_effects_total: %w", err)
	}

	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"mediation_active_sessions",
		metric.WithDescription("Live negotiation sessions"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("create active_sessions: %w", err)
	}

	if m.ErrorsTotal, err = meter.Int64Counter(
		"mediation_errors_total",
		metric.WithDescription("Failed requests by error code"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}

// RecordEvaluation records one evaluation outcome.
func (m *Metrics) RecordEvaluation(ctx context.Context, scenarioID string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("scenario", scenarioID),
		attribute.String("status", status(err)),
	)
	m.EvaluationsTotal.Add(ctx, 1, attrs)
	m.EvaluationDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordSimulation records one simulation request.
//
// incidents and high are totals across all runs.
func (m *Metrics) RecordSimulation(ctx context.Context, scenarioID, label string, steps, runs, incidents, high int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("scenario", scenarioID),
		attribute.String("status", status(err)),
	)
	m.SimulationsTotal.Add(ctx, 1, attrs)
	m.SimulationDuration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		return
	}
	m.SimulatedSteps.Add(ctx, int64(steps)*int64(runs), metric.WithAttributes(attribute.String("scenario", scenarioID)))
	m.IncidentsTotal.Add(ctx, int64(incidents-high), metric.WithAttributes(
		attribute.String("scenario", scenarioID), attribute.String("severity", "normal")))
	m.IncidentsTotal.Add(ctx, int64(high), metric.WithAttributes(
		attribute.String("scenario", scenarioID), attribute.String("severity", "high")))
	m.DurabilityLabels.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scenario", scenarioID), attribute.String("label", label)))
}

// RecordEffect records a strategic effect applied to a session.
func (m *Metrics) RecordEffect(ctx context.Context, scenarioID, source string) {
	if m == nil {
		return
	}
	m.StrategicEffectsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scenario", scenarioID), attribute.String("source", source)))
}

// SessionOpened increments the live-session gauge.
func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionClosed decrements the live-session gauge.
func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}

// RecordError counts a failed request by error code.
func (m *Metrics) RecordError(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
