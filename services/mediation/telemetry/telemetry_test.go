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
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_METRICS_EXPORTER", "")
	t.Setenv("MEDIATION_ENV", "staging")

	cfg := DefaultConfig()
	assert.Equal(t, "mediation", cfg.ServiceName)
	assert.Equal(t, ExporterNone, cfg.TraceExporter)
	assert.Equal(t, ExporterPrometheus, cfg.MetricExporter)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestInit(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := Init(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilContext)

	cfg := DefaultConfig()
	cfg.TraceExporter = ExporterNone
	cfg.MetricExporter = ExporterNone
	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	cfg.TraceExporter = "zipkin"
	_, err = Init(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)

	cfg.TraceExporter = ExporterNone
	cfg.MetricExporter = "graphite"
	_, err = Init(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter(TracerName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordEvaluation(ctx, "ceasefire", time.Millisecond, nil)
	m.RecordEvaluation(ctx, "ceasefire", time.Millisecond, errors.New("bad"))
	m.RecordSimulation(ctx, "ceasefire", "concerning", 500, 4, 30, 5, time.Second, nil)
	m.RecordEffect(ctx, "ceasefire", "action")
	m.SessionOpened(ctx)
	m.RecordError(ctx, "INVALID_REQUEST")

	sums := collect(t, reader)
	assert.Equal(t, int64(2), sums["mediation_evaluations_total"])
	assert.Equal(t, int64(1), sums["mediation_simulations_total"])
	assert.Equal(t, int64(2000), sums["mediation_simulated_steps_total"])
	assert.Equal(t, int64(30), sums["mediation_incidents_total"])
	assert.Equal(t, int64(1), sums["mediation_durability_labels_total"])
	assert.Equal(t, int64(1), sums["mediation_strategic_effects_total"])
	assert.Equal(t, int64(1), sums["mediation_active_sessions"])
	assert.Equal(t, int64(1), sums["mediation_errors_total"])
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordEvaluation(context.Background(), "x", 0, nil)
		m.RecordSimulation(context.Background(), "x", "ideal", 1, 1, 0, 0, 0, nil)
		m.RecordEffect(context.Background(), "x", "delta")
		m.SessionOpened(context.Background())
		m.RecordError(context.Background(), "X")
	})
}

func TestSpanHelpers(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := tp.Tracer(TracerName)

	ctx, span := tracer.Start(context.Background(), "op")
	SetSpanAttributes(span, attribute.Int("steps", 10))
	AddSpanEvent(span, "checkpoint", attribute.String("k", "v"))
	RecordError(span, errors.New("boom"))
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	span.End()

	_, ok := tracer.Start(context.Background(), "ok")
	SetSpanOK(ok)
	ok.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 2)
	assert.Equal(t, codes.Ok, spans[1].Status().Code)

	assert.Empty(t, TraceID(context.Background()))
	RecordError(nil, errors.New("ignored"))
	RecordError(span, nil)
}

func TestLoggerWithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	assert.Same(t, logger, LoggerWithTrace(context.Background(), logger))

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer(TracerName).Start(context.Background(), "op")
	defer span.End()

	LoggerWithTrace(ctx, logger).Info("hello")
	assert.Contains(t, buf.String(), `"trace_id":"`+TraceID(ctx)+`"`)
}
