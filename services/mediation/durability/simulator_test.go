// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package durability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

func newCeasefireSimulator(t testing.TB) *Simulator {
	t.Helper()
	r := scenario.NewRegistry(nil)
	require.NoError(t, r.LoadDefaults())
	s, err := r.Get("ceasefire")
	require.NoError(t, err)
	sim, err := NewSimulator(s)
	require.NoError(t, err)
	return sim
}

// tightAgreement sits at the rate-increasing end of every factor.
func tightAgreement() scenario.Agreement {
	a := scenario.Agreement{}
	a.Set("security", "buffer_km", scenario.Number(1))
	a.Set("security", "monitors", scenario.Number(0))
	a.Set("security", "verification", scenario.Label("none"))
	a.Set("political", "power_share", scenario.Number(0.1))
	a.Set("political", "amnesty", scenario.Bool(false))
	return a
}

// lenientAgreement sits at the rate-decreasing end of every factor.
func lenientAgreement() scenario.Agreement {
	a := scenario.Agreement{}
	a.Set("security", "buffer_km", scenario.Number(15))
	a.Set("security", "monitors", scenario.Number(500))
	a.Set("security", "verification", scenario.Label("international"))
	a.Set("political", "power_share", scenario.Number(0.3))
	a.Set("political", "amnesty", scenario.Bool(true))
	return a
}

func TestSimulate_InvalidStepCount(t *testing.T) {
	sim := newCeasefireSimulator(t)
	for _, steps := range []int{0, -5} {
		_, err := sim.Simulate(tightAgreement(), nil, steps, 1)
		assert.ErrorIs(t, err, ErrInvalidStepCount)
	}
}

func TestSimulate_RejectsInvalidAgreement(t *testing.T) {
	sim := newCeasefireSimulator(t)
	a := tightAgreement()
	a.Set("security", "buffer_km", scenario.Number(-1))
	_, err := sim.Simulate(a, nil, 10, 1)
	assert.ErrorIs(t, err, scenario.ErrInvalidParameterValue)
}

func TestNewSimulator_RequiresValidatedScenario(t *testing.T) {
	_, err := NewSimulator(&scenario.Scenario{ID: "raw"})
	assert.ErrorIs(t, err, scenario.ErrInvalidScenario)
}

func TestSimulate_DeterministicForSeed(t *testing.T) {
	sim := newCeasefireSimulator(t)
	store := strategic.NewStore("government", "coalition")

	first, err := sim.Simulate(tightAgreement(), store, 500, 12345)
	require.NoError(t, err)
	second, err := sim.Simulate(tightAgreement(), store, 500, 12345)
	require.NoError(t, err)

	assert.Equal(t, first.Incidents, second.Incidents)
	assert.Equal(t, first, second)
	assert.Equal(t, first.StrategicModifier, second.StrategicModifier)

	other, err := sim.Simulate(tightAgreement(), store, 500, 54321)
	require.NoError(t, err)
	assert.NotEqual(t, first.Incidents, other.Incidents)
}

func TestSimulate_ResultInvariants(t *testing.T) {
	sim := newCeasefireSimulator(t)
	cfg := sim.Scenario().Durability

	for seed := uint64(0); seed < 30; seed++ {
		r, err := sim.Simulate(tightAgreement(), nil, 200, seed)
		require.NoError(t, err)

		assert.Equal(t, len(r.Incidents), r.IncidentCount)
		high, maxSev, sum := 0, 0.0, 0.0
		prev := -1
		for _, inc := range r.Incidents {
			require.Greater(t, inc.Step, prev, "steps strictly increase")
			require.Less(t, inc.Step, 200)
			require.GreaterOrEqual(t, inc.Severity, cfg.Severity.Min)
			require.LessOrEqual(t, inc.Severity, cfg.Severity.Max)
			require.Equal(t, inc.Severity >= cfg.HighSeverityThreshold, inc.HighSeverity)
			if inc.HighSeverity {
				high++
			}
			maxSev = max(maxSev, inc.Severity)
			sum += inc.Severity
			prev = inc.Step
		}
		assert.Equal(t, high, r.HighSeverityCount)
		assert.Equal(t, maxSev, r.MaxSeverity)
		if r.IncidentCount > 0 {
			assert.InDelta(t, sum/float64(r.IncidentCount), r.MeanSeverity, 1e-9)
		}
		assert.LessOrEqual(t, r.StepProbability, scenario.MaxProbability)
		assert.Equal(t, Classify(r.Summary()), r.Label)
	}
}

func TestSimulate_TightProducesMoreIncidentsThanLenient(t *testing.T) {
	sim := newCeasefireSimulator(t)
	store := strategic.NewStore("government", "coalition")

	tight, err := sim.SimulateRuns(context.Background(), tightAgreement(), store, 500, 20, 100, 4)
	require.NoError(t, err)
	lenient, err := sim.SimulateRuns(context.Background(), lenientAgreement(), store, 500, 20, 100, 4)
	require.NoError(t, err)

	assert.Greater(t, tight.MeanIncidents, lenient.MeanIncidents)
	assert.Greater(t, tight.BaseProbability, lenient.BaseProbability)
	assert.Less(t, lenient.SeverityMultiplier, tight.SeverityMultiplier)
}

func TestStrategicModifier_HighLegitimacyLowersRisk(t *testing.T) {
	sim := newCeasefireSimulator(t)
	store := strategic.NewStore("government", "coalition")

	before, err := sim.Simulate(tightAgreement(), store, 100, 9)
	require.NoError(t, err)
	assert.Equal(t, 1.0, before.StrategicModifier)

	_, err = store.ApplyEffect("government", map[string]float64{"legitimacy": 35})
	require.NoError(t, err)

	after, err := sim.Simulate(tightAgreement(), store, 100, 9)
	require.NoError(t, err)
	assert.Less(t, after.StrategicModifier, before.StrategicModifier)
	assert.InDelta(t, 0.9, after.StrategicModifier, 1e-12)
}

func TestStrategicModifier(t *testing.T) {
	sim := newCeasefireSimulator(t)

	tests := []struct {
		name   string
		states strategic.Snapshot
		want   float64
	}{
		{"defaults", nil, 1},
		{"missing parties default", strategic.Snapshot{}, 1},
		{
			name: "compounding within a party",
			states: strategic.Snapshot{
				"government": {DiplomaticCapital: 50, Legitimacy: 20, DomesticSupport: 20, Credibility: 20},
			},
			// (1.2 * 1.3 * 1.25 + 1) / 2
			want: (1.2*1.3*1.25 + 1) / 2,
		},
		{
			name: "threshold is strict",
			states: strategic.Snapshot{
				"government": {DiplomaticCapital: 70, Legitimacy: 70, DomesticSupport: 30, Credibility: 30},
				"coalition":  {DiplomaticCapital: 70, Legitimacy: 30, DomesticSupport: 70, Credibility: 50},
			},
			want: 1,
		},
		{
			name: "both parties favourable",
			states: strategic.Snapshot{
				"government": {DiplomaticCapital: 80, Legitimacy: 80, DomesticSupport: 80, Credibility: 80},
				"coalition":  {DiplomaticCapital: 80, Legitimacy: 80, DomesticSupport: 80, Credibility: 80},
			},
			want: 0.8 * 0.9 * 0.85,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reader strategic.Reader
			if tt.states != nil {
				reader = tt.states
			}
			assert.InDelta(t, tt.want, sim.StrategicModifier(reader), 1e-12)
		})
	}
}

func TestSimulate_IncidentHookSeesEveryIncident(t *testing.T) {
	sim := newCeasefireSimulator(t)
	var seen []Incident
	r, err := sim.Simulate(tightAgreement(), nil, 300, 77, WithIncidentHook(func(inc Incident) {
		seen = append(seen, inc)
	}))
	require.NoError(t, err)
	assert.Equal(t, r.Incidents, seen)
}

func TestSimulate_ZeroBaseRateIsIdeal(t *testing.T) {
	sim := newCeasefireSimulator(t)
	quiet := *sim
	quiet.cfg.BaseRate = 0

	r, err := quiet.Simulate(lenientAgreement(), nil, 1000, 1)
	require.NoError(t, err)
	assert.Empty(t, r.Incidents)
	assert.Equal(t, 0.0, r.MeanSeverity)
	assert.Equal(t, 0.0, r.MaxSeverity)
	assert.Equal(t, TrendStable, r.Trend)
	assert.Equal(t, LabelIdeal, r.Label)
}

func TestSimulate_SeverityDistributions(t *testing.T) {
	for _, dist := range []string{scenario.DistributionGamma, scenario.DistributionWeibull, scenario.DistributionLogNormal} {
		t.Run(dist, func(t *testing.T) {
			sim := newCeasefireSimulator(t)
			custom := *sim
			custom.cfg.Severity.Distribution = dist
			custom.cfg.Severity.Shape = 1.5
			custom.cfg.Severity.Scale = 3

			r, err := custom.Simulate(tightAgreement(), nil, 400, 5)
			require.NoError(t, err)
			require.NotEmpty(t, r.Incidents)
			for _, inc := range r.Incidents {
				assert.GreaterOrEqual(t, inc.Severity, 0.0)
				assert.LessOrEqual(t, inc.Severity, 10.0)
			}
		})
	}
}

func TestSimulate_ContagionRaisesIncidents(t *testing.T) {
	sim := newCeasefireSimulator(t)
	calm := *sim
	calm.cfg.Contagion = scenario.ContagionConfig{}
	hot := *sim
	hot.cfg.Contagion = scenario.ContagionConfig{Boost: 3, Decay: 0}
	hot.cfg.HighSeverityThreshold = 0

	a := tightAgreement()
	c, err := calm.SimulateRuns(context.Background(), a, nil, 300, 10, 1, 2)
	require.NoError(t, err)
	h, err := hot.SimulateRuns(context.Background(), a, nil, 300, 10, 1, 2)
	require.NoError(t, err)
	assert.Greater(t, h.MeanIncidents, c.MeanIncidents)
}

func TestTrend(t *testing.T) {
	tests := []struct {
		first, second float64
		want          Trend
	}{
		{2, 3, TrendIncreasing},
		{3, 2, TrendDecreasing},
		{2, 2.4, TrendStable},
		{2, 2.5, TrendStable},
		{0, 0, TrendStable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyTrend(tt.first, tt.second, 0.5), "%g -> %g", tt.first, tt.second)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   Summary
		want Label
	}{
		{"quiet", Summary{Steps: 100, Trend: TrendStable}, LabelIdeal},
		{"few incidents", Summary{Steps: 100, IncidentCount: 2, MeanSeverity: 2, Trend: TrendStable}, LabelIdeal},
		{"one high incident", Summary{Steps: 100, IncidentCount: 2, HighSeverityCount: 0.1, MeanSeverity: 3, Trend: TrendStable}, LabelAcceptable},
		{"moderate rate", Summary{Steps: 500, IncidentCount: 20, MeanSeverity: 3, Trend: TrendStable}, LabelAcceptable},
		{"increasing trend", Summary{Steps: 500, IncidentCount: 5, MeanSeverity: 3, Trend: TrendIncreasing}, LabelConcerning},
		{"high rate", Summary{Steps: 500, IncidentCount: 60, MeanSeverity: 3, Trend: TrendStable}, LabelConcerning},
		{"severe mean", Summary{Steps: 500, IncidentCount: 5, HighSeverityCount: 1, MeanSeverity: 5.5, Trend: TrendStable}, LabelConcerning},
		{"very high rate", Summary{Steps: 100, IncidentCount: 25, MeanSeverity: 2, Trend: TrendStable}, LabelFailed},
		{"mostly high severity", Summary{Steps: 500, IncidentCount: 4, HighSeverityCount: 2, MeanSeverity: 6, Trend: TrendStable}, LabelFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func BenchmarkSimulate(b *testing.B) {
	sim := newCeasefireSimulator(b)
	a := tightAgreement()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sim.Simulate(a, nil, 1000, uint64(i))
	}
}

func TestSimulateRuns_ReplayableAndOrdered(t *testing.T) {
	sim := newCeasefireSimulator(t)
	a := tightAgreement()

	agg, err := sim.SimulateRuns(context.Background(), a, nil, 250, 8, 1000, 3)
	require.NoError(t, err)
	require.Len(t, agg.PerRun, 8)
	assert.Equal(t, 8, agg.TrendCounts[TrendIncreasing]+agg.TrendCounts[TrendDecreasing]+agg.TrendCounts[TrendStable])

	total := 0
	for i, run := range agg.PerRun {
		assert.Equal(t, uint64(1000+i), run.Seed)
		single, err := sim.Simulate(a, nil, 250, run.Seed)
		require.NoError(t, err)
		assert.Equal(t, single.IncidentCount, run.IncidentCount)
		assert.Equal(t, single.Label, run.Label)
		total += run.IncidentCount
	}
	assert.InDelta(t, float64(total)/8, agg.MeanIncidents, 1e-9)

	again, err := sim.SimulateRuns(context.Background(), a, nil, 250, 8, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, agg, again)
}

func TestExtendRuns_MatchesSimulateRuns(t *testing.T) {
	sim := newCeasefireSimulator(t)
	a := tightAgreement()
	ctx := context.Background()

	first, err := sim.Simulate(a, nil, 250, 1000)
	require.NoError(t, err)
	ext, err := sim.ExtendRuns(ctx, first, a, 8, 3)
	require.NoError(t, err)

	full, err := sim.SimulateRuns(ctx, a, nil, 250, 8, 1000, 2)
	require.NoError(t, err)
	assert.Equal(t, full, ext)
	assert.Equal(t, first.IncidentCount, ext.PerRun[0].IncidentCount)

	single, err := sim.ExtendRuns(ctx, first, a, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Label, single.Label)

	_, err = sim.ExtendRuns(ctx, first, a, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidRunCount)
	_, err = sim.ExtendRuns(ctx, nil, a, 2, 1)
	assert.Error(t, err)
}

func TestSimulateRuns_Errors(t *testing.T) {
	sim := newCeasefireSimulator(t)
	ctx := context.Background()

	_, err := sim.SimulateRuns(ctx, tightAgreement(), nil, 0, 5, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidStepCount)
	_, err = sim.SimulateRuns(ctx, tightAgreement(), nil, 10, 0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidRunCount)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = sim.SimulateRuns(cancelled, tightAgreement(), nil, 10, 5, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulateRuns_SingleRunHasZeroSpread(t *testing.T) {
	sim := newCeasefireSimulator(t)
	agg, err := sim.SimulateRuns(context.Background(), tightAgreement(), nil, 100, 1, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, agg.StdDevIncidents)
	assert.Equal(t, agg.PerRun[0].Label, agg.Label)
}
