// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package durability simulates how an agreement holds up over time.
//
// # Description
//
// A run is a sequence of discrete steps. At each step an incident occurs
// with a probability built from the scenario's base rate, the agreement's
// rate factors and a strategic modifier derived from every party's
// soft-power state. Incident severity is drawn from the scenario's severity
// distribution, scaled by severity factors and clamped to the severity
// scale. The run is summarized into counts, mean and max severity, a
// first-half/second-half trend and a qualitative label.
//
// Runs are deterministic for a given seed: the same agreement, strategic
// state, step count and seed always produce the same incidents.
//
// # Thread Safety
//
// A Simulator is immutable and safe for concurrent use. Strategic state is
// read once at the start of each run and never written.
package durability

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

// ErrInvalidStepCount indicates a non-positive step count.
var ErrInvalidStepCount = errors.New("step count must be positive")

// Incident is one adverse event in a run.
type Incident struct {
	Step         int     `json:"step"`
	Severity     float64 `json:"severity"`
	HighSeverity bool    `json:"high_severity"`
}

// Result is the record of a single run.
type Result struct {
	Steps              int        `json:"steps"`
	Seed               uint64     `json:"seed"`
	Incidents          []Incident `json:"incidents"`
	IncidentCount      int        `json:"incident_count"`
	HighSeverityCount  int        `json:"high_severity_count"`
	MeanSeverity       float64    `json:"mean_severity"`
	MaxSeverity        float64    `json:"max_severity"`
	FirstHalfMean      float64    `json:"first_half_mean_severity"`
	SecondHalfMean     float64    `json:"second_half_mean_severity"`
	Trend              Trend      `json:"trend"`
	BaseProbability    float64    `json:"base_probability"`
	StrategicModifier  float64    `json:"strategic_modifier"`
	StepProbability    float64    `json:"step_probability"`
	SeverityMultiplier float64    `json:"severity_multiplier"`
	Label              Label      `json:"label"`
}

// Summary returns the statistics used for labelling.
func (r *Result) Summary() Summary {
	return Summary{
		Steps:             r.Steps,
		IncidentCount:     float64(r.IncidentCount),
		HighSeverityCount: float64(r.HighSeverityCount),
		MeanSeverity:      r.MeanSeverity,
		Trend:             r.Trend,
	}
}

// Option customizes a single Simulate call.
type Option func(*runOptions)

type runOptions struct {
	onIncident func(Incident)
}

// WithIncidentHook calls fn for each incident as it is generated, in step
// order, on the simulating goroutine.
func WithIncidentHook(fn func(Incident)) Option {
	return func(o *runOptions) { o.onIncident = fn }
}

// Simulator runs durability simulations for one scenario.
type Simulator struct {
	scenario *scenario.Scenario
	cfg      scenario.DurabilityConfig
}

// NewSimulator creates a simulator for a validated scenario.
func NewSimulator(s *scenario.Scenario) (*Simulator, error) {
	if !s.Validated() {
		return nil, fmt.Errorf("%w: scenario not validated", scenario.ErrInvalidScenario)
	}
	return &Simulator{scenario: s, cfg: s.Durability}, nil
}

// Scenario returns the scenario the simulator was built for.
func (sim *Simulator) Scenario() *scenario.Scenario { return sim.scenario }

// BaseProbability returns base_rate times every rate factor's multiplier.
// The value is not clamped.
func (sim *Simulator) BaseProbability(a scenario.Agreement) float64 {
	p := sim.cfg.BaseRate
	for _, f := range sim.cfg.RateFactors {
		p *= f.Multiplier(a)
	}
	return p
}

// SeverityMultiplier returns the product of every severity factor.
func (sim *Simulator) SeverityMultiplier(a scenario.Agreement) float64 {
	m := 1.0
	for _, f := range sim.cfg.SeverityFactors {
		m *= f.Multiplier(a)
	}
	return m
}

// PartyModifier returns the product of the strategic rules st triggers.
func (sim *Simulator) PartyModifier(st strategic.State) float64 {
	m := 1.0
	for _, r := range sim.cfg.StrategicRules {
		if r.Triggered(st) {
			m *= r.Multiplier
		}
	}
	return m
}

// StrategicModifier averages PartyModifier over the scenario's parties.
//
// Parties the reader does not know are treated as having the default
// (all-neutral) state. A nil reader means every party is at default.
func (sim *Simulator) StrategicModifier(states strategic.Reader) float64 {
	parties := sim.scenario.Parties
	sum := 0.0
	for _, p := range parties {
		sum += sim.PartyModifier(stateOf(states, p.ID))
	}
	return sum / float64(len(parties))
}

// Simulate runs one seeded simulation.
//
// # Description
//
// The strategic modifier is computed once from states before the first
// step. For each step the incident probability is
// clamp(base * modifier * contagion, 0, 0.95); on an incident the severity
// is drawn, scaled by the severity multiplier and clamped to the scenario's
// severity bounds.
//
// # Inputs
//
//   - a: The agreement. Validated against the scenario here.
//   - states: Strategic state per party. May be nil for all-default.
//   - steps: Number of steps. Must be positive.
//   - seed: Random seed for the run.
//   - opts: Optional hooks.
//
// # Outputs
//
//   - *Result: The run record, labelled.
//   - error: ErrInvalidStepCount, or agreement validation errors from the
//     scenario package.
func (sim *Simulator) Simulate(a scenario.Agreement, states strategic.Reader, steps int, seed uint64, opts ...Option) (*Result, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStepCount, steps)
	}
	if err := sim.scenario.ValidateAgreement(a); err != nil {
		return nil, err
	}
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	return sim.run(a, sim.StrategicModifier(states), steps, seed, o), nil
}

// run executes the step loop. Inputs are already validated.
func (sim *Simulator) run(a scenario.Agreement, modifier float64, steps int, seed uint64, o runOptions) *Result {
	cfg := sim.cfg
	src := newSource(seed)
	rng := rand.New(src)
	// Validation guarantees a supported distribution.
	sampler, _ := newSeveritySampler(cfg.Severity, src)

	base := sim.BaseProbability(a)
	sevMult := sim.SeverityMultiplier(a)
	stepP := clampRange(base*modifier, 0, scenario.MaxProbability)

	res := &Result{
		Steps:              steps,
		Seed:               seed,
		Incidents:          []Incident{},
		BaseProbability:    base,
		StrategicModifier:  modifier,
		StepProbability:    stepP,
		SeverityMultiplier: sevMult,
	}

	half := steps / 2
	var firstSum, secondSum float64
	var firstN, secondN int
	heat := 0.0

	for step := 0; step < steps; step++ {
		p := stepP
		if heat > 0 {
			p = clampRange(base*modifier*(1+cfg.Contagion.Boost*heat), 0, scenario.MaxProbability)
			heat *= 1 - cfg.Contagion.Decay
		}
		if rng.Float64() >= p {
			continue
		}

		sev := clampRange(sampler.Rand()*sevMult, cfg.Severity.Min, cfg.Severity.Max)
		inc := Incident{Step: step, Severity: sev, HighSeverity: sev >= cfg.HighSeverityThreshold}
		res.Incidents = append(res.Incidents, inc)
		if o.onIncident != nil {
			o.onIncident(inc)
		}

		res.IncidentCount++
		res.MeanSeverity += sev
		res.MaxSeverity = max(res.MaxSeverity, sev)
		if inc.HighSeverity {
			res.HighSeverityCount++
			if cfg.Contagion.Boost > 0 {
				heat = 1
			}
		}
		if step < half {
			firstSum += sev
			firstN++
		} else {
			secondSum += sev
			secondN++
		}
	}

	if res.IncidentCount > 0 {
		res.MeanSeverity /= float64(res.IncidentCount)
	}
	if firstN > 0 {
		res.FirstHalfMean = firstSum / float64(firstN)
	}
	if secondN > 0 {
		res.SecondHalfMean = secondSum / float64(secondN)
	}
	res.Trend = classifyTrend(res.FirstHalfMean, res.SecondHalfMean, cfg.TrendMargin)
	res.Label = Classify(res.Summary())
	return res
}

func stateOf(states strategic.Reader, party string) strategic.State {
	if states == nil {
		return strategic.DefaultState()
	}
	if st, ok := states.State(party); ok {
		return st
	}
	return strategic.DefaultState()
}

// snapshot copies the scenario parties' states out of r so concurrent runs
// see one consistent view.
func (sim *Simulator) snapshot(r strategic.Reader) strategic.Snapshot {
	snap := make(strategic.Snapshot, len(sim.scenario.Parties))
	for _, p := range sim.scenario.Parties {
		snap[p.ID] = stateOf(r, p.ID)
	}
	return snap
}
