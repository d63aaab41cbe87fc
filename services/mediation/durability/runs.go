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
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

// ErrInvalidRunCount indicates a non-positive run count.
var ErrInvalidRunCount = errors.New("run count must be positive")

// RunSummary is the per-run part of an Aggregate. Incidents are omitted.
type RunSummary struct {
	Seed              uint64  `json:"seed"`
	IncidentCount     int     `json:"incident_count"`
	HighSeverityCount int     `json:"high_severity_count"`
	MeanSeverity      float64 `json:"mean_severity"`
	MaxSeverity       float64 `json:"max_severity"`
	Trend             Trend   `json:"trend"`
	Label             Label   `json:"label"`
}

// Aggregate summarizes several independent runs of the same inputs.
type Aggregate struct {
	Runs               int           `json:"runs"`
	Steps              int           `json:"steps"`
	Seed               uint64        `json:"seed"`
	MeanIncidents      float64       `json:"mean_incidents"`
	StdDevIncidents    float64       `json:"stddev_incidents"`
	MeanHighSeverity   float64       `json:"mean_high_severity"`
	MeanSeverity       float64       `json:"mean_severity"`
	MaxSeverity        float64       `json:"max_severity"`
	TrendCounts        map[Trend]int `json:"trend_counts"`
	Trend              Trend         `json:"trend"`
	LabelCounts        map[Label]int `json:"label_counts"`
	StrategicModifier  float64       `json:"strategic_modifier"`
	BaseProbability    float64       `json:"base_probability"`
	SeverityMultiplier float64       `json:"severity_multiplier"`
	Label              Label         `json:"label"`
	PerRun             []RunSummary  `json:"per_run"`
}

// SimulateRuns executes runs independent simulations and aggregates them.
//
// # Description
//
// Run i uses seed+i, so any single run can be replayed with Simulate. The
// strategic state is snapshotted once before the runs start. Runs execute
// on a bounded errgroup; parallelism <= 0 uses GOMAXPROCS. Per-run results
// are ordered by run index regardless of completion order.
//
// The aggregate label classifies the mean incident and high-severity
// counts, the incident-weighted mean severity and the majority trend.
//
// # Outputs
//
//   - *Aggregate: The aggregated record.
//   - error: ErrInvalidStepCount, ErrInvalidRunCount, agreement validation
//     errors, or ctx.Err() if cancelled between runs.
func (sim *Simulator) SimulateRuns(ctx context.Context, a scenario.Agreement, states strategic.Reader, steps, runs int, seed uint64, parallelism int) (*Aggregate, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStepCount, steps)
	}
	if runs <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRunCount, runs)
	}
	if err := sim.scenario.ValidateAgreement(a); err != nil {
		return nil, err
	}
	modifier := sim.StrategicModifier(sim.snapshot(states))
	results := make([]*Result, runs)
	if err := sim.runRange(ctx, a, modifier, steps, seed, results, 0, parallelism); err != nil {
		return nil, err
	}
	return aggregate(results, steps, seed), nil
}

// ExtendRuns aggregates first with runs-1 further runs.
//
// # Description
//
// first is treated as run 0 of the aggregate: the remaining runs use
// first.Seed+i with first's strategic modifier and step count, so the result
// equals SimulateRuns over the same inputs without repeating run 0.
//
// # Outputs
//
//   - *Aggregate: The aggregated record.
//   - error: ErrInvalidRunCount, agreement validation errors, or ctx.Err().
func (sim *Simulator) ExtendRuns(ctx context.Context, first *Result, a scenario.Agreement, runs, parallelism int) (*Aggregate, error) {
	if first == nil {
		return nil, errors.New("first run is required")
	}
	if runs <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRunCount, runs)
	}
	if err := sim.scenario.ValidateAgreement(a); err != nil {
		return nil, err
	}
	results := make([]*Result, runs)
	results[0] = first
	err := sim.runRange(ctx, a, first.StrategicModifier, first.Steps, first.Seed, results, 1, parallelism)
	if err != nil {
		return nil, err
	}
	return aggregate(results, first.Steps, first.Seed), nil
}

// runRange fills results[from:] with run i using seed+i on a bounded errgroup.
func (sim *Simulator) runRange(ctx context.Context, a scenario.Agreement, modifier float64, steps int, seed uint64, results []*Result, from, parallelism int) error {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := from; i < len(results); i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = sim.run(a, modifier, steps, seed+uint64(i), runOptions{})
			return nil
		})
	}
	return g.Wait()
}

func aggregate(results []*Result, steps int, seed uint64) *Aggregate {
	n := len(results)
	agg := &Aggregate{
		Runs:               n,
		Steps:              steps,
		Seed:               seed,
		TrendCounts:        map[Trend]int{TrendIncreasing: 0, TrendDecreasing: 0, TrendStable: 0},
		LabelCounts:        make(map[Label]int),
		StrategicModifier:  results[0].StrategicModifier,
		BaseProbability:    results[0].BaseProbability,
		SeverityMultiplier: results[0].SeverityMultiplier,
		PerRun:             make([]RunSummary, n),
	}

	counts := make([]float64, n)
	highs := make([]float64, n)
	maxes := make([]float64, n)
	var sevTotal float64
	var incTotal int
	for i, r := range results {
		counts[i] = float64(r.IncidentCount)
		highs[i] = float64(r.HighSeverityCount)
		maxes[i] = r.MaxSeverity
		sevTotal += r.MeanSeverity * float64(r.IncidentCount)
		incTotal += r.IncidentCount
		agg.TrendCounts[r.Trend]++
		agg.LabelCounts[r.Label]++
		agg.PerRun[i] = RunSummary{
			Seed:              r.Seed,
			IncidentCount:     r.IncidentCount,
			HighSeverityCount: r.HighSeverityCount,
			MeanSeverity:      r.MeanSeverity,
			MaxSeverity:       r.MaxSeverity,
			Trend:             r.Trend,
			Label:             r.Label,
		}
	}

	agg.MeanIncidents, agg.StdDevIncidents = stat.MeanStdDev(counts, nil)
	if n == 1 {
		agg.StdDevIncidents = 0
	}
	agg.MeanHighSeverity = stat.Mean(highs, nil)
	agg.MaxSeverity = floats.Max(maxes)
	if incTotal > 0 {
		agg.MeanSeverity = sevTotal / float64(incTotal)
	}
	agg.Trend = majorityTrend(agg.TrendCounts)
	agg.Label = Classify(Summary{
		Steps:             steps,
		IncidentCount:     agg.MeanIncidents,
		HighSeverityCount: agg.MeanHighSeverity,
		MeanSeverity:      agg.MeanSeverity,
		Trend:             agg.Trend,
	})
	return agg
}

// majorityTrend picks the most frequent trend; ties resolve to stable.
func majorityTrend(counts map[Trend]int) Trend {
	inc, dec, st := counts[TrendIncreasing], counts[TrendDecreasing], counts[TrendStable]
	switch {
	case inc > dec && inc > st:
		return TrendIncreasing
	case dec > inc && dec > st:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
