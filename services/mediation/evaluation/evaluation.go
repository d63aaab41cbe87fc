// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evaluation computes the composite metrics of an agreement.
//
// # Description
//
// Evaluate runs the utility and acceptance models for every party and
// derives the joint acceptance probability, whether a zone of possible
// agreement (ZOPA) exists, the Nash bargaining product and the equity ratio
// between the best- and worst-off parties' gains over their BATNAs.
//
// # Thread Safety
//
// Evaluate is pure. EvaluateBatch fans agreements out over a bounded pool of
// goroutines; it shares only the read-only scenario between them.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/acceptance"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/utility"
)

// ErrDegenerateEquity indicates the smallest gain is exactly zero.
var ErrDegenerateEquity = errors.New("equity ratio undefined: minimum gain is zero")

// Metrics is the evaluation record for one agreement.
//
// Per-party maps are keyed by party ID. Gains are utility minus BATNA.
// NashProduct is reported as computed even when negative; ZOPAExists says
// whether it is meaningful. EquityRatio is nil when EquityDefined is false.
type Metrics struct {
	ScenarioID              string                    `json:"scenario_id"`
	Parties                 []string                  `json:"parties"`
	Utilities               map[string]float64        `json:"utilities"`
	Gains                   map[string]float64        `json:"gains"`
	Breakdowns              map[string]utility.Result `json:"breakdowns"`
	AcceptanceProbabilities map[string]float64        `json:"acceptance_probabilities"`
	OverallProbability      float64                   `json:"overall_probability"`
	ZOPAExists              bool                      `json:"zopa_exists"`
	NashProduct             float64                   `json:"nash_product"`
	EquityRatio             *float64                  `json:"equity_ratio"`
	EquityDefined           bool                      `json:"equity_defined"`
	Missing                 []string                  `json:"missing_parameters,omitempty"`
}

// Evaluate computes the metrics record for an agreement.
//
// # Description
//
// The agreement is validated once against the scenario schema. Products are
// taken in scenario party order. A degenerate equity ratio is not an error
// here: it is reported as EquityDefined=false with a nil ratio.
//
// # Inputs
//
//   - s: A validated scenario.
//   - a: The proposed agreement.
//
// # Outputs
//
//   - *Metrics: The evaluation record.
//   - error: Validation errors from the scenario package, or
//     acceptance.ErrInvalidInput if a model input is not finite.
func Evaluate(s *scenario.Scenario, a scenario.Agreement) (*Metrics, error) {
	results, err := utility.CalculateAll(s, a)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		ScenarioID:              s.ID,
		Parties:                 s.PartyIDs(),
		Utilities:               make(map[string]float64, len(results)),
		Gains:                   make(map[string]float64, len(results)),
		Breakdowns:              make(map[string]utility.Result, len(results)),
		AcceptanceProbabilities: make(map[string]float64, len(results)),
		OverallProbability:      1,
		ZOPAExists:              true,
		NashProduct:             1,
		Missing:                 s.MissingParameters(a),
	}

	gains := make([]float64, 0, len(results))
	for i, r := range results {
		p := s.Parties[i]
		prob, err := acceptance.Probability(r.Utility, p.BATNA, p.RiskAttitude, p.LossAversion)
		if err != nil {
			return nil, fmt.Errorf("party %q: %w", p.ID, err)
		}
		gain := r.Utility - p.BATNA

		m.Utilities[p.ID] = r.Utility
		m.Gains[p.ID] = gain
		m.Breakdowns[p.ID] = r
		m.AcceptanceProbabilities[p.ID] = prob
		m.OverallProbability *= prob
		m.NashProduct *= gain
		if r.Utility < p.BATNA {
			m.ZOPAExists = false
		}
		gains = append(gains, gain)
	}

	if ratio, err := EquityRatio(gains); err == nil {
		m.EquityRatio = &ratio
		m.EquityDefined = true
	}
	return m, nil
}

// EquityRatio returns max(gains)/min(gains).
//
// # Outputs
//
//   - float64: The ratio. With mixed-sign gains the ratio is negative.
//   - error: ErrDegenerateEquity if the minimum gain is exactly zero or
//     gains is empty.
func EquityRatio(gains []float64) (float64, error) {
	if len(gains) == 0 {
		return 0, fmt.Errorf("%w: no parties", ErrDegenerateEquity)
	}
	lo, hi := gains[0], gains[0]
	for _, g := range gains[1:] {
		lo = min(lo, g)
		hi = max(hi, g)
	}
	if lo == 0 {
		return 0, ErrDegenerateEquity
	}
	return hi / lo, nil
}

// EvaluateBatch evaluates agreements concurrently.
//
// # Description
//
// Results are returned in input order. The first failing agreement cancels
// the remaining work and its error is returned, annotated with its index.
// parallelism <= 0 uses GOMAXPROCS.
//
// # Thread Safety
//
// Safe for concurrent use; s is only read.
func EvaluateBatch(ctx context.Context, s *scenario.Scenario, agreements []scenario.Agreement, parallelism int) ([]*Metrics, error) {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	out := make([]*Metrics, len(agreements))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, a := range agreements {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := Evaluate(s, a)
			if err != nil {
				return fmt.Errorf("agreement %d: %w", i, err)
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
