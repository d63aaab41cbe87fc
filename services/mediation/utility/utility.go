// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package utility scores an agreement from one party's point of view.
//
// # Description
//
// Utility is a two-level weighted sum. Each parameter's value is mapped to
// [0,1] by the party's value function and weighted within its issue; each
// issue's utility is then weighted across issues. Parameters the agreement
// leaves out contribute nothing; their weight is not redistributed to the
// parameters that are present. Result.Missing lists them so callers can
// surface the gap instead of silently reporting a low score.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package utility

import (
	"fmt"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
)

// ParameterScore is one parameter's part of an issue utility.
type ParameterScore struct {
	Parameter    string  `json:"parameter"`
	Weight       float64 `json:"weight"`
	Score        float64 `json:"score"`
	Contribution float64 `json:"contribution"`
}

// IssueBreakdown reports how one issue contributed to the total.
type IssueBreakdown struct {
	Issue        string           `json:"issue"`
	Weight       float64          `json:"weight"`
	Utility      float64          `json:"utility"`
	Contribution float64          `json:"contribution"`
	Parameters   []ParameterScore `json:"parameters,omitempty"`
}

// Result is a party's utility with its per-issue breakdown.
type Result struct {
	Party   string           `json:"party"`
	Utility float64          `json:"utility"`
	Issues  []IssueBreakdown `json:"issues"`
	Missing []string         `json:"missing,omitempty"`
}

// Calculate computes a party's utility for an agreement.
//
// # Description
//
// The agreement is validated against the scenario schema first. Issues are
// reported in scenario order, including issues with no parameter present
// (utility 0). The total is clamped to [0,1] only to absorb floating-point
// drift; with validated weights and value functions it cannot leave that
// range otherwise.
//
// # Inputs
//
//   - s: A validated scenario.
//   - party: Party ID.
//   - a: The proposed agreement.
//
// # Outputs
//
//   - Result: Utility, breakdown and missing parameters.
//   - error: scenario.ErrUnknownParty, scenario.ErrUnknownParameter,
//     scenario.ErrInvalidParameterValue or scenario.ErrInvalidScenario (wrapped).
func Calculate(s *scenario.Scenario, party string, a scenario.Agreement) (Result, error) {
	if !s.Validated() {
		return Result{}, fmt.Errorf("%w: scenario not validated", scenario.ErrInvalidScenario)
	}
	pref, err := s.Preference(party)
	if err != nil {
		return Result{}, err
	}
	if err := s.ValidateAgreement(a); err != nil {
		return Result{}, err
	}
	return calculate(s, party, pref, a)
}

// Utility returns only the scalar utility.
func Utility(s *scenario.Scenario, party string, a scenario.Agreement) (float64, error) {
	r, err := Calculate(s, party, a)
	if err != nil {
		return 0, err
	}
	return r.Utility, nil
}

// CalculateAll computes every party's utility in scenario order. The
// agreement is validated once.
func CalculateAll(s *scenario.Scenario, a scenario.Agreement) ([]Result, error) {
	if !s.Validated() {
		return nil, fmt.Errorf("%w: scenario not validated", scenario.ErrInvalidScenario)
	}
	if err := s.ValidateAgreement(a); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(s.Parties))
	for _, p := range s.Parties {
		r, err := calculate(s, p.ID, s.Preferences[p.ID], a)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func calculate(s *scenario.Scenario, party string, pref scenario.Preference, a scenario.Agreement) (Result, error) {
	res := Result{
		Party:   party,
		Issues:  make([]IssueBreakdown, 0, len(s.Issues)),
		Missing: s.MissingParameters(a),
	}

	total := 0.0
	for _, is := range s.Issues {
		ib := IssueBreakdown{Issue: is.ID, Weight: pref.IssueWeights[is.ID]}
		for _, p := range is.Parameters {
			v, ok := a.Get(is.ID, p.ID)
			if !ok {
				continue
			}
			key := scenario.QualifiedName(is.ID, p.ID)
			score, err := pref.ValueFunctions[key].Eval(v)
			if err != nil {
				return Result{}, fmt.Errorf("%w: %s: %v", scenario.ErrInvalidParameterValue, key, err)
			}
			w := pref.ParameterWeights[is.ID][p.ID]
			ib.Parameters = append(ib.Parameters, ParameterScore{
				Parameter:    p.ID,
				Weight:       w,
				Score:        score,
				Contribution: w * score,
			})
			ib.Utility += w * score
		}
		ib.Contribution = ib.Weight * ib.Utility
		total += ib.Contribution
		res.Issues = append(res.Issues, ib)
	}

	res.Utility = clampUnit(total)
	return res, nil
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
