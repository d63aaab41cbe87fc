// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scenario defines negotiation scenarios and the agreements proposed
// inside them.
//
// # Description
//
// A Scenario is the static description of a negotiation: the parties, the
// issues and their parameter schema, each party's weights and value
// functions, fallback (BATNA) utilities, risk attitudes, and the durability
// model used by the incident simulator. Scenarios are loaded from YAML,
// validated once, and treated as immutable afterwards.
//
// An Agreement assigns values to the scenario's parameters. It is checked
// against the parameter schema with ValidateAgreement before any evaluator
// sees it.
//
// # Thread Safety
//
// A validated Scenario is read-only and safe for concurrent use.
package scenario

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/pkg/validation"
)

// WeightTolerance is the allowed deviation of a weight sum from 1.
const WeightTolerance = 1e-6

// DefaultLossAversion applies when a party omits loss_aversion.
const DefaultLossAversion = 2.25

// Party is a negotiating party and its acceptance constants.
type Party struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	BATNA        float64 `json:"batna" yaml:"batna"`
	RiskAttitude float64 `json:"risk_attitude" yaml:"risk_attitude"`
	LossAversion float64 `json:"loss_aversion,omitempty" yaml:"loss_aversion,omitempty"`
}

// Parameter is one negotiable value within an issue.
type Parameter struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Domain      Domain `json:"domain" yaml:"domain"`
}

// Issue groups related parameters.
type Issue struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
}

// Preference holds one party's weights and value functions.
//
// ValueFunctions is keyed by the qualified name "issue.parameter".
type Preference struct {
	IssueWeights     map[string]float64            `json:"issue_weights" yaml:"issue_weights"`
	ParameterWeights map[string]map[string]float64 `json:"parameter_weights" yaml:"parameter_weights"`
	ValueFunctions   map[string]Curve              `json:"value_functions" yaml:"value_functions"`
}

// StrategicAction is a catalogued move a party can make during the
// negotiation. Self deltas apply to the acting party; Counterparts deltas
// apply to every other party.
type StrategicAction struct {
	Description  string             `json:"description,omitempty" yaml:"description,omitempty"`
	Self         map[string]float64 `json:"self,omitempty" yaml:"self,omitempty"`
	Counterparts map[string]float64 `json:"counterparts,omitempty" yaml:"counterparts,omitempty"`
}

// Scenario is a complete negotiation description.
//
// # Description
//
// Construct by decoding YAML (see Parse) or by filling the exported fields
// and calling Validate. Accessors and evaluators require a validated
// scenario; Validate fills defaults and builds lookup indices.
//
// # Thread Safety
//
// Not safe to mutate concurrently with Validate. After Validate returns nil
// the scenario must not be modified.
type Scenario struct {
	ID               string                     `json:"id" yaml:"id"`
	Name             string                     `json:"name" yaml:"name"`
	Description      string                     `json:"description,omitempty" yaml:"description,omitempty"`
	Parties          []Party                    `json:"parties" yaml:"parties"`
	Issues           []Issue                    `json:"issues" yaml:"issues"`
	Preferences      map[string]Preference      `json:"preferences" yaml:"preferences"`
	Durability       DurabilityConfig           `json:"durability" yaml:"durability"`
	StrategicActions map[string]StrategicAction `json:"strategic_actions,omitempty" yaml:"strategic_actions,omitempty"`

	validated bool
	parties   map[string]int
	issues    map[string]int
	params    map[string]map[string]int
}

// QualifiedName joins an issue and parameter ID as used in value function
// and factor keys.
func QualifiedName(issue, param string) string {
	return issue + "." + param
}

// Validated reports whether Validate has succeeded on s.
func (s *Scenario) Validated() bool {
	return s != nil && s.validated
}

// PartyIDs returns party IDs in declaration order.
func (s *Scenario) PartyIDs() []string {
	out := make([]string, len(s.Parties))
	for i, p := range s.Parties {
		out[i] = p.ID
	}
	return out
}

// Party looks up a party by ID.
func (s *Scenario) Party(id string) (Party, error) {
	i, ok := s.parties[id]
	if !ok {
		return Party{}, fmt.Errorf("%w: %q not in scenario %q", ErrUnknownParty, id, s.ID)
	}
	return s.Parties[i], nil
}

// Issue looks up an issue by ID.
func (s *Scenario) Issue(id string) (Issue, bool) {
	i, ok := s.issues[id]
	if !ok {
		return Issue{}, false
	}
	return s.Issues[i], true
}

// Parameter looks up a parameter by issue and parameter ID.
func (s *Scenario) Parameter(issue, param string) (Parameter, bool) {
	ii, ok := s.issues[issue]
	if !ok {
		return Parameter{}, false
	}
	pi, ok := s.params[issue][param]
	if !ok {
		return Parameter{}, false
	}
	return s.Issues[ii].Parameters[pi], true
}

// Preference returns a party's preferences.
func (s *Scenario) Preference(party string) (Preference, error) {
	if _, err := s.Party(party); err != nil {
		return Preference{}, err
	}
	return s.Preferences[party], nil
}

// Action looks up a catalogued strategic action.
func (s *Scenario) Action(id string) (StrategicAction, bool) {
	a, ok := s.StrategicActions[id]
	return a, ok
}

// ActionIDs returns the catalogued action IDs, sorted.
func (s *Scenario) ActionIDs() []string {
	ids := make([]string, 0, len(s.StrategicActions))
	for id := range s.StrategicActions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate fills defaults, checks every load-time invariant and builds the
// lookup indices.
//
// # Description
//
// Checks, in order: identity fields, parties, the issue/parameter schema,
// per-party preferences (weight sums, value function coverage) and the
// durability and strategic action configuration.
//
// # Outputs
//
//   - error: ErrInvalidScenario wrapping the first violation found.
func (s *Scenario) Validate() error {
	s.validated = false
	if err := s.validate(); err != nil {
		return fmt.Errorf("%w: scenario %q: %v", ErrInvalidScenario, s.ID, err)
	}
	s.validated = true
	return nil
}

func (s *Scenario) validate() error {
	if err := validation.ValidateIdentifier(s.ID); err != nil {
		return fmt.Errorf("id: %v", err)
	}
	if len(s.Parties) == 0 {
		return fmt.Errorf("at least one party is required")
	}
	if len(s.Issues) == 0 {
		return fmt.Errorf("at least one issue is required")
	}

	s.parties = make(map[string]int, len(s.Parties))
	for i := range s.Parties {
		p := &s.Parties[i]
		if err := validation.ValidateIdentifier(p.ID); err != nil {
			return fmt.Errorf("party %d: %v", i, err)
		}
		if _, dup := s.parties[p.ID]; dup {
			return fmt.Errorf("duplicate party %q", p.ID)
		}
		s.parties[p.ID] = i
		if p.LossAversion == 0 {
			p.LossAversion = DefaultLossAversion
		}
		if err := p.validate(); err != nil {
			return fmt.Errorf("party %q: %v", p.ID, err)
		}
	}

	s.issues = make(map[string]int, len(s.Issues))
	s.params = make(map[string]map[string]int, len(s.Issues))
	for i, is := range s.Issues {
		if err := validation.ValidateIdentifier(is.ID); err != nil {
			return fmt.Errorf("issue %d: %v", i, err)
		}
		if _, dup := s.issues[is.ID]; dup {
			return fmt.Errorf("duplicate issue %q", is.ID)
		}
		if len(is.Parameters) == 0 {
			return fmt.Errorf("issue %q has no parameters", is.ID)
		}
		s.issues[is.ID] = i
		idx := make(map[string]int, len(is.Parameters))
		for j, p := range is.Parameters {
			if err := validation.ValidateIdentifier(p.ID); err != nil {
				return fmt.Errorf("issue %q parameter %d: %v", is.ID, j, err)
			}
			if _, dup := idx[p.ID]; dup {
				return fmt.Errorf("issue %q: duplicate parameter %q", is.ID, p.ID)
			}
			if err := p.Domain.validate(); err != nil {
				return fmt.Errorf("parameter %s: %v", QualifiedName(is.ID, p.ID), err)
			}
			idx[p.ID] = j
		}
		s.params[is.ID] = idx
	}

	for id := range s.Preferences {
		if _, ok := s.parties[id]; !ok {
			return fmt.Errorf("preferences for unknown party %q", id)
		}
	}
	for _, p := range s.Parties {
		pref, ok := s.Preferences[p.ID]
		if !ok {
			return fmt.Errorf("party %q has no preferences", p.ID)
		}
		if err := s.validatePreference(pref); err != nil {
			return fmt.Errorf("party %q: %v", p.ID, err)
		}
	}

	if err := s.Durability.validate(s); err != nil {
		return fmt.Errorf("durability: %v", err)
	}
	if err := validation.ValidateIdentifiers(s.ActionIDs()); err != nil {
		return fmt.Errorf("strategic actions: %v", err)
	}
	for _, id := range s.ActionIDs() {
		if err := s.StrategicActions[id].validate(); err != nil {
			return fmt.Errorf("strategic action %q: %v", id, err)
		}
	}
	return nil
}

func (p Party) validate() error {
	if !finite(p.BATNA) || p.BATNA < 0 || p.BATNA > 1 {
		return fmt.Errorf("batna %g outside [0, 1]", p.BATNA)
	}
	if !finite(p.RiskAttitude) || p.RiskAttitude <= 0 {
		return fmt.Errorf("risk_attitude %g must be positive", p.RiskAttitude)
	}
	if !finite(p.LossAversion) || p.LossAversion < 1 {
		return fmt.Errorf("loss_aversion %g must be >= 1", p.LossAversion)
	}
	return nil
}

func (s *Scenario) validatePreference(pref Preference) error {
	for id := range pref.IssueWeights {
		if _, ok := s.issues[id]; !ok {
			return fmt.Errorf("issue weight for unknown issue %q", id)
		}
	}
	issueWeights := make([]float64, 0, len(s.Issues))
	for _, is := range s.Issues {
		issueWeights = append(issueWeights, pref.IssueWeights[is.ID])
	}
	if err := checkWeights(issueWeights); err != nil {
		return fmt.Errorf("issue weights: %v", err)
	}

	for id := range pref.ParameterWeights {
		if _, ok := s.issues[id]; !ok {
			return fmt.Errorf("parameter weights for unknown issue %q", id)
		}
	}
	for _, is := range s.Issues {
		pw := pref.ParameterWeights[is.ID]
		for id := range pw {
			if _, ok := s.params[is.ID][id]; !ok {
				return fmt.Errorf("parameter weight for unknown parameter %s", QualifiedName(is.ID, id))
			}
		}
		weights := make([]float64, 0, len(is.Parameters))
		for _, p := range is.Parameters {
			weights = append(weights, pw[p.ID])
		}
		if err := checkWeights(weights); err != nil {
			return fmt.Errorf("parameter weights for issue %q: %v", is.ID, err)
		}
	}

	for key := range pref.ValueFunctions {
		issue, param, ok := strings.Cut(key, ".")
		if !ok {
			return fmt.Errorf("value function key %q is not issue.parameter", key)
		}
		if _, ok := s.Parameter(issue, param); !ok {
			return fmt.Errorf("value function for unknown parameter %q", key)
		}
	}
	for _, is := range s.Issues {
		for _, p := range is.Parameters {
			key := QualifiedName(is.ID, p.ID)
			fn, ok := pref.ValueFunctions[key]
			if !ok {
				return fmt.Errorf("missing value function for %s", key)
			}
			if err := fn.validate(p.Domain, unitInterval, false); err != nil {
				return fmt.Errorf("value function %s: %v", key, err)
			}
		}
	}
	return nil
}

// checkWeights requires non-negative finite weights summing to 1.
func checkWeights(ws []float64) error {
	sum := 0.0
	for _, w := range ws {
		if !finite(w) || w < 0 {
			return fmt.Errorf("weight %g must be finite and non-negative", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("weights sum to %g, want 1", sum)
	}
	return nil
}

func (a StrategicAction) validate() error {
	if len(a.Self) == 0 && len(a.Counterparts) == 0 {
		return fmt.Errorf("action has no effects")
	}
	if err := validateDeltas(a.Self); err != nil {
		return fmt.Errorf("self: %v", err)
	}
	if err := validateDeltas(a.Counterparts); err != nil {
		return fmt.Errorf("counterparts: %v", err)
	}
	return nil
}
