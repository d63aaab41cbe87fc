// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scenario

import (
	"fmt"
	"math"
	"sort"
)

// Agreement assigns values to scenario parameters: issue -> parameter -> value.
//
// Parameters may be omitted. Omitted parameters contribute nothing to
// utility and leave durability factors at their neutral multiplier.
type Agreement map[string]map[string]Value

// Get returns the value for issue.param and whether it is present.
func (a Agreement) Get(issue, param string) (Value, bool) {
	v, ok := a[issue][param]
	return v, ok
}

// Set stores a value, creating the issue map if needed.
func (a Agreement) Set(issue, param string, v Value) {
	if a[issue] == nil {
		a[issue] = make(map[string]Value)
	}
	a[issue][param] = v
}

// Clone returns a deep copy.
func (a Agreement) Clone() Agreement {
	out := make(Agreement, len(a))
	for issue, params := range a {
		cp := make(map[string]Value, len(params))
		for k, v := range params {
			cp[k] = v
		}
		out[issue] = cp
	}
	return out
}

// ValidateAgreement checks an agreement against the parameter schema.
//
// # Description
//
// Every issue and parameter key must exist in the scenario and every value
// must satisfy its parameter's domain. Keys are visited in sorted order so
// the reported violation is deterministic.
//
// # Outputs
//
//   - error: ErrUnknownParameter or ErrInvalidParameterValue (wrapped), or
//     ErrInvalidScenario if s was never validated.
func (s *Scenario) ValidateAgreement(a Agreement) error {
	if !s.Validated() {
		return fmt.Errorf("%w: scenario not validated", ErrInvalidScenario)
	}
	for _, issue := range sortedKeys(a) {
		if _, ok := s.issues[issue]; !ok {
			return fmt.Errorf("%w: issue %q", ErrUnknownParameter, issue)
		}
		params := a[issue]
		for _, param := range sortedKeys(params) {
			p, ok := s.Parameter(issue, param)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownParameter, QualifiedName(issue, param))
			}
			if err := p.Domain.Check(params[param]); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidParameterValue, QualifiedName(issue, param), err)
			}
		}
	}
	return nil
}

// MissingParameters lists the qualified names of schema parameters absent
// from a, in declaration order.
func (s *Scenario) MissingParameters(a Agreement) []string {
	var out []string
	for _, is := range s.Issues {
		for _, p := range is.Parameters {
			if _, ok := a.Get(is.ID, p.ID); !ok {
				out = append(out, QualifiedName(is.ID, p.ID))
			}
		}
	}
	return out
}

// MidpointAgreement builds an agreement with every numeric parameter at the
// center of its domain, enums at their first value and booleans false.
func (s *Scenario) MidpointAgreement() Agreement {
	a := make(Agreement, len(s.Issues))
	for _, is := range s.Issues {
		for _, p := range is.Parameters {
			switch p.Domain.Type {
			case DomainContinuous:
				a.Set(is.ID, p.ID, Number(p.Domain.Midpoint()))
			case DomainInteger:
				a.Set(is.ID, p.ID, Number(math.Floor(p.Domain.Midpoint())))
			case DomainEnum:
				a.Set(is.ID, p.ID, Label(p.Domain.Values[0]))
			case DomainBoolean:
				a.Set(is.ID, p.ID, Bool(false))
			}
		}
	}
	return a
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
