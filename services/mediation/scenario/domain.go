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
)

// DomainType names the kind of values a parameter accepts.
type DomainType string

const (
	DomainContinuous DomainType = "continuous"
	DomainInteger    DomainType = "integer"
	DomainEnum       DomainType = "enum"
	DomainBoolean    DomainType = "boolean"
)

// Domain declares the legal values of a parameter.
//
// Continuous and integer domains use Min/Max (inclusive). Enum domains use
// Values. Boolean domains take no extra fields.
type Domain struct {
	Type   DomainType `json:"type" yaml:"type"`
	Min    float64    `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64    `json:"max,omitempty" yaml:"max,omitempty"`
	Values []string   `json:"values,omitempty" yaml:"values,omitempty"`
}

// Numeric reports whether the domain holds numbers.
func (d Domain) Numeric() bool {
	return d.Type == DomainContinuous || d.Type == DomainInteger
}

// Midpoint returns the center of a numeric domain.
func (d Domain) Midpoint() float64 {
	return d.Min + (d.Max-d.Min)/2
}

// validate checks the domain declaration itself.
func (d Domain) validate() error {
	switch d.Type {
	case DomainContinuous, DomainInteger:
		if !finite(d.Min) || !finite(d.Max) {
			return fmt.Errorf("bounds must be finite")
		}
		if d.Min > d.Max {
			return fmt.Errorf("min %g exceeds max %g", d.Min, d.Max)
		}
		if d.Type == DomainInteger && (d.Min != math.Trunc(d.Min) || d.Max != math.Trunc(d.Max)) {
			return fmt.Errorf("integer bounds must be integral")
		}
		if len(d.Values) > 0 {
			return fmt.Errorf("%s domain cannot list values", d.Type)
		}
	case DomainEnum:
		if len(d.Values) == 0 {
			return fmt.Errorf("enum domain needs at least one value")
		}
		seen := make(map[string]struct{}, len(d.Values))
		for _, v := range d.Values {
			if _, dup := seen[v]; dup {
				return fmt.Errorf("duplicate enum value %q", v)
			}
			seen[v] = struct{}{}
		}
	case DomainBoolean:
		if len(d.Values) > 0 {
			return fmt.Errorf("boolean domain cannot list values")
		}
	default:
		return fmt.Errorf("unknown domain type %q", d.Type)
	}
	return nil
}

// Check reports whether v lies inside the domain.
//
// The returned error explains the violation and is wrapped by callers with
// ErrInvalidParameterValue.
func (d Domain) Check(v Value) error {
	switch d.Type {
	case DomainContinuous, DomainInteger:
		f, ok := v.Float()
		if !ok {
			return fmt.Errorf("expected number, got %s", v.Kind())
		}
		if !finite(f) {
			return fmt.Errorf("value %s is not finite", v)
		}
		if f < d.Min || f > d.Max {
			return fmt.Errorf("value %s outside [%g, %g]", v, d.Min, d.Max)
		}
		if d.Type == DomainInteger && f != math.Trunc(f) {
			return fmt.Errorf("value %s is not an integer", v)
		}
	case DomainEnum:
		s, ok := v.Text()
		if !ok {
			return fmt.Errorf("expected label, got %s", v.Kind())
		}
		for _, allowed := range d.Values {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("label %s not in %v", v, d.Values)
	case DomainBoolean:
		if _, ok := v.Flag(); !ok {
			return fmt.Errorf("expected bool, got %s", v.Kind())
		}
	default:
		return fmt.Errorf("unknown domain type %q", d.Type)
	}
	return nil
}

// labels returns the table keys a table-form curve must cover.
func (d Domain) labels() []string {
	if d.Type == DomainBoolean {
		return []string{"false", "true"}
	}
	return d.Values
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
