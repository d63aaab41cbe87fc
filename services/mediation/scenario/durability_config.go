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

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

// Severity distributions supported by the simulator.
const (
	DistributionGamma     = "gamma"
	DistributionWeibull   = "weibull"
	DistributionLogNormal = "lognormal"
)

// Defaults for the durability model.
const (
	DefaultSeverityShape         = 2.0
	DefaultSeverityScale         = 1.5
	DefaultSeverityMin           = 0.0
	DefaultSeverityMax           = 10.0
	DefaultHighSeverityThreshold = 7.0
	DefaultTrendMargin           = 0.5

	// MaxProbability caps the per-step incident probability.
	MaxProbability = 0.95
)

// Rule directions.
const (
	DirectionAbove = "above"
	DirectionBelow = "below"
)

// SeverityConfig describes the incident severity distribution.
//
// For gamma, Shape is alpha and Scale is 1/rate. For weibull, Shape is k and
// Scale is lambda. For lognormal, Scale is the median and Shape is sigma.
// Draws are clamped to [Min, Max].
type SeverityConfig struct {
	Distribution string  `json:"distribution" yaml:"distribution"`
	Shape        float64 `json:"shape" yaml:"shape"`
	Scale        float64 `json:"scale" yaml:"scale"`
	Min          float64 `json:"min" yaml:"min"`
	Max          float64 `json:"max" yaml:"max"`
}

// Factor scales the incident rate or severity by the value of one agreement
// parameter.
//
// Three forms are supported:
//   - step: Below when value < Threshold, Above otherwise (numeric parameters)
//   - points: piecewise-linear multiplier curve (numeric parameters)
//   - table: multiplier per label or "true"/"false" (enum and boolean parameters)
//
// A factor whose parameter is absent from the agreement contributes 1.
type Factor struct {
	Issue     string             `json:"issue" yaml:"issue"`
	Parameter string             `json:"parameter" yaml:"parameter"`
	Threshold float64            `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Below     float64            `json:"below,omitempty" yaml:"below,omitempty"`
	Above     float64            `json:"above,omitempty" yaml:"above,omitempty"`
	Points    [][]float64        `json:"points,omitempty" yaml:"points,omitempty"`
	Table     map[string]float64 `json:"table,omitempty" yaml:"table,omitempty"`
}

// Name returns the factor's qualified parameter name.
func (f Factor) Name() string { return QualifiedName(f.Issue, f.Parameter) }

func (f Factor) curve() (Curve, bool) {
	if len(f.Points) == 0 && len(f.Table) == 0 {
		return Curve{}, false
	}
	return Curve{Points: f.Points, Table: f.Table}, true
}

// Multiplier evaluates the factor against an agreement.
//
// The agreement must have passed ValidateAgreement.
func (f Factor) Multiplier(a Agreement) float64 {
	v, ok := a.Get(f.Issue, f.Parameter)
	if !ok {
		return 1
	}
	if c, ok := f.curve(); ok {
		m, err := c.Eval(v)
		if err != nil {
			return 1
		}
		return m
	}
	x, ok := v.Float()
	if !ok {
		return 1
	}
	if x < f.Threshold {
		return f.Below
	}
	return f.Above
}

func (f Factor) validate(s *Scenario) error {
	p, ok := s.Parameter(f.Issue, f.Parameter)
	if !ok {
		return fmt.Errorf("unknown parameter %s", f.Name())
	}
	if c, ok := f.curve(); ok {
		if f.Below != 0 || f.Above != 0 {
			return fmt.Errorf("%s: use either below/above or a curve, not both", f.Name())
		}
		if err := c.validate(p.Domain, positive, true); err != nil {
			return fmt.Errorf("%s: %v", f.Name(), err)
		}
		return nil
	}
	if !p.Domain.Numeric() {
		return fmt.Errorf("%s: step factor needs a numeric parameter, use a table", f.Name())
	}
	if !finite(f.Threshold) {
		return fmt.Errorf("%s: threshold must be finite", f.Name())
	}
	if err := positive(f.Below); err != nil {
		return fmt.Errorf("%s: below: %v", f.Name(), err)
	}
	if err := positive(f.Above); err != nil {
		return fmt.Errorf("%s: above: %v", f.Name(), err)
	}
	return nil
}

// StrategicRule multiplies a party's risk when one of its strategic metrics
// is strictly above or below a threshold.
type StrategicRule struct {
	Metric     string  `json:"metric" yaml:"metric"`
	Direction  string  `json:"direction" yaml:"direction"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// Triggered reports whether the rule fires for st.
func (r StrategicRule) Triggered(st strategic.State) bool {
	v := st.Value(strategic.Metric(r.Metric))
	if r.Direction == DirectionAbove {
		return v > r.Threshold
	}
	return v < r.Threshold
}

func (r StrategicRule) validate() error {
	if _, err := strategic.ParseMetric(r.Metric); err != nil {
		return err
	}
	if r.Direction != DirectionAbove && r.Direction != DirectionBelow {
		return fmt.Errorf("direction %q must be %q or %q", r.Direction, DirectionAbove, DirectionBelow)
	}
	if !finite(r.Threshold) || r.Threshold < strategic.MinValue || r.Threshold > strategic.MaxValue {
		return fmt.Errorf("threshold %g outside [0, 100]", r.Threshold)
	}
	return positive(r.Multiplier)
}

// DefaultStrategicRules are used when a scenario does not declare its own.
func DefaultStrategicRules() []StrategicRule {
	return []StrategicRule{
		{Metric: string(strategic.MetricLegitimacy), Direction: DirectionAbove, Threshold: 70, Multiplier: 0.8},
		{Metric: string(strategic.MetricLegitimacy), Direction: DirectionBelow, Threshold: 30, Multiplier: 1.2},
		{Metric: string(strategic.MetricDomesticSupport), Direction: DirectionBelow, Threshold: 30, Multiplier: 1.3},
		{Metric: string(strategic.MetricDomesticSupport), Direction: DirectionAbove, Threshold: 70, Multiplier: 0.9},
		{Metric: string(strategic.MetricCredibility), Direction: DirectionBelow, Threshold: 30, Multiplier: 1.25},
		{Metric: string(strategic.MetricDiplomaticCapital), Direction: DirectionAbove, Threshold: 70, Multiplier: 0.85},
	}
}

// ContagionConfig raises the incident probability after a high-severity
// incident. The heat term starts at 1 and is multiplied by (1 - Decay) each
// step; the probability is scaled by 1 + Boost*heat. Boost 0 disables it.
type ContagionConfig struct {
	Boost float64 `json:"boost" yaml:"boost"`
	Decay float64 `json:"decay" yaml:"decay"`
}

// DurabilityConfig parameterizes the incident simulator for a scenario.
type DurabilityConfig struct {
	BaseRate              float64         `json:"base_rate" yaml:"base_rate"`
	Severity              SeverityConfig  `json:"severity" yaml:"severity"`
	HighSeverityThreshold float64         `json:"high_severity_threshold" yaml:"high_severity_threshold"`
	TrendMargin           float64         `json:"trend_margin" yaml:"trend_margin"`
	RateFactors           []Factor        `json:"rate_factors,omitempty" yaml:"rate_factors,omitempty"`
	SeverityFactors       []Factor        `json:"severity_factors,omitempty" yaml:"severity_factors,omitempty"`
	StrategicRules        []StrategicRule `json:"strategic_rules" yaml:"strategic_rules"`
	Contagion             ContagionConfig `json:"contagion" yaml:"contagion"`
}

func (d *DurabilityConfig) applyDefaults() {
	if d.Severity.Distribution == "" {
		d.Severity.Distribution = DistributionGamma
		if d.Severity.Shape == 0 {
			d.Severity.Shape = DefaultSeverityShape
		}
		if d.Severity.Scale == 0 {
			d.Severity.Scale = DefaultSeverityScale
		}
	}
	if d.Severity.Min == 0 && d.Severity.Max == 0 {
		d.Severity.Min = DefaultSeverityMin
		d.Severity.Max = DefaultSeverityMax
	}
	if d.HighSeverityThreshold == 0 {
		d.HighSeverityThreshold = DefaultHighSeverityThreshold
	}
	if d.TrendMargin == 0 {
		d.TrendMargin = DefaultTrendMargin
	}
	if d.StrategicRules == nil {
		d.StrategicRules = DefaultStrategicRules()
	}
}

func (d *DurabilityConfig) validate(s *Scenario) error {
	d.applyDefaults()

	if !finite(d.BaseRate) || d.BaseRate < 0 || d.BaseRate > 1 {
		return fmt.Errorf("base_rate %g outside [0, 1]", d.BaseRate)
	}
	sev := d.Severity
	switch sev.Distribution {
	case DistributionGamma, DistributionWeibull, DistributionLogNormal:
	default:
		return fmt.Errorf("unknown severity distribution %q", sev.Distribution)
	}
	if !finite(sev.Shape) || sev.Shape <= 0 || !finite(sev.Scale) || sev.Scale <= 0 {
		return fmt.Errorf("severity shape and scale must be positive")
	}
	if !finite(sev.Min) || !finite(sev.Max) || sev.Min < 0 || sev.Min >= sev.Max {
		return fmt.Errorf("severity bounds [%g, %g] invalid", sev.Min, sev.Max)
	}
	if !finite(d.HighSeverityThreshold) || d.HighSeverityThreshold < sev.Min || d.HighSeverityThreshold > sev.Max {
		return fmt.Errorf("high_severity_threshold %g outside severity bounds", d.HighSeverityThreshold)
	}
	if !finite(d.TrendMargin) || d.TrendMargin < 0 {
		return fmt.Errorf("trend_margin %g must be non-negative", d.TrendMargin)
	}
	for i, f := range d.RateFactors {
		if err := f.validate(s); err != nil {
			return fmt.Errorf("rate factor %d: %v", i, err)
		}
	}
	for i, f := range d.SeverityFactors {
		if err := f.validate(s); err != nil {
			return fmt.Errorf("severity factor %d: %v", i, err)
		}
	}
	for i, r := range d.StrategicRules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("strategic rule %d: %v", i, err)
		}
	}
	if !finite(d.Contagion.Boost) || d.Contagion.Boost < 0 {
		return fmt.Errorf("contagion boost %g must be non-negative", d.Contagion.Boost)
	}
	if !finite(d.Contagion.Decay) || d.Contagion.Decay < 0 || d.Contagion.Decay > 1 {
		return fmt.Errorf("contagion decay %g outside [0, 1]", d.Contagion.Decay)
	}
	return nil
}

// validateDeltas checks metric names and rejects non-finite deltas.
func validateDeltas(deltas map[string]float64) error {
	if err := strategic.ValidateDeltas(deltas); err != nil {
		return err
	}
	for name, d := range deltas {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("delta for %s must be finite", name)
		}
	}
	return nil
}
