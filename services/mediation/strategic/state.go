// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package strategic tracks each party's soft-power state during a negotiation.
//
// # Description
//
// Every party carries four metrics on a 0-100 scale: diplomatic capital,
// legitimacy, domestic support and credibility. They start at 50 (neutral)
// and only move through explicit ApplyEffect calls, which add signed deltas
// and saturate at the bounds. The durability simulator reads these metrics
// to scale incident risk; it never writes them.
//
// # Thread Safety
//
// Store serializes writes per party. Writes for different parties do not
// contend with each other.
package strategic

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for the strategic store.
var (
	// ErrUnknownMetric indicates a delta named a metric outside the four tracked ones.
	ErrUnknownMetric = errors.New("unknown strategic metric")

	// ErrUnknownParty indicates the party has no record in the store or scenario.
	ErrUnknownParty = errors.New("unknown party")
)

// Metric identifies one of the four soft-power metrics.
type Metric string

const (
	MetricDiplomaticCapital Metric = "diplomatic_capital"
	MetricLegitimacy        Metric = "legitimacy"
	MetricDomesticSupport   Metric = "domestic_support"
	MetricCredibility       Metric = "credibility"
)

// Bounds and neutral value shared by all metrics.
const (
	MinValue     = 0.0
	MaxValue     = 100.0
	NeutralValue = 50.0
)

// Metrics lists all tracked metrics in a stable order.
var Metrics = []Metric{
	MetricDiplomaticCapital,
	MetricLegitimacy,
	MetricDomesticSupport,
	MetricCredibility,
}

// ParseMetric resolves a metric name.
//
// # Outputs
//
//   - Metric: The metric.
//   - error: ErrUnknownMetric (wrapped) if the name is not tracked.
func ParseMetric(name string) (Metric, error) {
	switch m := Metric(name); m {
	case MetricDiplomaticCapital, MetricLegitimacy, MetricDomesticSupport, MetricCredibility:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// ValidateDeltas checks that every key of deltas names a tracked metric.
//
// Keys are checked in sorted order so the reported metric is deterministic.
func ValidateDeltas(deltas map[string]float64) error {
	names := make([]string, 0, len(deltas))
	for name := range deltas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := ParseMetric(name); err != nil {
			return err
		}
	}
	return nil
}

// State is one party's soft-power record.
type State struct {
	DiplomaticCapital float64 `json:"diplomatic_capital" yaml:"diplomatic_capital"`
	Legitimacy        float64 `json:"legitimacy" yaml:"legitimacy"`
	DomesticSupport   float64 `json:"domestic_support" yaml:"domestic_support"`
	Credibility       float64 `json:"credibility" yaml:"credibility"`
}

// DefaultState returns a record with every metric at the neutral value.
func DefaultState() State {
	return State{
		DiplomaticCapital: NeutralValue,
		Legitimacy:        NeutralValue,
		DomesticSupport:   NeutralValue,
		Credibility:       NeutralValue,
	}
}

// Value returns the value of metric m.
func (s State) Value(m Metric) float64 {
	switch m {
	case MetricDiplomaticCapital:
		return s.DiplomaticCapital
	case MetricLegitimacy:
		return s.Legitimacy
	case MetricDomesticSupport:
		return s.DomesticSupport
	case MetricCredibility:
		return s.Credibility
	default:
		return NeutralValue
	}
}

// with returns a copy of s with metric m set to v, clamped to [0,100].
func (s State) with(m Metric, v float64) State {
	v = clamp(v)
	switch m {
	case MetricDiplomaticCapital:
		s.DiplomaticCapital = v
	case MetricLegitimacy:
		s.Legitimacy = v
	case MetricDomesticSupport:
		s.DomesticSupport = v
	case MetricCredibility:
		s.Credibility = v
	}
	return s
}

// Clamped returns s with every metric forced into [0,100].
//
// Used when restoring externally supplied snapshots.
func (s State) Clamped() State {
	for _, m := range Metrics {
		s = s.with(m, s.Value(m))
	}
	return s
}

// clamp saturates v to [MinValue, MaxValue]. NaN saturates to the neutral value.
func clamp(v float64) float64 {
	switch {
	case v != v:
		return NeutralValue
	case v < MinValue:
		return MinValue
	case v > MaxValue:
		return MaxValue
	default:
		return v
	}
}
