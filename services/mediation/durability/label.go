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

// Trend classifies how incident severity moves between the two halves of a run.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Label is the qualitative verdict on an agreement's durability.
type Label string

const (
	LabelIdeal      Label = "ideal"
	LabelAcceptable Label = "acceptable"
	LabelConcerning Label = "concerning"
	LabelFailed     Label = "failed"
)

// Scenario-independent cutoffs. Rates are incidents per 100 steps; ratios
// are high-severity incidents over all incidents.
const (
	FailedRate         = 20.0
	FailedHighRatio    = 0.5
	FailedMeanSeverity = 7.0

	ConcerningRate         = 10.0
	ConcerningHighRatio    = 0.25
	ConcerningMeanSeverity = 5.0

	AcceptableRate = 3.0
)

// Summary is the input to Classify. Counts are floats so multi-run means can
// be classified the same way as a single run.
type Summary struct {
	Steps             int
	IncidentCount     float64
	HighSeverityCount float64
	MeanSeverity      float64
	Trend             Trend
}

// Rate returns incidents per 100 steps.
func (s Summary) Rate() float64 {
	if s.Steps <= 0 {
		return 0
	}
	return s.IncidentCount / float64(s.Steps) * 100
}

// HighRatio returns the share of incidents that were high severity.
func (s Summary) HighRatio() float64 {
	if s.IncidentCount <= 0 {
		return 0
	}
	return s.HighSeverityCount / s.IncidentCount
}

// Classify maps simulation statistics to a Label.
//
// The first matching tier wins:
//   - failed: rate >= 20, high ratio >= 0.5 or mean severity >= 7
//   - concerning: rate >= 10, high ratio >= 0.25, mean severity >= 5 or an increasing trend
//   - acceptable: rate >= 3 or any high-severity incident
//   - ideal: otherwise
func Classify(s Summary) Label {
	rate, ratio := s.Rate(), s.HighRatio()
	switch {
	case rate >= FailedRate || ratio >= FailedHighRatio || s.MeanSeverity >= FailedMeanSeverity:
		return LabelFailed
	case rate >= ConcerningRate || ratio >= ConcerningHighRatio ||
		s.MeanSeverity >= ConcerningMeanSeverity || s.Trend == TrendIncreasing:
		return LabelConcerning
	case rate >= AcceptableRate || s.HighSeverityCount > 0:
		return LabelAcceptable
	default:
		return LabelIdeal
	}
}

// classifyTrend compares the half means against margin.
func classifyTrend(first, second, margin float64) Trend {
	switch d := second - first; {
	case d > margin:
		return TrendIncreasing
	case d < -margin:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
