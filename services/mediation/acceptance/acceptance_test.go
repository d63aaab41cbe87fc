// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package acceptance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustedUtility(t *testing.T) {
	tests := []struct {
		name    string
		utility float64
		batna   float64
		lambda  float64
		want    float64
	}{
		{"above batna unchanged", 0.6, 0.3, 2.25, 0.6},
		{"at batna unchanged", 0.3, 0.3, 2.25, 0.3},
		{"shortfall amplified", 0.20, 0.25, 2.25, 0.1375},
		{"large shortfall goes negative", 0.0, 0.4, 3, -0.8},
		{"neutral loss aversion", 0.2, 0.25, 1, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AdjustedUtility(tt.utility, tt.batna, tt.lambda)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestProbability_CenteredAtHalf(t *testing.T) {
	p, err := Probability(0.5, 0.2, 8, 2.25)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)
}

func TestProbability_LossAversionLowersAcceptance(t *testing.T) {
	averse, err := Probability(0.20, 0.25, 8, 2.25)
	require.NoError(t, err)
	neutral, err := Probability(0.20, 0.25, 8, 1.0)
	require.NoError(t, err)

	assert.InDelta(t, 1/(1+math.Exp(-8*(0.1375-0.5))), averse, 1e-12)
	assert.Less(t, averse, neutral)
}

func TestProbability_MonotonicInUtility(t *testing.T) {
	for _, batna := range []float64{0, 0.25, 0.5, 0.9} {
		for _, risk := range []float64{0.5, 4, 8, 40} {
			for _, lambda := range []float64{1, 2.25, 5} {
				prev := -1.0
				for u := 0.0; u <= 1.0+1e-9; u += 0.01 {
					p, err := Probability(u, batna, risk, lambda)
					require.NoError(t, err)
					require.GreaterOrEqual(t, p, prev, "batna=%g risk=%g lambda=%g u=%g", batna, risk, lambda, u)
					require.GreaterOrEqual(t, p, 0.0)
					require.LessOrEqual(t, p, 1.0)
					prev = p
				}
			}
		}
	}
}

func TestProbability_ExtremeInputsStayFinite(t *testing.T) {
	p, err := Probability(0, 1, 1e6, 1e6)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(p))
	assert.GreaterOrEqual(t, p, 0.0)

	p, err = Probability(1, 0, 1e6, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)
}

func TestProbability_RejectsNonFinite(t *testing.T) {
	inputs := [][4]float64{
		{math.NaN(), 0.3, 8, 2.25},
		{0.5, math.Inf(1), 8, 2.25},
		{0.5, 0.3, math.Inf(-1), 2.25},
		{0.5, 0.3, 8, math.NaN()},
	}
	for _, in := range inputs {
		_, err := Probability(in[0], in[1], in[2], in[3])
		assert.ErrorIs(t, err, ErrInvalidInput, "%v", in)
	}
	_, err := AdjustedUtility(math.NaN(), 0.3, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
