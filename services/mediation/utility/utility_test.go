// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package utility

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
)

func loadScenario(t testing.TB, id string) *scenario.Scenario {
	t.Helper()
	r := scenario.NewRegistry(nil)
	require.NoError(t, r.LoadDefaults())
	s, err := r.Get(id)
	require.NoError(t, err)
	return s
}

func ceasefireAgreement() scenario.Agreement {
	a := scenario.Agreement{}
	a.Set("security", "buffer_km", scenario.Number(10))
	a.Set("security", "monitors", scenario.Number(250))
	a.Set("security", "verification", scenario.Label("joint"))
	a.Set("political", "power_share", scenario.Number(0.25))
	a.Set("political", "amnesty", scenario.Bool(true))
	return a
}

func TestCalculate_WeightedSum(t *testing.T) {
	s := loadScenario(t, "ceasefire")

	r, err := Calculate(s, "government", ceasefireAgreement())
	require.NoError(t, err)

	// security: 0.5*0.6 + 0.2*0.6 + 0.3*0.7 = 0.63
	// political: 0.7*0.6 + 0.3*0.2 = 0.48
	// total: 0.6*0.63 + 0.4*0.48 = 0.57
	assert.InDelta(t, 0.57, r.Utility, 1e-9)
	require.Len(t, r.Issues, 2)
	assert.Equal(t, "security", r.Issues[0].Issue)
	assert.InDelta(t, 0.63, r.Issues[0].Utility, 1e-9)
	assert.InDelta(t, 0.378, r.Issues[0].Contribution, 1e-9)
	assert.InDelta(t, 0.48, r.Issues[1].Utility, 1e-9)
	assert.Len(t, r.Issues[0].Parameters, 3)
	assert.Empty(t, r.Missing)
}

func TestCalculate_MissingParametersContributeZero(t *testing.T) {
	s := loadScenario(t, "ceasefire")
	a := ceasefireAgreement()
	delete(a["political"], "amnesty")
	delete(a, "security")

	r, err := Calculate(s, "government", a)
	require.NoError(t, err)

	// Only power_share remains: 0.4 * 0.7 * 0.6
	assert.InDelta(t, 0.168, r.Utility, 1e-9)
	assert.Equal(t, []string{
		"security.buffer_km", "security.monitors", "security.verification", "political.amnesty",
	}, r.Missing)
	assert.Equal(t, 0.0, r.Issues[0].Utility)

	empty, err := Utility(s, "coalition", scenario.Agreement{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty)
}

func TestCalculate_Errors(t *testing.T) {
	s := loadScenario(t, "ceasefire")

	_, err := Calculate(s, "rebels", ceasefireAgreement())
	assert.ErrorIs(t, err, scenario.ErrUnknownParty)

	bad := ceasefireAgreement()
	bad.Set("security", "buffer_km", scenario.Number(25))
	_, err = Calculate(s, "government", bad)
	assert.ErrorIs(t, err, scenario.ErrInvalidParameterValue)

	unknown := ceasefireAgreement()
	unknown.Set("security", "airspace", scenario.Bool(true))
	_, err = Calculate(s, "government", unknown)
	assert.ErrorIs(t, err, scenario.ErrUnknownParameter)

	_, err = Calculate(&scenario.Scenario{ID: "raw"}, "government", scenario.Agreement{})
	assert.ErrorIs(t, err, scenario.ErrInvalidScenario)
}

func TestCalculate_AlwaysInUnitInterval(t *testing.T) {
	s := loadScenario(t, "ceasefire")
	rng := rand.New(rand.NewPCG(1, 2))
	verification := []string{"none", "joint", "international"}

	for i := 0; i < 500; i++ {
		a := scenario.Agreement{}
		if rng.IntN(4) > 0 {
			a.Set("security", "buffer_km", scenario.Number(rng.Float64()*20))
		}
		if rng.IntN(4) > 0 {
			a.Set("security", "monitors", scenario.Number(float64(rng.IntN(501))))
		}
		if rng.IntN(4) > 0 {
			a.Set("security", "verification", scenario.Label(verification[rng.IntN(3)]))
		}
		if rng.IntN(4) > 0 {
			a.Set("political", "power_share", scenario.Number(rng.Float64()*0.5))
		}
		if rng.IntN(4) > 0 {
			a.Set("political", "amnesty", scenario.Bool(rng.IntN(2) == 1))
		}

		all, err := CalculateAll(s, a)
		require.NoError(t, err)
		for _, r := range all {
			assert.GreaterOrEqual(t, r.Utility, 0.0)
			assert.LessOrEqual(t, r.Utility, 1.0)
		}
	}
}

func TestCalculateAll_ScenarioOrder(t *testing.T) {
	s := loadScenario(t, "symmetric")
	all, err := CalculateAll(s, s.MidpointAgreement())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "upstream", all[0].Party)
	assert.Equal(t, "downstream", all[1].Party)
	assert.InDelta(t, all[0].Utility, all[1].Utility, 1e-12)
}

func BenchmarkCalculate(b *testing.B) {
	s := loadScenario(b, "ceasefire")
	a := ceasefireAgreement()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Calculate(s, "coalition", a)
	}
}
