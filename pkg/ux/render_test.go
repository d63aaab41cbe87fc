// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/durability"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/evaluation"
)

func sampleMetrics() *evaluation.Metrics {
	ratio := 0.8
	return &evaluation.Metrics{
		ScenarioID:              "ceasefire",
		Parties:                 []string{"government", "coalition"},
		Utilities:               map[string]float64{"government": 0.6, "coalition": 0.48},
		Gains:                   map[string]float64{"government": 0.2, "coalition": 0.08},
		AcceptanceProbabilities: map[string]float64{"government": 0.9, "coalition": 0.62},
		OverallProbability:      0.558,
		ZOPAExists:              true,
		NashProduct:             0.016,
		EquityRatio:             &ratio,
		EquityDefined:           true,
	}
}

func sampleSimulation(withAggregate bool) *mediation.SimulateResponse {
	res := &durability.Result{
		Steps:              100,
		Seed:               42,
		Incidents:          []durability.Incident{{Step: 3, Severity: 0.2}, {Step: 50, Severity: 0.9, HighSeverity: true}},
		IncidentCount:      2,
		HighSeverityCount:  1,
		MeanSeverity:       0.55,
		MaxSeverity:        0.9,
		Trend:              durability.TrendIncreasing,
		BaseProbability:    0.05,
		StrategicModifier:  1,
		StepProbability:    0.05,
		SeverityMultiplier: 1,
		Label:              durability.LabelAcceptable,
	}
	resp := &mediation.SimulateResponse{
		ScenarioID:  "ceasefire",
		Seed:        42,
		Steps:       100,
		Runs:        1,
		StateSource: mediation.StateSourceDefaults,
		Label:       res.Label,
		Result:      res,
	}
	if withAggregate {
		resp.Runs = 2
		resp.Label = durability.LabelConcerning
		resp.Aggregate = &durability.Aggregate{
			Runs:          2,
			Steps:         100,
			Seed:          42,
			MeanIncidents: 3,
			Trend:         durability.TrendStable,
			LabelCounts:   map[durability.Label]int{durability.LabelAcceptable: 1, durability.LabelConcerning: 1},
			Label:         durability.LabelConcerning,
			PerRun: []durability.RunSummary{
				{Seed: 42, IncidentCount: 2, HighSeverityCount: 1, Label: durability.LabelAcceptable},
				{Seed: 43, IncidentCount: 4, HighSeverityCount: 3, Label: durability.LabelConcerning},
			},
		}
	}
	return resp
}

func TestRenderEvaluation_Machine(t *testing.T) {
	withLevel(t, LevelMachine)
	m := sampleMetrics()
	m.Missing = []string{"security.monitors"}

	var buf bytes.Buffer
	RenderEvaluation(&buf, m)
	assert.Equal(t, "scenario=ceasefire\n"+
		"party=government utility=0.6000 gain=0.2000 acceptance=0.9000\n"+
		"party=coalition utility=0.4800 gain=0.0800 acceptance=0.6200\n"+
		"overall_probability=0.5580 zopa=true nash_product=0.016000 equity_ratio=0.8000\n"+
		"missing=security.monitors\n", buf.String())
}

func TestRenderEvaluation_UndefinedEquity(t *testing.T) {
	withLevel(t, LevelMachine)
	m := sampleMetrics()
	m.EquityRatio = nil
	m.EquityDefined = false

	var buf bytes.Buffer
	RenderEvaluation(&buf, m)
	assert.Contains(t, buf.String(), "equity_ratio=undefined")
}

func TestRenderEvaluation_Rich(t *testing.T) {
	withLevel(t, LevelRich)
	m := sampleMetrics()
	m.ZOPAExists = false
	m.Missing = []string{"political.amnesty"}

	var buf bytes.Buffer
	RenderEvaluation(&buf, m)
	out := buf.String()
	assert.Contains(t, out, "Evaluation: ceasefire")
	assert.Contains(t, out, "government")
	assert.Contains(t, out, "+0.080")
	assert.Contains(t, out, "below its BATNA")
	assert.Contains(t, out, "0.8000")
	assert.Contains(t, out, "political.amnesty")
}

func TestRenderEvaluation_Nil(t *testing.T) {
	var buf bytes.Buffer
	RenderEvaluation(&buf, nil)
	RenderSimulation(&buf, nil)
	RenderSimulation(&buf, &mediation.SimulateResponse{})
	assert.Empty(t, buf.String())
}

func TestRenderSimulation_Machine(t *testing.T) {
	withLevel(t, LevelMachine)
	var buf bytes.Buffer
	RenderSimulation(&buf, sampleSimulation(true))
	out := buf.String()
	assert.Contains(t, out, "scenario=ceasefire seed=42 steps=100 runs=2 state_source=defaults label=concerning\n")
	assert.Contains(t, out, "incidents=2 high_severity=1 mean_severity=0.5500 max_severity=0.9000 trend=increasing\n")
	assert.Contains(t, out, "run=1 seed=43 incidents=4 high_severity=3 label=concerning\n")
}

func TestRenderSimulation_Plain(t *testing.T) {
	withLevel(t, LevelPlain)
	var buf bytes.Buffer
	RenderSimulation(&buf, sampleSimulation(false))
	out := buf.String()
	assert.Contains(t, out, "Durability: ceasefire")
	assert.Contains(t, out, "acceptable")
	assert.Contains(t, out, "Incidents           2 (1 high severity)")
	assert.NotContains(t, out, "Aggregate")

	buf.Reset()
	RenderSimulation(&buf, sampleSimulation(true))
	out = buf.String()
	assert.Contains(t, out, "Aggregate")
	assert.Contains(t, out, "acceptable=1 concerning=1")
}

func TestRenderSimulation_RichUppercasesLabel(t *testing.T) {
	withLevel(t, LevelRich)
	var buf bytes.Buffer
	RenderSimulation(&buf, sampleSimulation(false))
	assert.Contains(t, buf.String(), "ACCEPTABLE")
}

func TestRenderScenarios(t *testing.T) {
	list := []mediation.ScenarioSummary{
		{ID: "ceasefire", Name: "Ceasefire", Parties: []string{"government", "coalition"}, Issues: []string{"security"}, Actions: []string{"walkout"}},
		{ID: "symmetric", Name: "Symmetric", Parties: []string{"upstream", "downstream"}, Issues: []string{"water"}},
	}

	withLevel(t, LevelMachine)
	var buf bytes.Buffer
	RenderScenarios(&buf, list)
	assert.Equal(t,
		"scenario=ceasefire parties=government,coalition issues=security actions=walkout\n"+
			"scenario=symmetric parties=upstream,downstream issues=water actions=\n",
		buf.String())

	withLevel(t, LevelPlain)
	buf.Reset()
	RenderScenarios(&buf, list)
	out := buf.String()
	assert.Contains(t, out, "Scenarios (2)")
	assert.Contains(t, out, "actions: walkout")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("actions:")))
}

func TestRenderIncident(t *testing.T) {
	withLevel(t, LevelMachine)
	var buf bytes.Buffer
	RenderIncident(&buf, durability.Incident{Step: 7, Severity: 0.75, HighSeverity: true})
	assert.Equal(t, "incident step=7 severity=0.7500 high=true\n", buf.String())

	withLevel(t, LevelPlain)
	buf.Reset()
	RenderIncident(&buf, durability.Incident{Step: 7, Severity: 0.25})
	assert.Contains(t, buf.String(), "step 7")
	assert.Contains(t, buf.String(), "0.250")
}

func TestLabelStyle_DistinctPerLabel(t *testing.T) {
	labels := []durability.Label{durability.LabelIdeal, durability.LabelAcceptable, durability.LabelConcerning, durability.LabelFailed}
	for _, l := range labels {
		assert.Contains(t, LabelStyle(l).Render(string(l)), string(l))
	}
}

func TestSpinner_NonRichPrintsOnce(t *testing.T) {
	withLevel(t, LevelMachine)
	var buf bytes.Buffer
	spin := NewSpinner(&buf, "simulating")
	spin.Start()
	spin.Start()
	spin.Stop()
	spin.Stop()
	assert.Equal(t, "PROGRESS: simulating\n", buf.String())
}

func TestSpinner_RichAnimatesAndClears(t *testing.T) {
	withLevel(t, LevelRich)
	var buf syncBuffer
	spin := NewSpinner(&buf, "simulating")
	spin.Start()
	spin.UpdateMessage("run 2")
	time.Sleep(3 * spinnerInterval)
	spin.Stop()
	out := buf.String()
	assert.Contains(t, out, "run 2")
	assert.Contains(t, out, "\r\033[K")
}

func TestWithSpinner(t *testing.T) {
	withLevel(t, LevelMachine)
	var buf bytes.Buffer
	assert.NoError(t, WithSpinner(&buf, "load", func() error { return nil }))
	assert.Equal(t, "PROGRESS: load\nOK: load\n", buf.String())

	buf.Reset()
	err := WithSpinner(&buf, "load", func() error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, buf.String(), "ERROR: load: ")
}
