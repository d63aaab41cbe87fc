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
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/durability"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/evaluation"
)

const barWidth = 20

// LabelStyle returns the style used for a durability label.
func LabelStyle(label durability.Label) lipgloss.Style {
	switch label {
	case durability.LabelIdeal:
		return Styles.Success.Bold(true)
	case durability.LabelAcceptable:
		return Styles.Subtitle.Bold(true)
	case durability.LabelConcerning:
		return Styles.Warning.Bold(true)
	case durability.LabelFailed:
		return Styles.Error.Bold(true)
	default:
		return Styles.Bold
	}
}

// RenderScenarios writes one line per scenario.
func RenderScenarios(w io.Writer, scenarios []mediation.ScenarioSummary) {
	if GetLevel() == LevelMachine {
		for _, s := range scenarios {
			fmt.Fprintf(w, "scenario=%s parties=%s issues=%s actions=%s\n",
				s.ID, strings.Join(s.Parties, ","), strings.Join(s.Issues, ","), strings.Join(s.Actions, ","))
		}
		return
	}
	Title(w, fmt.Sprintf("Scenarios (%d)", len(scenarios)))
	for _, s := range scenarios {
		name := s.ID
		if GetLevel() == LevelRich {
			name = Styles.Highlight.Render(s.ID)
		}
		fmt.Fprintf(w, "%s %s  %s\n", IconBullet, name, s.Name)
		fmt.Fprintf(w, "    parties: %s\n", strings.Join(s.Parties, ", "))
		fmt.Fprintf(w, "    issues:  %s\n", strings.Join(s.Issues, ", "))
		if len(s.Actions) > 0 {
			fmt.Fprintf(w, "    actions: %s\n", strings.Join(s.Actions, ", "))
		}
	}
}

// RenderEvaluation writes an evaluation record.
//
// Parties appear in scenario order. An undefined equity ratio prints as
// "undefined" rather than a number.
func RenderEvaluation(w io.Writer, m *evaluation.Metrics) {
	if m == nil {
		return
	}
	equity := "undefined"
	if m.EquityDefined && m.EquityRatio != nil {
		equity = fmt.Sprintf("%.4f", *m.EquityRatio)
	}

	if GetLevel() == LevelMachine {
		fmt.Fprintf(w, "scenario=%s\n", m.ScenarioID)
		for _, p := range m.Parties {
			fmt.Fprintf(w, "party=%s utility=%.4f gain=%.4f acceptance=%.4f\n",
				p, m.Utilities[p], m.Gains[p], m.AcceptanceProbabilities[p])
		}
		fmt.Fprintf(w, "overall_probability=%.4f zopa=%t nash_product=%.6f equity_ratio=%s\n",
			m.OverallProbability, m.ZOPAExists, m.NashProduct, equity)
		if len(m.Missing) > 0 {
			fmt.Fprintf(w, "missing=%s\n", strings.Join(m.Missing, ","))
		}
		return
	}

	nameWidth := 0
	for _, p := range m.Parties {
		nameWidth = max(nameWidth, len(p))
	}

	var b strings.Builder
	for _, p := range m.Parties {
		fmt.Fprintf(&b, "%-*s  utility %.3f  gain %+.3f  accept %s\n",
			nameWidth, p, m.Utilities[p], m.Gains[p], ProgressBar(m.AcceptanceProbabilities[p], barWidth))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Overall acceptance  %s\n", ProgressBar(m.OverallProbability, barWidth))
	fmt.Fprintf(&b, "ZOPA                %s\n", zopaText(m.ZOPAExists))
	fmt.Fprintf(&b, "Nash product        %.6f\n", m.NashProduct)
	fmt.Fprintf(&b, "Equity ratio        %s", equity)

	Box(w, "Evaluation: "+m.ScenarioID, b.String())
	if len(m.Missing) > 0 {
		WarningBox(w, "Missing parameters", strings.Join(m.Missing, ", "))
	}
}

func zopaText(exists bool) string {
	if exists {
		return string(IconSuccess) + " every party beats its BATNA"
	}
	return string(IconError) + " at least one party is below its BATNA"
}

// RenderSimulation writes a durability simulation response. When the
// response carries an aggregate, the per-run table follows the summary.
func RenderSimulation(w io.Writer, resp *mediation.SimulateResponse) {
	if resp == nil || resp.Result == nil {
		return
	}
	r := resp.Result

	if GetLevel() == LevelMachine {
		fmt.Fprintf(w, "scenario=%s seed=%d steps=%d runs=%d state_source=%s label=%s\n",
			resp.ScenarioID, resp.Seed, resp.Steps, resp.Runs, resp.StateSource, resp.Label)
		fmt.Fprintf(w, "incidents=%d high_severity=%d mean_severity=%.4f max_severity=%.4f trend=%s\n",
			r.IncidentCount, r.HighSeverityCount, r.MeanSeverity, r.MaxSeverity, r.Trend)
		fmt.Fprintf(w, "base_probability=%.6f strategic_modifier=%.4f step_probability=%.6f severity_multiplier=%.4f\n",
			r.BaseProbability, r.StrategicModifier, r.StepProbability, r.SeverityMultiplier)
		if agg := resp.Aggregate; agg != nil {
			fmt.Fprintf(w, "aggregate_mean_incidents=%.4f aggregate_stddev_incidents=%.4f aggregate_trend=%s\n",
				agg.MeanIncidents, agg.StdDevIncidents, agg.Trend)
			for i, run := range agg.PerRun {
				fmt.Fprintf(w, "run=%d seed=%d incidents=%d high_severity=%d label=%s\n",
					i, run.Seed, run.IncidentCount, run.HighSeverityCount, run.Label)
			}
		}
		return
	}

	label := string(resp.Label)
	if GetLevel() == LevelRich {
		label = LabelStyle(resp.Label).Render(strings.ToUpper(label))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Label               %s\n", label)
	fmt.Fprintf(&b, "Seed                %d\n", resp.Seed)
	fmt.Fprintf(&b, "Steps               %d\n", resp.Steps)
	fmt.Fprintf(&b, "State source        %s\n", resp.StateSource)
	fmt.Fprintf(&b, "Incidents           %d (%d high severity)\n", r.IncidentCount, r.HighSeverityCount)
	fmt.Fprintf(&b, "Severity            mean %.3f  max %.3f\n", r.MeanSeverity, r.MaxSeverity)
	fmt.Fprintf(&b, "Trend               %s (%.3f %s %.3f)\n", r.Trend, r.FirstHalfMean, IconArrow, r.SecondHalfMean)
	fmt.Fprintf(&b, "Step probability    %.5f (base %.5f x modifier %.3f)\n",
		r.StepProbability, r.BaseProbability, r.StrategicModifier)
	fmt.Fprintf(&b, "Severity multiplier %.3f", r.SeverityMultiplier)
	Box(w, "Durability: "+resp.ScenarioID, b.String())

	agg := resp.Aggregate
	if agg == nil {
		return
	}
	b.Reset()
	fmt.Fprintf(&b, "Runs                %d\n", agg.Runs)
	fmt.Fprintf(&b, "Incidents           mean %.2f  stddev %.2f\n", agg.MeanIncidents, agg.StdDevIncidents)
	fmt.Fprintf(&b, "High severity       mean %.2f\n", agg.MeanHighSeverity)
	fmt.Fprintf(&b, "Trend               %s\n", agg.Trend)
	fmt.Fprintf(&b, "Labels              %s\n\n", labelCounts(agg.LabelCounts))
	for i, run := range agg.PerRun {
		fmt.Fprintf(&b, "  #%-3d seed %-20d incidents %-4d high %-4d %s\n",
			i, run.Seed, run.IncidentCount, run.HighSeverityCount, run.Label)
	}
	Box(w, "Aggregate", strings.TrimRight(b.String(), "\n"))
}

func labelCounts(counts map[durability.Label]int) string {
	order := []durability.Label{
		durability.LabelIdeal,
		durability.LabelAcceptable,
		durability.LabelConcerning,
		durability.LabelFailed,
	}
	parts := make([]string, 0, len(order))
	for _, l := range order {
		if n := counts[l]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", l, n))
		}
	}
	return strings.Join(parts, " ")
}

// RenderIncident writes a single streamed incident.
func RenderIncident(w io.Writer, inc durability.Incident) {
	switch GetLevel() {
	case LevelMachine:
		fmt.Fprintf(w, "incident step=%d severity=%.4f high=%t\n", inc.Step, inc.Severity, inc.HighSeverity)
	default:
		icon := IconBullet
		sev := fmt.Sprintf("%.3f", inc.Severity)
		if inc.HighSeverity {
			icon = IconWarning
			if GetLevel() == LevelRich {
				sev = Styles.Danger.Render(sev)
			}
		}
		fmt.Fprintf(w, "%s step %-6d severity %s\n", icon, inc.Step, sev)
	}
}
