// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders mediation results for the terminal.
//
// Every helper writes to an explicit io.Writer and respects the current
// OutputLevel: LevelRich uses lipgloss colors and boxes, LevelPlain keeps
// icons and alignment, and LevelMachine prints key=value lines.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorDanger  = lipgloss.Color("#E67E22")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Danger    lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Danger:    lipgloss.NewStyle().Foreground(ColorDanger),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Title writes a styled title. Machine output omits it.
func Title(w io.Writer, text string) {
	switch GetLevel() {
	case LevelMachine:
		return
	case LevelPlain:
		fmt.Fprintln(w, text)
	default:
		fmt.Fprintln(w, Styles.Title.Render(text))
	}
}

// Success writes a success message with a checkmark.
func Success(w io.Writer, text string) {
	switch GetLevel() {
	case LevelMachine:
		fmt.Fprintf(w, "OK: %s\n", text)
	case LevelPlain:
		fmt.Fprintf(w, "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(w, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning writes a warning message.
func Warning(w io.Writer, text string) {
	switch GetLevel() {
	case LevelMachine:
		fmt.Fprintf(w, "WARN: %s\n", text)
	case LevelPlain:
		fmt.Fprintf(w, "%s %s\n", IconWarning, text)
	default:
		fmt.Fprintf(w, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error writes an error message.
func Error(w io.Writer, text string) {
	switch GetLevel() {
	case LevelMachine:
		fmt.Fprintf(w, "ERROR: %s\n", text)
	case LevelPlain:
		fmt.Fprintf(w, "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(w, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Box writes content in a rounded box under a title.
func Box(w io.Writer, title, content string) {
	if GetLevel() != LevelRich {
		fmt.Fprintf(w, "%s\n%s\n", title, content)
		return
	}
	fmt.Fprintln(w, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// WarningBox writes content in a warning-styled box.
func WarningBox(w io.Writer, title, content string) {
	if GetLevel() != LevelRich {
		fmt.Fprintf(w, "WARN %s: %s\n", title, content)
		return
	}
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Fprintln(w, Styles.WarningBox.Render(titleLine+"\n"+content))
}

// ProgressBar renders a bar for a fraction in [0, 1]. Values outside the
// range are clamped.
func ProgressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	if width < 0 {
		width = 0
	}
	if GetLevel() == LevelMachine {
		return fmt.Sprintf("%.0f%%", fraction*100)
	}
	filled := int(fraction*float64(width) + 0.5)
	empty := width - filled
	if GetLevel() == LevelPlain {
		return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat("-", empty), fraction*100)
	}
	bar := Styles.Success.Render(strings.Repeat("█", filled)) +
		Styles.Muted.Render(strings.Repeat("░", empty))
	return fmt.Sprintf("%s %3.0f%%", bar, fraction*100)
}
