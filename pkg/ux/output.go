// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the scholarbench CLI:
// colored status lines, boxes, tables and bar charts that degrade to plain
// text in machine mode.
package ux

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette: ink blues with a gold accent.
var (
	ColorInk       = lipgloss.Color("#1F3A5F")
	ColorBlue      = lipgloss.Color("#3D6FB6")
	ColorBlueLight = lipgloss.Color("#7AA5E0")
	ColorGold      = lipgloss.Color("#D9A441")
	ColorSlate     = lipgloss.Color("#5B6770")

	ColorSuccess = lipgloss.Color("#3FB27F")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#5B6770")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style

	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
	TableBorder lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorBlueLight),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorBlue),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorGold).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorInk).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),

	TableHeader: lipgloss.NewStyle().Bold(true).Foreground(ColorGold).Padding(0, 1),
	TableCell:   lipgloss.NewStyle().Padding(0, 1),
	TableBorder: lipgloss.NewStyle().Foreground(ColorInk),
}

// Icon provides status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
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
	default:
		return string(i)
	}
}

// -----------------------------------------------------------------------------
// Output destinations
// -----------------------------------------------------------------------------

var (
	outMu  sync.RWMutex
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects ux output and returns a function restoring the
// previous writers. Nil keeps the current writer.
//
// Example:
//
//	var buf bytes.Buffer
//	restore := ux.SetOutput(&buf, &buf)
//	defer restore()
func SetOutput(stdout, stderr io.Writer) (restore func()) {
	outMu.Lock()
	defer outMu.Unlock()
	prevOut, prevErr := out, errOut
	if stdout != nil {
		out = stdout
	}
	if stderr != nil {
		errOut = stderr
	}
	return func() {
		outMu.Lock()
		defer outMu.Unlock()
		out, errOut = prevOut, prevErr
	}
}

// Stdout returns the current output writer.
func Stdout() io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	return out
}

// Stderr returns the current error writer.
func Stderr() io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	return errOut
}

func printf(format string, args ...any) {
	fmt.Fprintf(Stdout(), format, args...)
}

func eprintf(format string, args ...any) {
	fmt.Fprintf(Stderr(), format, args...)
}

// -----------------------------------------------------------------------------
// Print helpers that respect personality level
// -----------------------------------------------------------------------------

// Title prints a styled title.
func Title(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	printf("%s\n", Styles.Title.Render(text))
}

// Success prints a success message with a checkmark.
func Success(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		printf("OK: %s\n", text)
	case PersonalityMinimal:
		printf("%s %s\n", IconSuccess.Render(), text)
	default:
		printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message.
func Warning(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		eprintf("WARN: %s\n", text)
	case PersonalityMinimal:
		printf("%s %s\n", IconWarning.Render(), text)
	default:
		printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message.
func Error(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		eprintf("ERROR: %s\n", text)
	case PersonalityMinimal:
		printf("%s %s\n", IconError.Render(), text)
	default:
		printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message.
func Info(text string) {
	if GetPersonality().Level == PersonalityMachine {
		printf("%s\n", text)
		return
	}
	printf("%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints secondary text. Suppressed in machine mode.
func Muted(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	printf("%s\n", Styles.Muted.Render(text))
}

// Tip prints a hint when tips are enabled.
func Tip(text string) {
	p := GetPersonality()
	if !p.ShowTips || p.Level == PersonalityMachine || p.Level == PersonalityMinimal {
		return
	}
	printf("%s %s\n", Styles.Highlight.Render("tip"), Styles.Muted.Render(text))
}

// Box prints text in a rounded box.
func Box(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		printf("%s: %s\n", title, content)
		return
	}
	printf("%s\n", Styles.Box.Width(60).Render(Styles.Title.Render(title)+"\n"+content))
}

// WarningBox prints text in a warning-styled box.
func WarningBox(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		eprintf("WARN %s: %s\n", title, content)
		return
	}
	titleLine := Styles.Warning.Bold(true).Render(title)
	printf("%s\n", Styles.WarningBox.Width(60).Render(titleLine+"\n"+content))
}

// Check prints one pass/fail line of a verification report.
func Check(name string, passed bool, detail string) {
	status := IconSuccess
	if !passed {
		status = IconError
	}
	switch GetPersonality().Level {
	case PersonalityMachine:
		result := "PASS"
		if !passed {
			result = "FAIL"
		}
		printf("%s\t%s\t%s\n", result, name, detail)
	case PersonalityMinimal:
		printf("%s %s\n", status.Render(), name)
	default:
		if detail != "" {
			printf("%s %s %s\n", status.Render(), name, Styles.Muted.Render("("+detail+")"))
		} else {
			printf("%s %s\n", status.Render(), name)
		}
	}
}

// Summary prints a passed/failed/total line.
func Summary(passed, failed, total int) {
	if GetPersonality().Level == PersonalityMachine {
		printf("SUMMARY: passed=%d failed=%d total=%d\n", passed, failed, total)
		return
	}
	printf("\n%s %s  %s %s  %s %s\n",
		Styles.Success.Render(fmt.Sprintf("%d", passed)), Styles.Muted.Render("passed"),
		Styles.Error.Render(fmt.Sprintf("%d", failed)), Styles.Muted.Render("failed"),
		Styles.Bold.Render(fmt.Sprintf("%d", total)), Styles.Muted.Render("total"),
	)
}
