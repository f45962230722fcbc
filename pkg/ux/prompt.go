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
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ErrPromptAborted is returned when the user cancels a prompt (ctrl+c, esc).
var ErrPromptAborted = huh.ErrUserAborted

// ErrNoOptions is returned by Select when there is nothing to choose.
var ErrNoOptions = errors.New("prompt has no options")

// maxLabel is the widest option label shown before truncation.
const maxLabel = 60

// PromptOption is one entry of a selection prompt.
type PromptOption struct {
	// Label is what the user sees.
	Label string

	// Description is an optional second line.
	Description string

	// Value is returned when the option is chosen.
	Value string

	// Recommended preselects the option and marks it in the label.
	Recommended bool
}

// Prompter asks the user for input.
//
// The interactive menu depends on this interface rather than on huh
// directly so that tests can script the answers.
type Prompter interface {
	// Select shows options and returns the chosen Value.
	Select(title string, options []PromptOption) (string, error)

	// Input reads one line. validate may be nil.
	Input(title, placeholder string, validate func(string) error) (string, error)

	// Confirm asks a yes/no question.
	Confirm(title string) (bool, error)
}

// FormPrompter is the huh-backed Prompter.
type FormPrompter struct {
	// In is read for answers. Default: os.Stdin.
	In io.Reader

	// Out receives the rendered form. Default: Stderr().
	Out io.Writer

	// Accessible replaces the TUI with plain numbered prompts, which also
	// work when stdin is a pipe.
	Accessible bool
}

// NewFormPrompter returns a prompter on the process terminal. It falls
// back to accessible mode when the session is not interactive.
func NewFormPrompter() *FormPrompter {
	return &FormPrompter{
		In:         os.Stdin,
		Out:        Stderr(),
		Accessible: !IsInteractive(),
	}
}

func (p *FormPrompter) run(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(scholarTheme()).
		WithShowHelp(!p.Accessible).
		WithAccessible(p.Accessible)
	if p.In != nil {
		form = form.WithInput(p.In)
	}
	if p.Out != nil {
		form = form.WithOutput(p.Out)
	}
	return form.Run()
}

// Select implements Prompter.
func (p *FormPrompter) Select(title string, options []PromptOption) (string, error) {
	if len(options) == 0 {
		return "", ErrNoOptions
	}

	var value string
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		label := truncate(o.Label, maxLabel)
		if o.Recommended {
			label += " " + Styles.Highlight.Render("(recommended)")
			value = o.Value
		}
		if o.Description != "" && !p.Accessible {
			label += Styles.Muted.Render("  " + o.Description)
		}
		opts[i] = huh.NewOption(label, o.Value)
	}

	field := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&value)
	if err := p.run(field); err != nil {
		return "", err
	}
	return value, nil
}

// Input implements Prompter.
func (p *FormPrompter) Input(title, placeholder string, validate func(string) error) (string, error) {
	var value string
	field := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&value)
	if validate != nil {
		field = field.Validate(validate)
	}
	if err := p.run(field); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// Confirm implements Prompter.
func (p *FormPrompter) Confirm(title string) (bool, error) {
	var value bool
	field := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&value)
	if err := p.run(field); err != nil {
		return false, err
	}
	return value, nil
}

var _ Prompter = (*FormPrompter)(nil)

// PositiveInt is an Input validator accepting integers greater than zero.
func PositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a whole number")
	}
	if n <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

// Integer is an Input validator accepting any integer.
func Integer(s string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return errors.New("enter a whole number")
	}
	return nil
}

// scholarTheme applies the palette to huh's base theme.
func scholarTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(ColorInk)
	t.Focused.Title = t.Focused.Title.Foreground(ColorBlueLight).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorSlate)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorGold)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorGold)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorError)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)
	t.Focused.FocusedButton = t.Focused.FocusedButton.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(ColorBlue)

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	return t
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
