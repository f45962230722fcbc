// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/AleutianAI/scholarbench/cmd/scholarbench/config"
	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/dataset"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// Menu entries, used as the prompt option values.
const (
	menuGenerate    = "generate"
	menuView        = "view"
	menuRank        = "rank"
	menuSearch      = "search"
	menuDiagnostics = "diagnostics"
	menuExit        = "exit"
)

var menuOptions = []ux.PromptOption{
	{Label: "Generate a new dataset", Value: menuGenerate},
	{Label: "View records", Value: menuView},
	{Label: "Rank by score", Value: menuRank, Recommended: true},
	{Label: "Search by ID", Value: menuSearch},
	{Label: "Diagnostics", Description: "self-check and benchmark sweep", Value: menuDiagnostics},
	{Label: "Exit", Value: menuExit},
}

// menu is one interactive session.
type menu struct {
	app     *app
	session *Session
	prompt  ux.Prompter
}

// runMenu opens the interactive menu on a fresh dataset of the configured
// initial size. It returns when the user exits or the context is done.
func runMenu(ctx context.Context, a *app) error {
	s, err := a.newSession(0)
	if err != nil {
		return err
	}
	m := &menu{app: a, session: s, prompt: a.prompt()}
	stop := m.watchConfig(ctx)
	defer stop()
	return m.loop(ctx)
}

// watchConfig reloads the config file in the background while the menu
// is open. Reloads are parked in app.pending and applied between actions.
// The returned func stops the watcher and waits for it.
func (m *menu) watchConfig(ctx context.Context) func() {
	a := m.app
	if !a.cfg.UI.WatchConfig || a.configPath == "" {
		return func() {}
	}
	w, err := config.NewWatcher(a.configPath, 0)
	if err != nil {
		a.logger.Warn("config watch disabled", "error", err)
		return func() {}
	}

	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(wctx,
			func(cfg *config.ScholarConfig) {
				a.pending.Store(cfg)
				a.logger.Debug("config change detected", "path", a.configPath)
			},
			func(err error) {
				a.logger.Warn("config reload failed", "error", err)
			},
		)
	}()
	return func() {
		cancel()
		<-done
	}
}

// applyReload swaps in a pending configuration. Session, dataset,
// benchmark, verify and ui settings take effect; logging, telemetry,
// history and server stay as they were at startup.
func (m *menu) applyReload() {
	next := m.app.pending.Swap(nil)
	if next == nil {
		return
	}
	prev := m.app.cfg
	next.Logging = prev.Logging
	next.Telemetry = prev.Telemetry
	next.History = prev.History
	next.Server = prev.Server

	m.app.cfg = next
	err := m.app.applyOverrides()
	if err == nil {
		var gen *dataset.Generator
		if gen, err = m.app.generator(); err == nil {
			m.session.SetGenerator(gen)
		}
	}
	if err != nil {
		m.app.cfg = prev
		ux.Warning(fmt.Sprintf("Configuration not reloaded: %v", err))
		m.app.logger.Warn("config reload rejected", "error", err)
		return
	}
	ux.Info("Configuration reloaded")
	m.app.logger.Info("configuration reloaded", "path", m.app.configPath)
}

func (m *menu) loop(ctx context.Context) error {
	ux.Title("scholarbench")
	ux.Muted(fmt.Sprintf("%d records generated", m.session.Len()))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.applyReload()
		choice, err := m.prompt.Select(fmt.Sprintf("Main menu (%d records)", m.session.Len()), menuOptions)
		if errors.Is(err, ux.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if choice == menuExit {
			ux.Muted("Goodbye.")
			return nil
		}

		err = m.handle(ctx, choice)
		switch {
		case err == nil, errors.Is(err, ux.ErrPromptAborted):
		case ctx.Err() != nil:
			return err
		default:
			// A failed action leaves the session as it was.
			ux.Error(err.Error())
			m.app.logger.Warn("menu action failed", "action", choice, "error", err)
		}
	}
}

func (m *menu) handle(ctx context.Context, choice string) error {
	switch choice {
	case menuGenerate:
		answer, err := m.prompt.Input("How many records?", strconv.Itoa(m.app.cfg.Session.InitialSize), ux.PositiveInt)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidSize, answer)
		}
		if err := m.session.Regenerate(n); err != nil {
			return err
		}
		ux.Success(fmt.Sprintf("Generated %d records", n))

	case menuView:
		shown, hidden := m.session.Preview(m.app.cfg.Session.PreviewRows)
		ux.PrintTable(recordHeaders, recordRows(shown))
		if hidden > 0 {
			ux.Muted(fmt.Sprintf("... %d more hidden", hidden))
		}

	case menuRank:
		printRank(m.session.Rank(sorter.Merge{}, m.app.cfg.Session.TopRows), m.session.Len())

	case menuSearch:
		answer, err := m.prompt.Input("Record ID", "", ux.Integer)
		if err != nil {
			return err
		}
		id, err := parseID(answer)
		if err != nil {
			return err
		}
		printSearch(id, m.session.Len(), m.session.Search(id))

	case menuDiagnostics:
		report, err := runDiagnostics(ctx, m.app, true)
		if report.Sweep != nil {
			printSweep(report.Sweep, true)
		}
		if err == nil {
			m.app.saveSweep(report.Sweep)
		}
		return err

	default:
		return fmt.Errorf("unknown menu entry %q", choice)
	}
	return nil
}
