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
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/AleutianAI/scholarbench/cmd/scholarbench/config"
	"github.com/AleutianAI/scholarbench/pkg/logging"
	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/telemetry"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
)

// answer is one scripted prompt response.
type answer struct {
	value string
	err   error
}

// scriptedPrompter replays answers in order and records every title it
// was asked.
type scriptedPrompter struct {
	answers []answer
	titles  []string
}

var errScriptExhausted = errors.New("prompt script exhausted")

func (p *scriptedPrompter) next(title string) (string, error) {
	p.titles = append(p.titles, title)
	if len(p.answers) == 0 {
		return "", errScriptExhausted
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a.value, a.err
}

func (p *scriptedPrompter) Select(title string, options []ux.PromptOption) (string, error) {
	if len(options) == 0 {
		return "", ux.ErrNoOptions
	}
	return p.next(title)
}

func (p *scriptedPrompter) Input(title, _ string, validate func(string) error) (string, error) {
	v, err := p.next(title)
	if err != nil {
		return "", err
	}
	if validate != nil {
		if err := validate(v); err != nil {
			return "", err
		}
	}
	return v, nil
}

func (p *scriptedPrompter) Confirm(title string) (bool, error) {
	v, err := p.next(title)
	return v == "yes", err
}

// captureUX redirects ux output in machine mode for the test.
func captureUX(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	prev := ux.GetPersonality()
	ux.SetPersonalityLevel(ux.PersonalityMachine)
	restore := ux.SetOutput(stdout, stderr)
	t.Cleanup(func() {
		restore()
		ux.SetPersonalityLevel(prev.Level)
	})
	return stdout, stderr
}

// newTestApp returns an app that skips setup: seeded dataset, small sweep,
// quiet logger and a no-op sink.
func newTestApp(t *testing.T, answers ...answer) (*app, *scriptedPrompter) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Dataset.Seed = 7
	cfg.Session.InitialSize = 20
	cfg.Benchmark.Sizes = []int{10, 40}
	cfg.Benchmark.SizeCaps = map[string]int{"selection": 30}
	cfg.Verify.Iterations = 5
	cfg.Verify.MaxSize = 20
	cfg.History.Dir = t.TempDir()

	p := &scriptedPrompter{answers: answers}
	a := newApp("test")
	a.cfg = &cfg
	a.logger = logging.New(logging.Config{Quiet: true, Writer: io.Discard})
	a.sink = telemetry.NewNoOpSink()
	a.prompter = p
	t.Cleanup(func() {
		if a.store != nil {
			_ = a.store.Close()
		}
		_ = a.logger.Close()
	})
	return a, p
}

// fixedGenerator returns the same records for every size that fits.
type fixedGenerator []record.Record

func (g fixedGenerator) Generate(n int) []record.Record {
	if n > len(g) {
		n = len(g)
	}
	return record.Clone(g[:n])
}

func fixture() fixedGenerator {
	return fixedGenerator{
		record.New(1003, "Carlos_3", 71.5),
		record.New(1000, "Ana_0", 88),
		record.New(1004, "Sofia_4", 95.25),
		record.New(1001, "Luis_1", 88),
		record.New(1002, "Maria_2", 64),
	}
}
