// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_MachineModePrintsOnce(t *testing.T) {
	stdout, _ := capture(t, PersonalityMachine)

	spin := newSpinner("sweeping")
	spin.Start()
	spin.Start()
	spin.Stop()
	spin.Stop()

	assert.Equal(t, "PROGRESS: sweeping\n", stdout.String())
}

func TestProgressSpinner_AnimatesAndClears(t *testing.T) {
	stdout, _ := capture(t, PersonalityStandard)

	spin := NewProgressSpinner("sweeping", 2)
	spin.Start()
	time.Sleep(200 * time.Millisecond)
	spin.SetProgress(1, "n=500 done")
	time.Sleep(200 * time.Millisecond)
	spin.Stop()

	out := stdout.String()
	assert.Contains(t, out, "sweeping")
	assert.Contains(t, out, "sweeping [1/2] n=500 done")
	assert.True(t, strings.HasSuffix(out, "\r\033[K"), "line is cleared on stop")
}

func TestProgressSpinner_StopReportsOutcome(t *testing.T) {
	stdout, stderr := capture(t, PersonalityMachine)

	ok := NewProgressSpinner("generate", 1)
	ok.Start()
	ok.StopWithSuccess("generated")
	assert.Equal(t, "PROGRESS: generate\nOK: generated\n", stdout.String())

	failed := NewProgressSpinner("export", 1)
	failed.Start()
	failed.StopWithError("export: boom")
	assert.Contains(t, stderr.String(), "ERROR: export: boom")
}

func TestProgressSpinner_SetProgress(t *testing.T) {
	p := NewProgressSpinner("Benchmark", 5)
	p.SetProgress(2, "n=500")
	assert.Equal(t, "Benchmark [2/5] n=500", p.message)
	p.SetProgress(3, "")
	assert.Equal(t, "Benchmark [3/5]", p.message)
}
