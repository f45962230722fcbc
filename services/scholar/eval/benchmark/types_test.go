// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package benchmark

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/scholarbench/services/scholar/eval"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultSizes, cfg.Sizes)
	assert.Equal(t, 1, cfg.Repeats)
	assert.True(t, cfg.CollectMemory)

	assert.True(t, cfg.Applies("selection", 2500))
	assert.False(t, cfg.Applies("selection", 3000))
	assert.False(t, cfg.Applies("selection", 5000))
	assert.True(t, cfg.Applies("merge", 5000), "uncapped algorithms always apply")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no sizes", func(c *Config) { c.Sizes = nil }},
		{"zero size", func(c *Config) { c.Sizes = []int{10, 0} }},
		{"negative size", func(c *Config) { c.Sizes = []int{-5} }},
		{"zero cap", func(c *Config) { c.SizeCaps = map[string]int{"selection": 0} }},
		{"zero repeats", func(c *Config) { c.Repeats = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultConfig_IsACopy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sizes[0] = 1
	assert.Equal(t, 100, DefaultSizes[0])
}

func TestMedian(t *testing.T) {
	_, err := Median(nil)
	assert.ErrorIs(t, err, ErrNoSamples)

	m, err := Median([]time.Duration{5, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(3), m)

	m, err = Median([]time.Duration{4, 2, 8, 6})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(5), m)
}

func sampleResult() *SweepResult {
	r := newSweepResult("run", time.Now(), []string{"merge", "selection"})
	r.Sizes = []int{100, 5000}
	r.add(Sample{Algorithm: "merge", Kind: eval.KindSort, Size: 100, Elapsed: 10})
	r.add(Sample{Algorithm: "selection", Kind: eval.KindSort, Size: 100, Elapsed: 40})
	r.add(Sample{Algorithm: "merge", Kind: eval.KindSort, Size: 5000, Elapsed: 900})
	r.add(skippedSample("selection", eval.KindSort, 5000))
	return r
}

func TestSweepResult_Rows(t *testing.T) {
	rows := sampleResult().Rows()
	require.Len(t, rows, 2)

	assert.Equal(t, 100, rows[0].Size)
	assert.Equal(t, time.Duration(40), rows[0].Samples["selection"].Elapsed)

	assert.Equal(t, 5000, rows[1].Size)
	skipped := rows[1].Samples["selection"]
	assert.True(t, skipped.Skipped)
	assert.Equal(t, NotApplicable, skipped.Elapsed)
	assert.False(t, skipped.Applicable())
}

func TestSweepResult_Speedup(t *testing.T) {
	s := sampleResult().Speedup("merge", "selection")
	require.Len(t, s, 2)
	assert.InDelta(t, 4.0, s[0], 1e-9)
	assert.True(t, math.IsNaN(s[1]), "skipped samples have no speedup")

	missing := sampleResult().Speedup("merge", "nope")
	assert.True(t, math.IsNaN(missing[0]))
}

func TestSweepResult_Counts(t *testing.T) {
	measured, skipped := sampleResult().Counts()
	assert.Equal(t, 3, measured)
	assert.Equal(t, 1, skipped)
	assert.Len(t, sampleResult().Series("merge"), 2)
}
