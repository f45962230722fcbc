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
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/eval"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/benchmark"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
	"github.com/AleutianAI/scholarbench/services/scholar/searcher"
)

// sampleSweep has two sizes; selection is skipped at the second.
func sampleSweep() *benchmark.SweepResult {
	sorted := func(name string, size int, d time.Duration, bytes uint64) benchmark.Sample {
		return benchmark.Sample{Algorithm: name, Kind: eval.KindSort, Size: size, Elapsed: d, AllocBytes: bytes}
	}
	searched := func(name string, size int, d time.Duration, steps int) benchmark.Sample {
		return benchmark.Sample{Algorithm: name, Kind: eval.KindSearch, Size: size, Elapsed: d, Steps: steps, Found: true}
	}
	return &benchmark.SweepResult{
		RunID: "0123456789abcdef",
		Sizes: []int{100, 5000},
		Order: []string{"merge", "selection", "binary"},
		Samples: map[string][]benchmark.Sample{
			"merge": {
				sorted("merge", 100, 2*time.Millisecond, 4096),
				sorted("merge", 5000, 8*time.Millisecond, 1<<20),
			},
			"selection": {
				sorted("selection", 100, 5*time.Millisecond, 0),
				{Algorithm: "selection", Kind: eval.KindSort, Size: 5000, Elapsed: benchmark.NotApplicable, Skipped: true},
			},
			"binary": {
				searched("binary", 100, 500*time.Nanosecond, 7),
				searched("binary", 5000, time.Microsecond, 13),
			},
		},
	}
}

func TestMillis(t *testing.T) {
	assert.Equal(t, "1.5000 ms", millis(1500*time.Microsecond))
	assert.Equal(t, "0.0005 ms", millis(500*time.Nanosecond))
}

func TestRecordRows(t *testing.T) {
	rows := recordRows([]record.Record{record.New(1001, "Ana_1", 88.456)})
	assert.Equal(t, [][]string{{"1001", "Ana_1", "88.46"}}, rows)
}

func TestSearchRows(t *testing.T) {
	rows := searchRows([]SearchOutcome{
		{Method: "linear", Result: searcher.Result{Record: record.New(1002, "Luis_2", 70), Found: true, Steps: 3}},
		{Method: "binary", Result: searcher.NotFound(4)},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "3", rows[0][2])
	assert.Contains(t, rows[0][3], "ID: 1002")
	assert.Equal(t, []string{"binary", "0.0000 ms", "4", "not found"}, rows[1])
}

func TestSweepTable(t *testing.T) {
	headers, rows := sweepTable(sampleSweep())

	assert.Equal(t, []string{"Size", "merge", "selection", "binary"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"100", "2.0000 ms", "5.0000 ms", "0.0005 ms"}, rows[0])
	assert.Equal(t, notApplicable, rows[1][2])
}

func TestMemoryTable(t *testing.T) {
	headers, rows := memoryTable(sampleSweep())
	assert.Equal(t, "Size", headers[0])
	require.Len(t, rows, 2)
	assert.Equal(t, "4.0 KiB", rows[0][1])
	assert.Equal(t, "1.0 MiB", rows[1][1])
	assert.Equal(t, notApplicable, rows[1][2])
}

func TestMemoryTable_NothingRecorded(t *testing.T) {
	r := sampleSweep()
	for name, series := range r.Samples {
		for i := range series {
			series[i].AllocBytes = 0
		}
		r.Samples[name] = series
	}
	_, rows := memoryTable(r)
	assert.Nil(t, rows)
}

func TestSweepCharts(t *testing.T) {
	charts := sweepCharts(sampleSweep())
	require.Len(t, charts, 2)

	sorts, searches := charts[0], charts[1]
	assert.Equal(t, "Sort times", sorts.Title)
	assert.Equal(t, []string{"100", "5000"}, sorts.Labels)
	require.Len(t, sorts.Series, 2)
	assert.Equal(t, "merge", sorts.Series[0].Name)
	assert.InDelta(t, 8.0, sorts.Series[0].Values[1], 1e-9)
	assert.Equal(t, "selection", sorts.Series[1].Name)
	assert.True(t, math.IsNaN(sorts.Series[1].Values[1]), "skipped point is NaN")

	assert.Equal(t, "Search times", searches.Title)
	require.Len(t, searches.Series, 1)
	assert.Equal(t, "ms", searches.Unit)
}

func TestSpeedupTips(t *testing.T) {
	r := sampleSweep()
	assert.Equal(t, []string{"merge was 2.5x faster than selection at 100 records"}, speedupTips(r),
		"selection was skipped at 5000 and there is no linear series")

	r.Order = append(r.Order, "linear")
	r.Samples["linear"] = []benchmark.Sample{
		{Algorithm: "linear", Kind: eval.KindSearch, Size: 100, Elapsed: time.Microsecond, Found: true},
		{Algorithm: "linear", Kind: eval.KindSearch, Size: 5000, Elapsed: 40 * time.Microsecond, Found: true},
	}
	tips := speedupTips(r)
	require.Len(t, tips, 2)
	assert.Equal(t, "binary was 40.0x faster than linear at 5,000 records", tips[1])
}

func TestPrintSweep_ShowsSpeedupTip(t *testing.T) {
	stdout, _ := captureUX(t)

	printSweep(sampleSweep(), false)
	assert.NotContains(t, stdout.String(), "faster than", "machine mode hides tips")

	ux.SetPersonalityLevel(ux.PersonalityFull)
	printSweep(sampleSweep(), false)
	assert.Contains(t, stdout.String(), "merge was 2.5x faster than selection at 100 records")
}

func TestVerifyRows(t *testing.T) {
	rows := verifyRows([]*eval.VerifyResult{{
		Algorithm: "merge",
		Properties: []eval.PropertyResult{
			{Name: "permutation", Passed: true, Iterations: 10},
			{Name: "stability", Passed: false, Iterations: 3, Error: errors.New("ids 4 and 2 swapped")},
		},
	}})
	assert.Equal(t, [][]string{
		{"merge", "permutation", "pass", "10", ""},
		{"merge", "stability", "FAIL", "3", "ids 4 and 2 swapped"},
	}, rows)
}
