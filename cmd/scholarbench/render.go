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
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/eval"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/benchmark"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
)

// notApplicable is printed for skipped measurements.
const notApplicable = "N/A"

var recordHeaders = []string{"ID", "Name", "Score"}

// recordRows formats records for ux.Table.
func recordRows(rs []record.Record) [][]string {
	rows := make([][]string, len(rs))
	for i, r := range rs {
		rows[i] = []string{strconv.Itoa(r.ID), r.Name, fmt.Sprintf("%.2f", r.Score)}
	}
	return rows
}

// millis renders a duration as milliseconds with enough precision for
// sub-microsecond searches.
func millis(d time.Duration) string {
	return fmt.Sprintf("%.4f ms", float64(d)/float64(time.Millisecond))
}

// sampleCell renders one sweep cell.
func sampleCell(s benchmark.Sample, ok bool) string {
	if !ok || !s.Applicable() {
		return notApplicable
	}
	return millis(s.Elapsed)
}

// searchRows formats search outcomes: method, time, steps, result.
func searchRows(outcomes []SearchOutcome) [][]string {
	rows := make([][]string, len(outcomes))
	for i, o := range outcomes {
		found := "not found"
		if o.Result.Found {
			found = o.Result.Record.String()
		}
		rows[i] = []string{o.Method, millis(o.Elapsed), strconv.Itoa(o.Result.Steps), found}
	}
	return rows
}

var searchHeaders = []string{"Method", "Time", "Steps", "Result"}

// sweepTable returns the timing table: one row per size, one column per
// algorithm in sweep order. Skipped samples print N/A.
func sweepTable(r *benchmark.SweepResult) ([]string, [][]string) {
	headers := append([]string{"Size"}, r.Order...)
	rows := make([][]string, 0, len(r.Sizes))
	for _, row := range r.Rows() {
		line := []string{strconv.Itoa(row.Size)}
		for _, name := range r.Order {
			s, ok := row.Samples[name]
			line = append(line, sampleCell(s, ok))
		}
		rows = append(rows, line)
	}
	return headers, rows
}

// memoryTable returns bytes allocated per size and algorithm, or nil rows
// when no sample recorded memory.
func memoryTable(r *benchmark.SweepResult) ([]string, [][]string) {
	headers := append([]string{"Size"}, r.Order...)
	recorded := false
	rows := make([][]string, 0, len(r.Sizes))
	for _, row := range r.Rows() {
		line := []string{strconv.Itoa(row.Size)}
		for _, name := range r.Order {
			s, ok := row.Samples[name]
			if !ok || !s.Applicable() {
				line = append(line, notApplicable)
				continue
			}
			if s.AllocBytes > 0 {
				recorded = true
			}
			line = append(line, humanize.IBytes(s.AllocBytes))
		}
		rows = append(rows, line)
	}
	if !recorded {
		return headers, nil
	}
	return headers, rows
}

// sweepCharts builds one chart per algorithm kind present in the result:
// sort times and search times. Skipped points are NaN so the chart prints
// them as missing.
func sweepCharts(r *benchmark.SweepResult) []ux.Chart {
	labels := make([]string, len(r.Sizes))
	for i, n := range r.Sizes {
		labels[i] = strconv.Itoa(n)
	}

	byKind := map[eval.Kind][]ux.ChartSeries{}
	for _, name := range r.Order {
		series := r.Series(name)
		if len(series) == 0 {
			continue
		}
		values := make([]float64, len(r.Sizes))
		for i := range values {
			values[i] = math.NaN()
			if i < len(series) && series[i].Applicable() {
				values[i] = float64(series[i].Elapsed) / float64(time.Millisecond)
			}
		}
		kind := series[0].Kind
		byKind[kind] = append(byKind[kind], ux.ChartSeries{Name: name, Values: values})
	}

	var charts []ux.Chart
	for _, k := range []struct {
		kind  eval.Kind
		title string
	}{
		{eval.KindSort, "Sort times"},
		{eval.KindSearch, "Search times"},
	} {
		if series := byKind[k.kind]; len(series) > 0 {
			charts = append(charts, ux.Chart{
				Title:  k.title,
				Labels: labels,
				Series: series,
				Unit:   "ms",
			})
		}
	}
	return charts
}

// verifyRows flattens verification results: algorithm, property, status,
// checks, error.
func verifyRows(results []*eval.VerifyResult) [][]string {
	var rows [][]string
	for _, res := range results {
		for _, p := range res.Properties {
			status := "pass"
			detail := ""
			if !p.Passed {
				status = "FAIL"
				if p.Error != nil {
					detail = p.Error.Error()
				}
			}
			rows = append(rows, []string{res.Algorithm, p.Name, status, strconv.Itoa(p.Iterations), detail})
		}
	}
	return rows
}

var verifyHeaders = []string{"Algorithm", "Property", "Status", "Checks", "Detail"}

// speedupPairs are the fast/slow algorithm pairs summarised under the sweep
// table.
var speedupPairs = [][2]string{{"merge", "selection"}, {"binary", "linear"}}

// speedupTips describes each pair's speedup at the largest size both
// algorithms were measured at.
func speedupTips(r *benchmark.SweepResult) []string {
	var tips []string
	for _, pair := range speedupPairs {
		ratios := r.Speedup(pair[0], pair[1])
		for i := len(ratios) - 1; i >= 0; i-- {
			if math.IsNaN(ratios[i]) {
				continue
			}
			tips = append(tips, fmt.Sprintf("%s was %.1fx faster than %s at %s records",
				pair[0], ratios[i], pair[1], humanize.Comma(int64(r.Sizes[i]))))
			break
		}
	}
	return tips
}
