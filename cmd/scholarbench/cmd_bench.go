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
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/benchmark"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/correctness"
)

// benchOptions are the flags of `scholarbench bench`.
type benchOptions struct {
	sizes     []int
	caps      map[string]int
	repeats   int
	memory    bool
	memorySet bool
	selfCheck bool
	charts    bool
	save      bool
	export    string
	output    string
}

// diagnosticsReport is the --json payload of a diagnostics run.
type diagnosticsReport struct {
	SelfCheck *correctness.SelfCheckReport `json:"self_check,omitempty"`
	Sweep     *benchmark.SweepResult       `json:"sweep"`
}

func newBenchCmd(a *app) *cobra.Command {
	opts := &benchOptions{}
	cmd := &cobra.Command{
		Use:     "bench",
		Aliases: []string{"diagnostics"},
		Short:   "Run the self-check and the benchmark sweep",
		Long: `bench first runs a quick correctness self-check on a 50-record dataset,
then times every algorithm at each sweep size. Selection sort is capped
(default: sizes of 3000 and up) and shows N/A beyond its cap.`,
		Example: `  scholarbench bench
  scholarbench bench --sizes 100,1000,10000 --cap selection=2000 --repeats 5
  scholarbench bench --export csv --output sweep.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.memorySet = cmd.Flags().Changed("memory")
			return runBench(cmd.Context(), a, opts)
		},
	}
	f := cmd.Flags()
	f.IntSliceVar(&opts.sizes, "sizes", nil, "Dataset sizes, comma separated (default: benchmark.sizes)")
	f.StringToIntVar(&opts.caps, "cap", nil, "Size caps as name=limit; a limit of 0 removes the cap")
	f.IntVar(&opts.repeats, "repeats", 0, "Measurements per cell; the median is kept (default: benchmark.repeats)")
	f.BoolVar(&opts.memory, "memory", true, "Track allocated bytes (default: benchmark.collect_memory)")
	f.BoolVar(&opts.selfCheck, "self-check", true, "Run the correctness self-check first")
	f.BoolVar(&opts.charts, "charts", true, "Draw the sort and search time charts")
	f.BoolVar(&opts.save, "save", true, "Save the finished sweep to the history (when history.enabled)")
	f.StringVar(&opts.export, "export", "", "Also export the sweep: csv or json")
	f.StringVarP(&opts.output, "output", "o", "", "Export destination (default: sweep_<run>.<format>, - for stdout)")
	return cmd
}

// runOptions turns the flags into runner options on top of the config.
func (o *benchOptions) runOptions() []benchmark.RunOption {
	var out []benchmark.RunOption
	if len(o.sizes) > 0 {
		out = append(out, benchmark.WithSizes(o.sizes...))
	}
	for name, limit := range o.caps {
		out = append(out, benchmark.WithSizeCap(name, limit))
	}
	if o.repeats > 0 {
		out = append(out, benchmark.WithRepeats(o.repeats))
	}
	if o.memorySet {
		out = append(out, benchmark.WithMemoryCollection(o.memory))
	}
	return out
}

func runBench(ctx context.Context, a *app, opts *benchOptions) error {
	start := time.Now()
	report, err := runDiagnostics(ctx, a, opts.selfCheck, opts.runOptions()...)
	if err == nil && opts.save {
		a.saveSweep(report.Sweep)
	}
	if a.opts.jsonOut {
		if jsonErr := writeJSON(ux.Stdout(), newResult("bench", start, report, err)); jsonErr != nil {
			return jsonErr
		}
		return err
	}
	if report.Sweep != nil {
		printSweep(report.Sweep, opts.charts)
	}
	if err != nil {
		return err
	}

	if opts.export != "" {
		path := opts.output
		if path == "" {
			path = defaultSweepPath(report.Sweep, opts.export)
		}
		if err := exportSweep(path, opts.export, ux.Stdout(), report.Sweep); err != nil {
			return err
		}
		if path != "-" {
			ux.Success(fmt.Sprintf("Exported sweep %s to %s", report.Sweep.RunID, path))
		}
	}
	return nil
}

// runDiagnostics is the diagnostics menu entry: the self-check, then the
// sweep. A failing self-check is reported but does not stop the sweep.
//
// The report is never nil; Sweep holds partial results on cancellation.
func runDiagnostics(ctx context.Context, a *app, selfCheck bool, extra ...benchmark.RunOption) (*diagnosticsReport, error) {
	report := &diagnosticsReport{}
	gen, err := a.generator()
	if err != nil {
		return report, err
	}

	if selfCheck {
		sc, err := correctness.SelfCheck(ctx, gen)
		report.SelfCheck = sc
		if !a.opts.jsonOut {
			printSelfCheck(sc)
		}
		if err != nil {
			a.logger.Warn("self-check failed", "error", err)
		}
	}

	var spin *ux.ProgressSpinner
	logEvery := rate.Sometimes{First: 1, Interval: time.Second}
	progress := benchmark.WithProgress(func(completed, total, size int) {
		if spin != nil {
			spin.SetProgress(completed, fmt.Sprintf("n=%d done", size))
		}
		logEvery.Do(func() {
			a.logger.Debug("sweep progress", "completed", completed, "total", total, "size", size)
		})
	})
	runner := a.runner(gen, append(slices.Clone(extra), progress)...)
	if !a.opts.jsonOut {
		spin = ux.NewProgressSpinner("Benchmarking", len(runner.Config().Sizes))
		spin.Start()
	}

	sweep, err := runner.Sweep(ctx)
	report.Sweep = sweep
	if spin != nil {
		if err != nil {
			spin.StopWithError(fmt.Sprintf("Sweep stopped: %v", err))
		} else {
			measured, skipped := sweep.Counts()
			spin.StopWithSuccess(fmt.Sprintf("Sweep finished: %d measurements, %d skipped", measured, skipped))
		}
	}
	return report, err
}

func printSelfCheck(sc *correctness.SelfCheckReport) {
	if sc == nil {
		return
	}
	ux.Title(fmt.Sprintf("Self-check (%d records, target ID %d)", sc.Size, sc.Target))
	passed := 0
	for _, c := range sc.Checks {
		ux.Check(c.Name, c.Passed, c.Detail)
		if c.Passed {
			passed++
		}
	}
	ux.Summary(passed, len(sc.Checks)-passed, len(sc.Checks))
}

func printSweep(r *benchmark.SweepResult, charts bool) {
	if len(r.Sizes) == 0 {
		return
	}
	ux.Title(fmt.Sprintf("Sweep %s (%s)", r.RunID, r.Duration.Round(time.Millisecond)))
	ux.PrintTable(sweepTable(r))
	for _, tip := range speedupTips(r) {
		ux.Tip(tip)
	}
	if headers, rows := memoryTable(r); rows != nil {
		ux.Title("Allocated memory")
		ux.PrintTable(headers, rows)
	}
	if !charts {
		return
	}
	for _, c := range sweepCharts(r) {
		ux.PrintChart(c)
	}
}
