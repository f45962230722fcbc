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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/scholarbench/pkg/ux"
)

// newRootCmd builds the command tree around a. Running the root without a
// subcommand opens the interactive menu.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "scholarbench",
		Short: "Rank and search academic records, and benchmark the algorithms that do it",
		Long: `scholarbench generates a synthetic set of student records and exposes
two sorting algorithms (selection, merge) and two search algorithms
(linear, binary) over it. The diagnostics sweep times every algorithm
across growing dataset sizes.

Run without a command for the interactive menu.`,
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd.Context(), a)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.configPath, "config", "",
		"Config file (default ~/.scholarbench/scholarbench.yaml, or $SCHOLARBENCH_CONFIG)")
	pf.StringVar(&a.opts.personality, "personality", "",
		"Output style: full, standard, minimal or machine")
	pf.StringVar(&a.opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&a.opts.traceExporter, "trace", "", "Trace exporter: none, stdout or otlp")
	pf.StringVar(&a.opts.metricExporter, "metrics", "", "OpenTelemetry metric exporter: none, stdout or prometheus")
	pf.StringVar(&a.opts.metricsFile, "metrics-file", "",
		"Write Prometheus metrics in textfile format to this path on exit")
	pf.StringVar(&a.opts.listenAddr, "listen", "", "Serve /metrics and the HTTP API on this address while running")
	pf.Uint64Var(&a.opts.seed, "seed", 0, "Dataset seed for reproducible runs (0 keeps the configured seed)")
	pf.BoolVar(&a.opts.jsonOut, "json", false, "Print results as a JSON envelope")

	root.AddCommand(
		newMenuCmd(a),
		newGenerateCmd(a),
		newSortCmd(a),
		newSearchCmd(a),
		newBenchCmd(a),
		newVerifyCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newAlgorithmsCmd(a),
		newConfigCmd(a),
	)
	return root
}

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Open the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd.Context(), a)
		},
	}
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string) int {
	return executeApp(ctx, newApp(version), args)
}

func executeApp(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if tdErr := a.teardown(); tdErr != nil {
		ux.Warning(fmt.Sprintf("shutdown: %v", tdErr))
	}
	if err != nil && !errors.Is(err, ux.ErrPromptAborted) {
		ux.Error(err.Error())
	}
	return exitCode(err)
}
