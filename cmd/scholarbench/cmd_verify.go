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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/eval"
	"github.com/AleutianAI/scholarbench/services/scholar/eval/correctness"
)

// verifyOptions are the flags of `scholarbench verify`.
type verifyOptions struct {
	iterations    int
	maxSize       int
	seed          uint64
	timeout       time.Duration
	tags          []string
	stopOnFailure bool
}

func newVerifyCmd(a *app) *cobra.Command {
	opts := &verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify [algorithm...]",
		Short: "Check the sorting and searching invariants on random inputs",
		Long: `verify runs property checks against each named algorithm, or every
registered one when none is named. Sorters are checked for permutation,
descending order, non-mutation, idempotence, boundary cases and (merge)
stability. Searchers are checked for finding present ids, missing absent
ones, step bounds and non-mutation.

Exit status is 1 when any property fails.`,
		Example: `  scholarbench verify
  scholarbench verify merge binary --iterations 500 --seed 42
  scholarbench verify --tags critical`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), a, opts, args)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.iterations, "iterations", 0, "Random inputs per property (default: verify.iterations)")
	f.IntVar(&opts.maxSize, "max-size", 0, "Largest random input (default: verify.max_size)")
	f.Uint64Var(&opts.seed, "input-seed", 0, "Seed for the random inputs (default: verify.seed)")
	f.DurationVar(&opts.timeout, "timeout", 0, "Bound on the whole run (default: verify.timeout)")
	f.StringSliceVar(&opts.tags, "tags", nil,
		fmt.Sprintf("Only run properties with these tags (%s, %s, %s, %s)",
			correctness.TagCritical, correctness.TagBoundary, correctness.TagPurity, correctness.TagCost))
	f.BoolVar(&opts.stopOnFailure, "stop-on-failure", false, "Stop an algorithm at its first failing property")
	return cmd
}

// verifyOpts merges flags over the verify config section.
func (a *app) verifyOpts(o *verifyOptions) []correctness.VerifyOption {
	vc := a.cfg.Verify
	if o.iterations > 0 {
		vc.Iterations = o.iterations
	}
	if o.maxSize > 0 {
		vc.MaxSize = o.maxSize
	}
	if o.seed != 0 {
		vc.Seed = o.seed
	}
	if o.timeout > 0 {
		vc.Timeout = o.timeout
	}

	opts := []correctness.VerifyOption{
		correctness.WithIterations(vc.Iterations),
		correctness.WithInputs(correctness.RandomInputs(vc.Seed, vc.MaxSize)),
		correctness.WithStopOnFailure(o.stopOnFailure),
		correctness.WithSink(a.sink),
		correctness.WithLogger(a.slog()),
	}
	if vc.Timeout > 0 {
		opts = append(opts, correctness.WithTimeout(vc.Timeout))
	}
	if len(o.tags) > 0 {
		opts = append(opts, correctness.WithTags(o.tags...))
	}
	return opts
}

func runVerify(ctx context.Context, a *app, o *verifyOptions, names []string) error {
	start := time.Now()
	verifier := correctness.NewVerifier(eval.DefaultRegistry)
	verifier.SetLogger(a.slog())
	opts := a.verifyOpts(o)

	var (
		results []*eval.VerifyResult
		err     error
	)
	if len(names) == 0 {
		results, err = verifier.VerifyAll(ctx, opts...)
	} else {
		results, err = verifyNamed(ctx, verifier, names, opts)
	}

	if a.opts.jsonOut {
		if jsonErr := writeJSON(ux.Stdout(), newResult("verify", start, results, err)); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	if len(results) > 0 {
		ux.PrintTable(verifyHeaders, verifyRows(results))
		passed := 0
		for _, r := range results {
			if r.Passed {
				passed++
			}
		}
		ux.Summary(passed, len(results)-passed, len(results))
	}
	return err
}

// verifyNamed verifies each name in turn. Unknown names fail immediately;
// property failures are collected into one ErrVerificationFailed.
func verifyNamed(ctx context.Context, v *correctness.Verifier, names []string, opts []correctness.VerifyOption) ([]*eval.VerifyResult, error) {
	results := make([]*eval.VerifyResult, 0, len(names))
	var failed []string
	for _, name := range names {
		res, err := v.Verify(ctx, name, opts...)
		if err != nil {
			if errors.Is(err, eval.ErrNotFound) {
				return results, fmt.Errorf("%w (known: %v)", err, eval.DefaultRegistry.List())
			}
			return results, err
		}
		results = append(results, res)
		if !res.Passed {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("%w: %v", correctness.ErrVerificationFailed, failed)
	}
	return results, nil
}
