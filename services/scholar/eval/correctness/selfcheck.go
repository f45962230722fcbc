// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package correctness

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/scholarbench/services/scholar/policy"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
	"github.com/AleutianAI/scholarbench/services/scholar/searcher"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// SelfCheckSize is the dataset size used by SelfCheck.
const SelfCheckSize = 50

// Generator produces a dataset of n records.
type Generator interface {
	Generate(n int) []record.Record
}

// Check is one line of a self-check report.
type Check struct {
	// Name identifies the check, e.g. "merge_descending".
	Name string `json:"name"`

	// Passed is true if the check held.
	Passed bool `json:"passed"`

	// Detail is a human-readable outcome.
	Detail string `json:"detail"`
}

// SelfCheckReport is the outcome of SelfCheck.
type SelfCheckReport struct {
	// Size is the dataset size checked.
	Size int `json:"size"`

	// Target is the id both searches looked for.
	Target int `json:"target"`

	// Checks are the individual results, in execution order.
	Checks []Check `json:"checks"`
}

// Passed reports whether every check held.
func (r *SelfCheckReport) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// SelfCheck is the quick integrity test run before a diagnostics sweep.
//
// Description:
//
//	Generates SelfCheckSize records and verifies three things: merge
//	sort output is non-increasing by score, linear search finds the
//	record at the middle index, and binary search on an id-sorted copy
//	finds the same record.
//
// Inputs:
//   - ctx: Used for tracing only.
//   - gen: Dataset source. Must not be nil.
//
// Outputs:
//   - *SelfCheckReport: Always non-nil.
//   - error: ErrVerificationFailed wrapping the names of failed checks.
func SelfCheck(ctx context.Context, gen Generator) (*SelfCheckReport, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "correctness.SelfCheck")
	defer span.End()

	data := gen.Generate(SelfCheckSize)
	report := &SelfCheckReport{Size: len(data)}
	if len(data) == 0 {
		span.SetStatus(codes.Error, "empty dataset")
		return report, fmt.Errorf("%w: generator returned no records", ErrVerificationFailed)
	}

	ranked := sorter.Merge{}.Sort(data)
	descending := policy.IsSortedByScore(ranked) && len(ranked) == len(data)
	report.Checks = append(report.Checks, Check{
		Name:   "merge_descending",
		Passed: descending,
		Detail: passFail(descending, "merge sort output is descending", "merge sort output is out of order"),
	})

	target := data[len(data)/2]
	report.Target = target.ID

	lin := searcher.Linear{}.Search(data, target.ID)
	linOK := lin.Found && lin.Record.ID == target.ID
	report.Checks = append(report.Checks, Check{
		Name:   "linear_finds_target",
		Passed: linOK,
		Detail: passFail(linOK,
			fmt.Sprintf("linear search found %d in %d steps", target.ID, lin.Steps),
			fmt.Sprintf("linear search missed %d", target.ID)),
	})

	bin, err := searcher.Binary{}.SearchChecked(policy.SortedByID(data), target.ID)
	binOK := err == nil && bin.Found && bin.Record.ID == target.ID
	report.Checks = append(report.Checks, Check{
		Name:   "binary_finds_target",
		Passed: binOK,
		Detail: passFail(binOK,
			fmt.Sprintf("binary search found %d in %d steps", target.ID, bin.Steps),
			fmt.Sprintf("binary search missed %d", target.ID)),
	})

	span.SetAttributes(
		attribute.Int("selfcheck.size", report.Size),
		attribute.Int("selfcheck.target", report.Target),
		attribute.Bool("selfcheck.passed", report.Passed()),
	)

	if !report.Passed() {
		var failed []string
		for _, c := range report.Checks {
			if !c.Passed {
				failed = append(failed, c.Name)
			}
		}
		span.SetStatus(codes.Error, "self-check failed")
		return report, fmt.Errorf("%w: %v", ErrVerificationFailed, failed)
	}
	span.SetStatus(codes.Ok, "self-check passed")
	return report, nil
}

func passFail(ok bool, pass, fail string) string {
	if ok {
		return pass
	}
	return fail
}
