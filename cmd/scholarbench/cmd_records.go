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
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/eval"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// newSession builds a session of size records, defaulting to the
// configured initial size.
func (a *app) newSession(size int) (*Session, error) {
	if size == 0 {
		size = a.cfg.Session.InitialSize
	}
	gen, err := a.generator()
	if err != nil {
		return nil, err
	}
	return NewSession(gen, nil, size)
}

// -----------------------------------------------------------------------------
// generate
// -----------------------------------------------------------------------------

func newGenerateCmd(a *app) *cobra.Command {
	var (
		size   int
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic dataset and print or export it",
		Example: `  scholarbench generate --size 20
  scholarbench generate --size 1000 --format csv --output records.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			s, err := a.newSession(size)
			if err != nil {
				return err
			}
			if a.opts.jsonOut {
				return writeJSON(ux.Stdout(), newResult("generate", start, s.Records(), nil))
			}
			if strings.EqualFold(format, FormatTable) {
				ux.PrintTable(recordHeaders, recordRows(s.Records()))
				return nil
			}
			if err := exportRecords(output, format, ux.Stdout(), s.Records()); err != nil {
				return err
			}
			if output != "-" {
				ux.Success(fmt.Sprintf("Wrote %d records to %s", s.Len(), output))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&size, "size", "n", 0, "Number of records (default: session.initial_size)")
	cmd.Flags().StringVarP(&format, "format", "f", FormatTable, "Output format: table, csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Destination for csv/json, - for stdout")
	return cmd
}

// -----------------------------------------------------------------------------
// sort
// -----------------------------------------------------------------------------

func newSortCmd(a *app) *cobra.Command {
	var (
		size      int
		algorithm string
		top       int
	)
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Rank a fresh dataset by score, highest first",
		Example: `  scholarbench sort --size 500
  scholarbench sort --algorithm selection --top 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			srt, err := eval.DefaultRegistry.Sorter(algorithm)
			if err != nil {
				return err
			}
			s, err := a.newSession(size)
			if err != nil {
				return err
			}
			if top <= 0 {
				top = a.cfg.Session.TopRows
			}

			outcome := s.Rank(srt, top)
			a.logger.Debug("ranked dataset",
				"algorithm", outcome.Algorithm,
				"size", s.Len(),
				"elapsed", outcome.Elapsed,
			)
			if a.opts.jsonOut {
				return writeJSON(ux.Stdout(), newResult("sort", start, outcome, nil))
			}
			printRank(outcome, s.Len())
			return nil
		},
	}
	cmd.Flags().IntVarP(&size, "size", "n", 0, "Number of records (default: session.initial_size)")
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", sorter.NameMerge, "Sorter: merge or selection")
	cmd.Flags().IntVar(&top, "top", 0, "How many ranked records to show (default: session.top_rows)")
	return cmd
}

func printRank(o RankOutcome, n int) {
	ux.Success(fmt.Sprintf("Ranked %d records with %s sort in %s", n, o.Algorithm, millis(o.Elapsed)))
	ux.PrintTable(recordHeaders, recordRows(o.Top))
}

// -----------------------------------------------------------------------------
// search
// -----------------------------------------------------------------------------

// parseID parses a record id typed by the user.
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be a whole number", s)
	}
	return id, nil
}

func newSearchCmd(a *app) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "search ID",
		Short: "Look a record up by id with linear and binary search",
		Long: `search generates a dataset, then looks ID up twice: with a linear scan
over the records in generation order, and with binary search over an
id-sorted copy. Both timings and comparison counts are printed.`,
		Example: `  scholarbench search 1025 --seed 7`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.newSession(size)
			if err != nil {
				return err
			}

			outcomes := s.Search(id)
			if a.opts.jsonOut {
				return writeJSON(ux.Stdout(), newResult("search", start, outcomes, nil))
			}
			printSearch(id, s.Len(), outcomes)
			return nil
		},
	}
	cmd.Flags().IntVarP(&size, "size", "n", 0, "Number of records (default: session.initial_size)")
	return cmd
}

func printSearch(id, n int, outcomes []SearchOutcome) {
	for _, o := range outcomes {
		if o.Result.Found {
			ux.Box("Found", o.Result.Record.String())
			ux.PrintTable(searchHeaders, searchRows(outcomes))
			return
		}
	}
	ux.WarningBox("Not found", fmt.Sprintf("No record with ID %d among %d records.", id, n))
	ux.PrintTable(searchHeaders, searchRows(outcomes))
}
