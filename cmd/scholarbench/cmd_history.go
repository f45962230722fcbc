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

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved benchmark sweeps",
		Long: `Every finished sweep is saved under history.dir. Run IDs may be
abbreviated to any unique prefix.`,
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved sweeps, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			store, err := a.history()
			if err != nil {
				return err
			}
			summaries, err := store.List(limit)
			if a.opts.jsonOut {
				if jsonErr := writeJSON(ux.Stdout(), newResult("history list", start, summaries, err)); jsonErr != nil {
					return jsonErr
				}
				return err
			}
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				ux.Muted("No sweeps saved yet. Run `scholarbench bench` to record one.")
				return nil
			}
			ux.PrintTable(historyHeaders, historyRows(summaries, time.Now()))
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most this many sweeps (0 for all)")

	var charts bool
	show := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print a saved sweep",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			store, err := a.history()
			if err != nil {
				return err
			}
			sweep, err := store.Get(args[0])
			if a.opts.jsonOut {
				if jsonErr := writeJSON(ux.Stdout(), newResult("history show", start, sweep, err)); jsonErr != nil {
					return jsonErr
				}
				return err
			}
			if err != nil {
				return err
			}
			printSweep(sweep, charts)
			return nil
		},
	}
	show.Flags().BoolVar(&charts, "charts", false, "Draw the sort and search time charts")

	var yes bool
	del := &cobra.Command{
		Use:     "delete RUN_ID",
		Aliases: []string{"rm"},
		Short:   "Delete a saved sweep",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.history()
			if err != nil {
				return err
			}
			sweep, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := a.prompt().Confirm(fmt.Sprintf("Delete sweep %s?", sweep.RunID))
				if err != nil {
					return err
				}
				if !ok {
					ux.Info("Sweep kept.")
					return nil
				}
			}
			if err := store.Delete(sweep.RunID); err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("Deleted sweep %s", sweep.RunID))
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")

	cmd.AddCommand(list, show, del)
	return cmd
}

var historyHeaders = []string{"Run", "Started", "Took", "Sizes", "Measured", "Skipped"}

// historyRows renders summaries relative to now.
func historyRows(summaries []history.Summary, now time.Time) [][]string {
	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		sizes := make([]string, len(s.Sizes))
		for j, n := range s.Sizes {
			sizes[j] = strconv.Itoa(n)
		}
		rows[i] = []string{
			s.RunID,
			humanize.RelTime(s.StartedAt, now, "ago", "from now"),
			s.Duration.Round(time.Millisecond).String(),
			strings.Join(sizes, ","),
			strconv.Itoa(s.Measurements),
			strconv.Itoa(s.Skipped),
		}
	}
	return rows
}
