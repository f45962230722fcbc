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
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/scholarbench/pkg/ux"
	"github.com/AleutianAI/scholarbench/services/scholar/eval"
	"github.com/AleutianAI/scholarbench/services/scholar/searcher"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// algorithmInfo is one line of `scholarbench algorithms`.
type algorithmInfo struct {
	Name               string    `json:"name"`
	Kind               eval.Kind `json:"kind"`
	Stable             bool      `json:"stable,omitempty"`
	RequiresSortedByID bool      `json:"requires_sorted_by_id,omitempty"`
	SizeCap            int       `json:"size_cap,omitempty"`
}

// listAlgorithms describes every registered algorithm in name order.
func (a *app) listAlgorithms() []algorithmInfo {
	names := eval.DefaultRegistry.List()
	out := make([]algorithmInfo, 0, len(names))
	for _, name := range names {
		alg, ok := eval.DefaultRegistry.Get(name)
		if !ok {
			continue
		}
		info := algorithmInfo{Name: name, Kind: alg.Kind(), SizeCap: a.cfg.Benchmark.SizeCaps[name]}
		switch v := alg.(type) {
		case sorter.Sorter:
			info.Stable = v.Stable()
		case searcher.Searcher:
			info.RequiresSortedByID = v.RequiresSortedByID()
		}
		out = append(out, info)
	}
	return out
}

func newAlgorithmsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the registered sorting and searching algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			infos := a.listAlgorithms()
			if a.opts.jsonOut {
				return writeJSON(ux.Stdout(), newResult("algorithms", start, infos, nil))
			}
			rows := make([][]string, len(infos))
			for i, info := range infos {
				notes := ""
				switch {
				case info.Stable:
					notes = "stable"
				case info.RequiresSortedByID:
					notes = "needs id-sorted input"
				}
				limit := "-"
				if info.SizeCap > 0 {
					limit = "< " + strconv.Itoa(info.SizeCap)
				}
				rows[i] = []string{info.Name, info.Kind.String(), limit, notes}
			}
			ux.PrintTable([]string{"Name", "Kind", "Sweep sizes", "Notes"}, rows)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.opts.jsonOut {
				return writeJSON(ux.Stdout(), newResult("config show", time.Now(), a.cfg, nil))
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(ux.Stdout(), string(data))
			return err
		},
	})
	return cmd
}
