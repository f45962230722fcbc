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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/AleutianAI/scholarbench/services/scholar/eval/benchmark"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
)

// Export formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// ErrUnknownFormat is returned for an export format other than csv or json.
var ErrUnknownFormat = errors.New("unknown export format")

var sweepCSVHeader = []string{
	"run_id", "size", "algorithm", "kind", "elapsed_ns", "elapsed_ms",
	"alloc_bytes", "steps", "found", "skipped",
}

// writeSweepCSV writes one line per sample, sizes in sweep order and
// algorithms in column order.
func writeSweepCSV(w io.Writer, r *benchmark.SweepResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(sweepCSVHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, row := range r.Rows() {
		for _, name := range r.Order {
			s, ok := row.Samples[name]
			if !ok {
				continue
			}
			elapsedMs := ""
			if s.Applicable() {
				elapsedMs = strconv.FormatFloat(s.Elapsed.Seconds()*1000, 'f', 6, 64)
			}
			line := []string{
				r.RunID,
				strconv.Itoa(row.Size),
				s.Algorithm,
				s.Kind.String(),
				strconv.FormatInt(int64(s.Elapsed), 10),
				elapsedMs,
				strconv.FormatUint(s.AllocBytes, 10),
				strconv.Itoa(s.Steps),
				strconv.FormatBool(s.Found),
				strconv.FormatBool(s.Skipped),
			}
			if err := writer.Write(line); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// writeRecordsCSV writes id,name,score lines.
func writeRecordsCSV(w io.Writer, rs []record.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "name", "score"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range rs {
		line := []string{strconv.Itoa(r.ID), r.Name, strconv.FormatFloat(r.Score, 'f', -1, 64)}
		if err := writer.Write(line); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// exportTo writes through fn to path, or to stdout when path is "-".
func exportTo(path string, stdout io.Writer, fn func(io.Writer) error) (err error) {
	if path == "-" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("Failed to close output file", "error", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}()
	return fn(f)
}

// exportSweep writes r in format to path.
func exportSweep(path, format string, stdout io.Writer, r *benchmark.SweepResult) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return exportTo(path, stdout, func(w io.Writer) error { return writeSweepCSV(w, r) })
	case FormatJSON:
		return exportTo(path, stdout, func(w io.Writer) error { return writeJSON(w, r) })
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// exportRecords writes rs in format to path.
func exportRecords(path, format string, stdout io.Writer, rs []record.Record) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return exportTo(path, stdout, func(w io.Writer) error { return writeRecordsCSV(w, rs) })
	case FormatJSON:
		return exportTo(path, stdout, func(w io.Writer) error { return writeJSON(w, rs) })
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// defaultSweepPath names an export after the run id.
func defaultSweepPath(r *benchmark.SweepResult, format string) string {
	id := r.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("sweep_%s.%s", id, strings.ToLower(format))
}
