// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package benchmark

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/AleutianAI/scholarbench/services/scholar/eval"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidConfig is returned when the sweep configuration is invalid.
	ErrInvalidConfig = errors.New("invalid benchmark configuration")

	// ErrNoAlgorithms is returned when a sweep has nothing to measure.
	ErrNoAlgorithms = errors.New("no algorithms to benchmark")

	// ErrNoSamples is returned when statistics are requested for no data.
	ErrNoSamples = errors.New("no samples")
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// DefaultSizes are the dataset sizes of the standard sweep.
var DefaultSizes = []int{100, 500, 1000, 2500, 5000}

// Config holds the sweep parameters.
type Config struct {
	// Sizes are visited in order. Each must be positive.
	Sizes []int `yaml:"sizes" json:"sizes" validate:"min=1,dive,gt=0"`

	// SizeCaps maps an algorithm name to the first size it is no longer
	// run at. Default: selection is capped at 3000.
	SizeCaps map[string]int `yaml:"size_caps" json:"size_caps" validate:"dive,gt=0"`

	// Repeats is how many times each measurement is taken. The median
	// elapsed time is kept. Default: 1.
	Repeats int `yaml:"repeats" json:"repeats" validate:"gte=1"`

	// CollectMemory selects the MemoryTracking meter when no explicit
	// meter was given. Default: true.
	CollectMemory bool `yaml:"collect_memory" json:"collect_memory"`
}

// DefaultConfig returns the standard sweep.
func DefaultConfig() *Config {
	return &Config{
		Sizes:         slices.Clone(DefaultSizes),
		SizeCaps:      map[string]int{sorter.NameSelection: 3000},
		Repeats:       1,
		CollectMemory: true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Sizes) == 0 {
		errs = append(errs, errors.New("at least one size is required"))
	}
	for _, n := range c.Sizes {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("size must be positive, got %d", n))
		}
	}
	for name, limit := range c.SizeCaps {
		if limit <= 0 {
			errs = append(errs, fmt.Errorf("size cap for %s must be positive, got %d", name, limit))
		}
	}
	if c.Repeats < 1 {
		errs = append(errs, fmt.Errorf("repeats must be >= 1, got %d", c.Repeats))
	}
	return errors.Join(errs...)
}

// Applies reports whether algorithm should run at size n.
func (c *Config) Applies(algorithm string, n int) bool {
	limit, ok := c.SizeCaps[algorithm]
	return !ok || n < limit
}

// -----------------------------------------------------------------------------
// Sample
// -----------------------------------------------------------------------------

// Sample is one algorithm at one dataset size.
type Sample struct {
	// Algorithm is the algorithm name.
	Algorithm string `json:"algorithm"`

	// Kind is the algorithm family.
	Kind eval.Kind `json:"kind"`

	// Size is the dataset size.
	Size int `json:"size"`

	// Elapsed is the (median) wall-clock time, or NotApplicable.
	Elapsed time.Duration `json:"elapsed_ns"`

	// AllocBytes is the most bytes one call allocated across repeats.
	AllocBytes uint64 `json:"alloc_bytes"`

	// Steps is the search comparison count. Zero for sorts.
	Steps int `json:"steps,omitempty"`

	// Found reports whether the search target was located.
	Found bool `json:"found,omitempty"`

	// Skipped marks a sample not run because of a size cap.
	Skipped bool `json:"skipped"`
}

// skippedSample builds the "not applicable" sample.
func skippedSample(algorithm string, kind eval.Kind, size int) Sample {
	return Sample{
		Algorithm: algorithm,
		Kind:      kind,
		Size:      size,
		Elapsed:   NotApplicable,
		Skipped:   true,
	}
}

// Applicable reports whether the sample holds a real measurement.
func (s Sample) Applicable() bool {
	return !s.Skipped && s.Elapsed >= 0
}

// -----------------------------------------------------------------------------
// Sweep Result
// -----------------------------------------------------------------------------

// SweepResult is the tabulated outcome of Runner.Sweep.
type SweepResult struct {
	// RunID uniquely identifies the sweep.
	RunID string `json:"run_id"`

	// StartedAt is when the sweep began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total wall time of the sweep.
	Duration time.Duration `json:"duration_ns"`

	// Sizes are the sizes that completed, in order.
	Sizes []int `json:"sizes"`

	// Order lists algorithm names as they were run: sorters first, then
	// searchers, each group by name.
	Order []string `json:"order"`

	// Samples maps an algorithm name to one sample per entry of Sizes.
	Samples map[string][]Sample `json:"samples"`
}

func newSweepResult(runID string, started time.Time, order []string) *SweepResult {
	return &SweepResult{
		RunID:     runID,
		StartedAt: started,
		Sizes:     make([]int, 0),
		Order:     order,
		Samples:   make(map[string][]Sample, len(order)),
	}
}

func (r *SweepResult) add(s Sample) {
	r.Samples[s.Algorithm] = append(r.Samples[s.Algorithm], s)
}

// Series returns the samples of one algorithm, one per size.
func (r *SweepResult) Series(name string) []Sample {
	return r.Samples[name]
}

// Row is one line of the sweep table.
type Row struct {
	// Size is the dataset size.
	Size int

	// Samples maps algorithm name to its sample at Size.
	Samples map[string]Sample
}

// Rows returns the result as one row per size.
func (r *SweepResult) Rows() []Row {
	rows := make([]Row, len(r.Sizes))
	for i, size := range r.Sizes {
		row := Row{Size: size, Samples: make(map[string]Sample, len(r.Order))}
		for _, name := range r.Order {
			if series := r.Samples[name]; i < len(series) {
				row.Samples[name] = series[i]
			}
		}
		rows[i] = row
	}
	return rows
}

// Speedup returns, per size, how many times faster algorithm a was than b
// (b's elapsed divided by a's). The entry is NaN when either sample is not
// applicable or a took no measurable time.
func (r *SweepResult) Speedup(a, b string) []float64 {
	sa, sb := r.Samples[a], r.Samples[b]
	out := make([]float64, len(r.Sizes))
	for i := range out {
		out[i] = math.NaN()
		if i >= len(sa) || i >= len(sb) {
			continue
		}
		if !sa[i].Applicable() || !sb[i].Applicable() || sa[i].Elapsed == 0 {
			continue
		}
		out[i] = float64(sb[i].Elapsed) / float64(sa[i].Elapsed)
	}
	return out
}

// Counts returns how many samples were measured and how many skipped.
func (r *SweepResult) Counts() (measured, skipped int) {
	for _, series := range r.Samples {
		for _, s := range series {
			if s.Skipped {
				skipped++
			} else {
				measured++
			}
		}
	}
	return measured, skipped
}

// -----------------------------------------------------------------------------
// Statistics
// -----------------------------------------------------------------------------

// Median returns the median of samples.
//
// Outputs:
//   - time.Duration: The median, interpolated for even counts.
//   - error: ErrNoSamples if samples is empty.
func Median(samples []time.Duration) (time.Duration, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	return percentile(sorted, 0.5), nil
}

// percentile returns the p-th percentile of sorted using linear
// interpolation between the closest ranks.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	index := p * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	fraction := index - float64(lower)
	return time.Duration(float64(sorted[lower])*(1-fraction) + float64(sorted[upper])*fraction)
}
