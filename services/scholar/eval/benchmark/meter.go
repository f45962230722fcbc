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
	"runtime"
	"time"

	"github.com/AleutianAI/scholarbench/services/scholar/record"
	"github.com/AleutianAI/scholarbench/services/scholar/searcher"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// NotApplicable is the Elapsed value of a sample that was not measured.
// It is negative so it can never be mistaken for a real duration.
const NotApplicable time.Duration = -1

// Measurement is what a Meter observed around one call.
type Measurement struct {
	// Elapsed is the wall-clock duration of the call.
	Elapsed time.Duration `json:"elapsed_ns"`

	// AllocBytes is the number of bytes allocated during the call. Zero
	// when the meter does not track memory.
	AllocBytes uint64 `json:"alloc_bytes"`
}

// Meter is the only impure piece of the harness: it reads the clock and
// the allocator around a call. Sorters and searchers stay pure.
type Meter interface {
	Measure(run func()) Measurement
}

// MeterFunc adapts a function to Meter.
type MeterFunc func(run func()) Measurement

// Measure implements Meter.
func (f MeterFunc) Measure(run func()) Measurement { return f(run) }

// WallClock measures elapsed time only.
type WallClock struct{}

// Measure implements Meter.
func (WallClock) Measure(run func()) Measurement {
	start := time.Now()
	run()
	return Measurement{Elapsed: time.Since(start)}
}

// MemoryTracking measures elapsed time and bytes allocated.
//
// Description:
//
//	A GC runs first so that earlier garbage does not count, then
//	runtime.MemStats is read before and after the call. AllocBytes is the
//	TotalAlloc delta: every byte the call allocated, whether or not it
//	was freed again. For the sorters that is the working copy plus any
//	merge buffers, which is the quantity worth comparing.
//
// Limitations:
//   - ReadMemStats stops the world; its cost is outside the timed window
//     but makes the sweep slower overall.
//   - Allocations by other goroutines during the call are counted.
type MemoryTracking struct{}

// Measure implements Meter.
func (MemoryTracking) Measure(run func()) Measurement {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	start := time.Now()
	run()
	elapsed := time.Since(start)

	runtime.ReadMemStats(&after)
	return Measurement{
		Elapsed:    elapsed,
		AllocBytes: after.TotalAlloc - before.TotalAlloc,
	}
}

// Measure runs algorithm once on rs under m. A nil meter means WallClock.
//
// Example:
//
//	m := benchmark.Measure(benchmark.WallClock{}, func(rs []record.Record) {
//	    sorter.Merge{}.Sort(rs)
//	}, data)
func Measure(m Meter, algorithm func(rs []record.Record), rs []record.Record) Measurement {
	if m == nil {
		m = WallClock{}
	}
	return m.Measure(func() { algorithm(rs) })
}

// MeasureSort times one Sort call. The sorted output is returned so
// callers that need it do not sort twice.
func MeasureSort(m Meter, s sorter.Sorter, rs []record.Record) (Measurement, []record.Record) {
	var out []record.Record
	meas := Measure(m, func(rs []record.Record) { out = s.Sort(rs) }, rs)
	return meas, out
}

// MeasureSearch times one Search call and returns its result.
//
// rs must already satisfy s.RequiresSortedByID; MeasureSearch does not sort.
func MeasureSearch(m Meter, s searcher.Searcher, rs []record.Record, id int) (Measurement, searcher.Result) {
	var res searcher.Result
	meas := Measure(m, func(rs []record.Record) { res = s.Search(rs, id) }, rs)
	return meas, res
}
