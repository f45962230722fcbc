// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package searcher

import (
	"fmt"

	"github.com/AleutianAI/scholarbench/services/scholar/policy"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
)

// Binary is iterative binary search over a closed interval.
//
// Description:
//
//	Each probe of the midpoint counts as one step. The search ends on a hit
//	or when the interval is empty, so the step count never exceeds
//	ceil(log2(n)) + 1.
//
// Limitations:
//
//	Search requires rs to be ascending by id and does not check it. Use
//	policy.SortedByID to build such a copy, or SearchChecked to have the
//	precondition verified.
type Binary struct{}

// Name implements Searcher.
func (Binary) Name() string { return NameBinary }

// RequiresSortedByID implements Searcher.
func (Binary) RequiresSortedByID() bool { return true }

// Search implements Searcher.
func (Binary) Search(rs []record.Record, id int) Result {
	low, high := 0, len(rs)-1
	steps := 0
	for low <= high {
		steps++
		mid := low + (high-low)/2
		switch got := rs[mid].ID; {
		case got == id:
			return Result{Record: rs[mid], Found: true, Steps: steps}
		case got < id:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return NotFound(steps)
}

// SearchChecked is Search with the ordering precondition verified first.
//
// Outputs:
//   - Result: As Search. Zero value on error.
//   - error: ErrNotSortedByID if rs is not ascending by id.
//
// The check is O(n) and dominates the search; it is meant for callers that
// cannot vouch for their input, not for timing.
func (b Binary) SearchChecked(rs []record.Record, id int) (Result, error) {
	if !policy.IsSortedByID(rs) {
		return Result{}, fmt.Errorf("binary search over %d records: %w", len(rs), ErrNotSortedByID)
	}
	return b.Search(rs, id), nil
}
