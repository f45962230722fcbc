// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sorter

import (
	"github.com/AleutianAI/scholarbench/services/scholar/policy"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
)

// Merge is top-down merge sort.
//
// Description:
//
//	The input is split at the midpoint, both halves are sorted recursively
//	and then merged. On equal scores the merge takes the left element, which
//	keeps the sort stable. Sequences of length 0 or 1 are returned as copies.
//
// Complexity: O(n log n) time, O(n) auxiliary space per merge level.
type Merge struct{}

// Name implements Sorter.
func (Merge) Name() string { return NameMerge }

// Stable implements Sorter.
func (Merge) Stable() bool { return true }

// Sort implements Sorter.
func (Merge) Sort(rs []record.Record) []record.Record {
	if len(rs) <= 1 {
		return record.Clone(rs)
	}
	mid := len(rs) / 2
	left := Merge{}.Sort(rs[:mid])
	right := Merge{}.Sort(rs[mid:])
	return merge(left, right)
}

// merge combines two score-descending runs into a new one.
func merge(left, right []record.Record) []record.Record {
	out := make([]record.Record, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if policy.ScoreBeforeOrEqual(left[i], right[j]) {
			out = append(out, left[i])
			i++
		} else {
			out = append(out, right[j])
			j++
		}
	}
	out = append(out, left[i:]...)
	out = append(out, right[j:]...)
	return out
}
