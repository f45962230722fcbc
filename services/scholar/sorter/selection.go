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

// Selection is direct selection sort.
//
// Description:
//
//	For each position i it scans the suffix for the highest score and swaps
//	that record into i. The swap can carry an equal-score record past its
//	peers, so the sort is not stable.
//
// Complexity: O(n²) comparisons, O(1) space beyond the working copy.
type Selection struct{}

// Name implements Sorter.
func (Selection) Name() string { return NameSelection }

// Stable implements Sorter.
func (Selection) Stable() bool { return false }

// Sort implements Sorter.
func (Selection) Sort(rs []record.Record) []record.Record {
	out := record.Clone(rs)
	n := len(out)
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if policy.ScoreBefore(out[j], out[best]) {
				best = j
			}
		}
		if best != i {
			out[i], out[best] = out[best], out[i]
		}
	}
	return out
}
