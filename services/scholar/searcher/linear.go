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

import "github.com/AleutianAI/scholarbench/services/scholar/record"

// Linear scans the records in sequence order and stops at the first match.
// Steps equals the number of records examined, so a hit at index i costs
// i+1 and a miss costs len(rs).
type Linear struct{}

// Name implements Searcher.
func (Linear) Name() string { return NameLinear }

// RequiresSortedByID implements Searcher.
func (Linear) RequiresSortedByID() bool { return false }

// Search implements Searcher.
func (Linear) Search(rs []record.Record, id int) Result {
	steps := 0
	for _, r := range rs {
		steps++
		if r.ID == id {
			return Result{Record: r, Found: true, Steps: steps}
		}
	}
	return NotFound(steps)
}
