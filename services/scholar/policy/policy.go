// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy holds the ordering and search keys shared by the sorters,
// the searchers and the correctness checks.
//
// The ordering key is Score, descending. The search key is ID, ascending,
// and ids are assumed (not enforced) to be unique.
package policy

import (
	"cmp"
	"slices"

	"github.com/AleutianAI/scholarbench/services/scholar/record"
)

// ScoreBefore reports whether a belongs strictly before b in the ranking.
func ScoreBefore(a, b record.Record) bool {
	return a.Score > b.Score
}

// ScoreBeforeOrEqual reports whether a may be placed before b. Merging with
// this predicate on the left element keeps equal scores in input order.
func ScoreBeforeOrEqual(a, b record.Record) bool {
	return a.Score >= b.Score
}

// CompareID orders records by ascending id. Returns -1, 0 or +1.
func CompareID(a, b record.Record) int {
	return cmp.Compare(a.ID, b.ID)
}

// SortedByID returns an id-ascending copy of rs.
//
// Description:
//
//	This is how callers satisfy the binary search precondition. The copy
//	is stable, so duplicate ids keep their relative order. rs is not
//	modified.
func SortedByID(rs []record.Record) []record.Record {
	out := record.Clone(rs)
	slices.SortStableFunc(out, CompareID)
	return out
}

// IsSortedByScore reports whether rs is non-increasing by score.
func IsSortedByScore(rs []record.Record) bool {
	for i := 1; i < len(rs); i++ {
		if ScoreBefore(rs[i], rs[i-1]) {
			return false
		}
	}
	return true
}

// IsSortedByID reports whether rs is non-decreasing by id.
func IsSortedByID(rs []record.Record) bool {
	return slices.IsSortedFunc(rs, CompareID)
}

// FirstScoreViolation returns the index i of the first pair (i, i+1) that
// breaks the descending score order, or -1 when there is none.
func FirstScoreViolation(rs []record.Record) int {
	for i := 0; i+1 < len(rs); i++ {
		if ScoreBefore(rs[i+1], rs[i]) {
			return i
		}
	}
	return -1
}
