// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package record defines the academic record handled by the sorters and
// searchers: a student id, a display name and a clamped grade-average.
package record

import (
	"errors"
	"fmt"
	"math"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidBounds is returned by Bounds.Validate when Low > High or a
	// bound is not a finite number.
	ErrInvalidBounds = errors.New("invalid score bounds")
)

// -----------------------------------------------------------------------------
// Bounds
// -----------------------------------------------------------------------------

// Bounds is the closed interval a score is clamped into.
//
// Description:
//
//	Deployments disagree on the grading scale (0-3, 0-100, ...), so the
//	bounds are a value rather than a constant. DefaultBounds is used by New.
type Bounds struct {
	// Low is the smallest valid score.
	Low float64 `yaml:"low" json:"low"`

	// High is the largest valid score.
	High float64 `yaml:"high" json:"high" validate:"gtfield=Low"`
}

// DefaultBounds is the 0-100 scale used by New.
var DefaultBounds = Bounds{Low: 0, High: 100}

// Validate checks that the interval is well-formed.
//
// Outputs:
//   - error: nil if Low <= High and both are finite, ErrInvalidBounds otherwise.
func (b Bounds) Validate() error {
	if math.IsNaN(b.Low) || math.IsNaN(b.High) || math.IsInf(b.Low, 0) || math.IsInf(b.High, 0) {
		return fmt.Errorf("%w: bounds must be finite", ErrInvalidBounds)
	}
	if b.Low > b.High {
		return fmt.Errorf("%w: low %.2f is above high %.2f", ErrInvalidBounds, b.Low, b.High)
	}
	return nil
}

// normalized returns b with Low <= High.
func (b Bounds) normalized() Bounds {
	if b.Low > b.High {
		return Bounds{Low: b.High, High: b.Low}
	}
	return b
}

// Clamp forces score into [Low, High].
//
// Description:
//
//	Out-of-range scores are silently pulled to the nearest bound. A NaN
//	score has no nearest bound and clamps to Low. Inverted bounds are
//	swapped before clamping.
//
// Inputs:
//   - score: Any float64, including NaN and ±Inf.
//
// Outputs:
//   - float64: A value in [Low, High].
func (b Bounds) Clamp(score float64) float64 {
	n := b.normalized()
	switch {
	case math.IsNaN(score):
		return n.Low
	case score < n.Low:
		return n.Low
	case score > n.High:
		return n.High
	default:
		return score
	}
}

// Contains reports whether score lies in [Low, High].
func (b Bounds) Contains(score float64) bool {
	n := b.normalized()
	return score >= n.Low && score <= n.High
}

// -----------------------------------------------------------------------------
// Record
// -----------------------------------------------------------------------------

// Record is one student's academic record.
//
// Description:
//
//	Record is a value type and immutable by convention: sorters and
//	searchers copy records around but never modify one. ID is the search
//	key and is expected, not enforced, to be unique within a collection.
//	Score is the ordering key and is always inside the bounds it was built
//	with.
type Record struct {
	// ID is the student id (matricula). Compared numerically.
	ID int `json:"id"`

	// Name is a display label. Not used for ordering, searching or equality.
	Name string `json:"name"`

	// Score is the grade-average.
	Score float64 `json:"score"`
}

// New builds a Record whose score is clamped into DefaultBounds.
//
// Example:
//
//	r := record.New(1001, "Ana_0", 104.5) // r.Score == 100
func New(id int, name string, score float64) Record {
	return NewWithBounds(id, name, score, DefaultBounds)
}

// NewWithBounds builds a Record whose score is clamped into b.
//
// Inputs:
//   - id: Student id.
//   - name: Display label.
//   - score: Raw score; clamped, never rejected.
//   - b: Valid score interval.
//
// Outputs:
//   - Record: Always valid.
func NewWithBounds(id int, name string, score float64, b Bounds) Record {
	return Record{
		ID:    id,
		Name:  name,
		Score: b.Clamp(score),
	}
}

// Equal reports whether two records have the same ID and Score.
//
// Name is deliberately left out: two records that differ only by name are
// equal.
func (r Record) Equal(other Record) bool {
	return r.ID == other.ID && r.Score == other.Score
}

// String renders the record the way the console listing shows it.
func (r Record) String() string {
	return fmt.Sprintf("[ID: %d | Score: %.2f] %s", r.ID, r.Score, r.Name)
}

// -----------------------------------------------------------------------------
// Collections
// -----------------------------------------------------------------------------

// Clone returns a copy of rs. A nil input yields an empty, non-nil slice.
func Clone(rs []Record) []Record {
	out := make([]Record, len(rs))
	copy(out, rs)
	return out
}

// IDs returns the ids of rs in order.
func IDs(rs []Record) []int {
	ids := make([]int, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

// Scores returns the scores of rs in order.
func Scores(rs []Record) []float64 {
	scores := make([]float64, len(rs))
	for i, r := range rs {
		scores[i] = r.Score
	}
	return scores
}
