// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package correctness checks the sorters and searchers against the
// invariants every implementation must keep, using randomly generated
// record sets.
package correctness

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/AleutianAI/scholarbench/services/scholar/dataset"
	"github.com/AleutianAI/scholarbench/services/scholar/eval"
	"github.com/AleutianAI/scholarbench/services/scholar/policy"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
	"github.com/AleutianAI/scholarbench/services/scholar/searcher"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// Property tags.
const (
	TagCritical = "critical"
	TagBoundary = "boundary"
	TagPurity   = "purity"
	TagCost     = "cost"
)

// -----------------------------------------------------------------------------
// Property Errors
// -----------------------------------------------------------------------------

// PropertyError describes a single property violation.
//
// It wraps eval.ErrPropertyFailed so callers can match with errors.Is and
// still read the details with errors.As.
type PropertyError struct {
	// Property is the name of the violated property.
	Property string

	// Size is the length of the failing input.
	Size int

	// Reason says what was observed.
	Reason string
}

// Error implements error.
func (e *PropertyError) Error() string {
	return fmt.Sprintf("%s (n=%d): %s", e.Property, e.Size, e.Reason)
}

// Unwrap returns eval.ErrPropertyFailed.
func (e *PropertyError) Unwrap() error {
	return eval.ErrPropertyFailed
}

func violation(property string, rs []record.Record, format string, args ...any) error {
	return &PropertyError{Property: property, Size: len(rs), Reason: fmt.Sprintf(format, args...)}
}

// -----------------------------------------------------------------------------
// Input Generation
// -----------------------------------------------------------------------------

// InputSource produces one random record set per call.
type InputSource func() []record.Record

// RandomInputs returns an InputSource of record sets with 0..maxSize
// records. Scores are whole numbers in a narrow band so equal scores are
// common, which is what the stability check needs. A zero seed picks a
// random one.
func RandomInputs(seed uint64, maxSize int) InputSource {
	if seed == 0 {
		seed = rand.Uint64()
	}
	if maxSize < 0 {
		maxSize = 0
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	cfg := dataset.DefaultConfig()
	cfg.MinScore, cfg.MaxScore = 60, 70
	cfg.Decimals = 0
	cfg.Seed = seed
	gen := dataset.MustNew(cfg)

	return func() []record.Record {
		return gen.Generate(rng.IntN(maxSize + 1))
	}
}

// -----------------------------------------------------------------------------
// Sort Properties
// -----------------------------------------------------------------------------

// SortProperties returns the invariants of s.
//
// Description:
//
//	Every sorter must return a permutation of its input, ordered by score
//	descending, without touching the input, and sorting its own output
//	again must not change it. Stable sorters must also keep equal scores
//	in input order.
//
// Inputs:
//   - s: The sorter under test.
//   - inputs: Source of random inputs. Nil means RandomInputs(0, 64).
//
// Outputs:
//   - []eval.Property: Each Check accepts a []record.Record input. A nil
//     output means "run the sorter"; a []record.Record output is checked
//     as given.
func SortProperties(s sorter.Sorter, inputs InputSource) []eval.Property {
	if inputs == nil {
		inputs = RandomInputs(0, 64)
	}
	gen := func() any { return inputs() }

	sortOutput := func(input, output any) ([]record.Record, []record.Record, error) {
		in, ok := input.([]record.Record)
		if !ok {
			return nil, nil, fmt.Errorf("%w: input is %T, want []record.Record", eval.ErrInvalidProperty, input)
		}
		if output == nil {
			return in, s.Sort(in), nil
		}
		out, ok := output.([]record.Record)
		if !ok {
			return nil, nil, fmt.Errorf("%w: output is %T, want []record.Record", eval.ErrInvalidProperty, output)
		}
		return in, out, nil
	}

	props := []eval.Property{
		{
			Name:        "sort_permutation",
			Description: "Output holds exactly the input records",
			Tags:        []string{TagCritical},
			Generator:   gen,
			Check: func(input, output any) error {
				in, out, err := sortOutput(input, output)
				if err != nil {
					return err
				}
				if len(in) != len(out) {
					return violation("sort_permutation", in, "length %d, want %d", len(out), len(in))
				}
				if !sameMultiset(in, out) {
					return violation("sort_permutation", in, "output records differ from input records")
				}
				return nil
			},
		},
		{
			Name:        "sort_descending",
			Description: "Output is non-increasing by score",
			Tags:        []string{TagCritical},
			Generator:   gen,
			Check: func(input, output any) error {
				in, out, err := sortOutput(input, output)
				if err != nil {
					return err
				}
				if i := policy.FirstScoreViolation(out); i >= 0 {
					return violation("sort_descending", in, "score %.2f at %d precedes %.2f", out[i].Score, i, out[i+1].Score)
				}
				return nil
			},
		},
		{
			Name:        "sort_input_untouched",
			Description: "Sorting never reorders or rewrites the input",
			Tags:        []string{TagPurity},
			Generator:   gen,
			Check: func(input, _ any) error {
				in, ok := input.([]record.Record)
				if !ok {
					return fmt.Errorf("%w: input is %T, want []record.Record", eval.ErrInvalidProperty, input)
				}
				before := record.Clone(in)
				s.Sort(in)
				if !slices.Equal(before, in) {
					return violation("sort_input_untouched", in, "input was modified")
				}
				return nil
			},
		},
		{
			Name:        "sort_idempotent",
			Description: "Sorting sorted output keeps the score sequence",
			Tags:        []string{TagPurity},
			Generator:   gen,
			Check: func(input, output any) error {
				in, out, err := sortOutput(input, output)
				if err != nil {
					return err
				}
				again := s.Sort(out)
				if !slices.Equal(record.Scores(out), record.Scores(again)) {
					return violation("sort_idempotent", in, "second sort changed the score order")
				}
				return nil
			},
		},
		{
			Name:        "sort_boundaries",
			Description: "Empty and single-record inputs come back unchanged",
			Tags:        []string{TagBoundary},
			Generator:   func() any { return []record.Record{} },
			Check: func(_, _ any) error {
				if out := s.Sort(nil); len(out) != 0 {
					return violation("sort_boundaries", nil, "nil input gave %d records", len(out))
				}
				one := []record.Record{record.New(1001, "Ana_0", 88.5)}
				if out := s.Sort(one); !slices.Equal(one, out) {
					return violation("sort_boundaries", one, "single record came back as %v", out)
				}
				return nil
			},
		},
	}

	if s.Stable() {
		props = append(props, eval.Property{
			Name:        "sort_stable",
			Description: "Equal scores keep their input order",
			Tags:        []string{TagCritical},
			Generator:   gen,
			Check: func(input, output any) error {
				in, out, err := sortOutput(input, output)
				if err != nil {
					return err
				}
				want := record.Clone(in)
				slices.SortStableFunc(want, func(a, b record.Record) int { return cmp.Compare(b.Score, a.Score) })
				if !slices.Equal(record.IDs(want), record.IDs(out)) {
					return violation("sort_stable", in, "ties were reordered")
				}
				return nil
			},
		})
	}
	return props
}

// sameMultiset reports whether a and b hold the same records, ignoring
// order.
func sameMultiset(a, b []record.Record) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[record.Record]int, len(a))
	for _, r := range a {
		counts[r]++
	}
	for _, r := range b {
		counts[r]--
		if counts[r] < 0 {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Search Properties
// -----------------------------------------------------------------------------

// StepBound is the largest step count s may need on n records: n for a
// scan, ceil(log2 n)+1 for a bisection.
func StepBound(s searcher.Searcher, n int) int {
	if n <= 0 {
		return 0
	}
	if !s.RequiresSortedByID() {
		return n
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

// SearchProperties returns the invariants of s.
//
// Description:
//
//	Inputs are handed to s in the order it requires: searchers that need
//	id order receive an id-sorted copy. Each check searches for every
//	record in the input, so one iteration covers first, middle and last
//	positions.
//
// Inputs:
//   - s: The searcher under test.
//   - inputs: Source of random inputs. Nil means RandomInputs(0, 64).
func SearchProperties(s searcher.Searcher, inputs InputSource) []eval.Property {
	if inputs == nil {
		inputs = RandomInputs(0, 64)
	}
	gen := func() any { return inputs() }

	prepare := func(input any) ([]record.Record, error) {
		in, ok := input.([]record.Record)
		if !ok {
			return nil, fmt.Errorf("%w: input is %T, want []record.Record", eval.ErrInvalidProperty, input)
		}
		if s.RequiresSortedByID() {
			return policy.SortedByID(in), nil
		}
		return in, nil
	}

	return []eval.Property{
		{
			Name:        "search_finds_present",
			Description: "Every id in the input is found with its own record",
			Tags:        []string{TagCritical},
			Generator:   gen,
			Check: func(input, _ any) error {
				rs, err := prepare(input)
				if err != nil {
					return err
				}
				for i, want := range rs {
					res := s.Search(rs, want.ID)
					if !res.Found {
						return violation("search_finds_present", rs, "id %d at %d not found", want.ID, i)
					}
					if res.Record != want {
						return violation("search_finds_present", rs, "id %d returned %v", want.ID, res.Record)
					}
				}
				return nil
			},
		},
		{
			Name:        "search_absent_not_found",
			Description: "Ids outside the input are reported as not found",
			Tags:        []string{TagCritical, TagBoundary},
			Generator:   gen,
			Check: func(input, _ any) error {
				rs, err := prepare(input)
				if err != nil {
					return err
				}
				for _, id := range absentIDs(rs) {
					if res := s.Search(rs, id); res.Found {
						return violation("search_absent_not_found", rs, "absent id %d reported as found", id)
					}
				}
				return nil
			},
		},
		{
			Name:        "search_step_bound",
			Description: "Step counts stay within the algorithm's worst case",
			Tags:        []string{TagCost},
			Generator:   gen,
			Check: func(input, _ any) error {
				rs, err := prepare(input)
				if err != nil {
					return err
				}
				bound := StepBound(s, len(rs))
				ids := append(record.IDs(rs), absentIDs(rs)...)
				for _, id := range ids {
					res := s.Search(rs, id)
					if res.Steps > bound {
						return violation("search_step_bound", rs, "id %d took %d steps, bound %d", id, res.Steps, bound)
					}
					if len(rs) > 0 && res.Steps < 1 {
						return violation("search_step_bound", rs, "id %d reported %d steps on non-empty input", id, res.Steps)
					}
				}
				return nil
			},
		},
		{
			Name:        "search_input_untouched",
			Description: "Searching never modifies the input",
			Tags:        []string{TagPurity},
			Generator:   gen,
			Check: func(input, _ any) error {
				rs, err := prepare(input)
				if err != nil {
					return err
				}
				before := record.Clone(rs)
				if len(rs) > 0 {
					s.Search(rs, rs[len(rs)/2].ID)
				}
				if !slices.Equal(before, rs) {
					return violation("search_input_untouched", rs, "input was modified")
				}
				return nil
			},
		},
		{
			Name:        "search_empty_input",
			Description: "An empty input yields not found with zero steps",
			Tags:        []string{TagBoundary},
			Generator:   func() any { return []record.Record{} },
			Check: func(_, _ any) error {
				res := s.Search(nil, 1001)
				if res.Found || res.Steps != 0 {
					return violation("search_empty_input", nil, "got found=%v steps=%d", res.Found, res.Steps)
				}
				return nil
			},
		},
	}
}

// absentIDs returns ids just outside the range of rs and, when there is a
// gap, one inside it.
func absentIDs(rs []record.Record) []int {
	if len(rs) == 0 {
		return []int{0, 1001}
	}
	ids := record.IDs(rs)
	lo, hi := slices.Min(ids), slices.Max(ids)
	out := []int{lo - 1, hi + 1}
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for id := lo; id <= hi; id++ {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
			break
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Property Lookup
// -----------------------------------------------------------------------------

// ErrUnsupportedKind is returned by PropertiesFor for an algorithm kind
// with no invariants.
var ErrUnsupportedKind = errors.New("no properties for algorithm kind")

// PropertiesFor returns the properties of a registered algorithm.
func PropertiesFor(alg eval.Algorithm, inputs InputSource) ([]eval.Property, error) {
	switch a := alg.(type) {
	case sorter.Sorter:
		return SortProperties(a, inputs), nil
	case searcher.Searcher:
		return SearchProperties(a, inputs), nil
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedKind, alg.Name(), alg.Kind())
	}
}
