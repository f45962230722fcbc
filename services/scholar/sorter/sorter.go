// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sorter ranks records by score, highest first.
//
// # Contract
//
// Every Sorter returns a new slice holding the same records ordered by
// Score descending. The input slice is never reordered or written to. There
// is no error path: empty and single-element inputs come back as an
// equivalent trivial output.
//
// # Algorithms
//
//	name        time      extra space   stable
//	selection   O(n²)     O(1)          no
//	merge       O(n log n) O(n)         yes
//
// Selection is the baseline; the benchmark sweep caps it at large sizes.
package sorter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AleutianAI/scholarbench/services/scholar/record"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrUnknownSorter is returned by Lookup for a name with no algorithm.
	ErrUnknownSorter = errors.New("unknown sorter")
)

// Algorithm names.
const (
	NameSelection = "selection"
	NameMerge     = "merge"
)

// Sorter is one interchangeable ranking algorithm.
//
// Thread Safety: implementations are stateless and safe for concurrent use.
type Sorter interface {
	// Name is the stable identifier used in registries, metrics and tables.
	Name() string

	// Stable reports whether equal scores keep their input order.
	Stable() bool

	// Sort returns a new slice ordered by score descending.
	Sort(rs []record.Record) []record.Record
}

var builtin = map[string]Sorter{
	NameSelection: Selection{},
	NameMerge:     Merge{},
}

// Lookup returns the sorter registered under name.
//
// Outputs:
//   - Sorter: The algorithm. Nil on error.
//   - error: ErrUnknownSorter (wrapped with the name) if name is not known.
func Lookup(name string) (Sorter, error) {
	s, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSorter, name)
	}
	return s, nil
}

// Names returns the built-in sorter names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every built-in sorter, ordered by name.
func All() []Sorter {
	names := Names()
	out := make([]Sorter, len(names))
	for i, name := range names {
		out[i] = builtin[name]
	}
	return out
}
