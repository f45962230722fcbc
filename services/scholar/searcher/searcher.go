// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package searcher locates a record by id and counts the comparisons spent.
//
// A miss is a normal outcome and is reported through Result.Found, never as
// an error. Searchers never modify their input.
package searcher

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
	// ErrUnknownSearcher is returned by Lookup for a name with no algorithm.
	ErrUnknownSearcher = errors.New("unknown searcher")

	// ErrNotSortedByID is returned by Binary.SearchChecked when the input
	// is not ascending by id.
	ErrNotSortedByID = errors.New("records are not sorted by id")
)

// Algorithm names.
const (
	NameLinear = "linear"
	NameBinary = "binary"
)

// Result is the outcome of one search.
type Result struct {
	// Record is the match. Zero value when Found is false.
	Record record.Record `json:"record"`

	// Found reports whether a record with the id exists.
	Found bool `json:"found"`

	// Steps is the number of comparisons performed.
	Steps int `json:"steps"`
}

// NotFound returns a miss that took steps comparisons.
func NotFound(steps int) Result {
	return Result{Steps: steps}
}

// Searcher is one interchangeable lookup algorithm.
//
// Thread Safety: implementations are stateless and safe for concurrent use.
type Searcher interface {
	// Name is the stable identifier used in registries, metrics and tables.
	Name() string

	// RequiresSortedByID reports whether Search expects id-ascending input.
	// Callers that get this wrong receive an unspecified result.
	RequiresSortedByID() bool

	// Search returns the record with the given id, or a miss.
	Search(rs []record.Record, id int) Result
}

var builtin = map[string]Searcher{
	NameLinear: Linear{},
	NameBinary: Binary{},
}

// Lookup returns the searcher registered under name.
func Lookup(name string) (Searcher, error) {
	s, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSearcher, name)
	}
	return s, nil
}

// Names returns the built-in searcher names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every built-in searcher, ordered by name.
func All() []Searcher {
	names := Names()
	out := make([]Searcher, len(names))
	for i, name := range names {
		out[i] = builtin[name]
	}
	return out
}
