// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eval is the evaluation framework shared by the benchmark harness
// and the correctness verifier: a registry of named algorithms plus the
// property and result types both consume.
package eval

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/AleutianAI/scholarbench/services/scholar/searcher"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound is returned when an algorithm is not in the registry.
	ErrNotFound = errors.New("algorithm not found")

	// ErrAlreadyRegistered is returned when attempting to register a duplicate.
	ErrAlreadyRegistered = errors.New("algorithm already registered")

	// ErrNilAlgorithm is returned when attempting to register nil.
	ErrNilAlgorithm = errors.New("algorithm must not be nil")

	// ErrInvalidProperty is returned when a property is malformed.
	ErrInvalidProperty = errors.New("invalid property definition")

	// ErrPropertyFailed is returned when a property check fails.
	ErrPropertyFailed = errors.New("property check failed")
)

// -----------------------------------------------------------------------------
// Kind
// -----------------------------------------------------------------------------

// Kind separates the two algorithm families.
type Kind int

const (
	// KindUnknown is the zero value.
	KindUnknown Kind = iota
	// KindSort ranks records by score.
	KindSort
	// KindSearch locates a record by id.
	KindSearch
)

// String returns the label used in metrics and tables.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindSort:
		return "sort"
	case KindSearch:
		return "search"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// MarshalText implements encoding.TextMarshaler so exports carry the label.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for stored results.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "sort":
		*k = KindSort
	case "search":
		*k = KindSearch
	case "unknown", "":
		*k = KindUnknown
	default:
		return fmt.Errorf("unknown algorithm kind %q", text)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Algorithm
// -----------------------------------------------------------------------------

// Algorithm is anything the harness can time and the verifier can check.
//
// Thread Safety: implementations must be safe for concurrent use.
type Algorithm interface {
	// Name is unique within a registry and used as a metric label.
	Name() string

	// Kind reports the algorithm family.
	Kind() Kind
}

// SortAlgorithm adapts a sorter.Sorter to Algorithm.
type SortAlgorithm struct {
	sorter.Sorter
}

// Kind implements Algorithm.
func (SortAlgorithm) Kind() Kind { return KindSort }

// SearchAlgorithm adapts a searcher.Searcher to Algorithm.
type SearchAlgorithm struct {
	searcher.Searcher
}

// Kind implements Algorithm.
func (SearchAlgorithm) Kind() Kind { return KindSearch }

// -----------------------------------------------------------------------------
// Property Definition
// -----------------------------------------------------------------------------

// Property defines a correctness invariant for testing.
//
// Example:
//
//	Property{
//	    Name:        "sort_descending",
//	    Description: "Output is non-increasing by score",
//	    Check:       func(input, output any) error { ... },
//	    Generator:   func() any { ... },
//	}
type Property struct {
	// Name is a unique identifier, lowercase with underscores.
	Name string

	// Description explains what this property verifies.
	Description string

	// Check verifies the property for one input. It runs the algorithm
	// itself when output is nil.
	//
	// Outputs:
	//   - error: nil if the property holds, descriptive error otherwise.
	Check func(input any, output any) error

	// Generator produces inputs for property testing. If nil, the property
	// can only be checked with explicit inputs.
	Generator func() any

	// Tags categorize this property for selective testing.
	// Examples: "critical", "boundary"
	Tags []string
}

// Validate checks that the property is well-formed.
func (p *Property) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProperty)
	}
	if p.Description == "" {
		return fmt.Errorf("%w: description is required for %s", ErrInvalidProperty, p.Name)
	}
	if p.Check == nil {
		return fmt.Errorf("%w: check function is required for %s", ErrInvalidProperty, p.Name)
	}
	return nil
}

// HasGenerator returns true if this property has an input generator.
func (p *Property) HasGenerator() bool {
	return p.Generator != nil
}

// HasTag returns true if this property has the specified tag.
func (p *Property) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// -----------------------------------------------------------------------------
// Verification Results
// -----------------------------------------------------------------------------

// VerifyResult contains the results of verifying one algorithm.
type VerifyResult struct {
	// Algorithm is the name of the algorithm that was verified.
	Algorithm string `json:"algorithm"`

	// Kind is the algorithm family.
	Kind Kind `json:"kind"`

	// Properties contains results for each property.
	Properties []PropertyResult `json:"properties"`

	// Duration is the total time spent verifying.
	Duration time.Duration `json:"duration_ns"`

	// Passed is true if all properties passed.
	Passed bool `json:"passed"`

	// Iterations is the total number of checks run.
	Iterations int `json:"iterations"`
}

// FailedProperties returns the properties that failed.
func (r *VerifyResult) FailedProperties() []PropertyResult {
	var failed []PropertyResult
	for _, pr := range r.Properties {
		if !pr.Passed {
			failed = append(failed, pr)
		}
	}
	return failed
}

// PropertyResult contains the result of verifying a single property.
type PropertyResult struct {
	// Name is the property name.
	Name string `json:"name"`

	// Passed is true if the property held for all inputs.
	Passed bool `json:"passed"`

	// Iterations is the number of checks run.
	Iterations int `json:"iterations"`

	// Duration is the time spent on this property.
	Duration time.Duration `json:"duration_ns"`

	// FailingInput is the first input that failed, if any.
	FailingInput any `json:"-"`

	// Error is the error returned by Check, if any.
	Error error `json:"-"`
}
