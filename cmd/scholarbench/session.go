// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/scholarbench/services/scholar/eval/benchmark"
	"github.com/AleutianAI/scholarbench/services/scholar/policy"
	"github.com/AleutianAI/scholarbench/services/scholar/record"
	"github.com/AleutianAI/scholarbench/services/scholar/searcher"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// ErrInvalidSize is returned when a dataset size is not positive.
var ErrInvalidSize = errors.New("dataset size must be greater than zero")

// SearchOutcome is one searcher's answer for the session's current data.
type SearchOutcome struct {
	Method  string          `json:"method"`
	Result  searcher.Result `json:"result"`
	Elapsed time.Duration   `json:"elapsed_ns"`
}

// RankOutcome is the result of ranking the current data.
type RankOutcome struct {
	Algorithm  string          `json:"algorithm"`
	Elapsed    time.Duration   `json:"elapsed_ns"`
	AllocBytes uint64          `json:"alloc_bytes"`
	Top        []record.Record `json:"top"`
}

// Session owns the current dataset of an interactive run.
//
// The dataset is replaced by single assignment: Regenerate and Rank swap
// in a new slice, and the algorithms only ever receive copies.
type Session struct {
	gen       benchmark.Generator
	meter     benchmark.Meter
	searchers []searcher.Searcher
	records   []record.Record
}

// NewSession generates the initial dataset of size records.
func NewSession(gen benchmark.Generator, meter benchmark.Meter, size int) (*Session, error) {
	if meter == nil {
		meter = benchmark.WallClock{}
	}
	s := &Session{
		gen:       gen,
		meter:     meter,
		searchers: []searcher.Searcher{searcher.Linear{}, searcher.Binary{}},
	}
	if err := s.Regenerate(size); err != nil {
		return nil, err
	}
	return s, nil
}

// Records returns the current dataset. Callers must not modify it.
func (s *Session) Records() []record.Record {
	return s.records
}

// Len returns the size of the current dataset.
func (s *Session) Len() int {
	return len(s.records)
}

// Regenerate replaces the dataset with n fresh records.
func (s *Session) Regenerate(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, n)
	}
	s.records = s.gen.Generate(n)
	return nil
}

// SetGenerator replaces the generator used by later Regenerate calls. The
// current dataset is kept.
func (s *Session) SetGenerator(gen benchmark.Generator) {
	s.gen = gen
}

// Preview returns the first n records and how many more are hidden.
func (s *Session) Preview(n int) ([]record.Record, int) {
	if n < 0 {
		n = 0
	}
	if n >= len(s.records) {
		return s.records, 0
	}
	return s.records[:n], len(s.records) - n
}

// Rank orders the dataset by score with srt, replaces the current
// dataset with the result and returns the top records.
func (s *Session) Rank(srt sorter.Sorter, top int) RankOutcome {
	m, sorted := benchmark.MeasureSort(s.meter, srt, s.records)
	s.records = sorted
	shown, _ := s.Preview(top)
	return RankOutcome{
		Algorithm:  srt.Name(),
		Elapsed:    m.Elapsed,
		AllocBytes: m.AllocBytes,
		Top:        record.Clone(shown),
	}
}

// Search looks id up with every session searcher. Searchers that need id
// order get an id-sorted copy, built outside the timed window.
func (s *Session) Search(id int) []SearchOutcome {
	var byID []record.Record
	out := make([]SearchOutcome, 0, len(s.searchers))
	for _, srch := range s.searchers {
		data := s.records
		if srch.RequiresSortedByID() {
			if byID == nil {
				byID = policy.SortedByID(s.records)
			}
			data = byID
		}
		m, res := benchmark.MeasureSearch(s.meter, srch, data, id)
		out = append(out, SearchOutcome{
			Method:  srch.Name(),
			Result:  res,
			Elapsed: m.Elapsed,
		})
	}
	return out
}
