// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/scholarbench/services/scholar/record"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// reverseSorter is a deliberately wrong sorter used to exercise registration.
type reverseSorter struct{}

func (reverseSorter) Name() string { return "reverse" }
func (reverseSorter) Stable() bool { return false }
func (reverseSorter) Sort(rs []record.Record) []record.Record {
	out := record.Clone(rs)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	assert.Equal(t, []string{"binary", "linear", "merge", "selection"}, r.List())
	assert.Equal(t, []string{"merge", "selection"}, r.ListKind(KindSort))
	assert.Equal(t, []string{"binary", "linear"}, r.ListKind(KindSearch))

	require.Len(t, r.Sorters(), 2)
	assert.Equal(t, "merge", r.Sorters()[0].Name())
	require.Len(t, r.Searchers(), 2)
	assert.Equal(t, "binary", r.Searchers()[0].Name())
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(SortAlgorithm{Sorter: reverseSorter{}}))
	err := r.Register(SortAlgorithm{Sorter: reverseSorter{}})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	assert.ErrorIs(t, r.Register(nil), ErrNilAlgorithm)
	assert.Panics(t, func() { r.MustRegister(SortAlgorithm{Sorter: reverseSorter{}}) })

	got, ok := r.Get("reverse")
	require.True(t, ok)
	assert.Equal(t, KindSort, got.Kind())
}

func TestRegistry_TypedLookup(t *testing.T) {
	r := NewDefaultRegistry()

	s, err := r.Sorter("merge")
	require.NoError(t, err)
	assert.Equal(t, sorter.NameMerge, s.Name())

	_, err = r.Sorter("binary")
	assert.ErrorIs(t, err, ErrNotFound, "a searcher is not a sorter")

	_, err = r.Sorter("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	b, err := r.Searcher("binary")
	require.NoError(t, err)
	assert.True(t, b.RequiresSortedByID())

	_, err = r.Searcher("merge")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "sort", KindSort.String())
	assert.Equal(t, "search", KindSearch.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "kind(9)", Kind(9).String())

	text, err := KindSearch.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "search", string(text))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("sort")))
	assert.Equal(t, KindSort, k)
	assert.Error(t, k.UnmarshalText([]byte("shuffle")))
}

func TestProperty_Validate(t *testing.T) {
	p := Property{}
	assert.ErrorIs(t, p.Validate(), ErrInvalidProperty)

	p.Name = "x"
	assert.ErrorIs(t, p.Validate(), ErrInvalidProperty)

	p.Description = "x holds"
	assert.ErrorIs(t, p.Validate(), ErrInvalidProperty)

	p.Check = func(any, any) error { return nil }
	assert.NoError(t, p.Validate())
	assert.False(t, p.HasGenerator())

	p.Tags = []string{"critical"}
	assert.True(t, p.HasTag("critical"))
	assert.False(t, p.HasTag("boundary"))
}

func TestVerifyResult_FailedProperties(t *testing.T) {
	r := &VerifyResult{Properties: []PropertyResult{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false},
	}}
	failed := r.FailedProperties()
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].Name)
}
