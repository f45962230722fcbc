// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package record

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ClampsScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  float64
	}{
		{"in range", 72.5, 72.5},
		{"low bound", 0, 0},
		{"high bound", 100, 100},
		{"below", -3, 0},
		{"above", 104.25, 100},
		{"positive infinity", math.Inf(1), 100},
		{"negative infinity", math.Inf(-1), 0},
		{"NaN", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(1001, "Ana_0", tt.score)
			assert.Equal(t, tt.want, r.Score)
			assert.Equal(t, 1001, r.ID)
			assert.Equal(t, "Ana_0", r.Name)
		})
	}
}

func TestNewWithBounds(t *testing.T) {
	gpa := Bounds{Low: 0, High: 3}

	assert.Equal(t, 3.0, NewWithBounds(1, "a", 3.7, gpa).Score)
	assert.Equal(t, 2.5, NewWithBounds(1, "a", 2.5, gpa).Score)
	assert.Equal(t, 0.0, NewWithBounds(1, "a", -0.1, gpa).Score)

	t.Run("inverted bounds are swapped", func(t *testing.T) {
		inverted := Bounds{Low: 3, High: 0}
		assert.Equal(t, 3.0, NewWithBounds(1, "a", 9, inverted).Score)
		assert.Equal(t, 0.0, NewWithBounds(1, "a", -9, inverted).Score)
	})
}

func TestBounds_Validate(t *testing.T) {
	require.NoError(t, DefaultBounds.Validate())
	require.NoError(t, Bounds{Low: 2, High: 2}.Validate())

	err := Bounds{Low: 5, High: 1}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidBounds))

	err = Bounds{Low: math.NaN(), High: 1}.Validate()
	assert.ErrorIs(t, err, ErrInvalidBounds)

	err = Bounds{Low: 0, High: math.Inf(1)}.Validate()
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestBounds_Contains(t *testing.T) {
	b := Bounds{Low: 60, High: 100}
	assert.True(t, b.Contains(60))
	assert.True(t, b.Contains(100))
	assert.False(t, b.Contains(59.99))
	assert.False(t, b.Contains(math.NaN()))
}

func TestRecord_Equal_IgnoresName(t *testing.T) {
	a := New(1001, "Ana", 2.5)
	b := New(1001, "Luis", 2.5)
	c := New(1001, "Ana", 2.6)
	d := New(1002, "Ana", 2.5)

	assert.True(t, a.Equal(b), "records differing only by name are equal")
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}

func TestRecord_String(t *testing.T) {
	r := New(1001, "Ana_0", 2.5)
	assert.Equal(t, "[ID: 1001 | Score: 2.50] Ana_0", r.String())
}

func TestClone(t *testing.T) {
	in := []Record{New(1, "a", 1), New(2, "b", 2)}
	out := Clone(in)
	require.Equal(t, in, out)

	out[0] = New(9, "z", 9)
	assert.Equal(t, 1, in[0].ID, "clone must not alias the input")

	empty := Clone(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestIDsScores(t *testing.T) {
	rs := []Record{New(1003, "c", 2.9), New(1001, "a", 2.5)}
	assert.Equal(t, []int{1003, 1001}, IDs(rs))
	assert.Equal(t, []float64{2.9, 2.5}, Scores(rs))
}
