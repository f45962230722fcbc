// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset generates synthetic student records for the interactive
// session and the benchmark sweep.
//
// # Shape
//
// Record i (0-based, before shuffling) gets id IDOffset+i, a name drawn from
// Names with an optional "_i" suffix, and a score drawn uniformly from
// [MinScore, MaxScore] rounded to Decimals places. The slice is then
// shuffled so that neither key arrives in order.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/AleutianAI/scholarbench/services/scholar/record"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid dataset config")
)

// DefaultNames are the first names records are labelled with.
var DefaultNames = []string{
	"Ana", "Luis", "Pepe", "Maria", "Juan",
	"Sofia", "Carlos", "Fernanda", "Diego", "Lucia",
}

// Config controls generation.
type Config struct {
	// IDOffset is the id of the first generated record. Default: 1000.
	IDOffset int `yaml:"id_offset" json:"id_offset" validate:"gte=0"`

	// MinScore is the low end of the score distribution. Default: 60.
	MinScore float64 `yaml:"min_score" json:"min_score"`

	// MaxScore is the high end of the score distribution. Default: 100.
	MaxScore float64 `yaml:"max_score" json:"max_score" validate:"gtefield=MinScore"`

	// Names are sampled uniformly for each record. Default: DefaultNames.
	Names []string `yaml:"names" json:"names" validate:"min=1,dive,required"`

	// Decimals is how many decimal places scores are rounded to. Default: 2.
	Decimals int `yaml:"decimals" json:"decimals" validate:"gte=0,lte=6"`

	// Suffix appends "_i" to each name so labels are unique. Default: true.
	Suffix bool `yaml:"suffix" json:"suffix"`

	// Shuffle randomizes the output order. Default: true.
	Shuffle bool `yaml:"shuffle" json:"shuffle"`

	// Seed makes generation reproducible when non-zero. Zero means a fresh
	// random source per generator.
	Seed uint64 `yaml:"seed" json:"seed"`

	// Bounds are the record bounds scores are clamped into. Default:
	// record.DefaultBounds.
	Bounds record.Bounds `yaml:"bounds" json:"bounds"`
}

// DefaultConfig returns the configuration the interactive session starts
// with.
func DefaultConfig() Config {
	return Config{
		IDOffset: 1000,
		MinScore: 60,
		MaxScore: 100,
		Names:    append([]string(nil), DefaultNames...),
		Decimals: 2,
		Suffix:   true,
		Shuffle:  true,
		Bounds:   record.DefaultBounds,
	}
}

// Validate checks the configuration.
//
// Outputs:
//   - error: nil if valid, otherwise every problem joined and wrapped in
//     ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if c.IDOffset < 0 {
		errs = append(errs, fmt.Errorf("id_offset must be >= 0, got %d", c.IDOffset))
	}
	if math.IsNaN(c.MinScore) || math.IsNaN(c.MaxScore) || c.MinScore > c.MaxScore {
		errs = append(errs, fmt.Errorf("score range [%v, %v] is empty", c.MinScore, c.MaxScore))
	}
	if len(c.Names) == 0 {
		errs = append(errs, errors.New("names must not be empty"))
	}
	if c.Decimals < 0 || c.Decimals > 6 {
		errs = append(errs, fmt.Errorf("decimals must be in [0, 6], got %d", c.Decimals))
	}
	if err := c.Bounds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Generator
// -----------------------------------------------------------------------------

// Generator produces record slices from a Config.
//
// Thread Safety: not safe for concurrent use. The random source is shared
// between calls so that two consecutive Generate calls differ.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New creates a generator.
//
// Outputs:
//   - *Generator: Ready to use. Nil on error.
//   - error: Wrapped ErrInvalidConfig.
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x5bd1e9955bd1e995)),
	}, nil
}

// MustNew is New that panics on an invalid config. For tests and defaults.
func MustNew(cfg Config) *Generator {
	g, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return g
}

// Config returns the generator's configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate returns exactly n records. n <= 0 yields an empty slice.
func (g *Generator) Generate(n int) []record.Record {
	if n <= 0 {
		return []record.Record{}
	}
	rs := make([]record.Record, n)
	for i := range rs {
		rs[i] = record.NewWithBounds(g.cfg.IDOffset+i, g.name(i), g.score(), g.cfg.Bounds)
	}
	if g.cfg.Shuffle {
		g.rng.Shuffle(n, func(i, j int) { rs[i], rs[j] = rs[j], rs[i] })
	}
	return rs
}

func (g *Generator) name(i int) string {
	base := g.cfg.Names[g.rng.IntN(len(g.cfg.Names))]
	if !g.cfg.Suffix {
		return base
	}
	return base + "_" + strconv.Itoa(i)
}

func (g *Generator) score() float64 {
	span := g.cfg.MaxScore - g.cfg.MinScore
	raw := g.cfg.MinScore + g.rng.Float64()*span
	scale := math.Pow10(g.cfg.Decimals)
	return math.Round(raw*scale) / scale
}
