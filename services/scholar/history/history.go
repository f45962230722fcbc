// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history keeps finished benchmark sweeps in an embedded BadgerDB
// so runs can be listed and compared later.
//
// Only sweep results are stored. Datasets are regenerated on every run and
// never persisted.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/scholarbench/services/scholar/eval/benchmark"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound is returned when no stored sweep matches a run id.
	ErrNotFound = errors.New("sweep not found")

	// ErrAmbiguous is returned when a run id prefix matches several sweeps.
	ErrAmbiguous = errors.New("run id prefix matches more than one sweep")

	// ErrNoRunID is returned when saving a sweep without a run id.
	ErrNoRunID = errors.New("sweep has no run id")
)

// keyPrefix namespaces sweep entries.
const keyPrefix = "sweep/"

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config configures a Store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. For tests.
	InMemory bool

	// SyncWrites fsyncs every commit. Default: true.
	SyncWrites bool

	// Logger receives BadgerDB's own log lines. Nil silences them.
	Logger *slog.Logger
}

// DefaultConfig returns a durable configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// badgerLogger adapts slog to BadgerDB's logger interface. BadgerDB info
// lines are demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// -----------------------------------------------------------------------------
// Store
// -----------------------------------------------------------------------------

// Summary is the listing view of a stored sweep.
type Summary struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	Sizes        []int         `json:"sizes"`
	Algorithms   []string      `json:"algorithms"`
	Measurements int           `json:"measurements"`
	Skipped      int           `json:"skipped"`
}

func summarize(r *benchmark.SweepResult) Summary {
	measured, skipped := r.Counts()
	return Summary{
		RunID:        r.RunID,
		StartedAt:    r.StartedAt,
		Duration:     r.Duration,
		Sizes:        slices.Clone(r.Sizes),
		Algorithms:   slices.Clone(r.Order),
		Measurements: measured,
		Skipped:      skipped,
	}
}

// Store persists sweep results.
//
// Thread Safety: Safe for concurrent use; BadgerDB serializes writers.
type Store struct {
	db *badger.DB
}

// Open opens or creates the store.
//
// Outputs:
//   - *Store: Caller must Close it.
//   - error: Non-nil if the directory cannot be created or the database
//     is locked by another process.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("history path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores r under its run id, replacing an earlier copy.
func (s *Store) Save(r *benchmark.SweepResult) error {
	if r == nil || r.RunID == "" {
		return ErrNoRunID
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding sweep %s: %w", r.RunID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+r.RunID), data)
	})
}

// Get returns the sweep whose run id is id or starts with id.
//
// Outputs:
//   - error: ErrNotFound, or ErrAmbiguous when a prefix matches several.
func (s *Store) Get(id string) (*benchmark.SweepResult, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	var (
		found   *benchmark.SweepResult
		matches int
	)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix + id)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			matches++
			if matches > 1 {
				return nil
			}
			err := it.Item().Value(func(val []byte) error {
				found = &benchmark.SweepResult{}
				return json.Unmarshal(val, found)
			})
			if err != nil {
				return fmt.Errorf("decoding sweep %s: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
	switch {
	case err != nil:
		return nil, err
	case matches == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case matches > 1:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
	return found, nil
}

// List returns summaries of stored sweeps, newest first. A limit of zero
// or less returns all of them.
func (s *Store) List(limit int) ([]Summary, error) {
	var out []Summary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var r benchmark.SweepResult
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &r) }); err != nil {
				return fmt.Errorf("decoding sweep %s: %w", it.Item().Key(), err)
			}
			out = append(out, summarize(&r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b Summary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes the sweep matching id (or a unique prefix of it).
func (s *Store) Delete(id string) error {
	r, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + r.RunID))
	})
}
