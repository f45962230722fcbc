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
	"fmt"
	"sort"
	"sync"

	"github.com/AleutianAI/scholarbench/services/scholar/searcher"
	"github.com/AleutianAI/scholarbench/services/scholar/sorter"
)

// Registry holds the algorithms available to the harness and the verifier.
//
// Description:
//
//	New algorithms are added by registering them; callers select them by
//	name without knowing the concrete type.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu         sync.RWMutex
	algorithms map[string]Algorithm
}

// NewRegistry creates a new empty registry.
//
// Outputs:
//   - *Registry: The new registry. Never nil.
func NewRegistry() *Registry {
	return &Registry{
		algorithms: make(map[string]Algorithm),
	}
}

// NewDefaultRegistry creates a registry holding every built-in sorter and
// searcher.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range sorter.All() {
		r.MustRegister(SortAlgorithm{Sorter: s})
	}
	for _, s := range searcher.All() {
		r.MustRegister(SearchAlgorithm{Searcher: s})
	}
	return r
}

// Register adds an algorithm under its Name().
//
// Outputs:
//   - error: nil on success, ErrNilAlgorithm if algorithm is nil,
//     ErrAlreadyRegistered if the name is taken.
//
// Thread Safety: Safe for concurrent use.
func (r *Registry) Register(algorithm Algorithm) error {
	if algorithm == nil {
		return ErrNilAlgorithm
	}

	name := algorithm.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.algorithms[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	r.algorithms[name] = algorithm
	return nil
}

// MustRegister registers an algorithm and panics on error. Startup only.
func (r *Registry) MustRegister(algorithm Algorithm) {
	if err := r.Register(algorithm); err != nil {
		panic(fmt.Sprintf("eval: failed to register algorithm: %v", err))
	}
}

// Get retrieves an algorithm by name.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	if alg, ok := registry.Get("merge"); ok {
//	    // Use alg
//	}
func (r *Registry) Get(name string) (Algorithm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	algorithm, exists := r.algorithms[name]
	return algorithm, exists
}

// List returns all registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.algorithms))
	for name := range r.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListKind returns the sorted names of algorithms of one kind.
func (r *Registry) ListKind(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, algorithm := range r.algorithms {
		if algorithm.Kind() == kind {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Sorter returns the sorter registered under name.
//
// Outputs:
//   - sorter.Sorter: The sorter. Nil on error.
//   - error: ErrNotFound if the name is unknown or is not a sorter.
func (r *Registry) Sorter(name string) (sorter.Sorter, error) {
	algorithm, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s, ok := algorithm.(sorter.Sorter)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s algorithm", ErrNotFound, name, algorithm.Kind())
	}
	return s, nil
}

// Searcher returns the searcher registered under name.
func (r *Registry) Searcher(name string) (searcher.Searcher, error) {
	algorithm, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s, ok := algorithm.(searcher.Searcher)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s algorithm", ErrNotFound, name, algorithm.Kind())
	}
	return s, nil
}

// Sorters returns every registered sorter, ordered by name.
func (r *Registry) Sorters() []sorter.Sorter {
	var out []sorter.Sorter
	for _, name := range r.ListKind(KindSort) {
		if s, err := r.Sorter(name); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// Searchers returns every registered searcher, ordered by name.
func (r *Registry) Searchers() []searcher.Searcher {
	var out []searcher.Searcher
	for _, name := range r.ListKind(KindSearch) {
		if s, err := r.Searcher(name); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Default Registry
// -----------------------------------------------------------------------------

// DefaultRegistry holds the built-in algorithms.
var DefaultRegistry = NewDefaultRegistry()
