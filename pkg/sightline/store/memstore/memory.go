// Package memstore is an in-memory implementation of store.Store for tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sightline/sightline/pkg/sightline/internalerr"
	"github.com/sightline/sightline/pkg/sightline/schema"
	"github.com/sightline/sightline/pkg/sightline/store"
)

// Store keeps projects and runs in maps guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	projects map[string]store.Project
	runs     []store.Run
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{projects: make(map[string]store.Project)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertProject inserts or replaces a project keyed by project name.
func (s *Store) UpsertProject(ctx context.Context, p store.Project) error {
	name := p[schema.FieldProjectName]
	if name == "" {
		return fmt.Errorf("upsert project: %w: missing %s", internalerr.ErrInvalidInput, schema.FieldProjectName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := store.Project{}
	for k, v := range s.projects[name] {
		merged[k] = v
	}
	for k, v := range p {
		merged[k] = v
	}
	s.projects[name] = merged
	return nil
}

// Projects returns all stored projects sorted by project name.
func (s *Store) Projects(ctx context.Context) ([]store.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.projects))
	for name := range s.projects {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]store.Project, 0, len(names))
	for _, name := range names {
		p := store.Project{}
		for k, v := range s.projects[name] {
			p[k] = v
		}
		out = append(out, p)
	}
	return out, nil
}

// RecordRun appends a run record.
func (s *Store) RecordRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, r)
	return nil
}

// Runs returns recorded runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Run, len(s.runs))
	for i, r := range s.runs {
		out[len(s.runs)-1-i] = r
	}
	return out, nil
}
