// Package store defines the persistence gateway for validated project
// records and batch-run accounting.
package store

import (
	"context"
	"time"
)

// Project is a validated record, field name to normalized value.
type Project map[string]string

// Run records one batch invocation.
type Run struct {
	ID         string
	Submitted  int
	Processed  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is the persistence gateway. Writes are idempotent: projects are
// upserted by project name, so write ordering across concurrent documents
// is immaterial.
type Store interface {
	Close() error

	// UpsertProject inserts or updates a project row keyed by project name.
	UpsertProject(ctx context.Context, p Project) error
	// Projects returns all persisted project rows.
	Projects(ctx context.Context) ([]Project, error)

	// RecordRun persists batch-run accounting.
	RecordRun(ctx context.Context, r Run) error
	// Runs returns recorded batch runs, most recent first.
	Runs(ctx context.Context) ([]Run, error)
}
