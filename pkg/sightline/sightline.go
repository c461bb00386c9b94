package sightline

import (
	"context"
	"log"

	"github.com/sightline/sightline/pkg/sightline/batch"
	"github.com/sightline/sightline/pkg/sightline/pipeline"
	"github.com/sightline/sightline/pkg/sightline/schema"
	"github.com/sightline/sightline/pkg/sightline/store"
)

// Sightline is the main extraction engine facade
type Sightline struct {
	schema *schema.Schema
	store  store.Store
	driver *batch.Driver
}

// Options configures a Sightline instance
type Options struct {
	Schema   *schema.Schema
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Workers  int
	Logger   *log.Logger
}

// New creates a Sightline instance with the given dependencies
func New(opts Options) (*Sightline, error) {
	driver, err := batch.New(opts.Pipeline, opts.Store, opts.Workers, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Sightline{
		schema: opts.Schema,
		store:  opts.Store,
		driver: driver,
	}, nil
}

// Close cleanly shuts down the Sightline instance
func (s *Sightline) Close() error {
	return s.store.Close()
}

// Schema returns the field schema the engine was built with.
func (s *Sightline) Schema() *schema.Schema {
	return s.schema
}

// ProcessBatch runs the documents through the pipeline and persists the
// extracted records.
func (s *Sightline) ProcessBatch(ctx context.Context, docs []pipeline.Document) (batch.Summary, error) {
	return s.driver.Run(ctx, docs)
}

// Projects returns every stored project record.
func (s *Sightline) Projects(ctx context.Context) ([]store.Project, error) {
	return s.store.Projects(ctx)
}

// Runs returns past batch runs, most recent first.
func (s *Sightline) Runs(ctx context.Context) ([]store.Run, error) {
	return s.store.Runs(ctx)
}
