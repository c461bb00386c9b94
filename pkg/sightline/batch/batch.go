// Package batch drives the pipeline over many documents with a bounded
// worker pool. One misbehaving document never sinks the run: failures are
// logged and skipped, successes persist as they complete.
package batch

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/semaphore"

	"github.com/sightline/sightline/pkg/sightline/internalerr"
	"github.com/sightline/sightline/pkg/sightline/pipeline"
	"github.com/sightline/sightline/pkg/sightline/schema"
	"github.com/sightline/sightline/pkg/sightline/store"
)

// DefaultWorkers bounds pipeline concurrency when no worker count is given.
const DefaultWorkers = 4

// Summary is the accounting for one batch run. Processed counts documents
// whose record reached the store; the gap to Submitted is the skip count.
type Summary struct {
	RunID     string
	Submitted int
	Processed int
}

// Driver runs documents through a pipeline and persists the results.
type Driver struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	workers  int64
	logger   *log.Logger
}

// New creates a driver. workers <= 0 falls back to DefaultWorkers; a nil
// logger falls back to the standard logger.
func New(p *pipeline.Pipeline, st store.Store, workers int, logger *log.Logger) (*Driver, error) {
	if p == nil {
		return nil, fmt.Errorf("batch: %w: nil pipeline", internalerr.ErrInvalidInput)
	}
	if st == nil {
		return nil, fmt.Errorf("batch: %w: nil store", internalerr.ErrInvalidInput)
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{pipeline: p, store: st, workers: int64(workers), logger: logger}, nil
}

// Run processes every document, at most the configured number at a time.
// Each document is persisted as soon as its pipeline finishes, so partial
// progress survives an interrupted run. The run itself is recorded in the
// store before Run returns.
func (d *Driver) Run(ctx context.Context, docs []pipeline.Document) (Summary, error) {
	runID := ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String()
	started := time.Now().UTC()
	d.logger.Printf("run %s: processing %d documents with %d workers", runID, len(docs), d.workers)

	sem := semaphore.NewWeighted(d.workers)
	var processed atomic.Int64

	for _, doc := range docs {
		if err := sem.Acquire(ctx, 1); err != nil {
			d.logger.Printf("run %s: aborted: %v", runID, err)
			break
		}
		go func(doc pipeline.Document) {
			defer sem.Release(1)
			if d.processOne(ctx, runID, doc) {
				processed.Add(1)
			}
		}(doc)
	}

	// Drain: a full acquire only succeeds once every worker has released.
	if err := sem.Acquire(context.Background(), d.workers); err == nil {
		sem.Release(d.workers)
	}

	summary := Summary{RunID: runID, Submitted: len(docs), Processed: int(processed.Load())}
	run := store.Run{
		ID:         runID,
		Submitted:  summary.Submitted,
		Processed:  summary.Processed,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if err := d.store.RecordRun(ctx, run); err != nil {
		return summary, fmt.Errorf("record run %s: %w", runID, err)
	}
	d.logger.Printf("run %s: processed %d/%d documents", runID, summary.Processed, summary.Submitted)
	return summary, nil
}

// processOne runs a single document end to end and reports whether its
// record was persisted. Panics inside the pipeline are contained here.
func (d *Driver) processOne(ctx context.Context, runID string, doc pipeline.Document) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("run %s: document %s: panic recovered: %v", runID, doc.UID, r)
			ok = false
		}
	}()

	res := d.pipeline.Process(ctx, doc)
	for _, issue := range res.Issues {
		d.logger.Printf("run %s: document %s: %s", runID, doc.UID, issue)
	}
	if res.Record[schema.FieldProjectName] == "" {
		d.logger.Printf("run %s: document %s: no project name extracted, skipping", runID, doc.UID)
		return false
	}
	if err := d.store.UpsertProject(ctx, store.Project(res.Record)); err != nil {
		d.logger.Printf("run %s: document %s: upsert failed: %v", runID, doc.UID, err)
		return false
	}
	return true
}
