// Package processor pulls jobs from the queue and executes them.
//
// Dispatch is by job type through the Handler interface: one method per job
// type, so a new type without a handler fails to compile instead of failing
// at runtime. The processor is the final backstop for errors — no handler
// failure (or panic) ever crosses into the scheduling loop; it becomes a
// failed job record instead.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/queue"
)

// Handler executes domain operations, one method per job type.
type Handler interface {
	ProcessFile(ctx context.Context, job *models.Job) error
	ExtractConcepts(ctx context.Context, job *models.Job) error
	AnalyzeMarket(ctx context.Context, job *models.Job) error
	GenerateAsset(ctx context.Context, job *models.Job) error
	GenerateVisualization(ctx context.Context, job *models.Job) error
}

// Processor executes queued jobs.
type Processor struct {
	queue   *queue.Queue
	handler Handler
}

// New creates a processor over the queue with the given handler.
func New(q *queue.Queue, h Handler) *Processor {
	return &Processor{queue: q, handler: h}
}

// ProcessNext dequeues and executes one job. Returns false when the queue
// has no pending work. Once a job was taken it always returns true, whether
// the job succeeded or failed: execution errors terminate the job record,
// not the caller.
func (p *Processor) ProcessNext(ctx context.Context) (bool, error) {
	job, err := p.queue.Dequeue(ctx)
	if err != nil {
		return false, fmt.Errorf("process next: %w", err)
	}
	if job == nil {
		return false, nil
	}

	// Early low-percentage update so pollers see movement before the domain
	// operation posts its own finer-grained progress.
	if err := p.queue.UpdateProgress(ctx, job.ID, 5, "starting"); err != nil {
		slog.Warn("failed to post starting progress", "job_id", job.ID, "error", err)
	}

	if err := p.run(ctx, job); err != nil {
		if failErr := p.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			slog.Error("failed to record job failure", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := p.queue.Complete(ctx, job.ID); err != nil {
		slog.Error("failed to record job completion", "job_id", job.ID, "error", err)
	}
	return true, nil
}

// run dispatches the job and converts panics into errors.
func (p *Processor) run(ctx context.Context, job *models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job handler panicked", "job_id", job.ID, "type", job.Type, "panic", r)
			err = fmt.Errorf("internal panic: %v", r)
		}
	}()

	switch job.Type {
	case models.JobFileProcessing:
		return p.handler.ProcessFile(ctx, job)
	case models.JobConceptExtraction:
		return p.handler.ExtractConcepts(ctx, job)
	case models.JobMarketAnalysis:
		return p.handler.AnalyzeMarket(ctx, job)
	case models.JobAssetGeneration:
		return p.handler.GenerateAsset(ctx, job)
	case models.JobVisualization:
		return p.handler.GenerateVisualization(ctx, job)
	default:
		// Unreachable for jobs created through Enqueue, which validates the
		// type. Records written by older versions still terminate cleanly.
		return fmt.Errorf("no handler for job type %q", job.Type)
	}
}

// ProcessAll drains the queue, returning how many jobs were taken. A failure
// in one iteration never aborts the loop; ProcessNext already converts
// execution errors into failed jobs, so the catch here is a permissive
// backstop for queue-level errors.
func (p *Processor) ProcessAll(ctx context.Context) int {
	count := 0
	for {
		took, err := p.ProcessNext(ctx)
		if err != nil {
			slog.Error("process iteration failed", "error", err)
			count++
			continue
		}
		if !took {
			return count
		}
		count++
	}
}

// StartLoop polls the queue every interval: after each ProcessNext attempt,
// found work or not, the next attempt is scheduled. The returned stop
// function prevents further rescheduling; it does not interrupt a job that
// is already executing.
func (p *Processor) StartLoop(ctx context.Context, interval time.Duration) (stop func()) {
	loopCtx, cancel := context.WithCancel(ctx)
	go func() {
		timer := time.NewTimer(0) // first attempt immediately
		defer timer.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-timer.C:
			}
			if _, err := p.ProcessNext(loopCtx); err != nil && loopCtx.Err() == nil {
				slog.Error("processing tick failed", "error", err)
			}
			timer.Reset(interval)
		}
	}()
	slog.Info("processing loop started", "interval", interval)
	return cancel
}
