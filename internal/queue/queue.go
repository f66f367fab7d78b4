// Package queue provides the persisted job queue.
//
// The queue exclusively owns job records in the store. Producers enqueue
// pending jobs; the processor takes them via Dequeue, which is the only path
// to the running state, and moves them to exactly one terminal state.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/store"
)

// ErrNotFound mirrors the store sentinel so callers need only one import.
var ErrNotFound = store.ErrNotFound

// Queue is a persisted FIFO work-list over the jobs table.
type Queue struct {
	store *store.Store
}

// New creates a queue over the given store.
func New(s *store.Store) *Queue {
	return &Queue{store: s}
}

// Enqueue creates and persists a pending job with progress 0.
//
// No deduplication happens here: two pending jobs for the same target are
// allowed, and it is the caller's responsibility to avoid them if undesired.
func (q *Queue) Enqueue(ctx context.Context, jobType models.JobType, targetID string) (*models.Job, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("unknown job type: %s", jobType)
	}
	job := &models.Job{
		ID:        models.ShortID(),
		Type:      jobType,
		Status:    models.JobStatusPending,
		TargetID:  targetID,
		Progress:  0,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Put(q.store, store.TableJobs, job.ID, job); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	slog.Info("job enqueued", "job_id", job.ID, "type", jobType, "target_id", targetID)
	return job, nil
}

// Dequeue atomically takes the oldest pending job: it is selected by
// CreatedAt, flipped to running, and stamped with StartedAt inside a single
// transaction. Returns (nil, nil) when no pending job exists. Concurrent
// callers never receive the same job; a conflicting commit is retried
// against fresh state.
//
// Note: nothing here guards against two jobs for the same target running at
// once. That matches the producer-side contract above.
func (q *Queue) Dequeue(ctx context.Context) (*models.Job, error) {
	for {
		job, err := q.tryDequeue()
		if errors.Is(err, badger.ErrConflict) {
			continue // another caller won the race; re-read and pick again
		}
		if err != nil {
			return nil, fmt.Errorf("dequeue: %w", err)
		}
		if job != nil {
			slog.Info("job dequeued", "job_id", job.ID, "type", job.Type, "target_id", job.TargetID)
		}
		return job, nil
	}
}

func (q *Queue) tryDequeue() (*models.Job, error) {
	var taken *models.Job
	err := q.store.Update(func(txn *badger.Txn) error {
		oldest, err := oldestPending(txn)
		if err != nil || oldest == nil {
			return err
		}
		now := time.Now().UTC()
		oldest.Status = models.JobStatusRunning
		oldest.StartedAt = &now
		data, err := json.Marshal(oldest)
		if err != nil {
			return fmt.Errorf("encode job %s: %w", oldest.ID, err)
		}
		if err := txn.Set(jobKey(oldest.ID), data); err != nil {
			return err
		}
		taken = oldest
		return nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

func jobKey(id string) []byte {
	k := make([]byte, 1+len(id))
	k[0] = byte(store.TableJobs)
	copy(k[1:], id)
	return k
}

// oldestPending scans the jobs table inside txn for the pending job with the
// earliest CreatedAt. Reading every candidate registers it in the
// transaction's read set, so a concurrent dequeue of the same job conflicts
// at commit.
func oldestPending(txn *badger.Txn) (*models.Job, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte{byte(store.TableJobs)}
	it := txn.NewIterator(opts)
	defer it.Close()

	var oldest *models.Job
	for it.Rewind(); it.Valid(); it.Next() {
		var job models.Job
		err := it.Item().Value(func(data []byte) error {
			return json.Unmarshal(data, &job)
		})
		if err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		if job.Status != models.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			j := job
			oldest = &j
		}
	}
	return oldest, nil
}

// UpdateProgress merges progress and an optional label into the job without
// touching its status. Returns ErrNotFound if the job no longer exists.
func (q *Queue) UpdateProgress(ctx context.Context, id string, progress int, label string) error {
	_, err := store.UpdateRecord(q.store, store.TableJobs, id, func(job *models.Job) error {
		job.Progress = progress
		if label != "" {
			job.ProgressLabel = label
		}
		return nil
	})
	return err
}

// Complete moves the job to the completed terminal state with progress 100.
func (q *Queue) Complete(ctx context.Context, id string) error {
	err := q.finish(id, func(job *models.Job) {
		job.Status = models.JobStatusCompleted
		job.Progress = 100
	})
	if err == nil {
		slog.Info("job completed", "job_id", id)
	}
	return err
}

// Fail moves the job to the failed terminal state, preserving the error
// message for callers that poll job status.
func (q *Queue) Fail(ctx context.Context, id, errorMessage string) error {
	err := q.finish(id, func(job *models.Job) {
		job.Status = models.JobStatusFailed
		job.ErrorMessage = errorMessage
	})
	if err == nil {
		slog.Error("job failed", "job_id", id, "error", errorMessage)
	}
	return err
}

// Cancel moves the job to the cancelled terminal state. Cancellation is
// advisory bookkeeping: it does not interrupt a job already executing.
func (q *Queue) Cancel(ctx context.Context, id string) error {
	err := q.finish(id, func(job *models.Job) {
		job.Status = models.JobStatusCancelled
	})
	if err == nil {
		slog.Info("job cancelled", "job_id", id)
	}
	return err
}

func (q *Queue) finish(id string, apply func(*models.Job)) error {
	_, err := store.UpdateRecord(q.store, store.TableJobs, id, func(job *models.Job) error {
		apply(job)
		now := time.Now().UTC()
		job.CompletedAt = &now
		return nil
	})
	return err
}

// Get returns one job by id.
func (q *Queue) Get(ctx context.Context, id string) (*models.Job, error) {
	return store.Get[models.Job](q.store, store.TableJobs, id)
}

// List returns all jobs, oldest first.
func (q *Queue) List(ctx context.Context) ([]*models.Job, error) {
	jobs, err := store.List[models.Job](q.store, store.TableJobs)
	if err != nil {
		return nil, err
	}
	sortByCreation(jobs)
	return jobs, nil
}

// JobsByStatus returns all jobs in the given status, oldest first.
func (q *Queue) JobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	jobs, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := jobs[:0]
	for _, job := range jobs {
		if job.Status == status {
			filtered = append(filtered, job)
		}
	}
	return filtered, nil
}

// JobsByTarget returns all jobs referencing targetID, oldest first.
func (q *Queue) JobsByTarget(ctx context.Context, targetID string) ([]*models.Job, error) {
	jobs, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := jobs[:0]
	for _, job := range jobs {
		if job.TargetID == targetID {
			filtered = append(filtered, job)
		}
	}
	return filtered, nil
}

// Pending returns all pending jobs, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]*models.Job, error) {
	return q.JobsByStatus(ctx, models.JobStatusPending)
}

// Running returns all running jobs, oldest first.
func (q *Queue) Running(ctx context.Context) ([]*models.Job, error) {
	return q.JobsByStatus(ctx, models.JobStatusRunning)
}

// ClearCompleted purges all completed jobs, returning how many were removed.
// Failed and cancelled jobs are retained for inspection.
func (q *Queue) ClearCompleted(ctx context.Context) (int, error) {
	completed, err := q.JobsByStatus(ctx, models.JobStatusCompleted)
	if err != nil {
		return 0, err
	}
	for _, job := range completed {
		if err := q.store.Delete(store.TableJobs, job.ID); err != nil {
			return 0, fmt.Errorf("clear job %s: %w", job.ID, err)
		}
	}
	return len(completed), nil
}

func sortByCreation(jobs []*models.Job) {
	slices.SortFunc(jobs, func(a, b *models.Job) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
