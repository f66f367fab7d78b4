package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/store"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s)
}

// enqueueN enqueues n jobs with strictly increasing CreatedAt.
func enqueueN(t *testing.T, q *Queue, n int) []*models.Job {
	t.Helper()
	ctx := context.Background()
	jobs := make([]*models.Job, 0, n)
	for i := 0; i < n; i++ {
		job, err := q.Enqueue(ctx, models.JobConceptExtraction, "target")
		if err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		jobs = append(jobs, job)
		time.Sleep(2 * time.Millisecond) // distinct CreatedAt ordering
	}
	return jobs
}

func TestEnqueueDefaults(t *testing.T) {
	q := newTestQueue(t)
	job, err := q.Enqueue(context.Background(), models.JobFileProcessing, "file-1")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if job.Status != models.JobStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("progress = %d, want 0", job.Progress)
	}
	if job.StartedAt != nil || job.CompletedAt != nil {
		t.Error("new job should have no started/completed timestamps")
	}
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	q := newTestQueue(t)
	if _, err := q.Enqueue(context.Background(), models.JobType("bogus"), "x"); err == nil {
		t.Error("Enqueue() with unknown type should fail")
	}
}

func TestDequeueFIFOExactlyOnce(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	enqueued := enqueueN(t, q, 3)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		job, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if i < 3 {
			if job == nil {
				t.Fatalf("Dequeue() #%d = nil, want job", i)
			}
			if seen[job.ID] {
				t.Errorf("job %s dequeued twice", job.ID)
			}
			seen[job.ID] = true
			if job.ID != enqueued[i].ID {
				t.Errorf("Dequeue() #%d = %s, want %s (FIFO order)", i, job.ID, enqueued[i].ID)
			}
			if job.Status != models.JobStatusRunning {
				t.Errorf("dequeued job status = %s, want running", job.Status)
			}
			if job.StartedAt == nil {
				t.Error("dequeued job should have StartedAt set")
			}
		} else if job != nil {
			t.Errorf("Dequeue() #%d = %s, want nil (queue drained)", i, job.ID)
		}
	}
}

func TestDequeueConcurrentSingleWinner(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if _, err := q.Enqueue(ctx, models.JobMarketAnalysis, "concept-1"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	const callers = 8
	results := make([]*models.Job, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, err := q.Dequeue(ctx)
			if err != nil {
				t.Errorf("Dequeue() error = %v", err)
				return
			}
			results[i] = job
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, job := range results {
		if job != nil {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("concurrent Dequeue produced %d winners, want exactly 1", winners)
	}
}

func TestTerminalTransitions(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, models.JobAssetGeneration, "c1")
	if err := q.Complete(ctx, job.ID); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	got, _ := q.Get(ctx, job.ID)
	if got.Status != models.JobStatusCompleted || got.Progress != 100 || got.CompletedAt == nil {
		t.Errorf("completed job = %+v", got)
	}

	job2, _ := q.Enqueue(ctx, models.JobAssetGeneration, "c2")
	if err := q.Fail(ctx, job2.ID, "llm timeout"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	got2, _ := q.Get(ctx, job2.ID)
	if got2.Status != models.JobStatusFailed || got2.ErrorMessage != "llm timeout" {
		t.Errorf("failed job = %+v", got2)
	}

	job3, _ := q.Enqueue(ctx, models.JobAssetGeneration, "c3")
	if err := q.Cancel(ctx, job3.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	got3, _ := q.Get(ctx, job3.ID)
	if got3.Status != models.JobStatusCancelled || got3.CompletedAt == nil {
		t.Errorf("cancelled job = %+v", got3)
	}
}

func TestMutationsOnMissingJob(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.UpdateProgress(ctx, "ghost", 50, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateProgress() error = %v, want ErrNotFound", err)
	}
	if err := q.Complete(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Complete() error = %v, want ErrNotFound", err)
	}
	if err := q.Fail(ctx, "ghost", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fail() error = %v, want ErrNotFound", err)
	}
	if err := q.Cancel(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateProgressKeepsStatus(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, models.JobVisualization, "c1")
	if err := q.UpdateProgress(ctx, job.ID, 40, "rendering"); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}

	got, _ := q.Get(ctx, job.ID)
	if got.Progress != 40 || got.ProgressLabel != "rendering" {
		t.Errorf("progress = %d/%q, want 40/rendering", got.Progress, got.ProgressLabel)
	}
	if got.Status != models.JobStatusPending {
		t.Errorf("status = %s, progress update must not touch status", got.Status)
	}
}

func TestQueriesAndClearCompleted(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	a, _ := q.Enqueue(ctx, models.JobFileProcessing, "f1")
	b, _ := q.Enqueue(ctx, models.JobFileProcessing, "f1")
	c, _ := q.Enqueue(ctx, models.JobMarketAnalysis, "f2")
	_ = b

	_ = q.Complete(ctx, a.ID)

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("Pending() = %d jobs, want 2", len(pending))
	}

	byTarget, err := q.JobsByTarget(ctx, "f1")
	if err != nil {
		t.Fatalf("JobsByTarget() error = %v", err)
	}
	if len(byTarget) != 2 {
		t.Errorf("JobsByTarget(f1) = %d jobs, want 2", len(byTarget))
	}

	cleared, err := q.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted() error = %v", err)
	}
	if cleared != 1 {
		t.Errorf("ClearCompleted() = %d, want 1", cleared)
	}
	if _, err := q.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("completed job should be purged, got err = %v", err)
	}
	if _, err := q.Get(ctx, c.ID); err != nil {
		t.Errorf("pending job should survive purge, got err = %v", err)
	}
}
