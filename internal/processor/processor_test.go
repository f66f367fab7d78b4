package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/queue"
	"github.com/jhartinger/conceptmine/internal/store"
)

// stubHandler records calls and returns configured results per job type.
type stubHandler struct {
	calls      []models.JobType
	extractErr error
	panicOn    models.JobType
}

func (h *stubHandler) record(t models.JobType) {
	h.calls = append(h.calls, t)
	if h.panicOn == t {
		panic("handler exploded")
	}
}

func (h *stubHandler) ProcessFile(ctx context.Context, job *models.Job) error {
	h.record(models.JobFileProcessing)
	return nil
}

func (h *stubHandler) ExtractConcepts(ctx context.Context, job *models.Job) error {
	h.record(models.JobConceptExtraction)
	return h.extractErr
}

func (h *stubHandler) AnalyzeMarket(ctx context.Context, job *models.Job) error {
	h.record(models.JobMarketAnalysis)
	return nil
}

func (h *stubHandler) GenerateAsset(ctx context.Context, job *models.Job) error {
	h.record(models.JobAssetGeneration)
	return nil
}

func (h *stubHandler) GenerateVisualization(ctx context.Context, job *models.Job) error {
	h.record(models.JobVisualization)
	return nil
}

func newTestProcessor(t *testing.T, h Handler) (*Processor, *queue.Queue) {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	q := queue.New(s)
	return New(q, h), q
}

func TestProcessNextEmptyQueue(t *testing.T) {
	p, _ := newTestProcessor(t, &stubHandler{})
	took, err := p.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext() error = %v", err)
	}
	if took {
		t.Error("ProcessNext() on empty queue = true, want false")
	}
}

func TestProcessNextSuccess(t *testing.T) {
	h := &stubHandler{}
	p, q := newTestProcessor(t, h)
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, models.JobMarketAnalysis, "concept-1")
	took, err := p.ProcessNext(ctx)
	if err != nil || !took {
		t.Fatalf("ProcessNext() = (%v, %v), want (true, nil)", took, err)
	}

	got, _ := q.Get(ctx, job.ID)
	if got.Status != models.JobStatusCompleted {
		t.Errorf("job status = %s, want completed", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("job progress = %d, want 100", got.Progress)
	}
	if len(h.calls) != 1 || h.calls[0] != models.JobMarketAnalysis {
		t.Errorf("handler calls = %v, want [market_analysis]", h.calls)
	}
}

func TestProcessNextHandlerErrorFailsJob(t *testing.T) {
	h := &stubHandler{extractErr: errors.New("llm returned garbage")}
	p, q := newTestProcessor(t, h)
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, models.JobConceptExtraction, "file-1")
	took, err := p.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("ProcessNext() error = %v, handler failures must not propagate", err)
	}
	if !took {
		t.Error("ProcessNext() = false, want true even when the job fails")
	}

	got, _ := q.Get(ctx, job.ID)
	if got.Status != models.JobStatusFailed {
		t.Errorf("job status = %s, want failed", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Error("failed job should carry a non-empty error message")
	}
}

func TestProcessNextHandlerPanicFailsJob(t *testing.T) {
	h := &stubHandler{panicOn: models.JobVisualization}
	p, q := newTestProcessor(t, h)
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, models.JobVisualization, "concept-1")
	took, err := p.ProcessNext(ctx)
	if err != nil || !took {
		t.Fatalf("ProcessNext() = (%v, %v), want (true, nil)", took, err)
	}

	got, _ := q.Get(ctx, job.ID)
	if got.Status != models.JobStatusFailed {
		t.Errorf("job status after panic = %s, want failed", got.Status)
	}
}

func TestProcessAllDrainsAndCounts(t *testing.T) {
	h := &stubHandler{extractErr: errors.New("bad parse")}
	p, q := newTestProcessor(t, h)
	ctx := context.Background()

	_, _ = q.Enqueue(ctx, models.JobFileProcessing, "f1")
	_, _ = q.Enqueue(ctx, models.JobConceptExtraction, "f1") // will fail
	_, _ = q.Enqueue(ctx, models.JobAssetGeneration, "c1")

	count := p.ProcessAll(ctx)
	if count != 3 {
		t.Errorf("ProcessAll() = %d, want 3 (failures still count)", count)
	}

	pending, _ := q.Pending(ctx)
	if len(pending) != 0 {
		t.Errorf("%d jobs still pending after ProcessAll", len(pending))
	}
}

func TestStartLoopStops(t *testing.T) {
	h := &stubHandler{}
	p, q := newTestProcessor(t, h)
	ctx := context.Background()

	_, _ = q.Enqueue(ctx, models.JobFileProcessing, "f1")

	stop := p.StartLoop(ctx, 5*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for {
		pending, _ := q.Pending(ctx)
		if len(pending) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("loop did not drain the queue in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
	stop()

	// After stop, new work is not picked up.
	time.Sleep(20 * time.Millisecond)
	job, _ := q.Enqueue(ctx, models.JobFileProcessing, "f2")
	time.Sleep(50 * time.Millisecond)
	got, _ := q.Get(ctx, job.ID)
	if got.Status != models.JobStatusPending {
		t.Errorf("job enqueued after stop has status %s, want pending", got.Status)
	}
}
