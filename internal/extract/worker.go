package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jhartinger/conceptmine/internal/metrics"
	"github.com/jhartinger/conceptmine/internal/models"
)

// EventKind discriminates worker events.
type EventKind int

const (
	// EventProgress reports partial completion. Zero or more per request.
	EventProgress EventKind = iota
	// EventResult carries the extracted text. Exactly one per successful request.
	EventResult
	// EventError terminates a failed request. Mutually exclusive with EventResult.
	EventError
)

// Request asks the pool to extract text from one file.
type Request struct {
	FileID   string
	Data     []byte
	Format   string
	Category models.FileCategory

	// Events receives progress updates followed by exactly one terminal
	// event (result or error). The pool closes it when the request is done.
	Events chan Event
}

// Event is one message on a request's event stream.
type Event struct {
	Kind     EventKind
	FileID   string
	Progress int
	Label    string
	Text     string
	Err      error
}

// Pool runs text extraction on a fixed set of worker goroutines so that
// heavy parsing (PDF, spreadsheets) never blocks the submitting goroutine.
type Pool struct {
	requests  chan *Request
	workers   int
	logger    *slog.Logger
	collector *metrics.Collector

	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewPool creates an extraction pool with the given concurrency.
func NewPool(workers int, logger *slog.Logger, collector *metrics.Collector) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		requests:  make(chan *Request, workers*2),
		workers:   workers,
		logger:    logger,
		collector: collector,
	}
}

// Start launches the worker goroutines. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Submit queues a request. It blocks if the queue is full and fails only
// when the context is cancelled first.
func (p *Pool) Submit(ctx context.Context, req *Request) error {
	if req.Events == nil {
		return fmt.Errorf("request for file %s has no event channel", req.FileID)
	}
	select {
	case p.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting requests and waits for in-flight work to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	close(p.requests)
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-p.requests:
			if !ok {
				return
			}
			p.handle(req)
		}
	}
}

func (p *Pool) handle(req *Request) {
	defer close(req.Events)
	start := time.Now()

	emit := func(progress int, label string) {
		req.Events <- Event{Kind: EventProgress, FileID: req.FileID, Progress: progress, Label: label}
	}

	emit(10, "reading file")
	emit(30, "parsing content")

	text, err := Convert(req.Data, req.Format, req.Category)
	if err != nil {
		p.logger.Error("extraction failed",
			slog.String("file_id", req.FileID),
			slog.String("format", req.Format),
			slog.String("error", err.Error()))
		req.Events <- Event{Kind: EventError, FileID: req.FileID, Err: err}
		return
	}

	emit(90, "finalizing")

	if p.collector != nil {
		p.collector.RecordTiming(metrics.OpExtraction, time.Since(start))
	}
	req.Events <- Event{Kind: EventResult, FileID: req.FileID, Progress: 100, Text: text}
}
