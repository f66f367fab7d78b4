package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jhartinger/conceptmine/internal/extract"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/queue"
	"github.com/jhartinger/conceptmine/internal/store"
)

// FileService handles source file ingestion and the file_processing stage.
type FileService struct {
	store *store.Store
	queue *queue.Queue
	pool  *extract.Pool
}

// NewFileService creates a new file service.
func NewFileService(s *store.Store, q *queue.Queue, pool *extract.Pool) *FileService {
	return &FileService{store: s, queue: q, pool: pool}
}

// Upload registers a file, persists it in queued state, and enqueues a
// file_processing job for it. Unsupported extensions fail before anything is
// persisted.
func (s *FileService) Upload(ctx context.Context, name string, data []byte) (*models.SourceFile, *models.Job, error) {
	format, category, err := extract.DetectFormat(name)
	if err != nil {
		return nil, nil, err
	}

	file := &models.SourceFile{
		ID:               models.NewID(),
		Name:             name,
		Size:             int64(len(data)),
		Format:           format,
		Category:         category,
		MimeType:         extract.MimeType(format),
		Data:             data,
		ProcessingStatus: models.FileQueued,
		UploadedAt:       time.Now().UTC(),
	}
	if err := store.Put(s.store, store.TableFiles, file.ID, file); err != nil {
		return nil, nil, fmt.Errorf("persist file: %w", err)
	}

	job, err := s.queue.Enqueue(ctx, models.JobFileProcessing, file.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("enqueue processing: %w", err)
	}

	slog.Info("file uploaded", "file_id", file.ID, "name", name, "format", format, "size", file.Size)
	return file, job, nil
}

// Process runs the file_processing stage for a job: extract text through the
// worker pool, store it on the file record, and enqueue concept extraction.
// Worker progress is mapped into the 10-90 band of the job's progress.
func (s *FileService) Process(ctx context.Context, job *models.Job) error {
	file, err := store.Get[models.SourceFile](s.store, store.TableFiles, job.TargetID)
	if err != nil {
		return fmt.Errorf("load file %s: %w", job.TargetID, err)
	}

	if _, err := store.UpdateRecord(s.store, store.TableFiles, file.ID, func(f *models.SourceFile) error {
		f.ProcessingStatus = models.FileProcessing
		f.ProcessingProgress = 0
		f.ErrorMessage = ""
		return nil
	}); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	req := &extract.Request{
		FileID:   file.ID,
		Data:     file.Data,
		Format:   file.Format,
		Category: file.Category,
		Events:   make(chan extract.Event, 8),
	}
	if err := s.pool.Submit(ctx, req); err != nil {
		s.markFailed(file.ID, err)
		return fmt.Errorf("submit extraction: %w", err)
	}

	var text string
	var extractErr error
	for ev := range req.Events {
		switch ev.Kind {
		case extract.EventProgress:
			jobProgress := 10 + ev.Progress*80/100
			if err := s.queue.UpdateProgress(ctx, job.ID, jobProgress, ev.Label); err != nil {
				slog.Warn("failed to post extraction progress", "job_id", job.ID, "error", err)
			}
			if _, err := store.UpdateRecord(s.store, store.TableFiles, file.ID, func(f *models.SourceFile) error {
				f.ProcessingProgress = ev.Progress
				return nil
			}); err != nil {
				slog.Warn("failed to persist file progress", "file_id", file.ID, "error", err)
			}
		case extract.EventResult:
			text = ev.Text
		case extract.EventError:
			extractErr = ev.Err
		}
	}

	if extractErr != nil {
		s.markFailed(file.ID, extractErr)
		return fmt.Errorf("extract %s: %w", file.Name, extractErr)
	}

	now := time.Now().UTC()
	if _, err := store.UpdateRecord(s.store, store.TableFiles, file.ID, func(f *models.SourceFile) error {
		f.ExtractedText = text
		f.ProcessingStatus = models.FileCompleted
		f.ProcessingProgress = 100
		f.ProcessedAt = &now
		return nil
	}); err != nil {
		return fmt.Errorf("store extracted text: %w", err)
	}

	if _, err := s.queue.Enqueue(ctx, models.JobConceptExtraction, file.ID); err != nil {
		return fmt.Errorf("enqueue concept extraction: %w", err)
	}

	slog.Info("file processed", "file_id", file.ID, "name", file.Name, "text_len", len(text))
	return nil
}

func (s *FileService) markFailed(fileID string, cause error) {
	if _, err := store.UpdateRecord(s.store, store.TableFiles, fileID, func(f *models.SourceFile) error {
		f.ProcessingStatus = models.FileFailed
		f.ErrorMessage = cause.Error()
		return nil
	}); err != nil {
		slog.Warn("failed to record file failure", "file_id", fileID, "error", err)
	}
}

// Get returns one file by id.
func (s *FileService) Get(ctx context.Context, id string) (*models.SourceFile, error) {
	return store.Get[models.SourceFile](s.store, store.TableFiles, id)
}

// List returns all files.
func (s *FileService) List(ctx context.Context) ([]*models.SourceFile, error) {
	return store.List[models.SourceFile](s.store, store.TableFiles)
}

// Delete removes a file record. Concepts extracted from it keep their source
// references; those are weak by design.
func (s *FileService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(store.TableFiles, id)
}
