package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/queue"
)

// Operations binds the domain services to the job queue: it implements the
// processor's dispatch interface, one method per job type, translating job
// records into service calls and service progress into job progress.
type Operations struct {
	queue    *queue.Queue
	files    *FileService
	concepts *ConceptService
	analysis *AnalysisService
	assets   *AssetService
	visuals  *VisualizationService
}

// NewOperations wires the services into a job handler.
func NewOperations(q *queue.Queue, files *FileService, concepts *ConceptService,
	analysis *AnalysisService, assets *AssetService, visuals *VisualizationService) *Operations {
	return &Operations{
		queue:    q,
		files:    files,
		concepts: concepts,
		analysis: analysis,
		assets:   assets,
		visuals:  visuals,
	}
}

// progressFor adapts service progress callbacks to queue updates for a job.
func (o *Operations) progressFor(ctx context.Context, job *models.Job) func(int, string) {
	return func(progress int, label string) {
		if err := o.queue.UpdateProgress(ctx, job.ID, progress, label); err != nil {
			slog.Warn("failed to post job progress", "job_id", job.ID, "error", err)
		}
	}
}

// ProcessFile runs the file extraction stage. TargetID is a file id.
func (o *Operations) ProcessFile(ctx context.Context, job *models.Job) error {
	return o.files.Process(ctx, job)
}

// ExtractConcepts extracts concepts from one processed file. TargetID is a
// file id.
func (o *Operations) ExtractConcepts(ctx context.Context, job *models.Job) error {
	progress := o.progressFor(ctx, job)
	progress(10, "extracting concepts")
	_, err := o.concepts.ExtractFromFile(ctx, job.TargetID)
	return err
}

// AnalyzeMarket scores one concept. TargetID is a concept id.
func (o *Operations) AnalyzeMarket(ctx context.Context, job *models.Job) error {
	_, err := o.analysis.Analyze(ctx, job.TargetID, o.progressFor(ctx, job))
	return err
}

// GenerateAsset produces the default document asset for a concept. TargetID
// is a concept id. Explicit type and format selection goes through the asset
// service directly; queued generation always yields the executive summary.
func (o *Operations) GenerateAsset(ctx context.Context, job *models.Job) error {
	_, err := o.assets.Generate(ctx, job.TargetID, models.AssetExecutiveSummary, "md", o.progressFor(ctx, job))
	return err
}

// GenerateVisualization builds timeline and node-map data for a concept.
// TargetID is a concept id.
func (o *Operations) GenerateVisualization(ctx context.Context, job *models.Job) error {
	_, err := o.visuals.GenerateAll(ctx, job.TargetID, o.progressFor(ctx, job))
	return err
}

// EnqueueAnalysis queues market analysis for a concept.
func (o *Operations) EnqueueAnalysis(ctx context.Context, conceptID string) (*models.Job, error) {
	return o.enqueue(ctx, models.JobMarketAnalysis, conceptID)
}

// EnqueueAssetGeneration queues default asset generation for a concept.
func (o *Operations) EnqueueAssetGeneration(ctx context.Context, conceptID string) (*models.Job, error) {
	return o.enqueue(ctx, models.JobAssetGeneration, conceptID)
}

// EnqueueVisualization queues visualization generation for a concept.
func (o *Operations) EnqueueVisualization(ctx context.Context, conceptID string) (*models.Job, error) {
	return o.enqueue(ctx, models.JobVisualization, conceptID)
}

func (o *Operations) enqueue(ctx context.Context, jobType models.JobType, targetID string) (*models.Job, error) {
	job, err := o.queue.Enqueue(ctx, jobType, targetID)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return job, nil
}
