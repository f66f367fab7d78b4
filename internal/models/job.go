// Package models defines data structures for the Conceptmine pipeline.
package models

import "time"

// JobType identifies the domain operation a job dispatches to.
type JobType string

const (
	JobFileProcessing    JobType = "file_processing"
	JobConceptExtraction JobType = "concept_extraction"
	JobMarketAnalysis    JobType = "market_analysis"
	JobAssetGeneration   JobType = "asset_generation"
	JobVisualization     JobType = "visualization"
)

// JobTypes lists every known job type.
var JobTypes = []JobType{
	JobFileProcessing,
	JobConceptExtraction,
	JobMarketAnalysis,
	JobAssetGeneration,
	JobVisualization,
}

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	for _, known := range JobTypes {
		if t == known {
			return true
		}
	}
	return false
}

// JobStatus represents the state of a background job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal jobs are never revived.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is a persisted unit of asynchronous work.
//
// TargetID is a weak reference to the entity the job operates on (a file or
// concept id); it is not validated at enqueue time. Nothing prevents two jobs
// from targeting the same entity concurrently.
type Job struct {
	ID            string     `json:"id"`
	Type          JobType    `json:"type"`
	Status        JobStatus  `json:"status"`
	TargetID      string     `json:"target_id"`
	Progress      int        `json:"progress"`
	ProgressLabel string     `json:"progress_label,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
