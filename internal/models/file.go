package models

import "time"

// FileCategory groups formats by the converter that handles them.
type FileCategory string

const (
	CategoryText       FileCategory = "text"
	CategoryMultimedia FileCategory = "multimedia"
	CategoryStructured FileCategory = "structured"
)

// ProcessingStatus tracks a file through the extraction pipeline.
type ProcessingStatus string

const (
	FileQueued     ProcessingStatus = "queued"
	FileProcessing ProcessingStatus = "processing"
	FileCompleted  ProcessingStatus = "completed"
	FileFailed     ProcessingStatus = "failed"
)

// SourceFile is an uploaded artifact. Created on upload, mutated by the
// extraction pipeline, never automatically deleted.
type SourceFile struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Size               int64            `json:"size"`
	Format             string           `json:"format"`
	Category           FileCategory     `json:"category"`
	MimeType           string           `json:"mime_type,omitempty"`
	Data               []byte           `json:"data,omitempty"`
	ExtractedText      string           `json:"extracted_text,omitempty"`
	ProcessingStatus   ProcessingStatus `json:"processing_status"`
	ProcessingProgress int              `json:"processing_progress"`
	ErrorMessage       string           `json:"error_message,omitempty"`
	UploadedAt         time.Time        `json:"uploaded_at"`
	ProcessedAt        *time.Time       `json:"processed_at,omitempty"`
}
