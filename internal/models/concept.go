package models

import "time"

// AbstractionLevel is one of three ordinal tiers a concept can sit at.
type AbstractionLevel string

const (
	LevelSpecific AbstractionLevel = "specific"
	LevelApproach AbstractionLevel = "approach"
	LevelParadigm AbstractionLevel = "paradigm"
)

// SourceRef points back into the source material a concept or claim came from.
type SourceRef struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Location string `json:"location,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Context  string `json:"context,omitempty"`
}

// Concept is an extracted idea unit. Parent/child/related lists are graph
// edges by id with no cycle prevention. ClusterID stays empty until the
// clustering operation assigns one.
type Concept struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	AbstractionLevel AbstractionLevel `json:"abstraction_level"`
	Domain           string           `json:"domain"`
	Themes           []string         `json:"themes,omitempty"`
	ParentIDs        []string         `json:"parent_ids,omitempty"`
	ChildIDs         []string         `json:"child_ids,omitempty"`
	RelatedIDs       []string         `json:"related_ids,omitempty"`
	Sources          []SourceRef      `json:"sources,omitempty"`
	ClusterID        string           `json:"cluster_id,omitempty"`
	ExtractedAt      time.Time        `json:"extracted_at"`
}

// Cluster is a named grouping of concepts sharing thematic similarity.
type Cluster struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Domain     string   `json:"domain"`
	ConceptIDs []string `json:"concept_ids"`
}
