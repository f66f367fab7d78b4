package models

import "time"

// Tier is a coarse viability bucket derived from the composite score.
type Tier string

const (
	Tier1 Tier = "T1"
	Tier2 Tier = "T2"
	Tier3 Tier = "T3"
	Tier4 Tier = "T4"
)

// SubScore is one named scoring dimension of a market analysis.
type SubScore struct {
	Score    int                `json:"score"` // 0-100
	Factors  map[string]float64 `json:"factors,omitempty"`
	Analysis string             `json:"analysis,omitempty"`
}

// EvidenceRef links an analysis statement to a search result that supports it.
type EvidenceRef struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

// AnalysisResult scores one concept. Records are immutable once created:
// re-running analysis appends a new record with the same ConceptID.
type AnalysisResult struct {
	ID             string        `json:"id"`
	ConceptID      string        `json:"concept_id"`
	CompositeScore int           `json:"composite_score"`
	Tier           Tier          `json:"tier"`
	Market         SubScore      `json:"market"`
	Technical      SubScore      `json:"technical"`
	Investment     SubScore      `json:"investment"`
	Summary        string        `json:"summary,omitempty"`
	Risks          []string      `json:"risks,omitempty"`
	NextSteps      []string      `json:"next_steps,omitempty"`
	Evidence       []EvidenceRef `json:"evidence,omitempty"`
	AnalyzedAt     time.Time     `json:"analyzed_at"`
}
