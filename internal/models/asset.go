package models

import "time"

// AssetType enumerates the document and visual kinds the generator produces.
type AssetType string

const (
	// Document kinds.
	AssetExecutiveSummary AssetType = "executive_summary"
	AssetPitchDeck        AssetType = "pitch_deck"
	AssetOnePager         AssetType = "one_pager"
	AssetTechnicalSpec    AssetType = "technical_spec"
	AssetMarketReport     AssetType = "market_report"
	AssetRoadmap          AssetType = "roadmap"

	// Visual kinds.
	AssetConceptDiagram    AssetType = "concept_diagram"
	AssetArchitectureChart AssetType = "architecture_chart"
	AssetMindMap           AssetType = "mind_map"
	AssetFlowChart         AssetType = "flow_chart"
	AssetInfographic       AssetType = "infographic"
)

// DocumentAssetTypes lists the text-document kinds.
var DocumentAssetTypes = []AssetType{
	AssetExecutiveSummary, AssetPitchDeck, AssetOnePager,
	AssetTechnicalSpec, AssetMarketReport, AssetRoadmap,
}

// VisualAssetTypes lists the SVG kinds.
var VisualAssetTypes = []AssetType{
	AssetConceptDiagram, AssetArchitectureChart, AssetMindMap,
	AssetFlowChart, AssetInfographic,
}

// Visual reports whether the asset type produces SVG output.
func (t AssetType) Visual() bool {
	for _, v := range VisualAssetTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Valid reports whether t is a known asset type.
func (t AssetType) Valid() bool {
	for _, k := range DocumentAssetTypes {
		if t == k {
			return true
		}
	}
	return t.Visual()
}

// GeneratedAsset is a produced artifact. Format is loosely tied to AssetType
// and not strictly validated.
type GeneratedAsset struct {
	ID          string    `json:"id"`
	AssetType   AssetType `json:"asset_type"`
	Format      string    `json:"format"` // pdf, pptx, png, svg, md, txt
	ConceptID   string    `json:"concept_id"`
	FileName    string    `json:"file_name"`
	Data        []byte    `json:"data,omitempty"`
	Provenance  []Claim   `json:"provenance,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Claim is one statement in a provenance chain, linked back to the source
// excerpts that support it.
type Claim struct {
	Statement  string      `json:"statement"`
	Sources    []SourceRef `json:"sources,omitempty"`
	Confidence float64     `json:"confidence"` // 0-1
	Notes      string      `json:"notes,omitempty"`
}

// ProvenanceRecord is the flattened, separately persisted provenance chain
// for one generated asset.
type ProvenanceRecord struct {
	ID        string    `json:"id"`
	ConceptID string    `json:"concept_id"`
	AssetID   string    `json:"asset_id"`
	Claims    []Claim   `json:"claims,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Visualization holds the merged timeline and node-map data for a concept.
type Visualization struct {
	ID          string     `json:"id"`
	ConceptID   string     `json:"concept_id"`
	Timeline    []VisNode  `json:"timeline,omitempty"`
	MapNodes    []VisNode  `json:"map_nodes,omitempty"`
	MapEdges    []VisEdge  `json:"map_edges,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// VisNode is a positioned, labelled node. Layout is a presentation concern;
// positions default to (0,0).
type VisNode struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// VisEdge connects two nodes by id.
type VisEdge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Label    string `json:"label,omitempty"`
}
