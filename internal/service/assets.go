package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jhartinger/conceptmine/internal/llm"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/store"
)

// AssetService generates documents and SVG visuals from analyzed concepts.
type AssetService struct {
	store     *store.Store
	model     Generator
	sanitizer *bluemonday.Policy
}

// NewAssetService creates a new asset service.
func NewAssetService(s *store.Store, model Generator) *AssetService {
	return &AssetService{store: s, model: model, sanitizer: svgPolicy()}
}

// svgPolicy allow-lists the SVG elements and attributes the visual prompts
// produce. Script, event handlers, and foreignObject never survive.
func svgPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("svg", "g", "defs", "title", "desc",
		"path", "rect", "circle", "ellipse", "line", "polyline", "polygon",
		"text", "tspan", "marker", "linearGradient", "radialGradient", "stop")
	p.AllowAttrs("id", "class", "fill", "stroke", "stroke-width", "stroke-dasharray",
		"opacity", "transform", "d", "x", "y", "x1", "y1", "x2", "y2",
		"cx", "cy", "r", "rx", "ry", "width", "height", "points",
		"viewBox", "xmlns", "font-size", "font-family", "font-weight",
		"text-anchor", "dominant-baseline", "offset", "stop-color", "marker-end").Globally()
	return p
}

// systemPrompts holds the fixed per-type instructions.
var systemPrompts = map[models.AssetType]string{
	models.AssetExecutiveSummary: "Write a one-page executive summary in markdown: opportunity, evidence, recommendation.",
	models.AssetPitchDeck:        "Write pitch deck content in markdown, one section per slide: problem, solution, market, product, traction, team, ask.",
	models.AssetOnePager:         "Write a single-page product one-pager in markdown: what it is, who it is for, why now.",
	models.AssetTechnicalSpec:    "Write a technical specification in markdown: architecture, components, interfaces, risks.",
	models.AssetMarketReport:     "Write a market report in markdown: market size, competitors, trends, positioning.",
	models.AssetRoadmap:          "Write a phased product roadmap in markdown: milestones with goals and rough timeframes.",

	models.AssetConceptDiagram:    "Produce a single SVG diagram of the concept and its relationships. Respond with SVG markup only.",
	models.AssetArchitectureChart: "Produce a single SVG architecture chart with labelled components and connections. Respond with SVG markup only.",
	models.AssetMindMap:           "Produce a single SVG mind map radiating from the concept name. Respond with SVG markup only.",
	models.AssetFlowChart:         "Produce a single SVG flow chart of the concept's core process. Respond with SVG markup only.",
	models.AssetInfographic:       "Produce a single SVG infographic summarizing the concept and its scores. Respond with SVG markup only.",
}

// maxPromptField caps free-text fields inserted into asset prompts.
const maxPromptField = 1500

// escapeField truncates a free-text field and escapes the characters that
// could break out of the prompt template.
func escapeField(s string) string {
	if len(s) > maxPromptField {
		s = s[:maxPromptField] + "..."
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "$", `\$`)
	s = strings.ReplaceAll(s, "`", "\\`")
	return s
}

// Generate produces one asset for a concept. The latest analysis, when one
// exists, feeds the prompt. A provenance-extraction failure never fails the
// asset; it degrades to an empty claim list.
func (s *AssetService) Generate(ctx context.Context, conceptID string, assetType models.AssetType, format string, progress func(int, string)) (*models.GeneratedAsset, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	if !assetType.Valid() {
		return nil, fmt.Errorf("unknown asset type: %s", assetType)
	}

	concept, err := store.Get[models.Concept](s.store, store.TableConcepts, conceptID)
	if err != nil {
		return nil, fmt.Errorf("load concept %s: %w", conceptID, err)
	}
	analysis, err := s.latestAnalysis(conceptID)
	if err != nil {
		return nil, err
	}

	progress(20, "generating content")
	resp, err := s.model.GenerateWithSystem(ctx, systemPrompts[assetType], promptDump(concept, analysis), llm.Options{
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("llm generation: %w", err)
	}

	content := resp.Content
	if assetType.Visual() {
		content = s.sanitizeSVG(content)
	}

	progress(70, "deriving provenance")
	claims := s.deriveProvenance(ctx, concept, content)

	progress(90, "saving")
	asset := &models.GeneratedAsset{
		ID:          models.NewID(),
		AssetType:   assetType,
		Format:      format,
		ConceptID:   concept.ID,
		FileName:    models.AssetFileName(concept.Name, assetType, format),
		Data:        []byte(content),
		Provenance:  claims,
		GeneratedAt: time.Now().UTC(),
	}
	if err := store.Put(s.store, store.TableAssets, asset.ID, asset); err != nil {
		return nil, fmt.Errorf("persist asset: %w", err)
	}

	record := &models.ProvenanceRecord{
		ID:        models.NewID(),
		ConceptID: concept.ID,
		AssetID:   asset.ID,
		Claims:    claims,
		CreatedAt: asset.GeneratedAt,
	}
	if err := store.Put(s.store, store.TableProvenance, record.ID, record); err != nil {
		return nil, fmt.Errorf("persist provenance: %w", err)
	}

	slog.Info("asset generated", "concept_id", concept.ID, "type", assetType,
		"file", asset.FileName, "claims", len(claims))
	return asset, nil
}

func (s *AssetService) latestAnalysis(conceptID string) (*models.AnalysisResult, error) {
	all, err := store.List[models.AnalysisResult](s.store, store.TableAnalyses)
	if err != nil {
		return nil, fmt.Errorf("load analyses: %w", err)
	}
	var latest *models.AnalysisResult
	for _, a := range all {
		if a.ConceptID != conceptID {
			continue
		}
		if latest == nil || a.AnalyzedAt.After(latest.AnalyzedAt) {
			latest = a
		}
	}
	return latest, nil
}

// promptDump renders concept and analysis fields line by line, each free-text
// value truncated and escaped.
func promptDump(concept *models.Concept, analysis *models.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Concept name: %s\n", escapeField(concept.Name))
	fmt.Fprintf(&b, "Domain: %s\n", escapeField(concept.Domain))
	fmt.Fprintf(&b, "Abstraction level: %s\n", concept.AbstractionLevel)
	fmt.Fprintf(&b, "Description: %s\n", escapeField(concept.Description))
	if len(concept.Themes) > 0 {
		fmt.Fprintf(&b, "Themes: %s\n", escapeField(strings.Join(concept.Themes, ", ")))
	}
	for i, src := range concept.Sources {
		fmt.Fprintf(&b, "Source [%d] %s: %s\n", i+1, escapeField(src.FileName), escapeField(src.Excerpt))
	}

	if analysis != nil {
		fmt.Fprintf(&b, "\nComposite score: %d (%s)\n", analysis.CompositeScore, analysis.Tier)
		fmt.Fprintf(&b, "Market: %d - %s\n", analysis.Market.Score, escapeField(analysis.Market.Analysis))
		fmt.Fprintf(&b, "Technical: %d - %s\n", analysis.Technical.Score, escapeField(analysis.Technical.Analysis))
		fmt.Fprintf(&b, "Investment: %d - %s\n", analysis.Investment.Score, escapeField(analysis.Investment.Analysis))
		if analysis.Summary != "" {
			fmt.Fprintf(&b, "Analysis summary: %s\n", escapeField(analysis.Summary))
		}
		if len(analysis.Risks) > 0 {
			fmt.Fprintf(&b, "Risks: %s\n", escapeField(strings.Join(analysis.Risks, "; ")))
		}
	}
	return b.String()
}

// sanitizeSVG strips non-SVG noise around the markup and runs the allow-list
// policy over it.
func (s *AssetService) sanitizeSVG(content string) string {
	content = llm.StripFences(content)
	if start := strings.Index(content, "<svg"); start > 0 {
		content = content[start:]
	}
	if end := strings.LastIndex(content, "</svg>"); end >= 0 {
		content = content[:end+len("</svg>")]
	}
	return s.sanitizer.Sanitize(content)
}

const provenanceSystemPrompt = `You map statements from a generated document back to numbered sources.
Respond with a JSON array only. Each element must have the fields:
"statement" (string), "source_indexes" (array of 1-based integers referencing the numbered sources),
"confidence" (0-1), "notes" (string).`

type claimRecord struct {
	Statement     string  `json:"statement"`
	SourceIndexes []int   `json:"source_indexes"`
	Confidence    float64 `json:"confidence"`
	Notes         string  `json:"notes"`
}

// deriveProvenance asks the LLM to tie generated statements back to the
// concept's numbered source references. Any failure returns an empty list.
func (s *AssetService) deriveProvenance(ctx context.Context, concept *models.Concept, content string) []models.Claim {
	if len(concept.Sources) == 0 {
		return nil
	}

	var sources strings.Builder
	for i, src := range concept.Sources {
		fmt.Fprintf(&sources, "[%d] %s: %s\n", i+1, src.FileName, src.Excerpt)
	}
	prompt := fmt.Sprintf("Sources:\n%s\nGenerated document:\n%s\n\nList the key claims and which sources support each.",
		sources.String(), escapeField(content))

	resp, err := s.model.GenerateWithSystem(ctx, provenanceSystemPrompt, prompt, llm.Options{
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		slog.Warn("provenance extraction failed", "concept_id", concept.ID, "error", err)
		return nil
	}

	var records []claimRecord
	if err := llm.DecodeLenient(resp.Content, &records); err != nil {
		slog.Warn("provenance response unparseable", "concept_id", concept.ID, "error", err)
		return nil
	}

	claims := make([]models.Claim, 0, len(records))
	for _, r := range records {
		claim := models.Claim{
			Statement:  r.Statement,
			Confidence: r.Confidence,
			Notes:      r.Notes,
		}
		for _, idx := range r.SourceIndexes {
			if idx < 1 || idx > len(concept.Sources) {
				continue
			}
			claim.Sources = append(claim.Sources, concept.Sources[idx-1])
		}
		claims = append(claims, claim)
	}
	return claims
}

// List returns all generated assets.
func (s *AssetService) List(ctx context.Context) ([]*models.GeneratedAsset, error) {
	return store.List[models.GeneratedAsset](s.store, store.TableAssets)
}

// ForConcept returns all assets generated for a concept.
func (s *AssetService) ForConcept(ctx context.Context, conceptID string) ([]*models.GeneratedAsset, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := all[:0]
	for _, a := range all {
		if a.ConceptID == conceptID {
			matched = append(matched, a)
		}
	}
	return matched, nil
}
