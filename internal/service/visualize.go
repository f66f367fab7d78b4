package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhartinger/conceptmine/internal/llm"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/search"
	"github.com/jhartinger/conceptmine/internal/store"
)

// VisualizationService builds timeline and node-map data for concepts.
type VisualizationService struct {
	store    *store.Store
	model    Generator
	searcher Searcher
}

// NewVisualizationService creates a new visualization service. The searcher
// is optional; without it the node-map enrichment pass is skipped.
func NewVisualizationService(s *store.Store, model Generator, searcher Searcher) *VisualizationService {
	return &VisualizationService{store: s, model: model, searcher: searcher}
}

const timelineSystemPrompt = `You lay out the evolution of an idea as a timeline.
Respond with a JSON object only: {"nodes": [{"label": string, "description": string}]}.
Order nodes chronologically from origin to future outlook.`

const mapSystemPrompt = `You lay out an idea and its related concepts as a node map.
Respond with a JSON object only:
{"nodes": [{"label": string, "description": string}],
 "edges": [{"source": string, "target": string, "label": string}]}.
Edge source/target must repeat node labels exactly.`

type visNodeRecord struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

type visEdgeRecord struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

type visRecord struct {
	Nodes []visNodeRecord `json:"nodes"`
	Edges []visEdgeRecord `json:"edges"`
}

// GenerateAll runs timeline and node-map generation concurrently, merges the
// outputs into one Visualization, and persists it.
func (v *VisualizationService) GenerateAll(ctx context.Context, conceptID string, progress func(int, string)) (*models.Visualization, error) {
	if progress == nil {
		progress = func(int, string) {}
	}

	concept, err := store.Get[models.Concept](v.store, store.TableConcepts, conceptID)
	if err != nil {
		return nil, fmt.Errorf("load concept %s: %w", conceptID, err)
	}

	progress(10, "generating visualization data")
	var timeline []models.VisNode
	var mapNodes []models.VisNode
	var mapEdges []models.VisEdge

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		timeline, err = v.generateTimeline(gctx, concept)
		return err
	})
	g.Go(func() error {
		var err error
		mapNodes, mapEdges, err = v.generateMap(gctx, concept)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	progress(80, "saving")
	vis := &models.Visualization{
		ID:          models.NewID(),
		ConceptID:   concept.ID,
		Timeline:    timeline,
		MapNodes:    mapNodes,
		MapEdges:    mapEdges,
		GeneratedAt: time.Now().UTC(),
	}
	if err := store.Put(v.store, store.TableVisualizations, vis.ID, vis); err != nil {
		return nil, fmt.Errorf("persist visualization: %w", err)
	}

	slog.Info("visualization generated", "concept_id", concept.ID,
		"timeline_nodes", len(timeline), "map_nodes", len(mapNodes), "map_edges", len(mapEdges))
	return vis, nil
}

func (v *VisualizationService) generateTimeline(ctx context.Context, concept *models.Concept) ([]models.VisNode, error) {
	prompt := fmt.Sprintf("Concept: %s\nDomain: %s\nDescription: %s",
		concept.Name, concept.Domain, concept.Description)
	resp, err := v.model.GenerateWithSystem(ctx, timelineSystemPrompt, prompt, llm.Options{
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm timeline: %w", err)
	}

	var record visRecord
	if err := llm.DecodeLenient(resp.Content, &record); err != nil {
		return nil, fmt.Errorf("parse timeline response: %w", err)
	}
	nodes, _ := resolveNodes(record.Nodes, nil)
	return nodes, nil
}

func (v *VisualizationService) generateMap(ctx context.Context, concept *models.Concept) ([]models.VisNode, []models.VisEdge, error) {
	prompt := fmt.Sprintf("Concept: %s\nDomain: %s\nDescription: %s",
		concept.Name, concept.Domain, concept.Description)

	// Best-effort enrichment: extra context helps the map, its absence never
	// blocks it.
	if v.searcher != nil {
		results, err := v.searcher.Search(ctx, search.Request{
			Query:      fmt.Sprintf("%s %s related concepts", concept.Name, concept.Domain),
			MaxResults: 5,
		})
		if err != nil {
			slog.Warn("map enrichment search failed", "concept_id", concept.ID, "error", err)
		} else if len(results) > 0 {
			var extra strings.Builder
			for _, r := range results {
				fmt.Fprintf(&extra, "- %s: %s\n", r.Title, r.Snippet)
			}
			prompt += "\n\nRelated material:\n" + extra.String()
		}
	}

	resp, err := v.model.GenerateWithSystem(ctx, mapSystemPrompt, prompt, llm.Options{
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("llm node map: %w", err)
	}

	var record visRecord
	if err := llm.DecodeLenient(resp.Content, &record); err != nil {
		return nil, nil, fmt.Errorf("parse node map response: %w", err)
	}
	nodes, edges := resolveNodes(record.Nodes, record.Edges)
	return nodes, edges, nil
}

// resolveNodes assigns fresh ids and default (0,0) positions, then resolves
// edges through a label-to-id map. Edges naming unknown labels are dropped.
func resolveNodes(nodeRecords []visNodeRecord, edgeRecords []visEdgeRecord) ([]models.VisNode, []models.VisEdge) {
	idByLabel := make(map[string]string, len(nodeRecords))
	nodes := make([]models.VisNode, 0, len(nodeRecords))
	for _, n := range nodeRecords {
		if n.Label == "" {
			continue
		}
		node := models.VisNode{
			ID:          models.NewID(),
			Label:       n.Label,
			Description: n.Description,
		}
		nodes = append(nodes, node)
		idByLabel[n.Label] = node.ID
	}

	var edges []models.VisEdge
	for _, e := range edgeRecords {
		sourceID, sourceOK := idByLabel[e.Source]
		targetID, targetOK := idByLabel[e.Target]
		if !sourceOK || !targetOK {
			slog.Warn("edge references unknown node label, dropping",
				"source", e.Source, "target", e.Target)
			continue
		}
		edges = append(edges, models.VisEdge{SourceID: sourceID, TargetID: targetID, Label: e.Label})
	}
	return nodes, edges
}

// ForConcept returns all visualizations generated for a concept.
func (v *VisualizationService) ForConcept(ctx context.Context, conceptID string) ([]*models.Visualization, error) {
	all, err := store.List[models.Visualization](v.store, store.TableVisualizations)
	if err != nil {
		return nil, err
	}
	matched := all[:0]
	for _, vis := range all {
		if vis.ConceptID == conceptID {
			matched = append(matched, vis)
		}
	}
	return matched, nil
}
