package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jhartinger/conceptmine/internal/llm"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/store"
)

const clusterSystemPrompt = `You group related concepts into named thematic clusters.
Respond with a JSON array only. Each element must have the fields:
"name" (cluster title), "domain" (free text),
"concept_names" (array of concept names belonging to the cluster, copied exactly).`

type clusterRecord struct {
	Name         string   `json:"name"`
	Domain       string   `json:"domain"`
	ConceptNames []string `json:"concept_names"`
}

// Cluster groups every stored concept into clusters with a single LLM call.
// Cluster membership entries that do not resolve to a known concept name are
// dropped. Concepts the LLM omits keep an empty ClusterID.
func (s *ConceptService) Cluster(ctx context.Context) ([]*models.Cluster, error) {
	concepts, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load concepts: %w", err)
	}
	if len(concepts) == 0 {
		return nil, fmt.Errorf("no concepts to cluster")
	}

	byName := make(map[string]*models.Concept, len(concepts))
	var summary strings.Builder
	for _, c := range concepts {
		byName[strings.ToLower(c.Name)] = c
		fmt.Fprintf(&summary, "- %s (%s): %s\n", c.Name, c.Domain, c.Description)
	}

	prompt := "Group these concepts into thematic clusters:\n\n" + summary.String()
	resp, err := s.model.GenerateWithSystem(ctx, clusterSystemPrompt, prompt, llm.Options{
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm clustering: %w", err)
	}

	var records []clusterRecord
	if err := llm.DecodeLenient(resp.Content, &records); err != nil {
		return nil, fmt.Errorf("parse clustering response: %w", err)
	}

	var clusters []*models.Cluster
	for _, r := range records {
		cluster := &models.Cluster{
			ID:     models.NewID(),
			Name:   r.Name,
			Domain: r.Domain,
		}
		for _, name := range r.ConceptNames {
			concept, ok := byName[strings.ToLower(name)]
			if !ok {
				slog.Warn("cluster references unknown concept, skipping", "cluster", r.Name, "concept", name)
				continue
			}
			cluster.ConceptIDs = append(cluster.ConceptIDs, concept.ID)
			concept.ClusterID = cluster.ID
		}
		if len(cluster.ConceptIDs) == 0 {
			continue
		}
		if err := store.Put(s.store, store.TableClusters, cluster.ID, cluster); err != nil {
			return nil, fmt.Errorf("persist cluster %s: %w", cluster.Name, err)
		}
		clusters = append(clusters, cluster)
	}

	// Back-write cluster assignments onto the matched concepts.
	for _, c := range concepts {
		if c.ClusterID == "" {
			continue
		}
		if err := store.Put(s.store, store.TableConcepts, c.ID, c); err != nil {
			return nil, fmt.Errorf("persist concept %s: %w", c.Name, err)
		}
	}

	slog.Info("concepts clustered", "concepts", len(concepts), "clusters", len(clusters))
	return clusters, nil
}

// Clusters returns all stored clusters.
func (s *ConceptService) Clusters(ctx context.Context) ([]*models.Cluster, error) {
	return store.List[models.Cluster](s.store, store.TableClusters)
}
