// Package service provides business logic for Conceptmine operations: file
// ingestion, concept extraction, clustering, market analysis, asset
// generation, and visualization data.
package service

import (
	"context"

	"github.com/jhartinger/conceptmine/internal/llm"
	"github.com/jhartinger/conceptmine/internal/search"
)

// Generator is the text-generation collaborator. *llm.Model satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts llm.Options) (*llm.Response, error)
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (*llm.Response, error)
}

// Searcher is the web-search collaborator. *search.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, req search.Request) ([]search.Result, error)
}
