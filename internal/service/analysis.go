package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhartinger/conceptmine/internal/llm"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/search"
	"github.com/jhartinger/conceptmine/internal/store"
)

// ErrMissingScore indicates the LLM response omitted one of the three
// required sub-score objects.
var ErrMissingScore = errors.New("analysis response is missing a sub-score")

// AnalysisService scores concept viability against web evidence.
type AnalysisService struct {
	store    *store.Store
	model    Generator
	searcher Searcher
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(s *store.Store, model Generator, searcher Searcher) *AnalysisService {
	return &AnalysisService{store: s, model: model, searcher: searcher}
}

const analysisSystemPrompt = `You are a market analyst scoring an idea's viability.
Respond with a JSON object only, with the fields:
"market" {"score": 0-100, "analysis": string},
"technical" {"score": 0-100, "analysis": string},
"investment" {"score": 0-100, "analysis": string},
"summary" (string), "risks" (array of strings), "next_steps" (array of strings).
Ground your scores in the provided search evidence where possible.`

// analysisRecord uses pointer sub-scores so a missing object is
// distinguishable from a zero score.
type analysisRecord struct {
	Market     *models.SubScore `json:"market"`
	Technical  *models.SubScore `json:"technical"`
	Investment *models.SubScore `json:"investment"`
	Summary    string           `json:"summary"`
	Risks      []string         `json:"risks"`
	NextSteps  []string         `json:"next_steps"`
}

// Analyze runs market analysis for one concept: three canned searches in
// parallel, one structured LLM call over the deduplicated evidence, then a
// new persisted AnalysisResult. Prior results for the concept are kept.
func (s *AnalysisService) Analyze(ctx context.Context, conceptID string, progress func(int, string)) (*models.AnalysisResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}

	concept, err := store.Get[models.Concept](s.store, store.TableConcepts, conceptID)
	if err != nil {
		return nil, fmt.Errorf("load concept %s: %w", conceptID, err)
	}

	progress(10, "searching")
	results := s.gatherEvidence(ctx, concept)

	progress(40, "analyzing")
	record, err := s.scoreWithLLM(ctx, concept, results)
	if err != nil {
		return nil, err
	}

	progress(80, "saving")
	composite := models.CompositeScore(record.Market.Score, record.Technical.Score, record.Investment.Score)
	result := &models.AnalysisResult{
		ID:             models.NewID(),
		ConceptID:      concept.ID,
		CompositeScore: composite,
		Tier:           models.TierForScore(composite),
		Market:         *record.Market,
		Technical:      *record.Technical,
		Investment:     *record.Investment,
		Summary:        record.Summary,
		Risks:          record.Risks,
		NextSteps:      record.NextSteps,
		Evidence:       evidenceRefs(results),
		AnalyzedAt:     time.Now().UTC(),
	}
	if err := store.Put(s.store, store.TableAnalyses, result.ID, result); err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}

	slog.Info("concept analyzed", "concept_id", concept.ID, "score", composite, "tier", result.Tier)
	return result, nil
}

// gatherEvidence runs the three angle queries concurrently. Search failures
// degrade to less evidence, never to a failed analysis.
func (s *AnalysisService) gatherEvidence(ctx context.Context, concept *models.Concept) []search.Result {
	if s.searcher == nil {
		slog.Warn("no search collaborator configured, analyzing without evidence")
		return nil
	}

	queries := []string{
		fmt.Sprintf("%s %s market size demand", concept.Name, concept.Domain),
		fmt.Sprintf("%s %s technology feasibility state of the art", concept.Name, concept.Domain),
		fmt.Sprintf("%s %s startup funding investment", concept.Name, concept.Domain),
	}

	perQuery := make([][]search.Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			results, err := s.searcher.Search(gctx, search.Request{Query: q, MaxResults: 5})
			if err != nil {
				slog.Warn("evidence search failed", "query", q, "error", err)
				return nil
			}
			perQuery[i] = results
			return nil
		})
	}
	_ = g.Wait() // goroutines only ever return nil

	var combined []search.Result
	for _, r := range perQuery {
		combined = append(combined, r...)
	}
	return search.DedupeByURL(combined)
}

func (s *AnalysisService) scoreWithLLM(ctx context.Context, concept *models.Concept, results []search.Result) (*analysisRecord, error) {
	var evidence strings.Builder
	for _, r := range results {
		fmt.Fprintf(&evidence, "- %s: %s (%s)\n", r.Title, r.Snippet, r.URL)
	}
	if evidence.Len() == 0 {
		evidence.WriteString("(no search evidence available)\n")
	}

	prompt := fmt.Sprintf("Concept: %s\nDomain: %s\nDescription: %s\n\nSearch evidence:\n%s",
		concept.Name, concept.Domain, concept.Description, evidence.String())

	resp, err := s.model.GenerateWithSystem(ctx, analysisSystemPrompt, prompt, llm.Options{
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm analysis: %w", err)
	}

	var record analysisRecord
	if err := llm.DecodeLenient(resp.Content, &record); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	if record.Market == nil || record.Technical == nil || record.Investment == nil {
		return nil, fmt.Errorf("%w for concept %s", ErrMissingScore, concept.Name)
	}
	return &record, nil
}

func evidenceRefs(results []search.Result) []models.EvidenceRef {
	refs := make([]models.EvidenceRef, 0, len(results))
	for _, r := range results {
		refs = append(refs, models.EvidenceRef{Title: r.Title, URL: r.URL, Source: r.Source})
	}
	return refs
}

// History returns every analysis for a concept, oldest first.
func (s *AnalysisService) History(ctx context.Context, conceptID string) ([]*models.AnalysisResult, error) {
	all, err := store.List[models.AnalysisResult](s.store, store.TableAnalyses)
	if err != nil {
		return nil, err
	}
	matched := all[:0]
	for _, a := range all {
		if a.ConceptID == conceptID {
			matched = append(matched, a)
		}
	}
	sortByAnalyzedAt(matched)
	return matched, nil
}

// LatestForConcept returns the most recent analysis for a concept, or nil if
// it was never analyzed.
func (s *AnalysisService) LatestForConcept(ctx context.Context, conceptID string) (*models.AnalysisResult, error) {
	history, err := s.History(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	return history[len(history)-1], nil
}

func sortByAnalyzedAt(results []*models.AnalysisResult) {
	slices.SortFunc(results, func(a, b *models.AnalysisResult) int {
		return a.AnalyzedAt.Compare(b.AnalyzedAt)
	})
}
