package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jhartinger/conceptmine/internal/llm"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/store"
)

// ConceptService extracts concepts from processed files and groups them into
// clusters.
type ConceptService struct {
	store *store.Store
	model Generator
}

// NewConceptService creates a new concept service.
func NewConceptService(s *store.Store, model Generator) *ConceptService {
	return &ConceptService{store: s, model: model}
}

const extractSystemPrompt = `You are an analyst extracting distinct ideas from source material.
Respond with a JSON array only. Each element must have the fields:
"name" (short title), "description" (2-3 sentences),
"abstraction_level" (one of "specific", "approach", "paradigm"),
"domain" (free text), "themes" (array of strings),
"excerpt" (a short verbatim quote from the text supporting the concept).`

// conceptRecord is the shape the extraction prompt asks the LLM for.
type conceptRecord struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	AbstractionLevel string   `json:"abstraction_level"`
	Domain           string   `json:"domain"`
	Themes           []string `json:"themes"`
	Excerpt          string   `json:"excerpt"`
}

// ExtractFromFile extracts concepts from one processed file's text, assigns
// fresh ids, persists them, and returns the list. The file must have
// completed extraction.
func (s *ConceptService) ExtractFromFile(ctx context.Context, fileID string) ([]*models.Concept, error) {
	file, err := store.Get[models.SourceFile](s.store, store.TableFiles, fileID)
	if err != nil {
		return nil, fmt.Errorf("load file %s: %w", fileID, err)
	}
	if file.ExtractedText == "" {
		return nil, fmt.Errorf("file %s has no extracted text", fileID)
	}

	concepts, err := s.extractFromText(ctx, file)
	if err != nil {
		return nil, err
	}
	for _, c := range concepts {
		if err := store.Put(s.store, store.TableConcepts, c.ID, c); err != nil {
			return nil, fmt.Errorf("persist concept %s: %w", c.Name, err)
		}
	}
	slog.Info("concepts extracted", "file_id", fileID, "count", len(concepts))
	return concepts, nil
}

// ExtractFromFiles runs extraction per file and deduplicates the combined
// result by case-insensitive name. The first-seen record survives; duplicates
// contribute only their source references.
func (s *ConceptService) ExtractFromFiles(ctx context.Context, fileIDs []string) ([]*models.Concept, error) {
	byName := make(map[string]*models.Concept)
	var ordered []*models.Concept

	for _, fileID := range fileIDs {
		file, err := store.Get[models.SourceFile](s.store, store.TableFiles, fileID)
		if err != nil {
			return nil, fmt.Errorf("load file %s: %w", fileID, err)
		}
		concepts, err := s.extractFromText(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("extract from %s: %w", file.Name, err)
		}
		for _, c := range concepts {
			key := strings.ToLower(c.Name)
			if existing, dup := byName[key]; dup {
				existing.Sources = append(existing.Sources, c.Sources...)
				continue
			}
			byName[key] = c
			ordered = append(ordered, c)
		}
	}

	for _, c := range ordered {
		if err := store.Put(s.store, store.TableConcepts, c.ID, c); err != nil {
			return nil, fmt.Errorf("persist concept %s: %w", c.Name, err)
		}
	}
	slog.Info("concepts extracted", "files", len(fileIDs), "unique", len(ordered))
	return ordered, nil
}

func (s *ConceptService) extractFromText(ctx context.Context, file *models.SourceFile) ([]*models.Concept, error) {
	prompt := fmt.Sprintf("Extract the distinct concepts from this document.\n\nDocument %q:\n\n%s",
		file.Name, file.ExtractedText)

	resp, err := s.model.GenerateWithSystem(ctx, extractSystemPrompt, prompt, llm.Options{
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}

	var records []conceptRecord
	if err := llm.DecodeLenient(resp.Content, &records); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	now := time.Now().UTC()
	concepts := make([]*models.Concept, 0, len(records))
	for _, r := range records {
		if r.Name == "" {
			continue
		}
		level := models.AbstractionLevel(r.AbstractionLevel)
		if level != models.LevelSpecific && level != models.LevelApproach && level != models.LevelParadigm {
			level = models.LevelSpecific
		}
		concepts = append(concepts, &models.Concept{
			ID:               models.NewID(),
			Name:             r.Name,
			Description:      r.Description,
			AbstractionLevel: level,
			Domain:           r.Domain,
			Themes:           r.Themes,
			Sources: []models.SourceRef{{
				FileID:   file.ID,
				FileName: file.Name,
				Excerpt:  r.Excerpt,
			}},
			ExtractedAt: now,
		})
	}
	return concepts, nil
}

// Get returns one concept by id.
func (s *ConceptService) Get(ctx context.Context, id string) (*models.Concept, error) {
	return store.Get[models.Concept](s.store, store.TableConcepts, id)
}

// List returns all concepts.
func (s *ConceptService) List(ctx context.Context) ([]*models.Concept, error) {
	return store.List[models.Concept](s.store, store.TableConcepts)
}

// ByName returns the concept with the given case-insensitive name, or nil.
func (s *ConceptService) ByName(ctx context.Context, name string) (*models.Concept, error) {
	concepts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range concepts {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, nil
}
