package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jhartinger/conceptmine/internal/extract"
	"github.com/jhartinger/conceptmine/internal/llm"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/queue"
	"github.com/jhartinger/conceptmine/internal/search"
	"github.com/jhartinger/conceptmine/internal/store"
)

// stubModel answers generation calls through a single reply function, keyed
// off the system prompt when a test needs to distinguish call sites.
type stubModel struct {
	mu    sync.Mutex
	reply func(systemPrompt, userPrompt string) (string, error)
	calls int
}

func (m *stubModel) Generate(ctx context.Context, prompt string, opts llm.Options) (*llm.Response, error) {
	return m.GenerateWithSystem(ctx, "", prompt, opts)
}

func (m *stubModel) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (*llm.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	content, err := m.reply(systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Content: content}, nil
}

type stubSearcher struct {
	results []search.Result
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func putFile(t *testing.T, s *store.Store, file *models.SourceFile) {
	t.Helper()
	if err := store.Put(s, store.TableFiles, file.ID, file); err != nil {
		t.Fatalf("put file: %v", err)
	}
}

func putConcept(t *testing.T, s *store.Store, c *models.Concept) {
	t.Helper()
	if err := store.Put(s, store.TableConcepts, c.ID, c); err != nil {
		t.Fatalf("put concept: %v", err)
	}
}

func TestFileUploadAndProcess(t *testing.T) {
	s := newTestStore(t)
	q := queue.New(s)
	pool := extract.NewPool(1, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Close()

	files := NewFileService(s, q, pool)
	file, job, err := files.Upload(ctx, "notes.txt", []byte("some notes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if file.Format != "txt" || file.Category != models.CategoryText {
		t.Errorf("file = %+v", file)
	}
	if job.Type != models.JobFileProcessing || job.TargetID != file.ID {
		t.Errorf("job = %+v", job)
	}

	taken, err := q.Dequeue(ctx)
	if err != nil || taken == nil {
		t.Fatalf("Dequeue() = %v, %v", taken, err)
	}
	if err := files.Process(ctx, taken); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	stored, err := files.Get(ctx, file.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.ProcessingStatus != models.FileCompleted || stored.ExtractedText != "some notes" {
		t.Errorf("stored file = status %s, text %q", stored.ProcessingStatus, stored.ExtractedText)
	}
	if stored.ProcessedAt == nil {
		t.Error("ProcessedAt not set")
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Type != models.JobConceptExtraction || pending[0].TargetID != file.ID {
		t.Errorf("expected a concept_extraction job for the file, got %+v", pending)
	}
}

func TestUploadRejectsUnknownFormat(t *testing.T) {
	s := newTestStore(t)
	files := NewFileService(s, queue.New(s), nil)
	if _, _, err := files.Upload(context.Background(), "data.xyz", []byte("x")); !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Errorf("Upload() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtractFromFilesDeduplicates(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(_, user string) (string, error) {
		if strings.Contains(user, "a.txt") {
			return `[{"name":"Edge Caching","description":"first","domain":"infra","excerpt":"from a"}]`, nil
		}
		return `[{"name":"edge caching","description":"second","domain":"infra","excerpt":"from b"},
			{"name":"Cold Starts","description":"other","domain":"infra","excerpt":"from b"}]`, nil
	}}
	svc := NewConceptService(s, model)

	fileA := &models.SourceFile{ID: "fa", Name: "a.txt", ExtractedText: "text a"}
	fileB := &models.SourceFile{ID: "fb", Name: "b.txt", ExtractedText: "text b"}
	putFile(t, s, fileA)
	putFile(t, s, fileB)

	concepts, err := svc.ExtractFromFiles(context.Background(), []string{"fa", "fb"})
	if err != nil {
		t.Fatalf("ExtractFromFiles() error = %v", err)
	}
	if len(concepts) != 2 {
		t.Fatalf("got %d concepts, want 2 after dedupe", len(concepts))
	}

	first := concepts[0]
	if first.Name != "Edge Caching" || first.Description != "first" {
		t.Errorf("first-seen record should survive, got %+v", first)
	}
	if len(first.Sources) != 2 {
		t.Fatalf("duplicate should merge sources, got %d", len(first.Sources))
	}
	if first.Sources[0].FileID != "fa" || first.Sources[1].FileID != "fb" {
		t.Errorf("sources = %+v", first.Sources)
	}
}

func TestClusterBackWritesAssignments(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(_, _ string) (string, error) {
		return "```json\n" + `[{"name":"Infrastructure","domain":"infra","concept_names":["Edge Caching","No Such Concept"]}]` + "\n```", nil
	}}
	svc := NewConceptService(s, model)

	concept := &models.Concept{ID: "c1", Name: "Edge Caching", Domain: "infra"}
	putConcept(t, s, concept)

	clusters, err := svc.Cluster(context.Background())
	if err != nil {
		t.Fatalf("Cluster() error = %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if got := clusters[0].ConceptIDs; len(got) != 1 || got[0] != "c1" {
		t.Errorf("unknown names should be dropped, ConceptIDs = %v", got)
	}

	stored, err := svc.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.ClusterID != clusters[0].ID {
		t.Errorf("ClusterID = %q, want %q", stored.ClusterID, clusters[0].ID)
	}
}

func TestAnalyzeComputesCompositeAndTier(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(_, _ string) (string, error) {
		return `{"market":{"score":80},"technical":{"score":70},"investment":{"score":60},
			"summary":"viable","risks":["competition"],"next_steps":["prototype"]}`, nil
	}}
	searcher := &stubSearcher{results: []search.Result{
		{Title: "report", URL: "https://a.example", Snippet: "big"},
		{Title: "dup", URL: "https://a.example"},
	}}
	svc := NewAnalysisService(s, model, searcher)
	putConcept(t, s, &models.Concept{ID: "c1", Name: "Edge Caching", Domain: "infra"})

	result, err := svc.Analyze(context.Background(), "c1", nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.CompositeScore != 72 {
		t.Errorf("CompositeScore = %d, want 72", result.CompositeScore)
	}
	if result.Tier != models.Tier2 {
		t.Errorf("Tier = %s, want T2", result.Tier)
	}
	if len(result.Evidence) != 1 {
		t.Errorf("evidence should be deduplicated by URL, got %d", len(result.Evidence))
	}
}

func TestAnalyzeMissingSubScore(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(_, _ string) (string, error) {
		return `{"market":{"score":80},"technical":{"score":70}}`, nil
	}}
	svc := NewAnalysisService(s, model, &stubSearcher{})
	putConcept(t, s, &models.Concept{ID: "c1", Name: "Edge Caching"})

	if _, err := svc.Analyze(context.Background(), "c1", nil); !errors.Is(err, ErrMissingScore) {
		t.Errorf("Analyze() error = %v, want ErrMissingScore", err)
	}
}

func TestAnalyzeToleratesSearchFailure(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(_, _ string) (string, error) {
		return `{"market":{"score":50},"technical":{"score":50},"investment":{"score":50}}`, nil
	}}
	svc := NewAnalysisService(s, model, &stubSearcher{err: errors.New("search down")})
	putConcept(t, s, &models.Concept{ID: "c1", Name: "Edge Caching"})

	result, err := svc.Analyze(context.Background(), "c1", nil)
	if err != nil {
		t.Fatalf("Analyze() should degrade without search, got error %v", err)
	}
	if len(result.Evidence) != 0 {
		t.Errorf("evidence = %v, want none", result.Evidence)
	}
}

func TestAnalysisHistoryAndLatest(t *testing.T) {
	s := newTestStore(t)
	svc := NewAnalysisService(s, nil, nil)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a1", "a2"} {
		r := &models.AnalysisResult{ID: id, ConceptID: "c1", CompositeScore: 40 + i, AnalyzedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.Put(s, store.TableAnalyses, r.ID, r); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := svc.LatestForConcept(context.Background(), "c1")
	if err != nil {
		t.Fatalf("LatestForConcept() error = %v", err)
	}
	if latest == nil || latest.ID != "a2" {
		t.Errorf("latest = %+v, want a2", latest)
	}

	none, err := svc.LatestForConcept(context.Background(), "other")
	if err != nil || none != nil {
		t.Errorf("LatestForConcept(other) = %+v, %v, want nil, nil", none, err)
	}
}

func TestGenerateDocumentAsset(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(system, _ string) (string, error) {
		if strings.Contains(system, "numbered sources") {
			return `[{"statement":"it caches","source_indexes":[1],"confidence":0.9}]`, nil
		}
		return "# Executive Summary\n\nGood idea.", nil
	}}
	svc := NewAssetService(s, model)
	putConcept(t, s, &models.Concept{
		ID: "c1", Name: "Edge Caching", Domain: "infra",
		Sources: []models.SourceRef{{FileID: "f1", FileName: "a.txt", Excerpt: "caching helps"}},
	})

	asset, err := svc.Generate(context.Background(), "c1", models.AssetExecutiveSummary, "md", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if asset.FileName != "Edge_Caching_executive_summary.md" {
		t.Errorf("FileName = %q", asset.FileName)
	}
	if len(asset.Provenance) != 1 || asset.Provenance[0].Sources[0].FileID != "f1" {
		t.Errorf("provenance = %+v", asset.Provenance)
	}

	records, err := store.List[models.ProvenanceRecord](s, store.TableProvenance)
	if err != nil || len(records) != 1 {
		t.Fatalf("provenance records = %v, %v", records, err)
	}
	if records[0].AssetID != asset.ID || records[0].ConceptID != "c1" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestGenerateVisualAssetSanitizesSVG(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(system, _ string) (string, error) {
		if strings.Contains(system, "numbered sources") {
			return "[]", nil
		}
		return `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">` +
			`<script>alert(1)</script><rect x="1" y="1" width="5" height="5" onclick="evil()"/></svg>`, nil
	}}
	svc := NewAssetService(s, model)
	putConcept(t, s, &models.Concept{ID: "c1", Name: "Edge Caching"})

	asset, err := svc.Generate(context.Background(), "c1", models.AssetConceptDiagram, "svg", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	content := string(asset.Data)
	if strings.Contains(content, "script") || strings.Contains(content, "alert") || strings.Contains(content, "onclick") {
		t.Errorf("sanitized SVG still contains active content: %q", content)
	}
	if !strings.Contains(content, "<rect") {
		t.Errorf("allowed elements should survive: %q", content)
	}
}

func TestGenerateAssetProvenanceFailureDegrades(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(system, _ string) (string, error) {
		if strings.Contains(system, "numbered sources") {
			return "", errors.New("provider timeout")
		}
		return "content", nil
	}}
	svc := NewAssetService(s, model)
	putConcept(t, s, &models.Concept{
		ID: "c1", Name: "Edge Caching",
		Sources: []models.SourceRef{{FileID: "f1", FileName: "a.txt"}},
	})

	asset, err := svc.Generate(context.Background(), "c1", models.AssetOnePager, "md", nil)
	if err != nil {
		t.Fatalf("provenance failure must not fail generation, got %v", err)
	}
	if len(asset.Provenance) != 0 {
		t.Errorf("provenance = %+v, want empty", asset.Provenance)
	}
}

func TestEscapeField(t *testing.T) {
	got := escapeField("a\\b $x `cmd`")
	want := `a\\b \$x ` + "\\`cmd\\`"
	if got != want {
		t.Errorf("escapeField() = %q, want %q", got, want)
	}

	long := strings.Repeat("x", maxPromptField+10)
	if got := escapeField(long); len(got) != maxPromptField+3 {
		t.Errorf("truncated length = %d, want %d", len(got), maxPromptField+3)
	}
}

func TestGenerateAllMergesTimelineAndMap(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(system, _ string) (string, error) {
		if strings.Contains(system, "timeline") {
			return `{"nodes":[{"label":"Origin"},{"label":"Today"}]}`, nil
		}
		return `{"nodes":[{"label":"Core"},{"label":"Adjacent"}],
			"edges":[{"source":"Core","target":"Adjacent","label":"relates"},
			         {"source":"Core","target":"Ghost"}]}`, nil
	}}
	svc := NewVisualizationService(s, model, nil)
	putConcept(t, s, &models.Concept{ID: "c1", Name: "Edge Caching"})

	vis, err := svc.GenerateAll(context.Background(), "c1", nil)
	if err != nil {
		t.Fatalf("GenerateAll() error = %v", err)
	}
	if len(vis.Timeline) != 2 || len(vis.MapNodes) != 2 {
		t.Fatalf("timeline %d, map nodes %d", len(vis.Timeline), len(vis.MapNodes))
	}
	if len(vis.MapEdges) != 1 {
		t.Fatalf("edges with unknown labels should be dropped, got %d", len(vis.MapEdges))
	}
	edge := vis.MapEdges[0]
	var sourceLabel, targetLabel string
	for _, n := range vis.MapNodes {
		if n.ID == edge.SourceID {
			sourceLabel = n.Label
		}
		if n.ID == edge.TargetID {
			targetLabel = n.Label
		}
	}
	if sourceLabel != "Core" || targetLabel != "Adjacent" {
		t.Errorf("edge resolves to %q -> %q", sourceLabel, targetLabel)
	}
	for _, n := range vis.MapNodes {
		if n.X != 0 || n.Y != 0 {
			t.Errorf("node positions should default to (0,0), got %+v", n)
		}
	}
}

func TestVisualizationSearchFailureDoesNotAbort(t *testing.T) {
	s := newTestStore(t)
	model := &stubModel{reply: func(system, _ string) (string, error) {
		if strings.Contains(system, "timeline") {
			return `{"nodes":[{"label":"Origin"}]}`, nil
		}
		return `{"nodes":[{"label":"Core"}],"edges":[]}`, nil
	}}
	svc := NewVisualizationService(s, model, &stubSearcher{err: errors.New("search down")})
	putConcept(t, s, &models.Concept{ID: "c1", Name: "Edge Caching"})

	if _, err := svc.GenerateAll(context.Background(), "c1", nil); err != nil {
		t.Fatalf("GenerateAll() should tolerate search failure, got %v", err)
	}
}

func TestSettingsRoundTripEncryptsKeys(t *testing.T) {
	s := newTestStore(t)
	svc := NewSettingsService(s, "passphrase")
	ctx := context.Background()

	in := &models.Settings{
		LLMProvider:       "openai",
		LLMModel:          "gpt-4o",
		OpenAIAPIKey:      "sk-secret",
		MaxConcurrentJobs: 2,
	}
	if err := svc.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := store.Get[models.Settings](s, store.TableSettings, settingsID)
	if err != nil {
		t.Fatalf("raw read error = %v", err)
	}
	if raw.OpenAIAPIKey == "sk-secret" || raw.OpenAIAPIKey == "" {
		t.Errorf("stored key should be encrypted, got %q", raw.OpenAIAPIKey)
	}

	out, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.OpenAIAPIKey != "sk-secret" || out.LLMModel != "gpt-4o" {
		t.Errorf("loaded settings = %+v", out)
	}
}

func TestSettingsDefaultsWhenUnsaved(t *testing.T) {
	s := newTestStore(t)
	svc := NewSettingsService(s, "passphrase")
	out, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.LLMProvider != "ollama" || out.MaxConcurrentJobs != 3 {
		t.Errorf("defaults = %+v", out)
	}
}
