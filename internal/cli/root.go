// Package cli provides the command-line interface for conceptmine.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhartinger/conceptmine/internal/config"
	"github.com/jhartinger/conceptmine/internal/extract"
	"github.com/jhartinger/conceptmine/internal/llm"
	"github.com/jhartinger/conceptmine/internal/metrics"
	"github.com/jhartinger/conceptmine/internal/processor"
	"github.com/jhartinger/conceptmine/internal/queue"
	"github.com/jhartinger/conceptmine/internal/search"
	"github.com/jhartinger/conceptmine/internal/service"
	"github.com/jhartinger/conceptmine/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and store
	cfg       config.Config
	st        *store.Store
	jobQueue  *queue.Queue
	collector *metrics.Collector
	cleanupFn func() error

	// Lazy-initialized LLM model
	model *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "conceptmine",
	Short: "Document-to-concept mining pipeline",
	Long: `Conceptmine ingests heterogeneous documents, extracts concepts from them
via an LLM, clusters and scores those concepts against web evidence, and
generates derivative assets (documents, diagrams, timelines).

Work flows through a persisted job queue: ingestion enqueues processing,
processing enqueues extraction, and the process command drains the queue.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		cleanupFn = cleanup

		var err error
		st, err = store.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		jobQueue = queue.New(st)
		collector = metrics.NewCollector()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			if err := st.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if cleanupFn != nil {
			_ = cleanupFn()
		}
	},
}

// getModel lazily initializes the LLM model. Commands that never call the
// LLM avoid provider setup entirely.
func getModel() (*llm.Model, error) {
	if model != nil {
		return model, nil
	}
	var err error
	model, err = llm.NewModel(cfg, collector)
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}
	return model, nil
}

// getSearcher builds the search client, or nil when no API key is
// configured. Callers that require search should check for nil.
func getSearcher() *search.Client {
	if cfg.SearchAPIKey == "" {
		return nil
	}
	return search.NewClient(cfg.SearchBaseURL, cfg.SearchAPIKey, collector)
}

// pipeline bundles the wired services behind a running extraction pool.
type pipeline struct {
	files     *service.FileService
	concepts  *service.ConceptService
	analysis  *service.AnalysisService
	assets    *service.AssetService
	visuals   *service.VisualizationService
	ops       *service.Operations
	processor *processor.Processor
	pool      *extract.Pool
}

// getPipeline wires every service. The caller must Close the returned
// pipeline's pool when done.
func getPipeline(requireLLM bool) (*pipeline, error) {
	var m *llm.Model
	if requireLLM {
		var err error
		m, err = getModel()
		if err != nil {
			return nil, err
		}
	}

	var searcher service.Searcher
	if c := getSearcher(); c != nil {
		searcher = c
	}

	pool := extract.NewPool(cfg.MaxConcurrentJobs, slog.Default(), collector)
	pool.Start(context.Background())

	files := service.NewFileService(st, jobQueue, pool)
	concepts := service.NewConceptService(st, m)
	analysis := service.NewAnalysisService(st, m, searcher)
	assets := service.NewAssetService(st, m)
	visuals := service.NewVisualizationService(st, m, searcher)
	ops := service.NewOperations(jobQueue, files, concepts, analysis, assets, visuals)

	return &pipeline{
		files:     files,
		concepts:  concepts,
		analysis:  analysis,
		assets:    assets,
		visuals:   visuals,
		ops:       ops,
		processor: processor.New(jobQueue, ops),
		pool:      pool,
	}, nil
}

func (p *pipeline) Close() {
	p.pool.Close()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
