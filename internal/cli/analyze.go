package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhartinger/conceptmine/internal/models"
)

var analyzeQueueOnly bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <concept-id>",
	Short: "Run market analysis for a concept",
	Long: `Score a concept's viability: three web searches gather evidence, the LLM
produces market, technical, and investment sub-scores, and the composite
score places the concept in a tier (T1 best to T4).

Re-running analysis keeps the history; the latest result wins for display.

Examples:
  conceptmine analyze 3f2a...        # Analyze now
  conceptmine analyze 3f2a... --queue  # Enqueue for 'conceptmine process'`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeQueueOnly, "queue", false, "enqueue the analysis instead of running it now")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	conceptID := args[0]

	if analyzeQueueOnly {
		job, err := jobQueue.Enqueue(ctx, models.JobMarketAnalysis, conceptID)
		if err != nil {
			return fmt.Errorf("enqueue analysis: %w", err)
		}
		fmt.Printf("Queued analysis as job %s\n", job.ID)
		return nil
	}

	p, err := getPipeline(true)
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.analysis.Analyze(ctx, conceptID, func(progress int, label string) {
		fmt.Printf("  %3d%% %s\n", progress, label)
	})
	if err != nil {
		return fmt.Errorf("analyze concept: %w", err)
	}

	fmt.Printf("\nComposite score: %d (%s, grade %s)\n",
		result.CompositeScore, result.Tier, models.GradeForScore(result.CompositeScore))
	fmt.Printf("  Market: %d  Technical: %d  Investment: %d\n",
		result.Market.Score, result.Technical.Score, result.Investment.Score)
	if result.Summary != "" {
		fmt.Printf("  Summary: %s\n", result.Summary)
	}
	if len(result.Risks) > 0 {
		fmt.Printf("  Risks: %s\n", strings.Join(result.Risks, "; "))
	}
	if len(result.NextSteps) > 0 {
		fmt.Printf("  Next steps: %s\n", strings.Join(result.NextSteps, "; "))
	}
	if len(result.Evidence) > 0 {
		fmt.Printf("  Evidence (%d sources):\n", len(result.Evidence))
		for _, e := range result.Evidence {
			fmt.Printf("    - %s (%s)\n", e.Title, e.URL)
		}
	}
	return nil
}
