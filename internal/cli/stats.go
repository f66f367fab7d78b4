package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhartinger/conceptmine/internal/metrics"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store contents and job queue summary",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	counts := []struct {
		name  string
		count func() (int, error)
	}{
		{"files", tableCount[models.SourceFile](store.TableFiles)},
		{"concepts", tableCount[models.Concept](store.TableConcepts)},
		{"clusters", tableCount[models.Cluster](store.TableClusters)},
		{"analyses", tableCount[models.AnalysisResult](store.TableAnalyses)},
		{"visualizations", tableCount[models.Visualization](store.TableVisualizations)},
		{"assets", tableCount[models.GeneratedAsset](store.TableAssets)},
		{"provenance", tableCount[models.ProvenanceRecord](store.TableProvenance)},
	}

	fmt.Println("Store:")
	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			return fmt.Errorf("count %s: %w", c.name, err)
		}
		fmt.Printf("  %-16s %d\n", c.name, n)
	}

	jobs, err := jobQueue.List(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	byStatus := make(map[models.JobStatus]int)
	for _, j := range jobs {
		byStatus[j.Status]++
	}
	fmt.Println("\nJobs:")
	for _, status := range []models.JobStatus{
		models.JobStatusPending, models.JobStatusRunning,
		models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled,
	} {
		if n := byStatus[status]; n > 0 {
			fmt.Printf("  %-16s %d\n", status, n)
		}
	}
	if len(jobs) == 0 {
		fmt.Println("  (none)")
	}

	printSnapshot(collector.GetSnapshot())
	return nil
}

func tableCount[T any](table store.Table) func() (int, error) {
	return func() (int, error) {
		records, err := store.List[T](st, table)
		if err != nil {
			return 0, err
		}
		return len(records), nil
	}
}

func printSnapshot(snap metrics.Snapshot) {
	ops := []struct {
		name string
		op   *metrics.OperationSnapshot
	}{
		{"llm_generate", snap.LLMGenerate},
		{"search_query", snap.SearchQuery},
		{"extraction", snap.Extraction},
	}
	printed := false
	for _, o := range ops {
		if o.op == nil {
			continue
		}
		if !printed {
			fmt.Println("\nThis session:")
			printed = true
		}
		fmt.Printf("  %-16s %d calls, avg %.0fms\n", o.name, o.op.Count, o.op.AvgTimeMs)
		if o.op.TotalInputTokens != nil {
			fmt.Printf("  %-16s %d in / %d out tokens\n", "", *o.op.TotalInputTokens, *o.op.TotalOutputTokens)
		}
	}
}
