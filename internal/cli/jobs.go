package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhartinger/conceptmine/internal/models"
)

var (
	jobsClearCompleted bool
	jobsCancel         string
	jobsStatus         string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect background jobs",
	Long: `List all jobs or inspect a specific job by ID.

Examples:
  conceptmine jobs                    # List all jobs
  conceptmine jobs abc12345           # Show details for one job
  conceptmine jobs --status pending   # Filter by status
  conceptmine jobs --cancel abc12345  # Cancel a pending job
  conceptmine jobs --clear-completed  # Purge completed jobs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().BoolVar(&jobsClearCompleted, "clear-completed", false, "remove all completed jobs")
	jobsCmd.Flags().StringVar(&jobsCancel, "cancel", "", "cancel the job with this id")
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status (pending|running|completed|failed|cancelled)")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if jobsClearCompleted {
		count, err := jobQueue.ClearCompleted(ctx)
		if err != nil {
			return fmt.Errorf("clear completed: %w", err)
		}
		fmt.Printf("Removed %d completed jobs\n", count)
		return nil
	}

	if jobsCancel != "" {
		if err := jobQueue.Cancel(ctx, jobsCancel); err != nil {
			return fmt.Errorf("cancel job: %w", err)
		}
		fmt.Printf("Job %s cancelled\n", jobsCancel)
		return nil
	}

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	var jobs []*models.Job
	var err error
	if jobsStatus != "" {
		jobs, err = jobQueue.JobsByStatus(ctx, models.JobStatus(jobsStatus))
	} else {
		jobs, err = jobQueue.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-20s %-10s %-9s %-20s %s\n", "ID", "TYPE", "STATUS", "PROGRESS", "TARGET", "CREATED")
	fmt.Println("--------------------------------------------------------------------------------------")
	for _, job := range jobs {
		target := job.TargetID
		if len(target) > 20 {
			target = target[:20]
		}
		fmt.Printf("%-10s %-20s %-10s %8d%% %-20s %s\n",
			job.ID, job.Type, job.Status, job.Progress, target, job.CreatedAt.Format("15:04:05"))
	}
	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := jobQueue.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Type: %s\n", job.Type)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Target: %s\n", job.TargetID)
	fmt.Printf("  Progress: %d%%", job.Progress)
	if job.ProgressLabel != "" {
		fmt.Printf(" (%s)", job.ProgressLabel)
	}
	fmt.Println()
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.StartedAt != nil {
		fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		if job.StartedAt != nil {
			fmt.Printf("  Duration: %s\n", job.CompletedAt.Sub(*job.StartedAt).Round(time.Second))
		}
	}
	if job.ErrorMessage != "" {
		fmt.Printf("  Error: %s\n", job.ErrorMessage)
	}
	return nil
}
