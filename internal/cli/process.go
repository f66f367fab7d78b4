package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	processWatch    bool
	processInterval int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run queued jobs",
	Long: `Drain the job queue once, or keep polling it with --watch.

In watch mode the processor re-checks the queue every interval until
interrupted. Job failures never stop the loop; they are recorded on the
job and visible via 'conceptmine jobs'.

Examples:
  conceptmine process
  conceptmine process --watch --interval 5000`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processWatch, "watch", false, "keep polling the queue until interrupted")
	processCmd.Flags().IntVar(&processInterval, "interval", 0, "poll interval in ms (default from config)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	p, err := getPipeline(true)
	if err != nil {
		return err
	}
	defer p.Close()

	if !processWatch {
		count := p.processor.ProcessAll(ctx)
		fmt.Printf("Processed %d jobs\n", count)
		return nil
	}

	intervalMs := processInterval
	if intervalMs <= 0 {
		intervalMs = cfg.PollIntervalMs
	}
	interval := time.Duration(intervalMs) * time.Millisecond

	stop := p.processor.StartLoop(ctx, interval)
	defer stop()
	fmt.Printf("Watching queue every %s, Ctrl-C to stop\n", interval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println("\nStopping")
	return nil
}
