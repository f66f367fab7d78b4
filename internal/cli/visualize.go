package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var visualizeJSON bool

var visualizeCmd = &cobra.Command{
	Use:   "visualize <concept-id>",
	Short: "Generate timeline and node-map data for a concept",
	Long: `Generate visualization data: a timeline of the concept's evolution and a
node map of related concepts, produced concurrently and merged into one
persisted record.

Examples:
  conceptmine visualize 3f2a...
  conceptmine visualize 3f2a... --json > vis.json`,
	Args: cobra.ExactArgs(1),
	RunE: runVisualize,
}

func init() {
	visualizeCmd.Flags().BoolVar(&visualizeJSON, "json", false, "dump the visualization record as JSON")
	rootCmd.AddCommand(visualizeCmd)
}

func runVisualize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, err := getPipeline(true)
	if err != nil {
		return err
	}
	defer p.Close()

	vis, err := p.visuals.GenerateAll(ctx, args[0], func(progress int, label string) {
		if !visualizeJSON {
			fmt.Printf("  %3d%% %s\n", progress, label)
		}
	})
	if err != nil {
		return fmt.Errorf("generate visualization: %w", err)
	}

	if visualizeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(vis)
	}

	fmt.Printf("Visualization %s\n", vis.ID)
	fmt.Printf("  Timeline: %d nodes\n", len(vis.Timeline))
	for _, n := range vis.Timeline {
		fmt.Printf("    - %s\n", n.Label)
	}
	fmt.Printf("  Map: %d nodes, %d edges\n", len(vis.MapNodes), len(vis.MapEdges))
	return nil
}
