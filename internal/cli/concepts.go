package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var conceptsCmd = &cobra.Command{
	Use:   "concepts [concept-id]",
	Short: "List or inspect extracted concepts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConcepts,
}

var extractCmd = &cobra.Command{
	Use:   "extract <file-id>...",
	Short: "Extract concepts from processed files",
	Long: `Run concept extraction directly over one or more processed files.
Extraction across multiple files deduplicates concepts by name and merges
their source references.

Queued extraction happens automatically after 'conceptmine process'; this
command is the direct, synchronous path.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group all concepts into thematic clusters",
	Args:  cobra.NoArgs,
	RunE:  runCluster,
}

func init() {
	rootCmd.AddCommand(conceptsCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(clusterCmd)
}

func runConcepts(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, err := getPipeline(false)
	if err != nil {
		return err
	}
	defer p.Close()

	if len(args) == 1 {
		concept, err := p.concepts.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get concept: %w", err)
		}
		fmt.Printf("Concept: %s\n", concept.Name)
		fmt.Printf("  ID: %s\n", concept.ID)
		fmt.Printf("  Level: %s\n", concept.AbstractionLevel)
		fmt.Printf("  Domain: %s\n", concept.Domain)
		fmt.Printf("  Description: %s\n", concept.Description)
		if len(concept.Themes) > 0 {
			fmt.Printf("  Themes: %s\n", strings.Join(concept.Themes, ", "))
		}
		if concept.ClusterID != "" {
			fmt.Printf("  Cluster: %s\n", concept.ClusterID)
		}
		for _, src := range concept.Sources {
			fmt.Printf("  Source: %s", src.FileName)
			if src.Excerpt != "" {
				fmt.Printf(": %q", src.Excerpt)
			}
			fmt.Println()
		}
		return nil
	}

	concepts, err := p.concepts.List(ctx)
	if err != nil {
		return fmt.Errorf("list concepts: %w", err)
	}
	if len(concepts) == 0 {
		fmt.Println("No concepts extracted yet")
		return nil
	}
	fmt.Printf("%-36s %-30s %-10s %s\n", "ID", "NAME", "LEVEL", "DOMAIN")
	for _, c := range concepts {
		name := c.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		fmt.Printf("%-36s %-30s %-10s %s\n", c.ID, name, c.AbstractionLevel, c.Domain)
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, err := getPipeline(true)
	if err != nil {
		return err
	}
	defer p.Close()

	concepts, err := p.concepts.ExtractFromFiles(ctx, args)
	if err != nil {
		return fmt.Errorf("extract concepts: %w", err)
	}
	fmt.Printf("Extracted %d concepts from %d files\n", len(concepts), len(args))
	for _, c := range concepts {
		fmt.Printf("  %s (%s): %s\n", c.Name, c.AbstractionLevel, c.ID)
	}
	return nil
}

func runCluster(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, err := getPipeline(true)
	if err != nil {
		return err
	}
	defer p.Close()

	clusters, err := p.concepts.Cluster(ctx)
	if err != nil {
		return fmt.Errorf("cluster concepts: %w", err)
	}
	fmt.Printf("Created %d clusters\n", len(clusters))
	for _, cl := range clusters {
		fmt.Printf("  %s (%s): %d concepts\n", cl.Name, cl.Domain, len(cl.ConceptIDs))
	}
	return nil
}
