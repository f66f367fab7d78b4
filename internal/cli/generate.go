package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jhartinger/conceptmine/internal/models"
)

var (
	generateType   string
	generateFormat string
	generateOut    string
)

var generateCmd = &cobra.Command{
	Use:   "generate <concept-id>",
	Short: "Generate a document or visual asset for a concept",
	Long: `Generate one asset from a concept and its latest analysis.

Document types: executive_summary, pitch_deck, one_pager, technical_spec,
market_report, roadmap. Visual types (SVG): concept_diagram,
architecture_chart, mind_map, flow_chart, infographic.

Examples:
  conceptmine generate 3f2a... --type executive_summary
  conceptmine generate 3f2a... --type mind_map --out ./assets/`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateType, "type", string(models.AssetExecutiveSummary), "asset type")
	generateCmd.Flags().StringVar(&generateFormat, "format", "", "output format (defaults to md for documents, svg for visuals)")
	generateCmd.Flags().StringVar(&generateOut, "out", "", "directory to write the asset file into")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	assetType := models.AssetType(generateType)
	if !assetType.Valid() {
		return fmt.Errorf("unknown asset type: %s", generateType)
	}
	format := generateFormat
	if format == "" {
		if assetType.Visual() {
			format = "svg"
		} else {
			format = "md"
		}
	}

	p, err := getPipeline(true)
	if err != nil {
		return err
	}
	defer p.Close()

	asset, err := p.assets.Generate(ctx, args[0], assetType, format, func(progress int, label string) {
		fmt.Printf("  %3d%% %s\n", progress, label)
	})
	if err != nil {
		return fmt.Errorf("generate asset: %w", err)
	}

	fmt.Printf("Generated %s (%d bytes, %d provenance claims)\n",
		asset.FileName, len(asset.Data), len(asset.Provenance))

	if generateOut != "" {
		path := filepath.Join(generateOut, asset.FileName)
		if err := os.MkdirAll(generateOut, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(path, asset.Data, 0644); err != nil {
			return fmt.Errorf("write asset: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}
