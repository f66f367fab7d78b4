package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ingestProcess bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-dir>...",
	Short: "Upload files and queue them for processing",
	Long: `Upload one or more files into the store and enqueue a processing job for
each. Directories are walked non-recursively. Unsupported formats are
reported and skipped.

Examples:
  conceptmine ingest notes.md paper.pdf
  conceptmine ingest ./research/ --process`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestProcess, "process", false, "drain the job queue after uploading")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files found")
	}

	p, err := getPipeline(ingestProcess)
	if err != nil {
		return err
	}
	defer p.Close()

	uploaded := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			continue
		}
		file, job, err := p.files.Upload(ctx, filepath.Base(path), data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			continue
		}
		uploaded++
		fmt.Printf("Uploaded %s (%s, %d bytes) -> job %s\n", file.Name, file.Format, file.Size, job.ID)
	}
	fmt.Printf("\n%d of %d files uploaded\n", uploaded, len(paths))

	if ingestProcess && uploaded > 0 {
		count := p.processor.ProcessAll(ctx)
		fmt.Printf("Processed %d jobs\n", count)
	}
	return nil
}

// expandPaths resolves directory arguments to their immediate regular files.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	return paths, nil
}
