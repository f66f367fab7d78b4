package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files [file-id]",
	Short: "List or inspect uploaded files",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, err := getPipeline(false)
	if err != nil {
		return err
	}
	defer p.Close()

	if len(args) == 1 {
		file, err := p.files.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get file: %w", err)
		}
		fmt.Printf("File: %s\n", file.Name)
		fmt.Printf("  ID: %s\n", file.ID)
		fmt.Printf("  Format: %s (%s)\n", file.Format, file.Category)
		fmt.Printf("  Size: %d bytes\n", file.Size)
		fmt.Printf("  Status: %s (%d%%)\n", file.ProcessingStatus, file.ProcessingProgress)
		fmt.Printf("  Uploaded: %s\n", file.UploadedAt.Format("2006-01-02 15:04:05"))
		if file.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", file.ErrorMessage)
		}
		if file.ExtractedText != "" {
			preview := file.ExtractedText
			if len(preview) > 400 {
				preview = preview[:400] + "..."
			}
			fmt.Printf("\n%s\n", preview)
		}
		return nil
	}

	files, err := p.files.List(ctx)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No files uploaded yet")
		return nil
	}
	fmt.Printf("%-36s %-30s %-8s %-12s %s\n", "ID", "NAME", "FORMAT", "STATUS", "SIZE")
	for _, f := range files {
		name := f.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		fmt.Printf("%-36s %-30s %-8s %-12s %d\n", f.ID, name, f.Format, f.ProcessingStatus, f.Size)
	}
	return nil
}
