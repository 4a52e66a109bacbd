package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arxaplan/cutout/internal/batch"
	"github.com/arxaplan/cutout/internal/removal"
	"github.com/arxaplan/cutout/internal/report"
	"github.com/spf13/cobra"
)

func newBatchCmd() *cobra.Command {
	var (
		outDir     string
		workers    int
		stagger    time.Duration
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "batch <images...>",
		Short: "Remove the backgrounds of up to 20 images",
		Long: `Removes the background of every image, one at a time unless --workers
allows more, and saves each result as arxaplan_<name>.png.

Files that are not images are skipped; files past the 20 image limit are
rejected. A processing report can be written as YAML or parquet.`,
		Example: `  cutout batch shoes/*.jpg --out cutouts --report report.yaml`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files := make([]batch.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				files = append(files, batch.File{Name: filepath.Base(path), Data: data})
			}

			history := report.NewLog()
			b := batch.New(removal.NewClient(), batch.WithWorkers(workers), batch.WithRecorder(history))
			defer b.Clear()

			added, err := b.Add(files)
			if err != nil {
				return err
			}
			for _, name := range added.Skipped {
				fmt.Printf("Skipped %s: not an image\n", name)
			}
			for _, name := range added.Rejected {
				fmt.Printf("Rejected %s: batch is limited to %d images\n", name, batch.MaxItems)
			}

			start := time.Now()
			if err := b.ProcessAll(ctx); err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			err = b.DownloadAll(ctx, stagger, func(name string, data []byte) error {
				path := filepath.Join(outDir, name)
				slog.Info("Saving cutout", "file", path)
				return os.WriteFile(path, data, 0644)
			})
			if err != nil {
				return err
			}

			for _, it := range b.Items() {
				if it.Status == batch.StatusError {
					fmt.Printf("Failed %s: %s\n", it.Name, it.Error)
				}
			}
			counts := b.Counts()
			fmt.Printf("\nProcessed %d images in %s: %d done, %d failed\n",
				counts.Total, time.Since(start).Round(time.Millisecond), counts.Done, counts.Error)

			if reportPath != "" {
				if err := history.Save(reportPath); err != nil {
					return err
				}
				fmt.Printf("Report saved to: %s\n", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the processed images")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Concurrent removals")
	cmd.Flags().DurationVar(&stagger, "stagger", batch.DefaultStagger, "Delay between saved files")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a processing report (.yaml or .parquet)")

	return cmd
}
