package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/ebooktools/rechapter/internal/rebuild"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rechapter",
		Short: "Rebuild EPUB files around their real chapter boundaries",
		Long: `rechapter re-splits an EPUB's internal files at top-level heading
boundaries, so one chapter means one file, and regenerates the package
document, navigation document and NCX to match.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newRebuildCmd())
	cmd.AddCommand(newBatchCmd())
	return cmd
}

func newRebuildCmd() *cobra.Command {
	var headingLevel int

	cmd := &cobra.Command{
		Use:   "rebuild <input.epub> <output.epub>",
		Short: "Rebuild a single EPUB",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := rebuild.NewPipeline(rebuild.Options{
				InputPath:    args[0],
				OutputPath:   args[1],
				HeadingLevel: headingLevel,
				Logger:       slog.Default(),
			})
			if err := p.Rebuild(); err != nil {
				return fmt.Errorf("rebuild failed: %w", err)
			}
			slog.Info("done", "output", args[1])
			return nil
		},
	}

	cmd.Flags().IntVar(&headingLevel, "heading-level", 1, "heading level that starts a new chapter (1-6)")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		headingLevel int
		suffix       string
	)

	cmd := &cobra.Command{
		Use:   "batch <input-dir> <output-dir>",
		Short: "Rebuild every EPUB under a directory, skipping existing outputs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rebuild.Batch(rebuild.BatchOptions{
				InputDir:     args[0],
				OutputDir:    args[1],
				Suffix:       suffix,
				HeadingLevel: headingLevel,
				Logger:       slog.Default(),
			})
			if err != nil {
				return err
			}
			slog.Info("batch finished",
				"rebuilt", res.Rebuilt, "skipped", res.Skipped, "failed", res.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&headingLevel, "heading-level", 1, "heading level that starts a new chapter (1-6)")
	cmd.Flags().StringVar(&suffix, "suffix", "_rebuilt", "suffix appended to output names before the extension")
	return cmd
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
