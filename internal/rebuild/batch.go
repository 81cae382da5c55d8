package rebuild

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// BatchOptions configures a directory batch run.
type BatchOptions struct {
	InputDir     string
	OutputDir    string
	Suffix       string // appended to the base name before the extension
	HeadingLevel int
	Logger       *slog.Logger
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Rebuilt int
	Skipped int
	Failed  int
}

const defaultSuffix = "_rebuilt"

// Batch discovers every .epub under InputDir, mirrors the directory layout
// under OutputDir and rebuilds each book whose output does not already
// exist. Re-running a partial batch only processes the missing outputs.
// One book's fatal error is logged and the run continues with the next.
func Batch(opts BatchOptions) (BatchResult, error) {
	if opts.Suffix == "" {
		opts.Suffix = defaultSuffix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var res BatchResult
	err := filepath.WalkDir(opts.InputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".epub") {
			return nil
		}

		rel, err := filepath.Rel(opts.InputDir, p)
		if err != nil {
			return err
		}
		outPath := filepath.Join(opts.OutputDir, outputName(rel, opts.Suffix))
		if _, err := os.Stat(outPath); err == nil {
			opts.Logger.Info("output exists, skipping", "input", p)
			res.Skipped++
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}

		pipe := NewPipeline(Options{
			InputPath:    p,
			OutputPath:   outPath,
			HeadingLevel: opts.HeadingLevel,
			Logger:       opts.Logger,
		})
		if err := pipe.Rebuild(); err != nil {
			opts.Logger.Error("rebuild failed", "input", p, "error", err)
			res.Failed++
			return nil
		}
		opts.Logger.Info("rebuilt", "input", p, "output", outPath)
		res.Rebuilt++
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("batch walk failed: %w", err)
	}
	return res, nil
}

// outputName derives the mirrored output path for one input, inserting the
// suffix before the extension.
func outputName(rel, suffix string) string {
	ext := filepath.Ext(rel)
	return strings.TrimSuffix(rel, ext) + suffix + ext
}
