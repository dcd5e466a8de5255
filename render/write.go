package render

import (
	"context"
	"fmt"
	"os"

	"github.com/abourget/llerrgroup"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/work"
)

const writeParallelism = 8

// Directories lists every directory a run writes in: the five top-level
// ones, one configuration directory per sample and one histogram directory
// per category.
func Directories(l *layout.Layout, plan *work.Plan) []string {
	dirs := l.Dirs()
	seen := map[string]bool{}
	for _, d := range dirs {
		seen[d] = true
	}
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for _, sample := range plan.Samples {
		add(l.SampleConfigDir(sample.ProcessName))
		add(l.HistogramCategoryDir(string(sample.Category)))
	}
	return dirs
}

// WriteSetup creates the run's directories and writes every rendered file,
// scripts being made executable.
func WriteSetup(ctx context.Context, l *layout.Layout, plan *work.Plan) error {
	for _, d := range Directories(l, plan) {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %q: %w", d, err)
		}
	}

	files, err := Render(l, plan)
	if err != nil {
		return fmt.Errorf("rendering setup: %w", err)
	}

	var written uint64
	eg := llerrgroup.New(writeParallelism)
	for _, f := range files {
		if eg.Stop() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		f := f
		eg.Go(func() error {
			if err := writeFile(f); err != nil {
				return err
			}
			zlog.Debug("file written", zap.String("path", f.Path))
			return nil
		})
		written += uint64(len(f.Content))
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("writing setup: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	zlog.Info("run setup written",
		zap.Int("file_count", len(files)),
		zap.String("size", humanize.Bytes(written)),
		zap.String("output_dir", l.OutputDir()),
	)
	return nil
}

func writeFile(f *File) error {
	if err := os.WriteFile(f.Path, f.Content, 0644); err != nil {
		return fmt.Errorf("writing %q: %w", f.Path, err)
	}
	if !f.Executable {
		return nil
	}

	info, err := os.Stat(f.Path)
	if err != nil {
		return fmt.Errorf("stat %q: %w", f.Path, err)
	}
	if err := os.Chmod(f.Path, info.Mode()|0111); err != nil {
		return fmt.Errorf("chmod +x %q: %w", f.Path, err)
	}
	return nil
}
