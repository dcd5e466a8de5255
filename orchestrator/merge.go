package orchestrator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/layout"
)

// MergeCommand adds every job output of the given histogram categories
// into the run's histogram file.
func MergeCommand(l *layout.Layout, categories []string) string {
	parts := []string{l.MergeExec(), l.HistogramFile()}
	for _, c := range categories {
		parts = append(parts, filepath.Join(l.HistogramCategoryDir(c), "*.root"))
	}
	return strings.Join(parts, " ")
}

func SummarizeCommand(l *layout.Layout) string {
	return l.PrepDatacardExec() + " " + l.DatacardConfigPath()
}

// CheckOutputs verifies that every expected job output is present under
// histogramsDir before they are merged.
func CheckOutputs(histogramsDir string, expected []string) error {
	found, err := doublestar.Glob(os.DirFS(histogramsDir), "**/*.root")
	if err != nil {
		return fmt.Errorf("listing job outputs in %q: %w", histogramsDir, err)
	}

	present := make(map[string]bool, len(found))
	for _, f := range found {
		present[filepath.Join(histogramsDir, filepath.FromSlash(f))] = true
	}

	var missing []string
	for _, path := range expected {
		if !present[filepath.Clean(path)] {
			missing = append(missing, path)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	zlog.Warn("job outputs missing", zap.Strings("missing", missing))
	return fmt.Errorf("%d of %d job outputs missing: %w", len(missing), len(expected), tterrors.NewMissingInputFile(missing[0], fs.ErrNotExist))
}

// RemoveOutputs deletes the job outputs left in place by an earlier run, so
// that only files written by the current jobs reach the merge.
func RemoveOutputs(outputs []string) error {
	var errs error
	removed := 0
	for _, path := range outputs {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
		case !errors.Is(err, fs.ErrNotExist):
			errs = multierr.Append(errs, fmt.Errorf("removing stale output %q: %w", path, err))
		}
	}
	if removed > 0 {
		zlog.Info("removed stale job outputs", zap.Int("count", removed))
	}
	return errs
}
