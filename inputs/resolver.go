package inputs

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	tterrors "github.com/tth-analysis/tthrun/errors"
)

// FilePath is the location of file idx inside a storage directory. Files
// are bucketed a thousand per subdirectory: tree_1234.root lives in 0001/.
func FilePath(storeDir string, idx int) string {
	return filepath.Join(storeDir, fmt.Sprintf("%04d", idx/1000), fmt.Sprintf("tree_%d.root", idx))
}

// StatFunc reports whether a path is readable. It has the os.Stat signature.
type StatFunc func(path string) (os.FileInfo, error)

// Resolver maps file indices of one sample to concrete input paths, given
// the primary storage holding most of the files and a secondary one holding
// the indices listed in SecondarySelection.
type Resolver struct {
	PrimaryPath        string
	SecondaryPath      string
	SecondarySelection Selection

	// Strict checks every resolved path for existence.
	Strict bool
	Stat   StatFunc
}

// Resolve returns one path per index, in the order of indices. In strict
// mode, the first missing file aborts resolution with a MissingInputFileError
// and no path is returned.
func (r *Resolver) Resolve(indices []int) ([]string, error) {
	stat := r.Stat
	if stat == nil {
		stat = os.Stat
	}

	out := make([]string, 0, len(indices))
	for _, idx := range indices {
		storeDir := r.PrimaryPath
		if r.SecondarySelection.Contains(idx) {
			storeDir = r.SecondaryPath
		}
		path := FilePath(storeDir, idx)

		if r.Strict {
			if _, err := stat(path); err != nil {
				zlog.Error("input file missing", zap.String("path", path), zap.Int("file_index", idx))
				return nil, tterrors.NewMissingInputFile(path, err)
			}
		}
		out = append(out, path)
	}
	return out, nil
}

// Resolve is the functional form of Resolver.Resolve, using os.Stat for
// strict checks.
func Resolve(indices []int, secondarySelection Selection, primaryPath, secondaryPath string, strict bool) ([]string, error) {
	r := &Resolver{
		PrimaryPath:        primaryPath,
		SecondaryPath:      secondaryPath,
		SecondarySelection: secondarySelection,
		Strict:             strict,
	}
	return r.Resolve(indices)
}
