package inputs

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/partition"
)

func TestFilePath(t *testing.T) {
	assert.Equal(t, "/store/ttH/0000/tree_1.root", FilePath("/store/ttH", 1))
	assert.Equal(t, "/store/ttH/0000/tree_999.root", FilePath("/store/ttH", 999))
	assert.Equal(t, "/store/ttH/0001/tree_1000.root", FilePath("/store/ttH", 1000))
	assert.Equal(t, "/store/ttH/0012/tree_12345.root", FilePath("/store/ttH", 12345))
}

func TestResolve_RoutesSelectionToSecondary(t *testing.T) {
	indices := partition.NewRange(1, 16).Indices()

	paths, err := Resolve(indices, NewSelection(5, 12), "/primary", "/secondary", false)
	require.NoError(t, err)
	require.Len(t, paths, len(indices))

	for i, idx := range indices {
		expected := FilePath("/primary", idx)
		if idx == 5 || idx == 12 {
			expected = FilePath("/secondary", idx)
		}
		assert.Equal(t, expected, paths[i], "index %d", idx)
	}
}

func TestResolve_PreservesOrder(t *testing.T) {
	paths, err := Resolve([]int{7, 3, 1200, 5}, NewSelection(3), "/p", "/s", false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/p/0000/tree_7.root",
		"/s/0000/tree_3.root",
		"/p/0001/tree_1200.root",
		"/p/0000/tree_5.root",
	}, paths)
}

func TestResolve_StrictStopsAtFirstMissing(t *testing.T) {
	dir := t.TempDir()
	for _, idx := range []int{1, 2, 4} {
		path := FilePath(dir, idx)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}

	paths, err := Resolve([]int{1, 2, 4}, nil, dir, "", true)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	var checked []string
	r := &Resolver{
		PrimaryPath: dir,
		Strict:      true,
		Stat: func(path string) (os.FileInfo, error) {
			checked = append(checked, path)
			return os.Stat(path)
		},
	}
	paths, err = r.Resolve([]int{1, 3, 5})
	assert.Nil(t, paths)

	var missing *tterrors.MissingInputFileError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FilePath(dir, 3), missing.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, []string{FilePath(dir, 1), FilePath(dir, 3)}, checked)
}

func TestParseSelection(t *testing.T) {
	sel, wildcard, err := ParseSelection("*")
	require.NoError(t, err)
	assert.True(t, wildcard)
	assert.Nil(t, sel)

	sel, wildcard, err = ParseSelection("12, 5,5")
	require.NoError(t, err)
	assert.False(t, wildcard)
	assert.Equal(t, []int{5, 12}, sel.Sorted())
	assert.Equal(t, "5,12", sel.String())

	for _, in := range []string{"", "a,2", "0", "-4"} {
		_, _, err = ParseSelection(in)
		var invalid *tterrors.InvalidConfigurationError
		assert.ErrorAs(t, err, &invalid, "input %q", in)
	}
}
