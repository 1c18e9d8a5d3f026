package candidate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/fileclaim/internal/errors"
)

func TestListSortsRegularFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/inbox"
	require.NoError(t, fs.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, name), []byte(name), 0o644))
	}
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "nested", "deep.txt"), []byte("x"), 0o644))

	candidates, err := List(fs, dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"/inbox/a.txt", "/inbox/b.txt", "/inbox/c.txt"}, Paths(candidates))
	assert.Equal(t, "a.txt", candidates[0].Name)
	assert.EqualValues(t, len("a.txt"), candidates[0].Size)
	assert.False(t, candidates[0].ModTime.IsZero())
}

func TestListMissingDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()

	candidates, err := List(fs, "/does/not/exist")
	require.Error(t, err)
	assert.Nil(t, candidates)
	assert.True(t, errors.IsIO(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListEmptyDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/empty", 0o755))

	candidates, err := List(fs, "/empty")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSortIsStableByPath(t *testing.T) {
	cs := []Candidate{{Path: "/z"}, {Path: "/a"}, {Path: "/m"}}
	Sort(cs)
	assert.Equal(t, []string{"/a", "/m", "/z"}, Paths(cs))
}
