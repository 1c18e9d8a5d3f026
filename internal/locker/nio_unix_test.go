//go:build unix

package locker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/fileclaim/internal/errors"
)

func TestNewNioKind(t *testing.T) {
	l, err := New(KindNio, afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.IsType(t, &Nio{}, l)
}

func TestNioContentionAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	p1, err := NewNio()
	require.NoError(t, err)
	p2, err := NewNio()
	require.NoError(t, err)

	ok1, err := p1.Lock(path)
	require.NoError(t, err)
	ok2, err := p2.Lock(path)
	require.NoError(t, err)
	assert.True(t, ok1)
	assert.False(t, ok2)

	ok1, err = p1.Lock(path)
	require.NoError(t, err)
	assert.False(t, ok1, "held path is not granted twice")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "nio locker leaves no artifact")

	require.NoError(t, p1.Unlock(path))
	ok2, err = p2.Lock(path)
	require.NoError(t, err)
	assert.True(t, ok2)
	assert.Equal(t, []string{path}, p2.Held())
	require.NoError(t, UnlockAll(p2))
	assert.Empty(t, p2.Held())
}

func TestNioMissingFile(t *testing.T) {
	n, err := NewNio()
	require.NoError(t, err)

	ok, err := n.Lock(filepath.Join(t.TempDir(), "missing.txt"))
	assert.False(t, ok)
	assert.True(t, errors.IsIO(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
