package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/fileclaim/internal/errors"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "fileclaim:/in/a.txt", "100"))
	v, ok, err := s.Get(ctx, "fileclaim:/in/a.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "100", v)

	require.NoError(t, s.Put(ctx, "fileclaim:/in/a.txt", "200"))
	v, _, err = s.Get(ctx, "fileclaim:/in/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "200", v)

	require.NoError(t, s.Remove(ctx, "fileclaim:/in/a.txt"))
	_, ok, err = s.Get(ctx, "fileclaim:/in/a.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	// removing an absent key is not an error
	require.NoError(t, s.Remove(ctx, "fileclaim:/in/a.txt"))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)

	require.NoError(t, s.Put(context.Background(), "b", "1"))
	require.NoError(t, s.Put(context.Background(), "a", "1"))
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.NoError(t, s.Close())
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "metadata.db")

	s, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Put(context.Background(), "persisted", "yes"))
	require.NoError(t, s.Close())

	reopened, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(context.Background(), "persisted")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
}

func TestOpenValidation(t *testing.T) {
	s, err := Open(context.Background(), "", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open(context.Background(), "redis", "localhost")
	assert.True(t, errors.IsConfig(err))

	_, err = Open(context.Background(), DriverPostgres, "")
	assert.True(t, errors.IsConfig(err))
}

func TestRebind(t *testing.T) {
	query := `INSERT INTO t (a, b) VALUES (?, ?)`

	assert.Equal(t, query, rebind(DriverSQLite, query))
	assert.Equal(t, `INSERT INTO t (a, b) VALUES ($1, $2)`, rebind(DriverPostgres, query))
}
