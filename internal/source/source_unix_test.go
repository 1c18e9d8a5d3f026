//go:build unix

package source

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/fileclaim/internal/locker"
)

func TestTwoSourcesWithNioLocker(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "c.txt"), []byte("c"), 0o644))

	var emitted atomic.Int32
	build := func() *Source {
		n, err := locker.NewNio()
		require.NoError(t, err)
		s, err := New(tmp, n, nil, ConsumerFunc(func(context.Context, *Delivery) error {
			emitted.Add(1)
			return nil
		}), WithReleasePolicy(ReleaseOnAck))
		require.NoError(t, err)
		return s
	}
	p1, p2 := build(), build()
	defer p1.Close()
	defer p2.Close()

	r1, err := p1.Poll(context.Background())
	require.NoError(t, err)
	r2, err := p2.Poll(context.Background())
	require.NoError(t, err)

	assert.Len(t, r1.Emitted, 1)
	assert.Len(t, r2.Contended, 1)
	assert.EqualValues(t, 1, emitted.Load())
}
