package source

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/filter"
	"github.com/conneroisu/fileclaim/internal/locker"
)

// countingTrigger runs a fixed number of cycles, then returns.
type countingTrigger struct {
	cycles int
	before func(i int)
}

func (c countingTrigger) Run(ctx context.Context, cycle func(context.Context)) error {
	for i := 0; i < c.cycles; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.before != nil {
			c.before(i)
		}
		cycle(ctx)
	}
	return nil
}

func TestRunSurvivesIOFailures(t *testing.T) {
	fs := &flakyFs{Fs: newFs(t, "a.txt")}
	c := &collector{}
	s, err := New(dir, locker.NewStub(), filter.AcceptOnce(0), c, WithFs(fs))
	require.NoError(t, err)

	trigger := countingTrigger{cycles: 3, before: func(i int) {
		fs.fail.Store(i == 0)
	}}

	require.NoError(t, s.Run(context.Background(), trigger))
	assert.Equal(t, []string{"/in/a.txt"}, c.got())
}

func TestRunStopsOnFatalError(t *testing.T) {
	fs := newFs(t, "a.txt")
	s, err := New(dir, locker.NewStub(), nil, &collector{}, WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Run(context.Background(), countingTrigger{cycles: 5})
	require.Error(t, err)
	assert.True(t, ferrors.IsFatal(err))
}

func TestRunReturnsTriggerError(t *testing.T) {
	s, err := New(dir, locker.NewStub(), nil, &collector{}, WithFs(newFs(t)))
	require.NoError(t, err)

	err = s.Run(context.Background(), triggerFunc(func(context.Context, func(context.Context)) error {
		return os.ErrClosed
	}))
	assert.ErrorIs(t, err, os.ErrClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Run(ctx, countingTrigger{cycles: 1})
	assert.NoError(t, err)
}

type triggerFunc func(ctx context.Context, cycle func(context.Context)) error

func (f triggerFunc) Run(ctx context.Context, cycle func(context.Context)) error {
	return f(ctx, cycle)
}
