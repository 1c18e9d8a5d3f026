package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/fileclaim/internal/candidate"
	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/consumer"
	ferrors "github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/locker"
	"github.com/conneroisu/fileclaim/internal/store"
	"github.com/conneroisu/fileclaim/internal/trigger"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// syncBuffer is a bytes.Buffer safe for use by async consumers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func memFs(t *testing.T, dir string, names ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	for _, name := range names {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, name), []byte(name), 0o644))
	}
	return fs
}

func TestBuildDefaults(t *testing.T) {
	cfg := config.Default("/in")
	c, err := Build(context.Background(), cfg, Deps{Fs: memFs(t, "/in")})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Store)
	assert.Nil(t, c.Async)
	assert.IsType(t, &locker.Marker{}, c.Locker)
	assert.IsType(t, trigger.Interval{}, c.Trigger)
	assert.Equal(t, "/in", c.Source.Dir())
}

func TestBuildFilterOrder(t *testing.T) {
	cfg := config.Default("/in").Filter
	cfg.Patterns = []string{"*.csv"}

	f, err := BuildFilter(cfg, nil, "", nil)
	require.NoError(t, err)

	in := []candidate.Candidate{
		{Path: "/in/.hidden.csv", Name: ".hidden.csv"},
		{Path: "/in/a.csv", Name: "a.csv"},
		{Path: "/in/b.txt", Name: "b.txt"},
	}
	assert.Equal(t, []string{"/in/a.csv"}, candidate.Paths(f.Filter(in)))
	assert.Empty(t, f.Filter(in))

	cfg.Persistent = true
	_, err = BuildFilter(cfg, nil, "", nil)
	assert.True(t, ferrors.IsConfig(err))
}

func TestBuildRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"locker", func(c *config.Config) { c.Locker.Kind = "zookeeper" }},
		{"release", func(c *config.Config) { c.Source.Release = "never" }},
		{"trigger", func(c *config.Config) { c.Trigger.Kind = "cron"; c.Trigger.Cron = "bogus" }},
		{"regex", func(c *config.Config) { c.Filter.Regex = "(" }},
		{"store", func(c *config.Config) { c.Filter.Persistent = true; c.Store.Driver = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default("/in")
			tt.mutate(cfg)
			_, err := Build(context.Background(), cfg, Deps{Fs: memFs(t, "/in")})
			require.Error(t, err)
			assert.True(t, ferrors.IsConfig(err))
		})
	}
}

func TestRunOnce(t *testing.T) {
	fs := memFs(t, "/in", "b.csv", "a.csv", "notes.txt", ".hidden.csv")
	cfg, err := config.NewConfigBuilder("/in").
		WithPatterns("*.csv").
		WithArchive("/done").
		Build()
	require.NoError(t, err)

	var out bytes.Buffer
	report, err := NewPollService(cfg, Deps{Fs: fs, Out: &out}).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/in/a.csv", "/in/b.csv"}, report.Emitted)
	assert.Equal(t, "/in/a.csv\n/in/b.csv\n", out.String())

	for _, name := range []string{"a.csv", "b.csv"} {
		exists, err := afero.Exists(fs, "/done/"+name)
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
	exists, err := afero.Exists(fs, "/in/notes.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	artifacts, err := afero.Glob(fs, "/in/*.lock")
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestRunOnceWithAckPolicyDrainsAsyncWork(t *testing.T) {
	fs := memFs(t, "/in", "a.txt", "b.txt", "c.txt")
	cfg, err := config.NewConfigBuilder("/in").WithRelease("ack").WithArchive("/done").Build()
	require.NoError(t, err)

	out := &syncBuffer{}
	report, err := NewPollService(cfg, Deps{Fs: fs, Out: out}).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Emitted, 3)

	// RunOnce returns only after the async pool finished moving every file.
	names, err := afero.Glob(fs, "/done/*")
	require.NoError(t, err)
	assert.Len(t, names, 3)
	artifacts, err := afero.Glob(fs, "/in/*.lock")
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestRunOnceListingFailure(t *testing.T) {
	cfg := config.Default("/missing")
	_, err := NewPollService(cfg, Deps{Fs: afero.NewMemMapFs()}).RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.IsIO(err))
}

func TestRunUntilCancelled(t *testing.T) {
	fs := memFs(t, "/in", "a.txt")
	cfg, err := config.NewConfigBuilder("/in").WithInterval(10 * time.Millisecond).Build()
	require.NoError(t, err)

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var result *RunResult
	var runErr error
	go func() {
		defer close(done)
		result, runErr = NewPollService(cfg, Deps{Fs: fs, Out: out}).Run(ctx)
	}()

	require.Eventually(t, func() bool { return out.String() == "/in/a.txt\n" }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, afero.WriteFile(fs, "/in/b.txt", nil, 0o644))
	require.Eventually(t, func() bool { return out.String() == "/in/a.txt\n/in/b.txt\n" }, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.NoError(t, runErr)
	assert.GreaterOrEqual(t, result.Cycles, int64(2))
}

func TestRunWatchesDirectoryCreatedLater(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not-yet")
	cfg, err := config.NewConfigBuilder(dir).WithWatch(10*time.Millisecond, 20*time.Millisecond).Build()
	require.NoError(t, err)

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := NewPollService(cfg, Deps{Out: out}).Run(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("Run returned while the directory was missing: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	require.Eventually(t, func() bool {
		return out.String() == filepath.Join(dir, "a.txt")+"\n"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTwoPollersNeverEmitTheSameFile(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%02d.txt", i)), nil, 0o644))
	}
	// Files are moved away while still locked, so a second claim must fail.
	cfg, err := config.NewConfigBuilder(dir).
		WithRelease("ack").
		WithArchive(filepath.Join(t.TempDir(), "done")).
		Build()
	require.NoError(t, err)

	outA, outB := &syncBuffer{}, &syncBuffer{}
	var wg sync.WaitGroup
	for _, out := range []*syncBuffer{outA, outB} {
		wg.Add(1)
		go func(out *syncBuffer) {
			defer wg.Done()
			_, err := NewPollService(cfg, Deps{Out: out}).RunOnce(context.Background())
			assert.NoError(t, err)
		}(out)
	}
	wg.Wait()

	seen := map[string]int{}
	for _, out := range []*syncBuffer{outA, outB} {
		for _, line := range splitLines(out.String()) {
			seen[line]++
		}
	}
	assert.Len(t, seen, 50)
	for path, n := range seen {
		assert.Equal(t, 1, n, path)
	}
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.lock"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPersistentStoreIsClosed(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "claims.db")
	cfg, err := config.NewConfigBuilder("/in").WithStore(store.DriverSQLite, dsn).Build()
	require.NoError(t, err)
	fs := memFs(t, "/in", "a.txt")

	report, err := NewPollService(cfg, Deps{Fs: fs}).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Emitted, 1)

	// A fresh process with the same store does not emit the file again.
	report, err = NewPollService(cfg, Deps{Fs: fs}).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Emitted)
}

func TestLocksService(t *testing.T) {
	fs := memFs(t, "/in", "a.txt", "b.txt")
	m, err := locker.NewMarker(fs, locker.DefaultSuffix)
	require.NoError(t, err)
	ok, err := m.Lock("/in/a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = m.Lock("/in/b.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, fs.Remove("/in/b.txt"))

	svc, err := NewLocksService(config.Default("/in"), fs, nil)
	require.NoError(t, err)

	artifacts, err := svc.List()
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, m.Owner(), artifacts[0].Owner)
	assert.False(t, artifacts[0].Orphan)
	assert.True(t, artifacts[1].Orphan)

	freed, err := svc.Break(context.Background(), BreakOptions{OrphansOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"/in/b.txt"}, freed)

	freed, err = svc.Break(context.Background(), BreakOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/in/a.txt"}, freed)

	cfg := config.Default("/in")
	cfg.Locker.Kind = "nio"
	_, err = NewLocksService(cfg, fs, nil)
	assert.True(t, ferrors.IsConfig(err))
}

func TestBuildConsumer(t *testing.T) {
	c, err := BuildConsumer(config.ConsumerConfig{Command: []string{"true"}, ArchiveDir: "/done"}, Deps{Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	chain, ok := c.(consumer.Chain)
	require.True(t, ok)
	require.Len(t, chain, 3)
	assert.IsType(t, &consumer.Log{}, chain[0])
	assert.IsType(t, &consumer.Command{}, chain[1])
	assert.IsType(t, &consumer.Archive{}, chain[2])
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range bytes.Split([]byte(s), []byte("\n")) {
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
	}
	return lines
}
