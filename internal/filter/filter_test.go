package filter

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/fileclaim/internal/candidate"
	ferrors "github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/logging"
	"github.com/conneroisu/fileclaim/internal/store"
)

func cands(names ...string) []candidate.Candidate {
	out := make([]candidate.Candidate, len(names))
	for i, n := range names {
		out[i] = candidate.Candidate{Path: filepath.Join("/in", n), Name: n, ModTime: time.Unix(1000, 0)}
	}
	return out
}

func names(cs []candidate.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

type suffixMatcher string

func (s suffixMatcher) IsArtifact(name string) bool { return strings.HasSuffix(name, string(s)) }

func TestGlob(t *testing.T) {
	g, err := Glob("*.txt", "*.csv")
	require.NoError(t, err)

	got := g.Filter(cands("a.txt", "b.csv", "c.json", "d.txt.lock"))
	assert.Equal(t, []string{"a.txt", "b.csv"}, names(got))

	_, err = Glob("[")
	assert.True(t, ferrors.IsConfig(err))

	_, err = Glob()
	assert.True(t, ferrors.IsConfig(err))
}

func TestRegex(t *testing.T) {
	r, err := Regex(`^order-\d+\.xml$`)
	require.NoError(t, err)
	assert.Equal(t, []string{"order-1.xml"}, names(r.Filter(cands("order-1.xml", "order-x.xml"))))

	_, err = Regex("(")
	assert.True(t, ferrors.IsConfig(err))
}

func TestIgnoreHiddenAndArtifacts(t *testing.T) {
	chain := NewComposite(IgnoreHidden(), ExcludeArtifacts(suffixMatcher(".lock")))

	got := chain.Filter(cands(".hidden", "a.txt", "a.txt.lock"))
	assert.Equal(t, []string{"a.txt"}, names(got))
}

func TestMinAge(t *testing.T) {
	now := time.Unix(2000, 0)
	f := MinAge(10*time.Second, func() time.Time { return now })

	fresh := candidate.Candidate{Name: "fresh", ModTime: now.Add(-time.Second)}
	old := candidate.Candidate{Name: "old", ModTime: now.Add(-time.Minute)}

	assert.Equal(t, []string{"old"}, names(f.Filter([]candidate.Candidate{fresh, old})))
}

func TestCompositeIsConjunctionInOrder(t *testing.T) {
	var calls []string
	record := func(name string, accept func(candidate.Candidate) bool) Filter {
		return Predicate(func(c candidate.Candidate) bool {
			calls = append(calls, name+":"+c.Name)
			return accept(c)
		})
	}

	chain := NewComposite(
		record("first", func(c candidate.Candidate) bool { return c.Name != "b.txt" }),
		nil,
		record("second", func(c candidate.Candidate) bool { return c.Name != "c.txt" }),
	)
	assert.Equal(t, 2, chain.Len())

	got := chain.Filter(cands("a.txt", "b.txt", "c.txt"))
	assert.Equal(t, []string{"a.txt"}, names(got))
	assert.Equal(t, []string{"first:a.txt", "first:b.txt", "first:c.txt", "second:a.txt", "second:c.txt"}, calls)
}

func TestCompositeEmptyChainAcceptsAll(t *testing.T) {
	got := NewComposite().Filter(cands("a", "b"))
	assert.Equal(t, []string{"a", "b"}, names(got))

	got = NewComposite(AcceptAll()).Filter(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAcceptOnce(t *testing.T) {
	f := AcceptOnce(0)

	assert.Equal(t, []string{"a.txt", "b.txt"}, names(f.Filter(cands("a.txt", "b.txt"))))
	assert.Empty(t, f.Filter(cands("a.txt", "b.txt")))
	assert.Equal(t, []string{"c.txt"}, names(f.Filter(cands("a.txt", "c.txt"))))
	assert.Equal(t, 3, f.Len())

	assert.True(t, f.Remove(cands("a.txt")[0]))
	assert.False(t, f.Remove(cands("a.txt")[0]))
	assert.Equal(t, []string{"a.txt"}, names(f.Filter(cands("a.txt", "b.txt"))))
}

func TestAcceptOnceCapacityEvictsOldest(t *testing.T) {
	f := AcceptOnce(2)

	f.Filter(cands("a", "b", "c"))
	assert.Equal(t, 2, f.Len())

	// "a" was evicted, so it is offered again
	assert.Equal(t, []string{"a"}, names(f.Filter(cands("a", "c"))))
}

func TestAcceptOnceInstancesAreIndependent(t *testing.T) {
	one, two := AcceptOnce(0), AcceptOnce(0)
	one.Filter(cands("a"))
	assert.Equal(t, []string{"a"}, names(two.Filter(cands("a"))))
}

func TestCompositeRemoveForwardsToResettable(t *testing.T) {
	once := AcceptOnce(0)
	chain := NewComposite(IgnoreHidden(), once)

	c := cands("a.txt")
	assert.Len(t, chain.Filter(c), 1)
	assert.Empty(t, chain.Filter(c))

	assert.True(t, chain.Remove(c[0]))
	assert.Len(t, chain.Filter(c), 1)
	assert.False(t, NewComposite(IgnoreHidden()).Remove(c[0]))
}

func TestPersistentAcceptOnce(t *testing.T) {
	s := store.NewMemory()
	f := PersistentAcceptOnce(s, "fileclaim:", nil)

	first := cands("a.txt")
	assert.Len(t, f.Filter(first), 1)
	assert.Empty(t, f.Filter(first))
	assert.Equal(t, []string{"fileclaim:/in/a.txt"}, s.Keys())

	modified := first[0]
	modified.ModTime = modified.ModTime.Add(time.Second)
	assert.Len(t, f.Filter([]candidate.Candidate{modified}), 1, "modified file is accepted again")

	assert.True(t, f.Remove(modified))
	assert.False(t, f.Remove(modified))
	assert.Len(t, f.Filter([]candidate.Candidate{modified}), 1)

	// a second filter over the same store shares history
	again := PersistentAcceptOnce(s, "fileclaim:", logging.NewNopLogger())
	assert.Empty(t, again.Filter([]candidate.Candidate{modified}))
}

type failingStore struct{ store.Store }

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("database is locked")
}

func TestPersistentAcceptOnceRejectsOnStoreFailure(t *testing.T) {
	f := PersistentAcceptOnce(failingStore{store.NewMemory()}, "", nil)
	assert.Empty(t, f.Filter(cands("a.txt")))
	assert.False(t, f.Remove(cands("a.txt")[0]))
}
