// Package locker enforces at-most-one claimant per file path.
//
// Lock reports contention as (false, nil): another holder owning a file is
// the normal steady state when several pollers share a directory. Errors are
// reserved for I/O failures, which the polling source treats as "skip this
// file this cycle".
//
// Three variants are provided:
//   - Stub: always succeeds, performs no I/O. For tests and single consumers.
//   - Nio: advisory flock(2) on the file itself. No artifact is created.
//   - Marker: atomically creates a "<file><suffix>" sidecar. Works on any
//     filesystem with exclusive create, including network mounts where
//     advisory locks are unreliable.
package locker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/conneroisu/fileclaim/internal/errors"
)

// Locker claims and releases files.
type Locker interface {
	// Lock attempts to claim path without blocking.
	Lock(path string) (bool, error)
	// Unlock releases a claim. Releasing a path that is not held is a no-op.
	Unlock(path string) error
}

// Holder is implemented by lockers that can report what they hold.
type Holder interface {
	Held() []string
}

// Kinds accepted by New.
const (
	KindNone   = "none"
	KindNio    = "nio"
	KindMarker = "marker"
)

// DefaultSuffix is appended to a file name to form its marker artifact.
const DefaultSuffix = ".lock"

// New builds a locker by kind. fs and suffix are only used by the marker kind.
func New(kind string, fs afero.Fs, suffix string) (Locker, error) {
	switch strings.ToLower(kind) {
	case KindNone, "stub":
		return NewStub(), nil
	case KindNio:
		return NewNio()
	case "", KindMarker:
		return NewMarker(fs, suffix)
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown locker kind %q", kind))
	}
}

// UnlockAll releases every path l holds and joins the errors.
func UnlockAll(l Locker) error {
	h, ok := l.(Holder)
	if !ok {
		return nil
	}
	var errs []error
	for _, path := range h.Held() {
		if err := l.Unlock(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.CombineErrors(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
