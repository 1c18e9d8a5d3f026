package locker

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/conneroisu/fileclaim/internal/errors"
)

// Marker claims a file by exclusively creating "<file><suffix>" next to it.
//
// The artifact records the owner token and pid of the claimant. Exclusive
// create is atomic on local filesystems, so two pollers can never both
// create the same marker.
type Marker struct {
	fs     afero.Fs
	suffix string
	owner  string

	mu   sync.Mutex
	held map[string]struct{}
}

// NewMarker creates a marker locker on fs. A nil fs uses the OS filesystem.
func NewMarker(fs afero.Fs, suffix string) (*Marker, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if strings.ContainsRune(suffix, filepath.Separator) {
		return nil, errors.NewConfigError(fmt.Sprintf("lock suffix %q must not contain a path separator", suffix))
	}

	return &Marker{
		fs:     fs,
		suffix: suffix,
		owner:  uuid.NewString(),
		held:   make(map[string]struct{}),
	}, nil
}

// Owner returns the token this instance writes into its artifacts.
func (m *Marker) Owner() string {
	return m.owner
}

// Suffix returns the artifact suffix.
func (m *Marker) Suffix() string {
	return m.suffix
}

// ArtifactPath returns the marker path for path.
func (m *Marker) ArtifactPath(path string) string {
	return path + m.suffix
}

// IsArtifact reports whether a file name is a lock artifact.
func (m *Marker) IsArtifact(name string) bool {
	return strings.HasSuffix(name, m.suffix)
}

// Lock creates the marker for path if it does not exist yet.
func (m *Marker) Lock(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[path]; ok {
		return false, nil
	}

	artifact := m.ArtifactPath(path)
	f, err := m.fs.OpenFile(artifact, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if stderrors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, errors.NewIOError(errors.CodeLockFailed, "creating lock artifact", err).
			WithOp("lock").
			WithPath(path)
	}

	_, writeErr := fmt.Fprintf(f, "%s\n%d\n", m.owner, os.Getpid())
	closeErr := f.Close()
	if err := errors.CombineErrors(writeErr, closeErr); err != nil {
		_ = m.fs.Remove(artifact)
		return false, errors.NewIOError(errors.CodeLockFailed, "writing lock artifact", err).
			WithOp("lock").
			WithPath(path)
	}

	// the file may have been consumed by another poller between listing and locking
	if _, err := m.fs.Stat(path); err != nil {
		_ = m.fs.Remove(artifact)
		return false, errors.NewIOError(errors.CodeLockFailed, "locked file vanished", err).
			WithOp("lock").
			WithPath(path)
	}

	m.held[path] = struct{}{}
	return true, nil
}

// Unlock removes the marker if this instance created it.
func (m *Marker) Unlock(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[path]; !ok {
		return nil
	}
	delete(m.held, path)

	if err := m.fs.Remove(m.ArtifactPath(path)); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return errors.NewIOError(errors.CodeUnlockFailed, "removing lock artifact", err).
			WithOp("unlock").
			WithPath(path)
	}
	return nil
}

// Held returns the claimed paths in sorted order.
func (m *Marker) Held() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.held)
}

// Artifact describes a marker found on disk.
type Artifact struct {
	Path   string // the claimed file
	Owner  string
	PID    string
	Orphan bool // the claimed file no longer exists
}

// Artifacts lists the markers present in dir, sorted by claimed path.
func (m *Marker) Artifacts(dir string) ([]Artifact, error) {
	infos, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return nil, errors.NewIOError(errors.CodeListFailed, "listing lock artifacts", err).WithPath(dir)
	}

	var artifacts []Artifact
	for _, info := range infos {
		if info.IsDir() || !m.IsArtifact(info.Name()) {
			continue
		}
		claimed := filepath.Join(dir, strings.TrimSuffix(info.Name(), m.suffix))
		owner, pid, err := m.readArtifact(claimed)
		if err != nil {
			return nil, err
		}
		_, statErr := m.fs.Stat(claimed)
		artifacts = append(artifacts, Artifact{
			Path:   claimed,
			Owner:  owner,
			PID:    pid,
			Orphan: stderrors.Is(statErr, os.ErrNotExist),
		})
	}
	return artifacts, nil
}

// OwnerOf returns the owner token recorded in the marker for path.
func (m *Marker) OwnerOf(path string) (string, error) {
	owner, _, err := m.readArtifact(path)
	return owner, err
}

// Break removes the marker for path regardless of who created it. It is
// meant for clearing artifacts left behind by a crashed poller.
func (m *Marker) Break(path string) error {
	m.mu.Lock()
	delete(m.held, path)
	m.mu.Unlock()

	if err := m.fs.Remove(m.ArtifactPath(path)); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return errors.NewIOError(errors.CodeUnlockFailed, "breaking lock artifact", err).WithPath(path)
	}
	return nil
}

func (m *Marker) readArtifact(path string) (owner, pid string, err error) {
	f, err := m.fs.Open(m.ArtifactPath(path))
	if err != nil {
		return "", "", errors.NewIOError(errors.CodeLockFailed, "reading lock artifact", err).WithPath(path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		owner = scanner.Text()
	}
	if scanner.Scan() {
		pid = scanner.Text()
	}
	return owner, pid, nil
}
