// Package candidate models the files discovered during one poll cycle.
//
// A Candidate is created fresh on every cycle by List and carries the path
// plus the modification metadata observed at listing time. Nothing here is
// persisted; filters and lockers that need history keep their own state.
package candidate

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/fileclaim/internal/errors"
)

// Candidate is a regular file found in the polled directory.
type Candidate struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// FromFileInfo builds a Candidate for an entry of dir.
func FromFileInfo(dir string, info os.FileInfo) Candidate {
	return Candidate{
		Path:    filepath.Join(dir, info.Name()),
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// List returns the regular files directly inside dir, sorted by path.
//
// Subdirectories and special files are skipped. Any failure to read the
// directory is returned as an I/O error so the caller can abort the cycle.
func List(fs afero.Fs, dir string) ([]Candidate, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, errors.NewIOError(errors.CodeListFailed, "listing directory", err).
			WithOp("list").
			WithPath(dir)
	}

	candidates := make([]Candidate, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, FromFileInfo(dir, info))
	}

	Sort(candidates)
	return candidates, nil
}

// Sort orders candidates lexicographically by path, in place.
func Sort(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Path < candidates[j].Path
	})
}

// Paths returns the paths of candidates in order.
func Paths(candidates []Candidate) []string {
	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.Path
	}
	return paths
}
