package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/conneroisu/fileclaim/internal/candidate"
	"github.com/conneroisu/fileclaim/internal/errors"
)

// Glob accepts candidates whose base name matches any of patterns.
func Glob(patterns ...string) (Predicate, error) {
	if len(patterns) == 0 {
		return nil, errors.NewConfigError("glob filter needs at least one pattern")
	}
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, errors.WrapConfig(err, fmt.Sprintf("invalid glob pattern %q", p))
		}
	}

	return func(c candidate.Candidate) bool {
		for _, p := range patterns {
			if ok, _ := filepath.Match(p, c.Name); ok {
				return true
			}
		}
		return false
	}, nil
}

// Regex accepts candidates whose base name matches expr.
func Regex(expr string) (Predicate, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.WrapConfig(err, fmt.Sprintf("invalid regex %q", expr))
	}
	return func(c candidate.Candidate) bool {
		return re.MatchString(c.Name)
	}, nil
}

// IgnoreHidden rejects dot files.
func IgnoreHidden() Predicate {
	return func(c candidate.Candidate) bool {
		return !strings.HasPrefix(c.Name, ".")
	}
}

// ArtifactMatcher recognises lock artifact file names.
type ArtifactMatcher interface {
	IsArtifact(name string) bool
}

// ExcludeArtifacts rejects lock artifacts so they are never mistaken for work.
func ExcludeArtifacts(m ArtifactMatcher) Predicate {
	return func(c candidate.Candidate) bool {
		return !m.IsArtifact(c.Name)
	}
}

// MinAge rejects files modified less than age ago, giving writers time to finish.
// A nil clock uses time.Now.
func MinAge(age time.Duration, clock func() time.Time) Predicate {
	if clock == nil {
		clock = time.Now
	}
	return func(c candidate.Candidate) bool {
		return clock().Sub(c.ModTime) >= age
	}
}
