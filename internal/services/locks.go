package services

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/locker"
	"github.com/conneroisu/fileclaim/internal/logging"
)

// LocksService inspects and clears marker lock artifacts.
type LocksService struct {
	marker *locker.Marker
	dir    string
	logger logging.Logger
}

// NewLocksService creates a locks service for the configured directory.
// Only the marker locker leaves artifacts on disk.
func NewLocksService(cfg *config.Config, fs afero.Fs, logger logging.Logger) (*LocksService, error) {
	if cfg.Locker.Kind != locker.KindMarker {
		return nil, errors.NewConfigError("lock artifacts only exist for the marker locker, configured locker is " + cfg.Locker.Kind)
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m, err := locker.NewMarker(fs, cfg.Locker.Suffix)
	if err != nil {
		return nil, err
	}
	dir, err := filepath.Abs(cfg.Source.Directory)
	if err != nil {
		return nil, errors.WrapConfig(err, "resolving source directory")
	}
	return &LocksService{marker: m, dir: dir, logger: logger.WithComponent("locks")}, nil
}

// List returns the artifacts present in the directory.
func (s *LocksService) List() ([]locker.Artifact, error) {
	return s.marker.Artifacts(s.dir)
}

// BreakOptions selects which artifacts Break removes.
type BreakOptions struct {
	OrphansOnly bool
}

// Break removes artifacts and returns the claimed paths that were freed.
// Breaking a lock another live poller holds lets a second poller claim the
// same file, so it is meant for clearing up after crashes.
func (s *LocksService) Break(ctx context.Context, opts BreakOptions) ([]string, error) {
	artifacts, err := s.List()
	if err != nil {
		return nil, err
	}

	var freed []string
	var errs []error
	for _, a := range artifacts {
		if opts.OrphansOnly && !a.Orphan {
			continue
		}
		if err := s.marker.Break(a.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Info(ctx, "Broke lock", "path", a.Path, "owner", a.Owner, "pid", a.PID)
		freed = append(freed, a.Path)
	}
	return freed, errors.CombineErrors(errs...)
}
