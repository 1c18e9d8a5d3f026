package services

import (
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/errors"
)

// ConfigFileName is the configuration file written by init and read by
// default.
const ConfigFileName = ".fileclaim.yml"

// InitService writes a starter configuration.
type InitService struct {
	fs afero.Fs
}

// NewInitService creates a new initialization service
func NewInitService(fs afero.Fs) *InitService {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &InitService{fs: fs}
}

// InitOptions contains options for initialization
type InitOptions struct {
	// ProjectDir receives the configuration file.
	ProjectDir string
	// Directory is the directory to poll. It is created if missing.
	Directory string
	Locker    string
	Force     bool
}

// Init writes ProjectDir/.fileclaim.yml with every default spelled out and
// returns its path.
func (s *InitService) Init(opts InitOptions) (string, error) {
	if opts.ProjectDir == "" {
		opts.ProjectDir = "."
	}
	if opts.Directory == "" {
		opts.Directory = "inbox"
	}

	builder := config.NewConfigBuilder(opts.Directory)
	if opts.Locker != "" {
		builder.WithLocker(opts.Locker)
	}
	cfg, err := builder.Build()
	if err != nil {
		return "", err
	}

	path := filepath.Join(opts.ProjectDir, ConfigFileName)
	if exists, _ := afero.Exists(s.fs, path); exists && !opts.Force {
		return "", errors.NewConfigError(path + " already exists, use --force to overwrite")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", errors.WrapConfig(err, "encoding configuration")
	}

	if err := s.fs.MkdirAll(opts.ProjectDir, 0o755); err != nil {
		return "", errors.NewIOError(errors.CodeStoreFailed, "creating project directory", err).WithPath(opts.ProjectDir)
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", errors.NewIOError(errors.CodeStoreFailed, "writing configuration", err).WithPath(path)
	}

	spool := opts.Directory
	if !filepath.IsAbs(spool) {
		spool = filepath.Join(opts.ProjectDir, spool)
	}
	if err := s.fs.MkdirAll(spool, 0o755); err != nil {
		return "", errors.NewIOError(errors.CodeStoreFailed, "creating polled directory", err).WithPath(spool)
	}

	return path, nil
}
