package consumer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/logging"
	"github.com/conneroisu/fileclaim/internal/source"
)

// Archive moves each claimed file into a directory, keeping its name. A
// name already present in the archive gets a timestamp suffix instead of
// replacing the earlier file.
type Archive struct {
	fs     afero.Fs
	dir    string
	logger logging.Logger
}

// NewArchive creates an Archive consumer. The directory is created on first
// use.
func NewArchive(fs afero.Fs, dir string, logger logging.Logger) (*Archive, error) {
	if dir == "" {
		return nil, errors.NewConfigError("archive consumer requires a directory")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WrapConfig(err, "resolving archive directory")
	}
	return &Archive{fs: fs, dir: abs, logger: logger.WithComponent("consumer")}, nil
}

// Dir returns the archive directory.
func (a *Archive) Dir() string {
	return a.dir
}

// Consume implements source.Consumer.
func (a *Archive) Consume(ctx context.Context, d *source.Delivery) error {
	if err := a.fs.MkdirAll(a.dir, 0o755); err != nil {
		return errors.NewIOError(errors.CodeConsumeFailed, "creating archive directory", err).
			WithOp("archive").WithPath(a.dir)
	}

	target, err := a.target(d.Name)
	if err != nil {
		return errors.NewIOError(errors.CodeConsumeFailed, "checking archive target", err).
			WithOp("archive").WithPath(d.Path)
	}
	if err := a.fs.Rename(d.Path, target); err != nil {
		return errors.NewIOError(errors.CodeConsumeFailed, "moving file to archive", err).
			WithOp("archive").WithPath(d.Path).WithContext("target", target)
	}

	a.logger.Debug(ctx, "Archived file", "path", d.Path, "target", target)
	return nil
}

// target returns a path in the archive directory that does not exist yet.
func (a *Archive) target(name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	stamp := time.Now().UTC().Format("20060102T150405")

	target := filepath.Join(a.dir, name)
	for i := 0; ; i++ {
		exists, err := afero.Exists(a.fs, target)
		if err != nil {
			return "", err
		}
		if !exists {
			return target, nil
		}
		suffix := stamp
		if i > 0 {
			suffix = fmt.Sprintf("%s-%d", stamp, i)
		}
		target = filepath.Join(a.dir, base+"-"+suffix+ext)
	}
}
