// Package services holds the business logic behind the CLI commands: it
// builds the polling pipeline from configuration and runs it.
package services

import (
	"context"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/consumer"
	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/filter"
	"github.com/conneroisu/fileclaim/internal/locker"
	"github.com/conneroisu/fileclaim/internal/logging"
	"github.com/conneroisu/fileclaim/internal/source"
	"github.com/conneroisu/fileclaim/internal/store"
	"github.com/conneroisu/fileclaim/internal/trigger"
)

// Deps are the process-level dependencies shared by every component.
type Deps struct {
	Fs     afero.Fs
	Logger logging.Logger
	// Out receives the path of every claimed file. May be nil.
	Out io.Writer
}

func (d Deps) withDefaults() Deps {
	if d.Fs == nil {
		d.Fs = afero.NewOsFs()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	return d
}

// Components is a fully wired polling pipeline.
type Components struct {
	Store    store.Store
	Filter   filter.Filter
	Locker   locker.Locker
	Consumer source.Consumer
	Async    *consumer.Async
	Source   *source.Source
	Trigger  trigger.Trigger
}

// Build wires every component described by cfg. On error, anything already
// opened is closed.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (_ *Components, err error) {
	deps = deps.withDefaults()
	c := &Components{}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if cfg.Filter.AcceptOnce && cfg.Filter.Persistent {
		c.Store, err = store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
	}

	if c.Filter, err = BuildFilter(cfg.Filter, c.Store, cfg.Store.KeyPrefix, deps.Logger); err != nil {
		return nil, err
	}

	if c.Locker, err = locker.New(cfg.Locker.Kind, deps.Fs, cfg.Locker.Suffix); err != nil {
		return nil, err
	}

	policy, err := source.ParseReleasePolicy(cfg.Source.Release)
	if err != nil {
		return nil, err
	}

	if c.Consumer, err = BuildConsumer(cfg.Consumer, deps); err != nil {
		return nil, err
	}
	// Concurrent work only makes sense when the lock outlives Consume.
	if policy == source.ReleaseOnAck {
		if c.Async, err = consumer.NewAsync(c.Consumer, cfg.Consumer.MaxConcurrent, deps.Logger); err != nil {
			return nil, err
		}
		c.Consumer = c.Async
	}

	c.Source, err = source.New(cfg.Source.Directory, c.Locker, c.Filter, c.Consumer,
		source.WithFs(deps.Fs),
		source.WithReleasePolicy(policy),
		source.WithLogger(deps.Logger))
	if err != nil {
		return nil, err
	}

	opts := []trigger.Option{trigger.WithLogger(deps.Logger)}
	if m, ok := c.Locker.(filter.ArtifactMatcher); ok {
		// Creating and removing lock artifacts must not wake the watcher.
		opts = append(opts, trigger.WithFilter(func(path string) bool {
			return !m.IsArtifact(filepath.Base(path))
		}))
	}
	if c.Trigger, err = trigger.New(cfg.Trigger, c.Source.Dir(), opts...); err != nil {
		return nil, err
	}

	return c, nil
}

// BuildFilter assembles the filter chain. Stateless filters run first so
// the accept-once filter only remembers files that passed them.
func BuildFilter(cfg config.FilterConfig, st store.Store, keyPrefix string, logger logging.Logger) (filter.Filter, error) {
	chain := filter.NewComposite()

	if cfg.IgnoreHidden {
		chain.Add(filter.IgnoreHidden())
	}
	if len(cfg.Patterns) > 0 {
		glob, err := filter.Glob(cfg.Patterns...)
		if err != nil {
			return nil, err
		}
		chain.Add(glob)
	}
	if cfg.Regex != "" {
		re, err := filter.Regex(cfg.Regex)
		if err != nil {
			return nil, err
		}
		chain.Add(re)
	}
	if cfg.MinAge > 0 {
		chain.Add(filter.MinAge(cfg.MinAge, nil))
	}

	if cfg.AcceptOnce {
		if cfg.Persistent {
			if st == nil {
				return nil, errors.NewConfigError("persistent accept-once requires a store")
			}
			chain.Add(filter.PersistentAcceptOnce(st, keyPrefix, logger))
		} else {
			chain.Add(filter.AcceptOnce(cfg.AcceptOnceCapacity))
		}
	}

	return chain, nil
}

// BuildConsumer assembles the consumer chain: every claimed file is logged,
// then handed to the command, then archived.
func BuildConsumer(cfg config.ConsumerConfig, deps Deps) (source.Consumer, error) {
	deps = deps.withDefaults()
	chain := consumer.Chain{consumer.NewLog(deps.Out, deps.Logger)}

	if len(cfg.Command) > 0 {
		cmd, err := consumer.NewCommand(cfg.Command, cfg.Timeout, deps.Logger)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cmd)
	}
	if cfg.ArchiveDir != "" {
		archive, err := consumer.NewArchive(deps.Fs, cfg.ArchiveDir, deps.Logger)
		if err != nil {
			return nil, err
		}
		chain = append(chain, archive)
	}

	return chain, nil
}

// Close drains in-flight work, releases held locks and closes the store.
// The async pool is drained before the source is closed so that no consumer
// acks a file after its lock was released. This is the shutdown path for a
// built pipeline; closing the source on its own does not wait for that work.
func (c *Components) Close() error {
	var errs []error
	if c.Async != nil {
		c.Async.Wait()
	}
	if c.Source != nil {
		if err := c.Source.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.CombineErrors(errs...)
}
