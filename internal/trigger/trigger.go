// Package trigger decides when the polling source runs a cycle.
//
// Every trigger invokes cycle sequentially, so a cycle never overlaps the
// next one, and Run returns only after the cycle in flight has finished.
// Run returns nil once ctx is done.
package trigger

import (
	"context"
	"fmt"

	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/logging"
)

// Trigger runs poll cycles until its context is done.
type Trigger interface {
	Run(ctx context.Context, cycle func(context.Context)) error
}

// Func adapts a function to Trigger.
type Func func(ctx context.Context, cycle func(context.Context)) error

// Run implements Trigger.
func (f Func) Run(ctx context.Context, cycle func(context.Context)) error {
	return f(ctx, cycle)
}

// Kinds accepted by New.
const (
	KindInterval = "interval"
	KindCron     = "cron"
	KindWatch    = "watch"
)

type options struct {
	logger  logging.Logger
	filters []FileFilter
}

// Option configures a trigger built by New.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFilter adds a filter to watch triggers. Events for paths rejected by
// any filter do not start a cycle.
func WithFilter(f FileFilter) Option {
	return func(o *options) { o.filters = append(o.filters, f) }
}

// New builds the trigger described by cfg. Watch triggers observe dir.
func New(cfg config.TriggerConfig, dir string, opts ...Option) (Trigger, error) {
	o := options{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.WithComponent("trigger").With("trigger", cfg.Kind)

	switch cfg.Kind {
	case "", KindInterval:
		if cfg.Interval <= 0 {
			return nil, errors.NewConfigError("interval trigger requires a positive interval")
		}
		return Interval{Every: cfg.Interval, Immediate: true}, nil
	case KindCron:
		return NewCron(cfg.Cron, logger)
	case KindWatch:
		w, err := NewWatch(dir, cfg.Debounce, cfg.Interval, logger)
		if err != nil {
			return nil, err
		}
		for _, f := range o.filters {
			w.AddFilter(f)
		}
		return w, nil
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown trigger kind %q", cfg.Kind))
	}
}
