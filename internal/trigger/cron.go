package trigger

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/logging"
)

// Cron runs cycles on a cron schedule. A tick that arrives while a cycle is
// still running is skipped.
type Cron struct {
	spec     string
	schedule cron.Schedule
	logger   logging.Logger
}

// NewCron parses a standard five-field expression or a descriptor such as
// "@hourly" or "@every 30s".
func NewCron(spec string, logger logging.Logger) (*Cron, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.WrapConfig(err, fmt.Sprintf("invalid cron expression %q", spec))
	}
	return NewCronSchedule(spec, schedule, logger), nil
}

// NewCronSchedule wraps an already parsed schedule.
func NewCronSchedule(spec string, schedule cron.Schedule, logger logging.Logger) *Cron {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Cron{spec: spec, schedule: schedule, logger: logger}
}

// Spec returns the expression the trigger was built from.
func (c *Cron) Spec() string {
	return c.spec
}

// Run implements Trigger.
func (c *Cron) Run(ctx context.Context, cycle func(context.Context)) error {
	cl := cronLogger{ctx: ctx, logger: c.logger}
	runner := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	runner.Schedule(c.schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		cycle(ctx)
	}))

	runner.Start()
	c.logger.Debug(ctx, "Cron trigger started", "spec", c.spec)

	<-ctx.Done()
	// Stop prevents new runs; its context is done once running jobs return.
	<-runner.Stop().Done()
	return nil
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	ctx    context.Context
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(l.ctx, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(l.ctx, err, "cron: "+msg, keysAndValues...)
}
