package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/source"
)

// PollService runs the polling pipeline described by a configuration.
type PollService struct {
	config *config.Config
	deps   Deps
}

// NewPollService creates a new poll service
func NewPollService(cfg *config.Config, deps Deps) *PollService {
	return &PollService{
		config: cfg,
		deps:   deps.withDefaults(),
	}
}

// RunResult summarizes a finished run.
type RunResult struct {
	Cycles   int64
	Duration time.Duration
}

// Run polls until ctx is done or a fatal error occurs. Pending work is
// drained and every lock released before Run returns.
func (s *PollService) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}
	logger := s.deps.Logger.WithComponent("poll")

	c, err := Build(ctx, s.config, s.deps)
	if err != nil {
		return result, err
	}

	logger.Info(ctx, "Starting poller",
		"dir", c.Source.Dir(),
		"locker", s.config.Locker.Kind,
		"trigger", s.config.Trigger.Kind,
		"release", c.Source.Policy().String())

	counted := countingTrigger{inner: c.Trigger, cycles: new(atomic.Int64)}
	runErr := c.Source.Run(ctx, counted)
	result.Cycles = counted.cycles.Load()

	closeErr := c.Close()
	result.Duration = time.Since(start)
	logger.Info(context.Background(), "Poller stopped",
		"cycles", result.Cycles,
		"duration", result.Duration.String())

	return result, errors.CombineErrors(runErr, closeErr)
}

// RunOnce runs a single cycle, waits for its deliveries to be processed and
// releases every lock.
func (s *PollService) RunOnce(ctx context.Context) (*source.Report, error) {
	c, err := Build(ctx, s.config, s.deps)
	if err != nil {
		return nil, err
	}

	report, pollErr := c.Source.Poll(ctx)
	closeErr := c.Close()
	return report, errors.CombineErrors(pollErr, closeErr)
}

// countingTrigger wraps a trigger to count cycles for the run summary.
type countingTrigger struct {
	inner  source.Trigger
	cycles *atomic.Int64
}

func (t countingTrigger) Run(ctx context.Context, cycle func(context.Context)) error {
	return t.inner.Run(ctx, func(ctx context.Context) {
		t.cycles.Add(1)
		cycle(ctx)
	})
}
