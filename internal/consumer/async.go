package consumer

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/logging"
	"github.com/conneroisu/fileclaim/internal/source"
)

// Async hands deliveries to an inner consumer on a bounded worker pool and
// returns immediately. When the inner consumer finishes the delivery is
// acked, or nacked with its error, so Async is meant for sources using
// source.ReleaseOnAck.
//
// Work outlives the poll cycle that produced it: cancelling the cycle does
// not cancel running work. Call Wait before closing the source.
type Async struct {
	inner  source.Consumer
	pool   *pool.Pool
	logger logging.Logger

	mu     sync.Mutex
	closed bool
}

// NewAsync creates an Async consumer running at most maxConcurrent inner
// calls at a time.
func NewAsync(inner source.Consumer, maxConcurrent int, logger logging.Logger) (*Async, error) {
	if inner == nil {
		return nil, errors.NewConfigError("async consumer requires an inner consumer")
	}
	if maxConcurrent < 1 {
		return nil, errors.NewConfigError("async consumer requires max_concurrent >= 1")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Async{
		inner:  inner,
		pool:   pool.New().WithMaxGoroutines(maxConcurrent),
		logger: logger.WithComponent("consumer"),
	}, nil
}

// Consume implements source.Consumer. It blocks only while every worker is
// busy.
func (a *Async) Consume(ctx context.Context, d *source.Delivery) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return &errors.Error{Kind: errors.KindConfig, Code: errors.CodeClosed, Path: d.Path, Message: "async consumer is closed"}
	}

	ctx = context.WithoutCancel(ctx)
	a.pool.Go(func() {
		if err := a.run(ctx, d); err != nil {
			a.logger.Warn(ctx, err, "Async consumer failed, file will be retried", "path", d.Path)
			if nerr := d.Nack(err); nerr != nil {
				a.logger.Error(ctx, nerr, "Releasing failed file", "path", d.Path)
			}
			return
		}
		if aerr := d.Ack(); aerr != nil {
			a.logger.Error(ctx, aerr, "Releasing processed file", "path", d.Path)
		}
	})
	return nil
}

// run calls the inner consumer, turning a panic into an error so the
// delivery is still settled.
func (a *Async) run(ctx context.Context, d *source.Delivery) error {
	var err error
	var catcher panics.Catcher
	catcher.Try(func() { err = a.inner.Consume(ctx, d) })
	if r := catcher.Recovered(); r != nil {
		return errors.NewIOError(errors.CodeConsumeFailed, "consumer panicked", r.AsError()).WithPath(d.Path)
	}
	return err
}

// Wait blocks until all submitted work is done. Consume fails afterwards.
func (a *Async) Wait() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.pool.Wait()
}
