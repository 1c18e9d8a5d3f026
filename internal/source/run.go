package source

import (
	"context"
	"errors"
)

// Trigger decides when cycles run. Implementations call cycle sequentially
// and return once ctx is done.
type Trigger interface {
	Run(ctx context.Context, cycle func(context.Context)) error
}

// Run polls on every tick of t until ctx is done. I/O failures are logged
// and the loop carries on; a fatal error stops the loop and is returned.
// Run does not Close the source.
func (s *Source) Run(ctx context.Context, t Trigger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatal error
	s.logger.Info(ctx, "Polling started", "policy", s.policy.String())

	err := t.Run(ctx, func(ctx context.Context) {
		report, err := s.Poll(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if s.errs.Handle(ctx, err) {
				fatal = err
				cancel()
			}
			return
		}
		if len(report.Emitted) > 0 || len(report.Failed) > 0 {
			s.logger.Info(ctx, "Poll cycle finished",
				"emitted", len(report.Emitted),
				"contended", len(report.Contended),
				"failed", len(report.Failed),
				"duration_ms", report.Duration.Milliseconds())
		}
	})

	s.logger.Info(context.Background(), "Polling stopped")
	if fatal != nil {
		return fatal
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
