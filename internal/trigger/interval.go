package trigger

import (
	"context"
	"time"

	"github.com/conneroisu/fileclaim/internal/errors"
)

// Interval runs a cycle every Every. With Immediate set the first cycle runs
// as soon as Run is called instead of after the first tick.
type Interval struct {
	Every     time.Duration
	Immediate bool
}

// Run implements Trigger.
func (i Interval) Run(ctx context.Context, cycle func(context.Context)) error {
	if i.Every <= 0 {
		return errors.NewConfigError("interval trigger requires a positive interval")
	}

	if i.Immediate {
		if ctx.Err() != nil {
			return nil
		}
		cycle(ctx)
	}

	ticker := time.NewTicker(i.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// A tick can race with cancellation; prefer stopping.
			if ctx.Err() != nil {
				return nil
			}
			cycle(ctx)
		}
	}
}
