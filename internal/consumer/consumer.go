// Package consumer provides the downstream handlers claimed files are
// delivered to. Every type here implements source.Consumer.
package consumer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/conneroisu/fileclaim/internal/logging"
	"github.com/conneroisu/fileclaim/internal/source"
)

// Log records each delivery and writes its path, one per line, to a writer.
type Log struct {
	out    io.Writer
	logger logging.Logger
	mu     sync.Mutex
}

// NewLog creates a Log consumer. out may be nil.
func NewLog(out io.Writer, logger logging.Logger) *Log {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Log{out: out, logger: logger.WithComponent("consumer")}
}

// Consume implements source.Consumer.
func (l *Log) Consume(ctx context.Context, d *source.Delivery) error {
	l.logger.Info(ctx, "Claimed file", "path", d.Path, "size", d.Size)
	if l.out == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintln(l.out, d.Path)
	return err
}

// Chain runs consumers in order. The first error stops the chain.
type Chain []source.Consumer

// Consume implements source.Consumer.
func (c Chain) Consume(ctx context.Context, d *source.Delivery) error {
	for _, consumer := range c {
		if err := consumer.Consume(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
