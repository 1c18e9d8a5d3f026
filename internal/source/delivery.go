package source

import (
	"context"
	"sync"

	"github.com/conneroisu/fileclaim/internal/candidate"
)

// Delivery is a claimed file handed to a Consumer.
//
// Under ReleaseOnAck the consumer must eventually call Ack or Nack. Under
// ReleaseOnEmit both are optional and the lock is released when Consume
// returns. Only the first Ack or Nack has an effect.
type Delivery struct {
	candidate.Candidate

	source *Source
	once   sync.Once
	err    error
}

// Ack marks processing complete and releases the lock.
func (d *Delivery) Ack() error {
	d.settle(context.Background(), nil)
	return d.err
}

// Nack marks processing failed. The lock is released and stateful filters
// forget the file so it is offered again on a later cycle.
func (d *Delivery) Nack(cause error) error {
	d.settle(context.Background(), cause)
	return d.err
}

func (d *Delivery) settle(ctx context.Context, cause error) {
	d.once.Do(func() {
		s := d.source
		if cause != nil {
			s.rollback(d.Candidate)
		}
		d.err = s.unlock(ctx, d.Path)

		s.mu.Lock()
		delete(s.pending, d.Path)
		s.mu.Unlock()
	})
}
