// Package source implements the polling file source.
//
// Each call to Poll runs one cycle: list the directory, filter the listing,
// claim each accepted file through the Locker, then hand the claimed files
// to the Consumer one at a time in lexicographic path order. Files that are
// filtered out never reach the locker. Files another claimant holds are
// skipped and retried on the next cycle.
//
// Lock release follows the configured ReleasePolicy:
//
//   - ReleaseOnEmit: the lock is released as soon as Consume returns.
//   - ReleaseOnAck: the lock is held until Delivery.Ack, Delivery.Nack or
//     Source.Release is called.
//
// Close releases every lock still held, so a clean shutdown leaves no
// orphaned lock artifacts behind.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/fileclaim/internal/candidate"
	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/filter"
	"github.com/conneroisu/fileclaim/internal/locker"
	"github.com/conneroisu/fileclaim/internal/logging"
)

// ReleasePolicy decides when a delivered file's lock is released.
type ReleasePolicy int

const (
	ReleaseOnEmit ReleasePolicy = iota
	ReleaseOnAck
)

// String returns the configuration name of the policy.
func (p ReleasePolicy) String() string {
	switch p {
	case ReleaseOnEmit:
		return "emit"
	case ReleaseOnAck:
		return "ack"
	default:
		return "unknown"
	}
}

// ParseReleasePolicy converts "emit" or "ack" into a ReleasePolicy.
func ParseReleasePolicy(s string) (ReleasePolicy, error) {
	switch s {
	case "", "emit":
		return ReleaseOnEmit, nil
	case "ack":
		return ReleaseOnAck, nil
	default:
		return ReleaseOnEmit, errors.NewConfigError(fmt.Sprintf("unknown release policy %q", s))
	}
}

// Consumer receives claimed files.
type Consumer interface {
	Consume(ctx context.Context, d *Delivery) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, d *Delivery) error

// Consume implements Consumer.
func (f ConsumerFunc) Consume(ctx context.Context, d *Delivery) error {
	return f(ctx, d)
}

// Report summarizes one poll cycle.
type Report struct {
	Listed    int
	Accepted  int
	Contended []string
	Failed    []string
	Emitted   []string
	Duration  time.Duration
}

// Source polls one directory.
type Source struct {
	dir      string
	fs       afero.Fs
	filter   filter.Filter
	locker   locker.Locker
	consumer Consumer
	policy   ReleasePolicy
	logger   logging.Logger
	errs     *errors.Handler

	cycleMu sync.Mutex

	mu      sync.Mutex
	state   State
	pending map[string]candidate.Candidate
	closed  bool
}

// Option configures a Source.
type Option func(*Source)

// WithFs sets the filesystem the directory is listed from.
func WithFs(fs afero.Fs) Option {
	return func(s *Source) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithReleasePolicy sets when locks are released.
func WithReleasePolicy(p ReleasePolicy) Option {
	return func(s *Source) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a polling source for dir. A nil filter accepts every file.
// When the locker names its own artifacts, they are excluded ahead of f.
func New(dir string, l locker.Locker, f filter.Filter, c Consumer, opts ...Option) (*Source, error) {
	if dir == "" {
		return nil, errors.NewConfigError("source directory is required")
	}
	if l == nil {
		return nil, errors.NewConfigError("source locker is required")
	}
	if c == nil {
		return nil, errors.NewConfigError("source consumer is required")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WrapConfig(err, "resolving source directory")
	}

	chain := filter.NewComposite()
	if m, ok := l.(filter.ArtifactMatcher); ok {
		chain.Add(filter.ExcludeArtifacts(m))
	}
	chain.Add(f)

	s := &Source{
		dir:      abs,
		fs:       afero.NewOsFs(),
		filter:   chain,
		locker:   l,
		consumer: c,
		policy:   ReleaseOnEmit,
		logger:   logging.NewNopLogger(),
		state:    StateIdle,
		pending:  make(map[string]candidate.Candidate),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("source").With("dir", abs)
	s.errs = errors.NewHandler(s.logger)

	return s, nil
}

// Dir returns the absolute directory being polled.
func (s *Source) Dir() string {
	return s.dir
}

// Policy returns the release policy.
func (s *Source) Policy() ReleasePolicy {
	return s.policy
}

// State returns the current cycle state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Source) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Poll runs one cycle. Listing failures abort the cycle with an I/O error;
// contention and per-file failures are recorded in the report instead.
func (s *Source) Poll(ctx context.Context) (*Report, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	defer s.setState(StateIdle)

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, &errors.Error{Kind: errors.KindConfig, Code: errors.CodeClosed, Message: "source is closed"}
	}

	op := logging.StartOperation(s.logger, "poll_cycle")
	report := &Report{}
	defer func() { report.Duration = op.Elapsed() }()

	s.setState(StateListing)
	listed, err := candidate.List(s.fs, s.dir)
	if err != nil {
		op.EndWithError(ctx, err)
		return report, err
	}
	report.Listed = len(listed)

	s.setState(StateFiltering)
	accepted := s.filter.Filter(listed)
	report.Accepted = len(accepted)

	s.setState(StateLocking)
	locked := make([]candidate.Candidate, 0, len(accepted))
	for i, c := range accepted {
		if err := ctx.Err(); err != nil {
			s.abandon(ctx, locked)
			// accepted but never claimed
			for _, rest := range accepted[i:] {
				s.rollback(rest)
			}
			return report, err
		}

		ok, err := s.locker.Lock(c.Path)
		switch {
		case err != nil:
			s.errs.Handle(ctx, err)
			s.rollback(c)
			report.Failed = append(report.Failed, c.Path)
		case !ok:
			s.errs.Handle(ctx, errors.NewContentionError(c.Path))
			s.rollback(c)
			report.Contended = append(report.Contended, c.Path)
		default:
			locked = append(locked, c)
		}
	}

	s.setState(StateEmitting)
	for i, c := range locked {
		if err := ctx.Err(); err != nil {
			s.abandon(ctx, locked[i:])
			return report, err
		}

		if s.emit(ctx, c) {
			report.Emitted = append(report.Emitted, c.Path)
		} else {
			report.Failed = append(report.Failed, c.Path)
		}
	}

	op.End(ctx,
		"listed", report.Listed,
		"accepted", report.Accepted,
		"contended", len(report.Contended),
		"emitted", len(report.Emitted))
	return report, nil
}

// emit hands one claimed file to the consumer and applies the release policy.
func (s *Source) emit(ctx context.Context, c candidate.Candidate) bool {
	if s.policy == ReleaseOnAck {
		s.mu.Lock()
		s.pending[c.Path] = c
		s.mu.Unlock()
	}

	d := &Delivery{Candidate: c, source: s}
	if err := s.consumer.Consume(ctx, d); err != nil {
		s.logger.Warn(ctx, err, "Consumer failed, file will be retried", "path", c.Path)
		d.settle(ctx, err)
		return false
	}

	if s.policy == ReleaseOnEmit {
		d.settle(ctx, nil)
	}
	return true
}

// abandon releases claimed files that were never handed to the consumer.
func (s *Source) abandon(ctx context.Context, claimed []candidate.Candidate) {
	for _, c := range claimed {
		s.unlock(ctx, c.Path)
		s.rollback(c)
	}
	if len(claimed) > 0 {
		s.logger.Info(ctx, "Cycle cancelled, released unemitted files", "released", len(claimed))
	}
}

func (s *Source) unlock(ctx context.Context, path string) error {
	if err := s.locker.Unlock(path); err != nil {
		s.errs.Handle(ctx, err)
		return err
	}
	return nil
}

// rollback makes stateful filters forget c so it is offered again.
func (s *Source) rollback(c candidate.Candidate) {
	if r, ok := s.filter.(filter.Resettable); ok {
		r.Remove(c)
	}
}

// Pending returns the delivered files still awaiting acknowledgement.
func (s *Source) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.pending))
	for p := range s.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Release acknowledges a pending file and releases its lock.
func (s *Source) Release(path string) error {
	s.mu.Lock()
	_, ok := s.pending[path]
	delete(s.pending, path)
	s.mu.Unlock()

	if !ok {
		return &errors.Error{Kind: errors.KindIO, Code: errors.CodeNotHeld, Path: path, Message: "file is not pending"}
	}
	return s.unlock(context.Background(), path)
}

// Close releases every pending lock and stops further cycles. It waits for
// a running cycle to finish first, but not for work a consumer still runs
// under ReleaseOnAck: a concurrent consumer must be drained before Close,
// or its later Ack unlocks a path another poller may already hold.
func (s *Source) Close() error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	paths := make([]string, 0, len(s.pending))
	for p := range s.pending {
		paths = append(paths, p)
	}
	s.pending = make(map[string]candidate.Candidate)
	s.mu.Unlock()

	sort.Strings(paths)
	var errs []error
	for _, p := range paths {
		if err := s.locker.Unlock(p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(paths) > 0 {
		s.logger.Info(context.Background(), "Released pending files on close", "released", len(paths))
	}
	return errors.CombineErrors(errs...)
}
