package filter

import (
	"container/list"
	"context"
	"strconv"
	"sync"

	"github.com/conneroisu/fileclaim/internal/candidate"
	"github.com/conneroisu/fileclaim/internal/logging"
	"github.com/conneroisu/fileclaim/internal/store"
)

// AcceptOnceFilter accepts each path only the first time it is seen.
// With a positive capacity the oldest entries are evicted first.
type AcceptOnceFilter struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]*list.Element
	order    *list.List
}

// AcceptOnce creates an in-memory accept-once filter. capacity <= 0 means unbounded.
func AcceptOnce(capacity int) *AcceptOnceFilter {
	return &AcceptOnceFilter{
		capacity: capacity,
		seen:     make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Filter implements Filter.
func (f *AcceptOnceFilter) Filter(candidates []candidate.Candidate) []candidate.Candidate {
	f.mu.Lock()
	defer f.mu.Unlock()

	accepted := make([]candidate.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := f.seen[c.Path]; ok {
			continue
		}
		f.seen[c.Path] = f.order.PushBack(c.Path)
		if f.capacity > 0 && f.order.Len() > f.capacity {
			oldest := f.order.Front()
			f.order.Remove(oldest)
			delete(f.seen, oldest.Value.(string))
		}
		accepted = append(accepted, c)
	}
	return accepted
}

// Remove implements Resettable.
func (f *AcceptOnceFilter) Remove(c candidate.Candidate) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	el, ok := f.seen[c.Path]
	if !ok {
		return false
	}
	f.order.Remove(el)
	delete(f.seen, c.Path)
	return true
}

// Len returns the number of remembered paths.
func (f *AcceptOnceFilter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// PersistentAcceptOnceFilter remembers accepted files in a Store, keyed by
// path and valued by modification time. A file is accepted again once its
// modification time changes.
type PersistentAcceptOnceFilter struct {
	store  store.Store
	prefix string
	logger logging.Logger
}

// PersistentAcceptOnce creates a store-backed accept-once filter.
func PersistentAcceptOnce(s store.Store, prefix string, logger logging.Logger) *PersistentAcceptOnceFilter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PersistentAcceptOnceFilter{
		store:  s,
		prefix: prefix,
		logger: logger.WithComponent("filter"),
	}
}

// Filter implements Filter. Store failures reject the candidate for this cycle.
func (f *PersistentAcceptOnceFilter) Filter(candidates []candidate.Candidate) []candidate.Candidate {
	ctx := context.Background()
	accepted := make([]candidate.Candidate, 0, len(candidates))

	for _, c := range candidates {
		key := f.prefix + c.Path
		value := strconv.FormatInt(c.ModTime.UnixNano(), 10)

		stored, ok, err := f.store.Get(ctx, key)
		if err != nil {
			f.logger.Warn(ctx, err, "Metadata lookup failed, skipping file", "path", c.Path)
			continue
		}
		if ok && stored == value {
			continue
		}
		if err := f.store.Put(ctx, key, value); err != nil {
			f.logger.Warn(ctx, err, "Metadata write failed, skipping file", "path", c.Path)
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted
}

// Remove implements Resettable.
func (f *PersistentAcceptOnceFilter) Remove(c candidate.Candidate) bool {
	ctx := context.Background()
	key := f.prefix + c.Path

	if _, ok, err := f.store.Get(ctx, key); err != nil || !ok {
		return false
	}
	if err := f.store.Remove(ctx, key); err != nil {
		f.logger.Warn(ctx, err, "Metadata removal failed", "path", c.Path)
		return false
	}
	return true
}
