// Package filter decides which listed files are offered to the locker.
//
// Filters operate on the whole candidate set of a cycle so that stateful
// filters (accept-once) can record what they accepted. A Composite chains
// filters with AND semantics in insertion order.
package filter

import (
	"github.com/conneroisu/fileclaim/internal/candidate"
)

// Filter returns the subset of candidates it accepts, preserving order.
type Filter interface {
	Filter(candidates []candidate.Candidate) []candidate.Candidate
}

// Resettable is implemented by stateful filters that can forget a candidate,
// so that a file which was accepted but never processed is offered again.
type Resettable interface {
	Remove(c candidate.Candidate) bool
}

// Predicate is a stateless filter evaluated per candidate.
type Predicate func(c candidate.Candidate) bool

// Filter implements Filter.
func (p Predicate) Filter(candidates []candidate.Candidate) []candidate.Candidate {
	accepted := make([]candidate.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if p(c) {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

// AcceptAll accepts every candidate.
func AcceptAll() Filter {
	return Predicate(func(candidate.Candidate) bool { return true })
}

// Composite applies its members in insertion order. A candidate survives only
// if every member accepts it.
type Composite struct {
	filters []Filter
}

// NewComposite creates a composite of filters. Nil members are ignored.
func NewComposite(filters ...Filter) *Composite {
	c := &Composite{filters: make([]Filter, 0, len(filters))}
	for _, f := range filters {
		c.Add(f)
	}
	return c
}

// Add appends a filter to the chain.
func (c *Composite) Add(f Filter) *Composite {
	if f != nil {
		c.filters = append(c.filters, f)
	}
	return c
}

// Len returns the number of members.
func (c *Composite) Len() int {
	return len(c.filters)
}

// Filter implements Filter. Once the set is empty the remaining members are
// skipped; they would see no input anyway.
func (c *Composite) Filter(candidates []candidate.Candidate) []candidate.Candidate {
	result := candidates
	for _, f := range c.filters {
		if len(result) == 0 {
			break
		}
		result = f.Filter(result)
	}
	if result == nil {
		return []candidate.Candidate{}
	}
	return result
}

// Remove forwards to every Resettable member.
func (c *Composite) Remove(cand candidate.Candidate) bool {
	removed := false
	for _, f := range c.filters {
		if r, ok := f.(Resettable); ok {
			if r.Remove(cand) {
				removed = true
			}
		}
	}
	return removed
}
