package trigger

import (
	"sort"
	"sync"
	"time"
)

// debouncer groups rapid file changes together. Each flush delivers the
// changes seen since the last one, deduplicated by path.
type debouncer struct {
	delay   time.Duration
	output  chan []ChangeEvent
	timer   *time.Timer
	pending map[string]ChangeEvent
	stopped bool
	mutex   sync.Mutex
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		output:  make(chan []ChangeEvent, 1),
		pending: make(map[string]ChangeEvent),
	}
}

func (d *debouncer) add(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}
	d.pending[event.Path] = event

	if d.delay == 0 {
		d.flushLocked()
		return
	}

	// Reset timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.flushLocked()
}

func (d *debouncer) flushLocked() {
	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]ChangeEvent, 0, len(d.pending))
	for _, event := range d.pending {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
	default:
		// A batch is already waiting; its cycle will see these files too.
	}

	d.pending = make(map[string]ChangeEvent)
}

func (d *debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
