package fs

import (
	"sync"
	"time"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

// debouncer coalesces bursts of events for the same logical record into one
// emission. Each burst extends the record's deadline; the event is emitted
// once the record has been quiet for a full window.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event    core.Event
	deadline time.Time
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		quit:    make(chan struct{}),
	}
}

// add schedules emit for the event. A pending event for the same record is
// replaced and its deadline pushed out.
func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	key := e.String()

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if p, ok := d.pending[key]; ok {
		p.event = e
		p.deadline = time.Now().Add(d.window)
		d.mu.Unlock()
		return
	}
	p := &pendingEvent{event: e, deadline: time.Now().Add(d.window)}
	d.pending[key] = p
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		for {
			d.mu.Lock()
			wait := time.Until(p.deadline)
			if wait <= 0 || d.stopped {
				delete(d.pending, key)
				ev := p.event
				d.mu.Unlock()
				emit(ev)
				return
			}
			d.mu.Unlock()

			select {
			case <-time.After(wait):
			case <-d.quit:
			}
		}
	}()
}

// stopAndWait flushes pending events and waits (bounded) for in-flight
// emissions, so the caller can safely close the downstream channel.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.quit)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
