// Package lifecycle bridges repository change events into the generic
// lifecycle event plumbing, so hosts can supervise a vault watch alongside
// their other workers.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

type eventSource struct {
	events <-chan core.Event
	out    chan lifecycle.Event
}

// NewSource adapts a repository watch channel to a lifecycle.Source.
func NewSource(events <-chan core.Event) lifecycle.Source {
	return &eventSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
}

func (s *eventSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *eventSource) Start(ctx context.Context) error {
	// The bridge goroutine itself runs supervised.
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				// core.Event implements lifecycle.Event via String().
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
