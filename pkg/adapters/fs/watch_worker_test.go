package fs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

// collect drains events until the expected count or the timeout.
func collect(t *testing.T, ch <-chan core.Event, n int, timeout time.Duration) []core.Event {
	t.Helper()
	var out []core.Event
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("got %d events before timeout, want %d", len(out), n)
		}
	}
	return out
}

func TestWatchEmitsEventsForExternalWrites(t *testing.T) {
	r := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := r.Watch(ctx, "**")
	require.NoError(t, err)

	require.NoError(t, r.SaveGlobalSettings(ctx, core.GlobalSettings{UserName: "ada"}))

	got := collect(t, events, 1, 2*time.Second)
	assert.Equal(t, core.TagGlobalSettings, got[0].Tag)
}

func TestWatchPatternFiltersEvents(t *testing.T) {
	r := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Only global settings changes pass the pattern.
	events, err := r.Watch(ctx, "global/**")
	require.NoError(t, err)

	require.NoError(t, r.SaveBoard(ctx, core.Board{ID: "b1", Name: "x"}))
	require.NoError(t, r.SaveGlobalSettings(ctx, core.GlobalSettings{UserName: "ada"}))

	got := collect(t, events, 1, 2*time.Second)
	assert.Equal(t, core.TagGlobalSettings, got[0].Tag)

	select {
	case ev, ok := <-events:
		if ok {
			assert.Equal(t, core.TagGlobalSettings, ev.Tag, "board events filtered out")
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchChannelClosesOnCancel(t *testing.T) {
	r := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := r.Watch(ctx, "**")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close after cancel")
	}
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)

	var mu sync.Mutex
	var emitted []core.Event
	emit := func(e core.Event) {
		mu.Lock()
		emitted = append(emitted, e)
		mu.Unlock()
	}

	// A burst for one record plus a single event for another.
	for i := 0; i < 5; i++ {
		d.add(core.Event{Tag: core.TagBoard, BoardID: "b1"}, emit)
	}
	d.add(core.Event{Tag: core.TagGlobalSettings}, emit)

	d.stopAndWait(time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, emitted, 2, "burst coalesced to one emission per record")
	tags := map[core.RecordTag]bool{}
	for _, e := range emitted {
		tags[e.Tag] = true
	}
	assert.True(t, tags[core.TagBoard])
	assert.True(t, tags[core.TagGlobalSettings])
}

func TestDebouncerDropsAfterStop(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	d.stopAndWait(time.Second)

	called := false
	d.add(core.Event{Tag: core.TagAssets}, func(core.Event) { called = true })
	time.Sleep(30 * time.Millisecond)
	assert.False(t, called)
}
