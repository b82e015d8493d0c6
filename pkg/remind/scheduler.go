package remind

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
)

// DefaultPollInterval is how often the scheduler checks for due reminders.
const DefaultPollInterval = 30 * time.Second

// Scheduler is the explicitly owned, cancellable poll handle driving
// reminder checks. One instance is scoped to one active board; switching
// boards stops the old instance and starts a fresh one, so a stale poll can
// never mutate a board that is no longer active.
type Scheduler struct {
	*worker.BaseWorker

	interval time.Duration
	tick     func(now time.Time)
	clock    func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
}

// NewScheduler creates a poll handle that invokes tick every interval.
func NewScheduler(name string, interval time.Duration, tick func(now time.Time), clock func() time.Time, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		BaseWorker: worker.NewBaseWorker(name),
		interval:   interval,
		tick:       tick,
		clock:      clock,
		logger:     logger,
	}
}

// Start arms the repeating poll. A scheduler starts at most once; re-arming
// after Stop means constructing a new instance.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := s.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("scheduler already started (status: %s)", status)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.SetStatus(worker.StatusRunning)
	return s.StartFunc(runCtx, s.run)
}

// Stop invalidates the poll and waits for the loop to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.StopRequested = true
		s.cancel()
	}
	return s.BaseWorker.Stop(ctx)
}

// State exposes the worker state for supervision.
func (s *Scheduler) State() worker.State {
	return s.ExportState(func(st *worker.State) {
		st.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

func (s *Scheduler) run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("reminder poll armed", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("reminder poll stopped")
			return nil
		case <-ticker.C:
			s.tick(s.clock())
		}
	}
}
