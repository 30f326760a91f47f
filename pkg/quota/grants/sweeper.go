package grants

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the expiry sweep daily at 3 AM.
const DefaultSweepSchedule = "0 3 * * *"

// Sweeper removes expired grants on a cron schedule. Expired grants
// already stop counting towards allowances the moment they lapse; the
// sweep only reclaims storage.
type Sweeper struct {
	store    Store
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewSweeper creates a sweeper for the given store. An empty schedule
// falls back to DefaultSweepSchedule.
func NewSweeper(store Store, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "grants.sweeper"),
	}
}

// Start begins scheduled sweeping. The sweeper stops when the context is
// cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule grant sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("grant sweeper started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Sweeper) runSweep(ctx context.Context) {
	deleted, err := s.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("grant sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("grant sweep completed", "deleted_count", deleted)
	} else {
		s.logger.Debug("grant sweep completed, no grants deleted")
	}
}

// Stop stops the sweeper and waits for a running sweep to complete.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("grant sweeper stopped")
	}
}

// IsRunning returns true if the sweeper is running.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
