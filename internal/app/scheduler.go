package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// prefKeyAutoSync is the preference key persisting the auto-sync flag.
const prefKeyAutoSync = "auto_sync_enabled"

// defaultSyncInterval is the period between scheduled cycles when none is
// configured.
const defaultSyncInterval = 30 * time.Second

// SchedulerConfig contains configuration for the auto-sync scheduler.
type SchedulerConfig struct {
	// Engine runs the cycles.
	Engine *Engine

	// Prefs persists the auto-sync flag across restarts.
	Prefs ports.Preferences

	// Interval is the period between cycles. Defaults to 30s.
	Interval time.Duration

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Scheduler runs the sync cycle on a fixed period: one immediate cycle on
// Start, then one per interval. Start and Stop persist the auto-sync flag;
// Shutdown stops the loop without touching the flag so the setting survives
// a restart. Stopping never cancels an in-flight cycle, only future ticks.
type Scheduler struct {
	engine   *Engine
	prefs    ports.Preferences
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a new auto-sync scheduler.
// Panics if Engine or Prefs is nil.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Engine == nil {
		panic("Scheduler: Engine is required")
	}

	if cfg.Prefs == nil {
		panic("Scheduler: Prefs is required")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		engine:   cfg.Engine,
		prefs:    cfg.Prefs,
		interval: interval,
		logger:   logger.With(slog.String("component", "app.Scheduler")),
	}
}

// Start launches the periodic loop and persists the flag as enabled.
// No-op when already running. The returned error is a non-fatal
// StorageError from persisting the flag.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.cancel != nil {
		s.mu.Unlock()

		return nil
	}

	// The loop outlives the caller's request; cycles get their own
	// timeout from the engine.
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	s.mu.Unlock()

	s.logger.InfoContext(ctx, "auto-sync started",
		slog.Duration("interval", s.interval))

	if err := s.prefs.SetBool(ctx, prefKeyAutoSync, true); err != nil {
		s.logger.WarnContext(ctx, "auto-sync flag not persisted",
			slog.Any("error", err))

		return err
	}

	return nil
}

// Stop cancels future ticks and persists the flag as disabled. An in-flight
// cycle finishes on its own. No-op when stopped. The returned error is a
// non-fatal StorageError from persisting the flag.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()

	if s.cancel == nil {
		s.mu.Unlock()

		return nil
	}

	s.cancel()
	s.cancel = nil
	s.done = nil

	s.mu.Unlock()

	s.logger.InfoContext(ctx, "auto-sync stopped")

	if err := s.prefs.SetBool(ctx, prefKeyAutoSync, false); err != nil {
		s.logger.WarnContext(ctx, "auto-sync flag not persisted",
			slog.Any("error", err))

		return err
	}

	return nil
}

// Shutdown stops the loop for process exit without persisting the flag, and
// waits for the loop goroutine to drain.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()

	if s.cancel == nil {
		s.mu.Unlock()

		return
	}

	s.cancel()
	s.cancel = nil
	done := s.done
	s.done = nil

	s.mu.Unlock()

	<-done
}

// Running reports whether the periodic loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancel != nil
}

// Restore starts the scheduler when the persisted flag says auto-sync was
// enabled. Returns whether it started.
func (s *Scheduler) Restore(ctx context.Context) bool {
	if !s.prefs.Bool(ctx, prefKeyAutoSync, false) {
		return false
	}

	s.logger.InfoContext(ctx, "restoring auto-sync from persisted flag")

	// Start re-persists true, which is what the flag already says.
	_ = s.Start(ctx)

	return true
}

// loop runs one immediate cycle, then one per tick until canceled.
func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.runCycle()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// runCycle triggers one cycle. The cycle context is detached from the loop
// context so stopping the scheduler never aborts a cycle midway; the engine
// applies its own timeout.
func (s *Scheduler) runCycle() {
	ctx := context.Background()

	outcome, err := s.engine.Sync(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "scheduled sync failed", slog.Any("error", err))

		return
	}

	s.logger.DebugContext(ctx, "scheduled sync finished",
		slog.String("status", string(outcome.Status)))
}
