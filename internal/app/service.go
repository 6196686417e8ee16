// Package app contains application services that orchestrate use cases.
// This is the application layer in Clean Architecture - it coordinates
// domain logic and infrastructure through ports.
//
// Application Layer Responsibilities:
//   - Orchestrate use cases (business workflows)
//   - Coordinate between domain and infrastructure
//   - Handle cross-cutting concerns (logging)
//   - Enforce business rules that span multiple entities
//
// What does NOT belong here:
//   - HTTP specifics (that's adapters)
//   - Storage access details (that's the key-value adapters)
//   - Core domain logic (that's the domain layer)
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// Session store keys.
const (
	sessionKeyLastQuote    = "last_quote"
	sessionKeySessionStart = "session_start"
)

// prefKeyLastCategory remembers the category filter across restarts.
const prefKeyLastCategory = "last_category"

// AddResult reports an AddQuote outcome.
type AddResult struct {
	// Quote is the stored quote, with text and category trimmed.
	Quote *domain.Quote

	// NewCategory is true when the quote introduced a category the
	// collection did not have before.
	NewCategory bool

	// Warning carries the non-fatal persistence error when the grown
	// collection was not written through. The quote is still in memory.
	Warning error
}

// SyncStatusReport is a point-in-time snapshot of the sync subsystem.
type SyncStatusReport struct {
	State            domain.SyncState
	LastSyncTime     time.Time
	LastOutcome      *domain.SyncOutcome
	AutoSyncEnabled  bool
	SchedulerRunning bool
	Conflict         *domain.ConflictRecord
}

// QuoteServiceConfig holds the dependencies for the quote service.
type QuoteServiceConfig struct {
	Collection *Collection
	Engine     *Engine
	Scheduler  *Scheduler

	// Session is the process-lifetime store for last-shown state.
	Session ports.KeyValue

	// Prefs persists user preferences across restarts.
	Prefs ports.Preferences

	// Executor runs staged operations. Defaults to a fresh executor.
	Executor *Executor

	Logger *slog.Logger
}

// QuoteService is the facade over the quote collection and its sync
// subsystem. It owns the last-shown quote used for distinct random picks
// and wires user actions through to the collection, engine, and scheduler.
type QuoteService struct {
	collection *Collection
	engine     *Engine
	scheduler  *Scheduler
	session    ports.KeyValue
	prefs      ports.Preferences
	executor   *Executor
	logger     *slog.Logger

	now func() time.Time

	mu        sync.Mutex
	lastShown *domain.Quote
}

// NewQuoteService creates the service facade.
// Collection, Engine, Scheduler, Session, and Prefs are required.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Collection == nil {
		panic("QuoteService: Collection is required")
	}

	if cfg.Engine == nil {
		panic("QuoteService: Engine is required")
	}

	if cfg.Scheduler == nil {
		panic("QuoteService: Scheduler is required")
	}

	if cfg.Session == nil {
		panic("QuoteService: Session is required")
	}

	if cfg.Prefs == nil {
		panic("QuoteService: Prefs is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	executor := cfg.Executor
	if executor == nil {
		executor = NewExecutor(logger)
	}

	return &QuoteService{
		collection: cfg.Collection,
		engine:     cfg.Engine,
		scheduler:  cfg.Scheduler,
		session:    cfg.Session,
		prefs:      cfg.Prefs,
		executor:   executor,
		logger:     logger.With(slog.String("component", "app.QuoteService")),
		now:        time.Now,
	}
}

// Start loads the collection, restores sync bookkeeping, marks the session
// start, and resumes auto-sync if the persisted flag says so. Every failure
// mode degrades to defaults; the returned error is a non-fatal storage
// warning, never a refusal to start.
func (s *QuoteService) Start(ctx context.Context) error {
	warning := s.collection.Load(ctx)

	s.engine.Restore(ctx)

	err := s.session.Set(ctx, sessionKeySessionStart, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		s.logger.WarnContext(ctx, "session start not recorded", slog.Any("error", err))

		if warning == nil {
			warning = err
		}
	}

	if s.scheduler.Restore(ctx) {
		s.logger.InfoContext(ctx, "auto-sync resumed from saved preference")
	}

	return warning
}

// AddQuote validates and stores a new quote. A persist failure still adds
// the quote in memory and surfaces as AddResult.Warning.
func (s *QuoteService) AddQuote(ctx context.Context, text, category string) (*AddResult, error) {
	logger := s.requestLogger(ctx)

	quote, newCategory, err := s.collection.Add(ctx, text, category)
	if err != nil && domain.IsValidation(err) {
		return nil, err
	}

	logger.InfoContext(ctx, "quote added",
		slog.String("category", quote.Category),
		slog.Bool("new_category", newCategory),
	)

	return &AddResult{Quote: quote, NewCategory: newCategory, Warning: err}, nil
}

// ListQuotes returns the quotes matching category and remembers the filter
// as the last-selected category. An empty category or the "all" sentinel
// lists everything.
func (s *QuoteService) ListQuotes(ctx context.Context, category string) []*domain.Quote {
	if err := s.prefs.SetString(ctx, prefKeyLastCategory, category); err != nil {
		s.requestLogger(ctx).WarnContext(ctx, "last category not saved", slog.Any("error", err))
	}

	return s.collection.FilteredBy(category)
}

// LastCategory returns the persisted category filter, defaulting to the
// "all" sentinel.
func (s *QuoteService) LastCategory(ctx context.Context) string {
	return s.prefs.String(ctx, prefKeyLastCategory, domain.AllCategory)
}

// RandomQuote picks a random quote from category, avoiding an immediate
// repeat of the previously shown quote when the pool allows it. The pick is
// recorded in the session store for the widget to restore on reload.
func (s *QuoteService) RandomQuote(ctx context.Context, category string) (*domain.Quote, error) {
	pool := s.collection.FilteredBy(category)
	if len(pool) == 0 {
		if category == "" {
			category = domain.AllCategory
		}

		return nil, domain.NewNotFoundError("quote", category)
	}

	s.mu.Lock()
	pick := domain.PickRandomDistinct(s.lastShown, pool)
	s.lastShown = pick
	s.mu.Unlock()

	s.rememberLastQuote(ctx, pick)

	return pick, nil
}

// rememberLastQuote stores the shown quote in the session, serialized with
// the collection codec as a one-element array.
func (s *QuoteService) rememberLastQuote(ctx context.Context, quote *domain.Quote) {
	raw, err := domain.MarshalQuotes([]*domain.Quote{quote})
	if err != nil {
		s.requestLogger(ctx).WarnContext(ctx, "last quote not serializable", slog.Any("error", err))

		return
	}

	if err := s.session.Set(ctx, sessionKeyLastQuote, raw); err != nil {
		s.requestLogger(ctx).WarnContext(ctx, "last quote not saved", slog.Any("error", err))
	}
}

// Categories returns the category names, with the "all" sentinel first.
func (s *QuoteService) Categories() []string {
	return s.collection.Categories()
}

// ExportQuotes serializes the full collection into the interchange format.
func (s *QuoteService) ExportQuotes() ([]byte, error) {
	return ExportQuotes(s.collection.Quotes())
}

// ImportQuotes runs the staged import of an uploaded file.
func (s *QuoteService) ImportQuotes(ctx context.Context, input ImportInput) (*ImportResult, error) {
	return Execute(ctx, s.executor, importOperation(s.collection), input)
}

// SyncNow runs one synchronous sync cycle.
func (s *QuoteService) SyncNow(ctx context.Context) (*domain.SyncOutcome, error) {
	return s.engine.Sync(ctx)
}

// ResolveConflict settles the pending conflict in favor of the remote or
// the local collection.
func (s *QuoteService) ResolveConflict(ctx context.Context, useRemote bool) (*domain.SyncOutcome, error) {
	return s.engine.Resolve(ctx, useRemote)
}

// SetAutoSync starts or stops the auto-sync scheduler and persists the
// choice. The returned error is a non-fatal flag-persist warning.
func (s *QuoteService) SetAutoSync(ctx context.Context, enabled bool) error {
	if enabled {
		return s.scheduler.Start(ctx)
	}

	return s.scheduler.Stop(ctx)
}

// SyncStatus reports the current state of the sync subsystem.
func (s *QuoteService) SyncStatus(ctx context.Context) *SyncStatusReport {
	return &SyncStatusReport{
		State:            s.engine.State(),
		LastSyncTime:     s.engine.LastSyncTime(),
		LastOutcome:      s.engine.LastOutcome(),
		AutoSyncEnabled:  s.prefs.Bool(ctx, prefKeyAutoSync, false),
		SchedulerRunning: s.scheduler.Running(),
		Conflict:         s.engine.PendingConflict(),
	}
}

// Shutdown stops the scheduler and waits for any in-flight scheduled cycle
// to finish. The persisted auto-sync preference is left untouched so the
// next start resumes it.
func (s *QuoteService) Shutdown() {
	s.scheduler.Shutdown()
}

// requestLogger prefers the request-scoped logger, falling back to the
// service logger.
func (s *QuoteService) requestLogger(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}

	return s.logger
}
