package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// instrumentationName is used for the application-layer OpenTelemetry meter.
const instrumentationName = "github.com/jsamuelsen/quote-sync/internal/app"

// Persistent store keys owned by the sync engine.
const (
	// keyRemoteSnapshot holds the serialized baseline: the remote snapshot
	// as last observed.
	keyRemoteSnapshot = "remote_snapshot"

	// keyLastSyncTime holds the last completed sync instant as ISO-8601.
	keyLastSyncTime = "last_sync_time"
)

// defaultCycleTimeout bounds one sync cycle when none is configured.
const defaultCycleTimeout = 10 * time.Second

// EngineConfig contains configuration for the sync engine.
type EngineConfig struct {
	// Collection is the local quote collection the engine merges into.
	Collection *Collection

	// Remote is the sync endpoint client.
	Remote ports.RemoteQuotes

	// Store is the persistent store for the baseline snapshot and sync
	// instant.
	Store ports.KeyValue

	// Events receives sync outcome events. Optional.
	Events ports.EventPublisher

	// Executor runs the staged sync cycle. Defaults to a new executor.
	Executor *Executor

	// CycleTimeout bounds one cycle. Defaults to 10s.
	CycleTimeout time.Duration

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Engine owns the sync state machine:
//
//	Idle -> Syncing -> {Idle, ConflictPending}
//	ConflictPending -> Idle (resolution only)
//
// One cycle fetches the remote snapshot, compares it and the local
// collection against the stored baseline, and either folds the remote in
// (merge, best-effort push, new baseline) or suspends with a pending
// conflict. An atomic in-flight flag coalesces overlapping triggers.
type Engine struct {
	collection   *Collection
	remote       ports.RemoteQuotes
	store        ports.KeyValue
	events       ports.EventPublisher
	exec         *Executor
	cycleTimeout time.Duration
	logger       *slog.Logger

	// now stamps outcomes. Overridable for testing.
	now func() time.Time

	inFlight atomic.Bool

	mu          sync.Mutex
	state       domain.SyncState
	conflict    *domain.ConflictRecord
	lastSync    time.Time
	lastOutcome *domain.SyncOutcome

	cycleTotal    metric.Int64Counter
	cycleDuration metric.Float64Histogram
}

// NewEngine creates a new sync engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Collection == nil {
		return nil, errors.New("collection is required")
	}

	if cfg.Remote == nil {
		return nil, errors.New("remote client is required")
	}

	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "app.Engine"))

	exec := cfg.Executor
	if exec == nil {
		exec = NewExecutor(logger)
	}

	timeout := cfg.CycleTimeout
	if timeout <= 0 {
		timeout = defaultCycleTimeout
	}

	meter := otel.Meter(instrumentationName)

	cycleTotal, err := meter.Int64Counter(
		"sync.cycle.total",
		metric.WithDescription("Total number of sync cycles by outcome status"),
	)
	if err != nil {
		return nil, err
	}

	cycleDuration, err := meter.Float64Histogram(
		"sync.cycle.duration",
		metric.WithDescription("Duration of sync cycles"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Engine{
		collection:    cfg.Collection,
		remote:        cfg.Remote,
		store:         cfg.Store,
		events:        cfg.Events,
		exec:          exec,
		cycleTimeout:  timeout,
		logger:        logger,
		now:           time.Now,
		state:         domain.SyncIdle,
		cycleTotal:    cycleTotal,
		cycleDuration: cycleDuration,
	}, nil
}

// cycleInput carries the trigger instant through the staged cycle.
type cycleInput struct {
	startedAt time.Time
}

// cycleSnapshot is the perform-stage result: the fetched remote snapshot
// and its serialization used for baseline comparison.
type cycleSnapshot struct {
	remote []*domain.Quote
	raw    string
}

// cycleApplied summarizes what the apply stage did.
type cycleApplied struct {
	remoteCount int
	firstSync   bool
	conflict    *domain.ConflictRecord
	added       int
	skipped     int
	pushed      bool
}

// Sync runs one cycle. A pending conflict is returned without fetching; a
// trigger arriving while another cycle is in flight returns a skipped
// outcome. Fetch failure aborts the cycle with no mutation.
func (e *Engine) Sync(ctx context.Context) (*domain.SyncOutcome, error) {
	e.mu.Lock()
	if e.state == domain.SyncConflictPending {
		conflict := e.conflict
		e.mu.Unlock()

		e.logger.InfoContext(ctx, "sync requested while conflict pending")

		return &domain.SyncOutcome{
			Status:      domain.SyncConflict,
			RemoteCount: conflict.RemoteCount,
			Conflict:    conflict,
			CompletedAt: e.now(),
		}, nil
	}
	e.mu.Unlock()

	if !e.inFlight.CompareAndSwap(false, true) {
		e.logger.DebugContext(ctx, "sync trigger coalesced, cycle already in flight")

		return &domain.SyncOutcome{Status: domain.SyncSkipped, CompletedAt: e.now()}, nil
	}
	defer e.inFlight.Store(false)

	e.setState(domain.SyncSyncing)

	start := time.Now()

	cycleCtx, cancel := context.WithTimeout(ctx, e.cycleTimeout)
	defer cancel()

	outcome, err := Execute(cycleCtx, e.exec, e.cycleOperation(), cycleInput{startedAt: e.now()})

	e.recordCycle(ctx, outcome, err, time.Since(start))

	if err != nil {
		e.setState(domain.SyncIdle)

		return nil, err
	}

	e.mu.Lock()
	if outcome.Status == domain.SyncConflict {
		e.state = domain.SyncConflictPending
		e.conflict = outcome.Conflict
	} else {
		e.state = domain.SyncIdle
		e.lastSync = outcome.CompletedAt
	}
	e.lastOutcome = outcome
	e.mu.Unlock()

	// Events go out only after the state and baselines have settled.
	e.publishOutcome(ctx, outcome)

	return outcome, nil
}

// cycleOperation builds the staged sync cycle.
func (e *Engine) cycleOperation() Operation[cycleInput, cycleSnapshot, cycleApplied, *domain.SyncOutcome] {
	return Operation[cycleInput, cycleSnapshot, cycleApplied, *domain.SyncOutcome]{
		Name: "sync_cycle",

		Perform: func(ctx context.Context, _ cycleInput) (cycleSnapshot, error) {
			remote, err := e.remote.FetchSnapshot(ctx)
			if err != nil {
				return cycleSnapshot{}, err
			}

			raw, err := domain.MarshalQuotes(remote)
			if err != nil {
				return cycleSnapshot{}, err
			}

			return cycleSnapshot{remote: remote, raw: raw}, nil
		},

		Apply: func(ctx context.Context, in cycleInput, snap cycleSnapshot) (cycleApplied, error) {
			return e.applySnapshot(ctx, in.startedAt, snap), nil
		},

		Respond: func(_ context.Context, _ cycleInput, applied cycleApplied) (*domain.SyncOutcome, error) {
			outcome := &domain.SyncOutcome{
				Status:      domain.SyncMerged,
				Added:       applied.added,
				Skipped:     applied.skipped,
				RemoteCount: applied.remoteCount,
				FirstSync:   applied.firstSync,
				Pushed:      applied.pushed,
				CompletedAt: e.now(),
			}

			if applied.conflict != nil {
				outcome.Status = domain.SyncConflict
				outcome.Conflict = applied.conflict
			}

			return outcome, nil
		},
	}
}

// applySnapshot runs detection against the stored baseline and either folds
// the remote snapshot in or holds it as a pending conflict. Store writes in
// here are fail-soft.
func (e *Engine) applySnapshot(ctx context.Context, startedAt time.Time, snap cycleSnapshot) cycleApplied {
	applied := cycleApplied{remoteCount: len(snap.remote)}

	baselineRaw, baselineCount, haveBaseline := e.loadBaseline(ctx)
	applied.firstSync = !haveBaseline

	if haveBaseline {
		localCount := e.collection.Count()

		report := domain.DetectChanges(localCount, baselineCount, baselineRaw, snap.raw)
		if report.Conflict() {
			applied.conflict = &domain.ConflictRecord{
				LocalCount:    localCount,
				RemoteCount:   len(snap.remote),
				BaselineCount: baselineCount,
				RemoteQuotes:  snap.remote,
				DetectedAt:    startedAt,
			}

			e.logger.WarnContext(ctx, "sync conflict detected",
				slog.Int("local_count", localCount),
				slog.Int("remote_count", len(snap.remote)),
				slog.Int("baseline_count", baselineCount))

			return applied
		}
	}

	added, skipped, persistErr := e.collection.MergeIn(ctx, snap.remote)
	if persistErr != nil {
		e.logger.WarnContext(ctx, "merged collection not persisted",
			slog.Any("error", persistErr))
	}

	applied.added = added
	applied.skipped = skipped
	applied.pushed = e.pushLocal(ctx, startedAt)

	e.saveBaseline(ctx, snap.raw, startedAt)

	return applied
}

// loadBaseline reads the stored baseline snapshot. Absent, unreadable, or
// corrupt baselines all report !ok, which the cycle treats as a first sync.
func (e *Engine) loadBaseline(ctx context.Context) (string, int, bool) {
	raw, err := e.store.Get(ctx, keyRemoteSnapshot)
	if err != nil {
		if !domain.IsNotFound(err) {
			e.logger.WarnContext(ctx, "baseline read failed, treating as first sync",
				slog.Any("error", err))
		}

		return "", 0, false
	}

	baseline, err := domain.UnmarshalQuotes(raw)
	if err != nil {
		e.logger.WarnContext(ctx, "stored baseline is corrupt, treating as first sync",
			slog.Any("error", err))

		return "", 0, false
	}

	return raw, len(baseline), true
}

// pushLocal uploads the full local collection. Push is best-effort.
func (e *Engine) pushLocal(ctx context.Context, at time.Time) bool {
	if err := e.remote.PushSnapshot(ctx, e.collection.Quotes(), at); err != nil {
		e.logger.WarnContext(ctx, "push failed, continuing cycle",
			slog.Any("error", err))

		return false
	}

	return true
}

// saveBaseline persists the new baseline snapshot and sync instant.
func (e *Engine) saveBaseline(ctx context.Context, raw string, at time.Time) {
	if err := e.store.Set(ctx, keyRemoteSnapshot, raw); err != nil {
		e.logger.WarnContext(ctx, "baseline persist failed",
			slog.Any("error", err))
	}

	if err := e.store.Set(ctx, keyLastSyncTime, at.Format(time.RFC3339)); err != nil {
		e.logger.WarnContext(ctx, "sync instant persist failed",
			slog.Any("error", err))
	}
}

// Resolve clears the pending conflict. With useRemote the held remote
// snapshot replaces the local collection; otherwise the local collection is
// kept untouched and not pushed. Both paths advance the baseline to the held
// snapshot so the same divergence is not re-reported.
// Returns ConflictError when no conflict is pending.
func (e *Engine) Resolve(ctx context.Context, useRemote bool) (*domain.SyncOutcome, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, domain.NewConflictError("sync", "another sync operation is in flight")
	}
	defer e.inFlight.Store(false)

	e.mu.Lock()
	if e.state != domain.SyncConflictPending || e.conflict == nil {
		e.mu.Unlock()

		return nil, domain.NewConflictError("sync", "no conflict pending")
	}

	conflict := e.conflict
	e.conflict = nil
	e.state = domain.SyncSyncing
	e.mu.Unlock()

	resolvedAt := e.now()
	outcome := &domain.SyncOutcome{
		Status:      domain.SyncMerged,
		RemoteCount: len(conflict.RemoteQuotes),
		CompletedAt: resolvedAt,
	}

	if useRemote {
		if err := e.collection.ReplaceAll(ctx, conflict.RemoteQuotes); err != nil {
			e.logger.WarnContext(ctx, "replaced collection not persisted",
				slog.Any("error", err))
		}

		outcome.Added = len(conflict.RemoteQuotes)
	}

	if raw, err := domain.MarshalQuotes(conflict.RemoteQuotes); err == nil {
		e.saveBaseline(ctx, raw, resolvedAt)
	} else {
		e.logger.WarnContext(ctx, "held snapshot not serializable, baseline unchanged",
			slog.Any("error", err))
	}

	e.mu.Lock()
	e.state = domain.SyncIdle
	e.lastSync = resolvedAt
	e.lastOutcome = outcome
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "conflict resolved",
		slog.Bool("use_remote", useRemote),
		slog.Int("quote_count", e.collection.Count()))

	e.publish(ctx, ConflictResolvedEvent{
		UseRemote:  useRemote,
		QuoteCount: e.collection.Count(),
		ResolvedAt: resolvedAt,
	})

	return outcome, nil
}

// Restore loads the persisted sync instant at startup. Absent or corrupt
// values leave the instant at zero ("never synced").
func (e *Engine) Restore(ctx context.Context) {
	raw, err := e.store.Get(ctx, keyLastSyncTime)
	if err != nil {
		if !domain.IsNotFound(err) {
			e.logger.WarnContext(ctx, "sync instant read failed",
				slog.Any("error", err))
		}

		return
	}

	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		e.logger.WarnContext(ctx, "stored sync instant is corrupt",
			slog.Any("error", err))

		return
	}

	e.mu.Lock()
	e.lastSync = at
	e.mu.Unlock()
}

// State returns the current state machine position.
func (e *Engine) State() domain.SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// PendingConflict returns the held conflict record, or nil. The record is
// read-only to callers.
func (e *Engine) PendingConflict() *domain.ConflictRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.conflict
}

// LastSyncTime returns the last completed sync instant, zero when no sync
// has completed.
func (e *Engine) LastSyncTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastSync
}

// LastOutcome returns the most recent outcome, or nil.
func (e *Engine) LastOutcome() *domain.SyncOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastOutcome
}

func (e *Engine) setState(state domain.SyncState) {
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
}

// publishOutcome emits the event matching a completed cycle.
func (e *Engine) publishOutcome(ctx context.Context, outcome *domain.SyncOutcome) {
	if outcome.Status == domain.SyncConflict {
		c := outcome.Conflict
		e.publish(ctx, ConflictDetectedEvent{
			LocalCount:    c.LocalCount,
			RemoteCount:   c.RemoteCount,
			BaselineCount: c.BaselineCount,
			DetectedAt:    c.DetectedAt,
		})

		return
	}

	e.publish(ctx, SyncCompletedEvent{
		Added:       outcome.Added,
		Skipped:     outcome.Skipped,
		RemoteCount: outcome.RemoteCount,
		FirstSync:   outcome.FirstSync,
		Pushed:      outcome.Pushed,
		CompletedAt: outcome.CompletedAt,
	})
}

func (e *Engine) publish(ctx context.Context, event ports.Event) {
	if e.events == nil {
		return
	}

	if err := e.events.Publish(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "event publish failed",
			slog.String("event_type", event.EventType()),
			slog.Any("error", err))
	}
}

// recordCycle updates the cycle metrics.
func (e *Engine) recordCycle(ctx context.Context, outcome *domain.SyncOutcome, err error, duration time.Duration) {
	status := "error"
	if err == nil {
		status = string(outcome.Status)
	}

	attrs := metric.WithAttributes(attribute.String("status", status))

	e.cycleTotal.Add(ctx, 1, attrs)
	e.cycleDuration.Record(ctx, duration.Seconds(), attrs)
}
