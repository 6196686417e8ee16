// Package main is the entry point for the quote sync service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsamuelsen/quote-sync/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-sync/internal/adapters/http"
	"github.com/jsamuelsen/quote-sync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-sync/internal/adapters/notify"
	"github.com/jsamuelsen/quote-sync/internal/adapters/storage"
	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/platform/config"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Open the persistent store and create the session-scoped one
	store, err := storage.NewBoltStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening persistent store: %w", err)
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("store close error", slog.Any("error", closeErr))
		}
	}()

	session := storage.NewSessionStore()
	prefs := storage.NewPrefs(store, logger)

	// 6. Create HTTP client for the remote sync endpoint
	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Remote.BaseURL,
		ServiceName: cfg.Services.Remote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP client: %w", err)
	}

	// 7. Create remote quotes adapter (ACL pattern)
	remote := acl.NewRemoteQuotes(acl.RemoteQuotesConfig{
		Client:      httpClient,
		ServiceName: cfg.Services.Remote.Name,
		Logger:      logger,
	})

	// 8. Register health checkers
	healthRegistry := ports.NewHealthRegistry()

	if err := healthRegistry.Register(store); err != nil {
		return fmt.Errorf("registering store health check: %w", err)
	}

	if err := healthRegistry.Register(remote); err != nil {
		return fmt.Errorf("registering remote health check: %w", err)
	}

	// 9. Create the event bus carrying sync outcomes
	bus := notify.New(notify.Config{Logger: logger})
	defer bus.Close()

	events, unsubscribe := bus.Subscribe(
		app.EventSyncCompleted,
		app.EventConflictDetected,
		app.EventConflictResolved,
	)
	defer unsubscribe()

	// 10. Assemble the application layer
	collection := app.NewCollection(app.CollectionConfig{
		Store:  store,
		Logger: logger,
	})

	engine, err := app.NewEngine(app.EngineConfig{
		Collection:   collection,
		Remote:       remote,
		Store:        store,
		Events:       bus,
		CycleTimeout: cfg.Sync.CycleTimeout,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("creating sync engine: %w", err)
	}

	scheduler := app.NewScheduler(app.SchedulerConfig{
		Engine:   engine,
		Prefs:    prefs,
		Interval: cfg.Sync.Interval,
		Logger:   logger,
	})

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Collection: collection,
		Engine:     engine,
		Scheduler:  scheduler,
		Session:    session,
		Prefs:      prefs,
		Logger:     logger,
	})

	// Start degrades to defaults on storage trouble rather than refusing
	if warning := service.Start(ctx); warning != nil {
		logger.Warn("service started with storage warning", slog.Any("error", warning))
	}

	// 11. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	quoteHandler := handlers.NewQuoteHandler(service)
	syncHandler := handlers.NewSyncHandler(service)
	transferHandler := handlers.NewTransferHandler(service)

	// 12. Create HTTP server and router
	server := http.New(&cfg.Server, logger)

	routerCfg := http.NewDefaultRouterConfig(
		logger,
		&cfg.App,
		quoteHandler,
		syncHandler,
		transferHandler,
		healthHandler,
	)
	http.SetupRouter(server.Engine(), routerCfg)

	// 13. Run the server and the sync event log until a signal or failure
	runErr := app.RunAll(ctx, logger,
		app.Task{Name: "http-server", Run: serveTask(server)},
		app.Task{Name: "sync-events", Run: eventLogTask(logger, events)},
	)

	// 14. Graceful shutdown: stop the scheduler loop, then drain the server
	service.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", cfg.Server.ShutdownTimeout),
	)

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return runErr
}

// serveTask adapts the non-blocking server start into a task that runs until
// the listener fails or the context is canceled.
func serveTask(server *http.Server) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		errCh := server.Start()

		select {
		case err, ok := <-errCh:
			if ok && err != nil {
				return err
			}

			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// eventLogTask consumes sync outcome events from the bus and records them as
// the sync status log.
func eventLogTask(logger *slog.Logger, events <-chan ports.Event) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}

				logger.InfoContext(ctx, "sync event",
					slog.String("event_type", event.EventType()),
					slog.Any("payload", event.Payload()),
				)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
