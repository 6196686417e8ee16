package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Task is a long-running unit of the process lifecycle, such as the HTTP
// server. Run must honor ctx cancellation and return promptly once it fires.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunAll runs tasks concurrently until the first failure or until ctx is
// canceled. The first error cancels the context shared by the other tasks;
// RunAll returns after every task has exited. A task that exits with
// context.Canceled counts as a clean stop, so graceful shutdown yields nil.
//
// Example:
//
//	err := app.RunAll(ctx, logger,
//	    app.Task{Name: "http", Run: server.Run},
//	    app.Task{Name: "signals", Run: waitForSignal},
//	)
func RunAll(ctx context.Context, logger *slog.Logger, tasks ...Task) error {
	if logger == nil {
		logger = slog.Default()
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, task := range tasks {
		g.Go(func() error {
			logger.InfoContext(ctx, "task started", slog.String("task", task.Name))

			err := task.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(ctx, "task failed",
					slog.String("task", task.Name),
					slog.Any("error", err),
				)

				return fmt.Errorf("task %s: %w", task.Name, err)
			}

			logger.InfoContext(ctx, "task stopped", slog.String("task", task.Name))

			return nil
		})
	}

	return g.Wait()
}
