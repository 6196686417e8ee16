package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
)

// Staged Operation Pattern: Validate → Perform → Apply → Respond
//
// Multi-phase use cases (the sync cycle, file import) run as staged
// operations so a failure carries the stage it occurred in and every stage
// logs uniformly.
//
// The 4 Stages:
//   1. VALIDATE - check inputs and preconditions before any work
//   2. PERFORM  - do the gathering work: fetch, parse, compute. No
//                 application state changes in this stage.
//   3. APPLY    - fold the performed result into application state. Store
//                 writes here follow the storage policy: failures are
//                 logged and surfaced as warnings, never rolled back.
//   4. RESPOND  - assemble the caller-facing result.
//
// A stage returning an error aborts the stages after it.

// ExecutionStage identifies a stage in the staged operation pattern.
type ExecutionStage string

const (
	StageValidate ExecutionStage = "validate"
	StagePerform  ExecutionStage = "perform"
	StageApply    ExecutionStage = "apply"
	StageRespond  ExecutionStage = "respond"
)

// ExecutionError wraps errors with the stage where they occurred.
type ExecutionError struct {
	Stage   ExecutionStage
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Stage, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s failed: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NewExecutionValidationError creates an error for the validate stage.
func NewExecutionValidationError(message string, cause error) error {
	return &ExecutionError{Stage: StageValidate, Message: message, Cause: cause}
}

// NewPerformError creates an error for the perform stage.
func NewPerformError(message string, cause error) error {
	return &ExecutionError{Stage: StagePerform, Message: message, Cause: cause}
}

// NewApplyError creates an error for the apply stage.
func NewApplyError(message string, cause error) error {
	return &ExecutionError{Stage: StageApply, Message: message, Cause: cause}
}

// Executor runs staged operations with logging and error wrapping per stage.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates a new executor with the given logger.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation defines the functions for each stage.
// I is the input, P the perform result, A the applied state summary, and O
// the caller-facing output. Nil stages are skipped.
type Operation[I, P, A, O any] struct {
	// Name identifies this operation for logging.
	Name string

	// Validate checks inputs and preconditions.
	// Return an error to abort before any work happens.
	Validate func(ctx context.Context, input I) error

	// Perform gathers what Apply needs: a remote fetch, a parsed file.
	Perform func(ctx context.Context, input I) (P, error)

	// Apply folds the performed result into application state.
	Apply func(ctx context.Context, input I, performed P) (A, error)

	// Respond assembles the result for the caller.
	Respond func(ctx context.Context, input I, applied A) (O, error)
}

// stagedRun holds state during operation execution.
type stagedRun[I, P, A, O any] struct {
	logger *slog.Logger
	op     Operation[I, P, A, O]
	input  I
}

func (r *stagedRun[I, P, A, O]) runValidate(ctx context.Context) error {
	if r.op.Validate == nil {
		return nil
	}

	r.logger.DebugContext(ctx, "starting validation")

	if err := r.op.Validate(ctx, r.input); err != nil {
		r.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))

		return NewExecutionValidationError("input validation failed", err)
	}

	return nil
}

func (r *stagedRun[I, P, A, O]) runPerform(ctx context.Context) (P, error) {
	var zero P

	if r.op.Perform == nil {
		return zero, nil
	}

	r.logger.DebugContext(ctx, "performing operation")

	performed, err := r.op.Perform(ctx, r.input)
	if err != nil {
		r.logger.ErrorContext(ctx, "perform failed", slog.Any("error", err))

		return zero, NewPerformError("operation failed", err)
	}

	return performed, nil
}

func (r *stagedRun[I, P, A, O]) runApply(ctx context.Context, performed P) (A, error) {
	var zero A

	if r.op.Apply == nil {
		return zero, nil
	}

	r.logger.DebugContext(ctx, "applying result")

	applied, err := r.op.Apply(ctx, r.input, performed)
	if err != nil {
		r.logger.ErrorContext(ctx, "apply failed", slog.Any("error", err))

		return zero, NewApplyError("state update failed", err)
	}

	return applied, nil
}

func (r *stagedRun[I, P, A, O]) runRespond(ctx context.Context, applied A) (O, error) {
	var zero O

	if r.op.Respond == nil {
		return zero, nil
	}

	result, err := r.op.Respond(ctx, r.input, applied)
	if err != nil {
		r.logger.WarnContext(ctx, "respond formatting failed", slog.Any("error", err))

		return zero, err
	}

	return result, nil
}

// Execute runs an operation through all four stages.
func Execute[I, P, A, O any](ctx context.Context, exec *Executor, op Operation[I, P, A, O], input I) (O, error) {
	var zero O

	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = exec.logger
	}

	logger = logger.With(slog.String("operation", op.Name))
	start := time.Now()

	run := &stagedRun[I, P, A, O]{
		logger: logger,
		op:     op,
		input:  input,
	}

	if err := run.runValidate(ctx); err != nil {
		return zero, err
	}

	performed, err := run.runPerform(ctx)
	if err != nil {
		return zero, err
	}

	applied, err := run.runApply(ctx, performed)
	if err != nil {
		return zero, err
	}

	result, err := run.runRespond(ctx, applied)
	if err != nil {
		return zero, err
	}

	logger.InfoContext(ctx, "operation completed",
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// IsExecutionError checks if an error occurred during staged execution.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError

	return errors.As(err, &execErr)
}

// GetExecutionStage extracts the stage from an execution error.
func GetExecutionStage(err error) (ExecutionStage, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Stage, true
	}

	return "", false
}
