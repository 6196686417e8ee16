package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll_CompletesAllTasks(t *testing.T) {
	var ran atomic.Int32

	task := func(_ context.Context) error {
		ran.Add(1)

		return nil
	}

	err := RunAll(context.Background(), discardLogger(),
		Task{Name: "first", Run: task},
		Task{Name: "second", Run: task},
	)

	require.NoError(t, err)
	assert.Equal(t, int32(2), ran.Load())
}

func TestRunAll_FirstErrorCancelsSiblings(t *testing.T) {
	boom := errors.New("exploded")
	siblingCanceled := false

	err := RunAll(context.Background(), discardLogger(),
		Task{Name: "boom", Run: func(_ context.Context) error { return boom }},
		Task{Name: "waiter", Run: func(ctx context.Context) error {
			<-ctx.Done()
			siblingCanceled = true

			return ctx.Err()
		}},
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "task boom")
	assert.True(t, siblingCanceled)
}

func TestRunAll_ParentCancellationIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := RunAll(ctx, discardLogger(),
		Task{Name: "loop", Run: func(ctx context.Context) error {
			<-ctx.Done()

			return ctx.Err()
		}},
	)

	assert.NoError(t, err, "a canceled task is a clean stop, not a failure")
}

func TestRunAll_NoTasks(t *testing.T) {
	assert.NoError(t, RunAll(context.Background(), nil))
}
