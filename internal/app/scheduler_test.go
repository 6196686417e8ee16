package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSchedulerFixture(t *testing.T, interval time.Duration) (*Scheduler, *engineFixture, *fakePrefs) {
	t.Helper()

	fx := newEngineFixture(t,
		quoteSet("make it simple", "design"),
		quoteSet("fetched from the server", "notes"))
	fx.remote.fetched = make(chan struct{}, 16)

	prefs := newFakePrefs()

	scheduler := NewScheduler(SchedulerConfig{
		Engine:   fx.engine,
		Prefs:    prefs,
		Interval: interval,
		Logger:   discardLogger(),
	})

	t.Cleanup(scheduler.Shutdown)

	return scheduler, fx, prefs
}

func waitForFetch(t *testing.T, remote *fakeRemote) {
	t.Helper()

	select {
	case <-remote.fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sync cycle")
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	fx := newEngineFixture(t, quoteSet("make it simple", "design"), nil)

	assert.Panics(t, func() {
		NewScheduler(SchedulerConfig{Prefs: newFakePrefs()})
	})
	assert.Panics(t, func() {
		NewScheduler(SchedulerConfig{Engine: fx.engine})
	})
}

func TestScheduler_StartRunsImmediateCycle(t *testing.T) {
	scheduler, fx, prefs := newSchedulerFixture(t, time.Hour)

	require.NoError(t, scheduler.Start(context.Background()))

	waitForFetch(t, fx.remote)
	assert.True(t, scheduler.Running())

	enabled, ok := prefs.boolValue("auto_sync_enabled")
	require.True(t, ok)
	assert.True(t, enabled)
}

func TestScheduler_StartTwiceIsNoop(t *testing.T) {
	scheduler, _, prefs := newSchedulerFixture(t, time.Hour)

	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Start(context.Background()))

	assert.True(t, scheduler.Running())
	assert.Equal(t, 1, prefs.setBoolCalls, "second start must not re-persist the flag")
}

func TestScheduler_StopDisablesFlag(t *testing.T) {
	scheduler, fx, prefs := newSchedulerFixture(t, time.Hour)

	require.NoError(t, scheduler.Start(context.Background()))
	waitForFetch(t, fx.remote)

	require.NoError(t, scheduler.Stop(context.Background()))

	assert.False(t, scheduler.Running())

	enabled, ok := prefs.boolValue("auto_sync_enabled")
	require.True(t, ok)
	assert.False(t, enabled)

	// Stopping again is a no-op.
	require.NoError(t, scheduler.Stop(context.Background()))
	assert.Equal(t, 2, prefs.setBoolCalls)
}

func TestScheduler_PeriodicCycles(t *testing.T) {
	scheduler, fx, _ := newSchedulerFixture(t, 5*time.Millisecond)

	require.NoError(t, scheduler.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return fx.remote.fetchCount() >= 2
	}, 2*time.Second, 5*time.Millisecond, "ticker should trigger repeated cycles")
}

func TestScheduler_ShutdownPreservesFlag(t *testing.T) {
	scheduler, fx, prefs := newSchedulerFixture(t, time.Hour)

	require.NoError(t, scheduler.Start(context.Background()))
	waitForFetch(t, fx.remote)

	scheduler.Shutdown()

	assert.False(t, scheduler.Running())
	assert.Equal(t, 1, prefs.setBoolCalls, "shutdown must not touch the persisted flag")

	enabled, ok := prefs.boolValue("auto_sync_enabled")
	require.True(t, ok)
	assert.True(t, enabled, "flag stays enabled for the next start")

	// Shutdown when already stopped is safe.
	scheduler.Shutdown()
}

func TestScheduler_StartPersistFailureIsNonFatal(t *testing.T) {
	scheduler, fx, prefs := newSchedulerFixture(t, time.Hour)
	prefs.setErr = errStoreDown

	err := scheduler.Start(context.Background())

	require.Error(t, err)
	assert.True(t, scheduler.Running(), "loop runs even when the flag write fails")
	waitForFetch(t, fx.remote)
}

func TestScheduler_Restore(t *testing.T) {
	t.Run("flag enabled", func(t *testing.T) {
		scheduler, fx, prefs := newSchedulerFixture(t, time.Hour)
		prefs.bools["auto_sync_enabled"] = true

		assert.True(t, scheduler.Restore(context.Background()))
		assert.True(t, scheduler.Running())
		waitForFetch(t, fx.remote)
	})

	t.Run("flag absent", func(t *testing.T) {
		scheduler, _, _ := newSchedulerFixture(t, time.Hour)

		assert.False(t, scheduler.Restore(context.Background()))
		assert.False(t, scheduler.Running())
	})
}
