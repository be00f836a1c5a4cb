package scheduler

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perunhq/blackbook-sync/pkg/models"
	syncpkg "github.com/perunhq/blackbook-sync/pkg/sync"
)

type fakeRunner struct {
	mu   gosync.Mutex
	runs []string
	err  error
}

func (f *fakeRunner) RunFullSync(ctx context.Context, trigger string) (*models.PassResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, trigger)
	return &models.PassResult{}, f.err
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

type fakePurger struct {
	mu    gosync.Mutex
	calls int
}

func (f *fakePurger) PurgeExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 0, nil
}

type fakeSettings struct {
	settings *models.SyncSettings
}

func (f *fakeSettings) Get(ctx context.Context) (*models.SyncSettings, error) {
	return f.settings, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func enabledSettings(morning, evening, tz string) *models.SyncSettings {
	return &models.SyncSettings{
		ID:              models.SettingsID,
		AutoSyncEnabled: true,
		MorningSyncTime: morning,
		EveningSyncTime: evening,
		Timezone:        tz,
		RetentionDays:   90,
	}
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, &fakePurger{}, &fakeSettings{settings: enabledSettings("07:00", "19:00", "UTC")}, time.Hour, testLogger())

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop(context.Background()))
	// Stopping twice is a no-op.
	require.NoError(t, s.Stop(context.Background()))

	// A stopped scheduler can start again.
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestTick(t *testing.T) {
	trigger := func(now time.Time) string {
		return now.Format("15:04")
	}

	t.Run("fires when a trigger time was just crossed", func(t *testing.T) {
		runner := &fakeRunner{}
		purger := &fakePurger{}
		now := time.Now()
		settings := enabledSettings(trigger(now), "23:59", "Local")
		s := NewScheduler(runner, purger, &fakeSettings{settings: settings}, time.Minute, testLogger())

		s.tick(context.Background())
		assert.Equal(t, 1, runner.count())
		assert.Equal(t, []string{syncpkg.TriggerScheduled}, runner.runs)
		assert.Equal(t, 1, purger.calls)

		// The same trigger never fires twice within its window.
		s.tick(context.Background())
		assert.Equal(t, 1, runner.count())
	})

	t.Run("does not fire outside the window", func(t *testing.T) {
		runner := &fakeRunner{}
		now := time.Now().Add(-2 * time.Hour)
		settings := enabledSettings(trigger(now), trigger(now.Add(time.Hour)), "Local")
		s := NewScheduler(runner, &fakePurger{}, &fakeSettings{settings: settings}, time.Minute, testLogger())

		s.tick(context.Background())
		assert.Zero(t, runner.count())
	})

	t.Run("does nothing when auto sync is off", func(t *testing.T) {
		runner := &fakeRunner{}
		settings := enabledSettings(trigger(time.Now()), "23:59", "Local")
		settings.AutoSyncEnabled = false
		s := NewScheduler(runner, &fakePurger{}, &fakeSettings{settings: settings}, time.Minute, testLogger())

		s.tick(context.Background())
		assert.Zero(t, runner.count())
	})

	t.Run("pass in progress is skipped quietly", func(t *testing.T) {
		runner := &fakeRunner{err: syncpkg.ErrPassInProgress}
		purger := &fakePurger{}
		settings := enabledSettings(trigger(time.Now()), "23:59", "Local")
		s := NewScheduler(runner, purger, &fakeSettings{settings: settings}, time.Minute, testLogger())

		s.tick(context.Background())
		assert.Equal(t, 1, runner.count())
		// No purge after a skipped pass.
		assert.Zero(t, purger.calls)
	})
}

func TestNextRuns(t *testing.T) {
	t.Run("returns both triggers soonest first", func(t *testing.T) {
		s := NewScheduler(&fakeRunner{}, &fakePurger{}, &fakeSettings{settings: enabledSettings("07:00", "19:00", "UTC")}, time.Minute, testLogger())

		runs, err := s.NextRuns(context.Background())
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.True(t, runs[0].Before(runs[1]))
		now := time.Now()
		for _, r := range runs {
			assert.True(t, r.After(now))
			assert.True(t, r.Sub(now) <= 24*time.Hour)
		}
	})

	t.Run("empty when auto sync is off", func(t *testing.T) {
		settings := enabledSettings("07:00", "19:00", "UTC")
		settings.AutoSyncEnabled = false
		s := NewScheduler(&fakeRunner{}, &fakePurger{}, &fakeSettings{settings: settings}, time.Minute, testLogger())

		runs, err := s.NextRuns(context.Background())
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

func TestOccurrenceHelpers(t *testing.T) {
	// A fixed reference point: 2026-03-10 12:00 UTC.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("last occurrence earlier today", func(t *testing.T) {
		occ, err := lastOccurrence("07:00", "UTC", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC), occ)
	})

	t.Run("last occurrence wraps to yesterday", func(t *testing.T) {
		occ, err := lastOccurrence("19:00", "UTC", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 9, 19, 0, 0, 0, time.UTC), occ)
	})

	t.Run("next occurrence later today", func(t *testing.T) {
		occ, err := nextOccurrence("19:00", "UTC", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC), occ)
	})

	t.Run("next occurrence wraps to tomorrow", func(t *testing.T) {
		occ, err := nextOccurrence("07:00", "UTC", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), occ)
	})

	t.Run("timezone is honored", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		occ, err := nextOccurrence("07:00", "America/New_York", now)
		require.NoError(t, err)
		// 12:00 UTC is 07:00 or 08:00 in New York depending on DST; either way
		// the next 07:00 local is on the following day.
		assert.Equal(t, 7, occ.In(loc).Hour())
		assert.True(t, occ.After(now))
	})

	t.Run("invalid time of day", func(t *testing.T) {
		_, err := nextOccurrence("25:99", "UTC", now)
		assert.Error(t, err)
	})

	t.Run("invalid timezone", func(t *testing.T) {
		_, err := nextOccurrence("07:00", "Mars/Olympus", now)
		assert.Error(t, err)
	})

	t.Run("due trigger inside window", func(t *testing.T) {
		settings := enabledSettings("11:59", "23:00", "UTC")
		due, ok := dueTrigger(settings, now, 5*time.Minute)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 3, 10, 11, 59, 0, 0, time.UTC), due)
	})

	t.Run("no due trigger outside window", func(t *testing.T) {
		settings := enabledSettings("09:00", "23:00", "UTC")
		_, ok := dueTrigger(settings, now, 5*time.Minute)
		assert.False(t, ok)
	})
}
