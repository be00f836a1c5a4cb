// Package scheduler fires the two daily sync triggers from the settings row
// and runs archive maintenance after each scheduled pass.
package scheduler

import (
	"context"
	"errors"
	"sort"
	gosync "sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/perunhq/blackbook-sync/pkg/models"
	syncpkg "github.com/perunhq/blackbook-sync/pkg/sync"
)

// ErrSchedulerAlreadyRunning is returned when Start is called twice.
var ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")

// Runner triggers sync passes.
type Runner interface {
	RunFullSync(ctx context.Context, trigger string) (*models.PassResult, error)
}

// Purger removes expired archive entries.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SettingsStore reads the current schedule configuration.
type SettingsStore interface {
	Get(ctx context.Context) (*models.SyncSettings, error)
}

// Scheduler polls the clock and fires a full pass at each of the two daily
// trigger times. A pass already in progress makes the trigger a no-op.
type Scheduler struct {
	runner   Runner
	purger   Purger
	settings SettingsStore
	logger   ectologger.Logger

	pollInterval time.Duration

	mu       gosync.Mutex
	running  bool
	stopCh   chan struct{}
	stoppedC chan struct{}

	// lastFired de-duplicates triggers within one poll window, keyed by the
	// trigger's scheduled time.
	lastFired time.Time
}

// NewScheduler creates a scheduler
func NewScheduler(runner Runner, purger Purger, settings SettingsStore, pollInterval time.Duration, logger ectologger.Logger) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Scheduler{
		runner:       runner,
		purger:       purger,
		settings:     settings,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Start begins the poll loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.stoppedC = make(chan struct{})
	s.mu.Unlock()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"poll_interval": s.pollInterval.String(),
	}).Info("Starting sync scheduler")

	go s.pollLoop(ctx)
	return nil
}

// Stop halts the poll loop and waits for it to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	stopped := s.stoppedC
	s.mu.Unlock()

	select {
	case <-stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.WithContext(ctx).Info("Stopped sync scheduler")
	return nil
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick fires a pass when a trigger time has been crossed since the last poll.
func (s *Scheduler) tick(ctx context.Context) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Scheduler failed to load settings")
		return
	}
	if !settings.AutoSyncEnabled {
		return
	}

	now := time.Now()
	due, ok := dueTrigger(settings, now, s.pollInterval)
	if !ok {
		return
	}

	s.mu.Lock()
	if !due.After(s.lastFired) {
		s.mu.Unlock()
		return
	}
	s.lastFired = due
	s.mu.Unlock()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"scheduled_for": due.UTC(),
	}).Info("Firing scheduled sync pass")

	if _, err := s.runner.RunFullSync(ctx, syncpkg.TriggerScheduled); err != nil {
		if errors.Is(err, syncpkg.ErrPassInProgress) {
			s.logger.WithContext(ctx).Info("Skipping scheduled sync; a pass is already running")
			return
		}
		s.logger.WithContext(ctx).WithError(err).Error("Scheduled sync pass failed")
		return
	}

	if purged, err := s.purger.PurgeExpired(ctx); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Archive purge failed")
	} else if purged > 0 {
		s.logger.WithContext(ctx).WithFields(map[string]any{"purged": purged}).Info("Archive purge completed")
	}
}

// NextRuns returns the upcoming trigger times, soonest first. Used by the
// status endpoint.
func (s *Scheduler) NextRuns(ctx context.Context) ([]time.Time, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.AutoSyncEnabled {
		return nil, nil
	}

	now := time.Now()
	runs := make([]time.Time, 0, 2)
	for _, t := range []string{settings.MorningSyncTime, settings.EveningSyncTime} {
		next, err := nextOccurrence(t, settings.Timezone, now)
		if err != nil {
			return nil, err
		}
		runs = append(runs, next)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Before(runs[j]) })
	return runs, nil
}

// dueTrigger returns the most recent trigger time that fell inside the last
// poll window, if any.
func dueTrigger(settings *models.SyncSettings, now time.Time, window time.Duration) (time.Time, bool) {
	for _, t := range []string{settings.MorningSyncTime, settings.EveningSyncTime} {
		occ, err := lastOccurrence(t, settings.Timezone, now)
		if err != nil {
			continue
		}
		if now.Sub(occ) < window {
			return occ, true
		}
	}
	return time.Time{}, false
}

// lastOccurrence returns the most recent time-of-day occurrence at or before
// now in the given timezone.
func lastOccurrence(timeOfDay, timezone string, now time.Time) (time.Time, error) {
	occ, err := occurrenceOn(timeOfDay, timezone, now)
	if err != nil {
		return time.Time{}, err
	}
	if occ.After(now) {
		occ = occ.AddDate(0, 0, -1)
	}
	return occ, nil
}

// nextOccurrence returns the next time-of-day occurrence strictly after now in
// the given timezone.
func nextOccurrence(timeOfDay, timezone string, now time.Time) (time.Time, error) {
	occ, err := occurrenceOn(timeOfDay, timezone, now)
	if err != nil {
		return time.Time{}, err
	}
	if !occ.After(now) {
		occ = occ.AddDate(0, 0, 1)
	}
	return occ, nil
}

func occurrenceOn(timeOfDay, timezone string, day time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	tod, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	local := day.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), nil
}
