// Package sync drives bidirectional contact sync passes: import from every
// sync-enabled external account, then export the full local set back out.
package sync

import (
	"context"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/perunhq/blackbook-sync/pkg/conflict"
	"github.com/perunhq/blackbook-sync/pkg/contacts"
	"github.com/perunhq/blackbook-sync/pkg/database"
	"github.com/perunhq/blackbook-sync/pkg/events"
	"github.com/perunhq/blackbook-sync/pkg/matching"
	"github.com/perunhq/blackbook-sync/pkg/merging"
	"github.com/perunhq/blackbook-sync/pkg/metrics"
	"github.com/perunhq/blackbook-sync/pkg/models"
	"github.com/perunhq/blackbook-sync/pkg/redis"
	"github.com/perunhq/blackbook-sync/pkg/tracing"
)

// ErrPassInProgress is returned when a sync is requested while a full pass is
// already running.
var ErrPassInProgress = httperror.NewHTTPError(http.StatusConflict, "sync already running")

// passLockKey is the system-wide lock key guarding full passes across
// instances when Redis is configured.
const passLockKey = "sync:pass"

// Trigger labels for pass metrics.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// PersonStore is the person persistence surface the orchestrator needs.
type PersonStore interface {
	Create(ctx context.Context, p *models.Person) (*models.Person, error)
	GetByID(ctx context.Context, id string) (*models.Person, error)
	Update(ctx context.Context, p *models.Person) error
	ListSyncEnabled(ctx context.Context) ([]*models.Person, error)
	SetSyncStatus(ctx context.Context, id string, status models.SyncStatus, lastSyncedAt *time.Time) error
}

// AccountStore is the external account persistence surface.
type AccountStore interface {
	List(ctx context.Context) ([]*models.ExternalAccount, error)
	ListSyncEnabled(ctx context.Context) ([]*models.ExternalAccount, error)
	SetSyncTimes(ctx context.Context, id string, lastSyncAt, nextSyncAt *time.Time) error
}

// LogStore appends sync log entries.
type LogStore interface {
	Append(ctx context.Context, entry *models.SyncLogEntry) error
}

// ReviewStore persists flagged conflicts.
type ReviewStore interface {
	Create(ctx context.Context, item *models.ReviewItem) (*models.ReviewItem, error)
}

// Archiver snapshots and deletes persons.
type Archiver interface {
	Archive(ctx context.Context, person *models.Person, deletedFrom string, accountID *string) (*models.ArchivedPerson, error)
}

// MergeDetector merges one external record into a person.
type MergeDetector interface {
	Merge(person *models.Person, rec contacts.Record, accountID, accountLabel string) *conflict.Resolution
}

// SourceResolver builds adapters for accounts.
type SourceResolver interface {
	SourceFor(account *models.ExternalAccount) (contacts.Source, error)
}

// Config holds the orchestrator's tunables.
type Config struct {
	AdapterCallTimeout    time.Duration
	AdapterRetryAttempts  int
	AdapterRetryBaseDelay time.Duration
	PassLockTTL           time.Duration
	ExportNoteLimit       int
}

// Orchestrator runs full bidirectional passes and single-person pushes. At
// most one full pass runs at a time; per-person mutations are serialized with
// a keyed mutex so a pass and a "sync now" can never interleave on one record.
type Orchestrator struct {
	people   PersonStore
	accounts AccountStore
	logs     LogStore
	reviews  ReviewStore
	archiver Archiver
	detector MergeDetector
	matcher  *matching.Matcher
	sources  SourceResolver
	emitter  *events.Emitter
	locker   *redis.Locker
	caller   *caller
	logger   ectologger.Logger

	lockTTL   time.Duration
	noteLimit int

	mu         gosync.Mutex
	running    bool
	lastResult *models.PassResult

	personLocks keyedMutex
	createMu    gosync.Mutex
}

// NewOrchestrator creates a sync orchestrator. locker may be nil when Redis is
// not configured; pass exclusivity is then process-local only.
func NewOrchestrator(
	people PersonStore,
	accounts AccountStore,
	logs LogStore,
	reviews ReviewStore,
	archiver Archiver,
	detector MergeDetector,
	matcher *matching.Matcher,
	sources SourceResolver,
	emitter *events.Emitter,
	locker *redis.Locker,
	cfg Config,
	logger ectologger.Logger,
) *Orchestrator {
	return &Orchestrator{
		people:    people,
		accounts:  accounts,
		logs:      logs,
		reviews:   reviews,
		archiver:  archiver,
		detector:  detector,
		matcher:   matcher,
		sources:   sources,
		emitter:   emitter,
		locker:    locker,
		caller:    newCaller(cfg.AdapterCallTimeout, cfg.AdapterRetryAttempts, cfg.AdapterRetryBaseDelay),
		logger:    logger,
		lockTTL:   cfg.PassLockTTL,
		noteLimit: cfg.ExportNoteLimit,
	}
}

// Running reports whether a full pass is currently in flight.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// LastResult returns the most recent pass result, if any.
func (o *Orchestrator) LastResult() *models.PassResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastResult
}

// RunFullSync runs one full bidirectional pass: the import phase for every
// sync-enabled account in parallel, then the export phase fanning the full
// person set out to every account. One account failing never aborts the
// others. Returns ErrPassInProgress when a pass is already running.
func (o *Orchestrator) RunFullSync(ctx context.Context, trigger string) (*models.PassResult, error) {
	ctx, span := tracing.StartSpan(ctx, "sync.Orchestrator.RunFullSync")
	defer span.End()

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrPassInProgress
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	if o.locker != nil {
		lock, err := o.locker.Acquire(ctx, passLockKey, o.lockTTL)
		if err != nil {
			if err == redis.ErrLockNotAcquired {
				return nil, ErrPassInProgress
			}
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to acquire sync lock")
		}
		defer lock.Release(ctx)
	}

	start := time.Now().UTC()
	result := &models.PassResult{
		StartedAt: start,
		Phases:    map[string]*models.PhaseResult{},
	}

	o.logger.WithContext(ctx).WithFields(map[string]any{"trigger": trigger}).Info("Starting full sync pass")

	accounts, err := o.accounts.ListSyncEnabled(ctx)
	if err != nil {
		metrics.RecordSyncPass(trigger, "failed", time.Since(start).Seconds())
		return nil, err
	}

	for _, acct := range accounts {
		result.Phases[models.PhaseKey(models.DirectionExternalToLocal, acct.ID)] = &models.PhaseResult{
			AccountID: acct.ID,
			Direction: models.DirectionExternalToLocal,
		}
		result.Phases[models.PhaseKey(models.DirectionLocalToExternal, acct.ID)] = &models.PhaseResult{
			AccountID: acct.ID,
			Direction: models.DirectionLocalToExternal,
		}
	}

	// Import phase: all accounts in parallel; must fully complete before
	// export, which reads the post-import person set.
	var wg gosync.WaitGroup
	for _, acct := range accounts {
		wg.Add(1)
		go func(acct *models.ExternalAccount) {
			defer wg.Done()
			phase := result.Phases[models.PhaseKey(models.DirectionExternalToLocal, acct.ID)]
			o.importAccount(ctx, acct, phase)
		}(acct)
	}
	wg.Wait()

	// Export phase: full person set fanned out to every account in parallel.
	state := newPassState()
	for _, acct := range accounts {
		wg.Add(1)
		go func(acct *models.ExternalAccount) {
			defer wg.Done()
			phase := result.Phases[models.PhaseKey(models.DirectionLocalToExternal, acct.ID)]
			o.exportAccount(ctx, acct, phase, state)
		}(acct)
	}
	wg.Wait()

	o.finalizePersonStatuses(ctx, state)

	now := time.Now().UTC()
	for _, acct := range accounts {
		if err := o.accounts.SetSyncTimes(ctx, acct.ID, &now, nil); err != nil {
			o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"account_id": acct.ID}).Warn("Failed to record account sync time")
		}
	}

	result.FinishedAt = now
	result.Partial = ctx.Err() != nil

	outcome := "success"
	if result.Partial {
		outcome = "partial"
	} else if result.TotalErrors() > 0 {
		outcome = "completed_with_errors"
	}
	metrics.RecordSyncPass(trigger, outcome, time.Since(start).Seconds())

	o.mu.Lock()
	o.lastResult = result
	o.mu.Unlock()

	_ = o.emitter.EmitPassCompleted(ctx, result)

	o.logger.WithContext(ctx).WithFields(map[string]any{
		"trigger":  trigger,
		"outcome":  outcome,
		"duration": time.Since(start).String(),
		"errors":   result.TotalErrors(),
	}).Info("Finished full sync pass")

	return result, nil
}

// SyncPerson pushes one person to every sync-enabled account. Rejected while a
// full pass is running; fails with not found for unknown ids.
func (o *Orchestrator) SyncPerson(ctx context.Context, personID string) (*models.PassResult, error) {
	ctx, span := tracing.StartSpan(ctx, "sync.Orchestrator.SyncPerson")
	defer span.End()

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrPassInProgress
	}
	o.mu.Unlock()

	person, err := o.people.GetByID(ctx, personID)
	if err != nil {
		return nil, err
	}
	if !person.SyncEnabled {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("person %s is not sync-enabled", personID))
	}

	accounts, err := o.accounts.ListSyncEnabled(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now().UTC()
	result := &models.PassResult{
		StartedAt: start,
		Phases:    map[string]*models.PhaseResult{},
	}

	unlock := o.personLocks.lock(personID)
	defer unlock()

	failed := false
	for _, acct := range accounts {
		phase := &models.PhaseResult{AccountID: acct.ID, Direction: models.DirectionLocalToExternal}
		result.Phases[models.PhaseKey(models.DirectionLocalToExternal, acct.ID)] = phase

		src, err := o.sources.SourceFor(acct)
		if err != nil {
			phase.Errors = append(phase.Errors, err.Error())
			failed = true
			continue
		}
		if !o.exportPerson(ctx, src, acct, person, phase, true) {
			failed = true
		}
	}

	now := time.Now().UTC()
	if failed {
		_ = o.people.SetSyncStatus(ctx, person.ID, models.SyncStatusError, nil)
	} else {
		_ = o.people.SetSyncStatus(ctx, person.ID, models.SyncStatusSynced, &now)
	}

	result.FinishedAt = now
	return result, nil
}

// DeletePerson archives the person, deletes the local record, then propagates
// the delete to every account holding a mapping. Archive-then-delete ordering
// is unconditional; a failed external delete is logged and surfaced but the
// local deletion stands.
func (o *Orchestrator) DeletePerson(ctx context.Context, personID string) (*models.ArchivedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "sync.Orchestrator.DeletePerson")
	defer span.End()

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrPassInProgress
	}
	o.mu.Unlock()

	unlock := o.personLocks.lock(personID)
	defer unlock()

	person, err := o.people.GetByID(ctx, personID)
	if err != nil {
		return nil, err
	}

	arch, err := o.archiver.Archive(ctx, person, models.DeletedFromLocal, nil)
	if err != nil {
		return nil, err
	}

	// A mapping on a disabled account still points at a live external copy, so
	// the delete fans out over every account, not just the sync-enabled ones.
	accounts, err := o.accounts.List(ctx)
	if err != nil {
		return arch, err
	}

	for _, acct := range accounts {
		resourceID, ok := person.ResourceID(acct.ID)
		if !ok {
			continue
		}
		src, err := o.sources.SourceFor(acct)
		if err != nil {
			o.appendLog(ctx, &person.ID, &acct.ID, models.DirectionLocalToExternal, models.ActionDelete, models.SyncLogStatusFailed, nil, err)
			continue
		}

		err = o.caller.delete(ctx, src, resourceID)
		if err != nil && contacts.IsPermanent(err) {
			// Already gone on the external side; the goal state holds.
			err = nil
		}
		status := models.SyncLogStatusSuccess
		if err != nil {
			status = models.SyncLogStatusFailed
		}
		o.appendLog(ctx, &person.ID, &acct.ID, models.DirectionLocalToExternal, models.ActionDelete, status, map[string]any{"resource_id": resourceID}, err)
		metrics.RecordSyncOperation(string(models.DirectionLocalToExternal), string(models.ActionDelete), string(status))
	}

	return arch, nil
}

// importAccount pulls the account's external records and applies them to the
// local person set. Errors are collected on the phase, never propagated.
func (o *Orchestrator) importAccount(ctx context.Context, acct *models.ExternalAccount, phase *models.PhaseResult) {
	ctx, span := tracing.StartSpan(ctx, "sync.Orchestrator.importAccount")
	defer span.End()

	src, err := o.sources.SourceFor(acct)
	if err != nil {
		phase.Errors = append(phase.Errors, err.Error())
		return
	}

	records, err := o.caller.list(ctx, src)
	if err != nil {
		phase.Errors = append(phase.Errors, fmt.Sprintf("list contacts: %v", err))
		return
	}

	people, err := o.people.ListSyncEnabled(ctx)
	if err != nil {
		phase.Errors = append(phase.Errors, err.Error())
		return
	}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if ctx.Err() != nil {
			phase.Errors = append(phase.Errors, "pass canceled")
			return
		}
		seen[rec.ResourceID] = true
		o.importRecord(ctx, acct, people, rec, phase)
	}

	// A person mapped to this account whose resource id vanished from the
	// listing was deleted externally: archive and remove locally.
	for _, p := range people {
		resourceID, ok := p.ResourceID(acct.ID)
		if !ok || seen[resourceID] {
			continue
		}
		unlock := o.personLocks.lock(p.ID)
		current, err := o.people.GetByID(ctx, p.ID)
		if err != nil {
			unlock()
			continue
		}
		if _, err := o.archiver.Archive(ctx, current, models.DeletedFromExternal, &acct.ID); err != nil {
			phase.Errors = append(phase.Errors, fmt.Sprintf("archive %s: %v", p.ID, err))
			unlock()
			continue
		}
		unlock()
		phase.Archived++
		metrics.RecordSyncOperation(string(models.DirectionExternalToLocal), string(models.ActionArchive), string(models.SyncLogStatusSuccess))
	}
}

// importRecord matches one external record and creates or updates the local
// person accordingly.
func (o *Orchestrator) importRecord(ctx context.Context, acct *models.ExternalAccount, people []*models.Person, rec contacts.Record, phase *models.PhaseResult) {
	matched, _ := o.matcher.Match(people, acct.ID, rec)

	if matched == nil {
		// Serialize creations so two accounts importing the same new contact
		// in one pass cannot both create it.
		o.createMu.Lock()
		defer o.createMu.Unlock()

		fresh, err := o.people.ListSyncEnabled(ctx)
		if err == nil {
			matched, _ = o.matcher.Match(fresh, acct.ID, rec)
		}
		if matched == nil {
			o.createFromRecord(ctx, acct, rec, phase)
			return
		}
	}

	unlock := o.personLocks.lock(matched.ID)
	defer unlock()

	person, err := o.people.GetByID(ctx, matched.ID)
	if err != nil {
		phase.Errors = append(phase.Errors, err.Error())
		return
	}

	// The person may have gained a mapping for this account between matching
	// and locking. Never overwrite it; the record is created on a later pass.
	if id, ok := person.ResourceID(acct.ID); ok && id != rec.ResourceID {
		return
	}

	res := o.detector.Merge(person, rec, acct.ID, acct.Label)

	mappingAdded := false
	if id, ok := person.ResourceID(acct.ID); !ok || id != rec.ResourceID {
		person.SetResourceID(acct.ID, rec.ResourceID)
		mappingAdded = true
	}

	for _, item := range res.Reviews {
		if _, err := o.reviews.Create(ctx, item); err != nil {
			phase.Errors = append(phase.Errors, err.Error())
			continue
		}
		phase.Conflicts++
		metrics.RecordConflictFlagged(string(item.Type))
		_ = o.emitter.EmitConflictFlagged(ctx, item)
	}
	if len(res.Reviews) > 0 {
		fields := map[string]any{"conflicts": len(res.Reviews)}
		o.appendLog(ctx, &person.ID, &acct.ID, models.DirectionExternalToLocal, models.ActionUpdate, models.SyncLogStatusPendingReview, fields, nil)
	}

	if !res.HasChanges() && !mappingAdded {
		return
	}

	// Log first so a crash between the two writes never leaves an unlogged
	// mutation.
	o.appendLog(ctx, &person.ID, &acct.ID, models.DirectionExternalToLocal, models.ActionUpdate, models.SyncLogStatusSuccess, res.Changed, nil)

	if res.HasChanges() {
		// Changed locally; export must push it to the other accounts.
		person.SyncStatus = models.SyncStatusPending
	}
	if err := o.people.Update(ctx, person); err != nil {
		phase.Errors = append(phase.Errors, err.Error())
		metrics.RecordSyncOperation(string(models.DirectionExternalToLocal), string(models.ActionUpdate), string(models.SyncLogStatusFailed))
		return
	}

	phase.Updated++
	metrics.RecordSyncOperation(string(models.DirectionExternalToLocal), string(models.ActionUpdate), string(models.SyncLogStatusSuccess))
	_ = o.emitter.EmitPersonSynced(ctx, person.ID, acct.ID, models.DirectionExternalToLocal, models.ActionUpdate)
}

// createFromRecord creates a new local person from an unmatched external
// record.
func (o *Orchestrator) createFromRecord(ctx context.Context, acct *models.ExternalAccount, rec contacts.Record, phase *models.PhaseResult) {
	person := &models.Person{
		FullName:    rec.FullName,
		Title:       rec.Title,
		Birthday:    rec.Birthday,
		Location:    rec.Location,
		Notes:       rec.Notes,
		Emails:      database.JSONB[[]models.EmailAddress]{Data: rec.Emails},
		Phones:      database.JSONB[[]string]{Data: rec.Phones},
		SyncEnabled: true,
		SyncStatus:  models.SyncStatusPending,
	}
	person.SetResourceID(acct.ID, rec.ResourceID)

	created, err := o.people.Create(ctx, person)
	if err != nil {
		phase.Errors = append(phase.Errors, err.Error())
		metrics.RecordSyncOperation(string(models.DirectionExternalToLocal), string(models.ActionCreate), string(models.SyncLogStatusFailed))
		return
	}

	fields := map[string]any{"full_name": rec.FullName, "resource_id": rec.ResourceID}
	o.appendLog(ctx, &created.ID, &acct.ID, models.DirectionExternalToLocal, models.ActionCreate, models.SyncLogStatusSuccess, fields, nil)

	phase.Created++
	metrics.RecordSyncOperation(string(models.DirectionExternalToLocal), string(models.ActionCreate), string(models.SyncLogStatusSuccess))
	_ = o.emitter.EmitPersonSynced(ctx, created.ID, acct.ID, models.DirectionExternalToLocal, models.ActionCreate)
}

// exportAccount fans the full sync-enabled person set out to one account.
func (o *Orchestrator) exportAccount(ctx context.Context, acct *models.ExternalAccount, phase *models.PhaseResult, state *passState) {
	ctx, span := tracing.StartSpan(ctx, "sync.Orchestrator.exportAccount")
	defer span.End()

	src, err := o.sources.SourceFor(acct)
	if err != nil {
		phase.Errors = append(phase.Errors, err.Error())
		return
	}

	people, err := o.people.ListSyncEnabled(ctx)
	if err != nil {
		phase.Errors = append(phase.Errors, err.Error())
		return
	}

	for _, p := range people {
		if ctx.Err() != nil {
			phase.Errors = append(phase.Errors, "pass canceled")
			return
		}

		unlock := o.personLocks.lock(p.ID)
		person, err := o.people.GetByID(ctx, p.ID)
		if err != nil {
			unlock()
			continue
		}
		ok := o.exportPerson(ctx, src, acct, person, phase, false)
		unlock()

		state.mark(p.ID, !ok)
	}
}

// exportPerson pushes one person to one account: create when unmapped,
// update when mapped and changed since the last sync. force skips the
// changed-since check. Reports whether the person is in the exported state for
// this account afterwards.
func (o *Orchestrator) exportPerson(ctx context.Context, src contacts.Source, acct *models.ExternalAccount, person *models.Person, phase *models.PhaseResult, force bool) bool {
	rec := o.recordFor(person)

	resourceID, mapped := person.ResourceID(acct.ID)
	if mapped {
		if !force && !o.needsExport(person) {
			return true
		}

		err := o.caller.update(ctx, src, resourceID, rec)
		status := models.SyncLogStatusSuccess
		if err != nil {
			status = models.SyncLogStatusFailed
			phase.Errors = append(phase.Errors, fmt.Sprintf("update %s: %v", person.ID, err))
		}
		o.appendLog(ctx, &person.ID, &acct.ID, models.DirectionLocalToExternal, models.ActionUpdate, status, map[string]any{"resource_id": resourceID}, err)
		metrics.RecordSyncOperation(string(models.DirectionLocalToExternal), string(models.ActionUpdate), string(status))
		if err != nil {
			return false
		}

		phase.Updated++
		_ = o.emitter.EmitPersonSynced(ctx, person.ID, acct.ID, models.DirectionLocalToExternal, models.ActionUpdate)
		return true
	}

	// Check-before-create: only an unmapped person is created externally.
	newID, err := o.caller.create(ctx, src, rec)
	status := models.SyncLogStatusSuccess
	if err != nil {
		status = models.SyncLogStatusFailed
		phase.Errors = append(phase.Errors, fmt.Sprintf("create %s: %v", person.ID, err))
	}
	o.appendLog(ctx, &person.ID, &acct.ID, models.DirectionLocalToExternal, models.ActionCreate, status, map[string]any{"resource_id": newID}, err)
	metrics.RecordSyncOperation(string(models.DirectionLocalToExternal), string(models.ActionCreate), string(status))
	if err != nil {
		return false
	}

	person.SetResourceID(acct.ID, newID)
	if err := o.people.Update(ctx, person); err != nil {
		phase.Errors = append(phase.Errors, fmt.Sprintf("store mapping %s: %v", person.ID, err))
		return false
	}

	phase.Created++
	_ = o.emitter.EmitPersonSynced(ctx, person.ID, acct.ID, models.DirectionLocalToExternal, models.ActionCreate)
	return true
}

// needsExport reports whether the person changed since it was last marked
// synced.
func (o *Orchestrator) needsExport(p *models.Person) bool {
	if p.SyncStatus != models.SyncStatusSynced || p.LastSyncedAt == nil {
		return true
	}
	return p.UpdatedAt.After(*p.LastSyncedAt)
}

// finalizePersonStatuses settles sync_status for every person touched by the
// export phase.
func (o *Orchestrator) finalizePersonStatuses(ctx context.Context, state *passState) {
	now := time.Now().UTC()
	for id, failed := range state.snapshot() {
		if failed {
			_ = o.people.SetSyncStatus(ctx, id, models.SyncStatusError, nil)
			continue
		}
		_ = o.people.SetSyncStatus(ctx, id, models.SyncStatusSynced, &now)
	}
}

func (o *Orchestrator) recordFor(p *models.Person) contacts.Record {
	return contacts.Record{
		FullName: p.FullName,
		Title:    p.Title,
		Birthday: p.Birthday,
		Location: p.Location,
		Notes:    merging.TruncateForExport(p.Notes, o.noteLimit),
		Emails:   p.Emails.Data,
		Phones:   p.Phones.Data,
	}
}

func (o *Orchestrator) appendLog(ctx context.Context, personID, accountID *string, direction models.SyncDirection, action models.SyncAction, status models.SyncLogStatus, fields map[string]any, cause error) {
	entry := &models.SyncLogEntry{
		PersonID:  personID,
		AccountID: accountID,
		Direction: direction,
		Action:    action,
		Status:    status,
		Fields:    database.JSONB[map[string]any]{Data: fields},
	}
	if cause != nil {
		msg := cause.Error()
		entry.Error = &msg
	}
	if err := o.logs.Append(ctx, entry); err != nil {
		o.logger.WithContext(ctx).WithError(err).Error("Failed to append sync log entry")
	}
}

// passState tracks per-person export outcomes across parallel account
// goroutines. A person failing on any account ends the pass in error status.
type passState struct {
	mu     gosync.Mutex
	failed map[string]bool
}

func newPassState() *passState {
	return &passState{failed: map[string]bool{}}
}

func (s *passState) mark(personID string, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if failed {
		s.failed[personID] = true
		return
	}
	if _, ok := s.failed[personID]; !ok {
		s.failed[personID] = false
	}
}

func (s *passState) snapshot() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.failed))
	for k, v := range s.failed {
		out[k] = v
	}
	return out
}

// keyedMutex serializes work per person id. Entries are reference-counted and
// dropped once the last holder unlocks, so the map never outgrows the set of
// persons currently being worked on.
type keyedMutex struct {
	mu    gosync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   gosync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*keyedLock{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
