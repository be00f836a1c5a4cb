package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	gosync "sync"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perunhq/blackbook-sync/pkg/conflict"
	"github.com/perunhq/blackbook-sync/pkg/contacts"
	"github.com/perunhq/blackbook-sync/pkg/contacts/memory"
	"github.com/perunhq/blackbook-sync/pkg/events"
	"github.com/perunhq/blackbook-sync/pkg/matching"
	"github.com/perunhq/blackbook-sync/pkg/models"
	"github.com/perunhq/blackbook-sync/pkg/nicknames"
)

type fakePeople struct {
	mu     gosync.Mutex
	people map[string]*models.Person
}

func newFakePeople() *fakePeople {
	return &fakePeople{people: map[string]*models.Person{}}
}

func clonePerson(p *models.Person) *models.Person {
	cp := *p
	if p.ExternalContactIDs.Data != nil {
		ids := make(map[string]string, len(p.ExternalContactIDs.Data))
		for k, v := range p.ExternalContactIDs.Data {
			ids[k] = v
		}
		cp.ExternalContactIDs.Data = ids
	}
	cp.Emails.Data = append([]models.EmailAddress(nil), p.Emails.Data...)
	cp.Phones.Data = append([]string(nil), p.Phones.Data...)
	return &cp
}

func (f *fakePeople) Create(ctx context.Context, p *models.Person) (*models.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	f.people[p.ID] = clonePerson(p)
	return clonePerson(p), nil
}

func (f *fakePeople) GetByID(ctx context.Context, id string) (*models.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.people[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
	}
	return clonePerson(p), nil
}

func (f *fakePeople) Update(ctx context.Context, p *models.Person) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.people[p.ID]; !ok {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", p.ID))
	}
	p.UpdatedAt = time.Now().UTC()
	f.people[p.ID] = clonePerson(p)
	return nil
}

func (f *fakePeople) ListSyncEnabled(ctx context.Context) ([]*models.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Person{}
	for _, p := range f.people {
		if p.SyncEnabled {
			out = append(out, clonePerson(p))
		}
	}
	return out, nil
}

func (f *fakePeople) SetSyncStatus(ctx context.Context, id string, status models.SyncStatus, lastSyncedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.people[id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
	}
	p.SyncStatus = status
	p.LastSyncedAt = lastSyncedAt
	return nil
}

func (f *fakePeople) delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.people, id)
}

func (f *fakePeople) get(t *testing.T, id string) *models.Person {
	t.Helper()
	p, err := f.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fakePeople) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.people)
}

type fakeAccounts struct {
	mu       gosync.Mutex
	accounts []*models.ExternalAccount
	syncedAt map[string]*time.Time
}

func (f *fakeAccounts) List(ctx context.Context) ([]*models.ExternalAccount, error) {
	return f.accounts, nil
}

func (f *fakeAccounts) ListSyncEnabled(ctx context.Context) ([]*models.ExternalAccount, error) {
	var enabled []*models.ExternalAccount
	for _, a := range f.accounts {
		if a.SyncEnabled {
			enabled = append(enabled, a)
		}
	}
	return enabled, nil
}

func (f *fakeAccounts) SetSyncTimes(ctx context.Context, id string, lastSyncAt, nextSyncAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncedAt == nil {
		f.syncedAt = map[string]*time.Time{}
	}
	f.syncedAt[id] = lastSyncAt
	return nil
}

type fakeLogs struct {
	mu      gosync.Mutex
	entries []*models.SyncLogEntry
}

func (f *fakeLogs) Append(ctx context.Context, entry *models.SyncLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogs) byAction(action models.SyncAction) []*models.SyncLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.SyncLogEntry{}
	for _, e := range f.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeReviews struct {
	mu    gosync.Mutex
	items []*models.ReviewItem
}

func (f *fakeReviews) Create(ctx context.Context, item *models.ReviewItem) (*models.ReviewItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return item, nil
}

// fakeArchiver mirrors the real manager's archive-then-delete contract against
// the fake person store.
type fakeArchiver struct {
	mu      gosync.Mutex
	people  *fakePeople
	entries []*models.ArchivedPerson
}

func (f *fakeArchiver) Archive(ctx context.Context, person *models.Person, deletedFrom string, accountID *string) (*models.ArchivedPerson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	arch := &models.ArchivedPerson{
		ID:          uuid.New().String(),
		PersonID:    person.ID,
		DeletedFrom: deletedFrom,
		AccountID:   accountID,
	}
	f.entries = append(f.entries, arch)
	f.people.delete(person.ID)
	return arch, nil
}

type harness struct {
	orch     *Orchestrator
	people   *fakePeople
	accounts *fakeAccounts
	logs     *fakeLogs
	reviews  *fakeReviews
	archiver *fakeArchiver
	sources  map[string]*memory.Source
}

func newHarness(t *testing.T, accountIDs ...string) *harness {
	t.Helper()

	people := newFakePeople()
	logs := &fakeLogs{}
	reviews := &fakeReviews{}
	archiver := &fakeArchiver{people: people}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	sources := map[string]*memory.Source{}
	accounts := &fakeAccounts{}
	registry := contacts.NewRegistry()
	registry.Register("memory", func(account *models.ExternalAccount) (contacts.Source, error) {
		src, ok := sources[account.ID]
		if !ok {
			return nil, fmt.Errorf("no source for account %s", account.ID)
		}
		return src, nil
	})

	for _, id := range accountIDs {
		sources[id] = memory.New()
		accounts.accounts = append(accounts.accounts, &models.ExternalAccount{
			ID:          id,
			Provider:    "memory",
			Label:       "Account " + id,
			SyncEnabled: true,
		})
	}

	matcher := matching.NewMatcher(nicknames.DefaultIndex())
	orch := NewOrchestrator(
		people, accounts, logs, reviews, archiver,
		conflict.NewDetector(matcher), matcher, registry,
		events.NewEmitter(nil, logger), nil,
		Config{
			AdapterCallTimeout:    time.Second,
			AdapterRetryAttempts:  2,
			AdapterRetryBaseDelay: time.Millisecond,
		},
		logger,
	)

	return &harness{
		orch:     orch,
		people:   people,
		accounts: accounts,
		logs:     logs,
		reviews:  reviews,
		archiver: archiver,
		sources:  sources,
	}
}

func (h *harness) addPerson(t *testing.T, p *models.Person) *models.Person {
	t.Helper()
	p.SyncEnabled = true
	if p.SyncStatus == "" {
		p.SyncStatus = models.SyncStatusPending
	}
	created, err := h.people.Create(context.Background(), p)
	require.NoError(t, err)
	return created
}

func TestRunFullSyncMappingCompleteness(t *testing.T) {
	h := newHarness(t, "a", "b")
	h.sources["a"].Seed(contacts.Record{ResourceID: "res-ada", FullName: "Ada Lovelace"})

	result, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Zero(t, result.TotalErrors())
	assert.False(t, result.Partial)

	// The record imported from account a exists locally and was created on b.
	require.Equal(t, 1, h.people.count())
	people, err := h.people.ListSyncEnabled(context.Background())
	require.NoError(t, err)
	person := people[0]

	idA, ok := person.ResourceID("a")
	require.True(t, ok)
	assert.Equal(t, "res-ada", idA)
	idB, ok := person.ResourceID("b")
	require.True(t, ok)
	_, found := h.sources["b"].Get(idB)
	assert.True(t, found)

	assert.Equal(t, models.SyncStatusSynced, person.SyncStatus)
	require.NotNil(t, person.LastSyncedAt)

	importPhase := result.Phases[models.PhaseKey(models.DirectionExternalToLocal, "a")]
	assert.Equal(t, 1, importPhase.Created)
	exportPhase := result.Phases[models.PhaseKey(models.DirectionLocalToExternal, "b")]
	assert.Equal(t, 1, exportPhase.Created)
}

func TestRunFullSyncSecondPassIsIdempotent(t *testing.T) {
	h := newHarness(t, "a", "b")
	h.sources["a"].Seed(contacts.Record{ResourceID: "res-1", FullName: "Grace Hopper", Notes: "compiler pioneer"})

	_, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	require.NoError(t, err)

	createsA := h.sources["a"].Calls("create")
	createsB := h.sources["b"].Calls("create")
	updatesB := h.sources["b"].Calls("update")
	people, err := h.people.ListSyncEnabled(context.Background())
	require.NoError(t, err)
	notesAfterFirst := people[0].Notes

	result, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Zero(t, result.TotalErrors())

	// Nothing changed between passes: no new external creates or updates, and
	// no duplicate local person.
	assert.Equal(t, createsA, h.sources["a"].Calls("create"))
	assert.Equal(t, createsB, h.sources["b"].Calls("create"))
	assert.Equal(t, updatesB, h.sources["b"].Calls("update"))
	assert.Equal(t, 1, h.people.count())

	// The exported note comes back on the next import; it must not re-merge.
	people, err = h.people.ListSyncEnabled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notesAfterFirst, people[0].Notes)
}

func TestRunFullSyncAccountFailureIsolation(t *testing.T) {
	h := newHarness(t, "a", "b", "c", "d")
	for _, id := range []string{"a", "b", "c"} {
		h.sources[id].Seed(contacts.Record{ResourceID: "res-" + id, FullName: "Contact " + id})
	}
	h.sources["d"].FailWith("list", contacts.Permanent("list", errors.New("auth revoked")))
	h.sources["d"].FailWith("create", contacts.Permanent("create", errors.New("auth revoked")))

	result, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	require.NoError(t, err)

	// The three healthy accounts imported cleanly.
	for _, id := range []string{"a", "b", "c"} {
		phase := result.Phases[models.PhaseKey(models.DirectionExternalToLocal, id)]
		assert.Empty(t, phase.Errors, "account %s", id)
		assert.Equal(t, 1, phase.Created, "account %s", id)
	}
	assert.Equal(t, 3, h.people.count())

	// The failed account carries its errors without aborting the pass.
	failedImport := result.Phases[models.PhaseKey(models.DirectionExternalToLocal, "d")]
	assert.NotEmpty(t, failedImport.Errors)
	failedExport := result.Phases[models.PhaseKey(models.DirectionLocalToExternal, "d")]
	assert.NotEmpty(t, failedExport.Errors)

	// Every person failed on account d, so all end the pass in error status.
	people, err := h.people.ListSyncEnabled(context.Background())
	require.NoError(t, err)
	for _, p := range people {
		assert.Equal(t, models.SyncStatusError, p.SyncStatus)
	}
}

func TestRunFullSyncPersonFailureIsolation(t *testing.T) {
	h := newHarness(t, "a")

	names := []string{"Ada Lovelace", "Grace Hopper", "Alan Turing", "Edsger Dijkstra"}
	ids := make(map[string]string, len(names))
	for _, name := range names {
		resID := h.sources["a"].Seed(contacts.Record{FullName: name})
		person := h.addPerson(t, &models.Person{FullName: name})
		person.SetResourceID("a", resID)
		require.NoError(t, h.people.Update(context.Background(), person))
		ids[name] = person.ID
	}
	failedResID, _ := h.people.get(t, ids["Grace Hopper"]).ResourceID("a")
	h.sources["a"].FailResourceWith("update", failedResID, contacts.Permanent("update", errors.New("payload rejected")))

	result, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	require.NoError(t, err)

	// Only the rejected person fails; the other three on the same account
	// finish clean.
	exportPhase := result.Phases[models.PhaseKey(models.DirectionLocalToExternal, "a")]
	assert.Len(t, exportPhase.Errors, 1)
	assert.Equal(t, 3, exportPhase.Updated)

	for name, id := range ids {
		p := h.people.get(t, id)
		if name == "Grace Hopper" {
			assert.Equal(t, models.SyncStatusError, p.SyncStatus)
			continue
		}
		assert.Equal(t, models.SyncStatusSynced, p.SyncStatus, name)
	}

	var failedLogs int
	for _, e := range h.logs.byAction(models.ActionUpdate) {
		if e.Status == models.SyncLogStatusFailed {
			failedLogs++
			require.NotNil(t, e.PersonID)
			assert.Equal(t, ids["Grace Hopper"], *e.PersonID)
		}
	}
	assert.Equal(t, 1, failedLogs)
}

func TestRunFullSyncArchivesExternallyDeleted(t *testing.T) {
	h := newHarness(t, "a")
	person := h.addPerson(t, &models.Person{
		FullName:   "Alan Turing",
		SyncStatus: models.SyncStatusSynced,
	})
	person.SetResourceID("a", "res-gone")
	require.NoError(t, h.people.Update(context.Background(), person))

	result, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	require.NoError(t, err)

	phase := result.Phases[models.PhaseKey(models.DirectionExternalToLocal, "a")]
	assert.Equal(t, 1, phase.Archived)
	assert.Equal(t, 0, h.people.count())

	require.Len(t, h.archiver.entries, 1)
	arch := h.archiver.entries[0]
	assert.Equal(t, person.ID, arch.PersonID)
	assert.Equal(t, models.DeletedFromExternal, arch.DeletedFrom)
	require.NotNil(t, arch.AccountID)
	assert.Equal(t, "a", *arch.AccountID)
}

func TestRunFullSyncDuplicateAcrossAccountsCreatesOnePerson(t *testing.T) {
	h := newHarness(t, "a", "b")
	h.sources["a"].Seed(contacts.Record{ResourceID: "a-1", FullName: "Bob Smith"})
	h.sources["b"].Seed(contacts.Record{ResourceID: "b-1", FullName: "Robert Smith"})

	_, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	require.NoError(t, err)

	// Nickname-equivalent records from two accounts collapse into one person
	// mapped to both.
	require.Equal(t, 1, h.people.count())
	people, err := h.people.ListSyncEnabled(context.Background())
	require.NoError(t, err)
	_, okA := people[0].ResourceID("a")
	_, okB := people[0].ResourceID("b")
	assert.True(t, okA)
	assert.True(t, okB)
}

func TestRunFullSyncNeverOverwritesExistingMapping(t *testing.T) {
	h := newHarness(t, "a")
	person := h.addPerson(t, &models.Person{FullName: "Robert Smith", SyncStatus: models.SyncStatusSynced})
	person.SetResourceID("a", "res-1")
	require.NoError(t, h.people.Update(context.Background(), person))

	// The account holds the mapped contact plus a second, same-name contact
	// under its own resource id.
	h.sources["a"].Seed(contacts.Record{ResourceID: "res-1", FullName: "Robert Smith"})
	h.sources["a"].Seed(contacts.Record{ResourceID: "res-2", FullName: "Bob Smith"})

	_, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	require.NoError(t, err)

	// The original mapping is intact and the second record became a new
	// person instead of stealing it.
	require.Equal(t, 2, h.people.count())
	id, ok := h.people.get(t, person.ID).ResourceID("a")
	require.True(t, ok)
	assert.Equal(t, "res-1", id)

	people, err := h.people.ListSyncEnabled(context.Background())
	require.NoError(t, err)
	for _, p := range people {
		if p.ID == person.ID {
			continue
		}
		newID, ok := p.ResourceID("a")
		require.True(t, ok)
		assert.Equal(t, "res-2", newID)
	}
}

func TestRunFullSyncFlagsConflicts(t *testing.T) {
	h := newHarness(t, "a")
	person := h.addPerson(t, &models.Person{FullName: "Robert Smith", Title: "Engineer"})
	person.SetResourceID("a", "res-1")
	require.NoError(t, h.people.Update(context.Background(), person))
	h.sources["a"].Seed(contacts.Record{ResourceID: "res-1", FullName: "Robert Smith", Title: "Manager"})

	result, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	require.NoError(t, err)

	phase := result.Phases[models.PhaseKey(models.DirectionExternalToLocal, "a")]
	assert.Equal(t, 1, phase.Conflicts)
	require.Len(t, h.reviews.items, 1)
	assert.Equal(t, models.ReviewTypeDataConflict, h.reviews.items[0].Type)
	assert.Equal(t, "title", h.reviews.items[0].Field)

	// The local value stands until the review is resolved.
	assert.Equal(t, "Engineer", h.people.get(t, person.ID).Title)

	pending := h.logs.byAction(models.ActionUpdate)
	var flagged bool
	for _, e := range pending {
		if e.Status == models.SyncLogStatusPendingReview {
			flagged = true
		}
	}
	assert.True(t, flagged)
}

func TestRunFullSyncRejectedWhileRunning(t *testing.T) {
	h := newHarness(t, "a")
	h.orch.mu.Lock()
	h.orch.running = true
	h.orch.mu.Unlock()

	_, err := h.orch.RunFullSync(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, ErrPassInProgress)

	_, err = h.orch.SyncPerson(context.Background(), "any")
	assert.ErrorIs(t, err, ErrPassInProgress)

	_, err = h.orch.DeletePerson(context.Background(), "any")
	assert.ErrorIs(t, err, ErrPassInProgress)
}

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes holders of the same key", func(t *testing.T) {
		var km keyedMutex
		var inCritical, maxConcurrent int
		var mu gosync.Mutex
		var wg gosync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := km.lock("p1")
				defer unlock()

				mu.Lock()
				inCritical++
				if inCritical > maxConcurrent {
					maxConcurrent = inCritical
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inCritical--
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, maxConcurrent)
	})

	t.Run("entries are dropped after the last unlock", func(t *testing.T) {
		var km keyedMutex
		unlockA := km.lock("p1")
		unlockB := km.lock("p2")
		unlockA()
		unlockB()

		km.mu.Lock()
		defer km.mu.Unlock()
		assert.Empty(t, km.locks)
	})
}

func TestSyncPerson(t *testing.T) {
	t.Run("unknown person", func(t *testing.T) {
		h := newHarness(t, "a")
		_, err := h.orch.SyncPerson(context.Background(), "nope")
		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("sync disabled person rejected", func(t *testing.T) {
		h := newHarness(t, "a")
		p := &models.Person{FullName: "Opted Out", SyncStatus: models.SyncStatusPending}
		created, err := h.people.Create(context.Background(), p)
		require.NoError(t, err)

		_, err = h.orch.SyncPerson(context.Background(), created.ID)
		require.Error(t, err)
		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})

	t.Run("pushes to every account", func(t *testing.T) {
		h := newHarness(t, "a", "b")
		person := h.addPerson(t, &models.Person{FullName: "Ada Lovelace"})

		result, err := h.orch.SyncPerson(context.Background(), person.ID)
		require.NoError(t, err)
		assert.Zero(t, result.TotalErrors())

		assert.Equal(t, 1, h.sources["a"].Len())
		assert.Equal(t, 1, h.sources["b"].Len())
		assert.Equal(t, models.SyncStatusSynced, h.people.get(t, person.ID).SyncStatus)
	})

	t.Run("failure demotes status", func(t *testing.T) {
		h := newHarness(t, "a")
		person := h.addPerson(t, &models.Person{FullName: "Ada Lovelace"})
		h.sources["a"].FailWith("create", contacts.Permanent("create", errors.New("quota exceeded")))

		result, err := h.orch.SyncPerson(context.Background(), person.ID)
		require.NoError(t, err)
		assert.NotZero(t, result.TotalErrors())
		assert.Equal(t, models.SyncStatusError, h.people.get(t, person.ID).SyncStatus)
	})
}

func TestDeletePerson(t *testing.T) {
	h := newHarness(t, "a", "b")
	person := h.addPerson(t, &models.Person{FullName: "Alan Turing"})
	resID := h.sources["a"].Seed(contacts.Record{FullName: "Alan Turing"})
	person.SetResourceID("a", resID)
	// Mapping on b points at a resource that no longer exists externally.
	person.SetResourceID("b", "b-gone")
	require.NoError(t, h.people.Update(context.Background(), person))

	arch, err := h.orch.DeletePerson(context.Background(), person.ID)
	require.NoError(t, err)
	require.NotNil(t, arch)
	assert.Equal(t, models.DeletedFromLocal, arch.DeletedFrom)
	assert.Nil(t, arch.AccountID)

	// Local record gone, external copy on a removed, the already-missing copy
	// on b treated as done.
	assert.Equal(t, 0, h.people.count())
	assert.Equal(t, 0, h.sources["a"].Len())

	deletes := h.logs.byAction(models.ActionDelete)
	require.Len(t, deletes, 2)
	for _, e := range deletes {
		assert.Equal(t, models.SyncLogStatusSuccess, e.Status)
		assert.Equal(t, models.DirectionLocalToExternal, e.Direction)
	}
}

func TestDeletePersonReachesDisabledAccounts(t *testing.T) {
	h := newHarness(t, "a", "b")
	h.accounts.accounts[1].SyncEnabled = false

	person := h.addPerson(t, &models.Person{FullName: "Alan Turing"})
	resA := h.sources["a"].Seed(contacts.Record{FullName: "Alan Turing"})
	resB := h.sources["b"].Seed(contacts.Record{FullName: "Alan Turing"})
	person.SetResourceID("a", resA)
	person.SetResourceID("b", resB)
	require.NoError(t, h.people.Update(context.Background(), person))

	_, err := h.orch.DeletePerson(context.Background(), person.ID)
	require.NoError(t, err)

	// The mapping on the paused account still pointed at a live contact; the
	// delete removes it too.
	assert.Equal(t, 0, h.sources["a"].Len())
	assert.Equal(t, 0, h.sources["b"].Len())

	deletes := h.logs.byAction(models.ActionDelete)
	require.Len(t, deletes, 2)
	for _, e := range deletes {
		assert.Equal(t, models.SyncLogStatusSuccess, e.Status)
	}
}
