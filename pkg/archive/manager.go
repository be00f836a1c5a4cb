// Package archive implements the archive-then-delete safety net: every delete
// that reaches a person record goes through a snapshot first, and snapshots can
// be restored as new records until they expire.
package archive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/perunhq/blackbook-sync/pkg/database"
	"github.com/perunhq/blackbook-sync/pkg/events"
	"github.com/perunhq/blackbook-sync/pkg/metrics"
	"github.com/perunhq/blackbook-sync/pkg/models"
	"github.com/perunhq/blackbook-sync/pkg/tracing"
)

// ArchiveStore persists archive snapshots.
type ArchiveStore interface {
	Create(ctx context.Context, a *models.ArchivedPerson) (*models.ArchivedPerson, error)
	CreateAndDeletePerson(ctx context.Context, a *models.ArchivedPerson) (*models.ArchivedPerson, error)
	GetByID(ctx context.Context, id string) (*models.ArchivedPerson, error)
	List(ctx context.Context, includeExpired bool) ([]*models.ArchivedPerson, error)
	MarkRestoredAndCreatePerson(ctx context.Context, archiveID string, p *models.Person) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// LogStore appends sync log entries.
type LogStore interface {
	Append(ctx context.Context, entry *models.SyncLogEntry) error
}

// SettingsStore reads the retention configuration.
type SettingsStore interface {
	Get(ctx context.Context) (*models.SyncSettings, error)
}

// Manager coordinates archiving, restoring and purging of deleted persons.
type Manager struct {
	archives ArchiveStore
	logs     LogStore
	settings SettingsStore
	emitter  *events.Emitter
	logger   ectologger.Logger
}

// NewManager creates an archive manager
func NewManager(archives ArchiveStore, logs LogStore, settings SettingsStore, emitter *events.Emitter, logger ectologger.Logger) *Manager {
	return &Manager{
		archives: archives,
		logs:     logs,
		settings: settings,
		emitter:  emitter,
		logger:   logger,
	}
}

// Archive snapshots the person and deletes the live record in one transaction.
// deletedFrom records which side initiated the deletion; accountID is set when
// an external account drove it.
func (m *Manager) Archive(ctx context.Context, person *models.Person, deletedFrom string, accountID *string) (*models.ArchivedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "archive.Manager.Archive")
	defer span.End()

	settings, err := m.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	arch := &models.ArchivedPerson{
		PersonID:    person.ID,
		DeletedFrom: deletedFrom,
		AccountID:   accountID,
		Snapshot:    database.JSONB[models.Person]{Data: *person},
		ArchivedAt:  now,
		ExpiresAt:   now.Add(settings.Retention()),
	}

	arch, err = m.archives.CreateAndDeletePerson(ctx, arch)
	if err != nil {
		return nil, err
	}

	entry := &models.SyncLogEntry{
		PersonID:  &person.ID,
		AccountID: accountID,
		Direction: directionFor(deletedFrom),
		Action:    models.ActionArchive,
		Status:    models.SyncLogStatusSuccess,
		Fields:    database.JSONB[map[string]any]{Data: map[string]any{"archive_id": arch.ID, "deleted_from": deletedFrom}},
	}
	if err := m.logs.Append(ctx, entry); err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Archived person but failed to append log entry")
	}

	metrics.RecordArchive(deletedFrom)
	_ = m.emitter.EmitPersonArchived(ctx, arch)

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"person_id":    person.ID,
		"archive_id":   arch.ID,
		"deleted_from": deletedFrom,
		"expires_at":   arch.ExpiresAt,
	}).Info("Archived person")

	return arch, nil
}

// Restore recreates an archived person as a new record. External resource
// mappings are not carried over; the restored record is marked pending so the
// next sync pass re-exports it under fresh resource IDs.
func (m *Manager) Restore(ctx context.Context, archiveID string) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "archive.Manager.Restore")
	defer span.End()

	arch, err := m.archives.GetByID(ctx, archiveID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if arch.RestoredAt != nil {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("archive entry %s already restored", archiveID))
	}
	if !arch.Restorable(now) {
		return nil, httperror.NewHTTPError(http.StatusGone, fmt.Sprintf("archive entry %s has expired", archiveID))
	}

	person := arch.Snapshot.GetValue()
	person.ID = uuid.New().String()
	person.ExternalContactIDs = database.JSONB[map[string]string]{Data: map[string]string{}}
	person.SyncStatus = models.SyncStatusPending
	person.LastSyncedAt = nil
	person.CreatedAt = now
	person.UpdatedAt = now

	if err := m.archives.MarkRestoredAndCreatePerson(ctx, archiveID, &person); err != nil {
		return nil, err
	}

	entry := &models.SyncLogEntry{
		PersonID:  &person.ID,
		AccountID: arch.AccountID,
		Direction: directionFor(arch.DeletedFrom),
		Action:    models.ActionRestore,
		Status:    models.SyncLogStatusSuccess,
		Fields:    database.JSONB[map[string]any]{Data: map[string]any{"archive_id": arch.ID, "original_person_id": arch.PersonID}},
	}
	if err := m.logs.Append(ctx, entry); err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Restored person but failed to append log entry")
	}

	_ = m.emitter.EmitPersonRestored(ctx, arch, person.ID)

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"archive_id": arch.ID,
		"person_id":  person.ID,
	}).Info("Restored person from archive")

	return &person, nil
}

// PurgeExpired removes unrestored snapshots past their retention window.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "archive.Manager.PurgeExpired")
	defer span.End()

	purged, err := m.archives.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		metrics.RecordArchivesPurged(purged)
		m.logger.WithContext(ctx).WithFields(map[string]any{"purged": purged}).Info("Purged expired archive entries")
	}

	return purged, nil
}

// directionFor maps the deletion origin to the log direction: an external
// deletion flows inward, a local deletion flows outward.
func directionFor(deletedFrom string) models.SyncDirection {
	if deletedFrom == models.DeletedFromExternal {
		return models.DirectionExternalToLocal
	}
	return models.DirectionLocalToExternal
}
