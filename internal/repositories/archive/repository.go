// Package archive persists point-in-time snapshots of deleted persons.
package archive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/perunhq/blackbook-sync/pkg/database"
	"github.com/perunhq/blackbook-sync/pkg/models"
	"github.com/perunhq/blackbook-sync/pkg/tracing"
)

var columns = []string{"id", "person_id", "deleted_from", "account_id", "snapshot", "archived_at", "expires_at", "restored_at", "restored_person_id"}

// Repository handles archived person persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new archive repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create stores an archive snapshot
func (r *Repository) Create(ctx context.Context, a *models.ArchivedPerson) (*models.ArchivedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "archive.Repository.Create")
	defer span.End()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.ArchivedAt.IsZero() {
		a.ArchivedAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("archived_people")
	sb.Cols(columns...)
	sb.Values(a.ID, a.PersonID, a.DeletedFrom, a.AccountID, a.Snapshot, a.ArchivedAt, a.ExpiresAt, a.RestoredAt, a.RestoredPersonID)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": a.PersonID}).Error("Failed to create archive entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create archive entry")
	}

	return a, nil
}

// CreateAndDeletePerson stores the snapshot and removes the live person in one
// transaction. The snapshot can never be lost while the person is already gone.
func (r *Repository) CreateAndDeletePerson(ctx context.Context, a *models.ArchivedPerson) (*models.ArchivedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "archive.Repository.CreateAndDeletePerson")
	defer span.End()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.ArchivedAt.IsZero() {
		a.ArchivedAt = time.Now().UTC()
	}

	ctxTx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("archived_people")
	ib.Cols(columns...)
	ib.Values(a.ID, a.PersonID, a.DeletedFrom, a.AccountID, a.Snapshot, a.ArchivedAt, a.ExpiresAt, a.RestoredAt, a.RestoredPersonID)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": a.PersonID}).Error("Failed to create archive entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create archive entry")
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("people")
	db.Where(db.Equal("id", a.PersonID))

	query, args = db.Build()
	if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": a.PersonID}).Error("Failed to delete archived person")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete archived person")
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit archive")
	}

	return a, nil
}

// GetByID retrieves an archive entry by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.ArchivedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "archive.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("archived_people")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var a models.ArchivedPerson
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("archive entry %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get archive entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get archive entry")
	}

	return &a, nil
}

// List retrieves archive entries, newest first. Restored entries are always
// included; expired unrestored entries only when includeExpired is set.
func (r *Repository) List(ctx context.Context, includeExpired bool) ([]*models.ArchivedPerson, error) {
	ctx, span := tracing.StartSpan(ctx, "archive.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("archived_people")
	if !includeExpired {
		sb.Where(sb.Or(
			sb.GreaterThan("expires_at", time.Now().UTC()),
			sb.IsNotNull("restored_at"),
		))
	}
	sb.OrderBy("archived_at DESC")

	query, args := sb.Build()
	var entries []*models.ArchivedPerson
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list archive entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list archive entries")
	}

	return entries, nil
}

// MarkRestoredAndCreatePerson marks the archive entry restored and inserts the
// new person in one transaction, so a restore can never half-apply.
func (r *Repository) MarkRestoredAndCreatePerson(ctx context.Context, archiveID string, p *models.Person) error {
	ctx, span := tracing.StartSpan(ctx, "archive.Repository.MarkRestoredAndCreatePerson")
	defer span.End()

	now := time.Now().UTC()

	ctxTx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("archived_people")
	ub.Set(
		ub.Assign("restored_at", now),
		ub.Assign("restored_person_id", p.ID),
	)
	ub.Where(ub.Equal("id", archiveID), ub.IsNull("restored_at"))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctxTx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"archive_id": archiveID}).Error("Failed to mark archive restored")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark archive restored")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("archive entry %s already restored", archiveID))
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("people")
	ib.Cols("id", "full_name", "title", "birthday", "location", "notes", "emails", "phones", "external_contact_ids", "sync_status", "sync_enabled", "last_synced_at", "created_at", "updated_at")
	ib.Values(p.ID, p.FullName, p.Title, p.Birthday, p.Location, p.Notes, p.Emails, p.Phones, p.ExternalContactIDs, p.SyncStatus, p.SyncEnabled, p.LastSyncedAt, p.CreatedAt, p.UpdatedAt)

	query, args = ib.Build()
	if _, err := tx.ExecContext(ctxTx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"archive_id": archiveID}).Error("Failed to create restored person")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create restored person")
	}

	if err := tx.Commit(ctxTx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit restore")
	}

	return nil
}

// PurgeExpired deletes unrestored entries past their expiry. Restored entries
// are never purged.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "archive.Repository.PurgeExpired")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("archived_people")
	sb.Where(
		sb.IsNull("restored_at"),
		sb.LessThan("expires_at", now),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to purge expired archive entries")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to purge expired archive entries")
	}

	purged, _ := result.RowsAffected()
	return purged, nil
}
