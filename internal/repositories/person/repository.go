// Package person persists the canonical local contact records.
package person

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

var columns = []string{"id", "full_name", "title", "birthday", "location", "notes", "emails", "phones", "external_contact_ids", "sync_status", "sync_enabled", "last_synced_at", "created_at", "updated_at"}

// Repository handles person persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new person repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new person
func (r *Repository) Create(ctx context.Context, p *models.Person) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Create")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.SyncStatus == "" {
		p.SyncStatus = models.SyncStatusPending
	}
	if p.ExternalContactIDs.Data == nil {
		p.ExternalContactIDs.Data = map[string]string{}
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("people")
	sb.Cols(columns...)
	sb.Values(p.ID, p.FullName, p.Title, p.Birthday, p.Location, p.Notes, p.Emails, p.Phones, p.ExternalContactIDs, p.SyncStatus, p.SyncEnabled, p.LastSyncedAt, p.CreatedAt, p.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": p.ID}).Error("Failed to create person")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create person")
	}

	return p, nil
}

// GetByID retrieves a person by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("people")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var p models.Person
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get person")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get person")
	}

	return &p, nil
}

// Update updates a person's fields and bumps updated_at
func (r *Repository) Update(ctx context.Context, p *models.Person) error {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Update")
	defer span.End()

	p.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("people")
	sb.Set(
		sb.Assign("full_name", p.FullName),
		sb.Assign("title", p.Title),
		sb.Assign("birthday", p.Birthday),
		sb.Assign("location", p.Location),
		sb.Assign("notes", p.Notes),
		sb.Assign("emails", p.Emails),
		sb.Assign("phones", p.Phones),
		sb.Assign("external_contact_ids", p.ExternalContactIDs),
		sb.Assign("sync_status", p.SyncStatus),
		sb.Assign("sync_enabled", p.SyncEnabled),
		sb.Assign("last_synced_at", p.LastSyncedAt),
		sb.Assign("updated_at", p.UpdatedAt),
	)
	sb.Where(sb.Equal("id", p.ID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": p.ID}).Error("Failed to update person")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update person")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", p.ID))
	}

	return nil
}

// Delete removes a person. Callers must archive first; the archive repository
// provides the transactional archive-then-delete path used by sync.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("people")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": id}).Error("Failed to delete person")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete person")
	}

	return nil
}

// ListSyncEnabled retrieves all persons participating in sync
func (r *Repository) ListSyncEnabled(ctx context.Context) ([]*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.ListSyncEnabled")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("people")
	sb.Where(sb.Equal("sync_enabled", true))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var people []*models.Person
	if err := r.db.SelectContext(ctx, &people, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sync-enabled people")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list people")
	}

	return people, nil
}

// SetSyncStatus updates only the sync bookkeeping columns. updated_at is left
// alone on purpose: it tracks content changes, and the export phase compares it
// against last_synced_at to decide whether a person needs pushing.
func (r *Repository) SetSyncStatus(ctx context.Context, id string, status models.SyncStatus, lastSyncedAt *time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.SetSyncStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("people")
	assignments := []string{
		sb.Assign("sync_status", status),
	}
	if lastSyncedAt != nil {
		assignments = append(assignments, sb.Assign("last_synced_at", lastSyncedAt))
	}
	sb.Set(assignments...)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"person_id": id}).Error("Failed to set sync status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set sync status")
	}

	return nil
}
