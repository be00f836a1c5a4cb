// Package account persists connected external contact accounts.
package account

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

var columns = []string{"id", "provider", "label", "sync_enabled", "config", "last_sync_at", "next_sync_at", "created_at", "updated_at"}

// Repository handles external account persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new account repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create registers a new external account
func (r *Repository) Create(ctx context.Context, a *models.ExternalAccount) (*models.ExternalAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Create")
	defer span.End()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("external_accounts")
	sb.Cols(columns...)
	sb.Values(a.ID, a.Provider, a.Label, a.SyncEnabled, a.Config, a.LastSyncAt, a.NextSyncAt, a.CreatedAt, a.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"account_id": a.ID}).Error("Failed to create external account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create external account")
	}

	return a, nil
}

// GetByID retrieves an external account by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.ExternalAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("external_accounts")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var a models.ExternalAccount
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("external account %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get external account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get external account")
	}

	return &a, nil
}

// List retrieves all external accounts
func (r *Repository) List(ctx context.Context) ([]*models.ExternalAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("external_accounts")
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var accounts []*models.ExternalAccount
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list external accounts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list external accounts")
	}

	return accounts, nil
}

// ListSyncEnabled retrieves accounts participating in sync
func (r *Repository) ListSyncEnabled(ctx context.Context) ([]*models.ExternalAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.ListSyncEnabled")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("external_accounts")
	sb.Where(sb.Equal("sync_enabled", true))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var accounts []*models.ExternalAccount
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sync-enabled accounts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list external accounts")
	}

	return accounts, nil
}

// SetSyncTimes records the last and next sync timestamps after a pass
func (r *Repository) SetSyncTimes(ctx context.Context, id string, lastSyncAt, nextSyncAt *time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.SetSyncTimes")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("external_accounts")
	sb.Set(
		sb.Assign("last_sync_at", lastSyncAt),
		sb.Assign("next_sync_at", nextSyncAt),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"account_id": id}).Error("Failed to set account sync times")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set account sync times")
	}

	return nil
}
