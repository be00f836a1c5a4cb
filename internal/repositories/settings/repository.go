// Package settings persists the singleton sync settings row.
package settings

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/perunhq/blackbook-sync/pkg/database"
	"github.com/perunhq/blackbook-sync/pkg/models"
	"github.com/perunhq/blackbook-sync/pkg/tracing"
)

var columns = []string{"id", "auto_sync_enabled", "morning_sync_time", "evening_sync_time", "timezone", "retention_days", "updated_at"}

// Repository handles sync settings persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new settings repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get returns the settings row, falling back to defaults when none exists yet
func (r *Repository) Get(ctx context.Context) (*models.SyncSettings, error) {
	ctx, span := tracing.StartSpan(ctx, "settings.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("sync_settings")
	sb.Where(sb.Equal("id", models.SettingsID))

	query, args := sb.Build()
	var s models.SyncSettings
	if err := r.db.GetContext(ctx, &s, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return models.DefaultSyncSettings(), nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get sync settings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get sync settings")
	}

	return &s, nil
}

// Update upserts the settings row
func (r *Repository) Update(ctx context.Context, s *models.SyncSettings) (*models.SyncSettings, error) {
	ctx, span := tracing.StartSpan(ctx, "settings.Repository.Update")
	defer span.End()

	s.ID = models.SettingsID
	s.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("sync_settings")
	sb.Cols(columns...)
	sb.Values(s.ID, s.AutoSyncEnabled, s.MorningSyncTime, s.EveningSyncTime, s.Timezone, s.RetentionDays, s.UpdatedAt)
	sb.SQL(`ON CONFLICT (id) DO UPDATE SET
		auto_sync_enabled = EXCLUDED.auto_sync_enabled,
		morning_sync_time = EXCLUDED.morning_sync_time,
		evening_sync_time = EXCLUDED.evening_sync_time,
		timezone = EXCLUDED.timezone,
		retention_days = EXCLUDED.retention_days,
		updated_at = EXCLUDED.updated_at`)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update sync settings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update sync settings")
	}

	return s, nil
}
