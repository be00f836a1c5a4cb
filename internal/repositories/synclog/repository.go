// Package synclog persists the append-only log of sync operations.
package synclog

import (
	"context"
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

var columns = []string{"id", "person_id", "account_id", "direction", "action", "status", "fields", "error", "created_at"}

// Filter narrows a log listing.
type Filter struct {
	Status   string
	PersonID string
	Limit    int
	Offset   int
}

// Repository handles sync log persistence. Entries are append-only; there is
// deliberately no update or delete.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new sync log repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Append writes one log entry
func (r *Repository) Append(ctx context.Context, entry *models.SyncLogEntry) error {
	ctx, span := tracing.StartSpan(ctx, "synclog.Repository.Append")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Fields.Data == nil {
		entry.Fields.Data = map[string]any{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("sync_log")
	sb.Cols(columns...)
	sb.Values(entry.ID, entry.PersonID, entry.AccountID, entry.Direction, entry.Action, entry.Status, entry.Fields, entry.Error, entry.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"direction": entry.Direction,
			"action":    entry.Action,
		}).Error("Failed to append sync log entry")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to append sync log entry")
	}

	return nil
}

// List retrieves log entries, newest first
func (r *Repository) List(ctx context.Context, filter Filter) ([]*models.SyncLogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "synclog.Repository.List")
	defer span.End()

	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("sync_log")

	var where []string
	if filter.Status != "" {
		where = append(where, sb.Equal("status", filter.Status))
	}
	if filter.PersonID != "" {
		where = append(where, sb.Equal("person_id", filter.PersonID))
	}
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(filter.Limit)
	sb.Offset(filter.Offset)

	query, args := sb.Build()
	var entries []*models.SyncLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sync log entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sync log entries")
	}

	return entries, nil
}

// LatestPassTime returns the created_at of the most recent entry, if any
func (r *Repository) LatestPassTime(ctx context.Context) (*time.Time, error) {
	ctx, span := tracing.StartSpan(ctx, "synclog.Repository.LatestPassTime")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("created_at")
	sb.From("sync_log")
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var t time.Time
	if err := r.db.GetContext(ctx, &t, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get latest sync log time")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest sync log time")
	}

	return &t, nil
}
