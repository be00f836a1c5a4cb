// Package review persists conflict review queue items.
package review

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

var columns = []string{"id", "person_id", "account_id", "type", "field", "local_value", "external_value", "status", "resolution", "created_at", "resolved_at"}

// Repository handles review item persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a flagged conflict for manual review
func (r *Repository) Create(ctx context.Context, item *models.ReviewItem) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.Create")
	defer span.End()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = models.ReviewStatusPending
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("review_items")
	sb.Cols(columns...)
	sb.Values(item.ID, item.PersonID, item.AccountID, item.Type, item.Field, item.LocalValue, item.ExternalValue, item.Status, item.Resolution, item.CreatedAt, item.ResolvedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"person_id": item.PersonID,
			"type":      item.Type,
		}).Error("Failed to create review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create review item")
	}

	return item, nil
}

// GetByID retrieves a review item by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("review_items")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var item models.ReviewItem
	if err := r.db.GetContext(ctx, &item, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("review item %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review item")
	}

	return &item, nil
}

// ListPending retrieves unresolved review items, oldest first
func (r *Repository) ListPending(ctx context.Context) ([]*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.ListPending")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("review_items")
	sb.Where(sb.Equal("status", models.ReviewStatusPending))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var items []*models.ReviewItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending review items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list review items")
	}

	return items, nil
}

// CountPending returns the number of unresolved review items
func (r *Repository) CountPending(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.CountPending")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("review_items")
	sb.Where(sb.Equal("status", models.ReviewStatusPending))

	query, args := sb.Build()
	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count pending review items")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count review items")
	}

	return count, nil
}

// Resolve marks a pending item resolved and records the chosen value
func (r *Repository) Resolve(ctx context.Context, id, resolution string) error {
	return r.close(ctx, id, models.ReviewStatusResolved, &resolution)
}

// Dismiss marks a pending item dismissed, keeping the local value
func (r *Repository) Dismiss(ctx context.Context, id string) error {
	return r.close(ctx, id, models.ReviewStatusDismissed, nil)
}

func (r *Repository) close(ctx context.Context, id string, status models.ReviewStatus, resolution *string) error {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.close")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("review_items")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolution", resolution),
		sb.Assign("resolved_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id), sb.Equal("status", models.ReviewStatusPending))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": id}).Error("Failed to close review item")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to close review item")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("review item %s is not pending", id))
	}

	return nil
}
