// Package review exposes the conflict review queue endpoints.
package review

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/perunhq/blackbook-sync/pkg/database"
	"github.com/perunhq/blackbook-sync/pkg/models"
)

// Resolution choices for a review item.
const (
	ChoiceLocal    = "local"
	ChoiceExternal = "external"
)

// ReviewStore persists review items.
type ReviewStore interface {
	GetByID(ctx context.Context, id string) (*models.ReviewItem, error)
	ListPending(ctx context.Context) ([]*models.ReviewItem, error)
	Resolve(ctx context.Context, id, resolution string) error
	Dismiss(ctx context.Context, id string) error
}

// PersonStore reads and writes persons for applied resolutions.
type PersonStore interface {
	GetByID(ctx context.Context, id string) (*models.Person, error)
	Update(ctx context.Context, p *models.Person) error
}

// LogStore appends sync log entries.
type LogStore interface {
	Append(ctx context.Context, entry *models.SyncLogEntry) error
}

// Handler serves the review queue endpoints
type Handler struct {
	reviews ReviewStore
	people  PersonStore
	logs    LogStore
	logger  ectologger.Logger
}

// NewHandler creates a review handler
func NewHandler(reviews ReviewStore, people PersonStore, logs LogStore, logger ectologger.Logger) *Handler {
	return &Handler{
		reviews: reviews,
		people:  people,
		logs:    logs,
		logger:  logger,
	}
}

// RegisterRoutes registers review routes on the group
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListPending)
	g.POST("/:id/resolve", h.Resolve)
	g.POST("/:id/dismiss", h.Dismiss)
}

// ListPending lists unresolved review items, oldest first
func (h *Handler) ListPending(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.reviews.ListPending(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// ResolveRequest picks which side of the conflict wins.
type ResolveRequest struct {
	Resolution string `json:"resolution"`
}

// Resolve closes a review item with the chosen side. Choosing external applies
// the external value to the person and marks it pending so the next pass
// re-exports it; choosing local keeps the record as is.
func (h *Handler) Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Resolution != ChoiceLocal && req.Resolution != ChoiceExternal {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("resolution must be %q or %q", ChoiceLocal, ChoiceExternal))
	}

	item, err := h.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.Status != models.ReviewStatusPending {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("review item %s is not pending", id))
	}

	if req.Resolution == ChoiceExternal {
		if err := h.applyExternalValue(ctx, item); err != nil {
			return err
		}
	}

	if err := h.reviews.Resolve(ctx, id, req.Resolution); err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"review_id":  id,
		"field":      item.Field,
		"resolution": req.Resolution,
	}).Info("Resolved review item")

	return c.JSON(http.StatusOK, map[string]string{"status": "resolved", "resolution": req.Resolution})
}

// Dismiss closes a review item keeping the local value untouched
func (h *Handler) Dismiss(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := h.reviews.Dismiss(ctx, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "dismissed"})
}

// applyExternalValue writes the external side of the conflict onto the person
// and queues it for re-export.
func (h *Handler) applyExternalValue(ctx context.Context, item *models.ReviewItem) error {
	person, err := h.people.GetByID(ctx, item.PersonID)
	if err != nil {
		return err
	}

	switch item.Field {
	case "full_name":
		person.FullName = item.ExternalValue
	case "title":
		person.Title = item.ExternalValue
	case "birthday":
		person.Birthday = item.ExternalValue
	case "location":
		person.Location = item.ExternalValue
	default:
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("field %q cannot be resolved automatically", item.Field))
	}
	person.SyncStatus = models.SyncStatusPending

	// Log first so the mutation is never unrecorded.
	entry := &models.SyncLogEntry{
		PersonID:  &person.ID,
		AccountID: item.AccountID,
		Direction: models.DirectionExternalToLocal,
		Action:    models.ActionUpdate,
		Status:    models.SyncLogStatusSuccess,
		Fields:    database.JSONB[map[string]any]{Data: map[string]any{item.Field: item.ExternalValue, "review_id": item.ID}},
		CreatedAt: time.Now().UTC(),
	}
	if err := h.logs.Append(ctx, entry); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to log review resolution")
	}

	return h.people.Update(ctx, person)
}
