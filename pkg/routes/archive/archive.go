// Package archive exposes the archive listing, restore and purge endpoints.
package archive

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/perunhq/blackbook-sync/pkg/models"
)

// Store lists archive entries.
type Store interface {
	List(ctx context.Context, includeExpired bool) ([]*models.ArchivedPerson, error)
}

// Manager restores and purges archive entries.
type Manager interface {
	Restore(ctx context.Context, archiveID string) (*models.Person, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// Handler serves the archive endpoints
type Handler struct {
	store   Store
	manager Manager
	logger  ectologger.Logger
}

// NewHandler creates an archive handler
func NewHandler(store Store, manager Manager, logger ectologger.Logger) *Handler {
	return &Handler{
		store:   store,
		manager: manager,
		logger:  logger,
	}
}

// RegisterRoutes registers archive routes on the group
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("/:id/restore", h.Restore)
	g.POST("/purge", h.Purge)
}

// List lists archive entries; pass include_expired=true to include entries
// past their retention window
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	includeExpired := c.QueryParam("include_expired") == "true"

	entries, err := h.store.List(ctx, includeExpired)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

// Restore recreates the archived person as a new record
func (h *Handler) Restore(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	person, err := h.manager.Restore(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, person)
}

// Purge removes expired, unrestored archive entries
func (h *Handler) Purge(c echo.Context) error {
	ctx := c.Request().Context()

	purged, err := h.manager.PurgeExpired(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]int64{"purged": purged})
}
