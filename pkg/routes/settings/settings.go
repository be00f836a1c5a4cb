// Package settings exposes the sync settings endpoints.
package settings

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/perunhq/blackbook-sync/pkg/models"
)

// Store persists the settings row.
type Store interface {
	Get(ctx context.Context) (*models.SyncSettings, error)
	Update(ctx context.Context, s *models.SyncSettings) (*models.SyncSettings, error)
}

// Handler serves the settings endpoints
type Handler struct {
	store    Store
	validate *validator.Validate
	logger   ectologger.Logger
}

// NewHandler creates a settings handler
func NewHandler(store Store, logger ectologger.Logger) *Handler {
	return &Handler{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers settings routes on the group
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Get)
	g.PUT("", h.Update)
}

// Get returns the current sync settings
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	settings, err := h.store.Get(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, settings)
}

// Update replaces the sync settings. The scheduler picks up changes on its
// next poll.
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	var settings models.SyncSettings
	if err := c.Bind(&settings); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&settings); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := settings.Validate(); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.store.Update(ctx, &settings)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"auto_sync_enabled": updated.AutoSyncEnabled,
		"morning":           updated.MorningSyncTime,
		"evening":           updated.EveningSyncTime,
		"timezone":          updated.Timezone,
		"retention_days":    updated.RetentionDays,
	}).Info("Updated sync settings")

	return c.JSON(http.StatusOK, updated)
}
