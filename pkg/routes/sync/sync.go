// Package sync exposes the sync trigger and inspection endpoints.
package sync

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/perunhq/blackbook-sync/internal/repositories/synclog"
	"github.com/perunhq/blackbook-sync/pkg/metrics"
	"github.com/perunhq/blackbook-sync/pkg/models"
	syncpkg "github.com/perunhq/blackbook-sync/pkg/sync"
)

// Runner is the orchestrator surface the handler needs.
type Runner interface {
	RunFullSync(ctx context.Context, trigger string) (*models.PassResult, error)
	SyncPerson(ctx context.Context, personID string) (*models.PassResult, error)
	DeletePerson(ctx context.Context, personID string) (*models.ArchivedPerson, error)
	Running() bool
	LastResult() *models.PassResult
}

// Schedule reports the upcoming trigger times.
type Schedule interface {
	NextRuns(ctx context.Context) ([]time.Time, error)
}

// ReviewCounter counts pending review items.
type ReviewCounter interface {
	CountPending(ctx context.Context) (int64, error)
}

// LogLister lists sync log entries.
type LogLister interface {
	List(ctx context.Context, filter synclog.Filter) ([]*models.SyncLogEntry, error)
}

// Handler serves the sync endpoints
type Handler struct {
	runner   Runner
	schedule Schedule
	reviews  ReviewCounter
	logs     LogLister
	logger   ectologger.Logger
}

// NewHandler creates a sync handler
func NewHandler(runner Runner, schedule Schedule, reviews ReviewCounter, logs LogLister, logger ectologger.Logger) *Handler {
	return &Handler{
		runner:   runner,
		schedule: schedule,
		reviews:  reviews,
		logs:     logs,
		logger:   logger,
	}
}

// RegisterRoutes registers sync routes on the group
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/run", h.Run)
	g.POST("/people/:id", h.SyncPerson)
	g.DELETE("/people/:id", h.DeletePerson)
	g.GET("/status", h.Status)
	g.GET("/log", h.Log)
}

// Run triggers a full bidirectional pass and returns its summary
func (h *Handler) Run(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.runner.RunFullSync(ctx, syncpkg.TriggerManual)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, result)
}

// SyncPerson pushes one person to all sync-enabled accounts
func (h *Handler) SyncPerson(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	result, err := h.runner.SyncPerson(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// DeletePerson archives the person, removes the local record and propagates the
// delete to every mapped account
func (h *Handler) DeletePerson(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	arch, err := h.runner.DeletePerson(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, arch)
}

// StatusResponse is the sync status payload
type StatusResponse struct {
	Running            bool               `json:"running"`
	LastResult         *models.PassResult `json:"last_result,omitempty"`
	PendingReviewCount int64              `json:"pending_review_count"`
	NextRuns           []time.Time        `json:"next_runs,omitempty"`
}

// Status reports the last pass, the running flag, the review queue depth and
// the next scheduled trigger times
func (h *Handler) Status(c echo.Context) error {
	ctx := c.Request().Context()

	pending, err := h.reviews.CountPending(ctx)
	if err != nil {
		return err
	}
	metrics.ReviewItemsPending.Set(float64(pending))

	nextRuns, err := h.schedule.NextRuns(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("Failed to compute next trigger times")
	}

	return c.JSON(http.StatusOK, &StatusResponse{
		Running:            h.runner.Running(),
		LastResult:         h.runner.LastResult(),
		PendingReviewCount: pending,
		NextRuns:           nextRuns,
	})
}

// Log lists sync log entries, newest first, filterable by status and person
func (h *Handler) Log(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	entries, err := h.logs.List(ctx, synclog.Filter{
		Status:   c.QueryParam("status"),
		PersonID: c.QueryParam("person_id"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}
