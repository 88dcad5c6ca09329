package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/evoengine/core/pkg/orcherrors"
)

// listJobsHandler handles GET /api/v1/jobs.
func (s *Server) listJobsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.jobs.List())
}

// getJobHandler handles GET /api/v1/jobs/:id.
func (s *Server) getJobHandler(c *echo.Context) error {
	snap, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		return mapStoreError(orcherrors.NewEntityNotFound("job", c.Param("id")))
	}
	return c.JSON(http.StatusOK, snap)
}

// cancelJobHandler handles POST /api/v1/jobs/:id/cancel: cooperative
// cancellation, per spec.md §4.9 — a running job's runner observes
// context cancellation and settles to status cancelled.
func (s *Server) cancelJobHandler(c *echo.Context) error {
	if err := s.jobs.Cancel(c.Param("id")); err != nil {
		return mapStoreError(err)
	}
	snap, _ := s.jobs.Get(c.Param("id"))
	return c.JSON(http.StatusAccepted, snap)
}
