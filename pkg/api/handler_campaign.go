package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/evoengine/core/pkg/store"
)

// createCampaignHandler handles POST /api/v1/campaigns.
func (s *Server) createCampaignHandler(c *echo.Context) error {
	var req CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	created, err := s.store.Campaigns.Create(c.Request().Context(), store.CreateCampaignInput{
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// listCampaignsHandler handles GET /api/v1/campaigns?status=.
func (s *Server) listCampaignsHandler(c *echo.Context) error {
	status := c.QueryParam("status")
	list, err := s.store.Campaigns.List(c.Request().Context(), status)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, list)
}

// getCampaignHandler handles GET /api/v1/campaigns/:id.
func (s *Server) getCampaignHandler(c *echo.Context) error {
	found, err := s.store.Campaigns.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, found)
}

// startCampaignHandler handles POST /api/v1/campaigns/:id/start: it
// transitions the campaign to active and enqueues execute_campaign on
// the job tracker, returning immediately per spec.md §4.9.
func (s *Server) startCampaignHandler(c *echo.Context) error {
	campaignID := c.Param("id")
	if _, err := s.store.Campaigns.Start(c.Request().Context(), campaignID); err != nil {
		return mapStoreError(err)
	}

	job := s.jobs.SubmitCampaign(context.Background(), campaignID, func(ctx context.Context, id string, report func(completed, max int)) error {
		return s.orchestrator.RunCampaign(ctx, id, report)
	})

	return c.JSON(http.StatusAccepted, StartJobResponse{
		JobID:    job.ID,
		TraceID:  job.TraceID,
		Status:   string(job.Snapshot().Status),
		Location: "/api/v1/jobs/" + job.ID,
	})
}
