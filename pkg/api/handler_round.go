package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// listRoundsHandler handles GET /api/v1/campaigns/:id/rounds.
func (s *Server) listRoundsHandler(c *echo.Context) error {
	list, err := s.store.Rounds.ByCampaign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, list)
}

// getRoundHandler handles GET /api/v1/rounds/:id.
func (s *Server) getRoundHandler(c *echo.Context) error {
	found, err := s.store.Rounds.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, found)
}

// runRoundHandler handles POST /api/v1/rounds/:id/run: enqueues
// execute_round on the job tracker and returns immediately, per
// spec.md §4.9.
func (s *Server) runRoundHandler(c *echo.Context) error {
	roundID := c.Param("id")
	r, err := s.store.Rounds.Get(c.Request().Context(), roundID)
	if err != nil {
		return mapStoreError(err)
	}

	job := s.jobs.SubmitRound(context.Background(), r.CampaignID, r.RoundNumber, "", func(ctx context.Context, campaignID string, roundNumber int, report func(int)) error {
		_, err := s.orchestrator.RunSingleRound(ctx, campaignID, roundNumber, report)
		return err
	})

	return c.JSON(http.StatusAccepted, StartJobResponse{
		JobID:    job.ID,
		TraceID:  job.TraceID,
		Status:   string(job.Snapshot().Status),
		Location: "/api/v1/jobs/" + job.ID,
	})
}
