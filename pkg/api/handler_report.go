package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// listReportsHandler handles GET /api/v1/rounds/:id/reports.
func (s *Server) listReportsHandler(c *echo.Context) error {
	list, err := s.store.Reports.ByRound(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, list)
}

// reportResponse wraps a report row with its resolved JSON content,
// transparently reading through to the blob store when spilled.
type reportResponse struct {
	ID         string                 `json:"id"`
	RoundID    string                 `json:"round_id"`
	ReportType string                 `json:"report_type"`
	Content    map[string]interface{} `json:"content"`
}

// getReportHandler handles GET /api/v1/reports/:id.
func (s *Server) getReportHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	r, err := s.store.Reports.Get(ctx, c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	content, err := s.store.Reports.Content(ctx, r)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, reportResponse{
		ID:         r.ID,
		RoundID:    r.RoundID,
		ReportType: r.ReportType,
		Content:    content,
	})
}
