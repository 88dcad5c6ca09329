package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// listEvaluationsHandler handles GET /api/v1/variants/:id/evaluations.
func (s *Server) listEvaluationsHandler(c *echo.Context) error {
	list, err := s.store.Evaluations.ByVariant(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, list)
}
