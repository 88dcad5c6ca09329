package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// listVariantsHandler handles GET /api/v1/rounds/:id/variants.
func (s *Server) listVariantsHandler(c *echo.Context) error {
	list, err := s.store.Variants.ByRound(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, list)
}

// getVariantHandler handles GET /api/v1/variants/:id.
func (s *Server) getVariantHandler(c *echo.Context) error {
	found, err := s.store.Variants.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, found)
}

// getVariantLineageHandler handles GET /api/v1/variants/:id/lineage:
// the ascending-generation chain from the variant's founder to itself.
func (s *Server) getVariantLineageHandler(c *echo.Context) error {
	chain, err := s.store.Variants.Lineage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, chain)
}
