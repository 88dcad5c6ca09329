// Package api provides the HTTP surface for the orchestration engine:
// Campaign/Round/Variant/Evaluation/Report/Job resources plus an SSE
// stream of campaign progress events (spec.md §6).
package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/evoengine/core/pkg/orcherrors"
)

// mapStoreError maps the orcherrors taxonomy to HTTP responses.
func mapStoreError(err error) *echo.HTTPError {
	var notFound *orcherrors.EntityNotFound
	if errors.As(err, &notFound) {
		return echo.NewHTTPError(http.StatusNotFound, notFound.Error())
	}
	var invalidTransition *orcherrors.InvalidStateTransition
	if errors.As(err, &invalidTransition) {
		return echo.NewHTTPError(http.StatusConflict, invalidTransition.Error())
	}
	var concurrency *orcherrors.ConcurrencyConflict
	if errors.As(err, &concurrency) {
		return echo.NewHTTPError(http.StatusConflict, concurrency.Error())
	}
	if errors.Is(err, orcherrors.ErrEntityNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}

	slog.Error("unexpected store error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
