package api

import (
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// campaignEventsHandler handles GET /api/v1/campaigns/:id/events: an
// SSE stream of campaign_started/round_started/round_completed/
// round_failed/campaign_completed/error events for one campaign,
// adapted from the connection-manager fan-out pattern to
// http.Flusher-based SSE instead of a persistent WebSocket.
func (s *Server) campaignEventsHandler(c *echo.Context) error {
	campaignID := c.Param("id")
	if _, err := s.store.Campaigns.Get(c.Request().Context(), campaignID); err != nil {
		return mapStoreError(err)
	}

	w := c.Response()
	flusher, ok := any(w).(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, unsubscribe := s.broadcaster.Subscribe(campaignID)
	defer unsubscribe()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			payload, err := evt.Marshal()
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
			flusher.Flush()
		}
	}
}
