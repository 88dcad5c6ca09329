package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/evoengine/core/pkg/config"
	"github.com/evoengine/core/pkg/database"
	"github.com/evoengine/core/pkg/events"
	"github.com/evoengine/core/pkg/jobs"
	"github.com/evoengine/core/pkg/orchestrator"
	"github.com/evoengine/core/pkg/store"
)

// Server is the HTTP API server: Campaign/Round/Variant/Evaluation/
// Report/Job resources plus an SSE stream of campaign events
// (spec.md §6).
type Server struct {
	echo         *echo.Echo
	httpServer   *http.Server
	cfg          *config.Config
	dbClient     *database.Client
	store        *store.Store
	orchestrator *orchestrator.Orchestrator
	jobs         *jobs.Tracker
	broadcaster  *events.Broadcaster
}

// NewServer creates a new API server with Echo v5.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	st *store.Store,
	orch *orchestrator.Orchestrator,
	tracker *jobs.Tracker,
	broadcaster *events.Broadcaster,
) *Server {
	e := echo.New()

	s := &Server{
		echo:         e,
		cfg:          cfg,
		dbClient:     dbClient,
		store:        st,
		orchestrator: orch,
		jobs:         tracker,
		broadcaster:  broadcaster,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")

	v1.POST("/campaigns", s.createCampaignHandler)
	v1.GET("/campaigns", s.listCampaignsHandler)
	v1.GET("/campaigns/:id", s.getCampaignHandler)
	v1.POST("/campaigns/:id/start", s.startCampaignHandler)
	v1.GET("/campaigns/:id/events", s.campaignEventsHandler)

	v1.GET("/campaigns/:id/rounds", s.listRoundsHandler)
	v1.GET("/rounds/:id", s.getRoundHandler)
	v1.POST("/rounds/:id/run", s.runRoundHandler)

	v1.GET("/rounds/:id/variants", s.listVariantsHandler)
	v1.GET("/variants/:id", s.getVariantHandler)
	v1.GET("/variants/:id/lineage", s.getVariantLineageHandler)

	v1.GET("/variants/:id/evaluations", s.listEvaluationsHandler)

	v1.GET("/rounds/:id/reports", s.listReportsHandler)
	v1.GET("/reports/:id", s.getReportHandler)

	v1.GET("/jobs", s.listJobsHandler)
	v1.GET("/jobs/:id", s.getJobHandler)
	v1.POST("/jobs/:id/cancel", s.cancelJobHandler)
}

// Start starts the HTTP server on the given address and blocks until it
// stops; after Shutdown it returns http.ErrServerClosed.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// Used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
