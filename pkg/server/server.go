// Package server exposes a studygraph client over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soundprediction/studygraph"
	"github.com/soundprediction/studygraph/pkg/config"
	"github.com/soundprediction/studygraph/pkg/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	client studygraph.StudyGraph
	server *http.Server
	logger *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, client studygraph.StudyGraph, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		client: client,
		logger: logger.With("component", "server"),
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	if s.config.Server.Mode != "" {
		gin.SetMode(s.config.Server.Mode)
	}

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())
	s.router.Use(requestLogger(s.logger))
	s.router.Use(metricsMiddleware())

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    s.config.Server.Addr(),
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.client)
	ingestHandler := handlers.NewIngestHandler(s.client)
	retrieveHandler := handlers.NewRetrieveHandler(s.client, s.config.Ingest.DefaultResults)
	progressHandler := handlers.NewProgressHandler(s.client)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/healthcheck", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		ingest := v1.Group("/ingest")
		{
			ingest.POST("/curriculum", ingestHandler.LoadCurriculum)
			ingest.POST("/questions", ingestHandler.AddQuestions)
			ingest.POST("/chunks", ingestHandler.AddChunks)
			ingest.POST("/concepts", ingestHandler.AddConcept)
			ingest.DELETE("/clear", ingestHandler.ClearData)
		}
		v1.GET("/stats", ingestHandler.Statistics)

		v1.POST("/search", retrieveHandler.VectorSearch)
		v1.POST("/search/hybrid", retrieveHandler.HybridSearch)
		v1.GET("/subjects", retrieveHandler.ListSubjects)
		v1.GET("/subjects/:subject/topics", retrieveHandler.TopicsForSubject)
		v1.GET("/subjects/:subject/topics/:topic/context", retrieveHandler.TopicContext)
		v1.GET("/subjects/:subject/topics/:topic/questions", retrieveHandler.Questions)

		progress := v1.Group("/progress")
		{
			progress.POST("/attempts", progressHandler.RecordAttempt)
			progress.GET("/stats", progressHandler.UserStats)
			progress.GET("/subjects/:subject", progressHandler.TopicProgress)
			progress.GET("/weak", progressHandler.WeakTopics)
		}
	}
}

// Handler returns the configured router. Setup must have been called.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server and blocks until it stops. A graceful Stop is
// not reported as an error.
func (s *Server) Start() error {
	s.logger.Info("Starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping server")
	return s.server.Shutdown(ctx)
}
