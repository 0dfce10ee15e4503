package ui

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"labreport/internal/container"
)

// Server is the JSON API for analysis and report generation
type Server struct {
	router    *gin.Engine
	container *container.Container
	metrics   *Metrics
}

// NewServer creates the API server around a wired container
func NewServer(c *container.Container) *Server {
	gin.SetMode(c.Config.Server.GinMode)

	s := &Server{
		router:    gin.New(),
		container: c,
		metrics:   NewMetrics(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", s.metrics.handler())

	analyze := s.router.Group("/api/analyze")
	{
		analyze.POST("/data", s.handleAnalyzeData)
		analyze.POST("/detect-columns", s.handleDetectColumns)
		analyze.POST("/detect-sheets", s.handleDetectSheets)
		analyze.POST("/batch", s.handleAnalyzeBatch)
		analyze.POST("/batch/export", s.handleExportBatch)
	}

	generate := s.router.Group("/api/generate")
	{
		generate.GET("/status", s.handleGenerationStatus)
		generate.POST("/extract-manual", s.handleExtractManual)
		generate.POST("/full-report", s.handleFullReport)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("[Server] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
