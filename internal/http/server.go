// Package http provides HTTP API for ctxforge.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/ctxforge/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides HTTP endpoints for ctxforge: a health check and
// Prometheus-scrapeable metrics. It is a thin transport shim over
// internal/metrics, never touched by the core pipeline directly.
type Server struct {
	echo     *echo.Echo
	logger   *zap.Logger
	config   *Config
	recorder *metrics.Recorder
	hmetrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// NewServer creates a new HTTP server. recorder may be nil, in which case
// GET /metrics/summary reports zero values.
func NewServer(recorder *metrics.Recorder, logger *zap.Logger, cfg *Config) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9090}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	httpMetrics := NewHTTPMetrics(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(httpMetrics.MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		logger:   logger,
		config:   cfg,
		recorder: recorder,
		hmetrics: httpMetrics,
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/metrics/summary", s.handleMetricsSummary)
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.config.Version})
}

// MetricsSummaryResponse is the response body for GET /metrics/summary, a
// JSON projection of internal/metrics.Recorder.Summary for callers that
// don't scrape Prometheus.
type MetricsSummaryResponse struct {
	TotalCalls       int     `json:"total_calls"`
	AverageRatio     float64 `json:"average_ratio"`
	TotalTokensSaved int     `json:"total_tokens_saved"`
}

func (s *Server) handleMetricsSummary(c echo.Context) error {
	if s.recorder == nil {
		return c.JSON(http.StatusOK, MetricsSummaryResponse{})
	}
	sum := s.recorder.Summary()

	var totalOriginal, totalOptimized, totalSaved int64
	for _, agg := range sum.ByIntent {
		totalOriginal += agg.TotalOriginal
		totalOptimized += agg.TotalOptimized
		totalSaved += agg.TotalSaved
	}
	avgRatio := 1.0
	if totalOptimized > 0 {
		avgRatio = float64(totalOriginal) / float64(totalOptimized)
	}

	return c.JSON(http.StatusOK, MetricsSummaryResponse{
		TotalCalls:       sum.TotalCalls,
		AverageRatio:     avgRatio,
		TotalTokensSaved: int(totalSaved),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
