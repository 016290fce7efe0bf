// Package httpapi is the HTTP intake of the triage pipeline.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/metrics"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server serves the analysis, explanation and read endpoints
type Server struct {
	app            *fiber.App
	service        *core.TriageService
	metrics        *metrics.Metrics
	logger         *zap.Logger
	listenAddress  string
	requestTimeout time.Duration
}

// NewServer creates the fiber app and registers all routes
func NewServer(cfg config.ServerConfig, service *core.TriageService, m *metrics.Metrics, logger *zap.Logger) *Server {
	s := &Server{
		service:        service,
		metrics:        m,
		logger:         logger,
		listenAddress:  cfg.ListenAddress,
		requestTimeout: cfg.RequestTimeout,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "llm-mail-triage",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          s.handleFiberError,
	})

	s.app.Use(s.requestLogger)
	s.app.Use(recover.New())
	s.app.Use(corsMiddleware)

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	functions := s.app.Group("/functions/v1")
	functions.All("/analyze-email", s.handleAnalyzeEmail)
	functions.All("/ai-chat-assistant", s.handleExplain)

	api := s.app.Group("/api/v1")
	api.Get("/scans", s.handleListScans)
	api.Get("/scans/:id", s.handleGetScan)

	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Name identifies the intake in logs
func (s *Server) Name() string {
	return "http"
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddress, err)
	}

	s.logger.Info("HTTP intake listening", zap.String("address", s.listenAddress))
	go func() {
		if err := s.app.Listener(ln); err != nil {
			s.logger.Error("HTTP intake stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop waits for in-flight requests, up to a fixed timeout
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP intake")
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}

// pipelineContext is detached from the client connection.
// A disconnecting client does not cancel a classification already under way.
func (s *Server) pipelineContext() (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.requestTimeout)
}

func (s *Server) handleFiberError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	s.logger.Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
