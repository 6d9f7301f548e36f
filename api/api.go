// Package api exposes reconciliation runs over HTTP.
package api

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/TFMV/reconcile/integrations"
	"github.com/TFMV/reconcile/metrics"
	"github.com/TFMV/reconcile/pkg/reconcile"
	"github.com/TFMV/reconcile/report"
	"github.com/TFMV/reconcile/version"
)

// ServiceName is reported by /version.
const ServiceName = "Reconcile API"

// ServerOptions configures the server.
type ServerOptions struct {
	Port    string
	Prefork bool
	// Logger receives server and comparison logs. Nil discards them.
	Logger *zap.Logger
	// Collector records comparison runs. Nil creates a private one.
	Collector *metrics.Collector
	// AllowedRoots lists the directories POST /compare may read files from.
	// Empty means only samples and, with AllowDatabases, database sources.
	AllowedRoots []string
	// AllowDatabases lets POST /compare open DuckDB, Postgres and MySQL sources.
	AllowDatabases bool
}

// Server holds the Fiber app instance
type Server struct {
	app       *fiber.App
	port      string
	logger    *zap.Logger
	collector *metrics.Collector
	runner    *integrations.Runner
	sources   sourcePolicy
}

// CompareRequest is the body of POST /compare.
type CompareRequest struct {
	integrations.Job
	// Rows adds the row-level report document to the response.
	Rows bool `json:"rows,omitempty"`
}

// CompareResponse is returned by POST /compare.
type CompareResponse struct {
	RunID    string            `json:"run_id"`
	Outcome  metrics.Outcome   `json:"outcome"`
	Duration string            `json:"duration"`
	Summary  reconcile.Summary `json:"summary"`
	Report   *report.Document  `json:"report,omitempty"`
}

// NewServer initializes a new Fiber instance
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collector := opts.Collector
	if collector == nil {
		collector = metrics.NewCollector(nil)
	}
	port := opts.Port
	if port == "" {
		port = "5555"
	}

	app := fiber.New(fiber.Config{
		IdleTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Prefork:      opts.Prefork,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		app:       app,
		port:      port,
		logger:    logger,
		collector: collector,
		runner:    integrations.NewRunner(logger, collector),
		sources:   newSourcePolicy(opts.AllowedRoots, opts.AllowDatabases),
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": ServiceName,
			"version": version.GetVersion(),
			"build":   version.GetBuildDate(),
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.JSON(s.collector.Snapshot())
	})

	app.Post("/compare", s.handleCompare)

	return s
}

// GetApp returns the Fiber app, mainly for tests.
func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) handleCompare(c *fiber.Ctx) error {
	var req CompareRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := s.sources.check(req.Job); err != nil {
		s.logger.Warn("Rejected comparison source", zap.Error(err))
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	}

	f, run, err := s.runner.Run(c.UserContext(), req.Job)
	if err != nil {
		return compareError(err)
	}
	defer f.Release()

	resp := CompareResponse{
		RunID:    run.ID,
		Outcome:  run.Outcome,
		Duration: run.Duration.String(),
		Summary:  f.Summary(),
	}
	if req.Rows {
		if resp.Report, err = report.NewDocument(f); err != nil {
			return err
		}
	}
	return c.JSON(resp)
}

// compareError maps engine errors to HTTP status codes.
func compareError(err error) error {
	switch {
	case errors.Is(err, integrations.ErrUnknownSample):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, reconcile.ErrConfiguration),
		errors.Is(err, reconcile.ErrKeyColumnNotFound),
		errors.Is(err, reconcile.ErrInvalidInput):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, os.ErrNotExist):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// Start runs the Fiber server until an interrupt, then shuts down gracefully.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	defer signal.Stop(quit)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Reconcile API is running", zap.String("port", s.port))
		errCh <- s.app.Listen(":" + s.port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	s.logger.Info("Received shutdown signal, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("Server shutdown successfully")
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
