// Package mgmt exposes the admin HTTP surface for interval mode: probes,
// Prometheus metrics, and the last run summary.
package mgmt

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/progress-sync/internal/engine"
	"github.com/p-blackswan/progress-sync/internal/health"
	"github.com/p-blackswan/progress-sync/internal/metrics"
)

// Server is the admin API Fiber application.
type Server struct {
	app     *fiber.App
	checker *health.Checker
	logger  zerolog.Logger
	addr    string

	mu      sync.RWMutex
	lastRun *engine.Summary
}

// NewServer creates and configures the admin server.
func NewServer(addr string, checker *health.Checker, m *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:     app,
		checker: checker,
		logger:  logger.With().Str("component", "mgmt_server").Logger(),
		addr:    addr,
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	app.Get("/healthz", s.liveness)
	app.Get("/readyz", s.readiness)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	v1 := app.Group("/api/v1")
	v1.Get("/runs/last", s.lastRunHandler)

	return s
}

// SetLastRun publishes the most recent run summary.
func (s *Server) SetLastRun(sum *engine.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = sum
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.addr).Msg("admin server starting")
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the Fiber app (for tests).
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) readiness(c *fiber.Ctx) error {
	results := s.checker.RunAll(c.Context())
	code := fiber.StatusOK
	if !health.Healthy(results) {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(results)
}

func (s *Server) lastRunHandler(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no run yet"})
	}
	return c.JSON(s.lastRun)
}
