// Package server exposes the alerting system over HTTP. All payloads use
// the success/error envelope in pkg/models and every business timestamp
// comes from the injected clock.
package server

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dikshakatiyar/alerting-system/internal/config"
	"github.com/dikshakatiyar/alerting-system/internal/core"
	"github.com/dikshakatiyar/alerting-system/internal/metrics"
	"github.com/dikshakatiyar/alerting-system/internal/scheduler"
	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// Options contains the dependencies required to construct a Server.
type Options struct {
	Config     *config.Config
	DB         *sqlite.DB
	Dispatcher core.Dispatcher
	Scheduler  *scheduler.Scheduler
	Clock      clock.Clock
	Logger     *slog.Logger
	Version    string
}

// Server wires the HTTP routes to the core operations.
type Server struct {
	app        *fiber.App
	config     *config.Config
	db         *sqlite.DB
	dispatcher core.Dispatcher
	scheduler  *scheduler.Scheduler
	clock      clock.Clock
	log        *slog.Logger
	validate   *validator.Validate
	version    string
	started    time.Time
}

// New constructs the Server and registers all routes.
func New(opts Options) *Server {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	s := &Server{
		config:     opts.Config,
		db:         opts.DB,
		dispatcher: opts.Dispatcher,
		scheduler:  opts.Scheduler,
		clock:      clk,
		log:        opts.Logger.With("component", "server"),
		validate:   validator.New(),
		version:    opts.Version,
		started:    clk.Now().UTC(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "alertd",
		ReadTimeout:           opts.Config.Server.ReadTimeout,
		IdleTimeout:           opts.Config.Server.IdleTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: opts.Config.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	s.app.Use(s.observe)

	s.registerRoutes()
	return s
}

// Start begins listening for requests. It blocks until the listener
// stops.
func (s *Server) Start() error {
	addr := s.config.ListenAddr()
	s.log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleError is the fiber fallback for errors no handler translated.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return SendErrorWithType(c, code, err.Error(), models.GeneralErrorType)
}

// observe records request metrics and debug logs after each handler.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	route := c.Route().Path
	metrics.RecordHTTPRequest(c.Method(), route, status, time.Since(start))
	s.log.Debug("request handled", "method", c.Method(), "path", c.Path(), "status", status, "duration", time.Since(start))
	return err
}

func (s *Server) registerRoutes() {
	s.app.Get("/metrics", s.handleMetrics)

	api := s.app.Group("/api/v1")
	api.Get("/health", s.handleHealth)

	alerts := api.Group("/alerts")
	alerts.Post("/", s.handleCreateAlert)
	alerts.Get("/", s.handleListAlerts)
	alerts.Get("/:alertID", s.handleGetAlert)
	alerts.Put("/:alertID", s.handleUpdateAlert)
	alerts.Post("/:alertID/archive", s.handleArchiveAlert)

	users := api.Group("/users")
	users.Post("/", s.handleCreateUser)
	users.Get("/", s.handleListUsers)
	users.Get("/:userID", s.handleGetUser)
	users.Get("/:userID/alerts", s.handleListUserAlerts)
	users.Post("/:userID/alerts/:alertID/read", s.handleMarkAlertRead)
	users.Post("/:userID/alerts/:alertID/unread", s.handleMarkAlertUnread)
	users.Post("/:userID/alerts/:alertID/snooze", s.handleSnoozeAlert)
	users.Get("/:userID/notifications", s.handleListNotifications)

	teams := api.Group("/teams")
	teams.Post("/", s.handleCreateTeam)
	teams.Get("/", s.handleListTeams)
	teams.Get("/:teamID", s.handleGetTeam)
	teams.Get("/:teamID/members", s.handleListTeamMembers)
	teams.Post("/:teamID/members", s.handleAddTeamMember)
	teams.Delete("/:teamID/members/:userID", s.handleRemoveTeamMember)

	api.Get("/analytics/summary", s.handleAnalyticsSummary)

	admin := api.Group("/admin")
	admin.Post("/reminders/tick", s.handleTriggerReminderTick)
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  s.clock.Now().UTC().Sub(s.started).String(),
	})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
	metrics.WritePrometheus(c.Response().BodyWriter())
	return nil
}
