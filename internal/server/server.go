// Package server exposes the hawkalert HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/mr-karan/hawkalert/internal/config"
	"github.com/mr-karan/hawkalert/internal/core"
	"github.com/mr-karan/hawkalert/internal/notify"
	"github.com/mr-karan/hawkalert/internal/sqlite"
	"github.com/mr-karan/hawkalert/internal/triggers"
	"github.com/mr-karan/hawkalert/pkg/models"
)

// HealthChecker reports whether Hawkular Alerts is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SettingsStore persists runtime settings.
type SettingsStore interface {
	ListSettings(ctx context.Context) ([]sqlite.Setting, error)
	UpsertSetting(ctx context.Context, key, value, valueType, description string) error
	DeleteSetting(ctx context.Context, key string) error
}

// ServerOptions holds the dependencies of the HTTP server.
type ServerOptions struct {
	Config       *config.Config
	Synchronizer *triggers.Synchronizer
	Journal      core.Journal
	Notifier     notify.Sender
	Settings     SettingsStore
	Hawkular     HealthChecker
	Logger       *slog.Logger
	BuildInfo    string
	Version      string
}

// Server is the hawkalert HTTP API.
type Server struct {
	app       *fiber.App
	config    *config.Config
	sync      *triggers.Synchronizer
	journal   core.Journal
	notifier  notify.Sender
	settings  SettingsStore
	hawkular  HealthChecker
	log       *slog.Logger
	buildInfo string
	version   string
}

// New builds the fiber app and registers every route.
func New(opts ServerOptions) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	timeout := opts.Config.Server.HTTPServerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		config:    opts.Config,
		sync:      opts.Synchronizer,
		journal:   opts.Journal,
		notifier:  opts.Notifier,
		settings:  opts.Settings,
		hawkular:  opts.Hawkular,
		log:       log.With("component", "server"),
		buildInfo: opts.BuildInfo,
		version:   opts.Version,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "hawkalert",
		DisableStartupMessage: true,
		ReadTimeout:           timeout,
		WriteTimeout:          timeout,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.requestLogger)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", s.handleMetrics)

	api := s.app.Group("/api/v1")
	api.Get("/meta", s.handleGetMeta)

	alerts := api.Group("/alerts")
	alerts.Post("/sync", s.handleSyncAlert)
	alerts.Post("/preview", s.handlePreviewAlert)
	alerts.Get("/:alertID/trigger-id", s.handleResolveTriggerID)
	alerts.Get("/:alertID/journal", s.handleListJournal)

	api.Get("/settings", s.handleListSettings)
	api.Put("/settings/:key", s.handleUpdateSetting)
	api.Delete("/settings/:key", s.handleDeleteSetting)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID))
	return err
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		errType := models.GeneralErrorType
		switch fe.Code {
		case fiber.StatusBadRequest:
			errType = models.ValidationErrorType
		case fiber.StatusNotFound:
			errType = models.NotFoundErrorType
		}
		return SendErrorWithType(c, fe.Code, fe.Message, errType)
	}
	s.log.Error("unhandled request error", "path", c.Path(), "error", err)
	return SendError(c, fiber.StatusInternalServerError, "internal server error")
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.log.Info("http server listening", "address", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
