// Package app wires the alerting service together: configuration, logger,
// storage, dispatcher, reminder scheduler and HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dikshakatiyar/alerting-system/internal/config"
	"github.com/dikshakatiyar/alerting-system/internal/dispatch"
	"github.com/dikshakatiyar/alerting-system/internal/scheduler"
	"github.com/dikshakatiyar/alerting-system/internal/server"
	"github.com/dikshakatiyar/alerting-system/internal/sqlite"
	"github.com/dikshakatiyar/alerting-system/pkg/logger"
)

// App holds the application's components and configuration.
type App struct {
	Config     *config.Config
	DB         *sqlite.DB
	Logger     *slog.Logger
	Clock      clock.Clock
	Dispatcher *dispatch.Dispatcher
	Scheduler  *scheduler.Scheduler
	server     *server.Server
	Version    string
}

// Options contains configuration needed when creating a new App instance.
type Options struct {
	ConfigPath string
	Version    string
	// Clock overrides the wall clock; nil means real time.
	Clock clock.Clock
}

// New loads configuration and builds the logger. Component construction
// happens in Initialize so callers can fail fast on bad config alone.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &App{
		Config:  cfg,
		Logger:  logger.New(cfg.Logging.Level == "debug"),
		Clock:   clk,
		Version: opts.Version,
	}, nil
}

// Initialize sets up storage, the notification dispatcher, the reminder
// scheduler and the HTTP server, then starts the scheduler's runner.
func (a *App) Initialize(ctx context.Context) error {
	db, err := sqlite.New(sqlite.Options{
		Config: a.Config.SQLite,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite: %w", err)
	}
	a.DB = db

	a.Dispatcher, err = dispatch.New(dispatch.Options{
		DB:       a.DB,
		Clock:    a.Clock,
		Logger:   a.Logger,
		Channels: a.Config.Channels,
		Timeout:  a.Config.Reminders.DispatchTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	a.Scheduler = scheduler.New(scheduler.Options{
		Config:     a.Config.Reminders,
		DB:         a.DB,
		Dispatcher: a.Dispatcher,
		Clock:      a.Clock,
		Logger:     a.Logger,
	})

	a.server = server.New(server.Options{
		Config:     a.Config,
		DB:         a.DB,
		Dispatcher: a.Dispatcher,
		Scheduler:  a.Scheduler,
		Clock:      a.Clock,
		Logger:     a.Logger,
		Version:    a.Version,
	})

	a.Scheduler.Start(ctx)
	return nil
}

// Start begins serving HTTP requests. It blocks until the listener stops.
func (a *App) Start() error {
	if a.server == nil {
		return fmt.Errorf("server not initialized")
	}
	return a.server.Start()
}

// Shutdown stops the components in dependency order: HTTP server first so
// no new work arrives, then the scheduler, then in-flight deliveries, and
// finally the database.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if a.server != nil {
		serverCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		serverDone := make(chan error, 1)
		go func() {
			serverDone <- a.server.Shutdown(serverCtx)
		}()
		select {
		case err := <-serverDone:
			if err != nil {
				a.Logger.Error("error shutting down http server", "error", err)
			}
		case <-serverCtx.Done():
			a.Logger.Warn("timeout shutting down http server, continuing")
		}
		cancel()
	}

	if a.Scheduler != nil {
		a.Logger.Info("stopping reminder scheduler")
		a.Scheduler.Stop()
	}

	if a.Dispatcher != nil {
		a.Logger.Info("draining in-flight deliveries")
		drained := make(chan struct{})
		go func() {
			a.Dispatcher.Drain()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			a.Logger.Warn("timeout draining deliveries, continuing")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("error closing database", "error", err)
		}
	}

	a.Logger.Info("application shutdown complete")
	return nil
}
