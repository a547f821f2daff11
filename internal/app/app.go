package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr-karan/hawkalert/internal/config"
	"github.com/mr-karan/hawkalert/internal/ems"
	"github.com/mr-karan/hawkalert/internal/hawkular"
	"github.com/mr-karan/hawkalert/internal/livemetrics"
	"github.com/mr-karan/hawkalert/internal/notify"
	"github.com/mr-karan/hawkalert/internal/server"
	"github.com/mr-karan/hawkalert/internal/sqlite"
	"github.com/mr-karan/hawkalert/internal/triggers"
	"github.com/mr-karan/hawkalert/pkg/logger"
)

// App holds the wired hawkalert components.
type App struct {
	Config       *config.Config
	SQLite       *sqlite.DB
	Hawkular     *hawkular.Client
	Provider     *ems.Manager[triggers.AlertsClient]
	Synchronizer *triggers.Synchronizer
	// Notifier is nil when no notification sink is configured.
	Notifier     notify.Sender
	Logger       *slog.Logger
	BuildInfo    string
	Version      string
	server       *server.Server
}

// Options contains configuration needed when creating a new App instance.
type Options struct {
	ConfigPath string
	// Config is used instead of loading ConfigPath when set.
	Config    *config.Config
	BuildInfo string
	Version   string
}

// New loads configuration and builds the logger.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	return &App{
		Config:    cfg,
		Logger:    logger.New(cfg.Logging.Level == "debug"),
		BuildInfo: opts.BuildInfo,
		Version:   opts.Version,
	}, nil
}

// Initialize opens the journal, applies stored runtime settings and wires the
// Hawkular client, provider and synchronizer.
func (a *App) Initialize(ctx context.Context, withJournal bool) error {
	if withJournal {
		db, err := sqlite.New(sqlite.Options{Config: a.Config.SQLite, Logger: a.Logger})
		if err != nil {
			return fmt.Errorf("failed to initialize sqlite: %w", err)
		}
		a.SQLite = db

		if err := a.seedSystemSettings(ctx); err != nil {
			a.Logger.Warn("failed to seed runtime settings", "error", err)
		}
		a.Config = config.LoadRuntimeConfig(ctx, a.Config, a.SQLite)
		a.Logger = logger.New(a.Config.Logging.Level == "debug")
	}

	registry, err := livemetrics.Load(a.Config.Metrics.LiveMetricsFile)
	if err != nil {
		return fmt.Errorf("failed to load live metrics: %w", err)
	}
	if len(a.Config.Metrics.Overrides) > 0 {
		registry = registry.WithOverrides(a.Config.Metrics.Overrides)
	}

	hc := a.Config.Hawkular
	a.Hawkular, err = hawkular.NewClient(hawkular.ClientOptions{
		BaseURL:       hc.BaseURL,
		Tenant:        hc.Tenant,
		Username:      hc.Username,
		Password:      hc.Password,
		Token:         hc.Token,
		Timeout:       hc.Timeout,
		SkipTLSVerify: hc.SkipTLSVerify,
		Logger:        a.Logger,
		MaxRetries:    hc.MaxRetries,
		RetryDelay:    hc.RetryDelay,
		RateLimit:     hc.RateLimit,
		RateBurst:     hc.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("failed to create hawkular client: %w", err)
	}

	a.Provider, err = ems.New[triggers.AlertsClient](a.Config.EMS.RegionGUID, a.Config.EMS.GUID, a.Hawkular)
	if err != nil {
		return fmt.Errorf("failed to configure ems: %w", err)
	}
	a.Synchronizer = triggers.NewSynchronizer(a.Provider, registry, a.Logger)
	a.Notifier = a.buildNotifier()

	a.Logger.Debug("hawkalert initialized",
		"hawkular", hc.BaseURL,
		"tenant", hc.Tenant,
		"namespace", a.Provider.Prefix(),
		"journal", withJournal)
	return nil
}

// Start builds the HTTP server and blocks serving it.
func (a *App) Start() error {
	if a.Synchronizer == nil {
		return fmt.Errorf("app not initialized")
	}
	opts := server.ServerOptions{
		Config:       a.Config,
		Synchronizer: a.Synchronizer,
		Notifier:     a.Notifier,
		Hawkular:     a.Hawkular,
		Logger:       a.Logger,
		BuildInfo:    a.BuildInfo,
		Version:      a.Version,
	}
	if a.SQLite != nil {
		opts.Journal = a.SQLite
		opts.Settings = a.SQLite
	}
	a.server = server.New(opts)
	a.Logger.Info("starting server")
	return a.server.Start()
}

// Shutdown gracefully stops the HTTP server and closes the journal.
//
//nolint:contextcheck // Shutdown receives its own context from caller (e.g., signal handler)
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if a.server != nil {
		serverCtx, serverCancel := context.WithTimeout(ctx, 5*time.Second)
		defer serverCancel()

		serverDone := make(chan error, 1)
		go func() {
			serverDone <- a.server.Shutdown(serverCtx)
		}()

		select {
		case err := <-serverDone:
			if err != nil {
				a.Logger.Error("error shutting down server", "error", err)
			} else {
				a.Logger.Info("HTTP server shut down successfully")
			}
		case <-serverCtx.Done():
			a.Logger.Warn("timeout shutting down HTTP server, continuing")
		}
	}

	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			a.Logger.Error("error closing SQLite", "error", err)
		}
	}

	a.Logger.Info("application shutdown complete")
	return nil
}

func (a *App) buildNotifier() notify.Sender {
	nc := a.Config.Notify
	if !nc.Enabled() {
		return nil
	}
	var senders []notify.Sender
	if nc.Log {
		senders = append(senders, notify.NewLogSender(a.Logger))
	}
	if len(nc.WebhookURLs) > 0 {
		senders = append(senders, notify.NewWebhookSender(notify.WebhookSenderOptions{
			URLs:          nc.WebhookURLs,
			Timeout:       nc.Timeout,
			SkipTLSVerify: nc.SkipTLSVerify,
			Logger:        a.Logger,
		}))
	}
	return notify.NewMultiSender(senders...)
}

// seedSystemSettings stores the config file values of every runtime setting on first boot.
func (a *App) seedSystemSettings(ctx context.Context) error {
	settings, err := a.SQLite.ListSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing settings: %w", err)
	}
	if len(settings) > 0 {
		a.Logger.Debug("runtime settings already exist, skipping seeding")
		return nil
	}

	for _, rs := range config.RuntimeSettings {
		value, ok := a.Config.RuntimeValue(rs.Key)
		if !ok {
			continue
		}
		if err := a.SQLite.UpsertSetting(ctx, rs.Key, value, rs.ValueType, rs.Description); err != nil {
			a.Logger.Warn("failed to seed runtime setting", "key", rs.Key, "error", err)
		}
	}
	a.Logger.Info("seeded runtime settings from config (first boot)")
	return nil
}
