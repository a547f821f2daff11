// Package commands provides the CLI command definitions for hawkalert.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/mr-karan/hawkalert/internal/app"
	"github.com/mr-karan/hawkalert/internal/config"
)

// Styles for CLI output
var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// App holds the shared application state
type App struct {
	Config     *config.Config
	Version    string
	Commit     string
	Date       string
	configPath string
	debug      bool
	noColor    bool
}

// New creates the root CLI command with all subcommands
func New(version, commit, date string) *cli.Command {
	a := &App{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	return &cli.Command{
		Name:    "hawkalert",
		Usage:   "Translate alert definitions into Hawkular Alerts group triggers",
		Version: version,
		Description: `hawkalert keeps Hawkular Alerts group triggers in sync with alert definitions.

   Run 'hawkalert serve' to expose the HTTP API, or use 'hawkalert sync',
   'hawkalert preview' and 'hawkalert resolve' directly from a shell.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("HAWKALERT_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			a.debug = cmd.Bool("debug")
			if a.debug {
				log.SetLevel(log.DebugLevel)
			}
			if cmd.Bool("no-color") {
				a.noColor = true
				log.SetStyles(log.DefaultStyles())
				lipgloss.SetHasDarkBackground(false)
			}
			a.configPath = cmd.String("config")
			return ctx, nil
		},
		Commands: []*cli.Command{
			a.serveCommand(),
			a.syncCommand(),
			a.previewCommand(),
			a.resolveCommand(),
			a.journalCommand(),
			a.versionCommand(),
		},
	}
}

// isTerminal returns true if stdout is a terminal
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// loadConfig reads the config file on first use so that commands like version
// work without a complete configuration.
func (a *App) loadConfig() (*config.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if a.debug {
		cfg.Logging.Level = "debug"
	}
	a.Config = cfg
	return cfg, nil
}

// newApp wires the application. The journal is only opened when withJournal is set.
func (a *App) newApp(ctx context.Context, withJournal bool) (*app.App, error) {
	if _, err := a.loadConfig(); err != nil {
		return nil, err
	}
	application, err := app.New(app.Options{
		Config:    a.Config,
		Version:   a.Version,
		BuildInfo: fmt.Sprintf("%s (%s)", a.Commit, a.Date),
	})
	if err != nil {
		return nil, err
	}
	if err := application.Initialize(ctx, withJournal); err != nil {
		if application.SQLite != nil {
			application.SQLite.Close()
		}
		return nil, err
	}
	return application, nil
}

// serveCommand runs the HTTP API until interrupted.
func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the hawkalert HTTP API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := a.newApp(ctx, true)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- application.Start()
			}()

			select {
			case err = <-errCh:
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if shutdownErr := application.Shutdown(shutdownCtx); shutdownErr != nil {
				err = errors.Join(err, shutdownErr)
			}
			return err
		},
	}
}

// versionCommand shows version information
func (a *App) versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("%s version %s\n", logoStyle.Render("hawkalert"), a.Version)
			fmt.Printf("  commit: %s\n", mutedStyle.Render(a.Commit))
			fmt.Printf("  built:  %s\n", mutedStyle.Render(a.Date))
			return nil
		},
	}
}
