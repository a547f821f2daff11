package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/mr-karan/hawkalert/internal/alertexpr"
	"github.com/mr-karan/hawkalert/internal/app"
	"github.com/mr-karan/hawkalert/internal/cli/render"
	"github.com/mr-karan/hawkalert/internal/core"
	"github.com/mr-karan/hawkalert/pkg/models"
)

// errAborted is returned when the user declines a delete confirmation.
var errAborted = errors.New("aborted")

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output format: text, table, json",
		Value:   "text",
	}
}

func alertFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "alert definition as JSON or YAML ('-' reads stdin)",
		},
		&cli.Int64Flag{
			Name:  "id",
			Usage: "alert id",
		},
		&cli.StringFlag{
			Name:    "expr",
			Aliases: []string{"e"},
			Usage:   "condition expression, e.g. 'mw_heap_used > 80% < 20%'",
		},
		&cli.StringFlag{
			Name:    "description",
			Aliases: []string{"d"},
			Usage:   "alert description",
		},
		&cli.StringFlag{
			Name:  "based-on",
			Usage: "resource type the alert applies to",
			Value: "MiddlewareServer",
		},
		&cli.BoolFlag{
			Name:  "enabled",
			Usage: "whether the trigger fires",
			Value: true,
		},
	}
}

func (a *App) renderer(cmd *cli.Command) (*render.Renderer, error) {
	return render.New(render.Options{
		Format: cmd.String("output"),
		Color:  !a.noColor && isTerminal(),
	})
}

// syncCommand pushes one alert operation to Hawkular.
func (a *App) syncCommand() *cli.Command {
	flags := append(alertFlags(),
		&cli.StringFlag{
			Name:     "op",
			Usage:    "operation: new, update, delete",
			Required: true,
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "skip the delete confirmation",
		},
		&cli.BoolFlag{
			Name:  "no-journal",
			Usage: "do not record the outcome in the sync journal",
		},
		outputFlag(),
	)

	return &cli.Command{
		Name:  "sync",
		Usage: "create, update or delete the Hawkular trigger of an alert",
		Description: `Translate an alert and apply it to Hawkular Alerts.

Examples:
   hawkalert sync --op new --id 42 -d "Heap usage" -e 'mw_heap_used > 80% < 20%'
   hawkalert sync --op update -f alert.yaml
   hawkalert sync --op delete --id 42 --yes`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			op, err := models.ParseOperation(cmd.String("op"))
			if err != nil {
				return err
			}

			alert, err := alertFromFlags(cmd, op == models.OperationDelete)
			if err != nil {
				return err
			}

			if op == models.OperationDelete && !cmd.Bool("yes") {
				if err := confirmDelete(alert.ID); err != nil {
					return err
				}
			}

			application, err := a.newApp(ctx, !cmd.Bool("no-journal"))
			if err != nil {
				return err
			}
			defer application.Shutdown(context.Background())

			result, err := core.SyncAlert(ctx, syncOptions(application), op, alert)
			if err != nil {
				return err
			}

			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}
			if err := r.Result(result); err != nil {
				return err
			}
			if cmd.String("output") != "json" {
				fmt.Fprintln(os.Stderr, successStyle.Render(fmt.Sprintf("✓ %s applied to %s", op, result.TriggerID)))
			}
			return nil
		},
	}
}

// previewCommand renders the trigger an alert translates to without contacting Hawkular.
func (a *App) previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "show the trigger and conditions an alert translates to",
		Flags: append(alertFlags(), outputFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			alert, err := alertFromFlags(cmd, false)
			if err != nil {
				return err
			}
			if alert.ID == 0 {
				// Preview does not need a real id, only a well-formed one.
				alert.ID = 1
			}

			application, err := a.newApp(ctx, false)
			if err != nil {
				return err
			}

			result, err := core.PreviewAlert(application.Synchronizer, alert)
			if err != nil {
				return err
			}
			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}
			return r.Result(result)
		},
	}
}

// resolveCommand looks up the remote trigger id of an alert.
func (a *App) resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "resolve the Hawkular trigger id of an alert",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "id",
				Usage:    "alert id",
				Required: true,
			},
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := a.newApp(ctx, false)
			if err != nil {
				return err
			}

			res, err := core.ResolveAlert(ctx, application.Synchronizer, models.AlertID(cmd.Int64("id")))
			if err != nil {
				return err
			}
			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}
			return r.Resolution(res)
		},
	}
}

// journalCommand lists recorded synchronisations of an alert.
func (a *App) journalCommand() *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "show the sync journal of an alert",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "id",
				Usage:    "alert id",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "maximum number of entries",
				Value:   models.DefaultJournalLimit,
			},
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := a.newApp(ctx, true)
			if err != nil {
				return err
			}
			defer application.Shutdown(context.Background())

			entries, err := core.ListJournal(ctx, application.SQLite, models.AlertID(cmd.Int64("id")), cmd.Int("limit"))
			if err != nil {
				return err
			}
			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}
			return r.Journal(entries)
		},
	}
}

func syncOptions(application *app.App) core.SyncOptions {
	opts := core.SyncOptions{
		Synchronizer:    application.Synchronizer,
		JournalLimit:    application.Config.SQLite.JournalLimit,
		Notifier:        application.Notifier,
		NotifyOnSuccess: application.Config.Notify.OnSuccess,
		Logger:          application.Logger,
	}
	if application.SQLite != nil {
		opts.Journal = application.SQLite
	}
	return opts
}

// alertFromFlags builds an alert from --file, or from --id/--expr/--description.
// idOnly accepts an alert with nothing but an id, as delete needs.
func alertFromFlags(cmd *cli.Command, idOnly bool) (*models.AlertDefinition, error) {
	if path := cmd.String("file"); path != "" {
		alert, err := readAlertFile(path)
		if err != nil {
			return nil, err
		}
		if id := cmd.Int64("id"); id != 0 {
			alert.ID = models.AlertID(id)
		}
		return alert, nil
	}

	alert := &models.AlertDefinition{
		ID:          models.AlertID(cmd.Int64("id")),
		Description: cmd.String("description"),
		Enabled:     cmd.Bool("enabled"),
		BasedOn:     cmd.String("based-on"),
	}
	expr := cmd.String("expr")
	if expr == "" {
		if idOnly {
			return alert, nil
		}
		return nil, errors.New("either --file or --expr is required")
	}
	conds, err := alertexpr.Parse(expr)
	if err != nil {
		return nil, err
	}
	alert.Conditions = conds
	return alert, nil
}

// readAlertFile decodes a JSON or YAML alert definition. YAML documents are
// re-encoded as JSON so both formats share the json field names.
func readAlertFile(path string) (*models.AlertDefinition, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read alert file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" || (path == "-" && !json.Valid(data)) {
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse alert file: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("failed to parse alert file: %w", err)
		}
	}

	var alert models.AlertDefinition
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, fmt.Errorf("failed to parse alert file: %w", err)
	}
	return &alert, nil
}

// confirmDelete asks before removing a trigger. Non-interactive sessions must pass --yes.
func confirmDelete(id models.AlertID) error {
	if !isTerminal() {
		return errors.New("refusing to delete without --yes in a non-interactive session")
	}
	var confirmed bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Delete the Hawkular trigger of alert %d?", id)).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&confirmed).
		Run()
	if err != nil {
		return err
	}
	if !confirmed {
		return errAborted
	}
	return nil
}
