// Package render provides output rendering for the hawkalert CLI.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mr-karan/hawkalert/pkg/models"
)

// Options configures the renderer
type Options struct {
	Format string    // text, table, json
	Color  bool      // Enable colored output
	Out    io.Writer // Defaults to stdout
}

// Renderer renders synchronisation outcomes.
type Renderer struct {
	opts Options
	out  io.Writer
}

// New creates a new renderer
func New(opts Options) (*Renderer, error) {
	switch opts.Format {
	case "":
		opts.Format = "text"
	case "text", "table", "json":
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: text, table, json)", opts.Format)
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{opts: opts, out: out}, nil
}

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.opts.Color {
		return text
	}
	return s.Render(text)
}

// Result renders a sync or preview result: a summary followed by the conditions.
func (r *Renderer) Result(res *models.SyncResult) error {
	if r.opts.Format == "json" {
		return r.renderJSON(res)
	}

	op := "preview"
	if res.Operation.Valid() {
		op = res.Operation.String()
	}
	r.field("operation", op)
	if res.RequestID != "" {
		r.field("request_id", res.RequestID)
	}
	r.field("trigger_id", res.TriggerID)
	if res.IDFormat != "" {
		r.field("id_format", r.formatIDFormat(res.IDFormat))
	}
	if t := res.Trigger; t != nil {
		r.field("name", t.Name)
		r.field("enabled", strconv.FormatBool(t.Enabled))
		r.field("firing_match", string(t.FiringMatch))
		if v, ok := t.Context[models.ContextMetricType]; ok {
			r.field("metric_type", v)
		}
	}
	if len(res.Conditions) == 0 {
		return nil
	}
	fmt.Fprintln(r.out)
	return r.Conditions(res.Conditions)
}

// Conditions renders trigger conditions as a table, or one per line in text mode.
func (r *Renderer) Conditions(conds []models.Condition) error {
	if r.opts.Format == "json" {
		return r.renderJSON(conds)
	}

	headers := []string{"type", "data_id", "operator", "threshold", "data2_id", "multiplier"}
	rows := make([][]string, len(conds))
	for i, c := range conds {
		rows[i] = []string{string(c.Type), c.DataID, string(c.Operator), formatFloat(c.Threshold), c.Data2ID, formatFloat(c.Data2Multiplier)}
	}

	if r.opts.Format == "text" {
		for _, c := range conds {
			switch c.Type {
			case models.ConditionTypeCompare:
				fmt.Fprintf(r.out, "%s %s %s %s * %s\n", c.Type, c.DataID, c.Operator, c.Data2ID, formatFloat(c.Data2Multiplier))
			default:
				fmt.Fprintf(r.out, "%s %s %s %s\n", c.Type, c.DataID, c.Operator, formatFloat(c.Threshold))
			}
		}
		return nil
	}
	return r.renderTable(headers, rows)
}

// Resolution renders a trigger id resolution.
func (r *Renderer) Resolution(res models.TriggerResolution) error {
	if r.opts.Format == "json" {
		return r.renderJSON(res)
	}
	r.field("alert_id", res.AlertID)
	r.field("trigger_id", res.TriggerID)
	r.field("format", r.formatIDFormat(res.Format))
	if res.Format == models.TriggerIDLegacy {
		r.field("candidate", res.Candidate)
	}
	return nil
}

// Journal renders sync journal entries, newest first.
func (r *Renderer) Journal(entries []models.SyncJournalEntry) error {
	if r.opts.Format == "json" {
		return r.renderJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No journal entries found.")
		return nil
	}

	headers := []string{"when", "operation", "status", "trigger_id", "format", "conditions", "error"}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			formatRelativeTime(e.CreatedAt),
			e.Operation,
			string(e.Status),
			e.TriggerID,
			string(e.IDFormat),
			strconv.Itoa(e.ConditionCount),
			truncate(e.Error, 60),
		}
	}

	if r.opts.Format == "text" {
		for i, e := range entries {
			status := r.style(okStyle, string(e.Status))
			if e.Status == models.SyncStatusError {
				status = r.style(errorStyle, string(e.Status))
			}
			line := fmt.Sprintf("%s %s %s %s", r.style(dimStyle, rows[i][0]), e.Operation, status, e.TriggerID)
			if e.Error != "" {
				line += " " + rows[i][6]
			}
			fmt.Fprintln(r.out, line)
		}
		return nil
	}
	return r.renderTable(headers, rows)
}

func (r *Renderer) field(key, value string) {
	fmt.Fprintf(r.out, "%s %s\n", r.style(keyStyle, key+":"), value)
}

func (r *Renderer) formatIDFormat(f models.TriggerIDFormat) string {
	if f == models.TriggerIDLegacy {
		return r.style(warnStyle, string(f))
	}
	return string(f)
}

func (r *Renderer) renderJSON(v any) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *Renderer) renderTable(headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers(headers...).
		Rows(rows...)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252"))
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if row%2 == 0 {
			return lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	})

	_, err := fmt.Fprintln(r.out, t.Render())
	return err
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
