package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mr-karan/hawkalert/internal/config"
	"github.com/mr-karan/hawkalert/internal/ems"
	"github.com/mr-karan/hawkalert/internal/livemetrics"
	"github.com/mr-karan/hawkalert/internal/notify"
	"github.com/mr-karan/hawkalert/internal/sqlite"
	"github.com/mr-karan/hawkalert/internal/triggers"
	"github.com/mr-karan/hawkalert/pkg/models"
)

type stubClient struct {
	existing  map[string]bool
	createErr error
	calls     []string
}

func (s *stubClient) CreateGroupTrigger(context.Context, *models.Trigger) error {
	s.calls = append(s.calls, "create")
	return s.createErr
}

func (s *stubClient) UpdateGroupTrigger(context.Context, *models.Trigger) error {
	s.calls = append(s.calls, "update")
	return nil
}

func (s *stubClient) DeleteGroupTrigger(context.Context, string) error {
	s.calls = append(s.calls, "delete")
	return nil
}

func (s *stubClient) SetGroupConditions(context.Context, string, models.TriggerMode, []models.Condition) error {
	s.calls = append(s.calls, "set_conditions")
	return nil
}

func (s *stubClient) ListTriggers(_ context.Context, ids []string) ([]models.Trigger, error) {
	s.calls = append(s.calls, "list")
	var out []models.Trigger
	for _, id := range ids {
		if s.existing[id] {
			out = append(out, models.Trigger{ID: id})
		}
	}
	return out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T, client *stubClient) (*triggers.Synchronizer, *sqlite.DB) {
	t.Helper()
	provider, err := ems.New[triggers.AlertsClient]("r1", "e1", client)
	if err != nil {
		t.Fatalf("ems.New() error = %v", err)
	}
	registry, err := livemetrics.Default()
	if err != nil {
		t.Fatalf("livemetrics.Default() error = %v", err)
	}
	db, err := sqlite.New(sqlite.Options{
		Logger: quietLogger(),
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "journal.db")},
	})
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return triggers.NewSynchronizer(provider, registry, quietLogger()), db
}

func thresholdAlert(id models.AlertID) *models.AlertDefinition {
	return &models.AlertDefinition{
		ID:          id,
		Description: "Datasource timeouts",
		Enabled:     true,
		BasedOn:     "MiddlewareServer",
		Conditions: models.AlertConditions{
			EvalMethod: models.EvalMethodDSTimedOut,
			Options:    models.AlertOptions{"mw_operator": ">", "value_mw_threshold": "5"},
		},
	}
}

func TestSyncAlert_JournalsOutcome(t *testing.T) {
	client := &stubClient{}
	s, db := setup(t, client)
	ctx := context.Background()
	opts := SyncOptions{Synchronizer: s, Journal: db, JournalLimit: 2, Logger: quietLogger()}

	res, err := SyncAlert(ctx, opts, models.OperationNew, thresholdAlert(42))
	if err != nil {
		t.Fatalf("SyncAlert() error = %v", err)
	}
	if res.TriggerID != "MiQ-region-r1-ems-e1-alert-42" {
		t.Errorf("TriggerID = %q", res.TriggerID)
	}

	client.createErr = errors.New("hawkular down")
	if _, err := SyncAlert(ctx, opts, models.OperationNew, thresholdAlert(42)); err == nil {
		t.Fatal("SyncAlert() expected error, got nil")
	}

	if _, err := SyncAlert(ctx, opts, models.OperationDelete, &models.AlertDefinition{ID: 42}); err != nil {
		t.Fatalf("SyncAlert(delete) error = %v", err)
	}

	entries, err := ListJournal(ctx, db, 42, 0)
	if err != nil {
		t.Fatalf("ListJournal() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("journal has %d entries, want 2 after pruning", len(entries))
	}
	if entries[0].Operation != "delete" || entries[0].IDFormat != models.TriggerIDLegacy || entries[0].Status != models.SyncStatusOK {
		t.Errorf("newest entry = %+v", entries[0])
	}
	if entries[1].Status != models.SyncStatusError || entries[1].Error == "" || entries[1].ConditionCount != 1 {
		t.Errorf("failed entry = %+v", entries[1])
	}
	if entries[1].RequestID == "" {
		t.Error("failed entry has no request id")
	}
}

func TestSyncAlert_Validation(t *testing.T) {
	client := &stubClient{}
	s, _ := setup(t, client)
	opts := SyncOptions{Synchronizer: s}

	tests := []struct {
		name  string
		op    models.Operation
		alert *models.AlertDefinition
		want  error
	}{
		{"zero operation", models.Operation{}, thresholdAlert(1), models.ErrUnknownOperation},
		{"nil alert", models.OperationNew, nil, ErrInvalidAlertDefinition},
		{"zero id", models.OperationDelete, &models.AlertDefinition{}, ErrInvalidAlertDefinition},
		{"missing description", models.OperationUpdate, &models.AlertDefinition{ID: 1, Conditions: thresholdAlert(1).Conditions}, ErrInvalidAlertDefinition},
		{"missing eval method", models.OperationNew, &models.AlertDefinition{ID: 1, Description: "x"}, ErrInvalidAlertDefinition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SyncAlert(context.Background(), opts, tt.op, tt.alert)
			if !errors.Is(err, tt.want) {
				t.Errorf("SyncAlert() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(client.calls) != 0 {
		t.Errorf("invalid requests reached Hawkular: %v", client.calls)
	}
}

func TestPreviewAndResolve(t *testing.T) {
	client := &stubClient{existing: map[string]bool{"MiQ-region-r1-ems-e1-alert-9": true}}
	s, _ := setup(t, client)

	preview, err := PreviewAlert(s, thresholdAlert(9))
	if err != nil {
		t.Fatalf("PreviewAlert() error = %v", err)
	}
	if preview.Trigger == nil || len(preview.Conditions) != 1 {
		t.Errorf("preview = %+v", preview)
	}
	if len(client.calls) != 0 {
		t.Errorf("preview called Hawkular: %v", client.calls)
	}

	res, err := ResolveAlert(context.Background(), s, 9)
	if err != nil {
		t.Fatalf("ResolveAlert() error = %v", err)
	}
	if res.Format != models.TriggerIDCurrent {
		t.Errorf("Format = %s, want current", res.Format)
	}

	if _, err := ResolveAlert(context.Background(), s, 0); !errors.Is(err, ErrInvalidAlertDefinition) {
		t.Errorf("ResolveAlert(0) error = %v", err)
	}
}

type recordingSender struct {
	sent []notify.SyncNotification
}

func (r *recordingSender) Send(_ context.Context, n notify.SyncNotification) error {
	r.sent = append(r.sent, n)
	return errors.New("webhook unreachable")
}

func TestSyncAlert_Notifies(t *testing.T) {
	client := &stubClient{}
	s, _ := setup(t, client)
	sender := &recordingSender{}
	opts := SyncOptions{Synchronizer: s, Notifier: sender, Logger: quietLogger()}
	ctx := context.Background()

	if _, err := SyncAlert(ctx, opts, models.OperationNew, thresholdAlert(5)); err != nil {
		t.Fatalf("SyncAlert() error = %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("successful sync notified without NotifyOnSuccess: %+v", sender.sent)
	}

	client.createErr = errors.New("hawkular down")
	if _, err := SyncAlert(ctx, opts, models.OperationNew, thresholdAlert(5)); err == nil {
		t.Fatal("SyncAlert() expected error")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(sender.sent))
	}
	n := sender.sent[0]
	if n.Status != models.SyncStatusError || n.AlertID != 5 || n.RequestID == "" || n.TriggerID != "MiQ-region-r1-ems-e1-alert-5" {
		t.Errorf("notification = %+v", n)
	}

	client.createErr = nil
	opts.NotifyOnSuccess = true
	if _, err := SyncAlert(ctx, opts, models.OperationNew, thresholdAlert(5)); err != nil {
		t.Fatalf("SyncAlert() error = %v", err)
	}
	if len(sender.sent) != 2 || sender.sent[1].Status != models.SyncStatusOK {
		t.Errorf("notifications = %+v", sender.sent)
	}
}
