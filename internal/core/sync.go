package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mr-karan/hawkalert/internal/metrics"
	"github.com/mr-karan/hawkalert/internal/notify"
	"github.com/mr-karan/hawkalert/internal/triggers"
	"github.com/mr-karan/hawkalert/pkg/models"
)

var (
	// ErrInvalidAlertDefinition indicates the alert payload failed validation.
	ErrInvalidAlertDefinition = errors.New("invalid alert definition")
)

// Journal records synchronisation attempts.
type Journal interface {
	InsertSyncJournal(ctx context.Context, entry *models.SyncJournalEntry) error
	ListSyncJournal(ctx context.Context, alertID string, limit int) ([]models.SyncJournalEntry, error)
	PruneSyncJournal(ctx context.Context, alertID string, keep int) (int64, error)
}

// SyncOptions carries the collaborators of SyncAlert. Journal and Notifier may be nil.
type SyncOptions struct {
	Synchronizer    *triggers.Synchronizer
	Journal         Journal
	JournalLimit    int
	Notifier        notify.Sender
	NotifyOnSuccess bool
	Logger          *slog.Logger
}

func validateAlert(op models.Operation, alert *models.AlertDefinition) error {
	if alert == nil {
		return fmt.Errorf("%w: alert is required", ErrInvalidAlertDefinition)
	}
	if alert.ID <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidAlertDefinition)
	}
	if op == models.OperationDelete {
		return nil
	}
	if strings.TrimSpace(alert.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidAlertDefinition)
	}
	if alert.Conditions.EvalMethod == "" {
		return fmt.Errorf("%w: conditions.eval_method is required", ErrInvalidAlertDefinition)
	}
	return nil
}

// SyncAlert pushes op for alert to Hawkular and journals the outcome.
// Journal failures are logged and never fail the sync.
func SyncAlert(ctx context.Context, opts SyncOptions, op models.Operation, alert *models.AlertDefinition) (*models.SyncResult, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownOperation, op)
	}
	if err := validateAlert(op, alert); err != nil {
		return nil, err
	}

	result, err := opts.Synchronizer.Process(ctx, op, alert)
	metrics.RecordSync(op.String(), err == nil)
	if err != nil {
		log.Error("alert sync failed", "alert_id", alert.ID, "operation", op.String(), "error", err)
	}

	if opts.Journal != nil {
		recordJournal(ctx, opts, log, op, alert.ID, result, err)
	}
	if opts.Notifier != nil && (err != nil || opts.NotifyOnSuccess) {
		sendNotification(ctx, opts.Notifier, log, op, alert.ID, result, err)
	}
	return result, err
}

func sendNotification(ctx context.Context, sender notify.Sender, log *slog.Logger, op models.Operation, alertID models.AlertID, result *models.SyncResult, syncErr error) {
	n := notify.SyncNotification{
		AlertID:    alertID,
		Operation:  op.String(),
		Status:     models.SyncStatusOK,
		OccurredAt: time.Now().UTC(),
	}
	if result != nil {
		n.RequestID = result.RequestID
		n.TriggerID = result.TriggerID
		n.IDFormat = result.IDFormat
	}
	if syncErr != nil {
		n.Status = models.SyncStatusError
		n.Error = syncErr.Error()
	}
	// The request context may already be cancelled when the sync itself failed on it.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := sender.Send(sendCtx, n); err != nil {
		log.Warn("failed to deliver sync notification", "alert_id", alertID, "error", err)
	}
}

func recordJournal(ctx context.Context, opts SyncOptions, log *slog.Logger, op models.Operation, alertID models.AlertID, result *models.SyncResult, syncErr error) {
	entry := &models.SyncJournalEntry{
		AlertID:   strconv.FormatInt(int64(alertID), 10),
		Operation: op.String(),
		Status:    models.SyncStatusOK,
	}
	if result != nil {
		entry.RequestID = result.RequestID
		entry.TriggerID = result.TriggerID
		entry.IDFormat = result.IDFormat
		entry.ConditionCount = len(result.Conditions)
	}
	if syncErr != nil {
		entry.Status = models.SyncStatusError
		entry.Error = syncErr.Error()
	}

	if err := opts.Journal.InsertSyncJournal(ctx, entry); err != nil {
		log.Warn("failed to record sync journal entry", "alert_id", entry.AlertID, "error", err)
		return
	}
	if opts.JournalLimit > 0 {
		if n, err := opts.Journal.PruneSyncJournal(ctx, entry.AlertID, opts.JournalLimit); err != nil {
			log.Warn("failed to prune sync journal", "alert_id", entry.AlertID, "error", err)
		} else if n > 0 {
			log.Debug("pruned sync journal", "alert_id", entry.AlertID, "removed", n)
		}
	}
}

// PreviewAlert returns the trigger and conditions a new operation would send.
func PreviewAlert(s *triggers.Synchronizer, alert *models.AlertDefinition) (*models.SyncResult, error) {
	if err := validateAlert(models.OperationNew, alert); err != nil {
		return nil, err
	}
	return s.Preview(alert)
}

// ResolveAlert resolves the remote trigger id of an alert.
func ResolveAlert(ctx context.Context, s *triggers.Synchronizer, alertID models.AlertID) (models.TriggerResolution, error) {
	if alertID <= 0 {
		return models.TriggerResolution{}, fmt.Errorf("%w: id must be positive", ErrInvalidAlertDefinition)
	}
	return s.Resolve(ctx, alertID)
}

// ListJournal returns the recent sync journal of an alert.
func ListJournal(ctx context.Context, journal Journal, alertID models.AlertID, limit int) ([]models.SyncJournalEntry, error) {
	if limit <= 0 {
		limit = models.DefaultJournalLimit
	}
	return journal.ListSyncJournal(ctx, strconv.FormatInt(int64(alertID), 10), limit)
}
