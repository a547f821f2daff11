// Package notify delivers synchronisation outcomes to operator webhooks.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mr-karan/hawkalert/pkg/models"
)

// SyncNotification is a synchronisation outcome ready for delivery.
type SyncNotification struct {
	RequestID  string
	AlertID    models.AlertID
	Operation  string
	Status     models.SyncStatus
	TriggerID  string
	IDFormat   models.TriggerIDFormat
	Error      string
	OccurredAt time.Time
}

// Message is a one-line human readable summary.
func (n SyncNotification) Message() string {
	if n.Status == models.SyncStatusError {
		return fmt.Sprintf("%s of alert %d failed: %s", n.Operation, n.AlertID, n.Error)
	}
	return fmt.Sprintf("%s of alert %d applied to %s", n.Operation, n.AlertID, n.TriggerID)
}

// Sender abstracts the delivery mechanism for sync notifications.
type Sender interface {
	Send(ctx context.Context, notification SyncNotification) error
}

// MultiSender fans a notification out to every sender.
type MultiSender struct {
	senders []Sender
}

// NewMultiSender drops nil senders.
func NewMultiSender(senders ...Sender) MultiSender {
	filtered := make([]Sender, 0, len(senders))
	for _, sender := range senders {
		if sender == nil {
			continue
		}
		filtered = append(filtered, sender)
	}
	return MultiSender{senders: filtered}
}

func (m MultiSender) Send(ctx context.Context, notification SyncNotification) error {
	var errs []string
	for _, sender := range m.senders {
		if err := sender.Send(ctx, notification); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notification delivery failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LogSender writes notifications to the structured log.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogSender{log: log.With("component", "sync_notifier")}
}

func (s *LogSender) Send(ctx context.Context, n SyncNotification) error {
	level := slog.LevelInfo
	if n.Status == models.SyncStatusError {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, n.Message(),
		"alert_id", n.AlertID,
		"operation", n.Operation,
		"trigger_id", n.TriggerID,
		"request_id", n.RequestID)
	return nil
}
