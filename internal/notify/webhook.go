package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type WebhookSenderOptions struct {
	URLs          []string
	Timeout       time.Duration
	SkipTLSVerify bool
	Logger        *slog.Logger
}

// WebhookSender POSTs notifications as JSON to a fixed set of URLs.
type WebhookSender struct {
	urls   []string
	client *http.Client
	logger *slog.Logger
}

type webhookPayload struct {
	RequestID  string    `json:"request_id,omitempty"`
	AlertID    int64     `json:"alert_id"`
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	TriggerID  string    `json:"trigger_id,omitempty"`
	IDFormat   string    `json:"id_format,omitempty"`
	Error      string    `json:"error,omitempty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewWebhookSender(opts WebhookSenderOptions) *WebhookSender {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.SkipTLSVerify}, // #nosec G402
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookSender{
		urls:   opts.URLs,
		client: &http.Client{Timeout: timeout, Transport: transport},
		logger: logger.With("component", "sync_webhook_sender"),
	}
}

func (s *WebhookSender) Send(ctx context.Context, notification SyncNotification) error {
	if len(s.urls) == 0 {
		return nil
	}
	payload := webhookPayload{
		RequestID:  notification.RequestID,
		AlertID:    int64(notification.AlertID),
		Operation:  notification.Operation,
		Status:     string(notification.Status),
		TriggerID:  notification.TriggerID,
		IDFormat:   string(notification.IDFormat),
		Error:      notification.Error,
		Message:    notification.Message(),
		OccurredAt: notification.OccurredAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var errs []string
	for _, url := range s.urls {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", url, err))
			continue
		}
		request.Header.Set("Content-Type", "application/json")
		response, err := s.client.Do(request)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", url, err))
			continue
		}
		responseBody, readErr := io.ReadAll(response.Body)
		_ = response.Body.Close()
		if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
			if readErr != nil {
				errs = append(errs, fmt.Sprintf("%s: status %d (body read error: %v)", url, response.StatusCode, readErr))
				continue
			}
			trimmed := strings.TrimSpace(string(responseBody))
			if trimmed == "" {
				trimmed = response.Status
			}
			errs = append(errs, fmt.Sprintf("%s: status %d (%s)", url, response.StatusCode, trimmed))
			continue
		}
		s.logger.Debug("sync notification delivered", "url", url, "alert_id", notification.AlertID)
	}
	if len(errs) > 0 {
		return fmt.Errorf("webhook delivery failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
