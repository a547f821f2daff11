package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-karan/hawkalert/internal/config"
	"github.com/mr-karan/hawkalert/internal/ems"
	"github.com/mr-karan/hawkalert/internal/hawkular"
	"github.com/mr-karan/hawkalert/internal/livemetrics"
	"github.com/mr-karan/hawkalert/internal/sqlite"
	"github.com/mr-karan/hawkalert/internal/triggers"
	"github.com/mr-karan/hawkalert/pkg/models"
)

type stubClient struct {
	existing  map[string]bool
	deleteErr error
	calls     []string
}

func (s *stubClient) CreateGroupTrigger(context.Context, *models.Trigger) error {
	s.calls = append(s.calls, "create")
	return nil
}

func (s *stubClient) UpdateGroupTrigger(context.Context, *models.Trigger) error {
	s.calls = append(s.calls, "update")
	return nil
}

func (s *stubClient) DeleteGroupTrigger(context.Context, string) error {
	s.calls = append(s.calls, "delete")
	return s.deleteErr
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

type healthFunc func(context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, client *stubClient, health HealthChecker) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.EMS = config.EMSConfig{RegionGUID: "r1", GUID: "e1"}

	provider, err := ems.New[triggers.AlertsClient]("r1", "e1", client)
	if err != nil {
		t.Fatalf("ems.New() error = %v", err)
	}
	registry, err := livemetrics.Default()
	if err != nil {
		t.Fatalf("livemetrics.Default() error = %v", err)
	}
	db, err := sqlite.New(sqlite.Options{
		Logger: logger,
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "journal.db")},
	})
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(ServerOptions{
		Config:       cfg,
		Synchronizer: triggers.NewSynchronizer(provider, registry, logger),
		Journal:      db,
		Settings:     db,
		Hawkular:     health,
		Logger:       logger,
		Version:      "test",
	})
}

type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, s *Server, method, path, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return resp.StatusCode, env
}

const syncBody = `{
	"operation": "new",
	"alert": {
		"id": 42,
		"description": "Datasource timeouts",
		"enabled": true,
		"based_on": "MiddlewareServer",
		"conditions": {"eval_method": "mw_ds_timed_out", "options": {"mw_operator": ">", "value_mw_threshold": 5}}
	}
}`

func TestSyncAndJournal(t *testing.T) {
	client := &stubClient{}
	s := newTestServer(t, client, nil)

	status, env := doRequest(t, s, http.MethodPost, "/api/v1/alerts/sync", syncBody)
	if status != http.StatusOK {
		t.Fatalf("sync status = %d, body = %+v", status, env)
	}
	var result models.SyncResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.TriggerID != "MiQ-region-r1-ems-e1-alert-42" || result.Operation != models.OperationNew {
		t.Errorf("result = %+v", result)
	}
	if len(result.Conditions) != 1 || *result.Conditions[0].Threshold != 5 {
		t.Errorf("conditions = %+v", result.Conditions)
	}
	if got := strings.Join(client.calls, ","); got != "create,set_conditions" {
		t.Errorf("calls = %s", got)
	}

	status, env = doRequest(t, s, http.MethodGet, "/api/v1/alerts/42/journal?limit=10", "")
	if status != http.StatusOK {
		t.Fatalf("journal status = %d", status)
	}
	var entries []models.SyncJournalEntry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		t.Fatalf("decode journal: %v", err)
	}
	if len(entries) != 1 || entries[0].TriggerID != result.TriggerID || entries[0].Status != models.SyncStatusOK {
		t.Errorf("journal = %+v", entries)
	}
}

func TestSyncErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		deleteErr  error
		wantStatus int
		wantType   models.ErrorType
	}{
		{
			name:       "malformed body",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantType:   models.ValidationErrorType,
		},
		{
			name:       "unknown operation",
			body:       `{"operation":"upsert","alert":{"id":1}}`,
			wantStatus: http.StatusBadRequest,
			wantType:   models.ValidationErrorType,
		},
		{
			name:       "missing operation",
			body:       `{"alert":{"id":1}}`,
			wantStatus: http.StatusBadRequest,
			wantType:   models.ValidationErrorType,
		},
		{
			name:       "unknown eval method",
			body:       `{"operation":"new","alert":{"id":1,"description":"x","conditions":{"eval_method":"mw_nope"}}}`,
			wantStatus: http.StatusBadRequest,
			wantType:   models.ValidationErrorType,
		},
		{
			name:       "bad operator",
			body:       `{"operation":"new","alert":{"id":1,"description":"x","conditions":{"eval_method":"mw_ds_timed_out","options":{"mw_operator":"!=","value_mw_threshold":1}}}}`,
			wantStatus: http.StatusBadRequest,
			wantType:   models.ValidationErrorType,
		},
		{
			name:       "hawkular not found",
			body:       `{"operation":"delete","alert":{"id":1}}`,
			deleteErr:  &hawkular.APIError{StatusCode: http.StatusNotFound, Method: http.MethodDelete, Path: "/triggers/groups/MiQ-1"},
			wantStatus: http.StatusNotFound,
			wantType:   models.NotFoundErrorType,
		},
		{
			name:       "hawkular failure",
			body:       `{"operation":"delete","alert":{"id":1}}`,
			deleteErr:  errors.New("connection refused"),
			wantStatus: http.StatusBadGateway,
			wantType:   models.BackendErrorType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &stubClient{deleteErr: tt.deleteErr}, nil)
			status, env := doRequest(t, s, http.MethodPost, "/api/v1/alerts/sync", tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (%+v)", status, tt.wantStatus, env)
			}
			if models.ErrorType(env.ErrorType) != tt.wantType || env.Status != "error" {
				t.Errorf("envelope = %+v, want error type %s", env, tt.wantType)
			}
		})
	}
}

func TestPreviewAndResolve(t *testing.T) {
	client := &stubClient{existing: map[string]bool{"MiQ-7": true}}
	s := newTestServer(t, client, nil)

	status, env := doRequest(t, s, http.MethodPost, "/api/v1/alerts/preview",
		`{"alert":{"id":7,"description":"heap","conditions":{"eval_method":"mw_heap_used","options":{"value_mw_greater_than":"80","value_mw_less_than":"20"}}}}`)
	if status != http.StatusOK {
		t.Fatalf("preview status = %d (%+v)", status, env)
	}
	var preview models.SyncResult
	if err := json.Unmarshal(env.Data, &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.Trigger == nil || preview.Trigger.FiringMatch != models.FiringMatchAny || len(preview.Conditions) != 2 {
		t.Errorf("preview = %+v", preview)
	}
	if len(client.calls) != 0 {
		t.Errorf("preview called Hawkular: %v", client.calls)
	}

	status, env = doRequest(t, s, http.MethodGet, "/api/v1/alerts/7/trigger-id", "")
	if status != http.StatusOK {
		t.Fatalf("resolve status = %d", status)
	}
	var res models.TriggerResolution
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode resolution: %v", err)
	}
	if res.TriggerID != "MiQ-7" || res.Format != models.TriggerIDLegacy {
		t.Errorf("resolution = %+v", res)
	}

	if status, _ := doRequest(t, s, http.MethodGet, "/api/v1/alerts/abc/trigger-id", ""); status != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", status)
	}
}

func TestHealth(t *testing.T) {
	ok := newTestServer(t, &stubClient{}, healthFunc(func(context.Context) error { return nil }))
	if status, _ := doRequest(t, ok, http.MethodGet, "/health", ""); status != http.StatusOK {
		t.Errorf("healthy status = %d", status)
	}

	down := newTestServer(t, &stubClient{}, healthFunc(func(context.Context) error { return errors.New("refused") }))
	status, env := doRequest(t, down, http.MethodGet, "/health", "")
	if status != http.StatusServiceUnavailable || models.ErrorType(env.ErrorType) != models.BackendErrorType {
		t.Errorf("unhealthy = %d %+v", status, env)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubClient{}, nil)
	doRequest(t, s, http.MethodPost, "/api/v1/alerts/sync", syncBody)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `hawkalert_sync_total{operation="new",status="ok"}`) {
		t.Errorf("metrics output missing sync counter:\n%s", body)
	}
}

func TestSettings(t *testing.T) {
	s := newTestServer(t, &stubClient{}, nil)

	status, env := doRequest(t, s, http.MethodGet, "/api/v1/settings", "")
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	var list []SystemSettingResponse
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if len(list) != len(config.RuntimeSettings) || list[0].Key != "hawkular.timeout" || list[0].Value != "10s" || list[0].Stored {
		t.Errorf("settings = %+v", list)
	}

	if status, _ := doRequest(t, s, http.MethodPut, "/api/v1/settings/hawkular.timeout", `{"value":"soon"}`); status != http.StatusBadRequest {
		t.Errorf("invalid duration status = %d", status)
	}
	if status, _ := doRequest(t, s, http.MethodPut, "/api/v1/settings/unknown.key", `{"value":"1"}`); status != http.StatusNotFound {
		t.Errorf("unknown key status = %d", status)
	}
	if status, env := doRequest(t, s, http.MethodPut, "/api/v1/settings/hawkular.timeout", `{"value":"3s"}`); status != http.StatusOK {
		t.Fatalf("update status = %d (%+v)", status, env)
	}

	_, env = doRequest(t, s, http.MethodGet, "/api/v1/settings", "")
	_ = json.Unmarshal(env.Data, &list)
	if list[0].Value != "3s" || !list[0].Stored {
		t.Errorf("after update = %+v", list[0])
	}

	if status, _ := doRequest(t, s, http.MethodDelete, "/api/v1/settings/hawkular.timeout", ""); status != http.StatusOK {
		t.Errorf("delete status = %d", status)
	}
	if status, _ := doRequest(t, s, http.MethodDelete, "/api/v1/settings/hawkular.timeout", ""); status != http.StatusNotFound {
		t.Errorf("second delete status = %d", status)
	}
}
