// Package triggers keeps Hawkular group triggers in step with alert definitions.
package triggers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mr-karan/hawkalert/internal/conditions"
	"github.com/mr-karan/hawkalert/internal/metrics"
	"github.com/mr-karan/hawkalert/pkg/models"
)

// AlertsClient is the subset of the Hawkular Alerts API the synchronizer drives.
type AlertsClient interface {
	CreateGroupTrigger(ctx context.Context, trigger *models.Trigger) error
	UpdateGroupTrigger(ctx context.Context, trigger *models.Trigger) error
	DeleteGroupTrigger(ctx context.Context, triggerID string) error
	SetGroupConditions(ctx context.Context, triggerID string, mode models.TriggerMode, conds []models.Condition) error
	ListTriggers(ctx context.Context, ids []string) ([]models.Trigger, error)
}

// Provider is the middleware provider owning the alerts connection.
type Provider interface {
	Namespace(raw string) string
	AlertsClient() AlertsClient
}

// Synchronizer translates alert definitions and pushes them to Hawkular.
type Synchronizer struct {
	provider Provider
	client   AlertsClient
	builder  *conditions.Builder
	log      *slog.Logger
}

// NewSynchronizer returns a Synchronizer bound to provider and its alerts client.
func NewSynchronizer(provider Provider, registry conditions.MetricRegistry, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{
		provider: provider,
		client:   provider.AlertsClient(),
		builder:  conditions.NewBuilder(registry),
		log:      log.With("component", "trigger_sync"),
	}
}

// Process applies op to the remote trigger of alert.
//
// new creates the group trigger then sets its firing conditions, update
// replaces both, and delete removes the group trigger and its members. The
// first remote error aborts the sequence.
func (s *Synchronizer) Process(ctx context.Context, op models.Operation, alert *models.AlertDefinition) (*models.SyncResult, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownOperation, op)
	}
	if alert == nil {
		return nil, fmt.Errorf("%w: nil alert", ErrInvalidAlertID)
	}

	result := &models.SyncResult{RequestID: uuid.NewString(), Operation: op}
	log := s.log.With("request_id", result.RequestID, "operation", op.String(), "alert_id", alert.ID)

	if op == models.OperationNew {
		id, err := BuildTriggerID(s.provider, alert)
		if err != nil {
			return nil, err
		}
		result.TriggerID = id
		result.IDFormat = models.TriggerIDCurrent
	} else {
		res, err := s.Resolve(ctx, alert)
		if err != nil {
			return nil, err
		}
		result.TriggerID = res.TriggerID
		result.IDFormat = res.Format
	}

	if op == models.OperationDelete {
		if err := s.client.DeleteGroupTrigger(ctx, result.TriggerID); err != nil {
			return result, fmt.Errorf("deleting trigger %s: %w", result.TriggerID, err)
		}
		log.Info("deleted group trigger", "trigger_id", result.TriggerID)
		return result, nil
	}

	trigger, conds, err := s.Describe(alert, result.TriggerID)
	if err != nil {
		return result, err
	}
	result.Trigger = trigger
	result.Conditions = conds

	if op == models.OperationNew {
		if err := s.client.CreateGroupTrigger(ctx, trigger); err != nil {
			return result, fmt.Errorf("creating trigger %s: %w", trigger.ID, err)
		}
	} else {
		if err := s.client.UpdateGroupTrigger(ctx, trigger); err != nil {
			return result, fmt.Errorf("updating trigger %s: %w", trigger.ID, err)
		}
	}
	if err := s.client.SetGroupConditions(ctx, trigger.ID, models.TriggerModeFiring, conds); err != nil {
		return result, fmt.Errorf("setting conditions of trigger %s: %w", trigger.ID, err)
	}

	log.Info("synced group trigger", "trigger_id", trigger.ID, "conditions", len(conds))
	return result, nil
}

// Resolve returns the remote trigger id of an existing alert, recording when
// the legacy id had to be used.
func (s *Synchronizer) Resolve(ctx context.Context, alert any) (models.TriggerResolution, error) {
	res, err := ResolveTriggerID(ctx, s.client, s.provider, alert)
	if err != nil {
		return res, err
	}
	metrics.RecordResolution(string(res.Format))
	if res.Format == models.TriggerIDLegacy {
		s.log.Warn("current trigger id not found, using legacy id",
			"alert_id", res.AlertID, "candidate", res.Candidate, "trigger_id", res.TriggerID)
	}
	return res, nil
}

// Preview returns what a new operation would send, without calling Hawkular.
func (s *Synchronizer) Preview(alert *models.AlertDefinition) (*models.SyncResult, error) {
	if alert == nil {
		return nil, fmt.Errorf("%w: nil alert", ErrInvalidAlertID)
	}
	id, err := BuildTriggerID(s.provider, alert)
	if err != nil {
		return nil, err
	}
	trigger, conds, err := s.Describe(alert, id)
	if err != nil {
		return nil, err
	}
	return &models.SyncResult{
		Operation:  models.OperationNew,
		TriggerID:  id,
		IDFormat:   models.TriggerIDCurrent,
		Trigger:    trigger,
		Conditions: conds,
	}, nil
}

// Describe builds the group trigger and firing conditions for alert under triggerID.
func (s *Synchronizer) Describe(alert *models.AlertDefinition, triggerID string) (*models.Trigger, []models.Condition, error) {
	plan, err := s.builder.Build(alert.Conditions.EvalMethod, alert.Conditions.Options)
	if err != nil {
		metrics.RecordBuildError(buildErrorReason(err))
		return nil, nil, fmt.Errorf("building conditions for alert %d: %w", alert.ID, err)
	}
	return BuildTrigger(triggerID, alert, plan), plan.Conditions, nil
}

// BuildTrigger assembles the group trigger descriptor for alert.
func BuildTrigger(triggerID string, alert *models.AlertDefinition, plan *conditions.Plan) *models.Trigger {
	return &models.Trigger{
		ID:          triggerID,
		Name:        alert.Description,
		Description: alert.Description,
		Enabled:     alert.Enabled,
		Type:        models.TriggerTypeGroup,
		EventType:   models.EventTypeEvent,
		FiringMatch: plan.FiringMatch,
		Context:     plan.Context,
		Tags: map[string]string{
			models.TagEventType:    models.EventTypeTagValue,
			models.TagResourceType: alert.BasedOn,
		},
	}
}

func buildErrorReason(err error) string {
	switch {
	case errors.Is(err, conditions.ErrUnknownEvalMethod):
		return "unknown_eval_method"
	case errors.Is(err, conditions.ErrMetricNotConfigured):
		return "metric_not_configured"
	case errors.Is(err, conditions.ErrUnknownOperator):
		return "unknown_operator"
	case errors.Is(err, conditions.ErrMissingOption):
		return "missing_option"
	case errors.Is(err, conditions.ErrInvalidOption):
		return "invalid_option"
	default:
		return "other"
	}
}
