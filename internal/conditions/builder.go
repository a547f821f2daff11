// Package conditions turns an alert's evaluation method and option bag into
// Hawkular group conditions.
package conditions

import (
	"errors"
	"fmt"

	"github.com/mr-karan/hawkalert/pkg/models"
)

var (
	// ErrUnknownEvalMethod is returned for evaluation methods with no condition mapping.
	ErrUnknownEvalMethod = errors.New("unknown eval method")
	// ErrMetricNotConfigured means the live metrics registry has no data id for a column.
	ErrMetricNotConfigured = errors.New("metric not configured")
)

// Companion columns used as the second operand of COMPARE conditions.
const (
	ColumnHeapMax          = "mw_heap_max"
	ColumnNonHeapCommitted = "mw_non_heap_committed"
)

// MetricRegistry resolves an evaluation method or companion column to a Hawkular data id.
type MetricRegistry interface {
	DataID(column string) (string, bool)
}

// Plan is everything derived from an alert's condition block.
type Plan struct {
	FiringMatch models.FiringMatch
	Context     map[string]string
	Conditions  []models.Condition
}

// Builder builds condition plans against a metric registry.
type Builder struct {
	registry MetricRegistry
}

// NewBuilder returns a Builder reading data ids from registry.
func NewBuilder(registry MetricRegistry) *Builder {
	return &Builder{registry: registry}
}

// Build maps an evaluation method and its options to a condition plan.
func (b *Builder) Build(method models.EvalMethod, opts models.AlertOptions) (*Plan, error) {
	switch method.Kind() {
	case models.EvalKindRate:
		return b.buildRate(method, opts)
	case models.EvalKindCompare:
		return b.buildCompare(method, opts)
	case models.EvalKindThreshold:
		return b.buildThreshold(method, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvalMethod, method)
	}
}

// Build is a convenience wrapper around NewBuilder(registry).Build.
func Build(registry MetricRegistry, method models.EvalMethod, opts models.AlertOptions) (*Plan, error) {
	return NewBuilder(registry).Build(method, opts)
}

func (b *Builder) buildRate(method models.EvalMethod, opts models.AlertOptions) (*Plan, error) {
	dataID, err := b.dataID(string(method))
	if err != nil {
		return nil, err
	}
	op, err := operatorOption(opts)
	if err != nil {
		return nil, err
	}
	threshold, err := intOption(opts, models.OptionGarbageCollector)
	if err != nil {
		return nil, err
	}
	return &Plan{
		FiringMatch: models.FiringMatchAll,
		Context:     counterContext(),
		Conditions: []models.Condition{
			newValueCondition(models.ConditionTypeRate, dataID, op, threshold),
		},
	}, nil
}

func (b *Builder) buildCompare(method models.EvalMethod, opts models.AlertOptions) (*Plan, error) {
	dataID, err := b.dataID(string(method))
	if err != nil {
		return nil, err
	}
	companion := ColumnNonHeapCommitted
	if method == models.EvalMethodHeapUsed {
		companion = ColumnHeapMax
	}
	data2ID, err := b.dataID(companion)
	if err != nil {
		return nil, err
	}
	above, err := percentOption(opts, models.OptionGreaterThan)
	if err != nil {
		return nil, err
	}
	below, err := percentOption(opts, models.OptionLessThan)
	if err != nil {
		return nil, err
	}
	return &Plan{
		FiringMatch: models.FiringMatchAny,
		Context:     gaugeContext(),
		Conditions: []models.Condition{
			newCompareCondition(dataID, data2ID, models.OperatorGT, above),
			newCompareCondition(dataID, data2ID, models.OperatorLT, below),
		},
	}, nil
}

func (b *Builder) buildThreshold(method models.EvalMethod, opts models.AlertOptions) (*Plan, error) {
	dataID, err := b.dataID(string(method))
	if err != nil {
		return nil, err
	}
	op, err := operatorOption(opts)
	if err != nil {
		return nil, err
	}
	threshold, err := intOption(opts, models.OptionThreshold)
	if err != nil {
		return nil, err
	}
	return &Plan{
		FiringMatch: models.FiringMatchAll,
		Context:     gaugeContext(),
		Conditions: []models.Condition{
			newValueCondition(models.ConditionTypeThreshold, dataID, op, threshold),
		},
	}, nil
}

func (b *Builder) dataID(column string) (string, error) {
	if b.registry == nil {
		return "", fmt.Errorf("%w: no metric registry for %q", ErrMetricNotConfigured, column)
	}
	id, ok := b.registry.DataID(column)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrMetricNotConfigured, column)
	}
	return id, nil
}

func newValueCondition(kind models.ConditionType, dataID string, op models.Operator, threshold int64) models.Condition {
	v := float64(threshold)
	return models.Condition{
		TriggerMode: models.TriggerModeFiring,
		Type:        kind,
		DataID:      dataID,
		Operator:    op,
		Threshold:   &v,
	}
}

func newCompareCondition(dataID, data2ID string, op models.Operator, multiplier float64) models.Condition {
	return models.Condition{
		TriggerMode:     models.TriggerModeFiring,
		Type:            models.ConditionTypeCompare,
		DataID:          dataID,
		Data2ID:         data2ID,
		Operator:        op,
		Data2Multiplier: &multiplier,
	}
}

// Prefixes used by the Hawkular Metrics integration when member triggers are created.
func gaugeContext() map[string]string {
	return map[string]string{
		models.ContextMetricType:   "gauge",
		models.ContextMetricPrefix: "hm_g_",
	}
}

func counterContext() map[string]string {
	return map[string]string{
		models.ContextMetricType:   "counter",
		models.ContextMetricPrefix: "hm_c_",
	}
}
