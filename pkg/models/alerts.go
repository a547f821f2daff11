package models

import (
	"errors"
	"fmt"
	"strings"
)

// AlertID identifies an alert definition in the owning alert store.
type AlertID int64

// EvalMethod names the middleware metric and condition shape an alert requests.
type EvalMethod string

const (
	EvalMethodAccumulatedGCDuration EvalMethod = "mw_accumulated_gc_duration"
	EvalMethodHeapUsed              EvalMethod = "mw_heap_used"
	EvalMethodNonHeapUsed           EvalMethod = "mw_non_heap_used"

	EvalMethodActiveWebSessions   EvalMethod = "mw_aggregated_active_web_sessions"
	EvalMethodExpiredWebSessions  EvalMethod = "mw_aggregated_expired_web_sessions"
	EvalMethodRejectedWebSessions EvalMethod = "mw_aggregated_rejected_web_sessions"
	EvalMethodDSAvailableCount    EvalMethod = "mw_ds_available_count"
	EvalMethodDSInUseCount        EvalMethod = "mw_ds_in_use_count"
	EvalMethodDSTimedOut          EvalMethod = "mw_ds_timed_out"
	EvalMethodDSAverageGetTime    EvalMethod = "mw_ds_average_get_time"
	EvalMethodDSAverageCreateTime EvalMethod = "mw_ds_average_creation_time"
	EvalMethodDSMaxWaitTime       EvalMethod = "mw_ds_max_wait_time"
)

// EvalKind groups evaluation methods by the condition shape they produce.
type EvalKind int

const (
	EvalKindUnknown EvalKind = iota
	EvalKindRate
	EvalKindCompare
	EvalKindThreshold
)

func (k EvalKind) String() string {
	switch k {
	case EvalKindRate:
		return "rate"
	case EvalKindCompare:
		return "compare"
	case EvalKindThreshold:
		return "threshold"
	default:
		return "unknown"
	}
}

var evalKinds = map[EvalMethod]EvalKind{
	EvalMethodAccumulatedGCDuration: EvalKindRate,
	EvalMethodHeapUsed:              EvalKindCompare,
	EvalMethodNonHeapUsed:           EvalKindCompare,
	EvalMethodActiveWebSessions:     EvalKindThreshold,
	EvalMethodExpiredWebSessions:    EvalKindThreshold,
	EvalMethodRejectedWebSessions:   EvalKindThreshold,
	EvalMethodDSAvailableCount:      EvalKindThreshold,
	EvalMethodDSInUseCount:          EvalKindThreshold,
	EvalMethodDSTimedOut:            EvalKindThreshold,
	EvalMethodDSAverageGetTime:      EvalKindThreshold,
	EvalMethodDSAverageCreateTime:   EvalKindThreshold,
	EvalMethodDSMaxWaitTime:         EvalKindThreshold,
}

// Kind reports the condition shape for the method, EvalKindUnknown if unsupported.
func (m EvalMethod) Kind() EvalKind {
	return evalKinds[m]
}

// Known reports whether the method is one hawkalert can translate.
func (m EvalMethod) Known() bool {
	return m.Kind() != EvalKindUnknown
}

// EvalMethods returns every supported evaluation method.
func EvalMethods() []EvalMethod {
	out := make([]EvalMethod, 0, len(evalKinds))
	for m := range evalKinds {
		out = append(out, m)
	}
	return out
}

// ParseEvalMethod validates a raw evaluation method name.
func ParseEvalMethod(raw string) (EvalMethod, error) {
	m := EvalMethod(strings.TrimSpace(raw))
	if !m.Known() {
		return "", fmt.Errorf("unsupported eval_method %q", raw)
	}
	return m, nil
}

// Option keys understood by the condition builder.
const (
	OptionOperator         = "mw_operator"
	OptionThreshold        = "value_mw_threshold"
	OptionGarbageCollector = "value_mw_garbage_collector"
	OptionGreaterThan      = "value_mw_greater_than"
	OptionLessThan         = "value_mw_less_than"
)

// AlertOptions is the free-form option bag attached to an alert condition.
// Values are strings or JSON numbers.
type AlertOptions map[string]any

// AlertConditions is the condition block of an alert definition.
type AlertConditions struct {
	EvalMethod EvalMethod   `json:"eval_method"`
	Options    AlertOptions `json:"options"`
}

// AlertDefinition is a fully populated alert handed over by the alert store.
type AlertDefinition struct {
	ID          AlertID         `json:"id"`
	Description string          `json:"description"`
	Enabled     bool            `json:"enabled"`
	BasedOn     string          `json:"based_on"`
	Conditions  AlertConditions `json:"conditions"`
}

// AlertIdentifier is implemented by alert representations that can report their own id.
type AlertIdentifier interface {
	AlertID() AlertID
}

// AlertID satisfies AlertIdentifier.
func (a *AlertDefinition) AlertID() AlertID {
	return a.ID
}

// Operation is the remote change requested for an alert. Only the package
// level values below exist; the zero value is invalid.
type Operation struct {
	name string
}

var (
	OperationNew    = Operation{name: "new"}
	OperationUpdate = Operation{name: "update"}
	OperationDelete = Operation{name: "delete"}
)

// ErrUnknownOperation is returned for operations outside new/update/delete.
var ErrUnknownOperation = errors.New("unknown operation")

func (o Operation) String() string {
	if o.name == "" {
		return "invalid"
	}
	return o.name
}

// Valid reports whether the operation is one of the defined values.
func (o Operation) Valid() bool {
	return o == OperationNew || o == OperationUpdate || o == OperationDelete
}

// MarshalText implements encoding.TextMarshaler.
func (o Operation) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, ErrUnknownOperation
	}
	return []byte(o.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operation) UnmarshalText(b []byte) error {
	op, err := ParseOperation(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// ParseOperation maps the wire name of an operation. "create" is accepted as an alias of "new".
func ParseOperation(raw string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "new", "create":
		return OperationNew, nil
	case "update":
		return OperationUpdate, nil
	case "delete":
		return OperationDelete, nil
	default:
		return Operation{}, fmt.Errorf("%w: %q", ErrUnknownOperation, raw)
	}
}

// SyncRequest is the payload accepted by the sync endpoint.
type SyncRequest struct {
	Operation Operation       `json:"operation"`
	Alert     AlertDefinition `json:"alert"`
}

// PreviewRequest is the payload accepted by the preview endpoint.
type PreviewRequest struct {
	Alert AlertDefinition `json:"alert"`
}

// DefaultJournalLimit controls the number of journal entries returned when unspecified.
const DefaultJournalLimit = 50
