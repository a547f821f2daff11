package models

import "time"

// TriggerType is the Hawkular trigger type. hawkalert only manages group triggers.
type TriggerType string

const (
	TriggerTypeStandard TriggerType = "STANDARD"
	TriggerTypeGroup    TriggerType = "GROUP"
	TriggerTypeMember   TriggerType = "MEMBER"
)

// EventType is the kind of event a trigger emits when it fires.
type EventType string

const (
	EventTypeAlert EventType = "ALERT"
	EventTypeEvent EventType = "EVENT"
)

// FiringMatch decides whether all or any of the firing conditions must match.
type FiringMatch string

const (
	FiringMatchAll FiringMatch = "ALL"
	FiringMatchAny FiringMatch = "ANY"
)

// TriggerMode selects the condition set of a trigger.
type TriggerMode string

const (
	TriggerModeFiring      TriggerMode = "FIRING"
	TriggerModeAutoResolve TriggerMode = "AUTORESOLVE"
)

// ConditionType is the Hawkular condition shape.
type ConditionType string

const (
	ConditionTypeRate      ConditionType = "RATE"
	ConditionTypeThreshold ConditionType = "THRESHOLD"
	ConditionTypeCompare   ConditionType = "COMPARE"
)

// Operator is a Hawkular comparison operator.
type Operator string

const (
	OperatorLT  Operator = "LT"
	OperatorLTE Operator = "LTE"
	OperatorGT  Operator = "GT"
	OperatorGTE Operator = "GTE"
)

// Context keys consumed by the alert profile manager when it creates member triggers.
const (
	ContextMetricType   = "dataId.hm.type"
	ContextMetricPrefix = "dataId.hm.prefix"
)

// Tag keys recorded on every trigger hawkalert creates.
const (
	TagEventType    = "miq.event_type"
	TagResourceType = "miq.resource_type"

	EventTypeTagValue = "hawkular_alert"
)

// Trigger is the Hawkular group trigger descriptor.
type Trigger struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Enabled     bool              `json:"enabled"`
	Type        TriggerType       `json:"type"`
	EventType   EventType         `json:"eventType"`
	FiringMatch FiringMatch       `json:"firingMatch"`
	Context     map[string]string `json:"context,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Condition is one comparison rule of a trigger. Threshold is set for RATE and
// THRESHOLD conditions; Data2ID and Data2Multiplier only for COMPARE.
type Condition struct {
	TriggerMode     TriggerMode   `json:"triggerMode"`
	Type            ConditionType `json:"type"`
	DataID          string        `json:"dataId"`
	Operator        Operator      `json:"operator"`
	Threshold       *float64      `json:"threshold,omitempty"`
	Data2ID         string        `json:"data2Id,omitempty"`
	Data2Multiplier *float64      `json:"data2Multiplier,omitempty"`
}

// GroupConditionsInfo is the body of the set-group-conditions call.
type GroupConditionsInfo struct {
	Conditions      []Condition                  `json:"conditions"`
	DataIDMemberMap map[string]map[string]string `json:"dataIdMemberMap,omitempty"`
}

// TriggerIDFormat records which naming scheme produced a trigger id.
type TriggerIDFormat string

const (
	TriggerIDCurrent TriggerIDFormat = "current"
	TriggerIDLegacy  TriggerIDFormat = "legacy"
)

// TriggerResolution is the outcome of resolving the remote trigger id of an alert.
type TriggerResolution struct {
	AlertID   string          `json:"alert_id"`
	TriggerID string          `json:"trigger_id"`
	Format    TriggerIDFormat `json:"format"`
	// Candidate is the current-format id that was probed.
	Candidate string `json:"candidate"`
}

// SyncResult describes what a single synchronisation did.
type SyncResult struct {
	RequestID  string          `json:"request_id"`
	Operation  Operation       `json:"operation"`
	TriggerID  string          `json:"trigger_id"`
	IDFormat   TriggerIDFormat `json:"id_format"`
	Trigger    *Trigger        `json:"trigger,omitempty"`
	Conditions []Condition     `json:"conditions,omitempty"`
}

// SyncStatus is the journal status of a synchronisation.
type SyncStatus string

const (
	SyncStatusOK    SyncStatus = "ok"
	SyncStatusError SyncStatus = "error"
)

// SyncJournalEntry is one recorded synchronisation attempt.
type SyncJournalEntry struct {
	ID             int64           `json:"id"`
	RequestID      string          `json:"request_id"`
	AlertID        string          `json:"alert_id"`
	Operation      string          `json:"operation"`
	TriggerID      string          `json:"trigger_id,omitempty"`
	IDFormat       TriggerIDFormat `json:"id_format,omitempty"`
	ConditionCount int             `json:"condition_count"`
	Status         SyncStatus      `json:"status"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
