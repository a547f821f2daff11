package triggers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mr-karan/hawkalert/internal/ems"
	"github.com/mr-karan/hawkalert/pkg/models"
)

// ErrInvalidAlertID is returned when no usable id can be read from an alert value.
var ErrInvalidAlertID = errors.New("invalid alert id")

const (
	currentIDPrefix = "alert-"
	legacyIDPrefix  = "MiQ-"
)

// signedID formats a signed numeric id. Numeric ids are never negative.
func signedID(n int64) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidAlertID, n)
	}
	return strconv.FormatInt(n, 10), nil
}

// ExtractAlertID reads the alert id from an id value or an alert representation.
func ExtractAlertID(alert any) (string, error) {
	switch v := alert.(type) {
	case nil:
		return "", fmt.Errorf("%w: nil alert", ErrInvalidAlertID)
	case models.AlertID:
		return signedID(int64(v))
	case int:
		return signedID(int64(v))
	case int8:
		return signedID(int64(v))
	case int16:
		return signedID(int64(v))
	case int32:
		return signedID(int64(v))
	case int64:
		return signedID(v)
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		if v != math.Trunc(v) || v < 0 || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w: %v", ErrInvalidAlertID, v)
		}
		return strconv.FormatFloat(v, 'f', 0, 64), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return signedID(n)
		}
		f, err := v.Float64()
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidAlertID, v.String())
		}
		return ExtractAlertID(f)
	case string:
		id := strings.TrimSpace(v)
		if id == "" {
			return "", fmt.Errorf("%w: empty string", ErrInvalidAlertID)
		}
		return id, nil
	case models.AlertDefinition:
		return ExtractAlertID(v.ID)
	case *models.AlertDefinition:
		if v == nil {
			return "", fmt.Errorf("%w: nil alert", ErrInvalidAlertID)
		}
		return ExtractAlertID(v.ID)
	case models.AlertIdentifier:
		return ExtractAlertID(v.AlertID())
	case map[string]any:
		id, ok := v["id"]
		if !ok {
			return "", fmt.Errorf("%w: map has no id key", ErrInvalidAlertID)
		}
		return ExtractAlertID(id)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidAlertID, alert)
	}
}

// BuildTriggerID returns the current-format trigger id of an alert.
func BuildTriggerID(namespacer ems.Namespacer, alert any) (string, error) {
	id, err := ExtractAlertID(alert)
	if err != nil {
		return "", err
	}
	return namespacer.Namespace(currentIDPrefix + id), nil
}

// LegacyTriggerID returns the trigger id used before ids were namespaced per provider.
func LegacyTriggerID(alertID string) string {
	return legacyIDPrefix + alertID
}

// ResolveTriggerID finds the remote id of an existing alert trigger. The
// current-format id is probed first; when Hawkular does not know it the legacy
// id is returned without a second lookup.
func ResolveTriggerID(ctx context.Context, client AlertsClient, namespacer ems.Namespacer, alert any) (models.TriggerResolution, error) {
	id, err := ExtractAlertID(alert)
	if err != nil {
		return models.TriggerResolution{}, err
	}
	candidate := namespacer.Namespace(currentIDPrefix + id)

	found, err := client.ListTriggers(ctx, []string{candidate})
	if err != nil {
		return models.TriggerResolution{}, fmt.Errorf("looking up trigger %s: %w", candidate, err)
	}

	res := models.TriggerResolution{AlertID: id, Candidate: candidate}
	for _, t := range found {
		if t.ID == candidate {
			res.TriggerID = candidate
			res.Format = models.TriggerIDCurrent
			return res, nil
		}
	}
	res.TriggerID = LegacyTriggerID(id)
	res.Format = models.TriggerIDLegacy
	return res, nil
}
