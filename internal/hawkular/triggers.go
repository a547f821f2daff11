package hawkular

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mr-karan/hawkalert/pkg/models"
)

// CreateGroupTrigger creates a group trigger.
func (c *Client) CreateGroupTrigger(ctx context.Context, trigger *models.Trigger) error {
	return c.do(ctx, requestOptions{
		op:     "create_group_trigger",
		method: http.MethodPost,
		path:   "/triggers/groups",
		body:   trigger,
	}, nil)
}

// UpdateGroupTrigger replaces the mutable fields of a group trigger and propagates them to its members.
func (c *Client) UpdateGroupTrigger(ctx context.Context, trigger *models.Trigger) error {
	return c.do(ctx, requestOptions{
		op:     "update_group_trigger",
		method: http.MethodPut,
		path:   "/triggers/groups/" + url.PathEscape(trigger.ID),
		body:   trigger,
	}, nil)
}

// DeleteGroupTrigger deletes a group trigger together with its member triggers.
func (c *Client) DeleteGroupTrigger(ctx context.Context, triggerID string) error {
	return c.do(ctx, requestOptions{
		op:     "delete_group_trigger",
		method: http.MethodDelete,
		path:   "/triggers/groups/" + url.PathEscape(triggerID),
		query: url.Values{
			"keepNonOrphans": []string{"false"},
			"keepOrphans":    []string{"false"},
		},
	}, nil)
}

// SetGroupConditions replaces the conditions of a group trigger for one trigger mode.
func (c *Client) SetGroupConditions(ctx context.Context, triggerID string, mode models.TriggerMode, conditions []models.Condition) error {
	if conditions == nil {
		conditions = []models.Condition{}
	}
	return c.do(ctx, requestOptions{
		op:     "set_group_conditions",
		method: http.MethodPut,
		path:   "/triggers/groups/" + url.PathEscape(triggerID) + "/conditions/" + url.PathEscape(string(mode)),
		body:   models.GroupConditionsInfo{Conditions: conditions},
	}, nil)
}

// ListTriggers returns the triggers matching the given ids. Ids that do not exist are simply absent.
func (c *Client) ListTriggers(ctx context.Context, ids []string) ([]models.Trigger, error) {
	q := url.Values{}
	if len(ids) > 0 {
		q.Set("triggerIds", strings.Join(ids, ","))
	}
	var triggers []models.Trigger
	if err := c.do(ctx, requestOptions{
		op:     "list_triggers",
		method: http.MethodGet,
		path:   "/triggers",
		query:  q,
	}, &triggers); err != nil {
		return nil, err
	}
	return triggers, nil
}
