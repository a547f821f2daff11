// Package ems models the middleware provider (external management system) that
// owns a Hawkular Alerts connection and namespaces the ids it creates there.
package ems

import (
	"fmt"
	"strings"
)

// Namespacer prefixes raw identifiers with the owning provider's namespace.
type Namespacer interface {
	Namespace(raw string) string
}

// Manager is a middleware provider together with its alerts client handle.
// C is the client type so callers keep their concrete or interface type.
type Manager[C any] struct {
	regionGUID string
	guid       string
	client     C
}

// New returns a provider for the given region and provider GUIDs.
func New[C any](regionGUID, guid string, client C) (*Manager[C], error) {
	regionGUID = strings.TrimSpace(regionGUID)
	guid = strings.TrimSpace(guid)
	if regionGUID == "" {
		return nil, fmt.Errorf("ems region guid is required")
	}
	if guid == "" {
		return nil, fmt.Errorf("ems guid is required")
	}
	return &Manager[C]{regionGUID: regionGUID, guid: guid, client: client}, nil
}

// Prefix is the namespace shared by every id this provider creates in Hawkular.
func (m *Manager[C]) Prefix() string {
	return fmt.Sprintf("MiQ-region-%s-ems-%s", m.regionGUID, m.guid)
}

// Namespace returns raw prefixed with the provider namespace.
func (m *Manager[C]) Namespace(raw string) string {
	if raw == "" {
		return m.Prefix()
	}
	return m.Prefix() + "-" + raw
}

// AlertsClient returns the provider's Hawkular Alerts client.
func (m *Manager[C]) AlertsClient() C {
	return m.client
}
