// Package livemetrics loads the middleware live metrics configuration that maps
// alert evaluation columns to Hawkular metric ids.
package livemetrics

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed live_metrics_config.yml
var defaultConfig []byte

// ResourceMiddlewareServer is the resource section holding middleware server metrics.
const ResourceMiddlewareServer = "middleware_server"

type resourceConfig struct {
	SupportedMetricsByColumn map[string]string `yaml:"supported_metrics_by_column"`
}

// Registry maps metric columns to Hawkular data ids. It is immutable after construction.
type Registry struct {
	byColumn map[string]string
}

// Default returns the registry built from the embedded configuration.
func Default() (*Registry, error) {
	return Parse(defaultConfig, ResourceMiddlewareServer)
}

// Load reads a live metrics configuration file. An empty path yields the embedded default.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open live metrics config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read live metrics config: %w", err)
	}
	return Parse(data, ResourceMiddlewareServer)
}

// Parse decodes a live metrics YAML document and selects the given resource section.
func Parse(data []byte, resource string) (*Registry, error) {
	var doc map[string]resourceConfig
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse live metrics config: %w", err)
	}
	section, ok := doc[resource]
	if !ok {
		return nil, fmt.Errorf("live metrics config has no %q section", resource)
	}
	if len(section.SupportedMetricsByColumn) == 0 {
		return nil, fmt.Errorf("live metrics config section %q has no supported_metrics_by_column", resource)
	}
	return New(section.SupportedMetricsByColumn), nil
}

// New builds a registry from a column to data id map. The map is copied.
func New(byColumn map[string]string) *Registry {
	m := make(map[string]string, len(byColumn))
	for k, v := range byColumn {
		m[k] = v
	}
	return &Registry{byColumn: m}
}

// WithOverrides returns a copy of the registry with the given columns replaced or added.
func (r *Registry) WithOverrides(overrides map[string]string) *Registry {
	if len(overrides) == 0 {
		return r
	}
	out := New(r.byColumn)
	for k, v := range overrides {
		out.byColumn[k] = v
	}
	return out
}

// DataID returns the Hawkular data id for a column.
func (r *Registry) DataID(column string) (string, bool) {
	id, ok := r.byColumn[column]
	return id, ok
}

// Columns lists the configured columns in sorted order.
func (r *Registry) Columns() []string {
	cols := make([]string, 0, len(r.byColumn))
	for c := range r.byColumn {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
