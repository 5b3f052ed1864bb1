package datapull

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GlobalAnalyticsName is the registry name of the global analytics handler.
// Routes targeting it bypass regional handlers entirely, and the result
// normalizer uses it to pick the provenance marker wording.
const GlobalAnalyticsName = "GFW"

// Routes maps dataset metrics and source names directly to a handler,
// bypassing the registry's candidate scan. It is a data-driven lookup
// table, not control flow: adding a metric route is a configuration
// change. Loaded once at start-up and read-only afterwards.
type Routes struct {
	metrics map[string]string // lowercased metric -> handler name
	sources map[string]string // lowercased source -> handler name
}

// DefaultRoutes returns the built-in routing table. Vegetation and
// forest-cover style metrics go straight to the global analytics handler;
// no regional source carries them.
func DefaultRoutes() *Routes {
	return &Routes{
		metrics: map[string]string{
			"forest_cover":  GlobalAnalyticsName,
			"tree_cover":    GlobalAnalyticsName,
			"tree_loss":     GlobalAnalyticsName,
			"deforestation": GlobalAnalyticsName,
		},
		sources: map[string]string{
			"tree cover":      GlobalAnalyticsName,
			"tree cover loss": GlobalAnalyticsName,
		},
	}
}

// routesFile is the YAML shape of a routing overlay file.
type routesFile struct {
	Metrics map[string]string `yaml:"metrics"`
	Sources map[string]string `yaml:"sources"`
}

// LoadFile merges routes from a YAML file over the current table. Entries
// in the file win over built-ins with the same key.
func (r *Routes) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read routes file: %w", err)
	}

	var f routesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse routes file %s: %w", path, err)
	}

	for metric, handler := range f.Metrics {
		r.metrics[strings.ToLower(metric)] = handler
	}
	for source, handler := range f.Sources {
		r.sources[strings.ToLower(source)] = handler
	}
	return nil
}

// Lookup returns the handler name routed for the dataset, if any. Metric
// routes take precedence over source routes; both match case-insensitively.
func (r *Routes) Lookup(ds Dataset) (string, bool) {
	if r == nil {
		return "", false
	}
	if ds.Metric != "" {
		if h, ok := r.metrics[strings.ToLower(ds.Metric)]; ok {
			return h, true
		}
	}
	if ds.Source != "" {
		if h, ok := r.sources[strings.ToLower(ds.Source)]; ok {
			return h, true
		}
	}
	return "", false
}

// Entries returns a copy of the table for diagnostics (CLI and tools).
func (r *Routes) Entries() (metrics, sources map[string]string) {
	metrics = make(map[string]string, len(r.metrics))
	sources = make(map[string]string, len(r.sources))
	for k, v := range r.metrics {
		metrics[k] = v
	}
	for k, v := range r.sources {
		sources[k] = v
	}
	return metrics, sources
}
