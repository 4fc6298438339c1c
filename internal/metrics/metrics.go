// Package metrics registers the Prometheus metrics emitted by plugin
// registries. The collectors live on the default registry so the serve
// command only has to mount promhttp.Handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load sources used as the "source" label.
const (
	SourceScan   = "scan"
	SourceManual = "manual"
)

var (
	// PluginsLoaded counts plugins instantiated and registered, labelled by
	// plugin type and source ("scan" or "manual").
	PluginsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugdir_plugins_loaded_total",
			Help: "Total number of plugins instantiated and registered.",
		},
		[]string{"type", "source"},
	)

	// PluginsDisabled counts modules skipped because of the disable marker.
	PluginsDisabled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugdir_plugins_disabled_total",
			Help: "Total number of modules skipped by the disable marker.",
		},
		[]string{"type"},
	)

	// LoadFailures counts plugin constructions that failed.
	LoadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugdir_plugin_load_failures_total",
			Help: "Total number of failed plugin constructions.",
		},
		[]string{"type", "source"},
	)

	// ScanErrors counts directory scans that could not enumerate modules,
	// labelled by reason ("missing_dir" or "scan_error").
	ScanErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugdir_scan_errors_total",
			Help: "Total number of plugin directory scans that failed to enumerate.",
		},
		[]string{"type", "reason"},
	)

	// ScanDuration observes how long a directory scan took, in seconds.
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plugdir_scan_duration_seconds",
			Help:    "Plugin directory scan duration in seconds.",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"type"},
	)

	// Registries is the number of plugin registries currently cached by
	// managers.
	Registries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plugdir_registries",
			Help: "Number of plugin registries currently cached.",
		},
	)
)
