package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestScanDurationObserves(t *testing.T) {
	h := ScanDuration.WithLabelValues("metrics-test")
	h.Observe(0.002)
	h.Observe(0.3)

	var m dto.Metric
	if err := h.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("expected 2 samples, got %d", got)
	}
}

func TestMetricsRegisteredOnDefaultRegistry(t *testing.T) {
	PluginsLoaded.WithLabelValues("metrics-test", SourceScan).Inc()
	PluginsDisabled.WithLabelValues("metrics-test").Inc()
	LoadFailures.WithLabelValues("metrics-test", SourceManual).Inc()
	ScanErrors.WithLabelValues("metrics-test", "missing_dir").Inc()
	ScanDuration.WithLabelValues("metrics-test").Observe(0.01)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		got[f.GetName()] = f
	}

	want := map[string]dto.MetricType{
		"plugdir_plugins_loaded_total":       dto.MetricType_COUNTER,
		"plugdir_plugins_disabled_total":     dto.MetricType_COUNTER,
		"plugdir_plugin_load_failures_total": dto.MetricType_COUNTER,
		"plugdir_scan_errors_total":          dto.MetricType_COUNTER,
		"plugdir_scan_duration_seconds":      dto.MetricType_HISTOGRAM,
		"plugdir_registries":                 dto.MetricType_GAUGE,
	}
	for name, typ := range want {
		f, ok := got[name]
		if !ok {
			t.Errorf("metric %s not registered", name)
			continue
		}
		if f.GetType() != typ {
			t.Errorf("metric %s: expected type %v, got %v", name, typ, f.GetType())
		}
	}
}
