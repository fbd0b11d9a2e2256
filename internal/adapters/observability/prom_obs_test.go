package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs(nil)

	obs.IncCounter("eoican_frames_received_total", 5)
	if got := testutil.ToFloat64(obs.counters["eoican_frames_received_total"]); got != 5 {
		t.Fatalf("expected received counter 5, got %f", got)
	}

	obs.IncCounter("eoican_frames_dropped_total", 2)
	if got := testutil.ToFloat64(obs.counters["eoican_frames_dropped_total"]); got != 2 {
		t.Fatalf("expected dropped counter 2, got %f", got)
	}

	obs.SetGauge("eoican_snapshot_fresh_fields", 42)
	if got := testutil.ToFloat64(obs.gauges["eoican_snapshot_fresh_fields"]); got != 42 {
		t.Fatalf("expected fresh fields gauge 42, got %f", got)
	}

	obs.ObserveLatency("eoican_drain_duration_seconds", 0.002)
	hCollector := obs.histos["eoican_drain_duration_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected drain histogram to record 1 sample, got %d", samples)
	}

	// Unknown names are ignored rather than panicking.
	obs.IncCounter("eoican_no_such_counter", 1)
	obs.SetGauge("eoican_no_such_gauge", 1)
	obs.ObserveLatency("eoican_no_such_histogram", 1)
}
