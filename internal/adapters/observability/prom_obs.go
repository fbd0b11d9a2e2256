// Package observability backs the ports.Observability interface with zap for
// structured logs and Prometheus for metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Engineers-of-Innovation/eoi-can/internal/ports"
)

type PromObs struct {
	log      *zap.SugaredLogger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the pipeline metrics on the default registry and wraps
// the given logger. A nil logger falls back to a no-op logger so tests can
// construct the adapter without zap plumbing.
func NewPromObs(log *zap.SugaredLogger) *PromObs {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	framesReceived := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eoican_frames_received_total",
		Help: "Raw frames read off the bus.",
	})
	framesDecoded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eoican_frames_decoded_total",
		Help: "Frames that decoded into a telemetry message.",
	})
	framesUnknown := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eoican_frames_unknown_total",
		Help: "Frames dropped because no decoder matched.",
	})
	framesDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eoican_frames_dropped_total",
		Help: "Frames lost to collector replacement or capacity eviction.",
	})
	keepalives := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eoican_keepalives_sent_total",
		Help: "Keepalive frames transmitted onto the bus.",
	})
	freshFields := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eoican_snapshot_fresh_fields",
		Help: "Snapshot fields currently inside their TTL.",
	})
	collectorLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eoican_collector_length",
		Help: "Frames buffered in the collector awaiting the next drain.",
	})
	drainLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "eoican_drain_duration_seconds",
		Help:    "Time spent draining, decoding and ingesting one tick's frames.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	prometheus.MustRegister(framesReceived, framesDecoded, framesUnknown,
		framesDropped, keepalives, freshFields, collectorLen, drainLatency)

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			"eoican_frames_received_total": framesReceived,
			"eoican_frames_decoded_total":  framesDecoded,
			"eoican_frames_unknown_total":  framesUnknown,
			"eoican_frames_dropped_total":  framesDropped,
			"eoican_keepalives_sent_total": keepalives,
		},
		gauges: map[string]prometheus.Gauge{
			"eoican_snapshot_fresh_fields": freshFields,
			"eoican_collector_length":      collectorLen,
		},
		histos: map[string]prometheus.Observer{
			"eoican_drain_duration_seconds": drainLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Infow(msg, flatten(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Errorw(msg, append(flatten(fields), "error", err)...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Errorw(msg, append(flatten(fields), "error", err, "critical", true)...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func flatten(fields []ports.Field) []any {
	kv := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}

var _ ports.Observability = (*PromObs)(nil)
