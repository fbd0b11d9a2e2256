// Package eoican embeds the CAN telemetry pipeline inside any Go service. It
// wires the default adapters from a Config and exposes simple lifecycle
// hooks; every dependency can be overridden with a RuntimeOption.
package eoican

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/framelog"
	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/hostinfo"
	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/mqttpub"
	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/observability"
	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/render"
	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/sink"
	"github.com/Engineers-of-Innovation/eoi-can/internal/app/pipeline"
	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
	"github.com/Engineers-of-Innovation/eoi-can/internal/ports"
	"github.com/Engineers-of-Innovation/eoi-can/internal/snapshot"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	bus           can.Bus
	renderer      ports.Renderer
	publisher     ports.Publisher
	sink          ports.HistorySink
	journal       ports.FrameJournal
	hostInfo      ports.HostInfo
	observability ports.Observability
	noHostInfo    bool
}

// WithBus injects a custom bus implementation (loopback, replay, simulators).
func WithBus(b Bus) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.bus = b
	}
}

// WithRenderer replaces the default terminal renderer.
func WithRenderer(r Renderer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.renderer = r
	}
}

// WithPublisher injects a custom publisher so message batches can be sent to
// any downstream system instead of MQTT.
func WithPublisher(p Publisher) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.publisher = p
	}
}

// WithHistorySink injects a custom history sink in place of TimescaleDB.
func WithHistorySink(s HistorySink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithJournal lets callers bring their own frame journal implementation.
func WithJournal(j FrameJournal) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.journal = j
	}
}

// WithHostInfo replaces the default host probe. Passing nil disables
// host-side polling entirely.
func WithHostInfo(h HostInfo) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.hostInfo = h
		o.noHostInfo = h == nil
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// Runtime wires up the bus → snapshot → outputs pipeline and exposes simple
// lifecycle hooks for embedding the telemetry core inside any Go service.
type Runtime struct {
	cfg        *Config
	snap       *snapshot.Snapshot
	pipe       *pipeline.Pipeline
	obs        ports.Observability
	bus        can.Bus
	renderer   ports.Renderer
	publisher  ports.Publisher
	sink       ports.HistorySink
	journal    ports.FrameJournal
	hostInfo   ports.HostInfo
	db         *sql.DB
	logger     *zap.Logger
	metricsSrv *http.Server

	cancel context.CancelFunc
	doneCh chan struct{}
}

// New bootstraps the default adapters (SocketCAN bus, terminal renderer,
// MQTT publisher, Timescale sink, Prometheus observability). Callers can use
// RuntimeOption values to override any dependency.
func New(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	rt := &Runtime{cfg: cfg}

	obs := overrides.observability
	if obs == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		rt.logger = logger
		obs = observability.NewPromObs(logger.Sugar())
	}
	rt.obs = obs

	bus := overrides.bus
	if bus == nil {
		var err error
		if cfg.CAN.Interface == "loopback" {
			bus = can.NewLoopbackBus().Open()
		} else {
			bus, err = can.DialSocketCAN(cfg.CAN.Interface)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", cfg.CAN.Interface, err)
			}
		}
	}

	renderer := overrides.renderer
	if renderer == nil {
		renderer = render.NewTextRenderer(os.Stdout)
	}

	pub := overrides.publisher
	if pub == nil && cfg.MQTT.Enabled {
		var err error
		pub, err = mqttpub.NewPublisher(cfg.MQTT.Config)
		if err != nil {
			return nil, err
		}
	}
	rt.publisher = pub

	snk := overrides.sink
	if snk == nil && cfg.Timescale.Enabled {
		db, err := sql.Open("postgres", cfg.Timescale.ConnString)
		if err != nil {
			return nil, err
		}
		rt.db = db
		snk = sink.NewTimescaleSink(db, cfg.Timescale.Table)
	}

	journal := overrides.journal
	if journal == nil && cfg.FrameLog.Enabled {
		var err error
		journal, err = framelog.NewFileJournal(cfg.FrameLog.Dir, cfg.CAN.Interface)
		if err != nil {
			return nil, err
		}
	}

	host := overrides.hostInfo
	if host == nil && !overrides.noHostInfo {
		host = hostinfo.NewProbe(hostinfo.DefaultBatteryAddr)
	}

	rt.bus = bus
	rt.renderer = renderer
	rt.sink = snk
	rt.journal = journal
	rt.hostInfo = host
	rt.snap = snapshot.New(cfg.Telemetry.TTL)

	pipe, err := pipeline.New(pipeline.Options{
		Bus:       bus,
		Snapshot:  rt.snap,
		Obs:       obs,
		Renderer:  renderer,
		Publisher: pub,
		Sink:      snk,
		Journal:   journal,
		HostInfo:  host,

		Mode:              cfg.Pipeline.Mode,
		ChannelBuffer:     cfg.Pipeline.ChannelBuffer,
		CollectorCapacity: cfg.Pipeline.CollectorCapacity,
		DrainInterval:     cfg.Pipeline.DrainInterval,
		RenderInterval:    cfg.Pipeline.RenderInterval,
		PublishInterval:   cfg.MQTT.Interval,
		SinkInterval:      cfg.Timescale.Interval,
		KeepaliveInterval: cfg.Pipeline.KeepaliveInterval,
	})
	if err != nil {
		return nil, err
	}
	rt.pipe = pipe

	return rt, nil
}

// Snapshot returns the live telemetry snapshot. Reads are safe at any time;
// fields older than the configured TTL report as absent.
func (r *Runtime) Snapshot() *snapshot.Snapshot {
	if r == nil {
		return nil
	}
	return r.snap
}

// Start launches the pipeline and the metrics server. It returns immediately;
// call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if r.doneCh != nil {
		return fmt.Errorf("runtime already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.doneCh = make(chan struct{})

	go func() {
		defer close(r.doneCh)
		if err := r.pipe.Run(ctx); err != nil {
			r.obs.LogCritical("pipeline_exited", err)
		}
	}()

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the pipeline, the metrics server, the publisher, and the DB
// connection.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.cancel != nil {
		r.cancel()
	}
	if r.doneCh != nil {
		select {
		case <-r.doneCh:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if r.publisher != nil {
		if err := r.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.logger != nil {
		_ = r.logger.Sync()
	}

	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	if r.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err)
		}
	}()
}
