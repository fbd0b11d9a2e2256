// Package pipeline moves frames from the bus into the telemetry snapshot and
// fans the result out to the configured outputs.
//
// Two topologies are supported. In channel mode the receive task decodes
// every frame immediately and hands messages over a bounded channel, so no
// reading is ever conflated but bursts can drop. In collector mode the
// receive task only files raw frames into the de-duplicating collector and
// the tick loop decodes whatever survived the interval, trading per-frame
// history for bounded work per tick. Consumers that only render the latest
// state run collector mode; consumers that forward every reading run channel
// mode.
//
// The snapshot is owned by the tick loop alone. The receive task never
// touches it, so no lock guards the snapshot itself.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Engineers-of-Innovation/eoi-can/internal/app/config"
	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
	"github.com/Engineers-of-Innovation/eoi-can/internal/codec"
	"github.com/Engineers-of-Innovation/eoi-can/internal/collector"
	"github.com/Engineers-of-Innovation/eoi-can/internal/ports"
	"github.com/Engineers-of-Innovation/eoi-can/internal/snapshot"
)

// KeepaliveID and keepalivePayload form the presence beacon other nodes use
// to detect a live display.
const KeepaliveID = 0x123

var keepalivePayload = []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

// Options wires a Pipeline. Bus, Snapshot and Obs are required; every output
// is optional.
type Options struct {
	Bus      can.Bus
	Snapshot *snapshot.Snapshot
	Obs      ports.Observability

	Renderer  ports.Renderer
	Publisher ports.Publisher
	Sink      ports.HistorySink
	Journal   ports.FrameJournal
	HostInfo  ports.HostInfo

	Mode              string
	ChannelBuffer     int
	CollectorCapacity int
	DrainInterval     time.Duration
	RenderInterval    time.Duration
	PublishInterval   time.Duration
	SinkInterval      time.Duration
	KeepaliveInterval time.Duration
	HostInfoInterval  time.Duration
}

type Pipeline struct {
	opts Options

	col   *collector.Collector // collector mode
	msgCh chan codec.Message   // channel mode

	wg sync.WaitGroup
}

func New(opts Options) (*Pipeline, error) {
	if opts.Bus == nil {
		return nil, errors.New("pipeline: bus is required")
	}
	if opts.Snapshot == nil {
		return nil, errors.New("pipeline: snapshot is required")
	}
	if opts.Obs == nil {
		return nil, errors.New("pipeline: observability is required")
	}
	if opts.DrainInterval <= 0 {
		opts.DrainInterval = 100 * time.Millisecond
	}
	if opts.RenderInterval <= 0 {
		opts.RenderInterval = time.Second
	}
	if opts.HostInfoInterval <= 0 {
		opts.HostInfoInterval = 30 * time.Second
	}
	// A publisher without an interval would collect batches forever and
	// never flush them.
	if opts.Publisher != nil && opts.PublishInterval <= 0 {
		opts.PublishInterval = 10 * time.Second
	}
	if opts.Sink != nil && opts.SinkInterval <= 0 {
		opts.SinkInterval = time.Second
	}

	p := &Pipeline{opts: opts}
	switch opts.Mode {
	case config.ModeChannel:
		buf := opts.ChannelBuffer
		if buf <= 0 {
			buf = 256
		}
		p.msgCh = make(chan codec.Message, buf)
	case config.ModeCollector, "":
		cap := opts.CollectorCapacity
		if cap <= 0 {
			cap = collector.DefaultCapacity
		}
		p.col = collector.New(cap)
	default:
		return nil, errors.New("pipeline: unknown mode " + opts.Mode)
	}
	return p, nil
}

// Run blocks until ctx is cancelled. On cancellation it closes the bus to
// unblock the receive task, waits for it, and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.wg.Add(1)
	go p.receive()

	p.tickLoop(ctx)

	_ = p.opts.Bus.Close()
	p.wg.Wait()

	if p.opts.Journal != nil {
		if err := p.opts.Journal.Close(); err != nil {
			p.opts.Obs.LogError("framelog_close_failed", err)
		}
	}
	return nil
}

// receive reads frames until the bus closes.
func (p *Pipeline) receive() {
	defer p.wg.Done()
	for {
		f, err := p.opts.Bus.Receive()
		if err != nil {
			if !errors.Is(err, can.ErrClosed) {
				p.opts.Obs.LogCritical("bus_receive_failed", err)
			}
			return
		}
		p.opts.Obs.IncCounter("eoican_frames_received_total", 1)

		if p.opts.Journal != nil {
			if err := p.opts.Journal.Append(time.Now(), f); err != nil {
				p.opts.Obs.LogError("framelog_append_failed", err)
			}
		}

		if p.col != nil {
			p.col.Insert(f)
			continue
		}

		msg := codec.Decode(f)
		if msg == nil {
			p.opts.Obs.IncCounter("eoican_frames_unknown_total", 1)
			continue
		}
		select {
		case p.msgCh <- msg:
		default:
			// Consumer is behind; newest-first matters less than not
			// blocking the bus reader.
			p.opts.Obs.IncCounter("eoican_frames_dropped_total", 1)
		}
	}
}

func (p *Pipeline) tickLoop(ctx context.Context) {
	drain := time.NewTicker(p.opts.DrainInterval)
	defer drain.Stop()
	render := time.NewTicker(p.opts.RenderInterval)
	defer render.Stop()

	var (
		publishC  <-chan time.Time
		sinkC     <-chan time.Time
		keepC     <-chan time.Time
		hostC     <-chan time.Time
		pending   []codec.Message
		collected = p.opts.Publisher != nil
	)
	if p.opts.Publisher != nil && p.opts.PublishInterval > 0 {
		t := time.NewTicker(p.opts.PublishInterval)
		defer t.Stop()
		publishC = t.C
	}
	if p.opts.Sink != nil && p.opts.SinkInterval > 0 {
		t := time.NewTicker(p.opts.SinkInterval)
		defer t.Stop()
		sinkC = t.C
	}
	if p.opts.KeepaliveInterval > 0 {
		t := time.NewTicker(p.opts.KeepaliveInterval)
		defer t.Stop()
		keepC = t.C
	}
	if p.opts.HostInfo != nil {
		t := time.NewTicker(p.opts.HostInfoInterval)
		defer t.Stop()
		hostC = t.C
		p.pollHostInfo()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-drain.C:
			start := time.Now()
			msgs := p.drainOnce()
			for _, m := range msgs {
				p.opts.Snapshot.Ingest(m)
			}
			if collected {
				pending = append(pending, msgs...)
			}
			p.opts.Obs.ObserveLatency("eoican_drain_duration_seconds", time.Since(start).Seconds())
			p.opts.Obs.SetGauge("eoican_snapshot_fresh_fields", float64(p.opts.Snapshot.FreshFields()))

		case <-render.C:
			if p.opts.Renderer != nil {
				if err := p.opts.Renderer.Render(p.opts.Snapshot); err != nil {
					p.opts.Obs.LogError("render_failed", err,
						ports.Field{Key: "renderer", Value: p.opts.Renderer.Name()})
				}
			}

		case <-publishC:
			if err := p.opts.Publisher.Publish(pending); err != nil {
				p.opts.Obs.LogError("publish_failed", err,
					ports.Field{Key: "publisher", Value: p.opts.Publisher.Name()})
			}
			pending = pending[:0]

		case <-sinkC:
			if err := p.opts.Sink.WriteSnapshot(time.Now(), p.opts.Snapshot); err != nil {
				p.opts.Obs.LogError("history_write_failed", err,
					ports.Field{Key: "sink", Value: p.opts.Sink.Name()})
			}

		case <-keepC:
			f := can.MustFrame(KeepaliveID, keepalivePayload)
			if err := p.opts.Bus.Send(f); err != nil {
				p.opts.Obs.LogError("keepalive_send_failed", err)
			} else {
				p.opts.Obs.IncCounter("eoican_keepalives_sent_total", 1)
			}

		case <-hostC:
			p.pollHostInfo()
		}
	}
}

// drainOnce empties whichever buffer the topology uses and returns the
// decoded messages, oldest first.
func (p *Pipeline) drainOnce() []codec.Message {
	if p.col != nil {
		frames, dropped := p.col.Drain()
		if dropped > 0 {
			p.opts.Obs.IncCounter("eoican_frames_dropped_total", float64(dropped))
		}
		p.opts.Obs.SetGauge("eoican_collector_length", 0)

		msgs := make([]codec.Message, 0, len(frames))
		for _, f := range frames {
			msg := codec.Decode(f)
			if msg == nil {
				p.opts.Obs.IncCounter("eoican_frames_unknown_total", 1)
				continue
			}
			p.opts.Obs.IncCounter("eoican_frames_decoded_total", 1)
			msgs = append(msgs, msg)
		}
		return msgs
	}

	var msgs []codec.Message
	for {
		select {
		case m := <-p.msgCh:
			p.opts.Obs.IncCounter("eoican_frames_decoded_total", 1)
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func (p *Pipeline) pollHostInfo() {
	if addr, err := p.opts.HostInfo.IPAddress(); err == nil {
		p.opts.Snapshot.SetIPAddress(addr)
	}
	if soc, charging, err := p.opts.HostInfo.DisplayBattery(); err == nil {
		p.opts.Snapshot.SetDisplayBattery(soc, charging)
	}
}
