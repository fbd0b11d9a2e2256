package eoican

import (
	base "github.com/Engineers-of-Innovation/eoi-can/pkg/eoican"
)

// Re-exported errors for convenience.
var (
	ErrChannelPublisherClosed = base.ErrChannelPublisherClosed
)

// Type aliases so consumers can import github.com/Engineers-of-Innovation/eoi-can
// directly.
type (
	Config           = base.Config
	CANConfig        = base.CANConfig
	PipelineConfig   = base.PipelineConfig
	TelemetryConfig  = base.TelemetryConfig
	MetricsConfig    = base.MetricsConfig
	MQTTConfig       = base.MQTTConfig
	MQTTBrokerConfig = base.MQTTBrokerConfig
	TimescaleConfig  = base.TimescaleConfig
	FrameLogConfig   = base.FrameLogConfig
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Runtime          = base.Runtime
	RuntimeOption    = base.RuntimeOption
	Frame            = base.Frame
	Bus              = base.Bus
	LoopbackBus      = base.LoopbackBus
	Message          = base.Message
	Snapshot         = base.Snapshot
	PanelPower       = base.PanelPower
	MessageBatchFunc = base.MessageBatchFunc
	Renderer         = base.Renderer
	Publisher        = base.Publisher
	HistorySink      = base.HistorySink
	FrameJournal     = base.FrameJournal
	HostInfo         = base.HostInfo
	Observability    = base.Observability
	Field            = base.Field
)

// Pipeline topologies.
const (
	ModeChannel   = base.ModeChannel
	ModeCollector = base.ModeCollector
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInBus(b Bus) StreamInOption {
	return base.StreamInBus(b)
}

func StreamInJournal(j FrameJournal) StreamInOption {
	return base.StreamInJournal(j)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutRenderer(r Renderer) StreamOutOption {
	return base.StreamOutRenderer(r)
}

func StreamOutPublisher(p Publisher) StreamOutOption {
	return base.StreamOutPublisher(p)
}

func StreamOutHistorySink(s HistorySink) StreamOutOption {
	return base.StreamOutHistorySink(s)
}

func StreamOutCallback(name string, fn MessageBatchFunc) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func New(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.New(cfg, opts...)
}

func WithBus(b Bus) RuntimeOption {
	return base.WithBus(b)
}

func WithRenderer(r Renderer) RuntimeOption {
	return base.WithRenderer(r)
}

func WithPublisher(p Publisher) RuntimeOption {
	return base.WithPublisher(p)
}

func WithHistorySink(s HistorySink) RuntimeOption {
	return base.WithHistorySink(s)
}

func WithJournal(j FrameJournal) RuntimeOption {
	return base.WithJournal(j)
}

func WithHostInfo(h HostInfo) RuntimeOption {
	return base.WithHostInfo(h)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Bus helpers.
func NewFrame(id uint32, data []byte) (Frame, error) {
	return base.NewFrame(id, data)
}

func NewLoopbackBus() *LoopbackBus {
	return base.NewLoopbackBus()
}

func DialSocketCAN(iface string) (Bus, error) {
	return base.DialSocketCAN(iface)
}

func Decode(f Frame) Message {
	return base.Decode(f)
}

// Publisher adapters.
func NewCallbackPublisher(name string, fn MessageBatchFunc) Publisher {
	return base.NewCallbackPublisher(name, fn)
}

func NewChannelPublisher(name string, buffer int) (Publisher, <-chan []Message, func()) {
	return base.NewChannelPublisher(name, buffer)
}
