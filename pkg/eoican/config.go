package eoican

import (
	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/mqttpub"
	"github.com/Engineers-of-Innovation/eoi-can/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// CANConfig selects the bus device.
	CANConfig = config.CANConfig
	// PipelineConfig selects the topology and its intervals.
	PipelineConfig = config.PipelineConfig
	// TelemetryConfig controls snapshot freshness.
	TelemetryConfig = config.TelemetryConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// MQTTConfig configures the merged-document publisher.
	MQTTConfig = config.MQTTConfig
	// MQTTBrokerConfig holds the broker connection details.
	MQTTBrokerConfig = mqttpub.Config
	// TimescaleConfig configures the history sink.
	TimescaleConfig = config.TimescaleConfig
	// FrameLogConfig configures raw frame journaling.
	FrameLogConfig = config.FrameLogConfig
)

// Pipeline topologies accepted by PipelineConfig.Mode.
const (
	ModeChannel   = config.ModeChannel
	ModeCollector = config.ModeCollector
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
