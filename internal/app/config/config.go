// Package config loads and validates the YAML runtime configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/mqttpub"
	"github.com/Engineers-of-Innovation/eoi-can/internal/collector"
	"github.com/Engineers-of-Innovation/eoi-can/internal/stale"
)

// Pipeline topologies.
const (
	ModeChannel   = "channel"
	ModeCollector = "collector"
)

type Config struct {
	CAN       CANConfig       `yaml:"can"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Timescale TimescaleConfig `yaml:"timescale"`
	FrameLog  FrameLogConfig  `yaml:"framelog"`
}

type CANConfig struct {
	// Interface is the SocketCAN device, e.g. can0 or vcan0. The literal
	// value "loopback" selects the in-memory bus for demos and tests.
	Interface string `yaml:"interface"`
}

type PipelineConfig struct {
	// Mode selects the topology: "channel" decodes on the receive task and
	// hands messages over a bounded channel; "collector" buffers raw frames
	// in the de-duplicating collector and decodes on drain.
	Mode string `yaml:"mode"`

	ChannelBuffer     int           `yaml:"channel_buffer"`
	CollectorCapacity int           `yaml:"collector_capacity"`
	DrainInterval     time.Duration `yaml:"drain_interval"`
	RenderInterval    time.Duration `yaml:"render_interval"`

	// KeepaliveInterval of 0 disables the keepalive transmitter.
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
}

type TelemetryConfig struct {
	// TTL after which an unrefreshed snapshot field reads as absent.
	TTL time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type MQTTConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`

	mqttpub.Config `yaml:",inline"`
}

type TimescaleConfig struct {
	Enabled    bool          `yaml:"enabled"`
	ConnString string        `yaml:"conn_string"`
	Table      string        `yaml:"table"`
	Interval   time.Duration `yaml:"interval"`
}

type FrameLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.CAN.Interface == "" {
		c.CAN.Interface = "can0"
	}
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = ModeCollector
	}
	if c.Pipeline.ChannelBuffer == 0 {
		c.Pipeline.ChannelBuffer = 256
	}
	if c.Pipeline.CollectorCapacity == 0 {
		c.Pipeline.CollectorCapacity = collector.DefaultCapacity
	}
	if c.Pipeline.DrainInterval == 0 {
		c.Pipeline.DrainInterval = 100 * time.Millisecond
	}
	if c.Pipeline.RenderInterval == 0 {
		c.Pipeline.RenderInterval = time.Second
	}
	if c.Telemetry.TTL == 0 {
		c.Telemetry.TTL = stale.DefaultTTL
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.MQTT.Enabled {
		if c.MQTT.Interval == 0 {
			c.MQTT.Interval = 10 * time.Second
		}
		c.MQTT.Config.ApplyDefaults()
	}
	if c.Timescale.Enabled {
		if c.Timescale.Table == "" {
			c.Timescale.Table = "telemetry_history"
		}
		if c.Timescale.Interval == 0 {
			c.Timescale.Interval = time.Second
		}
	}
	if c.FrameLog.Enabled && c.FrameLog.Dir == "" {
		c.FrameLog.Dir = "./data/framelog"
	}
}

func (c *Config) Validate() error {
	switch c.Pipeline.Mode {
	case ModeChannel, ModeCollector:
	default:
		return fmt.Errorf("pipeline.mode must be %q or %q, got %q",
			ModeChannel, ModeCollector, c.Pipeline.Mode)
	}
	if c.Pipeline.ChannelBuffer < 0 {
		return fmt.Errorf("pipeline.channel_buffer must be >= 0")
	}
	if c.Pipeline.CollectorCapacity <= 0 {
		return fmt.Errorf("pipeline.collector_capacity must be > 0")
	}
	if c.Pipeline.DrainInterval <= 0 {
		return fmt.Errorf("pipeline.drain_interval must be > 0")
	}
	if c.Telemetry.TTL <= 0 {
		return fmt.Errorf("telemetry.ttl must be > 0")
	}
	if c.MQTT.Enabled {
		if err := c.MQTT.Config.Validate(); err != nil {
			return err
		}
	}
	if c.Timescale.Enabled && c.Timescale.ConnString == "" {
		return fmt.Errorf("timescale.conn_string is required when timescale is enabled")
	}
	return nil
}
