// Package mqttpub forwards decoded telemetry to an MQTT broker as one merged
// JSON document per publish. Messages decoded later in the batch overwrite
// earlier values for the same key, so the document always carries the newest
// reading of every field that appeared in the interval.
package mqttpub

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/Engineers-of-Innovation/eoi-can/internal/codec"
	"github.com/Engineers-of-Innovation/eoi-can/internal/ports"
)

// Config holds the broker connection settings.
type Config struct {
	BrokerURL string        `yaml:"broker_url"`
	ClientID  string        `yaml:"client_id"`
	Topic     string        `yaml:"topic"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	Timeout   time.Duration `yaml:"timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "eoi-can"
	}
	if c.Topic == "" {
		c.Topic = "eoi/telemetry"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.BrokerURL == "" {
		return fmt.Errorf("mqtt.broker_url is required")
	}
	return nil
}

type Publisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

// NewPublisher connects to the broker and blocks until the connection is up
// or the timeout elapses.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(20 * time.Second).
		SetCleanSession(true).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.BrokerURL, err)
	}

	return &Publisher{client: client, topic: cfg.Topic, timeout: cfg.Timeout}, nil
}

func (p *Publisher) Name() string { return "mqtt" }

func (p *Publisher) Publish(msgs []codec.Message) error {
	doc := BuildDocument(msgs)
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal telemetry document: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s: timeout", p.topic)
	}
	return token.Error()
}

func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

// BuildDocument folds decoded messages into one nested document, oldest
// first. Later fragments overwrite earlier ones key by key.
func BuildDocument(msgs []codec.Message) map[string]any {
	doc := map[string]any{}
	for _, msg := range msgs {
		merge(doc, fragment(msg))
	}
	return doc
}

// merge deep-merges src into dst; maps combine, everything else overwrites.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				merge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}

func fragment(msg codec.Message) map[string]any {
	switch m := msg.(type) {
	case codec.BatteryPackAuxCurrent:
		return battery(map[string]any{
			"pack_current_a": m.PackCurrent,
			"aux_current_a":  m.AuxCurrent,
		})
	case codec.BatteryChargeDischargeCurrent:
		return battery(map[string]any{
			"charge_current_a":    m.ChargeCurrent,
			"discharge_current_a": m.DischargeCurrent,
		})
	case codec.BatterySocFlags:
		return battery(map[string]any{
			"soc_pct":          m.StateOfCharge,
			"error_flags":      m.ErrorFlags,
			"balancing_status": m.BalancingStatus,
		})
	case codec.BatteryCellVoltageGroup:
		cells := map[string]any{}
		for i, v := range m.Voltages {
			cells[fmt.Sprintf("cell_%02d", m.Offset+i+1)] = v
		}
		return battery(map[string]any{"cells_v": cells})
	case codec.BatteryCellsPackStack:
		return battery(map[string]any{
			"cells_v": map[string]any{
				"cell_13": m.Voltages[0],
				"cell_14": m.Voltages[1],
			},
			"pack_voltage_v":  m.PackVoltage,
			"stack_voltage_v": m.StackVoltage,
		})
	case codec.BatteryTemperaturesStates:
		return battery(map[string]any{
			"temperatures_c": []int8{
				m.Temperatures[0], m.Temperatures[1],
				m.Temperatures[2], m.Temperatures[3],
			},
			"ic_temperature_c": m.ICTemperature,
			"battery_state":    m.BatteryState,
			"charge_state":     m.ChargeState,
			"discharge_state":  m.DischargeState,
		})
	case codec.BatteryUptime:
		return battery(map[string]any{"uptime_ms": m.UptimeMs})

	case codec.MotorStatus1:
		return motor(map[string]any{
			"rpm":            m.RPM,
			"current_a":      m.Current,
			"duty_cycle_pct": m.DutyCycle,
		})
	case codec.MotorStatus2:
		return motor(map[string]any{
			"amp_hours_used":      m.AmpHoursUsed,
			"amp_hours_generated": m.AmpHoursGenerated,
		})
	case codec.MotorStatus3:
		return motor(map[string]any{
			"watt_hours_used":      m.WattHoursUsed,
			"watt_hours_generated": m.WattHoursGenerated,
		})
	case codec.MotorStatus4:
		return motor(map[string]any{
			"fet_temperature_c":   m.FetTemperature,
			"motor_temperature_c": m.MotorTemperature,
			"input_current_a":     m.TotalInputCurrent,
		})
	case codec.MotorStatus5:
		return motor(map[string]any{
			"input_voltage_v": m.InputVoltage,
			"tachometer":      m.Tachometer,
		})

	case codec.ThrottleStatus:
		return map[string]any{"throttle": map[string]any{
			"value_pct": m.Value,
			"gain":      m.Gain,
			"error_any": m.Errors.Any,
		}}
	case codec.ThrottleCommand:
		return map[string]any{"throttle": map[string]any{
			"command": map[string]any{
				"kind":  commandKind(m.Kind),
				"value": m.Value,
			},
		}}

	case codec.MpptChannelPower:
		return mpptChannel(m.MpptID, m.Channel, map[string]any{
			"voltage_in_v": m.VoltageIn,
			"current_in_a": m.CurrentIn,
		})
	case codec.MpptChannelState:
		return mpptChannel(m.MpptID, m.Channel, map[string]any{
			"duty_cycle": m.DutyCycle,
			"active":     m.ChannelActive,
		})
	case codec.MpptOutputPower:
		return mppt(m.MpptID, map[string]any{
			"voltage_out_v": m.VoltageOut,
			"current_out_a": m.CurrentOut,
		})
	case codec.MpptStatus:
		return mppt(m.MpptID, map[string]any{
			"temperature_c": m.Temperature,
			"switch_on":     m.SwitchOn,
		})

	case codec.GnssStatus:
		return gnss(map[string]any{
			"fix":       m.Fix,
			"sats":      m.Sats,
			"sats_used": m.SatsUsed,
		})
	case codec.GnssSpeedHeading:
		return gnss(map[string]any{
			"speed_kmh":   m.SpeedKmh,
			"heading_deg": m.HeadingDeg,
		})
	case codec.GnssLatitude:
		return gnss(map[string]any{"latitude_deg": m.Degrees})
	case codec.GnssLongitude:
		return gnss(map[string]any{"longitude_deg": m.Degrees})
	case codec.GnssDateTime:
		return gnss(map[string]any{
			"time_utc": fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02dZ",
				m.Year, m.Month, m.Day, m.Hours, m.Minutes, m.Seconds),
		})
	}
	return nil
}

func commandKind(k codec.ThrottleCommandKind) string {
	switch k {
	case codec.ThrottleCmdDutyCycle:
		return "duty_cycle"
	case codec.ThrottleCmdCurrent:
		return "current"
	case codec.ThrottleCmdRPM:
		return "rpm"
	}
	return fmt.Sprintf("unknown(%d)", k)
}

func battery(fields map[string]any) map[string]any {
	return map[string]any{"battery": fields}
}

func motor(fields map[string]any) map[string]any {
	return map[string]any{"motor": fields}
}

func gnss(fields map[string]any) map[string]any {
	return map[string]any{"gnss": fields}
}

func mppt(id uint8, fields map[string]any) map[string]any {
	return map[string]any{"mppt": map[string]any{
		fmt.Sprintf("%d", id): fields,
	}}
}

func mpptChannel(id, channel uint8, fields map[string]any) map[string]any {
	return mppt(id, map[string]any{
		"channels": map[string]any{
			fmt.Sprintf("%d", channel): fields,
		},
	})
}

var _ ports.Publisher = (*Publisher)(nil)
