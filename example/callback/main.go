// Receives every decoded message batch through a callback publisher and
// prints the readings it understands. Pair it with the basic example's
// simulator or a real vcan interface.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	eoican "github.com/Engineers-of-Innovation/eoi-can"
	"github.com/Engineers-of-Innovation/eoi-can/internal/codec"
)

func main() {
	cfg := &eoican.Config{
		CAN:       eoican.CANConfig{Interface: "vcan0"},
		Pipeline:  eoican.PipelineConfig{Mode: eoican.ModeChannel},
		Telemetry: eoican.TelemetryConfig{TTL: 5 * time.Second},
		MQTT:      eoican.MQTTConfig{Interval: time.Second},
	}
	cfg.ApplyDefaults()

	flow, err := eoican.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(batch []eoican.Message) error {
		for _, msg := range batch {
			switch m := msg.(type) {
			case codec.BatterySocFlags:
				fmt.Printf("battery soc=%.2f%%\n", m.StateOfCharge)
			case codec.GnssSpeedHeading:
				fmt.Printf("speed=%.1f km/h heading=%.0f\n", m.SpeedKmh, m.HeadingDeg)
			case codec.MotorStatus1:
				fmt.Printf("motor rpm=%d current=%.1fA duty=%.1f%%\n", m.RPM, m.Current, m.DutyCycle)
			}
		}
		return nil
	}

	if err := flow.Run(ctx, eoican.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("pipeline error: %v", err)
	}
}
