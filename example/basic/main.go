// Demo pipeline on the in-memory bus: one goroutine plays the vehicle,
// sending battery and GNSS frames, while the runtime renders the snapshot to
// the terminal once a second. No hardware required.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	eoican "github.com/Engineers-of-Innovation/eoi-can"
)

func main() {
	cfg := &eoican.Config{
		CAN:       eoican.CANConfig{Interface: "loopback"},
		Telemetry: eoican.TelemetryConfig{TTL: 5 * time.Second},
	}
	cfg.ApplyDefaults()

	flow, err := eoican.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := eoican.NewLoopbackBus()
	go simulateVehicle(ctx, bus.Open())

	if err := flow.
		StreamIN(eoican.StreamInBus(bus.Open())).
		Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("pipeline exited: %v", err)
	}
}

func simulateVehicle(ctx context.Context, bus eoican.Bus) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	soc := uint16(9765) // percent * 100
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Battery state of charge.
			socFrame, _ := eoican.NewFrame(0x102, []byte{byte(soc), byte(soc >> 8), 0, 0, 0, 0, 0, 0})
			// GNSS speed 21.5 km/h, heading 180 degrees.
			speedFrame, _ := eoican.NewFrame(0x201, []byte{0x00, 0x00, 0xAC, 0x41, 0x00, 0x00, 0x34, 0x43})

			for _, f := range []eoican.Frame{socFrame, speedFrame} {
				if err := bus.Send(f); err != nil {
					return
				}
			}
			if soc > 0 {
				soc--
			}
		}
	}
}
