// Fans decoded message batches out over a channel so a worker can forward
// them to a downstream system at its own pace.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	eoican "github.com/Engineers-of-Innovation/eoi-can"
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

	pub, batches, closeBatches := eoican.NewChannelPublisher("fanout", 32)
	defer closeBatches()

	go fanoutWorker("ingest", batches)

	if err := flow.Run(ctx, eoican.StreamOutPublisher(pub)); err != nil && err != context.Canceled {
		log.Fatalf("pipeline error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []eoican.Message) {
	for batch := range batches {
		fmt.Printf("[%s] forwarding %d messages at %s\n", name, len(batch), time.Now().Format(time.RFC3339))
	}
}
