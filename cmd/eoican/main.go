package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	eoican "github.com/Engineers-of-Innovation/eoi-can"
	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/framelog"
	"github.com/Engineers-of-Innovation/eoi-can/internal/adapters/render"
	"github.com/Engineers-of-Innovation/eoi-can/internal/codec"
	"github.com/Engineers-of-Innovation/eoi-can/internal/snapshot"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "replay":
		err = replayCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("eoican %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := eoican.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := eoican.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

// replayCommand feeds a journaled session back through the decoder and
// prints the resulting snapshot, so captures can be inspected off-vehicle.
func replayCommand(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	logPath := fs.String("log", "", "Path to a candump-format frame journal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *logPath == "" {
		return fmt.Errorf("-log is required")
	}

	records, err := framelog.ReadFile(*logPath)
	if err != nil {
		return err
	}

	// A generous TTL keeps every field readable after replay.
	snap := snapshot.New(24 * time.Hour)
	var decoded, unknown int
	for _, rec := range records {
		msg := codec.Decode(rec.Frame)
		if msg == nil {
			unknown++
			continue
		}
		decoded++
		snap.Ingest(msg)
	}

	fmt.Printf("replayed %d frames (%d decoded, %d unknown) from %s\n\n",
		len(records), decoded, unknown, *logPath)
	return render.NewTextRenderer(os.Stdout).Render(snap)
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"eoican_frames_received_total": 0,
		"eoican_frames_decoded_total":  0,
		"eoican_frames_dropped_total":  0,
		"eoican_snapshot_fresh_fields": 0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] received=%.0f decoded=%.0f dropped=%.0f fresh_fields=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["eoican_frames_received_total"],
		targets["eoican_frames_decoded_total"],
		targets["eoican_frames_dropped_total"],
		targets["eoican_snapshot_fresh_fields"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`eoican CLI

Usage:
  eoican <command> [flags]

Commands:
  run        Start the telemetry pipeline using the provided config
  validate   Load and validate a config file without starting the pipeline
  replay     Decode a journaled frame log and print the resulting snapshot
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  eoican run -config ./data/config.yaml
  eoican validate -config ./data/config.yaml
  eoican replay -log ./data/framelog/candump-2026-08-29_120000.log
  eoican stats -url http://localhost:9100/metrics -interval 1s
`)
}
