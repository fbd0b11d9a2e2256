package eoican

import (
	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
	"github.com/Engineers-of-Innovation/eoi-can/internal/codec"
	"github.com/Engineers-of-Innovation/eoi-can/internal/ports"
	"github.com/Engineers-of-Innovation/eoi-can/internal/snapshot"
)

// Frame is a single CAN 2.0 data frame as it travels the bus.
type Frame = can.Frame

// Bus is the transport boundary: one blocking read side and one write side
// for outbound frames.
type Bus = can.Bus

// LoopbackBus is the in-memory bus used by demos, replays, and tests.
type LoopbackBus = can.LoopbackBus

// Message is a decoded bus message. Use a type switch over the codec package's
// concrete message types to consume it.
type Message = codec.Message

// Snapshot is the conflated latest-value view of the vehicle.
type Snapshot = snapshot.Snapshot

// PanelPower is one MPPT channel's electrical reading inside the snapshot.
type PanelPower = snapshot.PanelPower

// Renderer presents the snapshot to a consumer each render tick.
type Renderer = ports.Renderer

// Publisher forwards decoded message batches off the vehicle.
type Publisher = ports.Publisher

// HistorySink persists periodic snapshot rows for after-race analysis.
type HistorySink = ports.HistorySink

// FrameJournal records raw frames for later replay.
type FrameJournal = ports.FrameJournal

// HostInfo supplies host-side snapshot fields (IP address, display battery).
type HostInfo = ports.HostInfo

// Observability emits metrics and logs about pipeline throughput and errors.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// NewFrame builds a data frame, marking it extended when the identifier
// exceeds the 11-bit range.
func NewFrame(id uint32, data []byte) (Frame, error) {
	return can.NewFrame(id, data)
}

// NewLoopbackBus creates an in-memory bus; every endpoint opened from it sees
// frames sent by the others.
func NewLoopbackBus() *LoopbackBus {
	return can.NewLoopbackBus()
}

// DialSocketCAN opens the named SocketCAN interface (Linux only).
func DialSocketCAN(iface string) (Bus, error) {
	return can.DialSocketCAN(iface)
}

// Decode turns a raw frame into its typed message, or nil for unknown IDs.
func Decode(f Frame) Message {
	return codec.Decode(f)
}
