package can

import "errors"

// ErrClosed is returned from Send/Receive after a bus endpoint is closed.
var ErrClosed = errors.New("can: bus closed")

// Bus is the transport boundary of the pipeline: one blocking read side and
// one write side for outbound heartbeat frames. Implementations are the
// Linux SocketCAN driver and the in-memory loopback bus.
//
// Receive blocks until the next data frame arrives or the endpoint closes.
// A transport error is distinguishable from "no frame yet": Receive only
// returns once it has a frame or a terminal error.
type Bus interface {
	Send(Frame) error
	Receive() (Frame, error)
	Close() error
}
