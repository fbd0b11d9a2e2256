package ports

import (
	"time"

	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
)

// FrameJournal records raw frames as they arrive so a session can be replayed
// later through the same decode path.
type FrameJournal interface {
	Append(ts time.Time, f can.Frame) error
	Close() error
}
