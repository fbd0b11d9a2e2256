package ports

import "github.com/Engineers-of-Innovation/eoi-can/internal/codec"

// Publisher forwards decoded messages off the vehicle, typically as one
// merged document per publish interval. Publish receives everything decoded
// since the previous call, oldest first.
type Publisher interface {
	Publish(msgs []codec.Message) error
	Close() error
	Name() string
}
