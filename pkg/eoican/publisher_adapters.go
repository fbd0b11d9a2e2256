package eoican

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Engineers-of-Innovation/eoi-can/internal/codec"
)

// ErrChannelPublisherClosed is returned when a channel publisher is written
// to after being closed.
var ErrChannelPublisherClosed = errors.New("eoican: channel publisher closed")

// MessageBatchFunc is invoked with every batch of messages decoded since the
// previous publish tick, oldest first.
type MessageBatchFunc func([]Message) error

// NewCallbackPublisher adapts a MessageBatchFunc into a full Publisher so
// callers can plug arbitrary functions without defining structs.
func NewCallbackPublisher(name string, fn MessageBatchFunc) Publisher {
	if name == "" {
		name = "callback"
	}
	return &callbackPublisher{name: name, fn: fn}
}

// NewChannelPublisher exposes message batches via a channel; it returns the
// publisher, the read-only channel, and a close function the caller should
// invoke during shutdown.
func NewChannelPublisher(name string, buffer int) (Publisher, <-chan []Message, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Message, buffer)
	p := &channelPublisher{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return p, ch, func() { p.close() }
}

type callbackPublisher struct {
	name string
	fn   MessageBatchFunc
}

func (p *callbackPublisher) Publish(msgs []codec.Message) error {
	if p.fn == nil {
		return fmt.Errorf("callback publisher %q: nil handler", p.name)
	}
	if len(msgs) == 0 {
		return nil
	}
	// The pipeline reuses its batch slice between publishes.
	return p.fn(append([]Message(nil), msgs...))
}

func (p *callbackPublisher) Close() error { return nil }

func (p *callbackPublisher) Name() string { return p.name }

type channelPublisher struct {
	name   string
	ch     chan []Message
	closed chan struct{}
	once   sync.Once
}

func (p *channelPublisher) Publish(msgs []codec.Message) error {
	select {
	case <-p.closed:
		return ErrChannelPublisherClosed
	default:
	}

	if len(msgs) == 0 {
		return nil
	}

	batch := append([]Message(nil), msgs...)

	select {
	case <-p.closed:
		return ErrChannelPublisherClosed
	case p.ch <- batch:
		return nil
	}
}

func (p *channelPublisher) Close() error {
	p.close()
	return nil
}

func (p *channelPublisher) Name() string { return p.name }

func (p *channelPublisher) close() {
	p.once.Do(func() {
		close(p.closed)
		close(p.ch)
	})
}
