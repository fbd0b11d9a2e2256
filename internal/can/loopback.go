package can

import "sync"

// LoopbackBus is an in-memory CAN bus. Every endpoint opened from the same
// bus sees frames sent by the others, which is enough to exercise the full
// pipeline in tests and the replay path without hardware.
type LoopbackBus struct {
	mu        sync.RWMutex
	closed    bool
	endpoints map[*loopEndpoint]struct{}
}

func NewLoopbackBus() *LoopbackBus {
	return &LoopbackBus{endpoints: make(map[*loopEndpoint]struct{})}
}

// Open attaches a new endpoint to the bus.
func (b *LoopbackBus) Open() Bus {
	ep := &loopEndpoint{
		bus:    b,
		ch:     make(chan Frame, 64),
		closed: make(chan struct{}),
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ep.closed)
		return ep
	}
	b.endpoints[ep] = struct{}{}
	b.mu.Unlock()
	return ep
}

// Close closes the bus and detaches all endpoints.
func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for ep := range b.endpoints {
		ep.detach()
	}
	b.endpoints = nil
	return nil
}

type loopEndpoint struct {
	bus    *LoopbackBus
	ch     chan Frame
	closed chan struct{}
	once   sync.Once
}

func (e *loopEndpoint) Send(frame Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	select {
	case <-e.closed:
		return ErrClosed
	default:
	}

	e.bus.mu.RLock()
	if e.bus.closed {
		e.bus.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*loopEndpoint, 0, len(e.bus.endpoints))
	for ep := range e.bus.endpoints {
		if ep != e {
			targets = append(targets, ep)
		}
	}
	e.bus.mu.RUnlock()

	for _, t := range targets {
		select {
		case t.ch <- frame:
		case <-t.closed:
		default:
			// A peer that stopped reading must not wedge the sender; the
			// loopback bus sheds frames like a real bus under overrun.
		}
	}
	return nil
}

func (e *loopEndpoint) Receive() (Frame, error) {
	select {
	case f := <-e.ch:
		return f, nil
	case <-e.closed:
		// Drain anything already buffered before reporting closure.
		select {
		case f := <-e.ch:
			return f, nil
		default:
			return Frame{}, ErrClosed
		}
	}
}

func (e *loopEndpoint) Close() error {
	e.bus.mu.Lock()
	delete(e.bus.endpoints, e)
	e.detach()
	e.bus.mu.Unlock()
	return nil
}

func (e *loopEndpoint) detach() {
	e.once.Do(func() { close(e.closed) })
}
