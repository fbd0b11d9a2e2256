// Package collector buffers raw CAN frames between a fast producer (the bus
// receive task) and a slower periodic consumer. It keeps only the newest
// frame per identifier, so a burst of updates for one signal coalesces into
// a single entry instead of growing a queue.
package collector

import (
	"sync"

	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
)

// DefaultCapacity matches the number of distinct identifiers seen on the
// vehicle bus with headroom.
const DefaultCapacity = 100

// Collector is a bounded key->frame table over a fixed ring. Keys are
// Frame.Key(), so a standard and an extended identifier with the same
// numeric value are distinct entries. All methods are safe for concurrent
// use; Insert is O(1), holds the lock only briefly, never blocks on the
// consumer, and never allocates past the capacity set at construction.
type Collector struct {
	mu       sync.Mutex
	capacity int
	index    map[uint32]int // key -> ring slot
	ring     []can.Frame    // fixed backing store
	head     int            // oldest occupied slot
	size     int
	dropped  uint64
}

// New creates a collector with the given capacity; non-positive values fall
// back to DefaultCapacity.
func New(capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Collector{
		capacity: capacity,
		index:    make(map[uint32]int, capacity),
		ring:     make([]can.Frame, capacity),
	}
}

// Insert stores the frame. A frame whose identifier is already present
// replaces the stored one in place (the newer sample supersedes the old).
// A new identifier arriving at capacity evicts the oldest-inserted entry.
// Both paths count into Dropped: superseded and evicted frames alike never
// reach the consumer.
func (c *Collector) Insert(frame can.Frame) {
	key := frame.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if slot, ok := c.index[key]; ok {
		c.ring[slot] = frame
		c.dropped++
		return
	}

	var slot int
	if c.size == c.capacity {
		// Reuse the oldest slot; the evicted entry becomes the drop.
		slot = c.head
		delete(c.index, c.ring[slot].Key())
		c.head = (c.head + 1) % c.capacity
		c.dropped++
	} else {
		slot = (c.head + c.size) % c.capacity
		c.size++
	}
	c.ring[slot] = frame
	c.index[key] = slot
}

// Drain returns the stored frames in insertion order plus the dropped count
// for the cycle, then empties the collector and resets the counter. This is
// the consumer's one-shot read of a collection cycle.
func (c *Collector) Drain() ([]can.Frame, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.framesLocked()
	dropped := c.dropped
	c.clearLocked()
	return out, dropped
}

// Frames returns a copy of the stored frames without clearing. Order is
// stable within a cycle but unspecified to callers.
func (c *Collector) Frames() []can.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.framesLocked()
}

func (c *Collector) framesLocked() []can.Frame {
	out := make([]can.Frame, c.size)
	for i := 0; i < c.size; i++ {
		out[i] = c.ring[(c.head+i)%c.capacity]
	}
	return out
}

// Clear drops all entries and resets the dropped counter.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Collector) clearLocked() {
	c.dropped = 0
	c.head = 0
	c.size = 0
	clear(c.index)
}

// Len reports the number of distinct identifiers currently stored.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Dropped reports how many frames were superseded by a duplicate identifier
// or evicted for capacity since the last Clear. The two causes share one
// counter.
func (c *Collector) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
