package collector

import (
	"testing"

	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
)

func TestInsertAndDrain(t *testing.T) {
	c := New(10)
	frame1 := can.MustFrame(0x12345, []byte{0x01, 0x02, 0x03})
	frame2 := can.MustFrame(0x12346, []byte{0x01, 0x02, 0x03})

	if c.Len() != 0 || c.Dropped() != 0 {
		t.Fatalf("fresh collector should be empty")
	}

	c.Insert(frame1)
	c.Insert(frame2)
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if c.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", c.Dropped())
	}

	frames, dropped := c.Drain()
	if len(frames) != 2 {
		t.Fatalf("expected 2 drained frames, got %d", len(frames))
	}
	if dropped != 0 {
		t.Fatalf("expected no drops reported, got %d", dropped)
	}
	if c.Len() != 0 || c.Dropped() != 0 {
		t.Fatalf("drain should clear the collector")
	}
}

func TestDuplicateReplacesAndCounts(t *testing.T) {
	c := New(10)
	frame := can.MustFrame(0x12345, []byte{0x01, 0x02, 0x03})
	mirrored := can.MustFrame(0x12345, []byte{0x03, 0x02, 0x01})

	c.Insert(frame)
	c.Insert(mirrored)

	if c.Len() != 1 {
		t.Fatalf("duplicate identifier should coalesce, got %d entries", c.Len())
	}
	if c.Dropped() != 1 {
		t.Fatalf("expected 1 superseded frame, got %d", c.Dropped())
	}
	frames := c.Frames()
	if frames[0] != mirrored {
		t.Fatalf("the second frame must win: got %v", frames[0])
	}
}

func TestDuplicateKeepsOrder(t *testing.T) {
	c := New(10)
	frame1 := can.MustFrame(0x12345, []byte{0x01})
	frame1b := can.MustFrame(0x12345, []byte{0x02})
	frame2 := can.MustFrame(0x12346, []byte{0x03})
	frame2b := can.MustFrame(0x12346, []byte{0x04})

	c.Insert(frame1)
	c.Insert(frame2)
	c.Insert(frame1b)
	c.Insert(frame2b)

	frames := c.Frames()
	if len(frames) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(frames))
	}
	if frames[0] != frame1b || frames[1] != frame2b {
		t.Fatalf("replacement must preserve slot order: %v", frames)
	}
	if c.Dropped() != 2 {
		t.Fatalf("expected 2 superseded frames, got %d", c.Dropped())
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	c := New(4)
	for id := uint32(0x100); id < 0x105; id++ {
		c.Insert(can.MustFrame(id, []byte{byte(id)}))
	}

	if c.Len() != 4 {
		t.Fatalf("expected capacity entries, got %d", c.Len())
	}
	if c.Dropped() == 0 {
		t.Fatalf("capacity eviction must count as a drop")
	}

	frames := c.Frames()
	for _, f := range frames {
		if f.ID == 0x100 {
			t.Fatalf("oldest entry 0x100 should have been evicted")
		}
	}
	if frames[0].ID != 0x101 {
		t.Fatalf("expected FIFO order after eviction, got %03X first", frames[0].ID)
	}
}

func TestSustainedEvictionWrapsRing(t *testing.T) {
	// All-new identifiers at capacity: each insert evicts exactly the
	// oldest entry, and the survivors stay in insertion order no matter
	// how often the ring wraps.
	c := New(4)
	for id := uint32(0x100); id < 0x120; id++ {
		c.Insert(can.MustFrame(id, []byte{byte(id)}))
	}

	if c.Len() != 4 {
		t.Fatalf("expected capacity entries, got %d", c.Len())
	}
	if c.Dropped() != 0x20-4 {
		t.Fatalf("expected %d evictions, got %d", 0x20-4, c.Dropped())
	}
	frames := c.Frames()
	for i, f := range frames {
		if want := uint32(0x11C + i); f.ID != want {
			t.Fatalf("frames[%d].ID = %03X, want %03X", i, f.ID, want)
		}
	}
}

func TestEvictionThenDuplicateStillCoalesces(t *testing.T) {
	c := New(2)
	c.Insert(can.MustFrame(0x100, nil))
	c.Insert(can.MustFrame(0x101, nil))
	c.Insert(can.MustFrame(0x102, nil)) // evicts 0x100
	c.Insert(can.MustFrame(0x101, []byte{0xFF}))

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if c.Dropped() != 2 {
		t.Fatalf("expected eviction + supersede = 2, got %d", c.Dropped())
	}
	frames := c.Frames()
	if frames[0].ID != 0x101 || frames[0].Len != 1 {
		t.Fatalf("0x101 should hold the newer payload: %v", frames)
	}
}

func TestStandardAndExtendedKeysDistinct(t *testing.T) {
	c := New(10)
	std := can.MustFrame(0x123, []byte{1})
	ext := can.Frame{ID: 0x123, Extended: true, Len: 1, Data: [8]byte{2}}

	c.Insert(std)
	c.Insert(ext)
	if c.Len() != 2 {
		t.Fatalf("standard and extended 0x123 must not coalesce")
	}
}

func TestDrainReportsDropped(t *testing.T) {
	c := New(10)
	c.Insert(can.MustFrame(0x100, nil))
	c.Insert(can.MustFrame(0x100, []byte{1}))

	_, dropped := c.Drain()
	if dropped != 1 {
		t.Fatalf("expected drain to report 1 drop, got %d", dropped)
	}
	if _, dropped := c.Drain(); dropped != 0 {
		t.Fatalf("second drain must report a reset counter, got %d", dropped)
	}
}

func TestClearResetsDropCounter(t *testing.T) {
	c := New(10)
	c.Insert(can.MustFrame(0x100, nil))
	c.Insert(can.MustFrame(0x100, nil))
	if c.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", c.Dropped())
	}
	c.Clear()
	if c.Dropped() != 0 || c.Len() != 0 {
		t.Fatalf("clear must reset entries and counter")
	}
}
