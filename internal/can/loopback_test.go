package can

import (
	"testing"
	"time"
)

func TestLoopbackSendDoesNotBlockOnSlowPeer(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()

	slow := bus.Open() // never receives
	sender := bus.Open()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := sender.Send(MustFrame(0x100, []byte{byte(i)})); err != nil {
				t.Errorf("send %d: %v", i, err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send wedged on a peer that never receives")
	}

	// The slow peer still holds whatever fit in its buffer, oldest first.
	got, err := slow.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got.ID != 0x100 || got.Data[0] != 0 {
		t.Fatalf("expected the oldest buffered frame first, got %v", got)
	}
}
