package stale

import (
	"testing"
	"time"
)

func TestFreshValueReadsBack(t *testing.T) {
	v := New[float32](time.Second)
	v.Update(42.5)

	got, ok := v.Get()
	if !ok {
		t.Fatalf("freshly updated value must be valid")
	}
	if got != 42.5 {
		t.Fatalf("got %v want 42.5", got)
	}
}

func TestNeverUpdatedIsAbsent(t *testing.T) {
	v := New[int](time.Second)
	if v.Valid() {
		t.Fatalf("never-updated cell must not be valid")
	}
	if got, ok := v.Get(); ok || got != 0 {
		t.Fatalf("expected zero value and false, got %v %v", got, ok)
	}
}

func TestZeroValueCellIsAbsent(t *testing.T) {
	var v Value[string]
	if v.Valid() {
		t.Fatalf("zero Value must not be valid")
	}
	if _, ok := v.Get(); ok {
		t.Fatalf("zero Value must read as absent")
	}
}

func TestExpiryMasksValue(t *testing.T) {
	v := New[int](10 * time.Millisecond)
	v.Update(7)
	time.Sleep(25 * time.Millisecond)

	if v.Valid() {
		t.Fatalf("value must expire after its TTL")
	}
	if _, ok := v.Get(); ok {
		t.Fatalf("expired value must read as absent")
	}
}

func TestUpdateRevivesExpiredValue(t *testing.T) {
	v := New[int](10 * time.Millisecond)
	v.Update(1)
	time.Sleep(25 * time.Millisecond)
	v.Update(2)

	got, ok := v.Get()
	if !ok || got != 2 {
		t.Fatalf("update must refresh the deadline: got %v %v", got, ok)
	}
}

func TestUpdateOverwritesWithoutMerge(t *testing.T) {
	v := New[[4]float32](time.Second)
	v.Update([4]float32{1, 2, 3, 4})
	v.Update([4]float32{5, 6, 7, 8})

	got, _ := v.Get()
	if got != [4]float32{5, 6, 7, 8} {
		t.Fatalf("second update must fully replace the first: %v", got)
	}
}
