package simevent_test

import (
	"errors"
	"testing"

	. "github.com/comalice/simevent"
)

func testWitness(name string) *Witness {
	return NewWitness(name, Bilateral, RisingAndFalling, Continuous,
		func(Study, *State, int) float64 { return 1 },
		func(int) Stage { return StagePosition })
}

// Freed interior slots are reused most-recent-first; removing the tail
// truncates, dropping any trailing empties.
func TestCollectionSlotRecycling(t *testing.T) {
	c := NewTriggerCollection()

	w1, w2, w3 := testWitness("W1"), testWitness("W2"), testWitness("W3")
	for i, w := range []*Witness{w1, w2, w3} {
		slot, err := c.AdoptWitness(w)
		if err != nil {
			t.Fatal(err)
		}
		if slot != i {
			t.Fatalf("W%d slot = %d, want %d", i+1, slot, i)
		}
	}

	if err := c.RemoveWitness(1); err != nil {
		t.Fatal(err)
	}

	w4 := testWitness("W4")
	slot, err := c.AdoptWitness(w4)
	if err != nil {
		t.Fatal(err)
	}
	if slot != 1 {
		t.Errorf("W4 slot = %d, want recycled slot 1", slot)
	}

	if err := c.RemoveWitness(1); err != nil { // W4
		t.Fatal(err)
	}
	if err := c.RemoveWitness(2); err != nil { // W3, the tail
		t.Fatal(err)
	}

	if got := c.NumWitnessSlots(); got != 1 {
		t.Errorf("collection length = %d, want 1 (only W1)", got)
	}
	if c.WitnessAt(0) != w1 {
		t.Errorf("slot 0 no longer holds W1")
	}
}

// Timers recycle slots the same way.
func TestCollectionTimerSlots(t *testing.T) {
	c := NewTriggerCollection()

	t1 := NewTimer("t1", nil)
	t2 := NewTimer("t2", nil)
	c.AdoptTimer(t1)
	c.AdoptTimer(t2)

	if err := c.RemoveTimer(0); err != nil {
		t.Fatal(err)
	}
	t3 := NewTimer("t3", nil)
	slot, _ := c.AdoptTimer(t3)
	if slot != 0 {
		t.Errorf("t3 slot = %d, want recycled slot 0", slot)
	}
	if c.NumTimerSlots() != 2 {
		t.Errorf("length = %d, want 2", c.NumTimerSlots())
	}
}

// Bad slot operations surface the taxonomy errors.
func TestCollectionErrors(t *testing.T) {
	c := NewTriggerCollection()

	if _, err := c.AdoptWitness(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("AdoptWitness(nil) err = %v, want ErrInvalidArgument", err)
	}
	if err := c.RemoveWitness(0); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("RemoveWitness(0) on empty err = %v, want ErrInvalidIndex", err)
	}

	c.AdoptWitness(testWitness("W1"))
	c.AdoptWitness(testWitness("W2"))
	c.AdoptWitness(testWitness("W3"))
	c.RemoveWitness(1)
	if err := c.RemoveWitness(1); !errors.Is(err, ErrMissing) {
		t.Errorf("double remove err = %v, want ErrMissing", err)
	}
}

// The invalidation hook fires on every adopt and remove.
func TestCollectionInvalidationHook(t *testing.T) {
	c := NewTriggerCollection()

	var fired int
	c.SetInvalidationHook(func() { fired++ })

	slot, _ := c.AdoptWitness(testWitness("W"))
	c.RemoveWitness(slot)
	c.AdoptTimer(NewTimer("t", nil))

	if fired != 3 {
		t.Errorf("hook fired %d times, want 3", fired)
	}
}

// Interior empties never leak: after mixed adopts and removes every slot
// is either occupied or reachable through recycling.
func TestCollectionNoLostSlots(t *testing.T) {
	c := NewTriggerCollection()

	var slots []int
	for i := 0; i < 5; i++ {
		slot, _ := c.AdoptWitness(testWitness("w"))
		slots = append(slots, slot)
	}
	c.RemoveWitness(1)
	c.RemoveWitness(3)

	// Both freed interior slots come back before the collection grows.
	s1, _ := c.AdoptWitness(testWitness("x"))
	s2, _ := c.AdoptWitness(testWitness("y"))
	if s1 != 3 || s2 != 1 {
		t.Errorf("recycled slots = %d, %d, want 3 then 1 (stack order)", s1, s2)
	}
	s3, _ := c.AdoptWitness(testWitness("z"))
	if s3 != 5 {
		t.Errorf("fresh slot = %d, want 5", s3)
	}
}
