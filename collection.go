package simevent

import "fmt"

// TriggerCollection holds runtime-allocated timers and witnesses. The
// instance a State carries (see State.Triggers) is the value of a discrete
// state variable, for triggers that come and go during a run.
//
// Slots are dense and recycled through an explicit free-slot stack so that
// a trigger's slot index stays stable for its lifetime. Every non-empty
// slot holds exactly one object; every empty interior slot is on the free
// stack exactly once.
type TriggerCollection struct {
	timers        []*Timer
	freeTimers    []int
	witnesses     []*Witness
	freeWitnesses []int

	// Called after every adopt or remove. The host hangs its per-trigger
	// results-cache invalidation here.
	onChange func()
}

// NewTriggerCollection creates an empty collection.
func NewTriggerCollection() *TriggerCollection {
	return &TriggerCollection{}
}

// SetInvalidationHook registers fn to be called whenever a trigger is
// added or removed.
func (c *TriggerCollection) SetInvalidationHook(fn func()) { c.onChange = fn }

func (c *TriggerCollection) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// AdoptTimer stores the timer in a free slot (reusing the most recently
// freed one if any) and returns the slot index.
func (c *TriggerCollection) AdoptTimer(t *Timer) (int, error) {
	if t == nil {
		return -1, fmt.Errorf("%w: TriggerCollection.AdoptTimer: timer can't be nil", ErrInvalidArgument)
	}
	slot := adoptSlot(&c.timers, &c.freeTimers, t)
	c.changed()
	return slot, nil
}

// RemoveTimer empties the given slot. Removing the last slot truncates the
// collection; otherwise the slot goes onto the free stack.
func (c *TriggerCollection) RemoveTimer(slot int) error {
	if err := removeSlot(&c.timers, &c.freeTimers, slot, "RemoveTimer"); err != nil {
		return err
	}
	c.changed()
	return nil
}

// AdoptWitness stores the witness in a free slot and returns the slot
// index.
func (c *TriggerCollection) AdoptWitness(w *Witness) (int, error) {
	if w == nil {
		return -1, fmt.Errorf("%w: TriggerCollection.AdoptWitness: witness can't be nil", ErrInvalidArgument)
	}
	slot := adoptSlot(&c.witnesses, &c.freeWitnesses, w)
	c.changed()
	return slot, nil
}

// RemoveWitness empties the given slot, truncating if it is the last.
func (c *TriggerCollection) RemoveWitness(slot int) error {
	if err := removeSlot(&c.witnesses, &c.freeWitnesses, slot, "RemoveWitness"); err != nil {
		return err
	}
	c.changed()
	return nil
}

// NumTimerSlots returns the current slot count, including empty slots.
func (c *TriggerCollection) NumTimerSlots() int { return len(c.timers) }

// NumWitnessSlots returns the current slot count, including empty slots.
func (c *TriggerCollection) NumWitnessSlots() int { return len(c.witnesses) }

// TimerAt returns the timer in the given slot, or nil for an empty slot.
func (c *TriggerCollection) TimerAt(slot int) *Timer { return c.timers[slot] }

// WitnessAt returns the witness in the given slot, or nil for an empty
// slot.
func (c *TriggerCollection) WitnessAt(slot int) *Witness { return c.witnesses[slot] }

// appendActiveTimers appends the non-empty timer slots in slot order.
func (c *TriggerCollection) appendActiveTimers(out []*Timer) []*Timer {
	for _, t := range c.timers {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// appendActiveWitnesses appends the non-empty witness slots in slot order.
func (c *TriggerCollection) appendActiveWitnesses(out []*Witness) []*Witness {
	for _, w := range c.witnesses {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

func adoptSlot[T any](things *[]*T, free *[]int, thing *T) int {
	if n := len(*free); n > 0 {
		slot := (*free)[n-1]
		*free = (*free)[:n-1]
		(*things)[slot] = thing
		return slot
	}
	*things = append(*things, thing)
	return len(*things) - 1
}

func removeSlot[T any](things *[]*T, free *[]int, slot int, op string) error {
	if slot < 0 || slot >= len(*things) {
		return fmt.Errorf("%w: TriggerCollection.%s: slot %d (have %d slots)",
			ErrInvalidIndex, op, slot, len(*things))
	}
	if (*things)[slot] == nil {
		return fmt.Errorf("%w: TriggerCollection.%s: slot %d is empty", ErrMissing, op, slot)
	}
	if slot == len(*things)-1 {
		*things = (*things)[:slot]
		trimTrailing(things, free)
		return nil
	}
	(*things)[slot] = nil
	*free = append(*free, slot)
	return nil
}

// trimTrailing drops empty slots left at the tail after a truncation and
// removes them from the free stack, so the collection's length always ends
// on a live object.
func trimTrailing[T any](things *[]*T, free *[]int) {
	for n := len(*things); n > 0 && (*things)[n-1] == nil; n = len(*things) {
		*things = (*things)[:n-1]
		for i, s := range *free {
			if s == n-1 {
				*free = append((*free)[:i], (*free)[i+1:]...)
				break
			}
		}
	}
}
