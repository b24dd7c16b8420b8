package simevent

// Dense identifier and index types used throughout the event subsystem.
// All of these count from zero; -1 is the distinguished invalid value.

// EventID identifies an Event adopted into the Subsystem's event registry.
// Ids are assigned densely at adoption and are never reused.
type EventID int

// EventTriggerID identifies a Trigger adopted into the Subsystem's trigger
// registry.
type EventTriggerID int

// EventTimerIndex is the dense index of a Timer within the topology cache's
// timer list, assigned during RealizeTopology.
type EventTimerIndex int

// EventWitnessIndex is the dense index of a Witness within the topology
// cache's witness list, assigned during RealizeTopology.
type EventWitnessIndex int

// ActiveTimerIndex indexes the sequence returned by FindActiveEventTimers.
type ActiveTimerIndex int

// ActiveWitnessIndex indexes the sequence returned by
// FindActiveEventWitnesses.
type ActiveWitnessIndex int

// EventActionIndex is the position of an action within its Event's action
// list.
type EventActionIndex int

// Invalid values for each identifier type.
const (
	InvalidEventID            EventID            = -1
	InvalidEventTriggerID     EventTriggerID     = -1
	InvalidEventTimerIndex    EventTimerIndex    = -1
	InvalidEventWitnessIndex  EventWitnessIndex  = -1
	InvalidActiveTimerIndex   ActiveTimerIndex   = -1
	InvalidActiveWitnessIndex ActiveWitnessIndex = -1
	InvalidEventActionIndex   EventActionIndex   = -1
)

func (id EventID) IsValid() bool            { return id >= 0 }
func (id EventTriggerID) IsValid() bool     { return id >= 0 }
func (ix EventTimerIndex) IsValid() bool    { return ix >= 0 }
func (ix EventWitnessIndex) IsValid() bool  { return ix >= 0 }
func (ix ActiveTimerIndex) IsValid() bool   { return ix >= 0 }
func (ix ActiveWitnessIndex) IsValid() bool { return ix >= 0 }
func (ix EventActionIndex) IsValid() bool   { return ix >= 0 }
