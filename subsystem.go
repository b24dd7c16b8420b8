package simevent

import (
	"fmt"
	"math"
)

// Subsystem is the global event subsystem of a simulation system. It owns
// every adopted Event and Trigger, hands out their dense ids, maintains
// the topology cache that partitions triggers for the integrator, and
// performs occurrence resolution and action dispatch.
//
// All methods are called on the integrator's thread; nothing here locks.
// Registries grow only during construction and between steps.
type Subsystem struct {
	events   []*Event
	triggers []Trigger

	// Legacy handler/reporter objects, owned here after adoption.
	scheduledHandlers  []ScheduledEventHandler
	triggeredHandlers  []TriggeredEventHandler
	scheduledReporters []ScheduledEventReporter
	triggeredReporters []TriggeredEventReporter

	initializationEventID       EventID
	timeAdvancedEventID         EventID
	terminationEventID          EventID
	extremeValueIsolatedEventID EventID

	initializationTriggerID EventTriggerID
	timeAdvancedTriggerID   EventTriggerID
	terminationTriggerID    EventTriggerID

	// Topology cache, rebuilt by RealizeTopology. Timers and witnesses
	// here reference objects owned by the trigger registry.
	timers    []*Timer
	witnesses []*Witness

	// Witness indices partitioned by (depends-on stage, derivative order).
	witnessesByStage [StageNValid][MaxDeriv + 1][]EventWitnessIndex

	// Set while actions run; adoption is rejected then.
	dispatching bool
}

// NewSubsystem creates a subsystem with the predefined events and triggers
// already adopted. The predefined ids are fixed: events 0..3 are
// Initialization, TimeAdvanced, Termination, ExtremeValueIsolated;
// triggers 0..2 fire the first three.
func NewSubsystem() *Subsystem {
	sys := &Subsystem{}

	sys.initializationEventID, _ = sys.AdoptEvent(
		newPredefinedEvent(EventInitialization, "Initialization"))
	sys.timeAdvancedEventID, _ = sys.AdoptEvent(
		newPredefinedEvent(EventTimeAdvanced, "TimeAdvanced"))
	sys.terminationEventID, _ = sys.AdoptEvent(
		newPredefinedEvent(EventTermination, "Termination"))
	sys.extremeValueIsolatedEventID, _ = sys.AdoptEvent(
		newPredefinedEvent(EventExtremeValueIsolated, "ExtremeValueIsolated"))

	sys.initializationTriggerID, _ = sys.AdoptEventTrigger(
		NewInitializationTrigger(sys.initializationEventID))
	sys.timeAdvancedTriggerID, _ = sys.AdoptEventTrigger(
		NewTimeAdvancedTrigger(sys.timeAdvancedEventID))
	sys.terminationTriggerID, _ = sys.AdoptEventTrigger(
		NewTerminationTrigger(sys.terminationEventID))

	return sys
}

//
// Event registry
//

// AdoptEvent takes over ownership of e, assigns the next EventID, writes
// it back into e, and returns it.
func (sys *Subsystem) AdoptEvent(e *Event) (EventID, error) {
	if e == nil {
		return InvalidEventID,
			fmt.Errorf("%w: Subsystem.AdoptEvent: event can't be nil", ErrInvalidArgument)
	}
	if sys.dispatching {
		return InvalidEventID,
			fmt.Errorf("%w: Subsystem.AdoptEvent: can't adopt from within an action", ErrPrecondition)
	}
	e.id = EventID(len(sys.events))
	sys.events = append(sys.events, e)
	return e.id, nil
}

// NumEvents returns the number of adopted events.
func (sys *Subsystem) NumEvents() int { return len(sys.events) }

// GetEvent returns the event with the given id.
func (sys *Subsystem) GetEvent(id EventID) (*Event, error) {
	if !id.IsValid() {
		return nil, fmt.Errorf("%w: Subsystem.GetEvent: uninitialized EventID(%d)",
			ErrInvalidArgument, int(id))
	}
	if int(id) >= len(sys.events) {
		return nil, fmt.Errorf("%w: Subsystem.GetEvent: EventID(%d), have %d events",
			ErrInvalidIndex, int(id), len(sys.events))
	}
	e := sys.events[id]
	if e == nil {
		return nil, fmt.Errorf("%w: Subsystem.GetEvent: no Event for EventID(%d)",
			ErrMissing, int(id))
	}
	return e, nil
}

// UpdEvent returns the event with the given id for modification.
func (sys *Subsystem) UpdEvent(id EventID) (*Event, error) {
	e, err := sys.GetEvent(id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// HasEvent reports whether id names an adopted event. Total: invalid and
// out-of-range ids return false.
func (sys *Subsystem) HasEvent(id EventID) bool {
	return id.IsValid() && int(id) < len(sys.events) && sys.events[id] != nil
}

//
// Trigger registry
//

// AdoptEventTrigger takes over ownership of t, assigns the next
// EventTriggerID, writes it back into t, and returns it.
func (sys *Subsystem) AdoptEventTrigger(t Trigger) (EventTriggerID, error) {
	if t == nil {
		return InvalidEventTriggerID,
			fmt.Errorf("%w: Subsystem.AdoptEventTrigger: trigger can't be nil", ErrInvalidArgument)
	}
	if sys.dispatching {
		return InvalidEventTriggerID,
			fmt.Errorf("%w: Subsystem.AdoptEventTrigger: can't adopt from within an action", ErrPrecondition)
	}
	b := t.base()
	b.id = EventTriggerID(len(sys.triggers))
	sys.triggers = append(sys.triggers, t)
	return b.id, nil
}

// NumEventTriggers returns the number of adopted triggers.
func (sys *Subsystem) NumEventTriggers() int { return len(sys.triggers) }

// GetEventTrigger returns the trigger with the given id.
func (sys *Subsystem) GetEventTrigger(id EventTriggerID) (Trigger, error) {
	if !id.IsValid() {
		return nil, fmt.Errorf("%w: Subsystem.GetEventTrigger: uninitialized EventTriggerID(%d)",
			ErrInvalidArgument, int(id))
	}
	if int(id) >= len(sys.triggers) {
		return nil, fmt.Errorf("%w: Subsystem.GetEventTrigger: EventTriggerID(%d), have %d triggers",
			ErrInvalidIndex, int(id), len(sys.triggers))
	}
	t := sys.triggers[id]
	if t == nil {
		return nil, fmt.Errorf("%w: Subsystem.GetEventTrigger: no EventTrigger for EventTriggerID(%d)",
			ErrMissing, int(id))
	}
	return t, nil
}

// UpdEventTrigger returns the trigger with the given id for modification.
func (sys *Subsystem) UpdEventTrigger(id EventTriggerID) (Trigger, error) {
	return sys.GetEventTrigger(id)
}

// HasEventTrigger reports whether id names an adopted trigger.
func (sys *Subsystem) HasEventTrigger(id EventTriggerID) bool {
	return id.IsValid() && int(id) < len(sys.triggers) && sys.triggers[id] != nil
}

//
// Predefined ids
//

func (sys *Subsystem) InitializationEventID() EventID       { return sys.initializationEventID }
func (sys *Subsystem) TimeAdvancedEventID() EventID         { return sys.timeAdvancedEventID }
func (sys *Subsystem) TerminationEventID() EventID          { return sys.terminationEventID }
func (sys *Subsystem) ExtremeValueIsolatedEventID() EventID { return sys.extremeValueIsolatedEventID }

func (sys *Subsystem) InitializationTriggerID() EventTriggerID { return sys.initializationTriggerID }
func (sys *Subsystem) TimeAdvancedTriggerID() EventTriggerID   { return sys.timeAdvancedTriggerID }
func (sys *Subsystem) TerminationTriggerID() EventTriggerID    { return sys.terminationTriggerID }

//
// Topology cache
//

func (sys *Subsystem) clearCache() {
	sys.timers = sys.timers[:0]
	sys.witnesses = sys.witnesses[:0]
	for g := 0; g < StageNValid; g++ {
		for d := 0; d <= MaxDeriv; d++ {
			sys.witnessesByStage[g][d] = sys.witnessesByStage[g][d][:0]
		}
	}
}

// RealizeTopology rebuilds the topology cache: it classifies every
// registered trigger once, assigning dense timer and witness indices and
// partitioning witness derivatives by depends-on stage. It also allocates
// the state's dynamic trigger collection if absent.
//
// Call once per topology change, before stepping.
func (sys *Subsystem) RealizeTopology(state *State) error {
	sys.clearCache()
	if state != nil {
		state.allocTriggerCollection()
		state.Realize(StageTopology)
	}

	for i, trigger := range sys.triggers {
		if trigger == nil {
			return fmt.Errorf("%w: Subsystem.RealizeTopology: nil trigger at EventTriggerID(%d)",
				ErrInvariant, i)
		}
		switch t := trigger.(type) {
		case *Timer:
			t.timerIndex = EventTimerIndex(len(sys.timers))
			sys.timers = append(sys.timers, t)

		case *Witness:
			ix := EventWitnessIndex(len(sys.witnesses))
			t.witnessIndex = ix
			sys.witnesses = append(sys.witnesses, t)
			// Track at most MaxDeriv derivatives.
			nDerivs := t.NumTimeDerivatives()
			if nDerivs > MaxDeriv {
				nDerivs = MaxDeriv
			}
			for d := 0; d <= nDerivs; d++ {
				g := t.DependsOnStage(d)
				sys.witnessesByStage[g][d] = append(sys.witnessesByStage[g][d], ix)
			}

		default:
			// Signal triggers and other kinds have no cache entries.
		}
	}

	return nil
}

// NumTimers returns the number of static timers found by the last
// topology realization.
func (sys *Subsystem) NumTimers() int { return len(sys.timers) }

// NumWitnesses returns the number of static witnesses found by the last
// topology realization.
func (sys *Subsystem) NumWitnesses() int { return len(sys.witnesses) }

// WitnessesByStage returns the witness indices whose derivative d depends
// on stage g. The returned slice is owned by the cache.
func (sys *Subsystem) WitnessesByStage(g Stage, d int) []EventWitnessIndex {
	return sys.witnessesByStage[g][d]
}

//
// Active sets
//

// FindActiveEventWitnesses appends the currently active witnesses to out
// and returns it: the static topology-cache witnesses in cache order, then
// the dynamic ones from the study's state in slot order.
func (sys *Subsystem) FindActiveEventWitnesses(study Study, out []*Witness) []*Witness {
	out = append(out, sys.witnesses...)
	if c := study.CurrentState().Triggers(); c != nil {
		out = c.appendActiveWitnesses(out)
	}
	return out
}

// FindActiveEventTimers appends the currently active timers to out and
// returns it, static cache order first, then dynamic slot order.
func (sys *Subsystem) FindActiveEventTimers(study Study, out []*Timer) []*Timer {
	out = append(out, sys.timers...)
	if c := study.CurrentState().Triggers(); c != nil {
		out = c.appendActiveTimers(out)
	}
	return out
}

//
// Next-event scheduler
//

// FindNextScheduledEventTimes computes, over all active timers, the next
// scheduled report time and change time and the timers that share each.
// A timer is a change-timer if any event it causes has a change action;
// otherwise it is a report-timer. Timers whose next time is +Inf appear in
// neither list.
//
// Ties are grouped by literal float64 equality. The integrator owns all
// tolerances and already canonicalizes equal next-times to identical
// values; no epsilon may be introduced here.
func (sys *Subsystem) FindNextScheduledEventTimes(study Study,
	timeOfLastReport, timeOfLastChange float64) (
	timeOfNextReport float64, reportTimers []*Timer,
	timeOfNextChange float64, changeTimers []*Timer) {

	timeOfNextReport = math.Inf(1)
	timeOfNextChange = math.Inf(1)
	state := study.CurrentState()

	for _, timer := range sys.FindActiveEventTimers(study, nil) {
		hasChangeAction := false
		for i := 0; i < timer.NumEvents(); i++ {
			if e, err := sys.GetEvent(timer.EventID(i)); err == nil && e.HasChangeAction() {
				hasChangeAction = true
				break
			}
		}

		if hasChangeAction {
			t := timer.TimeOfNextTrigger(sys, state, timeOfLastChange)
			if t > timeOfNextChange || math.IsInf(t, 1) {
				continue
			}
			if t < timeOfNextChange {
				changeTimers = changeTimers[:0] // forget previous earliest
				timeOfNextChange = t
			}
			// New winner, or tied with the previous winner.
			changeTimers = append(changeTimers, timer)
		} else {
			t := timer.TimeOfNextTrigger(sys, state, timeOfLastReport)
			if t > timeOfNextReport || math.IsInf(t, 1) {
				continue
			}
			if t < timeOfNextReport {
				reportTimers = reportTimers[:0]
				timeOfNextReport = t
			}
			reportTimers = append(reportTimers, timer)
		}
	}

	return timeOfNextReport, reportTimers, timeOfNextChange, changeTimers
}

//
// Occurrence resolver
//

// NoteEventOccurrence maps a set of simultaneously fired triggers to the
// unique events they cause. Triggers are assumed unique in the input;
// several may cause the same event, which must appear once in the output
// with all of its causes. Event ids not present in the registry are
// collected into ignored, deduplicated.
//
// Occurrence counters are bumped here: once per trigger, once per unique
// caused event.
//
// The populations per call are tiny (typically one trigger causing one
// event) so linear searches beat anything with per-element overhead,
// despite the apparent O(T*E) shape. Output preserves first-seen order of
// triggers and of their caused events.
func (sys *Subsystem) NoteEventOccurrence(triggers []Trigger) (
	triggeredEvents []EventAndCauses, ignoredEventIDs []EventID) {

	for _, trigger := range triggers {
		trigger.base().noteOccurrence()
		for i := 0; i < trigger.NumEvents(); i++ {
			eid := trigger.EventID(i)

			if !sys.HasEvent(eid) {
				seen := false
				for _, ig := range ignoredEventIDs {
					if ig == eid {
						seen = true
						break
					}
				}
				if !seen {
					ignoredEventIDs = append(ignoredEventIDs, eid)
				}
				continue
			}

			evnt := sys.events[eid]
			found := false
			for j := range triggeredEvents {
				if triggeredEvents[j].Event == evnt {
					triggeredEvents[j].Causes = append(triggeredEvents[j].Causes, trigger)
					found = true
					break
				}
			}
			if !found {
				evnt.noteOccurrence() // new event this call
				triggeredEvents = append(triggeredEvents,
					EventAndCauses{Event: evnt, Causes: []Trigger{trigger}})
			}
		}
	}

	return triggeredEvents, ignoredEventIDs
}

//
// Action dispatch
//

// PerformEventReportActions invokes each triggered event's report actions
// with its causes. State must not be modified.
func (sys *Subsystem) PerformEventReportActions(study Study,
	triggeredEvents []EventAndCauses) error {
	if len(triggeredEvents) == 0 {
		return fmt.Errorf("%w: Subsystem.PerformEventReportActions: empty triggered-event list",
			ErrPrecondition)
	}
	sys.dispatching = true
	defer func() { sys.dispatching = false }()

	for _, et := range triggeredEvents {
		et.Event.PerformReportActions(study, et.Causes)
	}
	return nil
}

// PerformEventChangeActions invokes each triggered event's change actions
// with its causes, accumulating exit statuses into result, then records
// the lowest stage whose version number the actions changed so the
// integrator knows how far to re-realize.
func (sys *Subsystem) PerformEventChangeActions(study Study,
	triggeredEvents []EventAndCauses, result *EventChangeResult) error {
	if len(triggeredEvents) == 0 {
		return fmt.Errorf("%w: Subsystem.PerformEventChangeActions: empty triggered-event list",
			ErrPrecondition)
	}
	if result == nil {
		return fmt.Errorf("%w: Subsystem.PerformEventChangeActions: result can't be nil",
			ErrInvalidArgument)
	}

	state := study.InternalState()

	// Snapshot stage versions so we can find what the actions touched.
	snapshot := state.StageVersions(nil)

	result.Clear()
	sys.dispatching = true
	defer func() { sys.dispatching = false }()
	for _, et := range triggeredEvents {
		et.Event.PerformChangeActions(study, et.Causes, result)
	}

	result.setLowestModifiedStage(state.LowestStageDifference(snapshot))
	return nil
}
