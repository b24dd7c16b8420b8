package simevent

import "fmt"

// Legacy Handler/Reporter support. The EventHandler/EventReporter facility
// preceded the Event/Trigger/Action model; these adapters reimplement it
// on top of the new one. Each adoption builds an Event carrying one change
// or report action that delegates to the handler or reporter, plus a Timer
// or Witness delegating its schedule or value function, and writes the
// assigned handles back into the object's embedded HandlerCore.

// EventTriggerInfo describes how a triggered handler's or reporter's
// witness should fire.
type EventTriggerInfo struct {
	// Sign transitions that trigger. At least one must be set.
	TriggerOnRising  bool
	TriggerOnFalling bool

	// Accuracy-relative localization window for the zero crossing;
	// zero means DefaultLocalizationWindow.
	LocalizationWindow float64
}

// HandlerCore carries the back-references every handler and reporter
// receives at adoption: the owning subsystem, its event id, its trigger
// id, and the index of its action on the event. Embed it and the adopters
// fill it in. These handles are a relation, not ownership; the subsystem
// owns the handler.
type HandlerCore struct {
	system      *Subsystem
	eventID     EventID
	triggerID   EventTriggerID
	actionIndex EventActionIndex
	bound       bool
}

func (hc *HandlerCore) handlerCore() *HandlerCore { return hc }

func (hc *HandlerCore) bind(sys *Subsystem, eid EventID, tid EventTriggerID, eax EventActionIndex) {
	hc.system = sys
	hc.eventID = eid
	hc.triggerID = tid
	hc.actionIndex = eax
	hc.bound = true
}

// System returns the owning subsystem, or nil before adoption.
func (hc *HandlerCore) System() *Subsystem { return hc.system }

// EventID returns the assigned event id, or InvalidEventID before
// adoption.
func (hc *HandlerCore) EventID() EventID {
	if !hc.bound {
		return InvalidEventID
	}
	return hc.eventID
}

// TriggerID returns the assigned trigger id, or InvalidEventTriggerID
// before adoption.
func (hc *HandlerCore) TriggerID() EventTriggerID {
	if !hc.bound {
		return InvalidEventTriggerID
	}
	return hc.triggerID
}

// ActionIndex returns the index of the handler's action on its event, or
// InvalidEventActionIndex before adoption.
func (hc *HandlerCore) ActionIndex() EventActionIndex {
	if !hc.bound {
		return InvalidEventActionIndex
	}
	return hc.actionIndex
}

type handlerRef interface {
	handlerCore() *HandlerCore
}

// EventHandler is the common surface of the legacy handler types. A
// handler's HandleEvent may modify state; its event gets a change action.
type EventHandler interface {
	handlerRef

	// EventDescription names the handler's event; empty gets a default.
	EventDescription() string

	// HandleEvent responds to the event on the study's internal state.
	// Returning shouldTerminate asks the integrator to unwind after the
	// current dispatch pass; a non-nil error marks the action Failed.
	HandleEvent(state *State, accuracy float64) (shouldTerminate bool, err error)
}

// ScheduledEventHandler is a legacy handler fired at scheduled times.
type ScheduledEventHandler interface {
	EventHandler

	// NextEventTime returns the next event time at or after the state's
	// current time. timeHasAdvanced is true when the current time is
	// strictly past the last trigger, which the legacy contract uses to
	// decide whether the current instant is eligible.
	NextEventTime(state *State, timeHasAdvanced bool) float64
}

// TriggeredEventHandler is a legacy handler fired on witness sign
// transitions.
type TriggeredEventHandler interface {
	EventHandler

	// Value is the witness function.
	Value(state *State) float64

	// RequiredStage is the earliest stage Value depends on.
	RequiredStage() Stage

	// TriggerInfo configures the generated witness.
	TriggerInfo() EventTriggerInfo
}

// EventReporter is the common surface of the legacy reporter types. A
// reporter only observes; its event gets a report action.
type EventReporter interface {
	handlerRef

	EventDescription() string

	// Report observes the current state when the event occurs.
	Report(state *State)
}

// ScheduledEventReporter is a legacy reporter fired at scheduled times.
type ScheduledEventReporter interface {
	EventReporter
	NextEventTime(state *State, timeHasAdvanced bool) float64
}

// TriggeredEventReporter is a legacy reporter fired on witness sign
// transitions.
type TriggeredEventReporter interface {
	EventReporter
	Value(state *State) float64
	RequiredStage() Stage
	TriggerInfo() EventTriggerInfo
}

// directionFromTriggerInfo derives the witness direction from the legacy
// rising/falling flags. A witness with neither set could never fire, so
// adoption is rejected rather than silently picking a side.
func directionFromTriggerInfo(info EventTriggerInfo, method string) (Direction, error) {
	switch {
	case info.TriggerOnRising && info.TriggerOnFalling:
		return RisingAndFalling, nil
	case info.TriggerOnRising:
		return Rising, nil
	case info.TriggerOnFalling:
		return Falling, nil
	}
	return 0, fmt.Errorf("%w: Subsystem.%s: trigger info allows neither rising nor falling transitions",
		ErrInvalidArgument, method)
}

func handlerDescription(desc, fallback string) string {
	if desc == "" {
		return fallback
	}
	return desc
}

func newHandlerChangeAction(h EventHandler) *EventAction {
	return NewChangeAction(func(study Study, _ *Event, _ []Trigger, result *EventChangeResult) {
		shouldTerminate, err := h.HandleEvent(study.InternalState(), study.AccuracyInUse())
		if err != nil {
			result.ReportFailure(err.Error())
			return
		}
		if shouldTerminate {
			result.ReportExitStatus(ShouldTerminate)
		} else {
			result.ReportExitStatus(Succeeded)
		}
	})
}

func newReporterReportAction(r EventReporter) *EventAction {
	return NewReportAction(func(study Study, _ *Event, _ []Trigger) {
		r.Report(study.CurrentState())
	})
}

// AdoptScheduledEventHandler wires a legacy scheduled handler into the
// registries: a handler event with a change action, and a timer delegating
// the handler's schedule.
func (sys *Subsystem) AdoptScheduledEventHandler(h ScheduledEventHandler) error {
	if h == nil {
		return fmt.Errorf("%w: Subsystem.AdoptScheduledEventHandler: handler can't be nil",
			ErrInvalidArgument)
	}
	evnt := NewEvent(handlerDescription(h.EventDescription(), "EventHandler Event"))
	eax, _ := evnt.AdoptAction(newHandlerChangeAction(h))
	eid, err := sys.AdoptEvent(evnt)
	if err != nil {
		return err
	}

	timer := NewTimer("ScheduledEventHandler timer",
		func(_ *Subsystem, state *State, timeOfLastTrigger float64) float64 {
			return h.NextEventTime(state, state.Time() > timeOfLastTrigger)
		})
	timer.AddEvent(eid)
	tid, err := sys.AdoptEventTrigger(timer)
	if err != nil {
		return err
	}

	h.handlerCore().bind(sys, eid, tid, eax)
	sys.scheduledHandlers = append(sys.scheduledHandlers, h)
	return nil
}

// AdoptTriggeredEventHandler wires a legacy triggered handler into the
// registries: a handler event with a change action, and a witness
// delegating the handler's value function and required stage.
func (sys *Subsystem) AdoptTriggeredEventHandler(h TriggeredEventHandler) error {
	if h == nil {
		return fmt.Errorf("%w: Subsystem.AdoptTriggeredEventHandler: handler can't be nil",
			ErrInvalidArgument)
	}
	info := h.TriggerInfo()
	direction, err := directionFromTriggerInfo(info, "AdoptTriggeredEventHandler")
	if err != nil {
		return err
	}

	evnt := NewEvent(handlerDescription(h.EventDescription(), "EventHandler Event"))
	eax, _ := evnt.AdoptAction(newHandlerChangeAction(h))
	eid, err := sys.AdoptEvent(evnt)
	if err != nil {
		return err
	}

	witness := NewWitness("TriggeredEventHandler witness", Bilateral, direction, Continuous,
		func(_ Study, state *State, _ int) float64 { return h.Value(state) },
		func(_ int) Stage { return h.RequiredStage() })
	witness.AddEvent(eid)
	if info.LocalizationWindow > 0 {
		witness.SetAccuracyRelativeLocalizationWindow(info.LocalizationWindow)
	}
	tid, err := sys.AdoptEventTrigger(witness)
	if err != nil {
		return err
	}

	h.handlerCore().bind(sys, eid, tid, eax)
	sys.triggeredHandlers = append(sys.triggeredHandlers, h)
	return nil
}

// AdoptScheduledEventReporter wires a legacy scheduled reporter into the
// registries: a reporter event with a report action, and a timer
// delegating the reporter's schedule.
func (sys *Subsystem) AdoptScheduledEventReporter(r ScheduledEventReporter) error {
	if r == nil {
		return fmt.Errorf("%w: Subsystem.AdoptScheduledEventReporter: reporter can't be nil",
			ErrInvalidArgument)
	}
	evnt := NewEvent(handlerDescription(r.EventDescription(), "EventReporter Event"))
	eax, _ := evnt.AdoptAction(newReporterReportAction(r))
	eid, err := sys.AdoptEvent(evnt)
	if err != nil {
		return err
	}

	timer := NewTimer("ScheduledEventReporter timer",
		func(_ *Subsystem, state *State, timeOfLastTrigger float64) float64 {
			return r.NextEventTime(state, state.Time() > timeOfLastTrigger)
		})
	timer.AddEvent(eid)
	tid, err := sys.AdoptEventTrigger(timer)
	if err != nil {
		return err
	}

	r.handlerCore().bind(sys, eid, tid, eax)
	sys.scheduledReporters = append(sys.scheduledReporters, r)
	return nil
}

// AdoptTriggeredEventReporter wires a legacy triggered reporter into the
// registries: a reporter event with a report action, and a witness
// delegating the reporter's value function and required stage.
func (sys *Subsystem) AdoptTriggeredEventReporter(r TriggeredEventReporter) error {
	if r == nil {
		return fmt.Errorf("%w: Subsystem.AdoptTriggeredEventReporter: reporter can't be nil",
			ErrInvalidArgument)
	}
	info := r.TriggerInfo()
	direction, err := directionFromTriggerInfo(info, "AdoptTriggeredEventReporter")
	if err != nil {
		return err
	}

	evnt := NewEvent(handlerDescription(r.EventDescription(), "EventReporter Event"))
	eax, _ := evnt.AdoptAction(newReporterReportAction(r))
	eid, err := sys.AdoptEvent(evnt)
	if err != nil {
		return err
	}

	witness := NewWitness("TriggeredEventReporter witness", Bilateral, direction, Continuous,
		func(_ Study, state *State, _ int) float64 { return r.Value(state) },
		func(_ int) Stage { return r.RequiredStage() })
	witness.AddEvent(eid)
	if info.LocalizationWindow > 0 {
		witness.SetAccuracyRelativeLocalizationWindow(info.LocalizationWindow)
	}
	tid, err := sys.AdoptEventTrigger(witness)
	if err != nil {
		return err
	}

	r.handlerCore().bind(sys, eid, tid, eax)
	sys.triggeredReporters = append(sys.triggeredReporters, r)
	return nil
}
