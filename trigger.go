package simevent

import "math"

// Direction is a witness's sign-transition policy: which zero crossings
// mark trigger instants.
type Direction int

const (
	Rising Direction = iota
	Falling
	RisingAndFalling
)

func (d Direction) String() string {
	switch d {
	case Rising:
		return "Rising"
	case Falling:
		return "Falling"
	case RisingAndFalling:
		return "RisingAndFalling"
	}
	return "UnknownDirection"
}

// AllowsRising reports whether a negative-to-positive transition triggers.
func (d Direction) AllowsRising() bool { return d == Rising || d == RisingAndFalling }

// AllowsFalling reports whether a positive-to-negative transition triggers.
func (d Direction) AllowsFalling() bool { return d == Falling || d == RisingAndFalling }

// Signedness classifies a witness function's range.
type Signedness int

const (
	// Bilateral witnesses take both signs; the zero crossing is the event.
	Bilateral Signedness = iota
	// Unilateral witnesses are one-sided; touching zero is the event.
	Unilateral
)

// Continuity classifies a witness function for the root finder.
type Continuity int

const (
	Continuous Continuity = iota
	Discontinuous
)

// MaxDeriv is the highest witness time derivative the subsystem tracks:
// value, first, and second derivative.
const MaxDeriv = 2

// DefaultLocalizationWindow is the accuracy-relative width within which a
// witness zero crossing must be bracketed, as a fraction of the accuracy
// in use.
const DefaultLocalizationWindow = 0.1

// Trigger detects an Event: a Timer (scheduled), a Witness (state
// condition), or a SignalTrigger (framework occurrence). Each trigger
// carries the ordered list of event ids it causes.
type Trigger interface {
	ID() EventTriggerID
	Description() string
	NumEvents() int
	EventID(i int) EventID
	AddEvent(id EventID)
	Occurrences() uint64

	base() *triggerBase
}

// triggerBase carries the state common to every trigger variant. Concrete
// triggers embed it.
type triggerBase struct {
	description string
	id          EventTriggerID
	eventIDs    []EventID

	// Diagnostic counter, bumped by the occurrence resolver.
	occurrences uint64
}

func newTriggerBase(description string) triggerBase {
	return triggerBase{description: description, id: InvalidEventTriggerID}
}

func (b *triggerBase) ID() EventTriggerID  { return b.id }
func (b *triggerBase) Description() string { return b.description }
func (b *triggerBase) NumEvents() int      { return len(b.eventIDs) }
func (b *triggerBase) EventID(i int) EventID {
	return b.eventIDs[i]
}

// AddEvent appends an event id to the trigger's cause list.
func (b *triggerBase) AddEvent(id EventID) { b.eventIDs = append(b.eventIDs, id) }

func (b *triggerBase) Occurrences() uint64 { return b.occurrences }
func (b *triggerBase) noteOccurrence()     { b.occurrences++ }
func (b *triggerBase) base() *triggerBase  { return b }

// TimeFunc produces the next scheduled trigger time at or after the
// current state time, given the time of this timer's last trigger. Return
// +Inf when no further trigger exists.
type TimeFunc func(sys *Subsystem, state *State, timeOfLastTrigger float64) float64

// Timer is a Trigger for scheduled events.
type Timer struct {
	triggerBase
	nextFn TimeFunc

	// Dense index within the topology cache, assigned by RealizeTopology.
	timerIndex EventTimerIndex
}

// NewTimer creates a timer whose schedule is produced by fn.
func NewTimer(description string, fn TimeFunc) *Timer {
	return &Timer{
		triggerBase: newTriggerBase(description),
		nextFn:      fn,
		timerIndex:  InvalidEventTimerIndex,
	}
}

// TimeOfNextTrigger returns the next trigger time, +Inf if none.
func (t *Timer) TimeOfNextTrigger(sys *Subsystem, state *State, timeOfLastTrigger float64) float64 {
	if t.nextFn == nil {
		return math.Inf(1)
	}
	return t.nextFn(sys, state, timeOfLastTrigger)
}

// TimerIndex returns the dense index assigned by the last topology
// realization.
func (t *Timer) TimerIndex() EventTimerIndex { return t.timerIndex }

// WitnessFunc evaluates a witness function or one of its time derivatives
// on a state realized to the witness's depends-on stage for that order.
type WitnessFunc func(study Study, state *State, derivOrder int) float64

// StageFunc gives the earliest stage a witness derivative depends on.
type StageFunc func(derivOrder int) Stage

// Witness is a Trigger defined by a continuous function of state whose
// sign transitions mark events.
type Witness struct {
	triggerBase
	signedness Signedness
	direction  Direction
	continuity Continuity

	valueFn   WitnessFunc
	stageFn   StageFunc
	numDerivs int
	window    float64

	// Dense index within the topology cache, assigned by RealizeTopology.
	witnessIndex EventWitnessIndex
}

// NewWitness creates a witness over fn. dependsOn gives the required
// realization stage per derivative order; the witness starts with zero
// declared derivatives and the default localization window.
func NewWitness(description string, signedness Signedness, direction Direction,
	continuity Continuity, fn WitnessFunc, dependsOn StageFunc) *Witness {
	return &Witness{
		triggerBase:  newTriggerBase(description),
		signedness:   signedness,
		direction:    direction,
		continuity:   continuity,
		valueFn:      fn,
		stageFn:      dependsOn,
		window:       DefaultLocalizationWindow,
		witnessIndex: InvalidEventWitnessIndex,
	}
}

// Value evaluates the witness derivative of the given order.
func (w *Witness) Value(study Study, state *State, derivOrder int) float64 {
	return w.valueFn(study, state, derivOrder)
}

// DependsOnStage returns the earliest stage the given derivative order
// depends on.
func (w *Witness) DependsOnStage(derivOrder int) Stage {
	if w.stageFn == nil {
		return StageAcceleration
	}
	return w.stageFn(derivOrder)
}

// NumTimeDerivatives returns the number of time derivatives the witness
// can report. This may exceed MaxDeriv; the subsystem uses at most
// MaxDeriv of them.
func (w *Witness) NumTimeDerivatives() int { return w.numDerivs }

// SetNumTimeDerivatives declares how many time derivatives the witness
// reports.
func (w *Witness) SetNumTimeDerivatives(n int) { w.numDerivs = n }

func (w *Witness) Signedness() Signedness { return w.signedness }
func (w *Witness) Direction() Direction   { return w.direction }
func (w *Witness) Continuity() Continuity { return w.continuity }

// LocalizationWindow returns the accuracy-relative time window within
// which a zero crossing must be bracketed.
func (w *Witness) LocalizationWindow() float64 { return w.window }

// SetAccuracyRelativeLocalizationWindow overrides the localization window.
func (w *Witness) SetAccuracyRelativeLocalizationWindow(window float64) { w.window = window }

// WitnessIndex returns the dense index assigned by the last topology
// realization.
func (w *Witness) WitnessIndex() EventWitnessIndex { return w.witnessIndex }

// SignalTrigger marks framework occurrences that are neither scheduled nor
// witnessed; the predefined triggers are these. The topology cache skips
// them.
type SignalTrigger struct {
	triggerBase
}

// NewSignalTrigger creates a signal trigger causing the given events.
func NewSignalTrigger(description string, causes ...EventID) *SignalTrigger {
	t := &SignalTrigger{triggerBase: newTriggerBase(description)}
	t.eventIDs = append(t.eventIDs, causes...)
	return t
}

// NewInitializationTrigger creates the trigger that fires the
// initialization event at the start of a run.
func NewInitializationTrigger(cause EventID) *SignalTrigger {
	return NewSignalTrigger("Initialization trigger", cause)
}

// NewTimeAdvancedTrigger creates the trigger fired after every accepted
// step.
func NewTimeAdvancedTrigger(cause EventID) *SignalTrigger {
	return NewSignalTrigger("TimeAdvanced trigger", cause)
}

// NewTerminationTrigger creates the trigger fired when a run ends.
func NewTerminationTrigger(cause EventID) *SignalTrigger {
	return NewSignalTrigger("Termination trigger", cause)
}
