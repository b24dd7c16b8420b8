package simevent_test

import (
	"errors"
	"math"
	"testing"

	. "github.com/comalice/simevent"
)

// periodicHandler is a legacy scheduled handler firing every period.
type periodicHandler struct {
	HandlerCore
	period      float64
	handled     int
	sawAdvanced []bool
	terminate   bool
	fail        error
}

func (h *periodicHandler) EventDescription() string { return "periodic handler" }

func (h *periodicHandler) NextEventTime(state *State, timeHasAdvanced bool) float64 {
	h.sawAdvanced = append(h.sawAdvanced, timeHasAdvanced)
	next := math.Ceil(state.Time()/h.period) * h.period
	if next <= state.Time() && !timeHasAdvanced {
		next += h.period
	}
	return next
}

func (h *periodicHandler) HandleEvent(state *State, accuracy float64) (bool, error) {
	h.handled++
	return h.terminate, h.fail
}

// thresholdHandler is a legacy triggered handler watching a threshold.
type thresholdHandler struct {
	HandlerCore
	info    EventTriggerInfo
	stage   Stage
	handled int
}

func (h *thresholdHandler) EventDescription() string      { return "" }
func (h *thresholdHandler) Value(state *State) float64    { return state.Time() - 1 }
func (h *thresholdHandler) RequiredStage() Stage          { return h.stage }
func (h *thresholdHandler) TriggerInfo() EventTriggerInfo { return h.info }
func (h *thresholdHandler) HandleEvent(*State, float64) (bool, error) {
	h.handled++
	return false, nil
}

// sampleReporter is a legacy scheduled reporter.
type sampleReporter struct {
	HandlerCore
	period   float64
	reported int
}

func (r *sampleReporter) EventDescription() string { return "sampler" }
func (r *sampleReporter) NextEventTime(state *State, timeHasAdvanced bool) float64 {
	return math.Ceil(state.Time()/r.period) * r.period
}
func (r *sampleReporter) Report(*State) { r.reported++ }

// watchReporter is a legacy triggered reporter.
type watchReporter struct {
	HandlerCore
	info     EventTriggerInfo
	reported int
}

func (r *watchReporter) EventDescription() string      { return "watcher" }
func (r *watchReporter) Value(state *State) float64    { return -state.Time() }
func (r *watchReporter) RequiredStage() Stage          { return StageVelocity }
func (r *watchReporter) TriggerInfo() EventTriggerInfo { return r.info }
func (r *watchReporter) Report(*State)                 { r.reported++ }

// Adopting a scheduled handler creates an event with a change action and
// a timer, and writes the handles back.
func TestAdoptScheduledEventHandler(t *testing.T) {
	sys := NewSubsystem()

	h := &periodicHandler{period: 0.5}
	if err := sys.AdoptScheduledEventHandler(h); err != nil {
		t.Fatal(err)
	}

	if h.System() != sys {
		t.Errorf("system back-pointer not set")
	}
	if !h.EventID().IsValid() || !h.TriggerID().IsValid() {
		t.Fatalf("handles not written back: event %d trigger %d", h.EventID(), h.TriggerID())
	}
	if h.ActionIndex() != 0 {
		t.Errorf("action index = %d, want 0", h.ActionIndex())
	}

	e, err := sys.GetEvent(h.EventID())
	if err != nil {
		t.Fatal(err)
	}
	if !e.HasChangeAction() || e.HasReportAction() {
		t.Errorf("handler event should carry exactly a change action")
	}
	if e.Description() != "periodic handler" {
		t.Errorf("event description = %q", e.Description())
	}

	trig, err := sys.GetEventTrigger(h.TriggerID())
	if err != nil {
		t.Fatal(err)
	}
	tm, ok := trig.(*Timer)
	if !ok {
		t.Fatalf("trigger is %T, want *Timer", trig)
	}
	if tm.NumEvents() != 1 || tm.EventID(0) != h.EventID() {
		t.Errorf("timer causes = %d events, first %d", tm.NumEvents(), tm.EventID(0))
	}
}

// The timer delegate passes timeHasAdvanced = state.Time() > last.
func TestScheduledDelegateInclusivity(t *testing.T) {
	sys := NewSubsystem()
	study := newTestStudy(sys)

	h := &periodicHandler{period: 1.0}
	if err := sys.AdoptScheduledEventHandler(h); err != nil {
		t.Fatal(err)
	}
	trig, _ := sys.GetEventTrigger(h.TriggerID())
	tm := trig.(*Timer)

	study.state.SetTime(2.0)

	tm.TimeOfNextTrigger(sys, study.state, 2.0) // current instant already fired
	tm.TimeOfNextTrigger(sys, study.state, 1.5) // time advanced past last

	if len(h.sawAdvanced) != 2 || h.sawAdvanced[0] != false || h.sawAdvanced[1] != true {
		t.Errorf("timeHasAdvanced flags = %v, want [false true]", h.sawAdvanced)
	}
}

// Direction derivation from the legacy rising/falling flags; neither set
// is rejected.
func TestTriggeredDirectionDerivation(t *testing.T) {
	tests := []struct {
		name    string
		rising  bool
		falling bool
		want    Direction
		wantErr bool
	}{
		{"rising only", true, false, Rising, false},
		{"falling only", false, true, Falling, false},
		{"both", true, true, RisingAndFalling, false},
		{"neither", false, false, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := NewSubsystem()
			h := &thresholdHandler{
				stage: StagePosition,
				info:  EventTriggerInfo{TriggerOnRising: tt.rising, TriggerOnFalling: tt.falling},
			}
			err := sys.AdoptTriggeredEventHandler(h)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("err = %v, want ErrInvalidArgument", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			trig, _ := sys.GetEventTrigger(h.TriggerID())
			w, ok := trig.(*Witness)
			if !ok {
				t.Fatalf("trigger is %T, want *Witness", trig)
			}
			if w.Direction() != tt.want {
				t.Errorf("direction = %v, want %v", w.Direction(), tt.want)
			}
		})
	}
}

// The generated witness delegates value and stage, copies the
// localization window, and the handler event gets the default
// description when the handler gives none.
func TestAdoptTriggeredEventHandler(t *testing.T) {
	sys := NewSubsystem()
	study := newTestStudy(sys)

	h := &thresholdHandler{
		stage: StageDynamics,
		info: EventTriggerInfo{
			TriggerOnRising:    true,
			LocalizationWindow: 0.01,
		},
	}
	if err := sys.AdoptTriggeredEventHandler(h); err != nil {
		t.Fatal(err)
	}

	e, _ := sys.GetEvent(h.EventID())
	if e.Description() != "EventHandler Event" {
		t.Errorf("default description = %q", e.Description())
	}

	trig, _ := sys.GetEventTrigger(h.TriggerID())
	w := trig.(*Witness)
	if w.DependsOnStage(0) != StageDynamics {
		t.Errorf("depends-on stage = %v, want Dynamics", w.DependsOnStage(0))
	}
	if w.LocalizationWindow() != 0.01 {
		t.Errorf("localization window = %g, want 0.01", w.LocalizationWindow())
	}

	study.state.SetTime(3.0)
	if got := w.Value(study, study.state, 0); got != 2.0 {
		t.Errorf("witness value = %g, want 2.0 (delegated)", got)
	}
}

// Reporter adoption mirrors handler adoption with report actions.
func TestAdoptEventReporters(t *testing.T) {
	sys := NewSubsystem()

	sr := &sampleReporter{period: 0.1}
	if err := sys.AdoptScheduledEventReporter(sr); err != nil {
		t.Fatal(err)
	}
	e, _ := sys.GetEvent(sr.EventID())
	if !e.HasReportAction() || e.HasChangeAction() {
		t.Errorf("reporter event should carry exactly a report action")
	}
	if _, ok := mustTrigger(t, sys, sr.TriggerID()).(*Timer); !ok {
		t.Errorf("scheduled reporter trigger should be a *Timer")
	}

	wr := &watchReporter{info: EventTriggerInfo{TriggerOnFalling: true}}
	if err := sys.AdoptTriggeredEventReporter(wr); err != nil {
		t.Fatal(err)
	}
	e, _ = sys.GetEvent(wr.EventID())
	if !e.HasReportAction() || e.HasChangeAction() {
		t.Errorf("reporter event should carry exactly a report action")
	}
	w, ok := mustTrigger(t, sys, wr.TriggerID()).(*Witness)
	if !ok {
		t.Fatalf("triggered reporter trigger should be a *Witness")
	}
	if w.Direction() != Falling {
		t.Errorf("direction = %v, want Falling", w.Direction())
	}
}

// A handler error marks the change pass Failed with the message retained.
func TestHandlerErrorBecomesFailure(t *testing.T) {
	sys := NewSubsystem()
	study := newTestStudy(sys)

	h := &periodicHandler{period: 1, fail: errors.New("mass matrix singular")}
	if err := sys.AdoptScheduledEventHandler(h); err != nil {
		t.Fatal(err)
	}

	trig, _ := sys.GetEventTrigger(h.TriggerID())
	triggered, _ := sys.NoteEventOccurrence([]Trigger{trig})

	var result EventChangeResult
	if err := sys.PerformEventChangeActions(study, triggered, &result); err != nil {
		t.Fatal(err)
	}
	if result.ExitStatus() != Failed {
		t.Errorf("exit status = %v, want Failed", result.ExitStatus())
	}
	if result.Message() != "mass matrix singular" {
		t.Errorf("message = %q", result.Message())
	}
}

// A handler requesting termination surfaces ShouldTerminate.
func TestHandlerTerminationRequest(t *testing.T) {
	sys := NewSubsystem()
	study := newTestStudy(sys)

	h := &periodicHandler{period: 1, terminate: true}
	if err := sys.AdoptScheduledEventHandler(h); err != nil {
		t.Fatal(err)
	}

	trig, _ := sys.GetEventTrigger(h.TriggerID())
	triggered, _ := sys.NoteEventOccurrence([]Trigger{trig})

	var result EventChangeResult
	if err := sys.PerformEventChangeActions(study, triggered, &result); err != nil {
		t.Fatal(err)
	}
	if result.ExitStatus() != ShouldTerminate {
		t.Errorf("exit status = %v, want ShouldTerminate", result.ExitStatus())
	}
	if h.handled != 1 {
		t.Errorf("handler called %d times, want 1", h.handled)
	}
}

func mustTrigger(t *testing.T, sys *Subsystem, id EventTriggerID) Trigger {
	t.Helper()
	trig, err := sys.GetEventTrigger(id)
	if err != nil {
		t.Fatal(err)
	}
	return trig
}
