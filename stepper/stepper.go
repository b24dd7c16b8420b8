// Package stepper provides a minimal event-driven time stepper for the
// simevent subsystem.
//
// The stepper is not a numerical integrator: it owns no continuous
// variables. It advances time in bounded trial steps, watches the active
// witnesses for sign transitions, localizes each crossing by bisection to
// the witness's accuracy-relative window, and dispatches report and change
// actions in the order the subsystem contract requires. Hosts carry their
// continuous trajectory in closed form between events, evaluable at any
// state time; change actions are exactly the points where that trajectory
// is allowed to change.
//
// One Stepper drives one run and implements simevent.Study.
package stepper

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/comalice/simevent"
)

// Stepper drives a Subsystem through a run.
type Stepper struct {
	sys   *simevent.Subsystem
	cfg   Config
	runID uuid.UUID
	state *simevent.State

	tLastReport float64
	tLastChange float64

	// Active witnesses and their values at the current time.
	witnesses  []*simevent.Witness
	prevValues []float64

	initialized bool
	terminated  bool
	steps       int
}

// New creates a stepper for sys with the given config.
func New(sys *simevent.Subsystem, cfg Config) (*Stepper, error) {
	if sys == nil {
		return nil, errors.New("stepper: subsystem can't be nil")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Stepper{
		sys:   sys,
		cfg:   cfg,
		runID: uuid.New(),
		state: simevent.NewState(),
	}, nil
}

//
// simevent.Study
//

func (s *Stepper) System() *simevent.Subsystem    { return s.sys }
func (s *Stepper) CurrentState() *simevent.State  { return s.state }
func (s *Stepper) InternalState() *simevent.State { return s.state }
func (s *Stepper) Precision() float64             { return s.cfg.Precision }
func (s *Stepper) AccuracyInUse() float64         { return s.cfg.Accuracy }

// RunID identifies this run in reports.
func (s *Stepper) RunID() string { return s.runID.String() }

// Terminated reports whether a change action asked the run to end.
func (s *Stepper) Terminated() bool { return s.terminated }

// Initialize realizes topology, moves the state to the start time, and
// fires the Initialization event.
func (s *Stepper) Initialize() error {
	if err := s.sys.RealizeTopology(s.state); err != nil {
		return err
	}
	s.state.SetTime(s.cfg.StartTime)
	s.realize()
	s.tLastReport = s.cfg.StartTime
	s.tLastChange = s.cfg.StartTime

	if err := s.fireSignal(s.sys.InitializationTriggerID()); err != nil {
		return err
	}
	s.refreshWitnesses()
	s.initialized = true
	return nil
}

// StepTo advances the run until tStop, a termination request, or the
// configured step limit.
func (s *Stepper) StepTo(tStop float64) error {
	if !s.initialized {
		return errors.New("stepper: StepTo before Initialize")
	}

	for s.state.Time() < tStop && !s.terminated {
		s.steps++
		if s.steps > s.cfg.MaxSteps {
			return fmt.Errorf("stepper: exceeded %d steps at t=%g", s.cfg.MaxSteps, s.state.Time())
		}

		// Dynamic triggers may have come or gone since the last step.
		s.refreshWitnesses()

		tNextReport, reportTimers, tNextChange, changeTimers :=
			s.sys.FindNextScheduledEventTimes(s, s.tLastReport, s.tLastChange)
		tScheduled := math.Min(tNextReport, tNextChange)

		t0 := s.state.Time()
		target := math.Min(tStop, t0+s.cfg.MaxStep)
		if tScheduled < target {
			target = tScheduled
		}
		if target < t0 {
			target = t0
		}

		if target > t0 {
			s.state.SetTime(target)
			s.realize()
		}

		// A witness crossing preempts the end of the trial step.
		if tCross, crossed := s.findEarliestCrossing(t0, target); len(crossed) > 0 {
			s.state.SetTime(tCross)
			s.realize()
			fired := make([]simevent.Trigger, len(crossed))
			for i, w := range crossed {
				fired[i] = w
			}
			if err := s.dispatch(fired); err != nil {
				return err
			}
			if err := s.noteTimeAdvanced(); err != nil {
				return err
			}
			continue
		}

		// Reached the target; fire any timers scheduled exactly here.
		if target == tScheduled && !math.IsInf(tScheduled, 1) {
			var fired []simevent.Trigger
			if tNextReport == target {
				for _, t := range reportTimers {
					fired = append(fired, t)
				}
				s.tLastReport = target
			}
			if tNextChange == target {
				for _, t := range changeTimers {
					fired = append(fired, t)
				}
				s.tLastChange = target
			}
			if err := s.dispatch(fired); err != nil {
				return err
			}
		}

		if err := s.noteTimeAdvanced(); err != nil {
			return err
		}
	}

	return nil
}

// Terminate fires the Termination event. Call once, after the final
// StepTo.
func (s *Stepper) Terminate() error {
	return s.fireSignal(s.sys.TerminationTriggerID())
}

// Run is the whole lifecycle: Initialize, StepTo the configured stop time,
// Terminate.
func (s *Stepper) Run() error {
	if err := s.Initialize(); err != nil {
		return err
	}
	if err := s.StepTo(s.cfg.StopTime); err != nil {
		return err
	}
	return s.Terminate()
}

// realize recomputes the state through Acceleration after any time change
// or invalidation.
func (s *Stepper) realize() {
	s.state.Realize(simevent.StageAcceleration)
}

// fireSignal dispatches one of the predefined signal triggers.
func (s *Stepper) fireSignal(id simevent.EventTriggerID) error {
	trig, err := s.sys.GetEventTrigger(id)
	if err != nil {
		return err
	}
	return s.dispatch([]simevent.Trigger{trig})
}

func (s *Stepper) noteTimeAdvanced() error {
	if err := s.fireSignal(s.sys.TimeAdvancedTriggerID()); err != nil {
		return err
	}
	s.refreshWitnessValues()
	return nil
}

// dispatch resolves the fired triggers and runs report actions, then
// change actions, re-realizing from whatever the changes invalidated.
func (s *Stepper) dispatch(triggers []simevent.Trigger) error {
	if len(triggers) == 0 {
		return nil
	}
	triggered, _ := s.sys.NoteEventOccurrence(triggers)
	if len(triggered) == 0 {
		return nil
	}

	if err := s.sys.PerformEventReportActions(s, triggered); err != nil {
		return err
	}

	var result simevent.EventChangeResult
	if err := s.sys.PerformEventChangeActions(s, triggered, &result); err != nil {
		return err
	}
	if result.LowestModifiedStage().IsValid() {
		s.realize()
	}

	switch result.ExitStatus() {
	case simevent.ShouldTerminate:
		s.terminated = true
	case simevent.Failed:
		return fmt.Errorf("stepper: change action failed at t=%g: %s",
			s.state.Time(), result.Message())
	}
	return nil
}

// refreshWitnesses rebuilds the active witness list and their values at
// the current time.
func (s *Stepper) refreshWitnesses() {
	s.witnesses = s.sys.FindActiveEventWitnesses(s, s.witnesses[:0])
	if cap(s.prevValues) < len(s.witnesses) {
		s.prevValues = make([]float64, len(s.witnesses))
	}
	s.prevValues = s.prevValues[:len(s.witnesses)]
	s.refreshWitnessValues()
}

func (s *Stepper) refreshWitnessValues() {
	for i, w := range s.witnesses {
		s.prevValues[i] = w.Value(s, s.state, 0)
	}
}
