package main

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/comalice/simevent"
	"github.com/comalice/simevent/stepper"
)

// Scenario is the YAML-configurable demo setup: a ball dropped onto a
// rigid floor, the minimal analog of a mechanism with a joint stop.
type Scenario struct {
	Gravity     float64 `yaml:"gravity"`
	Restitution float64 `yaml:"restitution"`
	DropHeight  float64 `yaml:"drop_height"`
	ReportEvery float64 `yaml:"report_every"`

	Stepper stepper.Config `yaml:"stepper"`
}

func defaultScenario() Scenario {
	return Scenario{
		Gravity:     9.81,
		Restitution: 0.7,
		DropHeight:  1.0,
		ReportEvery: 0.25,
		Stepper:     stepper.DefaultConfig(),
	}
}

func loadScenario(data []byte) (Scenario, error) {
	sc := defaultScenario()
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario: %w", err)
	}
	if sc.Gravity <= 0 || sc.DropHeight <= 0 || sc.ReportEvery <= 0 {
		return Scenario{}, fmt.Errorf("scenario values must be positive")
	}
	if sc.Restitution < 0 || sc.Restitution >= 1 {
		return Scenario{}, fmt.Errorf("restitution must be in [0,1)")
	}
	if err := sc.Stepper.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// restVelocity is the rebound speed below which the ball is considered at
// rest and the run terminates.
const restVelocity = 1e-2

// ball is a TriggeredEventHandler: its witness is the height above the
// floor, falling through zero at impact; its change action reflects the
// velocity with the restitution coefficient. Between impacts the
// trajectory is the closed-form ballistic arc from the last impact.
type ball struct {
	simevent.HandlerCore

	gravity     float64
	restitution float64

	// Arc since the last change event.
	t0, y0, v0 float64

	bounces int
}

func newBall(sc Scenario) *ball {
	return &ball{
		gravity:     sc.Gravity,
		restitution: sc.Restitution,
		t0:          sc.Stepper.StartTime,
		y0:          sc.DropHeight,
	}
}

func (b *ball) heightAt(t float64) float64 {
	dt := t - b.t0
	return b.y0 + b.v0*dt - 0.5*b.gravity*dt*dt
}

func (b *ball) velocityAt(t float64) float64 {
	return b.v0 - b.gravity*(t-b.t0)
}

func (b *ball) EventDescription() string { return "ball-floor impact" }

func (b *ball) Value(state *simevent.State) float64 {
	return b.heightAt(state.Time())
}

func (b *ball) RequiredStage() simevent.Stage { return simevent.StagePosition }

func (b *ball) TriggerInfo() simevent.EventTriggerInfo {
	return simevent.EventTriggerInfo{TriggerOnFalling: true}
}

func (b *ball) HandleEvent(state *simevent.State, accuracy float64) (bool, error) {
	t := state.Time()
	v := b.velocityAt(t)

	b.t0 = t
	b.y0 = 0
	b.v0 = -b.restitution * v
	b.bounces++
	state.Invalidate(simevent.StagePosition)

	if math.Abs(b.v0) < restVelocity {
		b.v0 = 0
		return true, nil // at rest; stop the run
	}
	return false, nil
}

// monitor is a ScheduledEventReporter printing the trajectory on a fixed
// period.
type monitor struct {
	simevent.HandlerCore

	ball   *ball
	period float64
	emit   func(t, y, v float64)
}

func (m *monitor) EventDescription() string { return "periodic trajectory report" }

func (m *monitor) NextEventTime(state *simevent.State, timeHasAdvanced bool) float64 {
	t := state.Time()
	next := math.Ceil(t/m.period-1e-12) * m.period
	if next <= t && !timeHasAdvanced {
		// Already reported this instant; schedule the next grid point.
		next += m.period
	}
	if next < t {
		next = t
	}
	return next
}

func (m *monitor) Report(state *simevent.State) {
	t := state.Time()
	m.emit(t, m.ball.heightAt(t), m.ball.velocityAt(t))
}
