package simevent

// State is the versioned simulation state the event subsystem reads and
// invalidates. It tracks the current time, how far the state has been
// realized, a version counter per stage, and the dynamic trigger
// collection as a discrete state variable.
//
// A State is owned by exactly one study at a time; nothing here locks.
type State struct {
	time     float64
	current  Stage
	versions [StageNValid]StageVersion

	// Runtime-allocated triggers, created by RealizeTopology.
	triggers *TriggerCollection
}

// NewState creates an empty, unrealized state at time zero.
func NewState() *State {
	s := &State{current: StageEmpty}
	for g := range s.versions {
		s.versions[g] = 1
	}
	return s
}

// Time returns the current state time.
func (s *State) Time() float64 { return s.time }

// SetTime moves the state to time t, invalidating StageTime and above.
func (s *State) SetTime(t float64) {
	s.Invalidate(StageTime)
	s.time = t
}

// CurrentStage returns the highest stage the state is realized through.
func (s *State) CurrentStage() Stage { return s.current }

// Realize marks the state as computed through stage g. Raising the
// realization level never changes version numbers.
func (s *State) Realize(g Stage) {
	if g > s.current {
		s.current = g
	}
}

// Invalidate drops the realization level below g and bumps the version of
// g and every higher stage.
func (s *State) Invalidate(g Stage) {
	if !g.IsValid() {
		return
	}
	if s.current >= g {
		s.current = g - 1
	}
	for h := g; int(h) < StageNValid; h++ {
		s.versions[h]++
	}
}

// StageVersions appends the current per-stage version numbers to out and
// returns it. Pass a reused slice to avoid allocation.
func (s *State) StageVersions(out []StageVersion) []StageVersion {
	return append(out, s.versions[:]...)
}

// LowestStageDifference returns the lowest stage whose version number
// differs from the snapshot, or StageInfinity if none do.
func (s *State) LowestStageDifference(snapshot []StageVersion) Stage {
	n := len(snapshot)
	if n > StageNValid {
		n = StageNValid
	}
	for g := 0; g < n; g++ {
		if s.versions[g] != snapshot[g] {
			return Stage(g)
		}
	}
	return StageInfinity
}

// Triggers returns the dynamic trigger collection, or nil before the first
// topology realization.
func (s *State) Triggers() *TriggerCollection { return s.triggers }

func (s *State) allocTriggerCollection() {
	if s.triggers == nil {
		s.triggers = NewTriggerCollection()
	}
}

// Study is a running simulation context: the host the event subsystem
// dispatches actions against.
type Study interface {
	// System returns the subsystem the study is driving.
	System() *Subsystem

	// CurrentState returns the state for read-only use by report actions
	// and witness evaluation.
	CurrentState() *State

	// InternalState returns the mutable state change actions operate on.
	InternalState() *State

	// Precision returns the machine precision the study computes with.
	Precision() float64

	// AccuracyInUse returns the integration accuracy currently in effect;
	// witness localization windows are relative to it.
	AccuracyInUse() float64
}
