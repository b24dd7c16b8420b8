package stepper

import (
	"math"

	"github.com/comalice/simevent"
)

// Witness sign-transition detection and crossing localization over one
// trial step [t0, t1]. prevValues holds the witness values at t0; the
// state is expected to be realized at t1 on entry and is left at t1 unless
// a crossing is found.

func (s *Stepper) findEarliestCrossing(t0, t1 float64) (float64, []*simevent.Witness) {
	if t1 <= t0 || len(s.witnesses) == 0 {
		return 0, nil
	}

	tEarliest := math.Inf(1)
	var crossed []*simevent.Witness

	for i, w := range s.witnesses {
		v0 := s.prevValues[i]
		v1 := s.witnessValue(w, t1)
		if !transitioned(w.Direction(), v0, v1) {
			continue
		}
		tCross := s.localize(w, t0, v0, t1, v1)
		switch {
		case tCross < tEarliest:
			tEarliest = tCross
			crossed = crossed[:0]
			crossed = append(crossed, w)
		case tCross == tEarliest:
			// Simultaneous crossings fire together.
			crossed = append(crossed, w)
		}
	}

	if len(crossed) == 0 {
		// Witness evaluation reset the state time; leave it realized at t1.
		s.state.SetTime(t1)
		s.realize()
		return 0, nil
	}
	return tEarliest, crossed
}

// transitioned reports whether the value moved across zero in a direction
// the witness triggers on.
func transitioned(d simevent.Direction, v0, v1 float64) bool {
	rising := v0 < 0 && v1 >= 0
	falling := v0 > 0 && v1 <= 0
	return (rising && d.AllowsRising()) || (falling && d.AllowsFalling())
}

// localize brackets the crossing by bisection until the bracket is within
// the witness's accuracy-relative window, and returns the post-transition
// end of the bracket.
func (s *Stepper) localize(w *simevent.Witness, t0, v0, t1, v1 float64) float64 {
	tol := w.LocalizationWindow() * s.cfg.Accuracy
	if floor := 2 * s.cfg.Precision * math.Max(1, math.Abs(t1)); tol < floor {
		tol = floor
	}

	for t1-t0 > tol {
		tm := 0.5 * (t0 + t1)
		vm := s.witnessValue(w, tm)
		if transitioned(w.Direction(), v0, vm) {
			t1 = tm
		} else {
			t0, v0 = tm, vm
		}
	}
	return t1
}

func (s *Stepper) witnessValue(w *simevent.Witness, t float64) float64 {
	s.state.SetTime(t)
	s.realize()
	return w.Value(s, s.state, 0)
}
