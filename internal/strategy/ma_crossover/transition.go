package ma_crossover

import "github.com/newthinker/crossover/internal/core"

// ComputeTransitions detects position changes between consecutive defined
// signals. Undefined signals are left out of the result. The first defined
// date, and the first defined date after an undefined gap, is TransitionNone.
func ComputeTransitions(signals core.SignalSeries) core.TransitionSeries {
	transitions := make(core.TransitionSeries, 0, len(signals))

	var prev *core.Signal
	for i := range signals {
		curr := &signals[i]
		if !curr.Defined {
			prev = nil
			continue
		}

		t := core.TransitionNone
		if prev != nil {
			switch {
			// Golden cross
			case prev.Position == core.Flat && curr.Position == core.Long:
				t = core.TransitionEnter
			// Death cross
			case prev.Position == core.Long && curr.Position == core.Flat:
				t = core.TransitionExit
			}
		}

		transitions = append(transitions, core.TransitionPoint{Date: curr.Date, Transition: t})
		prev = curr
	}

	return transitions
}
