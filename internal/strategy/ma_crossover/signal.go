package ma_crossover

import (
	"fmt"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
)

// ComputeSignal derives the per-date position from two aligned moving averages.
// Long iff both averages are defined and fast is strictly above slow.
func ComputeSignal(fast, slow indicator.Series) (core.SignalSeries, error) {
	if len(fast) != len(slow) {
		return nil, core.WrapError(core.ErrAlignment,
			fmt.Errorf("fast has %d points, slow has %d", len(fast), len(slow)))
	}

	signals := make(core.SignalSeries, len(fast))
	for i := range fast {
		if !fast[i].Date.Equal(slow[i].Date) {
			return nil, core.WrapError(core.ErrAlignment,
				fmt.Errorf("index %d: fast date %s, slow date %s", i,
					fast[i].Date.Format(core.DateLayout), slow[i].Date.Format(core.DateLayout)))
		}

		signals[i] = core.Signal{Date: fast[i].Date, Position: core.Flat}
		if fast[i].Value.IsNone() || slow[i].Value.IsNone() {
			continue
		}

		signals[i].Defined = true
		if fast[i].Value.Unwrap() > slow[i].Value.Unwrap() {
			signals[i].Position = core.Long
		}
	}

	return signals, nil
}
