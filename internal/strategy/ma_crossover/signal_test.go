package ma_crossover

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maOf(values ...float64) indicator.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(indicator.Series, len(values))
	for i, v := range values {
		s[i].Date = base.AddDate(0, 0, i)
		if v < 0 {
			s[i].Value = optional.None[float64]()
		} else {
			s[i].Value = optional.Some(v)
		}
	}
	return s
}

func TestComputeSignal(t *testing.T) {
	// -1 marks an undefined value
	fast := maOf(-1, 10, 12, 11, 11)
	slow := maOf(-1, -1, 11, 11, 12)

	signals, err := ComputeSignal(fast, slow)
	require.NoError(t, err)
	require.Len(t, signals, 5)

	assert.False(t, signals[0].Defined)
	assert.False(t, signals[1].Defined, "undefined slow makes the signal undefined")
	assert.Equal(t, core.Flat, signals[1].Position)

	assert.True(t, signals[2].Defined)
	assert.Equal(t, core.Long, signals[2].Position)
	assert.Equal(t, core.Flat, signals[3].Position, "ties resolve to Flat")
	assert.Equal(t, core.Flat, signals[4].Position)
}

func TestComputeSignal_LengthMismatch(t *testing.T) {
	_, err := ComputeSignal(maOf(1, 2, 3), maOf(1, 2))
	assert.True(t, errors.Is(err, core.ErrAlignment))
}

func TestComputeSignal_DateMismatch(t *testing.T) {
	fast := maOf(1, 2, 3)
	slow := maOf(1, 2, 3)
	slow[2].Date = slow[2].Date.AddDate(0, 0, 1)

	_, err := ComputeSignal(fast, slow)
	assert.True(t, errors.Is(err, core.ErrAlignment))
}

func TestComputeTransitions(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sig := func(i int, p core.Position, defined bool) core.Signal {
		return core.Signal{Date: base.AddDate(0, 0, i), Position: p, Defined: defined}
	}

	signals := core.SignalSeries{
		sig(0, core.Flat, false),
		sig(1, core.Long, true), // first defined: no transition
		sig(2, core.Long, true),
		sig(3, core.Flat, true),
		sig(4, core.Long, true),
		sig(5, core.Long, true),
	}

	transitions := ComputeTransitions(signals)
	require.Len(t, transitions, 5)

	want := []core.Transition{
		core.TransitionNone,
		core.TransitionNone,
		core.TransitionExit,
		core.TransitionEnter,
		core.TransitionNone,
	}
	for i, w := range want {
		assert.Equal(t, signals[i+1].Date, transitions[i].Date)
		assert.Equal(t, w, transitions[i].Transition, "transition %d", i)
	}
}

func TestComputeTransitions_GapRestarts(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	signals := core.SignalSeries{
		{Date: base, Position: core.Flat, Defined: true},
		{Date: base.AddDate(0, 0, 1), Defined: false},
		{Date: base.AddDate(0, 0, 2), Position: core.Long, Defined: true},
	}

	transitions := ComputeTransitions(signals)
	require.Len(t, transitions, 2)
	assert.Equal(t, core.TransitionNone, transitions[1].Transition)
}

func TestComputeTransitions_AlternateAndBalance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		n := 5 + rng.Intn(60)
		closes := make([]float64, n)
		price := 50.0
		for i := range closes {
			price *= 1 + (rng.Float64()-0.5)/10
			closes[i] = price
		}

		a, err := New(2, 5).Analyze(seriesOf(closes...))
		require.NoError(t, err)

		var first *core.Signal
		for i := range a.Signals {
			if a.Signals[i].Defined {
				first = &a.Signals[i]
				break
			}
		}

		var last core.Transition
		enters, exits := 0, 0
		for _, tr := range a.Transitions {
			if tr.Transition == core.TransitionNone {
				continue
			}
			if last != core.TransitionNone {
				require.NotEqual(t, last, tr.Transition, "run %d: transitions must alternate", run)
			} else if first != nil && first.Position == core.Flat {
				require.Equal(t, core.TransitionEnter, tr.Transition, "run %d: first action from Flat must be Enter", run)
			}
			last = tr.Transition
			if tr.Transition == core.TransitionEnter {
				enters++
			} else {
				exits++
			}
		}

		diff := enters - exits
		if first != nil && first.Position == core.Long {
			assert.Contains(t, []int{-1, 0}, diff, "run %d", run)
		} else {
			assert.Contains(t, []int{0, 1}, diff, "run %d", run)
		}
	}
}

func TestComputeTransitions_LongFromFirstDefinedExitsFirst(t *testing.T) {
	a, err := New(2, 3).Analyze(seriesOf(10, 11, 12, 13, 12, 11, 10, 9))
	require.NoError(t, err)

	require.True(t, a.Signals[2].Defined)
	require.Equal(t, core.Long, a.Signals[2].Position)

	enters, exits := a.Transitions.Counts()
	assert.Equal(t, 0, enters)
	assert.Equal(t, 1, exits)
	assert.Equal(t, core.TransitionNone, a.Transitions[0].Transition, "first defined date")
	assert.Equal(t, core.TransitionExit, a.Transitions[3].Transition)
	assert.Equal(t, a.Signals[5].Date, a.Transitions[3].Date)
}

func TestComputeTransitions_Idempotent(t *testing.T) {
	a, err := New(2, 4).Analyze(seriesOf(10, 11, 12, 11, 10, 9, 10, 11, 12, 13, 14, 15))
	require.NoError(t, err)

	first := ComputeTransitions(a.Signals)
	second := ComputeTransitions(a.Signals)
	assert.True(t, reflect.DeepEqual(first, second))
}
