package ma_crossover

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesOf(closes ...float64) core.PriceSeries {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(core.PriceSeries, len(closes))
	for i, c := range closes {
		s[i] = core.PricePoint{Date: base.AddDate(0, 0, i), Close: c}
	}
	return s
}

func TestMACrossover_Name(t *testing.T) {
	s := New(5, 10)
	if s.Name() != "ma_crossover" {
		t.Errorf("expected 'ma_crossover', got '%s'", s.Name())
	}
	if s.Description() != "MA Crossover (5/10)" {
		t.Errorf("unexpected description %q", s.Description())
	}
}

func TestValidateWindows(t *testing.T) {
	tests := []struct {
		name       string
		fast, slow int
		wantErr    bool
	}{
		{"valid", 5, 15, false},
		{"smallest", 2, 3, false},
		{"fast above slow", 15, 5, true},
		{"equal", 5, 5, true},
		{"fast too small", 1, 5, true},
		{"slow too small", 0, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindows(tt.fast, tt.slow)
			if tt.wantErr {
				assert.True(t, errors.Is(err, core.ErrInvalidParameter), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMACrossover_Analyze_CrossDownThenUp(t *testing.T) {
	s := New(2, 4)

	// SMA2 from index 3: 11.5 10.5 9.5 9.5 10.5 11.5 12.5 13.5 14.5
	// SMA4 from index 3: 11   11   10.5 10  10   10.5 11.5 12.5 13.5
	prices := seriesOf(10, 11, 12, 11, 10, 9, 10, 11, 12, 13, 14, 15)

	a, err := s.Analyze(prices)
	require.NoError(t, err)

	require.Len(t, a.Fast, len(prices))
	require.Len(t, a.Slow, len(prices))
	require.Len(t, a.Signals, len(prices))
	for i := 0; i < 3; i++ {
		assert.True(t, a.Slow[i].Value.IsNone(), "slow[%d] should be undefined", i)
		assert.False(t, a.Signals[i].Defined)
	}

	wantPositions := []core.Position{
		core.Long, core.Flat, core.Flat, core.Flat,
		core.Long, core.Long, core.Long, core.Long, core.Long,
	}
	for i, want := range wantPositions {
		sig := a.Signals[i+3]
		assert.True(t, sig.Defined)
		assert.Equal(t, want, sig.Position, "signal[%d]", i+3)
	}

	// Transitions only cover the defined range
	require.Len(t, a.Transitions, 9)
	assert.Equal(t, prices[3].Date, a.Transitions[0].Date)
	assert.Equal(t, core.TransitionNone, a.Transitions[0].Transition)
	assert.Equal(t, core.TransitionExit, a.Transitions[1].Transition)
	assert.Equal(t, core.TransitionEnter, a.Transitions[4].Transition)

	enters, exits := a.Transitions.Counts()
	assert.Equal(t, 1, enters)
	assert.Equal(t, 1, exits)
}

func TestMACrossover_Analyze_FlatPrices(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100
	}

	a, err := New(3, 5).Analyze(seriesOf(closes...))
	require.NoError(t, err)

	for i := 4; i < len(closes); i++ {
		assert.Equal(t, 100.0, a.Fast[i].Value.Unwrap())
		assert.Equal(t, 100.0, a.Slow[i].Value.Unwrap())
		assert.Equal(t, core.Flat, a.Signals[i].Position)
	}
	enters, exits := a.Transitions.Counts()
	assert.Zero(t, enters)
	assert.Zero(t, exits)
}

func TestMACrossover_Analyze_InvalidParams(t *testing.T) {
	_, err := New(15, 5).Analyze(seriesOf(1, 2, 3))
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))
}

func TestMACrossover_Analyze_Empty(t *testing.T) {
	a, err := New(5, 15).Analyze(core.PriceSeries{})
	require.NoError(t, err)
	assert.Empty(t, a.Signals)
	assert.Empty(t, a.Transitions)
}

func TestMACrossover_NotEnoughData(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}

	a, err := New(50, 200).Analyze(seriesOf(closes...))
	require.NoError(t, err)

	// Slow MA never fills, so nothing is defined
	assert.Equal(t, 0, a.Slow.Defined())
	assert.Empty(t, a.Transitions)
}
