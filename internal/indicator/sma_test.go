package indicator

import (
	"errors"
	"math"
	"math/rand"
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

func TestSMA_Calculate(t *testing.T) {
	prices := seriesOf(10, 11, 12, 13, 14, 15)

	sma, err := SMA(prices, 3)
	require.NoError(t, err)

	// SMA(3) for [10,11,12,13,14,15]:
	// [2] = (10+11+12)/3 = 11
	// [3] = (11+12+13)/3 = 12
	// [4] = (12+13+14)/3 = 13
	// [5] = (13+14+15)/3 = 14
	require.Len(t, sma, len(prices))
	assert.True(t, sma[0].Value.IsNone())
	assert.True(t, sma[1].Value.IsNone())

	expected := []float64{11, 12, 13, 14}
	for i, v := range expected {
		got, err := sma[i+2].Value.Take()
		require.NoError(t, err)
		assert.Equal(t, v, got, "sma[%d]", i+2)
	}

	for i := range prices {
		assert.Equal(t, prices[i].Date, sma[i].Date)
	}
}

func TestSMA_NotEnoughData(t *testing.T) {
	prices := seriesOf(10, 11)
	sma, err := SMA(prices, 5)
	require.NoError(t, err)

	require.Len(t, sma, 2)
	assert.Equal(t, 0, sma.Defined())
}

func TestSMA_Empty(t *testing.T) {
	sma, err := SMA(core.PriceSeries{}, 3)
	require.NoError(t, err)
	assert.Empty(t, sma)
}

func TestSMA_InvalidWindow(t *testing.T) {
	for _, w := range []int{-1, 0, 1} {
		_, err := SMA(seriesOf(1, 2, 3), w)
		if !errors.Is(err, core.ErrInvalidParameter) {
			t.Errorf("SMA(window=%d) error = %v, want INVALID_PARAMETER", w, err)
		}
	}
}

func TestSMA_MatchesWindowMean(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	closes := make([]float64, 500)
	price := 100.0
	for i := range closes {
		price *= 1 + (rng.Float64()-0.5)/50
		closes[i] = price
	}
	prices := seriesOf(closes...)

	for _, w := range []int{2, 3, 7, 20, 50} {
		sma, err := SMA(prices, w)
		require.NoError(t, err)
		require.Len(t, sma, len(prices))

		for i, p := range sma {
			if i < w-1 {
				assert.True(t, p.Value.IsNone(), "window %d index %d should be undefined", w, i)
				continue
			}
			var sum float64
			for _, c := range closes[i-w+1 : i+1] {
				sum += c
			}
			got, err := p.Value.Take()
			require.NoError(t, err)
			assert.InDelta(t, sum/float64(w), got, 1e-9, "window %d index %d", w, i)
		}
	}
}

func TestSMA_FlatSeriesIsExact(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	sma, err := SMA(seriesOf(closes...), 4)
	require.NoError(t, err)
	for _, p := range sma[3:] {
		assert.Equal(t, 100.0, p.Value.Unwrap())
	}
}

func TestSMA_Idempotent(t *testing.T) {
	prices := seriesOf(10.1, 10.7, 9.3, 11.9, 12.2, 8.8, 10.4)
	a, err := SMA(prices, 3)
	require.NoError(t, err)
	b, err := SMA(prices, 3)
	require.NoError(t, err)

	for i := range a {
		assert.Equal(t, math.Float64bits(a[i].Value.Unwrap()), math.Float64bits(b[i].Value.Unwrap()))
	}
}
