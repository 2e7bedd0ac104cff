package indicator

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/newthinker/crossover/internal/core"
)

// Point is a moving average value on one date. Value is None until the
// window has enough history.
type Point struct {
	Date  time.Time                `json:"date"`
	Value optional.Option[float64] `json:"value"`
}

// Series is a moving average aligned one-to-one with its price series
type Series []Point

// Defined returns the number of points carrying a value.
func (s Series) Defined() int {
	n := 0
	for _, p := range s {
		if p.Value.IsSome() {
			n++
		}
	}
	return n
}

// SMA calculates the Simple Moving Average of closing prices.
// The result has the same length and dates as series; the first period-1
// points are None.
func SMA(series core.PriceSeries, period int) (Series, error) {
	if period < 2 {
		return nil, core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("window must be at least 2, got %d", period))
	}

	result := make(Series, len(series))

	// Rolling calculation. The sum is rebuilt from the window once per
	// period so rounding error cannot accumulate over long histories.
	var sum float64
	for i, p := range series {
		result[i].Date = p.Date

		sum += p.Close
		if i >= period {
			sum -= series[i-period].Close
		}

		if i < period-1 {
			result[i].Value = optional.None[float64]()
			continue
		}

		start := i - period + 1
		if start%period == 0 {
			sum = windowSum(series[start : i+1])
		}
		result[i].Value = optional.Some(sum / float64(period))
	}

	return result, nil
}

func windowSum(window core.PriceSeries) float64 {
	var sum float64
	for _, p := range window {
		sum += p.Close
	}
	return sum
}
