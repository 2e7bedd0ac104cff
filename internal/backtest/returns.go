package backtest

import (
	"fmt"

	"github.com/newthinker/crossover/internal/core"
)

// ComputeReturns applies each day's signal to the next day's close-to-close
// return and compounds the result. Undefined signals count as Flat.
// It returns the per-date series and the cumulative return.
func ComputeReturns(prices core.PriceSeries, signals core.SignalSeries) ([]ReturnPoint, float64, error) {
	if err := prices.ValidatePrices(); err != nil {
		return nil, 0, err
	}
	if err := checkAligned(prices, signals); err != nil {
		return nil, 0, err
	}

	returns := make([]ReturnPoint, len(prices))
	equity := 1.0
	for i, p := range prices {
		rp := ReturnPoint{Date: p.Date}
		if i > 0 {
			prev := prices[i-1].Close
			rp.SimpleReturn = (p.Close - prev) / prev
			if signals[i-1].Defined {
				rp.Realized = signals[i-1].Position.Exposure() * rp.SimpleReturn
			}
		}
		equity *= 1 + rp.Realized
		rp.Equity = equity
		returns[i] = rp
	}

	return returns, equity - 1, nil
}

func checkAligned(prices core.PriceSeries, signals core.SignalSeries) error {
	if len(prices) != len(signals) {
		return core.WrapError(core.ErrAlignment,
			fmt.Errorf("%d prices, %d signals", len(prices), len(signals)))
	}
	for i := range prices {
		if !prices[i].Date.Equal(signals[i].Date) {
			return core.WrapError(core.ErrAlignment,
				fmt.Errorf("index %d: price date %s, signal date %s", i,
					prices[i].Date.Format(core.DateLayout), signals[i].Date.Format(core.DateLayout)))
		}
	}
	return nil
}
