package backtest

import "github.com/newthinker/crossover/internal/core"

// BuildTrades groups consecutive Long days into holding periods. A position is
// taken at the close of the first Long day and released at the close of the
// next Flat day, matching how ComputeReturns realizes returns. A position
// still held at the end is marked to the last close. A run that is Long from
// the first defined date is a trade even though no Enter is logged for it.
func BuildTrades(prices core.PriceSeries, signals core.SignalSeries) ([]Trade, error) {
	if err := checkAligned(prices, signals); err != nil {
		return nil, err
	}

	var trades []Trade
	var openTrade *Trade

	for i, sig := range signals {
		if !sig.Defined {
			continue
		}
		switch sig.Position {
		case core.Long:
			// Only open a new trade if not already in a position
			if openTrade == nil {
				openTrade = &Trade{
					EntryDate:  sig.Date,
					EntryPrice: prices[i].Close,
				}
			}
		case core.Flat:
			if openTrade != nil {
				openTrade.ExitDate = sig.Date
				openTrade.ExitPrice = prices[i].Close
				openTrade.Return = (openTrade.ExitPrice - openTrade.EntryPrice) / openTrade.EntryPrice
				trades = append(trades, *openTrade)
				openTrade = nil
			}
		}
	}

	if openTrade != nil && len(prices) > 0 {
		last := prices[len(prices)-1]
		openTrade.ExitDate = last.Date
		openTrade.ExitPrice = last.Close
		openTrade.Return = (openTrade.ExitPrice - openTrade.EntryPrice) / openTrade.EntryPrice
		openTrade.Open = true
		trades = append(trades, *openTrade)
	}

	return trades, nil
}
