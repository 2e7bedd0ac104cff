package backtest

import (
	"fmt"

	"github.com/newthinker/crossover/internal/core"
)

// BuildTradeLog lists every Enter and Exit with the close on its date.
// An Enter without a later Exit is kept.
func BuildTradeLog(prices core.PriceSeries, transitions core.TransitionSeries) ([]TradeLogEntry, error) {
	entries := make([]TradeLogEntry, 0)

	// Both inputs are date ordered, so walk them together
	j := 0
	for _, t := range transitions {
		for j < len(prices) && prices[j].Date.Before(t.Date) {
			j++
		}
		if j == len(prices) || !prices[j].Date.Equal(t.Date) {
			return nil, core.WrapError(core.ErrAlignment,
				fmt.Errorf("no close for transition on %s", t.Date.Format(core.DateLayout)))
		}

		action, ok := t.Transition.Action()
		if !ok {
			continue
		}
		entries = append(entries, TradeLogEntry{
			Date:   t.Date,
			Price:  prices[j].Close,
			Action: action,
		})
	}

	return entries, nil
}
