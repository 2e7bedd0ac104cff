package collector

import (
	"context"
	"sort"
	"time"

	"github.com/newthinker/crossover/internal/core"
)

// PriceSource fetches daily closing prices for a symbol.
// Implementations return a series with strictly increasing dates covering
// [start, end); an empty series means the source had no data for the range.
type PriceSource interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error)
}

// NormalizeDate truncates a timestamp to its UTC calendar date.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SortAndDedupe orders a series by date and keeps the last point of any
// repeated date.
func SortAndDedupe(series core.PriceSeries) core.PriceSeries {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})

	out := series[:0]
	for _, p := range series {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
