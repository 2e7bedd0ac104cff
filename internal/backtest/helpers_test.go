package backtest

import (
	"time"

	"github.com/newthinker/crossover/internal/core"
)

var baseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seriesOf(closes ...float64) core.PriceSeries {
	s := make(core.PriceSeries, len(closes))
	for i, c := range closes {
		s[i] = core.PricePoint{Date: baseDate.AddDate(0, 0, i), Close: c}
	}
	return s
}

// signalsOf builds signals from a compact form: 'L' long, 'F' flat, '.' undefined.
func signalsOf(pattern string) core.SignalSeries {
	s := make(core.SignalSeries, len(pattern))
	for i, c := range pattern {
		s[i] = core.Signal{Date: baseDate.AddDate(0, 0, i)}
		switch c {
		case 'L':
			s[i].Defined = true
			s[i].Position = core.Long
		case 'F':
			s[i].Defined = true
		}
	}
	return s
}

// exampleCloses falls then recovers; with windows 2/4 the first defined
// signal is Long, exits on index 4 and re-enters on index 7.
var exampleCloses = []float64{10, 11, 12, 11, 10, 9, 10, 11, 12, 13, 14, 15}
