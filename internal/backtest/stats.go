package backtest

import (
	"math"

	"github.com/newthinker/crossover/internal/core"
)

const tradingDaysPerYear = 252

// CalculateStats computes performance statistics for one evaluated series.
func CalculateStats(
	prices core.PriceSeries,
	signals core.SignalSeries,
	transitions core.TransitionSeries,
	returns []ReturnPoint,
	trades []Trade,
) Stats {
	var stats Stats
	stats.EnterCount, stats.ExitCount = transitions.Counts()

	if len(returns) > 0 {
		stats.CumulativeReturn = returns[len(returns)-1].Equity - 1
	}

	first := firstDefined(signals)
	if first >= 0 {
		stats.BuyAndHoldReturn = prices[len(prices)-1].Close/prices[first].Close - 1

		var long, defined int
		for _, s := range signals[first:] {
			if !s.Defined {
				continue
			}
			defined++
			if s.Position == core.Long {
				long++
			}
		}
		stats.ExposureRatio = float64(long) / float64(defined)
	}

	var daily []float64
	if first >= 0 {
		for _, r := range returns[first+1:] {
			daily = append(daily, r.Realized)
		}
	}
	stats.MaxDrawdown = calculateMaxDrawdown(returns)
	stats.SharpeRatio = calculateSharpeRatio(daily)

	stats.TotalTrades = len(trades)
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		if t.IsWin() {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
	}
	if closed := stats.WinningTrades + stats.LosingTrades; closed > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(closed) * 100
	}

	return stats
}

func firstDefined(signals core.SignalSeries) int {
	for i, s := range signals {
		if s.Defined {
			return i
		}
	}
	return -1
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the equity curve
func calculateMaxDrawdown(returns []ReturnPoint) float64 {
	var maxDD float64
	peak := 1.0

	for _, r := range returns {
		if r.Equity > peak {
			peak = r.Equity
		}
		if dd := (peak - r.Equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return
// Assumes risk-free rate of 0 for simplicity
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	// Calculate mean return
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	// Calculate standard deviation
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	annualizedReturn := mean * tradingDaysPerYear
	annualizedStdDev := stdDev * math.Sqrt(tradingDaysPerYear)

	return annualizedReturn / annualizedStdDev
}
