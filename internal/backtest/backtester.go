package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/strategy/ma_crossover"
	"go.uber.org/zap"
)

// PriceSource defines the interface for fetching historical daily closes
type PriceSource interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error)
}

// Recorder receives backtest outcomes, typically a metrics registry.
type Recorder interface {
	RecordBacktest(status string, duration float64)
	RecordTradeActions(enters, exits int)
}

// Backtest outcome labels passed to Recorder
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusFailed  = "failed"
)

// Request describes one backtest over fetched data
type Request struct {
	Symbol     string
	Start      time.Time
	End        time.Time
	FastWindow int
	SlowWindow int
}

// Backtester runs crossover backtests against historical data
type Backtester struct {
	source   PriceSource
	logger   *zap.Logger
	recorder Recorder
}

// New creates a new Backtester with the given price source.
// logger and recorder may be nil.
func New(source PriceSource, logger *zap.Logger, recorder Recorder) *Backtester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtester{
		source:   source,
		logger:   logger,
		recorder: recorder,
	}
}

// Run fetches the symbol's history and evaluates the crossover strategy on it.
// A source returning no data gives an Empty result, not an error.
func (b *Backtester) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := b.logger.With(
		zap.String("symbol", req.Symbol),
		zap.Int("fast", req.FastWindow),
		zap.Int("slow", req.SlowWindow),
	)

	result, err := b.run(ctx, req)
	duration := time.Since(start).Seconds()

	if err != nil {
		log.Warn("backtest failed", zap.Error(err), zap.Float64("duration_s", duration))
		b.record(StatusFailed, duration, nil)
		return nil, err
	}

	if result.Empty {
		log.Info("backtest has no data", zap.Float64("duration_s", duration))
		b.record(StatusEmpty, duration, result)
		return result, nil
	}

	log.Info("backtest complete",
		zap.Int("points", len(result.Prices)),
		zap.Int("enters", result.Stats.EnterCount),
		zap.Int("exits", result.Stats.ExitCount),
		zap.Float64("cumulative_return", result.Stats.CumulativeReturn),
		zap.Float64("duration_s", duration),
	)
	b.record(StatusSuccess, duration, result)
	return result, nil
}

func (b *Backtester) run(ctx context.Context, req Request) (*Result, error) {
	// Parameter errors surface before any fetch
	if err := ma_crossover.ValidateWindows(req.FastWindow, req.SlowWindow); err != nil {
		return nil, err
	}
	if req.End.Before(req.Start) {
		return nil, core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("end %s before start %s", req.End.Format(core.DateLayout), req.Start.Format(core.DateLayout)))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	prices, err := b.source.FetchHistory(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("fetching %s from %s: %w", req.Symbol, b.source.Name(), err)
	}

	result, err := Evaluate(prices, req.FastWindow, req.SlowWindow)
	if err != nil {
		return nil, err
	}

	result.Symbol = req.Symbol
	result.Source = b.source.Name()
	result.StartDate = req.Start
	result.EndDate = req.End
	return result, nil
}

func (b *Backtester) record(status string, duration float64, result *Result) {
	if b.recorder == nil {
		return
	}
	b.recorder.RecordBacktest(status, duration)
	if result != nil {
		b.recorder.RecordTradeActions(result.Stats.EnterCount, result.Stats.ExitCount)
	}
}

// Evaluate runs the full crossover pipeline on an in-memory series.
// Windows are checked first, then the series; an empty series yields a
// Result with Empty set. The caller's series is not modified.
func Evaluate(prices core.PriceSeries, fastWindow, slowWindow int) (*Result, error) {
	strat := ma_crossover.New(fastWindow, slowWindow)
	if err := strat.Validate(); err != nil {
		return nil, err
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		Strategy:   strat.Name(),
		FastWindow: fastWindow,
		SlowWindow: slowWindow,
		Prices:     append(core.PriceSeries{}, prices...),
	}
	if len(prices) == 0 {
		result.Empty = true
		return result, nil
	}

	analysis, err := strat.Analyze(result.Prices)
	if err != nil {
		return nil, err
	}

	returns, _, err := ComputeReturns(result.Prices, analysis.Signals)
	if err != nil {
		return nil, err
	}

	tradeLog, err := BuildTradeLog(result.Prices, analysis.Transitions)
	if err != nil {
		return nil, err
	}

	trades, err := BuildTrades(result.Prices, analysis.Signals)
	if err != nil {
		return nil, err
	}

	result.FastSMA = analysis.Fast
	result.SlowSMA = analysis.Slow
	result.Signals = analysis.Signals
	result.Transitions = analysis.Transitions
	result.Returns = returns
	result.TradeLog = tradeLog
	result.Trades = trades
	result.Stats = CalculateStats(result.Prices, analysis.Signals, analysis.Transitions, returns, trades)
	return result, nil
}
