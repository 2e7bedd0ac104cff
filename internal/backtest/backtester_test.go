package backtest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSource implements PriceSource for testing
type mockSource struct {
	data  core.PriceSeries
	err   error
	calls int
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

// mockRecorder captures recorded outcomes
type mockRecorder struct {
	statuses []string
	enters   int
	exits    int
}

func (m *mockRecorder) RecordBacktest(status string, duration float64) {
	m.statuses = append(m.statuses, status)
}

func (m *mockRecorder) RecordTradeActions(enters, exits int) {
	m.enters += enters
	m.exits += exits
}

func request(fast, slow int) Request {
	return Request{
		Symbol:     "AAPL",
		Start:      baseDate,
		End:        baseDate.AddDate(0, 1, 0),
		FastWindow: fast,
		SlowWindow: slow,
	}
}

func TestBacktester_Run(t *testing.T) {
	source := &mockSource{data: seriesOf(exampleCloses...)}
	recorder := &mockRecorder{}
	backtester := New(source, nil, recorder)

	result, err := backtester.Run(context.Background(), request(2, 4))
	require.NoError(t, err)

	assert.Equal(t, "ma_crossover", result.Strategy)
	assert.Equal(t, "AAPL", result.Symbol)
	assert.Equal(t, "mock", result.Source)
	assert.Equal(t, baseDate, result.StartDate)
	assert.False(t, result.Empty)
	assert.Equal(t, 1, result.Stats.EnterCount)
	assert.Equal(t, 1, result.Stats.ExitCount)

	assert.Equal(t, []string{StatusSuccess}, recorder.statuses)
	assert.Equal(t, 1, recorder.enters)
	assert.Equal(t, 1, recorder.exits)
}

func TestBacktester_Run_NoData(t *testing.T) {
	source := &mockSource{data: core.PriceSeries{}}
	recorder := &mockRecorder{}
	backtester := New(source, nil, recorder)

	result, err := backtester.Run(context.Background(), request(5, 15))
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Equal(t, []string{StatusEmpty}, recorder.statuses)
}

func TestBacktester_Run_SourceError(t *testing.T) {
	source := &mockSource{err: core.WrapError(core.ErrCollectorFailed, errors.New("boom"))}
	recorder := &mockRecorder{}
	backtester := New(source, nil, recorder)

	_, err := backtester.Run(context.Background(), request(5, 15))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCollectorFailed))
	assert.Equal(t, []string{StatusFailed}, recorder.statuses)
}

func TestBacktester_Run_InvalidWindowsSkipFetch(t *testing.T) {
	source := &mockSource{data: seriesOf(exampleCloses...)}
	backtester := New(source, nil, nil)

	_, err := backtester.Run(context.Background(), request(15, 5))
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))
	assert.Zero(t, source.calls)
}

func TestBacktester_Run_EndBeforeStart(t *testing.T) {
	backtester := New(&mockSource{}, nil, nil)
	req := request(5, 15)
	req.End = req.Start.AddDate(0, 0, -1)

	_, err := backtester.Run(context.Background(), req)
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))
}

func TestBacktester_Run_ContextCancellation(t *testing.T) {
	source := &mockSource{data: seriesOf(exampleCloses...)}
	backtester := New(source, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := backtester.Run(ctx, request(2, 4))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, source.calls)
}

func TestEvaluate_CrossDownThenUp(t *testing.T) {
	prices := seriesOf(exampleCloses...)

	result, err := Evaluate(prices, 2, 4)
	require.NoError(t, err)

	require.Len(t, result.FastSMA, len(prices))
	require.Len(t, result.SlowSMA, len(prices))
	require.Len(t, result.Returns, len(prices))

	require.Len(t, result.TradeLog, 2)
	assert.Equal(t, TradeLogEntry{Date: prices[4].Date, Price: 10, Action: core.ActionExit}, result.TradeLog[0])
	assert.Equal(t, TradeLogEntry{Date: prices[7].Date, Price: 11, Action: core.ActionEnter}, result.TradeLog[1])

	stats := result.Stats
	assert.Equal(t, 1, stats.EnterCount)
	assert.Equal(t, 1, stats.ExitCount)

	// Long on index 3 loses 11 -> 10, long from index 7 gains 11 -> 15
	assert.InDelta(t, 150.0/121.0-1, stats.CumulativeReturn, 1e-12)
	assert.InDelta(t, 4.0/11.0, stats.BuyAndHoldReturn, 1e-12)
	assert.InDelta(t, 1.0/11.0, stats.MaxDrawdown, 1e-12)
	assert.InDelta(t, 6.0/9.0, stats.ExposureRatio, 1e-12)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.True(t, result.Trades[1].Open)

	// Round trips compound to the same cumulative return
	product := 1.0
	for _, tr := range result.Trades {
		product *= 1 + tr.Return
	}
	assert.InDelta(t, stats.CumulativeReturn, product-1, 1e-12)
}

func TestEvaluate_FlatPrices(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100
	}

	for _, w := range [][2]int{{2, 3}, {2, 9}, {4, 5}} {
		result, err := Evaluate(seriesOf(closes...), w[0], w[1])
		require.NoError(t, err)

		for i := range closes {
			if v, err := result.SlowSMA[i].Value.Take(); err == nil {
				assert.Equal(t, 100.0, v)
			}
			assert.Equal(t, core.Flat, result.Signals[i].Position)
		}
		assert.Zero(t, result.Stats.EnterCount)
		assert.Zero(t, result.Stats.ExitCount)
		assert.Equal(t, 0.0, result.Stats.CumulativeReturn)
		assert.Empty(t, result.TradeLog)
	}
}

func TestEvaluate_DoublingPrices(t *testing.T) {
	// SMA2: -, 15, 30, 60; SMA3: -, -, 23.33, 46.67 -> Long from index 2
	result, err := Evaluate(seriesOf(10, 20, 40, 80), 2, 3)
	require.NoError(t, err)

	assert.True(t, result.Signals[2].Defined)
	assert.Equal(t, core.Long, result.Signals[2].Position)
	assert.Equal(t, 1.0, result.Stats.CumulativeReturn)
	assert.Zero(t, result.Stats.EnterCount, "first defined signal is not an Enter")
	assert.Empty(t, result.TradeLog)

	// The holding period still counts as a trade even though no Enter was logged
	require.Len(t, result.Trades, 1)
	assert.Equal(t, 1, result.Stats.TotalTrades)
	assert.Equal(t, result.Signals[2].Date, result.Trades[0].EntryDate)
	assert.True(t, result.Trades[0].Open)
	assert.Equal(t, 1.0, result.Trades[0].Return)
}

func TestEvaluate_LongFromFirstDefinedExitsFirst(t *testing.T) {
	// SMA2: -, 10.5, 11.5, 12.5, 12.5, 11.5, 10.5, 9.5
	// SMA3: -, -, 11, 12, 12.33, 12, 11, 10 -> Long on 2..4, Flat from 5
	prices := seriesOf(10, 11, 12, 13, 12, 11, 10, 9)

	result, err := Evaluate(prices, 2, 3)
	require.NoError(t, err)

	assert.Zero(t, result.Stats.EnterCount)
	assert.Equal(t, 1, result.Stats.ExitCount)
	assert.Equal(t, -1, result.Stats.EnterCount-result.Stats.ExitCount)
	require.Len(t, result.TradeLog, 1)
	assert.Equal(t, TradeLogEntry{Date: prices[5].Date, Price: 11, Action: core.ActionExit}, result.TradeLog[0])

	require.Len(t, result.Trades, 1)
	assert.Equal(t, prices[2].Date, result.Trades[0].EntryDate)
	assert.Equal(t, 12.0, result.Trades[0].EntryPrice)
	assert.Equal(t, 11.0, result.Trades[0].ExitPrice)
	assert.InDelta(t, 11.0/12.0-1, result.Stats.CumulativeReturn, 1e-12)
}

func TestEvaluate_InvalidParameters(t *testing.T) {
	_, err := Evaluate(seriesOf(exampleCloses...), 15, 5)
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))

	// Parameters are checked before the series
	_, err = Evaluate(seriesOf(1, 0, 3), 1, 5)
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))
}

func TestEvaluate_InvalidPrice(t *testing.T) {
	_, err := Evaluate(seriesOf(10, 11, 0, 12, 13), 2, 3)
	assert.True(t, errors.Is(err, core.ErrInvalidPrice))
}

func TestEvaluate_UnorderedDates(t *testing.T) {
	prices := seriesOf(10, 11, 12, 13)
	prices[2].Date = prices[1].Date

	_, err := Evaluate(prices, 2, 3)
	assert.True(t, errors.Is(err, core.ErrInvalidSeries))
}

func TestEvaluate_Empty(t *testing.T) {
	result, err := Evaluate(core.PriceSeries{}, 5, 15)
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Empty(t, result.TradeLog)
	assert.Zero(t, result.Stats.CumulativeReturn)
}

func TestEvaluate_ShorterThanSlowWindow(t *testing.T) {
	result, err := Evaluate(seriesOf(10, 11, 12), 2, 5)
	require.NoError(t, err)
	assert.False(t, result.Empty)
	assert.Zero(t, result.SlowSMA.Defined())
	assert.Empty(t, result.Transitions)
	assert.Equal(t, 0.0, result.Stats.CumulativeReturn)
}

func TestEvaluate_Idempotent(t *testing.T) {
	prices := seriesOf(10.3, 11.1, 12.7, 11.2, 10.9, 9.4, 10.2, 11.8, 12.5, 13.1)
	a, err := Evaluate(prices, 2, 4)
	require.NoError(t, err)
	b, err := Evaluate(prices, 2, 4)
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(a, b))
}

func TestEvaluate_DoesNotAliasInput(t *testing.T) {
	prices := seriesOf(exampleCloses...)
	result, err := Evaluate(prices, 2, 4)
	require.NoError(t, err)

	result.Prices[0].Close = 999
	assert.Equal(t, 10.0, prices[0].Close)
}
