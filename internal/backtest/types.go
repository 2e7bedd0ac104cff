package backtest

import (
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
)

// Result holds the complete backtest output
type Result struct {
	ID          string                `json:"id,omitempty"`
	Strategy    string                `json:"strategy"`
	Symbol      string                `json:"symbol,omitempty"`
	Source      string                `json:"source,omitempty"`
	StartDate   time.Time             `json:"start_date,omitzero"`
	EndDate     time.Time             `json:"end_date,omitzero"`
	FastWindow  int                   `json:"fast_window"`
	SlowWindow  int                   `json:"slow_window"`
	Empty       bool                  `json:"empty"` // input series had no points
	Prices      core.PriceSeries      `json:"prices"`
	FastSMA     indicator.Series      `json:"fast_sma"`
	SlowSMA     indicator.Series      `json:"slow_sma"`
	Signals     core.SignalSeries     `json:"signals"`
	Transitions core.TransitionSeries `json:"transitions"`
	Returns     []ReturnPoint         `json:"returns"`
	TradeLog    []TradeLogEntry       `json:"trade_log"`
	Trades      []Trade               `json:"trades"`
	Stats       Stats                 `json:"stats"`
}

// ReturnPoint is the strategy return realized on one date
type ReturnPoint struct {
	Date         time.Time `json:"date"`
	SimpleReturn float64   `json:"simple_return"` // close-to-close change
	Realized     float64   `json:"realized"`      // prior day's exposure times SimpleReturn
	Equity       float64   `json:"equity"`        // running product of (1 + Realized)
}

// TradeLogEntry is one logged Enter or Exit
type TradeLogEntry struct {
	Date   time.Time   `json:"date"`
	Price  float64     `json:"price"`
	Action core.Action `json:"action"`
}

// Trade represents a Long holding period from entry to exit
type Trade struct {
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitDate   time.Time `json:"exit_date"`
	ExitPrice  float64   `json:"exit_price"`
	Return     float64   `json:"return"`
	Open       bool      `json:"open"` // still held on the last date, marked to the last close
}

// Stats holds performance statistics
type Stats struct {
	EnterCount       int     `json:"enter_count"`
	ExitCount        int     `json:"exit_count"`
	CumulativeReturn float64 `json:"cumulative_return"`   // compounded strategy return, fraction
	BuyAndHoldReturn float64 `json:"buy_and_hold_return"` // over the defined signal range, fraction
	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	LosingTrades     int     `json:"losing_trades"`
	WinRate          float64 `json:"win_rate"`       // Percentage of profitable closed trades
	MaxDrawdown      float64 `json:"max_drawdown"`   // Largest peak-to-trough equity decline, fraction
	SharpeRatio      float64 `json:"sharpe_ratio"`   // Risk-adjusted return (annualized)
	ExposureRatio    float64 `json:"exposure_ratio"` // Share of defined days held Long
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Return > 0
}

// IsClosed returns true if the trade has an exit
func (t Trade) IsClosed() bool {
	return !t.Open
}
