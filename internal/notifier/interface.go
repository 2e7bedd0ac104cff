package notifier

import (
	"context"
	"time"

	"github.com/newthinker/crossover/internal/alert"
	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/core"
)

// Event outcome values
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Event describes a finished backtest job
type Event struct {
	JobID            string        `json:"job_id"`
	Status           string        `json:"status"`
	Symbol           string        `json:"symbol"`
	Source           string        `json:"source,omitempty"`
	FastWindow       int           `json:"fast_window"`
	SlowWindow       int           `json:"slow_window"`
	Empty            bool          `json:"empty"`
	EnterCount       int           `json:"enter_count"`
	ExitCount        int           `json:"exit_count"`
	CumulativeReturn float64       `json:"cumulative_return"`
	LastAction       core.Action   `json:"last_action,omitempty"`
	LastActionDate   time.Time     `json:"last_action_date,omitzero"`
	LastActionPrice  float64       `json:"last_action_price,omitempty"`
	Alerts           []alert.Alert `json:"alerts,omitempty"`
	Error            string        `json:"error,omitempty"`
	FinishedAt       time.Time     `json:"finished_at"`
}

// CompletedEvent summarizes a successful backtest and the alerts it fired.
func CompletedEvent(jobID string, r *backtest.Result, alerts []alert.Alert) Event {
	e := Event{
		JobID:            jobID,
		Status:           StatusComplete,
		Symbol:           r.Symbol,
		Source:           r.Source,
		FastWindow:       r.FastWindow,
		SlowWindow:       r.SlowWindow,
		Empty:            r.Empty,
		EnterCount:       r.Stats.EnterCount,
		ExitCount:        r.Stats.ExitCount,
		CumulativeReturn: r.Stats.CumulativeReturn,
		Alerts:           alerts,
		FinishedAt:       time.Now().UTC(),
	}
	if n := len(r.TradeLog); n > 0 {
		last := r.TradeLog[n-1]
		e.LastAction = last.Action
		e.LastActionDate = last.Date
		e.LastActionPrice = last.Price
	}
	return e
}

// FailedEvent reports a backtest that ended with err.
func FailedEvent(jobID string, req backtest.Request, err error) Event {
	return Event{
		JobID:      jobID,
		Status:     StatusFailed,
		Symbol:     req.Symbol,
		FastWindow: req.FastWindow,
		SlowWindow: req.SlowWindow,
		Error:      err.Error(),
		FinishedAt: time.Now().UTC(),
	}
}

// Notifier defines the interface for backtest notifications
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single event
	Send(ctx context.Context, event Event) error
}
