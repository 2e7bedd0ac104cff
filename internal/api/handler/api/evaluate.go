// internal/api/handler/api/evaluate.go
package api

import (
	"net/http"
	"time"

	"github.com/newthinker/crossover/internal/api/response"
	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/core"
)

// PriceInput is one daily close in an evaluate request.
type PriceInput struct {
	Date  string  `json:"date" validate:"required,datetime=2006-01-02"`
	Close float64 `json:"close"`
}

// EvaluateRequest is the request body for an inline evaluation.
type EvaluateRequest struct {
	FastWindow int          `json:"fast_window" validate:"required"`
	SlowWindow int          `json:"slow_window" validate:"required"`
	Prices     []PriceInput `json:"prices" validate:"dive"`
}

// EvaluateHandler runs the crossover engine on prices supplied in the request.
type EvaluateHandler struct{}

// NewEvaluateHandler creates a new evaluate handler.
func NewEvaluateHandler() *EvaluateHandler {
	return &EvaluateHandler{}
}

// Evaluate returns the full result for the posted series.
func (h *EvaluateHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decode(w, r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	prices := make(core.PriceSeries, len(req.Prices))
	for i, p := range req.Prices {
		// Validated above, so the date parses
		date, _ := time.Parse(core.DateLayout, p.Date)
		prices[i] = core.PricePoint{Date: date, Close: p.Close}
	}

	result, err := backtest.Evaluate(prices, req.FastWindow, req.SlowWindow)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}
