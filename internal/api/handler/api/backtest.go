// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/crossover/internal/alert"
	"github.com/newthinker/crossover/internal/api/job"
	"github.com/newthinker/crossover/internal/api/response"
	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/notifier"
	"github.com/newthinker/crossover/internal/storage/report"
	"github.com/newthinker/crossover/internal/strategy/ma_crossover"
	"go.uber.org/zap"
)

const (
	jobType                = "backtest"
	defaultBacktestTimeout = 2 * time.Minute
	notifyTimeout          = 30 * time.Second
)

// BacktestRequest is the request body for starting a backtest.
type BacktestRequest struct {
	Symbol     string `json:"symbol" validate:"required,max=32"`
	Source     string `json:"source,omitempty"`
	Start      string `json:"start" validate:"required,datetime=2006-01-02"`
	End        string `json:"end" validate:"required,datetime=2006-01-02"`
	FastWindow int    `json:"fast_window,omitempty" validate:"omitempty,gte=2"`
	SlowWindow int    `json:"slow_window,omitempty" validate:"omitempty,gte=2"`
}

// Defaults fill fields a request leaves empty.
type Defaults struct {
	Source     string
	FastWindow int
	SlowWindow int
}

// Recorder receives job and archive metrics in addition to backtest outcomes.
type Recorder interface {
	backtest.Recorder
	SetJobsActive(jobType string, count int)
	RecordReportArchived(status string)
}

// BacktestOptions holds optional collaborators of the backtest handler.
type BacktestOptions struct {
	Defaults  Defaults
	Reports   *report.Store      // nil disables archiving
	Notifiers *notifier.Registry // nil disables notifications
	Alerts    []alert.Rule       // checked against every completed result
	Recorder  Recorder           // may be nil
	Logger    *zap.Logger        // may be nil
	Timeout   time.Duration
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore *job.Store
	sources  *collector.Registry
	opts     BacktestOptions
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(jobStore *job.Store, sources *collector.Registry, opts BacktestOptions) *BacktestHandler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultBacktestTimeout
	}
	return &BacktestHandler{
		jobStore: jobStore,
		sources:  sources,
		opts:     opts,
	}
}

// Create validates the request and starts a backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := decode(w, r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	btReq, source, err := h.resolve(req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	j := h.jobStore.Create(jobType)

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	h.setActive()
	go h.runBacktest(jobID, source, btReq)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// resolve applies defaults and checks everything that can be checked
// before a job is created.
func (h *BacktestHandler) resolve(req BacktestRequest) (backtest.Request, collector.PriceSource, error) {
	d := h.opts.Defaults
	if req.Source == "" {
		req.Source = d.Source
	}
	if req.FastWindow == 0 {
		req.FastWindow = d.FastWindow
	}
	if req.SlowWindow == 0 {
		req.SlowWindow = d.SlowWindow
	}

	// Validated above, so these parse
	start, _ := time.Parse(core.DateLayout, req.Start)
	end, _ := time.Parse(core.DateLayout, req.End)
	if end.Before(start) {
		return backtest.Request{}, nil, core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("end %s before start %s", req.End, req.Start))
	}
	if err := ma_crossover.ValidateWindows(req.FastWindow, req.SlowWindow); err != nil {
		return backtest.Request{}, nil, err
	}

	source, ok := h.sources.Get(req.Source)
	if !ok {
		return backtest.Request{}, nil, core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("unknown source %q", req.Source))
	}

	return backtest.Request{
		Symbol:     req.Symbol,
		Start:      start,
		End:        end,
		FastWindow: req.FastWindow,
		SlowWindow: req.SlowWindow,
	}, source, nil
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(jobID string, source collector.PriceSource, req backtest.Request) {
	defer h.setActive()
	log := h.opts.Logger.With(zap.String("job_id", jobID))

	// Mark as running
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.Timeout)
	defer cancel()

	var recorder backtest.Recorder
	if h.opts.Recorder != nil {
		recorder = h.opts.Recorder
	}
	result, err := backtest.New(source, log, recorder).Run(ctx, req)
	if err != nil {
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		h.notify(log, notifier.FailedEvent(jobID, req, err))
		return
	}
	result.ID = jobID

	if h.opts.Reports != nil {
		status := "success"
		if err := h.opts.Reports.Save(ctx, jobID, result); err != nil {
			log.Warn("archiving report failed", zap.Error(err))
			status = "failed"
		}
		if h.opts.Recorder != nil {
			h.opts.Recorder.RecordReportArchived(status)
		}
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = result
	})
	fired := alert.Check(h.opts.Alerts, result)
	for _, a := range fired {
		log.Warn("backtest alert", zap.String("rule", a.Rule), zap.Float64("value", a.Value))
	}
	h.notify(log, notifier.CompletedEvent(jobID, result, fired))
}

// notify fans the event out to every notifier; failures are only logged.
func (h *BacktestHandler) notify(log *zap.Logger, event notifier.Event) {
	if h.opts.Notifiers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	for name, err := range h.opts.Notifiers.NotifyAll(ctx, event) {
		log.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
}

func (h *BacktestHandler) setActive() {
	if h.opts.Recorder != nil {
		h.opts.Recorder.SetJobsActive(jobType, h.jobStore.Active(jobType))
	}
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	j, err := h.jobStore.Get(jobID)
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = response.Detail(j.Error)
	}

	response.JSON(w, http.StatusOK, resp)
}

// asCoreError keeps a coded error as is and marks everything else as a
// collector failure, the only uncoded source of errors in a run.
func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.WrapError(core.ErrCollectorTimeout, err)
	}
	return core.WrapError(core.ErrCollectorFailed, err)
}
