package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	tradeActions     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	jobsActive       *prometheus.GaugeVec
	reportsArchived  *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossover_backtests_total",
			Help: "Total number of backtests",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crossover_backtest_duration_seconds",
			Help:    "Backtest duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)
	r.tradeActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossover_trade_actions_total",
			Help: "Total number of Enter and Exit actions produced by backtests",
		},
		[]string{"action"},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossover_price_cache_lookups_total",
			Help: "Price cache lookups by source and result",
		},
		[]string{"source", "result"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crossover_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)
	r.reportsArchived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossover_reports_archived_total",
			Help: "Total number of backtest reports written to the archive",
		},
		[]string{"status"},
	)

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradeActions)
	reg.MustRegister(r.cacheLookups)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.reportsArchived)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordTradeActions adds a backtest's Enter and Exit counts.
func (r *Registry) RecordTradeActions(enters, exits int) {
	r.tradeActions.WithLabelValues("enter").Add(float64(enters))
	r.tradeActions.WithLabelValues("exit").Add(float64(exits))
}

// RecordCacheHit records a price cache hit.
func (r *Registry) RecordCacheHit(source string) {
	r.cacheLookups.WithLabelValues(source, "hit").Inc()
}

// RecordCacheMiss records a price cache miss.
func (r *Registry) RecordCacheMiss(source string) {
	r.cacheLookups.WithLabelValues(source, "miss").Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

// RecordReportArchived records a report archive attempt.
func (r *Registry) RecordReportArchived(status string) {
	r.reportsArchived.WithLabelValues(status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
