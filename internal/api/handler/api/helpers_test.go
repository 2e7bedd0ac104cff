// internal/api/handler/api/helpers_test.go
package api

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/core"
)

// mockSource serves a fixed close sequence starting at the requested date
type mockSource struct {
	name   string
	closes []float64
	err    error
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	if m.err != nil {
		return nil, m.err
	}
	series := make(core.PriceSeries, len(m.closes))
	for i, c := range m.closes {
		series[i] = core.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return series, nil
}

func registryWith(sources ...collector.PriceSource) *collector.Registry {
	reg := collector.NewRegistry()
	for _, s := range sources {
		reg.Register(s)
	}
	return reg
}

// fakeRecorder counts metric calls
type fakeRecorder struct {
	mu        sync.Mutex
	backtests map[string]int
	archived  map[string]int
	enters    int
	exits     int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{backtests: map[string]int{}, archived: map[string]int{}}
}

func (f *fakeRecorder) RecordBacktest(status string, duration float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backtests[status]++
}

func (f *fakeRecorder) RecordTradeActions(enters, exits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enters += enters
	f.exits += exits
}

func (f *fakeRecorder) SetJobsActive(jobType string, count int) {}

func (f *fakeRecorder) RecordReportArchived(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived[status]++
}

func (f *fakeRecorder) archivedCount(status string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.archived[status]
}

// rising then falling closes; windows 2/3 produce one Enter and one Exit
var roundTripCloses = []float64{10, 9, 8, 9, 10, 11, 12, 11, 10, 9}
