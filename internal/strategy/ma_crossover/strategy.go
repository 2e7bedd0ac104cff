package ma_crossover

import (
	"fmt"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
)

// MinWindow is the smallest moving average window accepted.
const MinWindow = 2

// MACrossover implements a moving average crossover strategy
type MACrossover struct {
	fastPeriod int
	slowPeriod int
}

// Analysis holds every intermediate series of one crossover run
type Analysis struct {
	Fast        indicator.Series
	Slow        indicator.Series
	Signals     core.SignalSeries
	Transitions core.TransitionSeries
}

// New creates a new MA Crossover strategy
func New(fastPeriod, slowPeriod int) *MACrossover {
	return &MACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d)", m.fastPeriod, m.slowPeriod)
}

// Validate checks the configured windows.
func (m *MACrossover) Validate() error {
	return ValidateWindows(m.fastPeriod, m.slowPeriod)
}

// ValidateWindows requires both windows to be at least MinWindow and fast < slow.
func ValidateWindows(fast, slow int) error {
	if fast < MinWindow || slow < MinWindow {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("windows must be at least %d, got fast=%d slow=%d", MinWindow, fast, slow))
	}
	if fast >= slow {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("fast window %d must be smaller than slow window %d", fast, slow))
	}
	return nil
}

// Analyze computes both moving averages, the signal and its transitions.
// An empty series yields empty series, not an error.
func (m *MACrossover) Analyze(prices core.PriceSeries) (*Analysis, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	fastMA, err := indicator.SMA(prices, m.fastPeriod)
	if err != nil {
		return nil, err
	}
	slowMA, err := indicator.SMA(prices, m.slowPeriod)
	if err != nil {
		return nil, err
	}

	signals, err := ComputeSignal(fastMA, slowMA)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Fast:        fastMA,
		Slow:        slowMA,
		Signals:     signals,
		Transitions: ComputeTransitions(signals),
	}, nil
}
