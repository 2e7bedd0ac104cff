package core

import (
	"fmt"
	"time"
)

// PricePoint is a single daily close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ordered sequence of daily closes, strictly increasing by date
type PriceSeries []PricePoint

// Closes returns the closing prices in series order
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Validate checks that dates strictly increase and every close is positive.
func (s PriceSeries) Validate() error {
	if err := s.ValidateOrder(); err != nil {
		return err
	}
	return s.ValidatePrices()
}

// ValidateOrder checks that dates are strictly increasing.
func (s PriceSeries) ValidateOrder() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return WrapError(ErrInvalidSeries,
				fmt.Errorf("date %s at index %d does not follow %s",
					s[i].Date.Format(DateLayout), i, s[i-1].Date.Format(DateLayout)))
		}
	}
	return nil
}

// ValidatePrices checks that every close is positive.
func (s PriceSeries) ValidatePrices() error {
	for i, p := range s {
		if !(p.Close > 0) {
			return WrapError(ErrInvalidPrice,
				fmt.Errorf("close %v on %s (index %d)", p.Close, p.Date.Format(DateLayout), i))
		}
	}
	return nil
}

// DateLayout is the calendar date format used on every external interface
const DateLayout = "2006-01-02"

// Position is the desired holding state on a date
type Position int

const (
	Flat Position = iota
	Long
)

func (p Position) String() string {
	if p == Long {
		return "long"
	}
	return "flat"
}

// MarshalText encodes the position as its name.
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a position name.
func (p *Position) UnmarshalText(text []byte) error {
	switch string(text) {
	case "long":
		*p = Long
	case "flat":
		*p = Flat
	default:
		return fmt.Errorf("unknown position %q", text)
	}
	return nil
}

// Exposure is 1 for Long and 0 for Flat.
func (p Position) Exposure() float64 {
	if p == Long {
		return 1
	}
	return 0
}

// Signal is the strategy state on one date. Defined is false while either
// moving average lacks history; Position is Flat in that case.
type Signal struct {
	Date     time.Time `json:"date"`
	Position Position  `json:"position"`
	Defined  bool      `json:"defined"`
}

// SignalSeries is a date-ordered sequence of signals
type SignalSeries []Signal

// Transition is the change between two consecutive defined signals
type Transition int

const (
	TransitionNone Transition = iota
	TransitionEnter
	TransitionExit
)

func (t Transition) String() string {
	switch t {
	case TransitionEnter:
		return "enter"
	case TransitionExit:
		return "exit"
	default:
		return "none"
	}
}

// MarshalText encodes the transition as its name.
func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a transition name.
func (t *Transition) UnmarshalText(text []byte) error {
	switch string(text) {
	case "enter":
		*t = TransitionEnter
	case "exit":
		*t = TransitionExit
	case "none":
		*t = TransitionNone
	default:
		return fmt.Errorf("unknown transition %q", text)
	}
	return nil
}

// Action converts a transition into a trade action. ok is false for TransitionNone.
func (t Transition) Action() (action Action, ok bool) {
	switch t {
	case TransitionEnter:
		return ActionEnter, true
	case TransitionExit:
		return ActionExit, true
	default:
		return "", false
	}
}

// TransitionPoint is the transition observed on a date
type TransitionPoint struct {
	Date       time.Time  `json:"date"`
	Transition Transition `json:"transition"`
}

// TransitionSeries is a date-ordered sequence of transitions
type TransitionSeries []TransitionPoint

// Counts returns the number of Enter and Exit transitions.
func (s TransitionSeries) Counts() (enters, exits int) {
	for _, t := range s {
		switch t.Transition {
		case TransitionEnter:
			enters++
		case TransitionExit:
			exits++
		}
	}
	return enters, exits
}

// Action is a logged trade action
type Action string

const (
	ActionEnter Action = "enter"
	ActionExit  Action = "exit"
)
