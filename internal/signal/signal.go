// Package signal standardizes payloads shared between data ingestion, strategies and execution.
package signal

import (
	"strings"
	"time"
)

// Tick models a validated close consumed by the engine.
type Tick struct {
	Symbol string
	Price  float64
	Ts     time.Time
}

// Valid reports whether the tick can be fed into a price buffer.
func (t Tick) Valid() bool {
	return strings.TrimSpace(t.Symbol) != "" && t.Price > 0
}

// Action is the trade decision carried by a Signal.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// ParseAction normalizes user supplied actions ("buy", "SELL", ...).
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToUpper(strings.TrimSpace(raw))) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	case Hold:
		return Hold, true
	}
	return "", false
}

// Signal expresses a trade decision produced by a strategy implementation.
// It is a plain value; strategies never mutate a Signal after returning it.
type Signal struct {
	Action     Action             `json:"action"`
	Confidence float64            `json:"confidence"`
	Strategy   string             `json:"strategy,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Stats      map[string]float64 `json:"stats,omitempty"`
}

// HoldSignal returns a zero-confidence HOLD with the given reason.
func HoldSignal(strategy, reason string) Signal {
	return Signal{Action: Hold, Confidence: 0, Strategy: strategy, Reason: reason}
}

// ClampConfidence bounds c into [0,1], mapping NaN to 0.
func ClampConfidence(c float64) float64 {
	if c != c || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
