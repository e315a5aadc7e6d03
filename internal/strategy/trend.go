package strategy

import (
	"fmt"
	"math"

	"statarb-go/internal/signal"
)

// TrendFollower emits signals when the rate of change over a lookback window exceeds a threshold.
type TrendFollower struct {
	threshold float64
	lookback  int
	minPoints int
}

// NewTrendFollower builds a trend-following strategy using percent change over lookback closes.
func NewTrendFollower(threshold float64, lookback, minPoints int) *TrendFollower {
	if threshold <= 0 {
		threshold = 0.02
	}
	if lookback <= 0 {
		lookback = 10
	}
	if minPoints <= lookback {
		minPoints = lookback + 1
	}
	return &TrendFollower{threshold: threshold, lookback: lookback, minPoints: minPoints}
}

// Name returns the configured identifier for logging.
func (t *TrendFollower) Name() string { return "trend" }

// Evaluate compares the latest close with the close lookback periods earlier.
func (t *TrendFollower) Evaluate(in Input) signal.Signal {
	closes := in.Closes
	if len(closes) < t.minPoints {
		return holdInsufficient(t.Name(), len(closes), t.minPoints)
	}
	oldest := closes[len(closes)-1-t.lookback]
	latest := closes[len(closes)-1]
	if oldest <= 0 {
		return signal.HoldSignal(t.Name(), "non-positive reference close")
	}
	change := (latest - oldest) / oldest
	st := map[string]float64{"change": change, "lookback": float64(t.lookback)}
	reason := fmt.Sprintf("Δ=%.2f%% over %d closes", change*100, t.lookback)
	if math.Abs(change) < t.threshold {
		return signal.Signal{Action: signal.Hold, Strategy: t.Name(), Reason: reason, Stats: st}
	}
	action := signal.Buy
	if change < 0 {
		action = signal.Sell
	}
	return signal.Signal{
		Action:     action,
		Confidence: clamp(math.Abs(change)/(4*t.threshold), 0, 1),
		Strategy:   t.Name(),
		Reason:     reason,
		Stats:      st,
	}
}
