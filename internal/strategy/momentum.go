// Package strategy turns close histories and pair spreads into trade signals.
package strategy

import (
	"fmt"
	"math"

	"statarb-go/internal/signal"
	"statarb-go/internal/stats"
)

// Momentum compares a fast and a slow simple moving average and trades the
// crossover once the relative gap clears a threshold.
type Momentum struct {
	fast      int
	slow      int
	threshold float64
	minPoints int
}

// NewMomentum builds a crossover strategy; non-positive arguments fall back to 5/20/0.5%.
func NewMomentum(fast, slow int, threshold float64, minPoints int) *Momentum {
	if fast <= 0 {
		fast = 5
	}
	if slow <= fast {
		slow = fast * 4
	}
	if threshold <= 0 {
		threshold = 0.005
	}
	if minPoints < slow {
		minPoints = slow
	}
	return &Momentum{fast: fast, slow: slow, threshold: threshold, minPoints: minPoints}
}

// Name returns the identifier for the strategy implementation.
func (m *Momentum) Name() string { return "momentum" }

// Evaluate scores the crossover gap (fast-slow)/slow.
func (m *Momentum) Evaluate(in Input) signal.Signal {
	if len(in.Closes) < m.minPoints {
		return holdInsufficient(m.Name(), len(in.Closes), m.minPoints)
	}
	fast := stats.SMA(in.Closes, m.fast)
	slow := stats.SMA(in.Closes, m.slow)
	gap := 0.0
	if slow > 0 {
		gap = (fast - slow) / slow
	}
	st := map[string]float64{"fast_sma": fast, "slow_sma": slow, "gap": gap}
	reason := fmt.Sprintf("sma%d=%.4f sma%d=%.4f gap=%.2f%%", m.fast, fast, m.slow, slow, gap*100)

	if math.Abs(gap) < m.threshold {
		return signal.Signal{Action: signal.Hold, Strategy: m.Name(), Reason: reason, Stats: st}
	}
	action := signal.Buy
	if gap < 0 {
		action = signal.Sell
	}
	return signal.Signal{
		Action:     action,
		Confidence: clamp(math.Abs(gap)/(4*m.threshold), 0, 1),
		Strategy:   m.Name(),
		Reason:     reason,
		Stats:      st,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
