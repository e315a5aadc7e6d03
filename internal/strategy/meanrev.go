package strategy

import (
	"fmt"

	"statarb-go/internal/signal"
)

// MeanReversion buys oversold and sells overbought closes using the relative strength index.
type MeanReversion struct {
	period     int
	oversold   float64
	overbought float64
	minPoints  int
}

// NewMeanReversion builds an RSI strategy; invalid bands fall back to 30/70.
func NewMeanReversion(period int, oversold, overbought float64, minPoints int) *MeanReversion {
	if period <= 1 {
		period = 14
	}
	if oversold <= 0 || overbought >= 100 || oversold >= overbought {
		oversold, overbought = 30, 70
	}
	if minPoints <= period {
		minPoints = period + 1
	}
	return &MeanReversion{period: period, oversold: oversold, overbought: overbought, minPoints: minPoints}
}

// Name returns the identifier for the strategy implementation.
func (m *MeanReversion) Name() string { return "meanrev" }

// Evaluate maps RSI below the oversold band to BUY and above the overbought band to SELL.
func (m *MeanReversion) Evaluate(in Input) signal.Signal {
	if len(in.Closes) < m.minPoints {
		return holdInsufficient(m.Name(), len(in.Closes), m.minPoints)
	}
	rsi := RSI(in.Closes, m.period)
	st := map[string]float64{"rsi": rsi}
	reason := fmt.Sprintf("rsi%d=%.1f", m.period, rsi)
	switch {
	case rsi < m.oversold:
		return signal.Signal{
			Action:     signal.Buy,
			Confidence: clamp((m.oversold-rsi)/m.oversold, 0, 1),
			Strategy:   m.Name(),
			Reason:     reason,
			Stats:      st,
		}
	case rsi > m.overbought:
		return signal.Signal{
			Action:     signal.Sell,
			Confidence: clamp((rsi-m.overbought)/(100-m.overbought), 0, 1),
			Strategy:   m.Name(),
			Reason:     reason,
			Stats:      st,
		}
	}
	return signal.Signal{Action: signal.Hold, Strategy: m.Name(), Reason: reason, Stats: st}
}

// RSI computes the simple-average relative strength index over the last
// period price changes. A series with no movement scores 50.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < 2 {
		return 50
	}
	if period > len(closes)-1 {
		period = len(closes) - 1
	}
	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	switch {
	case gain == 0 && loss == 0:
		return 50
	case loss == 0:
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}
