// Package risk converts signal confidence into order size and caps per-trade notional.
package risk

import "math"

// Limits caps exposure for manually submitted orders. A zero cap disables the check.
type Limits struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade" json:"max_notional_per_trade"`
}

// Allow reports whether an order of the given notional fits under the cap.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}

// Sizer turns a price and confidence into a whole-unit quantity.
type Sizer struct {
	MaxPositionPct float64 `yaml:"max_position_pct" json:"max_position_pct"`
}

// DefaultMaxPositionPct is the equity share committed at full confidence.
const DefaultMaxPositionPct = 0.1

// NewSizer builds a sizer; pct outside (0, 1] falls back to DefaultMaxPositionPct.
func NewSizer(pct float64) Sizer {
	if !(pct > 0 && pct <= 1) {
		pct = DefaultMaxPositionPct
	}
	return Sizer{MaxPositionPct: pct}
}

// Size returns floor(equity × MaxPositionPct × confidence / price).
func (s Sizer) Size(price, confidence, equity float64) float64 {
	return Size(price, confidence, equity, s.MaxPositionPct)
}

// Size is the stateless form of Sizer.Size. Confidence is clamped to [0, 1];
// any other out-of-range or non-finite input yields 0.
func Size(price, confidence, equity, maxPositionPct float64) float64 {
	if !(price > 0) || math.IsInf(price, 0) {
		return 0
	}
	if !(equity > 0) || math.IsInf(equity, 0) {
		return 0
	}
	if !(maxPositionPct > 0 && maxPositionPct <= 1) {
		return 0
	}
	if math.IsNaN(confidence) || confidence <= 0 {
		return 0
	}
	if confidence > 1 {
		confidence = 1
	}
	qty := math.Floor(equity * maxPositionPct * confidence / price)
	if qty < 1 {
		return 0
	}
	return qty
}
