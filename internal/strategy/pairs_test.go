package strategy

import (
	"math"
	"testing"

	"statarb-go/internal/signal"
)

func TestPairsDecide(t *testing.T) {
	p := NewPairs(PairsParams{EntryZ: 2, ExitZ: 0.5, UncointegratedCap: 0.3}, 20)
	cases := []struct {
		z          float64
		coint      bool
		action     signal.Action
		confidence float64
		exit       bool
	}{
		{2.5, true, signal.Sell, 0.625, false},
		{-3, true, signal.Buy, 0.75, false},
		{5, true, signal.Sell, 1, false},
		{3.9, false, signal.Sell, 0.3, false},
		{1, true, signal.Hold, 0, false},
		{-1.99, true, signal.Hold, 0, false},
		{0.25, true, signal.Hold, 0.5, true},
		{0, false, signal.Hold, 0.3, true},
		{math.NaN(), true, signal.Hold, 0, false},
	}
	for _, c := range cases {
		s := p.Decide(c.z, c.coint)
		if s.Action != c.action || math.Abs(s.Confidence-c.confidence) > 1e-12 {
			t.Fatalf("z=%v coint=%v: expected %s/%.3f, got %s/%.3f", c.z, c.coint, c.action, c.confidence, s.Action, s.Confidence)
		}
		if (s.Stats["exit"] == 1) != c.exit {
			t.Fatalf("z=%v: exit flag mismatch, stats=%v", c.z, s.Stats)
		}
		if s.Strategy != "pairs" {
			t.Fatalf("strategy name not set: %+v", s)
		}
	}
}

func TestPairsSpreadShock(t *testing.T) {
	a, b := cointegratedPair(21, 250)
	for _, useKalman := range []bool{false, true} {
		strat := NewPairs(PairsParams{UseKalman: useKalman}, 20)

		rich := append([]float64(nil), a...)
		rich[len(rich)-1] += 6
		res := strat.EvaluatePair(rich, b)
		if res.Johansen == nil || !res.Johansen.IsCointegrated {
			t.Fatalf("kalman=%v: expected cointegrated pair, got %+v (%s)", useKalman, res.Johansen, res.JohansenErr)
		}
		if math.Abs(res.Johansen.HedgeRatio-1.5) > 0.1 {
			t.Fatalf("kalman=%v: hedge ratio %.3f far from 1.5", useKalman, res.Johansen.HedgeRatio)
		}
		if res.Signal.Action != signal.Sell || res.ZScore <= 2 {
			t.Fatalf("kalman=%v: expected SELL on rich spread, got %+v z=%.2f", useKalman, res.Signal, res.ZScore)
		}
		if useKalman && (res.Kalman == nil || res.Kalman.Steps != len(a)) {
			t.Fatalf("expected kalman estimate over %d steps, got %+v", len(a), res.Kalman)
		}
		if !useKalman && res.Kalman != nil {
			t.Fatalf("kalman estimate reported without UseKalman")
		}

		cheap := append([]float64(nil), a...)
		cheap[len(cheap)-1] -= 6
		if res := strat.EvaluatePair(cheap, b); res.Signal.Action != signal.Buy {
			t.Fatalf("kalman=%v: expected BUY on cheap spread, got %+v", useKalman, res.Signal)
		}
	}
}

func TestPairsDegenerateAndShortInput(t *testing.T) {
	strat := NewPairs(PairsParams{}, 20)

	res := strat.EvaluatePair(flat(10, 60), ramp(10, 1, 60))
	if res.Signal.Action != signal.Hold || res.Signal.Stats["degenerate"] != 1 || res.JohansenErr == "" {
		t.Fatalf("expected degenerate hold, got %+v", res)
	}

	short := strat.Evaluate(Input{Closes: ramp(10, 1, 10), Hedge: ramp(5, 1, 10)})
	if short.Action != signal.Hold || short.Confidence != 0 {
		t.Fatalf("expected insufficient-data hold, got %+v", short)
	}

	noHedge := strat.Evaluate(Input{Closes: ramp(10, 1, 50)})
	if noHedge.Action != signal.Hold {
		t.Fatalf("expected hold without hedge leg, got %+v", noHedge)
	}
}
