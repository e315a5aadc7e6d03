package strategy

import (
	"testing"

	"statarb-go/internal/signal"
)

func TestMomentumCrossover(t *testing.T) {
	strat := NewMomentum(5, 20, 0.005, 20)

	up := strat.Evaluate(Input{Closes: ramp(100, 1, 30)})
	if up.Action != signal.Buy || up.Confidence != 1 {
		t.Fatalf("expected confident buy on rising series, got %+v", up)
	}
	if up.Stats["fast_sma"] != 127 || up.Stats["slow_sma"] != 119.5 {
		t.Fatalf("unexpected moving averages %+v", up.Stats)
	}

	down := strat.Evaluate(Input{Closes: ramp(200, -1, 30)})
	if down.Action != signal.Sell {
		t.Fatalf("expected sell on falling series, got %+v", down)
	}

	still := strat.Evaluate(Input{Closes: flat(100, 30)})
	if still.Action != signal.Hold || still.Confidence != 0 {
		t.Fatalf("expected hold on flat series, got %+v", still)
	}
}

func TestMomentumNeedsSlowWindow(t *testing.T) {
	strat := NewMomentum(5, 20, 0.005, 0)
	sig := strat.Evaluate(Input{Closes: ramp(100, 1, 19)})
	if sig.Action != signal.Hold || sig.Confidence != 0 || sig.Reason == "" {
		t.Fatalf("expected insufficient-data hold, got %+v", sig)
	}
}
