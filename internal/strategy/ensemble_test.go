package strategy

import (
	"math"
	"testing"

	"statarb-go/internal/signal"
)

func TestEnsembleMajority(t *testing.T) {
	strat := NewEnsemble(DefaultParams())
	// momentum and trend vote BUY, RSI=100 votes SELL
	sig := strat.Evaluate(Input{Closes: ramp(100, 1, 30)})
	if sig.Action != signal.Buy {
		t.Fatalf("expected majority buy, got %+v", sig)
	}
	if math.Abs(sig.Confidence-2.0/3.0) > 1e-9 {
		t.Fatalf("expected confidence 2/3, got %.6f", sig.Confidence)
	}
	if sig.Stats["buy_weight"] != 2 || sig.Stats["sell_weight"] != 1 {
		t.Fatalf("unexpected tally %+v", sig.Stats)
	}
}

func TestEnsembleTieHolds(t *testing.T) {
	p := DefaultParams()
	p.EnsembleWeights = Weights{Momentum: 1, MeanReversion: 1}
	strat := NewEnsemble(p)

	sig := strat.Evaluate(Input{Closes: ramp(100, 1, 30)})
	if sig.Action != signal.Hold || sig.Confidence != 0 {
		t.Fatalf("expected tie to hold, got %+v", sig)
	}
}

func TestEnsembleFlatSeries(t *testing.T) {
	sig := NewEnsemble(DefaultParams()).Evaluate(Input{Closes: flat(100, 40)})
	if sig.Action != signal.Hold || sig.Confidence != 0 {
		t.Fatalf("expected hold on flat series, got %+v", sig)
	}
}
