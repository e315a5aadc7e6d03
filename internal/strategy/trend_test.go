package strategy

import (
	"testing"

	"statarb-go/internal/signal"
)

func TestTrendFollowerLongSignal(t *testing.T) {
	strat := NewTrendFollower(0.02, 10, 20)
	closes := append(flat(100, 20), 105)

	sig := strat.Evaluate(Input{Symbol: "ETHUSDT", Closes: closes})
	if sig.Action != signal.Buy {
		t.Fatalf("expected long signal, got %+v", sig)
	}
	if sig.Confidence <= 0 || sig.Confidence > 1 {
		t.Fatalf("confidence out of range: %.4f", sig.Confidence)
	}
	if sig.Stats["change"] != 0.05 {
		t.Fatalf("expected 5%% change, got %v", sig.Stats["change"])
	}
}

func TestTrendFollowerShortSignal(t *testing.T) {
	strat := NewTrendFollower(0.02, 10, 20)
	closes := append(flat(100, 20), 95)

	sig := strat.Evaluate(Input{Symbol: "SOLUSDT", Closes: closes})
	if sig.Action != signal.Sell {
		t.Fatalf("expected short signal, got %+v", sig)
	}
}

func TestTrendFollowerRespectsThreshold(t *testing.T) {
	strat := NewTrendFollower(0.02, 10, 20)
	closes := append(flat(100, 20), 101)

	if sig := strat.Evaluate(Input{Closes: closes}); sig.Action != signal.Hold || sig.Confidence != 0 {
		t.Fatalf("expected hold below threshold, got %+v", sig)
	}
	if sig := strat.Evaluate(Input{Closes: flat(100, 5)}); sig.Action != signal.Hold || sig.Stats["points"] != 5 {
		t.Fatalf("expected insufficient-data hold, got %+v", sig)
	}
}
