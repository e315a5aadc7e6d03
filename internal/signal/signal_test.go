package signal

import (
	"math"
	"testing"
)

func TestParseAction(t *testing.T) {
	cases := map[string]Action{
		"buy":   Buy,
		" SELL": Sell,
		"Hold":  Hold,
	}
	for raw, expected := range cases {
		got, ok := ParseAction(raw)
		if !ok || got != expected {
			t.Fatalf("ParseAction(%q) = %s,%v want %s", raw, got, ok, expected)
		}
	}
	if _, ok := ParseAction("short"); ok {
		t.Fatalf("expected unknown action to fail")
	}
}

func TestClampConfidence(t *testing.T) {
	if ClampConfidence(-0.2) != 0 || ClampConfidence(1.7) != 1 || ClampConfidence(math.NaN()) != 0 {
		t.Fatalf("confidence not clamped")
	}
	if ClampConfidence(0.4) != 0.4 {
		t.Fatalf("in-range confidence altered")
	}
}

func TestTickValid(t *testing.T) {
	if (Tick{Symbol: "BTCUSDT", Price: 0}).Valid() {
		t.Fatalf("zero price tick must be invalid")
	}
	if (Tick{Symbol: " ", Price: 1}).Valid() {
		t.Fatalf("blank symbol tick must be invalid")
	}
	if !(Tick{Symbol: "ETHUSDT", Price: 1}).Valid() {
		t.Fatalf("expected valid tick")
	}
}
