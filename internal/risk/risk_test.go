package risk

import (
	"math"
	"testing"
)

func TestAllow(t *testing.T) {
	l := Limits{MaxNotionalPerTrade: 100}
	if !l.Allow(50) {
		t.Fatalf("expected allow")
	}
	if l.Allow(150) {
		t.Fatalf("expected block")
	}
	if !(Limits{}).Allow(1e9) {
		t.Fatalf("zero cap must not block")
	}
}

func TestSize(t *testing.T) {
	cases := []struct {
		name                     string
		price, conf, equity, pct float64
		want                     float64
	}{
		{"basic", 100, 1, 10000, 0.1, 10},
		{"half confidence", 100, 0.5, 10000, 0.1, 5},
		{"floors", 30, 1, 10000, 0.1, 33},
		{"below one unit", 2000, 1, 10000, 0.1, 0},
		{"confidence clamped", 100, 3, 10000, 0.1, 10},
		{"zero confidence", 100, 0, 10000, 0.1, 0},
		{"nan confidence", 100, math.NaN(), 10000, 0.1, 0},
		{"zero price", 0, 1, 10000, 0.1, 0},
		{"negative equity", 100, 1, -5, 0.1, 0},
		{"pct above one", 100, 1, 10000, 1.5, 0},
	}
	for _, c := range cases {
		if got := Size(c.price, c.conf, c.equity, c.pct); got != c.want {
			t.Fatalf("%s: expected %v, got %v", c.name, c.want, got)
		}
	}
}

func TestSizeMonotone(t *testing.T) {
	s := NewSizer(0.25)
	prev := -1.0
	for conf := 0.0; conf <= 1.0; conf += 0.05 {
		q := s.Size(37, conf, 50000)
		if q < prev || q < 0 {
			t.Fatalf("size not monotone in confidence at %.2f: %v < %v", conf, q, prev)
		}
		prev = q
	}
	prev = math.Inf(1)
	for price := 1.0; price < 5000; price *= 1.7 {
		q := s.Size(price, 0.8, 50000)
		if q > prev || q < 0 {
			t.Fatalf("size not monotone in price at %.2f: %v > %v", price, q, prev)
		}
		prev = q
	}
	if NewSizer(0).MaxPositionPct != DefaultMaxPositionPct {
		t.Fatalf("expected default pct")
	}
}
