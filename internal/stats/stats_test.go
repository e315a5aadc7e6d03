package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCorrelation(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		want float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
		{"perfect negative", []float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, -1},
		{"constant", []float64{1, 1, 1}, []float64{1, 2, 3}, 0},
		{"mismatched", []float64{1, 2}, []float64{1}, 0},
	}
	for _, tt := range tests {
		if got := Correlation(tt.x, tt.y); !almostEqual(got, tt.want, 1e-12) {
			t.Fatalf("%s: Correlation = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLinearRegression(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{12, 13.5, 15, 16.5, 18}
	slope, intercept := LinearRegression(x, y)
	if !almostEqual(slope, 1.5, 1e-12) || !almostEqual(intercept, 10.5, 1e-12) {
		t.Fatalf("got slope %v intercept %v", slope, intercept)
	}
}

func TestReturns(t *testing.T) {
	r := Returns([]float64{100, 110, 99})
	if len(r) != 2 || !almostEqual(r[0], 0.1, 1e-12) || !almostEqual(r[1], -0.1, 1e-12) {
		t.Fatalf("unexpected returns %v", r)
	}
	lr := LogReturns([]float64{100, 100 * math.E})
	if len(lr) != 1 || !almostEqual(lr[0], 1, 1e-12) {
		t.Fatalf("unexpected log returns %v", lr)
	}
	if Returns([]float64{1}) != nil {
		t.Fatalf("single close should have no returns")
	}
}

func TestAlignTail(t *testing.T) {
	a, b := AlignTail([]float64{1, 2, 3, 4}, []float64{9, 8})
	if len(a) != 2 || a[0] != 3 || b[0] != 9 {
		t.Fatalf("unexpected alignment %v %v", a, b)
	}
}

func TestWindowMatchesBatch(t *testing.T) {
	w := NewWindow(4)
	data := []float64{3, -1, 4, 1, 5, 9, 2}
	for _, v := range data {
		w.Push(v)
	}
	recent := data[len(data)-4:]
	if w.Len() != 4 {
		t.Fatalf("Len = %d, want 4", w.Len())
	}
	if !almostEqual(w.Mean(), Mean(recent), 1e-12) {
		t.Fatalf("Mean = %v, want %v", w.Mean(), Mean(recent))
	}
	if !almostEqual(w.StdDev(), SampleStdDev(recent), 1e-9) {
		t.Fatalf("StdDev = %v, want %v", w.StdDev(), SampleStdDev(recent))
	}

	clone := w.Clone()
	clone.Push(100)
	if almostEqual(clone.Mean(), w.Mean(), 1e-12) {
		t.Fatalf("clone must not share storage")
	}
}
