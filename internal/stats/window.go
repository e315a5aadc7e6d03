package stats

import "math"

// Window is a fixed-capacity ring of the most recent observations with O(1) mean/std.
// The zero value is unusable; construct with NewWindow. Window values are copied by
// Clone so owners can keep immutable snapshots.
type Window struct {
	values []float64
	next   int
	full   bool
	sum    float64
	sumSq  float64
}

// NewWindow creates a window holding up to size observations (minimum 2).
func NewWindow(size int) Window {
	if size < 2 {
		size = 2
	}
	return Window{values: make([]float64, size)}
}

// Push records v, evicting the oldest value once full.
func (w *Window) Push(v float64) {
	if w.full {
		old := w.values[w.next]
		w.sum -= old
		w.sumSq -= old * old
	}
	w.values[w.next] = v
	w.sum += v
	w.sumSq += v * v
	w.next++
	if w.next == len(w.values) {
		w.next = 0
		w.full = true
	}
}

// Len returns the number of stored observations.
func (w Window) Len() int {
	if w.full {
		return len(w.values)
	}
	return w.next
}

// Cap returns the window size, zero for an unconstructed Window.
func (w Window) Cap() int { return len(w.values) }

// Mean of the stored observations.
func (w Window) Mean() float64 {
	n := w.Len()
	if n == 0 {
		return 0
	}
	return w.sum / float64(n)
}

// StdDev returns the sample standard deviation of the stored observations.
func (w Window) StdDev() float64 {
	n := w.Len()
	if n < 2 {
		return 0
	}
	mean := w.sum / float64(n)
	v := (w.sumSq - float64(n)*mean*mean) / float64(n-1)
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// Clone returns an independent copy.
func (w Window) Clone() Window {
	cp := w
	cp.values = append([]float64(nil), w.values...)
	return cp
}
