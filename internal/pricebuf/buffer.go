// Package pricebuf keeps a bounded close history per symbol for one trading session.
package pricebuf

import (
	"sort"
	"sync"
)

// DefaultCapacity is the number of closes retained per symbol.
const DefaultCapacity = 200

// Buffer stores per-symbol closes in insertion order. Symbols are created lazily on first push.
type Buffer struct {
	capacity int
	mu       sync.RWMutex
	series   map[string][]float64
}

// New creates a buffer retaining capacity closes per symbol (DefaultCapacity when <= 0).
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity, series: make(map[string][]float64)}
}

// Capacity returns the per-symbol bound.
func (b *Buffer) Capacity() int { return b.capacity }

// Push appends a close, dropping the oldest when the series exceeds capacity.
func (b *Buffer) Push(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := append(b.series[symbol], price)
	if len(s) > b.capacity {
		// shift into a fresh backing array so the slice does not grow forever
		trimmed := make([]float64, b.capacity, b.capacity+1)
		copy(trimmed, s[len(s)-b.capacity:])
		s = trimmed
	}
	b.series[symbol] = s
}

// PushAll appends closes in order.
func (b *Buffer) PushAll(symbol string, closes []float64) {
	for _, c := range closes {
		b.Push(symbol, c)
	}
}

// Replace swaps the series of symbol for the last Capacity values of closes.
// An empty closes removes the symbol.
func (b *Buffer) Replace(symbol string, closes []float64) {
	if len(closes) > b.capacity {
		closes = closes[len(closes)-b.capacity:]
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(closes) == 0 {
		delete(b.series, symbol)
		return
	}
	s := make([]float64, len(closes), b.capacity)
	copy(s, closes)
	b.series[symbol] = s
}

// Closes returns a copy of the series, empty for unknown symbols.
func (b *Buffer) Closes(symbol string) []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.series[symbol]
	out := make([]float64, len(s))
	copy(out, s)
	return out
}

// Last returns the most recent close.
func (b *Buffer) Last(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.series[symbol]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// Len returns the number of closes held for symbol.
func (b *Buffer) Len(symbol string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.series[symbol])
}

// Symbols lists known symbols in sorted order.
func (b *Buffer) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.series))
	for sym := range b.series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Universe snapshots every series with at least minLen closes.
func (b *Buffer) Universe(minLen int) map[string][]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string][]float64, len(b.series))
	for sym, s := range b.series {
		if len(s) < minLen {
			continue
		}
		cp := make([]float64, len(s))
		copy(cp, s)
		out[sym] = cp
	}
	return out
}

// Marks returns the last close of every symbol, suitable as a ledger price lookup.
func (b *Buffer) Marks() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.series))
	for sym, s := range b.series {
		if len(s) > 0 {
			out[sym] = s[len(s)-1]
		}
	}
	return out
}
