// Package exchange hosts tick sources that stream closes into the engine.
package exchange

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"statarb-go/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic random-walk ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live trades from Binance public websockets.
	ProviderBinance = "binance"
)

// ErrTooManyReconnects is returned once a streaming provider exhausts its reconnect budget.
var ErrTooManyReconnects = errors.New("too many reconnects")

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider      string
	symbols       []string
	log           zerolog.Logger
	interval      time.Duration
	url           string
	maxReconnects int
	reconnect     *rate.Limiter
	seed          int64
	mu            sync.RWMutex
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultInterval       = time.Second
	defaultBinanceURL     = "wss://stream.binance.com:9443/stream"
	defaultMaxReconnects  = 5
	defaultReconnectEvery = 2 * time.Second
)

// WithInterval overrides the stub tick cadence.
func WithInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithURL points the websocket provider at a different endpoint.
func WithURL(url string) Option {
	return func(f *Feed) {
		if url = strings.TrimSpace(url); url != "" {
			f.url = strings.TrimSuffix(url, "/")
		}
	}
}

// WithReconnects bounds reconnect attempts and paces them to one per every.
// A negative max disables reconnects.
func WithReconnects(max int, every time.Duration) Option {
	return func(f *Feed) {
		if max != 0 {
			f.maxReconnects = max
		}
		if every > 0 {
			f.reconnect = rate.NewLimiter(rate.Every(every), 1)
		}
	}
}

// WithSeed fixes the stub random walk.
func WithSeed(seed int64) Option {
	return func(f *Feed) { f.seed = seed }
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:      strings.ToLower(provider),
		log:           log.With().Str("component", "feed").Logger(),
		interval:      defaultInterval,
		url:           defaultBinanceURL,
		maxReconnects: defaultMaxReconnects,
		reconnect:     rate.NewLimiter(rate.Every(defaultReconnectEvery), 1),
		seed:          1,
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetSymbols replaces the tracked symbol list (deduplicated, sorted for determinism).
func (f *Feed) SetSymbols(symbols []string) {
	f.setSymbols(symbols)
}

func (f *Feed) setSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

// Symbols returns the tracked symbols.
func (f *Feed) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Run pushes ticks onto the provided channel until the context is canceled.
// Only valid ticks are emitted.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Tick) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func (f *Feed) emit(ctx context.Context, out chan<- signal.Tick, tick signal.Tick) error {
	if !tick.Valid() {
		f.log.Debug().Str("sym", tick.Symbol).Float64("px", tick.Price).Msg("dropping invalid tick")
		return nil
	}
	select {
	case out <- tick:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runStub walks each symbol independently from 100 with 1% log-normal steps.
func (f *Feed) runStub(ctx context.Context, out chan<- signal.Tick) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(f.seed))
	prices := make(map[string]float64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			for _, s := range f.Symbols() {
				px, ok := prices[s]
				if !ok {
					px = 100
				}
				px *= math.Exp(0.01 * rng.NormFloat64())
				prices[s] = px
				if err := f.emit(ctx, out, signal.Tick{Symbol: s, Price: px, Ts: ts}); err != nil {
					return err
				}
			}
		}
	}
}
