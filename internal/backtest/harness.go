// Package backtest replays historical closes through a strategy, the position
// sizer and a private paper ledger, and reports performance.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"statarb-go/internal/cointegration"
	"statarb-go/internal/kalman"
	"statarb-go/internal/metrics"
	"statarb-go/internal/paper"
	"statarb-go/internal/pricebuf"
	"statarb-go/internal/risk"
	"statarb-go/internal/signal"
	"statarb-go/internal/stats"
	"statarb-go/internal/strategy"
)

var (
	// ErrAlreadyRun is returned when a harness is run a second time.
	ErrAlreadyRun = errors.New("backtest already run")
	// ErrEmptySeries is returned when there is nothing to replay.
	ErrEmptySeries = errors.New("empty price series")
	// ErrNotPairStrategy is returned by RunPair when the harness strategy cannot trade spreads.
	ErrNotPairStrategy = errors.New("pair replay requires the pairs strategy")
)

// State is the harness lifecycle: Idle → Running → Done.
type State int32

const (
	Idle State = iota
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Config tunes a replay.
type Config struct {
	InitialCash    float64       `yaml:"initial_cash" json:"initial_cash"`
	Warmup         int           `yaml:"warmup" json:"warmup"`
	MaxPositionPct float64       `yaml:"max_position_pct" json:"max_position_pct"`
	RefitEvery     int           `yaml:"refit_every" json:"refit_every"`
	BufferCapacity int           `yaml:"buffer_capacity" json:"buffer_capacity"`
	Start          time.Time     `yaml:"start" json:"start"`
	Interval       time.Duration `yaml:"interval" json:"interval"`
}

// DefaultConfig returns a 10k bankroll, 20-close warmup and one-minute bars.
func DefaultConfig() Config {
	return Config{
		InitialCash:    10000,
		Warmup:         20,
		MaxPositionPct: risk.DefaultMaxPositionPct,
		RefitEvery:     20,
		BufferCapacity: pricebuf.DefaultCapacity,
		Start:          time.Unix(0, 0).UTC(),
		Interval:       time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if !(c.InitialCash > 0) {
		c.InitialCash = def.InitialCash
	}
	if c.Warmup <= 0 {
		c.Warmup = def.Warmup
	}
	if !(c.MaxPositionPct > 0 && c.MaxPositionPct <= 1) {
		c.MaxPositionPct = def.MaxPositionPct
	}
	if c.RefitEvery <= 0 {
		c.RefitEvery = def.RefitEvery
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = def.BufferCapacity
	}
	if c.BufferCapacity < c.Warmup {
		c.BufferCapacity = c.Warmup
	}
	if c.Start.IsZero() {
		c.Start = def.Start
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	return c
}

// Series is one symbol's closes in time order.
type Series struct {
	Symbol string    `json:"symbol"`
	Closes []float64 `json:"closes"`
}

// Report summarises a replay.
type Report struct {
	Strategy     string    `json:"strategy"`
	Symbols      []string  `json:"symbols"`
	InitialCash  float64   `json:"initial_cash"`
	FinalValue   float64   `json:"final_value"`
	TotalReturn  float64   `json:"total_return"`
	Trades       int       `json:"trades"`
	Buys         int       `json:"buys"`
	Sells        int       `json:"sells"`
	WinRate      float64   `json:"win_rate"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	Skipped      int       `json:"skipped"`
	Steps        int       `json:"steps"`
	Equity       []float64 `json:"equity"`
	HedgeRatio   float64   `json:"hedge_ratio,omitempty"`
	Cointegrated bool      `json:"cointegrated,omitempty"`
}

// Harness owns one ledger and price buffer for a single run.
type Harness struct {
	cfg    Config
	strat  strategy.Strategy
	sizer  risk.Sizer
	log    zerolog.Logger
	state  atomic.Int32
	ledger *paper.Ledger
	buf    *pricebuf.Buffer
	tick   int

	wins     int
	peak     float64
	drawdown float64
	report   Report
}

// New prepares a harness. It can run exactly once.
func New(strat strategy.Strategy, cfg Config, log zerolog.Logger) *Harness {
	cfg = cfg.withDefaults()
	h := &Harness{
		cfg:   cfg,
		strat: strat,
		sizer: risk.NewSizer(cfg.MaxPositionPct),
		log:   log.With().Str("component", "backtest").Str("strategy", strat.Name()).Logger(),
		buf:   pricebuf.New(cfg.BufferCapacity),
	}
	h.ledger = paper.NewLedger(cfg.InitialCash, paper.WithClock(func() time.Time {
		return cfg.Start.Add(time.Duration(h.tick) * cfg.Interval)
	}))
	return h
}

// State reports the lifecycle stage.
func (h *Harness) State() State { return State(h.state.Load()) }

// Ledger exposes the run's ledger for inspection after completion.
func (h *Harness) Ledger() *paper.Ledger { return h.ledger }

func (h *Harness) begin(symbols ...string) error {
	if !h.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrAlreadyRun
	}
	h.report = Report{Strategy: h.strat.Name(), Symbols: symbols, InitialCash: h.cfg.InitialCash}
	h.peak = h.cfg.InitialCash
	return nil
}

// Run replays a single series. A cancelled context stops the replay between
// ticks and returns the partial report with ctx.Err().
func (h *Harness) Run(ctx context.Context, series Series) (Report, error) {
	if len(series.Closes) == 0 {
		return Report{}, ErrEmptySeries
	}
	if err := h.begin(series.Symbol); err != nil {
		return Report{}, err
	}
	defer h.state.Store(int32(Done))

	sym := series.Symbol
	for i, px := range series.Closes {
		if err := ctx.Err(); err != nil {
			return h.finish(), err
		}
		h.tick = i
		if !(px > 0) || math.IsInf(px, 0) {
			h.report.Skipped++
			h.mark()
			continue
		}
		h.buf.Push(sym, px)
		if h.buf.Len(sym) >= h.cfg.Warmup {
			sig := h.strat.Evaluate(strategy.Input{Symbol: sym, Closes: h.buf.Closes(sym)})
			switch sig.Action {
			case signal.Buy:
				if !h.open(sym, px, sig.Confidence) {
					h.report.Skipped++
				}
			case signal.Sell:
				if !h.closeAll(sym, px) {
					h.report.Skipped++
				}
			}
		}
		h.mark()
	}
	return h.finish(), nil
}

// RunPair replays two legs through the pairs strategy. The Johansen fit is
// refreshed every RefitEvery ticks and the Kalman filter advances once per tick.
func (h *Harness) RunPair(ctx context.Context, legA, legB Series) (Report, error) {
	pairs, ok := h.strat.(*strategy.Pairs)
	if !ok {
		return Report{}, ErrNotPairStrategy
	}
	a, b := stats.AlignTail(legA.Closes, legB.Closes)
	if len(a) == 0 {
		return Report{}, ErrEmptySeries
	}
	if err := h.begin(legA.Symbol, legB.Symbol); err != nil {
		return Report{}, err
	}
	defer h.state.Store(int32(Done))

	params := pairs.Params()
	store := kalman.NewStore(params.Kalman)
	id := kalman.PairID(legA.Symbol, legB.Symbol)
	var fit *cointegration.Result
	lastFit := 0

	for i := range a {
		if err := ctx.Err(); err != nil {
			return h.finish(), err
		}
		h.tick = i
		pa, pb := a[i], b[i]
		if !(pa > 0) || !(pb > 0) || math.IsInf(pa, 0) || math.IsInf(pb, 0) {
			h.report.Skipped++
			h.mark()
			continue
		}
		h.buf.Push(legA.Symbol, pa)
		h.buf.Push(legB.Symbol, pb)
		if h.buf.Len(legA.Symbol) < h.cfg.Warmup {
			h.mark()
			continue
		}

		ca, cb := h.buf.Closes(legA.Symbol), h.buf.Closes(legB.Symbol)
		if fit == nil || i-lastFit >= h.cfg.RefitEvery {
			res, err := cointegration.TestWithOptions(ca, cb, cointegration.Options{MinObservations: h.cfg.Warmup})
			switch {
			case err == nil:
				fit, lastFit = &res, i
			case fit == nil:
				h.log.Debug().Err(err).Int("tick", i).Msg("pair not fit yet")
				h.mark()
				continue
			}
		}

		est, err := store.Update(id, fit.HedgeRatio, fit.Intercept, pa, pb)
		if err != nil || est.Diverged {
			h.report.Skipped++
			h.mark()
			continue
		}
		z := est.ZScore
		if !params.UseKalman {
			z = staticZ(ca, cb, fit, params.Lookback)
		}

		sig := pairs.Decide(z, fit.IsCointegrated)
		switch {
		case sig.Action == signal.Buy:
			h.closeAll(legB.Symbol, pb)
			if !h.holds(legA.Symbol) && !h.open(legA.Symbol, pa, sig.Confidence) {
				h.report.Skipped++
			}
		case sig.Action == signal.Sell:
			h.closeAll(legA.Symbol, pa)
			if !h.holds(legB.Symbol) && !h.open(legB.Symbol, pb, sig.Confidence) {
				h.report.Skipped++
			}
		case sig.Stats["exit"] == 1:
			h.closeAll(legA.Symbol, pa)
			h.closeAll(legB.Symbol, pb)
		}
		h.mark()
	}
	if fit != nil {
		h.report.HedgeRatio = fit.HedgeRatio
		h.report.Cointegrated = fit.IsCointegrated
	}
	return h.finish(), nil
}

func staticZ(a, b []float64, fit *cointegration.Result, lookback int) float64 {
	a, b = stats.Tail(a, lookback), stats.Tail(b, lookback)
	spread := make([]float64, len(a))
	for i := range a {
		spread[i] = fit.Spread(a[i], b[i])
	}
	return stats.ZScore(spread[len(spread)-1], stats.Mean(spread), stats.StdDev(spread))
}

func (h *Harness) holds(sym string) bool {
	_, _, ok := h.ledger.Position(sym)
	return ok
}

// open sizes a buy off current equity; false when nothing could be bought.
func (h *Harness) open(sym string, px, confidence float64) bool {
	equity := h.ledger.PortfolioValue(paper.MarksLookup(h.buf.Marks()))
	qty := h.sizer.Size(px, confidence, equity)
	if qty <= 0 {
		return false
	}
	if _, err := h.ledger.Buy(sym, qty, px); err != nil {
		h.log.Debug().Err(err).Str("sym", sym).Float64("qty", qty).Msg("buy rejected")
		return false
	}
	h.report.Buys++
	return true
}

// closeAll sells the whole position in sym; false when nothing is held.
func (h *Harness) closeAll(sym string, px float64) bool {
	qty, _, ok := h.ledger.Position(sym)
	if !ok {
		return false
	}
	trade, err := h.ledger.Sell(sym, qty, px)
	if err != nil {
		h.log.Debug().Err(err).Str("sym", sym).Msg("sell rejected")
		return false
	}
	h.report.Sells++
	if trade.RealizedPnL != nil && *trade.RealizedPnL > 0 {
		h.wins++
	}
	return true
}

func (h *Harness) mark() {
	v := h.ledger.PortfolioValue(paper.MarksLookup(h.buf.Marks()))
	h.report.Equity = append(h.report.Equity, v)
	h.report.Steps++
	if v > h.peak {
		h.peak = v
	}
	if h.peak > 0 {
		if dd := (h.peak - v) / h.peak; dd > h.drawdown {
			h.drawdown = dd
		}
	}
}

func (h *Harness) finish() Report {
	r := h.report
	r.FinalValue = h.ledger.PortfolioValue(paper.MarksLookup(h.buf.Marks()))
	r.TotalReturn = (r.FinalValue - r.InitialCash) / r.InitialCash
	r.Trades = r.Buys + r.Sells
	if r.Sells > 0 {
		r.WinRate = float64(h.wins) / float64(r.Sells)
	}
	r.MaxDrawdown = h.drawdown
	if r.Equity == nil {
		r.Equity = []float64{}
	}
	metrics.BacktestsTotal.WithLabelValues(r.Strategy).Inc()
	h.log.Info().
		Int("steps", r.Steps).
		Int("trades", r.Trades).
		Int("skipped", r.Skipped).
		Float64("final_value", r.FinalValue).
		Float64("total_return", r.TotalReturn).
		Float64("max_drawdown", r.MaxDrawdown).
		Msg("backtest finished")
	return r
}
