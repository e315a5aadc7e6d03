// Package engine exposes the trading session's public operations: portfolio
// queries, manual trades, signal generation, pair analytics and backtests.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"statarb-go/internal/backtest"
	"statarb-go/internal/execution"
	"statarb-go/internal/metrics"
	"statarb-go/internal/paper"
	"statarb-go/internal/pricebuf"
	"statarb-go/internal/risk"
	"statarb-go/internal/scanner"
	"statarb-go/internal/signal"
	"statarb-go/internal/strategy"
)

// ErrInvalidRequest is returned for malformed requests (missing symbol, no data).
var ErrInvalidRequest = errors.New("invalid request")

// Options configures a session.
type Options struct {
	InitialCash    float64
	BufferCapacity int
	MaxPositionPct float64
	Limits         risk.Limits
	Strategy       string
	Params         strategy.Params
	Scanner        scanner.Options
	Backtest       backtest.Config
	Recorder       paper.TradeRecorder
}

// Engine is one trading session. The ledger and price buffer are private to it.
type Engine struct {
	base     zerolog.Logger
	log      zerolog.Logger
	prices   *pricebuf.Buffer
	ledger   *paper.Ledger
	exec     *execution.Executor
	sizer    risk.Sizer
	params   strategy.Params
	scanOpts scanner.Options
	btCfg    backtest.Config

	mu     sync.RWMutex
	active strategy.Strategy
	kind   strategy.Kind
}

// New builds a session. An unknown strategy name is a configuration error.
func New(opts Options, log zerolog.Logger) (*Engine, error) {
	name := opts.Strategy
	if strings.TrimSpace(name) == "" {
		name = strategy.KindMomentum.String()
	}
	kind, err := strategy.ParseKind(name)
	if err != nil {
		return nil, err
	}
	active, err := strategy.Build(kind, opts.Params)
	if err != nil {
		return nil, err
	}

	var ledgerOpts []paper.Option
	if opts.Recorder != nil {
		ledgerOpts = append(ledgerOpts, paper.WithRecorder(opts.Recorder))
	}
	ledger := paper.NewLedger(opts.InitialCash, ledgerOpts...)
	e := &Engine{
		base:     log,
		log:      log.With().Str("component", "engine").Logger(),
		prices:   pricebuf.New(opts.BufferCapacity),
		ledger:   ledger,
		exec:     execution.NewExecutor(log, ledger, opts.Limits),
		sizer:    risk.NewSizer(opts.MaxPositionPct),
		params:   opts.Params.WithDefaults(),
		scanOpts: opts.Scanner,
		btCfg:    opts.Backtest,
		active:   active,
		kind:     kind,
	}
	metrics.PortfolioValue.Set(ledger.InitialBalance())
	return e, nil
}

// Prices exposes the session's price buffer.
func (e *Engine) Prices() *pricebuf.Buffer { return e.prices }

// Ledger exposes the session's ledger.
func (e *Engine) Ledger() *paper.Ledger { return e.ledger }

// ActiveStrategy returns the current strategy kind.
func (e *Engine) ActiveStrategy() strategy.Kind {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.kind
}

func (e *Engine) marks() paper.PriceLookup {
	return paper.MarksLookup(e.prices.Marks())
}

// FeedPrice stores a close. Invalid ticks are dropped.
func (e *Engine) FeedPrice(symbol string, price float64) {
	e.Feed(FeedRequest{Symbol: symbol, Price: price})
}

// Feed is FeedPrice with an acknowledgement.
func (e *Engine) Feed(req FeedRequest) FeedResponse {
	tick := signal.Tick{Symbol: strings.TrimSpace(req.Symbol), Price: req.Price}
	if !tick.Valid() {
		e.log.Debug().Str("sym", req.Symbol).Float64("px", req.Price).Msg("dropping invalid tick")
		return FeedResponse{Accepted: false, Buffered: e.prices.Len(tick.Symbol)}
	}
	e.prices.Push(tick.Symbol, tick.Price)
	metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
	return FeedResponse{Accepted: true, Buffered: e.prices.Len(tick.Symbol)}
}

// Portfolio marks the ledger with the latest buffered closes.
func (e *Engine) Portfolio() paper.Summary {
	summary := e.ledger.Summary(e.marks())
	metrics.PortfolioValue.Set(summary.PortfolioValue)
	return summary
}

// ExecuteTrade applies a manual order. Ledger and limit rejections are
// reported in the response, never as an error.
func (e *Engine) ExecuteTrade(req TradeRequest) TradeResponse {
	action, ok := signal.ParseAction(req.Action)
	symbol := strings.TrimSpace(req.Symbol)
	price := req.Price
	if price == 0 && symbol != "" {
		if last, found := e.prices.Last(symbol); found {
			price = last
		}
	}
	resp := TradeResponse{Action: string(action), Symbol: symbol, Quantity: req.Quantity, Price: price}

	var side execution.Side
	switch {
	case ok && action == signal.Buy:
		side = execution.Buy
	case ok && action == signal.Sell:
		side = execution.Sell
	default:
		resp.Reason = "invalid_order"
		resp.Message = fmt.Sprintf("action must be BUY or SELL, got %q", req.Action)
		resp.RemainingCash = e.ledger.Cash()
		return resp
	}

	fill, err := e.exec.Submit(execution.Order{Symbol: symbol, Side: side, Qty: req.Quantity, Price: price})
	if err != nil {
		resp.Reason = execution.Reason(err)
		resp.Message = err.Error()
		resp.RemainingCash = e.ledger.Cash()
		return resp
	}
	resp.Success = true
	resp.RemainingCash = fill.RemainingCash
	if fill.Trade.CashDelta < 0 {
		resp.Cost = -fill.Trade.CashDelta
	} else {
		resp.Proceeds = fill.Trade.CashDelta
	}
	resp.RealizedPnL = fill.Trade.RealizedPnL
	metrics.PortfolioValue.Set(e.ledger.PortfolioValue(e.marks()))
	return resp
}

// GenerateSignal evaluates the active strategy on req.Closes, or on the
// buffered closes of req.Symbol when none are given. Supplied closes replace
// the buffered series so the result depends on the request alone.
func (e *Engine) GenerateSignal(req SignalRequest) (SignalResponse, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return SignalResponse{}, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	closes := e.prices.Closes(symbol)
	if len(req.Closes) > 0 {
		closes = validCloses(symbol, req.Closes)
		e.prices.Replace(symbol, closes)
	}

	e.mu.RLock()
	active := e.active
	e.mu.RUnlock()

	in := strategy.Input{Symbol: symbol, Closes: closes}
	if req.HedgeSymbol != "" {
		in.Hedge = e.prices.Closes(req.HedgeSymbol)
	}
	sig := active.Evaluate(in)
	metrics.SignalsTotal.WithLabelValues(active.Name(), string(sig.Action)).Inc()

	resp := SignalResponse{Symbol: symbol, Strategy: active.Name(), Signal: sig}
	if sig.Action == signal.Buy && len(closes) > 0 {
		last := closes[len(closes)-1]
		resp.SuggestedQty = e.sizer.Size(last, sig.Confidence, e.ledger.PortfolioValue(e.marks()))
	}
	e.log.Debug().Str("sym", symbol).Str("strategy", active.Name()).Str("action", string(sig.Action)).
		Float64("confidence", sig.Confidence).Msg("signal generated")
	return resp, nil
}

// SwitchStrategy replaces the active strategy. Unknown names fail with strategy.ErrUnknownStrategy.
func (e *Engine) SwitchStrategy(req SwitchRequest) (SwitchResponse, error) {
	kind, err := strategy.ParseKind(req.Strategy)
	if err != nil {
		return SwitchResponse{}, err
	}
	next, err := strategy.Build(kind, e.params)
	if err != nil {
		return SwitchResponse{}, err
	}

	e.mu.Lock()
	previous := e.kind
	e.active = next
	e.kind = kind
	e.mu.Unlock()

	e.log.Info().Str("from", previous.String()).Str("to", kind.String()).Msg("strategy switched")
	return SwitchResponse{
		Switched:    previous != kind,
		Previous:    previous.String(),
		Active:      kind.String(),
		Description: kind.Description(),
	}, nil
}

// PairsSignal evaluates the spread between two series.
func (e *Engine) PairsSignal(req PairsRequest) (PairsResponse, error) {
	a, b := req.ClosesA, req.ClosesB
	if len(a) == 0 && req.SymbolA != "" {
		a = e.prices.Closes(req.SymbolA)
	}
	if len(b) == 0 && req.SymbolB != "" {
		b = e.prices.Closes(req.SymbolB)
	}
	if len(a) == 0 || len(b) == 0 {
		return PairsResponse{}, fmt.Errorf("%w: both legs need closes", ErrInvalidRequest)
	}

	params := e.params.Pairs
	if req.UseKalman != nil {
		params.UseKalman = *req.UseKalman
	}
	pairs := strategy.NewPairs(params, e.params.MinPoints)
	res := pairs.EvaluatePair(a, b)
	metrics.SignalsTotal.WithLabelValues(pairs.Name(), string(res.Signal.Action)).Inc()

	return PairsResponse{
		Action:        res.Signal.Action,
		Confidence:    res.Signal.Confidence,
		ZScore:        res.ZScore,
		Reason:        res.Signal.Reason,
		Stats:         res.Signal.Stats,
		Johansen:      res.Johansen,
		JohansenError: res.JohansenErr,
		Kalman:        res.Kalman,
	}, nil
}

// ScanPairs ranks the request universe, or every buffered symbol when none is given.
func (e *Engine) ScanPairs(ctx context.Context, req ScanRequest) (scanner.Result, error) {
	opts := e.scanOpts
	opts.MinCorrelation = req.MinCorrelation
	if req.MinSamples > 0 {
		opts.MinSamples = req.MinSamples
	}
	if req.TopN > 0 {
		opts.TopN = req.TopN
	}
	opts.UseLogReturns = opts.UseLogReturns || req.UseLogReturns
	opts.WithCointegration = opts.WithCointegration || req.WithCointegration

	universe := req.Universe
	if len(universe) == 0 {
		universe = e.prices.Universe(1)
	}
	res, err := scanner.Scan(ctx, universe, opts)
	if err != nil {
		return scanner.Result{}, err
	}
	metrics.PairsScanned.Add(float64(res.TotalPairsScanned))
	e.log.Info().Int("scanned", res.TotalPairsScanned).Int("qualified", res.QualifiedPairs).
		Int("skipped", res.Skipped).Float64("min_correlation", opts.MinCorrelation).Msg("pair scan complete")
	return res, nil
}

// PositionSize sizes an order off the current portfolio value.
func (e *Engine) PositionSize(req SizeRequest) SizeResponse {
	price := req.Price
	if price == 0 && req.Symbol != "" {
		if last, ok := e.prices.Last(req.Symbol); ok {
			price = last
		}
	}
	equity := e.ledger.PortfolioValue(e.marks())
	qty := e.sizer.Size(price, req.Confidence, equity)
	return SizeResponse{Qty: qty, Price: price, Notional: qty * price, Equity: equity}
}

// TradeHistory returns the most recent trades.
func (e *Engine) TradeHistory(req HistoryRequest) HistoryResponse {
	return HistoryResponse{TotalTrades: e.ledger.TradeCount(), Trades: e.ledger.History(req.Limit)}
}

// RunBacktest replays closes on a fresh ledger; the session ledger is untouched.
func (e *Engine) RunBacktest(ctx context.Context, req BacktestRequest) (backtest.Report, error) {
	kind := e.ActiveStrategy()
	if req.Strategy != "" {
		parsed, err := strategy.ParseKind(req.Strategy)
		if err != nil {
			return backtest.Report{}, err
		}
		kind = parsed
	}
	strat, err := strategy.Build(kind, e.params)
	if err != nil {
		return backtest.Report{}, err
	}
	cfg := e.btCfg
	if req.Config != nil {
		cfg = *req.Config
	}

	closes := req.Closes
	if len(closes) == 0 && req.Symbol != "" {
		closes = e.prices.Closes(req.Symbol)
	}
	h := backtest.New(strat, cfg, e.base)

	if kind == strategy.KindPairs {
		closesB := req.ClosesB
		if len(closesB) == 0 && req.SymbolB != "" {
			closesB = e.prices.Closes(req.SymbolB)
		}
		symA, symB := nonEmpty(req.Symbol, "A"), nonEmpty(req.SymbolB, "B")
		if strings.TrimSpace(symA) == strings.TrimSpace(symB) {
			return backtest.Report{}, fmt.Errorf("%w: pair legs share symbol %q", ErrInvalidRequest, symA)
		}
		return h.RunPair(ctx, backtest.Series{Symbol: symA, Closes: closes},
			backtest.Series{Symbol: symB, Closes: closesB})
	}
	return h.Run(ctx, backtest.Series{Symbol: nonEmpty(req.Symbol, "SERIES"), Closes: closes})
}

// TradeOnSignal evaluates the active strategy for symbol and, on BUY or SELL,
// trades it: BUY opens a sized position when none is held, SELL closes the
// whole position. It returns nil when no order was attempted.
func (e *Engine) TradeOnSignal(symbol string) (SignalResponse, *TradeResponse, error) {
	sig, err := e.GenerateSignal(SignalRequest{Symbol: symbol})
	if err != nil {
		return sig, nil, err
	}
	held, _, holding := e.ledger.Position(symbol)
	var req *TradeRequest
	switch sig.Signal.Action {
	case signal.Buy:
		if !holding && sig.SuggestedQty > 0 {
			req = &TradeRequest{Action: string(signal.Buy), Symbol: symbol, Quantity: sig.SuggestedQty}
		}
	case signal.Sell:
		if holding {
			req = &TradeRequest{Action: string(signal.Sell), Symbol: symbol, Quantity: held}
		}
	}
	if req == nil {
		return sig, nil, nil
	}
	resp := e.ExecuteTrade(*req)
	return sig, &resp, nil
}

// validCloses drops closes that would be rejected as ticks.
func validCloses(symbol string, closes []float64) []float64 {
	out := make([]float64, 0, len(closes))
	for _, px := range closes {
		if (signal.Tick{Symbol: symbol, Price: px}).Valid() {
			out = append(out, px)
		}
	}
	return out
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
