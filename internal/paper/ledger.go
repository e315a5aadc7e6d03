// Package paper implements the paper-trading ledger: cash, long positions at average cost, and an append-only trade history.
package paper

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds is returned when a buy costs more than the available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoPosition is returned when selling a symbol that is not held.
	ErrNoPosition = errors.New("no position")
	// ErrInsufficientQuantity is returned when selling more than the held quantity.
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	// ErrInvalidOrder covers non-positive or non-finite quantity and price.
	ErrInvalidOrder = errors.New("invalid order")
)

// Side is the direction of a recorded trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// PositionSide is always long; the ledger never holds short inventory.
const PositionSide = "long"

// Trade is an immutable execution record.
type Trade struct {
	Seq         int64     `json:"seq"`
	Symbol      string    `json:"symbol"`
	Action      Side      `json:"action"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	CashDelta   float64   `json:"cash_delta"`
	RealizedPnL *float64  `json:"realized_pnl,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TradeRecorder receives every committed trade, in execution order.
type TradeRecorder interface {
	Record(Trade)
}

// PriceLookup resolves a mark price for a symbol.
type PriceLookup func(symbol string) (float64, bool)

// MarksLookup adapts a symbol→price map into a PriceLookup.
func MarksLookup(marks map[string]float64) PriceLookup {
	return func(symbol string) (float64, bool) {
		px, ok := marks[symbol]
		return px, ok && px > 0
	}
}

type lot struct {
	qty decimal.Decimal
	avg decimal.Decimal
}

// Ledger tracks virtual cash, realized PnL and per-symbol long positions.
// All mutations are serialized by a single mutex; a failed order never changes state.
type Ledger struct {
	mu        sync.Mutex
	initial   decimal.Decimal
	cash      decimal.Decimal
	realized  decimal.Decimal
	positions map[string]lot
	history   []Trade
	seq       int64
	recorder  TradeRecorder
	clock     func() time.Time
}

// Option configures Ledger construction.
type Option func(*Ledger)

// WithRecorder forwards committed trades to r.
func WithRecorder(r TradeRecorder) Option {
	return func(l *Ledger) { l.recorder = r }
}

// WithClock overrides the trade timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewLedger creates a ledger holding initialBalance in cash. Negative balances are treated as zero.
func NewLedger(initialBalance float64, opts ...Option) *Ledger {
	if initialBalance < 0 || math.IsNaN(initialBalance) || math.IsInf(initialBalance, 0) {
		initialBalance = 0
	}
	start := decimal.NewFromFloat(initialBalance)
	l := &Ledger{
		initial:   start,
		cash:      start,
		positions: make(map[string]lot),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func validOrder(symbol string, qty, price float64) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	if !(qty > 0) || math.IsInf(qty, 0) {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if !(price > 0) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	return nil
}

// Buy debits qty*price and folds the lot into the position's average price.
func (l *Ledger) Buy(symbol string, qty, price float64) (Trade, error) {
	if err := validOrder(symbol, qty, price); err != nil {
		return Trade{}, err
	}
	q := decimal.NewFromFloat(qty)
	p := decimal.NewFromFloat(price)
	cost := q.Mul(p)

	l.mu.Lock()
	defer l.mu.Unlock()

	if cost.GreaterThan(l.cash) {
		return Trade{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), l.cash.StringFixed(2))
	}

	pos := l.positions[symbol]
	newQty := pos.qty.Add(q)
	newAvg := pos.qty.Mul(pos.avg).Add(cost).Div(newQty)
	l.cash = l.cash.Sub(cost)
	l.positions[symbol] = lot{qty: newQty, avg: newAvg}

	trade := l.appendLocked(symbol, Buy, q, p, cost.Neg(), nil)
	return trade, nil
}

// Sell credits qty*price, books realized PnL against the average price and shrinks or removes the position.
func (l *Ledger) Sell(symbol string, qty, price float64) (Trade, error) {
	if err := validOrder(symbol, qty, price); err != nil {
		return Trade{}, err
	}
	q := decimal.NewFromFloat(qty)
	p := decimal.NewFromFloat(price)

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok {
		return Trade{}, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}
	if q.GreaterThan(pos.qty) {
		return Trade{}, fmt.Errorf("%w: hold %s %s, asked %s", ErrInsufficientQuantity, pos.qty.String(), symbol, q.String())
	}

	proceeds := q.Mul(p)
	pnl := p.Sub(pos.avg).Mul(q)
	l.cash = l.cash.Add(proceeds)
	l.realized = l.realized.Add(pnl)

	remaining := pos.qty.Sub(q)
	if remaining.Sign() <= 0 {
		delete(l.positions, symbol)
	} else {
		l.positions[symbol] = lot{qty: remaining, avg: pos.avg}
	}

	trade := l.appendLocked(symbol, Sell, q, p, proceeds, &pnl)
	return trade, nil
}

func (l *Ledger) appendLocked(symbol string, side Side, q, p, cashDelta decimal.Decimal, pnl *decimal.Decimal) Trade {
	l.seq++
	trade := Trade{
		Seq:       l.seq,
		Symbol:    symbol,
		Action:    side,
		Quantity:  q.InexactFloat64(),
		Price:     p.InexactFloat64(),
		CashDelta: cashDelta.InexactFloat64(),
		Timestamp: l.clock(),
	}
	if pnl != nil {
		v := pnl.InexactFloat64()
		trade.RealizedPnL = &v
	}
	l.history = append(l.history, trade)
	if l.recorder != nil {
		l.recorder.Record(trade)
	}
	return trade
}

// PositionSnapshot is a read-only view of one holding.
type PositionSnapshot struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	Side         string  `json:"side"`
	MarkPrice    float64 `json:"mark_price"`
	MarketValue  float64 `json:"market_value"`
	Unrealized   float64 `json:"unrealized_pnl"`
}

// Summary is a consistent snapshot of the whole ledger marked to market.
type Summary struct {
	InitialBalance float64            `json:"initial_balance"`
	Cash           float64            `json:"cash"`
	PortfolioValue float64            `json:"portfolio_value"`
	PnL            float64            `json:"pnl"`
	RealizedPnL    float64            `json:"realized_pnl"`
	UnrealizedPnL  float64            `json:"unrealized_pnl"`
	Positions      []PositionSnapshot `json:"positions"`
	TradeCount     int                `json:"trade_count"`
}

// mark resolves a decimal mark, falling back to the average price when the lookup has none.
func mark(lookup PriceLookup, symbol string, pos lot) decimal.Decimal {
	if lookup != nil {
		if px, ok := lookup(symbol); ok && px > 0 && !math.IsInf(px, 0) {
			return decimal.NewFromFloat(px)
		}
	}
	return pos.avg
}

func (l *Ledger) valueLocked(lookup PriceLookup) decimal.Decimal {
	total := l.cash
	for sym, pos := range l.positions {
		total = total.Add(pos.qty.Mul(mark(lookup, sym, pos)))
	}
	return total
}

// PortfolioValue returns cash plus every position marked with lookup.
func (l *Ledger) PortfolioValue(lookup PriceLookup) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.valueLocked(lookup).InexactFloat64()
}

// PnL returns PortfolioValue minus the initial balance.
func (l *Ledger) PnL(lookup PriceLookup) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.valueLocked(lookup).Sub(l.initial).InexactFloat64()
}

// Summary projects the ledger into a Summary without side effects.
func (l *Ledger) Summary(lookup PriceLookup) Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions := make([]PositionSnapshot, 0, len(l.positions))
	unrealized := decimal.Zero
	for sym, pos := range l.positions {
		px := mark(lookup, sym, pos)
		value := pos.qty.Mul(px)
		u := px.Sub(pos.avg).Mul(pos.qty)
		unrealized = unrealized.Add(u)
		positions = append(positions, PositionSnapshot{
			Symbol:       sym,
			Quantity:     pos.qty.InexactFloat64(),
			AveragePrice: pos.avg.InexactFloat64(),
			Side:         PositionSide,
			MarkPrice:    px.InexactFloat64(),
			MarketValue:  value.InexactFloat64(),
			Unrealized:   u.InexactFloat64(),
		})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	value := l.valueLocked(lookup)
	return Summary{
		InitialBalance: l.initial.InexactFloat64(),
		Cash:           l.cash.InexactFloat64(),
		PortfolioValue: value.InexactFloat64(),
		PnL:            value.Sub(l.initial).InexactFloat64(),
		RealizedPnL:    l.realized.InexactFloat64(),
		UnrealizedPnL:  unrealized.InexactFloat64(),
		Positions:      positions,
		TradeCount:     len(l.history),
	}
}

// History returns the most recent limit trades in execution order; limit <= 0 returns all.
func (l *Ledger) History(limit int) []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if limit > 0 && limit < len(l.history) {
		start = len(l.history) - limit
	}
	out := make([]Trade, len(l.history)-start)
	copy(out, l.history[start:])
	return out
}

// TradeCount returns the number of committed trades.
func (l *Ledger) TradeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

// Position returns the held quantity and average price for symbol.
func (l *Ledger) Position(symbol string) (qty, avgPrice float64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[symbol]
	if !ok {
		return 0, 0, false
	}
	return pos.qty.InexactFloat64(), pos.avg.InexactFloat64(), true
}

// Cash reports free cash.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash.InexactFloat64()
}

// InitialBalance returns the starting bankroll.
func (l *Ledger) InitialBalance() float64 { return l.initial.InexactFloat64() }

// RealizedPnL returns total closed-trade profit and loss.
func (l *Ledger) RealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realized.InexactFloat64()
}
