// Package execution handles order lifecycle against the paper ledger.
package execution

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"statarb-go/internal/metrics"
	"statarb-go/internal/paper"
	"statarb-go/internal/risk"
)

// ErrNotionalLimit is returned when an order exceeds the per-trade notional cap.
var ErrNotionalLimit = errors.New("notional limit exceeded")

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy opens or adds to a long position.
	Buy Side = "BUY"
	// Sell reduces or closes a long position.
	Sell Side = "SELL"
)

// Order represents a placement request the executor can process.
type Order struct {
	Symbol string
	Side   Side
	Qty    float64
	Price  float64
}

// Fill is the ledger outcome of an accepted order.
type Fill struct {
	Trade         paper.Trade
	RemainingCash float64
}

// Executor submits orders to a ledger, enforcing the notional limit.
type Executor struct {
	log    zerolog.Logger
	ledger *paper.Ledger
	limits risk.Limits
}

// NewExecutor wires an executor to ledger.
func NewExecutor(log zerolog.Logger, ledger *paper.Ledger, limits risk.Limits) *Executor {
	return &Executor{log: log.With().Str("component", "execution").Logger(), ledger: ledger, limits: limits}
}

// Submit fills order against the ledger. Rejections are returned as errors
// wrapping the ledger sentinels or ErrNotionalLimit; the ledger is unchanged.
func (executor *Executor) Submit(order Order) (Fill, error) {
	notional := order.Qty * order.Price
	if order.Side == Buy && !math.IsNaN(notional) && !executor.limits.Allow(notional) {
		return executor.reject(order, fmt.Errorf("%w: %.2f > %.2f", ErrNotionalLimit, notional, executor.limits.MaxNotionalPerTrade))
	}

	var (
		trade paper.Trade
		err   error
	)
	switch order.Side {
	case Buy:
		trade, err = executor.ledger.Buy(order.Symbol, order.Qty, order.Price)
	case Sell:
		trade, err = executor.ledger.Sell(order.Symbol, order.Qty, order.Price)
	default:
		err = fmt.Errorf("%w: side %q", paper.ErrInvalidOrder, order.Side)
	}
	if err != nil {
		return executor.reject(order, err)
	}

	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	fill := Fill{Trade: trade, RemainingCash: executor.ledger.Cash()}
	event := executor.log.Info().
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Float64("qty", order.Qty).
		Float64("px", order.Price).
		Float64("cash", fill.RemainingCash)
	if trade.RealizedPnL != nil {
		event = event.Float64("realized_pnl", *trade.RealizedPnL)
	}
	event.Msg("order filled")
	return fill, nil
}

func (executor *Executor) reject(order Order, err error) (Fill, error) {
	reason := Reason(err)
	metrics.OrdersRejected.WithLabelValues(reason).Inc()
	executor.log.Warn().
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Float64("qty", order.Qty).
		Float64("px", order.Price).
		Str("reason", reason).
		Msg("order rejected")
	return Fill{}, err
}

// Reason maps a rejection error to its reason code.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, paper.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, paper.ErrNoPosition):
		return "no_position"
	case errors.Is(err, paper.ErrInsufficientQuantity):
		return "insufficient_quantity"
	case errors.Is(err, ErrNotionalLimit):
		return "notional_limit"
	default:
		return "invalid_order"
	}
}
