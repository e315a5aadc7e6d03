package engine

import (
	"statarb-go/internal/backtest"
	"statarb-go/internal/cointegration"
	"statarb-go/internal/kalman"
	"statarb-go/internal/paper"
	"statarb-go/internal/signal"
)

// TradeRequest asks for a manual paper fill. A zero price uses the last buffered close.
type TradeRequest struct {
	Action   string  `json:"action"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// TradeResponse reports a fill or, with Success=false, the rejection reason.
type TradeResponse struct {
	Success       bool     `json:"success"`
	Action        string   `json:"action,omitempty"`
	Symbol        string   `json:"symbol,omitempty"`
	Quantity      float64  `json:"quantity,omitempty"`
	Price         float64  `json:"price,omitempty"`
	Cost          float64  `json:"cost,omitempty"`
	Proceeds      float64  `json:"proceeds,omitempty"`
	RealizedPnL   *float64 `json:"realized_pnl,omitempty"`
	RemainingCash float64  `json:"remaining_cash"`
	Reason        string   `json:"reason,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// SignalRequest evaluates the active strategy on a symbol. Closes, when given,
// are evaluated as-is and replace the buffered series. HedgeSymbol supplies the second leg for the
// pairs strategy.
type SignalRequest struct {
	Symbol      string    `json:"symbol"`
	Closes      []float64 `json:"closes,omitempty"`
	HedgeSymbol string    `json:"hedge_symbol,omitempty"`
}

// SignalResponse carries the signal and the size the sizer would trade on it.
type SignalResponse struct {
	Symbol       string        `json:"symbol"`
	Strategy     string        `json:"strategy"`
	Signal       signal.Signal `json:"signal"`
	SuggestedQty float64       `json:"suggested_qty"`
}

// SwitchRequest names the strategy to activate.
type SwitchRequest struct {
	Strategy string `json:"strategy"`
}

// SwitchResponse describes the strategy change.
type SwitchResponse struct {
	Switched    bool   `json:"switched"`
	Previous    string `json:"previous"`
	Active      string `json:"active"`
	Description string `json:"description"`
}

// PairsRequest evaluates a spread. Empty closes are read from the buffer by symbol.
type PairsRequest struct {
	SymbolA   string    `json:"symbol_a,omitempty"`
	SymbolB   string    `json:"symbol_b,omitempty"`
	ClosesA   []float64 `json:"closes_a,omitempty"`
	ClosesB   []float64 `json:"closes_b,omitempty"`
	UseKalman *bool     `json:"use_kalman,omitempty"`
}

// PairsResponse is the spread decision with the statistics behind it.
type PairsResponse struct {
	Action        signal.Action         `json:"action"`
	Confidence    float64               `json:"confidence"`
	ZScore        float64               `json:"z_score"`
	Reason        string                `json:"reason"`
	Stats         map[string]float64    `json:"stats,omitempty"`
	Johansen      *cointegration.Result `json:"johansen,omitempty"`
	JohansenError string                `json:"johansen_error,omitempty"`
	Kalman        *kalman.Estimate      `json:"kalman,omitempty"`
}

// ScanRequest ranks a universe. An empty universe scans the price buffer.
type ScanRequest struct {
	Universe          map[string][]float64 `json:"universe,omitempty"`
	MinCorrelation    float64              `json:"min_correlation"`
	MinSamples        int                  `json:"min_samples,omitempty"`
	TopN              int                  `json:"top_n,omitempty"`
	UseLogReturns     bool                 `json:"use_log_returns,omitempty"`
	WithCointegration bool                 `json:"with_cointegration,omitempty"`
}

// SizeRequest asks for an order quantity. A zero price with a symbol uses the last close.
type SizeRequest struct {
	Symbol     string  `json:"symbol,omitempty"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}

// SizeResponse is the sizer output.
type SizeResponse struct {
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	Notional float64 `json:"notional"`
	Equity   float64 `json:"equity"`
}

// HistoryRequest limits the returned trades; zero returns all.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// HistoryResponse lists trades in execution order.
type HistoryResponse struct {
	TotalTrades int           `json:"total_trades"`
	Trades      []paper.Trade `json:"trades"`
}

// BacktestRequest replays closes (or the buffered series of Symbol). Setting
// SymbolB or ClosesB with the pairs strategy replays a spread.
type BacktestRequest struct {
	Symbol   string           `json:"symbol"`
	Closes   []float64        `json:"closes,omitempty"`
	SymbolB  string           `json:"symbol_b,omitempty"`
	ClosesB  []float64        `json:"closes_b,omitempty"`
	Strategy string           `json:"strategy,omitempty"`
	Config   *backtest.Config `json:"config,omitempty"`
}

// FeedRequest is the dispatcher form of FeedPrice.
type FeedRequest struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// FeedResponse acknowledges a price.
type FeedResponse struct {
	Accepted bool `json:"accepted"`
	Buffered int  `json:"buffered"`
}
