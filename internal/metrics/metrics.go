// Package metrics exposes the engine's Prometheus collectors and a scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of price ticks ingested"},
		[]string{"symbol"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders filled by the paper ledger"},
		[]string{"symbol", "side"},
	)
	OrdersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_rejected_total", Help: "Orders rejected by the ledger or risk limits"},
		[]string{"reason"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals produced per strategy and action"},
		[]string{"strategy", "action"},
	)
	PairsScanned = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pairs_scanned_total", Help: "Symbol pairs evaluated by the correlation scanner"},
	)
	BacktestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtests_total", Help: "Completed backtest runs"},
		[]string{"strategy"},
	)
	PortfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "portfolio_value", Help: "Marked-to-market value of the paper portfolio"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, OrdersTotal, OrdersRejected, SignalsTotal, PairsScanned, BacktestsTotal, PortfolioValue)
}

// Handler returns the scrape handler for the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Serve starts a /metrics listener in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
