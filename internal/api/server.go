// Package api serves the engine operations over HTTP. Every operation is a
// named tool invoked with POST /v1/tools/:name and a JSON body.
package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"statarb-go/internal/backtest"
	"statarb-go/internal/engine"
	"statarb-go/internal/metrics"
	"statarb-go/internal/strategy"
)

// toolFunc decodes its request from c and returns the response payload.
type toolFunc func(c *gin.Context, e *engine.Engine) (any, error)

type tool struct {
	description string
	run         toolFunc
}

// errBadBody marks a request body that could not be decoded.
var errBadBody = errors.New("bad request body")

var tools = map[string]tool{
	"get_portfolio": {"current cash, positions and P&L marked to the last closes", func(c *gin.Context, e *engine.Engine) (any, error) {
		return e.Portfolio(), nil
	}},
	"execute_trade": {"paper BUY or SELL; rejections come back with success=false", func(c *gin.Context, e *engine.Engine) (any, error) {
		var req engine.TradeRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return e.ExecuteTrade(req), nil
	}},
	"generate_signal": {"evaluate the active strategy on a symbol", func(c *gin.Context, e *engine.Engine) (any, error) {
		var req engine.SignalRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return e.GenerateSignal(req)
	}},
	"switch_strategy": {"activate a strategy by name or alias", func(c *gin.Context, e *engine.Engine) (any, error) {
		var req engine.SwitchRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return e.SwitchStrategy(req)
	}},
	"pairs_signal": {"Johansen test and spread z-score decision for two series", func(c *gin.Context, e *engine.Engine) (any, error) {
		var req engine.PairsRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return e.PairsSignal(req)
	}},
	"scan_pairs": {"rank symbol pairs by return correlation", func(c *gin.Context, e *engine.Engine) (any, error) {
		var req engine.ScanRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return e.ScanPairs(c.Request.Context(), req)
	}},
	"position_size": {"order quantity for a price and confidence", func(c *gin.Context, e *engine.Engine) (any, error) {
		var req engine.SizeRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return e.PositionSize(req), nil
	}},
	"trade_history": {"executed trades, most recent last", func(c *gin.Context, e *engine.Engine) (any, error) {
		var req engine.HistoryRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return e.TradeHistory(req), nil
	}},
	"run_backtest": {"replay closes through a strategy on a fresh ledger", func(c *gin.Context, e *engine.Engine) (any, error) {
		var req engine.BacktestRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return e.RunBacktest(c.Request.Context(), req)
	}},
	"feed_price": {"append a close to the price buffer", func(c *gin.Context, e *engine.Engine) (any, error) {
		var req engine.FeedRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return e.Feed(req), nil
	}},
}

// bind decodes a JSON body. An empty body decodes as the zero request.
func bind(c *gin.Context, req any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.Join(errBadBody, err)
	}
	return nil
}

// ToolInfo describes one dispatchable operation.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Tools lists the registered operations sorted by name.
func Tools() []ToolInfo {
	out := make([]ToolInfo, 0, len(tools))
	for name, t := range tools {
		out = append(out, ToolInfo{Name: name, Description: t.description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Server wires an engine to a gin router.
type Server struct {
	eng *engine.Engine
	log zerolog.Logger
}

// New builds a server for eng.
func New(eng *engine.Engine, log zerolog.Logger) *Server {
	return &Server{eng: eng, log: log.With().Str("component", "api").Logger()}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	v1.GET("/tools", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"tools": Tools()}) })
	v1.POST("/tools/:name", s.dispatch)
	return r
}

func (s *Server) dispatch(c *gin.Context) {
	name := c.Param("name")
	t, ok := tools[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tool", "tool": name})
		return
	}
	out, err := t.run(c, s.eng)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Error().Err(err).Str("tool", name).Msg("tool failed")
		}
		c.JSON(status, gin.H{"error": err.Error(), "tool": name})
		return
	}
	c.JSON(http.StatusOK, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, engine.ErrInvalidRequest),
		errors.Is(err, strategy.ErrUnknownStrategy),
		errors.Is(err, backtest.ErrEmptySeries),
		errors.Is(err, backtest.ErrNotPairStrategy):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Serve runs the router on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("api listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
