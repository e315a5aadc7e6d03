package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"statarb-go/internal/config"
	"statarb-go/internal/engine"
	"statarb-go/internal/exchange"
	"statarb-go/internal/metrics"
	"statarb-go/internal/paper"
	sig "statarb-go/internal/signal"
	"statarb-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config")
	flag.Parse()

	boot := util.NewLogger("info")
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := config.ApplyEnv(cfg); err != nil {
		boot.Fatal().Err(err).Msg("apply env")
	}
	log := util.NewLogger(cfg.App.LogLevel).With().Str("app", cfg.App.Name).Logger()

	srv := metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := engine.OptionsFromConfig(cfg)
	if cfg.Paper.JournalPath != "" {
		journal, err := paper.NewJSONLRecorder(cfg.Paper.JournalPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Paper.JournalPath).Msg("open trade journal")
		}
		defer journal.Close()
		opts.Recorder = journal
	}
	eng, err := engine.New(opts, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}

	feed := exchange.NewFeed(cfg.Feed.Provider, cfg.Feed.Symbols, log,
		exchange.WithInterval(cfg.Feed.Interval()),
		exchange.WithURL(cfg.Feed.URL),
		exchange.WithReconnects(cfg.Feed.MaxReconnects, time.Duration(cfg.Feed.ReconnectEvery)*time.Millisecond),
		exchange.WithSeed(cfg.Feed.Seed),
	)
	ticks := make(chan sig.Tick, 1024)

	go func() {
		if err := feed.Run(ctx, ticks); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	log.Info().Str("strategy", eng.ActiveStrategy().String()).Float64("cash", cfg.Paper.StartingCash).Msg("paper engine started")
	for {
		select {
		case <-ctx.Done():
			summary := eng.Portfolio()
			log.Info().Float64("value", summary.PortfolioValue).Float64("pnl", summary.PnL).
				Int("trades", summary.TradeCount).Msg("shutting down")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
			_ = srv.Shutdown(shutdownCtx)
			stop()
			return
		case tk := <-ticks:
			eng.FeedPrice(tk.Symbol, tk.Price)
			if _, _, err := eng.TradeOnSignal(tk.Symbol); err != nil {
				log.Warn().Err(err).Str("sym", tk.Symbol).Msg("signal evaluation failed")
			}
		}
	}
}
