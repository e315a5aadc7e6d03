package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"statarb-go/internal/backtest"
	"statarb-go/internal/config"
	"statarb-go/internal/engine"
	"statarb-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config")
	symbol := flag.String("symbol", "SERIES", "symbol of the first series")
	symbolB := flag.String("symbol-b", "HEDGE", "symbol of the second series (pairs)")
	strat := flag.String("strategy", "", "strategy to replay (defaults to strategy.mode)")
	csvPath := flag.String("csv", "", "CSV of closes (last column)")
	csvPathB := flag.String("csv-b", "", "CSV of closes for the second leg (pairs)")
	flag.Parse()

	log := util.NewConsoleLogger("info")
	if *csvPath == "" {
		log.Fatal().Msg("-csv is required")
	}
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := config.ApplyEnv(cfg); err != nil {
		log.Fatal().Err(err).Msg("apply env")
	}
	log = util.NewConsoleLogger(cfg.App.LogLevel)

	closes, err := backtest.LoadCloses(*csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *csvPath).Msg("read closes")
	}
	req := engine.BacktestRequest{Symbol: *symbol, Closes: closes, Strategy: *strat}
	if *csvPathB != "" {
		closesB, err := backtest.LoadCloses(*csvPathB)
		if err != nil {
			log.Fatal().Err(err).Str("path", *csvPathB).Msg("read hedge closes")
		}
		req.SymbolB = *symbolB
		req.ClosesB = closesB
	}

	eng, err := engine.New(engine.OptionsFromConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := eng.RunBacktest(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatal().Err(err).Msg("encode report")
	}
}
