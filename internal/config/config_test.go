package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"statarb-go/internal/kalman"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "statarb-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "info" {
		t.Fatalf("expected default log level, got %s", cfg.App.LogLevel)
	}
	if len(cfg.Feed.Symbols) != 1 || cfg.Feed.Symbols[0] != "BTCUSDT" {
		t.Fatalf("expected BTCUSDT symbol, got %+v", cfg.Feed.Symbols)
	}
	if cfg.Feed.Provider != "binance" || cfg.Feed.MaxReconnects != 2 {
		t.Fatalf("unexpected feed section %+v", cfg.Feed)
	}
	if cfg.Feed.Interval() != time.Second {
		t.Fatalf("expected default 1s interval, got %s", cfg.Feed.Interval())
	}
	if cfg.Paper.StartingCash != 5000 {
		t.Fatalf("expected starting cash 5000, got %.2f", cfg.Paper.StartingCash)
	}
	if cfg.Risk.MaxNotionalPerTrade != 100 || cfg.Risk.MaxPositionPct != 0.1 {
		t.Fatalf("unexpected risk section %+v", cfg.Risk)
	}
	if cfg.Strategy.Mode != "pairs" {
		t.Fatalf("unexpected strategy mode: %s", cfg.Strategy.Mode)
	}
	if cfg.Strategy.Params.TrendThreshold != 0.05 || cfg.Strategy.Params.MomentumSlow != 20 {
		t.Fatalf("unexpected strategy params %+v", cfg.Strategy.Params)
	}
	if cfg.Pairs.EntryZ != 2.5 || cfg.Pairs.ExitZ != 0.5 || !cfg.Pairs.UseKalman {
		t.Fatalf("unexpected pairs section %+v", cfg.Pairs)
	}
	if cfg.Kalman.R != 0.5 {
		t.Fatalf("expected kalman r 0.5, got %v", cfg.Kalman.R)
	}
	if cfg.Scanner.MinCorrelation != 0.8 || cfg.Scanner.TopN != 3 || cfg.Scanner.MinSamples != 30 {
		t.Fatalf("unexpected scanner section %+v", cfg.Scanner)
	}
	if cfg.Backtest.Warmup != 40 || cfg.Backtest.Interval != time.Hour || cfg.Backtest.InitialCash != 5000 {
		t.Fatalf("unexpected backtest section %+v", cfg.Backtest)
	}
	if cfg.API.Addr != ":8080" {
		t.Fatalf("unexpected api addr: %s", cfg.API.Addr)
	}

	params := cfg.StrategyParams()
	if params.Pairs.EntryZ != 2.5 || !params.Pairs.UseKalman || params.Pairs.Kalman.R != 0.5 {
		t.Fatalf("unexpected strategy params %+v", params.Pairs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil || cfg.Paper.StartingCash != 10000 {
		t.Fatalf("expected defaults, got %+v, %v", cfg, err)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := Load("config.yaml")
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if cfg.Kalman != kalman.DefaultConfig() {
		t.Fatalf("sample kalman section drifted from defaults: %+v", cfg.Kalman)
	}
	if len(cfg.Feed.Symbols) != 3 || cfg.Backtest.Interval != time.Minute {
		t.Fatalf("unexpected sample config %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Defaults()
	cfg.Strategy.Mode = "ensemble"
	cfg.Pairs.UseKalman = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Strategy.Mode != "ensemble" || !loaded.Pairs.UseKalman || loaded.Backtest.Interval != time.Minute {
		t.Fatalf("round trip lost fields: %+v", loaded)
	}
	if err := Save(path, nil); err == nil {
		t.Fatalf("expected error saving nil config")
	}
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("STATARB_API_ADDR=:7070\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvStartingCash, "2500")
	t.Setenv(EnvStrategy, "pairs")
	t.Setenv(EnvAPIAddr, "")
	os.Unsetenv(EnvAPIAddr)

	cfg := Defaults()
	if err := ApplyEnv(cfg, envFile); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.App.LogLevel != "debug" || cfg.Strategy.Mode != "pairs" {
		t.Fatalf("env overrides not applied: %+v", cfg.App)
	}
	if cfg.Paper.StartingCash != 2500 || cfg.Backtest.InitialCash != 2500 {
		t.Fatalf("unexpected starting cash %.2f", cfg.Paper.StartingCash)
	}
	if cfg.API.Addr != ":7070" {
		t.Fatalf("expected dotenv api addr, got %s", cfg.API.Addr)
	}

	t.Setenv(EnvStartingCash, "lots")
	if err := ApplyEnv(Defaults(), envFile); err == nil {
		t.Fatalf("expected error for invalid starting cash")
	}
	t.Setenv(EnvStartingCash, "2500")
	if err := ApplyEnv(Defaults(), filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}
