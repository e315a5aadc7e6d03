// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"statarb-go/internal/backtest"
	"statarb-go/internal/kalman"
	"statarb-go/internal/scanner"
	"statarb-go/internal/strategy"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed selects the tick source and the symbols it streams.
type Feed struct {
	Provider       string   `yaml:"provider"`
	Symbols        []string `yaml:"symbols"`
	URL            string   `yaml:"url"`
	IntervalMs     int      `yaml:"interval_ms"`
	MaxReconnects  int      `yaml:"max_reconnects"`
	ReconnectEvery int      `yaml:"reconnect_every_ms"`
	Seed           int64    `yaml:"seed"`
}

// Interval is IntervalMs as a duration.
func (f Feed) Interval() time.Duration { return time.Duration(f.IntervalMs) * time.Millisecond }

// Risk encodes guard-rails for how much size the executor may take on.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
	MaxPositionPct      float64 `yaml:"max_position_pct"`
}

// StrategyParams groups tunable knobs for the single-series strategies.
type StrategyParams struct {
	MinPoints         int     `yaml:"min_points"`
	MomentumFast      int     `yaml:"momentum_fast"`
	MomentumSlow      int     `yaml:"momentum_slow"`
	MomentumThreshold float64 `yaml:"momentum_threshold"`
	TrendLookback     int     `yaml:"trend_lookback"`
	TrendThreshold    float64 `yaml:"trend_threshold"`
	RSIPeriod         int     `yaml:"rsi_period"`
	RSIOversold       float64 `yaml:"rsi_oversold"`
	RSIOverbought     float64 `yaml:"rsi_overbought"`
	WeightMomentum    float64 `yaml:"weight_momentum"`
	WeightTrend       float64 `yaml:"weight_trend"`
	WeightMeanRev     float64 `yaml:"weight_meanrev"`
}

// Strategy specifies which strategy is active along with the parameter bundle.
type Strategy struct {
	Mode   string         `yaml:"mode"`
	Params StrategyParams `yaml:"params"`
}

// Pairs tunes the spread strategy.
type Pairs struct {
	EntryZ            float64 `yaml:"entry_z"`
	ExitZ             float64 `yaml:"exit_z"`
	UncointegratedCap float64 `yaml:"uncointegrated_cap"`
	Lookback          int     `yaml:"lookback"`
	UseKalman         bool    `yaml:"use_kalman"`
}

// Paper captures paper-trading account settings.
type Paper struct {
	StartingCash   float64 `yaml:"starting_cash"`
	BufferCapacity int     `yaml:"buffer_capacity"`
	JournalPath    string  `yaml:"journal_path"`
}

// API configures the HTTP tool dispatcher.
type API struct {
	Addr string `yaml:"addr"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App             `yaml:"app"`
	Feed     Feed            `yaml:"feed"`
	Paper    Paper           `yaml:"paper"`
	Risk     Risk            `yaml:"risk"`
	Strategy Strategy        `yaml:"strategy"`
	Pairs    Pairs           `yaml:"pairs"`
	Kalman   kalman.Config   `yaml:"kalman"`
	Scanner  scanner.Options `yaml:"scanner"`
	Backtest backtest.Config `yaml:"backtest"`
	API      API             `yaml:"api"`
}

// Defaults returns a runnable configuration.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	setString(&c.App.Name, "statarb")
	setString(&c.App.Env, "dev")
	setString(&c.App.MetricsAddr, ":9090")
	setString(&c.App.LogLevel, "info")

	setString(&c.Feed.Provider, "stub")
	if len(c.Feed.Symbols) == 0 {
		c.Feed.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	}
	setInt(&c.Feed.IntervalMs, 1000)
	setInt(&c.Feed.MaxReconnects, 5)
	setInt(&c.Feed.ReconnectEvery, 2000)

	setFloat(&c.Paper.StartingCash, 10000)
	setInt(&c.Paper.BufferCapacity, 200)

	setFloat(&c.Risk.MaxPositionPct, 0.1)

	def := strategy.DefaultParams()
	setString(&c.Strategy.Mode, strategy.KindMomentum.String())
	p := &c.Strategy.Params
	setInt(&p.MinPoints, def.MinPoints)
	setInt(&p.MomentumFast, def.MomentumFast)
	setInt(&p.MomentumSlow, def.MomentumSlow)
	setFloat(&p.MomentumThreshold, def.MomentumThreshold)
	setInt(&p.TrendLookback, def.TrendLookback)
	setFloat(&p.TrendThreshold, def.TrendThreshold)
	setInt(&p.RSIPeriod, def.RSIPeriod)
	setFloat(&p.RSIOversold, def.RSIOversold)
	setFloat(&p.RSIOverbought, def.RSIOverbought)
	setFloat(&p.WeightMomentum, def.EnsembleWeights.Momentum)
	setFloat(&p.WeightTrend, def.EnsembleWeights.Trend)
	setFloat(&p.WeightMeanRev, def.EnsembleWeights.MeanReversion)

	setFloat(&c.Pairs.EntryZ, def.Pairs.EntryZ)
	setFloat(&c.Pairs.ExitZ, def.Pairs.ExitZ)
	setFloat(&c.Pairs.UncointegratedCap, def.Pairs.UncointegratedCap)
	setInt(&c.Pairs.Lookback, def.Pairs.Lookback)

	if c.Kalman == (kalman.Config{}) {
		c.Kalman = kalman.DefaultConfig()
	}
	setInt(&c.Scanner.MinSamples, scanner.DefaultMinSamples)

	bt := backtest.DefaultConfig()
	setFloat(&c.Backtest.InitialCash, c.Paper.StartingCash)
	setInt(&c.Backtest.Warmup, bt.Warmup)
	setFloat(&c.Backtest.MaxPositionPct, c.Risk.MaxPositionPct)
	setInt(&c.Backtest.RefitEvery, bt.RefitEvery)
	setInt(&c.Backtest.BufferCapacity, bt.BufferCapacity)
	if c.Backtest.Interval == 0 {
		c.Backtest.Interval = bt.Interval
	}

	setString(&c.API.Addr, ":8080")
}

// StrategyParams converts the YAML knobs to strategy parameters.
func (c *Config) StrategyParams() strategy.Params {
	p := c.Strategy.Params
	return strategy.Params{
		MinPoints:         p.MinPoints,
		MomentumFast:      p.MomentumFast,
		MomentumSlow:      p.MomentumSlow,
		MomentumThreshold: p.MomentumThreshold,
		TrendLookback:     p.TrendLookback,
		TrendThreshold:    p.TrendThreshold,
		RSIPeriod:         p.RSIPeriod,
		RSIOversold:       p.RSIOversold,
		RSIOverbought:     p.RSIOverbought,
		EnsembleWeights: strategy.Weights{
			Momentum:      p.WeightMomentum,
			Trend:         p.WeightTrend,
			MeanReversion: p.WeightMeanRev,
		},
		Pairs: strategy.PairsParams{
			EntryZ:            c.Pairs.EntryZ,
			ExitZ:             c.Pairs.ExitZ,
			UncointegratedCap: c.Pairs.UncointegratedCap,
			Lookback:          c.Pairs.Lookback,
			UseKalman:         c.Pairs.UseKalman,
			Kalman:            c.Kalman,
		},
	}.WithDefaults()
}

// Load reads a YAML file from disk, hydrates a Config struct and fills zero values with defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

// LoadOrDefault is Load that falls back to Defaults when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Environment overrides.
const (
	EnvLogLevel     = "STATARB_LOG_LEVEL"
	EnvMetricsAddr  = "STATARB_METRICS_ADDR"
	EnvAPIAddr      = "STATARB_API_ADDR"
	EnvStartingCash = "STATARB_STARTING_CASH"
	EnvStrategy     = "STATARB_STRATEGY"
)

// ApplyEnv loads the optional dotenv files (".env" when none are named) and
// overrides matching fields from the process environment.
func ApplyEnv(cfg *Config, files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env: %w", err)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.App.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMetricsAddr)); v != "" {
		cfg.App.MetricsAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIAddr)); v != "" {
		cfg.API.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStrategy)); v != "" {
		cfg.Strategy.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStartingCash)); v != "" {
		cash, err := strconv.ParseFloat(v, 64)
		if err != nil || cash < 0 {
			return fmt.Errorf("%s: invalid amount %q", EnvStartingCash, v)
		}
		cfg.Paper.StartingCash = cash
		cfg.Backtest.InitialCash = cash
	}
	return nil
}

func setString(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}
