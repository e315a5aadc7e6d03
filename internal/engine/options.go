package engine

import (
	"statarb-go/internal/config"
	"statarb-go/internal/risk"
)

// OptionsFromConfig maps the YAML configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		InitialCash:    cfg.Paper.StartingCash,
		BufferCapacity: cfg.Paper.BufferCapacity,
		MaxPositionPct: cfg.Risk.MaxPositionPct,
		Limits:         risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade},
		Strategy:       cfg.Strategy.Mode,
		Params:         cfg.StrategyParams(),
		Scanner:        cfg.Scanner,
		Backtest:       cfg.Backtest,
	}
}
