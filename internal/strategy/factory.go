package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"statarb-go/internal/kalman"
	"statarb-go/internal/signal"
)

// ErrUnknownStrategy is returned for names that map to no registered strategy.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Input is what a strategy evaluates. Hedge is only read by the pairs strategy.
type Input struct {
	Symbol string
	Closes []float64
	Hedge  []float64
}

// Strategy defines behaviour shared by strategy implementations used by the engine.
type Strategy interface {
	Evaluate(in Input) signal.Signal
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	MinPoints         int         `yaml:"min_points" json:"min_points"`
	MomentumFast      int         `yaml:"momentum_fast" json:"momentum_fast"`
	MomentumSlow      int         `yaml:"momentum_slow" json:"momentum_slow"`
	MomentumThreshold float64     `yaml:"momentum_threshold" json:"momentum_threshold"`
	TrendLookback     int         `yaml:"trend_lookback" json:"trend_lookback"`
	TrendThreshold    float64     `yaml:"trend_threshold" json:"trend_threshold"`
	RSIPeriod         int         `yaml:"rsi_period" json:"rsi_period"`
	RSIOversold       float64     `yaml:"rsi_oversold" json:"rsi_oversold"`
	RSIOverbought     float64     `yaml:"rsi_overbought" json:"rsi_overbought"`
	EnsembleWeights   Weights     `yaml:"ensemble_weights" json:"ensemble_weights"`
	Pairs             PairsParams `yaml:"pairs" json:"pairs"`
}

// Weights are the ensemble votes of the single-asset members.
type Weights struct {
	Momentum      float64 `yaml:"momentum" json:"momentum"`
	Trend         float64 `yaml:"trend" json:"trend"`
	MeanReversion float64 `yaml:"mean_reversion" json:"mean_reversion"`
}

// PairsParams configures spread thresholds for the pairs strategy.
type PairsParams struct {
	EntryZ            float64       `yaml:"entry_z" json:"entry_z"`
	ExitZ             float64       `yaml:"exit_z" json:"exit_z"`
	UncointegratedCap float64       `yaml:"uncointegrated_cap" json:"uncointegrated_cap"`
	Lookback          int           `yaml:"lookback" json:"lookback"`
	UseKalman         bool          `yaml:"use_kalman" json:"use_kalman"`
	Kalman            kalman.Config `yaml:"kalman" json:"kalman"`
}

// DefaultParams returns the stock configuration.
func DefaultParams() Params {
	return Params{
		MinPoints:         20,
		MomentumFast:      5,
		MomentumSlow:      20,
		MomentumThreshold: 0.005,
		TrendLookback:     10,
		TrendThreshold:    0.02,
		RSIPeriod:         14,
		RSIOversold:       30,
		RSIOverbought:     70,
		EnsembleWeights:   Weights{Momentum: 1, Trend: 1, MeanReversion: 1},
		Pairs: PairsParams{
			EntryZ:            2.0,
			ExitZ:             0.5,
			UncointegratedCap: 0.3,
			Lookback:          60,
			Kalman:            kalman.DefaultConfig(),
		},
	}
}

// Kind enumerates the registered strategies.
type Kind int

const (
	KindMomentum Kind = iota
	KindTrend
	KindMeanReversion
	KindEnsemble
	KindPairs
)

type registration struct {
	name        string
	description string
	aliases     []string
	build       func(Params) Strategy
}

var registry = map[Kind]registration{
	KindMomentum: {
		name:        "momentum",
		description: "fast/slow moving-average crossover",
		aliases:     []string{"sma", "sma_crossover"},
		build:       func(p Params) Strategy { return NewMomentum(p.MomentumFast, p.MomentumSlow, p.MomentumThreshold, p.MinPoints) },
	},
	KindTrend: {
		name:        "trend",
		description: "rate of change over a lookback window",
		aliases:     []string{"trend_follow", "trend_follower"},
		build:       func(p Params) Strategy { return NewTrendFollower(p.TrendThreshold, p.TrendLookback, p.MinPoints) },
	},
	KindMeanReversion: {
		name:        "meanrev",
		description: "RSI oversold/overbought mean reversion",
		aliases:     []string{"mean_reversion", "rsi"},
		build: func(p Params) Strategy {
			return NewMeanReversion(p.RSIPeriod, p.RSIOversold, p.RSIOverbought, p.MinPoints)
		},
	},
	KindEnsemble: {
		name:        "ensemble",
		description: "weighted vote of momentum, trend and meanrev",
		aliases:     []string{"vote"},
		build:       func(p Params) Strategy { return NewEnsemble(p) },
	},
	KindPairs: {
		name:        "pairs",
		description: "cointegrated spread z-score (Johansen + optional Kalman hedge)",
		aliases:     []string{"stat_arb", "statarb"},
		build:       func(p Params) Strategy { return NewPairs(p.Pairs, p.MinPoints) },
	},
}

// String returns the registered name.
func (k Kind) String() string {
	if r, ok := registry[k]; ok {
		return r.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Description returns a one-line summary.
func (k Kind) Description() string { return registry[k].description }

// Kinds lists every registered kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind resolves a strategy name or alias, case-insensitively.
func ParseKind(name string) (Kind, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for k, r := range registry {
		if needle == r.name {
			return k, nil
		}
		for _, alias := range r.aliases {
			if needle == alias {
				return k, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Build returns a strategy implementation for kind, filling zero params from DefaultParams.
func Build(kind Kind, params Params) (Strategy, error) {
	r, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, kind)
	}
	return r.build(params.WithDefaults()), nil
}

// BuildNamed parses name and builds the strategy.
func BuildNamed(name string, params Params) (Strategy, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return Build(kind, params)
}

// WithDefaults fills zero-valued knobs from DefaultParams.
func (p Params) WithDefaults() Params {
	def := DefaultParams()
	if p.MinPoints <= 0 {
		p.MinPoints = def.MinPoints
	}
	if p.MomentumFast <= 0 {
		p.MomentumFast = def.MomentumFast
	}
	if p.MomentumSlow <= 0 {
		p.MomentumSlow = def.MomentumSlow
	}
	if p.MomentumThreshold <= 0 {
		p.MomentumThreshold = def.MomentumThreshold
	}
	if p.TrendLookback <= 0 {
		p.TrendLookback = def.TrendLookback
	}
	if p.TrendThreshold <= 0 {
		p.TrendThreshold = def.TrendThreshold
	}
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = def.RSIPeriod
	}
	if p.RSIOversold <= 0 {
		p.RSIOversold = def.RSIOversold
	}
	if p.RSIOverbought <= 0 {
		p.RSIOverbought = def.RSIOverbought
	}
	if p.EnsembleWeights == (Weights{}) {
		p.EnsembleWeights = def.EnsembleWeights
	}
	if p.Pairs.EntryZ <= 0 {
		p.Pairs.EntryZ = def.Pairs.EntryZ
	}
	if p.Pairs.ExitZ <= 0 {
		p.Pairs.ExitZ = def.Pairs.ExitZ
	}
	if p.Pairs.UncointegratedCap <= 0 {
		p.Pairs.UncointegratedCap = def.Pairs.UncointegratedCap
	}
	if p.Pairs.Lookback <= 0 {
		p.Pairs.Lookback = def.Pairs.Lookback
	}
	if p.Pairs.Kalman == (kalman.Config{}) {
		p.Pairs.Kalman = def.Pairs.Kalman
	}
	return p
}

func holdInsufficient(name string, have, need int) signal.Signal {
	s := signal.HoldSignal(name, fmt.Sprintf("insufficient data: have %d closes, need %d", have, need))
	s.Stats = map[string]float64{"points": float64(have)}
	return s
}
