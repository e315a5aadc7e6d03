package strategy

import (
	"fmt"
	"math"

	"statarb-go/internal/cointegration"
	"statarb-go/internal/kalman"
	"statarb-go/internal/signal"
	"statarb-go/internal/stats"
)

// PairResult carries the spread decision together with the statistics behind it.
type PairResult struct {
	Signal      signal.Signal         `json:"signal"`
	Johansen    *cointegration.Result `json:"johansen,omitempty"`
	JohansenErr string                `json:"johansen_error,omitempty"`
	Kalman      *kalman.Estimate      `json:"kalman,omitempty"`
	ZScore      float64               `json:"z_score"`
}

// Pairs trades the spread A - βB of two aligned series. SELL means the spread
// is rich (sell A, buy B); BUY means it is cheap (buy A, sell B).
type Pairs struct {
	params    PairsParams
	minPoints int
}

// NewPairs builds the pairs strategy.
func NewPairs(params PairsParams, minPoints int) *Pairs {
	def := DefaultParams()
	if params.EntryZ <= 0 {
		params.EntryZ = def.Pairs.EntryZ
	}
	if params.ExitZ <= 0 || params.ExitZ >= params.EntryZ {
		params.ExitZ = math.Min(def.Pairs.ExitZ, params.EntryZ/2)
	}
	if params.UncointegratedCap <= 0 || params.UncointegratedCap > 1 {
		params.UncointegratedCap = def.Pairs.UncointegratedCap
	}
	if params.Lookback <= 1 {
		params.Lookback = def.Pairs.Lookback
	}
	if params.Kalman == (kalman.Config{}) {
		params.Kalman = def.Pairs.Kalman
	}
	if minPoints < 10 {
		minPoints = def.MinPoints
	}
	return &Pairs{params: params, minPoints: minPoints}
}

// Name returns the identifier for the strategy implementation.
func (p *Pairs) Name() string { return "pairs" }

// Params returns the effective thresholds.
func (p *Pairs) Params() PairsParams { return p.params }

// Evaluate treats in.Closes as leg A and in.Hedge as leg B.
func (p *Pairs) Evaluate(in Input) signal.Signal {
	return p.EvaluatePair(in.Closes, in.Hedge).Signal
}

// EvaluatePair runs the cointegration test on the aligned tails of a and b and
// scores the latest spread, optionally with a Kalman-tracked hedge ratio.
func (p *Pairs) EvaluatePair(a, b []float64) PairResult {
	a, b = stats.AlignTail(a, b)
	if len(a) < p.minPoints {
		return PairResult{Signal: holdInsufficient(p.Name(), len(a), p.minPoints)}
	}

	joh, err := cointegration.TestWithOptions(a, b, cointegration.Options{MinObservations: p.minPoints})
	if err != nil {
		s := signal.HoldSignal(p.Name(), "cointegration test failed: "+err.Error())
		s.Stats = map[string]float64{"degenerate": 1}
		return PairResult{Signal: s, JohansenErr: err.Error()}
	}
	res := PairResult{Johansen: &joh}

	var z float64
	if p.params.UseKalman {
		seed, err := kalman.Seed(joh.HedgeRatio, joh.Intercept, kalman.Covariance{{1, 0}, {0, 1}}, p.params.Kalman)
		if err != nil {
			s := signal.HoldSignal(p.Name(), "kalman seed rejected: "+err.Error())
			s.Stats = map[string]float64{"degenerate": 1}
			res.Signal = s
			return res
		}
		_, est := seed.Replay(a, b)
		res.Kalman = &est
		if est.Diverged {
			s := signal.HoldSignal(p.Name(), "kalman filter diverged")
			s.Stats = map[string]float64{"diverged": 1}
			res.Signal = s
			return res
		}
		z = est.ZScore
	} else {
		window := p.params.Lookback
		if window > len(a) {
			window = len(a)
		}
		spread := make([]float64, window)
		offset := len(a) - window
		for i := range spread {
			spread[i] = joh.Spread(a[offset+i], b[offset+i])
		}
		z = stats.ZScore(spread[window-1], stats.Mean(spread), stats.StdDev(spread))
	}

	res.Signal = p.Decide(z, joh.IsCointegrated)
	res.ZScore = res.Signal.Stats["z_score"]
	res.Signal.Stats["hedge_ratio"] = joh.HedgeRatio
	res.Signal.Stats["trace_statistic"] = joh.TraceStatistic
	if res.Kalman != nil {
		res.Signal.Stats["kalman_beta"] = res.Kalman.Beta
	}
	return res
}

// Decide maps a spread z-score to an action. Outside the entry band the spread
// is traded back toward the mean; inside the exit band the pair should be
// flat (HOLD with stats["exit"] = 1). Without cointegration confidence is capped.
func (p *Pairs) Decide(z float64, cointegrated bool) signal.Signal {
	st := map[string]float64{"z_score": z, "cointegrated": 0}
	if cointegrated {
		st["cointegrated"] = 1
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		s := signal.HoldSignal(p.Name(), "non-finite z-score")
		st["z_score"] = 0
		s.Stats = st
		return s
	}

	var s signal.Signal
	abs := math.Abs(z)
	switch {
	case z > p.params.EntryZ:
		s = signal.Signal{Action: signal.Sell, Confidence: clamp(abs/(2*p.params.EntryZ), 0, 1),
			Reason: fmt.Sprintf("spread rich z=%.2f > %.2f", z, p.params.EntryZ)}
	case z < -p.params.EntryZ:
		s = signal.Signal{Action: signal.Buy, Confidence: clamp(abs/(2*p.params.EntryZ), 0, 1),
			Reason: fmt.Sprintf("spread cheap z=%.2f < -%.2f", z, p.params.EntryZ)}
	case abs < p.params.ExitZ:
		st["exit"] = 1
		s = signal.Signal{Action: signal.Hold, Confidence: clamp(1-abs/p.params.ExitZ, 0, 1),
			Reason: fmt.Sprintf("spread reverted |z|=%.2f < %.2f", abs, p.params.ExitZ)}
	default:
		s = signal.Signal{Action: signal.Hold, Reason: fmt.Sprintf("no entry |z|=%.2f", abs)}
	}
	if !cointegrated && s.Confidence > p.params.UncointegratedCap {
		s.Confidence = p.params.UncointegratedCap
	}
	s.Strategy = p.Name()
	s.Stats = st
	return s
}
