package strategy

import (
	"fmt"
	"strings"

	"statarb-go/internal/signal"
)

type member struct {
	strategy Strategy
	weight   float64
}

// Ensemble runs the single-asset strategies and takes a weighted vote.
type Ensemble struct {
	members []member
}

// NewEnsemble wires momentum, trend and meanrev with the configured weights.
// Members with a non-positive weight are left out.
func NewEnsemble(p Params) *Ensemble {
	p = p.WithDefaults()
	candidates := []member{
		{NewMomentum(p.MomentumFast, p.MomentumSlow, p.MomentumThreshold, p.MinPoints), p.EnsembleWeights.Momentum},
		{NewTrendFollower(p.TrendThreshold, p.TrendLookback, p.MinPoints), p.EnsembleWeights.Trend},
		{NewMeanReversion(p.RSIPeriod, p.RSIOversold, p.RSIOverbought, p.MinPoints), p.EnsembleWeights.MeanReversion},
	}
	e := &Ensemble{}
	for _, c := range candidates {
		if c.weight > 0 {
			e.members = append(e.members, c)
		}
	}
	return e
}

// Name returns the identifier for the strategy implementation.
func (e *Ensemble) Name() string { return "ensemble" }

// Evaluate tallies member weights per action. HOLD votes count, and a tie for
// the top weight resolves to HOLD. Confidence is the winner's weight share
// times the mean confidence of the members that voted for it.
func (e *Ensemble) Evaluate(in Input) signal.Signal {
	if len(e.members) == 0 {
		return signal.HoldSignal(e.Name(), "no weighted members")
	}
	weights := map[signal.Action]float64{}
	confSum := map[signal.Action]float64{}
	votes := map[signal.Action]int{}
	var total float64
	var parts []string
	st := map[string]float64{}
	for _, m := range e.members {
		s := m.strategy.Evaluate(in)
		weights[s.Action] += m.weight
		confSum[s.Action] += s.Confidence
		votes[s.Action]++
		total += m.weight
		parts = append(parts, fmt.Sprintf("%s=%s", m.strategy.Name(), s.Action))
		st[m.strategy.Name()+"_confidence"] = s.Confidence
	}

	winner := signal.Hold
	best := -1.0
	tie := false
	for _, action := range []signal.Action{signal.Buy, signal.Sell, signal.Hold} {
		w, ok := weights[action]
		if !ok {
			continue
		}
		switch {
		case w > best:
			winner, best, tie = action, w, false
		case w == best:
			tie = true
		}
	}
	if tie {
		winner = signal.Hold
	}
	st["buy_weight"] = weights[signal.Buy]
	st["sell_weight"] = weights[signal.Sell]
	st["hold_weight"] = weights[signal.Hold]

	reason := strings.Join(parts, " ")
	if winner == signal.Hold {
		return signal.Signal{Action: signal.Hold, Strategy: e.Name(), Reason: reason, Stats: st}
	}
	share := weights[winner] / total
	meanConf := confSum[winner] / float64(votes[winner])
	return signal.Signal{
		Action:     winner,
		Confidence: signal.ClampConfidence(share * meanConf),
		Strategy:   e.Name(),
		Reason:     reason,
		Stats:      st,
	}
}
