// Package kalman tracks a time-varying hedge ratio between two price series
// with a two-state (β, intercept) random-walk Kalman filter.
package kalman

import (
	"errors"
	"fmt"
	"math"

	"statarb-go/internal/stats"
)

// ErrInvalidSeed is returned when a filter is seeded with a non-finite β or a
// covariance that is not positive definite.
var ErrInvalidSeed = errors.New("invalid filter seed")

// divergenceFloor is the innovation variance below which an update is refused.
const divergenceFloor = 1e-12

// Config holds the noise parameters of the filter.
type Config struct {
	QBeta      float64 `yaml:"q_beta" json:"q_beta"`
	QIntercept float64 `yaml:"q_intercept" json:"q_intercept"`
	R          float64 `yaml:"r" json:"r"`
	ZWindow    int     `yaml:"z_window" json:"z_window"`
}

// DefaultConfig returns slowly drifting state noise and unit measurement noise.
func DefaultConfig() Config {
	return Config{QBeta: 1e-5, QIntercept: 1e-3, R: 1.0, ZWindow: 30}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.QBeta < 0 || math.IsNaN(c.QBeta) {
		c.QBeta = def.QBeta
	}
	if c.QIntercept < 0 || math.IsNaN(c.QIntercept) {
		c.QIntercept = def.QIntercept
	}
	if !(c.R > 0) || math.IsInf(c.R, 0) {
		c.R = def.R
	}
	if c.ZWindow < 3 {
		c.ZWindow = def.ZWindow
	}
	return c
}

// Covariance is the 2×2 posterior covariance of [β, intercept].
type Covariance [2][2]float64

// FilterState is the full filter state after some number of steps. It is a
// value: Step returns the next state and never mutates its receiver.
type FilterState struct {
	Beta           float64
	Intercept      float64
	P              Covariance
	LastInnovation float64
	Steps          int
	Diverged       bool

	cfg         Config
	innovations stats.Window
}

// Estimate is the public view of one update.
type Estimate struct {
	Beta               float64    `json:"beta"`
	Intercept          float64    `json:"intercept"`
	Innovation         float64    `json:"innovation"`
	InnovationVariance float64    `json:"innovation_variance"`
	ZScore             float64    `json:"z_score"`
	Covariance         Covariance `json:"covariance"`
	Steps              int        `json:"steps"`
	Diverged           bool       `json:"diverged"`
}

// New seeds a filter with β, a zero intercept and covariance diag(1, 1).
func New(beta float64, cfg Config) (FilterState, error) {
	return Seed(beta, 0, Covariance{{1, 0}, {0, 1}}, cfg)
}

// Seed builds a filter from an explicit state and covariance.
func Seed(beta, intercept float64, p Covariance, cfg Config) (FilterState, error) {
	if math.IsNaN(beta) || math.IsInf(beta, 0) || math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return FilterState{}, fmt.Errorf("%w: non-finite state", ErrInvalidSeed)
	}
	det := p[0][0]*p[1][1] - p[0][1]*p[1][0]
	if !(p[0][0] > 0) || !(p[1][1] > 0) || !(det > 0) || math.IsInf(det, 0) {
		return FilterState{}, fmt.Errorf("%w: covariance must be positive definite", ErrInvalidSeed)
	}
	cfg = cfg.normalized()
	return FilterState{
		Beta:        beta,
		Intercept:   intercept,
		P:           p,
		cfg:         cfg,
		innovations: stats.NewWindow(cfg.ZWindow),
	}, nil
}

// Config returns the (normalized) noise parameters.
func (f FilterState) Config() Config { return f.cfg }

// Step folds in one observation pair and returns the next state with its
// estimate. A non-finite observation or an innovation variance at or below
// the divergence floor leaves the state unchanged apart from Diverged.
// A state built without Seed gets the default noise parameters.
func (f FilterState) Step(a, b float64) (FilterState, Estimate) {
	if f.innovations.Cap() == 0 {
		f.cfg = f.cfg.normalized()
		f.innovations = stats.NewWindow(f.cfg.ZWindow)
	}
	next := f
	next.innovations = f.innovations.Clone()

	if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
		next.Diverged = true
		return next, next.estimate(0, 0, 0)
	}

	// predict
	p := f.P
	p[0][0] += f.cfg.QBeta
	p[1][1] += f.cfg.QIntercept

	h := [2]float64{b, 1}
	e := a - (f.Beta*b + f.Intercept)
	ph := [2]float64{p[0][0]*h[0] + p[0][1]*h[1], p[1][0]*h[0] + p[1][1]*h[1]}
	s := h[0]*ph[0] + h[1]*ph[1] + f.cfg.R
	if !(s > divergenceFloor) || math.IsInf(s, 0) {
		next.Diverged = true
		return next, next.estimate(e, s, 0)
	}

	k := [2]float64{ph[0] / s, ph[1] / s}
	next.Beta = f.Beta + k[0]*e
	next.Intercept = f.Intercept + k[1]*e

	// P = (I - K·H)·P, using P·Hᵀ = (H·P)ᵀ for symmetric P
	var np Covariance
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			np[i][j] = p[i][j] - k[i]*ph[j]
		}
	}
	off := (np[0][1] + np[1][0]) / 2
	np[0][1], np[1][0] = off, off
	next.P = np

	next.LastInnovation = e
	next.Steps = f.Steps + 1
	next.Diverged = false
	next.innovations.Push(e)

	var z float64
	if next.innovations.Len() >= 3 {
		z = stats.ZScore(e, 0, next.innovations.StdDev())
	} else {
		z = e / math.Sqrt(s)
	}
	return next, next.estimate(e, s, z)
}

func (f FilterState) estimate(e, s, z float64) Estimate {
	return Estimate{
		Beta:               f.Beta,
		Intercept:          f.Intercept,
		Innovation:         e,
		InnovationVariance: s,
		ZScore:             z,
		Covariance:         f.P,
		Steps:              f.Steps,
		Diverged:           f.Diverged,
	}
}

// Replay folds the aligned tails of a and b into f and returns the final state
// and the estimate of the last step.
func (f FilterState) Replay(a, b []float64) (FilterState, Estimate) {
	a, b = stats.AlignTail(a, b)
	est := f.estimate(f.LastInnovation, 0, 0)
	for i := range a {
		f, est = f.Step(a[i], b[i])
	}
	return f, est
}
