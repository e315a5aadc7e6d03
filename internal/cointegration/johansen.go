// Package cointegration implements a Johansen trace test for two price series.
//
// The test fits a vector error-correction model with one lagged difference
// and an unrestricted constant:
//
//	ΔY_t = Π·Y_{t-1} + Γ·ΔY_{t-1} + c + ε_t
//
// and solves the reduced-rank eigenproblem S10·S00⁻¹·S01·v = λ·S11·v in closed
// form. With two series every matrix is 2×2, so the whole test is O(T).
package cointegration

import (
	"errors"
	"fmt"
	"math"

	"statarb-go/internal/stats"
)

var (
	// ErrInsufficientSamples is returned for mismatched or too-short input.
	ErrInsufficientSamples = errors.New("insufficient samples")
	// ErrDegenerateSeries is returned when a moment matrix is near-singular (constant or collinear series).
	ErrDegenerateSeries = errors.New("degenerate series")
)

// DefaultMinObservations is the shortest series accepted by Test.
const DefaultMinObservations = 30

// CriticalValues holds the 90/95/99% quantiles of a test statistic.
type CriticalValues struct {
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Asymptotic quantiles for two variables with an unrestricted constant
// (Osterwald-Lenum 1992, as tabulated by MacKinnon-Haug-Michelis).
var (
	TraceRankZero    = CriticalValues{P90: 13.4294, P95: 15.4943, P99: 19.9349}
	TraceRankOne     = CriticalValues{P90: 2.7055, P95: 3.8415, P99: 6.6349}
	MaxEigenRankZero = CriticalValues{P90: 12.2971, P95: 14.2639, P99: 18.5200}
)

// Result is the outcome of one test; it is computed fresh on every call.
type Result struct {
	Eigenvalues       [2]float64     `json:"eigenvalues"`
	Eigenvector       [2]float64     `json:"eigenvector"`
	HedgeRatio        float64        `json:"hedge_ratio"`
	Intercept         float64        `json:"intercept"`
	TraceStatistic    float64        `json:"trace_statistic"`
	TraceRankOne      float64        `json:"trace_rank_one"`
	MaxEigenStatistic float64        `json:"max_eigen_statistic"`
	CriticalValues    CriticalValues `json:"critical_values"`
	IsCointegrated    bool           `json:"is_cointegrated"`
	Observations      int            `json:"observations"`
}

// Spread returns a - HedgeRatio*b - Intercept for the latest observation pair.
func (r Result) Spread(a, b float64) float64 {
	return a - r.HedgeRatio*b - r.Intercept
}

// Options tunes Test.
type Options struct {
	MinObservations int
}

// Test runs the Johansen trace test on aligned series a and b with default options.
func Test(a, b []float64) (Result, error) {
	return TestWithOptions(a, b, Options{})
}

// TestWithOptions runs the test. The eigenvector is normalised so its first
// component is 1; HedgeRatio β makes a - β·b the stationary combination.
func TestWithOptions(a, b []float64, opts Options) (Result, error) {
	minObs := opts.MinObservations
	if minObs <= 0 {
		minObs = DefaultMinObservations
	}
	if minObs < 10 {
		minObs = 10
	}
	if len(a) != len(b) {
		return Result{}, fmt.Errorf("%w: length mismatch %d vs %d", ErrInsufficientSamples, len(a), len(b))
	}
	if len(a) < minObs {
		return Result{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(a), minObs)
	}
	if !stats.Finite(a) || !stats.Finite(b) {
		return Result{}, fmt.Errorf("%w: non-finite input", ErrDegenerateSeries)
	}
	if nearConstant(a) || nearConstant(b) {
		return Result{}, fmt.Errorf("%w: near-constant series", ErrDegenerateSeries)
	}

	s00, s01, s11, n, err := momentMatrices(a, b)
	if err != nil {
		return Result{}, err
	}

	s00inv, ok := s00.inv()
	if !ok {
		return Result{}, fmt.Errorf("%w: S00 not invertible", ErrDegenerateSeries)
	}
	s11inv, ok := s11.inv()
	if !ok {
		return Result{}, fmt.Errorf("%w: S11 not invertible", ErrDegenerateSeries)
	}
	s10 := s01.t()
	m := s11inv.mul(s10).mul(s00inv).mul(s01)

	l1, l2 := eigen2(m)
	if l2 < 0 && l2 > -1e-9 {
		l2 = 0
	}
	if math.IsNaN(l1) || math.IsNaN(l2) || l2 < 0 || l1 >= 1-1e-12 {
		return Result{}, fmt.Errorf("%w: eigenvalues out of range (%g, %g)", ErrDegenerateSeries, l1, l2)
	}

	v := eigvec2(m, l1)
	if math.Abs(v[0]) < 1e-12*math.Max(1, math.Abs(v[1])) {
		return Result{}, fmt.Errorf("%w: cointegrating vector has no first-leg weight", ErrDegenerateSeries)
	}
	v = [2]float64{1, v[1] / v[0]}
	beta := -v[1]

	var spreadSum float64
	for i := range a {
		spreadSum += a[i] - beta*b[i]
	}

	nf := float64(n)
	trace := -nf * (math.Log(1-l1) + math.Log(1-l2))
	res := Result{
		Eigenvalues:       [2]float64{l1, l2},
		Eigenvector:       v,
		HedgeRatio:        beta,
		Intercept:         spreadSum / float64(len(a)),
		TraceStatistic:    trace,
		TraceRankOne:      -nf * math.Log(1-l2),
		MaxEigenStatistic: -nf * math.Log(1-l1),
		CriticalValues:    TraceRankZero,
		Observations:      n,
	}
	res.IsCointegrated = res.TraceStatistic > TraceRankZero.P95
	return res, nil
}

// momentMatrices builds S00, S01, S11 from the residuals of regressing ΔY_t
// and Y_{t-1} on ΔY_{t-1}, all demeaned to absorb the constant.
func momentMatrices(a, b []float64) (s00, s01, s11 mat2, n int, err error) {
	n = len(a) - 2
	z0 := make([][2]float64, n)
	z1 := make([][2]float64, n)
	z2 := make([][2]float64, n)
	var mean0, mean1, mean2 [2]float64
	for i := 0; i < n; i++ {
		t := i + 2
		z0[i] = [2]float64{a[t] - a[t-1], b[t] - b[t-1]}
		z1[i] = [2]float64{a[t-1], b[t-1]}
		z2[i] = [2]float64{a[t-1] - a[t-2], b[t-1] - b[t-2]}
		for k := 0; k < 2; k++ {
			mean0[k] += z0[i][k]
			mean1[k] += z1[i][k]
			mean2[k] += z2[i][k]
		}
	}
	nf := float64(n)
	for k := 0; k < 2; k++ {
		mean0[k] /= nf
		mean1[k] /= nf
		mean2[k] /= nf
	}

	var m00, m01, m11, m02, m12, m22 mat2
	for i := 0; i < n; i++ {
		x0 := [2]float64{z0[i][0] - mean0[0], z0[i][1] - mean0[1]}
		x1 := [2]float64{z1[i][0] - mean1[0], z1[i][1] - mean1[1]}
		x2 := [2]float64{z2[i][0] - mean2[0], z2[i][1] - mean2[1]}
		m00.outer(x0, x0)
		m01.outer(x0, x1)
		m11.outer(x1, x1)
		m02.outer(x0, x2)
		m12.outer(x1, x2)
		m22.outer(x2, x2)
	}

	if !m22.wellConditioned() {
		return s00, s01, s11, n, fmt.Errorf("%w: lagged differences are constant or collinear", ErrDegenerateSeries)
	}
	m22inv, _ := m22.inv()

	// Partial out ΔY_{t-1}: S_ij = (M_ij - M_i2·M22⁻¹·M2j) / n
	s00 = m00.sub(m02.mul(m22inv).mul(m02.t())).scale(1 / nf)
	s01 = m01.sub(m02.mul(m22inv).mul(m12.t())).scale(1 / nf)
	s11 = m11.sub(m12.mul(m22inv).mul(m12.t())).scale(1 / nf)

	if !s11.wellConditioned() {
		return s00, s01, s11, n, fmt.Errorf("%w: lagged levels are constant or collinear", ErrDegenerateSeries)
	}
	if !s00.wellConditioned() {
		return s00, s01, s11, n, fmt.Errorf("%w: differences are constant or collinear", ErrDegenerateSeries)
	}
	return s00, s01, s11, n, nil
}

func nearConstant(data []float64) bool {
	return stats.StdDev(data) <= 1e-9*math.Max(1, math.Abs(stats.Mean(data)))
}
