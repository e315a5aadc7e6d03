package cointegration

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func geometricWalk(rng *rand.Rand, n int, start, vol float64) []float64 {
	out := make([]float64, n)
	px := start
	for i := range out {
		px *= math.Exp(vol * rng.NormFloat64())
		out[i] = px
	}
	return out
}

func cointegratedPair(seed int64, n int) (a, b []float64) {
	rng := rand.New(rand.NewSource(seed))
	b = geometricWalk(rng, n, 100, 0.01)
	a = make([]float64, n)
	for i := range b {
		a[i] = 10 + 1.5*b[i] + 0.5*rng.NormFloat64()
	}
	return a, b
}

func TestCointegratedPairDetected(t *testing.T) {
	a, b := cointegratedPair(7, 250)

	res, err := Test(a, b)
	if err != nil {
		t.Fatalf("Test returned error: %v", err)
	}
	if !res.IsCointegrated {
		t.Fatalf("expected cointegration, trace=%.2f", res.TraceStatistic)
	}
	if math.Abs(res.HedgeRatio-1.5) > 0.05 {
		t.Fatalf("hedge ratio %.4f not within 0.05 of 1.5", res.HedgeRatio)
	}
	if math.Abs(res.Intercept-10) > 5 {
		t.Fatalf("intercept %.4f far from 10", res.Intercept)
	}
	if res.Eigenvector[0] != 1 {
		t.Fatalf("eigenvector not normalised: %v", res.Eigenvector)
	}
	if res.Eigenvalues[0] < res.Eigenvalues[1] || res.Eigenvalues[1] < 0 || res.Eigenvalues[0] >= 1 {
		t.Fatalf("eigenvalues out of order/range: %v", res.Eigenvalues)
	}
	if res.TraceStatistic < res.MaxEigenStatistic {
		t.Fatalf("trace %.3f must dominate max-eigen %.3f", res.TraceStatistic, res.MaxEigenStatistic)
	}
	if res.CriticalValues != TraceRankZero {
		t.Fatalf("unexpected critical values %+v", res.CriticalValues)
	}
	if res.Observations != len(a)-2 {
		t.Fatalf("expected %d observations, got %d", len(a)-2, res.Observations)
	}
	if s := res.Spread(a[len(a)-1], b[len(b)-1]); math.Abs(s) > 3 {
		t.Fatalf("latest spread %.3f unexpectedly large", s)
	}
}

func TestIndependentWalksRarelyCointegrated(t *testing.T) {
	const trials = 20
	falsePositives := 0
	for seed := int64(1); seed <= trials; seed++ {
		rng := rand.New(rand.NewSource(seed * 101))
		a := geometricWalk(rng, 250, 100, 0.01)
		b := geometricWalk(rng, 250, 50, 0.01)
		res, err := Test(a, b)
		if err != nil {
			t.Fatalf("seed %d: unexpected error %v", seed, err)
		}
		if res.IsCointegrated {
			falsePositives++
		}
	}
	if falsePositives > 6 {
		t.Fatalf("too many false positives: %d of %d", falsePositives, trials)
	}
}

func TestInsufficientSamples(t *testing.T) {
	a, b := cointegratedPair(3, 20)
	if _, err := Test(a, b); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
	a, b = cointegratedPair(3, 60)
	if _, err := Test(a, b[:59]); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples for mismatched lengths, got %v", err)
	}
	if _, err := TestWithOptions(a[:25], b[:25], Options{MinObservations: 20}); err != nil {
		t.Fatalf("expected custom minimum to accept 25 points, got %v", err)
	}
}

func TestDegenerateSeries(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	walk := geometricWalk(rng, 100, 100, 0.01)

	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 42
	}
	if _, err := Test(flat, walk); !errors.Is(err, ErrDegenerateSeries) {
		t.Fatalf("expected ErrDegenerateSeries for constant series, got %v", err)
	}

	exact := make([]float64, 100)
	for i := range walk {
		exact[i] = 10 + 1.5*walk[i]
	}
	if _, err := Test(exact, walk); !errors.Is(err, ErrDegenerateSeries) {
		t.Fatalf("expected ErrDegenerateSeries for collinear series, got %v", err)
	}

	withNaN := append([]float64(nil), walk...)
	withNaN[50] = math.NaN()
	if _, err := Test(withNaN, walk); !errors.Is(err, ErrDegenerateSeries) {
		t.Fatalf("expected ErrDegenerateSeries for NaN input, got %v", err)
	}
}

func TestEigen2(t *testing.T) {
	m := mat2{{2, 1}, {1, 2}}
	l1, l2 := eigen2(m)
	if math.Abs(l1-3) > 1e-12 || math.Abs(l2-1) > 1e-12 {
		t.Fatalf("unexpected eigenvalues %v %v", l1, l2)
	}
	v := eigvec2(m, l1)
	if math.Abs(v[0]-v[1]) > 1e-12 {
		t.Fatalf("unexpected eigenvector %v", v)
	}
	if _, ok := (mat2{{1, 2}, {2, 4}}).inv(); ok {
		t.Fatalf("singular matrix must not invert")
	}
}
