package strategy

import (
	"math"
	"math/rand"
)

func ramp(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func flat(px float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = px
	}
	return out
}

func cointegratedPair(seed int64, n int) (a, b []float64) {
	rng := rand.New(rand.NewSource(seed))
	a = make([]float64, n)
	b = make([]float64, n)
	px := 100.0
	for i := range b {
		px *= math.Exp(0.01 * rng.NormFloat64())
		b[i] = px
		a[i] = 10 + 1.5*px + 0.5*rng.NormFloat64()
	}
	return a, b
}
