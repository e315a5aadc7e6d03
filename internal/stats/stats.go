// Package stats provides the small numeric toolkit shared by the scanner, cointegration and strategy packages.
package stats

import "math"

const tiny = 1e-12

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Variance returns the population variance.
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	mean := Mean(data)
	var acc float64
	for _, v := range data {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(data))
}

// StdDev returns the population standard deviation.
func StdDev(data []float64) float64 {
	return math.Sqrt(Variance(data))
}

// SampleStdDev uses the n-1 denominator; 0 with fewer than two points.
func SampleStdDev(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	return math.Sqrt(Variance(data) * float64(n) / float64(n-1))
}

// ZScore returns (value-mean)/std, or 0 when std is effectively zero.
func ZScore(value, mean, std float64) float64 {
	if std < 1e-10 || math.IsNaN(std) {
		return 0
	}
	return (value - mean) / std
}

// Correlation computes the Pearson correlation coefficient.
// Mismatched, empty or zero-variance input yields 0.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}
	meanX := Mean(x)
	meanY := Mean(y)

	var num, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		num += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	den := math.Sqrt(varX * varY)
	if den < tiny {
		return 0
	}
	r := num / den
	return math.Max(-1, math.Min(1, r))
}

// LinearRegression fits y = slope*x + intercept by least squares.
func LinearRegression(x, y []float64) (slope, intercept float64) {
	if len(x) != len(y) || len(x) == 0 {
		return 0, 0
	}
	meanX := Mean(x)
	meanY := Mean(y)
	var num, den float64
	for i := range x {
		dx := x[i] - meanX
		num += dx * (y[i] - meanY)
		den += dx * dx
	}
	if den < tiny {
		return 0, meanY
	}
	slope = num / den
	return slope, meanY - slope*meanX
}

// Returns converts closes into simple returns. Non-positive previous closes produce a 0 return.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] > 0 {
			out[i-1] = closes[i]/closes[i-1] - 1
		}
	}
	return out
}

// LogReturns converts closes into log returns; non-positive prices produce a 0 return.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] > 0 && closes[i] > 0 {
			out[i-1] = math.Log(closes[i] / closes[i-1])
		}
	}
	return out
}

// SMA returns the mean of the last period values, or the whole slice if shorter.
func SMA(data []float64, period int) float64 {
	if period <= 0 || period > len(data) {
		period = len(data)
	}
	return Mean(data[len(data)-period:])
}

// Tail returns the last n values without copying.
func Tail(data []float64, n int) []float64 {
	if n <= 0 || n >= len(data) {
		return data
	}
	return data[len(data)-n:]
}

// AlignTail truncates both series to the shorter length, keeping the most recent points.
func AlignTail(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}

// Finite reports whether every value is a finite number.
func Finite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
