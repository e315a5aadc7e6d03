package cointegration

import "math"

// mat2 is a dense 2×2 matrix, row-major.
type mat2 [2][2]float64

func (m mat2) mul(o mat2) mat2 {
	return mat2{
		{m[0][0]*o[0][0] + m[0][1]*o[1][0], m[0][0]*o[0][1] + m[0][1]*o[1][1]},
		{m[1][0]*o[0][0] + m[1][1]*o[1][0], m[1][0]*o[0][1] + m[1][1]*o[1][1]},
	}
}

func (m mat2) sub(o mat2) mat2 {
	return mat2{
		{m[0][0] - o[0][0], m[0][1] - o[0][1]},
		{m[1][0] - o[1][0], m[1][1] - o[1][1]},
	}
}

func (m mat2) scale(s float64) mat2 {
	return mat2{{m[0][0] * s, m[0][1] * s}, {m[1][0] * s, m[1][1] * s}}
}

func (m mat2) t() mat2 {
	return mat2{{m[0][0], m[1][0]}, {m[0][1], m[1][1]}}
}

func (m mat2) det() float64   { return m[0][0]*m[1][1] - m[0][1]*m[1][0] }
func (m mat2) trace() float64 { return m[0][0] + m[1][1] }

// inv returns the inverse; ok is false when the determinant is zero or not finite.
func (m mat2) inv() (mat2, bool) {
	d := m.det()
	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return mat2{}, false
	}
	return mat2{{m[1][1] / d, -m[0][1] / d}, {-m[1][0] / d, m[0][0] / d}}, true
}

// wellConditioned reports whether a symmetric positive semi-definite moment
// matrix is far enough from singular to invert safely. The determinant is
// compared against the product of the diagonal (1-ρ² for a covariance), so
// series on very different price scales are not mistaken for collinear ones.
func (m mat2) wellConditioned() bool {
	d0, d1 := m[0][0], m[1][1]
	if !(d0 > 0) || !(d1 > 0) || math.IsInf(d0, 0) || math.IsInf(d1, 0) {
		return false
	}
	return m.det()/(d0*d1) > 1e-10
}

// outer accumulates x·yᵀ into m.
func (m *mat2) outer(x, y [2]float64) {
	m[0][0] += x[0] * y[0]
	m[0][1] += x[0] * y[1]
	m[1][0] += x[1] * y[0]
	m[1][1] += x[1] * y[1]
}

// eigen2 returns the eigenvalues (descending) of a 2×2 matrix whose
// eigenvalues are known to be real, solved via the characteristic quadratic.
func eigen2(m mat2) (l1, l2 float64) {
	half := m.trace() / 2
	disc := half*half - m.det()
	if disc < 0 {
		disc = 0
	}
	root := math.Sqrt(disc)
	return half + root, half - root
}

// eigvec2 returns a (non-normalised) eigenvector of m for eigenvalue l.
func eigvec2(m mat2, l float64) [2]float64 {
	a := [2]float64{m[0][1], l - m[0][0]}
	b := [2]float64{l - m[1][1], m[1][0]}
	if math.Hypot(a[0], a[1]) >= math.Hypot(b[0], b[1]) {
		if a[0] == 0 && a[1] == 0 {
			return [2]float64{1, 0}
		}
		return a
	}
	return b
}
