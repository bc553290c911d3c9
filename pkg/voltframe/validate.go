package voltframe

import "math"

// FiniteVector reports whether every element of v is finite (no NaN, no Inf).
// This is the only validation the store performs on encoder-supplied
// resolution vectors at ingestion time (see spec §6: the store trusts the
// encoder's unit-norm invariant and only checks finiteness).
func FiniteVector(v *Vector) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return false
		}
	}
	return true
}

// UnitNorm reports whether v has L2 norm within tol of 1.0.
func UnitNorm(v *Vector, tol float64) bool {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return math.Abs(math.Sqrt(sumSq)-1.0) < tol
}
