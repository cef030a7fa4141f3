package reembed

import "math"

// NormalizeVector returns v scaled to unit length as a new slice.
// A zero vector normalizes to a zero vector of the same length.
func NormalizeVector(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// NormalizeAll normalizes every vector in vs.
func NormalizeAll(vs [][]float32) [][]float32 {
	out := make([][]float32, len(vs))
	for i, v := range vs {
		out[i] = NormalizeVector(v)
	}
	return out
}
