package engine

import "math"

// CosineSimilarity returns dot(a,b) / (|a|·|b|). It returns 0.0 when either
// vector is empty, the vectors differ in length, or either norm is zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize returns v scaled to unit L2 norm. A zero vector normalizes to an
// all-zero vector of the same length.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}

	out := make([]float64, len(v))
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// round4 rounds a similarity score to four decimal places for reporting.
// Stored scores keep full precision.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
