// Package embeddings provides utilities for embedding vectors (e.g. L2 normalization).
package embeddings

import "math"

// NormalizeL2 normalizes a raw embedding vector to unit length in place,
// so cosine distance and dot product agree regardless of provider scaling.
// All-zero vectors are left untouched.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}
