package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)

	// Scale invariance.
	assert.InDelta(t,
		cosineSimilarity([]float64{1, 2, 3}, []float64{4, 5, 6}),
		cosineSimilarity([]float64{2, 4, 6}, []float64{4, 5, 6}), 1e-9)

	// Degenerate inputs score zero instead of NaN.
	assert.Zero(t, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Zero(t, cosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
