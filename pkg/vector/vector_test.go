package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnitNorm(t *testing.T) {
	v := []float64{3, 4, 0}
	n := Normalize(v)
	require.True(t, AllFinite(n))
	assert.InDelta(t, 1.0, Norm(n), 1e-9)
	assert.InDelta(t, 0.6, n[0], 1e-9)
	assert.InDelta(t, 0.8, n[1], 1e-9)
}

func TestNormalizeZeroVectorUnchanged(t *testing.T) {
	v := []float64{0, 0, 0}
	n := Normalize(v)
	assert.Equal(t, v, n)
	assert.Equal(t, 0.0, Norm(n))
}

func TestAllFiniteRejectsNaNInf(t *testing.T) {
	assert.False(t, AllFinite([]float64{1, math.NaN()}))
	assert.False(t, AllFinite([]float64{1, math.Inf(1)}))
	assert.True(t, AllFinite([]float64{1, 2, 3}))
}

func TestCosineSimilarityIdentical(t *testing.T) {
	a := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
