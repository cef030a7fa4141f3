package reembed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{"unit vector unchanged", []float32{1, 0, 0}, []float32{1, 0, 0}},
		{"scales 3-4-5", []float32{3, 4}, []float32{0.6, 0.8}},
		{"negative values", []float32{-1, 1}, []float32{-1 / float32(math.Sqrt2), 1 / float32(math.Sqrt2)}},
		{"zero vector", []float32{0, 0}, []float32{0, 0}},
		{"empty", []float32{}, []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeVector(tt.input)
			require.Len(t, got, len(tt.expected))
			for i := range got {
				assert.InDelta(t, tt.expected[i], got[i], 1e-6)
			}
		})
	}
}

func TestNormalizeVector_DoesNotModifyInput(t *testing.T) {
	in := []float32{3, 4}
	_ = NormalizeVector(in)
	assert.Equal(t, []float32{3, 4}, in)
}

func TestNormalizeAll(t *testing.T) {
	out := NormalizeAll([][]float32{{2, 0}, {0, 5}})
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, out)
}
