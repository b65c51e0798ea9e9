package halflife

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBounds(t *testing.T) {
	assert.Equal(t, 15.0/1440.0, MinHalfLife)
	assert.Equal(t, 274.0, MaxHalfLife)
}

func TestClipRecall(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{0, MinRecall},
		{-3, MinRecall},
		{1, MaxRecall},
		{math.Inf(1), MaxRecall},
		{math.Inf(-1), MinRecall},
		{math.NaN(), MinRecall},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClipRecall(tt.in), "ClipRecall(%v)", tt.in)
	}
}

func TestClipHalfLife(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1, 1},
		{0, MinHalfLife},
		{1000, MaxHalfLife},
		{math.Inf(-1), MinHalfLife},
		{math.NaN(), MinHalfLife},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClipHalfLife(tt.in), "ClipHalfLife(%v)", tt.in)
	}
}

func TestFeatureVectorSplit(t *testing.T) {
	clean := FeatureVector{F("a", 1), F("b", 2)}
	usable, skipped := clean.split()
	assert.Equal(t, clean, usable)
	assert.Nil(t, skipped)

	dirty := FeatureVector{F("a", math.NaN()), F("b", 2)}
	usable, skipped = dirty.split()
	assert.Equal(t, FeatureVector{F("b", 2)}, usable)
	assert.Equal(t, []string{"a"}, skipped)
	assert.Equal(t, []string{"a", "b"}, dirty.Names())
}
