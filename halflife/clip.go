package halflife

import "math"

// Bounds on model outputs.
const (
	// MinHalfLife is 15 minutes, in days.
	MinHalfLife = 15.0 / (24 * 60)
	// MaxHalfLife is roughly nine months, in days.
	MaxHalfLife = 274.0

	// MinRecall and MaxRecall bound predicted recall probabilities.
	MinRecall = 0.0001
	MaxRecall = 0.9999

	// DefaultBase is the logarithmic base of the half-life model.
	DefaultBase = 2.0
)

var ln2 = math.Ln2

// ClipRecall bounds p to [MinRecall, MaxRecall].
func ClipRecall(p float64) float64 {
	return clamp(p, MinRecall, MaxRecall)
}

// ClipHalfLife bounds h to [MinHalfLife, MaxHalfLife].
func ClipHalfLife(h float64) float64 {
	return clamp(h, MinHalfLife, MaxHalfLife)
}

// clamp maps NaN to lo, unlike a bare min/max chain which would return it.
func clamp(x, lo, hi float64) float64 {
	switch {
	case math.IsNaN(x):
		return lo
	case x < lo:
		return lo
	case x > hi:
		return hi
	}
	return x
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
