package halflife

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Expected weights after one update were computed by hand from the update
// rule; see trainStepReference for the same computation in Go.
func TestTrainUpdatePinnedValues(t *testing.T) {
	tests := []struct {
		name      string
		options   []Option
		deltaDays float64
		recall    float64
		want      float64
	}{
		{
			name:      "balanced recall leaves weight unchanged",
			deltaDays: 1,
			recall:    0.5,
			want:      0.0,
		},
		{
			name:      "strong recall lengthens half-life",
			deltaDays: 2,
			recall:    0.9,
			want:      0.00025305770995133465,
		},
		{
			name:      "strong recall without half-life term",
			options:   []Option{WithOmitHTerm(true)},
			deltaDays: 2,
			recall:    0.9,
			want:      0.00016435685394544986,
		},
		{
			name:      "total failure falls back to predicted half-life",
			deltaDays: 2,
			recall:    0,
			want:      -0.00012010124215420239,
		},
		{
			name:      "seeded weight",
			options:   []Option{WithInitialWeights(map[string]float64{"lag": 0.5})},
			deltaDays: 3,
			recall:    0.2,
			want:      0.499944689711874,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quietModel(tt.options...)
			m.TrainUpdate(FeatureVector{F("lag", 1.0)}, tt.deltaDays, tt.recall)

			assert.InDelta(t, tt.want, m.Weight("lag"), 1e-9)
			assert.Equal(t, map[string]int{"lag": 1}, m.FeatureCounts())
		})
	}
}

// trainStepReference applies the update rule for a single feature, written
// out term by term.
func trainStepReference(w, x, deltaDays, recall float64, count int, cfg Config) float64 {
	h := ClipHalfLife(math.Pow(2, w*x))
	p := ClipRecall(math.Pow(2, -deltaDays/h))
	target := h
	if recall > 0.0001 && deltaDays > 0 {
		target = ClipHalfLife(-deltaDays / math.Log2(recall))
	}
	dlp := 2 * (p - recall) * math.Ln2 * math.Ln2 * p * (deltaDays / h)
	dlh := 2 * (h - target) * math.Ln2 * h
	rate := (1 / (1 + recall)) * cfg.LearningRate / math.Sqrt(1+float64(count))
	w -= rate * dlp * x
	if !cfg.OmitHTerm {
		w -= rate * cfg.HalfLifeWeight * dlh * x
	}
	w -= rate * cfg.L2Weight * w / (cfg.Sigma * cfg.Sigma)
	return w
}

func TestTrainUpdateMatchesReference(t *testing.T) {
	cfg := Config{LearningRate: 0.05, HalfLifeWeight: 0.1, L2Weight: 0.2, Sigma: 0.8}
	m := quietModel(WithConfig(cfg))

	w := 0.0
	recalls := []float64{0.9, 0.3, 0.75, 0.99, 0.05, 0.6}
	deltas := []float64{0.5, 2, 4, 1, 8, 3}
	for i := range recalls {
		w = trainStepReference(w, 1.5, deltas[i], recalls[i], i, cfg)
		m.TrainUpdate(FeatureVector{F("x", 1.5)}, deltas[i], recalls[i])
		require.InDelta(t, w, m.Weight("x"), 1e-12, "step %d", i)
	}
	assert.Equal(t, len(recalls), m.FeatureCounts()["x"])
	assert.Equal(t, int64(len(recalls)), m.Observations())
}

func TestTrainUpdateWithHalfLife(t *testing.T) {
	cfg := DefaultConfig()
	m := quietModel()
	m.TrainUpdateWithHalfLife(FeatureVector{F("lag", 1)}, 1, 0.5, 10)

	// p matches recall exactly, so only the half-life term moves the weight:
	// dlh = 2*(1-10)*ln2*1, rate = (1/1.5)*0.001
	rate := cfg.LearningRate / 1.5
	dlh := 2 * (1.0 - 10.0) * math.Ln2
	w := -rate * cfg.HalfLifeWeight * dlh
	w -= rate * cfg.L2Weight * w
	assert.InDelta(t, w, m.Weight("lag"), 1e-15)
	assert.Greater(t, m.Weight("lag"), 0.0)
}

func TestTrainResult(t *testing.T) {
	m := quietModel()
	fv := FeatureVector{F("a", 1), F("b", math.NaN()), F("c", 2), F("d", math.Inf(-1))}

	res := m.Train(fv, Observation{DeltaDays: 2, ActualRecall: 0.9})
	assert.False(t, res.Rejected)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, []string{"b", "d"}, res.Skipped)
	assert.Equal(t, Prediction{RecallProbability: 0.25, HalfLifeDays: 1}, res.Prior)
	assert.InDelta(t, -2/math.Log2(0.9), res.TargetHalfLife, 1e-12)

	assert.Equal(t, map[string]int{"a": 1, "c": 1}, m.FeatureCounts())
	_, hasB := m.Weights()["b"]
	assert.False(t, hasB)
	for name, w := range m.Weights() {
		assert.False(t, math.IsNaN(w) || math.IsInf(w, 0), name)
	}
}

func TestTrainRejectsInvalidObservation(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		obs  Observation
	}{
		{name: "delta", obs: Observation{DeltaDays: nan, ActualRecall: 0.5}},
		{name: "recall", obs: Observation{DeltaDays: 1, ActualRecall: math.Inf(1)}},
		{name: "half-life", obs: Observation{DeltaDays: 1, ActualRecall: 0.5, ActualHalfLife: &nan}},
		{name: "negative recall", obs: Observation{DeltaDays: 1, ActualRecall: -1}},
		{name: "recall above one", obs: Observation{DeltaDays: 1, ActualRecall: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quietModel(WithInitialWeights(map[string]float64{"a": 0.5}))
			res := m.Train(FeatureVector{F("a", 1)}, tt.obs)
			assert.True(t, res.Rejected)
			assert.Equal(t, map[string]float64{"a": 0.5}, m.Weights())
			assert.Empty(t, m.FeatureCounts())
			assert.Equal(t, int64(0), m.Observations())
		})
	}
}

func TestTrainDegenerateInputsFallBack(t *testing.T) {
	tests := []struct {
		name      string
		deltaDays float64
		recall    float64
	}{
		{name: "zero delta", deltaDays: 0, recall: 0.7},
		{name: "negative delta", deltaDays: -1, recall: 0.7},
		{name: "recall at floor", deltaDays: 1, recall: 0.0001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quietModel()
			res := m.Train(FeatureVector{F("a", 1)}, Observation{DeltaDays: tt.deltaDays, ActualRecall: tt.recall})
			assert.Equal(t, res.Prior.HalfLifeDays, res.TargetHalfLife)
			assert.False(t, math.IsNaN(m.Weight("a")))
		})
	}
}

func TestTrainPerfectRecallTargetsLongHalfLife(t *testing.T) {
	m := quietModel()
	res := m.Train(FeatureVector{F("a", 1)}, Observation{DeltaDays: 1, ActualRecall: 1})
	assert.Equal(t, MaxHalfLife, res.TargetHalfLife)
	assert.Greater(t, m.Weight("a"), 0.0)
}

func TestTrainDuplicateFeatureUpdatesTwice(t *testing.T) {
	m := quietModel()
	m.TrainUpdate(FeatureVector{F("a", 1), F("a", 1)}, 2, 0.9)
	assert.Equal(t, 2, m.FeatureCounts()["a"])
}

func TestTrainConvergesTowardPerfectRecall(t *testing.T) {
	m := quietModel()
	fv := FeatureVector{F("bias", 1)}

	fixedDelta := 1.0
	prevFixed := math.Abs(m.Predict(fv, fixedDelta).RecallProbability - 1)
	for i := 0; i < 50; i++ {
		h := m.HalfLife(fv)
		before := math.Abs(m.Predict(fv, h).RecallProbability - 1)

		m.TrainUpdate(fv, h, 1.0)

		after := math.Abs(m.Predict(fv, h).RecallProbability - 1)
		require.LessOrEqual(t, after, before, "iteration %d", i)

		fixed := math.Abs(m.Predict(fv, fixedDelta).RecallProbability - 1)
		require.LessOrEqual(t, fixed, prevFixed, "iteration %d", i)
		prevFixed = fixed
	}
	assert.Greater(t, m.HalfLife(fv), 1.0)
}

func TestTrainL2Shrinkage(t *testing.T) {
	m := quietModel(WithInitialWeights(map[string]float64{"a": 2.0}))
	// tiny feature value: the prediction stays at h=1, p=0.5, so the
	// gradient terms vanish and only the L2 step remains
	fv := FeatureVector{F("a", 1e-9)}

	prev := math.Abs(m.Weight("a"))
	for i := 0; i < 100; i++ {
		m.TrainUpdate(fv, 1, 0.5)
		cur := math.Abs(m.Weight("a"))
		require.Less(t, cur, prev, "iteration %d", i)
		prev = cur
	}
	assert.Greater(t, prev, 0.0)
}

func TestTrainLearningRateDecaysWithCount(t *testing.T) {
	m := quietModel(WithL2Weight(0))
	fv := FeatureVector{F("a", 1)}

	m.TrainUpdate(fv, 2, 0.9)
	first := m.Weight("a")
	m.LoadWeights(map[string]float64{})
	m.TrainUpdate(fv, 2, 0.9)
	second := m.Weight("a")

	// same gradient, rate divided by sqrt(2)
	assert.InDelta(t, first/math.Sqrt2, second, 1e-15)
}
