// Package halflife implements half-life regression, an online model of
// memory decay for spaced repetition.
//
// The model predicts the half-life h of a learned item, in days, from a
// sparse feature vector:
//
//	h = base ^ Σ weight[name] * value
//
// and the probability of recalling the item after Δ days without review:
//
//	p = base ^ (-Δ / h)
//
// After every review the observed outcome drives one gradient step on the
// squared error of both p and h, with an Adagrad-style per-feature learning
// rate and L2 shrinkage of the weights.
//
// Outputs are always clipped: half-lives to [MinHalfLife, MaxHalfLife] and
// recall probabilities to [MinRecall, MaxRecall]. No method returns an error
// for numeric edge cases.
//
// A Model is not safe for concurrent mutation. Predict may run concurrently
// with other Predict calls, but Train and the Load methods need exclusive
// access; owners serialize them, typically one model per learner behind a
// single writer.
//
// Example usage:
//
//	m := halflife.NewModel(halflife.WithLearningRate(0.001))
//	fv := halflife.FeatureVector{halflife.F("bias", 1), halflife.F("right", 2)}
//	pred := m.Predict(fv, 3.5)
//	m.TrainUpdate(fv, 3.5, 1.0)
package halflife

import (
	"math"

	"github.com/noema/hlr/core/model"
	"github.com/noema/hlr/pkg/log"
)

// Config holds the training hyperparameters. It is fixed at construction.
type Config struct {
	// OmitHTerm disables the half-life error term of the gradient.
	OmitHTerm bool
	// LearningRate is the base step size.
	LearningRate float64
	// HalfLifeWeight scales the half-life error term.
	HalfLifeWeight float64
	// L2Weight scales the L2 shrinkage applied at each step.
	L2Weight float64
	// Sigma is the prior scale of the L2 penalty.
	Sigma float64
}

// DefaultConfig returns the settings from Settles & Meeder (2016).
func DefaultConfig() Config {
	return Config{
		OmitHTerm:      false,
		LearningRate:   0.001,
		HalfLifeWeight: 0.01,
		L2Weight:       0.1,
		Sigma:          1.0,
	}
}

// Hyperparameters converts the config to its persisted form.
func (c Config) Hyperparameters() model.Hyperparameters {
	return model.Hyperparameters{
		OmitHTerm:      c.OmitHTerm,
		LearningRate:   c.LearningRate,
		HalfLifeWeight: c.HalfLifeWeight,
		L2Weight:       c.L2Weight,
		Sigma:          c.Sigma,
	}
}

// ConfigFromHyperparameters is the inverse of Config.Hyperparameters.
func ConfigFromHyperparameters(hp model.Hyperparameters) Config {
	return Config{
		OmitHTerm:      hp.OmitHTerm,
		LearningRate:   hp.LearningRate,
		HalfLifeWeight: hp.HalfLifeWeight,
		L2Weight:       hp.L2Weight,
		Sigma:          hp.Sigma,
	}
}

// Prediction is the model output for one feature vector.
type Prediction struct {
	RecallProbability float64 `json:"recall_probability"`
	HalfLifeDays      float64 `json:"half_life_days"`
}

// Model is a half-life regression model.
type Model struct {
	cfg          Config
	weights      map[string]float64
	counts       map[string]int
	observations int64
	logger       log.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithInitialWeights seeds the weight map. The map is copied.
func WithInitialWeights(weights map[string]float64) Option {
	return func(m *Model) {
		m.weights = copyWeights(weights)
	}
}

// WithOmitHTerm disables the half-life term of the update.
func WithOmitHTerm(omit bool) Option {
	return func(m *Model) {
		m.cfg.OmitHTerm = omit
	}
}

// WithLearningRate sets the base learning rate.
func WithLearningRate(rate float64) Option {
	return func(m *Model) {
		m.cfg.LearningRate = rate
	}
}

// WithHalfLifeWeight sets the weight of the half-life error term.
func WithHalfLifeWeight(w float64) Option {
	return func(m *Model) {
		m.cfg.HalfLifeWeight = w
	}
}

// WithL2Weight sets the L2 regularization strength.
func WithL2Weight(w float64) Option {
	return func(m *Model) {
		m.cfg.L2Weight = w
	}
}

// WithSigma sets the prior scale of the L2 penalty.
func WithSigma(sigma float64) Option {
	return func(m *Model) {
		m.cfg.Sigma = sigma
	}
}

// WithConfig replaces all hyperparameters at once.
func WithConfig(cfg Config) Option {
	return func(m *Model) {
		m.cfg = cfg
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger log.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// NewModel creates a model with DefaultConfig, modified by options.
func NewModel(options ...Option) *Model {
	m := &Model{
		cfg:     DefaultConfig(),
		weights: make(map[string]float64),
		counts:  make(map[string]int),
		logger: log.GetLoggerWithName("halflife").With(
			log.ModelNameKey, model.ModelType,
		),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// NewFromCheckpoint creates a model configured from cp's hyperparameters and
// restored to its weights and counts. Options apply after the checkpoint's
// hyperparameters.
func NewFromCheckpoint(cp *model.Checkpoint, options ...Option) (*Model, error) {
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	opts := append([]Option{WithConfig(ConfigFromHyperparameters(cp.Hyperparameters))}, options...)
	m := NewModel(opts...)
	m.restore(cp)
	return m, nil
}

// Config returns the model's hyperparameters.
func (m *Model) Config() Config {
	return m.cfg
}

// HalfLife returns the predicted half-life in days using DefaultBase.
func (m *Model) HalfLife(features FeatureVector) float64 {
	return m.HalfLifeBase(features, DefaultBase)
}

// HalfLifeBase returns base^(w·x) clipped to [MinHalfLife, MaxHalfLife].
// A non-finite result, such as an overflow, yields MaxHalfLife.
func (m *Model) HalfLifeBase(features FeatureVector, base float64) float64 {
	var dp float64
	for _, f := range features {
		dp += m.weights[f.Name] * f.Value
	}
	h := math.Pow(base, dp)
	if !finite(h) {
		return MaxHalfLife
	}
	return ClipHalfLife(h)
}

// Predict returns the recall probability after deltaDays and the half-life,
// using DefaultBase.
func (m *Model) Predict(features FeatureVector, deltaDays float64) Prediction {
	return m.PredictBase(features, deltaDays, DefaultBase)
}

// PredictBase is Predict with an explicit logarithmic base.
func (m *Model) PredictBase(features FeatureVector, deltaDays, base float64) Prediction {
	h := m.HalfLifeBase(features, base)
	p := math.Pow(base, -deltaDays/h)
	return Prediction{
		RecallProbability: ClipRecall(p),
		HalfLifeDays:      h,
	}
}

// Weights returns a copy of the weight map.
func (m *Model) Weights() map[string]float64 {
	return copyWeights(m.weights)
}

// Weight returns the weight of one feature, zero when absent.
func (m *Model) Weight(name string) float64 {
	return m.weights[name]
}

// LoadWeights replaces the weight map with a copy of weights. Feature counts
// are left untouched; use LoadFeatureCounts or Restore to bring them back too.
func (m *Model) LoadWeights(weights map[string]float64) {
	m.weights = copyWeights(weights)
	if m.logger != nil {
		m.logger.Info("Weights loaded",
			log.OperationKey, log.OperationLoad,
			log.FeaturesKey, len(weights),
		)
	}
}

// FeatureCounts returns a copy of the per-feature observation counts.
func (m *Model) FeatureCounts() map[string]int {
	counts := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		counts[k] = v
	}
	return counts
}

// LoadFeatureCounts replaces the observation counts. Negative counts are
// stored as zero.
func (m *Model) LoadFeatureCounts(counts map[string]int) {
	m.counts = make(map[string]int, len(counts))
	for k, v := range counts {
		if v < 0 {
			v = 0
		}
		m.counts[k] = v
	}
}

// Observations returns the number of accepted training observations.
func (m *Model) Observations() int64 {
	return m.observations
}

// Checkpoint snapshots the learned state for persistence.
func (m *Model) Checkpoint(scope string) *model.Checkpoint {
	cp := model.NewCheckpoint(scope, m.cfg.Hyperparameters(), m.Weights(), m.FeatureCounts())
	cp.Observations = m.observations
	return cp
}

// Restore replaces weights, counts and the observation counter with the
// contents of cp. The model keeps its own hyperparameters.
func (m *Model) Restore(cp *model.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	if m.logger != nil && cp.Hyperparameters != m.cfg.Hyperparameters() {
		m.logger.Warn("Checkpoint hyperparameters differ from model config",
			log.OperationKey, log.OperationLoad,
			log.ScopeKey, cp.Scope,
		)
	}
	m.restore(cp)
	return nil
}

func (m *Model) restore(cp *model.Checkpoint) {
	m.weights = copyWeights(cp.Weights)
	m.LoadFeatureCounts(cp.FeatureCounts)
	m.observations = cp.Observations
}

func copyWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for k, v := range weights {
		out[k] = v
	}
	return out
}
