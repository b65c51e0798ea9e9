package halflife

import (
	"math"

	"github.com/noema/hlr/pkg/log"
)

// Observation is the outcome of one review.
type Observation struct {
	// DeltaDays is the time since the previous review.
	DeltaDays float64
	// ActualRecall is the observed recall proportion in [0, 1].
	ActualRecall float64
	// ActualHalfLife is the observed half-life. When nil it is estimated
	// from ActualRecall and DeltaDays.
	ActualHalfLife *float64
}

// TrainResult describes what one training step did.
type TrainResult struct {
	// Prior is the prediction made with the pre-update weights.
	Prior Prediction
	// TargetHalfLife is the half-life the step moved toward.
	TargetHalfLife float64
	// Updated is the number of feature weights changed.
	Updated int
	// Skipped lists features dropped for non-finite values.
	Skipped []string
	// Rejected is set when the observation itself was not finite or its
	// recall was outside [0, 1], and the model was left unchanged.
	Rejected bool
}

// TrainUpdate performs one online gradient step from an observed recall,
// estimating the half-life from it.
func (m *Model) TrainUpdate(features FeatureVector, deltaDays, actualRecall float64) {
	m.Train(features, Observation{DeltaDays: deltaDays, ActualRecall: actualRecall})
}

// TrainUpdateWithHalfLife performs one online gradient step toward a
// directly observed half-life.
func (m *Model) TrainUpdateWithHalfLife(features FeatureVector, deltaDays, actualRecall, actualHalfLife float64) {
	m.Train(features, Observation{
		DeltaDays:      deltaDays,
		ActualRecall:   actualRecall,
		ActualHalfLife: &actualHalfLife,
	})
}

// Train performs one online gradient step and reports what it did.
//
// Features with NaN or infinite values are skipped: they take no part in the
// prediction, their weight is not touched and their count is not incremented.
// An observation whose delta, recall or half-life is not finite, or whose
// recall lies outside [0, 1], is rejected without changing the model.
func (m *Model) Train(features FeatureVector, obs Observation) TrainResult {
	if !finite(obs.DeltaDays) || !finite(obs.ActualRecall) ||
		obs.ActualRecall < 0 || obs.ActualRecall > 1 ||
		(obs.ActualHalfLife != nil && !finite(*obs.ActualHalfLife)) {
		if m.logger != nil {
			m.logger.Warn("Observation rejected",
				log.OperationKey, log.OperationTrain,
				log.DeltaDaysKey, obs.DeltaDays,
				log.ActualRecallKey, obs.ActualRecall,
			)
		}
		return TrainResult{Rejected: true}
	}

	usable, skipped := features.split()
	if len(skipped) > 0 && m.logger != nil {
		m.logger.Warn("Skipping non-finite features",
			log.OperationKey, log.OperationTrain,
			log.SkippedKey, skipped,
		)
	}

	prior := m.Predict(usable, obs.DeltaDays)
	p, h := prior.RecallProbability, prior.HalfLifeDays

	target := h
	if obs.ActualHalfLife != nil {
		target = *obs.ActualHalfLife
	} else if est, ok := EstimateHalfLife(obs.DeltaDays, obs.ActualRecall); ok {
		target = est
	}

	// Gradients of the squared errors in p and h with respect to w·x.
	dlp := 2 * (p - obs.ActualRecall) * ln2 * ln2 * p * (obs.DeltaDays / h)
	dlh := 2 * (h - target) * ln2 * h

	sigma2 := m.cfg.Sigma * m.cfg.Sigma
	base := (1 / (1 + obs.ActualRecall)) * m.cfg.LearningRate
	for _, f := range usable {
		rate := base / math.Sqrt(1+float64(m.counts[f.Name]))
		w := m.weights[f.Name]
		w -= rate * dlp * f.Value
		if !m.cfg.OmitHTerm {
			w -= rate * m.cfg.HalfLifeWeight * dlh * f.Value
		}
		w -= rate * m.cfg.L2Weight * w / sigma2
		m.weights[f.Name] = w
		m.counts[f.Name]++
	}
	m.observations++

	if m.logger != nil {
		m.logger.Debug("Training step",
			log.OperationKey, log.OperationTrain,
			log.PhaseKey, log.PhaseTraining,
			log.FeaturesKey, len(usable),
			log.ActualRecallKey, obs.ActualRecall,
			log.RecallKey, p,
			log.HalfLifeKey, h,
		)
	}

	return TrainResult{
		Prior:          prior,
		TargetHalfLife: target,
		Updated:        len(usable),
		Skipped:        skipped,
	}
}

// EstimateHalfLife inverts p = 2^(-Δ/h) for an observed recall. It reports
// false when recall <= MinRecall or deltaDays <= 0, where the inversion is
// undefined. The recall is clipped first so a perfect recall maps to a long
// half-life rather than a division by zero.
func EstimateHalfLife(deltaDays, recall float64) (float64, bool) {
	if recall <= MinRecall || deltaDays <= 0 {
		return 0, false
	}
	return ClipHalfLife(-deltaDays / math.Log2(ClipRecall(recall))), true
}
